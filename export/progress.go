// Package export handles run artifacts: downloading external tool and
// model archives, extracting them, bundling a finished run for delivery,
// and optionally uploading the bundle to S3.
package export

// Status describes what an artifact operation is currently doing.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusExtracting  Status = "extracting"
	StatusUploading   Status = "uploading"
	StatusComplete    Status = "complete"
	StatusFailed      Status = "failed"
)

// Progress is a point-in-time report for a long-running artifact
// operation.
type Progress struct {
	Status     Status
	Message    string
	Downloaded int64
	Total      int64
}

// ProgressCallback receives periodic Progress reports.
type ProgressCallback func(Progress)

// ByteProgressCallback receives raw byte counts during a transfer.
type ByteProgressCallback func(transferred, total int64)
