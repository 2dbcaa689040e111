package export

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DownloadFile downloads url to destPath, resuming a partial file when
// the server honors Range requests. progress may be nil.
func DownloadFile(ctx context.Context, url, destPath string, progress ByteProgressCallback) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	var existingSize int64
	if info, err := os.Stat(destPath); err == nil {
		existingSize = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if existingSize > 0 {
		req.Header.Set("Range", "bytes="+strconv.FormatInt(existingSize, 10)+"-")
	}

	client := &http.Client{Timeout: 30 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	var file *os.File
	var totalSize int64

	switch resp.StatusCode {
	case http.StatusPartialContent:
		file, err = os.OpenFile(destPath, os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open file for resume: %w", err)
		}
		totalSize = existingSize + resp.ContentLength
	case http.StatusOK:
		// Server ignored the Range header; start over.
		existingSize = 0
		file, err = os.Create(destPath)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		totalSize = resp.ContentLength
	default:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	defer file.Close()

	downloaded := existingSize
	buf := make([]byte, 32*1024)
	lastReport := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				return fmt.Errorf("failed to write file: %w", werr)
			}
			downloaded += int64(n)
			if progress != nil && time.Since(lastReport) > 100*time.Millisecond {
				progress(downloaded, totalSize)
				lastReport = time.Now()
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
	}

	if progress != nil {
		progress(downloaded, totalSize)
	}
	return nil
}

// DownloadWithRetry retries DownloadFile up to three times with a short
// pause between attempts. Resume support means a retry picks up where
// the failed attempt left off.
func DownloadWithRetry(ctx context.Context, url, destPath string, progress ByteProgressCallback) error {
	const attempts = 3
	var lastErr error
	for i := 1; i <= attempts; i++ {
		lastErr = DownloadFile(ctx, url, destPath, progress)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if i < attempts {
			time.Sleep(5 * time.Second)
		}
	}
	return fmt.Errorf("download failed after %d attempts: %w", attempts, lastErr)
}

// FormatBytes renders a byte count for progress messages.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// FormatSpeed renders a transfer rate for progress messages.
func FormatSpeed(bytesPerSec float64) string {
	return FormatBytes(int64(bytesPerSec)) + "/s"
}
