package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Config locates the destination bucket. An empty AccessKey falls
// back to the ambient AWS credential chain; a non-empty Endpoint points
// at an S3-compatible store.
type S3Config struct {
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint,omitempty"`
	AccessKey string `json:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty"`
}

// Uploader pushes finished bundles to S3.
type Uploader struct {
	client *s3.Client
	cfg    S3Config
}

// NewUploader builds an Uploader from cfg.
func NewUploader(ctx context.Context, cfg S3Config) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 upload requires a bucket")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Uploader{client: client, cfg: cfg}, nil
}

// Key returns the object key an uploaded file lands under.
func (u *Uploader) Key(filename string) string {
	if u.cfg.Prefix == "" {
		return filename
	}
	return path.Join(u.cfg.Prefix, filename)
}

// Upload puts a local file into the bucket and reports progress.
func (u *Uploader) Upload(ctx context.Context, localPath string, progress ProgressCallback) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	key := u.Key(filepath.Base(localPath))
	if progress != nil {
		progress(Progress{
			Status:  StatusUploading,
			Message: fmt.Sprintf("uploading %s (%s)", key, FormatBytes(info.Size())),
			Total:   info.Size(),
		})
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/zip"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("failed to upload %s: %s: %s", key, apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if progress != nil {
		progress(Progress{
			Status:     StatusComplete,
			Message:    fmt.Sprintf("uploaded %s", key),
			Downloaded: info.Size(),
			Total:      info.Size(),
		})
	}
	return key, nil
}
