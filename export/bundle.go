package export

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Bundle file names inside a run's output directory.
const (
	BundleColorVideo = "rgb.mp4"
	BundleDepthVideo = "processed_depth.mp4"
	BundleMetadata   = "metadata.json"
)

// requiredBundleFiles must all exist for a bundle to be written.
var requiredBundleFiles = []string{BundleColorVideo, BundleDepthVideo, BundleMetadata}

// optionalBundleFiles are included when present.
var optionalBundleFiles = []string{"depth.npz", "normals.mp4"}

// Bundle zips a run's deliverables from outputDir into bundlePath. The
// color video, processed depth video, and metadata sidecar are required;
// the raw depth archive and normal-map video ride along when present.
func Bundle(outputDir, bundlePath string) error {
	for _, name := range requiredBundleFiles {
		if _, err := os.Stat(filepath.Join(outputDir, name)); err != nil {
			return fmt.Errorf("bundle missing required file %s: %w", name, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(bundlePath), 0755); err != nil {
		return fmt.Errorf("failed to create bundle directory: %w", err)
	}
	out, err := os.Create(bundlePath)
	if err != nil {
		return fmt.Errorf("failed to create bundle: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	names := append(append([]string{}, requiredBundleFiles...), optionalBundleFiles...)
	for _, name := range names {
		src := filepath.Join(outputDir, name)
		info, err := os.Stat(src)
		if err != nil {
			continue // optional file absent
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = name
		hdr.Method = zip.Deflate
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(src)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to bundle %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize bundle: %w", err)
	}
	return nil
}
