package export

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
)

// stripPrefix removes the leading path component from an archive member
// name, so archives that wrap everything in a single top-level directory
// extract flat.
func stripPrefix(name string) string {
	if i := strings.IndexAny(name, "/\\"); i >= 0 {
		return name[i+1:]
	}
	return ""
}

// securePath joins member into destDir, rejecting traversal outside it.
func securePath(destDir, member string) (string, error) {
	p := filepath.Join(destDir, member)
	if !strings.HasPrefix(p, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive member escapes destination: %s", member)
	}
	return p, nil
}

// ExtractZip extracts a zip archive to destDir. When stripRoot is set
// the archive's single top-level directory is removed from member paths.
func ExtractZip(archivePath, destDir string, stripRoot bool, progress ProgressCallback) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	total := len(r.File)
	for i, f := range r.File {
		name := f.Name
		if stripRoot {
			name = stripPrefix(name)
			if name == "" {
				continue
			}
		}
		path, err := securePath(destDir, name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(path, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s in zip: %w", f.Name, err)
		}
		out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(out, rc)
		out.Close()
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
		if progress != nil {
			progress(Progress{
				Status:     StatusExtracting,
				Message:    fmt.Sprintf("extracting %d/%d", i+1, total),
				Downloaded: int64(i + 1),
				Total:      int64(total),
			})
		}
	}
	return nil
}

// Extract7z extracts a 7z archive to destDir.
func Extract7z(archivePath, destDir string, stripRoot bool, progress ProgressCallback) error {
	r, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open 7z: %w", err)
	}
	defer r.Close()

	total := len(r.File)
	for i, f := range r.File {
		name := f.Name
		if stripRoot {
			name = stripPrefix(name)
			if name == "" {
				continue
			}
		}
		path, err := securePath(destDir, name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(path, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s in 7z: %w", f.Name, err)
		}
		out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(out, rc)
		out.Close()
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
		if progress != nil {
			progress(Progress{
				Status:     StatusExtracting,
				Message:    fmt.Sprintf("extracting %d/%d", i+1, total),
				Downloaded: int64(i + 1),
				Total:      int64(total),
			})
		}
	}
	return nil
}

// ExtractTarGz extracts a .tar.gz archive to destDir.
func ExtractTarGz(archivePath, destDir string, stripRoot bool) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read gzip: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar: %w", err)
		}
		name := hdr.Name
		if stripRoot {
			name = stripPrefix(name)
			if name == "" {
				continue
			}
		}
		path, err := securePath(destDir, name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			_, err = io.Copy(out, tr)
			out.Close()
			if err != nil {
				return fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}
		}
	}
}

// ExtractTarXz extracts a .tar.xz archive using the system tar binary.
// Static ffmpeg builds ship as tar.xz and the stdlib has no xz reader.
func ExtractTarXz(archivePath, destDir string, stripRoot bool) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	args := []string{"-xJf", archivePath, "-C", destDir}
	if stripRoot {
		args = append(args, "--strip-components=1")
	}
	cmd := exec.Command("tar", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("tar extraction failed: %w: %s", err, string(out))
	}
	return nil
}

// ExtractArchive dispatches on the archive's file extension.
func ExtractArchive(archivePath, destDir string, stripRoot bool, progress ProgressCallback) error {
	lower := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return ExtractZip(archivePath, destDir, stripRoot, progress)
	case strings.HasSuffix(lower, ".7z"):
		return Extract7z(archivePath, destDir, stripRoot, progress)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return ExtractTarGz(archivePath, destDir, stripRoot)
	case strings.HasSuffix(lower, ".tar.xz"):
		return ExtractTarXz(archivePath, destDir, stripRoot)
	default:
		return fmt.Errorf("unsupported archive format: %s", filepath.Ext(archivePath))
	}
}
