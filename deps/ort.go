package deps

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/True3DLabs/VDA-inpainting/export"
	"github.com/True3DLabs/VDA-inpainting/platform"
)

// DepthModelVersion names the depth estimation model bundled with the
// pipeline.
var DepthModelVersion = "depth-anything-v2-small"

func init() {
	Register(&Dependency{
		ID:            "depth-model",
		Name:          "Depth Estimation Model",
		Description:   "ONNX depth model and runtime library for monocular depth inference",
		TargetDir:     GetDepsDir("onnx"),
		Check:         checkDepthModel,
		DownloadFn:    downloadDepthModel,
		LatestVersion: DepthModelVersion,
		DownloadURL:   "https://huggingface.co/onnx-community/depth-anything-v2-small/resolve/main/onnx/model.onnx",
		ExpectedSize:  100 * 1024 * 1024, // ~100MB
	})
}

// checkDepthModel verifies the model weights and ONNX Runtime library exist.
func checkDepthModel(ctx context.Context) (bool, string, error) {
	targetDir := GetDepsDir("onnx")

	requiredFiles := map[string]string{
		"model":   filepath.Join(targetDir, "model.onnx"),
		"runtime": filepath.Join(targetDir, GetOnnxRuntimeLibName()),
	}

	for name, path := range requiredFiles {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return false, "", nil
		} else if err != nil {
			return false, "", fmt.Errorf("error checking %s: %w", name, err)
		}
	}

	return true, DepthModelVersion, nil
}

// GetDepthModelPath returns the installed model weights path.
func GetDepthModelPath() string {
	path, _ := GetFilePath("depth-model", "model.onnx")
	return path
}

// GetOnnxRuntimePath returns the installed ONNX Runtime shared library path.
func GetOnnxRuntimePath() string {
	path, _ := GetFilePath("depth-model", GetOnnxRuntimeLibName())
	return path
}

// computeModelVersion generates a version string from the model file's hash.
func computeModelVersion(modelPath string) (string, error) {
	f, err := os.Open(modelPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}

	hash := hex.EncodeToString(hasher.Sum(nil))
	return hash[:12], nil
}

// downloadDepthModel downloads the model weights and the ONNX Runtime
// shared library for this platform.
func downloadDepthModel(ctx context.Context, progress export.ProgressCallback) error {
	progress(export.Progress{Status: export.StatusDownloading, Message: "Starting depth model download..."})

	dep, ok := Get("depth-model")
	if !ok {
		return fmt.Errorf("depth-model dependency not found in registry")
	}

	if err := os.MkdirAll(dep.TargetDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	modelPath := filepath.Join(dep.TargetDir, "model.onnx")
	err := export.DownloadWithRetry(ctx, dep.DownloadURL, modelPath, func(downloaded, total int64) {
		progress(export.Progress{
			Status:     export.StatusDownloading,
			Message:    fmt.Sprintf("Downloading model.onnx: %s / %s", export.FormatBytes(downloaded), export.FormatBytes(total)),
			Downloaded: downloaded,
			Total:      total,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}

	// Download ONNX Runtime library
	progress(export.Progress{Status: export.StatusDownloading, Message: "Downloading ONNX Runtime..."})
	libName := GetOnnxRuntimeLibName()
	libPath := filepath.Join(dep.TargetDir, libName)

	arch := runtime.GOARCH
	const onnxVersion = "1.22.0"
	if arch != "amd64" && arch != "arm64" {
		return fmt.Errorf("unsupported architecture %s, install ONNX Runtime manually from https://github.com/microsoft/onnxruntime/releases", arch)
	}
	runtimeURL := GetOnnxRuntimeDownloadURL(onnxVersion, arch)

	if IsOnnxRuntimeArchiveZip() {
		tempZip := filepath.Join(dep.TargetDir, "onnxruntime.zip")
		if err := export.DownloadWithRetry(ctx, runtimeURL, tempZip, nil); err != nil {
			return fmt.Errorf("failed to download ONNX Runtime: %w", err)
		}
		progress(export.Progress{Status: export.StatusExtracting, Message: "Extracting ONNX Runtime library..."})
		if err := extractOnnxRuntimeFromZip(tempZip, libPath, libName); err != nil {
			return fmt.Errorf("failed to extract ONNX Runtime: %w", err)
		}
		os.Remove(tempZip)
	} else {
		tempTgz := filepath.Join(dep.TargetDir, "onnxruntime.tgz")
		if err := export.DownloadWithRetry(ctx, runtimeURL, tempTgz, nil); err != nil {
			return fmt.Errorf("failed to download ONNX Runtime: %w", err)
		}
		progress(export.Progress{Status: export.StatusExtracting, Message: "Extracting ONNX Runtime library..."})
		if err := extractOnnxRuntimeFromTarGz(tempTgz, libPath, dep.TargetDir); err != nil {
			return fmt.Errorf("failed to extract ONNX Runtime: %w", err)
		}
		os.Remove(tempTgz)
	}

	version := DepthModelVersion
	if hashVersion, err := computeModelVersion(modelPath); err == nil {
		version = DepthModelVersion + "-" + hashVersion
	}

	metadata := GetMetadataStore()
	metadata.Update("depth-model", DependencyMetadata{
		InstalledVersion: version,
		Status:           StatusInstalled,
		InstallPath:      dep.TargetDir,
		LastChecked:      time.Now(),
		LastUpdated:      time.Now(),
		Files: map[string]FileInfo{
			"model.onnx": {Path: modelPath},
			libName:      {Path: libPath},
		},
	})
	metadata.Save()

	progress(export.Progress{Status: export.StatusComplete, Message: "Depth model installed"})
	return nil
}

// extractOnnxRuntimeFromZip extracts the ONNX Runtime DLL from a ZIP
// archive (Windows).
func extractOnnxRuntimeFromZip(zipPath, outputPath, libName string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	defer reader.Close()

	var libFile *zip.File
	for _, file := range reader.File {
		if strings.HasSuffix(strings.ToLower(file.Name), strings.ToLower(libName)) {
			libFile = file
			break
		}
	}
	if libFile == nil {
		return fmt.Errorf("%s not found in archive", libName)
	}

	rc, err := libFile.Open()
	if err != nil {
		return fmt.Errorf("failed to open library in zip: %w", err)
	}
	defer rc.Close()

	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, rc); err != nil {
		return fmt.Errorf("failed to extract library: %w", err)
	}
	return nil
}

// extractOnnxRuntimeFromTarGz extracts the main ONNX Runtime library and
// the providers shared library from a tgz archive (Linux/macOS).
func extractOnnxRuntimeFromTarGz(tgzPath, outputPath, targetDir string) error {
	file, err := os.Open(tgzPath)
	if err != nil {
		return fmt.Errorf("failed to open tar.gz: %w", err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)

	var foundMainLib bool
	libExt := platform.SharedLibExtension()

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar: %w", err)
		}
		if header.Typeflag == tar.TypeDir {
			continue
		}

		// Linux: lib/libonnxruntime.so.{version}
		// macOS: lib/libonnxruntime.{version}.dylib
		isMainLib := false
		if runtime.GOOS == "darwin" {
			isMainLib = strings.Contains(header.Name, "/lib/libonnxruntime.") &&
				strings.HasSuffix(header.Name, ".dylib") &&
				!strings.Contains(header.Name, "_providers_")
		} else {
			isMainLib = strings.Contains(header.Name, "/lib/libonnxruntime.so.") &&
				!strings.Contains(header.Name, "_providers_")
		}

		if isMainLib {
			outFile, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			_, err = io.Copy(outFile, tarReader)
			outFile.Close()
			if err != nil {
				return fmt.Errorf("failed to extract library: %w", err)
			}
			if err := platform.EnsureExecutable(outputPath); err != nil {
				return fmt.Errorf("failed to set executable permissions: %w", err)
			}
			foundMainLib = true
		}

		// The providers shared library is required alongside the main
		// library on Linux; macOS archives may not carry it.
		providerPattern := "/lib/libonnxruntime_providers_shared" + libExt
		if strings.Contains(header.Name, providerPattern) {
			providerPath := filepath.Join(targetDir, "libonnxruntime_providers_shared"+libExt)
			outFile, err := os.Create(providerPath)
			if err != nil {
				return fmt.Errorf("failed to create providers library: %w", err)
			}
			_, err = io.Copy(outFile, tarReader)
			outFile.Close()
			if err != nil {
				return fmt.Errorf("failed to extract providers library: %w", err)
			}
			if err := platform.EnsureExecutable(providerPath); err != nil {
				return fmt.Errorf("failed to set executable permissions on providers library: %w", err)
			}
		}
	}

	if !foundMainLib {
		return fmt.Errorf("libonnxruntime%s not found in archive", libExt)
	}
	return nil
}
