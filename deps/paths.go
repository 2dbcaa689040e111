package deps

import (
	"path/filepath"
	"runtime"

	"github.com/True3DLabs/VDA-inpainting/platform"
)

// GetDepsDir returns the installation directory for a specific dependency.
// e.g., GetDepsDir("ffmpeg") returns ~/.local/share/vda-pipeline/ffmpeg on Linux
// or %APPDATA%\VDA Pipeline\ffmpeg on Windows.
func GetDepsDir(subdir string) string {
	return filepath.Join(platform.GetDataDir(), subdir)
}

// GetOnnxRuntimeLibName returns the platform-specific ONNX Runtime library name.
func GetOnnxRuntimeLibName() string {
	return "onnxruntime" + platform.SharedLibExtension()
}

// GetOnnxRuntimeDownloadURL returns the platform-specific download URL for ONNX Runtime.
func GetOnnxRuntimeDownloadURL(version, arch string) string {
	switch runtime.GOOS {
	case "windows":
		if arch == "arm64" {
			return "https://github.com/microsoft/onnxruntime/releases/download/v" + version + "/onnxruntime-win-arm64-" + version + ".zip"
		}
		return "https://github.com/microsoft/onnxruntime/releases/download/v" + version + "/onnxruntime-win-x64-" + version + ".zip"
	case "darwin":
		// macOS uses .tgz archives
		if arch == "arm64" {
			return "https://github.com/microsoft/onnxruntime/releases/download/v" + version + "/onnxruntime-osx-arm64-" + version + ".tgz"
		}
		return "https://github.com/microsoft/onnxruntime/releases/download/v" + version + "/onnxruntime-osx-x86_64-" + version + ".tgz"
	default: // linux
		if arch == "arm64" {
			return "https://github.com/microsoft/onnxruntime/releases/download/v" + version + "/onnxruntime-linux-aarch64-" + version + ".tgz"
		}
		return "https://github.com/microsoft/onnxruntime/releases/download/v" + version + "/onnxruntime-linux-x64-" + version + ".tgz"
	}
}

// IsOnnxRuntimeArchiveZip returns true if the ONNX Runtime archive is a ZIP file.
func IsOnnxRuntimeArchiveZip() bool {
	// Only Windows uses ZIP; macOS and Linux use tgz
	return runtime.GOOS == "windows"
}
