package deps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/True3DLabs/VDA-inpainting/platform"
)

// GetExec builds an exec.Cmd for a dependency executable.
// It looks up the executable path from the dependency installation directory.
// Falls back to system PATH if the dependency is not installed.
func GetExec(ctx context.Context, depID string, exeName string, args ...string) (*exec.Cmd, error) {
	exePath, err := GetExecutablePath(depID, exeName)
	if err != nil {
		// Fall back to system PATH
		systemPath, lookupErr := exec.LookPath(exeName)
		if lookupErr != nil {
			return nil, fmt.Errorf("executable %q not found in dependency %q or system PATH: %v", exeName, depID, lookupErr)
		}
		cmd := exec.CommandContext(ctx, systemPath, args...)
		configureSysProcAttr(cmd)
		return cmd, nil
	}

	// Check if the executable exists
	if _, err := os.Stat(exePath); os.IsNotExist(err) {
		// Fall back to system PATH
		systemPath, lookupErr := exec.LookPath(exeName)
		if lookupErr != nil {
			return nil, fmt.Errorf("executable %q not installed (expected at %s) and not in system PATH", exeName, exePath)
		}
		cmd := exec.CommandContext(ctx, systemPath, args...)
		configureSysProcAttr(cmd)
		return cmd, nil
	}

	cmd := exec.CommandContext(ctx, exePath, args...)
	configureSysProcAttr(cmd)
	return cmd, nil
}

// GetExecutablePath returns the full path to an executable within a dependency.
func GetExecutablePath(depID string, exeName string) (string, error) {
	dep, ok := Get(depID)
	if !ok {
		return "", fmt.Errorf("unknown dependency: %s", depID)
	}

	// Add platform-specific extension
	fullName := exeName + platform.BinaryExtension()

	// Check metadata store first for tracked file path
	metadata := GetMetadataStore()
	meta, ok := metadata.Get(depID)
	if ok && meta.Files != nil {
		if fileInfo, exists := meta.Files[fullName]; exists && fileInfo.Path != "" {
			return fileInfo.Path, nil
		}
	}

	// Fall back to constructing path from dependency target directory
	return filepath.Join(dep.TargetDir, fullName), nil
}

// GetExecutableName returns the platform-specific executable name.
func GetExecutableName(baseName string) string {
	return baseName + platform.BinaryExtension()
}

// GetFFmpegPath returns the path to the ffmpeg executable, falling back
// to the bare name so PATH lookup still works when not installed.
func GetFFmpegPath() string {
	path, err := GetExecutablePath("ffmpeg", "ffmpeg")
	if err != nil {
		return "ffmpeg"
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return "ffmpeg"
	}
	return path
}

// GetFFprobePath returns the path to the ffprobe executable.
func GetFFprobePath() string {
	path, err := GetExecutablePath("ffmpeg", "ffprobe")
	if err != nil {
		return "ffprobe"
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return "ffprobe"
	}
	return path
}

// GetFFmpegDownloadURL returns the platform-specific download URL for a
// static FFmpeg build.
func GetFFmpegDownloadURL() string {
	if runtime.GOOS == "windows" {
		return "https://github.com/BtbN/FFmpeg-Builds/releases/download/latest/ffmpeg-master-latest-win64-gpl.zip"
	}
	return "https://github.com/BtbN/FFmpeg-Builds/releases/download/latest/ffmpeg-master-latest-linux64-gpl.tar.xz"
}
