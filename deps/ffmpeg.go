package deps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"github.com/True3DLabs/VDA-inpainting/export"
	"github.com/True3DLabs/VDA-inpainting/platform"
)

var LatestFFmpegVersion = "N-122344-g649a4e98f4-20260103"

func init() {
	Register(&Dependency{
		ID:            "ffmpeg",
		Name:          "FFmpeg",
		Description:   "Media toolkit used for scene splitting, frame extraction, and depth video encoding",
		TargetDir:     GetDepsDir("ffmpeg"),
		Check:         checkFFmpeg,
		DownloadFn:    downloadFFmpeg,
		LatestVersion: LatestFFmpegVersion,
		DownloadURL:   GetFFmpegDownloadURL(),
		ExpectedSize:  150 * 1024 * 1024, // ~150MB compressed
	})
}

// checkFFmpeg verifies if FFmpeg executable exists and can run. A copy
// on the system PATH satisfies the check too.
func checkFFmpeg(ctx context.Context) (bool, string, error) {
	targetDir := GetDepsDir("ffmpeg")
	exePath := filepath.Join(targetDir, GetExecutableName("ffmpeg"))

	if _, err := os.Stat(exePath); os.IsNotExist(err) {
		systemPath, lookupErr := exec.LookPath("ffmpeg")
		if lookupErr != nil {
			return false, "", nil
		}
		exePath = systemPath
	} else if err != nil {
		return false, "", fmt.Errorf("error checking ffmpeg executable: %w", err)
	}

	// Try to execute with -version flag
	versionCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(versionCtx, exePath, "-version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		// File exists but version check failed
		return true, LatestFFmpegVersion, nil
	}

	version := parseFFmpegVersion(string(output))
	if version == "unknown" {
		version = LatestFFmpegVersion
	}
	return true, version, nil
}

// parseFFmpegVersion extracts version number from FFmpeg's version output.
func parseFFmpegVersion(output string) string {
	// Matches "ffmpeg version N-xxxxx-g..." or "ffmpeg version 6.0"
	re := regexp.MustCompile(`ffmpeg version (\S+)`)
	matches := re.FindStringSubmatch(output)
	if len(matches) > 1 {
		return matches[1]
	}
	return "unknown"
}

// downloadFFmpeg downloads and installs a static FFmpeg build.
func downloadFFmpeg(ctx context.Context, progress export.ProgressCallback) error {
	progress(export.Progress{Status: export.StatusDownloading, Message: "Starting FFmpeg download..."})

	dep, ok := Get("ffmpeg")
	if !ok {
		return fmt.Errorf("ffmpeg dependency not found in registry")
	}

	if err := os.MkdirAll(dep.TargetDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	var archivePath string
	if runtime.GOOS == "windows" {
		archivePath = filepath.Join(dep.TargetDir, "ffmpeg.zip")
	} else {
		archivePath = filepath.Join(dep.TargetDir, "ffmpeg.tar.xz")
	}

	err := export.DownloadWithRetry(ctx, dep.DownloadURL, archivePath, func(downloaded, total int64) {
		progress(export.Progress{
			Status:     export.StatusDownloading,
			Message:    fmt.Sprintf("Downloading FFmpeg: %s / %s", export.FormatBytes(downloaded), export.FormatBytes(total)),
			Downloaded: downloaded,
			Total:      total,
		})
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	progress(export.Progress{Status: export.StatusExtracting, Message: "Extracting FFmpeg..."})
	// The upstream archives wrap everything in a single versioned
	// directory with the executables under bin/.
	extractDir := filepath.Join(dep.TargetDir, "unpacked")
	if err := export.ExtractArchive(archivePath, extractDir, true, progress); err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	os.Remove(archivePath)

	// Move the executables up next to the registry's expected paths.
	executables := []string{"ffmpeg", "ffprobe"}
	files := make(map[string]FileInfo)
	for _, exe := range executables {
		name := GetExecutableName(exe)
		src := filepath.Join(extractDir, "bin", name)
		dst := filepath.Join(dep.TargetDir, name)
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("failed to install %s: %w", exe, err)
		}
		if err := platform.EnsureExecutable(dst); err != nil {
			return fmt.Errorf("failed to set permissions on %s: %w", exe, err)
		}
		files[name] = FileInfo{Path: dst}
	}
	os.RemoveAll(extractDir)

	metadata := GetMetadataStore()
	metadata.Update("ffmpeg", DependencyMetadata{
		InstalledVersion: LatestFFmpegVersion,
		Status:           StatusInstalled,
		InstallPath:      dep.TargetDir,
		LastChecked:      time.Now(),
		LastUpdated:      time.Now(),
		Files:            files,
	})
	metadata.Save()

	progress(export.Progress{Status: export.StatusComplete, Message: "FFmpeg installed"})
	return nil
}
