package video

import (
	"fmt"
	"os"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FramePattern is the file name pattern for extracted frames, 1-based.
const FramePattern = "frame_%06d.png"

// ExtractFrames decodes every frame of videoPath into outDir as a PNG
// sequence. -vsync 0 keeps the decoded frame count exact instead of
// letting ffmpeg duplicate or drop frames to match a rate.
func ExtractFrames(videoPath, outDir string) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create frames dir: %w", err)
	}
	outputPattern := filepath.Join(outDir, FramePattern)

	err := ffmpeg.
		Input(videoPath).
		Output(outputPattern, ffmpeg.KwArgs{
			"vsync":        "0",
			"start_number": "1",
		}).
		OverWriteOutput().
		Run()
	if err != nil {
		return fmt.Errorf("frame extraction failed for %s: %w", videoPath, err)
	}
	return nil
}

// FramePath returns the path of 1-based frame i under dir.
func FramePath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf(FramePattern, i))
}

// ListFrames returns the extracted frame files of dir in sequence order.
func ListFrames(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "frame_*.png"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no frames found in %s", dir)
	}
	// Glob results are lexically sorted, which matches the zero-padded
	// numbering.
	return matches, nil
}
