package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/True3DLabs/VDA-inpainting/deps"
)

// DefaultSceneThreshold is the ffmpeg scene-change score above which a
// cut is declared.
const DefaultSceneThreshold = 0.3

var ptsTimeRegex = regexp.MustCompile(`pts_time:([0-9.]+)`)

// DetectSceneTimestamps runs ffmpeg scene-change detection over
// videoPath and returns the ordered scene start timestamps in seconds.
// The first scene always starts at 0.0.
func DetectSceneTimestamps(ctx context.Context, videoPath string, threshold float64) ([]float64, error) {
	if threshold <= 0 {
		threshold = DefaultSceneThreshold
	}
	cmd, err := deps.GetExec(ctx, "ffmpeg", "ffmpeg",
		"-i", videoPath,
		"-vf", fmt.Sprintf("select=gt(scene\\,%g),metadata=print:file=-", threshold),
		"-f", "null",
		"-",
	)
	if err != nil {
		return nil, err
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("scene detection failed for %s: %w, output: %s", videoPath, err, string(output))
	}
	return parseSceneTimestamps(string(output)), nil
}

// parseSceneTimestamps pulls pts_time values out of the metadata filter
// output and prepends the implicit 0.0 start.
func parseSceneTimestamps(output string) []float64 {
	starts := []float64{0.0}
	for _, m := range ptsTimeRegex.FindAllStringSubmatch(output, -1) {
		t, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		// The detector can report a cut at (or extremely near) zero,
		// which would create an empty first scene.
		if t <= 0 {
			continue
		}
		starts = append(starts, t)
	}
	return starts
}

// SceneFileName formats the clip file name for 1-based scene i.
const SceneFileName = "scene.mp4"

// SplitScenes re-encodes each [start, next-start) range of videoPath
// into its own clip under scenesDir/scene_%03d/scene.mp4. totalDuration
// bounds the final scene.
func SplitScenes(videoPath, scenesDir string, starts []float64, totalDuration float64) ([]string, error) {
	if len(starts) == 0 {
		return nil, fmt.Errorf("no scene timestamps")
	}
	clips := make([]string, 0, len(starts))
	for i, start := range starts {
		end := totalDuration
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		if end <= start {
			return nil, fmt.Errorf("scene %d has non-positive duration (%.3f..%.3f)", i+1, start, end)
		}

		sceneDir := filepath.Join(scenesDir, fmt.Sprintf("scene_%03d", i+1))
		if err := os.MkdirAll(sceneDir, 0755); err != nil {
			return nil, err
		}
		clip := filepath.Join(sceneDir, SceneFileName)

		err := ffmpeg.
			Input(videoPath, ffmpeg.KwArgs{"ss": fmt.Sprintf("%f", start)}).
			Output(clip, ffmpeg.KwArgs{
				"to":       fmt.Sprintf("%f", end-start),
				"c:v":      "libx264",
				"crf":      "18",
				"preset":   "fast",
				"an":       "",
				"movflags": "+faststart",
			}).
			OverWriteOutput().
			Run()
		if err != nil {
			return nil, fmt.Errorf("failed to split scene %d: %w", i+1, err)
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

// Crop re-encodes the first maxLen seconds of videoPath into outPath.
// Used to pre-trim long inputs before scene splitting.
func Crop(videoPath, outPath string, maxLen float64) error {
	if maxLen <= 0 {
		return fmt.Errorf("crop requires a positive length (got %v)", maxLen)
	}
	err := ffmpeg.
		Input(videoPath).
		Output(outPath, ffmpeg.KwArgs{
			"t":      fmt.Sprintf("%f", maxLen),
			"c:v":    "libx264",
			"crf":    "18",
			"preset": "fast",
		}).
		OverWriteOutput().
		Run()
	if err != nil {
		return fmt.Errorf("failed to crop %s: %w", videoPath, err)
	}
	return nil
}
