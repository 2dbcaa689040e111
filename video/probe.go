// Package video wraps the ffmpeg/ffprobe invocations the pipeline
// needs: probing, frame extraction, scene detection and splitting, and
// encoding grayscale depth frames back into a video.
package video

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/True3DLabs/VDA-inpainting/deps"
)

// Info holds the probed properties of a video stream.
type Info struct {
	Width    int
	Height   int
	FPS      float64
	Duration float64
	// FrameCount is the container's declared frame count; it can be
	// absent or wrong for some encoders. Use CountFrames for the
	// decoded truth.
	FrameCount int
}

type probeOutput struct {
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		NbFrames   string `json:"nb_frames"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// parseFrameRate converts an ffprobe rational like "24000/1001" to a float.
func parseFrameRate(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	switch len(parts) {
	case 1:
		return strconv.ParseFloat(parts[0], 64)
	case 2:
		num, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return 0, fmt.Errorf("bad frame rate %q: %w", s, err)
		}
		den, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return 0, fmt.Errorf("bad frame rate %q: %w", s, err)
		}
		if den == 0 {
			return 0, fmt.Errorf("bad frame rate %q: zero denominator", s)
		}
		return num / den, nil
	default:
		return 0, fmt.Errorf("bad frame rate %q", s)
	}
}

// Probe reads a video's dimensions, frame rate, duration, and declared
// frame count via ffprobe.
func Probe(ctx context.Context, videoPath string) (*Info, error) {
	cmd, err := deps.GetExec(ctx, "ffmpeg", "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,nb_frames",
		"-show_entries", "format=duration",
		"-of", "json",
		videoPath,
	)
	if err != nil {
		return nil, err
	}
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", videoPath, err)
	}
	return parseProbeOutput(out, videoPath)
}

func parseProbeOutput(out []byte, videoPath string) (*Info, error) {
	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output for %s: %w", videoPath, err)
	}
	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no video stream found in %s", videoPath)
	}
	s := probe.Streams[0]

	fps, err := parseFrameRate(s.RFrameRate)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Width:  s.Width,
		Height: s.Height,
		FPS:    fps,
	}
	if probe.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}
	if s.NbFrames != "" {
		if n, err := strconv.Atoi(s.NbFrames); err == nil {
			info.FrameCount = n
		}
	}
	return info, nil
}

// CountFrames decodes the stream to count frames exactly. Slower than
// Probe but authoritative.
func CountFrames(ctx context.Context, videoPath string) (int, error) {
	cmd, err := deps.GetExec(ctx, "ffmpeg", "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-count_frames",
		"-show_entries", "stream=nb_read_frames",
		"-of", "csv=p=0",
		videoPath,
	)
	if err != nil {
		return 0, err
	}
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe frame count failed for %s: %w", videoPath, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("unexpected frame count output %q for %s", strings.TrimSpace(string(out)), videoPath)
	}
	return n, nil
}

// PTS returns the integer presentation timestamps of every video packet
// plus the stream timebase as a "num/den" string.
func PTS(ctx context.Context, videoPath string) ([]int64, string, error) {
	tbCmd, err := deps.GetExec(ctx, "ffmpeg", "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=time_base",
		"-of", "csv=p=0",
		videoPath,
	)
	if err != nil {
		return nil, "", err
	}
	tbOut, err := tbCmd.Output()
	if err != nil {
		return nil, "", fmt.Errorf("ffprobe timebase failed for %s: %w", videoPath, err)
	}
	timebase := strings.TrimSpace(string(tbOut))

	ptsCmd, err := deps.GetExec(ctx, "ffmpeg", "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "packet=pts",
		"-of", "csv=p=0",
		videoPath,
	)
	if err != nil {
		return nil, "", err
	}
	out, err := ptsCmd.Output()
	if err != nil {
		return nil, "", fmt.Errorf("ffprobe pts failed for %s: %w", videoPath, err)
	}
	pts, err := parsePTSOutput(string(out))
	if err != nil {
		return nil, "", fmt.Errorf("bad pts output for %s: %w", videoPath, err)
	}
	return pts, timebase, nil
}

func parsePTSOutput(out string) ([]int64, error) {
	var pts []int64
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, ","))
		if line == "" || line == "N/A" {
			continue
		}
		v, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad pts value %q", line)
		}
		pts = append(pts, v)
	}
	return pts, nil
}
