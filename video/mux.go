package video

import (
	"fmt"
	"io"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/True3DLabs/VDA-inpainting/depth"
)

// EncodeGrayOptions controls depth video encoding.
type EncodeGrayOptions struct {
	FPS float64
	// Duration trims the output to an exact length in seconds when > 0,
	// used to keep the processed depth video aligned with the reference
	// color video.
	Duration float64
	// CRF is the libx264 quality factor; 0 uses the default of 18.
	CRF int
}

// EncodeGray streams normalized 8-bit depth frames into ffmpeg as raw
// single-channel video and encodes them with libx264, keeping the gray
// pixel format so depth values survive without chroma conversion.
func EncodeGray(n *depth.Normalized, outPath string, opts EncodeGrayOptions) error {
	if n.Frames == 0 {
		return fmt.Errorf("no frames to encode")
	}
	if opts.FPS <= 0 {
		return fmt.Errorf("encode requires a positive fps (got %v)", opts.FPS)
	}
	crf := opts.CRF
	if crf == 0 {
		crf = 18
	}

	pr, pw := io.Pipe()
	go func() {
		_, err := pw.Write(n.Data)
		pw.CloseWithError(err)
	}()

	outArgs := ffmpeg.KwArgs{
		"c:v":     "libx264",
		"crf":     fmt.Sprintf("%d", crf),
		"pix_fmt": "gray",
		"r":       formatFPS(opts.FPS),
	}
	if opts.Duration > 0 {
		outArgs["t"] = fmt.Sprintf("%f", opts.Duration)
	}

	err := ffmpeg.
		Input("pipe:", ffmpeg.KwArgs{
			"format":    "rawvideo",
			"pix_fmt":   "gray",
			"s":         fmt.Sprintf("%dx%d", n.Width, n.Height),
			"framerate": formatFPS(opts.FPS),
		}).
		Output(outPath, outArgs).
		OverWriteOutput().
		WithInput(pr).
		Run()
	if err != nil {
		return fmt.Errorf("depth video encode failed: %w", err)
	}
	return nil
}

// EncodeFrames muxes a numbered PNG sequence (FramePattern) into an
// H.264 video at the given fps.
func EncodeFrames(framesDir, outPath string, fps float64) error {
	if fps <= 0 {
		return fmt.Errorf("encode requires a positive fps (got %v)", fps)
	}
	err := ffmpeg.
		Input(filepath.Join(framesDir, FramePattern), ffmpeg.KwArgs{
			"framerate": formatFPS(fps),
		}).
		Output(outPath, ffmpeg.KwArgs{
			"c:v":     "libx264",
			"crf":     "18",
			"pix_fmt": "yuv420p",
			"r":       formatFPS(fps),
		}).
		OverWriteOutput().
		Run()
	if err != nil {
		return fmt.Errorf("frame sequence encode failed: %w", err)
	}
	return nil
}

// formatFPS renders an fps value without trailing zeros so ffmpeg sees
// "24" rather than "24.000000".
func formatFPS(fps float64) string {
	if fps == float64(int64(fps)) {
		return fmt.Sprintf("%d", int64(fps))
	}
	return fmt.Sprintf("%g", fps)
}
