package outpaint

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/True3DLabs/VDA-inpainting/video"
)

// Result reports where ProcessVideo wrote its artifacts.
type Result struct {
	ExpandedInitFrame string
	FilledFirstFrame  string
	MasksDir          string
	InfilledFramesDir string
	OutputVideo       string
}

// ProcessVideo runs the full outpainting flow over an already extracted
// frame sequence in rootDir/frames:
//
//  1. expand the first frame with a transparent margin and cap its size
//  2. fill the margin via the diffusion server
//  3. duplicate the derived mask across all frames
//  4. infill the remaining frames as a video, anchored on the filled
//     first frame, and encode the result
func ProcessVideo(ctx context.Context, client *Client, rootDir string, fps float64) (*Result, error) {
	framesDir := filepath.Join(rootDir, "frames")
	masksDir := filepath.Join(rootDir, "masks")
	infilledDir := filepath.Join(rootDir, "infilled")
	infilledFramesDir := filepath.Join(rootDir, "infilled_frames")
	outputDir := filepath.Join(rootDir, "output")
	for _, dir := range []string{masksDir, infilledDir, infilledFramesDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if fps <= 0 {
		fps = DefaultFPS
	}

	framePaths, err := video.ListFrames(framesDir)
	if err != nil {
		return nil, err
	}
	if len(framePaths) == 0 {
		return nil, fmt.Errorf("no frames found in %s", framesDir)
	}

	firstFrame, err := loadImage(framePaths[0])
	if err != nil {
		return nil, err
	}

	expanded := ExpandWithAlpha(firstFrame, ExpandPercent)
	resized := ResizeToMax(expanded, MaxWidth, MaxHeight)
	expandedPath := filepath.Join(rootDir, "expanded_init_frame.png")
	if err := savePNG(resized, expandedPath); err != nil {
		return nil, err
	}

	mask := BuildMask(resized)
	log.Printf("outpaint: filling expanded first frame %dx%d",
		resized.Bounds().Dx(), resized.Bounds().Dy())
	filled, err := client.FillImage(ctx, resized, mask, DefaultPrompt)
	if err != nil {
		return nil, fmt.Errorf("first frame fill failed: %w", err)
	}

	filledPath := filepath.Join(infilledDir, filepath.Base(framePaths[0]))
	if err := savePNG(filled, filledPath); err != nil {
		return nil, err
	}

	// The same mask applies to every frame; binarize the feathered copy
	// for the video request.
	hardMask := Binarize(mask, 127)
	for _, p := range framePaths {
		if err := savePNG(hardMask, filepath.Join(masksDir, filepath.Base(p))); err != nil {
			return nil, err
		}
	}

	targetW := filled.Bounds().Dx()
	targetH := filled.Bounds().Dy()
	frames := make([]image.Image, len(framePaths))
	masks := make([]*image.Gray, len(framePaths))
	for i, p := range framePaths {
		src, err := loadImage(p)
		if err != nil {
			return nil, err
		}
		frames[i] = ExpandToMatch(src, targetW, targetH)
		masks[i] = hardMask
	}
	// The filled first frame is ground truth, so its mask is empty.
	masks[0] = image.NewGray(image.Rect(0, 0, targetW, targetH))

	log.Printf("outpaint: infilling %d frames at %g fps", len(frames), fps)
	infilled, err := client.InfillVideo(ctx, filled, frames, masks, DefaultPrompt, fps)
	if err != nil {
		return nil, fmt.Errorf("video infill failed: %w", err)
	}

	for i, frame := range infilled {
		if err := savePNG(frame, video.FramePath(infilledFramesDir, i+1)); err != nil {
			return nil, err
		}
	}

	outputVideo := filepath.Join(outputDir, "infilled_video.mp4")
	if err := video.EncodeFrames(infilledFramesDir, outputVideo, fps); err != nil {
		return nil, err
	}

	return &Result{
		ExpandedInitFrame: expandedPath,
		FilledFirstFrame:  filledPath,
		MasksDir:          masksDir,
		InfilledFramesDir: infilledFramesDir,
		OutputVideo:       outputVideo,
	}, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func savePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
