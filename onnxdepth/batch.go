package onnxdepth

import (
	"fmt"

	"github.com/schollz/progressbar/v3"

	"github.com/True3DLabs/VDA-inpainting/depth"
	"github.com/True3DLabs/VDA-inpainting/npz"
	"github.com/True3DLabs/VDA-inpainting/video"
)

// EstimateDirectory runs depth inference over every extracted frame in
// framesDir, in sequence order, and returns the stacked array. All
// frames must share the first frame's dimensions.
func EstimateDirectory(modelPath, framesDir string, opts Options) (*depth.Array, error) {
	frames, err := video.ListFrames(framesDir)
	if err != nil {
		return nil, err
	}

	est, err := NewEstimator(modelPath, opts)
	if err != nil {
		return nil, err
	}
	defer est.Close()

	bar := progressbar.Default(int64(len(frames)), "depth inference")

	var out *depth.Array
	for i, frame := range frames {
		d, err := est.DepthFrame(frame)
		if err != nil {
			return nil, fmt.Errorf("frame %d (%s): %w", i+1, frame, err)
		}
		if out == nil {
			out = depth.New(len(frames), d.Height, d.Width)
		}
		if d.Height != out.Height || d.Width != out.Width {
			return nil, fmt.Errorf("frame %d is %dx%d, expected %dx%d",
				i+1, d.Width, d.Height, out.Width, out.Height)
		}
		copy(out.Data[i*d.Height*d.Width:], d.Data)
		bar.Add(1)
	}
	return out, nil
}

// EstimateToArchive runs EstimateDirectory and writes the result as a
// depth npz archive at npzPath.
func EstimateToArchive(modelPath, framesDir, npzPath string, opts Options) error {
	d, err := EstimateDirectory(modelPath, framesDir, opts)
	if err != nil {
		return err
	}
	return npz.Save(npzPath, map[string]*npz.Entry{
		"depth": npz.FromFloat32(d.Data, d.Frames, d.Height, d.Width),
	})
}
