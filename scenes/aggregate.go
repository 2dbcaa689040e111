package scenes

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/True3DLabs/VDA-inpainting/depth"
	"github.com/True3DLabs/VDA-inpainting/npz"
)

// PlaceholderDepth is the constant value substituted for scenes whose
// depth output could not be retrieved.
const PlaceholderDepth = 100.0

// Fallback frame size when a placeholder must be built before any valid
// scene has established dimensions.
const (
	fallbackHeight = 308
	fallbackWidth  = 728
)

// PartStatus tags how a scene's depth data was obtained, so degraded
// paths stay visible to callers instead of silently fabricating values.
type PartStatus int

const (
	PartPresent PartStatus = iota
	PartPlaceholder
	PartSkipped
)

func (s PartStatus) String() string {
	switch s {
	case PartPresent:
		return "present"
	case PartPlaceholder:
		return "placeholder"
	case PartSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Part is one scene's contribution to the concatenated depth array.
type Part struct {
	Index  int // 1-based scene number
	Status PartStatus
	Reason string
	Depth  *depth.Array
	Conf   *depth.Array
}

// FrameCounter reports the frame count of a video file; used to size
// placeholder arrays from a scene's depth.mp4 when its npz is missing.
type FrameCounter func(videoPath string) (int, error)

// sceneNPZPath finds a scene's depth archive, checking both layouts the
// estimation stage may produce.
func sceneNPZPath(sceneDir string) (string, bool) {
	candidates := []string{
		filepath.Join(sceneDir, "exports", "mini_npz", "results.npz"),
		filepath.Join(sceneDir, "depth_results.npz"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// LoadSceneDepth reads one scene's depth archive into an Array, plus
// conf when present.
func LoadSceneDepth(npzPath string) (*depth.Array, *depth.Array, error) {
	a, err := npz.Load(npzPath)
	if err != nil {
		return nil, nil, err
	}
	e, err := a.Get("depth")
	if err != nil {
		return nil, nil, err
	}
	vals, err := e.Float32()
	if err != nil {
		return nil, nil, err
	}
	d, err := depth.FromShape(e.Shape, vals)
	if err != nil {
		return nil, nil, err
	}
	var conf *depth.Array
	if a.Has("conf") {
		ce, _ := a.Get("conf")
		cvals, err := ce.Float32()
		if err == nil {
			if c, err := depth.FromShape(ce.Shape, cvals); err == nil {
				conf = c
			}
		}
	}
	return d, conf, nil
}

// CollectParts walks scenes/scene_001..scene_NNN under outputDir and
// loads each scene's depth output. A scene with no retrievable npz but a
// depth.mp4 gets a constant-value placeholder sized from the most recent
// valid scene; a scene with nothing at all is skipped. Neither case is
// an error.
func CollectParts(outputDir string, sceneCount int, countFrames FrameCounter) []Part {
	scenesDir := filepath.Join(outputDir, "scenes")
	parts := make([]Part, 0, sceneCount)

	lastH, lastW := fallbackHeight, fallbackWidth
	for i := 1; i <= sceneCount; i++ {
		sceneDir := filepath.Join(scenesDir, SceneDirName(i))
		npzPath, ok := sceneNPZPath(sceneDir)
		if !ok {
			parts = append(parts, placeholderPart(i, sceneDir, lastH, lastW, countFrames))
			continue
		}
		d, conf, err := LoadSceneDepth(npzPath)
		if err != nil {
			log.Printf("warning: scene %d: error reading %s: %v", i, npzPath, err)
			parts = append(parts, Part{Index: i, Status: PartSkipped, Reason: err.Error()})
			continue
		}
		lastH, lastW = d.Height, d.Width
		if conf == nil {
			conf = depth.Constant(d.Frames, d.Height, d.Width, 1)
		}
		parts = append(parts, Part{Index: i, Status: PartPresent, Depth: d, Conf: conf})
	}
	return parts
}

func placeholderPart(i int, sceneDir string, h, w int, countFrames FrameCounter) Part {
	depthVideo := filepath.Join(sceneDir, "depth.mp4")
	if _, err := os.Stat(depthVideo); err != nil {
		log.Printf("warning: scene %d: no depth data, skipping", i)
		return Part{Index: i, Status: PartSkipped, Reason: "no depth npz or depth.mp4"}
	}
	if countFrames == nil {
		return Part{Index: i, Status: PartSkipped, Reason: "no frame counter for flat-depth scene"}
	}
	frames, err := countFrames(depthVideo)
	if err != nil || frames <= 0 {
		log.Printf("warning: scene %d: could not count frames of %s: %v", i, depthVideo, err)
		return Part{Index: i, Status: PartSkipped, Reason: "frame count unavailable"}
	}
	log.Printf("warning: scene %d: no depth npz, substituting %d flat frames", i, frames)
	return Part{
		Index:  i,
		Status: PartPlaceholder,
		Reason: "flat depth from depth.mp4",
		Depth:  depth.Constant(frames, h, w, PlaceholderDepth),
		Conf:   depth.Constant(frames, h, w, 1),
	}
}

// Aggregate concatenates the non-skipped parts along the frame axis.
// Conf is only returned when every contributing part carried one. It is
// an error only when no part contributed any frames.
func Aggregate(parts []Part) (*depth.Array, *depth.Array, error) {
	var depths, confs []*depth.Array
	for _, p := range parts {
		if p.Status == PartSkipped {
			continue
		}
		depths = append(depths, p.Depth)
		if p.Conf != nil {
			confs = append(confs, p.Conf)
		}
	}
	if len(depths) == 0 {
		return nil, nil, fmt.Errorf("no depth data found in any scene")
	}
	combined, err := depth.Concat(depths...)
	if err != nil {
		return nil, nil, err
	}
	var conf *depth.Array
	if len(confs) == len(depths) {
		conf, err = depth.Concat(confs...)
		if err != nil {
			return nil, nil, err
		}
	}
	return combined, conf, nil
}

// WriteArchive saves the concatenated arrays as the run's top-level
// depth.npz.
func WriteArchive(path string, d, conf *depth.Array) error {
	entries := map[string]*npz.Entry{
		"depth": npz.FromFloat32(d.Data, d.Frames, d.Height, d.Width),
	}
	if conf != nil {
		entries["conf"] = npz.FromFloat32(conf.Data, conf.Frames, conf.Height, conf.Width)
	}
	return npz.Save(path, entries)
}
