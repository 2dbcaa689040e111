package scenes

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/True3DLabs/VDA-inpainting/depth"
)

// Defaults substituted for a scene with no retrievable depth data when
// updating metadata statistics (meters).
const (
	defaultSceneMin    = 1.0
	defaultSceneMax    = 10.0
	defaultSceneScreen = 3.0
)

// sceneStats computes min/max over a scene's whole array and the 35th
// percentile of its middle frame.
func sceneStats(d *depth.Array) depth.SceneStats {
	mid := d.Frames / 2
	return depth.SceneStats{
		Min:        float64(d.Min()),
		Max:        float64(d.Max()),
		ScreenDist: depth.Percentile(d.Frame(mid), 35),
	}
}

// UpdateDepthStats fills scene_min_depths / scene_max_depths /
// scene_screen_dists in the run's metadata.json from each scene's depth
// archive. Scenes with no data get defaults; the update never fails on
// a single bad scene.
func UpdateDepthStats(outputDir string) error {
	metaPath := filepath.Join(outputDir, "metadata.json")
	meta, err := LoadMetadata(metaPath)
	if err != nil {
		return err
	}
	count := meta.ResolveSceneCount()
	if count == 0 {
		return fmt.Errorf("metadata in %s names no scenes", outputDir)
	}

	mins := make([]float64, 0, count)
	maxs := make([]float64, 0, count)
	screens := make([]float64, 0, count)

	for i := 1; i <= count; i++ {
		sceneDir := filepath.Join(outputDir, "scenes", SceneDirName(i))
		npzPath, ok := sceneNPZPath(sceneDir)
		if !ok {
			log.Printf("scene %d: no depth data found, using defaults", i)
			mins = append(mins, defaultSceneMin)
			maxs = append(maxs, defaultSceneMax)
			screens = append(screens, defaultSceneScreen)
			continue
		}
		d, _, err := LoadSceneDepth(npzPath)
		if err != nil {
			log.Printf("warning: scene %d: error reading %s: %v, using defaults", i, npzPath, err)
			mins = append(mins, defaultSceneMin)
			maxs = append(maxs, defaultSceneMax)
			screens = append(screens, defaultSceneScreen)
			continue
		}
		if d.Frames == 0 || len(d.Data) == 0 {
			log.Printf("warning: scene %d: %s holds no frames, using defaults", i, npzPath)
			mins = append(mins, defaultSceneMin)
			maxs = append(maxs, defaultSceneMax)
			screens = append(screens, defaultSceneScreen)
			continue
		}
		s := sceneStats(d)
		mins = append(mins, s.Min)
		maxs = append(maxs, s.Max)
		screens = append(screens, s.ScreenDist)
		log.Printf("scene %d: min=%.2fm, max=%.2fm, screen=%.2fm", i, s.Min, s.Max, s.ScreenDist)
	}

	meta.SceneMinDepths = mins
	meta.SceneMaxDepths = maxs
	meta.SceneScreenDists = screens
	return meta.Save(metaPath)
}

// RecordProcessedStats writes post-transform per-scene statistics plus
// the transform parameters that produced them into the metadata.
func RecordProcessedStats(meta *Metadata, stats []depth.SceneStats, cfg depth.PostProcessing) {
	mins := make([]float64, len(stats))
	maxs := make([]float64, len(stats))
	screens := make([]float64, len(stats))
	for i, s := range stats {
		mins[i] = s.Min
		maxs[i] = s.Max
		screens[i] = s.ScreenDist
	}
	meta.ProcessedSceneMinDepths = mins
	meta.ProcessedSceneMaxDepths = maxs
	meta.ProcessedSceneScreenDists = screens
	meta.PostProcessing = &cfg
}
