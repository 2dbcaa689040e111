package scenes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/True3DLabs/VDA-inpainting/depth"
	"github.com/True3DLabs/VDA-inpainting/npz"
)

func writeSceneNPZ(t *testing.T, outputDir string, scene int, d *depth.Array) {
	t.Helper()
	dir := filepath.Join(outputDir, "scenes", SceneDirName(scene))
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	err := npz.Save(filepath.Join(dir, "depth_results.npz"), map[string]*npz.Entry{
		"depth": npz.FromFloat32(d.Data, d.Frames, d.Height, d.Width),
	})
	if err != nil {
		t.Fatalf("write scene %d npz: %v", scene, err)
	}
}

// TestAggregateWithMissingScene covers the 3-scene [5, missing, 7]
// scenario: the middle scene substitutes a placeholder sized by its
// depth.mp4 frame count and aggregation never throws.
func TestAggregateWithMissingScene(t *testing.T) {
	dir := t.TempDir()

	writeSceneNPZ(t, dir, 1, depth.Constant(5, 4, 6, 2.0))
	writeSceneNPZ(t, dir, 3, depth.Constant(7, 4, 6, 8.0))

	// Scene 2 only has a depth.mp4; the counter stands in for ffprobe.
	scene2 := filepath.Join(dir, "scenes", SceneDirName(2))
	if err := os.MkdirAll(scene2, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(scene2, "depth.mp4"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	counter := func(path string) (int, error) { return 3, nil }

	parts := CollectParts(dir, 3, counter)
	if len(parts) != 3 {
		t.Fatalf("got %d parts; want 3", len(parts))
	}
	if parts[0].Status != PartPresent || parts[2].Status != PartPresent {
		t.Errorf("scenes 1/3 status = %v/%v; want present", parts[0].Status, parts[2].Status)
	}
	if parts[1].Status != PartPlaceholder {
		t.Fatalf("scene 2 status = %v; want placeholder", parts[1].Status)
	}
	if v := parts[1].Depth.Data[0]; v != PlaceholderDepth {
		t.Errorf("placeholder value = %v; want %v", v, PlaceholderDepth)
	}
	// Placeholder dimensions follow the most recent valid scene.
	if parts[1].Depth.Height != 4 || parts[1].Depth.Width != 6 {
		t.Errorf("placeholder size = %dx%d; want 4x6", parts[1].Depth.Width, parts[1].Depth.Height)
	}

	combined, conf, err := Aggregate(parts)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if combined.Frames != 5+3+7 {
		t.Errorf("total frames = %d; want 15", combined.Frames)
	}
	if conf == nil {
		t.Error("expected a conf array (placeholders carry conf=1)")
	}
}

// TestAggregateAllMissing verifies total absence of depth data is fatal.
func TestAggregateAllMissing(t *testing.T) {
	parts := []Part{{Index: 1, Status: PartSkipped}, {Index: 2, Status: PartSkipped}}
	if _, _, err := Aggregate(parts); err == nil {
		t.Fatal("expected error when no scene contributed data")
	}
}

// TestCollectPartsSkipsEmptyScene verifies a scene with neither npz nor
// depth.mp4 is skipped without error.
func TestCollectPartsSkipsEmptyScene(t *testing.T) {
	dir := t.TempDir()
	writeSceneNPZ(t, dir, 1, depth.Constant(2, 2, 2, 1.0))
	if err := os.MkdirAll(filepath.Join(dir, "scenes", SceneDirName(2)), 0755); err != nil {
		t.Fatal(err)
	}

	parts := CollectParts(dir, 2, nil)
	if parts[1].Status != PartSkipped {
		t.Fatalf("scene 2 status = %v; want skipped", parts[1].Status)
	}
}

// TestMetadataRoundTrip verifies known fields and unknown keys survive
// load/save.
func TestMetadataRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")

	src := `{
  "scene_timestamps": [0.0, 2.0, 5.5],
  "fps": 23.976,
  "scene_count": 3,
  "source_video": "clip.mp4",
  "postprocessing": {"blur_sigma": 5.0, "log_base": 4.0, "sharpen": 0.0}
}`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadMetadata(path)
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if m.FPS != 23.976 || m.ResolveSceneCount() != 3 {
		t.Errorf("fps=%v count=%d; want 23.976 and 3", m.FPS, m.ResolveSceneCount())
	}
	if m.PostProcessing == nil || m.PostProcessing.BlurSigma != 5.0 {
		t.Errorf("postprocessing = %+v; want blur_sigma 5.0", m.PostProcessing)
	}

	m.SceneMinDepths = []float64{1, 2, 3}
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := LoadMetadata(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(back.SceneMinDepths) != 3 {
		t.Errorf("scene_min_depths lost on round trip")
	}
	// Unknown key preserved.
	if _, ok := back.extra["source_video"]; !ok {
		t.Error("unknown key source_video dropped on round trip")
	}
}

// TestResolveSceneCountFallback verifies the timestamp-length fallback.
func TestResolveSceneCountFallback(t *testing.T) {
	m := &Metadata{SceneTimestamps: []float64{0, 1, 2, 3}}
	if got := m.ResolveSceneCount(); got != 4 {
		t.Fatalf("ResolveSceneCount = %d; want 4", got)
	}
}

// TestUpdateDepthStats verifies stats land in metadata.json with
// defaults for the missing scene.
func TestUpdateDepthStats(t *testing.T) {
	dir := t.TempDir()

	d := depth.New(4, 2, 2)
	for i := range d.Data {
		d.Data[i] = float32(i)
	}
	writeSceneNPZ(t, dir, 1, d)
	// Scene 2 directory exists but holds nothing.
	if err := os.MkdirAll(filepath.Join(dir, "scenes", SceneDirName(2)), 0755); err != nil {
		t.Fatal(err)
	}

	m := &Metadata{SceneCount: 2, FPS: 24}
	if err := m.Save(filepath.Join(dir, "metadata.json")); err != nil {
		t.Fatal(err)
	}

	if err := UpdateDepthStats(dir); err != nil {
		t.Fatalf("UpdateDepthStats: %v", err)
	}
	back, err := LoadMetadata(filepath.Join(dir, "metadata.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(back.SceneMinDepths) != 2 {
		t.Fatalf("scene_min_depths length = %d; want 2", len(back.SceneMinDepths))
	}
	if back.SceneMinDepths[0] != 0 || back.SceneMaxDepths[0] != 15 {
		t.Errorf("scene 1 min/max = %v/%v; want 0/15", back.SceneMinDepths[0], back.SceneMaxDepths[0])
	}
	if back.SceneMinDepths[1] != defaultSceneMin || back.SceneMaxDepths[1] != defaultSceneMax {
		t.Errorf("scene 2 should use defaults, got %v/%v", back.SceneMinDepths[1], back.SceneMaxDepths[1])
	}
}

// TestUpdateDepthStatsZeroFrameScene covers an archive that parses but
// holds no frames: the scene degrades to defaults instead of crashing.
func TestUpdateDepthStatsZeroFrameScene(t *testing.T) {
	dir := t.TempDir()

	writeSceneNPZ(t, dir, 1, depth.New(0, 2, 2))

	m := &Metadata{SceneCount: 1, FPS: 24}
	if err := m.Save(filepath.Join(dir, "metadata.json")); err != nil {
		t.Fatal(err)
	}

	if err := UpdateDepthStats(dir); err != nil {
		t.Fatalf("UpdateDepthStats: %v", err)
	}
	back, err := LoadMetadata(filepath.Join(dir, "metadata.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(back.SceneMinDepths) != 1 {
		t.Fatalf("scene_min_depths length = %d; want 1", len(back.SceneMinDepths))
	}
	if back.SceneMinDepths[0] != defaultSceneMin ||
		back.SceneMaxDepths[0] != defaultSceneMax ||
		back.SceneScreenDists[0] != defaultSceneScreen {
		t.Errorf("zero-frame scene stats = %v/%v/%v; want defaults %v/%v/%v",
			back.SceneMinDepths[0], back.SceneMaxDepths[0], back.SceneScreenDists[0],
			defaultSceneMin, defaultSceneMax, defaultSceneScreen)
	}
}
