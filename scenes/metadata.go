// Package scenes handles per-scene bookkeeping for one pipeline run:
// the metadata.json sidecar, scene boundary conversion, concatenation of
// per-scene depth outputs, and per-scene depth statistics.
package scenes

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/True3DLabs/VDA-inpainting/depth"
)

// Metadata mirrors the metadata.json sidecar written next to each run's
// outputs. Keys this struct does not model are preserved across a
// load/save cycle so concurrent tooling can keep its own fields.
type Metadata struct {
	SceneTimestamps []float64             `json:"scene_timestamps,omitempty"`
	FPS             float64               `json:"fps,omitempty"`
	SceneCount      int                   `json:"scene_count,omitempty"`
	PostProcessing  *depth.PostProcessing `json:"postprocessing,omitempty"`

	// Pre-transform per-scene statistics.
	SceneMinDepths   []float64 `json:"scene_min_depths,omitempty"`
	SceneMaxDepths   []float64 `json:"scene_max_depths,omitempty"`
	SceneScreenDists []float64 `json:"scene_screen_dists,omitempty"`

	// Post-transform per-scene statistics.
	ProcessedSceneMinDepths   []float64 `json:"processed_scene_min_depths,omitempty"`
	ProcessedSceneMaxDepths   []float64 `json:"processed_scene_max_depths,omitempty"`
	ProcessedSceneScreenDists []float64 `json:"processed_scene_screen_dists,omitempty"`

	extra map[string]json.RawMessage
}

// knownKeys are the fields Metadata models itself.
var knownKeys = map[string]bool{
	"scene_timestamps":             true,
	"fps":                          true,
	"scene_count":                  true,
	"postprocessing":               true,
	"scene_min_depths":             true,
	"scene_max_depths":             true,
	"scene_screen_dists":           true,
	"processed_scene_min_depths":   true,
	"processed_scene_max_depths":   true,
	"processed_scene_screen_dists": true,
}

// UnmarshalJSON decodes known fields and stashes the rest.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	type alias Metadata
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metadata(a)
	for k := range raw {
		if !knownKeys[k] {
			if m.extra == nil {
				m.extra = make(map[string]json.RawMessage)
			}
			m.extra[k] = raw[k]
		}
	}
	return nil
}

// MarshalJSON re-merges preserved unknown fields.
func (m Metadata) MarshalJSON() ([]byte, error) {
	type alias Metadata
	data, err := json.Marshal(alias(m))
	if err != nil {
		return nil, err
	}
	if len(m.extra) == 0 {
		return data, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range m.extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// LoadMetadata reads a metadata.json file. A missing file is fatal to
// the caller; there is no empty-default fallback.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata %s: %w", path, err)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse metadata %s: %w", path, err)
	}
	return &m, nil
}

// Save writes the metadata with stable two-space indentation.
func (m *Metadata) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ResolveSceneCount returns scene_count, falling back to the number of
// scene timestamps when the count field is absent.
func (m *Metadata) ResolveSceneCount() int {
	if m.SceneCount > 0 {
		return m.SceneCount
	}
	return len(m.SceneTimestamps)
}

// BoundaryFrames converts the recorded scene timestamps to frame start
// indices against the recorded fps.
func (m *Metadata) BoundaryFrames(totalFrames int) ([]int, error) {
	fps := m.FPS
	if fps <= 0 {
		return nil, fmt.Errorf("metadata has no usable fps (got %v)", fps)
	}
	return depth.BoundariesToFrames(m.SceneTimestamps, fps, totalFrames)
}

// SceneDirName formats the on-disk directory name for 1-based scene i.
func SceneDirName(i int) string {
	return fmt.Sprintf("scene_%03d", i)
}
