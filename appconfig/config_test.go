package appconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.DiffusionBaseURL != "http://localhost:8500" {
		t.Errorf("Default DiffusionBaseURL = %q; want %q", cfg.DiffusionBaseURL, "http://localhost:8500")
	}

	if cfg.SceneThreshold != 0.3 {
		t.Errorf("Default SceneThreshold = %v; want 0.3", cfg.SceneThreshold)
	}

	if cfg.DepthModel.InputSize != 518 {
		t.Errorf("Default DepthModel.InputSize = %d; want 518", cfg.DepthModel.InputSize)
	}

	if cfg.PostProcessing.BlurSigma != 5.0 {
		t.Errorf("Default BlurSigma = %v; want 5.0", cfg.PostProcessing.BlurSigma)
	}

	if cfg.PostProcessing.LogBase != 4.0 {
		t.Errorf("Default LogBase = %v; want 4.0", cfg.PostProcessing.LogBase)
	}

	if cfg.S3.Bucket != "" {
		t.Errorf("Default S3 bucket should be empty; got %q", cfg.S3.Bucket)
	}
}

// TestDefaultWorkDir verifies the work directory generation
func TestDefaultWorkDir(t *testing.T) {
	path := defaultWorkDir()

	if filepath.Base(path) != "vda-output" {
		t.Errorf("Default work dir should end with 'vda-output'; got %q", path)
	}

	home, err := os.UserHomeDir()
	if err == nil {
		expectedPath := filepath.Join(home, "vda-output")
		if path != expectedPath {
			t.Errorf("Default work dir = %q; want %q", path, expectedPath)
		}
	}
}

// TestGetSet verifies Get/Set functions for in-memory config
func TestGetSet(t *testing.T) {
	// Save original and restore after test
	original := Get()
	defer Set(original)

	testConfig := Config{
		DBPath:           "/test/path/db.sqlite",
		WorkDir:          "/test/output",
		DiffusionBaseURL: "http://test:8500",
		SceneThreshold:   0.5,
	}

	Set(testConfig)

	retrieved := Get()

	if retrieved.DBPath != testConfig.DBPath {
		t.Errorf("Get().DBPath = %q; want %q", retrieved.DBPath, testConfig.DBPath)
	}
	if retrieved.WorkDir != testConfig.WorkDir {
		t.Errorf("Get().WorkDir = %q; want %q", retrieved.WorkDir, testConfig.WorkDir)
	}
	if retrieved.DiffusionBaseURL != testConfig.DiffusionBaseURL {
		t.Errorf("Get().DiffusionBaseURL = %q; want %q", retrieved.DiffusionBaseURL, testConfig.DiffusionBaseURL)
	}
	if retrieved.SceneThreshold != testConfig.SceneThreshold {
		t.Errorf("Get().SceneThreshold = %v; want %v", retrieved.SceneThreshold, testConfig.SceneThreshold)
	}
}

// TestIsJSONObject tests the JSON object detection helper
func TestIsJSONObject(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{`{}`, true},
		{`{"key": "value"}`, true},
		{`  {  }  `, true},
		{`[]`, false},
		{`"string"`, false},
		{`123`, false},
		{`null`, false},
		{``, false},
	}

	for _, tt := range tests {
		result := isJSONObject([]byte(tt.input))
		if result != tt.expected {
			t.Errorf("isJSONObject(%q) = %v; want %v", tt.input, result, tt.expected)
		}
	}
}

// TestDeepMergeJSON tests the JSON merge functionality
func TestDeepMergeJSON(t *testing.T) {
	tests := []struct {
		name     string
		dst      string
		src      string
		expected string
	}{
		{
			name:     "Simple merge",
			dst:      `{"a": "1"}`,
			src:      `{"b": "2"}`,
			expected: `{"a":"1","b":"2"}`,
		},
		{
			name:     "Override value",
			dst:      `{"a": "1"}`,
			src:      `{"a": "2"}`,
			expected: `{"a":"2"}`,
		},
		{
			name:     "Nested merge",
			dst:      `{"nested": {"a": "1"}}`,
			src:      `{"nested": {"b": "2"}}`,
			expected: `{"nested":{"a":"1","b":"2"}}`,
		},
		{
			name:     "Add new nested",
			dst:      `{"a": "1"}`,
			src:      `{"nested": {"b": "2"}}`,
			expected: `{"a":"1","nested":{"b":"2"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst map[string]json.RawMessage
			var src map[string]json.RawMessage

			json.Unmarshal([]byte(tt.dst), &dst)
			json.Unmarshal([]byte(tt.src), &src)

			deepMergeJSON(dst, src)

			result, _ := json.Marshal(dst)

			// Parse both for comparison (order-independent)
			var resultMap, expectedMap map[string]interface{}
			json.Unmarshal(result, &resultMap)
			json.Unmarshal([]byte(tt.expected), &expectedMap)

			if !mapsEqual(resultMap, expectedMap) {
				t.Errorf("deepMergeJSON result = %s; want %s", result, tt.expected)
			}
		})
	}
}

// mapsEqual compares two maps recursively
func mapsEqual(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		if !valuesEqual(v, bv) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok {
			return false
		}
		return mapsEqual(av, bv)
	default:
		return a == b
	}
}
