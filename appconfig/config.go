package appconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/True3DLabs/VDA-inpainting/export"
	"github.com/True3DLabs/VDA-inpainting/platform"
)

// Config holds pipeline configuration: the job database, working
// directories, model paths, and the external services the pipeline
// talks to.
type Config struct {
	DBPath string `json:"dbPath"`

	// Root directory for per-video pipeline outputs.
	WorkDir string `json:"workDir"`

	// Diffusion server settings for outpainting.
	DiffusionBaseURL string `json:"diffusionBaseUrl"`

	// Scene cut detection threshold passed to ffmpeg's select filter.
	SceneThreshold float64 `json:"sceneThreshold"`

	// Depth estimation model settings.
	DepthModel struct {
		ModelPath            string `json:"modelPath"`
		ORTSharedLibraryPath string `json:"ortSharedLibraryPath"`
		InputSize            int    `json:"inputSize"`
	} `json:"depthModel"`

	// Depth post-processing defaults. These seed the PostProcessing
	// record passed to the transform stage; they are not read again
	// once a run starts.
	PostProcessing struct {
		BlurSigma     float64 `json:"blurSigma"`
		LogBase       float64 `json:"logBase"`
		SharpenFactor float64 `json:"sharpenFactor"`
	} `json:"postProcessing"`

	// Optional S3 destination for export bundles. Upload is skipped
	// when the bucket is empty.
	S3 export.S3Config `json:"s3"`
}

var (
	cfgMu sync.RWMutex
	cfg   Config
)

func defaultWorkDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vda-output"
	}
	return filepath.Join(home, "vda-output")
}

// DefaultDBPath returns the default job database path in the
// platform-specific data directory.
func DefaultDBPath() string {
	return filepath.Join(platform.GetDataDir(), "pipeline.db")
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	return platform.GetDataDir()
}

func defaultConfig() Config {
	c := Config{
		DBPath:           DefaultDBPath(),
		WorkDir:          defaultWorkDir(),
		DiffusionBaseURL: "http://localhost:8500",
		SceneThreshold:   0.3,
	}
	c.DepthModel.InputSize = 518
	c.PostProcessing.BlurSigma = 5.0
	c.PostProcessing.LogBase = 4.0
	c.PostProcessing.SharpenFactor = 0.0
	return c
}

// Get returns a copy of the current in-memory config.
func Get() Config {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg
}

// Set replaces the in-memory config.
func Set(c Config) {
	cfgMu.Lock()
	cfg = c
	cfgMu.Unlock()
}

func isJSONObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func deepMergeJSON(dst, src map[string]json.RawMessage) {
	for k, v := range src {
		if existing, ok := dst[k]; ok && isJSONObject(existing) && isJSONObject(v) {
			var dstObj map[string]json.RawMessage
			var srcObj map[string]json.RawMessage
			if err := json.Unmarshal(existing, &dstObj); err != nil {
				dst[k] = v
				continue
			}
			if err := json.Unmarshal(v, &srcObj); err != nil {
				dst[k] = v
				continue
			}
			deepMergeJSON(dstObj, srcObj)
			merged, err := json.Marshal(dstObj)
			if err != nil {
				dst[k] = v
				continue
			}
			dst[k] = merged
			continue
		}
		dst[k] = v
	}
}

func getConfigPath() (string, error) {
	return filepath.Join(DefaultConfigDir(), "config.json"), nil
}

// Load reads the config from disk and updates the in-memory config. It
// returns the config and path. A missing config file is created with
// defaults; missing fields in an existing file are filled in.
func Load() (Config, string, error) {
	path, err := getConfigPath()
	if err != nil {
		return Config{}, "", err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return Config{}, "", fmt.Errorf("failed to create config directory %s: %v", configDir, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			def := defaultConfig()

			dbDir := filepath.Dir(def.DBPath)
			if err := os.MkdirAll(dbDir, 0755); err != nil {
				return Config{}, "", fmt.Errorf("failed to create database directory %s: %v", dbDir, err)
			}

			savedPath, saveErr := Save(def)
			if saveErr != nil {
				return Config{}, path, fmt.Errorf("failed to create default config file: %v", saveErr)
			}
			Set(def)
			return def, savedPath, nil
		}
		return Config{}, path, fmt.Errorf("failed to read config file at %s: %v", path, err)
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, path, fmt.Errorf("failed to parse config JSON: %v", err)
	}

	def := defaultConfig()
	needsSave := false

	if c.DBPath == "" {
		c.DBPath = def.DBPath
		needsSave = true
	}
	if c.WorkDir == "" {
		c.WorkDir = def.WorkDir
	}
	if c.DiffusionBaseURL == "" {
		c.DiffusionBaseURL = def.DiffusionBaseURL
	}
	if c.SceneThreshold == 0 {
		c.SceneThreshold = def.SceneThreshold
	}
	if c.DepthModel.InputSize == 0 {
		c.DepthModel.InputSize = def.DepthModel.InputSize
	}
	if c.PostProcessing.BlurSigma == 0 {
		c.PostProcessing.BlurSigma = def.PostProcessing.BlurSigma
	}
	if c.PostProcessing.LogBase == 0 {
		c.PostProcessing.LogBase = def.PostProcessing.LogBase
	}

	dbDir := filepath.Dir(c.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return Config{}, path, fmt.Errorf("failed to create database directory %s: %v", dbDir, err)
	}

	if needsSave {
		if _, saveErr := Save(c); saveErr != nil {
			fmt.Printf("Warning: failed to save updated config: %v\n", saveErr)
		}
	}

	Set(c)
	return c, path, nil
}

// Save writes the config to disk, deep-merging over any existing file
// so unknown keys survive. Returns the path.
func Save(c Config) (string, error) {
	path, err := getConfigPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return path, fmt.Errorf("failed to create config directory: %v", err)
	}
	base := map[string]json.RawMessage{}
	if existing, readErr := os.ReadFile(path); readErr == nil {
		var tmp map[string]json.RawMessage
		if err := json.Unmarshal(existing, &tmp); err == nil {
			base = tmp
		}
	}

	marshaled, err := json.Marshal(c)
	if err != nil {
		return path, fmt.Errorf("failed to marshal config: %v", err)
	}
	incoming := map[string]json.RawMessage{}
	if err := json.Unmarshal(marshaled, &incoming); err != nil {
		return path, fmt.Errorf("failed to map config JSON: %v", err)
	}

	deepMergeJSON(base, incoming)

	mergedData, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		return path, fmt.Errorf("failed to marshal merged config: %v", err)
	}
	if err := os.WriteFile(path, mergedData, 0644); err != nil {
		return path, fmt.Errorf("failed to write config file: %v", err)
	}
	Set(c)
	return path, nil
}
