package deps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// DefaultDiffusionURL is the local diffusion inference server endpoint.
// Override with the VDA_DIFFUSION_URL environment variable.
const DefaultDiffusionURL = "http://localhost:8500"

func init() {
	Register(&Dependency{
		ID:            "diffusion-server",
		Name:          "Diffusion Server",
		Description:   "Local diffusion inference server used for video outpainting and frame expansion",
		TargetDir:     "", // Runs as a separate service
		Check:         checkDiffusionServer,
		LatestVersion: "",
		ManualOnly:    true,
		Optional:      true,
		InstallURL:    "https://github.com/True3DLabs/diffusion-server",
	})
}

// DiffusionURL returns the configured diffusion server base URL.
func DiffusionURL() string {
	if url := os.Getenv("VDA_DIFFUSION_URL"); url != "" {
		return url
	}
	return DefaultDiffusionURL
}

// checkDiffusionServer verifies the diffusion inference server is
// reachable and reports its version.
func checkDiffusionServer(ctx context.Context) (bool, string, error) {
	apiURL := DiffusionURL() + "/health"

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return false, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		// Server not running or not reachable
		return false, "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return true, "unknown", fmt.Errorf("failed to read response: %w", err)
		}

		var healthResp struct {
			Version string `json:"version"`
		}
		if err := json.Unmarshal(body, &healthResp); err != nil {
			return true, "unknown", nil
		}
		if healthResp.Version == "" {
			return true, "unknown", nil
		}
		return true, healthResp.Version, nil
	}

	return false, "", nil
}
