package outpaint

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the diffusion server's fill and video-infill
// endpoints. Images travel as base64-encoded PNG inside JSON.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the given server base URL. Diffusion
// inference is slow, so the timeout is generous.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Minute},
	}
}

type fillRequest struct {
	Image        string  `json:"image"`
	Mask         string  `json:"mask"`
	Prompt       string  `json:"prompt"`
	Steps        int     `json:"steps"`
	Guidance     float64 `json:"guidance"`
	Seed         int     `json:"seed"`
	MaxSeqLength int     `json:"max_seq_length"`
}

type fillResponse struct {
	Image string `json:"image"`
}

// FillImage asks the server to inpaint the masked region of a single
// frame. Returns the filled frame.
func (c *Client) FillImage(ctx context.Context, frame image.Image, mask *image.Gray, prompt string) (image.Image, error) {
	frameB64, err := encodePNGBase64(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	maskB64, err := encodePNGBase64(mask)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mask: %w", err)
	}

	req := fillRequest{
		Image:        frameB64,
		Mask:         maskB64,
		Prompt:       prompt,
		Steps:        FillSteps,
		Guidance:     FillGuidance,
		Seed:         Seed,
		MaxSeqLength: MaxSeqLength,
	}
	var resp fillResponse
	if err := c.post(ctx, "/api/fill", req, &resp); err != nil {
		return nil, err
	}
	return decodePNGBase64(resp.Image)
}

type videoInfillRequest struct {
	FirstFrame string   `json:"first_frame"`
	Frames     []string `json:"frames"`
	Masks      []string `json:"masks"`
	Prompt     string   `json:"prompt"`
	Steps      int      `json:"steps"`
	Guidance   float64  `json:"guidance"`
	Seed       int      `json:"seed"`
	FPS        float64  `json:"fps"`
}

type videoInfillResponse struct {
	Frames []string `json:"frames"`
}

// InfillVideo asks the server to propagate the filled first frame
// through the rest of the sequence. frames and masks must have equal
// length; the first mask should be all black so the filled frame is
// taken as ground truth.
func (c *Client) InfillVideo(ctx context.Context, firstFrame image.Image, frames []image.Image, masks []*image.Gray, prompt string, fps float64) ([]image.Image, error) {
	if len(frames) != len(masks) {
		return nil, fmt.Errorf("got %d frames but %d masks", len(frames), len(masks))
	}

	firstB64, err := encodePNGBase64(firstFrame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode first frame: %w", err)
	}
	req := videoInfillRequest{
		FirstFrame: firstB64,
		Frames:     make([]string, len(frames)),
		Masks:      make([]string, len(masks)),
		Prompt:     prompt,
		Steps:      VideoSteps,
		Guidance:   VideoGuidance,
		Seed:       Seed,
		FPS:        fps,
	}
	for i, f := range frames {
		if req.Frames[i], err = encodePNGBase64(f); err != nil {
			return nil, fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
	}
	for i, m := range masks {
		if req.Masks[i], err = encodePNGBase64(m); err != nil {
			return nil, fmt.Errorf("failed to encode mask %d: %w", i, err)
		}
	}

	var resp videoInfillResponse
	if err := c.post(ctx, "/api/video-infill", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Frames) == 0 {
		return nil, fmt.Errorf("server returned no frames")
	}
	out := make([]image.Image, len(resp.Frames))
	for i, b64 := range resp.Frames {
		if out[i], err = decodePNGBase64(b64); err != nil {
			return nil, fmt.Errorf("failed to decode output frame %d: %w", i, err)
		}
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody, respBody interface{}) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("diffusion server request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("diffusion server error: status=%d, body=%s", resp.StatusCode, string(body))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body failed: %w", err)
	}
	if err := json.Unmarshal(data, respBody); err != nil {
		return fmt.Errorf("could not unmarshal diffusion response: %w", err)
	}
	return nil
}

func encodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decodePNGBase64(b64 string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid png image: %w", err)
	}
	return img, nil
}
