package outpaint

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
)

func solidRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestExpandWithAlphaDimensions(t *testing.T) {
	frame := solidRGBA(100, 80, color.RGBA{50, 60, 70, 255})
	out := ExpandWithAlpha(frame, 0.15)

	// 15% of 100 is 15 per side, 15% of 80 is 12 per side.
	b := out.Bounds()
	if b.Dx() != 130 || b.Dy() != 104 {
		t.Fatalf("expanded size = %dx%d; want 130x104", b.Dx(), b.Dy())
	}

	// Margin is transparent, original region opaque with its color.
	if _, _, _, a := out.At(0, 0).RGBA(); a != 0 {
		t.Error("corner of margin should be fully transparent")
	}
	c := out.NRGBAAt(65, 52)
	if c.A != 255 || c.R != 50 {
		t.Errorf("center pixel = %+v; want opaque original color", c)
	}
}

func TestResizeToMax(t *testing.T) {
	small := solidRGBA(640, 480, color.RGBA{A: 255})
	if got := ResizeToMax(small, 1024, 1024); got.Bounds().Dx() != 640 {
		t.Error("image within bounds should pass through unresized")
	}

	wide := solidRGBA(2048, 1024, color.RGBA{A: 255})
	got := ResizeToMax(wide, 1024, 1024)
	if got.Bounds().Dx() != 1024 || got.Bounds().Dy() != 512 {
		t.Errorf("resized to %dx%d; want 1024x512", got.Bounds().Dx(), got.Bounds().Dy())
	}
}

func TestExpandToMatchCentersAndPads(t *testing.T) {
	frame := solidRGBA(100, 100, color.RGBA{200, 0, 0, 255})
	out := ExpandToMatch(frame, 200, 100)

	if out.Bounds().Dx() != 200 || out.Bounds().Dy() != 100 {
		t.Fatalf("output size = %dx%d; want 200x100", out.Bounds().Dx(), out.Bounds().Dy())
	}
	// Left and right pads are black, center keeps the frame.
	if c := out.RGBAAt(10, 50); c.R != 0 {
		t.Errorf("left pad pixel = %+v; want black", c)
	}
	if c := out.RGBAAt(100, 50); c.R != 200 {
		t.Errorf("center pixel = %+v; want frame color", c)
	}
}

func TestMaskFromAlpha(t *testing.T) {
	frame := ExpandWithAlpha(solidRGBA(10, 10, color.RGBA{1, 2, 3, 255}), 0.5)
	mask := MaskFromAlpha(frame, AlphaThreshold)

	if mask.GrayAt(0, 0).Y != 255 {
		t.Error("transparent margin should be white in the mask")
	}
	if mask.GrayAt(10, 10).Y != 0 {
		t.Error("opaque center should be black in the mask")
	}
}

func TestDilateGrowsWhiteRegion(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 11, 11))
	mask.SetGray(5, 5, color.Gray{Y: 255})

	out := Dilate(mask, 7)
	// A 7x7 kernel reaches 3 pixels out.
	if out.GrayAt(2, 5).Y != 255 || out.GrayAt(5, 8).Y != 255 {
		t.Error("pixels within kernel radius should be white")
	}
	if out.GrayAt(1, 5).Y != 0 {
		t.Error("pixels beyond kernel radius should stay black")
	}
}

func TestFeatherSoftensEdge(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 10; x < 20; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	out := Feather(mask, 5)
	edge := out.GrayAt(10, 10).Y
	if edge == 0 || edge == 255 {
		t.Errorf("edge pixel = %d; want an intermediate value", edge)
	}
	if out.GrayAt(0, 10).Y != 0 || out.GrayAt(19, 10).Y != 255 {
		t.Error("pixels far from the edge should keep their values")
	}
}

func TestBinarize(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 3, 1))
	mask.SetGray(0, 0, color.Gray{Y: 40})
	mask.SetGray(1, 0, color.Gray{Y: 128})
	mask.SetGray(2, 0, color.Gray{Y: 250})

	out := Binarize(mask, 127)
	if out.GrayAt(0, 0).Y != 0 || out.GrayAt(1, 0).Y != 255 || out.GrayAt(2, 0).Y != 255 {
		t.Errorf("binarized = [%d %d %d]; want [0 255 255]",
			out.GrayAt(0, 0).Y, out.GrayAt(1, 0).Y, out.GrayAt(2, 0).Y)
	}
}

func TestFillImageRoundTrip(t *testing.T) {
	filled := solidRGBA(4, 4, color.RGBA{9, 8, 7, 255})
	filledB64, err := encodePNGBase64(filled)
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/fill" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req fillRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Steps != FillSteps || req.Guidance != FillGuidance || req.Seed != Seed {
			t.Errorf("request params = steps %d guidance %v seed %d", req.Steps, req.Guidance, req.Seed)
		}
		json.NewEncoder(w).Encode(fillResponse{Image: filledB64})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	frame := solidRGBA(4, 4, color.RGBA{A: 255})
	mask := image.NewGray(image.Rect(0, 0, 4, 4))

	got, err := client.FillImage(context.Background(), frame, mask, DefaultPrompt)
	if err != nil {
		t.Fatalf("FillImage: %v", err)
	}
	if r, _, _, _ := got.At(0, 0).RGBA(); uint8(r>>8) != 9 {
		t.Errorf("filled pixel R = %d; want 9", uint8(r>>8))
	}
}

func TestFillImageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of VRAM", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	frame := solidRGBA(2, 2, color.RGBA{A: 255})
	mask := image.NewGray(image.Rect(0, 0, 2, 2))

	_, err := client.FillImage(context.Background(), frame, mask, DefaultPrompt)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestInfillVideoMismatchedMasks(t *testing.T) {
	client := NewClient("http://localhost:0")
	frames := []image.Image{solidRGBA(2, 2, color.RGBA{A: 255})}
	_, err := client.InfillVideo(context.Background(), frames[0], frames, nil, DefaultPrompt, 24)
	if err == nil {
		t.Fatal("expected error for frame/mask count mismatch")
	}
}
