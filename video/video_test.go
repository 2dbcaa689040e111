package video

import (
	"math"
	"testing"
)

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"24/1", 24, false},
		{"24000/1001", 23.976023976023978, false},
		{"30", 30, false},
		{"0/0", 0, true},
		{"a/b", 0, true},
		{"1/2/3", 0, true},
	}
	for _, tt := range tests {
		got, err := parseFrameRate(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseFrameRate(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseFrameRate(%q) error: %v", tt.in, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("parseFrameRate(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseProbeOutput(t *testing.T) {
	raw := []byte(`{
  "streams": [{"width": 1920, "height": 1080, "r_frame_rate": "24000/1001", "nb_frames": "240"}],
  "format": {"duration": "10.010000"}
}`)
	info, err := parseProbeOutput(raw, "clip.mp4")
	if err != nil {
		t.Fatalf("parseProbeOutput: %v", err)
	}
	if info.Width != 1920 || info.Height != 1080 {
		t.Errorf("size = %dx%d; want 1920x1080", info.Width, info.Height)
	}
	if math.Abs(info.FPS-23.976023976023978) > 1e-9 {
		t.Errorf("fps = %v; want 23.976...", info.FPS)
	}
	if info.FrameCount != 240 {
		t.Errorf("frame count = %d; want 240", info.FrameCount)
	}
	if math.Abs(info.Duration-10.01) > 1e-9 {
		t.Errorf("duration = %v; want 10.01", info.Duration)
	}
}

func TestParseProbeOutputNoStream(t *testing.T) {
	if _, err := parseProbeOutput([]byte(`{"streams": [], "format": {}}`), "x.mp4"); err == nil {
		t.Fatal("expected error for missing video stream")
	}
}

func TestParsePTSOutput(t *testing.T) {
	out := "0\n512,\n1024\nN/A\n\n1536\n"
	pts, err := parsePTSOutput(out)
	if err != nil {
		t.Fatalf("parsePTSOutput: %v", err)
	}
	want := []int64{0, 512, 1024, 1536}
	if len(pts) != len(want) {
		t.Fatalf("got %d values; want %d", len(pts), len(want))
	}
	for i := range want {
		if pts[i] != want[i] {
			t.Errorf("pts[%d] = %d; want %d", i, pts[i], want[i])
		}
	}
}

func TestParseSceneTimestamps(t *testing.T) {
	output := `
[Parsed_metadata_1 @ 0x5616] frame:57  pts:58368  pts_time:2.432
lavfi.scene_score=0.427
[Parsed_metadata_1 @ 0x5616] frame:130 pts:133120 pts_time:5.546666
lavfi.scene_score=0.561
`
	got := parseSceneTimestamps(output)
	if len(got) != 3 {
		t.Fatalf("got %d timestamps; want 3 (implicit 0.0 + 2 cuts)", len(got))
	}
	if got[0] != 0.0 {
		t.Errorf("first timestamp = %v; want 0.0", got[0])
	}
	if math.Abs(got[1]-2.432) > 1e-9 || math.Abs(got[2]-5.546666) > 1e-9 {
		t.Errorf("cut timestamps = %v; want [2.432 5.546666]", got[1:])
	}
}

func TestParseSceneTimestampsNoCuts(t *testing.T) {
	got := parseSceneTimestamps("no metadata lines here")
	if len(got) != 1 || got[0] != 0.0 {
		t.Fatalf("got %v; want just the implicit 0.0 start", got)
	}
}

func TestFormatFPS(t *testing.T) {
	if got := formatFPS(24); got != "24" {
		t.Errorf("formatFPS(24) = %q; want 24", got)
	}
	if got := formatFPS(23.976); got != "23.976" {
		t.Errorf("formatFPS(23.976) = %q; want 23.976", got)
	}
}
