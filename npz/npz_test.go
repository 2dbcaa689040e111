package npz

import (
	"encoding/binary"
	"math"
	"path/filepath"
	"strings"
	"testing"
)

// TestArchiveRoundTrip verifies depth and conf entries survive a
// save/load cycle with shape and values intact.
func TestArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "depth.npz")

	depth := []float32{1.5, 2.25, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	conf := make([]float32, len(depth))
	for i := range conf {
		conf[i] = 1
	}

	err := Save(path, map[string]*Entry{
		"depth": FromFloat32(depth, 2, 2, 3),
		"conf":  FromFloat32(conf, 2, 2, 3),
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	a, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !a.Has("depth") || !a.Has("conf") {
		t.Fatalf("archive keys = %v; want depth and conf", a.Keys())
	}

	e, err := a.Get("depth")
	if err != nil {
		t.Fatalf("Get(depth): %v", err)
	}
	if len(e.Shape) != 3 || e.Shape[0] != 2 || e.Shape[1] != 2 || e.Shape[2] != 3 {
		t.Fatalf("depth shape = %v; want [2 2 3]", e.Shape)
	}
	vals, err := e.Float32()
	if err != nil {
		t.Fatalf("Float32: %v", err)
	}
	for i := range depth {
		if vals[i] != depth[i] {
			t.Fatalf("index %d = %v; want %v", i, vals[i], depth[i])
		}
	}
}

// TestMissingKeyListsAvailable verifies the error for a missing depth
// entry names the keys that are present.
func TestMissingKeyListsAvailable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "odd.npz")

	if err := Save(path, map[string]*Entry{"conf": FromFloat32([]float32{1}, 1)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	a, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err = a.Get("depth")
	if err == nil {
		t.Fatal("expected error for missing depth key")
	}
	if got := err.Error(); !strings.Contains(got, "conf") {
		t.Errorf("error %q should list available keys", got)
	}
}

// TestBareNPYInt64 verifies bare .npy round trip for PTS arrays.
func TestBareNPYInt64(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rgb_pts.npy")

	pts := []int64{0, 1001, 2002, 3003}
	if err := SaveNPY(path, FromInt64(pts, len(pts))); err != nil {
		t.Fatalf("SaveNPY: %v", err)
	}
	e, err := LoadNPY(path)
	if err != nil {
		t.Fatalf("LoadNPY: %v", err)
	}
	got, err := e.Int64()
	if err != nil {
		t.Fatalf("Int64: %v", err)
	}
	for i := range pts {
		if got[i] != pts[i] {
			t.Fatalf("index %d = %d; want %d", i, got[i], pts[i])
		}
	}
}

// TestFloat64Conversion verifies <f8 entries decode to float32.
func TestFloat64Conversion(t *testing.T) {
	e := &Entry{Shape: []int{2}, Descr: "<f8", raw: float64Bytes(1.5, -2.5)}
	vals, err := e.Float32()
	if err != nil {
		t.Fatalf("Float32: %v", err)
	}
	if vals[0] != 1.5 || vals[1] != -2.5 {
		t.Fatalf("vals = %v; want [1.5 -2.5]", vals)
	}
}

func float64Bytes(vals ...float64) []byte {
	out := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}
