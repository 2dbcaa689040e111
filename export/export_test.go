package export

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStripPrefix(t *testing.T) {
	cases := []struct{ in, want string }{
		{"ffmpeg-7.0/bin/ffmpeg", "bin/ffmpeg"},
		{"root\\sub\\file.txt", "sub\\file.txt"},
		{"toplevel", ""},
	}
	for _, c := range cases {
		if got := stripPrefix(c.in); got != c.want {
			t.Errorf("stripPrefix(%q) = %q; want %q", c.in, got, c.want)
		}
	}
}

func TestSecurePathRejectsTraversal(t *testing.T) {
	if _, err := securePath("/tmp/dest", "../escape.txt"); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
	if _, err := securePath("/tmp/dest", "ok/inside.txt"); err != nil {
		t.Fatalf("legitimate path rejected: %v", err)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
	}
	for _, c := range cases {
		if got := FormatBytes(c.in); got != c.want {
			t.Errorf("FormatBytes(%d) = %q; want %q", c.in, got, c.want)
		}
	}
}

func TestBundleRequiresDeliverables(t *testing.T) {
	dir := t.TempDir()
	err := Bundle(dir, filepath.Join(dir, "out.zip"))
	if err == nil {
		t.Fatal("expected error when deliverables are missing")
	}
	if !strings.Contains(err.Error(), BundleColorVideo) {
		t.Errorf("error should name the missing file, got: %v", err)
	}
}

func TestBundleContents(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{BundleColorVideo, BundleDepthVideo, BundleMetadata, "depth.npz"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}

	bundlePath := filepath.Join(dir, "bundles", "run.zip")
	if err := Bundle(dir, bundlePath); err != nil {
		t.Fatalf("Bundle: %v", err)
	}

	r, err := zip.OpenReader(bundlePath)
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	defer r.Close()

	got := map[string]bool{}
	for _, f := range r.File {
		got[f.Name] = true
	}
	for _, name := range []string{BundleColorVideo, BundleDepthVideo, BundleMetadata, "depth.npz"} {
		if !got[name] {
			t.Errorf("bundle missing %s", name)
		}
	}
	if got["normals.mp4"] {
		t.Error("absent optional file should not appear in bundle")
	}
}

func TestExtractZipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "a.zip")

	f, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("pkg/inner/file.txt")
	w.Write([]byte("hello"))
	zw.Close()
	f.Close()

	dest := filepath.Join(dir, "out")
	if err := ExtractZip(archive, dest, true, nil); err != nil {
		t.Fatalf("ExtractZip: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dest, "inner", "file.txt"))
	if err != nil {
		t.Fatalf("stripped member not extracted: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q; want hello", data)
	}
}

func TestExtractArchiveUnknownFormat(t *testing.T) {
	if err := ExtractArchive("model.rar", t.TempDir(), false, nil); err == nil {
		t.Fatal("expected unsupported-format error")
	}
}
