// Package npz reads and writes the compressed depth archives produced by
// the depth estimation stage: a zip container whose members are .npy
// arrays (format version 1.0, little-endian, C order).
package npz

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

const npyMagic = "\x93NUMPY"

// Entry is one named array inside an archive.
type Entry struct {
	Shape []int
	Descr string // numpy dtype string, e.g. "<f4"
	raw   []byte
}

// Len returns the number of scalar values in the entry.
func (e *Entry) Len() int {
	n := 1
	for _, d := range e.Shape {
		n *= d
	}
	return n
}

// Float32 decodes the entry into float32 values. <f8 and <i8 sources are
// converted; anything else is rejected.
func (e *Entry) Float32() ([]float32, error) {
	n := e.Len()
	out := make([]float32, n)
	switch e.Descr {
	case "<f4":
		for i := 0; i < n; i++ {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(e.raw[i*4:]))
		}
	case "<f8":
		for i := 0; i < n; i++ {
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(e.raw[i*8:])))
		}
	case "<i8":
		for i := 0; i < n; i++ {
			out[i] = float32(int64(binary.LittleEndian.Uint64(e.raw[i*8:])))
		}
	default:
		return nil, fmt.Errorf("unsupported dtype %q", e.Descr)
	}
	return out, nil
}

// Int64 decodes a <i8 entry.
func (e *Entry) Int64() ([]int64, error) {
	if e.Descr != "<i8" {
		return nil, fmt.Errorf("unsupported dtype %q for int64 decode", e.Descr)
	}
	n := e.Len()
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		out[i] = int64(binary.LittleEndian.Uint64(e.raw[i*8:]))
	}
	return out, nil
}

// FromFloat32 builds a <f4 entry from values and a shape.
func FromFloat32(values []float32, shape ...int) *Entry {
	raw := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return &Entry{Shape: shape, Descr: "<f4", raw: raw}
}

// FromInt64 builds a <i8 entry from values and a shape.
func FromInt64(values []int64, shape ...int) *Entry {
	raw := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[i*8:], uint64(v))
	}
	return &Entry{Shape: shape, Descr: "<i8", raw: raw}
}

// Archive is a loaded npz file.
type Archive struct {
	entries map[string]*Entry
}

// Keys lists entry names in sorted order.
func (a *Archive) Keys() []string {
	keys := make([]string, 0, len(a.entries))
	for k := range a.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether the archive holds the named entry.
func (a *Archive) Has(name string) bool {
	_, ok := a.entries[name]
	return ok
}

// Get returns the named entry. A missing entry is an error listing the
// available keys so the caller can report what the archive did hold.
func (a *Archive) Get(name string) (*Entry, error) {
	e, ok := a.entries[name]
	if !ok {
		return nil, fmt.Errorf("no %q key found; available keys: %v", name, a.Keys())
	}
	return e, nil
}

// Load reads an npz archive from disk.
func Load(path string) (*Archive, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open npz archive %s: %w", path, err)
	}
	defer r.Close()

	out := &Archive{entries: make(map[string]*Entry)}
	for _, f := range r.File {
		name := strings.TrimSuffix(f.Name, ".npy")
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open member %s: %w", f.Name, err)
		}
		e, err := readNPY(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", f.Name, err)
		}
		out.entries[name] = e
	}
	return out, nil
}

// Save writes entries into a deflate-compressed npz archive.
func Save(path string, entries map[string]*Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	names := make([]string, 0, len(entries))
	for k := range entries {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   name + ".npy",
			Method: zip.Deflate,
		})
		if err != nil {
			return err
		}
		if err := writeNPY(w, entries[name]); err != nil {
			return fmt.Errorf("member %s: %w", name, err)
		}
	}
	return zw.Close()
}

// LoadNPY reads a bare .npy file (e.g. a PTS array).
func LoadNPY(path string) (*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readNPY(f)
}

// SaveNPY writes a bare .npy file.
func SaveNPY(path string, e *Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeNPY(f, e)
}

func readNPY(r io.Reader) (*Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < 10 || string(data[:6]) != npyMagic {
		return nil, fmt.Errorf("not an npy array")
	}
	major := data[6]
	if major != 1 {
		return nil, fmt.Errorf("unsupported npy version %d", major)
	}
	hlen := int(binary.LittleEndian.Uint16(data[8:10]))
	if 10+hlen > len(data) {
		return nil, fmt.Errorf("truncated npy header")
	}
	header := string(data[10 : 10+hlen])

	descr, err := headerString(header, "descr")
	if err != nil {
		return nil, err
	}
	if strings.Contains(header, "'fortran_order': True") {
		return nil, fmt.Errorf("fortran-ordered arrays are not supported")
	}
	shape, err := headerShape(header)
	if err != nil {
		return nil, err
	}

	e := &Entry{Shape: shape, Descr: descr, raw: data[10+hlen:]}
	itemSize := 4
	if descr == "<f8" || descr == "<i8" {
		itemSize = 8
	}
	if len(e.raw) < e.Len()*itemSize {
		return nil, fmt.Errorf("npy data too short: %d bytes for shape %v", len(e.raw), shape)
	}
	return e, nil
}

func writeNPY(w io.Writer, e *Entry) error {
	dims := make([]string, len(e.Shape))
	for i, d := range e.Shape {
		dims[i] = strconv.Itoa(d)
	}
	shape := strings.Join(dims, ", ")
	if len(e.Shape) == 1 {
		shape += ","
	}
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", e.Descr, shape)

	// Pad so magic+version+len+header is a multiple of 64 ending in \n.
	total := 10 + len(header) + 1
	pad := (64 - total%64) % 64
	header += strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	buf.WriteByte(1)
	buf.WriteByte(0)
	var hlen [2]byte
	binary.LittleEndian.PutUint16(hlen[:], uint16(len(header)))
	buf.Write(hlen[:])
	buf.WriteString(header)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(e.raw)
	return err
}

func headerString(header, key string) (string, error) {
	marker := "'" + key + "': '"
	i := strings.Index(header, marker)
	if i < 0 {
		return "", fmt.Errorf("npy header missing %q", key)
	}
	rest := header[i+len(marker):]
	j := strings.Index(rest, "'")
	if j < 0 {
		return "", fmt.Errorf("malformed npy header")
	}
	return rest[:j], nil
}

func headerShape(header string) ([]int, error) {
	i := strings.Index(header, "'shape': (")
	if i < 0 {
		return nil, fmt.Errorf("npy header missing shape")
	}
	rest := header[i+len("'shape': ("):]
	j := strings.Index(rest, ")")
	if j < 0 {
		return nil, fmt.Errorf("malformed npy shape")
	}
	fields := strings.Split(rest[:j], ",")
	shape := make([]int, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		d, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("bad shape dimension %q: %w", f, err)
		}
		shape = append(shape, d)
	}
	return shape, nil
}
