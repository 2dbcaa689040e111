package splv

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
)

// Container layout: a fixed header followed by one deflate-compressed
// block per frame. Each voxel record is x,y,z as uint32 plus RGB.
const (
	splvMagic   = "SPLV"
	splvVersion = uint16(1)
)

const voxelRecordSize = 3*4 + 3

// Header describes an splv stream.
type Header struct {
	Width, Height, Depth int
	Framerate            float64
	FrameCount           int
}

// Encoder writes voxel frames into an splv container.
type Encoder struct {
	f          *os.File
	header     Header
	frameCount int
	finished   bool
}

// NewEncoder creates outputPath and writes the container header. The
// frame count is patched in by Finish.
func NewEncoder(outputPath string, width, height, depth int, framerate float64) (*Encoder, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("invalid grid size %dx%dx%d", width, height, depth)
	}
	if framerate <= 0 {
		return nil, fmt.Errorf("invalid framerate %v", framerate)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, err
	}
	e := &Encoder{
		f: f,
		header: Header{
			Width:     width,
			Height:    height,
			Depth:     depth,
			Framerate: framerate,
		},
	}
	if err := e.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return e, nil
}

func (e *Encoder) writeHeader() error {
	var buf bytes.Buffer
	buf.WriteString(splvMagic)
	binary.Write(&buf, binary.LittleEndian, splvVersion)
	binary.Write(&buf, binary.LittleEndian, uint32(e.header.Width))
	binary.Write(&buf, binary.LittleEndian, uint32(e.header.Height))
	binary.Write(&buf, binary.LittleEndian, uint32(e.header.Depth))
	binary.Write(&buf, binary.LittleEndian, e.header.Framerate)
	binary.Write(&buf, binary.LittleEndian, uint32(e.frameCount))
	_, err := e.f.Write(buf.Bytes())
	return err
}

// Encode appends one frame. The frame's grid size must match the
// encoder's.
func (e *Encoder) Encode(frame *Frame) error {
	if e.finished {
		return fmt.Errorf("encoder already finished")
	}
	if frame.Width != e.header.Width || frame.Height != e.header.Height || frame.Depth != e.header.Depth {
		return fmt.Errorf("frame grid %dx%dx%d does not match encoder %dx%dx%d",
			frame.Width, frame.Height, frame.Depth,
			e.header.Width, e.header.Height, e.header.Depth)
	}

	// Deterministic voxel order keeps output reproducible.
	keys := make([]uint64, 0, len(frame.voxels))
	for k := range frame.voxels {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	raw := make([]byte, 0, len(keys)*voxelRecordSize)
	var rec [voxelRecordSize]byte
	for _, k := range keys {
		x, y, z := unpackCoord(k)
		c := frame.voxels[k]
		binary.LittleEndian.PutUint32(rec[0:], uint32(x))
		binary.LittleEndian.PutUint32(rec[4:], uint32(y))
		binary.LittleEndian.PutUint32(rec[8:], uint32(z))
		rec[12] = c.R
		rec[13] = c.G
		rec[14] = c.B
		raw = append(raw, rec[:]...)
	}

	var compressed bytes.Buffer
	fw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		return err
	}
	if _, err := fw.Write(raw); err != nil {
		return err
	}
	if err := fw.Close(); err != nil {
		return err
	}

	var frameHdr [8]byte
	binary.LittleEndian.PutUint32(frameHdr[0:], uint32(len(keys)))
	binary.LittleEndian.PutUint32(frameHdr[4:], uint32(compressed.Len()))
	if _, err := e.f.Write(frameHdr[:]); err != nil {
		return err
	}
	if _, err := e.f.Write(compressed.Bytes()); err != nil {
		return err
	}
	e.frameCount++
	return nil
}

// Finish patches the frame count into the header and closes the file.
func (e *Encoder) Finish() error {
	if e.finished {
		return nil
	}
	e.finished = true

	if _, err := e.f.Seek(0, io.SeekStart); err != nil {
		e.f.Close()
		return err
	}
	if err := e.writeHeader(); err != nil {
		e.f.Close()
		return err
	}
	return e.f.Close()
}

// Decoder reads frames back out of an splv container.
type Decoder struct {
	r      io.Reader
	closer io.Closer
	header Header
	read   int
}

// NewDecoder opens an splv file and reads its header.
func NewDecoder(path string) (*Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	d := &Decoder{r: f, closer: f}
	if err := d.readHeader(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func (d *Decoder) readHeader() error {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(d.r, magic); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if string(magic) != splvMagic {
		return fmt.Errorf("not an splv file (magic %q)", magic)
	}
	var version uint16
	if err := binary.Read(d.r, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version != splvVersion {
		return fmt.Errorf("unsupported splv version %d", version)
	}
	var w, h, depth, frames uint32
	var framerate float64
	if err := binary.Read(d.r, binary.LittleEndian, &w); err != nil {
		return err
	}
	if err := binary.Read(d.r, binary.LittleEndian, &h); err != nil {
		return err
	}
	if err := binary.Read(d.r, binary.LittleEndian, &depth); err != nil {
		return err
	}
	if err := binary.Read(d.r, binary.LittleEndian, &framerate); err != nil {
		return err
	}
	if err := binary.Read(d.r, binary.LittleEndian, &frames); err != nil {
		return err
	}
	d.header = Header{
		Width:      int(w),
		Height:     int(h),
		Depth:      int(depth),
		Framerate:  framerate,
		FrameCount: int(frames),
	}
	return nil
}

// Header returns the container header.
func (d *Decoder) Header() Header {
	return d.header
}

// Next reads the next frame, or io.EOF after the last one.
func (d *Decoder) Next() (*Frame, error) {
	if d.read >= d.header.FrameCount {
		return nil, io.EOF
	}

	var frameHdr [8]byte
	if _, err := io.ReadFull(d.r, frameHdr[:]); err != nil {
		return nil, fmt.Errorf("failed to read frame %d header: %w", d.read, err)
	}
	voxelCount := binary.LittleEndian.Uint32(frameHdr[0:])
	compressedLen := binary.LittleEndian.Uint32(frameHdr[4:])

	compressed := make([]byte, compressedLen)
	if _, err := io.ReadFull(d.r, compressed); err != nil {
		return nil, fmt.Errorf("failed to read frame %d data: %w", d.read, err)
	}

	fr := flate.NewReader(bytes.NewReader(compressed))
	raw, err := io.ReadAll(fr)
	fr.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to decompress frame %d: %w", d.read, err)
	}
	if len(raw) != int(voxelCount)*voxelRecordSize {
		return nil, fmt.Errorf("frame %d has %d bytes, want %d voxels", d.read, len(raw), voxelCount)
	}

	frame := NewFrame(d.header.Width, d.header.Height, d.header.Depth)
	for i := 0; i < int(voxelCount); i++ {
		rec := raw[i*voxelRecordSize:]
		x := int(binary.LittleEndian.Uint32(rec[0:]))
		y := int(binary.LittleEndian.Uint32(rec[4:]))
		z := int(binary.LittleEndian.Uint32(rec[8:]))
		frame.Set(x, y, z, RGB{rec[12], rec[13], rec[14]})
	}
	d.read++
	return frame, nil
}

// Close releases the underlying file.
func (d *Decoder) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}
