package splv

import (
	"fmt"
	"math"
)

// Bounds is an axis-aligned world-space bounding box.
type Bounds struct {
	Min [3]float64
	Max [3]float64
}

// EmptyBounds returns a bounds ready for accumulation.
func EmptyBounds() Bounds {
	return Bounds{
		Min: [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
}

// Extend grows the bounds to cover every point.
func (b *Bounds) Extend(points []Point) {
	for _, p := range points {
		coords := [3]float64{p.X, p.Y, p.Z}
		for i := 0; i < 3; i++ {
			if coords[i] < b.Min[i] {
				b.Min[i] = coords[i]
			}
			if coords[i] > b.Max[i] {
				b.Max[i] = coords[i]
			}
		}
	}
}

// Valid reports whether at least one point has been accumulated.
func (b Bounds) Valid() bool {
	return b.Min[0] <= b.Max[0]
}

// Cubic expands the bounds symmetrically on each axis until all three
// extents match the largest one, keeping the voxel aspect ratio square.
func (b Bounds) Cubic() Bounds {
	var size [3]float64
	maxExtent := 0.0
	for i := 0; i < 3; i++ {
		size[i] = b.Max[i] - b.Min[i]
		if size[i] > maxExtent {
			maxExtent = size[i]
		}
	}
	out := b
	for i := 0; i < 3; i++ {
		pad := (maxExtent - size[i]) / 2.0
		out.Min[i] -= pad
		out.Max[i] += pad
	}
	return out
}

// WorldBounds accumulates bounds over a sequence of PLY files.
func WorldBounds(plyPaths []string) (Bounds, error) {
	bounds := EmptyBounds()
	for _, path := range plyPaths {
		points, err := LoadPLY(path)
		if err != nil {
			return Bounds{}, err
		}
		bounds.Extend(points)
	}
	if !bounds.Valid() {
		return Bounds{}, fmt.Errorf("no vertices found across %d ply files", len(plyPaths))
	}
	return bounds, nil
}

// RGB is a voxel color.
type RGB struct {
	R, G, B uint8
}

// Frame is a sparse voxel grid.
type Frame struct {
	Width, Height, Depth int
	voxels               map[uint64]RGB
}

// NewFrame allocates an empty voxel frame.
func NewFrame(width, height, depth int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Depth:  depth,
		voxels: make(map[uint64]RGB),
	}
}

// packCoord packs grid coordinates into a map key; 21 bits per axis.
func packCoord(x, y, z int) uint64 {
	return uint64(x)<<42 | uint64(y)<<21 | uint64(z)
}

func unpackCoord(key uint64) (int, int, int) {
	const mask = (1 << 21) - 1
	return int(key >> 42 & mask), int(key >> 21 & mask), int(key & mask)
}

// Set colors the voxel at (x, y, z). Out-of-grid coordinates are
// silently dropped.
func (f *Frame) Set(x, y, z int, c RGB) {
	if x < 0 || x >= f.Width || y < 0 || y >= f.Height || z < 0 || z >= f.Depth {
		return
	}
	f.voxels[packCoord(x, y, z)] = c
}

// Get returns the voxel color at (x, y, z).
func (f *Frame) Get(x, y, z int) (RGB, bool) {
	c, ok := f.voxels[packCoord(x, y, z)]
	return c, ok
}

// Len returns the number of occupied voxels.
func (f *Frame) Len() int {
	return len(f.voxels)
}

// QuantizePoints maps world-space points into grid coordinates within
// bounds and colors the corresponding voxels. The Y axis is flipped so
// world up becomes grid up.
func QuantizePoints(points []Point, bounds Bounds, width, height, depth int) *Frame {
	f := NewFrame(width, height, depth)

	scale := func(rng float64, cells int) float64 {
		s := rng / float64(cells-1)
		if s == 0 {
			// Degenerate axis: every point lands in cell 0.
			return 1
		}
		return s
	}
	xScale := scale(bounds.Max[0]-bounds.Min[0], width)
	yScale := scale(bounds.Max[1]-bounds.Min[1], height)
	zScale := scale(bounds.Max[2]-bounds.Min[2], depth)

	for _, p := range points {
		x := int((p.X - bounds.Min[0]) / xScale)
		y := int((p.Y - bounds.Min[1]) / yScale)
		z := int((p.Z - bounds.Min[2]) / zScale)
		f.Set(x, f.Height-1-y, z, RGB{p.R, p.G, p.B})
	}
	return f
}
