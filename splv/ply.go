// Package splv converts colored point-cloud sequences (PLY files) into
// a voxel-grid video container. It covers PLY parsing, world-bounds
// computation, point quantization, and a simple frame-compressed
// encoder/decoder for the .splv container.
package splv

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Point is one colored vertex from a PLY file.
type Point struct {
	X, Y, Z float64
	R, G, B uint8
}

type plyProperty struct {
	name string
	typ  string
}

type plyHeader struct {
	binary      bool
	vertexCount int
	properties  []plyProperty
}

func propertySize(typ string) (int, error) {
	switch typ {
	case "char", "uchar", "int8", "uint8":
		return 1, nil
	case "short", "ushort", "int16", "uint16":
		return 2, nil
	case "int", "uint", "int32", "uint32", "float", "float32":
		return 4, nil
	case "double", "float64":
		return 8, nil
	default:
		return 0, fmt.Errorf("unsupported ply property type %q", typ)
	}
}

func parsePLYHeader(r *bufio.Reader) (*plyHeader, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read ply magic: %w", err)
	}
	if strings.TrimSpace(line) != "ply" {
		return nil, fmt.Errorf("not a ply file (got %q)", strings.TrimSpace(line))
	}

	h := &plyHeader{}
	inVertexElement := false
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("unexpected end of ply header: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			if len(fields) < 2 {
				return nil, fmt.Errorf("malformed format line %q", strings.TrimSpace(line))
			}
			switch fields[1] {
			case "ascii":
				h.binary = false
			case "binary_little_endian":
				h.binary = true
			default:
				return nil, fmt.Errorf("unsupported ply format %q", fields[1])
			}
		case "element":
			if len(fields) < 3 {
				return nil, fmt.Errorf("malformed element line %q", strings.TrimSpace(line))
			}
			if fields[1] == "vertex" {
				n, err := strconv.Atoi(fields[2])
				if err != nil {
					return nil, fmt.Errorf("bad vertex count %q", fields[2])
				}
				h.vertexCount = n
				inVertexElement = true
			} else {
				inVertexElement = false
			}
		case "property":
			if !inVertexElement {
				continue
			}
			if len(fields) >= 2 && fields[1] == "list" {
				return nil, fmt.Errorf("list properties on vertices are not supported")
			}
			if len(fields) < 3 {
				return nil, fmt.Errorf("malformed property line %q", strings.TrimSpace(line))
			}
			h.properties = append(h.properties, plyProperty{name: fields[2], typ: fields[1]})
		case "comment", "obj_info":
			continue
		case "end_header":
			return h, nil
		}
	}
}

// ParsePLY reads vertices with x/y/z position and red/green/blue color
// from an ascii or binary_little_endian PLY stream.
func ParsePLY(r io.Reader) ([]Point, error) {
	br := bufio.NewReader(r)
	h, err := parsePLYHeader(br)
	if err != nil {
		return nil, err
	}

	idx := map[string]int{}
	for i, p := range h.properties {
		idx[p.name] = i
	}
	for _, required := range []string{"x", "y", "z", "red", "green", "blue"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("ply vertex element missing %q property", required)
		}
	}

	points := make([]Point, 0, h.vertexCount)
	if h.binary {
		sizes := make([]int, len(h.properties))
		rowSize := 0
		for i, p := range h.properties {
			s, err := propertySize(p.typ)
			if err != nil {
				return nil, err
			}
			sizes[i] = s
			rowSize += s
		}
		row := make([]byte, rowSize)
		for v := 0; v < h.vertexCount; v++ {
			if _, err := io.ReadFull(br, row); err != nil {
				return nil, fmt.Errorf("truncated ply vertex %d: %w", v, err)
			}
			values := make([]float64, len(h.properties))
			off := 0
			for i, p := range h.properties {
				values[i] = decodeBinaryValue(row[off:off+sizes[i]], p.typ)
				off += sizes[i]
			}
			points = append(points, pointFromValues(values, idx))
		}
	} else {
		for v := 0; v < h.vertexCount; v++ {
			line, err := readNonEmptyLine(br)
			if err != nil {
				return nil, fmt.Errorf("truncated ply vertex %d: %w", v, err)
			}
			fields := strings.Fields(line)
			if len(fields) < len(h.properties) {
				return nil, fmt.Errorf("ply vertex %d has %d fields, want %d", v, len(fields), len(h.properties))
			}
			values := make([]float64, len(h.properties))
			for i := range h.properties {
				values[i], err = strconv.ParseFloat(fields[i], 64)
				if err != nil {
					return nil, fmt.Errorf("ply vertex %d field %d: %w", v, i, err)
				}
			}
			points = append(points, pointFromValues(values, idx))
		}
	}
	return points, nil
}

func readNonEmptyLine(r *bufio.Reader) (string, error) {
	for {
		line, err := r.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func decodeBinaryValue(b []byte, typ string) float64 {
	switch typ {
	case "char", "int8":
		return float64(int8(b[0]))
	case "uchar", "uint8":
		return float64(b[0])
	case "short", "int16":
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case "ushort", "uint16":
		return float64(binary.LittleEndian.Uint16(b))
	case "int", "int32":
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case "uint", "uint32":
		return float64(binary.LittleEndian.Uint32(b))
	case "float", "float32":
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case "double", "float64":
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	default:
		return 0
	}
}

func pointFromValues(values []float64, idx map[string]int) Point {
	return Point{
		X: values[idx["x"]],
		Y: values[idx["y"]],
		Z: values[idx["z"]],
		R: uint8(values[idx["red"]]),
		G: uint8(values[idx["green"]]),
		B: uint8(values[idx["blue"]]),
	}
}

// LoadPLY parses a PLY file from disk.
func LoadPLY(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	points, err := ParsePLY(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}
