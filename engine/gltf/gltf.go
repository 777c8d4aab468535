// Package gltf reads the subset of glTF 2.0 needed to import mesh geometry:
// the JSON document, GLB containers, buffer resolution (external files,
// base64 data URIs, the GLB binary chunk) and typed accessor views.
package gltf

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidVersion    = errors.New("invalid glTF version: must be 2.x")
	ErrInvalidGLBMagic   = errors.New("invalid GLB magic number")
	ErrInvalidGLBVersion = errors.New("invalid GLB version: must be 2")
	ErrMissingJSONChunk  = errors.New("GLB file missing JSON chunk")
	ErrInvalidBufferURI  = errors.New("invalid buffer URI")
	ErrBufferTooShort    = errors.New("buffer shorter than declared byteLength")
)

// Component types as stored in accessor componentType.
const (
	ComponentTypeByte          = 5120
	ComponentTypeUnsignedByte  = 5121
	ComponentTypeShort         = 5122
	ComponentTypeUnsignedShort = 5123
	ComponentTypeInt           = 5124
	ComponentTypeUnsignedInt   = 5125
	ComponentTypeFloat         = 5126
	ComponentTypeDouble        = 5130
)

// Accessor element types.
const (
	TypeScalar = "SCALAR"
	TypeVec2   = "VEC2"
	TypeVec3   = "VEC3"
	TypeVec4   = "VEC4"
	TypeMat2   = "MAT2"
	TypeMat3   = "MAT3"
	TypeMat4   = "MAT4"
)

// Primitive topologies as stored in primitive mode.
const (
	ModePoints        = 0
	ModeLines         = 1
	ModeLineLoop      = 2
	ModeLineStrip     = 3
	ModeTriangles     = 4
	ModeTriangleStrip = 5
	ModeTriangleFan   = 6
)

const (
	glbMagic     = 0x46546C67
	glbVersion   = 2
	glbChunkJSON = 0x4E4F534A
	glbChunkBIN  = 0x004E4942
)

type Asset struct {
	Version string `json:"version"`
}

type Scene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

type Node struct {
	Name        string       `json:"name,omitempty"`
	Children    []int        `json:"children,omitempty"`
	Mesh        *int         `json:"mesh,omitempty"`
	Matrix      *[16]float32 `json:"matrix,omitempty"`
	Translation *[3]float32  `json:"translation,omitempty"`
	Rotation    *[4]float32  `json:"rotation,omitempty"`
	Scale       *[3]float32  `json:"scale,omitempty"`
}

type Primitive struct {
	// Attribute semantic (POSITION, NORMAL, TEXCOORD_0, ...) to accessor.
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`
	Mode       *int           `json:"mode,omitempty"`
}

// PrimitiveMode resolves the optional mode field to its spec default.
func (p *Primitive) PrimitiveMode() int {
	if p.Mode == nil {
		return ModeTriangles
	}
	return *p.Mode
}

type Mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []Primitive `json:"primitives"`
}

type Accessor struct {
	Name          string `json:"name,omitempty"`
	BufferView    *int   `json:"bufferView,omitempty"`
	ByteOffset    int    `json:"byteOffset,omitempty"`
	ComponentType int    `json:"componentType"`
	Normalized    bool   `json:"normalized,omitempty"`
	Count         int    `json:"count"`
	Type          string `json:"type"`
}

type BufferView struct {
	Buffer     int  `json:"buffer"`
	ByteOffset int  `json:"byteOffset,omitempty"`
	ByteLength int  `json:"byteLength"`
	ByteStride *int `json:"byteStride,omitempty"`
}

type Buffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
	// Data holds the resolved bytes, populated while opening.
	Data []byte `json:"-"`
}

type Material struct {
	Name string `json:"name,omitempty"`
}

// Document is the root of a parsed glTF asset with all buffers resolved.
type Document struct {
	Asset       Asset        `json:"asset"`
	Scene       *int         `json:"scene,omitempty"`
	Scenes      []Scene      `json:"scenes,omitempty"`
	Nodes       []Node       `json:"nodes,omitempty"`
	Meshes      []Mesh       `json:"meshes,omitempty"`
	Accessors   []Accessor   `json:"accessors,omitempty"`
	BufferViews []BufferView `json:"bufferViews,omitempty"`
	Buffers     []Buffer     `json:"buffers,omitempty"`
	Materials   []Material   `json:"materials,omitempty"`
}

// Open reads a .gltf or .glb file and resolves every buffer it references.
// GLB is detected by extension or by the magic number.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	baseDir := filepath.Dir(path)

	if strings.EqualFold(filepath.Ext(path), ".glb") ||
		(len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == glbMagic) {
		return parseGLB(data, baseDir)
	}
	return parseGLTF(data, baseDir, nil)
}

// Parse reads a glTF document from an in-memory blob, GLB or plain JSON.
// Relative buffer URIs are resolved against baseDir.
func Parse(data []byte, baseDir string) (*Document, error) {
	if len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == glbMagic {
		return parseGLB(data, baseDir)
	}
	return parseGLTF(data, baseDir, nil)
}

func parseGLTF(data []byte, baseDir string, glbChunk []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, ErrInvalidVersion
	}
	if err := loadBuffers(&doc, baseDir, glbChunk); err != nil {
		return nil, err
	}
	return &doc, nil
}

func parseGLB(data []byte, baseDir string) (*Document, error) {
	if len(data) < 12 {
		return nil, errors.New("GLB file too small")
	}
	if binary.LittleEndian.Uint32(data[0:4]) != glbMagic {
		return nil, ErrInvalidGLBMagic
	}
	if binary.LittleEndian.Uint32(data[4:8]) != glbVersion {
		return nil, ErrInvalidGLBVersion
	}

	var jsonChunk, binChunk []byte
	r := bytes.NewReader(data[12:])
	for {
		var header [8]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to read GLB chunk header: %w", err)
		}
		length := binary.LittleEndian.Uint32(header[0:4])
		chunkType := binary.LittleEndian.Uint32(header[4:8])

		chunk := make([]byte, length)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, fmt.Errorf("failed to read GLB chunk data: %w", err)
		}
		switch chunkType {
		case glbChunkJSON:
			jsonChunk = chunk
		case glbChunkBIN:
			binChunk = chunk
		}
	}
	if jsonChunk == nil {
		return nil, ErrMissingJSONChunk
	}
	return parseGLTF(jsonChunk, baseDir, binChunk)
}

func loadBuffers(doc *Document, baseDir string, glbChunk []byte) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]

		if buf.URI == "" {
			if i == 0 && glbChunk != nil {
				buf.Data = glbChunk
				if len(buf.Data) < buf.ByteLength {
					return fmt.Errorf("buffer %d: %w", i, ErrBufferTooShort)
				}
				continue
			}
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		}

		data, err := loadBufferURI(buf.URI, baseDir)
		if err != nil {
			return fmt.Errorf("buffer %d: %w", i, err)
		}
		if len(data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, ErrBufferTooShort)
		}
		buf.Data = data
	}
	return nil
}

func loadBufferURI(uri, baseDir string) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		comma := strings.Index(uri, ",")
		if comma < 0 {
			return nil, ErrInvalidBufferURI
		}
		header := uri[5:comma]
		if !strings.Contains(header, "base64") {
			return nil, fmt.Errorf("unsupported data URI encoding %q", header)
		}
		data, err := base64.StdEncoding.DecodeString(uri[comma+1:])
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 buffer: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(filepath.Join(baseDir, uri))
	if err != nil {
		return nil, fmt.Errorf("failed to load buffer file %q: %w", uri, err)
	}
	return data, nil
}

// ComponentTypeSize returns the byte size of one component, zero when the
// component type is unknown.
func ComponentTypeSize(componentType int) int {
	switch componentType {
	case ComponentTypeByte, ComponentTypeUnsignedByte:
		return 1
	case ComponentTypeShort, ComponentTypeUnsignedShort:
		return 2
	case ComponentTypeInt, ComponentTypeUnsignedInt, ComponentTypeFloat:
		return 4
	case ComponentTypeDouble:
		return 8
	default:
		return 0
	}
}

// TypeComponentCount returns how many components an accessor element has,
// zero when the type string is unknown.
func TypeComponentCount(accessorType string) int {
	switch accessorType {
	case TypeScalar:
		return 1
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	case TypeVec4:
		return 4
	case TypeMat2:
		return 4
	case TypeMat3:
		return 9
	case TypeMat4:
		return 16
	default:
		return 0
	}
}

// AccessorView exposes one accessor's elements with the effective stride
// already resolved, so callers can copy interleaved and tight data the same
// way.
type AccessorView struct {
	Count          int
	ComponentType  int
	ComponentCount int
	ElementSize    int

	stride int
	data   []byte
}

// Element returns the raw bytes of element i. i must be < Count.
func (v *AccessorView) Element(i int) []byte {
	offset := i * v.stride
	return v.data[offset : offset+v.ElementSize]
}

// AccessorView resolves an accessor into a bounds-checked view over its
// buffer bytes.
func (d *Document) AccessorView(index int) (*AccessorView, error) {
	if index < 0 || index >= len(d.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", index)
	}
	accessor := &d.Accessors[index]
	if accessor.BufferView == nil {
		return nil, fmt.Errorf("accessor %d has no bufferView", index)
	}
	if *accessor.BufferView < 0 || *accessor.BufferView >= len(d.BufferViews) {
		return nil, fmt.Errorf("accessor %d references bufferView %d out of range", index, *accessor.BufferView)
	}
	view := &d.BufferViews[*accessor.BufferView]
	if view.Buffer < 0 || view.Buffer >= len(d.Buffers) {
		return nil, fmt.Errorf("bufferView %d references buffer %d out of range", *accessor.BufferView, view.Buffer)
	}
	buffer := &d.Buffers[view.Buffer]

	componentSize := ComponentTypeSize(accessor.ComponentType)
	componentCount := TypeComponentCount(accessor.Type)
	if componentSize == 0 || componentCount == 0 {
		return nil, fmt.Errorf("accessor %d has unsupported type %s/%d", index, accessor.Type, accessor.ComponentType)
	}
	elementSize := componentSize * componentCount

	stride := elementSize
	if view.ByteStride != nil && *view.ByteStride > 0 {
		stride = *view.ByteStride
	}

	start := view.ByteOffset + accessor.ByteOffset
	end := start
	if accessor.Count > 0 {
		end = start + (accessor.Count-1)*stride + elementSize
	}
	if start < 0 || end > len(buffer.Data) {
		return nil, fmt.Errorf("accessor %d spans [%d, %d) outside buffer %d of %d bytes",
			index, start, end, view.Buffer, len(buffer.Data))
	}

	return &AccessorView{
		Count:          accessor.Count,
		ComponentType:  accessor.ComponentType,
		ComponentCount: componentCount,
		ElementSize:    elementSize,
		stride:         stride,
		data:           buffer.Data[start:],
	}, nil
}
