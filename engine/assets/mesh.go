package assets

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/spaghettifunk/patina/engine/core"
	emath "github.com/spaghettifunk/patina/engine/math"
	"github.com/spaghettifunk/patina/engine/renderer/metadata"
)

/**
 * @brief One drawable primitive group of a mesh asset: an interleaved
 * vertex buffer, a 16-bit index buffer, the portable layout describing the
 * vertices and the transform baked from the source scene graph.
 */
type MeshDataChunk struct {
	/** @brief Interleaved vertex bytes, NumVertices*VertexStride long. */
	VertexData []byte
	/** @brief Size of one vertex in bytes. */
	VertexStride uint32
	/** @brief How many vertices the buffer holds. */
	NumVertices uint32
	/** @brief Indices into the vertex buffer. */
	Indices []uint16
	/** @brief Where each attribute lives inside a vertex. */
	VertexDeclaration metadata.PortableVertexDeclaration
	/** @brief The topology the indices describe. */
	PrimitiveType metadata.PrimitiveType
	/** @brief Bitmask of the populated attributes. */
	ComponentsAvailable uint32
	/** @brief Node-to-mesh transform baked at import time. */
	Transform emath.Mat4
	/** @brief The source material name this chunk was authored against. */
	MaterialName string
}

/**
 * @brief The parsed payload of a mesh asset: the chunks plus the
 * authoring-time binding from source material names to material asset IDs.
 */
type MeshData struct {
	Chunks []MeshDataChunk
	/** @brief Source material name to material asset ID. */
	MaterialMapping map[string]string
}

// meshReader is a little-endian cursor over a mesh blob. Every read is
// bounds checked so a truncated file surfaces as a format error instead of
// a panic.
type meshReader struct {
	data   []byte
	offset int
}

func (r *meshReader) remaining() int {
	return len(r.data) - r.offset
}

func (r *meshReader) bytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("unexpected end of mesh data at byte %d: %w", r.offset, core.ErrMeshFormat)
	}
	out := r.data[r.offset : r.offset+n]
	r.offset += n
	return out, nil
}

func (r *meshReader) u8() (uint8, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *meshReader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *meshReader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *meshReader) u64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *meshReader) f32() (float32, error) {
	v, err := r.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func writeVertexDeclaration(buf *bytes.Buffer, decl *metadata.PortableVertexDeclaration) {
	var scratch [4]byte
	u32 := func(v uint32) {
		binary.LittleEndian.PutUint32(scratch[:], v)
		buf.Write(scratch[:])
	}
	boolByte := func(v bool) {
		if v {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}

	u32(decl.Stride)
	for _, attr := range decl.Attributes() {
		u32(uint32(attr.Format))
		u32(attr.Components)
		u32(attr.Offset)
		boolByte(attr.Enable)
		boolByte(attr.Integer)
	}
}

func readVertexDeclaration(r *meshReader, decl *metadata.PortableVertexDeclaration) error {
	stride, err := r.u32()
	if err != nil {
		return err
	}
	decl.Stride = stride
	for _, attr := range decl.Attributes() {
		format, err := r.u32()
		if err != nil {
			return err
		}
		components, err := r.u32()
		if err != nil {
			return err
		}
		offset, err := r.u32()
		if err != nil {
			return err
		}
		enable, err := r.u8()
		if err != nil {
			return err
		}
		integer, err := r.u8()
		if err != nil {
			return err
		}
		attr.Format = metadata.ComponentFormat(format)
		attr.Components = components
		attr.Offset = offset
		attr.Enable = enable != 0
		attr.Integer = integer != 0
	}
	return nil
}

/**
 * @brief Decodes the binary geometry blob of a mesh asset. The blob must
 * round-trip with MeshDataToBinary byte for byte; anything truncated or
 * inconsistent is a format error and produces no partial mesh.
 */
func MeshDataFromBinary(assetID string, blob []byte, data *MeshData) error {
	r := &meshReader{data: blob}

	fail := func(err error) error {
		err = fmt.Errorf("asset %s: %w", assetID, err)
		core.LogError(err.Error())
		return err
	}

	chunkCount, err := r.u64()
	if err != nil {
		return fail(err)
	}
	chunks := make([]MeshDataChunk, 0, chunkCount)
	for c := uint64(0); c < chunkCount; c++ {
		var chunk MeshDataChunk

		if chunk.NumVertices, err = r.u32(); err != nil {
			return fail(err)
		}
		if chunk.VertexStride, err = r.u32(); err != nil {
			return fail(err)
		}
		vertexBytes, err := r.bytes(int(chunk.NumVertices) * int(chunk.VertexStride))
		if err != nil {
			return fail(err)
		}
		chunk.VertexData = append([]byte(nil), vertexBytes...)

		numIndices, err := r.u32()
		if err != nil {
			return fail(err)
		}
		chunk.Indices = make([]uint16, numIndices)
		for i := range chunk.Indices {
			if chunk.Indices[i], err = r.u16(); err != nil {
				return fail(err)
			}
		}

		if err := readVertexDeclaration(r, &chunk.VertexDeclaration); err != nil {
			return fail(err)
		}
		if chunk.VertexDeclaration.Stride != chunk.VertexStride {
			return fail(fmt.Errorf("chunk %d declares a stride of %d but stores vertices %d bytes apart: %w",
				c, chunk.VertexDeclaration.Stride, chunk.VertexStride, core.ErrMeshFormat))
		}

		primitive, err := r.u32()
		if err != nil {
			return fail(err)
		}
		if primitive > uint32(metadata.PrimitivePoints) {
			return fail(fmt.Errorf("chunk %d has unknown primitive type %d: %w", c, primitive, core.ErrMeshFormat))
		}
		chunk.PrimitiveType = metadata.PrimitiveType(primitive)

		if chunk.ComponentsAvailable, err = r.u32(); err != nil {
			return fail(err)
		}
		for i := range chunk.Transform.Data {
			if chunk.Transform.Data[i], err = r.f32(); err != nil {
				return fail(err)
			}
		}

		nameLength, err := r.u64()
		if err != nil {
			return fail(err)
		}
		nameBytes, err := r.bytes(int(nameLength))
		if err != nil {
			return fail(err)
		}
		chunk.MaterialName = string(nameBytes)

		chunks = append(chunks, chunk)
	}

	if r.remaining() != 0 {
		return fail(fmt.Errorf("%d trailing bytes after the last chunk: %w", r.remaining(), core.ErrMeshFormat))
	}

	data.Chunks = chunks
	return nil
}

/**
 * @brief Encodes the mesh geometry to its binary blob form, one fixed-order
 * little-endian record per chunk behind a chunk count.
 */
func MeshDataToBinary(data *MeshData) ([]byte, error) {
	buf := new(bytes.Buffer)
	var scratch [8]byte

	u32 := func(v uint32) {
		binary.LittleEndian.PutUint32(scratch[:4], v)
		buf.Write(scratch[:4])
	}
	u64 := func(v uint64) {
		binary.LittleEndian.PutUint64(scratch[:], v)
		buf.Write(scratch[:])
	}

	u64(uint64(len(data.Chunks)))
	for i := range data.Chunks {
		chunk := &data.Chunks[i]
		if int(chunk.NumVertices)*int(chunk.VertexStride) != len(chunk.VertexData) {
			err := fmt.Errorf("chunk %d holds %d vertex bytes, %d vertices of stride %d expected: %w",
				i, len(chunk.VertexData), chunk.NumVertices, chunk.VertexStride, core.ErrMeshFormat)
			core.LogError(err.Error())
			return nil, err
		}

		u32(chunk.NumVertices)
		u32(chunk.VertexStride)
		buf.Write(chunk.VertexData)

		u32(uint32(len(chunk.Indices)))
		for _, index := range chunk.Indices {
			binary.LittleEndian.PutUint16(scratch[:2], index)
			buf.Write(scratch[:2])
		}

		writeVertexDeclaration(buf, &chunk.VertexDeclaration)
		u32(uint32(chunk.PrimitiveType))
		u32(chunk.ComponentsAvailable)
		for _, lane := range chunk.Transform.Data {
			u32(math.Float32bits(lane))
		}

		u64(uint64(len(chunk.MaterialName)))
		buf.WriteString(chunk.MaterialName)
	}
	return buf.Bytes(), nil
}

type meshDocument struct {
	MaterialMapping map[string]string `json:"material_mapping,omitempty"`
}

/**
 * @brief Parses the authoring metadata of a mesh asset. The mapping is
 * optional; geometry lives in the binary blob.
 */
func MeshDataFromJSON(assetID string, document []byte, data *MeshData) error {
	var doc meshDocument
	if err := json.Unmarshal(document, &doc); err != nil {
		err = fmt.Errorf("asset %s: malformed mesh document (%v): %w", assetID, err, core.ErrAssetParse)
		core.LogError(err.Error())
		return err
	}
	data.MaterialMapping = doc.MaterialMapping
	if data.MaterialMapping == nil {
		data.MaterialMapping = make(map[string]string)
	}
	return nil
}

/** @brief Serializes the mesh authoring metadata. */
func MeshDataToJSON(data *MeshData) ([]byte, error) {
	doc := meshDocument{MaterialMapping: data.MaterialMapping}
	out, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		err = fmt.Errorf("failed to serialize mesh document: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	return out, nil
}
