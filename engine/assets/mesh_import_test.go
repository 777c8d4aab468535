package assets

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/patina/engine/core"
	"github.com/spaghettifunk/patina/engine/gltf"
	emath "github.com/spaghettifunk/patina/engine/math"
	"github.com/spaghettifunk/patina/engine/renderer/metadata"
)

func intp(i int) *int { return &i }

func f32Buf(values ...float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func u16Buf(values ...uint16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}

func u32Buf(values ...uint32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

// transformPoint applies a baked chunk transform to a point, row vector
// convention with w = 1.
func transformPoint(v emath.Vec3, m emath.Mat4) emath.Vec3 {
	return emath.Vec3{
		X: v.X*m.Data[0] + v.Y*m.Data[4] + v.Z*m.Data[8] + m.Data[12],
		Y: v.X*m.Data[1] + v.Y*m.Data[5] + v.Z*m.Data[9] + m.Data[13],
		Z: v.X*m.Data[2] + v.Y*m.Data[6] + v.Z*m.Data[10] + m.Data[14],
	}
}

// positionTriangleDoc builds a document with a single position-only triangle
// mesh and the provided node hierarchy.
func positionTriangleDoc(nodes []gltf.Node, sceneNodes []int) *gltf.Document {
	raw := append(f32Buf(0, 0, 0, 1, 0, 0, 0, 1, 0), u16Buf(0, 1, 2)...)
	return &gltf.Document{
		Asset:  gltf.Asset{Version: "2.0"},
		Scenes: []gltf.Scene{{Nodes: sceneNodes}},
		Nodes:  nodes,
		Meshes: []gltf.Mesh{{Primitives: []gltf.Primitive{{
			Attributes: map[string]int{"POSITION": 0},
			Indices:    intp(1),
		}}}},
		Accessors: []gltf.Accessor{
			{BufferView: intp(0), ComponentType: gltf.ComponentTypeFloat, Count: 3, Type: gltf.TypeVec3},
			{BufferView: intp(1), ComponentType: gltf.ComponentTypeUnsignedShort, Count: 3, Type: gltf.TypeScalar},
		},
		BufferViews: []gltf.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 36},
			{Buffer: 0, ByteOffset: 36, ByteLength: 6},
		},
		Buffers: []gltf.Buffer{{ByteLength: 42, Data: raw}},
	}
}

func TestImportInterleavesAttributes(t *testing.T) {
	positions := f32Buf(0, 0, 0, 1, 0, 0, 0, 1, 0)
	normals := f32Buf(0, 0, 1, 0, 0, 1, 0, 0, 1)
	colors := f32Buf(0.1, 0.1, 0.1, 1, 1, 1, 0.5, 0.5, 0.5)
	uvs := f32Buf(0, 0, 1, 0, 0, 1)
	indices := u16Buf(0, 1, 2)

	raw := append(append(append(append(append([]byte{}, positions...), normals...), colors...), uvs...), indices...)
	doc := &gltf.Document{
		Asset:  gltf.Asset{Version: "2.0"},
		Scenes: []gltf.Scene{{Nodes: []int{0}}},
		Nodes:  []gltf.Node{{Mesh: intp(0)}},
		Meshes: []gltf.Mesh{{Primitives: []gltf.Primitive{{
			Attributes: map[string]int{"POSITION": 0, "NORMAL": 1, "COLOR_0": 2, "TEXCOORD_0": 3},
			Indices:    intp(4),
			Material:   intp(0),
		}}}},
		Accessors: []gltf.Accessor{
			{BufferView: intp(0), ComponentType: gltf.ComponentTypeFloat, Count: 3, Type: gltf.TypeVec3},
			{BufferView: intp(1), ComponentType: gltf.ComponentTypeFloat, Count: 3, Type: gltf.TypeVec3},
			{BufferView: intp(2), ComponentType: gltf.ComponentTypeFloat, Count: 3, Type: gltf.TypeVec3},
			{BufferView: intp(3), ComponentType: gltf.ComponentTypeFloat, Count: 3, Type: gltf.TypeVec2},
			{BufferView: intp(4), ComponentType: gltf.ComponentTypeUnsignedShort, Count: 3, Type: gltf.TypeScalar},
		},
		BufferViews: []gltf.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 36},
			{Buffer: 0, ByteOffset: 36, ByteLength: 36},
			{Buffer: 0, ByteOffset: 72, ByteLength: 36},
			{Buffer: 0, ByteOffset: 108, ByteLength: 24},
			{Buffer: 0, ByteOffset: 132, ByteLength: 6},
		},
		Buffers:   []gltf.Buffer{{ByteLength: len(raw), Data: raw}},
		Materials: []gltf.Material{{Name: "mat_gold"}, {Name: "mat_silver"}},
	}

	var data MeshData
	require.NoError(t, MeshDataFromGLTFDocument("mesh", doc, &data))
	require.Len(t, data.Chunks, 1)
	chunk := &data.Chunks[0]

	// Position leads, colors follow, then normal, then texcoords.
	assert.Equal(t, uint32(44), chunk.VertexStride)
	assert.Equal(t, uint32(44), chunk.VertexDeclaration.Stride)
	assert.Equal(t, uint32(0), chunk.VertexDeclaration.Position.Offset)
	assert.Equal(t, uint32(12), chunk.VertexDeclaration.Colors[0].Offset)
	assert.Equal(t, uint32(24), chunk.VertexDeclaration.Normal.Offset)
	assert.Equal(t, uint32(36), chunk.VertexDeclaration.TexCoords[0].Offset)
	assert.True(t, chunk.VertexDeclaration.Position.Enable)
	assert.True(t, chunk.VertexDeclaration.Colors[0].Enable)
	assert.True(t, chunk.VertexDeclaration.Normal.Enable)
	assert.True(t, chunk.VertexDeclaration.TexCoords[0].Enable)
	assert.False(t, chunk.VertexDeclaration.Colors[1].Enable)
	assert.False(t, chunk.VertexDeclaration.PosMtx.Enable)
	assert.Equal(t, uint32(2), chunk.VertexDeclaration.TexCoords[0].Components)

	assert.Equal(t, metadata.VBHasCol0|metadata.VBHasNormal|metadata.VBHasUV0, chunk.ComponentsAvailable)
	assert.Equal(t, metadata.PrimitiveTriangles, chunk.PrimitiveType)
	assert.Equal(t, []uint16{0, 1, 2}, chunk.Indices)
	assert.Equal(t, "mat_gold", chunk.MaterialName)

	// Spot check vertex 1: position (1,0,0), color (1,1,1), uv (1,0).
	base := 1 * int(chunk.VertexStride)
	readF32 := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(chunk.VertexData[base+offset:]))
	}
	assert.Equal(t, float32(1), readF32(0))
	assert.Equal(t, float32(0), readF32(4))
	assert.Equal(t, float32(1), readF32(12))
	assert.Equal(t, float32(1), readF32(16))
	assert.Equal(t, float32(1), readF32(24+8)) // normal z
	assert.Equal(t, float32(1), readF32(36))
	assert.Equal(t, float32(0), readF32(40))

	// Every source material gets a mapping entry to fill in.
	assert.Equal(t, map[string]string{"mat_gold": "", "mat_silver": ""}, data.MaterialMapping)
}

func TestImportWidensIndices(t *testing.T) {
	doc := positionTriangleDoc([]gltf.Node{{Mesh: intp(0)}}, []int{0})

	// Swap the index accessor for a 32-bit one.
	raw := append(f32Buf(0, 0, 0, 1, 0, 0, 0, 1, 0), u32Buf(2, 1, 0)...)
	doc.Buffers[0].Data = raw
	doc.Buffers[0].ByteLength = len(raw)
	doc.BufferViews[1] = gltf.BufferView{Buffer: 0, ByteOffset: 36, ByteLength: 12}
	doc.Accessors[1] = gltf.Accessor{BufferView: intp(1), ComponentType: gltf.ComponentTypeUnsignedInt, Count: 3, Type: gltf.TypeScalar}

	var data MeshData
	require.NoError(t, MeshDataFromGLTFDocument("mesh", doc, &data))
	require.Len(t, data.Chunks, 1)
	assert.Equal(t, []uint16{2, 1, 0}, data.Chunks[0].Indices)

	// And an 8-bit one.
	raw = append(f32Buf(0, 0, 0, 1, 0, 0, 0, 1, 0), 1, 2, 0)
	doc.Buffers[0].Data = raw
	doc.Buffers[0].ByteLength = len(raw)
	doc.BufferViews[1] = gltf.BufferView{Buffer: 0, ByteOffset: 36, ByteLength: 3}
	doc.Accessors[1] = gltf.Accessor{BufferView: intp(1), ComponentType: gltf.ComponentTypeUnsignedByte, Count: 3, Type: gltf.TypeScalar}

	require.NoError(t, MeshDataFromGLTFDocument("mesh", doc, &data))
	assert.Equal(t, []uint16{1, 2, 0}, data.Chunks[0].Indices)
}

func TestImportNodeTransforms(t *testing.T) {
	// Translation, rotation and scale bake in that order: the point moves,
	// then spins a quarter turn around z, then doubles.
	angle := emath.DegToRad(90)
	doc := positionTriangleDoc([]gltf.Node{{
		Mesh:        intp(0),
		Translation: &[3]float32{1, 0, 0},
		Rotation:    &[4]float32{0, 0, float32(math.Sin(float64(angle) / 2)), float32(math.Cos(float64(angle) / 2))},
		Scale:       &[3]float32{2, 2, 2},
	}}, []int{0})

	var data MeshData
	require.NoError(t, MeshDataFromGLTFDocument("mesh", doc, &data))
	require.Len(t, data.Chunks, 1)

	moved := transformPoint(emath.NewVec3(1, 0, 0), data.Chunks[0].Transform)
	assert.InDelta(t, float32(0), moved.X, 1e-5)
	assert.InDelta(t, float32(4), moved.Y, 1e-5)
	assert.InDelta(t, float32(0), moved.Z, 1e-5)
}

func TestImportExplicitNodeMatrix(t *testing.T) {
	matrix := [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		5, 6, 7, 1,
	}
	doc := positionTriangleDoc([]gltf.Node{{Mesh: intp(0), Matrix: &matrix}}, []int{0})

	var data MeshData
	require.NoError(t, MeshDataFromGLTFDocument("mesh", doc, &data))
	require.Len(t, data.Chunks, 1)
	assert.Equal(t, matrix[:], data.Chunks[0].Transform.Data[:])
}

func TestImportHierarchyMultipliesTransforms(t *testing.T) {
	// The child's local transform applies before its parent's: the point
	// scales around the child origin, then takes the parent's offset.
	doc := positionTriangleDoc([]gltf.Node{
		{Translation: &[3]float32{1, 0, 0}, Children: []int{1}},
		{Mesh: intp(0), Scale: &[3]float32{2, 2, 2}},
	}, []int{0})

	var data MeshData
	require.NoError(t, MeshDataFromGLTFDocument("mesh", doc, &data))
	require.Len(t, data.Chunks, 1)

	moved := transformPoint(emath.NewVec3(1, 1, 1), data.Chunks[0].Transform)
	assert.InDelta(t, float32(3), moved.X, 1e-5)
	assert.InDelta(t, float32(2), moved.Y, 1e-5)
	assert.InDelta(t, float32(2), moved.Z, 1e-5)
}

func TestImportMultiplePrimitives(t *testing.T) {
	doc := positionTriangleDoc([]gltf.Node{{Mesh: intp(0)}}, []int{0})
	doc.Meshes[0].Primitives = append(doc.Meshes[0].Primitives, doc.Meshes[0].Primitives[0])

	var data MeshData
	require.NoError(t, MeshDataFromGLTFDocument("mesh", doc, &data))
	assert.Len(t, data.Chunks, 2)
}

func TestImportRejectsUnsupportedConstructs(t *testing.T) {
	fan := gltf.ModeTriangleFan
	cases := map[string]func(doc *gltf.Document){
		"missing indices": func(doc *gltf.Document) {
			doc.Meshes[0].Primitives[0].Indices = nil
		},
		"triangle fan": func(doc *gltf.Document) {
			doc.Meshes[0].Primitives[0].Mode = &fan
		},
		"missing position": func(doc *gltf.Document) {
			doc.Meshes[0].Primitives[0].Attributes = map[string]int{"TEXCOORD_0": 0}
		},
		"index out of vertex range": func(doc *gltf.Document) {
			raw := append(f32Buf(0, 0, 0, 1, 0, 0, 0, 1, 0), u16Buf(0, 1, 7)...)
			doc.Buffers[0].Data = raw
		},
		"float indices": func(doc *gltf.Document) {
			doc.Accessors[1].ComponentType = gltf.ComponentTypeFloat
			doc.Accessors[1].Count = 1
		},
		"node cycle": func(doc *gltf.Document) {
			doc.Nodes[0].Children = []int{0}
		},
		"scene out of range": func(doc *gltf.Document) {
			doc.Scene = intp(3)
		},
		"mesh index out of range": func(doc *gltf.Document) {
			doc.Nodes[0].Mesh = intp(9)
		},
	}

	for name, mutate := range cases {
		doc := positionTriangleDoc([]gltf.Node{{Mesh: intp(0)}}, []int{0})
		mutate(doc)

		var data MeshData
		err := MeshDataFromGLTFDocument("mesh", doc, &data)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, core.ErrMeshFormat, name)
	}
}

func TestImportRejectsAttributeCountMismatch(t *testing.T) {
	doc := positionTriangleDoc([]gltf.Node{{Mesh: intp(0)}}, []int{0})

	// A two-element texcoord accessor against a three-vertex position.
	raw := append(append(f32Buf(0, 0, 0, 1, 0, 0, 0, 1, 0), f32Buf(0, 0, 1, 1)...), u16Buf(0, 1, 2)...)
	doc.Buffers[0].Data = raw
	doc.Buffers[0].ByteLength = len(raw)
	doc.BufferViews = []gltf.BufferView{
		{Buffer: 0, ByteOffset: 0, ByteLength: 36},
		{Buffer: 0, ByteOffset: 36, ByteLength: 16},
		{Buffer: 0, ByteOffset: 52, ByteLength: 6},
	}
	doc.Accessors = []gltf.Accessor{
		{BufferView: intp(0), ComponentType: gltf.ComponentTypeFloat, Count: 3, Type: gltf.TypeVec3},
		{BufferView: intp(1), ComponentType: gltf.ComponentTypeFloat, Count: 2, Type: gltf.TypeVec2},
		{BufferView: intp(2), ComponentType: gltf.ComponentTypeUnsignedShort, Count: 3, Type: gltf.TypeScalar},
	}
	doc.Meshes[0].Primitives[0].Attributes = map[string]int{"POSITION": 0, "TEXCOORD_0": 1}
	doc.Meshes[0].Primitives[0].Indices = intp(2)

	var data MeshData
	err := MeshDataFromGLTFDocument("mesh", doc, &data)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMeshFormat)
}

func TestImportDuplicateNodeInScene(t *testing.T) {
	doc := positionTriangleDoc([]gltf.Node{{Mesh: intp(0)}}, []int{0, 0})

	var data MeshData
	err := MeshDataFromGLTFDocument("mesh", doc, &data)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMeshFormat)
}

func TestMeshDataFromGLTFFile(t *testing.T) {
	raw := append(f32Buf(0, 0, 0, 1, 0, 0, 0, 1, 0), u16Buf(0, 1, 2)...)
	document := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"scenes": [{"nodes": [0]}],
		"nodes": [{"mesh": 0}],
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "indices": 1}]}],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
		],
		"bufferViews": [
			{"buffer": 0, "byteLength": 36},
			{"buffer": 0, "byteOffset": 36, "byteLength": 6}
		],
		"buffers": [{"uri": "data:application/octet-stream;base64,%s", "byteLength": %d}]
	}`, base64.StdEncoding.EncodeToString(raw), len(raw))

	dir := t.TempDir()
	path := filepath.Join(dir, "triangle.gltf")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o644))

	var data MeshData
	require.NoError(t, MeshDataFromGLTF("mesh", path, &data))
	require.Len(t, data.Chunks, 1)
	assert.Equal(t, uint32(3), data.Chunks[0].NumVertices)
	assert.Equal(t, uint32(12), data.Chunks[0].VertexStride)

	err := MeshDataFromGLTF("mesh", filepath.Join(dir, "missing.gltf"), &data)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMeshFormat)
}
