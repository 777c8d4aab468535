package assets

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/patina/engine/core"
	emath "github.com/spaghettifunk/patina/engine/math"
	"github.com/spaghettifunk/patina/engine/renderer/metadata"
)

// testMeshChunk builds a 3-vertex triangle with interleaved position and
// texcoord0 data, the layout the GLTF importer produces.
func testMeshChunk() MeshDataChunk {
	const stride = 20
	vertices := make([]byte, 3*stride)
	for v := 0; v < 3; v++ {
		base := v * stride
		binary.LittleEndian.PutUint32(vertices[base:], math.Float32bits(float32(v)))
		binary.LittleEndian.PutUint32(vertices[base+4:], math.Float32bits(float32(v)*2))
		binary.LittleEndian.PutUint32(vertices[base+8:], math.Float32bits(float32(v)*3))
		binary.LittleEndian.PutUint32(vertices[base+12:], math.Float32bits(0.5))
		binary.LittleEndian.PutUint32(vertices[base+16:], math.Float32bits(1.0))
	}

	chunk := MeshDataChunk{
		VertexData:          vertices,
		VertexStride:        stride,
		NumVertices:         3,
		Indices:             []uint16{0, 1, 2},
		PrimitiveType:       metadata.PrimitiveTriangles,
		ComponentsAvailable: metadata.VBHasUV0,
		Transform:           emath.NewMat4Translation(emath.NewVec3(1.5, -0.25, 3.0)),
		MaterialName:        "mat_a",
	}
	chunk.VertexDeclaration.Stride = stride
	chunk.VertexDeclaration.Position = metadata.AttributeFormat{
		Format: metadata.ComponentFloat, Components: 3, Offset: 0, Enable: true,
	}
	chunk.VertexDeclaration.TexCoords[0] = metadata.AttributeFormat{
		Format: metadata.ComponentFloat, Components: 2, Offset: 12, Enable: true,
	}
	return chunk
}

func TestMeshBinaryRoundTripEmpty(t *testing.T) {
	empty := MeshData{}
	blob, err := MeshDataToBinary(&empty)
	require.NoError(t, err)
	assert.Len(t, blob, 8)

	var decoded MeshData
	require.NoError(t, MeshDataFromBinary("mesh", blob, &decoded))
	assert.Empty(t, decoded.Chunks)

	again, err := MeshDataToBinary(&decoded)
	require.NoError(t, err)
	assert.Equal(t, blob, again)
}

func TestMeshBinaryRoundTripSingleChunk(t *testing.T) {
	original := MeshData{Chunks: []MeshDataChunk{testMeshChunk()}}

	blob, err := MeshDataToBinary(&original)
	require.NoError(t, err)

	var decoded MeshData
	require.NoError(t, MeshDataFromBinary("mesh", blob, &decoded))
	assert.Equal(t, original.Chunks, decoded.Chunks)

	// Re-encoding the decoded mesh reproduces the blob byte for byte.
	again, err := MeshDataToBinary(&decoded)
	require.NoError(t, err)
	assert.Equal(t, blob, again)
}

func TestMeshBinaryRoundTripMultipleChunks(t *testing.T) {
	second := testMeshChunk()
	second.MaterialName = "mat_b"
	second.PrimitiveType = metadata.PrimitiveTriangleStrip
	second.Transform = emath.NewMat4Scale(emath.NewVec3(2, 2, 2))

	// A chunk may legitimately carry no geometry and no material binding.
	hollow := MeshDataChunk{
		Indices:       []uint16{},
		PrimitiveType: metadata.PrimitivePoints,
		Transform:     emath.NewMat4Identity(),
	}

	original := MeshData{Chunks: []MeshDataChunk{testMeshChunk(), second, hollow}}

	blob, err := MeshDataToBinary(&original)
	require.NoError(t, err)

	var decoded MeshData
	require.NoError(t, MeshDataFromBinary("mesh", blob, &decoded))
	require.Len(t, decoded.Chunks, 3)
	assert.Equal(t, original.Chunks, decoded.Chunks)

	again, err := MeshDataToBinary(&decoded)
	require.NoError(t, err)
	assert.Equal(t, blob, again)
}

func TestMeshBinaryTruncated(t *testing.T) {
	original := MeshData{Chunks: []MeshDataChunk{testMeshChunk()}}
	blob, err := MeshDataToBinary(&original)
	require.NoError(t, err)

	var decoded MeshData
	for _, cut := range []int{4, 8, 20, len(blob) / 2, len(blob) - 1} {
		err := MeshDataFromBinary("mesh", blob[:cut], &decoded)
		require.Error(t, err, "cut at %d", cut)
		assert.ErrorIs(t, err, core.ErrMeshFormat)
	}
}

func TestMeshBinaryTrailingBytes(t *testing.T) {
	original := MeshData{Chunks: []MeshDataChunk{testMeshChunk()}}
	blob, err := MeshDataToBinary(&original)
	require.NoError(t, err)

	var decoded MeshData
	err = MeshDataFromBinary("mesh", append(blob, 0x00), &decoded)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMeshFormat)
}

func TestMeshBinaryStrideDisagreement(t *testing.T) {
	chunk := testMeshChunk()
	chunk.VertexDeclaration.Stride = 16
	blob, err := MeshDataToBinary(&MeshData{Chunks: []MeshDataChunk{chunk}})
	require.NoError(t, err)

	var decoded MeshData
	err = MeshDataFromBinary("mesh", blob, &decoded)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMeshFormat)
}

func TestMeshBinaryUnknownPrimitive(t *testing.T) {
	chunk := testMeshChunk()
	chunk.PrimitiveType = metadata.PrimitiveType(99)
	blob, err := MeshDataToBinary(&MeshData{Chunks: []MeshDataChunk{chunk}})
	require.NoError(t, err)

	var decoded MeshData
	err = MeshDataFromBinary("mesh", blob, &decoded)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMeshFormat)
}

func TestMeshDataToBinaryRejectsBadVertexCount(t *testing.T) {
	chunk := testMeshChunk()
	chunk.NumVertices = 4

	_, err := MeshDataToBinary(&MeshData{Chunks: []MeshDataChunk{chunk}})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMeshFormat)
}

func TestMeshDataJSON(t *testing.T) {
	var data MeshData
	require.NoError(t, MeshDataFromJSON("mesh", []byte(`{
		"material_mapping": {"mat_a": "material_gold", "mat_b": ""}
	}`), &data))
	assert.Equal(t, map[string]string{"mat_a": "material_gold", "mat_b": ""}, data.MaterialMapping)

	// The mapping is optional but never left nil.
	require.NoError(t, MeshDataFromJSON("mesh", []byte(`{}`), &data))
	assert.NotNil(t, data.MaterialMapping)
	assert.Empty(t, data.MaterialMapping)

	err := MeshDataFromJSON("mesh", []byte(`[`), &data)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAssetParse)

	data.MaterialMapping = map[string]string{"mat_a": "material_gold"}
	document, err := MeshDataToJSON(&data)
	require.NoError(t, err)
	var parsed MeshData
	require.NoError(t, MeshDataFromJSON("mesh", document, &parsed))
	assert.Equal(t, data.MaterialMapping, parsed.MaterialMapping)
}
