package assets

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/patina/engine/core"
)

func TestParseMaterialPropertyType(t *testing.T) {
	cases := map[string]MaterialPropertyType{
		"texture_asset": MaterialPropertyTextureAsset,
		"int":           MaterialPropertyInt,
		"int2":          MaterialPropertyInt2,
		"int3":          MaterialPropertyInt3,
		"int4":          MaterialPropertyInt4,
		"float":         MaterialPropertyFloat,
		"float2":        MaterialPropertyFloat2,
		"float3":        MaterialPropertyFloat3,
		"float4":        MaterialPropertyFloat4,
		"bool":          MaterialPropertyBool,
	}
	for name, expected := range cases {
		parsed, err := ParseMaterialPropertyType(name)
		require.NoError(t, err)
		assert.Equal(t, expected, parsed)
		assert.Equal(t, name, parsed.String())
	}

	// Matching ignores case.
	parsed, err := ParseMaterialPropertyType("Float3")
	require.NoError(t, err)
	assert.Equal(t, MaterialPropertyFloat3, parsed)

	_, err = ParseMaterialPropertyType("matrix4")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAssetParse)
}

func TestElementCount(t *testing.T) {
	assert.Equal(t, 0, MaterialPropertyTextureAsset.ElementCount())
	assert.Equal(t, 0, MaterialPropertyUndefined.ElementCount())
	assert.Equal(t, 1, MaterialPropertyInt.ElementCount())
	assert.Equal(t, 1, MaterialPropertyFloat.ElementCount())
	assert.Equal(t, 1, MaterialPropertyBool.ElementCount())
	assert.Equal(t, 2, MaterialPropertyFloat2.ElementCount())
	assert.Equal(t, 3, MaterialPropertyInt3.ElementCount())
	assert.Equal(t, 4, MaterialPropertyFloat4.ElementCount())
}

func TestWriteValueSlotFloat3(t *testing.T) {
	dst := make([]byte, PropertySlotSize)
	n := writeValueSlot(dst, Float3Value{1.0, 2.0, 3.0})
	assert.Equal(t, PropertySlotSize, n)

	assert.Equal(t, math.Float32bits(1.0), binary.LittleEndian.Uint32(dst[0:]))
	assert.Equal(t, math.Float32bits(2.0), binary.LittleEndian.Uint32(dst[4:]))
	assert.Equal(t, math.Float32bits(3.0), binary.LittleEndian.Uint32(dst[8:]))
	// The unused lane stays zero.
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(dst[12:]))
}

func TestWriteValueSlotClearsStaleBytes(t *testing.T) {
	dst := make([]byte, PropertySlotSize)
	for i := range dst {
		dst[i] = 0xAB
	}
	n := writeValueSlot(dst, FloatValue(1.0))
	assert.Equal(t, PropertySlotSize, n)
	assert.Equal(t, math.Float32bits(1.0), binary.LittleEndian.Uint32(dst[0:]))
	for i := 4; i < PropertySlotSize; i++ {
		assert.Equal(t, byte(0), dst[i])
	}
}

func TestWriteValueSlotInt(t *testing.T) {
	dst := make([]byte, PropertySlotSize)
	writeValueSlot(dst, IntValue(-1))
	assert.Equal(t, uint32(0xFFFFFFFF), binary.LittleEndian.Uint32(dst[0:]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(dst[4:]))

	writeValueSlot(dst, Int4Value{1, 2, 3, 4})
	for i := 0; i < 4; i++ {
		assert.Equal(t, uint32(i+1), binary.LittleEndian.Uint32(dst[i*4:]))
	}
}

func TestWriteValueSlotBool(t *testing.T) {
	dst := make([]byte, PropertySlotSize)
	writeValueSlot(dst, BoolValue(true))
	assert.Equal(t, byte(1), dst[0])
	for i := 1; i < PropertySlotSize; i++ {
		assert.Equal(t, byte(0), dst[i])
	}

	writeValueSlot(dst, BoolValue(false))
	for i := 0; i < PropertySlotSize; i++ {
		assert.Equal(t, byte(0), dst[i])
	}
}

func TestWriteValueSlotTextureWritesNothing(t *testing.T) {
	dst := make([]byte, PropertySlotSize)
	for i := range dst {
		dst[i] = 0xCD
	}
	n := writeValueSlot(dst, TextureAssetValue("some_texture"))
	assert.Equal(t, 0, n)
	for i := range dst {
		assert.Equal(t, byte(0xCD), dst[i])
	}
}

func TestParsePropertyValue(t *testing.T) {
	v, err := parsePropertyValue("mat", "tint", MaterialPropertyFloat3, json.RawMessage(`[1.0, 0.5, 0.25]`))
	require.NoError(t, err)
	assert.Equal(t, Float3Value{1.0, 0.5, 0.25}, v)

	v, err = parsePropertyValue("mat", "tex", MaterialPropertyTextureAsset, json.RawMessage(`"albedo_texture"`))
	require.NoError(t, err)
	assert.Equal(t, TextureAssetValue("albedo_texture"), v)

	v, err = parsePropertyValue("mat", "lit", MaterialPropertyBool, json.RawMessage(`true`))
	require.NoError(t, err)
	assert.Equal(t, BoolValue(true), v)

	// The element count must match the declared type exactly.
	_, err = parsePropertyValue("mat", "tint", MaterialPropertyFloat3, json.RawMessage(`[1.0, 0.5]`))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAssetParse)

	_, err = parsePropertyValue("mat", "count", MaterialPropertyInt, json.RawMessage(`"three"`))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAssetParse)

	_, err = parsePropertyValue("mat", "broken", MaterialPropertyUndefined, json.RawMessage(`1`))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAssetParse)
}

func TestPropertyValueTags(t *testing.T) {
	assert.Equal(t, MaterialPropertyTextureAsset, TextureAssetValue("x").PropertyType())
	assert.Equal(t, MaterialPropertyInt2, Int2Value{}.PropertyType())
	assert.Equal(t, MaterialPropertyFloat4, Float4Value{}.PropertyType())
	assert.Equal(t, MaterialPropertyBool, BoolValue(false).PropertyType())
}
