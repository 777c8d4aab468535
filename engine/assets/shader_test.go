package assets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/patina/engine/core"
)

func TestParseShaderPropertyType(t *testing.T) {
	cases := map[string]ShaderPropertyType{
		"sampler2d":                     ShaderPropertySampler2D,
		"samplerarrayshared_main":       ShaderPropertySamplerArraySharedMain,
		"samplerarrayshared_additional": ShaderPropertySamplerArraySharedAdditional,
		"int":                           ShaderPropertyInt,
		"int2":                          ShaderPropertyInt2,
		"int3":                          ShaderPropertyInt3,
		"int4":                          ShaderPropertyInt4,
		"float":                         ShaderPropertyFloat,
		"float2":                        ShaderPropertyFloat2,
		"float3":                        ShaderPropertyFloat3,
		"float4":                        ShaderPropertyFloat4,
		"rgb":                           ShaderPropertyRGB,
		"rgba":                          ShaderPropertyRGBA,
		"bool":                          ShaderPropertyBool,
	}
	for name, expected := range cases {
		parsed, err := ParseShaderPropertyType(name)
		require.NoError(t, err)
		assert.Equal(t, expected, parsed)
		assert.Equal(t, name, parsed.String())
	}

	parsed, err := ParseShaderPropertyType("Sampler2D")
	require.NoError(t, err)
	assert.Equal(t, ShaderPropertySampler2D, parsed)

	_, err = ParseShaderPropertyType("cubemap")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAssetParse)
}

func TestIsSampler(t *testing.T) {
	assert.True(t, ShaderPropertySampler2D.IsSampler())
	assert.True(t, ShaderPropertySamplerArraySharedMain.IsSampler())
	assert.True(t, ShaderPropertySamplerArraySharedAdditional.IsSampler())
	assert.False(t, ShaderPropertyFloat3.IsSampler())
	assert.False(t, ShaderPropertyRGBA.IsSampler())
	assert.False(t, ShaderPropertyBool.IsSampler())
}

func TestMaterialTypeMapping(t *testing.T) {
	// Color hints share the layout of their vector types.
	assert.Equal(t, MaterialPropertyFloat3, ShaderPropertyRGB.MaterialType())
	assert.Equal(t, MaterialPropertyFloat4, ShaderPropertyRGBA.MaterialType())

	// Every sampler kind binds a texture asset reference.
	assert.Equal(t, MaterialPropertyTextureAsset, ShaderPropertySampler2D.MaterialType())
	assert.Equal(t, MaterialPropertyTextureAsset, ShaderPropertySamplerArraySharedMain.MaterialType())
	assert.Equal(t, MaterialPropertyTextureAsset, ShaderPropertySamplerArraySharedAdditional.MaterialType())

	assert.Equal(t, MaterialPropertyInt3, ShaderPropertyInt3.MaterialType())
	assert.Equal(t, MaterialPropertyFloat2, ShaderPropertyFloat2.MaterialType())
	assert.Equal(t, MaterialPropertyBool, ShaderPropertyBool.MaterialType())
	assert.Equal(t, MaterialPropertyUndefined, ShaderPropertyUndefined.MaterialType())
}

func shaderCodeFor(property ShaderProperty) string {
	var out strings.Builder
	property.WriteAsShaderCode(&out)
	return out.String()
}

func TestWriteAsShaderCode(t *testing.T) {
	assert.Equal(t,
		"float3 albedo;\nfloat albedo_padding_4;\n",
		shaderCodeFor(ShaderProperty{CodeName: "albedo", Type: ShaderPropertyFloat3}))

	assert.Equal(t,
		"float gloss;\nfloat gloss_padding_2;\nfloat gloss_padding_3;\nfloat gloss_padding_4;\n",
		shaderCodeFor(ShaderProperty{CodeName: "gloss", Type: ShaderPropertyFloat}))

	assert.Equal(t,
		"int2 tiles;\nint tiles_padding_3;\nint tiles_padding_4;\n",
		shaderCodeFor(ShaderProperty{CodeName: "tiles", Type: ShaderPropertyInt2}))

	// Four lanes fill the slot, no padding follows.
	assert.Equal(t,
		"float4 tint;\n",
		shaderCodeFor(ShaderProperty{CodeName: "tint", Type: ShaderPropertyRGBA}))

	assert.Equal(t,
		"bool lit;\nbool lit_padding_2;\nbool lit_padding_3;\nbool lit_padding_4;\n",
		shaderCodeFor(ShaderProperty{CodeName: "lit", Type: ShaderPropertyBool}))

	// Samplers bind as separate resources, never as uniforms.
	assert.Equal(t, "", shaderCodeFor(ShaderProperty{CodeName: "tex", Type: ShaderPropertySampler2D}))
}

func TestShaderPropertySet(t *testing.T) {
	var set ShaderPropertySet
	require.NoError(t, set.Add(ShaderProperty{CodeName: "albedo", Type: ShaderPropertyRGB}))
	require.NoError(t, set.Add(ShaderProperty{CodeName: "gloss", Type: ShaderPropertyFloat}))
	require.NoError(t, set.Add(ShaderProperty{CodeName: "tex", Type: ShaderPropertySampler2D}))
	assert.Equal(t, 3, set.Len())

	err := set.Add(ShaderProperty{CodeName: "gloss", Type: ShaderPropertyInt})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAssetParse)
	assert.Equal(t, 3, set.Len())

	property, ok := set.Get("gloss")
	assert.True(t, ok)
	assert.Equal(t, ShaderPropertyFloat, property.Type)

	_, ok = set.Get("missing")
	assert.False(t, ok)

	// Declaration order is preserved.
	names := make([]string, 0, set.Len())
	for _, p := range set.Properties() {
		names = append(names, p.CodeName)
	}
	assert.Equal(t, []string{"albedo", "gloss", "tex"}, names)
}

func TestPixelShaderDataFromJSON(t *testing.T) {
	document := []byte(`{
		"properties": [
			{"code_name": "albedo", "type": "rgb", "description": "base color"},
			{"code_name": "gloss", "type": "float"},
			{"code_name": "main_tex", "type": "samplerarrayshared_main"}
		]
	}`)

	var data PixelShaderData
	require.NoError(t, PixelShaderDataFromJSON("shader", document, &data))
	require.Equal(t, 3, data.Properties.Len())

	albedo, ok := data.Properties.Get("albedo")
	require.True(t, ok)
	assert.Equal(t, ShaderPropertyRGB, albedo.Type)
	assert.Equal(t, "base color", albedo.Description)

	mainTex, ok := data.Properties.Get("main_tex")
	require.True(t, ok)
	assert.True(t, mainTex.Type.IsSampler())
}

func TestPixelShaderDataFromJSONErrors(t *testing.T) {
	var data PixelShaderData

	err := PixelShaderDataFromJSON("shader", []byte(`{"properties": [{"type": "float"}]}`), &data)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAssetParse)

	err = PixelShaderDataFromJSON("shader", []byte(`{"properties": [{"code_name": "a", "type": "vec5"}]}`), &data)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAssetParse)

	err = PixelShaderDataFromJSON("shader", []byte(`{
		"properties": [
			{"code_name": "a", "type": "float"},
			{"code_name": "a", "type": "int"}
		]
	}`), &data)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAssetParse)

	err = PixelShaderDataFromJSON("shader", []byte(`{"properties": [`), &data)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAssetParse)
}

func TestPixelShaderDataRoundTrip(t *testing.T) {
	var data PixelShaderData
	require.NoError(t, data.Properties.Add(ShaderProperty{CodeName: "tint", Type: ShaderPropertyRGBA, Description: "output tint"}))
	require.NoError(t, data.Properties.Add(ShaderProperty{CodeName: "strength", Type: ShaderPropertyFloat}))

	document, err := PixelShaderDataToJSON(&data)
	require.NoError(t, err)

	var parsed PixelShaderData
	require.NoError(t, PixelShaderDataFromJSON("shader", document, &parsed))
	assert.Equal(t, data.Properties.Properties(), parsed.Properties.Properties())
}
