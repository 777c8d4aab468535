package testbed

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/patina/engine/assets"
	"github.com/spaghettifunk/patina/engine/core"
	"github.com/spaghettifunk/patina/engine/gltf"
	emath "github.com/spaghettifunk/patina/engine/math"
	"github.com/spaghettifunk/patina/engine/renderer/metadata"
)

const demoManifest = `{
  "assets": [
    { "name": "mat_rust", "data": { "metadata": "materials/rust.json" } },
    { "name": "shader_detail_blend", "data": { "metadata": "shaders/detail_blend.json", "shader": "shaders/detail_blend.glsl" } },
    { "name": "tex_rust_base", "data": { "texture": "textures/rust_base.png" } },
    { "name": "tex_rust_detail", "data": { "texture": "textures/rust_detail.png" } },
    { "name": "mesh_quad", "data": { "blob": "meshes/quad.bin", "metadata": "meshes/quad.json" } },
    { "name": "mesh_triangle", "data": { "blob": "meshes/triangle.bin", "metadata": "meshes/triangle.json" } }
  ]
}
`

const demoMaterial = `{
  "shader_asset": "shader_detail_blend",
  "values": [
    { "code_name": "BASE_TEX", "type": "texture_asset", "value": "tex_rust_base" },
    { "code_name": "DETAIL_TEX", "type": "texture_asset", "value": "tex_rust_detail" },
    { "code_name": "blend_strength", "type": "float", "value": 0.75 },
    { "code_name": "tint", "type": "float4", "value": [1.0, 0.92, 0.85, 1.0] }
  ]
}
`

const demoShaderDocument = `{
  "properties": [
    { "code_name": "BASE_TEX", "type": "samplerarrayshared_main", "description": "Base albedo layer." },
    { "code_name": "DETAIL_TEX", "type": "samplerarrayshared_additional", "description": "Weathering detail blended over the base." },
    { "code_name": "blend_strength", "type": "float", "description": "Detail layer weight." },
    { "code_name": "tint", "type": "rgba" }
  ]
}
`

const demoShaderSource = `#define DETAIL_SCALE 2.0

float3 apply_tint(float3 base_color)
{
	return base_color * tint.rgb;
}

float4 custom_main(in CustomShaderData data)
{
	float3 base_color = texture(samp[BASE_TEX_UNIT], BASE_TEX_COORD).rgb;
	float3 detail = texture(samp[DETAIL_TEX_UNIT], DETAIL_TEX_COORD).rgb;
	float3 blended = mix(base_color, detail / DETAIL_SCALE, blend_strength);
	return float4(apply_tint(blended), tint.a);
}
`

// One triangle, positions plus one texture coordinate set, all packed into
// an embedded buffer so the document needs no sibling files.
const triangleGLTFTemplate = `{
  "asset": { "version": "2.0" },
  "scene": 0,
  "scenes": [{ "nodes": [0] }],
  "nodes": [{ "mesh": 0 }],
  "meshes": [{ "primitives": [{ "attributes": { "POSITION": 0, "TEXCOORD_0": 1 }, "indices": 2, "mode": 4, "material": 0 }] }],
  "materials": [{ "name": "tri_surface" }],
  "accessors": [
    { "bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3" },
    { "bufferView": 1, "componentType": 5126, "count": 3, "type": "VEC2" },
    { "bufferView": 2, "componentType": 5123, "count": 3, "type": "SCALAR" }
  ],
  "bufferViews": [
    { "buffer": 0, "byteOffset": 0, "byteLength": 36 },
    { "buffer": 0, "byteOffset": 36, "byteLength": 24 },
    { "buffer": 0, "byteOffset": 60, "byteLength": 6 }
  ],
  "buffers": [{ "uri": "data:application/octet-stream;base64,%s", "byteLength": %d }]
}
`

const (
	demoTextureSize = 64
	demoTextureCell = 8
)

/**
 * @brief SeedLibrary writes the demo asset library under root: the manifest,
 * one material, the shader it references, the two textures it samples and a
 * pair of meshes (one authored in code, one imported from an embedded glTF
 * document). Existing files are overwritten so edits left over from a
 * previous run do not leak into the next one.
 */
func SeedLibrary(root string) error {
	if err := writeLibraryFile(root, assets.LibraryManifestName, []byte(demoManifest)); err != nil {
		return err
	}
	if err := writeLibraryFile(root, "materials/rust.json", []byte(demoMaterial)); err != nil {
		return err
	}
	if err := writeLibraryFile(root, "shaders/detail_blend.json", []byte(demoShaderDocument)); err != nil {
		return err
	}
	if err := writeLibraryFile(root, "shaders/detail_blend.glsl", []byte(demoShaderSource)); err != nil {
		return err
	}
	// The two layers must agree on dimensions or the pass stays suppressed.
	rustDark := color.RGBA{R: 139, G: 69, B: 19, A: 255}
	rustLight := color.RGBA{R: 160, G: 82, B: 45, A: 255}
	if err := writeCheckerTexture(root, "textures/rust_base.png", rustDark, rustLight); err != nil {
		return err
	}
	grayDark := color.RGBA{R: 105, G: 105, B: 105, A: 255}
	grayLight := color.RGBA{R: 169, G: 169, B: 169, A: 255}
	if err := writeCheckerTexture(root, "textures/rust_detail.png", grayDark, grayLight); err != nil {
		return err
	}
	if err := writeQuadMesh(root); err != nil {
		return err
	}
	if err := writeTriangleMesh(root); err != nil {
		return err
	}
	core.LogInfo("demo library seeded at %s", root)
	return nil
}

func writeLibraryFile(root, relPath string, data []byte) error {
	path := filepath.Join(root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		err = fmt.Errorf("failed to create directory for %s: %v", path, err)
		core.LogError(err.Error())
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		err = fmt.Errorf("failed to write %s: %v", path, err)
		core.LogError(err.Error())
		return err
	}
	return nil
}

func writeCheckerTexture(root, relPath string, a, b color.RGBA) error {
	img := image.NewRGBA(image.Rect(0, 0, demoTextureSize, demoTextureSize))
	for y := 0; y < demoTextureSize; y++ {
		for x := 0; x < demoTextureSize; x++ {
			if ((x/demoTextureCell)+(y/demoTextureCell))%2 == 0 {
				img.SetRGBA(x, y, a)
			} else {
				img.SetRGBA(x, y, b)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		err = fmt.Errorf("failed to encode %s: %v", relPath, err)
		core.LogError(err.Error())
		return err
	}
	return writeLibraryFile(root, relPath, buf.Bytes())
}

// A unit quad in the XY plane, position plus one texture coordinate set.
func buildQuadMesh() *assets.MeshData {
	vertices := packFloats([]float32{
		-0.5, -0.5, 0, 0, 0,
		0.5, -0.5, 0, 1, 0,
		-0.5, 0.5, 0, 0, 1,
		0.5, 0.5, 0, 1, 1,
	})

	var decl metadata.PortableVertexDeclaration
	decl.Stride = 20
	decl.Position = metadata.AttributeFormat{Format: metadata.ComponentFloat, Components: 3, Offset: 0, Enable: true}
	decl.TexCoords[0] = metadata.AttributeFormat{Format: metadata.ComponentFloat, Components: 2, Offset: 12, Enable: true}

	chunk := assets.MeshDataChunk{
		VertexData:          vertices,
		VertexStride:        20,
		NumVertices:         4,
		Indices:             []uint16{0, 1, 2, 2, 1, 3},
		VertexDeclaration:   decl,
		PrimitiveType:       metadata.PrimitiveTriangles,
		ComponentsAvailable: metadata.VBHasUV0,
		Transform:           emath.NewMat4Identity(),
		MaterialName:        "rust_surface",
	}
	return &assets.MeshData{
		Chunks:          []assets.MeshDataChunk{chunk},
		MaterialMapping: map[string]string{"rust_surface": "mat_rust"},
	}
}

func writeQuadMesh(root string) error {
	data := buildQuadMesh()
	blob, err := assets.MeshDataToBinary(data)
	if err != nil {
		return err
	}
	sidecar, err := assets.MeshDataToJSON(data)
	if err != nil {
		return err
	}
	if err := writeLibraryFile(root, "meshes/quad.bin", blob); err != nil {
		return err
	}
	return writeLibraryFile(root, "meshes/quad.json", sidecar)
}

func buildTriangleGLTF() []byte {
	positions := packFloats([]float32{
		0, 0.5, 0,
		-0.5, -0.5, 0,
		0.5, -0.5, 0,
	})
	texcoords := packFloats([]float32{
		0.5, 0,
		0, 1,
		1, 1,
	})
	indices := make([]byte, 6)
	binary.LittleEndian.PutUint16(indices[0:], 0)
	binary.LittleEndian.PutUint16(indices[2:], 1)
	binary.LittleEndian.PutUint16(indices[4:], 2)

	var buffer bytes.Buffer
	buffer.Write(positions)
	buffer.Write(texcoords)
	buffer.Write(indices)

	document := fmt.Sprintf(triangleGLTFTemplate,
		base64.StdEncoding.EncodeToString(buffer.Bytes()), buffer.Len())
	return []byte(document)
}

// Runs the interchange import path end to end, then binds the imported
// material name the way an author would after an import.
func writeTriangleMesh(root string) error {
	doc, err := gltf.Parse(buildTriangleGLTF(), root)
	if err != nil {
		err = fmt.Errorf("failed to parse the demo triangle document: %v", err)
		core.LogError(err.Error())
		return err
	}
	var data assets.MeshData
	if err := assets.MeshDataFromGLTFDocument("mesh_triangle", doc, &data); err != nil {
		return err
	}
	data.MaterialMapping["tri_surface"] = "mat_rust"

	blob, err := assets.MeshDataToBinary(&data)
	if err != nil {
		return err
	}
	sidecar, err := assets.MeshDataToJSON(&data)
	if err != nil {
		return err
	}
	if err := writeLibraryFile(root, "meshes/triangle.bin", blob); err != nil {
		return err
	}
	return writeLibraryFile(root, "meshes/triangle.json", sidecar)
}

func packFloats(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
