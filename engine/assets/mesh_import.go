package assets

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/patina/engine/core"
	"github.com/spaghettifunk/patina/engine/gltf"
	emath "github.com/spaghettifunk/patina/engine/math"
	"github.com/spaghettifunk/patina/engine/renderer/metadata"
)

// The attributes a mesh chunk can carry, in the order their sizes accumulate
// into the vertex stride.
var meshAttributeNames = [12]string{
	"POSITION", "NORMAL", "COLOR_0", "COLOR_1", "TEXCOORD_0", "TEXCOORD_1",
	"TEXCOORD_2", "TEXCOORD_3", "TEXCOORD_4", "TEXCOORD_5", "TEXCOORD_6", "TEXCOORD_7",
}

// attributeFormatFromComponentType maps an interchange component type onto
// the portable declaration. Signed 32-bit data rides in the float format
// with the integer flag raised; double and unsigned 32-bit components have
// no portable representation.
func attributeFormatFromComponentType(componentType int, format *metadata.AttributeFormat) bool {
	switch componentType {
	case gltf.ComponentTypeByte:
		format.Format = metadata.ComponentByte
		format.Integer = false
	case gltf.ComponentTypeUnsignedByte:
		format.Format = metadata.ComponentUByte
		format.Integer = false
	case gltf.ComponentTypeShort:
		format.Format = metadata.ComponentShort
		format.Integer = false
	case gltf.ComponentTypeUnsignedShort:
		format.Format = metadata.ComponentUShort
		format.Integer = false
	case gltf.ComponentTypeFloat:
		format.Format = metadata.ComponentFloat
		format.Integer = false
	case gltf.ComponentTypeInt:
		format.Format = metadata.ComponentFloat
		format.Integer = true
	default:
		return false
	}
	return true
}

// buildMatrixFromNode bakes one node's local transform: an explicit matrix
// wins, otherwise the translation, rotation and scale components apply in
// that order.
func buildMatrixFromNode(node *gltf.Node) emath.Mat4 {
	if node.Matrix != nil {
		return emath.NewMat4FromSlice(node.Matrix[:])
	}

	matrix := emath.NewMat4Identity()
	if node.Translation != nil {
		matrix = matrix.Mul(emath.NewMat4Translation(emath.NewVec3(node.Translation[0], node.Translation[1], node.Translation[2])))
	}
	if node.Rotation != nil {
		q := emath.Quaternion{X: node.Rotation[0], Y: node.Rotation[1], Z: node.Rotation[2], W: node.Rotation[3]}
		// ToMat4 lays the rotation out for column vectors; row vectors
		// want the transpose.
		matrix = matrix.Mul(emath.NewMat4Transposed(q.ToMat4()))
	}
	if node.Scale != nil {
		matrix = matrix.Mul(emath.NewMat4Scale(emath.NewVec3(node.Scale[0], node.Scale[1], node.Scale[2])))
	}
	return matrix
}

func importGLTFPrimitive(assetID string, doc *gltf.Document, primitive *gltf.Primitive, transform emath.Mat4) (MeshDataChunk, error) {
	chunk := MeshDataChunk{Transform: transform}

	fail := func(err error) (MeshDataChunk, error) {
		err = fmt.Errorf("asset %s: %w", assetID, err)
		core.LogError(err.Error())
		return MeshDataChunk{}, err
	}

	if primitive.Indices == nil {
		return fail(fmt.Errorf("primitive is expected to have indices but doesn't have any: %w", core.ErrMeshFormat))
	}
	indexView, err := doc.AccessorView(*primitive.Indices)
	if err != nil {
		return fail(fmt.Errorf("%v: %w", err, core.ErrMeshFormat))
	}
	chunk.Indices = make([]uint16, indexView.Count)
	for i := range chunk.Indices {
		element := indexView.Element(i)
		switch indexView.ComponentType {
		case gltf.ComponentTypeUnsignedShort:
			chunk.Indices[i] = binary.LittleEndian.Uint16(element)
		case gltf.ComponentTypeUnsignedByte:
			chunk.Indices[i] = uint16(element[0])
		case gltf.ComponentTypeUnsignedInt:
			chunk.Indices[i] = uint16(binary.LittleEndian.Uint32(element))
		default:
			return fail(fmt.Errorf("unsupported index component type %d: %w", indexView.ComponentType, core.ErrMeshFormat))
		}
	}

	if primitive.Material != nil && *primitive.Material >= 0 && *primitive.Material < len(doc.Materials) {
		chunk.MaterialName = doc.Materials[*primitive.Material].Name
	}

	switch primitive.PrimitiveMode() {
	case gltf.ModeTriangles:
		chunk.PrimitiveType = metadata.PrimitiveTriangles
	case gltf.ModeTriangleStrip:
		chunk.PrimitiveType = metadata.PrimitiveTriangleStrip
	case gltf.ModeTriangleFan:
		return fail(fmt.Errorf("primitive requires triangle fan but that is not supported: %w", core.ErrMeshFormat))
	case gltf.ModeLines:
		chunk.PrimitiveType = metadata.PrimitiveLines
	case gltf.ModePoints:
		chunk.PrimitiveType = metadata.PrimitivePoints
	default:
		return fail(fmt.Errorf("primitive mode %d is not supported: %w", primitive.PrimitiveMode(), core.ErrMeshFormat))
	}

	views := make(map[string]*gltf.AccessorView)
	for _, name := range meshAttributeNames {
		accessorIndex, ok := primitive.Attributes[name]
		if !ok {
			continue
		}
		view, err := doc.AccessorView(accessorIndex)
		if err != nil {
			return fail(fmt.Errorf("attribute %s: %v: %w", name, err, core.ErrMeshFormat))
		}
		views[name] = view
		chunk.VertexStride += uint32(view.ElementSize)
	}
	chunk.VertexDeclaration.Stride = chunk.VertexStride

	positionView, ok := views["POSITION"]
	if !ok {
		return fail(fmt.Errorf("primitive does not provide a POSITION attribute, that is required: %w", core.ErrMeshFormat))
	}
	chunk.NumVertices = uint32(positionView.Count)
	for _, name := range meshAttributeNames {
		if view, present := views[name]; present && view.Count != positionView.Count {
			return fail(fmt.Errorf("attribute %s holds %d elements, POSITION holds %d: %w",
				name, view.Count, positionView.Count, core.ErrMeshFormat))
		}
	}
	chunk.VertexData = make([]byte, int(chunk.NumVertices)*int(chunk.VertexStride))

	outboundOffset := 0
	copyAttribute := func(view *gltf.AccessorView) {
		for i := 0; i < view.Count; i++ {
			dst := i*int(chunk.VertexStride) + outboundOffset
			copy(chunk.VertexData[dst:dst+view.ElementSize], view.Element(i))
		}
		outboundOffset += view.ElementSize
	}

	copyAttribute(positionView)
	chunk.ComponentsAvailable = 0
	chunk.VertexDeclaration.Position.Enable = true
	chunk.VertexDeclaration.Position.Components = 3
	chunk.VertexDeclaration.Position.Offset = 0
	if !attributeFormatFromComponentType(positionView.ComponentType, &chunk.VertexDeclaration.Position) {
		return fail(fmt.Errorf("invalid attribute format for POSITION: %w", core.ErrMeshFormat))
	}

	for i, name := range [2]string{"COLOR_0", "COLOR_1"} {
		view, present := views[name]
		if !present {
			chunk.VertexDeclaration.Colors[i].Enable = false
			continue
		}
		chunk.VertexDeclaration.Colors[i].Offset = uint32(outboundOffset)
		copyAttribute(view)
		chunk.ComponentsAvailable |= metadata.VBHasCol0 << i
		chunk.VertexDeclaration.Colors[i].Enable = true
		chunk.VertexDeclaration.Colors[i].Components = 3
		if !attributeFormatFromComponentType(view.ComponentType, &chunk.VertexDeclaration.Colors[i]) {
			return fail(fmt.Errorf("invalid attribute format for %s: %w", name, core.ErrMeshFormat))
		}
	}

	if view, present := views["NORMAL"]; present {
		chunk.VertexDeclaration.Normal.Offset = uint32(outboundOffset)
		copyAttribute(view)
		chunk.ComponentsAvailable |= metadata.VBHasNormal
		chunk.VertexDeclaration.Normal.Enable = true
		chunk.VertexDeclaration.Normal.Components = 3
		if !attributeFormatFromComponentType(view.ComponentType, &chunk.VertexDeclaration.Normal) {
			return fail(fmt.Errorf("invalid attribute format for NORMAL: %w", core.ErrMeshFormat))
		}
	} else {
		chunk.VertexDeclaration.Normal.Enable = false
	}

	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("TEXCOORD_%d", i)
		view, present := views[name]
		if !present {
			chunk.VertexDeclaration.TexCoords[i].Enable = false
			continue
		}
		chunk.VertexDeclaration.TexCoords[i].Offset = uint32(outboundOffset)
		copyAttribute(view)
		chunk.ComponentsAvailable |= metadata.VBHasUV0 << i
		chunk.VertexDeclaration.TexCoords[i].Enable = true
		chunk.VertexDeclaration.TexCoords[i].Components = 2
		if !attributeFormatFromComponentType(view.ComponentType, &chunk.VertexDeclaration.TexCoords[i]) {
			return fail(fmt.Errorf("invalid attribute format for %s: %w", name, core.ErrMeshFormat))
		}
	}

	// Position matrix indices can be enabled later if the draw consuming
	// this mesh needs them.
	chunk.VertexDeclaration.PosMtx.Enable = false

	for _, index := range chunk.Indices {
		if uint32(index) >= chunk.NumVertices {
			return fail(fmt.Errorf("index %d is out of range for %d vertices: %w", index, chunk.NumVertices, core.ErrMeshFormat))
		}
	}

	return chunk, nil
}

func importGLTFNodes(assetID string, doc *gltf.Document, nodeIndex int, transform emath.Mat4, data *MeshData, visited map[int]bool) error {
	if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
		err := fmt.Errorf("asset %s: node index %d out of range: %w", assetID, nodeIndex, core.ErrMeshFormat)
		core.LogError(err.Error())
		return err
	}
	if visited[nodeIndex] {
		err := fmt.Errorf("asset %s: node %d appears twice in the hierarchy: %w", assetID, nodeIndex, core.ErrMeshFormat)
		core.LogError(err.Error())
		return err
	}
	visited[nodeIndex] = true

	node := &doc.Nodes[nodeIndex]
	if node.Mesh != nil {
		if *node.Mesh < 0 || *node.Mesh >= len(doc.Meshes) {
			err := fmt.Errorf("asset %s: mesh index %d out of range: %w", assetID, *node.Mesh, core.ErrMeshFormat)
			core.LogError(err.Error())
			return err
		}
		mesh := &doc.Meshes[*node.Mesh]
		for i := range mesh.Primitives {
			chunk, err := importGLTFPrimitive(assetID, doc, &mesh.Primitives[i], transform)
			if err != nil {
				return err
			}
			data.Chunks = append(data.Chunks, chunk)
		}
	}

	for _, childIndex := range node.Children {
		if childIndex < 0 || childIndex >= len(doc.Nodes) {
			err := fmt.Errorf("asset %s: child node index %d out of range: %w", assetID, childIndex, core.ErrMeshFormat)
			core.LogError(err.Error())
			return err
		}
		// Row vector convention: the child's local transform applies before
		// everything accumulated above it.
		childTransform := buildMatrixFromNode(&doc.Nodes[childIndex]).Mul(transform)
		if err := importGLTFNodes(assetID, doc, childIndex, childTransform, data, visited); err != nil {
			return err
		}
	}
	return nil
}

/**
 * @brief Imports mesh chunks from a parsed interchange document: the default
 * scene's node hierarchy is walked with transforms accumulating top down,
 * every mesh primitive becomes one chunk, and every source material gets an
 * empty mapping entry for the author to bind. Any unsupported construct
 * fails the import outright with no partial mesh.
 */
func MeshDataFromGLTFDocument(assetID string, doc *gltf.Document, data *MeshData) error {
	sceneIndex := 0
	if doc.Scene != nil {
		sceneIndex = *doc.Scene
	}
	if sceneIndex < 0 || sceneIndex >= len(doc.Scenes) {
		err := fmt.Errorf("asset %s: scene index %d out of range: %w", assetID, sceneIndex, core.ErrMeshFormat)
		core.LogError(err.Error())
		return err
	}

	imported := MeshData{MaterialMapping: make(map[string]string)}
	visited := make(map[int]bool)
	for _, nodeIndex := range doc.Scenes[sceneIndex].Nodes {
		if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
			err := fmt.Errorf("asset %s: scene node index %d out of range: %w", assetID, nodeIndex, core.ErrMeshFormat)
			core.LogError(err.Error())
			return err
		}
		transform := buildMatrixFromNode(&doc.Nodes[nodeIndex])
		if err := importGLTFNodes(assetID, doc, nodeIndex, transform, &imported, visited); err != nil {
			return err
		}
	}

	for i := range doc.Materials {
		imported.MaterialMapping[doc.Materials[i].Name] = ""
	}

	*data = imported
	return nil
}

/**
 * @brief Imports a .gltf or .glb file into mesh chunks.
 */
func MeshDataFromGLTF(assetID, path string, data *MeshData) error {
	doc, err := gltf.Open(path)
	if err != nil {
		err = fmt.Errorf("asset %s: %v: %w", assetID, err, core.ErrMeshFormat)
		core.LogError(err.Error())
		return err
	}
	return MeshDataFromGLTFDocument(assetID, doc, data)
}
