package pipeline

import (
	"fmt"

	"github.com/spaghettifunk/patina/engine/assets"
	emath "github.com/spaghettifunk/patina/engine/math"
	"github.com/spaghettifunk/patina/engine/renderer"
)

/**
 * @brief One drawable unit derived from a mesh chunk: the backend-compiled
 * vertex format, the texture coordinate sets the chunk enables, the fully
 * baked transform and the pixel pipeline that shades it.
 */
type RenderChunk struct {
	/** @brief The backend's handle for the chunk's vertex layout. */
	NativeFormat renderer.NativeVertexFormat
	/** @brief Indices of the texture coordinate sets the chunk carries. */
	TexUnits []uint32
	/** @brief Pass transform times the chunk's authored transform. */
	Transform emath.Mat4
	/** @brief The source material name the chunk was authored against. */
	MaterialName string
	/** @brief The pixel pipeline shading this chunk. */
	Pipeline *Pipeline
}

/**
 * @brief Drives one mesh asset through the render backend. The pass keeps a
 * shared handle on the mesh and rebuilds its render chunks whenever the
 * geometry reloads, the pass is pointed at a different asset or its transform
 * changes. Each chunk gets its own pixel pipeline, refreshed on every update
 * through the material mapping the mesh was authored with.
 */
type MeshPass struct {
	meshAssetID string

	mesh assets.CachedAsset[assets.MeshData]
	// Chunks slice into this snapshot's vertex buffers; holding it keeps
	// them alive across reloads of the underlying handle.
	meshData *assets.MeshData

	scale       float32
	rotation    emath.Vec3
	translation emath.Vec3

	transformChanged bool
	meshChanged      bool

	chunks   []RenderChunk
	rebuilds uint64
}

func NewMeshPass(meshAssetID string) *MeshPass {
	return &MeshPass{
		meshAssetID: meshAssetID,
		scale:       1.0,
	}
}

/** @brief Points the pass at a different mesh asset. */
func (mp *MeshPass) SetMeshAsset(assetID string) {
	if assetID == mp.meshAssetID {
		return
	}
	mp.meshAssetID = assetID
	mp.meshChanged = true
}

/** @brief Sets the uniform scale baked into every chunk transform. */
func (mp *MeshPass) SetScale(scale float32) {
	mp.scale = scale
	mp.transformChanged = true
}

/** @brief Sets the pass rotation as x, y and z angles in radians. */
func (mp *MeshPass) SetRotation(radians emath.Vec3) {
	mp.rotation = radians
	mp.transformChanged = true
}

/** @brief Sets the pass translation. */
func (mp *MeshPass) SetTranslation(translation emath.Vec3) {
	mp.translation = translation
	mp.transformChanged = true
}

/**
 * @brief Brings the pass up to date with its mesh asset. Render chunks are
 * rebuilt when the asset reloaded underneath the pass, the asset binding or
 * the transform changed; afterwards every chunk's pixel pipeline is updated
 * against the material asset its source material name maps to. A failed
 * rebuild leaves the previous chunks in place and is retried on the next
 * update.
 */
func (mp *MeshPass) Update(loader *assets.AssetLoader, backend renderer.RendererBackend) error {
	if mp.meshAssetID == "" {
		return nil
	}

	if mp.mesh.Asset == nil || mp.mesh.Asset.AssetID() != mp.meshAssetID {
		mp.mesh = assets.CachedAsset[assets.MeshData]{Asset: loader.GetMesh(mp.meshAssetID)}
	}

	meshData := mp.mesh.Asset.Data()
	if meshData == nil {
		return fmt.Errorf("mesh asset '%s' has no loaded data", mp.meshAssetID)
	}

	if mp.mesh.Stale() || mp.transformChanged || mp.meshChanged {
		if err := mp.rebuildChunks(meshData, backend); err != nil {
			return err
		}
		mp.meshData = meshData
		mp.mesh.MarkFresh()
		mp.transformChanged = false
		mp.meshChanged = false
		mp.rebuilds++
	}

	for i := range mp.chunks {
		chunk := &mp.chunks[i]
		materialAssetID := mp.meshData.MaterialMapping[chunk.MaterialName]
		chunk.Pipeline.UpdatePixelData(loader, materialAssetID, chunk.samplingUnit())
	}
	return nil
}

// samplingUnit is the texture coordinate set compositions sample from. The
// first set the chunk enables wins; a chunk without texture coordinates
// still composes against set zero.
func (c *RenderChunk) samplingUnit() uint32 {
	if len(c.TexUnits) > 0 {
		return c.TexUnits[0]
	}
	return 0
}

func (mp *MeshPass) rebuildChunks(meshData *assets.MeshData, backend renderer.RendererBackend) error {
	// Row vector convention: the chunk's authored transform applies first,
	// then the pass scale, rotation and translation.
	scale := emath.NewMat4Scale(emath.NewVec3(mp.scale, mp.scale, mp.scale))
	rotation := emath.NewMat4EulerXYZ(mp.rotation.X, mp.rotation.Y, mp.rotation.Z)
	passTransform := scale.Mul(rotation).Mul(emath.NewMat4Translation(mp.translation))

	chunks := make([]RenderChunk, 0, len(meshData.Chunks))
	for i := range meshData.Chunks {
		meshChunk := &meshData.Chunks[i]

		// Copy so the backend never aliases the asset's declaration.
		declaration := meshChunk.VertexDeclaration
		nativeFormat, err := backend.CreateNativeVertexFormat(&declaration)
		if err != nil {
			return fmt.Errorf("mesh asset '%s' chunk %d: %w", mp.meshAssetID, i, err)
		}

		chunk := RenderChunk{
			NativeFormat: nativeFormat,
			Transform:    meshChunk.Transform.Mul(passTransform),
			MaterialName: meshChunk.MaterialName,
			Pipeline:     NewPipeline(),
		}
		for unit := range declaration.TexCoords {
			if declaration.TexCoords[unit].Enable {
				chunk.TexUnits = append(chunk.TexUnits, uint32(unit))
			}
		}
		chunks = append(chunks, chunk)
	}

	mp.chunks = chunks
	return nil
}

/** @brief The render chunks built from the mesh, one per chunk. */
func (mp *MeshPass) Chunks() []RenderChunk {
	return mp.chunks
}

/** @brief How many times the render chunks were rebuilt. */
func (mp *MeshPass) Rebuilds() uint64 {
	return mp.rebuilds
}
