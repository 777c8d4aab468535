package assets

import (
	"sync"

	"github.com/spaghettifunk/patina/engine/containers"
	"github.com/spaghettifunk/patina/engine/core"
)

// pendingReloadCapacity bounds how many distinct assets can wait for a
// reload between two ProcessReloads calls.
const pendingReloadCapacity = 1024

/**
 * @brief Hands out shared asset handles and replays file changes onto them.
 * Every caller asking for the same asset ID gets the same handle, so one
 * reload refreshes all of them. Changed assets queue up until the owner
 * drains them with ProcessReloads, keeping reload work on the owner's
 * schedule instead of the watcher's.
 */
type AssetLoader struct {
	library Library

	mu           sync.Mutex
	materials    map[string]*MaterialAsset
	pixelShaders map[string]*PixelShaderAsset
	meshes       map[string]*MeshAsset
	gameTextures map[string]*GameTextureAsset

	pendingReloads *containers.RingQueue[string]
	pendingSet     map[string]bool
}

func NewAssetLoader(library Library) *AssetLoader {
	return &AssetLoader{
		library:        library,
		materials:      make(map[string]*MaterialAsset),
		pixelShaders:   make(map[string]*PixelShaderAsset),
		meshes:         make(map[string]*MeshAsset),
		gameTextures:   make(map[string]*GameTextureAsset),
		pendingReloads: containers.NewRingQueue[string](pendingReloadCapacity),
		pendingSet:     make(map[string]bool),
	}
}

// loadHandle runs the first synchronous load of a freshly created handle
// and feeds the load metrics. The handle is returned even when the load
// fails; its payload stays nil until a reload succeeds.
func loadHandle[T any](asset *Asset[T]) {
	if asset.Load() == 0 {
		core.LogWarn("asset %s failed its initial load", asset.AssetID())
		core.MetricsCountFailedLoad()
		return
	}
	core.MetricsCountLoad(false)
}

/** @brief The shared material handle for the asset ID, created on first use. */
func (al *AssetLoader) GetMaterial(assetID string) *MaterialAsset {
	al.mu.Lock()
	asset, ok := al.materials[assetID]
	if !ok {
		asset = NewMaterialAsset(al.library, assetID)
		al.materials[assetID] = asset
	}
	al.mu.Unlock()
	if !ok {
		loadHandle(asset)
	}
	return asset
}

/** @brief The shared pixel shader handle for the asset ID. */
func (al *AssetLoader) GetPixelShader(assetID string) *PixelShaderAsset {
	al.mu.Lock()
	asset, ok := al.pixelShaders[assetID]
	if !ok {
		asset = NewPixelShaderAsset(al.library, assetID)
		al.pixelShaders[assetID] = asset
	}
	al.mu.Unlock()
	if !ok {
		loadHandle(asset)
	}
	return asset
}

/** @brief The shared mesh handle for the asset ID. */
func (al *AssetLoader) GetMesh(assetID string) *MeshAsset {
	al.mu.Lock()
	asset, ok := al.meshes[assetID]
	if !ok {
		asset = NewMeshAsset(al.library, assetID)
		al.meshes[assetID] = asset
	}
	al.mu.Unlock()
	if !ok {
		loadHandle(asset)
	}
	return asset
}

/** @brief The shared game texture handle for the asset ID. */
func (al *AssetLoader) GetGameTexture(assetID string) *GameTextureAsset {
	al.mu.Lock()
	asset, ok := al.gameTextures[assetID]
	if !ok {
		asset = NewGameTextureAsset(al.library, assetID)
		al.gameTextures[assetID] = asset
	}
	al.mu.Unlock()
	if !ok {
		loadHandle(asset)
	}
	return asset
}

/**
 * @brief Queues the asset for a reload on the next ProcessReloads. Safe to
 * call from the watcher goroutine. An asset already waiting is not queued
 * twice.
 */
func (al *AssetLoader) NotifyAssetChanged(assetID string) {
	al.mu.Lock()
	defer al.mu.Unlock()
	if al.pendingSet[assetID] {
		return
	}
	if err := al.pendingReloads.Enqueue(assetID); err != nil {
		core.LogError("reload queue full, change to asset %s dropped", assetID)
		return
	}
	al.pendingSet[assetID] = true
}

// takePending drains the queue under the lock and returns the asset IDs in
// notification order.
func (al *AssetLoader) takePending() []string {
	al.mu.Lock()
	defer al.mu.Unlock()
	if al.pendingReloads.IsEmpty() {
		return nil
	}
	ids := make([]string, 0, al.pendingReloads.Len())
	for {
		assetID, err := al.pendingReloads.Dequeue()
		if err != nil {
			break
		}
		delete(al.pendingSet, assetID)
		ids = append(ids, assetID)
	}
	return ids
}

func (al *AssetLoader) handlesFor(assetID string) (*MaterialAsset, *PixelShaderAsset, *MeshAsset, *GameTextureAsset) {
	al.mu.Lock()
	defer al.mu.Unlock()
	return al.materials[assetID], al.pixelShaders[assetID], al.meshes[assetID], al.gameTextures[assetID]
}

func reloadHandle[T any](asset *Asset[T]) {
	if asset == nil {
		return
	}
	if asset.Load() == 0 {
		core.LogWarn("asset %s failed to reload, keeping the previous payload", asset.AssetID())
		core.MetricsCountFailedLoad()
		return
	}
	core.MetricsCountLoad(true)
	core.EventFire(core.EVENT_CODE_ASSET_RELOADED, asset, core.EventContext{
		AssetID:     asset.AssetID(),
		BytesLoaded: asset.BytesLoaded(),
	})
}

/**
 * @brief Reloads every asset that changed since the last call and returns
 * how many were processed. Handles that fail to reload keep their previous
 * payload.
 */
func (al *AssetLoader) ProcessReloads() int {
	ids := al.takePending()
	for _, assetID := range ids {
		material, pixelShader, mesh, gameTexture := al.handlesFor(assetID)
		reloadHandle(material)
		reloadHandle(pixelShader)
		reloadHandle(mesh)
		reloadHandle(gameTexture)
	}
	return len(ids)
}

/** @brief Releases every handle's session ID and forgets all handles. */
func (al *AssetLoader) Shutdown() {
	al.mu.Lock()
	defer al.mu.Unlock()
	for _, asset := range al.materials {
		core.IdentifierReleaseID(asset.SessionID())
	}
	for _, asset := range al.pixelShaders {
		core.IdentifierReleaseID(asset.SessionID())
	}
	for _, asset := range al.meshes {
		core.IdentifierReleaseID(asset.SessionID())
	}
	for _, asset := range al.gameTextures {
		core.IdentifierReleaseID(asset.SessionID())
	}
	al.materials = make(map[string]*MaterialAsset)
	al.pixelShaders = make(map[string]*PixelShaderAsset)
	al.meshes = make(map[string]*MeshAsset)
	al.gameTextures = make(map[string]*GameTextureAsset)
	for {
		if _, err := al.pendingReloads.Dequeue(); err != nil {
			break
		}
	}
	al.pendingSet = make(map[string]bool)
}
