package assets

import (
	"sync"
	"time"

	"github.com/spaghettifunk/patina/engine/core"
)

/**
 * @brief The result of a single load attempt. Zero bytes loaded means the
 * attempt failed and no payload was published.
 */
type LoadInfo struct {
	BytesLoaded uint64
}

// loadFunc fills a fresh payload from the backing library.
type loadFunc[T any] func(*T) (LoadInfo, error)

/**
 * @brief A shared handle to one loadable asset payload. All consumers of an
 * asset ID hold the same handle, so a reload is visible to every holder at
 * once. The payload is replaced on reload, never mutated in place; a
 * consumer that grabbed the previous payload keeps a usable snapshot.
 */
type Asset[T any] struct {
	assetID   string
	sessionID uint32
	loadImpl  loadFunc[T]

	mu             sync.RWMutex
	loaded         bool
	data           *T
	lastLoadedTime time.Time
	bytesLoaded    uint64
}

func newAsset[T any](assetID string, load loadFunc[T]) *Asset[T] {
	a := &Asset[T]{
		assetID:  assetID,
		loadImpl: load,
	}
	a.sessionID = core.IdentifierAquireNewID(a)
	return a
}

/** @brief The library identifier this handle resolves. */
func (a *Asset[T]) AssetID() string {
	return a.assetID
}

/** @brief A process-unique ID distinguishing handle instances in logs. */
func (a *Asset[T]) SessionID() uint32 {
	return a.sessionID
}

/**
 * @brief Loads the payload from the library and publishes it under the
 * swap lock. Returns the bytes loaded, zero on failure; a failed load
 * leaves any previously published payload valid and in use.
 */
func (a *Asset[T]) Load() uint64 {
	// The load time must be captured before the data is read. Stamping
	// after the read would mark the asset newer than it is and a change
	// landing mid-read could go unnoticed forever.
	loadTime := time.Now()

	payload := new(T)
	info, err := a.loadImpl(payload)
	if err != nil || info.BytesLoaded == 0 {
		return 0
	}

	a.mu.Lock()
	a.loaded = true
	a.data = payload
	a.lastLoadedTime = loadTime
	a.bytesLoaded = info.BytesLoaded
	a.mu.Unlock()
	return info.BytesLoaded
}

/** @brief Drops the published payload. The session and timestamps survive. */
func (a *Asset[T]) Unload() {
	a.mu.Lock()
	a.loaded = false
	a.data = nil
	a.bytesLoaded = 0
	a.mu.Unlock()
}

/**
 * @brief The currently published payload, nil until a load succeeds. The
 * returned payload is immutable; reloads publish a new one instead.
 */
func (a *Asset[T]) Data() *T {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.loaded {
		return nil
	}
	return a.data
}

func (a *Asset[T]) IsLoaded() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loaded
}

/**
 * @brief When the published payload was stamped. The zero time means the
 * asset has never loaded and its payload must be treated as absent.
 */
func (a *Asset[T]) LastLoadedTime() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastLoadedTime
}

/** @brief Bytes of the published payload, zero when nothing is loaded. */
func (a *Asset[T]) BytesLoaded() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.bytesLoaded
}

/** @brief A material asset handle. */
type MaterialAsset = Asset[MaterialData]

/** @brief A pixel shader asset handle. */
type PixelShaderAsset = Asset[PixelShaderData]

/** @brief A mesh asset handle. */
type MeshAsset = Asset[MeshData]

/** @brief A game texture asset handle. */
type GameTextureAsset = Asset[GameTextureData]

func NewMaterialAsset(library Library, assetID string) *MaterialAsset {
	return newAsset(assetID, func(data *MaterialData) (LoadInfo, error) {
		return library.LoadMaterial(assetID, data)
	})
}

func NewPixelShaderAsset(library Library, assetID string) *PixelShaderAsset {
	return newAsset(assetID, func(data *PixelShaderData) (LoadInfo, error) {
		return library.LoadPixelShader(assetID, data)
	})
}

func NewMeshAsset(library Library, assetID string) *MeshAsset {
	return newAsset(assetID, func(data *MeshData) (LoadInfo, error) {
		return library.LoadMesh(assetID, data)
	})
}

func NewGameTextureAsset(library Library, assetID string) *GameTextureAsset {
	return newAsset(assetID, func(data *GameTextureData) (LoadInfo, error) {
		return library.LoadGameTexture(assetID, data)
	})
}

/**
 * @brief Pairs a shared asset handle with the write time its holder derived
 * values from. The holder must re-derive (and MarkFresh) whenever the asset
 * reloads underneath it.
 */
type CachedAsset[T any] struct {
	Asset           *Asset[T]
	CachedWriteTime time.Time
}

/** @brief Whether the asset reloaded after the holder last derived from it. */
func (c *CachedAsset[T]) Stale() bool {
	return c.Asset != nil && c.Asset.LastLoadedTime().After(c.CachedWriteTime)
}

/** @brief Records the asset's current load time as the derivation point. */
func (c *CachedAsset[T]) MarkFresh() {
	if c.Asset != nil {
		c.CachedWriteTime = c.Asset.LastLoadedTime()
	}
}
