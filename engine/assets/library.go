package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/patina/engine/core"
)

/**
 * @brief Resolves asset IDs to payloads. Loads fill the destination and
 * report bytes loaded; zero bytes means failure and the destination must be
 * discarded. Write times drive the reload decisions upstream.
 */
type Library interface {
	/** @brief When any file backing the asset last changed. */
	GetLastAssetWriteTime(assetID string) time.Time
	LoadMaterial(assetID string, data *MaterialData) (LoadInfo, error)
	LoadPixelShader(assetID string, data *PixelShaderData) (LoadInfo, error)
	LoadMesh(assetID string, data *MeshData) (LoadInfo, error)
	LoadGameTexture(assetID string, data *GameTextureData) (LoadInfo, error)
}

// File labels inside an asset's file map.
const (
	FileLabelMetadata = "metadata"
	FileLabelShader   = "shader"
	FileLabelBlob     = "blob"
	FileLabelTexture  = "texture"
)

/** @brief The manifest file a library root is described by. */
const LibraryManifestName = "library.json"

type libraryManifestEntry struct {
	Name string            `json:"name"`
	Data map[string]string `json:"data"`
}

type libraryManifest struct {
	Assets []libraryManifestEntry `json:"assets"`
}

/**
 * @brief A library that maps asset IDs to labeled files under a root
 * directory straight on the filesystem. A manifest binds IDs to files; an
 * optional watcher stamps fresh write times and reports changed assets so
 * holders can reload.
 */
type DirectFilesystemLibrary struct {
	root string

	mu                 sync.RWMutex
	assetMaps          map[string]map[string]string
	writeTimeOverrides map[string]time.Time
	pathToAssetID      map[string]string

	watcher  *fsnotify.Watcher
	done     chan struct{}
	onChange func(assetID string)
	closed   bool
}

func NewDirectFilesystemLibrary(root string) (*DirectFilesystemLibrary, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		err = fmt.Errorf("failed to resolve library root %s: %v", root, err)
		core.LogError(err.Error())
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		err = fmt.Errorf("failed to create library watcher: %v", err)
		core.LogError(err.Error())
		return nil, err
	}
	return &DirectFilesystemLibrary{
		root:               absRoot,
		assetMaps:          make(map[string]map[string]string),
		writeTimeOverrides: make(map[string]time.Time),
		pathToAssetID:      make(map[string]string),
		watcher:            watcher,
		done:               make(chan struct{}),
	}, nil
}

/** @brief The absolute root directory the library resolves files against. */
func (l *DirectFilesystemLibrary) Root() string {
	return l.root
}

// resolve turns a manifest-relative path into the absolute, cleaned form
// used as the watch index key.
func (l *DirectFilesystemLibrary) resolve(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.root, path)
	}
	return filepath.Clean(path)
}

/**
 * @brief Binds an asset ID to its labeled files. Paths are relative to the
 * library root unless absolute. Replaces any previous binding.
 */
func (l *DirectFilesystemLibrary) SetAssetMap(assetID string, files map[string]string) {
	resolved := make(map[string]string, len(files))
	for label, path := range files {
		resolved[label] = l.resolve(path)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if previous, ok := l.assetMaps[assetID]; ok {
		for _, path := range previous {
			delete(l.pathToAssetID, path)
		}
	}
	l.assetMaps[assetID] = resolved
	for _, path := range resolved {
		l.pathToAssetID[path] = assetID
	}
}

/** @brief Reads the library.json manifest under the root. */
func (l *DirectFilesystemLibrary) LoadManifest() error {
	manifestPath := filepath.Join(l.root, LibraryManifestName)
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		err = fmt.Errorf("failed to read library manifest %s: %v", manifestPath, err)
		core.LogError(err.Error())
		return err
	}
	var manifest libraryManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		err = fmt.Errorf("malformed library manifest %s (%v): %w", manifestPath, err, core.ErrAssetParse)
		core.LogError(err.Error())
		return err
	}
	for _, entry := range manifest.Assets {
		if entry.Name == "" || len(entry.Data) == 0 {
			err := fmt.Errorf("library manifest %s has an entry without a name or files: %w", manifestPath, core.ErrAssetParse)
			core.LogError(err.Error())
			return err
		}
		l.SetAssetMap(entry.Name, entry.Data)
	}
	core.LogInfo("library manifest loaded with %d assets from %s", len(manifest.Assets), l.root)
	return nil
}

/** @brief The known asset IDs, sorted for stable listings. */
func (l *DirectFilesystemLibrary) AssetIDs() []string {
	l.mu.RLock()
	ids := maps.Keys(l.assetMaps)
	l.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

func (l *DirectFilesystemLibrary) assetMap(assetID string) map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	files, ok := l.assetMaps[assetID]
	if !ok {
		return nil
	}
	copied := make(map[string]string, len(files))
	for label, path := range files {
		copied[label] = path
	}
	return copied
}

/**
 * @brief When the asset last changed: a write time stamped by the watcher
 * wins, otherwise the newest modification time across the asset's files.
 * The zero time means the asset is unknown or its files are unreadable.
 */
func (l *DirectFilesystemLibrary) GetLastAssetWriteTime(assetID string) time.Time {
	l.mu.RLock()
	if override, ok := l.writeTimeOverrides[assetID]; ok {
		l.mu.RUnlock()
		return override
	}
	files := l.assetMaps[assetID]
	l.mu.RUnlock()

	var newest time.Time
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	return newest
}

func (l *DirectFilesystemLibrary) LoadMaterial(assetID string, data *MaterialData) (LoadInfo, error) {
	files := l.assetMap(assetID)
	if files == nil {
		err := fmt.Errorf("asset %s: %w", assetID, core.ErrAssetNotFound)
		core.LogError(err.Error())
		return LoadInfo{}, err
	}
	// A material is backed by a single metadata document.
	path, ok := files[FileLabelMetadata]
	if !ok || len(files) != 1 {
		err := fmt.Errorf("asset %s: expected a single %q file, have %d files", assetID, FileLabelMetadata, len(files))
		core.LogError(err.Error())
		return LoadInfo{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("asset %s: failed to read %s: %v", assetID, path, err)
		core.LogError(err.Error())
		return LoadInfo{}, err
	}
	if err := MaterialDataFromJSON(assetID, raw, data); err != nil {
		return LoadInfo{}, err
	}
	return LoadInfo{BytesLoaded: uint64(len(raw))}, nil
}

func (l *DirectFilesystemLibrary) LoadPixelShader(assetID string, data *PixelShaderData) (LoadInfo, error) {
	files := l.assetMap(assetID)
	if files == nil {
		err := fmt.Errorf("asset %s: %w", assetID, core.ErrAssetNotFound)
		core.LogError(err.Error())
		return LoadInfo{}, err
	}
	// A pixel shader is the shader source and a metadata document.
	metadataPath, hasMetadata := files[FileLabelMetadata]
	shaderPath, hasShader := files[FileLabelShader]
	if !hasMetadata || !hasShader || len(files) != 2 {
		err := fmt.Errorf("asset %s: expected %q and %q files, have %d files", assetID, FileLabelMetadata, FileLabelShader, len(files))
		core.LogError(err.Error())
		return LoadInfo{}, err
	}

	source, err := os.ReadFile(shaderPath)
	if err != nil {
		err = fmt.Errorf("asset %s: failed to read %s: %v", assetID, shaderPath, err)
		core.LogError(err.Error())
		return LoadInfo{}, err
	}
	metadataRaw, err := os.ReadFile(metadataPath)
	if err != nil {
		err = fmt.Errorf("asset %s: failed to read %s: %v", assetID, metadataPath, err)
		core.LogError(err.Error())
		return LoadInfo{}, err
	}
	if err := PixelShaderDataFromJSON(assetID, metadataRaw, data); err != nil {
		return LoadInfo{}, err
	}
	data.ShaderSource = string(source)
	return LoadInfo{BytesLoaded: uint64(len(source) + len(metadataRaw))}, nil
}

func (l *DirectFilesystemLibrary) LoadMesh(assetID string, data *MeshData) (LoadInfo, error) {
	files := l.assetMap(assetID)
	if files == nil {
		err := fmt.Errorf("asset %s: %w", assetID, core.ErrAssetNotFound)
		core.LogError(err.Error())
		return LoadInfo{}, err
	}
	// A mesh is the geometry blob and a metadata document.
	blobPath, hasBlob := files[FileLabelBlob]
	metadataPath, hasMetadata := files[FileLabelMetadata]
	if !hasBlob || !hasMetadata || len(files) != 2 {
		err := fmt.Errorf("asset %s: expected %q and %q files, have %d files", assetID, FileLabelBlob, FileLabelMetadata, len(files))
		core.LogError(err.Error())
		return LoadInfo{}, err
	}

	blob, err := os.ReadFile(blobPath)
	if err != nil {
		err = fmt.Errorf("asset %s: failed to read %s: %v", assetID, blobPath, err)
		core.LogError(err.Error())
		return LoadInfo{}, err
	}
	if err := MeshDataFromBinary(assetID, blob, data); err != nil {
		return LoadInfo{}, err
	}
	metadataRaw, err := os.ReadFile(metadataPath)
	if err != nil {
		err = fmt.Errorf("asset %s: failed to read %s: %v", assetID, metadataPath, err)
		core.LogError(err.Error())
		return LoadInfo{}, err
	}
	if err := MeshDataFromJSON(assetID, metadataRaw, data); err != nil {
		return LoadInfo{}, err
	}
	return LoadInfo{BytesLoaded: uint64(len(blob) + len(metadataRaw))}, nil
}

func (l *DirectFilesystemLibrary) LoadGameTexture(assetID string, data *GameTextureData) (LoadInfo, error) {
	files := l.assetMap(assetID)
	if files == nil {
		err := fmt.Errorf("asset %s: %w", assetID, core.ErrAssetNotFound)
		core.LogError(err.Error())
		return LoadInfo{}, err
	}
	path, ok := files[FileLabelTexture]
	if !ok || len(files) != 1 {
		err := fmt.Errorf("asset %s: expected a single %q file, have %d files", assetID, FileLabelTexture, len(files))
		core.LogError(err.Error())
		return LoadInfo{}, err
	}
	texture, bytesLoaded, err := decodeTextureFile(path)
	if err != nil {
		err = fmt.Errorf("asset %s: %w", assetID, err)
		core.LogError(err.Error())
		return LoadInfo{}, err
	}
	data.Texture = texture
	return LoadInfo{BytesLoaded: bytesLoaded}, nil
}

/**
 * @brief Starts watching the library root recursively. Whenever a file
 * backing a known asset changes, the library stamps a fresh write time,
 * fires EVENT_CODE_ASSET_CHANGED and invokes onChange with the asset ID.
 */
func (l *DirectFilesystemLibrary) Watch(onChange func(assetID string)) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return fmt.Errorf("library watcher already closed")
	}
	l.onChange = onChange
	l.mu.Unlock()

	go l.pump()

	if err := l.watchRecursive(l.root); err != nil {
		err = fmt.Errorf("failed to watch library root %s: %v", l.root, err)
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("watching asset library at %s", l.root)
	return nil
}

/** @brief Stops the watcher. The library stays usable for loads. */
func (l *DirectFilesystemLibrary) Shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.done)
}

func (l *DirectFilesystemLibrary) pump() {
	for {
		select {
		case e, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					l.watchRecursive(e.Name)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				l.handleFileEvent(e.Name)
			}

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-l.done:
			l.watcher.Close()
			return
		}
	}
}

// watchRecursive adds the directory and everything below it to the watch
// list. Files created between the walk and the watch landing are missed,
// the next write to them is not.
func (l *DirectFilesystemLibrary) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if err := l.watcher.Add(walkPath); err != nil {
				return err
			}
		}
		return nil
	})
}

func (l *DirectFilesystemLibrary) handleFileEvent(path string) {
	stamp := time.Now()
	cleaned := filepath.Clean(path)

	l.mu.Lock()
	assetID, known := l.pathToAssetID[cleaned]
	if known {
		l.writeTimeOverrides[assetID] = stamp
	}
	onChange := l.onChange
	l.mu.Unlock()

	if !known {
		return
	}
	core.LogDebug("asset %s changed on disk (%s)", assetID, cleaned)
	core.EventFire(core.EVENT_CODE_ASSET_CHANGED, l, core.EventContext{AssetID: assetID, Path: cleaned})
	if onChange != nil {
		onChange(assetID)
	}
}
