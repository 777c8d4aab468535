package pipeline

import (
	"fmt"

	"github.com/spaghettifunk/patina/engine/assets"
	"github.com/spaghettifunk/patina/engine/core"
)

/**
 * @brief The textures a pass binds, main texture first, and the code names
 * feeding the texture convention macros, in declaration order.
 */
type textureBindings struct {
	textures  []assets.CachedAsset[assets.GameTextureData]
	codeNames []string
}

// buildTextureBindings enforces the shared-array rules over the per-property
// texture slots: the main texture anchors the array and every additional
// texture must match its dimensions exactly. Returns ok=false when the pass
// must be suppressed, along with the asset IDs whose reloads should trigger
// a retry. A declared but unassigned main texture leaves the pass valid
// with nothing bound.
func buildTextureBindings(materialData *assets.MaterialData, slots []assets.CachedAsset[assets.GameTextureData], mainOffset int) (textureBindings, []string, bool) {
	var bindings textureBindings

	if mainOffset < 0 {
		return bindings, nil, true
	}
	main := slots[mainOffset]
	if main.Asset == nil {
		return bindings, nil, true
	}
	mainData := main.Asset.Data()
	if mainData == nil {
		return bindings, []string{main.Asset.AssetID()}, false
	}
	if !mainData.Texture.HasData() {
		err := fmt.Errorf("main texture %s has no texture data: %w", main.Asset.AssetID(), core.ErrAssetValidity)
		core.LogError(err.Error())
		return bindings, []string{main.Asset.AssetID()}, false
	}
	mainWidth, mainHeight := mainData.Texture.TopLevel()
	if mainWidth == 0 || mainHeight == 0 {
		err := fmt.Errorf("main texture %s has a zero sized top level: %w", main.Asset.AssetID(), core.ErrAssetValidity)
		core.LogError(err.Error())
		return bindings, []string{main.Asset.AssetID()}, false
	}

	// Nothing is bound until every additional texture checks out.
	for index := range slots {
		if index == mainOffset || slots[index].Asset == nil {
			continue
		}
		additional := slots[index]
		dependencies := []string{main.Asset.AssetID(), additional.Asset.AssetID()}
		data := additional.Asset.Data()
		if data == nil {
			return bindings, dependencies, false
		}
		if !data.Texture.HasData() {
			err := fmt.Errorf("texture %s has no texture data: %w", additional.Asset.AssetID(), core.ErrAssetValidity)
			core.LogError(err.Error())
			return bindings, dependencies, false
		}
		width, height := data.Texture.TopLevel()
		if width != mainWidth || height != mainHeight {
			err := fmt.Errorf("texture %s is %dx%d but main texture %s is %dx%d: %w",
				additional.Asset.AssetID(), width, height, main.Asset.AssetID(), mainWidth, mainHeight, core.ErrAssetValidity)
			core.LogError(err.Error())
			return bindings, dependencies, false
		}
	}

	bindings.textures = append(bindings.textures, main)
	bindings.codeNames = append(bindings.codeNames, materialData.Properties[mainOffset].CodeName)
	for index := range slots {
		if index == mainOffset || slots[index].Asset == nil {
			continue
		}
		bindings.textures = append(bindings.textures, slots[index])
		bindings.codeNames = append(bindings.codeNames, materialData.Properties[index].CodeName)
	}
	return bindings, nil, true
}
