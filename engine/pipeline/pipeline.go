package pipeline

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/patina/engine/assets"
	"github.com/spaghettifunk/patina/engine/core"
)

/**
 * @brief One rendering pass derived from a material asset: the packed
 * uniform staging buffer, the generated uniform block declarations, the
 * bound texture list and the composed shader template. Everything derived
 * is cached and rebuilt only when the backing assets reload or the texture
 * unit assignment changes. A pass that fails validation is suppressed, not
 * fatal; it re-evaluates on every update until its assets are fixed.
 */
type Pipeline struct {
	material assets.CachedAsset[assets.MaterialData]
	shader   assets.CachedAsset[assets.PixelShaderData]

	// One slot per material property; only texture properties with an
	// assigned asset occupy theirs.
	gameTextures []assets.CachedAsset[assets.GameTextureData]

	uniformStaging []byte
	uniformBlock   string
	uniformsBuilt  bool

	shaderTemplate string
	composed       bool
	composedUnit   uint32

	textureCodeNames []string
	boundTextures    []assets.CachedAsset[assets.GameTextureData]
	dependencies     []string

	valid        bool
	compositions uint64
}

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// invalidate suppresses the pass and fires the invalidation event on the
// valid to invalid edge.
func (p *Pipeline) invalidate(materialAssetID string) {
	core.MetricsCountSkippedPass()
	if p.valid {
		core.EventFire(core.EVENT_CODE_PIPELINE_INVALIDATED, p, core.EventContext{AssetID: materialAssetID})
	}
	p.valid = false
}

/**
 * @brief Brings the pass up to date with the material asset and everything
 * it references. Loads the material and its shader through the loader,
 * rebuilds the uniform staging buffer and declarations when the material
 * reloaded, re-resolves and validates the texture bindings, and recomposes
 * the shader template when the shader reloaded or the texture unit moved.
 * On any validity failure the pass is suppressed until a later update
 * succeeds; previously derived values are kept but must not be consumed
 * while Valid is false.
 */
func (p *Pipeline) UpdatePixelData(loader *assets.AssetLoader, materialAssetID string, textureUnit uint32) {
	p.dependencies = nil

	if p.material.Asset == nil || p.material.Asset.AssetID() != materialAssetID {
		p.material = assets.CachedAsset[assets.MaterialData]{Asset: loader.GetMaterial(materialAssetID)}
	}
	materialData := p.material.Asset.Data()
	if materialData == nil {
		p.dependencies = append(p.dependencies, materialAssetID)
		p.invalidate(materialAssetID)
		return
	}

	if p.material.Stale() {
		p.material.MarkFresh()
		p.uniformsBuilt = false
		// The texture code names feeding the composition derive from the
		// material, so the template goes stale with it.
		p.composed = false
		p.uniformStaging = make([]byte, assets.PropertiesMemorySize(materialData.Properties))
	}

	if p.shader.Asset == nil || p.shader.Stale() || materialData.ShaderAssetID != p.shader.Asset.AssetID() {
		p.shader = assets.CachedAsset[assets.PixelShaderData]{Asset: loader.GetPixelShader(materialData.ShaderAssetID)}
		p.shader.MarkFresh()
		p.uniformsBuilt = false
		p.composed = false
	}
	shaderData := p.shader.Asset.Data()
	if shaderData == nil {
		p.dependencies = append(p.dependencies, materialData.ShaderAssetID)
		p.invalidate(materialAssetID)
		return
	}

	if shaderData.Properties.Len() != len(materialData.Properties) {
		err := fmt.Errorf("material %s declares %d properties but shader %s declares %d: %w",
			materialAssetID, len(materialData.Properties), p.shader.Asset.AssetID(), shaderData.Properties.Len(), core.ErrAssetValidity)
		core.LogError(err.Error())
		p.invalidate(materialAssetID)
		return
	}

	// Classify the texture properties and resolve their slots. Handles are
	// shared, so re-resolving every update is a map lookup, not a load.
	mainOffset := -1
	hasAdditional := false
	slots := make([]assets.CachedAsset[assets.GameTextureData], len(materialData.Properties))
	for index := range materialData.Properties {
		property := &materialData.Properties[index]
		shaderProperty, found := shaderData.Properties.Get(property.CodeName)
		if !found {
			err := fmt.Errorf("material %s uses code name %q that shader %s does not declare: %w",
				materialAssetID, property.CodeName, p.shader.Asset.AssetID(), core.ErrAssetValidity)
			core.LogError(err.Error())
			p.invalidate(materialAssetID)
			return
		}

		if property.Type != assets.MaterialPropertyTextureAsset {
			continue
		}
		switch shaderProperty.Type {
		case assets.ShaderPropertySamplerArraySharedMain:
			mainOffset = index
		case assets.ShaderPropertySamplerArraySharedAdditional:
			hasAdditional = true
		case assets.ShaderPropertySampler2D:
			// Standalone bindings are not wired into the shared array.
			continue
		default:
			err := fmt.Errorf("material %s assigns a texture to %q but shader property type %s does not take one: %w",
				materialAssetID, property.CodeName, shaderProperty.Type, core.ErrAssetValidity)
			core.LogError(err.Error())
			p.invalidate(materialAssetID)
			return
		}

		reference, isTexture := property.Value.(assets.TextureAssetValue)
		if !isTexture || reference == "" {
			continue
		}
		handle := loader.GetGameTexture(string(reference))
		slots[index] = assets.CachedAsset[assets.GameTextureData]{
			Asset:           handle,
			CachedWriteTime: handle.LastLoadedTime(),
		}
	}
	p.gameTextures = slots

	if hasAdditional && mainOffset < 0 {
		err := fmt.Errorf("material %s binds shared array textures but no main texture: %w", materialAssetID, core.ErrAssetValidity)
		core.LogError(err.Error())
		p.invalidate(materialAssetID)
		return
	}

	if !p.uniformsBuilt {
		var block strings.Builder
		for i := range materialData.Properties {
			shaderProperty, _ := shaderData.Properties.Get(materialData.Properties[i].CodeName)
			shaderProperty.WriteAsShaderCode(&block)
		}
		p.uniformBlock = block.String()
		if _, err := assets.WriteProperties(p.uniformStaging, materialData.Properties); err != nil {
			p.invalidate(materialAssetID)
			return
		}
		p.uniformsBuilt = true
	}

	bindings, dependencies, ok := buildTextureBindings(materialData, slots, mainOffset)
	if !ok {
		p.dependencies = append(p.dependencies, dependencies...)
		p.invalidate(materialAssetID)
		return
	}
	p.boundTextures = bindings.textures
	p.textureCodeNames = bindings.codeNames

	if !p.composed || p.composedUnit != textureUnit {
		p.shaderTemplate = ComposeShaderSource(shaderData.ShaderSource, p.textureCodeNames, textureUnit)
		p.composed = true
		p.composedUnit = textureUnit
		p.compositions++
		core.MetricsCountComposition()
	}
	p.valid = true
}

/** @brief Whether the pass survived its last update and can be consumed. */
func (p *Pipeline) Valid() bool {
	return p.valid
}

/** @brief The composed shader template with the instance tag unfilled. */
func (p *Pipeline) ShaderTemplate() string {
	return p.shaderTemplate
}

/** @brief The composed shader rendered for one instance of the pass. */
func (p *Pipeline) RenderShaderCode(instance uint32) (string, error) {
	if !p.valid {
		err := fmt.Errorf("pipeline pass is not valid: %w", core.ErrAssetValidity)
		core.LogError(err.Error())
		return "", err
	}
	return RenderShaderTemplate(p.shaderTemplate, instance)
}

/** @brief The generated uniform block declarations for the material. */
func (p *Pipeline) UniformBlock() string {
	return p.uniformBlock
}

/** @brief The packed uniform values, one 16-byte slot per assigned value. */
func (p *Pipeline) UniformStaging() []byte {
	return p.uniformStaging
}

/** @brief The bound textures, main texture first. */
func (p *Pipeline) BoundTextures() []assets.CachedAsset[assets.GameTextureData] {
	return p.boundTextures
}

/** @brief Texture code names in binding order, main texture first. */
func (p *Pipeline) TextureCodeNames() []string {
	return p.textureCodeNames
}

/**
 * @brief Asset IDs the last failed update was blocked on. A reload of any
 * of them is worth a retry. Empty after a successful update.
 */
func (p *Pipeline) Dependencies() []string {
	return p.dependencies
}

/** @brief How many times the shader template was composed. */
func (p *Pipeline) Compositions() uint64 {
	return p.compositions
}
