package assets

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/spaghettifunk/patina/engine/core"
	"github.com/spaghettifunk/patina/engine/renderer/metadata"
)

/**
 * @brief The parsed payload of a game texture asset.
 */
type GameTextureData struct {
	Texture metadata.TextureData
}

// decodeTextureFile reads an image file into a single-slice, single-level
// RGBA8 texture. PNG, JPEG, BMP and TIFF are registered decoders.
func decodeTextureFile(path string) (metadata.TextureData, uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("failed to open texture file %s: %v", path, err)
		core.LogError(err.Error())
		return metadata.TextureData{}, 0, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		err = fmt.Errorf("failed to decode texture file %s (%v): %w", path, err, core.ErrAssetParse)
		core.LogError(err.Error())
		return metadata.TextureData{}, 0, err
	}

	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	}

	level := metadata.TextureLevel{
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Pixels: rgba.Pix,
	}
	texture := metadata.TextureData{
		TextureType: metadata.TextureType2d,
		Slices:      []metadata.TextureSlice{{Levels: []metadata.TextureLevel{level}}},
	}
	return texture, uint64(len(rgba.Pix)), nil
}

/**
 * @brief Checks a loaded replacement texture against the dimensions of the
 * native texture it replaces. Missing payloads fail validation; an aspect
 * ratio change or a size that is not a multiple of the native size is
 * suspicious enough to warn about but does not reject the texture.
 */
func ValidateGameTexture(asset *GameTextureAsset, nativeWidth, nativeHeight uint32) bool {
	data := asset.Data()
	if data == nil {
		core.LogError(fmt.Sprintf("asset %s: validation failed, not loaded yet", asset.AssetID()))
		return false
	}
	if len(data.Texture.Slices) == 0 {
		core.LogError(fmt.Sprintf("asset %s: validation failed, texture has no slices", asset.AssetID()))
		return false
	}
	levels := data.Texture.Slices[0].Levels
	if len(levels) == 0 {
		core.LogError(fmt.Sprintf("asset %s: validation failed, texture has no levels", asset.AssetID()))
		return false
	}

	top := levels[0]
	if top.Width*nativeHeight != top.Height*nativeWidth {
		core.LogWarn(fmt.Sprintf("asset %s: texture is %dx%d which changes the aspect ratio of the %dx%d native texture",
			asset.AssetID(), top.Width, top.Height, nativeWidth, nativeHeight))
	}
	if nativeWidth != 0 && nativeHeight != 0 && (top.Width%nativeWidth != 0 || top.Height%nativeHeight != 0) {
		core.LogWarn(fmt.Sprintf("asset %s: texture is %dx%d which is not a multiple of the %dx%d native texture",
			asset.AssetID(), top.Width, top.Height, nativeWidth, nativeHeight))
	}
	return true
}
