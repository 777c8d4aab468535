package metadata

/**
 * @brief Represents various types of textures.
 */
type TextureType int

const (
	/** @brief A standard two-dimensional texture. */
	TextureType2d TextureType = iota
	/** @brief A texture array sharing one set of dimensions. */
	TextureType2dArray
)

/**
 * @brief One mip level of pixel data. Pixels are tightly packed RGBA8.
 */
type TextureLevel struct {
	/** @brief The level Width in texels. */
	Width uint32
	/** @brief The level Height in texels. */
	Height uint32
	/** @brief The raw pixel bytes, len == Width*Height*4. */
	Pixels []uint8
}

/**
 * @brief One array slice: a mip chain from largest to smallest.
 */
type TextureSlice struct {
	Levels []TextureLevel
}

/**
 * @brief Decoded texture payload as produced by the asset library: one or
 * more array slices, each with at least one level once loaded.
 */
type TextureData struct {
	/** @brief The texture type. */
	TextureType TextureType
	Slices      []TextureSlice
}

// HasData reports whether a top-level image with pixels exists.
func (t *TextureData) HasData() bool {
	return len(t.Slices) > 0 && len(t.Slices[0].Levels) > 0
}

// TopLevel returns the dimensions of slice 0, level 0, or zeros when the
// payload is empty.
func (t *TextureData) TopLevel() (width, height uint32) {
	if !t.HasData() {
		return 0, 0
	}
	level := t.Slices[0].Levels[0]
	return level.Width, level.Height
}
