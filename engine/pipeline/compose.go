package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spaghettifunk/patina/engine/core"
)

// EntryPointName is the function every authored pixel shader source defines
// as its entry point.
const EntryPointName = "custom_main"

// GeneratedEntryPoint replaces EntryPointName during composition so the
// surrounding generated shader can call each instance by a known name.
const GeneratedEntryPoint = "custom_pixel_shader_color_func"

// instancePlaceholder marks where the per-instance tag lands when the
// composed template is rendered.
const instancePlaceholder = "{0}"

func temporaryToken(index int) string {
	return fmt.Sprintf("_%d_PATINA_TEMP_%d_", index, index)
}

/**
 * @brief Emits the #define lines binding each texture code name's UNIT and
 * COORD macros. The unit number is fixed here; the {0} suffix is filled with
 * the instance tag when the template is rendered.
 */
func WriteTextureDefines(out *strings.Builder, textureCodeNames []string, textureUnit uint32) {
	for i, codeName := range textureCodeNames {
		fmt.Fprintf(out, "#define %s_UNIT_{0} %d\n", codeName, textureUnit)
		fmt.Fprintf(out, "#define %s_COORD_{0} float3(data.texcoord[data.texmap_to_texcoord_index[%d]].xy, %d)\n", codeName, textureUnit, i)
	}
}

/**
 * @brief Rewrites one independently authored pixel shader source into a
 * collision-free template ready to merge with other sources into a single
 * compilation unit. Global-scope identifiers gain a per-instance suffix,
 * texture convention macros are renamed per unit and their definitions
 * prepended, and literal braces are escaped so the result can be rendered
 * as a template. Rendering with RenderShaderTemplate fills the instance tag.
 */
func ComposeShaderSource(source string, textureCodeNames []string, textureUnit uint32) string {
	text := strings.ReplaceAll(source, EntryPointName, GeneratedEntryPoint)
	conflicts := GlobalConflicts(text)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "{", "{{")
	text = strings.ReplaceAll(text, "}", "}}")

	// Two phases: park every candidate behind an index-unique token first,
	// then expand the tokens. Renaming directly would let a candidate that
	// is a substring of an already-renamed occurrence split it.
	for i, identifier := range conflicts {
		if identifier == "" {
			continue
		}
		text = strings.ReplaceAll(text, identifier, temporaryToken(i))
	}
	for i, identifier := range conflicts {
		if identifier == "" {
			continue
		}
		text = strings.ReplaceAll(text, temporaryToken(i), identifier+"_"+instancePlaceholder)
	}

	for _, codeName := range textureCodeNames {
		text = strings.ReplaceAll(text, codeName+"_COORD", codeName+"_COORD_"+instancePlaceholder)
		text = strings.ReplaceAll(text, codeName+"_UNIT", codeName+"_UNIT_"+instancePlaceholder)
	}

	var out strings.Builder
	out.Grow(len(text))
	WriteTextureDefines(&out, textureCodeNames, textureUnit)
	out.WriteString(text)
	return out.String()
}

/**
 * @brief Renders a composed template into final shader source: {{ and }}
 * collapse back to literal braces and every {0} becomes the instance tag.
 * A brace that is neither escaped nor part of a placeholder is a validity
 * error, since composition escapes everything it emits.
 */
func RenderShaderTemplate(template string, instance uint32) (string, error) {
	tag := strconv.FormatUint(uint64(instance), 10)
	var out strings.Builder
	out.Grow(len(template))
	for i := 0; i < len(template); i++ {
		switch template[i] {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				out.WriteByte('{')
				i++
				continue
			}
			if i+2 < len(template) && template[i+1] == '0' && template[i+2] == '}' {
				out.WriteString(tag)
				i += 2
				continue
			}
			err := fmt.Errorf("stray '{' at offset %d in composed shader template: %w", i, core.ErrAssetValidity)
			core.LogError(err.Error())
			return "", err
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				out.WriteByte('}')
				i++
				continue
			}
			err := fmt.Errorf("stray '}' at offset %d in composed shader template: %w", i, core.ErrAssetValidity)
			core.LogError(err.Error())
			return "", err
		default:
			out.WriteByte(template[i])
		}
	}
	return out.String(), nil
}
