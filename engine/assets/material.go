package assets

import (
	"encoding/json"
	"fmt"

	"github.com/spaghettifunk/patina/engine/core"
)

/**
 * @brief One typed, named value a material assigns to a shader property.
 * Value is nil while the property is declared but unassigned.
 */
type MaterialProperty struct {
	/** @brief The identifier matching a property declared by the shader. */
	CodeName string
	/** @brief The declared value type. */
	Type MaterialPropertyType
	/** @brief The assigned payload, nil when unassigned. */
	Value PropertyValue
}

/**
 * @brief The bytes this property occupies in the uniform buffer. Unassigned
 * properties and texture references occupy none; everything else fills one
 * slot. Must agree with WriteProperties on which properties consume a slot.
 */
func (p *MaterialProperty) MemorySize() int {
	if p.Value == nil {
		return 0
	}
	if _, isTexture := p.Value.(TextureAssetValue); isTexture {
		return 0
	}
	return PropertySlotSize
}

/**
 * @brief The parsed payload of a material asset: the shader it targets and
 * the ordered property values. Property order defines the uniform slot
 * order and must match the shader's declaration order.
 */
type MaterialData struct {
	/** @brief The pixel shader asset this material provides values for. */
	ShaderAssetID string
	/** @brief Values in slot order. */
	Properties []MaterialProperty
}

/**
 * @brief The size in bytes of the uniform buffer the properties pack into.
 */
func PropertiesMemorySize(properties []MaterialProperty) int {
	size := 0
	for i := range properties {
		size += properties[i].MemorySize()
	}
	return size
}

/**
 * @brief Packs the assigned non-texture property values into dst in order,
 * one zero-padded 16-byte slot each. Properties that occupy no bytes do not
 * advance the cursor. Returns the number of bytes written.
 */
func WriteProperties(dst []byte, properties []MaterialProperty) (int, error) {
	cursor := 0
	for i := range properties {
		size := properties[i].MemorySize()
		if size == 0 {
			continue
		}
		if cursor+size > len(dst) {
			err := fmt.Errorf("property %q does not fit the staging buffer (%d of %d bytes used)", properties[i].CodeName, cursor, len(dst))
			core.LogError(err.Error())
			return cursor, err
		}
		cursor += writeValueSlot(dst[cursor:], properties[i].Value)
	}
	return cursor, nil
}

type materialPropertyDocument struct {
	CodeName string          `json:"code_name"`
	Type     string          `json:"type"`
	Value    json.RawMessage `json:"value,omitempty"`
}

type materialDocument struct {
	ShaderAsset string                     `json:"shader_asset"`
	Values      []materialPropertyDocument `json:"values"`
}

/**
 * @brief Parses a material document. A malformed document, an unknown type
 * string or a value that does not match its declared type aborts the parse;
 * a missing "value" leaves the property declared but unassigned.
 */
func MaterialDataFromJSON(assetID string, document []byte, data *MaterialData) error {
	var doc materialDocument
	if err := json.Unmarshal(document, &doc); err != nil {
		err = fmt.Errorf("asset %s: malformed material document (%v): %w", assetID, err, core.ErrAssetParse)
		core.LogError(err.Error())
		return err
	}
	if doc.ShaderAsset == "" {
		err := fmt.Errorf("asset %s: material document is missing shader_asset: %w", assetID, core.ErrAssetParse)
		core.LogError(err.Error())
		return err
	}
	if doc.Values == nil {
		err := fmt.Errorf("asset %s: material document is missing values: %w", assetID, core.ErrAssetParse)
		core.LogError(err.Error())
		return err
	}

	data.ShaderAssetID = doc.ShaderAsset
	data.Properties = make([]MaterialProperty, 0, len(doc.Values))
	for _, entry := range doc.Values {
		if entry.CodeName == "" {
			err := fmt.Errorf("asset %s: material value is missing a code_name: %w", assetID, core.ErrAssetParse)
			core.LogError(err.Error())
			return err
		}
		propertyType, err := ParseMaterialPropertyType(entry.Type)
		if err != nil {
			err = fmt.Errorf("asset %s: property %q: %w", assetID, entry.CodeName, err)
			core.LogError(err.Error())
			return err
		}
		property := MaterialProperty{
			CodeName: entry.CodeName,
			Type:     propertyType,
		}
		if entry.Value != nil {
			value, err := parsePropertyValue(assetID, entry.CodeName, propertyType, entry.Value)
			if err != nil {
				return err
			}
			property.Value = value
		}
		data.Properties = append(data.Properties, property)
	}
	return nil
}

/** @brief Serializes the material back to its document form. */
func MaterialDataToJSON(data *MaterialData) ([]byte, error) {
	doc := materialDocument{
		ShaderAsset: data.ShaderAssetID,
		Values:      make([]materialPropertyDocument, 0, len(data.Properties)),
	}
	for i := range data.Properties {
		property := &data.Properties[i]
		entry := materialPropertyDocument{
			CodeName: property.CodeName,
			Type:     property.Type.String(),
		}
		if property.Value != nil {
			raw, err := json.Marshal(property.Value)
			if err != nil {
				err = fmt.Errorf("property %q cannot be serialized: %w", property.CodeName, err)
				core.LogError(err.Error())
				return nil, err
			}
			entry.Value = raw
		}
		doc.Values = append(doc.Values, entry)
	}
	out, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		err = fmt.Errorf("failed to serialize material document: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	return out, nil
}

/**
 * @brief Checks that the material's properties line up with the shader's
 * declarations: same count, same code names in the same slot order, and
 * value types the declarations can accept. Any divergence is a validity
 * failure that suppresses the consuming pass, never a crash.
 */
func (m *MaterialData) VerifyAgainstShader(shader *PixelShaderData) error {
	if len(m.Properties) != shader.Properties.Len() {
		return fmt.Errorf("material has %d properties, shader %q declares %d: %w",
			len(m.Properties), m.ShaderAssetID, shader.Properties.Len(), core.ErrAssetValidity)
	}
	declared := shader.Properties.Properties()
	for i := range m.Properties {
		property := &m.Properties[i]
		if _, ok := shader.Properties.Get(property.CodeName); !ok {
			return fmt.Errorf("material property %q is not declared by shader %q: %w",
				property.CodeName, m.ShaderAssetID, core.ErrAssetValidity)
		}
		if declared[i].CodeName != property.CodeName {
			return fmt.Errorf("material property %q sits in slot %d where shader %q declares %q: %w",
				property.CodeName, i, m.ShaderAssetID, declared[i].CodeName, core.ErrAssetValidity)
		}
		if expected := declared[i].Type.MaterialType(); property.Type != expected {
			return fmt.Errorf("material property %q is typed %s, shader %q expects %s: %w",
				property.CodeName, property.Type, m.ShaderAssetID, expected, core.ErrAssetValidity)
		}
	}
	return nil
}

/**
 * @brief Regenerates the material's property list from the shader's
 * declarations, in declaration order, with every value left unassigned for
 * the author to fill. Existing values are discarded.
 */
func SetMaterialPropertiesFromShader(shader *PixelShaderData, material *MaterialData) {
	material.Properties = material.Properties[:0]
	for _, declared := range shader.Properties.Properties() {
		material.Properties = append(material.Properties, MaterialProperty{
			CodeName: declared.CodeName,
			Type:     declared.Type.MaterialType(),
		})
	}
}
