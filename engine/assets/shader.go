package assets

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spaghettifunk/patina/engine/core"
)

/**
 * @brief The declared type of a shader property. Sampler kinds describe how
 * a texture is bound; the remaining kinds mirror the material value types.
 * RGB/RGBA are Float3/Float4 with a color hint for authoring tools and share
 * their binary layout.
 */
type ShaderPropertyType uint32

const (
	ShaderPropertyUndefined ShaderPropertyType = iota
	ShaderPropertySampler2D
	ShaderPropertySamplerArraySharedMain
	ShaderPropertySamplerArraySharedAdditional
	ShaderPropertyInt
	ShaderPropertyInt2
	ShaderPropertyInt3
	ShaderPropertyInt4
	ShaderPropertyFloat
	ShaderPropertyFloat2
	ShaderPropertyFloat3
	ShaderPropertyFloat4
	ShaderPropertyRGB
	ShaderPropertyRGBA
	ShaderPropertyBool
)

/**
 * @brief Resolves a shader metadata type string. Matching is
 * case-insensitive; unknown strings are a parse failure.
 */
func ParseShaderPropertyType(value string) (ShaderPropertyType, error) {
	switch strings.ToLower(value) {
	case "sampler2d":
		return ShaderPropertySampler2D, nil
	case "samplerarrayshared_main":
		return ShaderPropertySamplerArraySharedMain, nil
	case "samplerarrayshared_additional":
		return ShaderPropertySamplerArraySharedAdditional, nil
	case "int":
		return ShaderPropertyInt, nil
	case "int2":
		return ShaderPropertyInt2, nil
	case "int3":
		return ShaderPropertyInt3, nil
	case "int4":
		return ShaderPropertyInt4, nil
	case "float":
		return ShaderPropertyFloat, nil
	case "float2":
		return ShaderPropertyFloat2, nil
	case "float3":
		return ShaderPropertyFloat3, nil
	case "float4":
		return ShaderPropertyFloat4, nil
	case "rgb":
		return ShaderPropertyRGB, nil
	case "rgba":
		return ShaderPropertyRGBA, nil
	case "bool":
		return ShaderPropertyBool, nil
	default:
		return ShaderPropertyUndefined, fmt.Errorf("unknown shader property type %q: %w", value, core.ErrAssetParse)
	}
}

func (t ShaderPropertyType) String() string {
	switch t {
	case ShaderPropertySampler2D:
		return "sampler2d"
	case ShaderPropertySamplerArraySharedMain:
		return "samplerarrayshared_main"
	case ShaderPropertySamplerArraySharedAdditional:
		return "samplerarrayshared_additional"
	case ShaderPropertyInt:
		return "int"
	case ShaderPropertyInt2:
		return "int2"
	case ShaderPropertyInt3:
		return "int3"
	case ShaderPropertyInt4:
		return "int4"
	case ShaderPropertyFloat:
		return "float"
	case ShaderPropertyFloat2:
		return "float2"
	case ShaderPropertyFloat3:
		return "float3"
	case ShaderPropertyFloat4:
		return "float4"
	case ShaderPropertyRGB:
		return "rgb"
	case ShaderPropertyRGBA:
		return "rgba"
	case ShaderPropertyBool:
		return "bool"
	default:
		return "undefined"
	}
}

/** @brief Whether this property is bound as a texture instead of a uniform. */
func (t ShaderPropertyType) IsSampler() bool {
	switch t {
	case ShaderPropertySampler2D, ShaderPropertySamplerArraySharedMain, ShaderPropertySamplerArraySharedAdditional:
		return true
	default:
		return false
	}
}

/**
 * @brief The material property type a value for this shader property must
 * carry. Sampler kinds bind texture asset references; the color hints map
 * to their vector layout.
 */
func (t ShaderPropertyType) MaterialType() MaterialPropertyType {
	switch t {
	case ShaderPropertySampler2D, ShaderPropertySamplerArraySharedMain, ShaderPropertySamplerArraySharedAdditional:
		return MaterialPropertyTextureAsset
	case ShaderPropertyInt:
		return MaterialPropertyInt
	case ShaderPropertyInt2:
		return MaterialPropertyInt2
	case ShaderPropertyInt3:
		return MaterialPropertyInt3
	case ShaderPropertyInt4:
		return MaterialPropertyInt4
	case ShaderPropertyFloat:
		return MaterialPropertyFloat
	case ShaderPropertyFloat2:
		return MaterialPropertyFloat2
	case ShaderPropertyFloat3, ShaderPropertyRGB:
		return MaterialPropertyFloat3
	case ShaderPropertyFloat4, ShaderPropertyRGBA:
		return MaterialPropertyFloat4
	case ShaderPropertyBool:
		return MaterialPropertyBool
	default:
		return MaterialPropertyUndefined
	}
}

// scalarBase returns the base declaration type and lane count used by the
// uniform emission. Samplers have no uniform representation.
func (t ShaderPropertyType) scalarBase() (string, int) {
	switch t {
	case ShaderPropertyInt:
		return "int", 1
	case ShaderPropertyInt2:
		return "int", 2
	case ShaderPropertyInt3:
		return "int", 3
	case ShaderPropertyInt4:
		return "int", 4
	case ShaderPropertyFloat:
		return "float", 1
	case ShaderPropertyFloat2:
		return "float", 2
	case ShaderPropertyFloat3, ShaderPropertyRGB:
		return "float", 3
	case ShaderPropertyFloat4, ShaderPropertyRGBA:
		return "float", 4
	case ShaderPropertyBool:
		return "bool", 1
	default:
		return "", 0
	}
}

/**
 * @brief One property a pixel shader declares as its input.
 */
type ShaderProperty struct {
	/** @brief The identifier binding a material value to this property. */
	CodeName string
	/** @brief How the property is typed and bound. */
	Type ShaderPropertyType
	/** @brief Authoring hint shown by editing tools. Never used at runtime. */
	Description string
}

/**
 * @brief Emits the uniform declaration for this property plus the padding
 * members that keep the shader-side struct aligned with the 16-byte slot
 * layout of the material buffer. Sampler properties are bound as separate
 * resources and emit nothing.
 */
func (p ShaderProperty) WriteAsShaderCode(out *strings.Builder) {
	base, lanes := p.Type.scalarBase()
	if lanes == 0 {
		return
	}
	if lanes == 1 {
		fmt.Fprintf(out, "%s %s;\n", base, p.CodeName)
	} else {
		fmt.Fprintf(out, "%s%d %s;\n", base, lanes, p.CodeName)
	}
	for i := lanes; i < 4; i++ {
		fmt.Fprintf(out, "%s %s_padding_%d;\n", base, p.CodeName, i+1)
	}
}

/**
 * @brief An insertion-ordered set of shader properties indexed by code name.
 * Declaration order defines the uniform slot order, so it must be preserved
 * across parse/serialize round trips.
 */
type ShaderPropertySet struct {
	properties []ShaderProperty
	index      map[string]int
}

/** @brief Appends a property. Duplicate code names are rejected. */
func (s *ShaderPropertySet) Add(property ShaderProperty) error {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, exists := s.index[property.CodeName]; exists {
		return fmt.Errorf("duplicate shader property %q: %w", property.CodeName, core.ErrAssetParse)
	}
	s.index[property.CodeName] = len(s.properties)
	s.properties = append(s.properties, property)
	return nil
}

/** @brief Looks a property up by code name. */
func (s *ShaderPropertySet) Get(codeName string) (ShaderProperty, bool) {
	i, ok := s.index[codeName]
	if !ok {
		return ShaderProperty{}, false
	}
	return s.properties[i], true
}

func (s *ShaderPropertySet) Len() int {
	return len(s.properties)
}

/** @brief The properties in declaration order. The slice must not be mutated. */
func (s *ShaderPropertySet) Properties() []ShaderProperty {
	return s.properties
}

/**
 * @brief The parsed payload of a pixel shader asset: the raw fragment
 * source and the properties it expects the material to provide.
 */
type PixelShaderData struct {
	/** @brief The fragment source before any composition. */
	ShaderSource string
	/** @brief Declared inputs in declaration order. */
	Properties ShaderPropertySet
}

type shaderPropertyDocument struct {
	CodeName    string `json:"code_name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type pixelShaderDocument struct {
	Properties []shaderPropertyDocument `json:"properties"`
}

/**
 * @brief Parses the metadata document of a pixel shader asset. The shader
 * source itself lives in a sibling file and is filled in by the library.
 */
func PixelShaderDataFromJSON(assetID string, document []byte, data *PixelShaderData) error {
	var doc pixelShaderDocument
	if err := json.Unmarshal(document, &doc); err != nil {
		err = fmt.Errorf("asset %s: malformed shader metadata (%v): %w", assetID, err, core.ErrAssetParse)
		core.LogError(err.Error())
		return err
	}
	data.Properties = ShaderPropertySet{}
	for _, entry := range doc.Properties {
		if entry.CodeName == "" {
			err := fmt.Errorf("asset %s: shader property is missing a code_name: %w", assetID, core.ErrAssetParse)
			core.LogError(err.Error())
			return err
		}
		propertyType, err := ParseShaderPropertyType(entry.Type)
		if err != nil {
			err = fmt.Errorf("asset %s: shader property %q: %w", assetID, entry.CodeName, err)
			core.LogError(err.Error())
			return err
		}
		property := ShaderProperty{
			CodeName:    entry.CodeName,
			Type:        propertyType,
			Description: entry.Description,
		}
		if err := data.Properties.Add(property); err != nil {
			err = fmt.Errorf("asset %s: %w", assetID, err)
			core.LogError(err.Error())
			return err
		}
	}
	return nil
}

/** @brief Serializes the shader metadata back to its document form. */
func PixelShaderDataToJSON(data *PixelShaderData) ([]byte, error) {
	doc := pixelShaderDocument{
		Properties: make([]shaderPropertyDocument, 0, data.Properties.Len()),
	}
	for _, property := range data.Properties.Properties() {
		doc.Properties = append(doc.Properties, shaderPropertyDocument{
			CodeName:    property.CodeName,
			Type:        property.Type.String(),
			Description: property.Description,
		})
	}
	out, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		err = fmt.Errorf("failed to serialize shader metadata: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	return out, nil
}
