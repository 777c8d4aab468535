package assets

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/spaghettifunk/patina/engine/core"
)

/**
 * @brief The declared type of a material property. The tag decides how the
 * JSON value is parsed and how many lanes of the uniform slot it fills.
 */
type MaterialPropertyType uint32

const (
	MaterialPropertyUndefined MaterialPropertyType = iota
	MaterialPropertyTextureAsset
	MaterialPropertyInt
	MaterialPropertyInt2
	MaterialPropertyInt3
	MaterialPropertyInt4
	MaterialPropertyFloat
	MaterialPropertyFloat2
	MaterialPropertyFloat3
	MaterialPropertyFloat4
	MaterialPropertyBool
)

/**
 * @brief The fixed uniform-buffer slot stride in bytes. Every assigned
 * scalar, vector or bool value occupies exactly one slot; texture
 * references occupy none.
 */
const PropertySlotSize = 16

/**
 * @brief Resolves a material document type string. Matching is
 * case-insensitive; unknown strings are a parse failure.
 */
func ParseMaterialPropertyType(value string) (MaterialPropertyType, error) {
	switch strings.ToLower(value) {
	case "texture_asset":
		return MaterialPropertyTextureAsset, nil
	case "int":
		return MaterialPropertyInt, nil
	case "int2":
		return MaterialPropertyInt2, nil
	case "int3":
		return MaterialPropertyInt3, nil
	case "int4":
		return MaterialPropertyInt4, nil
	case "float":
		return MaterialPropertyFloat, nil
	case "float2":
		return MaterialPropertyFloat2, nil
	case "float3":
		return MaterialPropertyFloat3, nil
	case "float4":
		return MaterialPropertyFloat4, nil
	case "bool":
		return MaterialPropertyBool, nil
	default:
		return MaterialPropertyUndefined, fmt.Errorf("unknown material property type %q: %w", value, core.ErrAssetParse)
	}
}

func (t MaterialPropertyType) String() string {
	switch t {
	case MaterialPropertyTextureAsset:
		return "texture_asset"
	case MaterialPropertyInt:
		return "int"
	case MaterialPropertyInt2:
		return "int2"
	case MaterialPropertyInt3:
		return "int3"
	case MaterialPropertyInt4:
		return "int4"
	case MaterialPropertyFloat:
		return "float"
	case MaterialPropertyFloat2:
		return "float2"
	case MaterialPropertyFloat3:
		return "float3"
	case MaterialPropertyFloat4:
		return "float4"
	case MaterialPropertyBool:
		return "bool"
	default:
		return "undefined"
	}
}

/**
 * @brief The number of scalar lanes a value of this type fills inside its
 * slot. Texture references and undefined types have no lanes.
 */
func (t MaterialPropertyType) ElementCount() int {
	switch t {
	case MaterialPropertyInt, MaterialPropertyFloat, MaterialPropertyBool:
		return 1
	case MaterialPropertyInt2, MaterialPropertyFloat2:
		return 2
	case MaterialPropertyInt3, MaterialPropertyFloat3:
		return 3
	case MaterialPropertyInt4, MaterialPropertyFloat4:
		return 4
	default:
		return 0
	}
}

/**
 * @brief The assigned payload of a material property. The concrete value
 * types below are the only implementations; each carries its own tag so a
 * payload can never disagree with its declared type.
 */
type PropertyValue interface {
	PropertyType() MaterialPropertyType
}

type TextureAssetValue string
type IntValue int32
type Int2Value [2]int32
type Int3Value [3]int32
type Int4Value [4]int32
type FloatValue float32
type Float2Value [2]float32
type Float3Value [3]float32
type Float4Value [4]float32
type BoolValue bool

func (TextureAssetValue) PropertyType() MaterialPropertyType { return MaterialPropertyTextureAsset }
func (IntValue) PropertyType() MaterialPropertyType          { return MaterialPropertyInt }
func (Int2Value) PropertyType() MaterialPropertyType         { return MaterialPropertyInt2 }
func (Int3Value) PropertyType() MaterialPropertyType         { return MaterialPropertyInt3 }
func (Int4Value) PropertyType() MaterialPropertyType         { return MaterialPropertyInt4 }
func (FloatValue) PropertyType() MaterialPropertyType        { return MaterialPropertyFloat }
func (Float2Value) PropertyType() MaterialPropertyType       { return MaterialPropertyFloat2 }
func (Float3Value) PropertyType() MaterialPropertyType       { return MaterialPropertyFloat3 }
func (Float4Value) PropertyType() MaterialPropertyType       { return MaterialPropertyFloat4 }
func (BoolValue) PropertyType() MaterialPropertyType         { return MaterialPropertyBool }

func parseNumericVector[E int32 | float32](assetID, codeName string, raw json.RawMessage, count int) ([]E, error) {
	var elements []E
	if err := json.Unmarshal(raw, &elements); err != nil {
		err = fmt.Errorf("asset %s: property %q expects an array of numeric elements (%v): %w", assetID, codeName, err, core.ErrAssetParse)
		core.LogError(err.Error())
		return nil, err
	}
	if len(elements) != count {
		err := fmt.Errorf("asset %s: property %q expects %d elements, document has %d: %w", assetID, codeName, count, len(elements), core.ErrAssetParse)
		core.LogError(err.Error())
		return nil, err
	}
	return elements, nil
}

// parsePropertyValue turns the raw JSON of a material document "value" field
// into the payload matching the declared type.
func parsePropertyValue(assetID, codeName string, propertyType MaterialPropertyType, raw json.RawMessage) (PropertyValue, error) {
	switch propertyType {
	case MaterialPropertyTextureAsset:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			err = fmt.Errorf("asset %s: property %q expects an asset identifier string (%v): %w", assetID, codeName, err, core.ErrAssetParse)
			core.LogError(err.Error())
			return nil, err
		}
		return TextureAssetValue(v), nil
	case MaterialPropertyInt:
		var v int32
		if err := json.Unmarshal(raw, &v); err != nil {
			err = fmt.Errorf("asset %s: property %q expects an integer (%v): %w", assetID, codeName, err, core.ErrAssetParse)
			core.LogError(err.Error())
			return nil, err
		}
		return IntValue(v), nil
	case MaterialPropertyInt2:
		e, err := parseNumericVector[int32](assetID, codeName, raw, 2)
		if err != nil {
			return nil, err
		}
		return Int2Value{e[0], e[1]}, nil
	case MaterialPropertyInt3:
		e, err := parseNumericVector[int32](assetID, codeName, raw, 3)
		if err != nil {
			return nil, err
		}
		return Int3Value{e[0], e[1], e[2]}, nil
	case MaterialPropertyInt4:
		e, err := parseNumericVector[int32](assetID, codeName, raw, 4)
		if err != nil {
			return nil, err
		}
		return Int4Value{e[0], e[1], e[2], e[3]}, nil
	case MaterialPropertyFloat:
		var v float32
		if err := json.Unmarshal(raw, &v); err != nil {
			err = fmt.Errorf("asset %s: property %q expects a number (%v): %w", assetID, codeName, err, core.ErrAssetParse)
			core.LogError(err.Error())
			return nil, err
		}
		return FloatValue(v), nil
	case MaterialPropertyFloat2:
		e, err := parseNumericVector[float32](assetID, codeName, raw, 2)
		if err != nil {
			return nil, err
		}
		return Float2Value{e[0], e[1]}, nil
	case MaterialPropertyFloat3:
		e, err := parseNumericVector[float32](assetID, codeName, raw, 3)
		if err != nil {
			return nil, err
		}
		return Float3Value{e[0], e[1], e[2]}, nil
	case MaterialPropertyFloat4:
		e, err := parseNumericVector[float32](assetID, codeName, raw, 4)
		if err != nil {
			return nil, err
		}
		return Float4Value{e[0], e[1], e[2], e[3]}, nil
	case MaterialPropertyBool:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			err = fmt.Errorf("asset %s: property %q expects a boolean (%v): %w", assetID, codeName, err, core.ErrAssetParse)
			core.LogError(err.Error())
			return nil, err
		}
		return BoolValue(v), nil
	default:
		err := fmt.Errorf("asset %s: property %q has no parsable type: %w", assetID, codeName, core.ErrAssetParse)
		core.LogError(err.Error())
		return nil, err
	}
}

// writeValueSlot packs one assigned value into a single slot at the front of
// dst, little-endian, zero-filling the unused lanes. Texture references are
// bound as separate resources and write nothing. Returns the bytes consumed.
func writeValueSlot(dst []byte, value PropertyValue) int {
	if _, isTexture := value.(TextureAssetValue); isTexture {
		return 0
	}

	clear(dst[:PropertySlotSize])
	switch v := value.(type) {
	case IntValue:
		binary.LittleEndian.PutUint32(dst, uint32(v))
	case Int2Value:
		for i, lane := range v {
			binary.LittleEndian.PutUint32(dst[i*4:], uint32(lane))
		}
	case Int3Value:
		for i, lane := range v {
			binary.LittleEndian.PutUint32(dst[i*4:], uint32(lane))
		}
	case Int4Value:
		for i, lane := range v {
			binary.LittleEndian.PutUint32(dst[i*4:], uint32(lane))
		}
	case FloatValue:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
	case Float2Value:
		for i, lane := range v {
			binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(lane))
		}
	case Float3Value:
		for i, lane := range v {
			binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(lane))
		}
	case Float4Value:
		for i, lane := range v {
			binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(lane))
		}
	case BoolValue:
		if v {
			dst[0] = 1
		}
	}
	return PropertySlotSize
}
