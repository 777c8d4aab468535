package metadata

/**
 * @brief The primitive topology of a mesh chunk.
 */
type PrimitiveType uint32

const (
	PrimitiveTriangles PrimitiveType = iota
	PrimitiveTriangleStrip
	PrimitiveLines
	PrimitivePoints
)

/**
 * @brief The storage format of one vertex attribute component.
 */
type ComponentFormat uint32

const (
	ComponentUByte ComponentFormat = iota
	ComponentByte
	ComponentUShort
	ComponentShort
	ComponentFloat
)

// Bits of MeshDataChunk.ComponentsAvailable. Position is mandatory and
// carries no bit.
const (
	VBHasCol0   uint32 = 1 << 0
	VBHasCol1   uint32 = 1 << 1
	VBHasNormal uint32 = 1 << 2
	VBHasUV0    uint32 = 1 << 3
	VBHasUV1    uint32 = 1 << 4
	VBHasUV2    uint32 = 1 << 5
	VBHasUV3    uint32 = 1 << 6
	VBHasUV4    uint32 = 1 << 7
	VBHasUV5    uint32 = 1 << 8
	VBHasUV6    uint32 = 1 << 9
	VBHasUV7    uint32 = 1 << 10
)

/**
 * @brief Describes where one attribute lives inside a vertex and how its
 * components are stored.
 */
type AttributeFormat struct {
	/** @brief The component storage format. */
	Format ComponentFormat
	/** @brief How many components the attribute has (e.g. 3 for a position). */
	Components uint32
	/** @brief Byte offset of the attribute from the start of a vertex. */
	Offset uint32
	/** @brief Whether the attribute is present in the vertex data. */
	Enable bool
	/** @brief Whether integer components are consumed without normalization. */
	Integer bool
}

/**
 * @brief A backend-independent description of a vertex layout: one position,
 * up to two colors, one normal, up to eight texture coordinate sets and an
 * optional position-matrix index slot. Consumed by the render backend's
 * native vertex format factory and serialized inside mesh chunk records.
 */
type PortableVertexDeclaration struct {
	/** @brief Total size in bytes of one vertex. */
	Stride    uint32
	Position  AttributeFormat
	Colors    [2]AttributeFormat
	Normal    AttributeFormat
	TexCoords [8]AttributeFormat
	PosMtx    AttributeFormat
}

// Fixed wire order of the declaration's attribute records.
func (d *PortableVertexDeclaration) Attributes() []*AttributeFormat {
	attrs := make([]*AttributeFormat, 0, 13)
	attrs = append(attrs, &d.Position)
	attrs = append(attrs, &d.Colors[0], &d.Colors[1])
	attrs = append(attrs, &d.Normal)
	for i := range d.TexCoords {
		attrs = append(attrs, &d.TexCoords[i])
	}
	attrs = append(attrs, &d.PosMtx)
	return attrs
}
