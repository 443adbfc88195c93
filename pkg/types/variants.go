package types

// Shape sub-types carried in a shape layer's layer_data "type" field.
const (
	ShapeRect     = "rect"
	ShapeEllipse  = "ellipse"
	ShapeLine     = "line"
	ShapePolygon  = "polygon"
	ShapeStar     = "star"
	ShapeArrow    = "arrow"
	ShapeWedge    = "wedge"
	ShapeRing     = "ring"
	ShapeRegPoly  = "regular-polygon"
	ShapeCross    = "cross"
	ShapeArc      = "arc"
	ShapePen      = "pen"
	ShapeDataType = "type"
)

// LayerData is the dynamic per-variant payload of a layer. Fields are merged
// one level deep and filtered against the variant registry so that fields a
// variant does not declare never reach storage or peers.
type LayerData map[string]any

// Clone returns a shallow copy of the record.
func (d LayerData) Clone() LayerData {
	if d == nil {
		return nil
	}
	out := make(LayerData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// ShapeType returns the "type" sub-tag, or "" when absent.
func (d LayerData) ShapeType() string {
	s, _ := d[ShapeDataType].(string)
	return s
}

// fieldSet builds a lookup set from field name lists.
func fieldSet(groups ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, g := range groups {
		for _, f := range g {
			set[f] = true
		}
	}
	return set
}

// Field groups shared across variants.
var (
	positionFields = []string{
		"name", "left", "top", "width", "height", "rotation",
		"flop", "flip", "opacity", "editLock",
	}
	strokeFields = []string{
		"color", "opacity_color", "scolor", "stroke", "stroke_scale",
	}
	shadowFields = []string{
		"shadowColor", "shadowBlur", "shadowOpacity",
		"shadowOffsetX", "shadowOffsetY",
	}
	blendFields = []string{"blendType", "paddingX", "paddingY"}
	finishField = []string{"finish"}
	imageFields = []string{"source_file", "preview_file", "fromOldSource",
		"legacy", "img", "sizeLocked", "boardLocked"}
	cornerFields = []string{
		"cornerTopLeft", "cornerTopRight",
		"cornerBottomLeft", "cornerBottomRight",
	}
	textFields = []string{
		"text", "font", "size", "color", "scolor", "stroke",
		"lineHeight", "letterSpacing",
	}
	lineFields    = []string{"points", "pointerLength", "pointerWidth", "lineCap"}
	polygonFields = []string{"numPoints", "innerRadius", "outerRadius", "angle", "ratio"}
)

// variantKey identifies one concrete layer_data shape.
type variantKey struct {
	layerType string
	shapeType string
}

// variantFields is the closed registry of (layer_type, shape type) variants
// and the layer_data fields each one admits. Shape variants are keyed by the
// "type" sub-tag; every other layer type has a single variant keyed by "".
var variantFields = map[variantKey]map[string]bool{
	{LayerTypeBase, ""}: fieldSet(finishField, strokeFields,
		[]string{"basePaintId", "baseColor", "opacity"}),
	{LayerTypeCar, ""}: fieldSet(finishField,
		[]string{"opacity", "visible", "img"}),
	{LayerTypeOverlay, ""}: fieldSet(positionFields, strokeFields,
		shadowFields, finishField, imageFields),
	{LayerTypeLogo, ""}: fieldSet(positionFields, shadowFields,
		blendFields, finishField, imageFields),
	{LayerTypeUpload, ""}: fieldSet(positionFields, shadowFields,
		blendFields, finishField, imageFields),
	{LayerTypeText, ""}: fieldSet(positionFields, shadowFields,
		blendFields, finishField, textFields),

	{LayerTypeShape, ShapeRect}:    fieldSet(shapeCommon(), cornerFields),
	{LayerTypeShape, ShapeEllipse}: fieldSet(shapeCommon()),
	{LayerTypeShape, ShapeLine}:    fieldSet(shapeCommon(), lineFields),
	{LayerTypeShape, ShapeArrow}:   fieldSet(shapeCommon(), lineFields),
	{LayerTypeShape, ShapePen}:     fieldSet(shapeCommon(), lineFields),
	{LayerTypeShape, ShapePolygon}: fieldSet(shapeCommon(), polygonFields, lineFields),
	{LayerTypeShape, ShapeStar}:    fieldSet(shapeCommon(), polygonFields),
	{LayerTypeShape, ShapeRegPoly}: fieldSet(shapeCommon(), polygonFields),
	{LayerTypeShape, ShapeWedge}:   fieldSet(shapeCommon(), polygonFields),
	{LayerTypeShape, ShapeRing}:    fieldSet(shapeCommon(), polygonFields),
	{LayerTypeShape, ShapeCross}:   fieldSet(shapeCommon(), cornerFields),
	{LayerTypeShape, ShapeArc}:     fieldSet(shapeCommon(), polygonFields),
}

func shapeCommon() []string {
	out := []string{ShapeDataType}
	out = append(out, positionFields...)
	out = append(out, strokeFields...)
	out = append(out, shadowFields...)
	out = append(out, blendFields...)
	out = append(out, finishField...)
	return out
}

// AllowedFields returns the admitted layer_data field set for a variant, or
// nil when the (layerType, shapeType) pair is not registered.
func AllowedFields(layerType, shapeType string) map[string]bool {
	if layerType != LayerTypeShape {
		shapeType = ""
	}
	return variantFields[variantKey{layerType, shapeType}]
}

// Sanitize returns a copy of d with every field the variant does not declare
// removed. Unknown variants sanitize to an empty record so undeclared data
// can never leak into storage or onto the wire.
func (d LayerData) Sanitize(layerType string) LayerData {
	allowed := AllowedFields(layerType, d.ShapeType())
	out := make(LayerData, len(d))
	for k, v := range d {
		if allowed[k] {
			out[k] = v
		}
	}
	return out
}
