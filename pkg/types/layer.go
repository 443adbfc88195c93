package types

// Layer types. Every layer carries exactly one of these tags; the tag selects
// which layer_data fields are recognized and which ordering group the layer
// belongs to.
const (
	LayerTypeBase    = "base"
	LayerTypeShape   = "shape"
	LayerTypeLogo    = "logo"
	LayerTypeText    = "text"
	LayerTypeUpload  = "upload"
	LayerTypeOverlay = "overlay"
	LayerTypeCar     = "car"
)

// validLayerTypes is the set of recognized layer type values.
var validLayerTypes = map[string]bool{
	LayerTypeBase:    true,
	LayerTypeShape:   true,
	LayerTypeLogo:    true,
	LayerTypeText:    true,
	LayerTypeUpload:  true,
	LayerTypeOverlay: true,
	LayerTypeCar:     true,
}

// ValidLayerType reports whether t is a recognized layer type.
func ValidLayerType(t string) bool {
	return validLayerTypes[t]
}

// Ordering groups. Layers in the same group keep mutually distinct
// layer_order values; layers in different groups never collide because they
// are painted in separate passes.
const (
	GroupBase    = "base"
	GroupShape   = "shape"
	GroupGraphic = "graphic" // logo, text and upload layers share one group
	GroupOverlay = "overlay"
	GroupCar     = "car"
)

// OrderGroup returns the ordering group for a layer type. Logo, text and
// upload layers stack against each other and therefore share one group.
func OrderGroup(layerType string) string {
	switch layerType {
	case LayerTypeBase:
		return GroupBase
	case LayerTypeShape:
		return GroupShape
	case LayerTypeLogo, LayerTypeText, LayerTypeUpload:
		return GroupGraphic
	case LayerTypeOverlay:
		return GroupOverlay
	case LayerTypeCar:
		return GroupCar
	default:
		return ""
	}
}

// Layer is one positioned visual element belonging to a scheme. The concrete
// shape of LayerData depends on LayerType (and, for shape layers, on the
// "type" sub-tag inside LayerData).
type Layer struct {
	ID           int64     `json:"id"`
	SchemeID     int64     `json:"scheme_id"`
	LayerType    string    `json:"layer_type"`
	LayerOrder   int       `json:"layer_order"`
	LayerVisible bool      `json:"layer_visible"`
	LayerLocked  bool      `json:"layer_locked"`
	TimeModified int64     `json:"time_modified"`
	LayerData    LayerData `json:"layer_data"`
}

// Clone returns a deep copy of the layer. LayerData is copied one level deep,
// which covers every field the variant registry admits.
func (l Layer) Clone() Layer {
	out := l
	out.LayerData = l.LayerData.Clone()
	return out
}

// Group returns the layer's ordering group.
func (l Layer) Group() string {
	return OrderGroup(l.LayerType)
}
