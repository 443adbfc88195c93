package types

import "encoding/json"

// LayerPatch is a partial layer update as it travels over the wire: a JSON
// object holding only the top-level fields being changed, with an optional
// nested "layer_data" object holding only the data fields being changed.
type LayerPatch map[string]any

// SchemePatch is a partial scheme update, same shape as LayerPatch with
// "guide_data" as the nested record.
type SchemePatch map[string]any

// ID returns the target layer id carried in the patch, or 0 when absent.
func (p LayerPatch) ID() int64 {
	return asInt64(p["id"])
}

// WithID returns a copy of the patch with the target id set, so receivers can
// route it without out-of-band addressing.
func (p LayerPatch) WithID(id int64) LayerPatch {
	out := make(LayerPatch, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out["id"] = id
	return out
}

// Clone returns a copy of the patch with the nested layer_data record copied
// one level deep.
func (p LayerPatch) Clone() LayerPatch {
	out := make(LayerPatch, len(p))
	for k, v := range p {
		if k == "layer_data" {
			if d, ok := asRecord(v); ok {
				out[k] = map[string]any(LayerData(d).Clone())
				continue
			}
		}
		out[k] = v
	}
	return out
}

// LayerSnapshot converts a full layer into a patch covering every mutable
// field. Undo and redo replay snapshots through the same merge path regular
// edits use.
func LayerSnapshot(l Layer) LayerPatch {
	return LayerPatch{
		"id":            l.ID,
		"layer_order":   l.LayerOrder,
		"layer_visible": l.LayerVisible,
		"layer_locked":  l.LayerLocked,
		"time_modified": l.TimeModified,
		"layer_data":    map[string]any(l.LayerData.Clone()),
	}
}

// SchemeSnapshot converts a full scheme into a patch covering every mutable
// field.
func SchemeSnapshot(s Scheme) SchemePatch {
	return SchemePatch{
		"name":              s.Name,
		"base_color":        s.BaseColor,
		"finish_base":       s.FinishBase,
		"guide_data":        map[string]any(s.GuideData.Clone()),
		"thumbnail_updated": s.ThumbnailUpdated,
		"race_updated":      s.RaceUpdated,
		"date_modified":     s.DateModified,
		"last_modified_by":  s.LastModifiedBy,
	}
}

// DecodeLayerPatch parses a JSON object into a LayerPatch.
func DecodeLayerPatch(raw []byte) (LayerPatch, error) {
	var p LayerPatch
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// DecodeSchemePatch parses a JSON object into a SchemePatch.
func DecodeSchemePatch(raw []byte) (SchemePatch, error) {
	var p SchemePatch
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}
