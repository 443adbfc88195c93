package types

// The merge engine. Both local optimistic edits and remote broadcast edits go
// through these functions, which keeps the two paths field-for-field
// identical. Merging is last-write-wins per field: fields present in the
// patch overwrite the base, fields absent from the patch are preserved, and
// applying the same patch twice yields the same result as applying it once.

// MergeLayer combines a base layer with a partial patch. Top-level fields
// merge shallowly; the nested layer_data record merges one additional level
// deep and is then filtered through the variant registry. The layer's
// identity and type are never changed by a patch.
func MergeLayer(base Layer, patch LayerPatch) Layer {
	out := base.Clone()
	for k, v := range patch {
		switch k {
		case "layer_order":
			out.LayerOrder = asInt(v)
		case "layer_visible":
			out.LayerVisible = asBool(v)
		case "layer_locked":
			out.LayerLocked = asBool(v)
		case "time_modified":
			out.TimeModified = asInt64(v)
		case "scheme_id":
			out.SchemeID = asInt64(v)
		case "layer_data":
			if d, ok := asRecord(v); ok {
				out.LayerData = mergeRecord(out.LayerData, d)
			}
		case "id", "layer_type":
			// Identity and variant tags are immutable.
		}
	}
	out.LayerData = out.LayerData.Sanitize(out.LayerType)
	return out
}

// MergeScheme combines a base scheme with a partial patch, with guide_data
// merged one level deep.
func MergeScheme(base Scheme, patch SchemePatch) Scheme {
	out := base.Clone()
	for k, v := range patch {
		switch k {
		case "name":
			out.Name = asString(v)
		case "base_color":
			out.BaseColor = asString(v)
		case "finish_base":
			out.FinishBase = asString(v)
		case "thumbnail_updated":
			out.ThumbnailUpdated = asBool(v)
		case "race_updated":
			out.RaceUpdated = asBool(v)
		case "date_modified":
			out.DateModified = asInt64(v)
		case "last_modified_by":
			out.LastModifiedBy = asInt64(v)
		case "carmake_id":
			out.CarMakeID = asInt64(v)
		case "guide_data":
			if d, ok := asRecord(v); ok {
				out.GuideData = GuideData(mergeRecord(LayerData(out.GuideData), d))
			}
		case "id", "user_id":
			// Identity and ownership are immutable.
		}
	}
	return out
}

// mergeRecord shallow-merges patch fields over a base record. Values are
// overwritten wholesale; there is no second level of recursion.
func mergeRecord(base LayerData, patch map[string]any) LayerData {
	out := base.Clone()
	if out == nil {
		out = make(LayerData, len(patch))
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
