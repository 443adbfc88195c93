package types

import "encoding/json"

// Patch values arrive either as native Go values (local edits) or as decoded
// JSON (remote edits), so numeric fields may be any of int, int64, float64 or
// json.Number and booleans may be real booleans or 0/1. These converters
// normalize both sources to one representation before merging.

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}

func asInt(v any) int {
	return int(asInt64(v))
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case int:
		return b != 0
	default:
		return false
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asRecord accepts the map shapes a nested record can arrive in.
func asRecord(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case LayerData:
		return m, true
	case GuideData:
		return m, true
	default:
		return nil, false
	}
}
