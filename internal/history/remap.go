package history

import "github.com/liverylab/easel/pkg/types"

// A recreated layer comes back with a fresh identity. Every remaining item
// that still names the old id would otherwise target a nonexistent layer on
// later traversals, so the whole stack is rewritten with the new ids. This
// covers the single and list delete paths alike.

// remapLocked rewrites every id occurrence in the stack according to remap.
// Caller holds s.mu.
func (s *Stack) remapLocked(remap map[int64]int64) {
	if len(remap) == 0 {
		return
	}
	for i := range s.items {
		item := &s.items[i]
		item.Layer = remapLayer(item.Layer, remap)
		item.PrevLayer = remapLayer(item.PrevLayer, remap)
		item.NextLayer = remapLayer(item.NextLayer, remap)
		item.Layers = remapLayers(item.Layers, remap)
		item.PrevLayers = remapLayers(item.PrevLayers, remap)
		item.NextLayers = remapLayers(item.NextLayers, remap)
	}
}

func remapLayer(l *types.Layer, remap map[int64]int64) *types.Layer {
	if l == nil {
		return nil
	}
	newID, ok := remap[l.ID]
	if !ok {
		return l
	}
	out := l.Clone()
	out.ID = newID
	return &out
}

func remapLayers(layers []types.Layer, remap map[int64]int64) []types.Layer {
	for i := range layers {
		if newID, ok := remap[layers[i].ID]; ok {
			layers[i].ID = newID
		}
	}
	return layers
}
