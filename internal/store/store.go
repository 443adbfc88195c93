// Package store holds the in-memory working copy of one open scheme: the
// scheme itself, its layer collection, the current selection, the clipboard,
// the cloning staging queue, and per-layer load flags. A Store is constructed
// per editing session and torn down with it; all mutation is routed through
// the session dispatcher.
package store

import (
	"sync"

	"github.com/liverylab/easel/pkg/types"
)

// Store is the authoritative local copy of one scheme and its layers.
type Store struct {
	mu sync.RWMutex

	scheme    types.Scheme
	hasScheme bool

	layers []types.Layer

	current   *types.Layer
	clipboard *types.Layer
	cloning   map[string]types.Layer
	loaded    map[int64]bool
}

// New creates an empty store for one editing session.
func New() *Store {
	return &Store{
		cloning: make(map[string]types.Layer),
		loaded:  make(map[int64]bool),
	}
}

// SetScheme replaces the scheme wholesale. Used on initial load and reload.
func (s *Store) SetScheme(scheme types.Scheme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheme = scheme.Clone()
	s.hasScheme = true
}

// Scheme returns the current scheme. The second result is false before the
// first load.
func (s *Store) Scheme() (types.Scheme, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scheme.Clone(), s.hasScheme
}

// MergeScheme merges a partial patch into the scheme.
func (s *Store) MergeScheme(patch types.SchemePatch) types.Scheme {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheme = types.MergeScheme(s.scheme, patch)
	return s.scheme.Clone()
}

// SetLayers replaces the layer collection wholesale. Used on initial load and
// reload. Any selection referring to a layer no longer present is cleared.
func (s *Store) SetLayers(layers []types.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = make([]types.Layer, 0, len(layers))
	for _, l := range layers {
		s.layers = append(s.layers, l.Clone())
	}
	if s.current != nil {
		if _, ok := s.findLocked(s.current.ID); !ok {
			s.current = nil
		}
	}
	s.loaded = make(map[int64]bool, len(layers))
}

// Layers returns a copy of the layer collection.
func (s *Store) Layers() []types.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Layer, 0, len(s.layers))
	for _, l := range s.layers {
		out = append(out, l.Clone())
	}
	return out
}

// Layer returns the layer with the given id.
func (s *Store) Layer(id int64) (types.Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.findLocked(id)
	if !ok {
		return types.Layer{}, false
	}
	return s.layers[i].Clone(), true
}

// GroupLayers returns every layer whose type falls in the given ordering
// group.
func (s *Store) GroupLayers(group string) []types.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Layer
	for _, l := range s.layers {
		if l.Group() == group {
			out = append(out, l.Clone())
		}
	}
	return out
}

// Insert appends one layer to the collection.
func (s *Store) Insert(layer types.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = append(s.layers, layer.Clone())
}

// Concat appends a batch of layers to the collection.
func (s *Store) Concat(layers []types.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range layers {
		s.layers = append(s.layers, l.Clone())
	}
}

// UpdateListItem replaces the layer with a matching id wholesale. If that
// layer is selected the selection is replaced too.
func (s *Store) UpdateListItem(layer types.Layer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.findLocked(layer.ID)
	if !ok {
		return false
	}
	s.layers[i] = layer.Clone()
	if s.current != nil && s.current.ID == layer.ID {
		c := layer.Clone()
		s.current = &c
	}
	return true
}

// MergeListItem merges a partial patch into the layer with a matching id and
// returns the merged layer. The selection is kept in lock-step so a selected
// layer and its list copy never diverge.
func (s *Store) MergeListItem(id int64, patch types.LayerPatch) (types.Layer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeListItemLocked(id, patch)
}

// MergeListItems merges a batch of patches, each addressed by its "id" field.
// Patches without a matching layer are skipped.
func (s *Store) MergeListItems(patches []types.LayerPatch) []types.Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Layer
	for _, p := range patches {
		if merged, ok := s.mergeListItemLocked(p.ID(), p); ok {
			out = append(out, merged)
		}
	}
	return out
}

func (s *Store) mergeListItemLocked(id int64, patch types.LayerPatch) (types.Layer, bool) {
	i, ok := s.findLocked(id)
	if !ok {
		return types.Layer{}, false
	}
	merged := types.MergeLayer(s.layers[i], patch)
	s.layers[i] = merged
	if s.current != nil && s.current.ID == id {
		c := merged.Clone()
		s.current = &c
	}
	return merged.Clone(), true
}

// DeleteListItem removes the layer with a matching id, clearing the selection
// if it pointed at that layer. The removed layer is returned so callers can
// record it for undo.
func (s *Store) DeleteListItem(id int64) (types.Layer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.findLocked(id)
	if !ok {
		return types.Layer{}, false
	}
	removed := s.layers[i]
	s.layers = append(s.layers[:i], s.layers[i+1:]...)
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	delete(s.loaded, id)
	return removed, true
}

// DeleteListItems removes every layer whose id is in ids, returning the
// removed layers.
func (s *Store) DeleteListItems(ids []int64) []types.Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var removed []types.Layer
	kept := s.layers[:0]
	for _, l := range s.layers {
		if drop[l.ID] {
			removed = append(removed, l)
			delete(s.loaded, l.ID)
			continue
		}
		kept = append(kept, l)
	}
	s.layers = kept
	if s.current != nil && drop[s.current.ID] {
		s.current = nil
	}
	return removed
}

func (s *Store) findLocked(id int64) (int, bool) {
	for i := range s.layers {
		if s.layers[i].ID == id {
			return i, true
		}
	}
	return 0, false
}
