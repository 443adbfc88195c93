package store

import "github.com/liverylab/easel/pkg/types"

// Selection, clipboard, cloning queue and load-flag accessors.

// SetCurrent selects the given layer. Passing nil clears the selection.
func (s *Store) SetCurrent(layer *types.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if layer == nil {
		s.current = nil
		return
	}
	c := layer.Clone()
	s.current = &c
}

// SelectByID selects the layer with the given id from the collection.
func (s *Store) SelectByID(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.findLocked(id)
	if !ok {
		return false
	}
	c := s.layers[i].Clone()
	s.current = &c
	return true
}

// Current returns the selected layer, or false when nothing is selected.
func (s *Store) Current() (types.Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return types.Layer{}, false
	}
	return s.current.Clone(), true
}

// MergeCurrent merges a patch into the selected layer only. The list copy is
// not touched; dispatcher paths that change both go through MergeListItem.
func (s *Store) MergeCurrent(patch types.LayerPatch) (types.Layer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return types.Layer{}, false
	}
	merged := types.MergeLayer(*s.current, patch)
	s.current = &merged
	return merged.Clone(), true
}

// SetClipboard stores a layer on the clipboard. Passing nil clears it.
func (s *Store) SetClipboard(layer *types.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if layer == nil {
		s.clipboard = nil
		return
	}
	c := layer.Clone()
	s.clipboard = &c
}

// Clipboard returns the clipboard layer, or false when empty.
func (s *Store) Clipboard() (types.Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.clipboard == nil {
		return types.Layer{}, false
	}
	return s.clipboard.Clone(), true
}

// AddCloning stages a ghost layer under the given clone key while its create
// round trip is in flight, so the canvas can paint it before it has a
// durable identity.
func (s *Store) AddCloning(key string, ghost types.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cloning[key] = ghost.Clone()
}

// RemoveCloning releases the ghost staged under key.
func (s *Store) RemoveCloning(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cloning, key)
}

// CloningLayers returns the ghosts currently awaiting durable identities.
func (s *Store) CloningLayers() map[string]types.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]types.Layer, len(s.cloning))
	for k, v := range s.cloning {
		out[k] = v.Clone()
	}
	return out
}

// SetLoaded records whether the layer's image assets finished loading.
func (s *Store) SetLoaded(id int64, done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded[id] = done
}

// Loaded reports whether the layer's image assets finished loading.
func (s *Store) Loaded(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded[id]
}
