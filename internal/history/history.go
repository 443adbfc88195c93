// Package history implements the linear undo/redo stack over recorded
// mutations. The stack never talks to storage or the network directly: undo
// and redo dispatch inverse operations through the Applier interface, which
// the session implements with its record-free mutation paths. Recreating a
// deleted layer is asynchronous (it round-trips for a new identity), so the
// stack carries a moving guard that makes overlapping traversals no-ops, and
// it remaps stale ids across the remaining items once the recreate lands.
package history

import (
	"context"
	"sync"

	"github.com/liverylab/easel/pkg/types"
)

// Kind tags one recorded mutation.
type Kind string

// Recorded mutation kinds.
const (
	LayerAdded       Kind = "layer-added"
	LayerChanged     Kind = "layer-changed"
	LayerDeleted     Kind = "layer-deleted"
	LayerBulkChanged Kind = "layer-bulk-changed"
	LayerListAdded   Kind = "layer-list-added"
	LayerListDeleted Kind = "layer-list-deleted"
	SchemeChanged    Kind = "scheme-changed"
)

// Item records one undoable mutation. Add and delete kinds carry the full
// entity (undoing a delete means re-creating it); change kinds carry
// before/after snapshots.
type Item struct {
	Kind Kind

	Layer  *types.Layer  // LayerAdded, LayerDeleted
	Layers []types.Layer // LayerListAdded, LayerListDeleted

	PrevLayer *types.Layer // LayerChanged
	NextLayer *types.Layer

	PrevLayers []types.Layer // LayerBulkChanged
	NextLayers []types.Layer

	PrevScheme *types.Scheme // SchemeChanged
	NextScheme *types.Scheme
}

// Applier is the record-free mutation surface undo and redo dispatch
// through. Implementations must not push to history and must still publish
// to peers, so a traversal on one client is observed by the others.
type Applier interface {
	// ApplyLayerSnapshot merges a full layer snapshot into the store.
	ApplyLayerSnapshot(ctx context.Context, layer types.Layer) error

	// ApplyLayerSnapshots merges a batch of full layer snapshots.
	ApplyLayerSnapshots(ctx context.Context, layers []types.Layer) error

	// ApplySchemeSnapshot merges a full scheme snapshot.
	ApplySchemeSnapshot(ctx context.Context, scheme types.Scheme) error

	// RemoveLayer deletes one layer.
	RemoveLayer(ctx context.Context, id int64) error

	// RemoveLayers deletes a batch of layers.
	RemoveLayers(ctx context.Context, ids []int64) error

	// RecreateLayer re-creates a previously deleted layer and returns it
	// with its newly assigned identity. Blocks on the persistence round
	// trip.
	RecreateLayer(ctx context.Context, layer types.Layer) (types.Layer, error)

	// RecreateLayers re-creates a batch of previously deleted layers,
	// returned in input order with new identities.
	RecreateLayers(ctx context.Context, layers []types.Layer) ([]types.Layer, error)
}

// Stack is the action history: an index-addressed list of items plus a
// cursor. The cursor sits on the last applied item; -1 means nothing is
// undoable.
type Stack struct {
	mu      sync.Mutex
	applier Applier
	items   []Item
	cursor  int
	moving  bool
}

// New creates an empty stack dispatching through the given applier.
func New(applier Applier) *Stack {
	return &Stack{applier: applier, cursor: -1}
}

// Push records a new item. Everything after the cursor is truncated, so a
// new action after undos discards the redoable tail. Pushes are ignored
// while an asynchronous traversal is in flight.
func (s *Stack) Push(item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.moving {
		return
	}
	s.items = append(s.items[:s.cursor+1], item)
	s.cursor = len(s.items) - 1
}

// CanUndo reports whether a backward traversal is possible.
func (s *Stack) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.moving && s.cursor >= 0
}

// CanRedo reports whether a forward traversal is possible.
func (s *Stack) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.moving && s.cursor < len(s.items)-1
}

// Len returns the number of recorded items.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Cursor returns the current cursor position.
func (s *Stack) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Undo dispatches the inverse of the item under the cursor and moves the
// cursor back. A no-op when nothing is undoable or a traversal is already in
// flight.
func (s *Stack) Undo(ctx context.Context) error {
	s.mu.Lock()
	if s.moving || s.cursor < 0 {
		s.mu.Unlock()
		return nil
	}
	item := s.items[s.cursor]

	switch item.Kind {
	case LayerChanged:
		s.cursor--
		s.mu.Unlock()
		return s.applier.ApplyLayerSnapshot(ctx, *item.PrevLayer)

	case LayerBulkChanged:
		s.cursor--
		s.mu.Unlock()
		return s.applier.ApplyLayerSnapshots(ctx, item.PrevLayers)

	case SchemeChanged:
		s.cursor--
		s.mu.Unlock()
		return s.applier.ApplySchemeSnapshot(ctx, *item.PrevScheme)

	case LayerAdded:
		s.cursor--
		s.mu.Unlock()
		return s.applier.RemoveLayer(ctx, item.Layer.ID)

	case LayerListAdded:
		s.cursor--
		s.mu.Unlock()
		return s.applier.RemoveLayers(ctx, layerIDs(item.Layers))

	case LayerDeleted:
		return s.recreateOne(ctx, *item.Layer, -1)

	case LayerListDeleted:
		return s.recreateList(ctx, item.Layers, -1)
	}

	s.mu.Unlock()
	return nil
}

// Redo dispatches the forward direction of the item after the cursor and
// moves the cursor forward. A no-op when nothing is redoable or a traversal
// is already in flight.
func (s *Stack) Redo(ctx context.Context) error {
	s.mu.Lock()
	if s.moving || s.cursor >= len(s.items)-1 {
		s.mu.Unlock()
		return nil
	}
	item := s.items[s.cursor+1]

	switch item.Kind {
	case LayerChanged:
		s.cursor++
		s.mu.Unlock()
		return s.applier.ApplyLayerSnapshot(ctx, *item.NextLayer)

	case LayerBulkChanged:
		s.cursor++
		s.mu.Unlock()
		return s.applier.ApplyLayerSnapshots(ctx, item.NextLayers)

	case SchemeChanged:
		s.cursor++
		s.mu.Unlock()
		return s.applier.ApplySchemeSnapshot(ctx, *item.NextScheme)

	case LayerDeleted:
		s.cursor++
		s.mu.Unlock()
		return s.applier.RemoveLayer(ctx, item.Layer.ID)

	case LayerListDeleted:
		s.cursor++
		s.mu.Unlock()
		return s.applier.RemoveLayers(ctx, layerIDs(item.Layers))

	case LayerAdded:
		return s.recreateOne(ctx, *item.Layer, +1)

	case LayerListAdded:
		return s.recreateList(ctx, item.Layers, +1)
	}

	s.mu.Unlock()
	return nil
}

// recreateOne re-creates a single layer while holding the moving guard, then
// remaps the old id across the whole stack. Called with s.mu held; the lock
// is released for the persistence round trip. The cursor only moves when the
// recreate lands.
func (s *Stack) recreateOne(ctx context.Context, layer types.Layer, step int) error {
	s.moving = true
	s.mu.Unlock()

	created, err := s.applier.RecreateLayer(ctx, layer)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.moving = false
	if err != nil {
		return err
	}
	s.remapLocked(map[int64]int64{layer.ID: created.ID})
	s.cursor += step
	return nil
}

// recreateList is the batch counterpart of recreateOne. The id remap covers
// every recreated layer, so later traversals of items still naming the old
// identities keep working.
func (s *Stack) recreateList(ctx context.Context, layers []types.Layer, step int) error {
	s.moving = true
	s.mu.Unlock()

	created, err := s.applier.RecreateLayers(ctx, layers)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.moving = false
	if err != nil {
		return err
	}
	remap := make(map[int64]int64, len(layers))
	for i := range layers {
		if i < len(created) {
			remap[layers[i].ID] = created[i].ID
		}
	}
	s.remapLocked(remap)
	s.cursor += step
	return nil
}

func layerIDs(layers []types.Layer) []int64 {
	ids := make([]int64, 0, len(layers))
	for _, l := range layers {
		ids = append(ids, l.ID)
	}
	return ids
}
