package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/liverylab/easel/internal/broadcast"
	"github.com/liverylab/easel/internal/history"
	"github.com/liverylab/easel/pkg/types"
)

// CreateOptions controls the optional parts of a create dispatch.
type CreateOptions struct {
	// Record pushes a history item so the create is undoable.
	Record bool

	// OnDone runs after the created layer is in the store, with its durable
	// identity. Used to release cloning-queue ghosts.
	OnDone func(types.Layer)
}

// CreateLayer dispatches a layer create: the persistence round trip assigns
// the identity, the order reconciler makes room in the layer's group, and the
// created layer lands in the store at order 0 and becomes the selection
// (base layers are never selected). Unlike updates, a create is not
// optimistic; nothing happens locally until the identity exists.
func (s *Session) CreateLayer(ctx context.Context, draft types.Layer, opts CreateOptions) (types.Layer, error) {
	scheme, ok := s.store.Scheme()
	if !ok {
		return types.Layer{}, types.ErrSchemeMissing
	}
	draft.ID = 0
	draft.SchemeID = scheme.ID
	draft.LayerOrder = 0
	draft.TimeModified = time.Now().Unix()
	draft.LayerData = draft.LayerData.Sanitize(draft.LayerType)

	created, err := s.persist.CreateLayer(ctx, draft)
	if err != nil {
		err = fmt.Errorf("create %s layer: %w", draft.LayerType, err)
		s.fail("create layer", err)
		return types.Layer{}, err
	}

	s.reconcileOrder(draft.Group(), 1)
	s.store.Insert(created)
	if created.LayerType != types.LayerTypeBase {
		s.store.SelectByID(created.ID)
	}
	if opts.Record {
		l := created.Clone()
		s.history.Push(history.Item{Kind: history.LayerAdded, Layer: &l})
	}
	s.publish(broadcast.EventCreateLayer, created)
	if opts.OnDone != nil {
		opts.OnDone(created)
	}
	return created, nil
}

// CreateLayers dispatches a batch create. The batch occupies orders 0..n-1
// in its group after existing members shift by n. All drafts must belong to
// the same ordering group.
func (s *Session) CreateLayers(ctx context.Context, drafts []types.Layer, opts CreateOptions) ([]types.Layer, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	scheme, ok := s.store.Scheme()
	if !ok {
		return nil, types.ErrSchemeMissing
	}
	for i := range drafts {
		drafts[i].ID = 0
		drafts[i].SchemeID = scheme.ID
		drafts[i].LayerOrder = i
		drafts[i].TimeModified = time.Now().Unix()
		drafts[i].LayerData = drafts[i].LayerData.Sanitize(drafts[i].LayerType)
	}

	created, err := s.persist.CreateLayers(ctx, drafts)
	if err != nil {
		err = fmt.Errorf("create %d layers: %w", len(drafts), err)
		s.fail("create layers", err)
		return nil, err
	}

	s.reconcileOrder(drafts[0].Group(), len(created))
	s.store.Concat(created)
	if opts.Record {
		s.history.Push(history.Item{Kind: history.LayerListAdded, Layers: cloneLayers(created)})
	}
	s.publish(broadcast.EventCreateLayerList, created)
	if opts.OnDone != nil {
		for _, l := range created {
			opts.OnDone(l)
		}
	}
	return created, nil
}

// UpdateLayer dispatches a partial layer update: optimistic store merge,
// asynchronous persist, publish. The history item carries the pre-merge
// snapshot and the snapshot-plus-patch, so replay never re-reads the store.
func (s *Session) UpdateLayer(ctx context.Context, id int64, patch types.LayerPatch, record bool) (types.Layer, error) {
	prev, ok := s.store.Layer(id)
	if !ok {
		return types.Layer{}, fmt.Errorf("update layer %d: %w", id, types.ErrNotFound)
	}
	next := types.MergeLayer(prev, patch)

	merged, _ := s.store.MergeListItem(id, patch)
	s.persistAsync(ctx, "persist layer update", func(ctx context.Context) error {
		_, err := s.persist.UpdateLayer(ctx, id, patch)
		return err
	})
	s.publish(broadcast.EventUpdateLayer, patch.WithID(id))
	if record {
		p, n := prev.Clone(), next.Clone()
		s.history.Push(history.Item{Kind: history.LayerChanged, PrevLayer: &p, NextLayer: &n})
	}
	return merged, nil
}

// UpdateLayers dispatches a bulk update, one patch per target layer.
func (s *Session) UpdateLayers(ctx context.Context, patches []types.LayerPatch, record bool) ([]types.Layer, error) {
	var prevs, nexts []types.Layer
	for _, p := range patches {
		prev, ok := s.store.Layer(p.ID())
		if !ok {
			continue
		}
		prevs = append(prevs, prev)
		nexts = append(nexts, types.MergeLayer(prev, p))
	}

	merged := s.store.MergeListItems(patches)
	s.persistAsync(ctx, "persist bulk layer update", func(ctx context.Context) error {
		for _, p := range patches {
			if _, err := s.persist.UpdateLayer(ctx, p.ID(), p); err != nil {
				return err
			}
		}
		return nil
	})
	s.publish(broadcast.EventBulkUpdateLayer, patches)
	if record {
		s.history.Push(history.Item{
			Kind:       history.LayerBulkChanged,
			PrevLayers: prevs,
			NextLayers: nexts,
		})
	}
	return merged, nil
}

// DeleteLayer dispatches a layer delete. The history item carries the full
// removed layer: undoing a delete means re-creating it.
func (s *Session) DeleteLayer(ctx context.Context, id int64, record bool) error {
	removed, ok := s.store.DeleteListItem(id)
	if !ok {
		return fmt.Errorf("delete layer %d: %w", id, types.ErrNotFound)
	}
	s.persistAsync(ctx, "persist layer delete", func(ctx context.Context) error {
		return s.persist.DeleteLayer(ctx, id)
	})
	s.publish(broadcast.EventDeleteLayer, removed)
	if record {
		l := removed.Clone()
		s.history.Push(history.Item{Kind: history.LayerDeleted, Layer: &l})
	}
	return nil
}

// DeleteLayers dispatches a batch delete.
func (s *Session) DeleteLayers(ctx context.Context, ids []int64, record bool) error {
	removed := s.store.DeleteListItems(ids)
	if len(removed) == 0 {
		return nil
	}
	s.persistAsync(ctx, "persist layer list delete", func(ctx context.Context) error {
		return s.persist.DeleteLayers(ctx, layerIDs(removed))
	})
	s.publish(broadcast.EventDeleteLayerList, removed)
	if record {
		s.history.Push(history.Item{Kind: history.LayerListDeleted, Layers: cloneLayers(removed)})
	}
	return nil
}

// UpdateScheme dispatches a partial scheme update.
func (s *Session) UpdateScheme(ctx context.Context, patch types.SchemePatch, record bool) (types.Scheme, error) {
	prev, ok := s.store.Scheme()
	if !ok {
		return types.Scheme{}, types.ErrSchemeMissing
	}
	next := types.MergeScheme(prev, patch)

	merged := s.store.MergeScheme(patch)
	s.persistAsync(ctx, "persist scheme update", func(ctx context.Context) error {
		_, err := s.persist.UpdateScheme(ctx, prev.ID, patch)
		return err
	})
	s.publish(broadcast.EventUpdateScheme, patch)
	if record {
		p, n := prev.Clone(), next.Clone()
		s.history.Push(history.Item{Kind: history.SchemeChanged, PrevScheme: &p, NextScheme: &n})
	}
	return merged, nil
}

// CloneLayer duplicates a layer, offset on the canvas. A ghost with the
// source's appearance sits in the cloning queue until the create round trip
// delivers the clone's durable identity.
func (s *Session) CloneLayer(ctx context.Context, src types.Layer, offsetX, offsetY float64) (types.Layer, error) {
	ghost := src.Clone()
	ghost.ID = 0
	if left, ok := ghost.LayerData["left"].(float64); ok {
		ghost.LayerData["left"] = left + offsetX
	}
	if top, ok := ghost.LayerData["top"].(float64); ok {
		ghost.LayerData["top"] = top + offsetY
	}

	key := uuid.NewString()
	s.store.AddCloning(key, ghost)

	created, err := s.CreateLayer(ctx, ghost, CreateOptions{
		Record: true,
		OnDone: func(types.Layer) { s.store.RemoveCloning(key) },
	})
	if err != nil {
		// A failed clone must not leave its ghost on the canvas.
		s.store.RemoveCloning(key)
		return types.Layer{}, err
	}
	return created, nil
}

// PasteLayer clones whatever layer sits on the clipboard.
func (s *Session) PasteLayer(ctx context.Context, offsetX, offsetY float64) (types.Layer, error) {
	src, ok := s.store.Clipboard()
	if !ok {
		return types.Layer{}, types.ErrNotFound
	}
	return s.CloneLayer(ctx, src, offsetX, offsetY)
}

func cloneLayers(layers []types.Layer) []types.Layer {
	out := make([]types.Layer, 0, len(layers))
	for _, l := range layers {
		out = append(out, l.Clone())
	}
	return out
}

func layerIDs(layers []types.Layer) []int64 {
	ids := make([]int64, 0, len(layers))
	for _, l := range layers {
		ids = append(ids, l.ID)
	}
	return ids
}
