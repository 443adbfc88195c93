package session

import (
	"context"

	"github.com/liverylab/easel/internal/history"
	"github.com/liverylab/easel/pkg/types"
)

// The session is the action history's applier: undo and redo replay through
// the same dispatch paths as regular edits, with recording switched off so a
// traversal never re-enters the history.

var _ history.Applier = (*Session)(nil)

// ApplyLayerSnapshot merges a full layer snapshot into the store, publishes
// it, and persists it, without recording.
func (s *Session) ApplyLayerSnapshot(ctx context.Context, layer types.Layer) error {
	_, err := s.UpdateLayer(ctx, layer.ID, types.LayerSnapshot(layer), false)
	return err
}

// ApplyLayerSnapshots is the bulk counterpart of ApplyLayerSnapshot.
func (s *Session) ApplyLayerSnapshots(ctx context.Context, layers []types.Layer) error {
	patches := make([]types.LayerPatch, 0, len(layers))
	for _, l := range layers {
		patches = append(patches, types.LayerSnapshot(l))
	}
	_, err := s.UpdateLayers(ctx, patches, false)
	return err
}

// ApplySchemeSnapshot merges a full scheme snapshot without recording.
func (s *Session) ApplySchemeSnapshot(ctx context.Context, scheme types.Scheme) error {
	_, err := s.UpdateScheme(ctx, types.SchemeSnapshot(scheme), false)
	return err
}

// RemoveLayer deletes a layer without recording.
func (s *Session) RemoveLayer(ctx context.Context, id int64) error {
	return s.DeleteLayer(ctx, id, false)
}

// RemoveLayers deletes a batch of layers without recording.
func (s *Session) RemoveLayers(ctx context.Context, ids []int64) error {
	return s.DeleteLayers(ctx, ids, false)
}

// RecreateLayer runs the full create dispatch for a previously deleted
// layer. The persistence service assigns a fresh identity; the history stack
// remaps the old one.
func (s *Session) RecreateLayer(ctx context.Context, layer types.Layer) (types.Layer, error) {
	return s.CreateLayer(ctx, layer, CreateOptions{})
}

// RecreateLayers is the batch counterpart of RecreateLayer.
func (s *Session) RecreateLayers(ctx context.Context, layers []types.Layer) ([]types.Layer, error) {
	return s.CreateLayers(ctx, cloneLayers(layers), CreateOptions{})
}
