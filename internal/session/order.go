package session

import (
	"context"

	"github.com/liverylab/easel/internal/broadcast"
	"github.com/liverylab/easel/pkg/types"
)

// reconcileOrder makes room at the top of an ordering group: every existing
// member shifts by +n before the incoming layer(s) take orders 0..n-1. Each
// shift goes through the regular merge path (store merge, publish, persist)
// so peers converge on the same ordering and no two group members ever share
// an order value.
func (s *Session) reconcileOrder(group string, n int) {
	if n <= 0 {
		return
	}
	for _, l := range s.store.GroupLayers(group) {
		patch := types.LayerPatch{"layer_order": l.LayerOrder + n}
		s.store.MergeListItem(l.ID, patch)
		s.publish(broadcast.EventUpdateLayer, patch.WithID(l.ID))

		id := l.ID
		s.persistAsync(context.Background(), "persist order shift", func(ctx context.Context) error {
			_, err := s.persist.UpdateLayer(ctx, id, patch)
			return err
		})
	}
}
