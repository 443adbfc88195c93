package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/liverylab/easel/internal/broadcast"
	"github.com/liverylab/easel/pkg/types"
)

// Run drains the inbound envelope queue, applying one message at a time
// until the queue closes or the context is canceled. This is the only
// consumer of remote mutations, so remote applies never interleave.
func (s *Session) Run(ctx context.Context, inbound <-chan broadcast.Envelope) {
	for {
		select {
		case env, ok := <-inbound:
			if !ok {
				return
			}
			s.ApplyRemote(ctx, env)
		case <-ctx.Done():
			return
		}
	}
}

// ApplyRemote applies one peer mutation through the apply-only path: the
// store is updated, nothing is persisted or re-published, and nothing is
// recorded, since a receiver cannot undo someone else's edit. Decode
// failures are reported and swallowed like every other mutation error.
func (s *Session) ApplyRemote(ctx context.Context, env broadcast.Envelope) {
	switch env.Event {
	case broadcast.EventCreateLayer:
		var layer types.Layer
		if err := json.Unmarshal(env.Data, &layer); err != nil {
			s.fail("apply remote create", err)
			return
		}
		s.store.Insert(layer)

	case broadcast.EventCreateLayerList:
		var layers []types.Layer
		if err := json.Unmarshal(env.Data, &layers); err != nil {
			s.fail("apply remote list create", err)
			return
		}
		s.store.Concat(layers)

	case broadcast.EventUpdateLayer:
		patch, err := types.DecodeLayerPatch(env.Data)
		if err != nil {
			s.fail("apply remote update", err)
			return
		}
		s.store.MergeListItem(patch.ID(), patch)

	case broadcast.EventBulkUpdateLayer:
		var patches []types.LayerPatch
		if err := json.Unmarshal(env.Data, &patches); err != nil {
			s.fail("apply remote bulk update", err)
			return
		}
		s.store.MergeListItems(patches)

	case broadcast.EventDeleteLayer:
		var layer types.Layer
		if err := json.Unmarshal(env.Data, &layer); err != nil {
			s.fail("apply remote delete", err)
			return
		}
		s.store.DeleteListItem(layer.ID)

	case broadcast.EventDeleteLayerList:
		var layers []types.Layer
		if err := json.Unmarshal(env.Data, &layers); err != nil {
			s.fail("apply remote list delete", err)
			return
		}
		ids := make([]int64, 0, len(layers))
		for _, l := range layers {
			ids = append(ids, l.ID)
		}
		s.store.DeleteListItems(ids)

	case broadcast.EventUpdateScheme:
		patch, err := types.DecodeSchemePatch(env.Data)
		if err != nil {
			s.fail("apply remote scheme update", err)
			return
		}
		s.store.MergeScheme(patch)

	case broadcast.EventDeleteScheme:
		var schemeID int64
		if err := json.Unmarshal(env.Data, &schemeID); err != nil {
			s.fail("apply remote scheme delete", err)
			return
		}
		if scheme, ok := s.store.Scheme(); ok && scheme.ID == schemeID {
			if s.onSchemeDeleted != nil {
				s.onSchemeDeleted(schemeID)
			}
		}

	case broadcast.EventRenewLayers, broadcast.EventServerRestart:
		// The gap is unbounded; give up on incremental sync and refetch.
		if err := s.Reload(ctx); err != nil {
			s.fail(fmt.Sprintf("reload after %s", env.Event), err)
		}

	default:
		s.log.Debug("ignoring unknown envelope", "event", env.Event)
	}
}
