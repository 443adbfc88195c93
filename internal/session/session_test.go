package session

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liverylab/easel/internal/broadcast"
	"github.com/liverylab/easel/pkg/types"
)

// fakePersist is an in-memory persistence service with injectable failures.
type fakePersist struct {
	mu      sync.Mutex
	nextID  int64
	scheme  types.Scheme
	layers  map[int64]types.Layer
	creates int

	createErr error
	updateErr error
	deleteErr error
}

func newFakePersist(scheme types.Scheme, layers ...types.Layer) *fakePersist {
	f := &fakePersist{nextID: 100, scheme: scheme, layers: make(map[int64]types.Layer)}
	for _, l := range layers {
		f.layers[l.ID] = l.Clone()
	}
	return f
}

func (f *fakePersist) CreateScheme(_ context.Context, s types.Scheme) (types.Scheme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = f.nextID
	f.nextID++
	f.scheme = s.Clone()
	return s, nil
}

func (f *fakePersist) GetProject(_ context.Context, schemeID int64) (types.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scheme.ID != schemeID {
		return types.Project{}, types.ErrNotFound
	}
	var layers []types.Layer
	for _, l := range f.layers {
		layers = append(layers, l.Clone())
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i].ID < layers[j].ID })
	return types.Project{Scheme: f.scheme.Clone(), Layers: layers}, nil
}

func (f *fakePersist) UpdateScheme(_ context.Context, id int64, patch types.SchemePatch) (types.Scheme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return types.Scheme{}, f.updateErr
	}
	f.scheme = types.MergeScheme(f.scheme, patch)
	return f.scheme.Clone(), nil
}

func (f *fakePersist) DeleteScheme(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheme = types.Scheme{}
	return nil
}

func (f *fakePersist) CreateLayer(_ context.Context, l types.Layer) (types.Layer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return types.Layer{}, f.createErr
	}
	f.creates++
	l.ID = f.nextID
	f.nextID++
	f.layers[l.ID] = l.Clone()
	return l, nil
}

func (f *fakePersist) CreateLayers(ctx context.Context, ls []types.Layer) ([]types.Layer, error) {
	out := make([]types.Layer, 0, len(ls))
	for _, l := range ls {
		created, err := f.CreateLayer(ctx, l)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

func (f *fakePersist) UpdateLayer(_ context.Context, id int64, patch types.LayerPatch) (types.Layer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return types.Layer{}, f.updateErr
	}
	l, ok := f.layers[id]
	if !ok {
		return types.Layer{}, types.ErrNotFound
	}
	merged := types.MergeLayer(l, patch)
	f.layers[id] = merged
	return merged.Clone(), nil
}

func (f *fakePersist) DeleteLayer(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.layers, id)
	return nil
}

func (f *fakePersist) DeleteLayers(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if err := f.DeleteLayer(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// fakePublisher records every published envelope.
type fakePublisher struct {
	mu     sync.Mutex
	events []string
	data   []any
}

func (f *fakePublisher) Publish(event string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	f.data = append(f.data, data)
	return nil
}

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func shapeDraft(left float64) types.Layer {
	return types.Layer{
		LayerType:    types.LayerTypeShape,
		LayerVisible: true,
		LayerData: types.LayerData{
			"type": types.ShapeRect,
			"left": left,
			"top":  5.0,
		},
	}
}

func newTestSession(t *testing.T, persist *fakePersist) (*Session, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	s := New(Config{
		Persistence: persist,
		Publisher:   pub,
		UserID:      7,
	})
	require.NoError(t, s.Load(context.Background(), persist.scheme.ID))
	return s, pub
}

func testScheme() types.Scheme {
	return types.Scheme{ID: 1, Name: "test scheme", UserID: 7}
}

func TestCreateAssignsTopOrder(t *testing.T) {
	// Scenario: inserting into an empty group gives order 0; the next insert
	// shifts the first to 1 and takes 0 itself.
	s, _ := newTestSession(t, newFakePersist(testScheme()))
	ctx := context.Background()

	l1, err := s.CreateLayer(ctx, shapeDraft(1), CreateOptions{Record: true})
	require.NoError(t, err)
	assert.Equal(t, 0, l1.LayerOrder)

	l2, err := s.CreateLayer(ctx, shapeDraft(2), CreateOptions{Record: true})
	require.NoError(t, err)
	s.Wait()

	got1, _ := s.Store().Layer(l1.ID)
	got2, _ := s.Store().Layer(l2.ID)
	assert.Equal(t, 1, got1.LayerOrder)
	assert.Equal(t, 0, got2.LayerOrder)
}

func TestOrderUniquenessAcrossInserts(t *testing.T) {
	s, _ := newTestSession(t, newFakePersist(testScheme()))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.CreateLayer(ctx, shapeDraft(float64(i)), CreateOptions{})
		require.NoError(t, err)
	}
	_, err := s.CreateLayers(ctx, []types.Layer{shapeDraft(10), shapeDraft(11)}, CreateOptions{})
	require.NoError(t, err)
	s.Wait()

	seen := make(map[int]bool)
	for _, l := range s.Store().GroupLayers(types.GroupShape) {
		assert.False(t, seen[l.LayerOrder], "duplicate layer_order %d", l.LayerOrder)
		seen[l.LayerOrder] = true
	}
	assert.Len(t, seen, 7)
}

func TestCreateSelectsNonBaseLayers(t *testing.T) {
	s, _ := newTestSession(t, newFakePersist(testScheme()))
	ctx := context.Background()

	created, err := s.CreateLayer(ctx, shapeDraft(1), CreateOptions{})
	require.NoError(t, err)
	cur, ok := s.Store().Current()
	require.True(t, ok)
	assert.Equal(t, created.ID, cur.ID)

	base := types.Layer{LayerType: types.LayerTypeBase, LayerData: types.LayerData{"baseColor": "111111"}}
	_, err = s.CreateLayer(ctx, base, CreateOptions{})
	require.NoError(t, err)
	cur, _ = s.Store().Current()
	assert.Equal(t, created.ID, cur.ID, "base layer creation must not steal the selection")
}

func TestUpdateUndoRedo(t *testing.T) {
	// Scenario: patch left to 10, undo restores the pre-patch value, redo
	// re-applies 10.
	persist := newFakePersist(testScheme())
	s, _ := newTestSession(t, persist)
	ctx := context.Background()

	created, err := s.CreateLayer(ctx, shapeDraft(25), CreateOptions{})
	require.NoError(t, err)

	_, err = s.UpdateLayer(ctx, created.ID, types.LayerPatch{
		"layer_data": map[string]any{"left": 10.0},
	}, true)
	require.NoError(t, err)

	got, _ := s.Store().Layer(created.ID)
	assert.Equal(t, 10.0, got.LayerData["left"])

	require.NoError(t, s.Undo(ctx))
	got, _ = s.Store().Layer(created.ID)
	assert.Equal(t, 25.0, got.LayerData["left"])

	require.NoError(t, s.Redo(ctx))
	got, _ = s.Store().Layer(created.ID)
	assert.Equal(t, 10.0, got.LayerData["left"])
	s.Wait()
}

func TestDeleteUndoRecreatesWithNewIDAndRemapsHistory(t *testing.T) {
	// Scenario: delete layer 5, undo. The store holds a layer with the same
	// data but a fresh id, and history entries naming id 5 are re-pointed.
	seed := shapeDraft(25)
	seed.ID = 5
	seed.SchemeID = 1
	persist := newFakePersist(testScheme(), seed)
	s, _ := newTestSession(t, persist)
	ctx := context.Background()

	_, err := s.UpdateLayer(ctx, 5, types.LayerPatch{
		"layer_data": map[string]any{"left": 30.0},
	}, true)
	require.NoError(t, err)
	require.NoError(t, s.DeleteLayer(ctx, 5, true))
	_, ok := s.Store().Layer(5)
	require.False(t, ok)

	require.NoError(t, s.Undo(ctx))
	s.Wait()

	layers := s.Store().Layers()
	require.Len(t, layers, 1)
	recreated := layers[0]
	assert.NotEqual(t, int64(5), recreated.ID)
	assert.Equal(t, 30.0, recreated.LayerData["left"])

	// The older change item now targets the recreated layer: undoing it
	// must restore left on the new id, not on the dead one.
	require.NoError(t, s.Undo(ctx))
	got, ok := s.Store().Layer(recreated.ID)
	require.True(t, ok)
	assert.Equal(t, 25.0, got.LayerData["left"])
	s.Wait()
}

func TestListDeleteUndoRemapsHistory(t *testing.T) {
	a, b := shapeDraft(1), shapeDraft(2)
	a.ID, b.ID = 11, 12
	a.SchemeID, b.SchemeID = 1, 1
	persist := newFakePersist(testScheme(), a, b)
	s, _ := newTestSession(t, persist)
	ctx := context.Background()

	_, err := s.UpdateLayer(ctx, 12, types.LayerPatch{
		"layer_data": map[string]any{"left": 50.0},
	}, true)
	require.NoError(t, err)
	require.NoError(t, s.DeleteLayers(ctx, []int64{11, 12}, true))
	require.Empty(t, s.Store().Layers())

	require.NoError(t, s.Undo(ctx))
	s.Wait()
	require.Len(t, s.Store().Layers(), 2)

	// Undo the earlier change: it must land on layer 12's replacement.
	require.NoError(t, s.Undo(ctx))
	var found bool
	for _, l := range s.Store().Layers() {
		if l.LayerData["left"] == 2.0 {
			found = true
		}
	}
	assert.True(t, found, "change undo should restore the recreated layer's left")
	s.Wait()
}

func TestNewActionTruncatesRedo(t *testing.T) {
	persist := newFakePersist(testScheme())
	s, _ := newTestSession(t, persist)
	ctx := context.Background()

	created, err := s.CreateLayer(ctx, shapeDraft(1), CreateOptions{})
	require.NoError(t, err)

	_, err = s.UpdateLayer(ctx, created.ID, types.LayerPatch{"layer_data": map[string]any{"left": 2.0}}, true)
	require.NoError(t, err)
	require.NoError(t, s.Undo(ctx))
	require.True(t, s.History().CanRedo())

	_, err = s.UpdateLayer(ctx, created.ID, types.LayerPatch{"layer_data": map[string]any{"left": 3.0}}, true)
	require.NoError(t, err)
	assert.False(t, s.History().CanRedo())
	s.Wait()
}

func TestPersistenceFailureDoesNotRollBack(t *testing.T) {
	// Optimistic state stands when persistence rejects the update; the
	// failure only reaches the message surface.
	seed := shapeDraft(25)
	seed.ID = 5
	persist := newFakePersist(testScheme(), seed)
	persist.updateErr = errors.New("boom")

	var mu sync.Mutex
	var surfaced []error
	pub := &fakePublisher{}
	s := New(Config{
		Persistence: persist,
		Publisher:   pub,
		OnError: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			surfaced = append(surfaced, err)
		},
	})
	require.NoError(t, s.Load(context.Background(), 1))

	_, err := s.UpdateLayer(context.Background(), 5, types.LayerPatch{
		"layer_data": map[string]any{"left": 99.0},
	}, false)
	require.NoError(t, err)
	s.Wait()

	got, _ := s.Store().Layer(5)
	assert.Equal(t, 99.0, got.LayerData["left"], "optimistic state must stand")
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, surfaced, 1)
	assert.ErrorContains(t, surfaced[0], "boom")
}

func TestUpdatePublishesPatchWithID(t *testing.T) {
	seed := shapeDraft(25)
	seed.ID = 5
	persist := newFakePersist(testScheme(), seed)
	s, pub := newTestSession(t, persist)

	_, err := s.UpdateLayer(context.Background(), 5, types.LayerPatch{
		"layer_data": map[string]any{"left": 1.0},
	}, false)
	require.NoError(t, err)
	s.Wait()

	require.Equal(t, []string{broadcast.EventUpdateLayer}, pub.published())
	patch, ok := pub.data[0].(types.LayerPatch)
	require.True(t, ok)
	assert.Equal(t, int64(5), patch.ID())
}

func TestCloneStagesAndReleasesGhost(t *testing.T) {
	seed := shapeDraft(25)
	seed.ID = 5
	persist := newFakePersist(testScheme(), seed)
	s, _ := newTestSession(t, persist)
	ctx := context.Background()

	src, _ := s.Store().Layer(5)
	clone, err := s.CloneLayer(ctx, src, 10, 10)
	require.NoError(t, err)
	s.Wait()

	assert.Empty(t, s.Store().CloningLayers(), "ghost released after create lands")
	assert.NotEqual(t, src.ID, clone.ID)
	assert.Equal(t, 35.0, clone.LayerData["left"])

	// A failed clone leaves no ghost behind either.
	persist.createErr = errors.New("create rejected")
	_, err = s.CloneLayer(ctx, src, 1, 1)
	require.Error(t, err)
	assert.Empty(t, s.Store().CloningLayers())
}

func envelope(t *testing.T, event string, data any) broadcast.Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return broadcast.Envelope{Event: event, Data: raw, SocketID: "peer", UserID: 9}
}

func TestRemoteConcurrentPatchesConverge(t *testing.T) {
	// Scenario: peers A and B patch disjoint fields; an observer applying
	// both envelopes in either order ends up with both edits.
	seed := shapeDraft(25)
	seed.ID = 5
	seed.SchemeID = 1

	fromA := envelope(t, broadcast.EventUpdateLayer,
		types.LayerPatch{"id": 5, "layer_data": map[string]any{"color": "red"}})
	fromB := envelope(t, broadcast.EventUpdateLayer,
		types.LayerPatch{"id": 5, "layer_data": map[string]any{"opacity": 0.5}})

	for name, order := range map[string][2]broadcast.Envelope{
		"a then b": {fromA, fromB},
		"b then a": {fromB, fromA},
	} {
		t.Run(name, func(t *testing.T) {
			s, pub := newTestSession(t, newFakePersist(testScheme(), seed))
			ctx := context.Background()
			s.ApplyRemote(ctx, order[0])
			s.ApplyRemote(ctx, order[1])

			got, ok := s.Store().Layer(5)
			require.True(t, ok)
			assert.Equal(t, "red", got.LayerData["color"])
			assert.Equal(t, 0.5, got.LayerData["opacity"])

			// The apply-only path never re-broadcasts or records.
			assert.Empty(t, pub.published())
			assert.Equal(t, 0, s.History().Len())
		})
	}
}

func TestRemoteCreateAndDelete(t *testing.T) {
	s, pub := newTestSession(t, newFakePersist(testScheme()))
	ctx := context.Background()

	peerLayer := shapeDraft(1)
	peerLayer.ID = 42
	s.ApplyRemote(ctx, envelope(t, broadcast.EventCreateLayer, peerLayer))
	_, ok := s.Store().Layer(42)
	assert.True(t, ok)

	// A remote create never steals the local selection.
	_, selected := s.Store().Current()
	assert.False(t, selected)

	s.ApplyRemote(ctx, envelope(t, broadcast.EventDeleteLayer, peerLayer))
	_, ok = s.Store().Layer(42)
	assert.False(t, ok)
	assert.Empty(t, pub.published())
}

func TestForcedRestartReloadsFromPersistence(t *testing.T) {
	// Scenario: on a forced-reconnect signal the store is replaced by a
	// fresh fetch instead of being incrementally patched.
	seed := shapeDraft(25)
	seed.ID = 5
	seed.SchemeID = 1
	persist := newFakePersist(testScheme(), seed)
	s, _ := newTestSession(t, persist)
	ctx := context.Background()

	// Local state has drifted from persistence.
	s.ApplyRemote(ctx, envelope(t, broadcast.EventDeleteLayer, seed))
	require.Empty(t, s.Store().Layers())

	s.ApplyRemote(ctx, broadcast.Envelope{Event: broadcast.EventServerRestart})

	layers := s.Store().Layers()
	require.Len(t, layers, 1)
	assert.Equal(t, int64(5), layers[0].ID)
}

func TestRemoteSchemeDelete(t *testing.T) {
	persist := newFakePersist(testScheme())
	var deleted int64
	pub := &fakePublisher{}
	s := New(Config{
		Persistence:     persist,
		Publisher:       pub,
		OnSchemeDeleted: func(id int64) { deleted = id },
	})
	require.NoError(t, s.Load(context.Background(), 1))

	s.ApplyRemote(context.Background(), envelope(t, broadcast.EventDeleteScheme, int64(1)))
	assert.Equal(t, int64(1), deleted)
}

func TestRunDrainsInbound(t *testing.T) {
	seed := shapeDraft(25)
	seed.ID = 5
	seed.SchemeID = 1
	s, _ := newTestSession(t, newFakePersist(testScheme(), seed))

	inbound := make(chan broadcast.Envelope, 2)
	inbound <- envelope(t, broadcast.EventUpdateLayer,
		types.LayerPatch{"id": 5, "layer_data": map[string]any{"left": 60.0}})
	close(inbound)

	s.Run(context.Background(), inbound)

	got, _ := s.Store().Layer(5)
	assert.Equal(t, 60.0, got.LayerData["left"])
}
