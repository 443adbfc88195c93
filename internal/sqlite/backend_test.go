package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liverylab/easel/pkg/types"
)

func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func seedScheme(t *testing.T, b *Backend) types.Scheme {
	t.Helper()
	scheme, err := b.CreateScheme(context.Background(), types.Scheme{
		Name:      "test scheme",
		UserID:    7,
		BaseColor: "1a1a1a",
		GuideData: types.GuideData{"snap_grid": 8.0},
	})
	require.NoError(t, err)
	require.NotZero(t, scheme.ID)
	return scheme
}

func TestSchemeRoundTrip(t *testing.T) {
	b := openTestBackend(t)
	scheme := seedScheme(t, b)

	project, err := b.GetProject(context.Background(), scheme.ID)
	require.NoError(t, err)
	assert.Equal(t, "test scheme", project.Scheme.Name)
	assert.Equal(t, 8.0, project.Scheme.GuideData["snap_grid"])
	assert.Empty(t, project.Layers)
}

func TestGetProjectUnknownScheme(t *testing.T) {
	b := openTestBackend(t)
	_, err := b.GetProject(context.Background(), 999)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestLayerCreateAssignsIDs(t *testing.T) {
	b := openTestBackend(t)
	scheme := seedScheme(t, b)
	ctx := context.Background()

	l1, err := b.CreateLayer(ctx, types.Layer{
		SchemeID:  scheme.ID,
		LayerType: types.LayerTypeShape,
		LayerData: types.LayerData{"type": types.ShapeRect, "left": 10.0},
	})
	require.NoError(t, err)
	l2, err := b.CreateLayer(ctx, types.Layer{
		SchemeID:  scheme.ID,
		LayerType: types.LayerTypeShape,
		LayerData: types.LayerData{"type": types.ShapeRect, "left": 20.0},
	})
	require.NoError(t, err)

	assert.NotZero(t, l1.ID)
	assert.NotEqual(t, l1.ID, l2.ID)

	project, err := b.GetProject(ctx, scheme.ID)
	require.NoError(t, err)
	assert.Len(t, project.Layers, 2)
}

func TestLayerCreateRejectsUnknownType(t *testing.T) {
	b := openTestBackend(t)
	scheme := seedScheme(t, b)

	_, err := b.CreateLayer(context.Background(), types.Layer{
		SchemeID:  scheme.ID,
		LayerType: "hologram",
	})
	assert.ErrorIs(t, err, types.ErrUnknownType)
}

func TestLayerCreateSanitizesData(t *testing.T) {
	b := openTestBackend(t)
	scheme := seedScheme(t, b)
	ctx := context.Background()

	created, err := b.CreateLayer(ctx, types.Layer{
		SchemeID:  scheme.ID,
		LayerType: types.LayerTypeText,
		LayerData: types.LayerData{
			"text":      "44",
			"numPoints": 5, // shape-only field must not persist on a text layer
		},
	})
	require.NoError(t, err)

	project, err := b.GetProject(ctx, scheme.ID)
	require.NoError(t, err)
	require.Len(t, project.Layers, 1)
	assert.Equal(t, "44", project.Layers[0].LayerData["text"])
	assert.NotContains(t, project.Layers[0].LayerData, "numPoints")
	assert.Equal(t, created.ID, project.Layers[0].ID)
}

func TestLayerUpdateMergesPatch(t *testing.T) {
	b := openTestBackend(t)
	scheme := seedScheme(t, b)
	ctx := context.Background()

	created, err := b.CreateLayer(ctx, types.Layer{
		SchemeID:  scheme.ID,
		LayerType: types.LayerTypeShape,
		LayerData: types.LayerData{"type": types.ShapeRect, "left": 10.0, "top": 20.0},
	})
	require.NoError(t, err)

	merged, err := b.UpdateLayer(ctx, created.ID, types.LayerPatch{
		"layer_order": 3,
		"layer_data":  map[string]any{"left": 99.0},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, merged.LayerOrder)
	assert.Equal(t, 99.0, merged.LayerData["left"])
	assert.Equal(t, 20.0, merged.LayerData["top"], "fields absent from the patch survive")

	// And the merge is durable.
	project, err := b.GetProject(ctx, scheme.ID)
	require.NoError(t, err)
	assert.Equal(t, 99.0, project.Layers[0].LayerData["left"])
	assert.Equal(t, 20.0, project.Layers[0].LayerData["top"])
}

func TestLayerUpdateSanitizesData(t *testing.T) {
	b := openTestBackend(t)
	scheme := seedScheme(t, b)
	ctx := context.Background()

	created, err := b.CreateLayer(ctx, types.Layer{
		SchemeID:  scheme.ID,
		LayerType: types.LayerTypeShape,
		LayerData: types.LayerData{"type": types.ShapeEllipse, "color": "1a1a1a"},
	})
	require.NoError(t, err)

	// A patch smuggling an undeclared field merges its declared fields only.
	merged, err := b.UpdateLayer(ctx, created.ID, types.LayerPatch{
		"layer_data": map[string]any{"fill": "00ff00", "color": "00ff00"},
	})
	require.NoError(t, err)
	assert.Equal(t, "00ff00", merged.LayerData["color"])
	assert.NotContains(t, merged.LayerData, "fill")

	project, err := b.GetProject(ctx, scheme.ID)
	require.NoError(t, err)
	require.Len(t, project.Layers, 1)
	assert.Equal(t, "00ff00", project.Layers[0].LayerData["color"])
	assert.NotContains(t, project.Layers[0].LayerData, "fill")
}

func TestBackendRejectsInvalidIdentities(t *testing.T) {
	b := openTestBackend(t)
	seedScheme(t, b)
	ctx := context.Background()

	_, err := b.CreateLayer(ctx, types.Layer{LayerType: types.LayerTypeShape})
	assert.ErrorIs(t, err, types.ErrInvalidLayer)

	_, err = b.CreateLayers(ctx, []types.Layer{{LayerType: types.LayerTypeShape}})
	assert.ErrorIs(t, err, types.ErrInvalidLayer)

	_, err = b.UpdateLayer(ctx, 0, types.LayerPatch{"layer_order": 1})
	assert.ErrorIs(t, err, types.ErrInvalidID)

	assert.ErrorIs(t, b.DeleteLayer(ctx, -1), types.ErrInvalidID)
	assert.ErrorIs(t, b.DeleteLayers(ctx, []int64{1, 0}), types.ErrInvalidID)

	_, err = b.GetProject(ctx, 0)
	assert.ErrorIs(t, err, types.ErrInvalidID)

	_, err = b.UpdateScheme(ctx, -5, types.SchemePatch{"name": "x"})
	assert.ErrorIs(t, err, types.ErrInvalidID)
	assert.ErrorIs(t, b.DeleteScheme(ctx, 0), types.ErrInvalidID)
}

func TestLayerUpdateUnknownID(t *testing.T) {
	b := openTestBackend(t)
	seedScheme(t, b)
	_, err := b.UpdateLayer(context.Background(), 42, types.LayerPatch{"layer_order": 1})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCreateLayersBatch(t *testing.T) {
	b := openTestBackend(t)
	scheme := seedScheme(t, b)
	ctx := context.Background()

	batch, err := b.CreateLayers(ctx, []types.Layer{
		{SchemeID: scheme.ID, LayerType: types.LayerTypeLogo, LayerOrder: 0,
			LayerData: types.LayerData{"left": 1.0}},
		{SchemeID: scheme.ID, LayerType: types.LayerTypeLogo, LayerOrder: 1,
			LayerData: types.LayerData{"left": 2.0}},
	})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.NotEqual(t, batch[0].ID, batch[1].ID)
}

func TestDeleteLayers(t *testing.T) {
	b := openTestBackend(t)
	scheme := seedScheme(t, b)
	ctx := context.Background()

	batch, err := b.CreateLayers(ctx, []types.Layer{
		{SchemeID: scheme.ID, LayerType: types.LayerTypeShape,
			LayerData: types.LayerData{"type": types.ShapeRect}},
		{SchemeID: scheme.ID, LayerType: types.LayerTypeShape,
			LayerData: types.LayerData{"type": types.ShapeRect}},
		{SchemeID: scheme.ID, LayerType: types.LayerTypeShape,
			LayerData: types.LayerData{"type": types.ShapeRect}},
	})
	require.NoError(t, err)

	require.NoError(t, b.DeleteLayers(ctx, []int64{batch[0].ID, batch[2].ID}))

	project, err := b.GetProject(ctx, scheme.ID)
	require.NoError(t, err)
	require.Len(t, project.Layers, 1)
	assert.Equal(t, batch[1].ID, project.Layers[0].ID)

	// Deleting nothing is a no-op.
	require.NoError(t, b.DeleteLayers(ctx, nil))
}

func TestDeleteSchemeCascades(t *testing.T) {
	b := openTestBackend(t)
	scheme := seedScheme(t, b)
	ctx := context.Background()

	_, err := b.CreateLayer(ctx, types.Layer{
		SchemeID:  scheme.ID,
		LayerType: types.LayerTypeShape,
		LayerData: types.LayerData{"type": types.ShapeRect},
	})
	require.NoError(t, err)

	require.NoError(t, b.DeleteScheme(ctx, scheme.ID))
	_, err = b.GetProject(ctx, scheme.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpdateScheme(t *testing.T) {
	b := openTestBackend(t)
	scheme := seedScheme(t, b)
	ctx := context.Background()

	merged, err := b.UpdateScheme(ctx, scheme.ID, types.SchemePatch{
		"name":       "renamed",
		"guide_data": map[string]any{"snap_grid": 4.0},
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", merged.Name)
	assert.Equal(t, 4.0, merged.GuideData["snap_grid"])

	project, err := b.GetProject(ctx, scheme.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", project.Scheme.Name)
	assert.Equal(t, "1a1a1a", project.Scheme.BaseColor)
}
