package types

import "context"

// Persistence is the durable storage service the synchronization engine
// round-trips through. Creates assign server-side identities; updates accept
// partial patches with the same merge semantics the in-memory store uses.
// Calls are assumed idempotent enough that the sync layer never deduplicates
// retries itself.
type Persistence interface {
	// CreateScheme stores a new scheme and returns it with its assigned id.
	CreateScheme(ctx context.Context, scheme Scheme) (Scheme, error)

	// GetProject fetches a scheme and its full layer collection.
	GetProject(ctx context.Context, schemeID int64) (Project, error)

	// UpdateScheme merges a partial patch into a stored scheme and returns
	// the merged result.
	UpdateScheme(ctx context.Context, id int64, patch SchemePatch) (Scheme, error)

	// DeleteScheme removes a scheme and all of its layers.
	DeleteScheme(ctx context.Context, id int64) error

	// CreateLayer stores a new layer and returns it with its assigned id.
	CreateLayer(ctx context.Context, layer Layer) (Layer, error)

	// CreateLayers stores a batch of new layers, returning them with
	// assigned ids in input order.
	CreateLayers(ctx context.Context, layers []Layer) ([]Layer, error)

	// UpdateLayer merges a partial patch into a stored layer and returns
	// the merged result.
	UpdateLayer(ctx context.Context, id int64, patch LayerPatch) (Layer, error)

	// DeleteLayer removes a layer.
	DeleteLayer(ctx context.Context, id int64) error

	// DeleteLayers removes a batch of layers.
	DeleteLayers(ctx context.Context, ids []int64) error
}
