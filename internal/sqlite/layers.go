package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/liverylab/easel/pkg/types"
)

// CreateLayer stores a new layer and returns it with its assigned id. The
// layer_data record is sanitized against the variant registry before it
// touches storage.
func (b *Backend) CreateLayer(ctx context.Context, layer types.Layer) (types.Layer, error) {
	if !types.ValidLayerType(layer.LayerType) {
		return types.Layer{}, fmt.Errorf("create layer: %w: %q", types.ErrUnknownType, layer.LayerType)
	}
	if layer.SchemeID <= 0 {
		return types.Layer{}, fmt.Errorf("create layer: %w: scheme id %d", types.ErrInvalidLayer, layer.SchemeID)
	}
	layer.LayerData = layer.LayerData.Sanitize(layer.LayerType)
	data, err := encodeRecord(map[string]any(layer.LayerData))
	if err != nil {
		return types.Layer{}, fmt.Errorf("encode layer_data: %w", err)
	}

	res, err := b.db.ExecContext(ctx, `
		INSERT INTO layers (scheme_id, layer_type, layer_order, layer_visible,
			layer_locked, time_modified, layer_data)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		layer.SchemeID, layer.LayerType, layer.LayerOrder, layer.LayerVisible,
		layer.LayerLocked, layer.TimeModified, data,
	)
	if err != nil {
		return types.Layer{}, fmt.Errorf("insert layer: %w", err)
	}
	layer.ID, err = res.LastInsertId()
	if err != nil {
		return types.Layer{}, fmt.Errorf("layer id: %w", err)
	}
	return layer, nil
}

// CreateLayers stores a batch of layers in one transaction, returning them
// with assigned ids in input order.
func (b *Backend) CreateLayers(ctx context.Context, layers []types.Layer) ([]types.Layer, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	out := make([]types.Layer, 0, len(layers))
	for _, layer := range layers {
		if !types.ValidLayerType(layer.LayerType) {
			return nil, fmt.Errorf("create layers: %w: %q", types.ErrUnknownType, layer.LayerType)
		}
		if layer.SchemeID <= 0 {
			return nil, fmt.Errorf("create layers: %w: scheme id %d", types.ErrInvalidLayer, layer.SchemeID)
		}
		layer.LayerData = layer.LayerData.Sanitize(layer.LayerType)
		data, err := encodeRecord(map[string]any(layer.LayerData))
		if err != nil {
			return nil, fmt.Errorf("encode layer_data: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO layers (scheme_id, layer_type, layer_order, layer_visible,
				layer_locked, time_modified, layer_data)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			layer.SchemeID, layer.LayerType, layer.LayerOrder, layer.LayerVisible,
			layer.LayerLocked, layer.TimeModified, data,
		)
		if err != nil {
			return nil, fmt.Errorf("insert layer: %w", err)
		}
		if layer.ID, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("layer id: %w", err)
		}
		out = append(out, layer)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// UpdateLayer merges a partial patch into a stored layer and returns the
// merged result.
func (b *Backend) UpdateLayer(ctx context.Context, id int64, patch types.LayerPatch) (types.Layer, error) {
	if id <= 0 {
		return types.Layer{}, fmt.Errorf("update layer: %w: %d", types.ErrInvalidID, id)
	}
	base, err := b.getLayer(ctx, id)
	if err != nil {
		return types.Layer{}, err
	}
	merged := types.MergeLayer(base, patch)

	data, err := encodeRecord(map[string]any(merged.LayerData))
	if err != nil {
		return types.Layer{}, fmt.Errorf("encode layer_data: %w", err)
	}
	_, err = b.db.ExecContext(ctx, `
		UPDATE layers SET layer_order = ?, layer_visible = ?, layer_locked = ?,
			time_modified = ?, layer_data = ?
		WHERE id = ?`,
		merged.LayerOrder, merged.LayerVisible, merged.LayerLocked,
		merged.TimeModified, data, id,
	)
	if err != nil {
		return types.Layer{}, fmt.Errorf("update layer %d: %w", id, err)
	}
	return merged, nil
}

// DeleteLayer removes a layer.
func (b *Backend) DeleteLayer(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("delete layer: %w: %d", types.ErrInvalidID, id)
	}
	if _, err := b.db.ExecContext(ctx, `DELETE FROM layers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete layer %d: %w", id, err)
	}
	return nil
}

// DeleteLayers removes a batch of layers.
func (b *Backend) DeleteLayers(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("delete layers: %w: %d", types.ErrInvalidID, id)
		}
		args = append(args, id)
	}
	query := fmt.Sprintf(`DELETE FROM layers WHERE id IN (%s)`, placeholders)
	if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %d layers: %w", len(ids), err)
	}
	return nil
}

func (b *Backend) getLayer(ctx context.Context, id int64) (types.Layer, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, scheme_id, layer_type, layer_order, layer_visible,
			layer_locked, time_modified, layer_data
		FROM layers WHERE id = ?`, id)
	return scanLayer(row)
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLayer(row rowScanner) (types.Layer, error) {
	var l types.Layer
	var data string
	err := row.Scan(&l.ID, &l.SchemeID, &l.LayerType, &l.LayerOrder,
		&l.LayerVisible, &l.LayerLocked, &l.TimeModified, &data)
	if err == sql.ErrNoRows {
		return types.Layer{}, types.ErrNotFound
	}
	if err != nil {
		return types.Layer{}, fmt.Errorf("scan layer: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &l.LayerData); err != nil {
		return types.Layer{}, fmt.Errorf("decode layer_data: %w", err)
	}
	return l, nil
}
