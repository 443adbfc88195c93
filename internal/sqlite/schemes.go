package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/liverylab/easel/pkg/types"
)

// CreateScheme stores a new scheme and returns it with its assigned id.
func (b *Backend) CreateScheme(ctx context.Context, scheme types.Scheme) (types.Scheme, error) {
	guide, err := encodeRecord(map[string]any(scheme.GuideData))
	if err != nil {
		return types.Scheme{}, fmt.Errorf("encode guide_data: %w", err)
	}
	res, err := b.db.ExecContext(ctx, `
		INSERT INTO schemes (name, user_id, carmake_id, base_color, finish_base,
			guide_data, thumbnail_updated, race_updated, date_modified, last_modified_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scheme.Name, scheme.UserID, scheme.CarMakeID, scheme.BaseColor,
		scheme.FinishBase, guide, scheme.ThumbnailUpdated, scheme.RaceUpdated,
		scheme.DateModified, scheme.LastModifiedBy,
	)
	if err != nil {
		return types.Scheme{}, fmt.Errorf("insert scheme: %w", err)
	}
	scheme.ID, err = res.LastInsertId()
	if err != nil {
		return types.Scheme{}, fmt.Errorf("scheme id: %w", err)
	}
	return scheme, nil
}

// GetProject fetches a scheme and its full layer collection ordered by group
// position.
func (b *Backend) GetProject(ctx context.Context, schemeID int64) (types.Project, error) {
	scheme, err := b.getScheme(ctx, schemeID)
	if err != nil {
		return types.Project{}, err
	}

	rows, err := b.db.QueryContext(ctx, `
		SELECT id, scheme_id, layer_type, layer_order, layer_visible,
			layer_locked, time_modified, layer_data
		FROM layers WHERE scheme_id = ? ORDER BY layer_type, layer_order`,
		schemeID,
	)
	if err != nil {
		return types.Project{}, fmt.Errorf("query layers: %w", err)
	}
	defer rows.Close()

	var layers []types.Layer
	for rows.Next() {
		layer, err := scanLayer(rows)
		if err != nil {
			return types.Project{}, err
		}
		layers = append(layers, layer)
	}
	if err := rows.Err(); err != nil {
		return types.Project{}, fmt.Errorf("iterate layers: %w", err)
	}
	return types.Project{Scheme: scheme, Layers: layers}, nil
}

// UpdateScheme merges a partial patch into a stored scheme and returns the
// merged result.
func (b *Backend) UpdateScheme(ctx context.Context, id int64, patch types.SchemePatch) (types.Scheme, error) {
	base, err := b.getScheme(ctx, id)
	if err != nil {
		return types.Scheme{}, err
	}
	merged := types.MergeScheme(base, patch)

	guide, err := encodeRecord(map[string]any(merged.GuideData))
	if err != nil {
		return types.Scheme{}, fmt.Errorf("encode guide_data: %w", err)
	}
	_, err = b.db.ExecContext(ctx, `
		UPDATE schemes SET name = ?, user_id = ?, carmake_id = ?, base_color = ?,
			finish_base = ?, guide_data = ?, thumbnail_updated = ?, race_updated = ?,
			date_modified = ?, last_modified_by = ?
		WHERE id = ?`,
		merged.Name, merged.UserID, merged.CarMakeID, merged.BaseColor,
		merged.FinishBase, guide, merged.ThumbnailUpdated, merged.RaceUpdated,
		merged.DateModified, merged.LastModifiedBy, id,
	)
	if err != nil {
		return types.Scheme{}, fmt.Errorf("update scheme %d: %w", id, err)
	}
	return merged, nil
}

// DeleteScheme removes a scheme; its layers cascade.
func (b *Backend) DeleteScheme(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("delete scheme: %w: %d", types.ErrInvalidID, id)
	}
	if _, err := b.db.ExecContext(ctx, `DELETE FROM schemes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete scheme %d: %w", id, err)
	}
	return nil
}

func (b *Backend) getScheme(ctx context.Context, id int64) (types.Scheme, error) {
	if id <= 0 {
		return types.Scheme{}, fmt.Errorf("get scheme: %w: %d", types.ErrInvalidID, id)
	}
	row := b.db.QueryRowContext(ctx, `
		SELECT id, name, user_id, carmake_id, base_color, finish_base,
			guide_data, thumbnail_updated, race_updated, date_modified, last_modified_by
		FROM schemes WHERE id = ?`, id)

	var s types.Scheme
	var guide string
	err := row.Scan(&s.ID, &s.Name, &s.UserID, &s.CarMakeID, &s.BaseColor,
		&s.FinishBase, &guide, &s.ThumbnailUpdated, &s.RaceUpdated,
		&s.DateModified, &s.LastModifiedBy)
	if err == sql.ErrNoRows {
		return types.Scheme{}, types.ErrNotFound
	}
	if err != nil {
		return types.Scheme{}, fmt.Errorf("get scheme %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(guide), &s.GuideData); err != nil {
		return types.Scheme{}, fmt.Errorf("decode guide_data: %w", err)
	}
	return s, nil
}

// encodeRecord marshals a dynamic sub-record, mapping nil to an empty
// object so the column never holds SQL NULL.
func encodeRecord(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
