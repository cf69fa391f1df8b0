package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DefaultImportHistoryLimit caps ListImports when no limit is given.
const DefaultImportHistoryLimit = 50

var importColumns = []string{
	"id", "file_name", "rows", "valid_buildings", "valid_units",
	"invalid_entities", "row_errors", "saved", "save_failed", "duration_ms", "created_at",
}

// ImportRecord is the history entry written for every persisted import.
type ImportRecord struct {
	ID              uuid.UUID `json:"id"`
	FileName        string    `json:"fileName"`
	Rows            int       `json:"rows"`
	ValidBuildings  int       `json:"validBuildings"`
	ValidUnits      int       `json:"validUnits"`
	InvalidEntities int       `json:"invalidEntities"`
	RowErrors       int       `json:"rowErrors"`
	Saved           int       `json:"saved"`
	SaveFailed      int       `json:"saveFailed"`
	DurationMs      int64     `json:"durationMs"`
	CreatedAt       time.Time `json:"createdAt"`
}

// RecordImport stores an import history entry. A zero CreatedAt is set to now.
func (s *Store) RecordImport(ctx context.Context, rec ImportRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	insert := psql.Insert("imports").
		Columns(importColumns...).
		Values(rec.ID, rec.FileName, rec.Rows, rec.ValidBuildings, rec.ValidUnits,
			rec.InvalidEntities, rec.RowErrors, rec.Saved, rec.SaveFailed, rec.DurationMs, rec.CreatedAt)
	if _, err := exec(ctx, s.db, insert); err != nil {
		return fmt.Errorf("record import %s: %w", rec.ID, err)
	}
	return nil
}

// ListImports returns the most recent imports first.
func (s *Store) ListImports(ctx context.Context, limit int) ([]ImportRecord, error) {
	if limit <= 0 {
		limit = DefaultImportHistoryLimit
	}
	sel := psql.Select(importColumns...).
		From("imports").
		OrderBy("created_at DESC").
		Limit(uint64(limit))

	rows, err := query(ctx, s.db, sel)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ImportRecord, error) {
		var r ImportRecord
		err := row.Scan(&r.ID, &r.FileName, &r.Rows, &r.ValidBuildings, &r.ValidUnits,
			&r.InvalidEntities, &r.RowErrors, &r.Saved, &r.SaveFailed, &r.DurationMs, &r.CreatedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	return records, nil
}
