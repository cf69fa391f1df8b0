package store

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/listings/internal/listing"
)

var buildingColumns = []string{"id", "slug", "name", "comuna", "address", "amenities", "gallery"}

var unitColumns = []string{
	"building_id", "id", "position", "code", "typology", "bedrooms", "bathrooms",
	"area_m2", "interior_m2", "exterior_m2", "price", "common_expenses",
	"parking", "storage", "orientation", "pet_friendly", "available", "status",
	"guarantee_months", "guarantee_installments", "income_multiplier", "minimum_income",
	"listing_url", "source_line",
}

// SaveFailure describes a building that could not be saved.
type SaveFailure struct {
	BuildingID string `json:"buildingId"`
	Error      string `json:"error"`
}

// SaveSummary counts the outcome of SaveBuildings.
type SaveSummary struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []SaveFailure `json:"failures,omitempty"`
}

// SaveBuildings upserts each building and replaces its units, one
// transaction per building. Failures are counted rather than returned. A
// cancelled ctx fails the remaining buildings.
func (s *Store) SaveBuildings(ctx context.Context, buildings []listing.Building) SaveSummary {
	var sum SaveSummary
	for _, b := range buildings {
		if err := s.saveBuilding(ctx, b); err != nil {
			sum.Failed++
			sum.Failures = append(sum.Failures, SaveFailure{BuildingID: b.ID, Error: err.Error()})
			continue
		}
		sum.Succeeded++
	}
	return sum
}

func (s *Store) saveBuilding(ctx context.Context, b listing.Building) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	upsert := psql.Insert("buildings").
		Columns(buildingColumns...).
		Values(b.ID, b.Slug, b.Name, b.Comuna, b.Address, b.Amenities, b.Gallery).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			slug = EXCLUDED.slug,
			name = EXCLUDED.name,
			comuna = EXCLUDED.comuna,
			address = EXCLUDED.address,
			amenities = EXCLUDED.amenities,
			gallery = EXCLUDED.gallery,
			updated_at = now()`)
	if _, err = exec(ctx, tx, upsert); err != nil {
		return fmt.Errorf("upsert building %s: %w", b.ID, err)
	}

	if _, err = exec(ctx, tx, psql.Delete("units").Where(sq.Eq{"building_id": b.ID})); err != nil {
		return fmt.Errorf("delete units of %s: %w", b.ID, err)
	}

	if len(b.Units) > 0 {
		insert := psql.Insert("units").Columns(unitColumns...)
		for i, u := range b.Units {
			insert = insert.Values(unitValues(b.ID, i, u)...)
		}
		if _, err = exec(ctx, tx, insert); err != nil {
			return fmt.Errorf("insert units of %s: %w", b.ID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", b.ID, err)
	}
	return nil
}

func unitValues(buildingID string, position int, u listing.Unit) []any {
	var orientation *string
	if u.Orientation != nil {
		o := string(*u.Orientation)
		orientation = &o
	}
	return []any{
		buildingID, u.ID, position, u.Code, string(u.Typology), u.Bedrooms, u.Bathrooms,
		u.AreaM2, u.InteriorM2, u.ExteriorM2, u.Price, u.CommonExpenses,
		u.Parking, u.Storage, orientation, u.PetFriendly, u.Available, string(u.Status),
		u.GuaranteeMonths, u.GuaranteeInstallments, u.IncomeMultiplier, u.MinimumIncome,
		u.ListingURL, u.SourceLine,
	}
}

// ListBuildings returns every building with its units, ordered by name.
func (s *Store) ListBuildings(ctx context.Context) ([]listing.Building, error) {
	rows, err := query(ctx, s.db, psql.Select(buildingColumns...).From("buildings").OrderBy("name", "id"))
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	buildings, err := pgx.CollectRows(rows, scanBuilding)
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	if len(buildings) == 0 {
		return []listing.Building{}, nil
	}

	units, err := s.units(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range buildings {
		buildings[i].Units = units[buildings[i].ID]
	}
	return buildings, nil
}

// GetBuilding returns one building with its units, or ErrNotFound.
func (s *Store) GetBuilding(ctx context.Context, id string) (listing.Building, error) {
	rows, err := query(ctx, s.db, psql.Select(buildingColumns...).From("buildings").Where(sq.Eq{"id": id}))
	if err != nil {
		return listing.Building{}, fmt.Errorf("get building %s: %w", id, err)
	}
	b, err := pgx.CollectExactlyOneRow(rows, scanBuilding)
	if errors.Is(err, pgx.ErrNoRows) {
		return listing.Building{}, ErrNotFound
	}
	if err != nil {
		return listing.Building{}, fmt.Errorf("get building %s: %w", id, err)
	}

	units, err := s.units(ctx, sq.Eq{"building_id": id})
	if err != nil {
		return listing.Building{}, err
	}
	b.Units = units[id]
	return b, nil
}

// units loads units grouped by building, in saved order.
func (s *Store) units(ctx context.Context, where sq.Sqlizer) (map[string][]listing.Unit, error) {
	sel := psql.Select(unitColumns...).From("units").OrderBy("building_id", "position")
	if where != nil {
		sel = sel.Where(where)
	}
	rows, err := query(ctx, s.db, sel)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	units, err := pgx.CollectRows(rows, scanUnit)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	grouped := make(map[string][]listing.Unit)
	for _, u := range units {
		grouped[u.BuildingID] = append(grouped[u.BuildingID], u)
	}
	return grouped, nil
}

func scanBuilding(row pgx.CollectableRow) (listing.Building, error) {
	var b listing.Building
	err := row.Scan(&b.ID, &b.Slug, &b.Name, &b.Comuna, &b.Address, &b.Amenities, &b.Gallery)
	return b, err
}

func scanUnit(row pgx.CollectableRow) (listing.Unit, error) {
	var (
		u           listing.Unit
		position    int
		typology    string
		orientation *string
		status      string
	)
	err := row.Scan(
		&u.BuildingID, &u.ID, &position, &u.Code, &typology, &u.Bedrooms, &u.Bathrooms,
		&u.AreaM2, &u.InteriorM2, &u.ExteriorM2, &u.Price, &u.CommonExpenses,
		&u.Parking, &u.Storage, &orientation, &u.PetFriendly, &u.Available, &status,
		&u.GuaranteeMonths, &u.GuaranteeInstallments, &u.IncomeMultiplier, &u.MinimumIncome,
		&u.ListingURL, &u.SourceLine,
	)
	if err != nil {
		return listing.Unit{}, err
	}
	u.Typology = listing.Typology(typology)
	u.Status = listing.UnitStatus(status)
	if orientation != nil {
		o := listing.Orientation(*orientation)
		u.Orientation = &o
	}
	return u, nil
}
