package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Simplici0/sims/internal/inventory"
)

const filamentColumns = `
	id, name, material, color, COALESCE(color2, ''), COALESCE(color3, ''),
	quantity, minimum_quantity, minimum_quantity_override,
	COALESCE(manufacturer, ''), cost, COALESCE(notes, ''), created_at, updated_at`

// FilamentPatch carries the fields of a partial filament update; nil fields are left alone.
type FilamentPatch struct {
	Name                    *string
	Material                *inventory.Material
	Color                   *string
	Color2                  *string
	Color3                  *string
	Quantity                *int
	MinimumQuantity         *int
	MinimumQuantityOverride *int
	// ClearMinimumOverride resets the override to automatic; it wins over MinimumQuantityOverride.
	ClearMinimumOverride bool
	Manufacturer         *string
	Cost                 *float64
	ClearCost            bool
	Notes                *string
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFilament(row rowScanner) (inventory.Filament, error) {
	var f inventory.Filament
	var material string
	var override sql.NullInt64
	var cost sql.NullFloat64
	if err := row.Scan(
		&f.ID, &f.Name, &material, &f.Color, &f.Color2, &f.Color3,
		&f.Quantity, &f.MinimumQuantity, &override,
		&f.Manufacturer, &cost, &f.Notes,
		timestamp{&f.CreatedAt}, timestamp{&f.UpdatedAt},
	); err != nil {
		return inventory.Filament{}, err
	}
	f.Material = inventory.Material(material)
	f.MinimumQuantityOverride = intPtr(override)
	f.Cost = floatPtr(cost)
	return f, nil
}

// ListFilaments returns all filaments, newest first.
func (s *Store) ListFilaments(ctx context.Context) ([]inventory.Filament, error) {
	return listFilaments(ctx, s.db)
}

func listFilaments(ctx context.Context, q queryer) ([]inventory.Filament, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+filamentColumns+` FROM filaments ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query filaments: %w", err)
	}
	defer rows.Close()

	filaments := make([]inventory.Filament, 0)
	for rows.Next() {
		f, err := scanFilament(rows)
		if err != nil {
			return nil, fmt.Errorf("scan filament: %w", err)
		}
		filaments = append(filaments, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filaments: %w", err)
	}
	return filaments, nil
}

// GetFilament returns one filament.
func (s *Store) GetFilament(ctx context.Context, id int64) (inventory.Filament, error) {
	return getFilament(ctx, s.db, id)
}

func getFilament(ctx context.Context, q queryer, id int64) (inventory.Filament, error) {
	f, err := scanFilament(q.QueryRowContext(ctx, `SELECT `+filamentColumns+` FROM filaments WHERE id = ?`, id))
	if err != nil {
		return inventory.Filament{}, translate(err, fmt.Sprintf("get filament %d", id))
	}
	return f, nil
}

// CreateFilament inserts a filament and returns the stored record.
func (s *Store) CreateFilament(ctx context.Context, f inventory.Filament) (inventory.Filament, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO filaments (
			name, material, color, color2, color3, quantity, minimum_quantity,
			minimum_quantity_override, manufacturer, cost, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		f.Name, string(f.Material), f.Color, nullString(f.Color2), nullString(f.Color3),
		f.Quantity, f.MinimumQuantity, nullInt(f.MinimumQuantityOverride),
		nullString(f.Manufacturer), nullFloat(f.Cost), nullString(f.Notes),
	)
	if err != nil {
		return inventory.Filament{}, translate(err, "insert filament")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return inventory.Filament{}, fmt.Errorf("insert filament: last insert id: %w", err)
	}
	return s.GetFilament(ctx, id)
}

// UpdateFilament applies a partial update and returns the stored record.
func (s *Store) UpdateFilament(ctx context.Context, id int64, p FilamentPatch) (inventory.Filament, error) {
	var b updateBuilder
	if p.Name != nil {
		b.set("name", *p.Name)
	}
	if p.Material != nil {
		b.set("material", string(*p.Material))
	}
	if p.Color != nil {
		b.set("color", *p.Color)
	}
	if p.Color2 != nil {
		b.set("color2", nullString(*p.Color2))
	}
	if p.Color3 != nil {
		b.set("color3", nullString(*p.Color3))
	}
	if p.Quantity != nil {
		b.set("quantity", *p.Quantity)
	}
	if p.MinimumQuantity != nil {
		b.set("minimum_quantity", *p.MinimumQuantity)
	}
	switch {
	case p.ClearMinimumOverride:
		b.set("minimum_quantity_override", nil)
	case p.MinimumQuantityOverride != nil:
		b.set("minimum_quantity_override", *p.MinimumQuantityOverride)
	}
	if p.Manufacturer != nil {
		b.set("manufacturer", nullString(*p.Manufacturer))
	}
	switch {
	case p.ClearCost:
		b.set("cost", nil)
	case p.Cost != nil:
		b.set("cost", *p.Cost)
	}
	if p.Notes != nil {
		b.set("notes", nullString(*p.Notes))
	}

	if b.empty() {
		return s.GetFilament(ctx, id)
	}

	op := fmt.Sprintf("update filament %d", id)
	result, err := b.exec(ctx, s.db, "filaments", id)
	if err != nil {
		return inventory.Filament{}, translate(err, op)
	}
	if err := expectAffected(result, op); err != nil {
		return inventory.Filament{}, err
	}
	return s.GetFilament(ctx, id)
}

// DeleteFilament removes a filament together with its product and purchase-list references.
func (s *Store) DeleteFilament(ctx context.Context, id int64) error {
	op := fmt.Sprintf("delete filament %d", id)
	result, err := s.db.ExecContext(ctx, `DELETE FROM filaments WHERE id = ?`, id)
	if err != nil {
		return translate(err, op)
	}
	return expectAffected(result, op)
}

// AdjustFilamentQuantity adds delta to the on-hand quantity, clamping at zero.
func (s *Store) AdjustFilamentQuantity(ctx context.Context, id int64, delta int) (inventory.Filament, error) {
	var out inventory.Filament
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		f, err := getFilament(ctx, tx, id)
		if err != nil {
			return err
		}
		quantity := inventory.AdjustQuantity(f.Quantity, delta)
		if _, err := tx.ExecContext(ctx, `
			UPDATE filaments SET quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
		`, quantity, id); err != nil {
			return translate(err, fmt.Sprintf("adjust filament %d", id))
		}
		out, err = getFilament(ctx, tx, id)
		return err
	})
	if err != nil {
		return inventory.Filament{}, err
	}
	return out, nil
}

// ResetFilamentMinimumOverride clears the override so the automatic minimum applies again.
func (s *Store) ResetFilamentMinimumOverride(ctx context.Context, id int64) (inventory.Filament, error) {
	return s.UpdateFilament(ctx, id, FilamentPatch{ClearMinimumOverride: true})
}

// Manufacturers returns the distinct non-empty manufacturer names in alphabetical order.
func (s *Store) Manufacturers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT manufacturer
		FROM filaments
		WHERE manufacturer IS NOT NULL AND manufacturer != ''
		ORDER BY manufacturer
	`)
	if err != nil {
		return nil, fmt.Errorf("query manufacturers: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan manufacturer: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manufacturers: %w", err)
	}
	return names, nil
}
