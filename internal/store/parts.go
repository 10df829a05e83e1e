package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Simplici0/sims/internal/inventory"
)

const partColumns = `
	id, name, COALESCE(description, ''), quantity, minimum_quantity,
	COALESCE(supplier, ''), COALESCE(part_number, ''), price, COALESCE(notes, ''),
	created_at, updated_at`

// PartPatch carries the fields of a partial part update; nil fields are left alone.
type PartPatch struct {
	Name            *string
	Description     *string
	Quantity        *int
	MinimumQuantity *int
	Supplier        *string
	PartNumber      *string
	Price           *float64
	ClearPrice      bool
	Notes           *string
	// PrinterIDs replaces the printer associations when non-nil.
	PrinterIDs *[]int64
}

func scanPart(row rowScanner) (inventory.Part, error) {
	var p inventory.Part
	var price sql.NullFloat64
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Quantity, &p.MinimumQuantity,
		&p.Supplier, &p.PartNumber, &price, &p.Notes,
		timestamp{&p.CreatedAt}, timestamp{&p.UpdatedAt},
	); err != nil {
		return inventory.Part{}, err
	}
	p.Price = floatPtr(price)
	p.Printers = []inventory.Printer{}
	return p, nil
}

// ListParts returns all parts with their printers, ordered by name.
func (s *Store) ListParts(ctx context.Context) ([]inventory.Part, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+partColumns+` FROM parts ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("query parts: %w", err)
	}
	parts := make([]inventory.Part, 0)
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan part: %w", err)
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate parts: %w", err)
	}
	rows.Close()

	byPart, err := partPrinters(ctx, s.db, 0)
	if err != nil {
		return nil, err
	}
	for i := range parts {
		if printers, ok := byPart[parts[i].ID]; ok {
			parts[i].Printers = printers
		}
	}
	return parts, nil
}

// partPrinters loads printer associations; partID 0 loads all of them.
func partPrinters(ctx context.Context, q queryer, partID int64) (map[int64][]inventory.Printer, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT pp.part_id, p.id, p.name, p.created_at, p.updated_at
		FROM part_printers pp
		JOIN printers p ON p.id = pp.printer_id
		WHERE ? = 0 OR pp.part_id = ?
		ORDER BY p.name COLLATE NOCASE, p.id
	`, partID, partID)
	if err != nil {
		return nil, fmt.Errorf("query part printers: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]inventory.Printer)
	for rows.Next() {
		var id int64
		var p inventory.Printer
		if err := rows.Scan(&id, &p.ID, &p.Name, timestamp{&p.CreatedAt}, timestamp{&p.UpdatedAt}); err != nil {
			return nil, fmt.Errorf("scan part printer: %w", err)
		}
		out[id] = append(out[id], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate part printers: %w", err)
	}
	return out, nil
}

// GetPart returns one part with its printers.
func (s *Store) GetPart(ctx context.Context, id int64) (inventory.Part, error) {
	return getPart(ctx, s.db, id)
}

func getPart(ctx context.Context, q queryer, id int64) (inventory.Part, error) {
	p, err := scanPart(q.QueryRowContext(ctx, `SELECT `+partColumns+` FROM parts WHERE id = ?`, id))
	if err != nil {
		return inventory.Part{}, translate(err, fmt.Sprintf("get part %d", id))
	}
	byPart, err := partPrinters(ctx, q, id)
	if err != nil {
		return inventory.Part{}, err
	}
	if printers, ok := byPart[id]; ok {
		p.Printers = printers
	}
	return p, nil
}

// CreatePart inserts a part and its printer associations.
func (s *Store) CreatePart(ctx context.Context, p inventory.Part, printerIDs []int64) (inventory.Part, error) {
	var out inventory.Part
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO parts (name, description, quantity, minimum_quantity, supplier, part_number, price, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			p.Name, nullString(p.Description), p.Quantity, p.MinimumQuantity,
			nullString(p.Supplier), nullString(p.PartNumber), nullFloat(p.Price), nullString(p.Notes),
		)
		if err != nil {
			return translate(err, "insert part")
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert part: last insert id: %w", err)
		}
		if err := setPartPrinters(ctx, tx, id, printerIDs); err != nil {
			return err
		}
		out, err = getPart(ctx, tx, id)
		return err
	})
	if err != nil {
		return inventory.Part{}, err
	}
	return out, nil
}

// UpdatePart applies a partial update and returns the stored record.
func (s *Store) UpdatePart(ctx context.Context, id int64, p PartPatch) (inventory.Part, error) {
	var b updateBuilder
	if p.Name != nil {
		b.set("name", *p.Name)
	}
	if p.Description != nil {
		b.set("description", nullString(*p.Description))
	}
	if p.Quantity != nil {
		b.set("quantity", *p.Quantity)
	}
	if p.MinimumQuantity != nil {
		b.set("minimum_quantity", *p.MinimumQuantity)
	}
	if p.Supplier != nil {
		b.set("supplier", nullString(*p.Supplier))
	}
	if p.PartNumber != nil {
		b.set("part_number", nullString(*p.PartNumber))
	}
	switch {
	case p.ClearPrice:
		b.set("price", nil)
	case p.Price != nil:
		b.set("price", *p.Price)
	}
	if p.Notes != nil {
		b.set("notes", nullString(*p.Notes))
	}

	op := fmt.Sprintf("update part %d", id)
	var out inventory.Part
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// Touch the row even without column changes so a missing id is reported.
		result, err := b.exec(ctx, tx, "parts", id)
		if err != nil {
			return translate(err, op)
		}
		if err := expectAffected(result, op); err != nil {
			return err
		}
		if p.PrinterIDs != nil {
			if err := setPartPrinters(ctx, tx, id, *p.PrinterIDs); err != nil {
				return err
			}
		}
		out, err = getPart(ctx, tx, id)
		return err
	})
	if err != nil {
		return inventory.Part{}, err
	}
	return out, nil
}

// SetPartPrinters replaces the printers a part fits.
func (s *Store) SetPartPrinters(ctx context.Context, partID int64, printerIDs []int64) (inventory.Part, error) {
	return s.UpdatePart(ctx, partID, PartPatch{PrinterIDs: &printerIDs})
}

func setPartPrinters(ctx context.Context, tx *sql.Tx, partID int64, printerIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM part_printers WHERE part_id = ?`, partID); err != nil {
		return fmt.Errorf("clear part printers: %w", err)
	}
	for _, printerID := range printerIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO part_printers (part_id, printer_id) VALUES (?, ?)
			ON CONFLICT(part_id, printer_id) DO NOTHING
		`, partID, printerID); err != nil {
			return translate(err, fmt.Sprintf("link part %d to printer %d", partID, printerID))
		}
	}
	return nil
}

// DeletePart removes a part and its printer associations.
func (s *Store) DeletePart(ctx context.Context, id int64) error {
	op := fmt.Sprintf("delete part %d", id)
	result, err := s.db.ExecContext(ctx, `DELETE FROM parts WHERE id = ?`, id)
	if err != nil {
		return translate(err, op)
	}
	return expectAffected(result, op)
}
