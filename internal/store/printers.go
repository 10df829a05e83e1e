package store

import (
	"context"
	"fmt"

	"github.com/Simplici0/sims/internal/inventory"
)

func scanPrinter(row rowScanner) (inventory.Printer, error) {
	var p inventory.Printer
	if err := row.Scan(&p.ID, &p.Name, timestamp{&p.CreatedAt}, timestamp{&p.UpdatedAt}); err != nil {
		return inventory.Printer{}, err
	}
	return p, nil
}

// ListPrinters returns all printers ordered by name.
func (s *Store) ListPrinters(ctx context.Context) ([]inventory.Printer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM printers
		ORDER BY name COLLATE NOCASE, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query printers: %w", err)
	}
	defer rows.Close()

	printers := make([]inventory.Printer, 0)
	for rows.Next() {
		p, err := scanPrinter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan printer: %w", err)
		}
		printers = append(printers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate printers: %w", err)
	}
	return printers, nil
}

// GetPrinter returns one printer.
func (s *Store) GetPrinter(ctx context.Context, id int64) (inventory.Printer, error) {
	p, err := scanPrinter(s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM printers WHERE id = ?
	`, id))
	if err != nil {
		return inventory.Printer{}, translate(err, fmt.Sprintf("get printer %d", id))
	}
	return p, nil
}

// CreatePrinter inserts a printer. Names are unique.
func (s *Store) CreatePrinter(ctx context.Context, name string) (inventory.Printer, error) {
	result, err := s.db.ExecContext(ctx, `INSERT INTO printers (name) VALUES (?)`, name)
	if err != nil {
		return inventory.Printer{}, translate(err, "insert printer")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return inventory.Printer{}, fmt.Errorf("insert printer: last insert id: %w", err)
	}
	return s.GetPrinter(ctx, id)
}

// RenamePrinter updates the printer name.
func (s *Store) RenamePrinter(ctx context.Context, id int64, name string) (inventory.Printer, error) {
	op := fmt.Sprintf("update printer %d", id)
	result, err := s.db.ExecContext(ctx, `
		UPDATE printers SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, name, id)
	if err != nil {
		return inventory.Printer{}, translate(err, op)
	}
	if err := expectAffected(result, op); err != nil {
		return inventory.Printer{}, err
	}
	return s.GetPrinter(ctx, id)
}

// DeletePrinter removes a printer; queue items keep running unassigned.
func (s *Store) DeletePrinter(ctx context.Context, id int64) error {
	op := fmt.Sprintf("delete printer %d", id)
	result, err := s.db.ExecContext(ctx, `DELETE FROM printers WHERE id = ?`, id)
	if err != nil {
		return translate(err, op)
	}
	return expectAffected(result, op)
}
