package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Simplici0/sims/internal/inventory"
)

// QueueItemPatch carries the fields of a partial queue item update.
type QueueItemPatch struct {
	ItemName     *string
	PrinterID    *int64
	ClearPrinter bool
	Color        *string
	Status       *inventory.QueueStatus
}

const queueSelect = `
	SELECT q.id, q.item_name, q.printer_id, COALESCE(q.color, ''), q.status, q.position,
		q.created_at, q.updated_at,
		p.id, COALESCE(p.name, ''), p.created_at, p.updated_at
	FROM print_queue q
	LEFT JOIN printers p ON p.id = q.printer_id`

func scanQueueItem(row rowScanner) (inventory.PrintQueueItem, error) {
	var item inventory.PrintQueueItem
	var status string
	var printerID, joinedID sql.NullInt64
	var printer inventory.Printer
	if err := row.Scan(
		&item.ID, &item.ItemName, &printerID, &item.Color, &status, &item.Position,
		timestamp{&item.CreatedAt}, timestamp{&item.UpdatedAt},
		&joinedID, &printer.Name, timestamp{&printer.CreatedAt}, timestamp{&printer.UpdatedAt},
	); err != nil {
		return inventory.PrintQueueItem{}, err
	}
	item.Status = inventory.QueueStatus(status)
	if printerID.Valid {
		id := printerID.Int64
		item.PrinterID = &id
	}
	if joinedID.Valid {
		printer.ID = joinedID.Int64
		item.Printer = &printer
	}
	return item, nil
}

// ListQueue returns the queue in position order; ties keep insertion order.
func (s *Store) ListQueue(ctx context.Context) ([]inventory.PrintQueueItem, error) {
	return listQueue(ctx, s.db)
}

func listQueue(ctx context.Context, q queryer) ([]inventory.PrintQueueItem, error) {
	rows, err := q.QueryContext(ctx, queueSelect+` ORDER BY q.position, q.id`)
	if err != nil {
		return nil, fmt.Errorf("query print queue: %w", err)
	}
	defer rows.Close()

	items := make([]inventory.PrintQueueItem, 0)
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate print queue: %w", err)
	}
	return items, nil
}

// GetQueueItem returns one queue item.
func (s *Store) GetQueueItem(ctx context.Context, id int64) (inventory.PrintQueueItem, error) {
	item, err := scanQueueItem(s.db.QueryRowContext(ctx, queueSelect+` WHERE q.id = ?`, id))
	if err != nil {
		return inventory.PrintQueueItem{}, translate(err, fmt.Sprintf("get queue item %d", id))
	}
	return item, nil
}

// CreateQueueItem appends an item to the end of the queue.
func (s *Store) CreateQueueItem(ctx context.Context, item inventory.PrintQueueItem) (inventory.PrintQueueItem, error) {
	if item.Status == "" {
		item.Status = inventory.QueuePending
	}
	var printerID sql.NullInt64
	if item.PrinterID != nil {
		printerID = sql.NullInt64{Int64: *item.PrinterID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO print_queue (item_name, printer_id, color, status, position)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM print_queue))
	`, item.ItemName, printerID, nullString(item.Color), string(item.Status))
	if err != nil {
		return inventory.PrintQueueItem{}, translate(err, "insert queue item")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return inventory.PrintQueueItem{}, fmt.Errorf("insert queue item: last insert id: %w", err)
	}
	return s.GetQueueItem(ctx, id)
}

// UpdateQueueItem applies a partial update.
func (s *Store) UpdateQueueItem(ctx context.Context, id int64, p QueueItemPatch) (inventory.PrintQueueItem, error) {
	var b updateBuilder
	if p.ItemName != nil {
		b.set("item_name", *p.ItemName)
	}
	switch {
	case p.ClearPrinter:
		b.set("printer_id", nil)
	case p.PrinterID != nil:
		b.set("printer_id", *p.PrinterID)
	}
	if p.Color != nil {
		b.set("color", nullString(*p.Color))
	}
	if p.Status != nil {
		b.set("status", string(*p.Status))
	}

	op := fmt.Sprintf("update queue item %d", id)
	result, err := b.exec(ctx, s.db, "print_queue", id)
	if err != nil {
		return inventory.PrintQueueItem{}, translate(err, op)
	}
	if err := expectAffected(result, op); err != nil {
		return inventory.PrintQueueItem{}, err
	}
	return s.GetQueueItem(ctx, id)
}

// DeleteQueueItem removes a queue item. Remaining positions may have gaps.
func (s *Store) DeleteQueueItem(ctx context.Context, id int64) error {
	op := fmt.Sprintf("delete queue item %d", id)
	result, err := s.db.ExecContext(ctx, `DELETE FROM print_queue WHERE id = ?`, id)
	if err != nil {
		return translate(err, op)
	}
	return expectAffected(result, op)
}

// ReorderQueue assigns positions 0..n-1 following ids in a single transaction.
// ids must name every queue item exactly once.
func (s *Store) ReorderQueue(ctx context.Context, ids []int64) ([]inventory.PrintQueueItem, error) {
	var out []inventory.PrintQueueItem
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM print_queue`).Scan(&count); err != nil {
			return fmt.Errorf("count print queue: %w", err)
		}
		if count != len(ids) {
			return fmt.Errorf("reorder queue: %w: got %d ids for %d items", ErrValidation, len(ids), count)
		}

		seen := make(map[int64]struct{}, len(ids))
		for position, id := range ids {
			if _, dup := seen[id]; dup {
				return fmt.Errorf("reorder queue: %w: duplicate id %d", ErrValidation, id)
			}
			seen[id] = struct{}{}

			result, err := tx.ExecContext(ctx, `
				UPDATE print_queue SET position = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
			`, position, id)
			if err != nil {
				return translate(err, "reorder queue")
			}
			if err := expectAffected(result, fmt.Sprintf("reorder queue item %d", id)); err != nil {
				return err
			}
		}

		var err error
		out, err = listQueue(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
