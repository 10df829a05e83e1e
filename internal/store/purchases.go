package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Simplici0/sims/internal/inventory"
)

// PurchasePatch carries the fields of a partial purchase-list update.
type PurchasePatch struct {
	Quantity *int
	Notes    *string
	Ordered  *bool
}

const purchaseSelect = `
	SELECT pl.id, pl.filament_id, pl.quantity, COALESCE(pl.notes, ''), pl.ordered,
		pl.created_at, pl.updated_at,
		f.id, f.name, f.material, f.color, COALESCE(f.color2, ''), COALESCE(f.color3, ''),
		f.quantity, f.minimum_quantity, f.minimum_quantity_override,
		COALESCE(f.manufacturer, ''), f.cost, COALESCE(f.notes, ''), f.created_at, f.updated_at
	FROM purchase_list pl
	JOIN filaments f ON f.id = pl.filament_id`

func scanPurchase(row rowScanner) (inventory.PurchaseListItem, error) {
	var item inventory.PurchaseListItem
	var f inventory.Filament
	var material string
	var override sql.NullInt64
	var cost sql.NullFloat64
	if err := row.Scan(
		&item.ID, &item.FilamentID, &item.Quantity, &item.Notes, &item.Ordered,
		timestamp{&item.CreatedAt}, timestamp{&item.UpdatedAt},
		&f.ID, &f.Name, &material, &f.Color, &f.Color2, &f.Color3,
		&f.Quantity, &f.MinimumQuantity, &override,
		&f.Manufacturer, &cost, &f.Notes, timestamp{&f.CreatedAt}, timestamp{&f.UpdatedAt},
	); err != nil {
		return inventory.PurchaseListItem{}, err
	}
	f.Material = inventory.Material(material)
	f.MinimumQuantityOverride = intPtr(override)
	f.Cost = floatPtr(cost)
	item.Filament = &f
	return item, nil
}

// ListPurchases returns the purchase list with each filament embedded; open orders first.
func (s *Store) ListPurchases(ctx context.Context) ([]inventory.PurchaseListItem, error) {
	return listPurchases(ctx, s.db)
}

func listPurchases(ctx context.Context, q queryer) ([]inventory.PurchaseListItem, error) {
	rows, err := q.QueryContext(ctx, purchaseSelect+` ORDER BY pl.ordered, pl.created_at DESC, pl.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query purchase list: %w", err)
	}
	defer rows.Close()

	items := make([]inventory.PurchaseListItem, 0)
	for rows.Next() {
		item, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase list: %w", err)
	}
	return items, nil
}

// GetPurchase returns one purchase-list item.
func (s *Store) GetPurchase(ctx context.Context, id int64) (inventory.PurchaseListItem, error) {
	item, err := scanPurchase(s.db.QueryRowContext(ctx, purchaseSelect+` WHERE pl.id = ?`, id))
	if err != nil {
		return inventory.PurchaseListItem{}, translate(err, fmt.Sprintf("get purchase item %d", id))
	}
	return item, nil
}

// CreatePurchase adds a filament to the purchase list.
func (s *Store) CreatePurchase(ctx context.Context, item inventory.PurchaseListItem) (inventory.PurchaseListItem, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO purchase_list (filament_id, quantity, notes, ordered)
		VALUES (?, ?, ?, ?)
	`, item.FilamentID, item.Quantity, nullString(item.Notes), item.Ordered)
	if err != nil {
		return inventory.PurchaseListItem{}, translate(err, "insert purchase item")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return inventory.PurchaseListItem{}, fmt.Errorf("insert purchase item: last insert id: %w", err)
	}
	return s.GetPurchase(ctx, id)
}

// UpdatePurchase applies a partial update.
func (s *Store) UpdatePurchase(ctx context.Context, id int64, p PurchasePatch) (inventory.PurchaseListItem, error) {
	var b updateBuilder
	if p.Quantity != nil {
		b.set("quantity", *p.Quantity)
	}
	if p.Notes != nil {
		b.set("notes", nullString(*p.Notes))
	}
	if p.Ordered != nil {
		b.set("ordered", *p.Ordered)
	}

	op := fmt.Sprintf("update purchase item %d", id)
	result, err := b.exec(ctx, s.db, "purchase_list", id)
	if err != nil {
		return inventory.PurchaseListItem{}, translate(err, op)
	}
	if err := expectAffected(result, op); err != nil {
		return inventory.PurchaseListItem{}, err
	}
	return s.GetPurchase(ctx, id)
}

// DeletePurchase removes a purchase-list item.
func (s *Store) DeletePurchase(ctx context.Context, id int64) error {
	op := fmt.Sprintf("delete purchase item %d", id)
	result, err := s.db.ExecContext(ctx, `DELETE FROM purchase_list WHERE id = ?`, id)
	if err != nil {
		return translate(err, op)
	}
	return expectAffected(result, op)
}

// AddLowStockPurchases puts every filament below its threshold on the purchase
// list unless an unordered entry for it already exists. It returns the new entries.
func (s *Store) AddLowStockPurchases(ctx context.Context) ([]inventory.PurchaseListItem, error) {
	created := make([]inventory.PurchaseListItem, 0)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		filaments, err := listFilaments(ctx, tx)
		if err != nil {
			return err
		}
		low := inventory.LowStockFilaments(filaments)

		pending := make(map[int64]struct{})
		rows, err := tx.QueryContext(ctx, `SELECT filament_id FROM purchase_list WHERE ordered = FALSE`)
		if err != nil {
			return fmt.Errorf("query open purchases: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan open purchase: %w", err)
			}
			pending[id] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate open purchases: %w", err)
		}
		rows.Close()

		var ids []int64
		for _, f := range low {
			if _, ok := pending[f.ID]; ok {
				continue
			}
			result, err := tx.ExecContext(ctx, `
				INSERT INTO purchase_list (filament_id, quantity, ordered) VALUES (?, ?, FALSE)
			`, f.ID, f.ReorderQuantity())
			if err != nil {
				return translate(err, fmt.Sprintf("add filament %d to purchase list", f.ID))
			}
			id, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("add purchase: last insert id: %w", err)
			}
			ids = append(ids, id)
		}

		if len(ids) == 0 {
			return nil
		}
		all, err := listPurchases(ctx, tx)
		if err != nil {
			return err
		}
		wanted := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			wanted[id] = struct{}{}
		}
		for _, item := range all {
			if _, ok := wanted[item.ID]; ok {
				created = append(created, item)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
