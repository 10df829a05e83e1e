package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Simplici0/sims/internal/inventory"
)

const productColumns = `
	id, name, business, filament_used, print_prep_time, post_processing_time,
	additional_parts_cost, list_price, COALESCE(notes, ''), created_at, updated_at`

// ProductPatch carries the fields of a partial product update; nil fields are left alone.
type ProductPatch struct {
	Name                *string
	Business            *inventory.Business
	FilamentUsed        *float64
	PrintPrepTime       *float64
	PostProcessingTime  *float64
	AdditionalPartsCost *float64
	ListPrice           *float64
	Notes               *string
}

func scanProduct(row rowScanner) (inventory.Product, error) {
	var p inventory.Product
	var business string
	if err := row.Scan(
		&p.ID, &p.Name, &business, &p.FilamentUsed, &p.PrintPrepTime, &p.PostProcessingTime,
		&p.AdditionalPartsCost, &p.ListPrice, &p.Notes,
		timestamp{&p.CreatedAt}, timestamp{&p.UpdatedAt},
	); err != nil {
		return inventory.Product{}, err
	}
	p.Business = inventory.Business(business)
	p.Filaments = []inventory.ProductFilament{}
	return p, nil
}

// ListProducts returns the products with their filaments, ordered by name.
// An empty business lists every business unit.
func (s *Store) ListProducts(ctx context.Context, business inventory.Business) ([]inventory.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE ? = '' OR business = ?
		ORDER BY name COLLATE NOCASE, id
	`, string(business), string(business))
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	products := make([]inventory.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	rows.Close()

	byProduct, err := productFilaments(ctx, s.db, 0)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if filaments, ok := byProduct[products[i].ID]; ok {
			products[i].Filaments = filaments
		}
	}
	return products, nil
}

// ProductFilaments returns the filaments attached to a product.
func (s *Store) ProductFilaments(ctx context.Context, productID int64) ([]inventory.ProductFilament, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	byProduct, err := productFilaments(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if filaments, ok := byProduct[productID]; ok {
		return filaments, nil
	}
	return []inventory.ProductFilament{}, nil
}

// productFilaments loads filament associations; productID 0 loads all of them.
func productFilaments(ctx context.Context, q queryer, productID int64) (map[int64][]inventory.ProductFilament, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT pf.product_id, pf.filament_usage_amount,
			f.id, f.name, f.material, f.color, COALESCE(f.color2, ''), COALESCE(f.color3, ''),
			f.quantity, f.minimum_quantity, f.minimum_quantity_override,
			COALESCE(f.manufacturer, ''), f.cost, COALESCE(f.notes, ''), f.created_at, f.updated_at
		FROM product_filaments pf
		JOIN filaments f ON f.id = pf.filament_id
		WHERE ? = 0 OR pf.product_id = ?
		ORDER BY pf.created_at, f.id
	`, productID, productID)
	if err != nil {
		return nil, fmt.Errorf("query product filaments: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]inventory.ProductFilament)
	for rows.Next() {
		var id int64
		var pf inventory.ProductFilament
		var material string
		var override sql.NullInt64
		var cost sql.NullFloat64
		f := &pf.Filament
		if err := rows.Scan(
			&id, &pf.UsageGrams,
			&f.ID, &f.Name, &material, &f.Color, &f.Color2, &f.Color3,
			&f.Quantity, &f.MinimumQuantity, &override,
			&f.Manufacturer, &cost, &f.Notes, timestamp{&f.CreatedAt}, timestamp{&f.UpdatedAt},
		); err != nil {
			return nil, fmt.Errorf("scan product filament: %w", err)
		}
		f.Material = inventory.Material(material)
		f.MinimumQuantityOverride = intPtr(override)
		f.Cost = floatPtr(cost)
		out[id] = append(out[id], pf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product filaments: %w", err)
	}
	return out, nil
}

// GetProduct returns one product with its filaments.
func (s *Store) GetProduct(ctx context.Context, id int64) (inventory.Product, error) {
	return getProduct(ctx, s.db, id)
}

func getProduct(ctx context.Context, q queryer, id int64) (inventory.Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err != nil {
		return inventory.Product{}, translate(err, fmt.Sprintf("get product %d", id))
	}
	byProduct, err := productFilaments(ctx, q, id)
	if err != nil {
		return inventory.Product{}, err
	}
	if filaments, ok := byProduct[id]; ok {
		p.Filaments = filaments
	}
	return p, nil
}

// CreateProduct inserts a product together with any filaments already attached to p.
func (s *Store) CreateProduct(ctx context.Context, p inventory.Product) (inventory.Product, error) {
	var out inventory.Product
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO products (
				name, business, filament_used, print_prep_time, post_processing_time,
				additional_parts_cost, list_price, notes
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			p.Name, string(p.Business), p.FilamentUsed, p.PrintPrepTime, p.PostProcessingTime,
			p.AdditionalPartsCost, p.ListPrice, nullString(p.Notes),
		)
		if err != nil {
			return translate(err, "insert product")
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert product: last insert id: %w", err)
		}
		for _, pf := range p.Filaments {
			if err := attachFilament(ctx, tx, id, pf.Filament.ID, pf.UsageGrams); err != nil {
				return err
			}
		}
		out, err = getProduct(ctx, tx, id)
		return err
	})
	if err != nil {
		return inventory.Product{}, err
	}
	return out, nil
}

// UpdateProduct applies a partial update and returns the stored record.
func (s *Store) UpdateProduct(ctx context.Context, id int64, p ProductPatch) (inventory.Product, error) {
	var b updateBuilder
	if p.Name != nil {
		b.set("name", *p.Name)
	}
	if p.Business != nil {
		b.set("business", string(*p.Business))
	}
	if p.FilamentUsed != nil {
		b.set("filament_used", *p.FilamentUsed)
	}
	if p.PrintPrepTime != nil {
		b.set("print_prep_time", *p.PrintPrepTime)
	}
	if p.PostProcessingTime != nil {
		b.set("post_processing_time", *p.PostProcessingTime)
	}
	if p.AdditionalPartsCost != nil {
		b.set("additional_parts_cost", *p.AdditionalPartsCost)
	}
	if p.ListPrice != nil {
		b.set("list_price", *p.ListPrice)
	}
	if p.Notes != nil {
		b.set("notes", nullString(*p.Notes))
	}

	op := fmt.Sprintf("update product %d", id)
	result, err := b.exec(ctx, s.db, "products", id)
	if err != nil {
		return inventory.Product{}, translate(err, op)
	}
	if err := expectAffected(result, op); err != nil {
		return inventory.Product{}, err
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct removes a product and its filament associations.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	op := fmt.Sprintf("delete product %d", id)
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return translate(err, op)
	}
	return expectAffected(result, op)
}

// AttachFilament links a filament to a product with a per-product usage in grams.
// Attaching the same filament twice is a conflict.
func (s *Store) AttachFilament(ctx context.Context, productID, filamentID int64, usageGrams float64) (inventory.Product, error) {
	var out inventory.Product
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := attachFilament(ctx, tx, productID, filamentID, usageGrams); err != nil {
			return err
		}
		if err := touchProduct(ctx, tx, productID); err != nil {
			return err
		}
		var err error
		out, err = getProduct(ctx, tx, productID)
		return err
	})
	if err != nil {
		return inventory.Product{}, err
	}
	return out, nil
}

func attachFilament(ctx context.Context, tx *sql.Tx, productID, filamentID int64, usageGrams float64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO product_filaments (product_id, filament_id, filament_usage_amount)
		VALUES (?, ?, ?)
	`, productID, filamentID, usageGrams)
	return translate(err, fmt.Sprintf("attach filament %d to product %d", filamentID, productID))
}

// SetFilamentUsage changes the usage of an attached filament.
func (s *Store) SetFilamentUsage(ctx context.Context, productID, filamentID int64, usageGrams float64) (inventory.Product, error) {
	op := fmt.Sprintf("set usage of filament %d on product %d", filamentID, productID)
	var out inventory.Product
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE product_filaments SET filament_usage_amount = ?
			WHERE product_id = ? AND filament_id = ?
		`, usageGrams, productID, filamentID)
		if err != nil {
			return translate(err, op)
		}
		if err := expectAffected(result, op); err != nil {
			return err
		}
		if err := touchProduct(ctx, tx, productID); err != nil {
			return err
		}
		out, err = getProduct(ctx, tx, productID)
		return err
	})
	if err != nil {
		return inventory.Product{}, err
	}
	return out, nil
}

// DetachFilament removes a filament from a product.
func (s *Store) DetachFilament(ctx context.Context, productID, filamentID int64) (inventory.Product, error) {
	op := fmt.Sprintf("detach filament %d from product %d", filamentID, productID)
	var out inventory.Product
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			DELETE FROM product_filaments WHERE product_id = ? AND filament_id = ?
		`, productID, filamentID)
		if err != nil {
			return translate(err, op)
		}
		if err := expectAffected(result, op); err != nil {
			return err
		}
		if err := touchProduct(ctx, tx, productID); err != nil {
			return err
		}
		out, err = getProduct(ctx, tx, productID)
		return err
	})
	if err != nil {
		return inventory.Product{}, err
	}
	return out, nil
}

func touchProduct(ctx context.Context, tx *sql.Tx, id int64) error {
	op := fmt.Sprintf("touch product %d", id)
	result, err := tx.ExecContext(ctx, `UPDATE products SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return translate(err, op)
	}
	return expectAffected(result, op)
}
