package database

import (
	"context"
	"fmt"

	"github.com/shelfscan/shelfscan/internal/models"
)

// ListProducts returns active catalog products, newest first.
func (db *DB) ListProducts(ctx context.Context, params models.ProductListParams) ([]*models.Product, error) {
	if params.Limit <= 0 || params.Limit > 200 {
		params.Limit = 50
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProductByID fetches one product and its batches.
func (db *DB) GetProductByID(ctx context.Context, id int) (*models.Product, []*models.Batch, error) {
	p, err := scanProduct(db.Pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, nil, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, product_id, batch_number, expiry_date, manufacturing_date,
		       price, stock_quantity, created_at, updated_at
		FROM product_batches
		WHERE product_id = $1
		ORDER BY created_at DESC
	`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []*models.Batch
	for rows.Next() {
		var b models.Batch
		if err := rows.Scan(
			&b.ID, &b.ProductID, &b.BatchNumber, &b.ExpiryDate, &b.ManufacturingDate,
			&b.Price, &b.StockQuantity, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, &b)
	}
	return p, batches, rows.Err()
}

// ListInventory returns one row per (product, batch) pair for the stock
// report, restricted to active products.
func (db *DB) ListInventory(ctx context.Context) ([]models.InventoryRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT p.id, p.name, p.brand, p.size, p.barcode,
		       b.batch_number, b.expiry_date, b.price, b.stock_quantity
		FROM products p
		JOIN product_batches b ON b.product_id = p.id
		WHERE p.is_active = TRUE
		ORDER BY p.name, b.batch_number
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	var inventory []models.InventoryRow
	for rows.Next() {
		var r models.InventoryRow
		if err := rows.Scan(
			&r.ProductID, &r.Name, &r.Brand, &r.Size, &r.Barcode,
			&r.BatchNumber, &r.ExpiryDate, &r.Price, &r.StockQuantity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan inventory row: %w", err)
		}
		inventory = append(inventory, r)
	}
	return inventory, rows.Err()
}

// ProductExistsByBarcode reports whether an active product already carries
// the barcode. Used by the seeder to stay idempotent.
func (db *DB) ProductExistsByBarcode(ctx context.Context, barcode string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM products WHERE barcode = $1 AND is_active = TRUE
		)
	`, barcode).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check barcode: %w", err)
	}
	return exists, nil
}

// FindActiveProductByBarcode is the pool-level variant of the transactional
// barcode lookup, serving the direct barcode endpoint.
func (db *DB) FindActiveProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	return scanProduct(db.Pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE barcode = $1 AND is_active = TRUE
	`, barcode))
}

// DeactivateProduct soft-deletes a product. The row and its batches stay for
// history; the partial barcode index frees the barcode for reuse.
func (db *DB) DeactivateProduct(ctx context.Context, id int) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE products
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active = TRUE
	`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrProductNotFound
	}
	return nil
}
