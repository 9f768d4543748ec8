package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/services"
)

// pgUniqueViolation is the SQLSTATE for a unique constraint violation.
const pgUniqueViolation = "23505"

// InTx runs fn inside a single transaction. Any error from fn rolls the
// whole transaction back, so a failed submission leaves no partial rows.
func (db *DB) InTx(ctx context.Context, fn func(tx services.CatalogTx) error) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&catalogTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// catalogTx implements services.CatalogTx over one pgx transaction.
type catalogTx struct {
	tx pgx.Tx
}

const productColumns = `id, name, brand, presentation, size, category,
	normalized_size_value, normalized_size_unit, barcode, description,
	image_front, image_left, image_right, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Brand, &p.Presentation, &p.Size, &p.Category,
		&p.NormalizedSizeValue, &p.NormalizedSizeUnit, &p.Barcode, &p.Description,
		&p.ImageFront, &p.ImageLeft, &p.ImageRight, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	return &p, nil
}

// ProductByBarcode looks up the active product carrying the barcode.
func (t *catalogTx) ProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE barcode = $1 AND is_active = TRUE
	`, barcode)
	return scanProduct(row)
}

// likeEscaper escapes LIKE wildcards. Brand text comes from OCR, and a
// stray % or _ in it must not widen the prefilter to the whole catalog.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ActiveProductsByBrand returns active products whose brand contains the
// given text, case-insensitively, capped at limit rows.
func (t *catalogTx) ActiveProductsByBrand(ctx context.Context, brand string, limit int) ([]*models.Product, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE is_active = TRUE AND LOWER(brand) LIKE '%' || LOWER($1) || '%'
		ORDER BY id
		LIMIT $2
	`, likeEscaper.Replace(brand), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query products by brand: %w", err)
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

// ProductByID fetches one product by primary key.
func (t *catalogTx) ProductByID(ctx context.Context, id int) (*models.Product, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)
	return scanProduct(row)
}

// CreateProduct inserts a new catalog product. A barcode collision with an
// existing active product surfaces as models.ErrBarcodeTaken so the caller
// can re-resolve the submission against the winner.
func (t *catalogTx) CreateProduct(ctx context.Context, p *models.Product) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO products (
			name, brand, presentation, size, category,
			normalized_size_value, normalized_size_unit, barcode, description,
			image_front, image_left, image_right
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, is_active, created_at, updated_at
	`,
		p.Name, p.Brand, p.Presentation, p.Size, p.Category,
		p.NormalizedSizeValue, p.NormalizedSizeUnit, p.Barcode, p.Description,
		p.ImageFront, p.ImageLeft, p.ImageRight,
	).Scan(&p.ID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return models.ErrBarcodeTaken
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// BatchByNumber fetches the batch identified by (product, batch number).
func (t *catalogTx) BatchByNumber(ctx context.Context, productID int, batchNumber string) (*models.Batch, error) {
	var b models.Batch
	err := t.tx.QueryRow(ctx, `
		SELECT id, product_id, batch_number, expiry_date, manufacturing_date,
		       price, stock_quantity, created_at, updated_at
		FROM product_batches
		WHERE product_id = $1 AND batch_number = $2
	`, productID, batchNumber).Scan(
		&b.ID, &b.ProductID, &b.BatchNumber, &b.ExpiryDate, &b.ManufacturingDate,
		&b.Price, &b.StockQuantity, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to query batch: %w", err)
	}
	return &b, nil
}

// CreateBatch inserts a new batch row.
func (t *catalogTx) CreateBatch(ctx context.Context, b *models.Batch) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO product_batches (
			product_id, batch_number, expiry_date, manufacturing_date, price, stock_quantity
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`,
		b.ProductID, b.BatchNumber, b.ExpiryDate, b.ManufacturingDate, b.Price, b.StockQuantity,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

// IncrementBatchStock adds one unit to the batch and returns the updated row.
func (t *catalogTx) IncrementBatchStock(ctx context.Context, batchID int) (*models.Batch, error) {
	var b models.Batch
	err := t.tx.QueryRow(ctx, `
		UPDATE product_batches
		SET stock_quantity = stock_quantity + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING id, product_id, batch_number, expiry_date, manufacturing_date,
		          price, stock_quantity, created_at, updated_at
	`, batchID).Scan(
		&b.ID, &b.ProductID, &b.BatchNumber, &b.ExpiryDate, &b.ManufacturingDate,
		&b.Price, &b.StockQuantity, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to increment batch stock: %w", err)
	}
	return &b, nil
}

// InsertOCRLog appends one audit row for a processed submission.
func (t *catalogTx) InsertOCRLog(ctx context.Context, entry *models.OCRLog) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO ocr_logs (image_path, raw_text, confidence, ocr_engine)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`,
		entry.ImagePath, entry.RawText, entry.Confidence, entry.OCREngine,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ocr log: %w", err)
	}
	return nil
}
