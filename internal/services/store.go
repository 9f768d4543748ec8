package services

import (
	"context"

	"github.com/shelfscan/shelfscan/internal/models"
)

// CatalogTx is the set of catalog operations available inside one
// transaction. Candidate retrieval and the create-or-increment branch of a
// submission always run against the same CatalogTx, so two concurrent scans
// of the same product cannot both observe an empty catalog.
type CatalogTx interface {
	ProductByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	ActiveProductsByBrand(ctx context.Context, brand string, limit int) ([]*models.Product, error)
	ProductByID(ctx context.Context, id int) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	BatchByNumber(ctx context.Context, productID int, batchNumber string) (*models.Batch, error)
	CreateBatch(ctx context.Context, b *models.Batch) error
	IncrementBatchStock(ctx context.Context, batchID int) (*models.Batch, error)
	InsertOCRLog(ctx context.Context, entry *models.OCRLog) error
}

// CatalogStore runs a function inside a single all-or-nothing transaction.
// If fn returns an error, every write made through the CatalogTx is rolled
// back and no partial state is visible.
type CatalogStore interface {
	InTx(ctx context.Context, fn func(tx CatalogTx) error) error
}
