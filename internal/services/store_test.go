package services

import (
	"context"
	"strings"

	"github.com/shelfscan/shelfscan/internal/models"
)

// fakeCatalog is an in-memory CatalogStore for exercising the matcher and
// reconciler without Postgres. It is not transactional: tests that expect a
// rollback assert that no writes happened at all.
type fakeCatalog struct {
	products []*models.Product
	batches  []*models.Batch
	ocrLogs  []*models.OCRLog

	nextProductID int
	nextBatchID   int

	// loseBarcodeRaceOnce makes the next CreateProduct behave as if a
	// concurrent submission inserted the same barcode first.
	loseBarcodeRaceOnce bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{nextProductID: 1, nextBatchID: 1}
}

func (f *fakeCatalog) InTx(_ context.Context, fn func(tx CatalogTx) error) error {
	return fn(f)
}

func (f *fakeCatalog) addProduct(p models.Product) *models.Product {
	p.ID = f.nextProductID
	f.nextProductID++
	p.IsActive = true
	f.products = append(f.products, &p)
	return f.products[len(f.products)-1]
}

func (f *fakeCatalog) addBatch(b models.Batch) *models.Batch {
	b.ID = f.nextBatchID
	f.nextBatchID++
	f.batches = append(f.batches, &b)
	return f.batches[len(f.batches)-1]
}

func (f *fakeCatalog) ProductByBarcode(_ context.Context, barcode string) (*models.Product, error) {
	for _, p := range f.products {
		if p.IsActive && p.Barcode != nil && *p.Barcode == barcode {
			return p, nil
		}
	}
	return nil, models.ErrProductNotFound
}

func (f *fakeCatalog) ActiveProductsByBrand(_ context.Context, brand string, limit int) ([]*models.Product, error) {
	var out []*models.Product
	for _, p := range f.products {
		if !p.IsActive {
			continue
		}
		if strings.Contains(strings.ToLower(p.Brand), strings.ToLower(brand)) {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCatalog) ProductByID(_ context.Context, id int) (*models.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, models.ErrProductNotFound
}

func (f *fakeCatalog) CreateProduct(_ context.Context, p *models.Product) error {
	if f.loseBarcodeRaceOnce && p.Barcode != nil {
		// The concurrent winner's row appears in the store; this insert
		// fails the unique constraint.
		f.loseBarcodeRaceOnce = false
		f.addProduct(models.Product{
			Name:    p.Name,
			Brand:   p.Brand,
			Size:    p.Size,
			Barcode: p.Barcode,
		})
		return models.ErrBarcodeTaken
	}
	for _, existing := range f.products {
		if existing.IsActive && existing.Barcode != nil && p.Barcode != nil && *existing.Barcode == *p.Barcode {
			return models.ErrBarcodeTaken
		}
	}
	created := f.addProduct(*p)
	*p = *created
	return nil
}

func (f *fakeCatalog) BatchByNumber(_ context.Context, productID int, batchNumber string) (*models.Batch, error) {
	for _, b := range f.batches {
		if b.ProductID == productID && b.BatchNumber == batchNumber {
			return b, nil
		}
	}
	return nil, models.ErrBatchNotFound
}

func (f *fakeCatalog) CreateBatch(_ context.Context, b *models.Batch) error {
	created := f.addBatch(*b)
	*b = *created
	return nil
}

func (f *fakeCatalog) IncrementBatchStock(_ context.Context, batchID int) (*models.Batch, error) {
	for _, b := range f.batches {
		if b.ID == batchID {
			b.StockQuantity++
			return b, nil
		}
	}
	return nil, models.ErrBatchNotFound
}

func (f *fakeCatalog) InsertOCRLog(_ context.Context, entry *models.OCRLog) error {
	entry.ID = len(f.ocrLogs) + 1
	f.ocrLogs = append(f.ocrLogs, entry)
	return nil
}

func strPtr(s string) *string { return &s }

func floatPtr(v float64) *float64 { return &v }
