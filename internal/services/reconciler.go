package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shelfscan/shelfscan/internal/models"
)

// ScanContext carries the OCR evidence of one submission, persisted as the
// audit trail alongside whatever the reconciler decides.
type ScanContext struct {
	ImagePaths map[string]string // image type -> stored object key
	RawText    map[string]string // image type -> extracted text
	Confidence float64
	Engine     string
}

var imageOrder = []string{"front", "left", "right"}

// Reconciler decides whether a scan is a restock or a new product and
// persists the outcome. One invocation is one atomic unit of work: candidate
// retrieval, scoring and the create-or-increment branch share a single
// transaction, together with the OCR audit log row.
type Reconciler struct {
	store   CatalogStore
	matcher *Matcher
	now     func() time.Time
}

// NewReconciler creates a reconciler on top of the given store.
func NewReconciler(store CatalogStore, matcher *Matcher) *Reconciler {
	return &Reconciler{
		store:   store,
		matcher: matcher,
		now:     time.Now,
	}
}

// Process runs the full pipeline for one submission.
//
// A unique-constraint violation on barcode means another submission created
// the same product concurrently; the losing attempt is retried once and
// resolves as a restock of the winner's row instead of surfacing an error.
func (r *Reconciler) Process(ctx context.Context, attrs models.ProductAttributes, scan ScanContext) (*models.ScanResult, error) {
	result, err := r.attempt(ctx, attrs, scan)
	if errors.Is(err, models.ErrBarcodeTaken) {
		log.Warn().Str("barcode", deref(attrs.Barcode)).Msg("lost barcode race, retrying as restock")
		result, err = r.attempt(ctx, attrs, scan)
	}
	return result, err
}

func (r *Reconciler) attempt(ctx context.Context, attrs models.ProductAttributes, scan ScanContext) (*models.ScanResult, error) {
	var result *models.ScanResult

	err := r.store.InTx(ctx, func(tx CatalogTx) error {
		candidates, err := r.matcher.FindCandidates(ctx, tx, attrs)
		if err != nil {
			return fmt.Errorf("finding candidates: %w", err)
		}

		best, isDuplicate := BestMatch(candidates)

		var view models.ProductView
		var missing []string
		if isDuplicate {
			log.Info().
				Int("product_id", best.ProductID).
				Str("match_type", string(best.MatchType)).
				Float64("similarity", best.Similarity).
				Msg("duplicate detected, restocking")
			view, err = r.restock(ctx, tx, best.ProductID, attrs)
		} else {
			view, missing, err = r.createProduct(ctx, tx, attrs, scan.ImagePaths)
		}
		if err != nil {
			return err
		}

		if err := tx.InsertOCRLog(ctx, &models.OCRLog{
			ImagePath:  joinByType(scan.ImagePaths),
			RawText:    joinByType(scan.RawText),
			Confidence: scan.Confidence,
			OCREngine:  scan.Engine,
		}); err != nil {
			return fmt.Errorf("writing ocr log: %w", err)
		}

		result = &models.ScanResult{
			Confidence:    scan.Confidence,
			Product:       view,
			RawText:       scan.RawText,
			MissingFields: missing,
			Duplicates:    candidates,
			IsDuplicate:   isDuplicate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.MissingFields == nil {
		result.MissingFields = []string{}
	}
	return result, nil
}

// restock increments stock on an existing lot of a known product, creating
// the lot first when this batch number has not been seen before.
func (r *Reconciler) restock(ctx context.Context, tx CatalogTx, productID int, attrs models.ProductAttributes) (models.ProductView, error) {
	product, err := tx.ProductByID(ctx, productID)
	if err != nil {
		return models.ProductView{}, fmt.Errorf("loading product %d: %w", productID, err)
	}

	batchNumber := deref(attrs.BatchNumber)
	if batchNumber == "" {
		batchNumber = models.AutoBatchNumber(r.now())
		log.Warn().Str("batch_number", batchNumber).Msg("no lot code on packaging, generated one")
	}

	batch, err := tx.BatchByNumber(ctx, product.ID, batchNumber)
	switch {
	case err == nil:
		// One more physical unit of a lot already on the shelf.
		batch, err = tx.IncrementBatchStock(ctx, batch.ID)
		if err != nil {
			return models.ProductView{}, fmt.Errorf("incrementing stock: %w", err)
		}
		log.Info().Str("batch_number", batchNumber).Int("stock", batch.StockQuantity).Msg("stock incremented")
	case errors.Is(err, models.ErrBatchNotFound):
		batch = &models.Batch{
			ProductID:         product.ID,
			BatchNumber:       batchNumber,
			ExpiryDate:        attrs.ExpiryDate,
			ManufacturingDate: attrs.ManufacturingDate,
			Price:             attrs.Price,
			StockQuantity:     1,
		}
		if err := tx.CreateBatch(ctx, batch); err != nil {
			return models.ProductView{}, fmt.Errorf("creating batch: %w", err)
		}
		log.Info().Str("batch_number", batchNumber).Msg("new lot for existing product")
	default:
		return models.ProductView{}, fmt.Errorf("looking up batch: %w", err)
	}

	return mergeView(product, batch), nil
}

// createProduct persists a brand-new catalog entry with its first lot.
// A missing name is terminal: the record is unusable without one and the
// caller must resubmit with clearer photos. Brand and size fall back to
// sentinel values instead of failing.
func (r *Reconciler) createProduct(ctx context.Context, tx CatalogTx, attrs models.ProductAttributes, images map[string]string) (models.ProductView, []string, error) {
	name := deref(attrs.Name)
	if name == "" {
		return models.ProductView{}, nil, models.ErrNameMissing
	}

	brand := deref(attrs.Brand)
	if brand == "" {
		brand = models.DefaultBrand
	}
	size := deref(attrs.Size)
	if size == "" {
		size = models.DefaultSize
	}

	normValue, normUnit := NormalizeSize(size)

	product := &models.Product{
		Name:                name,
		Brand:               brand,
		Presentation:        attrs.Presentation,
		Size:                size,
		Category:            attrs.Category,
		NormalizedSizeValue: normValue,
		NormalizedSizeUnit:  normUnit,
		Barcode:             attrs.Barcode,
		ImageFront:          imageKey(images, "front"),
		ImageLeft:           imageKey(images, "left"),
		ImageRight:          imageKey(images, "right"),
		IsActive:            true,
	}
	if err := tx.CreateProduct(ctx, product); err != nil {
		return models.ProductView{}, nil, err
	}

	batchNumber := deref(attrs.BatchNumber)
	if batchNumber == "" {
		batchNumber = models.AutoBatchNumber(r.now())
	}
	batch := &models.Batch{
		ProductID:         product.ID,
		BatchNumber:       batchNumber,
		ExpiryDate:        attrs.ExpiryDate,
		ManufacturingDate: attrs.ManufacturingDate,
		Price:             attrs.Price,
		StockQuantity:     1,
	}
	if err := tx.CreateBatch(ctx, batch); err != nil {
		return models.ProductView{}, nil, fmt.Errorf("creating first batch: %w", err)
	}

	if batch.ExpiryDate != nil && batch.ExpiryDate.Before(r.now()) {
		log.Warn().Str("product", product.Name).Time("expiry", *batch.ExpiryDate).Msg("scanned product is already expired")
	}

	log.Info().Int("product_id", product.ID).Str("batch_number", batchNumber).Msg("new product registered")
	return mergeView(product, batch), missingFields(attrs), nil
}

// missingFields reports which attributes extraction failed to produce for a
// new product, counting sentinel defaults as missing.
func missingFields(attrs models.ProductAttributes) []string {
	missing := []string{}
	check := func(field, value string) {
		if value == "" || value == models.DefaultBrand || value == models.DefaultSize {
			missing = append(missing, field)
		}
	}
	check("name", deref(attrs.Name))
	check("brand", deref(attrs.Brand))
	check("size", deref(attrs.Size))
	check("category", deref(attrs.Category))
	check("presentation", deref(attrs.Presentation))
	check("barcode", deref(attrs.Barcode))
	check("batch", deref(attrs.BatchNumber))
	if attrs.ExpiryDate == nil {
		missing = append(missing, "expiry_date")
	}
	if attrs.Price == nil {
		missing = append(missing, "price")
	}
	return missing
}

func mergeView(p *models.Product, b *models.Batch) models.ProductView {
	return models.ProductView{
		ID:                p.ID,
		Name:              p.Name,
		Brand:             p.Brand,
		Presentation:      p.Presentation,
		Size:              p.Size,
		Category:          p.Category,
		Barcode:           p.Barcode,
		ImageFront:        p.ImageFront,
		ImageLeft:         p.ImageLeft,
		ImageRight:        p.ImageRight,
		BatchNumber:       b.BatchNumber,
		ExpiryDate:        b.ExpiryDate,
		ManufacturingDate: b.ManufacturingDate,
		Price:             b.Price,
		StockQuantity:     b.StockQuantity,
	}
}

func imageKey(images map[string]string, imageType string) *string {
	if v, ok := images[imageType]; ok && v != "" {
		return &v
	}
	return nil
}

// joinByType flattens a per-image map into a stable comma-separated string
// for the audit log.
func joinByType(m map[string]string) string {
	out := ""
	for _, t := range imageOrder {
		v, ok := m[t]
		if !ok || v == "" {
			continue
		}
		if out != "" {
			out += ","
		}
		out += t + ":" + v
	}
	return out
}
