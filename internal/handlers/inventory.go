package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/shelfscan/shelfscan/internal/middleware"
	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/services"
)

// maxPhotoSize bounds a single uploaded photo to 10 MB.
const maxPhotoSize = 10 << 20

// photoFields maps multipart field names to image types, in upload order.
var photoFields = []struct {
	field     string
	imageType string
}{
	{"photo_0", "front"},
	{"photo_1", "left"},
	{"photo_2", "right"},
}

// FromImages handles POST /api/inventory/from-images. It runs the full
// pipeline for one product submission: store the photos, OCR them, extract
// attributes and reconcile against the catalog.
func (h *Handler) FromImages(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "expected multipart form with product photos")
	}

	photos := make(map[string][]byte)
	for _, pf := range photoFields {
		files := form.File[pf.field]
		if len(files) == 0 {
			continue
		}
		data, err := readPhoto(files[0])
		if err != nil {
			return Error(c, fiber.StatusBadRequest, "could not read photo "+pf.field)
		}
		photos[pf.imageType] = data
	}
	if len(photos) == 0 {
		return Error(c, fiber.StatusBadRequest, "at least one product photo is required")
	}

	ctx := c.Context()

	var imagePaths map[string]string
	if h.storage != nil {
		imagePaths = h.storage.SavePhotos(ctx, photos)
	}

	ocrOut, err := h.ocr.ExtractFromImages(ctx, photos)
	if err != nil {
		log.Error().Err(err).Msg("OCR pipeline failed")
		return Error(c, fiber.StatusInternalServerError, "failed to read product photos")
	}

	attrs := h.chain.Extract(ctx, ocrOut)

	rawText := make(map[string]string, len(ocrOut.Images))
	for imageType, img := range ocrOut.Images {
		if img.Text != "" {
			rawText[imageType] = img.Text
		}
	}

	result, err := h.reconciler.Process(ctx, attrs, services.ScanContext{
		ImagePaths: imagePaths,
		RawText:    rawText,
		Confidence: ocrOut.OverallConfidence,
		Engine:     ocrOut.Engine,
	})
	if err != nil {
		if errors.Is(err, models.ErrNameMissing) {
			return Error(c, fiber.StatusBadRequest, "could not identify the product from the photos, retake them")
		}
		log.Error().Err(err).Msg("failed to process submission")
		return Error(c, fiber.StatusInternalServerError, "failed to process submission")
	}

	return Success(c, result)
}

func readPhoto(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxPhotoSize))
}

// SaveProduct handles POST /api/inventory/save: a user-confirmed save after
// reviewing (and possibly correcting) the extracted fields. When the barcode
// already belongs to an active product the save becomes a restock of that
// product instead of a second catalog row.
func (h *Handler) SaveProduct(c *fiber.Ctx) error {
	var req models.SaveProductRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return Error(c, fiber.StatusBadRequest, "name is required")
	}
	if strings.TrimSpace(req.Brand) == "" {
		req.Brand = models.DefaultBrand
	}
	if strings.TrimSpace(req.Size) == "" {
		req.Size = models.DefaultSize
	}

	var view models.ProductView
	err := h.db.InTx(c.Context(), func(tx services.CatalogTx) error {
		product, err := h.resolveProduct(c.Context(), tx, &req)
		if err != nil {
			return err
		}

		batchNumber := ""
		if req.BatchNumber != nil {
			batchNumber = strings.TrimSpace(*req.BatchNumber)
		}
		if batchNumber == "" {
			batchNumber = models.AutoBatchNumber(timeNow())
		}

		batch, err := tx.BatchByNumber(c.Context(), product.ID, batchNumber)
		switch {
		case err == nil:
			batch, err = tx.IncrementBatchStock(c.Context(), batch.ID)
			if err != nil {
				return err
			}
		case errors.Is(err, models.ErrBatchNotFound):
			batch = &models.Batch{
				ProductID:         product.ID,
				BatchNumber:       batchNumber,
				ExpiryDate:        req.ExpiryDate,
				ManufacturingDate: req.ManufacturingDate,
				Price:             req.Price,
				StockQuantity:     1,
			}
			if err := tx.CreateBatch(c.Context(), batch); err != nil {
				return err
			}
		default:
			return err
		}

		view = models.ProductView{
			ID:                product.ID,
			Name:              product.Name,
			Brand:             product.Brand,
			Presentation:      product.Presentation,
			Size:              product.Size,
			Category:          product.Category,
			Barcode:           product.Barcode,
			ImageFront:        product.ImageFront,
			ImageLeft:         product.ImageLeft,
			ImageRight:        product.ImageRight,
			BatchNumber:       batch.BatchNumber,
			ExpiryDate:        batch.ExpiryDate,
			ManufacturingDate: batch.ManufacturingDate,
			Price:             batch.Price,
			StockQuantity:     batch.StockQuantity,
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to save product")
		return Error(c, fiber.StatusInternalServerError, "failed to save product")
	}

	return Success(c, view)
}

// resolveProduct reuses an existing catalog row when the confirmed barcode
// already belongs to one, otherwise creates the product.
func (h *Handler) resolveProduct(ctx context.Context, tx services.CatalogTx, req *models.SaveProductRequest) (*models.Product, error) {
	if req.Barcode != nil && *req.Barcode != "" {
		existing, err := tx.ProductByBarcode(ctx, *req.Barcode)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, models.ErrProductNotFound) {
			return nil, err
		}
	}

	normValue, normUnit := services.NormalizeSize(req.Size)
	product := &models.Product{
		Name:                req.Name,
		Brand:               req.Brand,
		Presentation:        req.Presentation,
		Size:                req.Size,
		Category:            req.Category,
		NormalizedSizeValue: normValue,
		NormalizedSizeUnit:  normUnit,
		Barcode:             req.Barcode,
		Description:         req.Description,
		IsActive:            true,
	}
	if err := tx.CreateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// ListProducts handles GET /api/products
func (h *Handler) ListProducts(c *fiber.Ctx) error {
	params := models.ProductListParams{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}

	products, err := h.db.ListProducts(c.Context(), params)
	if err != nil {
		log.Error().Err(err).Msg("failed to list products")
		return Error(c, fiber.StatusInternalServerError, "failed to list products")
	}
	if products == nil {
		products = []*models.Product{}
	}

	return SuccessWithMeta(c, products, params.Limit, params.Offset, len(products))
}

// GetProductByBarcode handles GET /api/products/barcode/:barcode. Lets the
// client check a scanned barcode against the catalog before a manual save.
func (h *Handler) GetProductByBarcode(c *fiber.Ctx) error {
	barcode := strings.TrimSpace(c.Params("barcode"))
	if barcode == "" {
		return Error(c, fiber.StatusBadRequest, "barcode is required")
	}

	product, err := h.db.FindActiveProductByBarcode(c.Context(), barcode)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return Error(c, fiber.StatusNotFound, "product not found")
		}
		log.Error().Err(err).Str("barcode", barcode).Msg("failed to look up barcode")
		return Error(c, fiber.StatusInternalServerError, "failed to look up barcode")
	}

	return Success(c, product)
}

// photoKey resolves an image type to the product's stored object key.
func photoKey(p *models.Product, imageType string) *string {
	switch imageType {
	case "front":
		return p.ImageFront
	case "left":
		return p.ImageLeft
	case "right":
		return p.ImageRight
	}
	return nil
}

// GetProductPhoto handles GET /api/products/:id/photos/:type. Returns a
// short-lived presigned URL rather than proxying the image bytes.
func (h *Handler) GetProductPhoto(c *fiber.Ctx) error {
	if h.storage == nil {
		return Error(c, fiber.StatusServiceUnavailable, "photo storage is not configured")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return Error(c, fiber.StatusBadRequest, "invalid product id")
	}
	imageType := c.Params("type")

	product, _, err := h.db.GetProductByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return Error(c, fiber.StatusNotFound, "product not found")
		}
		log.Error().Err(err).Int("id", id).Msg("failed to load product")
		return Error(c, fiber.StatusInternalServerError, "failed to load product")
	}

	key := photoKey(product, imageType)
	if key == nil {
		return Error(c, fiber.StatusNotFound, "no photo of that type for this product")
	}

	url, err := h.storage.GetPresignedURL(c.Context(), *key, time.Hour)
	if err != nil {
		log.Error().Err(err).Str("key", *key).Msg("failed to presign photo URL")
		return Error(c, fiber.StatusInternalServerError, "failed to generate photo URL")
	}

	return Success(c, fiber.Map{"url": url})
}

// DeactivateProduct handles DELETE /api/products/:id. Soft-deletes the
// catalog row and removes its stored photos; a failed photo delete is logged
// and does not block the deactivation.
func (h *Handler) DeactivateProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return Error(c, fiber.StatusBadRequest, "invalid product id")
	}

	product, _, err := h.db.GetProductByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return Error(c, fiber.StatusNotFound, "product not found")
		}
		log.Error().Err(err).Int("id", id).Msg("failed to load product")
		return Error(c, fiber.StatusInternalServerError, "failed to load product")
	}

	if err := h.db.DeactivateProduct(c.Context(), id); err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return Error(c, fiber.StatusNotFound, "product not found")
		}
		log.Error().Err(err).Int("id", id).Msg("failed to deactivate product")
		return Error(c, fiber.StatusInternalServerError, "failed to deactivate product")
	}

	if h.storage != nil {
		for _, pf := range photoFields {
			key := photoKey(product, pf.imageType)
			if key == nil {
				continue
			}
			if err := h.storage.Delete(c.Context(), *key); err != nil {
				log.Warn().Err(err).Str("key", *key).Msg("failed to delete product photo")
			}
		}
	}

	log.Info().
		Int("product_id", id).
		Str("operator", middleware.GetUserEmail(c)).
		Msg("product deactivated")

	return Success(c, fiber.Map{"deleted": true})
}

// GetProduct handles GET /api/products/:id
func (h *Handler) GetProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return Error(c, fiber.StatusBadRequest, "invalid product id")
	}

	product, batches, err := h.db.GetProductByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return Error(c, fiber.StatusNotFound, "product not found")
		}
		log.Error().Err(err).Int("id", id).Msg("failed to load product")
		return Error(c, fiber.StatusInternalServerError, "failed to load product")
	}
	if batches == nil {
		batches = []*models.Batch{}
	}

	return Success(c, fiber.Map{
		"product": product,
		"batches": batches,
	})
}
