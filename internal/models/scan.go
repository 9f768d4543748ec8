package models

import (
	"time"
)

// OCRLog is the append-only audit record of a processing attempt. Rows are
// written once and never mutated.
type OCRLog struct {
	ID         int       `json:"id"`
	ImagePath  string    `json:"image_path"`
	RawText    string    `json:"raw_text"`
	Confidence float64   `json:"confidence"`
	OCREngine  string    `json:"ocr_engine"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProductView is the product payload returned to the caller after a scan:
// the catalog product's canonical fields merged with the current batch.
type ProductView struct {
	ID                int        `json:"id"`
	Name              string     `json:"name"`
	Brand             string     `json:"brand"`
	Presentation      *string    `json:"presentation,omitempty"`
	Size              string     `json:"size"`
	Category          *string    `json:"category,omitempty"`
	Barcode           *string    `json:"barcode,omitempty"`
	ImageFront        *string    `json:"image_front,omitempty"`
	ImageLeft         *string    `json:"image_left,omitempty"`
	ImageRight        *string    `json:"image_right,omitempty"`
	BatchNumber       string     `json:"batch"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	ManufacturingDate *time.Time `json:"manufacturing_date,omitempty"`
	Price             *float64   `json:"price,omitempty"`
	StockQuantity     int        `json:"stock_quantity"`
}

// InventoryRow is one (product, batch) pair of the stock report.
type InventoryRow struct {
	ProductID     int        `json:"product_id"`
	Name          string     `json:"name"`
	Brand         string     `json:"brand"`
	Size          string     `json:"size"`
	Barcode       *string    `json:"barcode,omitempty"`
	BatchNumber   string     `json:"batch_number"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	Price         *float64   `json:"price,omitempty"`
	StockQuantity int        `json:"stock_quantity"`
}

// ScanResult is the outcome of processing one product submission.
type ScanResult struct {
	Confidence    float64           `json:"confidence"`
	Product       ProductView       `json:"product"`
	RawText       map[string]string `json:"ocr_raw,omitempty"`
	MissingFields []string          `json:"missing_fields"`
	Duplicates    []MatchCandidate  `json:"duplicates"`
	IsDuplicate   bool              `json:"is_duplicate"`
}
