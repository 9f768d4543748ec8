package models

import (
	"time"
)

// Batch represents one production lot of a product. Stock is incremented
// on restock and never decremented here; sales are tracked elsewhere.
type Batch struct {
	ID                int        `json:"id"`
	ProductID         int        `json:"product_id"`
	BatchNumber       string     `json:"batch_number"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	ManufacturingDate *time.Time `json:"manufacturing_date,omitempty"`
	Price             *float64   `json:"price,omitempty"`
	StockQuantity     int        `json:"stock_quantity"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// AutoBatchNumber synthesizes a batch number for scans where no lot code
// could be read off the packaging. Every persisted batch has a number.
func AutoBatchNumber(now time.Time) string {
	return "AUTO-" + now.UTC().Format("20060102150405")
}
