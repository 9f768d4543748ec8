package models

import (
	"time"
)

// Product represents a distinct physical product in the catalog.
// Products are created once and soft-deactivated, never deleted.
type Product struct {
	ID                  int       `json:"id"`
	Name                string    `json:"name"`
	Brand               string    `json:"brand"`
	Presentation        *string   `json:"presentation,omitempty"`
	Size                string    `json:"size"`
	Category            *string   `json:"category,omitempty"`
	NormalizedSizeValue *float64  `json:"normalized_size_value,omitempty"`
	NormalizedSizeUnit  *string   `json:"normalized_size_unit,omitempty"`
	Barcode             *string   `json:"barcode,omitempty"`
	Description         *string   `json:"description,omitempty"`
	ImageFront          *string   `json:"image_front,omitempty"`
	ImageLeft           *string   `json:"image_left,omitempty"`
	ImageRight          *string   `json:"image_right,omitempty"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ProductAttributes is the attribute set extracted from product photos.
// Extraction is unreliable, so every field is optional. The reconciler
// accepts these without caring which extraction strategy produced them.
type ProductAttributes struct {
	Name              *string    `json:"name"`
	Brand             *string    `json:"brand"`
	Presentation      *string    `json:"presentation"`
	Size              *string    `json:"size"`
	Barcode           *string    `json:"barcode"`
	Category          *string    `json:"category"`
	BatchNumber       *string    `json:"batch"`
	ExpiryDate        *time.Time `json:"expiry_date"`
	ManufacturingDate *time.Time `json:"manufacturing_date"`
	Price             *float64   `json:"price"`
}

// IsEmpty reports whether extraction produced nothing usable at all.
func (a ProductAttributes) IsEmpty() bool {
	return a.Name == nil && a.Brand == nil && a.Size == nil &&
		a.Barcode == nil && a.BatchNumber == nil && a.Price == nil
}

// Default values persisted when extraction could not determine a field.
// Name has no default: a record without a name is rejected.
const (
	DefaultBrand = "Sin Marca"
	DefaultSize  = "N/A"
)

// SaveProductRequest is the manual save payload (user-confirmed fields).
type SaveProductRequest struct {
	Name              string     `json:"name"`
	Brand             string     `json:"brand"`
	Presentation      *string    `json:"presentation,omitempty"`
	Size              string     `json:"size"`
	Category          *string    `json:"category,omitempty"`
	Barcode           *string    `json:"barcode,omitempty"`
	Description       *string    `json:"description,omitempty"`
	BatchNumber       *string    `json:"batch_number,omitempty"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	ManufacturingDate *time.Time `json:"manufacturing_date,omitempty"`
	Price             *float64   `json:"price,omitempty"`
}

// ProductListParams contains parameters for listing catalog products.
type ProductListParams struct {
	Limit  int
	Offset int
}
