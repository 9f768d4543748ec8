package models

// MatchType classifies how a catalog candidate relates to a scanned product.
type MatchType string

const (
	// MatchBarcode is an exact barcode hit; always a duplicate.
	MatchBarcode MatchType = "barcode"
	// MatchNameBrandSize means name/brand are similar and sizes agree.
	MatchNameBrandSize MatchType = "name_brand_size"
	// MatchNameBrandNoSize means name/brand are similar but at least one
	// side has no size recorded, so sizes cannot be compared.
	MatchNameBrandNoSize MatchType = "name_brand_no_size"
	// MatchRelatedProduct means name/brand are similar but both sizes are
	// known and differ: a different presentation of the same product line,
	// never a duplicate.
	MatchRelatedProduct MatchType = "related_product"
)

// MatchCandidate is a scored catalog product considered as a possible
// duplicate of the scanned item.
type MatchCandidate struct {
	ProductID       int       `json:"id"`
	Name            string    `json:"name"`
	Brand           string    `json:"brand"`
	Size            string    `json:"size"`
	Barcode         *string   `json:"barcode,omitempty"`
	NameSimilarity  float64   `json:"name_similarity"`
	BrandSimilarity float64   `json:"brand_similarity"`
	SizeMatch       bool      `json:"size_match"`
	Similarity      float64   `json:"similarity"`
	MatchType       MatchType `json:"match_type"`
	IsExactMatch    bool      `json:"is_exact_match"`
}

// Duplicate reports whether this candidate identifies the same physical
// product. related_product is deliberately excluded: merging different
// sizes would corrupt stock and pricing.
func (c MatchCandidate) Duplicate(threshold float64) bool {
	if c.Similarity < threshold {
		return false
	}
	switch c.MatchType {
	case MatchBarcode, MatchNameBrandSize, MatchNameBrandNoSize:
		return true
	}
	return false
}
