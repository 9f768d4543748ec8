package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCandidateDuplicate(t *testing.T) {
	tests := []struct {
		name      string
		candidate MatchCandidate
		want      bool
	}{
		{"barcode hit", MatchCandidate{Similarity: 1.0, MatchType: MatchBarcode}, true},
		{"strong name brand size", MatchCandidate{Similarity: 0.9, MatchType: MatchNameBrandSize}, true},
		{"at the threshold", MatchCandidate{Similarity: 0.75, MatchType: MatchNameBrandSize}, true},
		{"below the threshold", MatchCandidate{Similarity: 0.74, MatchType: MatchNameBrandSize}, false},
		{"no size information", MatchCandidate{Similarity: 0.8, MatchType: MatchNameBrandNoSize}, true},
		{"related is never a duplicate", MatchCandidate{Similarity: 0.99, MatchType: MatchRelatedProduct}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.candidate.Duplicate(0.75))
		})
	}
}

func TestAutoBatchNumber(t *testing.T) {
	lima := time.FixedZone("PET", -5*3600)
	now := time.Date(2026, 3, 15, 5, 30, 0, 0, lima)

	// Always rendered in UTC so two scanners in different zones agree.
	assert.Equal(t, "AUTO-20260315103000", AutoBatchNumber(now))
}

func TestProductAttributesIsEmpty(t *testing.T) {
	assert.True(t, ProductAttributes{}.IsEmpty())

	name := "Leche"
	assert.False(t, ProductAttributes{Name: &name}.IsEmpty())

	price := 4.5
	assert.False(t, ProductAttributes{Price: &price}.IsEmpty())

	// Fields that alone cannot anchor a record do not count.
	category := "Lacteos"
	assert.True(t, ProductAttributes{Category: &category}.IsEmpty())
}
