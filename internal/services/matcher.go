package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/shelfscan/shelfscan/internal/models"
)

// Matching thresholds. The scorer works on fuzzywuzzy's 0-100 scale; the
// final duplicate decision works on the 0-1 scale reported to callers.
const (
	// MinBarcodeLength is the shortest barcode trusted for an exact
	// lookup. EAN-8 is the shortest real symbology; anything shorter is
	// OCR noise.
	MinBarcodeLength = 8

	// NameSimilarityFloor discards a candidate outright when its name
	// ratio falls below it. Comparing brand and size for a clearly
	// different name is wasted work.
	NameSimilarityFloor = 60

	// BaseSimilarityThreshold is the weighted name/brand cutoff (0-100)
	// below which a candidate is not reported at all.
	BaseSimilarityThreshold = 75

	// SizeEqualityRatio treats two known sizes as equal when their ratio
	// reaches it, tolerating formatting noise like "500ml" vs "500 ml".
	SizeEqualityRatio = 95

	// DuplicateThreshold is BaseSimilarityThreshold expressed on the 0-1
	// scale used for the final duplicate decision. The two are the same
	// cutoff on purpose; keep them in sync.
	DuplicateThreshold = 0.75

	// RelatedSimilarity is the fixed score assigned to a related_product
	// match. It sits below DuplicateThreshold so a different presentation
	// of a known product line is never merged.
	RelatedSimilarity = 0.65

	// MaxBrandCandidates bounds the brand prefilter so one scan never
	// fuzzy-compares an unbounded slice of the catalog.
	MaxBrandCandidates = 50

	// MaxCandidatesReturned is how many scored candidates are reported.
	// The duplicate decision only consults the best one.
	MaxCandidatesReturned = 5

	nameWeight  = 0.6
	brandWeight = 0.4
)

// Matcher finds and scores catalog candidates for a scanned product.
type Matcher struct{}

// NewMatcher creates a new matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// FindCandidates retrieves and scores possible duplicates of attrs.
//
// A barcode of at least MinBarcodeLength short-circuits everything: the
// exact barcode hit is returned alone with similarity 1.0 and no fuzzy
// scoring. Otherwise candidates are prefiltered by brand substring and
// scored pairwise; anything failing the name gate or the base threshold is
// dropped, the rest is sorted by similarity and truncated.
func (m *Matcher) FindCandidates(ctx context.Context, tx CatalogTx, attrs models.ProductAttributes) ([]models.MatchCandidate, error) {
	if barcode := deref(attrs.Barcode); len(barcode) >= MinBarcodeLength {
		p, err := tx.ProductByBarcode(ctx, barcode)
		switch {
		case err == nil:
			log.Debug().Str("barcode", barcode).Int("product_id", p.ID).Msg("barcode match")
			return []models.MatchCandidate{barcodeCandidate(p)}, nil
		case !errors.Is(err, models.ErrProductNotFound):
			return nil, err
		}
	}

	name := deref(attrs.Name)
	brand := deref(attrs.Brand)
	if name == "" || brand == "" {
		// Fuzzy matching needs both; without them every catalog entry
		// would be an equally bad guess.
		return nil, nil
	}

	products, err := tx.ActiveProductsByBrand(ctx, brand, MaxBrandCandidates)
	if err != nil {
		return nil, err
	}

	var candidates []models.MatchCandidate
	for _, p := range products {
		if c, ok := m.score(attrs, p); ok {
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > MaxCandidatesReturned {
		candidates = candidates[:MaxCandidatesReturned]
	}

	log.Debug().Int("candidates", len(candidates)).Str("brand", brand).Msg("fuzzy match complete")
	return candidates, nil
}

// score compares one catalog product against the scanned attributes.
// The second return value is false when the candidate is discarded.
func (m *Matcher) score(attrs models.ProductAttributes, p *models.Product) (models.MatchCandidate, bool) {
	nameSim := float64(fuzzy.Ratio(normalizeText(deref(attrs.Name)), normalizeText(p.Name)))
	if nameSim < NameSimilarityFloor {
		return models.MatchCandidate{}, false
	}

	brandSim := float64(fuzzy.Ratio(normalizeText(deref(attrs.Brand)), normalizeText(p.Brand)))
	base := nameSim*nameWeight + brandSim*brandWeight
	if base < BaseSimilarityThreshold {
		return models.MatchCandidate{}, false
	}

	c := models.MatchCandidate{
		ProductID:       p.ID,
		Name:            p.Name,
		Brand:           p.Brand,
		Size:            p.Size,
		Barcode:         p.Barcode,
		NameSimilarity:  nameSim / 100,
		BrandSimilarity: brandSim / 100,
	}

	switch compareSizes(deref(attrs.Size), p.Size) {
	case sizeEqual:
		c.SizeMatch = true
		c.MatchType = models.MatchNameBrandSize
		c.Similarity = base / 100
		c.IsExactMatch = true
	case sizeUnknown:
		c.MatchType = models.MatchNameBrandNoSize
		c.Similarity = base / 100
	case sizeDifferent:
		// Same line, different presentation. Capped below the duplicate
		// threshold so it can never trigger a merge.
		c.MatchType = models.MatchRelatedProduct
		c.Similarity = RelatedSimilarity
	}

	return c, true
}

// BestMatch returns the top candidate and whether it identifies a true
// duplicate of the scanned product.
func BestMatch(candidates []models.MatchCandidate) (*models.MatchCandidate, bool) {
	if len(candidates) == 0 {
		return nil, false
	}
	best := candidates[0]
	return &best, best.Duplicate(DuplicateThreshold)
}

func barcodeCandidate(p *models.Product) models.MatchCandidate {
	return models.MatchCandidate{
		ProductID:       p.ID,
		Name:            p.Name,
		Brand:           p.Brand,
		Size:            p.Size,
		Barcode:         p.Barcode,
		NameSimilarity:  1,
		BrandSimilarity: 1,
		SizeMatch:       true,
		Similarity:      1,
		MatchType:       models.MatchBarcode,
		IsExactMatch:    true,
	}
}

type sizeComparison int

const (
	sizeUnknown sizeComparison = iota
	sizeEqual
	sizeDifferent
)

// compareSizes is deliberately not fuzzy beyond formatting noise: equal
// means byte-equal after normalization or a near-perfect ratio. A missing
// size on either side is unknown, which is distinct from different.
func compareSizes(a, b string) sizeComparison {
	na := squash(a)
	nb := squash(b)
	if na == "" || nb == "" {
		return sizeUnknown
	}
	if na == nb || fuzzy.Ratio(na, nb) >= SizeEqualityRatio {
		return sizeEqual
	}
	return sizeDifferent
}

// squash lowercases and removes all whitespace.
func squash(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

// normalizeText lowercases, trims and strips diacritics so that "Té" and
// "Te" compare equal. Catalog text is mostly Spanish.
func normalizeText(s string) string {
	return stripAccents(strings.ToLower(strings.TrimSpace(s)))
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
