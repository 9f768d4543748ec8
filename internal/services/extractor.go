package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shelfscan/shelfscan/internal/models"
)

// Extractor turns raw OCR text into structured product attributes.
// Implementations are unreliable by nature; the chain below decides what to
// do when one fails.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, ocr *OCROutput) (models.ProductAttributes, error)
}

// ExtractionChain tries extractors in order and settles for the first one
// that yields something usable. It never fails: the worst case is an
// all-empty attribute set, which downstream surfaces as missing fields
// rather than an error. The reconciler never learns which strategy won.
type ExtractionChain struct {
	strategies []Extractor
}

// NewExtractionChain creates a chain over the given strategies.
func NewExtractionChain(strategies ...Extractor) *ExtractionChain {
	return &ExtractionChain{strategies: strategies}
}

// Extract runs the chain.
func (c *ExtractionChain) Extract(ctx context.Context, ocr *OCROutput) models.ProductAttributes {
	for i, s := range c.strategies {
		attrs, err := s.Extract(ctx, ocr)
		if err != nil {
			log.Warn().Err(err).Str("strategy", s.Name()).Msg("extraction strategy failed, falling back")
			continue
		}
		last := i == len(c.strategies)-1
		if attrs.IsEmpty() && !last {
			log.Debug().Str("strategy", s.Name()).Msg("extraction strategy found nothing, falling back")
			continue
		}
		log.Info().Str("strategy", s.Name()).Msg("extraction complete")
		return attrs
	}
	return models.ProductAttributes{}
}

// extractedFields is the wire shape shared by the LLM response and the
// heuristic extractor before conversion into ProductAttributes.
type extractedFields struct {
	Name         string   `json:"name"`
	Brand        string   `json:"brand"`
	Presentation string   `json:"presentation"`
	Size         string   `json:"size"`
	Category     string   `json:"category"`
	Barcode      string   `json:"barcode"`
	Batch        string   `json:"batch"`
	ExpiryDate   string   `json:"expiry_date"`
	Price        *float64 `json:"price"`
}

func (f extractedFields) toAttributes() models.ProductAttributes {
	return models.ProductAttributes{
		Name:         optional(f.Name),
		Brand:        optional(f.Brand),
		Presentation: optional(f.Presentation),
		Size:         optional(f.Size),
		Category:     optional(f.Category),
		Barcode:      optional(f.Barcode),
		BatchNumber:  optional(f.Batch),
		ExpiryDate:   parseDate(f.ExpiryDate),
		Price:        f.Price,
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// OllamaExtractor asks a local Ollama instance to structure the OCR text.
type OllamaExtractor struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaExtractor creates an extractor against an Ollama server.
func NewOllamaExtractor(baseURL, model string, timeout time.Duration) *OllamaExtractor {
	return &OllamaExtractor{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (e *OllamaExtractor) Name() string { return "ollama" }

const ollamaPrompt = `Extrae la informacion de este producto a partir del texto OCR de sus fotos:

%s

Responde SOLO con JSON usando estas claves (usa "" si un dato no aparece):
{"name": "", "brand": "", "presentation": "", "size": "", "category": "", "barcode": "", "batch": "", "expiry_date": "YYYY-MM-DD", "price": 0}`

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// Extract sends the combined OCR text to the model and parses its JSON
// answer. Timeouts and quota errors surface as plain errors so the chain
// can degrade to the heuristic extractor.
func (e *OllamaExtractor) Extract(ctx context.Context, ocr *OCROutput) (models.ProductAttributes, error) {
	combined := combineText(ocr)
	if strings.TrimSpace(combined) == "" {
		return models.ProductAttributes{}, nil
	}

	body, err := json.Marshal(ollamaRequest{
		Model:  e.model,
		Prompt: fmt.Sprintf(ollamaPrompt, combined),
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return models.ProductAttributes{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return models.ProductAttributes{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return models.ProductAttributes{}, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ProductAttributes{}, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.ProductAttributes{}, err
	}

	var wrapper ollamaResponse
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return models.ProductAttributes{}, fmt.Errorf("decoding ollama envelope: %w", err)
	}

	var fields extractedFields
	if err := json.Unmarshal([]byte(wrapper.Response), &fields); err != nil {
		return models.ProductAttributes{}, fmt.Errorf("decoding model answer: %w", err)
	}

	return fields.toAttributes(), nil
}

// HeuristicExtractor is the degraded path when no AI backend is reachable:
// fixed regex patterns over the combined OCR text.
type HeuristicExtractor struct {
	sizePattern    *regexp.Regexp
	barcodePattern *regexp.Regexp
	batchPattern   *regexp.Regexp
	expiryPattern  *regexp.Regexp
	pricePattern   *regexp.Regexp
	brandKeywords  []string
}

// NewHeuristicExtractor creates the regex-based extractor.
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{
		sizePattern:    regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(G|ML|L|KG|OZ|LB)\b`),
		barcodePattern: regexp.MustCompile(`\b\d{13}\b|\b\d{12}\b|\b\d{8}\b`),
		batchPattern:   regexp.MustCompile(`LOTE?\s*[:.]?\s*([A-Z0-9-]+)`),
		expiryPattern:  regexp.MustCompile(`VENC\.?\s*[:.]?\s*(\d{2}[/-]\d{2}[/-]\d{4})`),
		pricePattern:   regexp.MustCompile(`S/\.?\s*(\d+(?:\.\d{2})?)`),
		brandKeywords: []string{
			"GLORIA", "NESTLE", "COCA COLA", "PEPSI", "LAIVE", "DONOFRIO",
			"ALICORP", "FIELD", "COSTA", "SAN JORGE",
		},
	}
}

func (e *HeuristicExtractor) Name() string { return "heuristic" }

// Extract applies the fixed patterns. It never fails; text that matches
// nothing produces an empty attribute set.
func (e *HeuristicExtractor) Extract(_ context.Context, ocr *OCROutput) (models.ProductAttributes, error) {
	allText := strings.ToUpper(combineText(ocr))

	var fields extractedFields

	// First significant line doubles as the product name.
	for _, line := range strings.Split(allText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 100 {
			line = line[:100]
		}
		fields.Name = line
		break
	}

	for _, keyword := range e.brandKeywords {
		if strings.Contains(allText, keyword) {
			fields.Brand = keyword
			break
		}
	}

	if m := e.sizePattern.FindStringSubmatch(allText); m != nil {
		fields.Size = m[1] + " " + strings.ToLower(m[2])
	}
	if m := e.barcodePattern.FindString(allText); m != "" {
		fields.Barcode = m
	}
	if m := e.batchPattern.FindStringSubmatch(allText); m != nil {
		fields.Batch = m[1]
	}
	if m := e.expiryPattern.FindStringSubmatch(allText); m != nil {
		fields.ExpiryDate = m[1]
	}
	if m := e.pricePattern.FindStringSubmatch(allText); m != nil {
		if price, err := strconv.ParseFloat(m[1], 64); err == nil {
			fields.Price = &price
		}
	}

	return fields.toAttributes(), nil
}

func combineText(ocr *OCROutput) string {
	var parts []string
	for _, t := range imageOrder {
		if img, ok := ocr.Images[t]; ok && img.Text != "" {
			parts = append(parts, img.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var datePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`), "02/01/2006"},
	{regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`), "02-01-2006"},
	{regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`), "2006/01/02"},
	{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), "2006-01-02"},
}

// parseDate normalizes the date formats seen on packaging. Day-first for
// two-digit-year-last forms, ISO otherwise. Unparseable input is dropped,
// not an error.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, p := range datePatterns {
		if !p.re.MatchString(s) {
			continue
		}
		if d, err := time.Parse(p.layout, s); err == nil {
			return &d
		}
	}
	return nil
}
