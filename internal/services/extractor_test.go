package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscan/shelfscan/internal/models"
)

func ocrOutput(frontText string) *OCROutput {
	return &OCROutput{
		Images: map[string]ImageText{
			"front": {Text: frontText, Confidence: 0.9},
		},
		OverallConfidence: 0.9,
		Engine:            "tesseract",
	}
}

func TestHeuristicExtractor(t *testing.T) {
	e := NewHeuristicExtractor()

	text := `Leche Evaporada Entera
GLORIA
400 g
LOTE: L2026-0012
VENC. 31/12/2026
S/ 4.50
7751271001045`

	attrs, err := e.Extract(context.Background(), ocrOutput(text))
	require.NoError(t, err)

	require.NotNil(t, attrs.Name)
	assert.Equal(t, "LECHE EVAPORADA ENTERA", *attrs.Name)
	require.NotNil(t, attrs.Brand)
	assert.Equal(t, "GLORIA", *attrs.Brand)
	require.NotNil(t, attrs.Size)
	assert.Equal(t, "400 g", *attrs.Size)
	require.NotNil(t, attrs.Barcode)
	assert.Equal(t, "7751271001045", *attrs.Barcode)
	require.NotNil(t, attrs.BatchNumber)
	assert.Equal(t, "L2026-0012", *attrs.BatchNumber)
	require.NotNil(t, attrs.ExpiryDate)
	assert.Equal(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), *attrs.ExpiryDate)
	require.NotNil(t, attrs.Price)
	assert.Equal(t, 4.50, *attrs.Price)
}

func TestHeuristicExtractorEmptyText(t *testing.T) {
	e := NewHeuristicExtractor()

	attrs, err := e.Extract(context.Background(), ocrOutput(""))
	require.NoError(t, err)
	assert.True(t, attrs.IsEmpty())
}

func TestHeuristicExtractorBarcodeLengths(t *testing.T) {
	e := NewHeuristicExtractor()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"ean13", "producto 7751271001045", "7751271001045"},
		{"upc12", "producto 775127100104", "775127100104"},
		{"ean8", "producto 77512710", "77512710"},
		{"too short ignored", "producto 1234567", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs, err := e.Extract(context.Background(), ocrOutput(tt.text))
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, attrs.Barcode)
			} else {
				require.NotNil(t, attrs.Barcode)
				assert.Equal(t, tt.want, *attrs.Barcode)
			}
		})
	}
}

func TestOllamaExtractor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response": "{\"name\": \"Leche Evaporada\", \"brand\": \"Gloria\", \"size\": \"400 g\", \"barcode\": \"7751271001045\", \"expiry_date\": \"2026-12-31\", \"price\": 4.5}"}`))
	}))
	defer server.Close()

	e := NewOllamaExtractor(server.URL, "llama3.2", 5*time.Second)

	attrs, err := e.Extract(context.Background(), ocrOutput("LECHE GLORIA 400 G"))
	require.NoError(t, err)

	require.NotNil(t, attrs.Name)
	assert.Equal(t, "Leche Evaporada", *attrs.Name)
	require.NotNil(t, attrs.Brand)
	assert.Equal(t, "Gloria", *attrs.Brand)
	require.NotNil(t, attrs.ExpiryDate)
	assert.Equal(t, 2026, attrs.ExpiryDate.Year())
	require.NotNil(t, attrs.Price)
	assert.Equal(t, 4.5, *attrs.Price)
}

func TestOllamaExtractorServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	e := NewOllamaExtractor(server.URL, "llama3.2", 5*time.Second)

	_, err := e.Extract(context.Background(), ocrOutput("LECHE GLORIA"))
	assert.Error(t, err)
}

func TestOllamaExtractorSkipsBlankText(t *testing.T) {
	// No server at all: with nothing to extract from, Ollama is not called.
	e := NewOllamaExtractor("http://127.0.0.1:1", "llama3.2", time.Second)

	attrs, err := e.Extract(context.Background(), ocrOutput(""))
	require.NoError(t, err)
	assert.True(t, attrs.IsEmpty())
}

// failingExtractor always errors, standing in for an unreachable backend.
type failingExtractor struct{}

func (failingExtractor) Name() string { return "failing" }
func (failingExtractor) Extract(context.Context, *OCROutput) (models.ProductAttributes, error) {
	return models.ProductAttributes{}, errors.New("backend unreachable")
}

// emptyExtractor succeeds but finds nothing.
type emptyExtractor struct{}

func (emptyExtractor) Name() string { return "empty" }
func (emptyExtractor) Extract(context.Context, *OCROutput) (models.ProductAttributes, error) {
	return models.ProductAttributes{}, nil
}

func TestExtractionChainFallsBackOnError(t *testing.T) {
	chain := NewExtractionChain(failingExtractor{}, NewHeuristicExtractor())

	attrs := chain.Extract(context.Background(), ocrOutput("GALLETAS FIELD 140 G"))
	require.NotNil(t, attrs.Name)
	assert.Equal(t, "GALLETAS FIELD 140 G", *attrs.Name)
	assert.Equal(t, "FIELD", *attrs.Brand)
}

func TestExtractionChainFallsBackOnEmptyResult(t *testing.T) {
	chain := NewExtractionChain(emptyExtractor{}, NewHeuristicExtractor())

	attrs := chain.Extract(context.Background(), ocrOutput("GALLETAS FIELD 140 G"))
	require.NotNil(t, attrs.Name)
}

func TestExtractionChainNeverFails(t *testing.T) {
	chain := NewExtractionChain(failingExtractor{}, failingExtractor{})

	attrs := chain.Extract(context.Background(), ocrOutput("anything"))
	assert.True(t, attrs.IsEmpty())
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  *time.Time
	}{
		{"31/12/2026", timePtr(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC))},
		{"31-12-2026", timePtr(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC))},
		{"2026-12-31", timePtr(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC))},
		{"2026/12/31", timePtr(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC))},
		{"", nil},
		{"pronto", nil},
		{"99/99/2026", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseDate(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.True(t, tt.want.Equal(*got))
			}
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }
