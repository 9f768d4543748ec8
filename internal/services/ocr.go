package services

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// OCRService runs Tesseract over product photos.
type OCRService struct {
	language string
	workers  int
}

// ImageText is the OCR output for a single photo.
type ImageText struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// OCROutput aggregates OCR over the photos of one submission.
type OCROutput struct {
	Images            map[string]ImageText `json:"images"`
	OverallConfidence float64              `json:"overall_confidence"`
	Engine            string               `json:"engine"`
}

// NewOCRService creates a new OCR service. workers bounds how many photos
// are processed concurrently.
func NewOCRService(language string, workers int) *OCRService {
	if workers < 1 {
		workers = 1
	}
	return &OCRService{language: language, workers: workers}
}

// Engine identifies the OCR engine for the audit log.
func (s *OCRService) Engine() string {
	return "tesseract"
}

// ExtractFromImages runs OCR over every photo concurrently. Photos are
// independent, so they go through a bounded worker pool. Overall confidence
// is the mean over photos that produced text; a blank or unreadable side
// photo is excluded from the mean rather than counted as zero.
func (s *OCRService) ExtractFromImages(ctx context.Context, images map[string][]byte) (*OCROutput, error) {
	out := &OCROutput{
		Images: make(map[string]ImageText, len(images)),
		Engine: s.Engine(),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for imageType, data := range images {
		imageType, data := imageType, data
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := s.extractSingle(data)
			if err != nil {
				// One unreadable photo does not fail the submission.
				log.Warn().Err(err).Str("image", imageType).Msg("OCR failed for photo")
				result = ImageText{}
			}
			mu.Lock()
			out.Images[imageType] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var readable int
	out.OverallConfidence, readable = overallConfidence(out.Images)

	log.Info().Int("images", len(images)).Int("readable", readable).Float64("confidence", out.OverallConfidence).Msg("OCR complete")
	return out, nil
}

// overallConfidence averages per-image confidence over the photos that
// produced text, and reports how many did. A blank or unreadable photo is
// excluded from the mean rather than counted as zero.
func overallConfidence(images map[string]ImageText) (float64, int) {
	var sum float64
	var readable int
	for _, r := range images {
		if r.Text == "" {
			continue
		}
		sum += r.Confidence
		readable++
	}
	if readable == 0 {
		return 0, 0
	}
	return sum / float64(readable), readable
}

// extractSingle runs Tesseract over one photo. A fresh client per call:
// gosseract clients are not safe for concurrent use.
func (s *OCRService) extractSingle(imageBytes []byte) (ImageText, error) {
	tmpFile, err := os.CreateTemp("", "product-*.jpg")
	if err != nil {
		return ImageText{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(imageBytes); err != nil {
		tmpFile.Close()
		return ImageText{}, fmt.Errorf("failed to write temp file: %w", err)
	}
	tmpFile.Close()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(s.language); err != nil {
		return ImageText{}, fmt.Errorf("failed to set OCR language: %w", err)
	}
	// Product labels are sparse text, not uniform blocks.
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return ImageText{}, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImage(tmpFile.Name()); err != nil {
		return ImageText{}, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return ImageText{}, fmt.Errorf("failed to extract text: %w", err)
	}

	return ImageText{
		Text:       text,
		Confidence: wordConfidence(client),
	}, nil
}

// wordConfidence averages Tesseract's per-word confidences into [0,1].
func wordConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes)) / 100
}
