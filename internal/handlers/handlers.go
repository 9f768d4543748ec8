package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/shelfscan/shelfscan/internal/config"
	"github.com/shelfscan/shelfscan/internal/database"
	"github.com/shelfscan/shelfscan/internal/services"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// Handler holds all handler dependencies
type Handler struct {
	db         *database.DB
	cfg        *config.Config
	storage    *services.StorageService // nil when no S3 backend is configured
	ocr        *services.OCRService
	chain      *services.ExtractionChain
	reconciler *services.Reconciler
	report     *services.ReportService

	adminHash []byte
}

// New creates a new Handler instance
func New(
	db *database.DB,
	cfg *config.Config,
	storage *services.StorageService,
	ocr *services.OCRService,
	chain *services.ExtractionChain,
	reconciler *services.Reconciler,
	report *services.ReportService,
) *Handler {
	return &Handler{
		db:         db,
		cfg:        cfg,
		storage:    storage,
		ocr:        ocr,
		chain:      chain,
		reconciler: reconciler,
		report:     report,
		adminHash:  hashAdminPassword(cfg.AdminPassword),
	}
}

// ErrorHandler is a custom error handler for Fiber
func ErrorHandler(c *fiber.Ctx, err error) error {
	// Default to 500
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}

// APIResponse is a standard API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta contains pagination metadata
type Meta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// Success returns a successful response
func Success(c *fiber.Ctx, data interface{}) error {
	return c.JSON(APIResponse{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMeta returns a successful response with pagination
func SuccessWithMeta(c *fiber.Ctx, data interface{}, limit, offset, count int) error {
	return c.JSON(APIResponse{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Limit:  limit,
			Offset: offset,
			Count:  count,
		},
	})
}

// Error returns an error response
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Error:   message,
	})
}
