package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// StockReport handles GET /api/reports/stock. Returns the full inventory as
// an XLSX download, one row per (product, batch) pair.
func (h *Handler) StockReport(c *fiber.Ctx) error {
	rows, err := h.db.ListInventory(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to load inventory")
		return Error(c, fiber.StatusInternalServerError, "failed to load inventory")
	}

	buf, err := h.report.BuildStockReport(rows)
	if err != nil {
		log.Error().Err(err).Msg("failed to build stock report")
		return Error(c, fiber.StatusInternalServerError, "failed to build report")
	}

	filename := "inventario-" + timeNow().Format("2006-01-02") + ".xlsx"
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}

// Health handles GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	if err := h.db.Pool.Ping(c.Context()); err != nil {
		return Error(c, fiber.StatusServiceUnavailable, "database unreachable")
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
