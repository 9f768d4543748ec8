package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/shelfscan/shelfscan/internal/models"
)

// ReportService renders inventory reports as XLSX workbooks.
type ReportService struct{}

// NewReportService creates a new report service.
func NewReportService() *ReportService {
	return &ReportService{}
}

var reportHeader = []string{
	"ID", "Producto", "Marca", "Tamaño", "Código de barras",
	"Lote", "Vencimiento", "Precio", "Stock",
}

// BuildStockReport renders one row per (product, batch) pair.
func (s *ReportService) BuildStockReport(rows []models.InventoryRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Inventario"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}

	for col, title := range reportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, err
		}
	}

	for i, row := range rows {
		values := []interface{}{
			row.ProductID,
			row.Name,
			row.Brand,
			row.Size,
			derefOr(row.Barcode, ""),
			row.BatchNumber,
			formatDate(row.ExpiryDate),
			priceOrEmpty(row.Price),
			row.StockQuantity,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf, nil
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func priceOrEmpty(p *float64) interface{} {
	if p == nil {
		return ""
	}
	return *p
}
