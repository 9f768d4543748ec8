package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/shelfscan/shelfscan/internal/config"
	"github.com/shelfscan/shelfscan/internal/database"
	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/services"
)

// seedProduct is one catalog entry with its initial lot.
type seedProduct struct {
	name         string
	brand        string
	presentation string
	size         string
	category     string
	barcode      string
	batchNumber  string
	price        float64
	stock        int
	expiryDays   int // days from now; 0 means no expiry on the label
}

// Common products of a Peruvian corner store.
var seedProducts = []seedProduct{
	{"Leche Evaporada Entera", "GLORIA", "Lata", "400 g", "Lacteos", "7751271001045", "L2024-0312", 4.50, 24, 180},
	{"Leche Evaporada Light", "GLORIA", "Lata", "400 g", "Lacteos", "7751271001052", "L2024-0312", 4.80, 12, 180},
	{"Yogurt Bebible Fresa", "GLORIA", "Botella", "1 l", "Lacteos", "7751271023450", "Y2024-0415", 7.90, 8, 30},
	{"Leche Fresca Entera", "LAIVE", "Caja", "1 l", "Lacteos", "7750094001234", "LF-0420", 5.60, 10, 21},
	{"Agua Mineral Sin Gas", "SAN LUIS", "Botella", "625 ml", "Bebidas", "7750182000451", "A-2024-18", 1.50, 48, 365},
	{"Gaseosa", "INCA KOLA", "Botella", "1.5 l", "Bebidas", "7750182005234", "IK-0501", 6.50, 20, 240},
	{"Galletas de Soda", "FIELD", "Paquete", "140 g", "Galletas", "7751580001286", "GS-2024-22", 2.20, 36, 150},
	{"Galletas de Chocolate", "COSTA", "Paquete", "200 g", "Galletas", "7802215001239", "CH-0390", 3.80, 18, 150},
	{"Fideos Spaghetti", "DON VITTORIO", "Bolsa", "500 g", "Abarrotes", "7750243001562", "FS-112", 3.20, 30, 540},
	{"Arroz Extra", "COSTEÑO", "Bolsa", "5 kg", "Abarrotes", "7753184000123", "AR-2024-07", 24.90, 15, 365},
	{"Aceite Vegetal", "PRIMOR", "Botella", "1 l", "Abarrotes", "7751271800012", "AC-0233", 9.90, 12, 540},
	{"Atun en Trozos", "FLORIDA", "Lata", "170 g", "Conservas", "7750949000214", "AT-0824", 5.50, 40, 720},
	{"Chocolate para Taza", "SOL DEL CUSCO", "Tableta", "90 g", "Golosinas", "7750885000367", "CT-044", 4.20, 25, 365},
	{"Panetón", "DONOFRIO", "Caja", "900 g", "Panaderia", "7751271900033", "PN-2024-01", 29.90, 6, 120},
	{"Detergente en Polvo", "BOLIVAR", "Bolsa", "780 g", "Limpieza", "7751851000429", "DT-0515", 8.90, 14, 0},
}

func main() {
	dryRun := flag.Bool("dry-run", false, "Preview changes without writing to database")
	flag.Parse()

	// Load .env
	godotenv.Load()

	// Load config
	cfg := config.Load()

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if *dryRun {
		log.Println("DRY RUN - No changes will be made")
		for _, p := range seedProducts {
			fmt.Printf("  %s (%s) %s - barcode %s, lot %s, stock %d\n",
				p.name, p.brand, p.size, p.barcode, p.batchNumber, p.stock)
		}
		return
	}

	created, skipped, err := seed(db)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeding complete: %d products created, %d already present", created, skipped)
}

// seed inserts the sample catalog, skipping barcodes already present so the
// seeder can be re-run safely.
func seed(db *database.DB) (created, skipped int, err error) {
	ctx := context.Background()
	now := time.Now()

	for _, p := range seedProducts {
		exists, err := db.ProductExistsByBarcode(ctx, p.barcode)
		if err != nil {
			return created, skipped, err
		}
		if exists {
			skipped++
			continue
		}

		p := p
		err = db.InTx(ctx, func(tx services.CatalogTx) error {
			normValue, normUnit := services.NormalizeSize(p.size)
			product := &models.Product{
				Name:                p.name,
				Brand:               p.brand,
				Presentation:        &p.presentation,
				Size:                p.size,
				Category:            &p.category,
				NormalizedSizeValue: normValue,
				NormalizedSizeUnit:  normUnit,
				Barcode:             &p.barcode,
				IsActive:            true,
			}
			if err := tx.CreateProduct(ctx, product); err != nil {
				return fmt.Errorf("creating %s: %w", p.name, err)
			}

			batch := &models.Batch{
				ProductID:     product.ID,
				BatchNumber:   p.batchNumber,
				Price:         &p.price,
				StockQuantity: p.stock,
			}
			if p.expiryDays > 0 {
				expiry := now.AddDate(0, 0, p.expiryDays)
				batch.ExpiryDate = &expiry
			}
			if err := tx.CreateBatch(ctx, batch); err != nil {
				return fmt.Errorf("creating batch for %s: %w", p.name, err)
			}
			return nil
		})
		if err != nil {
			return created, skipped, err
		}
		created++
	}

	return created, skipped, nil
}
