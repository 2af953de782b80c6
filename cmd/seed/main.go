package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet columns, header row first.
const (
	colCategory = iota
	colName
	colDescription
	colPrice
	colOriginalPrice
	colStock
	colSize
	colImageURL
	minColumns = colStock + 1
)

const batchSize = 500

// catalogRow is one product line read from the sheet.
type catalogRow struct {
	Category string
	Product  model.Product
}

func main() {
	yes := flag.Bool("yes", false, "import without confirmation")
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal("Usage: go run ./cmd/seed [-yes] <catalog.xlsx>")
	}
	filePath := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(db.GetDB()); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	productRepo := repository.NewProductRepository(db.GetDB())

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	rows, skipped, err := readCatalogFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}
	fmt.Printf("Products to import: %d (skipped rows: %d)\n", len(rows), skipped)

	if !*yes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	ctx := context.Background()
	products, err := resolveCategories(ctx, productRepo, rows)
	if err != nil {
		log.Fatal("Failed to prepare categories:", err)
	}

	if err := productRepo.BulkCreate(ctx, products, batchSize); err != nil {
		log.Fatal("Failed to import products:", err)
	}
	fmt.Printf("Import completed successfully! Products imported: %d\n", len(products))
}

func readCatalogFromXLSX(filePath string) ([]catalogRow, int, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, 0, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("no data found in XLSX file")
	}

	out, skipped := parseCatalogRows(rows[1:])
	return out, skipped, nil
}

// parseCatalogRows converts data rows; incomplete or malformed rows are
// skipped and counted. Product slugs are made unique within the sheet.
func parseCatalogRows(rows [][]string) ([]catalogRow, int) {
	var out []catalogRow
	skipped := 0
	slugCounter := make(map[string]int)

	for _, row := range rows {
		if len(row) < minColumns {
			skipped++
			continue
		}

		name := strings.TrimSpace(row[colName])
		price, err := decimal.NewFromString(strings.TrimSpace(row[colPrice]))
		if name == "" || err != nil || price.IsNegative() {
			skipped++
			continue
		}
		stock, err := strconv.Atoi(strings.TrimSpace(row[colStock]))
		if err != nil || stock < 0 {
			skipped++
			continue
		}

		product := model.Product{
			Name:        name,
			Description: strings.TrimSpace(row[colDescription]),
			Price:       price,
			Stock:       stock,
		}
		if v := strings.TrimSpace(row[colOriginalPrice]); v != "" {
			if original, err := decimal.NewFromString(v); err == nil {
				product.OriginalPrice = &original
			}
		}
		if len(row) > colSize {
			if size := strings.TrimSpace(row[colSize]); size != "" {
				product.Size = &size
			}
		}
		if len(row) > colImageURL {
			product.ImageURL = strings.TrimSpace(row[colImageURL])
		}

		base := slug.Make(name)
		product.Slug = base
		if n, seen := slugCounter[base]; seen {
			slugCounter[base] = n + 1
			product.Slug = fmt.Sprintf("%s-%d", base, n+1)
		} else {
			slugCounter[base] = 1
		}

		out = append(out, catalogRow{
			Category: strings.TrimSpace(row[colCategory]),
			Product:  product,
		})
	}
	return out, skipped
}

// resolveCategories creates missing categories and links each product.
func resolveCategories(ctx context.Context, repo repository.ProductRepository, rows []catalogRow) ([]model.Product, error) {
	ids := make(map[string]uint)
	products := make([]model.Product, 0, len(rows))

	for _, row := range rows {
		product := row.Product
		if row.Category != "" {
			key := slug.Make(row.Category)
			id, ok := ids[key]
			if !ok {
				category, err := repo.FindCategoryBySlug(ctx, key)
				if err != nil {
					category = &model.Category{Name: row.Category, Slug: key}
					if err := repo.CreateCategory(ctx, category); err != nil {
						return nil, err
					}
				}
				id = category.ID
				ids[key] = id
			}
			product.CategoryID = &id
		}
		products = append(products, product)
	}
	return products, nil
}
