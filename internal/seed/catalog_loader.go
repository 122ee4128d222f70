package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"stockroom/m/internal/catalog"
	"stockroom/m/internal/tabular"
)

// LoadCatalog imports the product file at path into an empty products table.
// Brands, categories and suppliers named in the file are created along the
// way. A database that already holds products is left alone.
func LoadCatalog(ctx context.Context, db *sqlx.DB, products *catalog.ProductStore, path string, log *zap.Logger) (catalog.ImportResult, error) {
	var result catalog.ImportResult
	if path == "" {
		return result, nil
	}

	var existing int64
	if err := db.GetContext(ctx, &existing, `SELECT COUNT(*) FROM products`); err != nil {
		return result, fmt.Errorf("count products: %w", err)
	}
	if existing > 0 {
		log.Debug("catalog seed skipped, products present", zap.Int64("products", existing))
		return result, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return result, fmt.Errorf("unable to load catalog %s: %w", path, err)
	}
	defer file.Close()

	rows, err := tabular.Read(file, tabular.FormatFromFilename(path))
	if err != nil {
		return result, fmt.Errorf("unable to read catalog %s: %w", path, err)
	}

	result, err = products.Import(ctx, rows)
	if err != nil {
		return result, fmt.Errorf("unable to seed catalog: %w", err)
	}
	log.Info("seeded product catalog",
		zap.String("path", path), zap.Int("created", result.Created), zap.Int("errors", result.Errors))
	return result, nil
}
