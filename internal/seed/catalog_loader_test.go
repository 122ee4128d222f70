package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stockroom/m/internal/catalog"
	"stockroom/m/internal/testdb"
)

func TestLoadCatalogSeedsEmptyDatabaseOnce(t *testing.T) {
	ctx := context.Background()
	db, _ := testdb.New(t)
	products := catalog.NewProducts(db, catalog.NewBrands(db), catalog.NewCategories(db), catalog.NewSuppliers(db))

	path := filepath.Join(t.TempDir(), "catalog.csv")
	csv := "Name,SKU,Price,Quantity,Brand,Category\n" +
		"Widget,W-1,2.50,10,Acme,Tools\n" +
		"Bolt,B-1,0.10,500,Acme,Hardware\n" +
		",X-1,1,1,,\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	res, err := LoadCatalog(ctx, db, products, path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, int64(1), testdb.Count(t, db, "brands"))
	assert.Equal(t, int64(2), testdb.Count(t, db, "categories"))

	res, err = LoadCatalog(ctx, db, products, path, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, int64(2), testdb.Count(t, db, "products"))
}

func TestLoadCatalogWithoutPathIsNoop(t *testing.T) {
	db, _ := testdb.New(t)
	products := catalog.NewProducts(db, catalog.NewBrands(db), catalog.NewCategories(db), catalog.NewSuppliers(db))

	res, err := LoadCatalog(context.Background(), db, products, "", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, catalog.ImportResult{}, res)

	_, err = LoadCatalog(context.Background(), db, products, "missing.csv", zap.NewNop())
	assert.Error(t, err)
}
