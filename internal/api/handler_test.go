package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"stockroom/m/domain"
	"stockroom/m/internal/config"
	"stockroom/m/internal/testdb"
)

func newTestHandler(t *testing.T, mutate func(*config.Config)) (http.Handler, *sqlx.DB) {
	t.Helper()
	db, path := testdb.New(t)
	cfg := config.Defaults()
	cfg.DatabasePath = path
	cfg.BackupDir = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}
	h := New(db, cfg, zap.NewNop())
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return h.Router(), db
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	router, _ := newTestHandler(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/ping", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBrandEndpoints(t *testing.T) {
	router, _ := newTestHandler(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/brands", map[string]string{"name": "Acme", "description": "tools"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), created["id"])
	assert.Equal(t, "Brand created successfully", created["message"])

	rec = doJSON(t, router, http.MethodPost, "/api/brands", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/brands", map[string]string{"title": "Acme"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")

	rec = doJSON(t, router, http.MethodGet, "/api/brands", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	brands := decode[[]domain.Brand](t, rec)
	require.Len(t, brands, 1)
	assert.Equal(t, "tools", brands[0].Description)

	rec = doJSON(t, router, http.MethodGet, "/api/brands/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/brands/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/brands/delete-all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, rec)["deleted"])
}

func TestOrderLifecycle(t *testing.T) {
	router, db := newTestHandler(t, nil)
	db.MustExec(`INSERT INTO products (name, price, discount, quantity) VALUES ('Widget', 10, 2, 5)`)

	rec := doJSON(t, router, http.MethodPost, "/api/orders", map[string]any{
		"customer_name": "Ann",
		"items":         []map[string]any{{"product_id": 1, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Order created successfully", decode[map[string]any](t, rec)["message"])

	rec = doJSON(t, router, http.MethodGet, "/api/orders/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode[domain.OrderDetail](t, rec)
	assert.Equal(t, 16.0, order.Total)
	require.Len(t, order.Items, 1)

	rec = doJSON(t, router, http.MethodGet, "/api/products/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), decode[domain.Product](t, rec).Quantity)

	rec = doJSON(t, router, http.MethodGet, "/api/orders/1/invoice/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "invoice-1.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = doJSON(t, router, http.MethodPost, "/api/orders/1/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/api/orders/1/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/products/1", nil)
	assert.Equal(t, int64(5), decode[domain.Product](t, rec).Quantity)

	rec = doJSON(t, router, http.MethodPost, "/api/orders", map[string]any{"items": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/orders", map[string]any{
		"items": []map[string]any{{"name": "Delivery", "quantity": 1, "unit_price": 3}},
	})
	assert.Equal(t, http.StatusCreated, rec.Code, "name is accepted for product_name")

	rec = doJSON(t, router, http.MethodPost, "/api/orders/42/refund", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNegativeStockGuardReturnsConflict(t *testing.T) {
	router, db := newTestHandler(t, func(c *config.Config) { c.AllowNegativeStock = false })
	db.MustExec(`INSERT INTO products (name, price, quantity) VALUES ('Widget', 10, 1)`)

	rec := doJSON(t, router, http.MethodPost, "/api/orders", map[string]any{
		"items": []map[string]any{{"product_id": 1, "quantity": 2}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, testdb.Count(t, db, "orders"))
}

func TestStockAdjustmentAndLowStock(t *testing.T) {
	router, db := newTestHandler(t, nil)
	db.MustExec(`INSERT INTO products (name, price, quantity, reorder_level) VALUES ('Widget', 1, 2, 5), ('Bolt', 1, 50, 5)`)

	rec := doJSON(t, router, http.MethodGet, "/api/products/low-stock", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	low := decode[[]domain.Product](t, rec)
	require.Len(t, low, 1)
	assert.Equal(t, "Widget", low[0].Name)

	rec = doJSON(t, router, http.MethodPost, "/api/products/1/stock", map[string]any{"quantity_change": 10, "notes": "delivery"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/products/1/stock", map[string]any{"quantity_change": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/products/1/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	txs := decode[[]map[string]any](t, rec)
	require.Len(t, txs, 1)
	assert.Equal(t, float64(10), txs[0]["quantity"])
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImportAndExportProducts(t *testing.T) {
	router, _ := newTestHandler(t, nil)

	body, contentType := multipartUpload(t, "file", "products.csv", []byte("name,sku,price,quantity,brand_name\nWidget,W-1,2.5,4,Acme\n,X,1,1,\n"))
	req := httptest.NewRequest(http.MethodPost, "/api/products/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), result["created"])
	assert.Equal(t, float64(1), result["errors"])
	assert.Equal(t, "Import completed", result["message"])

	rec = doJSON(t, router, http.MethodGet, "/api/products/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "products-20240501.csv")
	assert.Contains(t, rec.Body.String(), "Widget")
	assert.Contains(t, rec.Body.String(), "Acme")

	rec = doJSON(t, router, http.MethodGet, "/api/products/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/products/import", strings.NewReader(""))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBackupDownloadAndRestore(t *testing.T) {
	router, db := newTestHandler(t, nil)
	db.MustExec(`INSERT INTO brands (name) VALUES ('Acme')`)

	rec := doJSON(t, router, http.MethodGet, "/api/backup/download", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "inventory-backup-")
	snapshot := rec.Body.Bytes()
	require.True(t, bytes.HasPrefix(snapshot, []byte("SQLite format 3\x00")))

	db.MustExec(`INSERT INTO brands (name) VALUES ('Later')`)

	body, contentType := multipartUpload(t, "file", "backup.db", snapshot)
	req := httptest.NewRequest(http.MethodPost, "/api/backup/restore", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "import", decode[map[string]any](t, rec)["method"])
	assert.Equal(t, int64(1), testdb.Count(t, db, "brands"))

	req = httptest.NewRequest(http.MethodPost, "/api/backup/restore", strings.NewReader("not a database"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/backup/export-excel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
}

func TestReportsAndStats(t *testing.T) {
	router, db := newTestHandler(t, nil)
	db.MustExec(`INSERT INTO products (name, price, quantity) VALUES ('Widget', 2, 3)`)

	rec := doJSON(t, router, http.MethodGet, "/api/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[domain.Stats](t, rec)
	assert.Equal(t, int64(1), stats.TotalProducts)
	assert.Equal(t, 6.0, stats.TotalInventoryValue)

	for _, name := range []string{"inventory", "sales", "suppliers"} {
		rec = doJSON(t, router, http.MethodGet, "/api/reports/"+name+"/pdf", nil)
		require.Equal(t, http.StatusOK, rec.Code, name)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), name+"-report-20240501.pdf")
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")), name)
	}
}

func TestAdminGuard(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	router, _ := newTestHandler(t, func(c *config.Config) {
		c.AdminPasswordHash = string(hash)
		c.Secret = "test-secret"
	})

	rec := doJSON(t, router, http.MethodDelete, "/api/orders/delete-all", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{"password": "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[loginResponse](t, rec).Token
	require.NotEmpty(t, token)

	rec = doJSON(t, router, http.MethodDelete, "/api/orders/delete-all", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/orders/delete-all", nil, "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/brands", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "reads stay open")
}

func TestLoginDisabledWithoutPassword(t *testing.T) {
	router, _ := newTestHandler(t, nil)
	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{"password": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
