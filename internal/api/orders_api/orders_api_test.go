package orders_api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/BearBump/TaxiOrders/internal/integrations/backup/fake"
	"github.com/BearBump/TaxiOrders/internal/models"
	"github.com/BearBump/TaxiOrders/internal/services/backups"
	"github.com/BearBump/TaxiOrders/internal/services/orders"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// fakeOrders хранит заказы в памяти и повторяет контракт сервиса.
type fakeOrders struct {
	exists      bool
	rows        []models.Order
	nextID      int64
	invalidated int
	listErr     error
	lastQuery   orders.Query
}

func (f *fakeOrders) DatabaseExists(ctx context.Context) (bool, error) { return f.exists, nil }

func (f *fakeOrders) CreateDatabase(ctx context.Context) error {
	if f.exists {
		return errors.Wrap(models.ErrAlreadyExists, "database \"taxi_orders\"")
	}
	f.exists = true
	return nil
}

func (f *fakeOrders) DropDatabase(ctx context.Context) error {
	if !f.exists {
		return errors.Wrap(models.ErrNotFound, "database \"taxi_orders\"")
	}
	f.exists = false
	f.rows = nil
	return nil
}

func (f *fakeOrders) List(ctx context.Context, q orders.Query) ([]*models.Order, error) {
	f.lastQuery = q
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.Order, 0)
	for _, o := range f.rows {
		if q.CarNumber != "" && o.CarNumber != q.CarNumber {
			continue
		}
		if q.Status != "" && o.OrderStatus != q.Status {
			continue
		}
		out = append(out, &o)
	}
	return out, nil
}

func (f *fakeOrders) ListSortedByID(ctx context.Context, ascending bool) ([]*models.Order, error) {
	return f.List(ctx, orders.Query{Sort: orders.SortAsc})
}

func (f *fakeOrders) Get(ctx context.Context, id int64) (*models.Order, error) {
	for _, o := range f.rows {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, errors.Wrapf(models.ErrNotFound, "order %d", id)
}

func (f *fakeOrders) Insert(ctx context.Context, o models.Order) (int64, error) {
	if !f.exists {
		return 0, errors.Wrap(models.ErrSchemaAbsent, "insert order")
	}
	if o.DriverName == "" {
		return 0, errors.Wrap(models.ErrConstraintViolation, "driver_name is required")
	}
	f.nextID++
	o.ID = f.nextID
	f.rows = append(f.rows, o)
	return o.ID, nil
}

func (f *fakeOrders) Update(ctx context.Context, o models.Order) error {
	for i := range f.rows {
		if f.rows[i].ID == o.ID {
			f.rows[i] = o
			return nil
		}
	}
	return errors.Wrapf(models.ErrNotFound, "order %d", o.ID)
}

func (f *fakeOrders) Delete(ctx context.Context, id int64) error {
	f.rows = slices.DeleteFunc(f.rows, func(o models.Order) bool { return o.ID == id })
	return nil
}

func (f *fakeOrders) InvalidateLists(ctx context.Context) { f.invalidated++ }

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func newTestAPI(t *testing.T) (*fakeOrders, *fake.Gateway, string, http.Handler) {
	t.Helper()
	f := &fakeOrders{}
	backupDir := t.TempDir()
	gw := fake.New(backupDir)
	api := New(f, backups.New(gw), Options{
		DatabaseName: "taxi_orders",
		BackupDir:    backupDir,
		ReportDir:    t.TempDir(),
		ReportTitle:  "Orders export",
	})
	return f, gw, backupDir, api.Router()
}

func TestAPI_DatabaseLifecycle(t *testing.T) {
	_, _, _, h := newTestAPI(t)

	rec := do(t, h, http.MethodGet, "/api/v1/database", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"name":"taxi_orders","exists":false}`, rec.Body.String())

	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/v1/database", nil).Code)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/v1/database", nil).Code)

	rec = do(t, h, http.MethodPost, "/api/v1/database", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "taxi_orders")

	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/v1/database", nil).Code)
}

func TestAPI_OrdersCRUD(t *testing.T) {
	f, _, _, h := newTestAPI(t)

	// БД ещё не создана, запись отвергается
	in := orderInput{DriverName: "A", CarNumber: "X001", ClientPhone: "111", OrderStatus: models.StatusWaiting}
	require.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/v1/orders", in).Code)

	f.exists = true
	rec := do(t, h, http.MethodPost, "/api/v1/orders", in)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, int64(1), created.ID)
	require.Equal(t, "X001", created.CarNumber)

	rec = do(t, h, http.MethodGet, "/api/v1/orders?car_number=X001&status="+url.QueryEscape(models.StatusWaiting)+"&sort=desc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, orders.Query{CarNumber: "X001", Status: models.StatusWaiting, Sort: orders.SortDesc}, f.lastQuery)

	in.OrderStatus = models.StatusCompleted
	rec = do(t, h, http.MethodPut, "/api/v1/orders/1", in)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/v1/orders/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), models.StatusCompleted)

	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodPut, "/api/v1/orders/42", in).Code)
	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/v1/orders/1", nil).Code)
	// повторное удаление тоже успех
	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/v1/orders/1", nil).Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/orders/1", nil).Code)
}

func TestAPI_BadInput(t *testing.T) {
	f, _, _, h := newTestAPI(t)
	f.exists = true

	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/orders/abc", nil).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodDelete, "/api/v1/orders/-1", nil).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/orders?sort=up", nil).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/orders", map[string]string{"unknown": "x"}).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/orders", orderInput{CarNumber: "X"}).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "bad request body")
}

func TestAPI_StoreUnavailable(t *testing.T) {
	f, _, _, h := newTestAPI(t)
	f.listErr = errors.Wrap(models.ErrStoreUnavailable, "select orders")

	rec := do(t, h, http.MethodGet, "/api/v1/orders", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "error")
}

func TestAPI_BackupAndRestore(t *testing.T) {
	f, gw, dir, h := newTestAPI(t)

	rec := do(t, h, http.MethodPost, "/api/v1/backups", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var res backups.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.FileExists(t, res.Path)

	rec = do(t, h, http.MethodPost, "/api/v1/backups/restore", restoreInput{Path: filepath.Base(res.Path)})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{filepath.Join(dir, filepath.Base(res.Path))}, gw.Restored())
	require.Equal(t, 1, f.invalidated)

	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/v1/backups/restore", restoreInput{Path: "missing.sql"}).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/backups/restore", restoreInput{Path: "../etc/passwd"}).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/backups/restore", restoreInput{}).Code)
	require.Equal(t, 1, f.invalidated)
}

func TestAPI_BackupsNotConfigured(t *testing.T) {
	h := New(&fakeOrders{}, nil, Options{}).Router()
	require.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodPost, "/api/v1/backups", nil).Code)
	require.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodPost, "/api/v1/backups/restore", restoreInput{Path: "x"}).Code)
}

func TestAPI_Reports(t *testing.T) {
	f, _, _, h := newTestAPI(t)
	f.exists = true
	f.rows = []models.Order{{ID: 1, DriverName: "A", CarNumber: "X", ClientPhone: "1", OrderStatus: "w"}}

	rec := do(t, h, http.MethodPost, "/api/v1/reports", reportInput{Format: "xlsx"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var out struct {
		Format string `json:"format"`
		Path   string `json:"path"`
		Rows   int    `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "xlsx", out.Format)
	require.Equal(t, 1, out.Rows)
	_, err := os.Stat(out.Path)
	require.NoError(t, err)

	rec = do(t, h, http.MethodPost, "/api/v1/reports?format=pdf", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/reports?format=docx", nil).Code)
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	_, _, _, h := newTestAPI(t)
	rec := do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusConflict, statusFor(errors.Wrap(models.ErrAlreadyExists, "x")))
	require.Equal(t, http.StatusNotFound, statusFor(models.ErrNotFound))
	require.Equal(t, http.StatusBadRequest, statusFor(models.ErrConstraintViolation))
	require.Equal(t, http.StatusConflict, statusFor(models.ErrSchemaAbsent))
	require.Equal(t, http.StatusTooManyRequests, statusFor(errors.Wrap(backups.ErrRateLimited, "x")))
	require.Equal(t, http.StatusServiceUnavailable, statusFor(models.ErrStoreUnavailable))
	require.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestResolveDumpPath(t *testing.T) {
	p, err := resolveDumpPath("/var/backups", "a.sql")
	require.NoError(t, err)
	require.Equal(t, "/var/backups/a.sql", p)

	p, err = resolveDumpPath("/var/backups", "/var/backups/sub/b.sql")
	require.NoError(t, err)
	require.Equal(t, "/var/backups/sub/b.sql", p)

	_, err = resolveDumpPath("/var/backups", "/etc/passwd")
	require.ErrorIs(t, err, models.ErrConstraintViolation)

	p, err = resolveDumpPath("", "/any/where.sql")
	require.NoError(t, err)
	require.Equal(t, "/any/where.sql", p)
}
