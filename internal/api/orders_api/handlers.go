package orders_api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/BearBump/TaxiOrders/internal/models"
	"github.com/BearBump/TaxiOrders/internal/report"
	"github.com/BearBump/TaxiOrders/internal/services/orders"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

type orderInput struct {
	DriverName  string `json:"driver_name"`
	CarNumber   string `json:"car_number"`
	ClientPhone string `json:"client_phone"`
	OrderStatus string `json:"order_status"`
}

func (in orderInput) toModel(id int64) models.Order {
	return models.Order{
		ID:          id,
		DriverName:  in.DriverName,
		CarNumber:   in.CarNumber,
		ClientPhone: in.ClientPhone,
		OrderStatus: in.OrderStatus,
	}
}

func (a *API) getDatabase(w http.ResponseWriter, r *http.Request) {
	exists, err := a.orders.DatabaseExists(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"name": a.opts.DatabaseName, "exists": exists})
}

func (a *API) createDatabase(w http.ResponseWriter, r *http.Request) {
	if err := a.orders.CreateDatabase(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"name": a.opts.DatabaseName, "exists": true})
}

func (a *API) dropDatabase(w http.ResponseWriter, r *http.Request) {
	if err := a.orders.DropDatabase(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sort, err := orders.ParseSort(q.Get("sort"))
	if err != nil {
		respondError(w, err)
		return
	}
	out, err := a.orders.List(r.Context(), orders.Query{
		CarNumber: q.Get("car_number"),
		Status:    q.Get("status"),
		Sort:      sort,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (a *API) createOrder(w http.ResponseWriter, r *http.Request) {
	var in orderInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err)
		return
	}
	o := in.toModel(0)
	id, err := a.orders.Insert(r.Context(), o)
	if err != nil {
		respondError(w, err)
		return
	}
	o.ID = id
	respondJSON(w, http.StatusCreated, o)
}

func (a *API) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orders.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	o, err := a.orders.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (a *API) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orders.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	var in orderInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err)
		return
	}
	o := in.toModel(id)
	if err := a.orders.Update(r.Context(), o); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (a *API) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orders.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	if err := a.orders.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) dump(w http.ResponseWriter, r *http.Request) {
	if a.backups == nil {
		respondJSON(w, http.StatusServiceUnavailable, errorBody{Error: "backups are not configured"})
		return
	}
	res, err := a.backups.Dump(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

type restoreInput struct {
	Path string `json:"path"`
}

func (a *API) restore(w http.ResponseWriter, r *http.Request) {
	if a.backups == nil {
		respondJSON(w, http.StatusServiceUnavailable, errorBody{Error: "backups are not configured"})
		return
	}
	var in restoreInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err)
		return
	}
	path, err := resolveDumpPath(a.opts.BackupDir, in.Path)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := a.backups.Restore(r.Context(), path); err != nil {
		respondError(w, err)
		return
	}
	// таблицу поменяли в обход сервиса — старые снимки списков больше не верны
	a.orders.InvalidateLists(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{"restored": path})
}

type reportInput struct {
	Format string `json:"format"`
}

func (a *API) exportReport(w http.ResponseWriter, r *http.Request) {
	in := reportInput{Format: r.URL.Query().Get("format")}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &in); err != nil {
			respondError(w, err)
			return
		}
	}
	if in.Format == "" {
		in.Format = "pdf"
	}

	gen, err := report.ForFormat(in.Format, report.Options{Title: a.opts.ReportTitle, FontPath: a.opts.ReportFontPath})
	if err != nil {
		respondError(w, err)
		return
	}
	path := filepath.Join(a.opts.ReportDir, report.FileName(gen.Format(), a.now()))
	n, err := report.Export(r.Context(), a.orders, gen, path)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"format": gen.Format(), "path": path, "rows": n})
}

// resolveDumpPath keeps restore inside dir when dir is set.
func resolveDumpPath(dir, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.Wrap(models.ErrConstraintViolation, "path is required")
	}
	if dir == "" {
		return p, nil
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(models.ErrConstraintViolation, "path %q is outside the backup dir", p)
	}
	return filepath.Clean(p), nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrapf(models.ErrConstraintViolation, "bad request body: %v", err)
	}
	return nil
}
