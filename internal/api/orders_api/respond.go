package orders_api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BearBump/TaxiOrders/internal/models"
	"github.com/BearBump/TaxiOrders/internal/services/backups"
	"github.com/pkg/errors"
)

type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "err", err)
	}
	respondJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConstraintViolation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrSchemaAbsent):
		return http.StatusConflict
	case errors.Is(err, backups.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
