package pgorders

import (
	"net"
	"strings"

	"github.com/BearBump/TaxiOrders/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

const (
	codeInvalidCatalogName = "3D000"
	codeUndefinedTable     = "42P01"
	codeDuplicateDatabase  = "42P04"
	codeAdminShutdown      = "57P01"
)

// classifiedError keeps the driver error reachable through errors.As while also
// matching one of the models sentinels through errors.Is.
type classifiedError struct {
	kind  error
	cause error
}

func (e *classifiedError) Error() string   { return e.cause.Error() }
func (e *classifiedError) Unwrap() []error { return []error{e.kind, e.cause} }

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeInvalidCatalogName, pgErr.Code == codeUndefinedTable:
			return models.ErrSchemaAbsent
		case pgErr.Code == codeDuplicateDatabase:
			return models.ErrAlreadyExists
		case pgErr.Code == codeAdminShutdown:
			return models.ErrStoreUnavailable
		case strings.HasPrefix(pgErr.Code, "22"), strings.HasPrefix(pgErr.Code, "23"):
			return models.ErrConstraintViolation
		case strings.HasPrefix(pgErr.Code, "08"):
			return models.ErrStoreUnavailable
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return models.ErrStoreUnavailable
	}
	if pgconn.Timeout(err) {
		return models.ErrStoreUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return models.ErrStoreUnavailable
	}
	return nil
}

func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	if kind := classify(err); kind != nil {
		return errors.WithMessage(&classifiedError{kind: kind, cause: err}, msg)
	}
	return errors.Wrap(err, msg)
}
