package pgorders

import (
	"context"
	"log/slog"

	"github.com/BearBump/TaxiOrders/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const selectOrders = `
SELECT id, driver_name, car_number, client_phone, order_status
FROM orders
`

// ListAll returns orders in storage order. Like every read it treats a missing
// database or table as an empty registry.
func (s *Storage) ListAll(ctx context.Context) ([]*models.Order, error) {
	return s.queryOrders(ctx, "select orders", selectOrders)
}

func (s *Storage) ListSortedByID(ctx context.Context, ascending bool) ([]*models.Order, error) {
	q := selectOrders + "ORDER BY id ASC"
	if !ascending {
		q = selectOrders + "ORDER BY id DESC"
	}
	return s.queryOrders(ctx, "select sorted orders", q)
}

func (s *Storage) FindByCarNumber(ctx context.Context, plate string) ([]*models.Order, error) {
	return s.queryOrders(ctx, "select orders by car number", selectOrders+"WHERE car_number = $1", plate)
}

func (s *Storage) FindByStatus(ctx context.Context, status string) ([]*models.Order, error) {
	return s.queryOrders(ctx, "select orders by status", selectOrders+"WHERE order_status = $1", status)
}

func (s *Storage) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	var o models.Order
	err := s.db.QueryRow(ctx, selectOrders+"WHERE id = $1", id).
		Scan(&o.ID, &o.DriverName, &o.CarNumber, &o.ClientPhone, &o.OrderStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(models.ErrNotFound, "order %d", id)
	}
	if err != nil {
		return nil, wrap(err, "select order")
	}
	return &o, nil
}

func (s *Storage) Insert(ctx context.Context, o models.Order) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
INSERT INTO orders (driver_name, car_number, client_phone, order_status)
VALUES ($1, $2, $3, $4)
RETURNING id
`, o.DriverName, o.CarNumber, o.ClientPhone, o.OrderStatus).Scan(&id)
	if err != nil {
		return 0, wrap(err, "insert order")
	}
	return id, nil
}

// Update replaces every field of the order with the given id. Zero affected rows is
// reported as models.ErrNotFound; the store is left untouched in that case.
func (s *Storage) Update(ctx context.Context, o models.Order) error {
	tag, err := s.db.Exec(ctx, `
UPDATE orders
SET
  driver_name = $2,
  car_number = $3,
  client_phone = $4,
  order_status = $5
WHERE id = $1
`, o.ID, o.DriverName, o.CarNumber, o.ClientPhone, o.OrderStatus)
	if err != nil {
		return wrap(err, "update order")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(models.ErrNotFound, "order %d", o.ID)
	}
	return nil
}

// Delete is idempotent: deleting an absent id is not an error.
func (s *Storage) Delete(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	return wrap(err, "delete order")
}

func (s *Storage) queryOrders(ctx context.Context, op, query string, args ...any) ([]*models.Order, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return readFailure(op, err)
	}
	defer rows.Close()

	out := make([]*models.Order, 0)
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.DriverName, &o.CarNumber, &o.ClientPhone, &o.OrderStatus); err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, &o)
	}
	if rows.Err() != nil {
		return readFailure(op, rows.Err())
	}
	return out, nil
}

func readFailure(op string, err error) ([]*models.Order, error) {
	werr := wrap(err, op)
	if errors.Is(werr, models.ErrSchemaAbsent) {
		slog.Debug("orders schema absent, returning empty result", "op", op, "err", err)
		return []*models.Order{}, nil
	}
	return nil, werr
}
