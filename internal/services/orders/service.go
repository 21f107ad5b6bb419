package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BearBump/TaxiOrders/internal/broker/messages"
	"github.com/BearBump/TaxiOrders/internal/cache"
	"github.com/BearBump/TaxiOrders/internal/metrics"
	"github.com/BearBump/TaxiOrders/internal/models"
	"github.com/pkg/errors"
)

type Repository interface {
	ListAll(ctx context.Context) ([]*models.Order, error)
	ListSortedByID(ctx context.Context, ascending bool) ([]*models.Order, error)
	FindByCarNumber(ctx context.Context, plate string) ([]*models.Order, error)
	FindByStatus(ctx context.Context, status string) ([]*models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	Insert(ctx context.Context, o models.Order) (int64, error)
	Update(ctx context.Context, o models.Order) error
	Delete(ctx context.Context, id int64) error
}

type Schema interface {
	DatabaseExists(ctx context.Context) (bool, error)
	CreateDatabase(ctx context.Context) error
	DropDatabase(ctx context.Context) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Sort string

const (
	SortNone Sort = ""
	SortAsc  Sort = "asc"
	SortDesc Sort = "desc"
)

func ParseSort(s string) (Sort, error) {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case SortNone:
		return SortNone, nil
	case SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	}
	return SortNone, errors.Wrapf(models.ErrConstraintViolation, "unknown sort %q", s)
}

// Query selects orders. CarNumber takes precedence over Status; when both are set
// the status is applied on top of the car number match.
type Query struct {
	CarNumber string
	Status    string
	Sort      Sort
}

func (q Query) cacheKey() string {
	return fmt.Sprintf("car=%q|status=%q|sort=%s", q.CarNumber, q.Status, q.Sort)
}

const generationKey = "orders:gen"

type Service struct {
	repo    Repository
	schema  Schema
	cache   cache.BytesCache
	listTTL time.Duration

	pub   Publisher
	topic string

	now func() time.Time
}

func New(repo Repository, schema Schema, c cache.BytesCache, listTTL time.Duration) *Service {
	return &Service{repo: repo, schema: schema, cache: c, listTTL: listTTL, now: time.Now}
}

// WithEvents enables OrderChanged publishing after successful writes.
func (s *Service) WithEvents(pub Publisher, topic string) *Service {
	s.pub = pub
	s.topic = topic
	return s
}

func (s *Service) DatabaseExists(ctx context.Context) (bool, error) {
	return s.schema.DatabaseExists(ctx)
}

func (s *Service) CreateDatabase(ctx context.Context) error {
	start := time.Now()
	err := s.schema.CreateDatabase(ctx)
	metrics.ObserveOrderOp("create_database", start, err)
	if err != nil {
		return err
	}
	s.bumpGeneration(ctx)
	return nil
}

func (s *Service) DropDatabase(ctx context.Context) error {
	start := time.Now()
	err := s.schema.DropDatabase(ctx)
	metrics.ObserveOrderOp("drop_database", start, err)
	if err != nil {
		return err
	}
	s.bumpGeneration(ctx)
	return nil
}

func (s *Service) ListAll(ctx context.Context) ([]*models.Order, error) {
	return s.List(ctx, Query{})
}

func (s *Service) ListSortedByID(ctx context.Context, ascending bool) ([]*models.Order, error) {
	if ascending {
		return s.List(ctx, Query{Sort: SortAsc})
	}
	return s.List(ctx, Query{Sort: SortDesc})
}

func (s *Service) FindByCarNumber(ctx context.Context, plate string) ([]*models.Order, error) {
	return s.List(ctx, Query{CarNumber: plate})
}

func (s *Service) FindByStatus(ctx context.Context, status string) ([]*models.Order, error) {
	return s.List(ctx, Query{Status: status})
}

func (s *Service) List(ctx context.Context, q Query) ([]*models.Order, error) {
	start := time.Now()

	key, cacheable := s.listKey(ctx, q)
	if cacheable {
		if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var cached []*models.Order
			if json.Unmarshal(b, &cached) == nil && cached != nil {
				metrics.ObserveOrderOp("list", start, nil)
				return cached, nil
			}
		}
	}

	out, err := s.load(ctx, q)
	metrics.ObserveOrderOp("list", start, err)
	if err != nil {
		return nil, err
	}

	if cacheable {
		b, _ := json.Marshal(out)
		_ = s.cache.Set(ctx, key, b, s.listTTL)
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, q Query) ([]*models.Order, error) {
	var (
		out []*models.Order
		err error
	)
	switch {
	case q.CarNumber != "":
		out, err = s.repo.FindByCarNumber(ctx, q.CarNumber)
		if err == nil && q.Status != "" {
			out = slices.DeleteFunc(out, func(o *models.Order) bool { return o.OrderStatus != q.Status })
		}
	case q.Status != "":
		out, err = s.repo.FindByStatus(ctx, q.Status)
	case q.Sort != SortNone:
		return s.repo.ListSortedByID(ctx, q.Sort == SortAsc)
	default:
		return s.repo.ListAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	switch q.Sort {
	case SortAsc:
		slices.SortFunc(out, func(a, b *models.Order) int { return compareIDs(a.ID, b.ID) })
	case SortDesc:
		slices.SortFunc(out, func(a, b *models.Order) int { return compareIDs(b.ID, a.ID) })
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Order, error) {
	if id <= 0 {
		return nil, errors.Wrapf(models.ErrConstraintViolation, "invalid order id %d", id)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Insert(ctx context.Context, o models.Order) (int64, error) {
	start := time.Now()
	if err := validate(o); err != nil {
		metrics.ObserveOrderOp("insert", start, err)
		return 0, err
	}

	id, err := s.repo.Insert(ctx, o)
	metrics.ObserveOrderOp("insert", start, err)
	if err != nil {
		return 0, err
	}

	o.ID = id
	slog.Info("order inserted", "id", id, "car_number", o.CarNumber)
	s.bumpGeneration(ctx)
	s.publish(ctx, messages.OpCreated, id, &o)
	return id, nil
}

// Update replaces the whole record. An unknown id yields models.ErrNotFound and
// nothing is written.
func (s *Service) Update(ctx context.Context, o models.Order) error {
	start := time.Now()
	if o.ID <= 0 {
		err := errors.Wrapf(models.ErrConstraintViolation, "invalid order id %d", o.ID)
		metrics.ObserveOrderOp("update", start, err)
		return err
	}
	if err := validate(o); err != nil {
		metrics.ObserveOrderOp("update", start, err)
		return err
	}

	err := s.repo.Update(ctx, o)
	metrics.ObserveOrderOp("update", start, err)
	if err != nil {
		return err
	}

	slog.Info("order updated", "id", o.ID)
	s.bumpGeneration(ctx)
	s.publish(ctx, messages.OpUpdated, o.ID, &o)
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.repo.Delete(ctx, id)
	metrics.ObserveOrderOp("delete", start, err)
	if err != nil {
		return err
	}

	slog.Info("order deleted", "id", id)
	s.bumpGeneration(ctx)
	s.publish(ctx, messages.OpDeleted, id, nil)
	return nil
}

// ApplyIntake inserts an order received from the intake topic.
func (s *Service) ApplyIntake(ctx context.Context, msg messages.OrderIntake) (int64, error) {
	return s.Insert(ctx, models.Order{
		DriverName:  msg.DriverName,
		CarNumber:   msg.CarNumber,
		ClientPhone: msg.ClientPhone,
		OrderStatus: msg.OrderStatus,
	})
}

// ParseID converts operator input into an order id.
func ParseID(text string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Wrapf(models.ErrConstraintViolation, "malformed order id %q", text)
	}
	return id, nil
}

func validate(o models.Order) error {
	required := []struct {
		name  string
		value string
	}{
		{"driver_name", o.DriverName},
		{"car_number", o.CarNumber},
		{"client_phone", o.ClientPhone},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return errors.Wrapf(models.ErrConstraintViolation, "%s is required", f.name)
		}
	}

	limits := []struct {
		name  string
		value string
		max   int
	}{
		{"driver_name", o.DriverName, models.MaxTextLen},
		{"car_number", o.CarNumber, models.MaxTextLen},
		{"client_phone", o.ClientPhone, models.MaxClientPhoneLen},
		{"order_status", o.OrderStatus, models.MaxOrderStatusLen},
	}
	for _, f := range limits {
		if utf8.RuneCountInString(f.value) > f.max {
			return errors.Wrapf(models.ErrConstraintViolation, "%s is longer than %d characters", f.name, f.max)
		}
	}
	return nil
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.listTTL > 0
}

// listKey builds a key scoped to the current cache generation. Any write bumps the
// generation, so snapshots from before the write are never read again.
func (s *Service) listKey(ctx context.Context, q Query) (string, bool) {
	if !s.cacheEnabled() {
		return "", false
	}
	var gen int64
	b, ok, err := s.cache.Get(ctx, generationKey)
	if err != nil {
		return "", false
	}
	if ok {
		gen, err = strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return "", false
		}
	}
	return fmt.Sprintf("orders:v%d:%s", gen, q.cacheKey()), true
}

// InvalidateLists drops every cached list snapshot. Used after the database was
// changed behind the service, e.g. by a restore.
func (s *Service) InvalidateLists(ctx context.Context) {
	s.bumpGeneration(ctx)
}

func (s *Service) bumpGeneration(ctx context.Context) {
	if !s.cacheEnabled() {
		return
	}
	if _, err := s.cache.Incr(ctx, generationKey); err != nil {
		slog.Warn("orders cache generation bump failed", "err", err)
	}
}

func (s *Service) publish(ctx context.Context, op string, id int64, o *models.Order) {
	if s.pub == nil || s.topic == "" {
		return
	}

	ev := messages.OrderChanged{Op: op, OrderID: id, ChangedAt: s.now().UTC()}
	if o != nil {
		ev.Order = &messages.Order{
			ID:          o.ID,
			DriverName:  o.DriverName,
			CarNumber:   o.CarNumber,
			ClientPhone: o.ClientPhone,
			OrderStatus: o.OrderStatus,
		}
	}
	b, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("order event encode failed", "id", id, "err", err)
		return
	}
	// запись уже применена, поэтому ошибку публикации только логируем
	if err := s.pub.Publish(ctx, s.topic, []byte(strconv.FormatInt(id, 10)), b); err != nil {
		slog.Warn("order event publish failed", "id", id, "op", op, "err", err)
	}
}

func compareIDs(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
