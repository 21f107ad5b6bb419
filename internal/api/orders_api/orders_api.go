package orders_api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BearBump/TaxiOrders/internal/models"
	"github.com/BearBump/TaxiOrders/internal/services/backups"
	"github.com/BearBump/TaxiOrders/internal/services/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Orders interface {
	DatabaseExists(ctx context.Context) (bool, error)
	CreateDatabase(ctx context.Context) error
	DropDatabase(ctx context.Context) error
	List(ctx context.Context, q orders.Query) ([]*models.Order, error)
	ListSortedByID(ctx context.Context, ascending bool) ([]*models.Order, error)
	Get(ctx context.Context, id int64) (*models.Order, error)
	Insert(ctx context.Context, o models.Order) (int64, error)
	Update(ctx context.Context, o models.Order) error
	Delete(ctx context.Context, id int64) error
	InvalidateLists(ctx context.Context)
}

type Backups interface {
	Dump(ctx context.Context) (backups.Result, error)
	Restore(ctx context.Context, path string) error
}

type Options struct {
	DatabaseName string
	// BackupDir bounds restore paths; relative paths are resolved against it.
	BackupDir string

	ReportDir      string
	ReportTitle    string
	ReportFontPath string

	AllowedOrigins []string
}

type API struct {
	orders  Orders
	backups Backups
	opts    Options

	now func() time.Time
}

// New wires the HTTP surface. backups may be nil, then backup routes answer 503.
func New(o Orders, b Backups, opts Options) *API {
	return &API{orders: o, backups: b, opts: opts, now: time.Now}
}

func (a *API) Router() http.Handler {
	origins := a.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/database", a.getDatabase)
		r.Post("/database", a.createDatabase)
		r.Delete("/database", a.dropDatabase)

		r.Get("/orders", a.listOrders)
		r.Post("/orders", a.createOrder)
		r.Get("/orders/{id}", a.getOrder)
		r.Put("/orders/{id}", a.updateOrder)
		r.Delete("/orders/{id}", a.deleteOrder)

		r.Post("/backups", a.dump)
		r.Post("/backups/restore", a.restore)

		r.Post("/reports", a.exportReport)
	})
	return r
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
