package pgorders

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type Storage struct {
	params ConnParams
	db     *pgxpool.Pool
}

// New prepares the target pool without touching the server: the target database
// may legitimately not exist until CreateDatabase runs.
func New(params ConnParams) (*Storage, error) {
	if err := params.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid connection params")
	}

	cfg, err := pgxpool.ParseConfig(params.TargetConnString())
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}
	cfg.MinConns = 0

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	return &Storage{params: params, db: db}, nil
}

func (s *Storage) TargetDB() string {
	return s.params.TargetDB
}

func (s *Storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}
