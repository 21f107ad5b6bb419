package dockerexec

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Config struct {
	Container string
	User      string
	Database  string
	Dir       string
	// Binary defaults to "docker".
	Binary string
}

// Client runs pg_dump and psql inside the database container.
type Client struct {
	cfg    Config
	runner Runner

	now   func() time.Time
	newID func() string
}

func New(cfg Config, runner Runner) (*Client, error) {
	switch {
	case cfg.Container == "":
		return nil, errors.New("backup container is required")
	case cfg.User == "":
		return nil, errors.New("backup user is required")
	case cfg.Database == "":
		return nil, errors.New("backup database is required")
	case cfg.Dir == "":
		return nil, errors.New("backup dir is required")
	}
	if cfg.Binary == "" {
		cfg.Binary = "docker"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Client{
		cfg:    cfg,
		runner: runner,
		now:    time.Now,
		newID:  func() string { return uuid.NewString()[:8] },
	}, nil
}

func (c *Client) dumpArgs() []string {
	return []string{"exec", c.cfg.Container, "pg_dump", "-U", c.cfg.User, "-d", c.cfg.Database, "--clean", "--if-exists"}
}

func (c *Client) restoreArgs() []string {
	return []string{"exec", "-i", c.cfg.Container, "psql", "-U", c.cfg.User, "-d", c.cfg.Database, "-v", "ON_ERROR_STOP=1"}
}

// Dump writes a plain SQL dump into Dir and returns its path. A failed run leaves
// no partial file behind.
func (c *Client) Dump(ctx context.Context) (string, error) {
	if err := os.MkdirAll(c.cfg.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create backup dir")
	}

	name := fmt.Sprintf("%s_%s_%s.sql", c.cfg.Database, c.now().UTC().Format("20060102T150405Z"), c.newID())
	path := filepath.Join(c.cfg.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create dump file")
	}

	stderr, runErr := c.runner.Run(ctx, c.cfg.Binary, c.dumpArgs(), nil, f)
	closeErr := f.Close()
	if runErr != nil {
		_ = os.Remove(path)
		return "", errors.Wrapf(runErr, "pg_dump in container %q failed: %s", c.cfg.Container, stderr)
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return "", errors.Wrap(closeErr, "close dump file")
	}

	slog.Info("database dumped", "container", c.cfg.Container, "db", c.cfg.Database, "path", path)
	return path, nil
}

func (c *Client) Restore(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open dump file")
	}
	defer f.Close()

	stderr, err := c.runner.Run(ctx, c.cfg.Binary, c.restoreArgs(), f, io.Discard)
	if err != nil {
		return errors.Wrapf(err, "psql restore in container %q failed: %s", c.cfg.Container, stderr)
	}

	slog.Info("database restored", "container", c.cfg.Container, "db", c.cfg.Database, "path", path)
	return nil
}
