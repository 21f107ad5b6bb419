package fake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Gateway — заглушка бэкапа без docker: пишет маленький SQL-файл и запоминает вызовы.
type Gateway struct {
	Dir        string
	DumpErr    error
	RestoreErr error

	mu       sync.Mutex
	dumps    int
	restored []string
}

func New(dir string) *Gateway { return &Gateway{Dir: dir} }

func (g *Gateway) Dump(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.DumpErr != nil {
		return "", g.DumpErr
	}
	g.dumps++

	dir := g.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create backup dir")
	}
	path := filepath.Join(dir, fmt.Sprintf("fake_%d_%d.sql", time.Now().UnixNano(), g.dumps))
	if err := os.WriteFile(path, []byte("-- fake dump\n"), 0o600); err != nil {
		return "", errors.Wrap(err, "write fake dump")
	}
	return path, nil
}

func (g *Gateway) Restore(ctx context.Context, path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RestoreErr != nil {
		return g.RestoreErr
	}
	g.restored = append(g.restored, path)
	return nil
}

func (g *Gateway) Dumps() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dumps
}

func (g *Gateway) Restored() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.restored...)
}
