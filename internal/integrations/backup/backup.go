// Package backup describes the dump/restore boundary of the order database.
package backup

import "context"

// Gateway produces a dump file of the order database and loads one back.
// Implementations only report success or failure with diagnostic text.
type Gateway interface {
	Dump(ctx context.Context) (string, error)
	Restore(ctx context.Context, path string) error
}
