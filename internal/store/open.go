package store

import (
	"context"

	"github.com/matthewbaird/turbine/internal/errors"
)

// Open returns the backend named by driver: "memory" or "sqlite".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return OpenSQLite(ctx, dsn)
	default:
		return nil, errors.Newf("unknown store driver %q", driver)
	}
}
