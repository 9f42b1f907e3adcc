// Package backend opens the configured storage.Store implementation.
package backend

import (
	"fmt"
	"log/slog"

	"github.com/keshon/tagwarden/internal/config"
	"github.com/keshon/tagwarden/internal/storage"
	"github.com/keshon/tagwarden/internal/storage/sqlstore"
)

// Open returns the store for driver at path.
func Open(driver, path string, log *slog.Logger) (storage.Store, error) {
	switch driver {
	case config.DriverJSON, "":
		s, err := storage.New(path, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		s, err := sqlstore.Open(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
