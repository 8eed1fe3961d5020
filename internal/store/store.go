// Package store provides the Room Store and Membership Table backends.
package store

import (
	"context"
	"fmt"

	"github.com/dkeye/relay/internal/config"
	"github.com/dkeye/relay/internal/core"
)

var (
	_ core.Store = (*Memory)(nil)
	_ core.Store = (*Badger)(nil)
	_ core.Store = (*Postgres)(nil)
)

// Open picks the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (core.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return NewMemory(), nil
	case config.DriverBadger:
		return OpenBadger(cfg.BadgerPath)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
