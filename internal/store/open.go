package store

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Open creates the store for driver and runs its migration.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	var (
		st  Store
		err error
	)
	switch driver {
	case DriverSQLite, "":
		st, err = NewSQLite(databaseURL)
	case DriverPostgres:
		st, err = NewPostgres(ctx, databaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	zap.L().Debug("store: opened", zap.String("driver", driver))
	return st, nil
}
