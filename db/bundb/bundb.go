// Package bundb opens the Postgres connection the club modules share.
package bundb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	activitydb "github.com/romeda-works/romeda-bot/app/modules/activity/infrastructure/repositories"
)

// NewDB opens and pings a bun DB for the given DSN.
func NewDB(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if err := sqldb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	db.RegisterModel(
		(*activitydb.WeeklyCount)(nil),
		(*activitydb.PreviousScore)(nil),
		(*activitydb.Leader)(nil),
	)
	return db, nil
}
