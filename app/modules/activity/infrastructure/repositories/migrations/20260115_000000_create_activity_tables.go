package activitymigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating club activity tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS club_weekly_counts (
					channel_id VARCHAR(20) PRIMARY KEY,
					count BIGINT NOT NULL DEFAULT 0 CHECK (count >= 0),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create club_weekly_counts table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS club_previous_scores (
					channel_id VARCHAR(20) PRIMARY KEY,
					score BIGINT NOT NULL DEFAULT 0,
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create club_previous_scores table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS club_leaders (
					channel_id VARCHAR(20) PRIMARY KEY,
					user_id VARCHAR(20) NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_club_leaders_user_id ON club_leaders(user_id);
			`); err != nil {
				return fmt.Errorf("failed to create club_leaders table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping club activity tables...")
		_, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS club_leaders;
			DROP TABLE IF EXISTS club_previous_scores;
			DROP TABLE IF EXISTS club_weekly_counts;
		`)
		return err
	})
}
