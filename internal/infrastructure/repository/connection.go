package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const connectAttempts = 5

// Connect opens postgres, retrying while the database is still starting up.
func Connect(ctx context.Context, dsn string, log *slog.Logger) (*gorm.DB, error) {
	log = resolveLogger(log)

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			log.Info("database connected", "event", "db_connected", "attempt", i+1)
			return db, nil
		}

		log.Warn("database connect failed, retrying", "event", "db_connect_retry", "attempt", i+1, "error", err.Error())
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("database unreachable after %d attempts: %w", connectAttempts, err)
}

// Ping reports whether the pool can reach the database.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
