package repository

import (
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/waste3d/course-marketplace/internal/domain"
)

// Migrate creates or updates every table owned by the service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Course{},
		&domain.Chapter{},
		&domain.Lecture{},
		&domain.Enrollment{},
		&domain.Rating{},
		&domain.PaymentEvent{},
	)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func logError(logger *slog.Logger, module, event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", module,
		"layer", "repository",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	logger.Error("repository operation failed", fields...)
	return err
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
