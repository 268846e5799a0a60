package repository

import (
	"context"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/waste3d/course-marketplace/internal/application"
	"github.com/waste3d/course-marketplace/internal/domain"
)

// PaymentEventRepository keeps the audit trail of handled processor events.
type PaymentEventRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewPaymentEventRepository(db *gorm.DB, logger *slog.Logger) *PaymentEventRepository {
	return &PaymentEventRepository{db: db, logger: resolveLogger(logger)}
}

func (r *PaymentEventRepository) Append(ctx context.Context, e *domain.PaymentEvent) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(e)
	if res.Error != nil {
		return false, logError(r.logger, "payment", "payment_event_repo_append_failed", res.Error,
			"event_id", e.ID,
			"type", e.Type,
		)
	}
	return res.RowsAffected > 0, nil
}

var _ application.PaymentEventStore = (*PaymentEventRepository)(nil)
