package repository

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/waste3d/course-marketplace/internal/application"
	"github.com/waste3d/course-marketplace/internal/domain"
)

type RatingRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRatingRepository(db *gorm.DB, logger *slog.Logger) *RatingRepository {
	return &RatingRepository{db: db, logger: resolveLogger(logger)}
}

func (r *RatingRepository) Upsert(ctx context.Context, rating *domain.Rating) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}, {Name: "course_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"score":      rating.Score,
			"updated_at": rating.UpdatedAt,
		}),
	}).Create(rating).Error
	if err != nil {
		return logError(r.logger, "rating", "rating_repo_upsert_failed", err,
			"student_id", rating.StudentID,
			"course_id", rating.CourseID.String(),
		)
	}
	return nil
}

type ratingSummaryRow struct {
	CourseID uuid.UUID
	Count    int64
	Total    int64
}

func (r *RatingRepository) Summaries(ctx context.Context, courseIDs []uuid.UUID) (map[uuid.UUID]domain.RatingSummary, error) {
	out := make(map[uuid.UUID]domain.RatingSummary, len(courseIDs))
	if len(courseIDs) == 0 {
		return out, nil
	}

	var rows []ratingSummaryRow
	err := r.db.WithContext(ctx).Model(&domain.Rating{}).
		Select("course_id, COUNT(*) AS count, COALESCE(SUM(score), 0) AS total").
		Where("course_id IN ?", courseIDs).
		Group("course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, logError(r.logger, "rating", "rating_repo_summaries_failed", err, "count", len(courseIDs))
	}
	for _, row := range rows {
		out[row.CourseID] = domain.RatingSummary{Count: row.Count, Total: row.Total}
	}
	return out, nil
}

var _ application.RatingStore = (*RatingRepository)(nil)
