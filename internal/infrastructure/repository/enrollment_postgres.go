package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/waste3d/course-marketplace/internal/application"
	"github.com/waste3d/course-marketplace/internal/domain"
)

type EnrollmentRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewEnrollmentRepository(db *gorm.DB, logger *slog.Logger) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, logger: resolveLogger(logger)}
}

// Insert relies on the (student_id, course_id) key and the payment_ref index:
// a conflicting row is skipped and reported as a duplicate.
func (r *EnrollmentRepository) Insert(ctx context.Context, e *domain.Enrollment) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(e)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domain.ErrDuplicateEnrollment
		}
		return logError(r.logger, "enrollment", "enrollment_repo_insert_failed", res.Error,
			"student_id", e.StudentID,
			"course_id", e.CourseID.String(),
		)
	}
	if res.RowsAffected == 0 {
		return domain.ErrDuplicateEnrollment
	}
	return nil
}

func (r *EnrollmentRepository) Get(ctx context.Context, studentID string, courseID uuid.UUID) (*domain.Enrollment, error) {
	var e domain.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, logError(r.logger, "enrollment", "enrollment_repo_get_failed", err,
			"student_id", studentID,
			"course_id", courseID.String(),
		)
	}
	return &e, nil
}

func (r *EnrollmentRepository) FindByPaymentRef(ctx context.Context, paymentRef string) (*domain.Enrollment, error) {
	var e domain.Enrollment
	err := r.db.WithContext(ctx).Where("payment_ref = ?", paymentRef).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, logError(r.logger, "enrollment", "enrollment_repo_find_payment_failed", err, "payment_ref", paymentRef)
	}
	return &e, nil
}

func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]domain.Enrollment, error) {
	var list []domain.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("enrolled_at desc").
		Find(&list).Error
	if err != nil {
		return nil, logError(r.logger, "enrollment", "enrollment_repo_list_failed", err, "student_id", studentID)
	}
	return list, nil
}

func (r *EnrollmentRepository) CountByCourse(ctx context.Context, courseID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Enrollment{}).Where("course_id = ?", courseID).Count(&n).Error
	if err != nil {
		return 0, logError(r.logger, "enrollment", "enrollment_repo_count_failed", err, "course_id", courseID.String())
	}
	return n, nil
}

var _ application.EnrollmentStore = (*EnrollmentRepository)(nil)
