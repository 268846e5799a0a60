package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/waste3d/course-marketplace/internal/domain"
)

type RatingService struct {
	courses CourseStore
	ratings RatingStore
	ledger  *EnrollmentLedger
	now     func() time.Time
}

func NewRatingService(courses CourseStore, ratings RatingStore, ledger *EnrollmentLedger) *RatingService {
	return &RatingService{courses: courses, ratings: ratings, ledger: ledger, now: time.Now}
}

// SubmitRating stores the student's score, replacing an earlier one.
func (s *RatingService) SubmitRating(ctx context.Context, studentID string, courseID uuid.UUID, score int) (*domain.Rating, error) {
	if err := domain.ValidateScore(score); err != nil {
		return nil, err
	}
	if strings.TrimSpace(studentID) == "" {
		return nil, fmt.Errorf("%w: student is required", domain.ErrValidation)
	}
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, err
	}

	enrolled, err := s.ledger.IsEnrolled(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, domain.ErrNotEnrolled
	}

	now := s.now().UTC()
	rating := &domain.Rating{
		StudentID: studentID,
		CourseID:  courseID,
		Score:     score,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.ratings.Upsert(ctx, rating); err != nil {
		return nil, err
	}
	return rating, nil
}
