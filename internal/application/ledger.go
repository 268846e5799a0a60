package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/waste3d/course-marketplace/internal/domain"
)

// EnrollmentLedger is the append-only record of confirmed enrollments.
// CheckoutOrchestrator is its only writer.
type EnrollmentLedger struct {
	store EnrollmentStore
	now   func() time.Time
}

func NewEnrollmentLedger(store EnrollmentStore) *EnrollmentLedger {
	return &EnrollmentLedger{store: store, now: time.Now}
}

func (l *EnrollmentLedger) IsEnrolled(ctx context.Context, studentID string, courseID uuid.UUID) (bool, error) {
	if strings.TrimSpace(studentID) == "" {
		return false, nil
	}
	_, err := l.store.Get(ctx, studentID, courseID)
	if errors.Is(err, domain.ErrEnrollmentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RecordEnrollment inserts the ledger entry. An existing entry for the pair is
// reported as domain.ErrDuplicateEnrollment and left untouched.
func (l *EnrollmentLedger) RecordEnrollment(ctx context.Context, studentID string, courseID uuid.UUID, paymentRef, sessionRef string) (*domain.Enrollment, error) {
	if strings.TrimSpace(studentID) == "" || courseID == uuid.Nil {
		return nil, fmt.Errorf("%w: student and course are required", domain.ErrValidation)
	}
	if strings.TrimSpace(paymentRef) == "" {
		return nil, fmt.Errorf("%w: payment reference is required", domain.ErrValidation)
	}

	e := &domain.Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		PaymentRef: paymentRef,
		SessionRef: sessionRef,
		EnrolledAt: l.now().UTC(),
	}
	if err := l.store.Insert(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (l *EnrollmentLedger) Get(ctx context.Context, studentID string, courseID uuid.UUID) (*domain.Enrollment, error) {
	return l.store.Get(ctx, studentID, courseID)
}

func (l *EnrollmentLedger) FindByPaymentRef(ctx context.Context, paymentRef string) (*domain.Enrollment, error) {
	return l.store.FindByPaymentRef(ctx, paymentRef)
}

// ListByStudent returns the student's enrollments, most recent first.
func (l *EnrollmentLedger) ListByStudent(ctx context.Context, studentID string) ([]domain.Enrollment, error) {
	return l.store.ListByStudent(ctx, studentID)
}

func (l *EnrollmentLedger) CountByCourse(ctx context.Context, courseID uuid.UUID) (int64, error) {
	return l.store.CountByCourse(ctx, courseID)
}
