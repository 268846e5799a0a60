package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/waste3d/course-marketplace/internal/domain"
)

type CourseQuery struct {
	Search string
	Limit  int
	Offset int
}

// CourseStore holds courses together with their content tree.
type CourseStore interface {
	List(ctx context.Context, q CourseQuery) ([]domain.Course, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Course, error)
	Create(ctx context.Context, c *domain.Course) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// EnrollmentStore must insert atomically: a second Insert for the same
// (student, course) returns domain.ErrDuplicateEnrollment and writes nothing.
type EnrollmentStore interface {
	Insert(ctx context.Context, e *domain.Enrollment) error
	Get(ctx context.Context, studentID string, courseID uuid.UUID) (*domain.Enrollment, error)
	FindByPaymentRef(ctx context.Context, paymentRef string) (*domain.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]domain.Enrollment, error)
	CountByCourse(ctx context.Context, courseID uuid.UUID) (int64, error)
}

// RatingStore upserts atomically on (student, course).
type RatingStore interface {
	Upsert(ctx context.Context, r *domain.Rating) error
	Summaries(ctx context.Context, courseIDs []uuid.UUID) (map[uuid.UUID]domain.RatingSummary, error)
}

// SessionStore keeps transient checkout sessions. Records disappear on
// their own after the retention period.
type SessionStore interface {
	Save(ctx context.Context, s *domain.CheckoutSession) error
	Get(ctx context.Context, id string) (*domain.CheckoutSession, error)
	Delete(ctx context.Context, id string) error
	// ClaimPending atomically marks (student, course) as having an open checkout.
	// When another session already holds the claim its id is returned with ok=false.
	ClaimPending(ctx context.Context, studentID string, courseID uuid.UUID, sessionID string, ttl time.Duration) (existing string, ok bool, err error)
	ReleasePending(ctx context.Context, studentID string, courseID uuid.UUID, sessionID string) error
}

// PaymentEventStore appends handled processor events. Append reports false
// when the event id was already stored.
type PaymentEventStore interface {
	Append(ctx context.Context, e *domain.PaymentEvent) (bool, error)
}

type CheckoutRequest struct {
	SessionRef string
	StudentID  string
	CourseID   uuid.UUID
	Amount     decimal.Decimal
	Currency   string
}

type CheckoutResponse struct {
	ProcessorSessionID string
	RedirectURL        string
}

// PaymentProcessor creates hosted checkouts. Implementations return an error
// wrapping domain.ErrUpstream when the processor is unreachable or times out
// and domain.ErrPaymentRejected when it refuses the request.
type PaymentProcessor interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error)
}
