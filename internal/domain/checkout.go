package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CheckoutStatus string

const (
	CheckoutInitiated            CheckoutStatus = "initiated"
	CheckoutAwaitingConfirmation CheckoutStatus = "awaiting_confirmation"
	CheckoutConfirmed            CheckoutStatus = "confirmed"
	CheckoutExpired              CheckoutStatus = "expired"
	CheckoutFailed               CheckoutStatus = "failed"
)

func (s CheckoutStatus) Terminal() bool {
	return s == CheckoutConfirmed || s == CheckoutExpired || s == CheckoutFailed
}

// CheckoutSession tracks one payment-to-enrollment attempt. It is never
// persisted with the ledger. Expired sessions stay in the session store until
// its retention runs out.
type CheckoutSession struct {
	ID                 string          `json:"id"`
	StudentID          string          `json:"student_id"`
	CourseID           uuid.UUID       `json:"course_id"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Status             CheckoutStatus  `json:"status"`
	ProcessorSessionID string          `json:"processor_session_id,omitempty"`
	RedirectURL        string          `json:"redirect_url,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	ExpiresAt          time.Time       `json:"expires_at"`
}

func NewCheckoutSession(studentID string, courseID uuid.UUID, amount decimal.Decimal, currency string, now time.Time, ttl time.Duration) *CheckoutSession {
	return &CheckoutSession{
		ID:        uuid.NewString(),
		StudentID: studentID,
		CourseID:  courseID,
		Amount:    amount,
		Currency:  currency,
		Status:    CheckoutInitiated,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s *CheckoutSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// AwaitConfirmation records the processor checkout. Both values may be empty
// when the processor call timed out; the callback still resolves the session.
func (s *CheckoutSession) AwaitConfirmation(processorSessionID, redirectURL string) error {
	if s.Status != CheckoutInitiated {
		return s.badTransition(CheckoutAwaitingConfirmation)
	}
	s.Status = CheckoutAwaitingConfirmation
	s.ProcessorSessionID = processorSessionID
	s.RedirectURL = redirectURL
	return nil
}

// AttachCheckout fills in the processor checkout of a session whose first
// processor call timed out.
func (s *CheckoutSession) AttachCheckout(processorSessionID, redirectURL string) error {
	if s.Status != CheckoutAwaitingConfirmation || s.RedirectURL != "" {
		return s.badTransition(CheckoutAwaitingConfirmation)
	}
	s.ProcessorSessionID = processorSessionID
	s.RedirectURL = redirectURL
	return nil
}

func (s *CheckoutSession) Confirm() error {
	if s.Status != CheckoutAwaitingConfirmation {
		return s.badTransition(CheckoutConfirmed)
	}
	s.Status = CheckoutConfirmed
	return nil
}

func (s *CheckoutSession) Fail() error {
	if s.Status.Terminal() {
		return s.badTransition(CheckoutFailed)
	}
	s.Status = CheckoutFailed
	return nil
}

func (s *CheckoutSession) Expire() error {
	if s.Status.Terminal() {
		return s.badTransition(CheckoutExpired)
	}
	s.Status = CheckoutExpired
	return nil
}

func (s *CheckoutSession) badTransition(to CheckoutStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
}
