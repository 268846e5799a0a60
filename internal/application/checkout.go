package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/waste3d/course-marketplace/internal/domain"
)

type CheckoutConfig struct {
	Currency       string
	SessionTTL     time.Duration // window for the processor callback
	PaymentTimeout time.Duration // bound on the createCheckout call
}

type InitiateResult struct {
	SessionRef  string `json:"session_ref"`
	RedirectURL string `json:"redirect_url"`
}

// CheckoutOrchestrator turns an enroll intent into a ledger entry once the
// processor confirms payment. It is the only writer of the ledger.
type CheckoutOrchestrator struct {
	courses   CourseStore
	ledger    *EnrollmentLedger
	sessions  SessionStore
	processor PaymentProcessor
	cfg       CheckoutConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewCheckoutOrchestrator(
	courses CourseStore,
	ledger *EnrollmentLedger,
	sessions SessionStore,
	processor PaymentProcessor,
	cfg CheckoutConfig,
	logger *slog.Logger,
) *CheckoutOrchestrator {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = 10 * time.Second
	}
	return &CheckoutOrchestrator{
		courses:   courses,
		ledger:    ledger,
		sessions:  sessions,
		processor: processor,
		cfg:       cfg,
		logger:    resolveLogger(logger),
		now:       time.Now,
	}
}

// Initiate starts a checkout for the student. On ErrUpstream the session is
// kept awaiting confirmation and the processor callback may still complete it.
func (o *CheckoutOrchestrator) Initiate(ctx context.Context, studentID string, courseID uuid.UUID) (*InitiateResult, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, fmt.Errorf("%w: student is required", domain.ErrValidation)
	}

	// 1. Already enrolled: nothing to sell
	enrolled, err := o.ledger.IsEnrolled(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, domain.ErrAlreadyEnrolled
	}

	// 2. Course must exist and carry a price
	course, err := o.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Priced() {
		return nil, domain.ErrCourseUnavailable
	}

	// 3. One open checkout per (student, course)
	now := o.now().UTC()
	session := domain.NewCheckoutSession(studentID, courseID, course.EffectivePrice(), o.cfg.Currency, now, o.cfg.SessionTTL)
	existingID, claimed, err := o.sessions.ClaimPending(ctx, studentID, courseID, session.ID, o.cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return o.resumePending(ctx, existingID)
	}

	// A confirmation may have landed between step 1 and the claim
	enrolled, err = o.ledger.IsEnrolled(ctx, studentID, courseID)
	if err != nil || enrolled {
		_ = o.sessions.ReleasePending(ctx, studentID, courseID, session.ID)
		if err != nil {
			return nil, err
		}
		return nil, domain.ErrAlreadyEnrolled
	}

	if err := o.sessions.Save(ctx, session); err != nil {
		_ = o.sessions.ReleasePending(ctx, studentID, courseID, session.ID)
		return nil, err
	}

	// 4. Processor call, bounded
	resp, err := o.createCheckout(ctx, session)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrPaymentRejected):
		o.discard(ctx, session, session.Fail)
		return nil, err
	default:
		// Unreachable or timed out: a retry or the callback resolves it
		if tErr := session.AwaitConfirmation("", ""); tErr == nil {
			if sErr := o.sessions.Save(ctx, session); sErr != nil {
				o.logger.Error("checkout session save failed", "event", "checkout_save_failed", "session_ref", session.ID, "error", sErr.Error())
			}
		}
		return nil, o.upstreamFailure(session, err)
	}

	if err := session.AwaitConfirmation(resp.ProcessorSessionID, resp.RedirectURL); err != nil {
		return nil, err
	}
	if err := o.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	o.logger.Info("checkout initiated",
		"event", "checkout_initiated",
		"session_ref", session.ID,
		"student_id", studentID,
		"course_id", courseID.String(),
		"amount", session.Amount.StringFixed(2),
	)
	return &InitiateResult{SessionRef: session.ID, RedirectURL: session.RedirectURL}, nil
}

// resumePending returns the open checkout for the pair. A session left without
// a redirect by an upstream failure asks the processor again under the same
// session ref, which the processor treats as the same request.
func (o *CheckoutOrchestrator) resumePending(ctx context.Context, sessionID string) (*InitiateResult, error) {
	existing, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrCheckoutInProgress
		}
		return nil, err
	}
	if existing.Status != domain.CheckoutAwaitingConfirmation || existing.Expired(o.now()) {
		return nil, domain.ErrCheckoutInProgress
	}
	if existing.RedirectURL != "" {
		return &InitiateResult{SessionRef: existing.ID, RedirectURL: existing.RedirectURL}, nil
	}

	resp, err := o.createCheckout(ctx, existing)
	if errors.Is(err, domain.ErrPaymentRejected) {
		o.discard(ctx, existing, existing.Fail)
		return nil, err
	}
	if err != nil {
		return nil, o.upstreamFailure(existing, err)
	}
	if err := existing.AttachCheckout(resp.ProcessorSessionID, resp.RedirectURL); err != nil {
		return nil, err
	}
	if err := o.sessions.Save(ctx, existing); err != nil {
		return nil, err
	}

	o.logger.Info("checkout resumed",
		"event", "checkout_resumed",
		"session_ref", existing.ID,
		"student_id", existing.StudentID,
		"course_id", existing.CourseID.String(),
	)
	return &InitiateResult{SessionRef: existing.ID, RedirectURL: existing.RedirectURL}, nil
}

func (o *CheckoutOrchestrator) createCheckout(ctx context.Context, s *domain.CheckoutSession) (*CheckoutResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.PaymentTimeout)
	defer cancel()
	return o.processor.CreateCheckout(callCtx, CheckoutRequest{
		SessionRef: s.ID,
		StudentID:  s.StudentID,
		CourseID:   s.CourseID,
		Amount:     s.Amount,
		Currency:   s.Currency,
	})
}

func (o *CheckoutOrchestrator) upstreamFailure(s *domain.CheckoutSession, err error) error {
	o.logger.Warn("payment processor call failed",
		"event", "checkout_upstream_failed",
		"module", "checkout",
		"session_ref", s.ID,
		"course_id", s.CourseID.String(),
		"error", err.Error(),
	)
	if !errors.Is(err, domain.ErrUpstream) {
		err = fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	return err
}

// Confirm applies a processor confirmation. It is safe to call more than once
// for the same session: later calls return the enrollment already recorded.
func (o *CheckoutOrchestrator) Confirm(ctx context.Context, sessionRef, paymentRef string) (*domain.Enrollment, error) {
	if strings.TrimSpace(sessionRef) == "" || strings.TrimSpace(paymentRef) == "" {
		return nil, fmt.Errorf("%w: session and payment references are required", domain.ErrValidation)
	}

	session, err := o.sessions.Get(ctx, sessionRef)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return o.replayedConfirmation(ctx, sessionRef, paymentRef)
	}
	if err != nil {
		return nil, err
	}

	if session.Status == domain.CheckoutExpired {
		return nil, domain.ErrSessionExpired
	}
	if session.Status == domain.CheckoutAwaitingConfirmation && session.Expired(o.now()) {
		o.retire(ctx, session, session.Expire)
		return nil, domain.ErrSessionExpired
	}
	if session.Status != domain.CheckoutAwaitingConfirmation {
		return nil, domain.ErrSessionNotPending
	}

	enrollment, err := o.ledger.RecordEnrollment(ctx, session.StudentID, session.CourseID, paymentRef, session.ID)
	if errors.Is(err, domain.ErrDuplicateEnrollment) {
		// Already applied by an earlier delivery
		enrollment, err = o.ledger.Get(ctx, session.StudentID, session.CourseID)
	}
	if err != nil {
		return nil, err
	}

	o.discard(ctx, session, session.Confirm)
	o.logger.Info("enrollment confirmed",
		"event", "checkout_confirmed",
		"session_ref", session.ID,
		"student_id", enrollment.StudentID,
		"course_id", enrollment.CourseID.String(),
	)
	return enrollment, nil
}

func (o *CheckoutOrchestrator) replayedConfirmation(ctx context.Context, sessionRef, paymentRef string) (*domain.Enrollment, error) {
	enrollment, err := o.ledger.FindByPaymentRef(ctx, paymentRef)
	if errors.Is(err, domain.ErrEnrollmentNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if enrollment.SessionRef != sessionRef {
		return nil, domain.ErrSessionNotFound
	}
	return enrollment, nil
}

// Fail discards a session the processor reported as failed. Unknown sessions are ignored.
func (o *CheckoutOrchestrator) Fail(ctx context.Context, sessionRef string) error {
	session, err := o.lookup(ctx, sessionRef)
	if session == nil {
		return err
	}
	o.discard(ctx, session, session.Fail)
	return nil
}

// Expire closes a session the processor reported as expired. It stays readable
// so later callbacks for it still report expiry.
func (o *CheckoutOrchestrator) Expire(ctx context.Context, sessionRef string) error {
	session, err := o.lookup(ctx, sessionRef)
	if session == nil {
		return err
	}
	if session.Status != domain.CheckoutExpired {
		o.retire(ctx, session, session.Expire)
	}
	return nil
}

func (o *CheckoutOrchestrator) lookup(ctx context.Context, sessionRef string) (*domain.CheckoutSession, error) {
	session, err := o.sessions.Get(ctx, sessionRef)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// discard moves the session to a terminal status and drops it from the store.
func (o *CheckoutOrchestrator) discard(ctx context.Context, s *domain.CheckoutSession, transition func() error) {
	if err := transition(); err != nil {
		o.logger.Warn("checkout transition rejected", "event", "checkout_transition_rejected", "session_ref", s.ID, "error", err.Error())
	}
	if err := o.sessions.Delete(ctx, s.ID); err != nil {
		o.logger.Error("checkout session delete failed", "event", "checkout_delete_failed", "session_ref", s.ID, "error", err.Error())
	}
	o.release(ctx, s)
}

// retire moves the session to a terminal status and keeps it in the store
// until retention removes it.
func (o *CheckoutOrchestrator) retire(ctx context.Context, s *domain.CheckoutSession, transition func() error) {
	if err := transition(); err != nil {
		o.logger.Warn("checkout transition rejected", "event", "checkout_transition_rejected", "session_ref", s.ID, "error", err.Error())
	} else if err := o.sessions.Save(ctx, s); err != nil {
		o.logger.Error("checkout session save failed", "event", "checkout_save_failed", "session_ref", s.ID, "error", err.Error())
	}
	o.release(ctx, s)
}

func (o *CheckoutOrchestrator) release(ctx context.Context, s *domain.CheckoutSession) {
	if err := o.sessions.ReleasePending(ctx, s.StudentID, s.CourseID, s.ID); err != nil {
		o.logger.Error("checkout pending release failed", "event", "checkout_release_failed", "session_ref", s.ID, "error", err.Error())
	}
}
