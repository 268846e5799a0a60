package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/waste3d/course-marketplace/internal/application"
	"github.com/waste3d/course-marketplace/internal/domain"
)

func TestInitiateCreatesAwaitingSession(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Go in Practice", "50.00")

	res, err := f.checkout.Initiate(context.Background(), "stu-1", course.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if res.RedirectURL != "https://pay.example/c/"+res.SessionRef {
		t.Fatalf("unexpected redirect %q", res.RedirectURL)
	}

	s, err := f.sessions.Get(context.Background(), res.SessionRef)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if s.Status != domain.CheckoutAwaitingConfirmation {
		t.Fatalf("expected awaiting_confirmation, got %s", s.Status)
	}
	if s.Amount.StringFixed(2) != "50.00" || s.Currency != "USD" {
		t.Fatalf("unexpected amount %s %s", s.Amount.StringFixed(2), s.Currency)
	}
}

func TestInitiateUsesEffectivePrice(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Discounted", "80.00")
	course.Discount = 25
	if err := f.store.Create(context.Background(), course); err != nil {
		t.Fatalf("update course: %v", err)
	}

	if _, err := f.checkout.Initiate(context.Background(), "stu-1", course.ID); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if got := f.processor.calls[0].Amount.StringFixed(2); got != "60.00" {
		t.Fatalf("expected 60.00 charged, got %s", got)
	}
}

func TestInitiateAlreadyEnrolled(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Go in Practice", "50.00")
	f.enroll(t, "stu-1", course.ID)
	calls := f.processor.callCount()

	_, err := f.checkout.Initiate(context.Background(), "stu-1", course.ID)
	if !errors.Is(err, domain.ErrAlreadyEnrolled) {
		t.Fatalf("expected ErrAlreadyEnrolled, got %v", err)
	}
	if f.processor.callCount() != calls {
		t.Fatalf("processor must not be called for an enrolled student")
	}
}

func TestInitiateUnpricedCourse(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Draft", "")

	_, err := f.checkout.Initiate(context.Background(), "stu-1", course.ID)
	if !errors.Is(err, domain.ErrCourseUnavailable) {
		t.Fatalf("expected ErrCourseUnavailable, got %v", err)
	}
}

func TestInitiateUnknownCourse(t *testing.T) {
	f := newFixture(t)
	_, err := f.checkout.Initiate(context.Background(), "stu-1", uuid.New())
	if !errors.Is(err, domain.ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestInitiateTwiceResumesOpenCheckout(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Go in Practice", "50.00")

	first, err := f.checkout.Initiate(context.Background(), "stu-1", course.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	second, err := f.checkout.Initiate(context.Background(), "stu-1", course.ID)
	if err != nil {
		t.Fatalf("second initiate: %v", err)
	}
	if second.SessionRef != first.SessionRef || second.RedirectURL != first.RedirectURL {
		t.Fatalf("expected the open checkout to be returned, got %+v", second)
	}
	if f.processor.callCount() != 1 {
		t.Fatalf("expected one processor call, got %d", f.processor.callCount())
	}
}

func TestConfirmRecordsEnrollment(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Go in Practice", "50.00")

	e := f.enroll(t, "stu-1", course.ID)
	if e.StudentID != "stu-1" || e.CourseID != course.ID {
		t.Fatalf("unexpected enrollment %+v", e)
	}
	enrolled, err := f.ledger.IsEnrolled(context.Background(), "stu-1", course.ID)
	if err != nil || !enrolled {
		t.Fatalf("expected enrolled, got %v %v", enrolled, err)
	}
	if _, err := f.sessions.Get(context.Background(), e.SessionRef); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("confirmed session must be discarded, got %v", err)
	}
}

func TestConfirmTwiceReturnsSameEnrollment(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Go in Practice", "50.00")
	ctx := context.Background()

	res, err := f.checkout.Initiate(ctx, "stu-1", course.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	first, err := f.checkout.Confirm(ctx, res.SessionRef, "pay_1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	second, err := f.checkout.Confirm(ctx, res.SessionRef, "pay_1")
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if *first != *second {
		t.Fatalf("expected identical enrollments, got %+v and %+v", first, second)
	}

	list, _ := f.ledger.ListByStudent(ctx, "stu-1")
	if len(list) != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", len(list))
	}
}

func TestConcurrentConfirmSingleEnrollment(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Go in Practice", "50.00")
	ctx := context.Background()

	res, err := f.checkout.Initiate(ctx, "stu-1", course.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*domain.Enrollment, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.checkout.Confirm(ctx, res.SessionRef, "pay_1")
		}(i)
	}
	wg.Wait()

	var winner *domain.Enrollment
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if winner == nil {
			winner = results[i]
			continue
		}
		if *results[i] != *winner {
			t.Fatalf("workers saw different enrollments: %+v vs %+v", results[i], winner)
		}
	}
	count, _ := f.ledger.CountByCourse(ctx, course.ID)
	if count != 1 {
		t.Fatalf("expected one enrollment, got %d", count)
	}
}

func TestConfirmUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.checkout.Confirm(context.Background(), "missing", "pay_1")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestConfirmExpiredSession(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Go in Practice", "50.00")
	ctx := context.Background()

	res, err := f.checkout.Initiate(ctx, "stu-1", course.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	f.checkout.SetClock(func() time.Time { return time.Now().Add(31 * time.Minute) })

	_, err = f.checkout.Confirm(ctx, res.SessionRef, "pay_1")
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	enrolled, _ := f.ledger.IsEnrolled(ctx, "stu-1", course.ID)
	if enrolled {
		t.Fatalf("expired session must not enroll")
	}

	// Redelivery of the callback still reports expiry
	_, err = f.checkout.Confirm(ctx, res.SessionRef, "pay_1")
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("redelivery: expected ErrSessionExpired, got %v", err)
	}

	// The pending claim is released: a new checkout can start
	if _, err := f.checkout.Initiate(ctx, "stu-1", course.ID); err != nil {
		t.Fatalf("initiate after expiry: %v", err)
	}
}

func TestUpstreamTimeoutKeepsSessionAwaiting(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Go in Practice", "50.00")
	f.processor.delay = time.Second
	ctx := context.Background()

	_, err := f.checkout.Initiate(ctx, "stu-1", course.ID)
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	sessionRef := f.processor.calls[0].SessionRef

	s, err := f.sessions.Get(ctx, sessionRef)
	if err != nil {
		t.Fatalf("session must survive the timeout: %v", err)
	}
	if s.Status != domain.CheckoutAwaitingConfirmation {
		t.Fatalf("expected awaiting_confirmation, got %s", s.Status)
	}

	// The processor did create the checkout and calls back later
	if _, err := f.checkout.Confirm(ctx, sessionRef, "pay_late"); err != nil {
		t.Fatalf("late confirm: %v", err)
	}
	enrolled, _ := f.ledger.IsEnrolled(ctx, "stu-1", course.ID)
	if !enrolled {
		t.Fatalf("late confirmation must enroll")
	}
}

func TestRetryAfterUpstreamTimeoutResumesCheckout(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Go in Practice", "50.00")
	f.processor.delay = time.Second
	ctx := context.Background()

	if _, err := f.checkout.Initiate(ctx, "stu-1", course.ID); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	sessionRef := f.processor.calls[0].SessionRef

	// Still down: the retry reports upstream again and keeps the session
	if _, err := f.checkout.Initiate(ctx, "stu-1", course.ID); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream while the processor is down, got %v", err)
	}

	f.processor.delay = 0
	for _, after := range []time.Duration{time.Minute, 10 * time.Minute, 29 * time.Minute} {
		f.checkout.SetClock(func() time.Time { return time.Now().Add(after) })
		res, err := f.checkout.Initiate(ctx, "stu-1", course.ID)
		if err != nil {
			t.Fatalf("retry at +%s: %v", after, err)
		}
		if res.SessionRef != sessionRef || res.RedirectURL != "https://pay.example/c/"+sessionRef {
			t.Fatalf("retry at +%s: expected the original session, got %+v", after, res)
		}
	}

	// Every processor call carried the same session ref; once the redirect
	// is known it is served from the session
	if got := f.processor.callCount(); got != 3 {
		t.Fatalf("expected 3 processor calls, got %d", got)
	}
	for i, call := range f.processor.calls {
		if call.SessionRef != sessionRef {
			t.Fatalf("call %d used session %s, want %s", i, call.SessionRef, sessionRef)
		}
	}

	if _, err := f.checkout.Confirm(ctx, sessionRef, "pay_1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	enrolled, _ := f.ledger.IsEnrolled(ctx, "stu-1", course.ID)
	if !enrolled {
		t.Fatalf("resumed checkout must enroll")
	}
}

// claimHookSessions runs onClaim right before a pending claim is taken.
type claimHookSessions struct {
	application.SessionStore
	onClaim func()
}

func (s *claimHookSessions) ClaimPending(ctx context.Context, studentID string, courseID uuid.UUID, sessionID string, ttl time.Duration) (string, bool, error) {
	if s.onClaim != nil {
		s.onClaim()
		s.onClaim = nil
	}
	return s.SessionStore.ClaimPending(ctx, studentID, courseID, sessionID, ttl)
}

func TestInitiateRechecksLedgerAfterClaim(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Go in Practice", "50.00")
	ctx := context.Background()

	sessions := &claimHookSessions{SessionStore: f.sessions}
	sessions.onClaim = func() {
		// A confirmation for an earlier checkout lands after the first ledger check
		if _, err := f.ledger.RecordEnrollment(ctx, "stu-1", course.ID, "pay_0", "earlier"); err != nil {
			t.Errorf("record: %v", err)
		}
	}
	checkout := application.NewCheckoutOrchestrator(f.store, f.ledger, sessions, f.processor, application.CheckoutConfig{Currency: "USD"}, nil)

	_, err := checkout.Initiate(ctx, "stu-1", course.ID)
	if !errors.Is(err, domain.ErrAlreadyEnrolled) {
		t.Fatalf("expected ErrAlreadyEnrolled, got %v", err)
	}
	if f.processor.callCount() != 0 {
		t.Fatalf("no checkout may be created for an enrolled student")
	}

	// The claim was released
	if _, claimed, err := f.sessions.ClaimPending(ctx, "stu-1", course.ID, "next-session", time.Minute); err != nil || !claimed {
		t.Fatalf("expected the pending claim to be free, claimed=%v err=%v", claimed, err)
	}
}

func TestRejectedCheckoutFailsSession(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Go in Practice", "50.00")
	f.processor.err = fmt.Errorf("%w: card declined", domain.ErrPaymentRejected)
	ctx := context.Background()

	_, err := f.checkout.Initiate(ctx, "stu-1", course.ID)
	if !errors.Is(err, domain.ErrPaymentRejected) {
		t.Fatalf("expected ErrPaymentRejected, got %v", err)
	}
	if _, err := f.sessions.Get(ctx, f.processor.calls[0].SessionRef); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("rejected session must be discarded, got %v", err)
	}

	f.processor.err = nil
	if _, err := f.checkout.Initiate(ctx, "stu-1", course.ID); err != nil {
		t.Fatalf("retry after rejection: %v", err)
	}
}

func TestFailIgnoresUnknownSession(t *testing.T) {
	f := newFixture(t)
	if err := f.checkout.Fail(context.Background(), "missing"); err != nil {
		t.Fatalf("fail on unknown session: %v", err)
	}
}
