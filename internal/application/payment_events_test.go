package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/waste3d/course-marketplace/internal/domain"
)

func TestPaymentEventCompletedEnrolls(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Go in Practice", "50.00")
	ctx := context.Background()

	res, err := f.checkout.Initiate(ctx, "stu-1", course.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	event := domain.PaymentEvent{ID: "evt_1", Type: domain.PaymentEventCompleted, SessionRef: res.SessionRef, PaymentRef: "pay_1"}

	e, err := f.events.Handle(ctx, event)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if e == nil || e.CourseID != course.ID {
		t.Fatalf("expected enrollment for the course, got %+v", e)
	}

	// Redelivery is absorbed
	again, err := f.events.Handle(ctx, event)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if *again != *e {
		t.Fatalf("redelivery must return the same enrollment")
	}
	if f.store.EventCount() != 1 {
		t.Fatalf("expected one stored event, got %d", f.store.EventCount())
	}
}

func TestPaymentEventFailedDiscardsSession(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Go in Practice", "50.00")
	ctx := context.Background()

	res, err := f.checkout.Initiate(ctx, "stu-1", course.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if _, err := f.events.Handle(ctx, domain.PaymentEvent{ID: "evt_2", Type: domain.PaymentEventFailed, SessionRef: res.SessionRef}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, err := f.sessions.Get(ctx, res.SessionRef); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("failed session must be discarded, got %v", err)
	}

	// Completion after failure cannot enroll
	_, err = f.events.Handle(ctx, domain.PaymentEvent{ID: "evt_3", Type: domain.PaymentEventCompleted, SessionRef: res.SessionRef, PaymentRef: "pay_1"})
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestPaymentEventExpiredKeepsReportingExpiry(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Go in Practice", "50.00")
	ctx := context.Background()

	res, err := f.checkout.Initiate(ctx, "stu-1", course.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	expired := domain.PaymentEvent{ID: "evt_5", Type: domain.PaymentEventExpired, SessionRef: res.SessionRef}
	if _, err := f.events.Handle(ctx, expired); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, err := f.events.Handle(ctx, expired); err != nil {
		t.Fatalf("redelivered expiry: %v", err)
	}

	s, err := f.sessions.Get(ctx, res.SessionRef)
	if err != nil {
		t.Fatalf("expired session must be retained: %v", err)
	}
	if s.Status != domain.CheckoutExpired {
		t.Fatalf("expected expired, got %s", s.Status)
	}

	// A completion that races the expiry is refused
	_, err = f.events.Handle(ctx, domain.PaymentEvent{ID: "evt_6", Type: domain.PaymentEventCompleted, SessionRef: res.SessionRef, PaymentRef: "pay_1"})
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	// The pair is free for a new checkout
	again, err := f.checkout.Initiate(ctx, "stu-1", course.ID)
	if err != nil {
		t.Fatalf("initiate after expiry: %v", err)
	}
	if again.SessionRef == res.SessionRef {
		t.Fatalf("expected a new session")
	}
}

func TestPaymentEventUnknownTypeIgnored(t *testing.T) {
	f := newFixture(t)
	e, err := f.events.Handle(context.Background(), domain.PaymentEvent{ID: "evt_4", Type: "refund.created", SessionRef: "s"})
	if err != nil || e != nil {
		t.Fatalf("unknown events must be ignored, got %v %v", e, err)
	}
	if f.store.EventCount() != 0 {
		t.Fatalf("ignored events are not stored")
	}
}

func TestPaymentEventRequiresIdentifiers(t *testing.T) {
	f := newFixture(t)
	_, err := f.events.Handle(context.Background(), domain.PaymentEvent{Type: domain.PaymentEventCompleted})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
