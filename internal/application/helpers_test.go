package application_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/waste3d/course-marketplace/internal/application"
	"github.com/waste3d/course-marketplace/internal/domain"
	"github.com/waste3d/course-marketplace/internal/infrastructure/memory"
)

type fakeProcessor struct {
	mu    sync.Mutex
	calls []application.CheckoutRequest
	err   error
	delay time.Duration
}

func (p *fakeProcessor) CreateCheckout(ctx context.Context, req application.CheckoutRequest) (*application.CheckoutResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	err := p.err
	delay := p.delay
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &application.CheckoutResponse{
		ProcessorSessionID: "cs_" + req.SessionRef,
		RedirectURL:        "https://pay.example/c/" + req.SessionRef,
	}, nil
}

func (p *fakeProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fixture struct {
	store     *memory.Store
	sessions  application.SessionStore
	ledger    *application.EnrollmentLedger
	processor *fakeProcessor
	checkout  *application.CheckoutOrchestrator
	catalog   *application.CatalogQueryService
	ratings   *application.RatingService
	publisher *application.PublishingService
	events    *application.PaymentEventHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	sessions := store.Sessions()
	ledger := application.NewEnrollmentLedger(store)
	processor := &fakeProcessor{}
	checkout := application.NewCheckoutOrchestrator(store, ledger, sessions, processor, application.CheckoutConfig{
		Currency:       "USD",
		SessionTTL:     30 * time.Minute,
		PaymentTimeout: 200 * time.Millisecond,
	}, logger)

	return &fixture{
		store:     store,
		sessions:  sessions,
		ledger:    ledger,
		processor: processor,
		checkout:  checkout,
		catalog:   application.NewCatalogQueryService(store, store, ledger, "USD"),
		ratings:   application.NewRatingService(store, store, ledger),
		publisher: application.NewPublishingService(store, logger),
		events:    application.NewPaymentEventHandler(checkout, store, logger),
	}
}

// seedCourse stores a priced course with one free preview and two paid lectures.
func (f *fixture) seedCourse(t *testing.T, title string, price string) *domain.Course {
	t.Helper()
	c := &domain.Course{
		Title:        title,
		EducatorID:   "edu-1",
		EducatorName: "Ada",
		Chapters: []domain.Chapter{
			{Title: "Basics", Order: 1, Lectures: []domain.Lecture{
				{Title: "Intro", DurationMinutes: 30, MediaURL: "https://cdn.example/intro.mp4", IsPreviewFree: true},
				{Title: "Setup", DurationMinutes: 20, MediaURL: "https://cdn.example/setup.mp4"},
			}},
			{Title: "Advanced", Order: 2, Lectures: []domain.Lecture{
				{Title: "Deep dive", DurationMinutes: 45, MediaURL: "https://cdn.example/deep.mp4"},
			}},
		},
	}
	if price != "" {
		c.Price = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	c.AssignIDs()
	if err := f.store.Create(context.Background(), c); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return c
}

// enroll drives a full paid checkout for the pair.
func (f *fixture) enroll(t *testing.T, studentID string, courseID uuid.UUID) *domain.Enrollment {
	t.Helper()
	ctx := context.Background()
	res, err := f.checkout.Initiate(ctx, studentID, courseID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	e, err := f.checkout.Confirm(ctx, res.SessionRef, "pay_"+res.SessionRef)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	return e
}
