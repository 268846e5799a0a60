package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/waste3d/course-marketplace/internal/domain"
)

// PaymentEventHandler is the entry point for processor callbacks. The caller
// must have verified the delivery's authenticity.
type PaymentEventHandler struct {
	checkout *CheckoutOrchestrator
	events   PaymentEventStore
	logger   *slog.Logger
	now      func() time.Time
}

func NewPaymentEventHandler(checkout *CheckoutOrchestrator, events PaymentEventStore, logger *slog.Logger) *PaymentEventHandler {
	return &PaymentEventHandler{checkout: checkout, events: events, logger: resolveLogger(logger), now: time.Now}
}

// Handle dispatches one event. For checkout.completed the resulting
// enrollment is returned.
func (h *PaymentEventHandler) Handle(ctx context.Context, event domain.PaymentEvent) (*domain.Enrollment, error) {
	if strings.TrimSpace(event.ID) == "" || strings.TrimSpace(event.SessionRef) == "" {
		return nil, fmt.Errorf("%w: event id and session reference are required", domain.ErrValidation)
	}

	var (
		enrollment *domain.Enrollment
		err        error
	)
	switch event.Type {
	case domain.PaymentEventCompleted:
		enrollment, err = h.checkout.Confirm(ctx, event.SessionRef, event.PaymentRef)
	case domain.PaymentEventFailed:
		err = h.checkout.Fail(ctx, event.SessionRef)
	case domain.PaymentEventExpired:
		err = h.checkout.Expire(ctx, event.SessionRef)
	default:
		h.logger.Info("payment event ignored", "event", "payment_event_ignored", "type", event.Type, "event_id", event.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = h.now().UTC()
	}
	first, err := h.events.Append(ctx, &event)
	if err != nil {
		// The effect is applied already; the audit row is best effort
		h.logger.Error("payment event append failed", "event", "payment_event_append_failed", "event_id", event.ID, "error", err.Error())
	} else if !first {
		h.logger.Info("payment event redelivered", "event", "payment_event_redelivered", "event_id", event.ID)
	}
	return enrollment, nil
}
