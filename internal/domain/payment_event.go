package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PaymentEventCompleted = "checkout.completed"
	PaymentEventFailed    = "checkout.failed"
	PaymentEventExpired   = "checkout.expired"
)

// PaymentEvent is a processor callback as delivered. Handled events are kept
// for audit; the event id makes redelivery a no-op on insert.
type PaymentEvent struct {
	ID         string         `gorm:"primaryKey" json:"id"`
	Type       string         `gorm:"index;not null" json:"type"`
	SessionRef string         `gorm:"index" json:"session_ref"`
	PaymentRef string         `json:"payment_ref"`
	Payload    datatypes.JSON `json:"payload"`
	ReceivedAt time.Time      `json:"received_at"`
}
