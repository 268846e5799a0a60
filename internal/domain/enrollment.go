package domain

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment is a confirmed, immutable ledger entry.
type Enrollment struct {
	StudentID  string    `gorm:"primaryKey" json:"student_id"`
	CourseID   uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"course_id"`
	PaymentRef string    `gorm:"uniqueIndex;not null" json:"payment_ref"`
	SessionRef string    `gorm:"index" json:"session_ref"`
	EnrolledAt time.Time `gorm:"index;not null" json:"enrolled_at"`
}
