package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinScore = 1
	MaxScore = 5
)

// Rating is unique per (student, course); a resubmission replaces the score.
type Rating struct {
	StudentID string    `gorm:"primaryKey" json:"student_id"`
	CourseID  uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"course_id"`
	Score     int       `gorm:"not null" json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ValidateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return ErrInvalidScore
	}
	return nil
}

// RatingSummary is the aggregated rating set of one course.
type RatingSummary struct {
	Count int64
	Total int64
}

func SummarizeRatings(scores []int) RatingSummary {
	var s RatingSummary
	for _, score := range scores {
		s.Count++
		s.Total += int64(score)
	}
	return s
}

// Average is the arithmetic mean of the scores, 0 for an empty set.
func (s RatingSummary) Average() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Total) / float64(s.Count)
}

// Display truncates the mean toward zero: 4.75 is shown as 4.
func (s RatingSummary) Display() int {
	if s.Count == 0 {
		return 0
	}
	return int(s.Total / s.Count)
}

// AverageRating is the mean of scores, 0 when there are none.
func AverageRating(scores []int) float64 {
	return SummarizeRatings(scores).Average()
}
