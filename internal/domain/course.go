package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Course struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string              `gorm:"index;not null" json:"title"`
	Description  string              `json:"description"`
	ThumbnailURL string              `json:"thumbnail_url"`
	Price        decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"price"`
	Discount     int                 `gorm:"not null;default:0" json:"discount"` // percent, 0..100
	EducatorID   string              `gorm:"index;not null" json:"educator_id"`
	EducatorName string              `json:"educator_name"`

	// Course owns its content: deleting a course removes the whole tree
	Chapters []Chapter `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE;" json:"chapters"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Chapter struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_chapter_order" json:"course_id"`
	Title    string    `json:"title"`
	Order    int       `gorm:"uniqueIndex:idx_chapter_order" json:"order"`

	Lectures []Lecture `gorm:"foreignKey:ChapterID;constraint:OnDelete:CASCADE;" json:"lectures"`
}

type Lecture struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChapterID       uuid.UUID `gorm:"type:uuid;index" json:"chapter_id"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration_minutes"`
	MediaURL        string    `json:"media_url"`
	IsPreviewFree   bool      `json:"is_preview_free"`
	Order           int       `json:"order"`
}

// Priced reports whether the course can be sold at all.
func (c *Course) Priced() bool {
	return c.Price.Valid
}

// EffectivePrice is price × (1 − discount/100) rounded to cents, never negative.
// A course without a price yields zero; check Priced first.
func (c *Course) EffectivePrice() decimal.Decimal {
	if !c.Price.Valid {
		return decimal.Zero
	}
	discount := clampDiscount(c.Discount)
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromInt(int64(discount)).Div(decimal.NewFromInt(100)))
	price := c.Price.Decimal.Mul(factor).Round(2)
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

func clampDiscount(d int) int {
	switch {
	case d < 0:
		return 0
	case d > 100:
		return 100
	}
	return d
}

// TotalLectures counts lectures across all chapters.
func (c *Course) TotalLectures() int {
	total := 0
	for _, ch := range c.Chapters {
		total += len(ch.Lectures)
	}
	return total
}

// Duration sums lecture durations of the chapter. Malformed (negative) values count as 0.
func (ch *Chapter) Duration() int {
	total := 0
	for _, l := range ch.Lectures {
		if l.DurationMinutes > 0 {
			total += l.DurationMinutes
		}
	}
	return total
}

// Duration is the total length of the course in minutes.
func (c *Course) Duration() int {
	total := 0
	for i := range c.Chapters {
		total += c.Chapters[i].Duration()
	}
	return total
}

// Lecture looks a lecture up by id.
func (c *Course) Lecture(id uuid.UUID) (*Lecture, bool) {
	for i := range c.Chapters {
		for j := range c.Chapters[i].Lectures {
			if c.Chapters[i].Lectures[j].ID == id {
				return &c.Chapters[i].Lectures[j], true
			}
		}
	}
	return nil, false
}

// Validate checks the invariants a published course must hold.
func (c *Course) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(c.EducatorID) == "" {
		return fmt.Errorf("%w: educator is required", ErrValidation)
	}
	if c.Discount < 0 || c.Discount > 100 {
		return ErrInvalidDiscount
	}
	if c.Price.Valid && c.Price.Decimal.IsNegative() {
		return ErrInvalidPrice
	}
	if len(c.Chapters) == 0 {
		return fmt.Errorf("%w: course must have at least one chapter", ErrValidation)
	}

	seen := make(map[int]bool, len(c.Chapters))
	for i, ch := range c.Chapters {
		if seen[ch.Order] {
			return fmt.Errorf("%w: chapter %d: duplicate order %d", ErrValidation, i+1, ch.Order)
		}
		seen[ch.Order] = true
		if strings.TrimSpace(ch.Title) == "" {
			return fmt.Errorf("%w: chapter %d: title is required", ErrValidation, i+1)
		}
		for j, l := range ch.Lectures {
			if strings.TrimSpace(l.Title) == "" {
				return fmt.Errorf("%w: chapter %d lecture %d: title is required", ErrValidation, i+1, j+1)
			}
			if l.DurationMinutes < 0 {
				return fmt.Errorf("chapter %d lecture %d: %w", i+1, j+1, ErrInvalidDuration)
			}
		}
	}
	return nil
}

// AssignIDs fills missing ids of the tree and links children to parents.
func (c *Course) AssignIDs() {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	for i := range c.Chapters {
		ch := &c.Chapters[i]
		if ch.ID == uuid.Nil {
			ch.ID = uuid.New()
		}
		ch.CourseID = c.ID
		for j := range ch.Lectures {
			l := &ch.Lectures[j]
			if l.ID == uuid.Nil {
				l.ID = uuid.New()
			}
			l.ChapterID = ch.ID
			l.Order = j + 1
		}
	}
}
