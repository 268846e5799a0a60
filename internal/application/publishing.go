package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/waste3d/course-marketplace/internal/domain"
)

// Educator is the identity publishing content.
type Educator struct {
	ID   string
	Name string
}

type LectureDraft struct {
	Title           string `json:"title" binding:"required"`
	DurationMinutes int    `json:"duration_minutes"`
	MediaURL        string `json:"media_url"`
	IsPreviewFree   bool   `json:"is_preview_free"`
}

type ChapterDraft struct {
	Title    string         `json:"title" binding:"required"`
	Order    int            `json:"order"`
	Lectures []LectureDraft `json:"lectures"`
}

// CourseDraft is the typed shape course content must have to enter the system.
type CourseDraft struct {
	Title        string           `json:"title" binding:"required"`
	Description  string           `json:"description"`
	ThumbnailURL string           `json:"thumbnail_url"`
	Price        *decimal.Decimal `json:"price"`
	Discount     int              `json:"discount"`
	Chapters     []ChapterDraft   `json:"chapters"`
}

type PublishingService struct {
	courses CourseStore
	logger  *slog.Logger
}

func NewPublishingService(courses CourseStore, logger *slog.Logger) *PublishingService {
	return &PublishingService{courses: courses, logger: resolveLogger(logger)}
}

// Publish validates the draft and stores it as a new course. Nothing is
// written when validation fails.
func (s *PublishingService) Publish(ctx context.Context, educator Educator, draft CourseDraft) (*domain.Course, error) {
	if strings.TrimSpace(educator.ID) == "" {
		return nil, domain.ErrForbidden
	}

	course := draft.toCourse(educator)
	if err := course.Validate(); err != nil {
		return nil, err
	}
	course.AssignIDs()

	if err := s.courses.Create(ctx, course); err != nil {
		return nil, err
	}
	s.logger.Info("course published",
		"event", "course_published",
		"course_id", course.ID.String(),
		"educator_id", educator.ID,
		"lectures", course.TotalLectures(),
	)
	return course, nil
}

// Delete removes a course with its content. Only the owning educator may do so.
func (s *PublishingService) Delete(ctx context.Context, educator Educator, courseID uuid.UUID) error {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return err
	}
	if course.EducatorID != educator.ID {
		return fmt.Errorf("%w: course belongs to another educator", domain.ErrForbidden)
	}
	return s.courses.Delete(ctx, courseID)
}

func (d CourseDraft) toCourse(educator Educator) *domain.Course {
	course := &domain.Course{
		Title:        strings.TrimSpace(d.Title),
		Description:  d.Description,
		ThumbnailURL: d.ThumbnailURL,
		Discount:     d.Discount,
		EducatorID:   educator.ID,
		EducatorName: educator.Name,
	}
	if d.Price != nil {
		course.Price = decimal.NewNullDecimal(*d.Price)
	}

	// Missing order indexes follow the authored position
	for i, ch := range d.Chapters {
		order := ch.Order
		if order == 0 {
			order = i + 1
		}
		chapter := domain.Chapter{Title: strings.TrimSpace(ch.Title), Order: order}
		for _, l := range ch.Lectures {
			chapter.Lectures = append(chapter.Lectures, domain.Lecture{
				Title:           strings.TrimSpace(l.Title),
				DurationMinutes: l.DurationMinutes,
				MediaURL:        l.MediaURL,
				IsPreviewFree:   l.IsPreviewFree,
			})
		}
		course.Chapters = append(course.Chapters, chapter)
	}
	sort.SliceStable(course.Chapters, func(i, j int) bool {
		return course.Chapters[i].Order < course.Chapters[j].Order
	})
	return course
}
