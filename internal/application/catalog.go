package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/waste3d/course-marketplace/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type CourseSummary struct {
	ID             uuid.UUID       `json:"id"`
	Title          string          `json:"title"`
	ThumbnailURL   string          `json:"thumbnail_url"`
	EducatorName   string          `json:"educator_name"`
	Price          decimal.Decimal `json:"price"`
	Discount       int             `json:"discount"`
	EffectivePrice decimal.Decimal `json:"effective_price"`
	Purchasable    bool            `json:"purchasable"`
	Currency       string          `json:"currency"`
	Rating         int             `json:"rating"`
	RatingCount    int64           `json:"rating_count"`
	TotalLectures  int             `json:"total_lectures"`
	Duration       string          `json:"duration"`
}

type LectureView struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Duration      string    `json:"duration"`
	IsPreviewFree bool      `json:"is_preview_free"`
	Accessible    bool      `json:"accessible"`
	MediaURL      string    `json:"media_url,omitempty"`
}

type ChapterView struct {
	ID           uuid.UUID     `json:"id"`
	Title        string        `json:"title"`
	Order        int           `json:"order"`
	LectureCount int           `json:"lecture_count"`
	Duration     string        `json:"duration"`
	Lectures     []LectureView `json:"lectures"`
}

type CourseDetail struct {
	CourseSummary
	Description   string        `json:"description"`
	EducatorID    string        `json:"educator_id"`
	StudentCount  int64         `json:"student_count"`
	IsEnrolled    bool          `json:"is_enrolled"`
	Viewer        string        `json:"viewer"`
	Chapters      []ChapterView `json:"chapters"`
	DurationTotal int           `json:"duration_minutes"`
}

type EnrolledCourse struct {
	CourseSummary
	EnrolledAt time.Time `json:"enrolled_at"`
}

type CourseList struct {
	Courses []CourseSummary `json:"courses"`
	Total   int64           `json:"total"`
}

// CatalogQueryService assembles read models; it never writes.
type CatalogQueryService struct {
	courses  CourseStore
	ratings  RatingStore
	ledger   *EnrollmentLedger
	currency string
}

func NewCatalogQueryService(courses CourseStore, ratings RatingStore, ledger *EnrollmentLedger, currency string) *CatalogQueryService {
	return &CatalogQueryService{courses: courses, ratings: ratings, ledger: ledger, currency: currency}
}

func (s *CatalogQueryService) ListCourses(ctx context.Context, q CourseQuery) (*CourseList, error) {
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	courses, total, err := s.courses.List(ctx, q)
	if err != nil {
		return nil, err
	}
	summaries, err := s.summarize(ctx, courses)
	if err != nil {
		return nil, err
	}
	return &CourseList{Courses: summaries, Total: total}, nil
}

// GetCourseDetail gates every lecture for the viewer. studentID is empty for
// anonymous viewers.
func (s *CatalogQueryService) GetCourseDetail(ctx context.Context, courseID uuid.UUID, studentID string) (*CourseDetail, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.ledger.IsEnrolled(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	viewer := domain.ResolveViewer(studentID, enrolled)

	ratings, err := s.ratings.Summaries(ctx, []uuid.UUID{courseID})
	if err != nil {
		return nil, err
	}
	students, err := s.ledger.CountByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	detail := &CourseDetail{
		CourseSummary: s.summary(course, ratings[courseID]),
		Description:   course.Description,
		EducatorID:    course.EducatorID,
		StudentCount:  students,
		IsEnrolled:    enrolled,
		Viewer:        viewer.String(),
		Chapters:      make([]ChapterView, 0, len(course.Chapters)),
		DurationTotal: course.Duration(),
	}
	for i := range course.Chapters {
		ch := &course.Chapters[i]
		view := ChapterView{
			ID:           ch.ID,
			Title:        ch.Title,
			Order:        ch.Order,
			LectureCount: len(ch.Lectures),
			Duration:     domain.FormatMinutes(ch.Duration()),
			Lectures:     make([]LectureView, 0, len(ch.Lectures)),
		}
		for _, l := range ch.Lectures {
			lv := LectureView{
				ID:            l.ID,
				Title:         l.Title,
				Duration:      domain.FormatMinutes(l.DurationMinutes),
				IsPreviewFree: l.IsPreviewFree,
				Accessible:    domain.CanAccess(l, viewer),
			}
			if lv.Accessible {
				lv.MediaURL = l.MediaURL
			}
			view.Lectures = append(view.Lectures, lv)
		}
		detail.Chapters = append(detail.Chapters, view)
	}
	return detail, nil
}

// ListMyEnrollments returns the student's courses, most recent enrollment first.
func (s *CatalogQueryService) ListMyEnrollments(ctx context.Context, studentID string) ([]EnrolledCourse, error) {
	enrollments, err := s.ledger.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(enrollments) == 0 {
		return []EnrolledCourse{}, nil
	}

	ids := make([]uuid.UUID, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.CourseID)
	}
	courses, err := s.courses.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*domain.Course, len(courses))
	for i := range courses {
		byID[courses[i].ID] = &courses[i]
	}
	ratings, err := s.ratings.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Ledger order wins; courses deleted since enrollment are skipped
	result := make([]EnrolledCourse, 0, len(enrollments))
	for _, e := range enrollments {
		c, ok := byID[e.CourseID]
		if !ok {
			continue
		}
		result = append(result, EnrolledCourse{
			CourseSummary: s.summary(c, ratings[e.CourseID]),
			EnrolledAt:    e.EnrolledAt,
		})
	}
	return result, nil
}

func (s *CatalogQueryService) summarize(ctx context.Context, courses []domain.Course) ([]CourseSummary, error) {
	ids := make([]uuid.UUID, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	ratings, err := s.ratings.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]CourseSummary, 0, len(courses))
	for i := range courses {
		out = append(out, s.summary(&courses[i], ratings[courses[i].ID]))
	}
	return out, nil
}

func (s *CatalogQueryService) summary(c *domain.Course, r domain.RatingSummary) CourseSummary {
	return CourseSummary{
		ID:             c.ID,
		Title:          c.Title,
		ThumbnailURL:   c.ThumbnailURL,
		EducatorName:   c.EducatorName,
		Price:          c.Price.Decimal,
		Discount:       c.Discount,
		EffectivePrice: c.EffectivePrice(),
		Purchasable:    c.Priced(),
		Currency:       s.currency,
		Rating:         r.Display(),
		RatingCount:    r.Count,
		TotalLectures:  c.TotalLectures(),
		Duration:       domain.FormatMinutes(c.Duration()),
	}
}
