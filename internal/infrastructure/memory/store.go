package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/waste3d/course-marketplace/internal/application"
	"github.com/waste3d/course-marketplace/internal/domain"
)

type enrollmentKey struct {
	studentID string
	courseID  uuid.UUID
}

type sessionRecord struct {
	payload   []byte
	expiresAt time.Time
}

type pendingRecord struct {
	sessionID string
	expiresAt time.Time
}

// Store keeps every aggregate in process memory. It backs local runs with
// STORAGE_DRIVER=memory and the application tests.
type Store struct {
	mu sync.RWMutex

	courses     map[uuid.UUID]domain.Course
	enrollments map[enrollmentKey]domain.Enrollment
	enrollSeq   map[enrollmentKey]int64
	seq         int64
	ratings     map[enrollmentKey]domain.Rating
	sessions    map[string]sessionRecord
	pending     map[enrollmentKey]pendingRecord
	events      map[string]domain.PaymentEvent

	// retention keeps finished sessions around past their deadline so
	// late callbacks can be told the session expired
	retention time.Duration
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		courses:     make(map[uuid.UUID]domain.Course),
		enrollments: make(map[enrollmentKey]domain.Enrollment),
		enrollSeq:   make(map[enrollmentKey]int64),
		ratings:     make(map[enrollmentKey]domain.Rating),
		sessions:    make(map[string]sessionRecord),
		pending:     make(map[enrollmentKey]pendingRecord),
		events:      make(map[string]domain.PaymentEvent),
		retention:   24 * time.Hour,
		now:         time.Now,
	}
}

// SetClock replaces the store clock; used to simulate session retention.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// === Courses ===

func (s *Store) List(_ context.Context, q application.CourseQuery) ([]domain.Course, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(q.Search))
	matched := make([]domain.Course, 0, len(s.courses))
	for _, c := range s.courses {
		if search != "" && !strings.Contains(strings.ToLower(c.Title), search) {
			continue
		}
		matched = append(matched, cloneCourse(c))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].Title < matched[j].Title
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if q.Offset >= len(matched) {
		return []domain.Course{}, total, nil
	}
	end := len(matched)
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return matched[q.Offset:end], total, nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, domain.ErrCourseNotFound
	}
	clone := cloneCourse(c)
	return &clone, nil
}

func (s *Store) GetByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Course, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.courses[id]; ok {
			out = append(out, cloneCourse(c))
		}
	}
	return out, nil
}

func (s *Store) Create(_ context.Context, c *domain.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.courses[c.ID] = cloneCourse(*c)
	return nil
}

func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.courses, id)
	return nil
}

// === Enrollments ===

func (s *Store) Insert(_ context.Context, e *domain.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := enrollmentKey{e.StudentID, e.CourseID}
	if _, exists := s.enrollments[key]; exists {
		return domain.ErrDuplicateEnrollment
	}
	for _, existing := range s.enrollments {
		if existing.PaymentRef == e.PaymentRef {
			return domain.ErrDuplicateEnrollment
		}
	}
	s.seq++
	s.enrollments[key] = *e
	s.enrollSeq[key] = s.seq
	return nil
}

func (s *Store) Get(_ context.Context, studentID string, courseID uuid.UUID) (*domain.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[enrollmentKey{studentID, courseID}]
	if !ok {
		return nil, domain.ErrEnrollmentNotFound
	}
	return &e, nil
}

func (s *Store) FindByPaymentRef(_ context.Context, paymentRef string) (*domain.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.enrollments {
		if e.PaymentRef == paymentRef {
			found := e
			return &found, nil
		}
	}
	return nil, domain.ErrEnrollmentNotFound
}

func (s *Store) ListByStudent(_ context.Context, studentID string) ([]domain.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type ordered struct {
		e   domain.Enrollment
		seq int64
	}
	var list []ordered
	for key, e := range s.enrollments {
		if key.studentID == studentID {
			list = append(list, ordered{e, s.enrollSeq[key]})
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].e.EnrolledAt.Equal(list[j].e.EnrolledAt) {
			return list[i].seq > list[j].seq
		}
		return list[i].e.EnrolledAt.After(list[j].e.EnrolledAt)
	})
	out := make([]domain.Enrollment, 0, len(list))
	for _, o := range list {
		out = append(out, o.e)
	}
	return out, nil
}

func (s *Store) CountByCourse(_ context.Context, courseID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for key := range s.enrollments {
		if key.courseID == courseID {
			n++
		}
	}
	return n, nil
}

// === Ratings ===

func (s *Store) Upsert(_ context.Context, r *domain.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := enrollmentKey{r.StudentID, r.CourseID}
	if existing, ok := s.ratings[key]; ok {
		r.CreatedAt = existing.CreatedAt
	}
	s.ratings[key] = *r
	return nil
}

func (s *Store) Summaries(_ context.Context, courseIDs []uuid.UUID) (map[uuid.UUID]domain.RatingSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[uuid.UUID]bool, len(courseIDs))
	for _, id := range courseIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID]domain.RatingSummary, len(courseIDs))
	for key, r := range s.ratings {
		if !wanted[key.courseID] {
			continue
		}
		sum := out[key.courseID]
		sum.Count++
		sum.Total += int64(r.Score)
		out[key.courseID] = sum
	}
	return out, nil
}

// === Checkout sessions ===

func (s *Store) Save(_ context.Context, cs *domain.CheckoutSession) error {
	payload, err := json.Marshal(cs)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[cs.ID] = sessionRecord{payload: payload, expiresAt: cs.ExpiresAt.Add(s.retention)}
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (*domain.CheckoutSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok || !s.now().Before(rec.expiresAt) {
		return nil, domain.ErrSessionNotFound
	}
	var cs domain.CheckoutSession
	if err := json.Unmarshal(rec.payload, &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *Store) ClaimPending(_ context.Context, studentID string, courseID uuid.UUID, sessionID string, ttl time.Duration) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := enrollmentKey{studentID, courseID}
	now := s.now()
	if rec, ok := s.pending[key]; ok && now.Before(rec.expiresAt) {
		return rec.sessionID, false, nil
	}
	s.pending[key] = pendingRecord{sessionID: sessionID, expiresAt: now.Add(ttl)}
	return sessionID, true, nil
}

func (s *Store) ReleasePending(_ context.Context, studentID string, courseID uuid.UUID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := enrollmentKey{studentID, courseID}
	if rec, ok := s.pending[key]; ok && rec.sessionID == sessionID {
		delete(s.pending, key)
	}
	return nil
}

// === Payment events ===

func (s *Store) Append(_ context.Context, e *domain.PaymentEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[e.ID]; exists {
		return false, nil
	}
	s.events[e.ID] = *e
	return true, nil
}

func (s *Store) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Sessions adapts the store to application.SessionStore, whose Get and
// Delete would otherwise collide with the enrollment and course methods.
func (s *Store) Sessions() application.SessionStore {
	return sessionStore{s}
}

type sessionStore struct{ s *Store }

func (a sessionStore) Save(ctx context.Context, cs *domain.CheckoutSession) error {
	return a.s.Save(ctx, cs)
}

func (a sessionStore) Get(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	return a.s.GetSession(ctx, id)
}

func (a sessionStore) Delete(ctx context.Context, id string) error {
	return a.s.DeleteSession(ctx, id)
}

func (a sessionStore) ClaimPending(ctx context.Context, studentID string, courseID uuid.UUID, sessionID string, ttl time.Duration) (string, bool, error) {
	return a.s.ClaimPending(ctx, studentID, courseID, sessionID, ttl)
}

func (a sessionStore) ReleasePending(ctx context.Context, studentID string, courseID uuid.UUID, sessionID string) error {
	return a.s.ReleasePending(ctx, studentID, courseID, sessionID)
}

func cloneCourse(c domain.Course) domain.Course {
	chapters := make([]domain.Chapter, len(c.Chapters))
	for i, ch := range c.Chapters {
		ch.Lectures = append([]domain.Lecture(nil), ch.Lectures...)
		chapters[i] = ch
	}
	c.Chapters = chapters
	return c
}

var (
	_ application.CourseStore       = (*Store)(nil)
	_ application.EnrollmentStore   = (*Store)(nil)
	_ application.RatingStore       = (*Store)(nil)
	_ application.PaymentEventStore = (*Store)(nil)
)
