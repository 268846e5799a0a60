package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/waste3d/course-marketplace/internal/application"
	"github.com/waste3d/course-marketplace/internal/domain"
)

const (
	courseListPrefix = "courses:list:"
	courseDetailKey  = "course:detail:"

	courseListTTL   = 10 * time.Minute
	courseDetailTTL = time.Hour
)

// CourseRepository stores courses in postgres and keeps a read-through copy
// of lists and details in redis. rdb may be nil, then caching is off.
type CourseRepository struct {
	db     *gorm.DB
	rdb    *redis.Client
	logger *slog.Logger
}

func NewCourseRepository(db *gorm.DB, rdb *redis.Client, logger *slog.Logger) *CourseRepository {
	return &CourseRepository{db: db, rdb: rdb, logger: resolveLogger(logger)}
}

type cachedCourseList struct {
	Courses []domain.Course
	Total   int64
}

func (r *CourseRepository) List(ctx context.Context, q application.CourseQuery) ([]domain.Course, int64, error) {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	key := fmt.Sprintf("%s%s:%d:%d", courseListPrefix, search, q.Limit, q.Offset)

	// 1. Cache
	var cached cachedCourseList
	if r.cacheGet(ctx, key, &cached) {
		return cached.Courses, cached.Total, nil
	}

	// 2. DB
	var (
		courses []domain.Course
		total   int64
	)
	query := r.db.WithContext(ctx).Model(&domain.Course{})
	if search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+search+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, logError(r.logger, "course", "course_repo_count_failed", err)
	}
	err := withContent(query).
		Order("created_at desc").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&courses).Error
	if err != nil {
		return nil, 0, logError(r.logger, "course", "course_repo_list_failed", err)
	}

	// 3. Lists change only on publish/delete, which drop them
	r.cacheSet(ctx, key, cachedCourseList{Courses: courses, Total: total}, courseListTTL)
	return courses, total, nil
}

func (r *CourseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	key := courseDetailKey + id.String()

	var cached domain.Course
	if r.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	var course domain.Course
	err := withContent(r.db.WithContext(ctx)).First(&course, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCourseNotFound
	}
	if err != nil {
		return nil, logError(r.logger, "course", "course_repo_get_failed", err, "course_id", id.String())
	}

	r.cacheSet(ctx, key, course, courseDetailTTL)
	return &course, nil
}

func (r *CourseRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Course, error) {
	if len(ids) == 0 {
		return []domain.Course{}, nil
	}
	var courses []domain.Course
	err := withContent(r.db.WithContext(ctx)).Where("id IN ?", ids).Find(&courses).Error
	if err != nil {
		return nil, logError(r.logger, "course", "course_repo_get_many_failed", err, "count", len(ids))
	}
	return courses, nil
}

// Create inserts the course together with its chapters and lectures.
func (r *CourseRepository) Create(ctx context.Context, c *domain.Course) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: course content conflicts with an existing record", domain.ErrValidation)
		}
		return logError(r.logger, "course", "course_repo_create_failed", err, "course_id", c.ID.String())
	}
	r.invalidateLists(ctx)
	return nil
}

// Delete removes the course and its content tree in one transaction.
func (r *CourseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chapterIDs []uuid.UUID
		if err := tx.Model(&domain.Chapter{}).Where("course_id = ?", id).Pluck("id", &chapterIDs).Error; err != nil {
			return err
		}
		if len(chapterIDs) > 0 {
			if err := tx.Where("chapter_id IN ?", chapterIDs).Delete(&domain.Lecture{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("course_id = ?", id).Delete(&domain.Chapter{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Course{}, "id = ?", id).Error
	})
	if err != nil {
		return logError(r.logger, "course", "course_repo_delete_failed", err, "course_id", id.String())
	}

	if r.rdb != nil {
		r.rdb.Del(ctx, courseDetailKey+id.String())
	}
	r.invalidateLists(ctx)
	return nil
}

func withContent(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" asc")
		}).
		Preload("Chapters.Lectures", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" asc")
		})
}

// invalidateLists drops every cached list page.
func (r *CourseRepository) invalidateLists(ctx context.Context) {
	if r.rdb == nil {
		return
	}
	iter := r.rdb.Scan(ctx, 0, courseListPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("course list cache scan failed", "event", "course_cache_scan_failed", "error", err.Error())
		return
	}
	if len(keys) > 0 {
		r.rdb.Del(ctx, keys...)
	}
}

func (r *CourseRepository) cacheGet(ctx context.Context, key string, dst any) bool {
	if r.rdb == nil {
		return false
	}
	val, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(val, dst) == nil
}

func (r *CourseRepository) cacheSet(ctx context.Context, key string, v any, ttl time.Duration) {
	if r.rdb == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	r.rdb.Set(ctx, key, data, ttl)
}

var _ application.CourseStore = (*CourseRepository)(nil)
