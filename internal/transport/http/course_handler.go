package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/waste3d/course-marketplace/internal/application"
	"github.com/waste3d/course-marketplace/internal/middleware"
)

type CourseHandler struct {
	catalog   *application.CatalogQueryService
	publisher *application.PublishingService
}

func NewCourseHandler(catalog *application.CatalogQueryService, publisher *application.PublishingService) *CourseHandler {
	return &CourseHandler{catalog: catalog, publisher: publisher}
}

// GET /api/v1/courses
func (h *CourseHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	res, err := h.catalog.ListCourses(c, application.CourseQuery{
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/v1/courses/:id
func (h *CourseHandler) GetOne(c *gin.Context) {
	courseID, ok := courseParam(c)
	if !ok {
		return
	}

	res, err := h.catalog.GetCourseDetail(c, courseID, c.GetString(middleware.ContextUserID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/v1/educator/courses
func (h *CourseHandler) Publish(c *gin.Context) {
	var req application.CourseDraft
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	course, err := h.publisher.Publish(c, educator(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": course.ID})
}

// DELETE /api/v1/educator/courses/:id
func (h *CourseHandler) Delete(c *gin.Context) {
	courseID, ok := courseParam(c)
	if !ok {
		return
	}
	if err := h.publisher.Delete(c, educator(c), courseID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func educator(c *gin.Context) application.Educator {
	return application.Educator{
		ID:   c.GetString(middleware.ContextUserID),
		Name: c.GetString(middleware.ContextName),
	}
}

func courseParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course id"})
		return uuid.Nil, false
	}
	return id, true
}
