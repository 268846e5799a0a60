package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/waste3d/course-marketplace/internal/application"
	"github.com/waste3d/course-marketplace/internal/middleware"
)

type EnrollmentHandler struct {
	checkout *application.CheckoutOrchestrator
	catalog  *application.CatalogQueryService
	ratings  *application.RatingService
}

func NewEnrollmentHandler(checkout *application.CheckoutOrchestrator, catalog *application.CatalogQueryService, ratings *application.RatingService) *EnrollmentHandler {
	return &EnrollmentHandler{checkout: checkout, catalog: catalog, ratings: ratings}
}

// POST /api/v1/courses/:id/enroll
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	courseID, ok := courseParam(c)
	if !ok {
		return
	}

	res, err := h.checkout.Initiate(c, c.GetString(middleware.ContextUserID), courseID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/v1/user/enrollments
func (h *EnrollmentHandler) MyEnrollments(c *gin.Context) {
	res, err := h.catalog.ListMyEnrollments(c, c.GetString(middleware.ContextUserID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": res})
}

// POST /api/v1/courses/:id/rating
func (h *EnrollmentHandler) Rate(c *gin.Context) {
	courseID, ok := courseParam(c)
	if !ok {
		return
	}
	var req struct {
		Score int `json:"score"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Field 'score' is required"})
		return
	}

	rating, err := h.ratings.SubmitRating(c, c.GetString(middleware.ContextUserID), courseID, req.Score)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rating)
}
