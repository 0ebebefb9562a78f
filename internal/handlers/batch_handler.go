package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classhub/lms-service/internal/repositories"
	"github.com/classhub/lms-service/internal/services"
	"github.com/classhub/lms-service/internal/utils"
	"github.com/classhub/lms-service/internal/validator"
)

type BatchHandler struct {
	BaseHandler
	batchService services.BatchService
	validator    *validator.Validator
}

func NewBatchHandler(batchService services.BatchService, validator *validator.Validator, logger utils.Logger) *BatchHandler {
	return &BatchHandler{
		BaseHandler:  NewBaseHandler(logger),
		batchService: batchService,
		validator:    validator,
	}
}

// CreateBatch creates a new batch owned by the caller
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	h.LogRequest(c, "Creating batch")

	var req services.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	batch, err := h.batchService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, batch)
}

// GetBatch returns one batch
func (h *BatchHandler) GetBatch(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	batch, err := h.batchService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, batch)
}

// UpdateBatch updates batch metadata
func (h *BatchHandler) UpdateBatch(c *gin.Context) {
	h.LogRequest(c, "Updating batch")

	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	batch, err := h.batchService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, batch)
}

// DeleteBatch removes a batch
func (h *BatchHandler) DeleteBatch(c *gin.Context) {
	h.LogRequest(c, "Deleting batch")

	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.batchService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Batch deleted successfully", Timestamp: time.Now().UTC()})
}

// ListOwnBatches lists batches owned by the caller
func (h *BatchHandler) ListOwnBatches(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)

	filters := repositories.BatchFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	batches, total, err := h.batchService.GetByTeacher(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batches": batches,
		"total":   total,
	})
}

// ListStudentBatches lists batches the caller is enrolled in
func (h *BatchHandler) ListStudentBatches(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	batches, err := h.batchService.GetByStudent(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

// EnrollStudent enrolls a student into a batch
func (h *BatchHandler) EnrollStudent(c *gin.Context) {
	h.LogRequest(c, "Enrolling student")

	batchID := h.parseIDParam(c, "id")
	if batchID == 0 {
		return
	}

	var req services.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.batchService.Enroll(c.Request.Context(), batchID, &req, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{Message: "Student enrolled successfully", Timestamp: time.Now().UTC()})
}

// UnenrollStudent removes a student from a batch
func (h *BatchHandler) UnenrollStudent(c *gin.Context) {
	h.LogRequest(c, "Unenrolling student")

	batchID := h.parseIDParam(c, "id")
	if batchID == 0 {
		return
	}

	studentID := c.Param("student_id")
	if studentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Student ID is required"})
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.batchService.Unenroll(c.Request.Context(), batchID, studentID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Student unenrolled successfully", Timestamp: time.Now().UTC()})
}

// GetEnrollments lists enrollments for a batch
func (h *BatchHandler) GetEnrollments(c *gin.Context) {
	batchID := h.parseIDParam(c, "id")
	if batchID == 0 {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	enrollments, err := h.batchService.GetEnrollments(c.Request.Context(), batchID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"enrollments": enrollments})
}
