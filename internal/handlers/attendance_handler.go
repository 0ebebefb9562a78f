package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classhub/lms-service/internal/models"
	"github.com/classhub/lms-service/internal/repositories"
	"github.com/classhub/lms-service/internal/services"
	"github.com/classhub/lms-service/internal/utils"
	"github.com/classhub/lms-service/internal/validator"
)

type AttendanceHandler struct {
	BaseHandler
	attendanceService services.AttendanceService
	validator         *validator.Validator
}

func NewAttendanceHandler(attendanceService services.AttendanceService, validator *validator.Validator, logger utils.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		BaseHandler:       NewBaseHandler(logger),
		attendanceService: attendanceService,
		validator:         validator,
	}
}

// RecordAttendance marks attendance for a batch on one day
func (h *AttendanceHandler) RecordAttendance(c *gin.Context) {
	h.LogRequest(c, "Recording attendance")

	batchID := h.parseIDParam(c, "id")
	if batchID == 0 {
		return
	}

	var req services.RecordAttendanceRequest
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

	if err := h.attendanceService.Record(c.Request.Context(), batchID, &req, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Attendance recorded successfully", Timestamp: time.Now().UTC()})
}

// GetAttendanceByDate returns a batch's attendance sheet for one day
func (h *AttendanceHandler) GetAttendanceByDate(c *gin.Context) {
	batchID := h.parseIDParam(c, "id")
	if batchID == 0 {
		return
	}

	date, ok := h.parseDateQuery(c, "date")
	if !ok {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	records, err := h.attendanceService.GetByDate(c.Request.Context(), batchID, date, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records})
}

// GetStudentAttendance returns one student's attendance history in a batch
func (h *AttendanceHandler) GetStudentAttendance(c *gin.Context) {
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

	records, total, err := h.attendanceService.GetStudentHistory(c.Request.Context(), batchID, studentID, h.parseAttendanceFilters(c), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   total,
	})
}

// GetAttendanceStats returns aggregate attendance figures for a batch
func (h *AttendanceHandler) GetAttendanceStats(c *gin.Context) {
	batchID := h.parseIDParam(c, "id")
	if batchID == 0 {
		return
	}

	from, ok := h.parseDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := h.parseDateQuery(c, "to")
	if !ok {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	stats, err := h.attendanceService.GetBatchStats(c.Request.Context(), batchID, from, to, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *AttendanceHandler) parseDateQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing date parameter",
			Details: name + " query parameter is required",
		})
		return time.Time{}, false
	}

	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid date format",
			Details: name + " must use YYYY-MM-DD",
		})
		return time.Time{}, false
	}

	return date, true
}

func (h *AttendanceHandler) parseAttendanceFilters(c *gin.Context) repositories.AttendanceFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 30)

	filters := repositories.AttendanceFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	if status := c.Query("status"); status != "" {
		value := models.AttendanceStatus(status)
		filters.Status = &value
	}

	if from := c.Query("from"); from != "" {
		if date, err := time.Parse("2006-01-02", from); err == nil {
			filters.DateFrom = &date
		}
	}

	if to := c.Query("to"); to != "" {
		if date, err := time.Parse("2006-01-02", to); err == nil {
			filters.DateTo = &date
		}
	}

	return filters
}
