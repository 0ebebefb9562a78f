package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classhub/lms-service/internal/models"
	"github.com/classhub/lms-service/internal/repositories"
	"github.com/classhub/lms-service/internal/services"
	"github.com/classhub/lms-service/internal/utils"
)

type NotificationHandler struct {
	BaseHandler
	notificationService services.NotificationService
	notificationEvents  services.NotificationEventService
}

func NewNotificationHandler(notificationService services.NotificationService, notificationEvents services.NotificationEventService, logger utils.Logger) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler:         NewBaseHandler(logger),
		notificationService: notificationService,
		notificationEvents:  notificationEvents,
	}
}

// ListNotifications lists the caller's inbox
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	notifications, total, err := h.notificationService.GetByUser(c.Request.Context(), userID, h.parseNotificationFilters(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"total":         total,
	})
}

// CountUnread returns the caller's unread count
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	count, err := h.notificationService.CountUnread(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkRead marks one notification read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Notification marked as read", Timestamp: time.Now().UTC()})
}

// MarkAllRead marks every notification of the caller read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.notificationService.MarkAllRead(c.Request.Context(), userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "All notifications marked as read", Timestamp: time.Now().UTC()})
}

// Broadcast sends one notification to a list of users
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	h.LogRequest(c, "Broadcasting notification")

	var req struct {
		UserIDs []string `json:"user_ids" binding:"required,min=1"`
		services.NotificationRequest
	}
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

	if err := h.notificationEvents.SendBulkNotification(c.Request.Context(), req.UserIDs, &req.NotificationRequest); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Notification sent", Timestamp: time.Now().UTC()})
}

func (h *NotificationHandler) parseNotificationFilters(c *gin.Context) repositories.NotificationFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)

	filters := repositories.NotificationFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	if notificationType := c.Query("type"); notificationType != "" {
		value := models.NotificationType(notificationType)
		filters.Type = &value
	}

	if read := c.Query("read"); read != "" {
		value := read == "true"
		filters.Read = &value
	}

	return filters
}
