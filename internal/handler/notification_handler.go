package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/response"
	"github.com/stemsi/learning-portal/internal/service"
)

// NotificationHandler serves the inbox.
type NotificationHandler struct {
	notificationService *service.NotificationService
	log                 zerolog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationService *service.NotificationService, log zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		log:                 log.With().Str("component", "notification_handler").Logger(),
	}
}

// ListNotifications godoc
// GET /api/v1/notifications
// Fetches the inbox. With ?cached=true the last polled copy is returned instead.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	if c.Query("cached") == "true" {
		response.Success(c, http.StatusOK, h.notificationService.Inbox())
		return
	}
	inbox, err := h.notificationService.Fetch(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, inbox)
}

// UnreadCount godoc
// GET /api/v1/notifications/unread-count
// Returns the badge count kept fresh by the background poller.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"unread_count": h.notificationService.UnreadCount()})
}

// OpenInbox godoc
// POST /api/v1/notifications/open
// Marks the inbox as being viewed, which pauses polling, and returns a fresh copy.
func (h *NotificationHandler) OpenInbox(c *gin.Context) {
	inbox, err := h.notificationService.Fetch(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.notificationService.SetViewing(true)
	response.Success(c, http.StatusOK, inbox)
}

// CloseInbox godoc
// POST /api/v1/notifications/close
func (h *NotificationHandler) CloseInbox(c *gin.Context) {
	h.notificationService.SetViewing(false)
	response.Success(c, http.StatusOK, gin.H{})
}

// MarkRead godoc
// POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	inbox, err := h.notificationService.MarkRead(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, inbox)
}

// MarkAllRead godoc
// POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	inbox, err := h.notificationService.MarkAllRead(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, inbox)
}
