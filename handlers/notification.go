package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"splitpay-backend/middleware"
	"splitpay-backend/store"
)

type NotificationHandler struct {
	notifications *store.Notifications
}

func NewNotificationHandler(notifications *store.Notifications) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List handles GET /notifications for the authenticated wallet.
func (h *NotificationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))

	notifications, err := h.notifications.ListByWallet(c.Request.Context(), middleware.CallerWallet(c), limit, skip)
	if err != nil {
		logrus.WithField("error", err).Error("failed to list notifications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkRead handles POST /notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), id, middleware.CallerWallet(c)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
