package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	notificationdomain "github.com/telandes/recaudo/internal/notification/domain"
)

type createNotificationRequest struct {
	SubscriberID string `json:"subscriber_id"`
	Type         string `json:"type"`
	Message      string `json:"message"`
	Channel      string `json:"channel"`
}

func (s *Server) CreateNotification(c *gin.Context) {
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	subscriberID, err := parseSnowflake(req.SubscriberID)
	if err != nil {
		AbortWithError(c, newValidationError("subscriber_id", "invalid_id", "identifier is not valid"))
		return
	}

	resp, err := s.notificationSvc.Create(c.Request.Context(), notificationdomain.CreateRequest{
		SubscriberID: subscriberID,
		Type:         notificationdomain.Type(strings.TrimSpace(req.Type)),
		Message:      req.Message,
		Channel:      notificationdomain.Channel(strings.TrimSpace(req.Channel)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type bulkNotificationRequest struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (s *Server) SendBulkNotifications(c *gin.Context) {
	var req bulkNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.notificationSvc.SendBulk(c.Request.Context(),
		notificationdomain.Type(strings.TrimSpace(req.Type)), req.Message)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(c.Request.Context(), "notification.bulk", "notification", nil, map[string]any{
			"type":    strings.TrimSpace(req.Type),
			"created": created,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"created": created}})
}

func (s *Server) SendPendingNotification(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	resp, err := s.notificationSvc.SendPending(c.Request.Context(), id)
	if err != nil {
		// A dispatch failure still carries the updated row so the
		// operator sees the new status and attempt count.
		if resp != nil {
			c.JSON(http.StatusBadGateway, gin.H{
				"data":  resp,
				"error": apiError{Status: http.StatusBadGateway, Code: "dispatch_failed", Message: err.Error()},
			})
			return
		}
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DispatchPendingNotifications(c *gin.Context) {
	resp, err := s.notificationSvc.DispatchPending(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListNotifications(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
		Type   string `form:"type"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.notificationSvc.List(c.Request.Context(), notificationdomain.ListRequest{
		Status: notificationdomain.Status(strings.TrimSpace(query.Status)),
		Type:   notificationdomain.Type(strings.TrimSpace(query.Type)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetNotificationStats(c *gin.Context) {
	resp, err := s.notificationSvc.GetStats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
