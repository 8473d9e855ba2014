package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	subscriberdomain "github.com/telandes/recaudo/internal/subscriber/domain"
)

func parseID(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param(name))
	if err != nil {
		AbortWithError(c, newValidationError(name, "invalid_id", "identifier is not valid"))
		return 0, false
	}
	return id, true
}

func parseOptionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type createSubscriberRequest struct {
	NationalID     string          `json:"national_id"`
	FirstNames     string          `json:"first_names"`
	LastNames      string          `json:"last_names"`
	PlanType       string          `json:"plan_type"`
	PlanPrice      decimal.Decimal `json:"plan_price"`
	RegisteredOn   string          `json:"registered_on"`
	Address        string          `json:"address"`
	Sector         string          `json:"sector"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	TelegramChatID string          `json:"telegram_chat_id"`
}

func (s *Server) CreateSubscriber(c *gin.Context) {
	var req createSubscriberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	registeredOn, err := parseOptionalDate(req.RegisteredOn)
	if err != nil {
		AbortWithError(c, newValidationError("registered_on", "invalid_registered_on", "expected YYYY-MM-DD"))
		return
	}

	create := subscriberdomain.CreateSubscriberRequest{
		NationalID:     req.NationalID,
		FirstNames:     req.FirstNames,
		LastNames:      req.LastNames,
		PlanType:       req.PlanType,
		PlanPrice:      req.PlanPrice,
		Address:        req.Address,
		Sector:         req.Sector,
		Email:          req.Email,
		Phone:          req.Phone,
		TelegramChatID: req.TelegramChatID,
	}
	if registeredOn != nil {
		create.RegisteredOn = *registeredOn
	}

	resp, err := s.subscriberSvc.Create(c.Request.Context(), create)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), "subscriber.create", "subscriber", &targetID, map[string]any{
			"plan_type":  resp.PlanType,
			"plan_price": resp.PlanPrice.String(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSubscribers(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
		Search string `form:"search"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriberSvc.List(c.Request.Context(), subscriberdomain.ListSubscriberRequest{
		Status: subscriberdomain.SubscriberStatus(strings.TrimSpace(query.Status)),
		Search: query.Search,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSubscriber(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	resp, err := s.subscriberSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateSubscriberRequest struct {
	FirstNames     *string          `json:"first_names"`
	LastNames      *string          `json:"last_names"`
	PlanType       *string          `json:"plan_type"`
	PlanPrice      *decimal.Decimal `json:"plan_price"`
	Address        *string          `json:"address"`
	Sector         *string          `json:"sector"`
	Email          *string          `json:"email"`
	Phone          *string          `json:"phone"`
	TelegramChatID *string          `json:"telegram_chat_id"`
	Status         *string          `json:"status"`
}

func (s *Server) UpdateSubscriber(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateSubscriberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := subscriberdomain.UpdateSubscriberRequest{
		FirstNames:     req.FirstNames,
		LastNames:      req.LastNames,
		PlanType:       req.PlanType,
		PlanPrice:      req.PlanPrice,
		Address:        req.Address,
		Sector:         req.Sector,
		Email:          req.Email,
		Phone:          req.Phone,
		TelegramChatID: req.TelegramChatID,
	}
	if req.Status != nil {
		status := subscriberdomain.SubscriberStatus(*req.Status)
		update.Status = &status
	}

	resp, err := s.subscriberSvc.Update(c.Request.Context(), id, update)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeactivateSubscriber(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.subscriberSvc.Deactivate(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := id.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), "subscriber.deactivate", "subscriber", &targetID, nil)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
