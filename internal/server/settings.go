package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/telandes/recaudo/internal/settings"
)

func parseSnowflake(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(raw)
}

func (s *Server) GetBillingSettings(c *gin.Context) {
	resp := s.settingsSvc.Get(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateSettingsRequest struct {
	NoticeDays      int             `json:"notice_days"`
	CutoffGraceDays int             `json:"cutoff_grace_days"`
	LateFeePercent  decimal.Decimal `json:"late_fee_percent"`
}

func (s *Server) UpdateBillingSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settingsSvc.Update(c.Request.Context(), settings.UpdateRequest{
		NoticeDays:      req.NoticeDays,
		CutoffGraceDays: req.CutoffGraceDays,
		LateFeePercent:  req.LateFeePercent,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(c.Request.Context(), "settings.update", "billing_settings", nil, map[string]any{
			"notice_days":       resp.NoticeDays,
			"cutoff_grace_days": resp.CutoffGraceDays,
			"late_fee_percent":  resp.LateFeePercent.String(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
