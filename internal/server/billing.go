package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	billingdomain "github.com/telandes/recaudo/internal/billing/domain"
	paymentdomain "github.com/telandes/recaudo/internal/payment/domain"
)

func (s *Server) GetDebtSnapshot(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	asOf, err := parseOptionalDate(c.Query("as_of"))
	if err != nil {
		AbortWithError(c, newValidationError("as_of", "invalid_as_of", "expected YYYY-MM-DD"))
		return
	}

	resp, err := s.billingSvc.GetDebtSnapshot(c.Request.Context(), id, asOf)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBillingPeriods(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	year := 0
	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			AbortWithError(c, newValidationError("year", "invalid_year", "expected a numeric year"))
			return
		}
		year = parsed
	}

	resp, err := s.billingSvc.ListBillingPeriods(c.Request.Context(), billingdomain.ListPeriodsRequest{
		SubscriberID: id,
		Year:         year,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type allocatePaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
	Memo   string          `json:"memo"`
}

func (s *Server) AllocatePayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req allocatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.billingSvc.AllocatePayment(c.Request.Context(), billingdomain.AllocatePaymentRequest{
		SubscriberID: id,
		Amount:       req.Amount,
		Method:       paymentdomain.PaymentMethod(strings.TrimSpace(req.Method)),
		Memo:         req.Memo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := id.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), "payment.allocate", "subscriber", &targetID, map[string]any{
			"payment_id":     resp.ID.String(),
			"amount":         resp.Amount.String(),
			"method":         string(resp.Method),
			"receipt_number": resp.ReceiptNumber,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPayments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	resp, err := s.billingSvc.ListPayments(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RunDelinquencySweep(c *gin.Context) {
	resp, err := s.notificationSvc.RunDelinquencySweep(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAggregateStats(c *gin.Context) {
	resp, err := s.billingSvc.GetAggregateStats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
