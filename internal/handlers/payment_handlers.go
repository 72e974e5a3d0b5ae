package handlers

import (
	"github.com/gin-gonic/gin"

	"sports_club_backend/internal/services"
)

// PaymentHandler holds the payment service.
type PaymentHandler struct {
	paymentService services.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(ps services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: ps}
}

// Register adds the payment actions to d.
func (h *PaymentHandler) Register(d *Dispatcher) {
	d.Register("recordPayment", Action{Fn: h.RecordPayment, Mutating: true})
	d.Register("getPayments", Action{Fn: h.GetPayments})
	d.Register("getMemberPayments", Action{Fn: h.GetMemberPayments})
	d.Register("getPaymentSummary", Action{Fn: h.GetPaymentSummary})
	d.Register("getPaymentStatus", Action{Fn: h.GetPaymentStatus})
}

func paymentFilter(p Payload) services.PaymentFilter {
	return services.PaymentFilter{
		SinceID:   p.Param("sinceId"),
		MemberID:  p.Param("memberId"),
		StartDate: p.Param("startDate"),
		EndDate:   p.Param("endDate"),
		Sport:     p.Param("sport"),
		Status:    p.Param("status"),
	}
}

func (h *PaymentHandler) RecordPayment(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	var req services.RecordPaymentRequest
	if err := p.Bind(&req); err != nil {
		return nil, err
	}
	return h.paymentService.RecordPayment(c.Request.Context(), rc, req)
}

func (h *PaymentHandler) GetPayments(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	return h.paymentService.GetPayments(rc, paymentFilter(p))
}

func (h *PaymentHandler) GetMemberPayments(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	return h.paymentService.GetMemberPayments(rc, paymentFilter(p))
}

func (h *PaymentHandler) GetPaymentSummary(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	return h.paymentService.GetPaymentSummary(rc, paymentFilter(p))
}

func (h *PaymentHandler) GetPaymentStatus(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	return h.paymentService.GetPaymentStatus(rc, p.Param("sport"))
}
