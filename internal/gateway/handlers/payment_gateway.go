package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"floorsync-system/internal/domain"
	"floorsync-system/internal/services/coordinator"
)

type PaymentHTTPHandler struct {
	floor *coordinator.Coordinator
}

func NewPaymentHTTPHandler(floor *coordinator.Coordinator) *PaymentHTTPHandler {
	return &PaymentHTTPHandler{floor: floor}
}

type CreatePaymentRequest struct {
	OrderID       string           `json:"orderId" binding:"required"`
	Amount        *decimal.Decimal `json:"amount" binding:"required"`
	Method        string           `json:"method" binding:"required"`
	SplitNumber   *int             `json:"splitNumber,omitempty" binding:"omitempty,min=1"`
	TransactionID *string          `json:"transactionId,omitempty"`
}

type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

type SplitBillRequest struct {
	Splits []decimal.Decimal `json:"splits" binding:"required,min=1"`
}

type PaymentIntentRequest struct {
	Amount      *decimal.Decimal `json:"amount" binding:"required"`
	CustomerRef string           `json:"customerRef"`
}

func (h *PaymentHTTPHandler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	method, err := domain.ParsePaymentMethod(req.Method)
	if err != nil {
		fail(c, err)
		return
	}
	payment, _, err := h.floor.CreatePayment(c.Request.Context(), coordinator.PaymentInput{
		OrderID:       req.OrderID,
		Amount:        *req.Amount,
		Method:        method,
		SplitNumber:   req.SplitNumber,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, payment)
}

func (h *PaymentHTTPHandler) ConfirmPayment(c *gin.Context) {
	payment, _, err := h.floor.ConfirmPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, payment)
}

func (h *PaymentHTTPHandler) RefundPayment(c *gin.Context) {
	var req RefundRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}
	payment, _, err := h.floor.RefundPayment(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, payment)
}

func (h *PaymentHTTPHandler) SplitBill(c *gin.Context) {
	var req SplitBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	payments, _, err := h.floor.SplitBill(c.Request.Context(), c.Param("id"), req.Splits)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, payments)
}

func (h *PaymentHTTPHandler) ListPayments(c *gin.Context) {
	payments, err := h.floor.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, payments)
}

func (h *PaymentHTTPHandler) CreatePaymentIntent(c *gin.Context) {
	var req PaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	intent, err := h.floor.CreatePaymentIntent(c.Request.Context(), *req.Amount, req.CustomerRef)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, intent)
}
