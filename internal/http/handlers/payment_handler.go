// README: Payment passthrough handlers (connected accounts and payment intents).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideline/internal/modules/payments"
)

type PaymentHandler struct {
	payments *payments.Service
}

func NewPaymentHandler(svc *payments.Service) *PaymentHandler {
	return &PaymentHandler{payments: svc}
}

type accountIDReq struct {
	AccountID string `json:"accountId"`
}

type confirmReq struct {
	PaymentMethodID string `json:"paymentMethodId"`
}

func (h *PaymentHandler) CreateAccount(c *gin.Context) {
	var req payments.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	acct, err := h.payments.CreateAccount(c.Request.Context(), req)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"success": true, "account": acct})
}

func (h *PaymentHandler) CreateAccountLink(c *gin.Context) {
	var req accountIDReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	link, err := h.payments.CreateAccountLink(c.Request.Context(), req.AccountID)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "link": link})
}

func (h *PaymentHandler) CreateLoginLink(c *gin.Context) {
	var req accountIDReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	link, err := h.payments.CreateLoginLink(c.Request.Context(), req.AccountID)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "link": link})
}

func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req payments.IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	intent, err := h.payments.CreateIntent(c.Request.Context(), req)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"success": true, "intent": intent})
}

func (h *PaymentHandler) ConfirmIntent(c *gin.Context) {
	var req confirmReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	intent, err := h.payments.ConfirmIntent(c.Request.Context(), c.Param("id"), req.PaymentMethodID)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "intent": intent})
}
