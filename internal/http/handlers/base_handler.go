// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rideline/internal/modules/offer"
	"rideline/internal/modules/payments"
	"rideline/internal/modules/presence"
	"rideline/internal/modules/quote"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// isValidID accepts document-store style ids: letters, digits, '-' and '_'.
func isValidID(v string) bool {
	if v == "" || len(v) > 128 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Success: false, Error: msg})
}

func writeOfferError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, offer.ErrBadRequest):
		writeError(c, http.StatusBadRequest, offer.ErrBadRequest.Error())
	case errors.Is(err, offer.ErrNotFound):
		writeError(c, http.StatusConflict, offer.ErrNotFound.Error())
	case errors.Is(err, offer.ErrNotRequested):
		writeError(c, http.StatusConflict, offer.ErrNotRequested.Error())
	case errors.Is(err, offer.ErrNotTargeted):
		writeError(c, http.StatusConflict, offer.ErrNotTargeted.Error())
	case errors.Is(err, offer.ErrAlreadyAccepted):
		writeError(c, http.StatusConflict, offer.ErrAlreadyAccepted.Error())
	case errors.Is(err, offer.ErrDriverDeclined):
		writeError(c, http.StatusConflict, offer.ErrDriverDeclined.Error())
	case errors.Is(err, offer.ErrInvalidState):
		writeError(c, http.StatusConflict, offer.ErrInvalidState.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writePresenceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, presence.ErrBadRequest):
		writeError(c, http.StatusBadRequest, presence.ErrBadRequest.Error())
	case errors.Is(err, presence.ErrDriverNotFound):
		writeError(c, http.StatusNotFound, presence.ErrDriverNotFound.Error())
	case errors.Is(err, presence.ErrPermissionDenied):
		writeError(c, http.StatusForbidden, presence.ErrPermissionDenied.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writePaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, payments.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, payments.ErrProvider):
		writeError(c, http.StatusBadGateway, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// quoteBody is the response shape shared by POST /api/quote and /ws/eta.
func quoteBody(q quote.Quote, err error) (int, gin.H) {
	var f *quote.Failure
	switch {
	case err == nil:
		return http.StatusOK, gin.H{
			"success":       true,
			"distanceMiles": q.DistanceMiles,
			"driveMin":      q.DriveMinutes,
			"computedAt":    q.ComputedAt,
			"trafficModel":  q.TrafficModel,
		}
	case errors.Is(err, quote.ErrBadRequest):
		return http.StatusBadRequest, gin.H{"success": false, "error": err.Error()}
	case errors.As(err, &f):
		return http.StatusOK, gin.H{"success": false, "reason": f.Reason}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusOK, gin.H{"success": false, "reason": "TIMEOUT"}
	default:
		return http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"}
	}
}
