// README: Quote handler: distance and drive time between two locations.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideline/internal/modules/quote"
)

type QuoteHandler struct {
	engine *quote.Engine
}

func NewQuoteHandler(engine *quote.Engine) *QuoteHandler {
	return &QuoteHandler{engine: engine}
}

type quoteReq struct {
	Origin      *quote.Location `json:"origin"`
	Destination *quote.Location `json:"destination"`
}

func (h *QuoteHandler) Quote(c *gin.Context) {
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Origin == nil || req.Destination == nil {
		writeError(c, http.StatusBadRequest, "origin and destination are required")
		return
	}
	q, err := h.engine.Compute(c.Request.Context(), *req.Origin, *req.Destination)
	status, body := quoteBody(q, err)
	writeJSON(c, status, body)
}
