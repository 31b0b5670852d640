// README: Ride offer handlers: driver accept/decline, ride progress and dispatcher hooks.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rideline/internal/http/middleware"
	"rideline/internal/modules/offer"
	"rideline/internal/types"
)

// DriverResolver maps an authenticated account to its driver id.
type DriverResolver interface {
	Resolve(ctx context.Context, accountID string) (types.ID, error)
}

type OfferHandler struct {
	offer   *offer.Service
	drivers DriverResolver
}

// NewOfferHandler builds the handler. With a nil resolver the driverId in the
// body is trusted as sent.
func NewOfferHandler(svc *offer.Service, drivers DriverResolver) *OfferHandler {
	return &OfferHandler{offer: svc, drivers: drivers}
}

type rideDriverReq struct {
	RideID   string `json:"rideId"`
	DriverID string `json:"driverId"`
}

type cancelReq struct {
	RideID string `json:"rideId"`
	Reason string `json:"reason"`
}

// bindRideDriver decodes the body and checks the caller owns driverId.
func (h *OfferHandler) bindRideDriver(c *gin.Context) (types.ID, types.ID, bool) {
	var req rideDriverReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return "", "", false
	}
	if !isValidID(req.RideID) || !isValidID(req.DriverID) {
		writeError(c, http.StatusBadRequest, "rideId and driverId are required")
		return "", "", false
	}
	if h.drivers != nil {
		own, err := h.drivers.Resolve(c.Request.Context(), middleware.CallerUID(c))
		if err != nil || own != types.ID(req.DriverID) {
			writeError(c, http.StatusForbidden, "driverId does not belong to caller")
			return "", "", false
		}
	}
	return types.ID(req.RideID), types.ID(req.DriverID), true
}

func (h *OfferHandler) Accept(c *gin.Context) {
	rideID, driverID, ok := h.bindRideDriver(c)
	if !ok {
		return
	}
	if err := h.offer.Accept(c.Request.Context(), offer.AcceptCommand{RideID: rideID, DriverID: driverID}); err != nil {
		writeOfferError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true})
}

func (h *OfferHandler) Decline(c *gin.Context) {
	rideID, driverID, ok := h.bindRideDriver(c)
	if !ok {
		return
	}
	if err := h.offer.Decline(c.Request.Context(), offer.DeclineCommand{RideID: rideID, DriverID: driverID}); err != nil {
		writeOfferError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "declined": true})
}

func (h *OfferHandler) Start(c *gin.Context) {
	rideID, driverID, ok := h.bindRideDriver(c)
	if !ok {
		return
	}
	if err := h.offer.Start(c.Request.Context(), offer.StartCommand{RideID: rideID, DriverID: driverID}); err != nil {
		writeOfferError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "status": offer.StatusInProgress})
}

func (h *OfferHandler) Complete(c *gin.Context) {
	rideID, driverID, ok := h.bindRideDriver(c)
	if !ok {
		return
	}
	if err := h.offer.Complete(c.Request.Context(), offer.CompleteCommand{RideID: rideID, DriverID: driverID}); err != nil {
		writeOfferError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "status": offer.StatusCompleted})
}

// Retarget is called by the dispatcher, so the driver in the body is not the caller.
func (h *OfferHandler) Retarget(c *gin.Context) {
	var req rideDriverReq
	if err := c.ShouldBindJSON(&req); err != nil || !isValidID(req.RideID) || !isValidID(req.DriverID) {
		writeError(c, http.StatusBadRequest, "rideId and driverId are required")
		return
	}
	err := h.offer.Retarget(c.Request.Context(), offer.RetargetCommand{
		RideID:   types.ID(req.RideID),
		DriverID: types.ID(req.DriverID),
	})
	if err != nil {
		writeOfferError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "status": offer.StatusRequested})
}

func (h *OfferHandler) Cancel(c *gin.Context) {
	var req cancelReq
	if err := c.ShouldBindJSON(&req); err != nil || !isValidID(req.RideID) {
		writeError(c, http.StatusBadRequest, "rideId is required")
		return
	}
	if err := h.offer.Cancel(c.Request.Context(), offer.CancelCommand{RideID: types.ID(req.RideID), Reason: req.Reason}); err != nil {
		writeOfferError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "status": offer.StatusCancelled})
}

func (h *OfferHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "missing ride id")
		return
	}
	o, err := h.offer.Get(c.Request.Context(), types.ID(id))
	if errors.Is(err, offer.ErrNotFound) {
		writeError(c, http.StatusNotFound, offer.ErrNotFound.Error())
		return
	}
	if err != nil {
		writeOfferError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}
