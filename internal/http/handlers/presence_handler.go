// README: Driver presence handlers: location updates, offline flag and nearby lookup.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rideline/internal/http/middleware"
	"rideline/internal/modules/presence"
	"rideline/internal/types"
)

type PresenceHandler struct {
	tracker *presence.Tracker
}

func NewPresenceHandler(tracker *presence.Tracker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

type locationReq struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// ownDriver resolves the caller's driver id and checks it matches :id.
func (h *PresenceHandler) ownDriver(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "missing driver id")
		return "", false
	}
	own, err := h.tracker.Resolve(c.Request.Context(), middleware.CallerUID(c))
	if err != nil || own != types.ID(id) {
		writeError(c, http.StatusForbidden, "forbidden")
		return "", false
	}
	return own, true
}

func (h *PresenceHandler) UpdateLocation(c *gin.Context) {
	driverID, ok := h.ownDriver(c)
	if !ok {
		return
	}
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Lat == nil || req.Lng == nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	if err := h.tracker.Update(c.Request.Context(), driverID, types.Point{Lat: *req.Lat, Lng: *req.Lng}); err != nil {
		writePresenceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true})
}

func (h *PresenceHandler) Offline(c *gin.Context) {
	driverID, ok := h.ownDriver(c)
	if !ok {
		return
	}
	h.tracker.SetOfflineDetached(c.Request.Context(), driverID)
	writeJSON(c, http.StatusAccepted, gin.H{"success": true})
}

func (h *PresenceHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	radius := 3.0
	if v := c.Query("radiusKm"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid radiusKm")
			return
		}
		radius = r
	}
	ids, err := h.tracker.Nearby(c.Request.Context(), types.Point{Lat: lat, Lng: lng}, radius)
	if err != nil {
		writePresenceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "drivers": ids})
}
