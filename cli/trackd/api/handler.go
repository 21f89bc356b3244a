package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/locatr/trackd/cli/trackd/api/dto/response"
	"github.com/locatr/trackd/cli/trackd/track"
)

// defaultTrailLimit matches the limit the map frontend polls with.
const defaultTrailLimit = 100

type Handler struct {
	store   *track.Store
	started time.Time
}

func NewHandler(store *track.Store) *Handler {
	return &Handler{store: store, started: time.Now()}
}

// GetLatestLocation serves the current latest fix. An empty store is a
// normal pre-first-fix condition and answers 404, distinct from the 400
// a malformed request gets.
func (h *Handler) GetLatestLocation(c *gin.Context) {
	device := c.DefaultQuery("device", track.DefaultDeviceID)

	fix, ok := h.store.Latest(device)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "no data available"})
		return
	}

	c.JSON(http.StatusOK, response.Location{
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Timestamp: fix.Timestamp,
	})
}

// GetLocations serves the trail, oldest first. limit caps the result to
// the most recent points.
func (h *Handler) GetLocations(c *gin.Context) {
	device := c.DefaultQuery("device", track.DefaultDeviceID)

	limit := defaultTrailLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "limit must be a positive integer"})
			return
		}
		limit = v
	}

	trail := h.store.Trail(device, limit)
	points := make([]response.Location, 0, len(trail))
	for _, fix := range trail {
		points = append(points, response.Location{
			Latitude:  fix.Latitude,
			Longitude: fix.Longitude,
			Timestamp: fix.Timestamp,
		})
	}

	c.JSON(http.StatusOK, points)
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "OK",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"devices":        h.store.Devices(),
		"counters":       h.store.Counters.Snapshot(),
	})
}
