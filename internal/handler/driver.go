package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"motoya/internal/service"
)

// DriverHandler serves finished-trip data: history and driver ratings.
type DriverHandler struct {
	tripService *service.TripService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(tripService *service.TripService) *DriverHandler {
	return &DriverHandler{tripService: tripService}
}

// DriverRatingResponse is the HTTP response for a driver's rating.
type DriverRatingResponse struct {
	DriverID string  `json:"driver_id"`
	Average  float64 `json:"average"`
	Count    int     `json:"count"`
	Label    string  `json:"label,omitempty"`
}

// History handles GET /v1/history
func (h *DriverHandler) History(c *gin.Context) {
	records, err := h.tripService.History(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		response = append(response, newRecordResponse(r))
	}

	c.JSON(http.StatusOK, response)
}

// DriverRating handles GET /v1/drivers/:id/rating
func (h *DriverHandler) DriverRating(c *gin.Context) {
	rating, err := h.tripService.DriverRating(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, DriverRatingResponse{
		DriverID: rating.DriverID,
		Average:  rating.Average,
		Count:    rating.Count,
		Label:    rating.Label,
	})
}
