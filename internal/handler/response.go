package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"motoya/internal/repository"
	"motoya/internal/service"
	"motoya/internal/trip"
)

// timeLayout is the format of every timestamp in responses.
const timeLayout = "2006-01-02T15:04:05Z07:00"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/controller errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrTripNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrSameParty),
		errors.Is(err, trip.ErrInvalidParams),
		errors.Is(err, trip.ErrInvalidRating),
		errors.Is(err, trip.ErrInvalidPaymentMethod):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrDriverHasActiveTrip),
		errors.Is(err, service.ErrNoTransferInstructions),
		errors.Is(err, trip.ErrActionDisabled),
		errors.Is(err, trip.ErrTripReleased):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
