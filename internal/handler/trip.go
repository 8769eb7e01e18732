package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"motoya/internal/domain"
	"motoya/internal/service"
	"motoya/internal/stream"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// StartTripRequest is the HTTP request body for starting a trip.
type StartTripRequest struct {
	RiderID      string          `json:"rider_id" binding:"required"`
	DriverID     string          `json:"driver_id" binding:"required"`
	Role         string          `json:"role" binding:"required,oneof=RIDER DRIVER"`
	Counterparty CounterpartyDTO `json:"counterparty"`
	Origin       *PointDTO       `json:"origin" binding:"required"`
	Destination  *PointDTO       `json:"destination" binding:"required"`
	Vehicle      *PointDTO       `json:"vehicle" binding:"required"`
}

// SelectPaymentRequest is the HTTP request body for choosing a payment method.
type SelectPaymentRequest struct {
	Method string `json:"method" binding:"required"`
}

// SubmitRatingRequest is the HTTP request body for rating a trip. Range
// checks are left to the trip so every bad value gets the same error.
type SubmitRatingRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// LookupResponse is a trip from whichever source still knows it.
type LookupResponse struct {
	Source string              `json:"source"` // active, cached or finished
	Trip   *TripResponse       `json:"trip,omitempty"`
	Cached *CachedTripResponse `json:"cached,omitempty"`
	Record *RecordResponse     `json:"record,omitempty"`
}

// CopyFieldResponse is a single transfer field for the clipboard.
type CopyFieldResponse struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// StartTrip handles POST /v1/trips
func (h *TripHandler) StartTrip(c *gin.Context) {
	var req StartTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	snap, err := h.tripService.StartTrip(c.Request.Context(), service.StartTripRequest{
		RiderID:      req.RiderID,
		DriverID:     req.DriverID,
		Role:         domain.Role(req.Role),
		Counterparty: req.Counterparty.toDomain(),
		Origin:       req.Origin.toDomain(),
		Destination:  req.Destination.toDomain(),
		Vehicle:      req.Vehicle.toDomain(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, NewTripResponse(snap))
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	found, err := h.tripService.LookupTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var resp LookupResponse
	switch {
	case found.Active != nil:
		tr := NewTripResponse(*found.Active)
		resp = LookupResponse{Source: "active", Trip: &tr}
	case found.Cached != nil:
		cr := newCachedTripResponse(found.Cached)
		resp = LookupResponse{Source: "cached", Cached: &cr}
	default:
		rr := newRecordResponse(found.Finished)
		resp = LookupResponse{Source: "finished", Record: &rr}
	}

	respondJSON(c, http.StatusOK, resp)
}

// StreamTrip handles GET /v1/trips/:id/stream
func (h *TripHandler) StreamTrip(c *gin.Context) {
	sub, snap, err := h.tripService.Subscribe(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	stream.ServeWS(c.Writer, c.Request, sub, snap, func(s domain.Snapshot) any {
		return NewTripResponse(s)
	})
}

// ConfirmEncounter handles POST /v1/trips/:id/encounter
func (h *TripHandler) ConfirmEncounter(c *gin.Context) {
	snap, err := h.tripService.ConfirmEncounter(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, NewTripResponse(snap))
}

// SelectPaymentMethod handles POST /v1/trips/:id/payment-method
func (h *TripHandler) SelectPaymentMethod(c *gin.Context) {
	var req SelectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	snap, err := h.tripService.SelectPaymentMethod(c.Request.Context(), c.Param("id"), domain.PaymentMethod(req.Method))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, NewTripResponse(snap))
}

// ConfirmPaymentSent handles POST /v1/trips/:id/payment/confirm
func (h *TripHandler) ConfirmPaymentSent(c *gin.Context) {
	snap, err := h.tripService.ConfirmPaymentSent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, NewTripResponse(snap))
}

// TransferInstructions handles GET /v1/trips/:id/payment/instructions.
// With ?field=phone (or bank_code, recipient_id) only that value is returned.
func (h *TripHandler) TransferInstructions(c *gin.Context) {
	instr, err := h.tripService.TransferInstructions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if name := c.Query("field"); name != "" {
		value, ok := instr.Field(name)
		if !ok {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown field " + name})
			return
		}
		respondJSON(c, http.StatusOK, CopyFieldResponse{Field: name, Value: value})
		return
	}

	respondJSON(c, http.StatusOK, newTransferDTO(&instr))
}

// SubmitRating handles POST /v1/trips/:id/rating
func (h *TripHandler) SubmitRating(c *gin.Context) {
	var req SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	snap, err := h.tripService.SubmitRating(c.Request.Context(), c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, NewTripResponse(snap))
}

// Finalize handles POST /v1/trips/:id/finalize
func (h *TripHandler) Finalize(c *gin.Context) {
	res, err := h.tripService.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newResultResponse(res))
}

// CancelTrip handles POST /v1/trips/:id/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	res, err := h.tripService.CancelTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newResultResponse(res))
}
