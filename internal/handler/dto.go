package handler

import (
	"time"

	"motoya/internal/domain"
	"motoya/internal/redis"
	"motoya/internal/trip"
)

// PointDTO is a coordinate in requests and responses.
type PointDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p PointDTO) toDomain() domain.Point {
	return domain.Point{Lat: p.Lat, Lng: p.Lng}
}

func newPointDTO(p domain.Point) PointDTO {
	return PointDTO{Lat: p.Lat, Lng: p.Lng}
}

// TransferDTO holds the fields a rider copies into their banking app.
type TransferDTO struct {
	BankCode    string `json:"bank_code"`
	Phone       string `json:"phone"`
	RecipientID string `json:"recipient_id"`
}

func newTransferDTO(t *domain.TransferInstructions) *TransferDTO {
	if t == nil {
		return nil
	}
	return &TransferDTO{BankCode: t.BankCode, Phone: t.Phone, RecipientID: t.RecipientID}
}

// CounterpartyDTO is the identity of the other party of a trip.
type CounterpartyDTO struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Vehicle  string       `json:"vehicle,omitempty"`
	Plate    string       `json:"plate,omitempty"`
	Rating   float64      `json:"rating,omitempty"`
	Transfer *TransferDTO `json:"transfer,omitempty"`
}

func (c CounterpartyDTO) toDomain() domain.Counterparty {
	cp := domain.Counterparty{
		ID:      c.ID,
		Name:    c.Name,
		Vehicle: c.Vehicle,
		Plate:   c.Plate,
		Rating:  c.Rating,
	}
	if c.Transfer != nil {
		cp.Transfer = &domain.TransferInstructions{
			BankCode:    c.Transfer.BankCode,
			Phone:       c.Transfer.Phone,
			RecipientID: c.Transfer.RecipientID,
		}
	}
	return cp
}

// ActionsDTO lists the actions currently enabled.
type ActionsDTO struct {
	ConfirmEncounter bool `json:"confirm_encounter"`
	SelectPayment    bool `json:"select_payment"`
	ConfirmPayment   bool `json:"confirm_payment"`
	SubmitRating     bool `json:"submit_rating"`
	Finalize         bool `json:"finalize"`
	Cancel           bool `json:"cancel"`
}

// ViewDTO is the copy shown for the current phase.
type ViewDTO struct {
	Badge    string `json:"badge"`
	Headline string `json:"headline"`
	Detail   string `json:"detail"`
}

// TripResponse is the HTTP form of a trip snapshot.
type TripResponse struct {
	TripID           string          `json:"trip_id"`
	Role             string          `json:"role"`
	Counterparty     CounterpartyDTO `json:"counterparty"`
	Origin           PointDTO        `json:"origin"`
	Destination      PointDTO        `json:"destination"`
	Vehicle          PointDTO        `json:"vehicle"`
	Phase            string          `json:"phase"`
	Outcome          string          `json:"outcome"`
	PendingMethod    string          `json:"pending_method,omitempty"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	Transfer         *TransferDTO    `json:"transfer,omitempty"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	ETASeconds       int             `json:"eta_seconds"`
	ArrivalAt        string          `json:"arrival_at"`
	RemainingKm      float64         `json:"remaining_km"`
	Ticks            int             `json:"ticks"`
	Rating           int             `json:"rating,omitempty"`
	RatingLabel      string          `json:"rating_label,omitempty"`
	Comment          string          `json:"comment,omitempty"`
	Actions          ActionsDTO      `json:"actions"`
	View             ViewDTO         `json:"view"`
	StartedAt        string          `json:"started_at"`
	UpdatedAt        string          `json:"updated_at"`
}

// NewTripResponse converts a snapshot. It is also the encoder of the live
// stream, so both surfaces carry the same shape.
func NewTripResponse(s domain.Snapshot) TripResponse {
	cp := s.Counterparty
	return TripResponse{
		TripID: s.TripID,
		Role:   string(s.Role),
		Counterparty: CounterpartyDTO{
			ID:      cp.ID,
			Name:    cp.Name,
			Vehicle: cp.Vehicle,
			Plate:   cp.Plate,
			Rating:  cp.Rating,
		},
		Origin:           newPointDTO(s.Origin),
		Destination:      newPointDTO(s.Destination),
		Vehicle:          newPointDTO(s.Vehicle),
		Phase:            string(s.Phase),
		Outcome:          string(s.Outcome),
		PendingMethod:    string(s.PendingMethod),
		PaymentMethod:    string(s.PaymentMethod),
		Transfer:         newTransferDTO(s.Transfer),
		PaymentReference: s.PaymentReference,
		ETASeconds:       s.ETASeconds,
		ArrivalAt:        s.ArrivalAt.Format(timeLayout),
		RemainingKm:      s.RemainingKm,
		Ticks:            s.Ticks,
		Rating:           s.Rating,
		RatingLabel:      trip.RatingLabel(s.Rating),
		Comment:          s.Comment,
		Actions: ActionsDTO{
			ConfirmEncounter: s.Actions.ConfirmEncounter,
			SelectPayment:    s.Actions.SelectPayment,
			ConfirmPayment:   s.Actions.ConfirmPayment,
			SubmitRating:     s.Actions.SubmitRating,
			Finalize:         s.Actions.Finalize,
			Cancel:           s.Actions.Cancel,
		},
		View:      ViewDTO{Badge: s.View.Badge, Headline: s.View.Headline, Detail: s.View.Detail},
		StartedAt: s.StartedAt.Format(timeLayout),
		UpdatedAt: s.UpdatedAt.Format(timeLayout),
	}
}

// CachedTripResponse is a trip known only through the shared cache.
type CachedTripResponse struct {
	TripID           string   `json:"trip_id"`
	Role             string   `json:"role"`
	CounterpartyID   string   `json:"counterparty_id"`
	Phase            string   `json:"phase"`
	Outcome          string   `json:"outcome"`
	Vehicle          PointDTO `json:"vehicle"`
	PaymentMethod    string   `json:"payment_method,omitempty"`
	PaymentReference string   `json:"payment_reference,omitempty"`
	ETASeconds       int      `json:"eta_seconds"`
	RemainingKm      float64  `json:"remaining_km"`
	UpdatedAt        string   `json:"updated_at"`
}

func newCachedTripResponse(t *redis.CachedTrip) CachedTripResponse {
	return CachedTripResponse{
		TripID:           t.ID,
		Role:             t.Role,
		CounterpartyID:   t.CounterpartyID,
		Phase:            t.Phase,
		Outcome:          t.Outcome,
		Vehicle:          PointDTO{Lat: t.VehicleLat, Lng: t.VehicleLng},
		PaymentMethod:    t.PaymentMethod,
		PaymentReference: t.PaymentReference,
		ETASeconds:       t.ETASeconds,
		RemainingKm:      t.RemainingKm,
		UpdatedAt:        t.UpdatedAt.Format(timeLayout),
	}
}

// RecordResponse is a finished trip.
type RecordResponse struct {
	TripID           string   `json:"trip_id"`
	RiderID          string   `json:"rider_id"`
	DriverID         string   `json:"driver_id"`
	Role             string   `json:"role"`
	Outcome          string   `json:"outcome"`
	LastPhase        string   `json:"last_phase"`
	PaymentMethod    string   `json:"payment_method,omitempty"`
	PaymentReference string   `json:"payment_reference,omitempty"`
	Rating           int      `json:"rating,omitempty"`
	Comment          string   `json:"comment,omitempty"`
	Origin           PointDTO `json:"origin"`
	Destination      PointDTO `json:"destination"`
	StartedAt        string   `json:"started_at"`
	EndedAt          string   `json:"ended_at"`
	DurationSeconds  int64    `json:"duration_seconds"`
}

func newRecordResponse(r *domain.TripRecord) RecordResponse {
	return RecordResponse{
		TripID:           r.ID,
		RiderID:          r.RiderID,
		DriverID:         r.DriverID,
		Role:             string(r.Role),
		Outcome:          string(r.Outcome),
		LastPhase:        string(r.LastPhase),
		PaymentMethod:    string(r.PaymentMethod),
		PaymentReference: r.PaymentReference,
		Rating:           r.Rating,
		Comment:          r.Comment,
		Origin:           newPointDTO(r.Origin),
		Destination:      newPointDTO(r.Destination),
		StartedAt:        r.StartedAt.Format(timeLayout),
		EndedAt:          r.EndedAt.Format(timeLayout),
		DurationSeconds:  int64(r.EndedAt.Sub(r.StartedAt) / time.Second),
	}
}

// ResultResponse is the signal returned when a trip is released.
type ResultResponse struct {
	TripID           string `json:"trip_id"`
	Role             string `json:"role"`
	CounterpartyID   string `json:"counterparty_id"`
	Outcome          string `json:"outcome"`
	Phase            string `json:"phase"`
	Rating           int    `json:"rating,omitempty"`
	Comment          string `json:"comment,omitempty"`
	PaymentMethod    string `json:"payment_method,omitempty"`
	PaymentReference string `json:"payment_reference,omitempty"`
	FinishedAt       string `json:"finished_at"`
}

func newResultResponse(r domain.Result) ResultResponse {
	return ResultResponse{
		TripID:           r.TripID,
		Role:             string(r.Role),
		CounterpartyID:   r.CounterpartyID,
		Outcome:          string(r.Outcome),
		Phase:            string(r.Phase),
		Rating:           r.Rating,
		Comment:          r.Comment,
		PaymentMethod:    string(r.PaymentMethod),
		PaymentReference: r.PaymentReference,
		FinishedAt:       r.FinishedAt.Format(timeLayout),
	}
}
