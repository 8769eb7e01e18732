package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"motoya/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationDriverAssigned  NotificationType = "DRIVER_ASSIGNED"
	NotificationDriverArrived   NotificationType = "DRIVER_ARRIVED"
	NotificationPaymentSent     NotificationType = "PAYMENT_SENT"
	NotificationPaymentVerified NotificationType = "PAYMENT_VERIFIED"
	NotificationTripStarted     NotificationType = "TRIP_STARTED"
	NotificationTripCompleted   NotificationType = "TRIP_COMPLETED"
	NotificationRatingReceived  NotificationType = "RATING_RECEIVED"
	NotificationTripCancelled   NotificationType = "TRIP_CANCELLED"
)

// Notification represents a notification to be sent.
type Notification struct {
	ID          string
	Type        NotificationType
	RecipientID string // rider or driver ID
	Title       string
	Message     string
	Data        map[string]any
	CreatedAt   time.Time
}

// NotificationService handles notification delivery.
type NotificationService struct {
	now func() time.Time
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{now: time.Now}
}

// NotifyDriverAssigned tells the rider who is coming.
func (s *NotificationService) NotifyDriverAssigned(ctx context.Context, riderID string, driver domain.Counterparty, tripID string) error {
	return s.send(ctx, Notification{
		Type:        NotificationDriverAssigned,
		RecipientID: riderID,
		Title:       "Conductor asignado",
		Message:     fmt.Sprintf("%s va en camino en %s (%s)", driver.Name, driver.Vehicle, driver.Plate),
		Data: map[string]any{
			"trip_id":   tripID,
			"driver_id": driver.ID,
		},
	})
}

// NotifyDriverArrived tells the rider the vehicle is at the pickup point.
func (s *NotificationService) NotifyDriverArrived(ctx context.Context, riderID, tripID string) error {
	return s.send(ctx, Notification{
		Type:        NotificationDriverArrived,
		RecipientID: riderID,
		Title:       "¡Tu conductor ha llegado!",
		Message:     "Tu conductor te espera en el punto de recogida.",
		Data:        map[string]any{"trip_id": tripID},
	})
}

// NotifyPaymentSent tells the driver a mobile transfer is being verified.
func (s *NotificationService) NotifyPaymentSent(ctx context.Context, driverID, tripID string) error {
	return s.send(ctx, Notification{
		Type:        NotificationPaymentSent,
		RecipientID: driverID,
		Title:       "Pago Móvil enviado",
		Message:     "El pasajero envió un Pago Móvil. Esperando confirmación del banco.",
		Data:        map[string]any{"trip_id": tripID},
	})
}

// NotifyPaymentVerified tells the driver the transfer went through.
func (s *NotificationService) NotifyPaymentVerified(ctx context.Context, driverID, tripID, reference string) error {
	return s.send(ctx, Notification{
		Type:        NotificationPaymentVerified,
		RecipientID: driverID,
		Title:       "Pago confirmado",
		Message:     fmt.Sprintf("Pago Móvil verificado. Referencia %s", reference),
		Data: map[string]any{
			"trip_id":   tripID,
			"reference": reference,
		},
	})
}

// NotifyTripStarted tells the rider the ride to the destination began.
func (s *NotificationService) NotifyTripStarted(ctx context.Context, riderID, tripID string, etaSeconds int) error {
	return s.send(ctx, Notification{
		Type:        NotificationTripStarted,
		RecipientID: riderID,
		Title:       "Viaje en curso",
		Message:     fmt.Sprintf("Llegada estimada en %d min", (etaSeconds+59)/60),
		Data: map[string]any{
			"trip_id":     tripID,
			"eta_seconds": etaSeconds,
		},
	})
}

// NotifyTripCompleted asks the rider to rate the trip.
func (s *NotificationService) NotifyTripCompleted(ctx context.Context, riderID, tripID string) error {
	return s.send(ctx, Notification{
		Type:        NotificationTripCompleted,
		RecipientID: riderID,
		Title:       "¡Llegaste a tu destino!",
		Message:     "¿Qué tal estuvo tu viaje? Califica a tu conductor.",
		Data:        map[string]any{"trip_id": tripID},
	})
}

// NotifyRatingReceived tells the driver the rating they got.
func (s *NotificationService) NotifyRatingReceived(ctx context.Context, driverID, tripID string, rating int) error {
	return s.send(ctx, Notification{
		Type:        NotificationRatingReceived,
		RecipientID: driverID,
		Title:       "Nueva calificación",
		Message:     fmt.Sprintf("Recibiste %d estrellas", rating),
		Data: map[string]any{
			"trip_id": tripID,
			"rating":  rating,
		},
	})
}

// NotifyTripCancelled tells the other party the trip was cancelled.
func (s *NotificationService) NotifyTripCancelled(ctx context.Context, recipientID, tripID string, phase domain.Phase) error {
	if recipientID == "" {
		return nil
	}
	return s.send(ctx, Notification{
		Type:        NotificationTripCancelled,
		RecipientID: recipientID,
		Title:       "Viaje cancelado",
		Message:     "El viaje fue cancelado.",
		Data: map[string]any{
			"trip_id": tripID,
			"phase":   phase,
		},
	})
}

// send delivers a notification. Delivery is a log line; push providers are
// outside this service.
func (s *NotificationService) send(ctx context.Context, n Notification) error {
	n.ID = uuid.NewString()
	n.CreatedAt = s.now()

	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Title=%s, Message=%s",
		n.Type, n.RecipientID, n.Title, n.Message)

	return nil
}
