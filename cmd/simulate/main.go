// Command simulate runs one trip on the real clock with no infrastructure,
// confirming the encounter, paying and rating automatically.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"motoya/internal/clock"
	"motoya/internal/config"
	"motoya/internal/domain"
	"motoya/internal/service"
	"motoya/internal/trip"
)

func main() {
	role := pflag.String("role", string(domain.RoleRider), "viewing role: RIDER or DRIVER")
	method := pflag.String("method", string(domain.PaymentMethodMobileTransfer), "payment method: CASH or MOBILE_TRANSFER")
	rating := pflag.Int("rating", 5, "stars given at the end of the trip")
	pause := pflag.Duration("pause", 2*time.Second, "time the simulated user takes for each action")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	obs := newLogObserver()
	ctrl, err := trip.New(trip.Params{
		TripID: uuid.NewString(),
		Role:   domain.Role(*role),
		Counterparty: domain.Counterparty{
			ID:      "driver-sim",
			Name:    "Carlos Pérez",
			Vehicle: "Bera SBR 150",
			Plate:   "AB1C23D",
			Rating:  4.8,
			Transfer: &domain.TransferInstructions{
				BankCode:    "0102",
				Phone:       "0414-1234567",
				RecipientID: "V-12345678",
			},
		},
		Origin:      domain.Point{Lat: 0, Lng: 0},
		Destination: domain.Point{Lat: 12, Lng: 16},
		Vehicle:     domain.Point{Lat: -6, Lng: 8},
	}, cfg.Simulation.TripOptions(), clock.Real(), obs)
	if err != nil {
		log.Fatalf("failed to create trip: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctrl.Start()
	log.Printf("trip %s started as %s", ctrl.ID(), *role)

	drive(ctx, ctrl, obs.phases, domain.PaymentMethod(*method), *rating, *pause)

	res, ok := ctrl.Result()
	if !ok {
		log.Println("trip did not finish")
		os.Exit(1)
	}
	log.Printf("trip %s %s in %s: method=%s ref=%s rating=%d (%s)",
		res.TripID, res.Outcome, res.Phase, res.PaymentMethod, res.PaymentReference,
		res.Rating, trip.RatingLabel(res.Rating))
}

// drive reacts to phase changes the way a user of the app would.
func drive(ctx context.Context, ctrl *trip.Controller, phases <-chan domain.Phase, method domain.PaymentMethod, rating int, pause time.Duration) {
	for {
		select {
		case <-ctx.Done():
			log.Println("interrupted, cancelling trip")
			ctrl.Cancel()
			return
		case <-ctrl.Done():
			return
		case phase := <-phases:
			var err error
			switch phase {
			case domain.PhaseArrivedNotice:
				time.Sleep(pause)
				err = ctrl.ConfirmEncounter()
			case domain.PhasePaymentSelection:
				time.Sleep(pause)
				if err = ctrl.SelectPaymentMethod(method); err == nil {
					if snap := ctrl.Snapshot(); snap.Transfer != nil {
						log.Printf("transfer to bank %s phone %s id %s",
							snap.Transfer.BankCode, snap.Transfer.Phone, snap.Transfer.RecipientID)
					}
					time.Sleep(pause)
					err = ctrl.ConfirmPaymentSent()
				}
			case domain.PhaseCompleted:
				time.Sleep(pause)
				if err = ctrl.SubmitRating(rating, "Simulado"); err == nil {
					_, err = ctrl.Finalize()
				}
			}
			if err != nil {
				log.Printf("action in %s failed: %v", phase, err)
				ctrl.Cancel()
				return
			}
		}
	}
}

// logObserver prints snapshots and forwards phase changes to drive, which
// acts on them after its pauses without holding up delivery.
type logObserver struct {
	notifications *service.NotificationService
	phases        chan domain.Phase
	last          domain.Phase
}

func newLogObserver() *logObserver {
	return &logObserver{
		notifications: service.NewNotificationService(),
		phases:        make(chan domain.Phase, 8),
	}
}

func (o *logObserver) TripUpdated(s domain.Snapshot) {
	log.Printf("[%s] %s | vehicle=(%.2f, %.2f) remaining=%.2fkm eta=%ds | %s",
		s.View.Badge, s.Phase, s.Vehicle.Lat, s.Vehicle.Lng, s.RemainingKm, s.ETASeconds, s.View.Headline)

	if s.Phase == o.last || s.Outcome != domain.OutcomeActive {
		return
	}
	o.last = s.Phase

	ctx := context.Background()
	switch s.Phase {
	case domain.PhaseArrivedNotice:
		_ = o.notifications.NotifyDriverArrived(ctx, "rider-sim", s.TripID)
	case domain.PhaseInTrip:
		if s.PaymentReference != "" {
			_ = o.notifications.NotifyPaymentVerified(ctx, s.Counterparty.ID, s.TripID, s.PaymentReference)
		}
	case domain.PhaseCompleted:
		_ = o.notifications.NotifyTripCompleted(ctx, "rider-sim", s.TripID)
	}

	select {
	case o.phases <- s.Phase:
	default:
	}
}

func (o *logObserver) TripFinished(r domain.Result) {
	log.Printf("trip %s released: %s", r.TripID, r.Outcome)
}
