package service

import (
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"motoya/internal/domain"
)

// Metrics records business events about trips.
type Metrics interface {
	TripFinished(r domain.Result, duration time.Duration)
}

// NewRelicMetrics records trip events as New Relic custom events.
type NewRelicMetrics struct {
	app *newrelic.Application
}

// NewNewRelicMetrics wraps app. A nil app records nothing.
func NewNewRelicMetrics(app *newrelic.Application) *NewRelicMetrics {
	return &NewRelicMetrics{app: app}
}

// TripFinished records a TripFinished custom event.
func (m *NewRelicMetrics) TripFinished(r domain.Result, duration time.Duration) {
	if m.app == nil {
		return
	}
	m.app.RecordCustomEvent("TripFinished", map[string]any{
		"tripId":          r.TripID,
		"role":            string(r.Role),
		"outcome":         string(r.Outcome),
		"phase":           string(r.Phase),
		"paymentMethod":   string(r.PaymentMethod),
		"rating":          r.Rating,
		"durationSeconds": duration.Seconds(),
	})
}
