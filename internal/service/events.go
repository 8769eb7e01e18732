package service

import (
	"context"
	"encoding/json"
	"log"
)

// EventPublisher sends domain events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// LogPublisher writes events to the log instead of a broker. It is used when
// RabbitMQ is disabled and by the simulator.
type LogPublisher struct{}

// Publish logs the event.
func (LogPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	log.Printf("[EVENT] %s %s", routingKey, body)
	return nil
}
