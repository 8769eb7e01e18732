package app

import (
	"context"
	"log"

	"motoya/internal/config"
	"motoya/internal/mq"
	"motoya/internal/service"
)

// NewEventPublisher connects to RabbitMQ when it is enabled. Otherwise trip
// events are written to the log. The returned func closes the connection.
func NewEventPublisher(ctx context.Context, cfg config.RabbitMQConfig) (service.EventPublisher, func(), error) {
	if !cfg.Enabled {
		log.Println("RabbitMQ disabled, trip events go to the log")
		return service.LogPublisher{}, func() {}, nil
	}

	pub, err := mq.NewPublisher(ctx, cfg.URL(), cfg.Exchange)
	if err != nil {
		return nil, nil, err
	}
	return pub, pub.Close, nil
}
