package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chargelens/backend/services/telemetry-service/internal/models"
)

// Publisher receives decoded status events.
type Publisher interface {
	PublishStatus(event models.StatusEvent)
}

// Subscriber relays StatusChannel messages to a local publisher, so every replica's
// stream subscribers see upserts made by any replica.
type Subscriber struct {
	client    *redis.Client
	publisher Publisher
	logger    *zap.Logger
}

// NewSubscriber builds subscriber.
func NewSubscriber(client *redis.Client, publisher Publisher, logger *zap.Logger) *Subscriber {
	return &Subscriber{client: client, publisher: publisher, logger: logger}
}

// Run blocks until ctx is cancelled or the subscription fails.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, StatusChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", StatusChannel, err)
	}
	s.logger.Info("listening for status events", zap.String("channel", StatusChannel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			event, err := decodeStatusEvent(msg.Payload)
			if err != nil {
				s.logger.Warn("skipping malformed status event", zap.Error(err))
				continue
			}
			s.publisher.PublishStatus(event)
		}
	}
}

func decodeStatusEvent(payload string) (models.StatusEvent, error) {
	var raw struct {
		Kind     string          `json:"kind"`
		EntityID string          `json:"entityId"`
		Status   json.RawMessage `json:"status"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return models.StatusEvent{}, err
	}

	event := models.StatusEvent{Kind: raw.Kind, EntityID: raw.EntityID}
	switch raw.Kind {
	case models.KindVehicle:
		var status models.VehicleCurrentStatus
		if err := json.Unmarshal(raw.Status, &status); err != nil {
			return models.StatusEvent{}, err
		}
		event.Status = status
	case models.KindMeter:
		var status models.MeterCurrentStatus
		if err := json.Unmarshal(raw.Status, &status); err != nil {
			return models.StatusEvent{}, err
		}
		event.Status = status
	default:
		return models.StatusEvent{}, fmt.Errorf("unknown status kind %q", raw.Kind)
	}
	return event, nil
}
