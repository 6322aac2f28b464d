// Package publisher fans stored notifications out to Kafka for push delivery.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"civic/internal/notification/models"
)

// Producer is satisfied by *kafka.Producer.
type Producer interface {
	Publish(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// Kafka encodes notifications as JSON keyed by user id so one user's
// notifications stay ordered within a partition.
type Kafka struct {
	producer Producer
}

func NewKafka(producer Producer) *Kafka {
	return &Kafka{producer: producer}
}

func (k *Kafka) Publish(ctx context.Context, n *models.Notification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return k.producer.Publish(ctx, n.UserID.String(), value, map[string]string{
		"type":            string(n.Type),
		"notification_id": n.ID,
	})
}
