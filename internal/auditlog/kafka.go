package auditlog

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/iurnickita/shopsync/internal/auditlog/config"
	"github.com/iurnickita/shopsync/internal/model"
)

// событие журнала в топике
type actionEvent struct {
	StoreID    int64           `json:"store_id"`
	Type       string          `json:"type"`
	ResourceID string          `json:"resource_id"`
	Status     string          `json:"status"`
	Message    string          `json:"message"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher возвращает nil, если брокеры не заданы.
func NewKafkaPublisher(cfg config.Config) Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return nil
	}
	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.KafkaBrokers...),
			Topic:    cfg.KafkaTopic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (k *kafkaPublisher) Publish(ctx context.Context, rec model.ActionLog) error {
	v, err := json.Marshal(actionEvent{
		StoreID:    rec.StoreID,
		Type:       rec.Type,
		ResourceID: rec.ResourceID,
		Status:     rec.Status,
		Message:    rec.Message,
		Payload:    rec.Payload,
		CreatedAt:  rec.CreatedAt,
	})
	if err != nil {
		return err
	}

	// ключ по магазину: события одного магазина попадают в одну партицию
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(rec.StoreID, 10)),
		Value: v,
		Time:  rec.CreatedAt,
	})
}

func (k *kafkaPublisher) Close() error {
	return k.writer.Close()
}
