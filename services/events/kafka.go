// Package eventsvc implements core.EventPublisher.
package eventsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/campuserp/erp/core"
)

type kafkaPublisher struct {
	writer *kafka.Writer
	logger core.Logger
}

var _ core.EventPublisher = (*kafkaPublisher)(nil)

// NewKafkaPublisher writes events to conf.Kafka.Topic, keyed by Event.Key.
func NewKafkaPublisher(conf *core.Config, logger core.Logger) core.EventPublisher {
	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(conf.KafkaBrokers()...),
			Topic:                  conf.Kafka.Topic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           10 * time.Second,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

func toMessages(events []core.Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, evt := range events {
		payload, err := json.Marshal(evt)
		if err != nil {
			return nil, errors.Wrapf(err, "marshaling %s event", evt.Name)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(evt.Key),
			Value:   payload,
			Time:    evt.OccurredAt,
			Headers: []kafka.Header{{Key: "event", Value: []byte(evt.Name)}},
		})
	}
	return msgs, nil
}

func (p *kafkaPublisher) Publish(ctx context.Context, events ...core.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs, err := toMessages(events)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return errors.Wrap(err, "publishing events")
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// NewPublisher returns a Kafka publisher when brokers are configured, a logging one otherwise.
func NewPublisher(conf *core.Config, logger core.Logger) core.EventPublisher {
	if len(conf.KafkaBrokers()) == 0 {
		return NewLogPublisher(logger)
	}
	return NewKafkaPublisher(conf, logger)
}
