package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/okian/droprelay/internal/domain/model"
	"github.com/okian/droprelay/pkg/logger"
	"github.com/okian/droprelay/pkg/metrics"
)

// KafkaReader is the subset of kafka.Reader used by KafkaListener.
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaRecord is the JSON value of one topic message.
type kafkaRecord struct {
	ChannelID string `json:"channel_id"`
	Fields    []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"fields"`
}

// KafkaListener consumes records published to a kafka topic.
type KafkaListener struct {
	reader    KafkaReader
	channelID string
	logger    logger.Logger
}

// NewKafkaReader builds a consumer group reader that starts at the newest
// offset when the group has no commit yet. Old drops are never useful.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
		StartOffset: kafka.LastOffset,
		Dialer:      &kafka.Dialer{Timeout: 10 * time.Second},
	})
}

// NewKafkaListener wraps a reader.
func NewKafkaListener(reader KafkaReader, opts ...KafkaOption) *KafkaListener {
	k := &KafkaListener{
		reader: reader,
		logger: logger.Get().Named("kafka"),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Name implements Listener.
func (k *KafkaListener) Name() string { return "kafka" }

// Listen fetches, handles and commits messages in order until ctx is canceled.
// The reader is closed on return.
func (k *KafkaListener) Listen(ctx context.Context, handler Handler, onState StateFunc) error {
	if handler == nil {
		return ErrNilHandler
	}
	defer func() {
		if err := k.reader.Close(); err != nil {
			k.logger.Warn(ctx, "close kafka reader", logger.Error(err))
		}
	}()

	notify(onState, StateConnected)
	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				notify(onState, StateDisconnected)
				return nil
			}
			notify(onState, StateError)
			metrics.RecordErrorByComponent("feed", "kafka_fetch")
			return fmt.Errorf("fetch kafka message: %w", err)
		}

		if rec, ok := k.decode(ctx, msg); ok {
			if err := handler(ctx, rec); err != nil {
				k.logger.Error(ctx, "record handler failed", logger.Error(err))
			}
		}
		if err := k.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			k.logger.Warn(ctx, "commit kafka message", logger.Error(err), logger.Int("partition", msg.Partition))
		}
	}
}

func (k *KafkaListener) decode(ctx context.Context, msg kafka.Message) (model.Record, bool) {
	var kr kafkaRecord
	if err := json.Unmarshal(msg.Value, &kr); err != nil {
		k.logger.Debug(ctx, "undecodable kafka message", logger.Error(err))
		return model.Record{}, false
	}
	if k.channelID != "" && kr.ChannelID != k.channelID {
		return model.Record{}, false
	}
	rec := model.Record{Source: k.Name(), ChannelID: kr.ChannelID}
	for _, f := range kr.Fields {
		rec.Fields = append(rec.Fields, model.Field{Name: f.Name, Value: f.Value})
	}
	return rec, true
}
