// Package intake consumes plant-room telemetry from a Kafka topic and appends
// it to the intake store through the same validation path as the HTTP
// boundary. Malformed messages are skipped and counted, never fatal.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	ck "github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"growbase/internal/metrics"
	"growbase/internal/model"
	"growbase/internal/store"
)

// messageReader abstracts ck.Consumer for testability.
type messageReader interface {
	ReadMessage(timeout time.Duration) (*ck.Message, error)
}

type Consumer struct {
	reader messageReader
	st     *store.Store[*model.Intake]
	mreg   *metrics.Registry // optional
	close  func()
}

// NewConsumer subscribes a confluent consumer to the telemetry topic.
func NewConsumer(bootstrap, groupID, topic string, st *store.Store[*model.Intake]) (*Consumer, error) {
	c, err := ck.NewConsumer(&ck.ConfigMap{
		"bootstrap.servers":  bootstrap,
		"group.id":           groupID,
		"enable.auto.commit": true,
		"auto.offset.reset":  "earliest",
	})
	if err != nil {
		return nil, fmt.Errorf("consumer: %w", err)
	}
	if err := c.SubscribeTopics([]string{topic}, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return &Consumer{reader: c, st: st, close: func() { c.Close() }}, nil
}

// NewConsumerWith is only for tests to inject a fake reader.
func NewConsumerWith(r messageReader, st *store.Store[*model.Intake]) *Consumer {
	return &Consumer{reader: r, st: st, close: func() {}}
}

// WithMetrics attaches the process metrics registry.
func (c *Consumer) WithMetrics(m *metrics.Registry) *Consumer {
	c.mreg = m
	return c
}

// Run consumes until ctx is cancelled. Read timeouts and malformed messages
// do not stop the loop.
func (c *Consumer) Run(ctx context.Context) {
	defer c.close()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		msg, err := c.reader.ReadMessage(2 * time.Second)
		if err != nil {
			// Timeouts are routine; anything else is logged and retried.
			if kerr, ok := err.(ck.Error); !ok || kerr.Code() != ck.ErrTimedOut {
				log.Printf("intake: read failed: %v", err)
			}
			continue
		}
		c.handle(msg.Value)
	}
}

func (c *Consumer) handle(value []byte) {
	var rec model.Intake
	if err := json.Unmarshal(value, &rec); err != nil {
		log.Printf("intake: skipping malformed message: %v", err)
		if c.mreg != nil {
			c.mreg.TelemetryRejected.Inc()
		}
		return
	}
	// Server-assigned fields always come from this process.
	rec.ID = ""
	rec.ReceivedAt = time.Time{}
	if err := rec.Validate(); err != nil {
		log.Printf("intake: skipping invalid message: %v", err)
		if c.mreg != nil {
			c.mreg.TelemetryRejected.Inc()
		}
		return
	}
	c.st.Append(&rec)
	if c.mreg != nil {
		c.mreg.TelemetryConsumed.Inc()
	}
}
