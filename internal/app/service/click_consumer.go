package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/youwow/affiliate/internal/app/model"
	natsclient "github.com/youwow/affiliate/internal/infra/nats"
	infraPrometheus "github.com/youwow/affiliate/internal/infra/prometheus"
	"go.uber.org/zap"
)

// ClickWorkQueue is the JetStream layout of the click pipeline. Jobs are
// delivered once; failures are logged and terminated, never redelivered.
var ClickWorkQueue = natsclient.WorkQueue{
	Stream:     model.ClickStreamName,
	Subject:    model.ClickStreamSubject,
	Consumer:   model.ClickConsumerName,
	MaxBytes:   model.ClickStreamMaxBytes,
	MaxDeliver: 1,
}

// jobAcker settles one delivery. *nats.Msg satisfies it.
type jobAcker interface {
	Ack(opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
}

// ClickConsumer consumes click jobs from NATS JetStream and records them.
type ClickConsumer struct {
	js       nats.JetStreamContext
	logger   *zap.Logger
	recorder ClickRecorder
	stopChan chan struct{}
	done     chan struct{}
}

// NewClickConsumer creates a new click job consumer
func NewClickConsumer(js nats.JetStreamContext, logger *zap.Logger, recorder ClickRecorder) *ClickConsumer {
	return &ClickConsumer{
		js:       js,
		logger:   logger,
		recorder: recorder,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start ensures the stream and durable consumer exist and begins consuming.
func (c *ClickConsumer) Start() error {
	if err := natsclient.EnsureWorkQueue(c.js, ClickWorkQueue); err != nil {
		return err
	}

	sub, err := c.js.PullSubscribe(model.ClickStreamSubject, model.ClickConsumerName, nats.Bind(model.ClickStreamName, model.ClickConsumerName))
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

// Stop ends the fetch loop and waits for the in-flight batch.
func (c *ClickConsumer) Stop() {
	close(c.stopChan)
	<-c.done
	c.logger.Info("click consumer stopped")
}

func (c *ClickConsumer) consume(sub *nats.Subscription) {
	defer close(c.done)
	for {
		select {
		case <-c.stopChan:
			_ = sub.Unsubscribe()
			return
		default:
		}

		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			c.logger.Error("failed to fetch click jobs", zap.Error(err))
			select {
			case <-c.stopChan:
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range msgs {
			c.handle(msg.Data, msg)
		}
	}
}

// handle records one job. The delivery is acked when the click was stored,
// deduplicated or rejected, and terminated otherwise.
func (c *ClickConsumer) handle(data []byte, msg jobAcker) {
	var job model.ClickJob
	if err := json.Unmarshal(data, &job); err != nil {
		c.logger.Error("failed to unmarshal click job", zap.Error(err))
		_ = msg.Term()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if processClickJob(ctx, c.recorder, c.logger, job) {
		infraPrometheus.ClickJobs.WithLabelValues("nats", "failed").Inc()
		_ = msg.Term()
		return
	}
	_ = msg.Ack()
}
