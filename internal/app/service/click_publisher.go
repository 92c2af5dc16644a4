package service

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/youwow/affiliate/internal/app/model"
	infraPrometheus "github.com/youwow/affiliate/internal/infra/prometheus"
)

// ClickPublisher publishes click jobs to NATS JetStream
type ClickPublisher struct {
	js nats.JetStreamContext
}

// NewClickPublisher creates a new click job publisher
func NewClickPublisher(js nats.JetStreamContext) *ClickPublisher {
	return &ClickPublisher{js: js}
}

// Dispatch queues job for an asynchronous publish to the click stream. The
// number of unacknowledged publishes is capped by the JetStream context;
// failed acks are reported through its async error handler.
func (p *ClickPublisher) Dispatch(_ context.Context, job model.ClickJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	if _, err := p.js.PublishAsync(model.ClickStreamSubject, data); err != nil {
		infraPrometheus.ClickJobs.WithLabelValues("nats", "failed").Inc()
		return err
	}
	infraPrometheus.ClickJobs.WithLabelValues("nats", "enqueued").Inc()
	return nil
}
