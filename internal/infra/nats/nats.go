package natsclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/youwow/affiliate/config"
	"go.uber.org/zap"
)

const (
	defaultConnectTimeout = 5 * time.Second
	reconnectWait         = 2 * time.Second
	maxReconnects         = 30

	// asyncMaxPending caps unacknowledged async publishes. Past the cap,
	// PublishAsync stalls briefly and then fails.
	asyncMaxPending = 256
)

// Connect creates a NATS connection (with JetStream available) using application config.
func Connect(cfg config.NATSConfig, logger *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []nats.Option{
		nats.Timeout(defaultConnectTimeout),
		nats.Name("youwow-affiliate"),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	conn, err := nats.Connect(buildURL(cfg), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("nats: connect: %w", err)
	}

	js, err := conn.JetStream(
		nats.PublishAsyncMaxPending(asyncMaxPending),
		nats.PublishAsyncErrHandler(func(_ nats.JetStream, msg *nats.Msg, err error) {
			logger.Error("nats async publish failed", zap.String("subject", msg.Subject), zap.Error(err))
		}),
	)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("nats: init jetstream: %w", err)
	}

	return conn, js, nil
}

// WorkQueue describes a work-queue stream with a single durable pull consumer.
type WorkQueue struct {
	Stream     string
	Subject    string
	Consumer   string
	MaxBytes   int64
	MaxDeliver int
}

// EnsureWorkQueue creates the stream and its durable consumer when missing.
func EnsureWorkQueue(js nats.JetStreamContext, q WorkQueue) error {
	if _, err := js.StreamInfo(q.Stream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return fmt.Errorf("nats: stream info: %w", err)
		}
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      q.Stream,
			Subjects:  []string{q.Subject},
			MaxBytes:  q.MaxBytes,
			Retention: nats.WorkQueuePolicy,
		})
		if err != nil {
			return fmt.Errorf("nats: create stream: %w", err)
		}
	}

	if _, err := js.ConsumerInfo(q.Stream, q.Consumer); err != nil {
		if !errors.Is(err, nats.ErrConsumerNotFound) {
			return fmt.Errorf("nats: consumer info: %w", err)
		}
		_, err = js.AddConsumer(q.Stream, &nats.ConsumerConfig{
			Durable:    q.Consumer,
			AckPolicy:  nats.AckExplicitPolicy,
			MaxDeliver: q.MaxDeliver,
		})
		if err != nil {
			return fmt.Errorf("nats: create consumer: %w", err)
		}
	}
	return nil
}

func buildURL(cfg config.NATSConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 4222
	}
	return fmt.Sprintf("nats://%s:%d", host, port)
}
