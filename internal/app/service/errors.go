package service

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrValidation wraps missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrPartnerInactive signals a partner that may not accrue clicks or conversions.
	ErrPartnerInactive = errors.New("partner is not active")
	// ErrInvalidStatus signals an unknown partner status value.
	ErrInvalidStatus = errors.New("invalid partner status")
)

type options struct {
	now    func() time.Time
	logger *zap.Logger
}

// Option customizes a service.
type Option func(*options)

// WithClock overrides the service's time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
