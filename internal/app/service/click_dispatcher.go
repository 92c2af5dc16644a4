package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/youwow/affiliate/internal/app/model"
	infraPrometheus "github.com/youwow/affiliate/internal/infra/prometheus"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the local click queue cannot take more work.
	ErrQueueFull = errors.New("click queue is full")
	// ErrQueueClosed is returned after the local click queue has been stopped.
	ErrQueueClosed = errors.New("click queue is closed")
)

// ClickDispatcher hands click jobs to background processing. Dispatch only
// buffers the job and fails fast when the buffer is full; it never waits for
// the click to be recorded.
type ClickDispatcher interface {
	Dispatch(ctx context.Context, job model.ClickJob) error
}

// processClickJob records job once and reports whether it failed for a
// reason other than a rejected precondition. Failures are logged, never retried.
func processClickJob(ctx context.Context, recorder ClickRecorder, logger *zap.Logger, job model.ClickJob) (failed bool) {
	event, created, err := recorder.RecordClick(ctx, RecordClickInput{
		PartnerID:   job.PartnerID,
		SessionID:   job.SessionID,
		LandingPage: job.LandingPage,
		UTM:         job.UTM,
		ClientIP:    job.ClientIP,
		UserAgent:   job.UserAgent,
		Referrer:    job.Referrer,
		ClickedAt:   job.QueuedAt,
	})
	if err != nil {
		if IsPermanent(err) {
			logger.Warn("click job rejected",
				zap.String("partner_id", job.PartnerID),
				zap.String("session_id", job.SessionID),
				zap.Error(err),
			)
			return false
		}
		logger.Error("failed to record click",
			zap.String("partner_id", job.PartnerID),
			zap.String("session_id", job.SessionID),
			zap.Error(err),
		)
		return true
	}

	logger.Debug("click job processed",
		zap.String("click_id", event.ID),
		zap.String("partner_id", event.PartnerID),
		zap.Bool("created", created),
	)
	return false
}

// LocalClickQueue is an in-process bounded queue drained by a fixed worker
// pool. Jobs still queued at process exit are lost.
type LocalClickQueue struct {
	recorder ClickRecorder
	logger   *zap.Logger
	workers  int
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan model.ClickJob
	wg     sync.WaitGroup
}

// NewLocalClickQueue creates a queue holding up to size jobs processed by workers goroutines.
func NewLocalClickQueue(recorder ClickRecorder, logger *zap.Logger, workers, size int) *LocalClickQueue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalClickQueue{
		recorder: recorder,
		logger:   logger,
		workers:  workers,
		timeout:  10 * time.Second,
		jobs:     make(chan model.ClickJob, size),
	}
}

// Start launches the worker pool.
func (q *LocalClickQueue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
}

// Dispatch enqueues job without blocking.
func (q *LocalClickQueue) Dispatch(_ context.Context, job model.ClickJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		infraPrometheus.ClickJobs.WithLabelValues("local", "enqueued").Inc()
		return nil
	default:
		infraPrometheus.ClickJobs.WithLabelValues("local", "dropped").Inc()
		return ErrQueueFull
	}
}

// Stop refuses new jobs, drains the queue and waits for the workers.
func (q *LocalClickQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("local click queue stopped")
}

func (q *LocalClickQueue) work() {
	defer q.wg.Done()
	for job := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if processClickJob(ctx, q.recorder, q.logger, job) {
			infraPrometheus.ClickJobs.WithLabelValues("local", "failed").Inc()
		}
		cancel()
	}
}
