package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultQueueSize = 128

// Service is a bounded in-memory work queue drained by a fixed set of
// workers. Enqueue never blocks; a full queue drops the job with a warning.
type Service struct {
	queue   chan job
	workers int
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type job struct {
	Type     string
	Enqueued time.Time
	Run      func(context.Context) error
}

func New(size, workers int, logger *zap.Logger) *Service {
	if size <= 0 {
		size = defaultQueueSize
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		queue:   make(chan job, size),
		workers: workers,
		logger:  logger,
	}
}

func (s *Service) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) error) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.Warn("job queue closed", zap.String("jobType", jobType))
		return false
	}
	select {
	case s.queue <- job{Type: jobType, Enqueued: time.Now(), Run: run}:
		return true
	default:
		s.logger.Warn("job queue full", zap.String("jobType", jobType))
		return false
	}
}

// RunNow executes run on the caller's goroutine with the same logging as a
// queued job.
func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) error) error {
	return s.runJob(ctx, job{Type: jobType, Enqueued: time.Now(), Run: run})
}

// Close stops accepting jobs and waits for queued ones to finish.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) Pending() int {
	return len(s.queue)
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-s.queue:
			if !ok {
				return
			}
			if err := s.runJob(ctx, j); err != nil {
				s.logger.Warn("job run failed", zap.String("jobType", j.Type), zap.Error(err))
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (err error) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", zap.String("jobType", j.Type), zap.Any("panic", r))
			err = fmt.Errorf("job panicked: %v", r)
		}
		s.logger.Debug("job finished",
			zap.String("jobType", j.Type),
			zap.Duration("queued", started.Sub(j.Enqueued)),
			zap.Duration("duration", time.Since(started)),
			zap.Bool("failed", err != nil),
		)
	}()
	return j.Run(ctx)
}
