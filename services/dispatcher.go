package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cameronkey/petproduct-sp-ecom/metrics"
)

var (
	ErrDispatcherClosed = errors.New("dispatcher is shut down")
	ErrQueueFull        = errors.New("background queue is full")
)

// Task is a unit of background work. Run receives a context bounded by the
// dispatcher's per-task timeout.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// TaskError is delivered on the error channel when a task fails.
type TaskError struct {
	Task string
	Err  error
}

func (e TaskError) Error() string { return fmt.Sprintf("task %s: %v", e.Task, e.Err) }

func (e TaskError) Unwrap() error { return e.Err }

type DispatcherConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Dispatcher runs tasks off the request path on a fixed set of workers.
// Failures never reach the submitter; they are logged and counted by a
// reporter goroutine that drains the error channel.
type Dispatcher struct {
	tasks   chan Task
	errs    chan TaskError
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool

	workers  sync.WaitGroup
	reporter sync.WaitGroup
	onError  func(TaskError)
}

func NewDispatcher(cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	d := &Dispatcher{
		tasks:   make(chan Task, cfg.QueueSize),
		errs:    make(chan TaskError, cfg.QueueSize),
		timeout: cfg.Timeout,
		logger:  logger,
	}

	d.reporter.Add(1)
	go d.report()

	d.workers.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.work()
	}
	return d
}

// OnError registers a hook called by the reporter for every failed task.
// It must be set before the first Submit.
func (d *Dispatcher) OnError(fn func(TaskError)) {
	d.onError = fn
}

// Submit enqueues t without blocking. It fails when the queue is full or the
// dispatcher has been shut down.
func (d *Dispatcher) Submit(t Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.tasks <- t:
		metrics.BackgroundQueueDepth.Inc()
		return nil
	default:
		metrics.BackgroundTasks.WithLabelValues(t.Name, "dropped").Inc()
		d.logger.Error("background task dropped, queue full", zap.String("task", t.Name))
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish or for
// ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.workers.Wait()
		close(d.errs)
		d.reporter.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}

func (d *Dispatcher) work() {
	defer d.workers.Done()
	for t := range d.tasks {
		metrics.BackgroundQueueDepth.Dec()
		if err := d.run(t); err != nil {
			d.errs <- TaskError{Task: t.Name, Err: err}
			continue
		}
		metrics.BackgroundTasks.WithLabelValues(t.Name, "ok").Inc()
	}
}

func (d *Dispatcher) run(t Task) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Run(ctx)
}

func (d *Dispatcher) report() {
	defer d.reporter.Done()
	for te := range d.errs {
		result := "failed"
		if errors.Is(te.Err, ErrDuplicateOrder) {
			result = "duplicate"
		}
		metrics.BackgroundTasks.WithLabelValues(te.Task, result).Inc()
		if result == "duplicate" {
			d.logger.Info("background task skipped", zap.String("task", te.Task), zap.Error(te.Err))
		} else {
			d.logger.Error("background task failed", zap.String("task", te.Task), zap.Error(te.Err))
		}
		if d.onError != nil {
			d.onError(te)
		}
	}
}
