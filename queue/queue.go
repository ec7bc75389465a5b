// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docqa/core"
)

const (
	// DefaultMaxRetries is how many times a transient failure is retried.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the pause before a retried task re-enters the queue.
	DefaultRetryDelay = 30 * time.Second

	// DefaultWaitTimeout bounds how long the dispatcher blocks waiting for
	// work before re-checking for shutdown.
	DefaultWaitTimeout = 5 * time.Second

	// DefaultCapacity is the pending buffer size.
	DefaultCapacity = 1024

	// completedRetention is how long completed tasks stay visible in the
	// registry before ClearCompleted may discard them.
	completedRetention = 24 * time.Hour
)

// Handler processes a single queued task. Returning an error wrapped with
// Permanent fails the task immediately; any other error is retried.
type Handler interface {
	Process(ctx context.Context, task *core.ProcessingTask) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, task *core.ProcessingTask) error

func (f HandlerFunc) Process(ctx context.Context, task *core.ProcessingTask) error {
	return f(ctx, task)
}

// FailureHandler is implemented by handlers that need to act when a task
// is terminally failed, whether by a permanent error or by exhausting its
// retries. The task is a snapshot; mutating it has no effect.
type FailureHandler interface {
	OnFailure(ctx context.Context, task *core.ProcessingTask, err error)
}

// Queue is an in-memory FIFO task queue for document processing. It owns
// its task registry; callers observe progress through Status and Stats.
// Tasks do not survive a process restart.
type Queue struct {
	handler     Handler
	maxRetries  int
	retryDelay  time.Duration
	waitTimeout time.Duration
	capacity    int
	workers     int
	logger      *slog.Logger

	mu      sync.Mutex
	tasks   map[string]*core.ProcessingTask
	pending chan string
	stop    chan struct{}
	started bool
	stopped bool
	wg      sync.WaitGroup
	pool    *ants.Pool
}

// Option configures a Queue.
type Option func(*Queue) error

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(q *Queue) error {
		if n < 0 {
			n = 0
		}
		q.maxRetries = n
		return nil
	}
}

// WithRetryDelay sets the pause before a retried task re-enters the queue.
func WithRetryDelay(d time.Duration) Option {
	return func(q *Queue) error {
		if d < 0 {
			d = 0
		}
		q.retryDelay = d
		return nil
	}
}

// WithWaitTimeout sets the dispatcher's idle wake-up interval.
func WithWaitTimeout(d time.Duration) Option {
	return func(q *Queue) error {
		if d <= 0 {
			d = DefaultWaitTimeout
		}
		q.waitTimeout = d
		return nil
	}
}

// WithCapacity sets the pending buffer size.
func WithCapacity(n int) Option {
	return func(q *Queue) error {
		if n < 1 {
			n = 1
		}
		q.capacity = n
		return nil
	}
}

// WithWorkers sets the worker pool size. The default of 1 preserves strict
// FIFO processing order; larger pools trade ordering for throughput.
func WithWorkers(n int) Option {
	return func(q *Queue) error {
		if n < 1 {
			n = 1
		}
		q.workers = n
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) error {
		if logger == nil {
			logger = slog.Default()
		}
		q.logger = logger
		return nil
	}
}

// New creates a Queue. Call Start to begin processing.
func New(handler Handler, opts ...Option) (*Queue, error) {
	if handler == nil {
		return nil, ErrHandlerRequired
	}

	q := &Queue{
		handler:     handler,
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		waitTimeout: DefaultWaitTimeout,
		capacity:    DefaultCapacity,
		workers:     1,
		logger:      slog.Default(),
		tasks:       make(map[string]*core.ProcessingTask),
		stop:        make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt(q); err != nil {
			return nil, err
		}
	}

	q.logger = q.logger.With("component", "queue")
	q.pending = make(chan string, q.capacity)

	pool, err := ants.NewPool(q.workers)
	if err != nil {
		return nil, err
	}
	q.pool = pool

	return q, nil
}

// Enqueue registers a document for processing and returns the task ID.
func (q *Queue) Enqueue(documentID, filename string, priority bool) (string, error) {
	task := &core.ProcessingTask{
		TaskID:     uuid.NewString(),
		DocumentID: documentID,
		Filename:   filename,
		Status:     core.TaskPending,
		CreatedAt:  time.Now().UTC(),
		Priority:   priority,
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return "", ErrQueueClosed
	}
	q.tasks[task.TaskID] = task
	q.mu.Unlock()

	select {
	case q.pending <- task.TaskID:
	default:
		q.mu.Lock()
		delete(q.tasks, task.TaskID)
		q.mu.Unlock()
		return "", ErrQueueFull
	}

	q.logger.Info("task enqueued",
		"task_id", task.TaskID,
		"document_id", documentID,
		"filename", filename,
		"priority", priority)
	return task.TaskID, nil
}

// TaskRequest names a document to process.
type TaskRequest struct {
	DocumentID string
	Filename   string
	Priority   bool
}

// EnqueueBulk registers several documents and returns their task IDs in
// request order. Items are enqueued independently: a failure leaves an
// empty string in that slot and does not prevent enqueuing the rest. The
// returned error joins all per-item failures.
func (q *Queue) EnqueueBulk(reqs []TaskRequest) ([]string, error) {
	ids := make([]string, len(reqs))
	var errs []error
	for i, r := range reqs {
		id, err := q.Enqueue(r.DocumentID, r.Filename, r.Priority)
		if err != nil {
			errs = append(errs, fmt.Errorf("enqueue %s: %w", r.DocumentID, err))
			continue
		}
		ids[i] = id
	}
	return ids, errors.Join(errs...)
}

// Start launches the dispatcher. Safe to call once.
func (q *Queue) Start() {
	q.mu.Lock()
	if q.started || q.stopped {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	q.wg.Add(1)
	go q.dispatch()
	q.logger.Info("queue started", "workers", q.workers)
}

// Stop shuts the queue down and waits for in-flight tasks to finish.
// Pending tasks that were never picked up stay in the registry as pending.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	started := q.started
	q.mu.Unlock()

	close(q.stop)
	if started {
		q.wg.Wait()
	}
	q.pool.Release()
	q.logger.Info("queue stopped")
}

// dispatch pulls task IDs off the pending channel and submits them to the
// worker pool. The wait timeout bounds how long a shutdown can be pending
// before the loop notices.
func (q *Queue) dispatch() {
	defer q.wg.Done()

	timer := time.NewTimer(q.waitTimeout)
	defer timer.Stop()

	for {
		timer.Reset(q.waitTimeout)
		select {
		case <-q.stop:
			return
		case taskID := <-q.pending:
			q.wg.Add(1)
			if err := q.pool.Submit(func() {
				defer q.wg.Done()
				q.run(taskID)
			}); err != nil {
				q.wg.Done()
				q.logger.Error("error submitting task to pool", "task_id", taskID, "err", err)
			}
		case <-timer.C:
			// Idle; loop to re-check for shutdown.
		}
	}
}

// run executes one task through the handler and applies the retry policy.
func (q *Queue) run(taskID string) {
	q.mu.Lock()
	task, ok := q.tasks[taskID]
	if !ok {
		q.mu.Unlock()
		return
	}
	task.Status = core.TaskProcessing
	task.StartedAt = time.Now().UTC()
	snapshot := *task
	q.mu.Unlock()

	q.logger.Info("task processing",
		"task_id", taskID,
		"document_id", snapshot.DocumentID,
		"attempt", snapshot.RetryCount+1)

	err := q.handler.Process(context.Background(), &snapshot)

	q.mu.Lock()

	task, ok = q.tasks[taskID]
	if !ok {
		q.mu.Unlock()
		return
	}

	if err == nil {
		task.Status = core.TaskCompleted
		task.CompletedAt = time.Now().UTC()
		task.ErrorMessage = ""
		q.mu.Unlock()
		q.logger.Info("task completed", "task_id", taskID, "document_id", snapshot.DocumentID)
		return
	}

	task.ErrorMessage = err.Error()

	if IsPermanent(err) || task.RetryCount >= q.maxRetries {
		failed := *task
		q.mu.Unlock()

		// Run the hook before publishing the terminal state so that an
		// observer who sees the task failed also sees its effects.
		if fh, ok := q.handler.(FailureHandler); ok {
			fh.OnFailure(context.Background(), &failed, err)
		}

		q.mu.Lock()
		if task, ok := q.tasks[taskID]; ok {
			task.Status = core.TaskFailed
			task.CompletedAt = time.Now().UTC()
		}
		q.mu.Unlock()

		q.logger.Error("task failed",
			"task_id", taskID,
			"document_id", failed.DocumentID,
			"retries", failed.RetryCount,
			"permanent", IsPermanent(err),
			"err", err)
		return
	}

	task.RetryCount++
	task.Status = core.TaskRetrying
	attempt := task.RetryCount
	q.wg.Add(1)
	q.mu.Unlock()
	q.logger.Warn("task retrying",
		"task_id", taskID,
		"document_id", snapshot.DocumentID,
		"attempt", attempt,
		"delay", q.retryDelay,
		"err", err)

	// Delay off the worker, then re-enqueue at the back of the queue.
	go func() {
		defer q.wg.Done()
		select {
		case <-time.After(q.retryDelay):
		case <-q.stop:
			return
		}
		select {
		case q.pending <- taskID:
		case <-q.stop:
		}
	}()
}

// Status returns a copy of the task with the given ID.
func (q *Queue) Status(taskID string) (core.ProcessingTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return core.ProcessingTask{}, ErrTaskNotFound
	}
	return *task, nil
}

// Tasks returns a copy of every task in the registry.
func (q *Queue) Tasks() []core.ProcessingTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]core.ProcessingTask, 0, len(q.tasks))
	for _, task := range q.tasks {
		out = append(out, *task)
	}
	return out
}

// Stats summarizes the registry by task status.
type Stats struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Retrying   int
	Total      int
}

// Stats returns current registry counts.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var s Stats
	for _, task := range q.tasks {
		switch task.Status {
		case core.TaskPending:
			s.Pending++
		case core.TaskProcessing:
			s.Processing++
		case core.TaskCompleted:
			s.Completed++
		case core.TaskFailed:
			s.Failed++
		case core.TaskRetrying:
			s.Retrying++
		}
	}
	s.Total = len(q.tasks)
	return s
}

// RetryFailed moves every failed task back to pending with a fresh retry
// budget. An operator action; returns the number of tasks re-enqueued.
func (q *Queue) RetryFailed() int {
	q.mu.Lock()
	var ids []string
	for id, task := range q.tasks {
		if task.Status == core.TaskFailed {
			task.Status = core.TaskPending
			task.RetryCount = 0
			task.ErrorMessage = ""
			task.CompletedAt = time.Time{}
			ids = append(ids, id)
		}
	}
	q.mu.Unlock()

	count := 0
	for _, id := range ids {
		select {
		case q.pending <- id:
			count++
		default:
			q.logger.Warn("queue full during retry of failed tasks", "task_id", id)
		}
	}
	if count > 0 {
		q.logger.Info("failed tasks re-enqueued", "count", count)
	}
	return count
}

// ClearCompleted removes completed tasks older than the given age. Zero
// means the default retention window. Failed, pending, and processing
// tasks are never removed. Returns the number of tasks removed.
func (q *Queue) ClearCompleted(olderThan time.Duration) int {
	if olderThan <= 0 {
		olderThan = completedRetention
	}
	cutoff := time.Now().UTC().Add(-olderThan)

	q.mu.Lock()
	defer q.mu.Unlock()

	count := 0
	for id, task := range q.tasks {
		if task.Status == core.TaskCompleted && task.CompletedAt.Before(cutoff) {
			delete(q.tasks, id)
			count++
		}
	}
	if count > 0 {
		q.logger.Info("completed tasks cleared", "count", count)
	}
	return count
}
