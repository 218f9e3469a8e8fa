package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	ErrQueueStopped = errors.New("queue is not running")
	ErrQueueFull    = errors.New("queue is full")
)

// TaskProcessor runs one chain task.
type TaskProcessor interface {
	ProcessTask(ctx context.Context, task *RequestTask) *TaskResponse
}

// RequestQueue runs chain tasks one after another. All tasks share one browser
// session, so a single worker drains the queue.
type RequestQueue struct {
	processor TaskProcessor
	size      int

	mu      sync.RWMutex
	tasks   chan *RequestTask
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewRequestQueue creates a queue that holds up to size waiting tasks.
func NewRequestQueue(processor TaskProcessor, size int) *RequestQueue {
	return &RequestQueue{processor: processor, size: size}
}

// Start launches the worker.
func (q *RequestQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tasks != nil {
		return fmt.Errorf("queue is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.tasks = make(chan *RequestTask, q.size)
	q.cancel = cancel
	q.stopped = make(chan struct{})
	go q.work(ctx, q.tasks, q.stopped)

	log.Debug("Request queue started")
	return nil
}

// Stop cancels the running task and answers every waiting task with
// ErrQueueStopped. It returns once the worker has exited.
func (q *RequestQueue) Stop() error {
	q.mu.Lock()
	if q.tasks == nil {
		q.mu.Unlock()
		return ErrQueueStopped
	}
	tasks, stopped := q.tasks, q.stopped
	q.cancel()
	close(tasks)
	q.tasks, q.cancel, q.stopped = nil, nil, nil
	q.mu.Unlock()

	<-stopped
	log.Debug("Request queue stopped")
	return nil
}

// AddTask queues task without blocking.
func (q *RequestQueue) AddTask(task *RequestTask) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.tasks == nil {
		return ErrQueueStopped
	}

	select {
	case q.tasks <- task:
		log.Debugf("Task %s added to queue", task.ID)
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *RequestQueue) work(ctx context.Context, tasks <-chan *RequestTask, stopped chan<- struct{}) {
	defer close(stopped)

	for task := range tasks {
		if ctx.Err() != nil {
			reply(task, &TaskResponse{Error: ErrQueueStopped})
			continue
		}

		log.Debugf("Processing task %s (chain %s)", task.ID, task.Chain)
		start := time.Now()
		response := q.processor.ProcessTask(ctx, task)
		log.Debugf("Task %s completed in %v", task.ID, time.Since(start))
		reply(task, response)
	}
}

// reply hands the response to the waiting handler. Handlers that gave up have
// stopped reading, so the response is dropped.
func reply(task *RequestTask, response *TaskResponse) {
	select {
	case task.Response <- response:
	default:
		log.Debugf("Nobody waits for the response of task %s", task.ID)
	}
}

// Pending is the number of tasks waiting for the worker.
func (q *RequestQueue) Pending() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tasks)
}

// IsRunning reports whether the worker accepts tasks.
func (q *RequestQueue) IsRunning() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.tasks != nil
}
