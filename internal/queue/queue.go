package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"prospector/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// IngestQueue buffers property batches between the ingest endpoint and the
// upsert workers. Push never blocks; a full buffer is the caller's
// backpressure signal. Close drains whatever is buffered before returning.
type IngestQueue struct {
	items    chan []*models.Property
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	drained  sync.WaitGroup
	logger   *logrus.Logger
	handlers []func([]*models.Property) error
}

// NewIngestQueue creates a queue with the specified buffer size.
func NewIngestQueue(bufferSize int, logger *logrus.Logger) *IngestQueue {
	return &IngestQueue{
		items:    make(chan []*models.Property, bufferSize),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func([]*models.Property) error, 0),
	}
}

// Push adds a batch without blocking, returning ErrQueueFull on a full
// buffer and ErrQueueClosed after Close. The read lock is held across the
// send so Close cannot tear the channel down underneath it.
func (q *IngestQueue) Push(batch []*models.Property) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Queued ingest batch")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler that will be called for each batch.
func (q *IngestQueue) Subscribe(handler func([]*models.Property) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins draining the queue in a background goroutine.
func (q *IngestQueue) Start() {
	q.drained.Add(1)
	go q.process()
}

func (q *IngestQueue) process() {
	defer q.drained.Done()
	for batch := range q.items {
		if len(batch) == 0 {
			continue
		}
		q.dispatch(batch)
	}
}

func (q *IngestQueue) dispatch(batch []*models.Property) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Close rejects further pushes, then waits for the drain goroutine to hand
// every buffered batch to the handlers.
func (q *IngestQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.items)
	q.mu.Unlock()

	q.drained.Wait()
	return nil
}

// Len returns the number of batches currently buffered.
func (q *IngestQueue) Len() int {
	return len(q.items)
}

// IsClosed reports whether the queue has been closed.
func (q *IngestQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
