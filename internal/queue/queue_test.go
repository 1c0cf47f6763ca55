package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"prospector/server/internal/models"
)

func testBatch(street string) []*models.Property {
	return []*models.Property{{Address: models.Address{Street: street}}}
}

func TestNewIngestQueue(t *testing.T) {
	logger := logrus.New()
	q := NewIngestQueue(10, logger)
	assert.NotNil(t, q)
	assert.Equal(t, 10, q.maxSize)
	assert.False(t, q.IsClosed())
}

func TestIngestQueue_Push(t *testing.T) {
	logger := logrus.New()
	q := NewIngestQueue(2, logger)

	err := q.Push(testBatch("1 Test St"))
	assert.NoError(t, err)
	assert.Equal(t, 1, q.Len())

	// Fill up and overflow
	for i := 0; i < 2; i++ {
		_ = q.Push(testBatch("2 Test St"))
	}
	err = q.Push(testBatch("3 Test St"))
	assert.Equal(t, ErrQueueFull, err)

	q.Close()
	err = q.Push(testBatch("4 Test St"))
	assert.Equal(t, ErrQueueClosed, err)
}

func TestIngestQueue_Subscribe(t *testing.T) {
	logger := logrus.New()
	q := NewIngestQueue(10, logger)

	var processed []*models.Property
	var mu sync.Mutex

	q.Subscribe(func(batch []*models.Property) error {
		mu.Lock()
		processed = append(processed, batch...)
		mu.Unlock()
		return nil
	})

	q.Start()

	batch := []*models.Property{
		{Address: models.Address{Street: "15 Woodland Drive"}},
		{Address: models.Address{Street: "8 Riverside Court"}},
	}
	err := q.Push(batch)
	assert.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 2, len(processed))
	assert.Equal(t, "15 Woodland Drive", processed[0].Address.Street)
	assert.Equal(t, "8 Riverside Court", processed[1].Address.Street)
	mu.Unlock()
}

func TestIngestQueue_Close(t *testing.T) {
	logger := logrus.New()
	q := NewIngestQueue(10, logger)

	assert.NoError(t, q.Close())
	assert.True(t, q.IsClosed())

	// Closing twice is a no-op
	assert.NoError(t, q.Close())
}

func TestIngestQueue_CloseDrainsBuffered(t *testing.T) {
	logger := logrus.New()
	q := NewIngestQueue(4, logger)

	handled := 0
	q.Subscribe(func(batch []*models.Property) error {
		handled++
		return nil
	})

	assert.NoError(t, q.Push(testBatch("15 Woodland Drive")))
	assert.NoError(t, q.Push(testBatch("8 Riverside Court")))

	q.Start()

	// Close waits until the buffered batches have reached the handler.
	assert.NoError(t, q.Close())
	assert.Equal(t, 2, handled)
}
