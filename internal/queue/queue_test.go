package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"flatfinder/server/internal/models"
)

func TestNewListingQueue(t *testing.T) {
	logger := logrus.New()
	q := NewListingQueue(10, logger)
	assert.NotNil(t, q)
	assert.Equal(t, 10, q.maxSize)
	assert.Equal(t, 0, q.Len())
}

func TestListingQueue_Push(t *testing.T) {
	logger := logrus.New()
	q := NewListingQueue(2, logger)

	// Test successful push
	listings := []*models.Listing{{Reference: "test1"}}
	err := q.Push(listings)
	assert.NoError(t, err)
	assert.Equal(t, 1, q.Len())

	// Test queue full
	_ = q.Push([]*models.Listing{{Reference: "test2"}})
	err = q.Push(listings)
	assert.Equal(t, ErrQueueFull, err)

	// Test closed queue
	q.Close()
	err = q.Push(listings)
	assert.Equal(t, ErrQueueClosed, err)
}

func TestListingQueue_Subscribe(t *testing.T) {
	logger := logrus.New()
	q := NewListingQueue(10, logger)
	defer q.Close()

	var processed []*models.Listing
	var mu sync.Mutex

	q.Subscribe(func(listings []*models.Listing) error {
		mu.Lock()
		processed = append(processed, listings...)
		mu.Unlock()
		return nil
	})

	q.Start(1)

	testListings := []*models.Listing{{Reference: "test1"}, {Reference: "test2"}}
	err := q.Push(testListings)
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(processed) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "test1", processed[0].Reference)
	assert.Equal(t, "test2", processed[1].Reference)
	mu.Unlock()
}

func TestListingQueue_Close(t *testing.T) {
	logger := logrus.New()
	q := NewListingQueue(10, logger)
	q.Start(2)

	// Test first close
	err := q.Close()
	assert.NoError(t, err)
	assert.Equal(t, ErrQueueClosed, q.Push([]*models.Listing{{Reference: "late"}}))

	// Test second close (should be no-op)
	err = q.Close()
	assert.NoError(t, err)
}

func TestListingQueue_ProcessBatch(t *testing.T) {
	logger := logrus.New()
	q := NewListingQueue(10, logger)
	defer q.Close()

	var wg sync.WaitGroup
	processedBatches := 0
	var mu sync.Mutex

	// Add multiple handlers
	for i := 0; i < 3; i++ {
		wg.Add(1)
		q.Subscribe(func(listings []*models.Listing) error {
			mu.Lock()
			processedBatches++
			mu.Unlock()
			wg.Done()
			return nil
		})
	}

	q.Start(2)

	err := q.Push([]*models.Listing{{Reference: "test"}})
	assert.NoError(t, err)

	// Wait for all handlers
	wg.Wait()

	mu.Lock()
	assert.Equal(t, 3, processedBatches)
	mu.Unlock()
}
