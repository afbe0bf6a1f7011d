package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"flatfinder/server/config"
	"flatfinder/server/internal/events"
	"flatfinder/server/internal/models"
	"flatfinder/server/internal/queue"
)

// BatchStore persists a batch of listings atomically and returns the rows
// the batch moved into the approved state
type BatchStore interface {
	ImportListings(ctx context.Context, listings []*models.Listing) ([]models.Listing, error)
}

// BatchProcessor handles the processing of listing import batches
type BatchProcessor struct {
	store  BatchStore
	logger *logrus.Logger
	config *config.Config
	queue  *queue.ListingQueue
	bus    *events.Bus
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBatchProcessor creates a new batch processor instance. bus may be nil.
func NewBatchProcessor(store BatchStore, queue *queue.ListingQueue, bus *events.Bus, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		store:  store,
		queue:  queue,
		bus:    bus,
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes the processor and starts the queue workers
func (p *BatchProcessor) Start() {
	p.queue.Subscribe(p.processBatch)
	p.queue.Start(p.config.BatchProcessing.ProcessorCount)
}

// Stop gracefully shuts down the processor, abandoning pending retries
func (p *BatchProcessor) Stop() {
	p.cancel()
	p.queue.Close()
}

// processBatch handles a single batch of listings with retry logic
func (p *BatchProcessor) processBatch(batch []*models.Listing) error {
	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch processing, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			select {
			case <-p.ctx.Done():
				return fmt.Errorf("batch processing stopped: %w", p.ctx.Err())
			case <-time.After(p.config.BatchProcessing.RetryDelay):
			}
		}

		var approved []models.Listing
		approved, err = p.store.ImportListings(p.ctx, batch)
		if err == nil {
			p.logger.Infof("Successfully processed batch of %d listings", len(batch))
			p.announce(approved)
			return nil
		}

		p.logger.Errorf("Batch processing failed: %v", err)
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", p.config.BatchProcessing.MaxRetries+1, err)
}

// announce publishes the listings a stored batch approved
func (p *BatchProcessor) announce(approved []models.Listing) {
	if p.bus == nil {
		return
	}
	for _, listing := range approved {
		ev := events.Event{
			Topic:   events.TopicListingApproved,
			Payload: events.ListingEvent{Listing: listing, Action: "imported"},
		}
		if err := p.bus.Publish(ev); err != nil {
			p.logger.WithError(err).WithField("reference", listing.Reference).Warn("Failed to publish imported listing")
		}
	}
}
