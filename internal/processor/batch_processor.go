package processor

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"prospector/server/config"
	"prospector/server/internal/database"
	"prospector/server/internal/models"
	"prospector/server/internal/queue"
)

// BatchProcessor drains the ingest queue and upserts property batches
// transactionally, retrying transient failures. Shut the queue down before
// calling Stop so no batch is left in flight between the two.
type BatchProcessor struct {
	db        *gorm.DB
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.IngestQueue
	work      chan []*models.Property
	waitGroup sync.WaitGroup
	stopOnce  sync.Once
}

func NewBatchProcessor(db *gorm.DB, queue *queue.IngestQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	return &BatchProcessor{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
		work:   make(chan []*models.Property),
	}
}

// Start registers the queue handler and spawns the upsert workers. The
// handler blocks while all workers are busy, which backs the queue up until
// Push reports full.
func (p *BatchProcessor) Start() {
	p.queue.Subscribe(func(batch []*models.Property) error {
		p.work <- batch
		return nil
	})
	for i := 0; i < p.config.BatchProcessing.ProcessorCount; i++ {
		p.waitGroup.Add(1)
		go p.worker()
	}
}

// Stop waits for the workers to finish every batch already handed over.
func (p *BatchProcessor) Stop() {
	p.stopOnce.Do(func() {
		close(p.work)
		p.waitGroup.Wait()
	})
}

func (p *BatchProcessor) worker() {
	defer p.waitGroup.Done()
	for batch := range p.work {
		if err := p.processBatch(batch); err != nil {
			p.logger.WithError(err).Error("Dropping ingest batch")
		}
	}
}

// processBatch upserts one batch inside a transaction with retry.
func (p *BatchProcessor) processBatch(batch []*models.Property) error {
	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"retries": p.config.BatchProcessing.MaxRetries,
			}).Info("Retrying ingest batch")
			time.Sleep(time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second)
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := database.UpsertProperties(tx, batch); err != nil {
				return fmt.Errorf("failed to upsert properties batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.logger.WithField("batch_size", len(batch)).Info("Upserted ingest batch")
			return nil
		}

		p.logger.WithError(err).Error("Ingest batch attempt failed")
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", p.config.BatchProcessing.MaxRetries+1, err)
}
