package processor

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"prospector/server/config"
	"prospector/server/internal/database"
	"prospector/server/internal/models"
	"prospector/server/internal/queue"
)

func setupProcessor(t *testing.T) (*database.Database, *BatchProcessor, *queue.IngestQueue) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewDatabase(path, logger)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.BatchProcessing.ProcessorCount = 1
	cfg.BatchProcessing.MaxRetries = 0
	cfg.BatchProcessing.RetryDelay = 0

	q := queue.NewIngestQueue(4, logger)
	p := NewBatchProcessor(gormDB, q, cfg, logger)
	return db, p, q
}

func TestProcessBatchUpserts(t *testing.T) {
	db, p, _ := setupProcessor(t)

	batch := []*models.Property{{
		Address:      models.Address{Street: "45 Emerald Drive", Suburb: "Merrimac", State: "QLD", Postcode: "4226"},
		PropertyType: models.PropertyTypeHouse,
		Coordinates:  &models.Coordinates{Lat: -28.05, Lng: 153.37},
	}}
	require.NoError(t, p.processBatch(batch))

	stored, err := db.FindPropertyByAddress("45 Emerald Drive, Merrimac QLD 4226")
	require.NoError(t, err)
	assert.Equal(t, models.PropertyTypeHouse, stored.PropertyType)
}

func TestProcessBatchInvalidFailsAfterRetries(t *testing.T) {
	_, p, _ := setupProcessor(t)

	bad := []*models.Property{{PropertyType: "House"}}
	err := p.processBatch(bad)
	assert.Error(t, err)
}

func TestProcessorDrainsQueue(t *testing.T) {
	db, p, q := setupProcessor(t)

	p.Start()
	q.Start()
	t.Cleanup(func() {
		q.Close()
		p.Stop()
	})

	batch := []*models.Property{{
		Address:      models.Address{Street: "8 Riverside Court", Suburb: "Merrimac", State: "QLD", Postcode: "4226"},
		PropertyType: models.PropertyTypeHouse,
		Coordinates:  &models.Coordinates{Lat: -28.0487, Lng: 153.3702},
	}}
	require.NoError(t, q.Push(batch))

	require.Eventually(t, func() bool {
		_, err := db.FindPropertyByAddress("8 Riverside Court, Merrimac QLD 4226")
		return err == nil
	}, 2*time.Second, 50*time.Millisecond)
}

func TestStopWaitsForQueuedBatches(t *testing.T) {
	db, p, q := setupProcessor(t)

	p.Start()
	q.Start()

	batch := []*models.Property{{
		Address:      models.Address{Street: "22 Pacific View Street", Suburb: "Merrimac", State: "QLD", Postcode: "4226"},
		PropertyType: models.PropertyTypeHouse,
		Coordinates:  &models.Coordinates{Lat: -28.0511, Lng: 153.3689},
	}}
	require.NoError(t, q.Push(batch))

	// Closing the queue hands the batch to a worker; Stop returns only once
	// the worker has finished it, so the read needs no polling.
	require.NoError(t, q.Close())
	p.Stop()

	_, err := db.FindPropertyByAddress("22 Pacific View Street, Merrimac QLD 4226")
	require.NoError(t, err)
}
