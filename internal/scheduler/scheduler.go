package scheduler

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"prospector/server/internal/database"
)

// Scheduler runs the nightly analytics rollup. Each day's completed
// actions and property movements are folded into one analytics row just
// after midnight, with a catch-up run for the previous day at startup.
type Scheduler struct {
	db           *database.Database
	logger       *logrus.Logger
	stopChan     chan struct{}
	wg           sync.WaitGroup
	jobMutex     sync.Mutex
	isStartupRun bool
}

func NewScheduler(db *database.Database, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		db:           db,
		logger:       logger,
		stopChan:     make(chan struct{}),
		isStartupRun: true,
	}
}

// Start begins the scheduled tasks.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	// Catch-up run so a restart after midnight still rolls up yesterday.
	go func() {
		s.jobMutex.Lock()
		defer s.jobMutex.Unlock()
		s.logger.Info("Running startup analytics rollup")
		s.runRollup(time.Now().AddDate(0, 0, -1))
		s.isStartupRun = false
		s.logger.Info("Startup analytics rollup completed")
	}()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case t := <-ticker.C:
			s.executeScheduledJobs(t)
		}
	}
}

func (s *Scheduler) executeScheduledJobs(t time.Time) {
	if s.isStartupRun {
		s.logger.Debug("Skipping scheduled jobs while startup is in progress")
		return
	}

	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	if t.Hour() == 0 && t.Minute() == 0 {
		s.logger.Info("Starting scheduled analytics rollup")
		s.runRollup(t.AddDate(0, 0, -1))
		s.logger.Info("Completed scheduled analytics rollup")
	}
}

// runRollup computes and stores the analytics snapshot for the given day.
func (s *Scheduler) runRollup(day time.Time) {
	snapshot, err := s.db.ComputeDailyRollup(day)
	if err != nil {
		s.logger.WithError(err).WithField("date", day.Format("2006-01-02")).Error("Analytics rollup failed")
		return
	}

	if _, err := s.db.UpsertAnalytics(snapshot); err != nil {
		s.logger.WithError(err).WithField("date", day.Format("2006-01-02")).Error("Failed to store analytics rollup")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"date":            day.Format("2006-01-02"),
		"total_calls":     snapshot.Metrics.TotalCalls,
		"connected_calls": snapshot.Metrics.ConnectedCalls,
		"prospects":       snapshot.Metrics.Prospects,
	}).Info("Analytics rollup stored")
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}
