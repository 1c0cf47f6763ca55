package api

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"prospector/server/internal/auth"
	"prospector/server/internal/database"
	"prospector/server/internal/geo"
	"prospector/server/internal/models"
	"prospector/server/internal/queue"
)

// Notifier is the optional alert hook for newly created urgent actions.
type Notifier interface {
	NotifyActionItem(action *models.ActionItem, owner *models.PropertyOwner) error
}

type Handler struct {
	db         *database.Database
	logger     *logrus.Logger
	ingest     *queue.IngestQueue
	territory  *geo.TerritoryMapper
	notifier   Notifier
	weeklyGoal int
}

func NewHandler(db *database.Database, ingest *queue.IngestQueue, logger *logrus.Logger, weeklyGoal int) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Handler{
		db:         db,
		logger:     logger,
		ingest:     ingest,
		territory:  geo.NewTerritoryMapper(db, logger),
		weeklyGoal: weeklyGoal,
	}
}

// SetNotifier wires the urgent-action alert hook.
func (h *Handler) SetNotifier(n Notifier) {
	h.notifier = n
}

// GetDashboard assembles the dashboard snapshot. The four reads are
// independent, so they fan out concurrently and join before responding.
func (h *Handler) GetDashboard(c *gin.Context) {
	loc := callerLocation(c)
	now := time.Now().In(loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.Add(24 * time.Hour)
	weekStart := startOfWeek(dayStart)

	var (
		actions  []models.TodayAction
		metrics  models.DashboardMetrics
		segments []models.SegmentSlice
		activity []models.ActivityEvent
	)

	g, _ := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		actions, err = h.db.TodayActions(dayStart, dayEnd)
		return err
	})
	g.Go(func() error {
		var err error
		metrics, err = h.db.DashboardMetrics(dayStart, dayEnd, weekStart, h.weeklyGoal)
		return err
	})
	g.Go(func() error {
		var err error
		segments, err = h.db.SegmentDistribution()
		return err
	})
	g.Go(func() error {
		var err error
		activity, err = h.db.RecentActivity(10)
		return err
	})
	if err := g.Wait(); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.Dashboard{
		TodayActions:   actions,
		Metrics:        metrics,
		Segments:       segments,
		RecentActivity: activity,
		LastUpdated:    time.Now().UTC(),
		UserID:         auth.UserID(c.Request.Context()),
	})
}

type actionResultRequest struct {
	Outcome    string             `json:"outcome"`
	Notes      string             `json:"notes"`
	NextAction *models.NextAction `json:"nextAction"`
}

func (r *actionResultRequest) toResult() *models.ActionResult {
	if r == nil || (r.Outcome == "" && r.Notes == "" && r.NextAction == nil) {
		return nil
	}
	return &models.ActionResult{Outcome: r.Outcome, Notes: r.Notes, NextAction: r.NextAction}
}

// CompleteAction marks an action item done. Completing an item already in a
// terminal state yields 409, so racing double-completions cannot both
// succeed silently.
func (h *Handler) CompleteAction(c *gin.Context) {
	var req actionResultRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "Invalid request body"})
			return
		}
	}

	item, err := h.db.CompleteAction(c.Param("id"), req.toResult())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// SkipAction marks an action item skipped without stamping completedAt.
func (h *Handler) SkipAction(c *gin.Context) {
	var req actionResultRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "Invalid request body"})
			return
		}
	}

	item, err := h.db.SkipAction(c.Param("id"), req.toResult())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// ReopenAction moves a terminal action item back to Pending.
func (h *Handler) ReopenAction(c *gin.Context) {
	item, err := h.db.ReopenAction(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type rescheduleRequest struct {
	ScheduledDate time.Time `json:"scheduledDate" binding:"required"`
}

// RescheduleAction re-queues an action item on a new date.
func (h *Handler) RescheduleAction(c *gin.Context) {
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "Invalid request body"})
		return
	}

	item, err := h.db.RescheduleAction(c.Param("id"), req.ScheduledDate)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// CreateAction persists a new action item and fires the urgent-action
// notification when one is wired.
func (h *Handler) CreateAction(c *gin.Context) {
	var item models.ActionItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "Invalid request body"})
		return
	}

	created, err := h.db.CreateActionItem(&item)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if h.notifier != nil {
		if owner, err := h.db.GetOwner(created.PropertyOwnerID); err == nil {
			if err := h.notifier.NotifyActionItem(created, owner); err != nil {
				h.logger.WithError(err).Warn("Failed to send action notification")
			}
		}
	}
	c.JSON(http.StatusCreated, created)
}

// ListActions returns action items filtered by status and/or day.
func (h *Handler) ListActions(c *gin.Context) {
	var day *time.Time
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "date must be YYYY-MM-DD"})
			return
		}
		day = &parsed
	}

	items, err := h.db.ListActionItems(c.Query("status"), day, 0)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if items == nil {
		items = []models.ActionItem{}
	}
	c.JSON(http.StatusOK, items)
}

// Health is the unauthenticated liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// callerLocation derives the caller's timezone from the tzOffset query
// parameter (minutes east of UTC), falling back to server-local time.
func callerLocation(c *gin.Context) *time.Location {
	if offset := c.Query("tzOffset"); offset != "" {
		if minutes, err := strconv.Atoi(offset); err == nil && minutes >= -14*60 && minutes <= 14*60 {
			return time.FixedZone("caller", minutes*60)
		}
	}
	return time.Local
}

// startOfWeek returns the Monday 00:00 of dayStart's week.
func startOfWeek(dayStart time.Time) time.Time {
	weekday := int(dayStart.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return dayStart.AddDate(0, 0, -(weekday - 1))
}
