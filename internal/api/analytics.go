package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const analyticsDateLayout = "2006-01-02"

// GetAnalytics returns daily analytics snapshots for a date range. Without
// parameters it returns the trailing 30 days.
func (h *Handler) GetAnalytics(c *gin.Context) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(analyticsDateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "from must be YYYY-MM-DD"})
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(analyticsDateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "to must be YYYY-MM-DD"})
			return
		}
		to = parsed
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "to must not precede from"})
		return
	}

	snapshots, err := h.db.AnalyticsRange(from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, snapshots)
}

// GetAnalyticsByDate returns the snapshot for a single day.
func (h *Handler) GetAnalyticsByDate(c *gin.Context) {
	date, err := time.Parse(analyticsDateLayout, c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "date must be YYYY-MM-DD"})
		return
	}

	snapshot, err := h.db.GetAnalyticsByDate(date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
