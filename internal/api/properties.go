package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"prospector/server/internal/database"
	"prospector/server/internal/models"
	"prospector/server/internal/queue"
)

// CreateProperty persists a new property record.
func (h *Handler) CreateProperty(c *gin.Context) {
	var prop models.Property
	if err := c.ShouldBindJSON(&prop); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "Invalid request body"})
		return
	}

	created, err := h.db.CreateProperty(&prop)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetProperty returns a single property with its linked owner ids.
func (h *Handler) GetProperty(c *gin.Context) {
	prop, err := h.db.GetProperty(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, prop)
}

type propertyUpdateRequest struct {
	Street        *string                 `json:"street"`
	Suburb        *string                 `json:"suburb"`
	State         *string                 `json:"state"`
	Postcode      *string                 `json:"postcode"`
	PropertyType  *string                 `json:"propertyType"`
	Bedrooms      *int                    `json:"bedrooms"`
	Bathrooms     *int                    `json:"bathrooms"`
	CarSpaces     *int                    `json:"carSpaces"`
	LandSize      *float64                `json:"landSize"`
	BuildingArea  *float64                `json:"buildingArea"`
	YearBuilt     *int                    `json:"yearBuilt"`
	Coordinates   *models.Coordinates     `json:"coordinates"`
	Valuation     *models.Valuation       `json:"currentValuation"`
	MarketHistory *[]models.MarketEvent   `json:"marketHistory"`
	DataSources   *[]models.DataSourceRef `json:"dataSources"`
}

// UpdateProperty applies a partial update. Absent fields are untouched.
func (h *Handler) UpdateProperty(c *gin.Context) {
	var req propertyUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "Invalid request body"})
		return
	}

	prop, err := h.db.UpdateProperty(c.Param("id"), database.PropertyPatch{
		Street:        req.Street,
		Suburb:        req.Suburb,
		State:         req.State,
		Postcode:      req.Postcode,
		PropertyType:  req.PropertyType,
		Bedrooms:      req.Bedrooms,
		Bathrooms:     req.Bathrooms,
		CarSpaces:     req.CarSpaces,
		LandSize:      req.LandSize,
		BuildingArea:  req.BuildingArea,
		YearBuilt:     req.YearBuilt,
		Coordinates:   req.Coordinates,
		Valuation:     req.Valuation,
		MarketHistory: req.MarketHistory,
		DataSources:   req.DataSources,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, prop)
}

// ListProperties returns properties, optionally filtered by suburb.
func (h *Handler) ListProperties(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	props, err := h.db.ListProperties(c.Query("suburb"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if props == nil {
		props = []models.Property{}
	}
	c.JSON(http.StatusOK, props)
}

// NearbyProperties returns properties within radius meters of a point.
func (h *Handler) NearbyProperties(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "lat and lng are required"})
		return
	}

	radius := 1000.0
	if raw := c.Query("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "radius must be a positive number of meters"})
			return
		}
		radius = parsed
	}

	props, err := h.db.NearbyProperties(lat, lng, radius)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if props == nil {
		props = []models.Property{}
	}
	c.JSON(http.StatusOK, props)
}

type setOwnersRequest struct {
	Owners []string `json:"owners"`
}

// SetPropertyOwners replaces the owner links of a property.
func (h *Handler) SetPropertyOwners(c *gin.Context) {
	var req setOwnersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "Invalid request body"})
		return
	}

	id := c.Param("id")
	if err := h.db.SetOwners(id, req.Owners); err != nil {
		respondError(c, h.logger, err)
		return
	}

	prop, err := h.db.GetProperty(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, prop)
}

// IngestProperties accepts a batch of scraped or imported property records
// and queues it for asynchronous upsert processing.
func (h *Handler) IngestProperties(c *gin.Context) {
	var batch []*models.Property
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "Invalid request body"})
		return
	}
	if len(batch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "Batch must not be empty"})
		return
	}

	if err := h.ingest.Push(batch); err != nil {
		if err == queue.ErrQueueFull {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue_full", "message": "Ingest queue is full, retry later"})
			return
		}
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithField("batch_size", len(batch)).Info("Queued property batch for ingestion")
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "queued": len(batch)})
}

// Territory returns suburb coverage polygons built from property
// coordinates, as a GeoJSON feature collection.
func (h *Handler) Territory(c *gin.Context) {
	fc, err := h.territory.SuburbTerritories()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, fc)
}
