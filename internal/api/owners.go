package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"prospector/server/internal/database"
	"prospector/server/internal/models"
)

// CreateOwner persists a new property owner record.
func (h *Handler) CreateOwner(c *gin.Context) {
	var owner models.PropertyOwner
	if err := c.ShouldBindJSON(&owner); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "Invalid request body"})
		return
	}

	created, err := h.db.CreateOwner(&owner)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetOwner returns a single owner with interaction history and property links.
func (h *Handler) GetOwner(c *gin.Context) {
	owner, err := h.db.GetOwner(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, owner)
}

type ownerUpdateRequest struct {
	FirstName        *string                 `json:"firstName"`
	LastName         *string                 `json:"lastName"`
	Email            *models.ContactEmail    `json:"email"`
	Phone            *models.ContactPhone    `json:"phone"`
	EstimatedAge     *int                    `json:"estimatedAge"`
	Occupation       *string                 `json:"occupation"`
	HouseholdIncome  *string                 `json:"householdIncome"`
	OwnershipType    *string                 `json:"ownershipType"`
	ProspectSegment  *models.ProspectSegment `json:"prospectSegment"`
	PreferredContact *string                 `json:"preferredContact"`
	DoNotContact     *bool                   `json:"doNotContact"`
	Tags             *[]string               `json:"tags"`
	Notes            *string                 `json:"notes"`
}

// UpdateOwner applies a partial update. Absent fields are untouched.
func (h *Handler) UpdateOwner(c *gin.Context) {
	var req ownerUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "Invalid request body"})
		return
	}

	owner, err := h.db.UpdateOwner(c.Param("id"), database.OwnerPatch{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Phone:            req.Phone,
		EstimatedAge:     req.EstimatedAge,
		Occupation:       req.Occupation,
		HouseholdIncome:  req.HouseholdIncome,
		OwnershipType:    req.OwnershipType,
		ProspectSegment:  req.ProspectSegment,
		PreferredContact: req.PreferredContact,
		DoNotContact:     req.DoNotContact,
		Tags:             req.Tags,
		Notes:            req.Notes,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, owner)
}

// ListOwners returns owners, optionally filtered by segment category.
func (h *Handler) ListOwners(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	owners, err := h.db.ListOwners(c.Query("segment"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if owners == nil {
		owners = []models.PropertyOwner{}
	}
	c.JSON(http.StatusOK, owners)
}

// AddInteraction appends an interaction to an owner's history.
func (h *Handler) AddInteraction(c *gin.Context) {
	var in models.Interaction
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "Invalid request body"})
		return
	}

	owner, err := h.db.AddInteraction(c.Param("id"), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, owner)
}
