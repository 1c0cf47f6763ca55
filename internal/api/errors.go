package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"prospector/server/internal/apperrors"
)

// respondError maps store errors onto the HTTP surface. Validation and
// reference failures surface as 4xx with a machine-readable kind; anything
// unexpected is logged and returned as an opaque 500.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var ve *apperrors.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": ve.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Record not found"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "message": "The record's current state does not allow this change"})
	case errors.Is(err, apperrors.ErrDoNotContact):
		c.JSON(http.StatusConflict, gin.H{"error": "do_not_contact", "message": "Owner has opted out of contact"})
	default:
		logger.WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Internal server error"})
	}
}
