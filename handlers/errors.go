package handlers

import (
	"errors"
	"net/http"

	"storefront-backend/services"
	"storefront-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// respondError maps a service error to its HTTP status. Unclassified errors
// are logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	var (
		notFound     *services.NotFoundError
		conflict     *services.ConflictError
		stock        *services.InsufficientStockError
		forbidden    *services.ForbiddenMutationError
		validation   *services.ValidationError
		unauthorized *services.UnauthorizedError
	)

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
	case errors.As(err, &stock):
		c.JSON(http.StatusBadRequest, gin.H{"error": stock.Error()})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": forbidden.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &unauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": unauthorized.Error()})
	default:
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, &services.ValidationError{Field: name, Message: "must be a valid UUID"}
	}
	return id, nil
}
