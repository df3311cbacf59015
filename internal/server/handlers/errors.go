package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/vendsync/internal/catalog"
	"github.com/mamadbah2/vendsync/internal/service/purchase"
	catalogclient "github.com/mamadbah2/vendsync/pkg/clients/catalog"
)

// respondError maps service errors onto JSON responses.
func respondError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	var apiErr *catalogclient.APIError

	switch {
	case errors.Is(err, purchase.ErrStaleSession):
		logger.Warn(msg, zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": purchase.StaleSessionMessage})
	case errors.Is(err, purchase.ErrNoMachineSelected):
		c.JSON(http.StatusConflict, gin.H{"error": "open a machine first"})
	case errors.Is(err, catalog.ErrHubStopped), errors.Is(err, context.Canceled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "shutting down"})
	case errors.As(err, &apiErr):
		logger.Warn(msg, zap.Int("upstream_status", apiErr.Status), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Message})
	default:
		logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
