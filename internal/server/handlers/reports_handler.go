package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/vendsync/internal/domain/models"
	"github.com/mamadbah2/vendsync/internal/service/reporting"
)

// Reports reads back published sync reports.
type Reports interface {
	Latest(ctx context.Context) (models.SyncReport, error)
	StoredReports(ctx context.Context) (int, bool, error)
}

// ReportsHandler exposes the latest sync report.
type ReportsHandler struct {
	svc    Reports
	logger *zap.Logger
}

// NewReportsHandler constructs the HTTP handler adapter.
func NewReportsHandler(svc Reports, logger *zap.Logger) *ReportsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportsHandler{svc: svc, logger: logger}
}

type latestReportResponse struct {
	Report  models.SyncReport `json:"report"`
	Summary string            `json:"summary"`
	Stored  *int              `json:"stored,omitempty"`
}

// Latest returns the newest report with its summary line and, when a sink
// can count, the number of stored reports.
func (h *ReportsHandler) Latest(c *gin.Context) {
	ctx := c.Request.Context()

	report, err := h.svc.Latest(ctx)
	if errors.Is(err, models.ErrNoSyncReports) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no sync report yet"})
		return
	}
	if err != nil {
		respondError(c, h.logger, "failed to load sync report", err)
		return
	}

	resp := latestReportResponse{Report: report, Summary: reporting.Summary(report)}
	n, ok, err := h.svc.StoredReports(ctx)
	if err != nil {
		h.logger.Warn("failed to count stored reports", zap.Error(err))
	} else if ok {
		resp.Stored = &n
	}
	c.JSON(http.StatusOK, resp)
}
