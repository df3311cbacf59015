package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/vendsync/internal/catalog"
	"github.com/mamadbah2/vendsync/internal/domain/models"
	"github.com/mamadbah2/vendsync/internal/ranking"
)

// Discovery is the read and navigation surface of the catalog service.
type Discovery interface {
	Position(ctx context.Context) (models.Resolution, error)
	View(ctx context.Context) (models.ViewState, error)
	Machines(ctx context.Context) ([]ranking.RankedMachine, error)
	Nearest(ctx context.Context) (catalog.NearestView, error)
	Search(ctx context.Context) (catalog.SearchView, error)
	Inventory(ctx context.Context) (catalog.InventoryView, error)
	OpenMachine(ctx context.Context, machine models.Machine) error
	BackToMachines(ctx context.Context) error
	ShowNearest(ctx context.Context) error
	SetSearchText(ctx context.Context, text string) error
}

// ViewsHandler serves the ranked views and the session navigation.
type ViewsHandler struct {
	svc    Discovery
	logger *zap.Logger
}

// NewViewsHandler constructs the HTTP handler adapter.
func NewViewsHandler(svc Discovery, logger *zap.Logger) *ViewsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewsHandler{svc: svc, logger: logger}
}

type positionResponse struct {
	models.Resolution
	Banner string `json:"banner,omitempty"`
}

// Position reports the resolution state; an unresolved position carries a banner.
func (h *ViewsHandler) Position(c *gin.Context) {
	res, err := h.svc.Position(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "failed to read position", err)
		return
	}

	resp := positionResponse{Resolution: res}
	if res.Status == models.ResolutionUnresolved {
		resp.Banner = res.Reason
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ViewsHandler) View(c *gin.Context) {
	view, err := h.svc.View(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "failed to read view", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Machines lists machines by proximity.
func (h *ViewsHandler) Machines(c *gin.Context) {
	machines, err := h.svc.Machines(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "failed to rank machines", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"machines": machines})
}

func (h *ViewsHandler) Nearest(c *gin.Context) {
	view, err := h.svc.Nearest(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "failed to rank machines", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ShowNearest switches the session to the nearest view.
func (h *ViewsHandler) ShowNearest(c *gin.Context) {
	if err := h.svc.ShowNearest(c.Request.Context()); err != nil {
		respondError(c, h.logger, "failed to switch view", err)
		return
	}
	h.Nearest(c)
}

func (h *ViewsHandler) Search(c *gin.Context) {
	view, err := h.svc.Search(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "failed to read search results", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type searchRequest struct {
	Text string `json:"text"`
}

// SetSearch stores the search text; results follow after the debounce period.
func (h *ViewsHandler) SetSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid search payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.SetSearchText(c.Request.Context(), req.Text); err != nil {
		respondError(c, h.logger, "failed to set search text", err)
		return
	}
	c.Status(http.StatusAccepted)
}

// OpenMachine selects a cached machine and loads its inventory.
func (h *ViewsHandler) OpenMachine(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machine id"})
		return
	}

	machines, err := h.svc.Machines(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "failed to read machines", err)
		return
	}

	for _, m := range machines {
		if m.ID != id {
			continue
		}
		if err := h.svc.OpenMachine(c.Request.Context(), m.Machine); err != nil {
			respondError(c, h.logger, "failed to open machine", err)
			return
		}
		h.Inventory(c)
		return
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "machine not found"})
}

func (h *ViewsHandler) BackToMachines(c *gin.Context) {
	if err := h.svc.BackToMachines(c.Request.Context()); err != nil {
		respondError(c, h.logger, "failed to switch view", err)
		return
	}
	h.Machines(c)
}

func (h *ViewsHandler) Inventory(c *gin.Context) {
	view, err := h.svc.Inventory(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "failed to read inventory", err)
		return
	}
	c.JSON(http.StatusOK, view)
}
