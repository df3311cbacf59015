package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/vendsync/internal/domain/models"
	"github.com/mamadbah2/vendsync/internal/service/purchase"
)

// Purchaser is the purchase surface exposed over HTTP.
type Purchaser interface {
	Purchase(ctx context.Context, productID int64) (*purchase.Result, error)
	RequestRestock(ctx context.Context, productName string) error
	History(ctx context.Context) (*models.PurchaseHistory, error)
}

// PurchaseHandler handles purchases, purchase history and restock demand.
type PurchaseHandler struct {
	svc    Purchaser
	logger *zap.Logger
}

// NewPurchaseHandler constructs the HTTP handler adapter.
func NewPurchaseHandler(svc Purchaser, logger *zap.Logger) *PurchaseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseHandler{svc: svc, logger: logger}
}

type purchaseRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
}

// Purchase buys one unit of a product.
func (h *PurchaseHandler) Purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid purchase payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.svc.Purchase(c.Request.Context(), req.ProductID)
	if err != nil {
		respondError(c, h.logger, "purchase failed", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *PurchaseHandler) History(c *gin.Context) {
	history, err := h.svc.History(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "failed to load purchase history", err)
		return
	}
	c.JSON(http.StatusOK, history)
}

type demandRequest struct {
	ProductName string `json:"product_name" binding:"required"`
}

// RequestRestock records demand for a product at the open machine.
func (h *PurchaseHandler) RequestRestock(c *gin.Context) {
	var req demandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid demand payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.RequestRestock(c.Request.Context(), req.ProductName); err != nil {
		respondError(c, h.logger, "failed to record demand", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Request received! We'll notify you when " + req.ProductName + " is restocked."})
}
