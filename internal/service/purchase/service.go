package purchase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"

	"go.uber.org/zap"

	"github.com/mamadbah2/vendsync/internal/domain/models"
)

// StaleSessionMessage is the instruction shown when no user can be resolved.
const StaleSessionMessage = "Stale session: please refresh and sign in again to verify your login."

var (
	// ErrStaleSession means the session carries no usable user id.
	ErrStaleSession = errors.New("stale session")
	// ErrNoMachineSelected is returned for restock requests outside a machine's inventory.
	ErrNoMachineSelected = errors.New("no machine selected")
)

// Purchase outcomes reported to the Recorder.
const (
	OutcomeSuccess       = "success"
	OutcomeStaleSession  = "stale_session"
	OutcomeOrderFailed   = "order_failed"
	OutcomeCaptureFailed = "capture_failed"
	OutcomeBuyFailed     = "buy_failed"
)

// OrderClient is the write side of the catalog/order service.
type OrderClient interface {
	CreateOrder(ctx context.Context, productID int64) (*models.Order, error)
	Buy(ctx context.Context, productID int64, userID string, receipt models.PaymentReceipt) error
	RecordDemand(ctx context.Context, userID string, req models.DemandRequest) error
	Purchases(ctx context.Context, userID string) (*models.PurchaseHistory, error)
}

// PaymentCapture turns a created order into a verifiable receipt.
type PaymentCapture interface {
	Capture(ctx context.Context, order models.Order) (models.PaymentReceipt, error)
}

// Inventory is the part of the discovery service a purchase touches.
type Inventory interface {
	View(ctx context.Context) (models.ViewState, error)
	RefreshInventory(ctx context.Context, machineID int64) error
}

// Recorder counts purchase outcomes.
type Recorder interface {
	ObservePurchase(outcome string)
}

// SimulatedCapture approves every order without a payment provider.
type SimulatedCapture struct{}

func (SimulatedCapture) Capture(_ context.Context, order models.Order) (models.PaymentReceipt, error) {
	orderID := order.OrderID
	if orderID == "" {
		orderID = "demo_order"
	}
	return models.PaymentReceipt{
		OrderID:   orderID,
		PaymentID: "pay_DEMO_" + strconv.Itoa(rand.Intn(999999)),
		Signature: "demo_simulated_signature",
	}, nil
}

// Result describes a completed purchase.
type Result struct {
	Order   models.Order          `json:"order"`
	Receipt models.PaymentReceipt `json:"receipt"`
}

// Service drives order creation, payment capture and restock demand.
type Service struct {
	orders    OrderClient
	capture   PaymentCapture
	inventory Inventory
	session   models.Session
	recorder  Recorder
	logger    *zap.Logger
}

// NewService wires a purchase service. A nil capture uses SimulatedCapture.
func NewService(orders OrderClient, capture PaymentCapture, inventory Inventory, session models.Session, recorder Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capture == nil {
		capture = SimulatedCapture{}
	}
	return &Service{
		orders:    orders,
		capture:   capture,
		inventory: inventory,
		session:   session,
		recorder:  recorder,
		logger:    logger,
	}
}

// Purchase buys one unit of productID and refreshes the open machine's inventory.
func (s *Service) Purchase(ctx context.Context, productID int64) (*Result, error) {
	if !s.session.Authenticated() {
		s.observe(OutcomeStaleSession)
		return nil, ErrStaleSession
	}

	order, err := s.orders.CreateOrder(ctx, productID)
	if err != nil {
		s.observe(OutcomeOrderFailed)
		s.logger.Error("failed to create order", zap.Int64("product_id", productID), zap.Error(err))
		return nil, err
	}

	receipt, err := s.capture.Capture(ctx, *order)
	if err != nil {
		s.observe(OutcomeCaptureFailed)
		s.logger.Error("payment capture failed", zap.String("order_id", order.OrderID), zap.Error(err))
		return nil, fmt.Errorf("capture payment for order %s: %w", order.OrderID, err)
	}

	if err := s.orders.Buy(ctx, productID, s.session.UserID, receipt); err != nil {
		s.observe(OutcomeBuyFailed)
		s.logger.Error("purchase verification failed", zap.String("order_id", receipt.OrderID), zap.Error(err))
		return nil, err
	}

	s.observe(OutcomeSuccess)
	s.logger.Info("purchase completed",
		zap.Int64("product_id", productID),
		zap.String("order_id", receipt.OrderID),
		zap.String("payment_id", receipt.PaymentID))

	s.refreshSelected(ctx)

	return &Result{Order: *order, Receipt: receipt}, nil
}

// RequestRestock records demand for productName at the selected machine.
func (s *Service) RequestRestock(ctx context.Context, productName string) error {
	if !s.session.Authenticated() {
		return ErrStaleSession
	}

	view, err := s.inventory.View(ctx)
	if err != nil {
		return err
	}
	if view.SelectedMachine == nil {
		return ErrNoMachineSelected
	}

	req := models.DemandRequest{MachineID: view.SelectedMachine.ID, ProductName: productName}
	if err := s.orders.RecordDemand(ctx, s.session.UserID, req); err != nil {
		s.logger.Error("failed to record restock demand", zap.Int64("machine_id", req.MachineID), zap.Error(err))
		return err
	}

	s.logger.Info("restock demand recorded", zap.Int64("machine_id", req.MachineID), zap.String("product", productName))
	return nil
}

// History returns the signed-in user's purchases.
func (s *Service) History(ctx context.Context) (*models.PurchaseHistory, error) {
	if !s.session.Authenticated() {
		return nil, ErrStaleSession
	}
	return s.orders.Purchases(ctx, s.session.UserID)
}

func (s *Service) refreshSelected(ctx context.Context) {
	view, err := s.inventory.View(ctx)
	if err != nil || view.SelectedMachine == nil {
		return
	}
	if err := s.inventory.RefreshInventory(ctx, view.SelectedMachine.ID); err != nil {
		s.logger.Warn("inventory refresh after purchase failed", zap.Error(err))
	}
}

func (s *Service) observe(outcome string) {
	if s.recorder != nil {
		s.recorder.ObservePurchase(outcome)
	}
}
