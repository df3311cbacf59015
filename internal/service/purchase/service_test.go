package purchase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/vendsync/internal/domain/models"
)

type fakeOrders struct {
	orderErr error
	buyErr   error
	bought   []models.PaymentReceipt
	buyUser  string
	demands  []models.DemandRequest
	history  *models.PurchaseHistory
}

func (f *fakeOrders) CreateOrder(_ context.Context, productID int64) (*models.Order, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	return &models.Order{OrderID: "order_1", Amount: decimal.NewFromInt(2000), Currency: "INR"}, nil
}

func (f *fakeOrders) Buy(_ context.Context, _ int64, userID string, receipt models.PaymentReceipt) error {
	if f.buyErr != nil {
		return f.buyErr
	}
	f.buyUser = userID
	f.bought = append(f.bought, receipt)
	return nil
}

func (f *fakeOrders) RecordDemand(_ context.Context, _ string, req models.DemandRequest) error {
	f.demands = append(f.demands, req)
	return nil
}

func (f *fakeOrders) Purchases(context.Context, string) (*models.PurchaseHistory, error) {
	return f.history, nil
}

type fakeInventory struct {
	view      models.ViewState
	refreshed []int64
}

func (f *fakeInventory) View(context.Context) (models.ViewState, error) {
	return f.view, nil
}

func (f *fakeInventory) RefreshInventory(_ context.Context, machineID int64) error {
	f.refreshed = append(f.refreshed, machineID)
	return nil
}

type countingRecorder map[string]int

func (c countingRecorder) ObservePurchase(outcome string) { c[outcome]++ }

var signedIn = models.Session{Token: "tok", UserID: "42"}

func TestPurchaseHappyPath(t *testing.T) {
	orders := &fakeOrders{}
	inv := &fakeInventory{view: models.ViewState{View: models.ViewInventory, SelectedMachine: &models.Machine{ID: 5}}}
	rec := countingRecorder{}
	svc := NewService(orders, nil, inv, signedIn, rec, nil)

	res, err := svc.Purchase(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, "order_1", res.Receipt.OrderID)
	assert.True(t, strings.HasPrefix(res.Receipt.PaymentID, "pay_DEMO_"))
	assert.Equal(t, "demo_simulated_signature", res.Receipt.Signature)
	assert.Equal(t, "42", orders.buyUser)
	assert.Equal(t, []int64{5}, inv.refreshed)
	assert.Equal(t, 1, rec[OutcomeSuccess])
}

func TestPurchaseStaleSession(t *testing.T) {
	for _, userID := range []string{"", "undefined", "null"} {
		orders := &fakeOrders{}
		rec := countingRecorder{}
		svc := NewService(orders, nil, &fakeInventory{}, models.Session{UserID: userID}, rec, nil)

		_, err := svc.Purchase(context.Background(), 7)
		assert.ErrorIs(t, err, ErrStaleSession)
		assert.Empty(t, orders.bought)
		assert.Equal(t, 1, rec[OutcomeStaleSession])
	}
}

func TestPurchaseFailuresSkipRefresh(t *testing.T) {
	inv := &fakeInventory{view: models.ViewState{SelectedMachine: &models.Machine{ID: 5}}}

	svc := NewService(&fakeOrders{orderErr: errors.New("sold out")}, nil, inv, signedIn, nil, nil)
	_, err := svc.Purchase(context.Background(), 7)
	assert.EqualError(t, err, "sold out")

	svc = NewService(&fakeOrders{buyErr: errors.New("bad signature")}, nil, inv, signedIn, nil, nil)
	_, err = svc.Purchase(context.Background(), 7)
	assert.EqualError(t, err, "bad signature")

	assert.Empty(t, inv.refreshed)
}

type failingCapture struct{}

func (failingCapture) Capture(context.Context, models.Order) (models.PaymentReceipt, error) {
	return models.PaymentReceipt{}, errors.New("declined")
}

func TestPurchaseCaptureFailure(t *testing.T) {
	orders := &fakeOrders{}
	svc := NewService(orders, failingCapture{}, &fakeInventory{}, signedIn, nil, nil)

	_, err := svc.Purchase(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declined")
	assert.Empty(t, orders.bought)
}

func TestSimulatedCaptureFallsBackToDemoOrder(t *testing.T) {
	receipt, err := SimulatedCapture{}.Capture(context.Background(), models.Order{})
	require.NoError(t, err)
	assert.Equal(t, "demo_order", receipt.OrderID)
}

func TestRequestRestock(t *testing.T) {
	orders := &fakeOrders{}
	inv := &fakeInventory{}
	svc := NewService(orders, nil, inv, signedIn, nil, nil)

	assert.ErrorIs(t, svc.RequestRestock(context.Background(), "Cola"), ErrNoMachineSelected)

	inv.view.SelectedMachine = &models.Machine{ID: 9}
	require.NoError(t, svc.RequestRestock(context.Background(), "Cola"))
	assert.Equal(t, []models.DemandRequest{{MachineID: 9, ProductName: "Cola"}}, orders.demands)
}

func TestHistoryRequiresSession(t *testing.T) {
	history := &models.PurchaseHistory{TotalSpent: decimal.NewFromInt(40)}
	svc := NewService(&fakeOrders{history: history}, nil, &fakeInventory{}, signedIn, nil, nil)

	got, err := svc.History(context.Background())
	require.NoError(t, err)
	assert.True(t, got.TotalSpent.Equal(decimal.NewFromInt(40)))

	svc = NewService(&fakeOrders{}, nil, &fakeInventory{}, models.Session{}, nil, nil)
	_, err = svc.History(context.Background())
	assert.ErrorIs(t, err, ErrStaleSession)
}
