package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/vendsync/internal/catalog"
	"github.com/mamadbah2/vendsync/internal/domain/models"
	"github.com/mamadbah2/vendsync/internal/ranking"
	"github.com/mamadbah2/vendsync/internal/service/purchase"
	catalogclient "github.com/mamadbah2/vendsync/pkg/clients/catalog"
)

type fakeDiscovery struct {
	position models.Resolution
	machines []ranking.RankedMachine
	opened   []models.Machine
	text     string
	err      error
}

func (f *fakeDiscovery) Position(context.Context) (models.Resolution, error) { return f.position, f.err }
func (f *fakeDiscovery) View(context.Context) (models.ViewState, error) {
	return models.ViewState{View: models.ViewMachines, SearchText: f.text}, f.err
}
func (f *fakeDiscovery) Machines(context.Context) ([]ranking.RankedMachine, error) {
	return f.machines, f.err
}
func (f *fakeDiscovery) Nearest(context.Context) (catalog.NearestView, error) {
	return catalog.NearestView{Machines: f.machines}, f.err
}
func (f *fakeDiscovery) Search(context.Context) (catalog.SearchView, error) {
	return catalog.SearchView{Text: f.text}, f.err
}
func (f *fakeDiscovery) Inventory(context.Context) (catalog.InventoryView, error) {
	var selected *models.Machine
	if len(f.opened) > 0 {
		selected = &f.opened[len(f.opened)-1]
	}
	return catalog.InventoryView{Machine: selected}, f.err
}
func (f *fakeDiscovery) OpenMachine(_ context.Context, m models.Machine) error {
	f.opened = append(f.opened, m)
	return f.err
}
func (f *fakeDiscovery) BackToMachines(context.Context) error { return f.err }
func (f *fakeDiscovery) ShowNearest(context.Context) error    { return f.err }
func (f *fakeDiscovery) SetSearchText(_ context.Context, text string) error {
	f.text = text
	return f.err
}

type fakePurchaser struct {
	err error
}

func (f *fakePurchaser) Purchase(_ context.Context, productID int64) (*purchase.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &purchase.Result{Order: models.Order{OrderID: fmt.Sprintf("order_%d", productID), Amount: decimal.NewFromInt(2000)}}, nil
}
func (f *fakePurchaser) RequestRestock(context.Context, string) error { return f.err }
func (f *fakePurchaser) History(context.Context) (*models.PurchaseHistory, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.PurchaseHistory{TotalSpent: decimal.NewFromInt(40)}, nil
}

func newEngine(views *ViewsHandler, purchases *PurchaseHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/position", views.Position)
	r.GET("/view", views.View)
	r.POST("/machines/:id/open", views.OpenMachine)
	r.PUT("/search", views.SetSearch)
	r.POST("/purchases", purchases.Purchase)
	r.GET("/purchases", purchases.History)
	r.POST("/demand", purchases.RequestRestock)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestPositionBanner(t *testing.T) {
	disc := &fakeDiscovery{position: models.Resolution{Status: models.ResolutionUnresolved, Reason: "Could not determine location via IP."}}
	r := newEngine(NewViewsHandler(disc, nil), NewPurchaseHandler(&fakePurchaser{}, nil))

	rec := do(r, http.MethodGet, "/position", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "unresolved", body["status"])
	assert.Equal(t, "Could not determine location via IP.", body["banner"])
}

func TestOpenMachine(t *testing.T) {
	disc := &fakeDiscovery{machines: []ranking.RankedMachine{{Machine: models.Machine{ID: 3, Name: "Lobby"}}}}
	r := newEngine(NewViewsHandler(disc, nil), NewPurchaseHandler(&fakePurchaser{}, nil))

	rec := do(r, http.MethodPost, "/machines/3/open", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, disc.opened, 1)
	assert.Equal(t, "Lobby", disc.opened[0].Name)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/machines/9/open", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/machines/abc/open", "").Code)
}

func TestSetSearch(t *testing.T) {
	disc := &fakeDiscovery{}
	r := newEngine(NewViewsHandler(disc, nil), NewPurchaseHandler(&fakePurchaser{}, nil))

	assert.Equal(t, http.StatusAccepted, do(r, http.MethodPut, "/search", `{"text":"cola"}`).Code)
	assert.Equal(t, "cola", disc.text)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/search", `{`).Code)
}

func TestPurchase(t *testing.T) {
	r := newEngine(NewViewsHandler(&fakeDiscovery{}, nil), NewPurchaseHandler(&fakePurchaser{}, nil))

	rec := do(r, http.MethodPost, "/purchases", `{"product_id":7}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode(t, rec)["order"].(map[string]any)
	assert.Equal(t, "order_7", order["order_id"])

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/purchases", `{}`).Code)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{err: purchase.ErrStaleSession, status: http.StatusUnauthorized, msg: purchase.StaleSessionMessage},
		{err: purchase.ErrNoMachineSelected, status: http.StatusConflict},
		{err: catalog.ErrHubStopped, status: http.StatusServiceUnavailable},
		{err: fmt.Errorf("buy product 7: %w", &catalogclient.APIError{Status: 400, Message: "Out of stock"}), status: http.StatusBadGateway, msg: "Out of stock"},
		{err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			r := newEngine(NewViewsHandler(&fakeDiscovery{}, nil), NewPurchaseHandler(&fakePurchaser{err: tc.err}, nil))

			rec := do(r, http.MethodPost, "/demand", `{"product_name":"Cola"}`)
			assert.Equal(t, tc.status, rec.Code)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, decode(t, rec)["error"])
			}
		})
	}
}

func TestHistory(t *testing.T) {
	r := newEngine(NewViewsHandler(&fakeDiscovery{}, nil), NewPurchaseHandler(&fakePurchaser{}, nil))

	rec := do(r, http.MethodGet, "/purchases", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "40", decode(t, rec)["total_spent"])
}

type fakeReports struct {
	report models.SyncReport
	err    error
	stored int
	counts bool
}

func (f *fakeReports) Latest(context.Context) (models.SyncReport, error) { return f.report, f.err }
func (f *fakeReports) StoredReports(context.Context) (int, bool, error) {
	return f.stored, f.counts, nil
}

func TestLatestReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	generated := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	t.Run("with count", func(t *testing.T) {
		r := gin.New()
		h := NewReportsHandler(&fakeReports{report: models.SyncReport{ID: "r1", GeneratedAt: generated, PositionStatus: "resolved"}, stored: 4, counts: true}, nil)
		r.GET("/reports/latest", h.Latest)

		rec := do(r, http.MethodGet, "/reports/latest", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.EqualValues(t, 4, body["stored"])
		assert.Contains(t, body["summary"], "Sync (2026-03-14 09:30): position resolved")
		assert.Equal(t, "r1", body["report"].(map[string]any)["id"])
	})

	t.Run("without counting sink", func(t *testing.T) {
		r := gin.New()
		r.GET("/reports/latest", NewReportsHandler(&fakeReports{report: models.SyncReport{ID: "r2"}}, nil).Latest)

		rec := do(r, http.MethodGet, "/reports/latest", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, decode(t, rec), "stored")
	})

	t.Run("none yet", func(t *testing.T) {
		r := gin.New()
		r.GET("/reports/latest", NewReportsHandler(&fakeReports{err: models.ErrNoSyncReports}, nil).Latest)

		rec := do(r, http.MethodGet, "/reports/latest", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
