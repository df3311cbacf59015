package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/mamadbah2/vendsync/internal/domain/models"
	"github.com/mamadbah2/vendsync/internal/ranking"
)

// DefaultSearchDebounce is the quiet period before a search is issued.
const DefaultSearchDebounce = 300 * time.Millisecond

// Fetcher is the read side of the catalog service.
type Fetcher interface {
	ListMachines(ctx context.Context) ([]models.Machine, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	SearchProducts(ctx context.Context, name string) ([]models.Product, error)
}

// Service issues catalog fetches and hands the results to the hub. Fetch
// failures are logged and leave the cached snapshot untouched.
type Service struct {
	fetcher  Fetcher
	hub      *Hub
	clock    clockwork.Clock
	debounce time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	search clockwork.Timer
}

// NewService wires a discovery service. A nil clock uses the real clock.
func NewService(fetcher Fetcher, hub *Hub, clock clockwork.Clock, debounce time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if debounce <= 0 {
		debounce = DefaultSearchDebounce
	}
	return &Service{
		fetcher:  fetcher,
		hub:      hub,
		clock:    clock,
		debounce: debounce,
		logger:   logger,
	}
}

// LoadMachines replaces the machine list with the catalog's.
func (s *Service) LoadMachines(ctx context.Context) error {
	machines, err := s.fetcher.ListMachines(ctx)
	if err != nil {
		s.logger.Error("failed to fetch machines", zap.Error(err))
		return fmt.Errorf("fetch machines: %w", err)
	}
	s.logger.Debug("machines fetched", zap.Int("count", len(machines)))
	return s.hub.ReplaceMachines(ctx, machines)
}

// OpenMachine switches to the inventory view of machine and refreshes its
// stock. Catalog-wide search results are dropped once the debounce elapses.
func (s *Service) OpenMachine(ctx context.Context, machine models.Machine) error {
	if _, err := s.hub.UpdateView(ctx, func(v *models.ViewState) {
		v.View = models.ViewInventory
		v.SelectedMachine = &machine
	}); err != nil {
		return err
	}
	s.scheduleSearch(ctx)
	return s.RefreshInventory(ctx, machine.ID)
}

// RefreshInventory fetches products and keeps those unassigned or stocked at machineID.
func (s *Service) RefreshInventory(ctx context.Context, machineID int64) error {
	products, err := s.fetcher.ListProducts(ctx)
	if err != nil {
		s.logger.Error("failed to fetch inventory", zap.Int64("machine_id", machineID), zap.Error(err))
		return fmt.Errorf("fetch inventory: %w", err)
	}

	rows := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.MachineID == 0 || p.MachineID == machineID {
			rows = append(rows, p)
		}
	}
	return s.hub.ReplaceInventory(ctx, machineID, rows)
}

// BackToMachines returns to the machine list and drops the selection and search.
func (s *Service) BackToMachines(ctx context.Context) error {
	s.stopSearchTimer()
	if _, err := s.hub.UpdateView(ctx, func(v *models.ViewState) {
		v.View = models.ViewMachines
		v.SelectedMachine = nil
		v.SearchText = ""
	}); err != nil {
		return err
	}
	return s.hub.ClearSearch(ctx)
}

// ShowNearest switches to the nearest-machine view.
func (s *Service) ShowNearest(ctx context.Context) error {
	s.stopSearchTimer()
	if _, err := s.hub.UpdateView(ctx, func(v *models.ViewState) {
		v.View = models.ViewNearest
		v.SearchText = ""
	}); err != nil {
		return err
	}
	return s.hub.ClearSearch(ctx)
}

// SetSearchText stores text and schedules a search once input has been quiet
// for the debounce period. Each call restarts the wait.
func (s *Service) SetSearchText(ctx context.Context, text string) error {
	if _, err := s.hub.UpdateView(ctx, func(v *models.ViewState) {
		v.SearchText = text
	}); err != nil {
		return err
	}
	s.scheduleSearch(ctx)
	return nil
}

// scheduleSearch (re)arms the debounced search against the view at fire time.
func (s *Service) scheduleSearch(ctx context.Context) {
	// The search outlives the request that triggered it.
	bg := context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.search != nil {
		s.search.Stop()
	}
	s.search = s.clock.AfterFunc(s.debounce, func() {
		if err := s.runSearch(bg); err != nil {
			s.logger.Debug("debounced search not applied", zap.Error(err))
		}
	})
}

// Close cancels any pending debounced search.
func (s *Service) Close() {
	s.stopSearchTimer()
}

func (s *Service) stopSearchTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.search != nil {
		s.search.Stop()
		s.search = nil
	}
}

func (s *Service) runSearch(ctx context.Context) error {
	snap, err := s.hub.Snapshot(ctx)
	if err != nil {
		return err
	}

	query := strings.TrimSpace(snap.View.SearchText)
	if query == "" || snap.View.View != models.ViewMachines {
		return s.hub.ClearSearch(ctx)
	}

	products, err := s.fetcher.SearchProducts(ctx, query)
	if err != nil {
		s.logger.Error("failed to search products", zap.String("query", query), zap.Error(err))
		return fmt.Errorf("search products: %w", err)
	}
	return s.hub.ReplaceSearch(ctx, query, products)
}

// Position returns the current position resolution.
func (s *Service) Position(ctx context.Context) (models.Resolution, error) {
	snap, err := s.hub.Snapshot(ctx)
	if err != nil {
		return models.Resolution{}, err
	}
	return snap.Position, nil
}

// Machines ranks the cached machines by proximity.
func (s *Service) Machines(ctx context.Context) ([]ranking.RankedMachine, error) {
	snap, err := s.hub.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return ranking.MachinesByProximity(snap.Machines, snap.Position.Coordinate), nil
}

// NearestView is the machine list with the closest machine singled out.
type NearestView struct {
	Nearest  *ranking.RankedMachine  `json:"nearest,omitempty"`
	Machines []ranking.RankedMachine `json:"machines"`
	Position models.Resolution       `json:"position"`
}

func (s *Service) Nearest(ctx context.Context) (NearestView, error) {
	snap, err := s.hub.Snapshot(ctx)
	if err != nil {
		return NearestView{}, err
	}
	view := NearestView{
		Machines: ranking.MachinesByProximity(snap.Machines, snap.Position.Coordinate),
		Position: snap.Position,
	}
	if nearest, ok := ranking.Nearest(snap.Machines, snap.Position.Coordinate); ok {
		view.Nearest = &nearest
	}
	return view, nil
}

// SearchView carries the ranked cross-machine results for the last issued query.
type SearchView struct {
	Query   string                  `json:"query"`
	Text    string                  `json:"text"`
	Results []ranking.RankedProduct `json:"results"`
}

func (s *Service) Search(ctx context.Context) (SearchView, error) {
	snap, err := s.hub.Snapshot(ctx)
	if err != nil {
		return SearchView{}, err
	}
	return SearchView{
		Query:   snap.SearchQuery,
		Text:    snap.View.SearchText,
		Results: ranking.SearchResults(snap.SearchResults, snap.Position.Coordinate),
	}, nil
}

// InventoryView is the selected machine's stock filtered by the search text.
type InventoryView struct {
	Machine  *models.Machine  `json:"machine,omitempty"`
	Products []models.Product `json:"products"`
}

func (s *Service) Inventory(ctx context.Context) (InventoryView, error) {
	snap, err := s.hub.Snapshot(ctx)
	if err != nil {
		return InventoryView{}, err
	}
	return InventoryView{
		Machine:  snap.View.SelectedMachine,
		Products: ranking.Inventory(snap.Inventory, snap.View.SearchText),
	}, nil
}

// View returns the session's navigation state.
func (s *Service) View(ctx context.Context) (models.ViewState, error) {
	snap, err := s.hub.Snapshot(ctx)
	if err != nil {
		return models.ViewState{}, err
	}
	return snap.View, nil
}
