package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/vendsync/internal/domain/models"
)

type fakeFetcher struct {
	mu       sync.Mutex
	machines []models.Machine
	products []models.Product
	results  []models.Product
	err      error
	queries  []string
}

func (f *fakeFetcher) ListMachines(context.Context) ([]models.Machine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.machines, f.err
}

func (f *fakeFetcher) ListProducts(context.Context) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products, f.err
}

func (f *fakeFetcher) SearchProducts(_ context.Context, name string) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, name)
	return f.results, f.err
}

func (f *fakeFetcher) searched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func (f *fakeFetcher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func newTestService(t *testing.T, fetcher *fakeFetcher) (*Service, *Hub, *clockwork.FakeClock) {
	t.Helper()
	hub := startHub(t)
	clock := clockwork.NewFakeClock()
	svc := NewService(fetcher, hub, clock, 300*time.Millisecond, nil)
	t.Cleanup(svc.Close)
	return svc, hub, clock
}

func TestLoadMachines(t *testing.T) {
	fetcher := &fakeFetcher{machines: []models.Machine{
		{ID: 1, Name: "Far", Latitude: 10.1, Longitude: 20},
		{ID: 2, Name: "Near", Latitude: 10.001, Longitude: 20},
	}}
	svc, hub, _ := newTestService(t, fetcher)
	ctx := context.Background()

	require.NoError(t, svc.LoadMachines(ctx))
	require.NoError(t, hub.SetPosition(ctx, models.Resolution{
		Status:     models.ResolutionResolved,
		Coordinate: &models.Coordinate{Lat: 10, Lon: 20, Source: models.SourceGPS},
	}))

	ranked, err := svc.Machines(ctx)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Near", ranked[0].Name)

	nearest, err := svc.Nearest(ctx)
	require.NoError(t, err)
	require.NotNil(t, nearest.Nearest)
	assert.EqualValues(t, 2, nearest.Nearest.ID)
}

func TestFetchFailureKeepsSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{machines: []models.Machine{{ID: 1, Name: "Lobby"}}}
	svc, _, _ := newTestService(t, fetcher)
	ctx := context.Background()

	require.NoError(t, svc.LoadMachines(ctx))
	fetcher.setErr(errors.New("catalog down"))

	assert.Error(t, svc.LoadMachines(ctx))

	ranked, err := svc.Machines(ctx)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Nil(t, ranked[0].DistanceMeters)
}

func TestOpenMachineFiltersInventory(t *testing.T) {
	fetcher := &fakeFetcher{products: []models.Product{
		{ID: 1, Name: "Cola", Stock: 2, MachineID: 5},
		{ID: 2, Name: "Chips", Stock: 9},
		{ID: 3, Name: "Water", Stock: 4, MachineID: 6},
	}}
	svc, _, _ := newTestService(t, fetcher)
	ctx := context.Background()

	require.NoError(t, svc.OpenMachine(ctx, models.Machine{ID: 5, Name: "Lobby"}))

	inv, err := svc.Inventory(ctx)
	require.NoError(t, err)
	require.NotNil(t, inv.Machine)
	assert.EqualValues(t, 5, inv.Machine.ID)
	require.Len(t, inv.Products, 2)
	assert.Equal(t, "Chips", inv.Products[0].Name)
	assert.Equal(t, "Cola", inv.Products[1].Name)

	view, err := svc.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ViewInventory, view.View)
}

func TestSearchIsDebounced(t *testing.T) {
	fetcher := &fakeFetcher{results: []models.Product{{ID: 7, Name: "Cola", Stock: 1, MachineID: 1}}}
	svc, _, clock := newTestService(t, fetcher)
	ctx := context.Background()

	require.NoError(t, svc.SetSearchText(ctx, "co"))
	clock.Advance(200 * time.Millisecond)
	require.NoError(t, svc.SetSearchText(ctx, " cola "))
	clock.Advance(200 * time.Millisecond)

	assert.Never(t, func() bool { return len(fetcher.searched()) > 0 }, 50*time.Millisecond, 10*time.Millisecond)

	clock.Advance(100 * time.Millisecond)
	require.Eventually(t, func() bool { return len(fetcher.searched()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"cola"}, fetcher.searched())

	require.Eventually(t, func() bool {
		view, err := svc.Search(ctx)
		return err == nil && view.Query == "cola" && len(view.Results) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestBlankSearchClearsResults(t *testing.T) {
	fetcher := &fakeFetcher{results: []models.Product{{ID: 7, Name: "Cola", Stock: 1}}}
	svc, hub, clock := newTestService(t, fetcher)
	ctx := context.Background()

	require.NoError(t, hub.ReplaceSearch(ctx, "cola", fetcher.results))
	require.NoError(t, svc.SetSearchText(ctx, "   "))
	clock.Advance(300 * time.Millisecond)

	require.Eventually(t, func() bool {
		view, err := svc.Search(ctx)
		return err == nil && len(view.Results) == 0
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, fetcher.searched())
}

func TestSearchOutsideMachinesViewClears(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc, _, clock := newTestService(t, fetcher)
	ctx := context.Background()

	require.NoError(t, svc.ShowNearest(ctx))
	require.NoError(t, svc.SetSearchText(ctx, "cola"))
	clock.Advance(300 * time.Millisecond)

	assert.Never(t, func() bool { return len(fetcher.searched()) > 0 }, 50*time.Millisecond, 10*time.Millisecond)
}

func TestBackToMachinesResetsSession(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc, hub, clock := newTestService(t, fetcher)
	ctx := context.Background()

	require.NoError(t, svc.OpenMachine(ctx, models.Machine{ID: 5}))
	require.NoError(t, svc.SetSearchText(ctx, "cola"))
	require.NoError(t, svc.BackToMachines(ctx))
	clock.Advance(time.Second)

	snap, err := hub.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ViewMachines, snap.View.View)
	assert.Nil(t, snap.View.SelectedMachine)
	assert.Empty(t, snap.View.SearchText)
	assert.Never(t, func() bool { return len(fetcher.searched()) > 0 }, 50*time.Millisecond, 10*time.Millisecond)
}

func TestOpeningMachineDropsSearchResultsAfterDebounce(t *testing.T) {
	fetcher := &fakeFetcher{results: []models.Product{{ID: 7, Name: "Cola", Stock: 1, MachineID: 1}}}
	svc, _, clock := newTestService(t, fetcher)
	ctx := context.Background()

	require.NoError(t, svc.SetSearchText(ctx, "cola"))
	clock.Advance(300 * time.Millisecond)
	require.Eventually(t, func() bool {
		view, err := svc.Search(ctx)
		return err == nil && len(view.Results) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, svc.OpenMachine(ctx, models.Machine{ID: 1, Name: "Lobby"}))
	view, err := svc.Search(ctx)
	require.NoError(t, err)
	assert.Len(t, view.Results, 1)

	clock.Advance(300 * time.Millisecond)
	require.Eventually(t, func() bool {
		view, err := svc.Search(ctx)
		return err == nil && len(view.Results) == 0
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"cola"}, fetcher.searched())
	v, err := svc.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cola", v.SearchText)
}
