package reporting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/mamadbah2/vendsync/internal/catalog"
	"github.com/mamadbah2/vendsync/internal/domain/models"
	"github.com/mamadbah2/vendsync/internal/livesync"
)

const timeLayout = "2006-01-02 15:04"

// SnapshotSource provides the current cache contents.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (catalog.Snapshot, error)
}

// StatsSource provides the live sync counters.
type StatsSource interface {
	Stats() livesync.Stats
}

// Sink persists sync reports.
type Sink interface {
	SaveSyncReport(ctx context.Context, report models.SyncReport) error
}

// LatestReader is a sink that can read back its newest report.
type LatestReader interface {
	LatestSyncReport(ctx context.Context) (*models.SyncReport, error)
}

// Counter is a sink that can count the reports it holds.
type Counter interface {
	CountReports(ctx context.Context) (int, error)
}

// Service builds periodic sync reports and hands them to the configured sinks.
type Service struct {
	cache  SnapshotSource
	sync   StatsSource
	sinks  []Sink
	clock  clockwork.Clock
	logger *zap.Logger

	mu   sync.Mutex
	last *models.SyncReport
}

// NewService wires a new reporting service instance. With no sinks reports are only logged.
func NewService(cache SnapshotSource, sync StatsSource, clock clockwork.Clock, logger *zap.Logger, sinks ...Sink) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{cache: cache, sync: sync, sinks: sinks, clock: clock, logger: logger}
}

// BuildReport summarises the cache and the push channel at this instant.
func (s *Service) BuildReport(ctx context.Context) (models.SyncReport, error) {
	snap, err := s.cache.Snapshot(ctx)
	if err != nil {
		return models.SyncReport{}, fmt.Errorf("read cache snapshot: %w", err)
	}

	report := models.SyncReport{
		ID:             uuid.NewString(),
		GeneratedAt:    s.clock.Now().UTC(),
		PositionStatus: string(snap.Position.Status),
		Machines:       len(snap.Machines),
		InventoryItems: len(snap.Inventory),
		SearchResults:  len(snap.SearchResults),
		OutOfStock:     outOfStock(snap.Inventory) + outOfStock(snap.SearchResults),
		CacheVersion:   snap.Version,
	}
	if snap.Position.Coordinate != nil {
		report.PositionSource = string(snap.Position.Coordinate.Source)
	}

	if s.sync != nil {
		stats := s.sync.Stats()
		report.ChannelState = stats.State.String()
		report.ConnectAttempts = stats.ConnectAttempts
		report.Connects = stats.Connects
		report.DeltasReceived = stats.DeltasApplied
	}

	return report, nil
}

// Publish builds a report and writes it to every sink. A failing sink does
// not stop the others; their errors are joined.
func (s *Service) Publish(ctx context.Context) (models.SyncReport, error) {
	report, err := s.BuildReport(ctx)
	if err != nil {
		return models.SyncReport{}, err
	}

	s.logger.Info("sync report generated",
		zap.String("report_id", report.ID),
		zap.String("summary", Summary(report)))

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()

	var errs []error
	for _, sink := range s.sinks {
		if err := sink.SaveSyncReport(ctx, report); err != nil {
			s.logger.Error("failed to persist sync report", zap.String("report_id", report.ID), zap.Error(err))
			errs = append(errs, err)
		}
	}

	return report, errors.Join(errs...)
}

// Latest returns the newest stored report. Sinks that can read back are asked
// first; the report published by this process is the fallback.
func (s *Service) Latest(ctx context.Context) (models.SyncReport, error) {
	for _, sink := range s.sinks {
		reader, ok := sink.(LatestReader)
		if !ok {
			continue
		}
		report, err := reader.LatestSyncReport(ctx)
		if err == nil && report != nil {
			return *report, nil
		}
		if err != nil && !errors.Is(err, models.ErrNoSyncReports) {
			s.logger.Warn("failed to read latest sync report", zap.Error(err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return models.SyncReport{}, models.ErrNoSyncReports
	}
	return *s.last, nil
}

// StoredReports counts the reports held by the first counting sink. ok is
// false when no sink can count.
func (s *Service) StoredReports(ctx context.Context) (int, bool, error) {
	for _, sink := range s.sinks {
		counter, isCounter := sink.(Counter)
		if !isCounter {
			continue
		}
		count, err := counter.CountReports(ctx)
		if err != nil {
			return 0, false, fmt.Errorf("count stored reports: %w", err)
		}
		return count, true, nil
	}
	return 0, false, nil
}

// Summary renders a one-line human readable report.
func Summary(r models.SyncReport) string {
	position := r.PositionStatus
	if r.PositionSource != "" {
		position = fmt.Sprintf("%s via %s", r.PositionStatus, r.PositionSource)
	}

	return fmt.Sprintf("Sync (%s): position %s; %d machines, %d inventory items, %d search results, %d out of stock; channel %s after %d/%d connects, %d deltas.",
		r.GeneratedAt.Format(timeLayout), position,
		r.Machines, r.InventoryItems, r.SearchResults, r.OutOfStock,
		r.ChannelState, r.Connects, r.ConnectAttempts, r.DeltasReceived)
}

func outOfStock(products []models.Product) int {
	var n int
	for _, p := range products {
		if !p.InStock() {
			n++
		}
	}
	return n
}
