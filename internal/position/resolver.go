// Package position resolves the client's coordinates through an ordered
// fallback chain: an on-device fix first, then IP geolocation.
package position

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/vendsync/internal/domain/models"
)

// User-facing reasons attached to an unresolved position.
const (
	ReasonIPNoCoordinates = "Could not determine location via IP."
	ReasonLookupFailed    = "Failed to determine location. Distances cannot be calculated."
)

// DefaultDeviceTimeout bounds the wait for an on-device fix.
const DefaultDeviceTimeout = 5 * time.Second

var (
	// ErrUnsupported is returned by device locators when no positioning capability exists.
	ErrUnsupported = errors.New("device positioning unsupported")
	// ErrNoCoordinates is returned when a source answers without a usable fix.
	ErrNoCoordinates = errors.New("position source returned no coordinates")
)

// Locator is a single position source.
type Locator interface {
	Locate(ctx context.Context) (models.Coordinate, error)
}

// Resolver runs the fallback chain. A session resolves at most once through
// Start; Resolve can be called directly for one-shot use.
type Resolver struct {
	device        Locator
	ip            Locator
	deviceTimeout time.Duration
	logger        *zap.Logger

	once sync.Once
}

// NewResolver wires the device and IP sources. A nil device skips straight
// to IP geolocation.
func NewResolver(device, ip Locator, deviceTimeout time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deviceTimeout <= 0 {
		deviceTimeout = DefaultDeviceTimeout
	}
	return &Resolver{
		device:        device,
		ip:            ip,
		deviceTimeout: deviceTimeout,
		logger:        logger,
	}
}

// Start resolves asynchronously and reports the outcome to onDone. Only the
// first call per Resolver does anything; it returns false afterwards.
func (r *Resolver) Start(ctx context.Context, onDone func(models.Resolution)) bool {
	started := false
	r.once.Do(func() {
		started = true
		go func() {
			res := r.Resolve(ctx)
			if onDone != nil {
				onDone(res)
			}
		}()
	})
	return started
}

// Resolve walks the chain and returns the first successful coordinate, or an
// unresolved outcome with a human-readable reason. Device failures are only
// logged.
func (r *Resolver) Resolve(ctx context.Context) models.Resolution {
	if r.device != nil {
		coord, err := r.locateDevice(ctx)
		if err == nil {
			coord.Source = models.SourceGPS
			r.logger.Info("device position resolved", zap.Float64("lat", coord.Lat), zap.Float64("lon", coord.Lon))
			return resolved(coord)
		}
		r.logger.Info("device position unavailable, falling back to ip", zap.Error(err))
	}

	if r.ip == nil {
		return models.Resolution{Status: models.ResolutionUnresolved, Reason: ReasonLookupFailed}
	}

	coord, err := r.ip.Locate(ctx)
	switch {
	case errors.Is(err, ErrNoCoordinates):
		r.logger.Warn("ip geolocation returned no coordinates", zap.Error(err))
		return models.Resolution{Status: models.ResolutionUnresolved, Reason: ReasonIPNoCoordinates}
	case err != nil:
		r.logger.Error("ip geolocation failed", zap.Error(err))
		return models.Resolution{Status: models.ResolutionUnresolved, Reason: ReasonLookupFailed}
	}

	coord.Source = models.SourceIP
	r.logger.Info("ip position resolved", zap.Float64("lat", coord.Lat), zap.Float64("lon", coord.Lon))
	return resolved(coord)
}

// locateDevice bounds the device attempt even if the locator ignores ctx.
func (r *Resolver) locateDevice(ctx context.Context) (models.Coordinate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.deviceTimeout)
	defer cancel()

	type result struct {
		coord models.Coordinate
		err   error
	}
	done := make(chan result, 1)
	go func() {
		coord, err := r.device.Locate(ctx)
		done <- result{coord: coord, err: err}
	}()

	select {
	case res := <-done:
		return res.coord, res.err
	case <-ctx.Done():
		return models.Coordinate{}, ctx.Err()
	}
}

func resolved(coord models.Coordinate) models.Resolution {
	return models.Resolution{Status: models.ResolutionResolved, Coordinate: &coord}
}
