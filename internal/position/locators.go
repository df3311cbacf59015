package position

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/vendsync/internal/config"
	"github.com/mamadbah2/vendsync/internal/domain/models"
	"github.com/mamadbah2/vendsync/pkg/clients/ipgeo"
)

// NewDeviceLocator picks the on-device source from config: a positioning
// daemon URL wins over a static fix; with neither the capability is
// unsupported.
func NewDeviceLocator(cfg config.PositionConfig) Locator {
	switch {
	case cfg.DeviceURL != "":
		return NewHTTPDeviceLocator(cfg.DeviceURL, cfg.DeviceTimeout)
	case cfg.HasStaticFix():
		return StaticLocator{Lat: cfg.DeviceLat, Lon: cfg.DeviceLon}
	default:
		return unsupportedLocator{}
	}
}

type unsupportedLocator struct{}

func (unsupportedLocator) Locate(context.Context) (models.Coordinate, error) {
	return models.Coordinate{}, ErrUnsupported
}

// StaticLocator reports a fixed device position, e.g. a kiosk with a known
// install location.
type StaticLocator struct {
	Lat float64
	Lon float64
}

func (s StaticLocator) Locate(context.Context) (models.Coordinate, error) {
	if s.Lat == 0 || s.Lon == 0 {
		return models.Coordinate{}, ErrNoCoordinates
	}
	return models.Coordinate{Lat: s.Lat, Lon: s.Lon}, nil
}

// HTTPDeviceLocator asks a local positioning daemon for a fresh high-accuracy fix.
type HTTPDeviceLocator struct {
	httpClient *resty.Client
}

type deviceFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// NewHTTPDeviceLocator builds a locator for the daemon at url.
func NewHTTPDeviceLocator(url string, timeout time.Duration) *HTTPDeviceLocator {
	client := resty.New().
		SetBaseURL(url).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	return &HTTPDeviceLocator{httpClient: client}
}

func (l *HTTPDeviceLocator) Locate(ctx context.Context) (models.Coordinate, error) {
	var fix deviceFix
	resp, err := l.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"high_accuracy": "true",
			"maximum_age":   "0",
		}).
		SetResult(&fix).
		Get("")
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("device position call: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusForbidden:
		return models.Coordinate{}, fmt.Errorf("device position permission denied")
	case resp.StatusCode() == http.StatusNotImplemented:
		return models.Coordinate{}, ErrUnsupported
	case resp.IsError():
		return models.Coordinate{}, fmt.Errorf("device position error: %s", resp.Status())
	}

	if fix.Latitude == 0 || fix.Longitude == 0 {
		return models.Coordinate{}, ErrNoCoordinates
	}
	return models.Coordinate{Lat: fix.Latitude, Lon: fix.Longitude}, nil
}

// IPLocator adapts the IP geolocation client to a Locator.
type IPLocator struct {
	client ipgeo.Client
}

// NewIPLocator wraps client.
func NewIPLocator(client ipgeo.Client) *IPLocator {
	return &IPLocator{client: client}
}

func (l *IPLocator) Locate(ctx context.Context) (models.Coordinate, error) {
	loc, err := l.client.Lookup(ctx)
	if err != nil {
		return models.Coordinate{}, err
	}
	if !loc.HasCoordinates() {
		if loc.Reason != "" {
			return models.Coordinate{}, fmt.Errorf("%w: %s", ErrNoCoordinates, loc.Reason)
		}
		return models.Coordinate{}, ErrNoCoordinates
	}
	return models.Coordinate{Lat: loc.Latitude, Lon: loc.Longitude}, nil
}
