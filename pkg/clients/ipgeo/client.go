package ipgeo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultBaseURL is the public IP geolocation endpoint.
	DefaultBaseURL = "https://ipapi.co"
	lookupPath     = "/json/"
)

// Client defines the IP geolocation lookup.
type Client interface {
	Lookup(ctx context.Context) (*Location, error)
}

// Location is the subset of the lookup response the engine uses.
type Location struct {
	IP        string  `json:"ip"`
	City      string  `json:"city"`
	Country   string  `json:"country_name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Error and Reason are set by the provider on quota or lookup failures.
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// HasCoordinates reports whether both coordinates are present.
func (l *Location) HasCoordinates() bool {
	return l != nil && l.Latitude != 0 && l.Longitude != 0
}

type ipapiClient struct {
	httpClient *resty.Client
}

// NewClient creates a configured IP geolocation client.
func NewClient(baseURL string, timeout time.Duration) Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "vendsync/1.0")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &ipapiClient{httpClient: client}
}

// Lookup returns whatever location the provider answered with. A JSON answer
// is returned even on an error status or a provider refusal, and then simply
// carries no coordinates. Only transport failures and non-JSON bodies are errors.
func (c *ipapiClient) Lookup(ctx context.Context) (*Location, error) {
	var respBody Location
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&respBody).
		SetError(&respBody).
		Get(lookupPath)

	if err != nil {
		return nil, fmt.Errorf("ip geolocation call: %w", err)
	}
	if !strings.Contains(resp.Header().Get("Content-Type"), "json") {
		return nil, fmt.Errorf("ip geolocation returned %s without a JSON body", resp.Status())
	}
	if resp.IsError() && respBody.Reason == "" {
		respBody.Reason = resp.Status()
	}

	return &respBody, nil
}
