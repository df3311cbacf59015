package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/vendsync/internal/config"
	"github.com/mamadbah2/vendsync/internal/domain/models"
)

// Client exposes the catalog and order service operations used by the engine.
type Client interface {
	ListMachines(ctx context.Context) ([]models.Machine, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	SearchProducts(ctx context.Context, name string) ([]models.Product, error)
	RecordDemand(ctx context.Context, userID string, req models.DemandRequest) error
	CreateOrder(ctx context.Context, productID int64) (*models.Order, error)
	Buy(ctx context.Context, productID int64, userID string, receipt models.PaymentReceipt) error
	Purchases(ctx context.Context, userID string) (*models.PurchaseHistory, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a catalog API client. The session token, when present, is
// sent as a bearer credential on every request.
func NewClient(cfg config.CatalogConfig, session models.Session) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	// Fetches carry no client-side deadline unless one is configured.
	if cfg.Timeout > 0 {
		restyClient.SetTimeout(cfg.Timeout)
	}
	if session.Token != "" {
		restyClient.SetAuthToken(session.Token)
	}

	return &APIClient{httpClient: restyClient}
}

// APIError is returned when the service answers with an error status or an
// error payload.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog api error: status=%d, message=%s", e.Status, e.Message)
}

// apiErrorBody covers both error shapes the service produces: {"error": "..."}
// from handlers and {"detail": ...} from request validation.
type apiErrorBody struct {
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

func (b *apiErrorBody) message() string {
	if b == nil {
		return ""
	}
	if b.Error != "" {
		return b.Error
	}
	if len(b.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(b.Detail, &detail); err == nil {
		return detail
	}
	return string(b.Detail)
}

type orderResponse struct {
	models.Order
	Error string `json:"error"`
}

type buyResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *APIClient) ListMachines(ctx context.Context) ([]models.Machine, error) {
	var machines []models.Machine
	if err := c.do(ctx, http.MethodGet, "/machines", nil, &machines); err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	return machines, nil
}

func (c *APIClient) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &products); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (c *APIClient) SearchProducts(ctx context.Context, name string) ([]models.Product, error) {
	var products []models.Product
	err := c.do(ctx, http.MethodGet, "/search", func(r *resty.Request) {
		r.SetQueryParam("name", name)
	}, &products)
	if err != nil {
		return nil, fmt.Errorf("search products %q: %w", name, err)
	}
	return products, nil
}

// RecordDemand registers a restock request. The response body is not consumed.
func (c *APIClient) RecordDemand(ctx context.Context, userID string, req models.DemandRequest) error {
	err := c.do(ctx, http.MethodPost, "/demand", func(r *resty.Request) {
		r.SetQueryParam("user_id", userID).SetBody(req)
	}, nil)
	if err != nil {
		return fmt.Errorf("record demand for machine %d: %w", req.MachineID, err)
	}
	return nil
}

func (c *APIClient) CreateOrder(ctx context.Context, productID int64) (*models.Order, error) {
	result := new(orderResponse)
	path := "/create-order/" + strconv.FormatInt(productID, 10)
	if err := c.do(ctx, http.MethodPost, path, nil, result); err != nil {
		return nil, fmt.Errorf("create order for product %d: %w", productID, err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("create order for product %d: %w", productID, &APIError{Status: http.StatusOK, Message: result.Error})
	}
	return &result.Order, nil
}

func (c *APIClient) Buy(ctx context.Context, productID int64, userID string, receipt models.PaymentReceipt) error {
	result := new(buyResponse)
	path := "/buy/" + strconv.FormatInt(productID, 10)
	err := c.do(ctx, http.MethodPost, path, func(r *resty.Request) {
		r.SetQueryParam("user_id", userID).SetBody(receipt)
	}, result)
	if err != nil {
		return fmt.Errorf("buy product %d: %w", productID, err)
	}
	if result.Error != "" {
		return fmt.Errorf("buy product %d: %w", productID, &APIError{Status: http.StatusOK, Message: result.Error})
	}
	return nil
}

func (c *APIClient) Purchases(ctx context.Context, userID string) (*models.PurchaseHistory, error) {
	result := new(models.PurchaseHistory)
	err := c.do(ctx, http.MethodGet, "/{user_id}/purchases", func(r *resty.Request) {
		r.SetPathParam("user_id", userID)
	}, result)
	if err != nil {
		return nil, fmt.Errorf("load purchases for user %s: %w", userID, err)
	}
	return result, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, configure func(*resty.Request), result any) error {
	apiErr := new(apiErrorBody)

	req := c.httpClient.R().
		SetContext(ctx).
		SetError(apiErr)
	if result != nil {
		req.SetResult(result)
	}
	if configure != nil {
		configure(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.message()
		if message == "" {
			message = http.StatusText(resp.StatusCode())
		}
		return &APIError{Status: resp.StatusCode(), Message: message}
	}

	return nil
}
