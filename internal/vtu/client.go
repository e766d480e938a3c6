// internal/vtu/client.go
package vtu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/errors"
	httpclient "forbill-bot/internal/common/http"
	"forbill-bot/internal/common/logger"
	"forbill-bot/internal/common/metrics"
)

// networkCodes maps network names to the vending provider's numeric codes.
var networkCodes = map[string]string{
	"mtn":     "1",
	"glo":     "2",
	"airtel":  "3",
	"9mobile": "4",
}

// cableCodes maps cable TV providers to the vending provider's service IDs.
var cableCodes = map[string]string{
	"dstv":      "dstv",
	"gotv":      "gotv",
	"startimes": "startimes",
}

// Vender is the vending surface the bot handlers depend on.
type Vender interface {
	BuyAirtime(ctx context.Context, req AirtimeRequest) (*VendResult, error)
	BuyData(ctx context.Context, req DataRequest) (*VendResult, error)
	PayElectricity(ctx context.Context, req ElectricityRequest) (*VendResult, error)
	PayCable(ctx context.Context, req CableRequest) (*VendResult, error)
}

type AirtimeRequest struct {
	Phone     string
	Amount    int64
	Network   string
	Reference string
}

type DataRequest struct {
	Phone     string
	Network   string
	SizeMB    int
	PlanName  string
	Reference string
}

type ElectricityRequest struct {
	MeterNumber string
	Amount      int64
	Reference   string
}

type CableRequest struct {
	Provider        string
	SmartcardNumber string
	PackageCode     string
	Reference       string
}

// VendResult is the provider's acknowledgement of a successful vend.
type VendResult struct {
	ProviderReference string `json:"reference"`
	Token             string `json:"token,omitempty"`
	Message           string `json:"message,omitempty"`
}

// Client talks to the airtime/data/bills vending provider.
type Client struct {
	cfg    config.VendingConfig
	http   *httpclient.Client
	logger logger.Logger
}

func NewClient(cfg config.VendingConfig, log logger.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   httpclient.NewClient(timeout),
		logger: log.WithFields(map[string]interface{}{"component": "vtu"}),
	}
}

func (c *Client) BuyAirtime(ctx context.Context, req AirtimeRequest) (*VendResult, error) {
	code, ok := networkCodes[strings.ToLower(req.Network)]
	if !ok {
		return nil, errors.NewVendingFailedError("airtime", fmt.Errorf("unknown network: %s", req.Network))
	}

	return c.post(ctx, "airtime", map[string]interface{}{
		"network":    code,
		"phone":      req.Phone,
		"amount":     req.Amount,
		"request_id": req.Reference,
	})
}

func (c *Client) BuyData(ctx context.Context, req DataRequest) (*VendResult, error) {
	code, ok := networkCodes[strings.ToLower(req.Network)]
	if !ok {
		return nil, errors.NewVendingFailedError("data", fmt.Errorf("unknown network: %s", req.Network))
	}

	return c.post(ctx, "data", map[string]interface{}{
		"network":    code,
		"phone":      req.Phone,
		"size_mb":    req.SizeMB,
		"plan":       req.PlanName,
		"request_id": req.Reference,
	})
}

func (c *Client) PayElectricity(ctx context.Context, req ElectricityRequest) (*VendResult, error) {
	return c.post(ctx, "electricity", map[string]interface{}{
		"meter_number": req.MeterNumber,
		"amount":       req.Amount,
		"request_id":   req.Reference,
	})
}

func (c *Client) PayCable(ctx context.Context, req CableRequest) (*VendResult, error) {
	code, ok := cableCodes[strings.ToLower(req.Provider)]
	if !ok {
		return nil, errors.NewVendingFailedError("cabletv", fmt.Errorf("unknown provider: %s", req.Provider))
	}

	return c.post(ctx, "cabletv", map[string]interface{}{
		"service":    code,
		"smartcard":  req.SmartcardNumber,
		"package":    req.PackageCode,
		"request_id": req.Reference,
	})
}

type providerResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Reference string `json:"reference"`
	Token     string `json:"token"`
}

func (c *Client) post(ctx context.Context, endpoint string, payload map[string]interface{}) (*VendResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewVendingFailedError(endpoint, err)
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(c.cfg.BaseURL, "/"), endpoint)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewVendingFailedError(endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		metrics.VendingCalls.WithLabelValues(endpoint, "error").Inc()
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewVendingTimeoutError(endpoint)
		}
		return nil, errors.NewVendingFailedError(endpoint, err)
	}
	defer res.Body.Close()

	var parsed providerResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		metrics.VendingCalls.WithLabelValues(endpoint, "error").Inc()
		return nil, errors.NewVendingFailedError(endpoint, err)
	}

	if res.StatusCode >= 300 || !parsed.Success {
		metrics.VendingCalls.WithLabelValues(endpoint, "failed").Inc()
		c.logger.Error("vend rejected", map[string]interface{}{
			"endpoint": endpoint,
			"status":   res.StatusCode,
			"message":  parsed.Message,
		})
		return nil, errors.NewVendingFailedError(endpoint, fmt.Errorf("%s", parsed.Message))
	}

	metrics.VendingCalls.WithLabelValues(endpoint, "success").Inc()
	c.logger.Info("vend completed", map[string]interface{}{
		"endpoint":  endpoint,
		"reference": parsed.Reference,
	})

	return &VendResult{
		ProviderReference: parsed.Reference,
		Token:             parsed.Token,
		Message:           parsed.Message,
	}, nil
}
