package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	dompayment "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/payment"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/pkg/logging"
)

// HTTPGateway talks to the remote payment provider over its JSON order API.
// Calls run through a circuit breaker so a struggling provider sheds load
// fast instead of tying up checkout requests.
type HTTPGateway struct {
	url     string
	authKey string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*dompayment.Intent]
}

func NewHTTPGateway(url, authKey string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPGateway{
		url:     url,
		authKey: authKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		breaker: gobreaker.NewCircuitBreaker[*dompayment.Intent](gobreaker.Settings{
			Name:    "payment-gateway",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

type createIntentRequest struct {
	Method   string `json:"method"`
	AuthKey  string `json:"authkey"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createIntentResponse struct {
	Order struct {
		Ref      string `json:"ref"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"order"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *HTTPGateway) CreateIntent(ctx context.Context, amount int64, currency, receiptRef string) (*dompayment.Intent, error) {
	if len(receiptRef) > dompayment.MaxReceiptLen {
		return nil, dompayment.ErrReceiptTooLong
	}

	intent, err := g.breaker.Execute(func() (*dompayment.Intent, error) {
		return g.createIntent(ctx, amount, currency, receiptRef)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			logging.FromContext(ctx).Warn("gateway_circuit_open")
			return nil, fmt.Errorf("%w: %v", dompayment.ErrGatewayUnavailable, err)
		}
		return nil, err
	}
	return intent, nil
}

func (g *HTTPGateway) createIntent(ctx context.Context, amount int64, currency, receiptRef string) (*dompayment.Intent, error) {
	payload, err := json.Marshal(createIntentRequest{
		Method:   "create",
		AuthKey:  g.authKey,
		Amount:   amount,
		Currency: currency,
		Receipt:  receiptRef,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dompayment.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("gateway: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", dompayment.ErrGatewayUnavailable, resp.StatusCode)
	}

	var out createIntentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("gateway: decode response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("gateway: %s: %s", out.Error.Code, out.Error.Message)
	}
	if out.Order.Ref == "" {
		return nil, fmt.Errorf("gateway: response missing order ref")
	}

	logging.FromContext(ctx).Info("payment_intent_created",
		zap.String("gateway_order_id", out.Order.Ref),
		zap.Int64("amount", amount),
	)
	return &dompayment.Intent{
		GatewayOrderID: out.Order.Ref,
		Amount:         out.Order.Amount,
		Currency:       out.Order.Currency,
	}, nil
}
