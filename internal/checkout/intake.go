package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/imrishuroy/go-template-storefront/internal/config"
)

const (
	createOrderPath   = "/api/create-order"
	verifyPaymentPath = "/api/verify-payment"

	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// ErrVerificationFailed is returned when the server rejects a payment signature.
var ErrVerificationFailed = errors.New("payment verification failed")

// HTTPIntake talks to the order intake API.
type HTTPIntake struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPIntake returns an HTTPIntake for baseURL, falling back to the local API.
func NewHTTPIntake(baseURL string) *HTTPIntake {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultAPIBaseURL
	}
	return &HTTPIntake{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: defaultTimeout},
	}
}

type createOrderBody struct {
	Amount   float64           `json:"amount"`
	Currency string            `json:"currency,omitempty"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
	Items    []LineItem        `json:"items,omitempty"`
}

// apiResponse covers both the success and failure shapes of the API.
type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
	CreatedOrder
}

func (r apiResponse) reason() string {
	msg := r.Error
	if msg == "" {
		msg = r.Message
	}
	if len(r.Details) > 0 && string(r.Details) != "null" {
		msg += ": " + strings.Trim(string(r.Details), `"`)
	}
	return msg
}

// CreateOrder creates an amount-locked gateway order. The receipt doubles as
// the idempotency key so a retried request cannot create a second order.
func (h *HTTPIntake) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreatedOrder, error) {
	headers := map[string]string{}
	if in.Receipt != "" {
		headers["Idempotency-Key"] = in.Receipt
	}
	status, resp, err := h.post(ctx, createOrderPath, createOrderBody(in), headers)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || !resp.Success {
		return nil, fmt.Errorf("create order: status %d: %s", status, resp.reason())
	}
	if resp.Order.ID == "" || resp.KeyID == "" {
		return nil, fmt.Errorf("create order: response missing order id or key id")
	}
	out := resp.CreatedOrder
	return &out, nil
}

// VerifyPayment asks the server to check the widget signature.
func (h *HTTPIntake) VerifyPayment(ctx context.Context, v Verification) error {
	status, resp, err := h.post(ctx, verifyPaymentPath, v, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK && resp.Success {
		return nil
	}
	if status == http.StatusBadRequest {
		return fmt.Errorf("%w: %s", ErrVerificationFailed, resp.reason())
	}
	return fmt.Errorf("verify payment: status %d: %s", status, resp.reason())
}

func (h *HTTPIntake) post(ctx context.Context, path string, body interface{}, headers map[string]string) (int, apiResponse, error) {
	var resp apiResponse
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, resp, fmt.Errorf("marshal %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, resp, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return 0, resp, fmt.Errorf("post %s: %w", path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return res.StatusCode, resp, fmt.Errorf("read %s response: %w", path, err)
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return res.StatusCode, resp, fmt.Errorf("decode %s response (status %d): %w", path, res.StatusCode, err)
	}
	return res.StatusCode, resp, nil
}
