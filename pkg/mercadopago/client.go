package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mercadito-app/mercadito-backend/pkg/config"
	pkgerrors "github.com/mercadito-app/mercadito-backend/pkg/errors"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
)

// tokenExpirySkew renews the cached OAuth token before the provider expiry so
// in-flight requests never carry a token about to lapse.
const tokenExpirySkew = 60 * time.Second

var (
	errCredentialsRequired = errors.New("mercado pago client credentials are required")
	errLoggerRequired      = errors.New("mercado pago logger is required")
)

// Client talks to the Mercado Pago REST API with centralized auth, logging,
// and error mapping. Tokens are minted via the OAuth client-credentials flow
// and cached until shortly before expiry.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	logger       *logger.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// PixPayment is the slice of the provider payment we surface to callers.
type PixPayment struct {
	ID           int64
	Status       string
	QRCode       string
	QRCodeBase64 string
	TicketURL    string
}

// CreatePixParams carries everything needed to open a PIX charge.
type CreatePixParams struct {
	Amount         float64
	Description    string
	PayerEmail     string
	IdempotencyKey string
}

// NewClient initializes the wrapper and validates the credentials.
func NewClient(cfg config.MercadoPagoConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	clientID := strings.TrimSpace(cfg.ClientID)
	clientSecret := strings.TrimSpace(cfg.ClientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, errCredentialsRequired
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.mercadopago.com"
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logg,
	}, nil
}

// CreatePixPayment opens a PIX charge and returns the QR payload the shopper
// scans. The idempotency key dedupes retried submissions at the provider.
func (c *Client) CreatePixPayment(ctx context.Context, params CreatePixParams) (*PixPayment, error) {
	if params.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if strings.TrimSpace(params.IdempotencyKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}

	body := map[string]any{
		"transaction_amount": params.Amount,
		"description":        params.Description,
		"payment_method_id":  "pix",
		"payer": map[string]any{
			"email": params.PayerEmail,
		},
	}

	c.log(ctx, "request", "create_pix_payment", map[string]any{
		"amount":      params.Amount,
		"description": params.Description,
	})

	headers := map[string]string{"X-Idempotency-Key": params.IdempotencyKey}
	var resp paymentResponse
	if err := c.doAuthenticated(ctx, http.MethodPost, "/v1/payments", body, headers, &resp); err != nil {
		c.log(ctx, "error", "create_pix_payment", map[string]any{"error": err.Error()})
		return nil, err
	}

	payment := resp.toPixPayment()
	c.log(ctx, "response", "create_pix_payment", map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
	return payment, nil
}

// GetPaymentStatus returns the provider status string for a payment.
func (c *Client) GetPaymentStatus(ctx context.Context, paymentID int64) (string, error) {
	c.log(ctx, "request", "get_payment_status", map[string]any{"payment_id": paymentID})

	var resp paymentResponse
	path := fmt.Sprintf("/v1/payments/%d", paymentID)
	if err := c.doAuthenticated(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		c.log(ctx, "error", "get_payment_status", map[string]any{"error": err.Error()})
		return "", err
	}

	c.log(ctx, "response", "get_payment_status", map[string]any{
		"payment_id": paymentID,
		"status":     resp.Status,
	})
	return resp.Status, nil
}

type paymentResponse struct {
	ID                 int64  `json:"id"`
	Status             string `json:"status"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

func (p paymentResponse) toPixPayment() *PixPayment {
	return &PixPayment{
		ID:           p.ID,
		Status:       p.Status,
		QRCode:       p.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64: p.PointOfInteraction.TransactionData.QRCodeBase64,
		TicketURL:    p.PointOfInteraction.TransactionData.TicketURL,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type providerError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

// accessTokenFor returns a cached token, minting a new one when the cache is
// empty or inside the expiry skew window.
func (c *Client) accessTokenFor(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	payload := map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding oauth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("building oauth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeGateway, err, "payment provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.mapProviderError(resp, "oauth token request failed")
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decoding oauth response")
	}
	if token.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeGateway, "oauth response missing access token")
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenExpirySkew)
	return c.accessToken, nil
}

func (c *Client) doAuthenticated(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	token, err := c.accessTokenFor(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "payment provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.mapProviderError(resp, fmt.Sprintf("%s %s failed", method, path))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decoding provider response")
	}
	return nil
}

// mapProviderError surfaces the provider's own message so callers see the
// same text the provider returned.
func (c *Client) mapProviderError(resp *http.Response, fallback string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var pe providerError
	message := fallback
	if err := json.Unmarshal(raw, &pe); err == nil && pe.Message != "" {
		message = pe.Message
	}

	return pkgerrors.New(pkgerrors.CodeGateway, message).WithDetails(map[string]any{
		"status_code": resp.StatusCode,
	})
}

func (c *Client) log(ctx context.Context, phase, operation string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	meta := map[string]any{"provider": "mercadopago", "phase": phase, "operation": operation}
	for k, v := range fields {
		meta[k] = v
	}
	c.logger.Info(c.logger.WithFields(ctx, meta), "mercadopago "+operation)
}
