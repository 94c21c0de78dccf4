package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tair/marketplace-payments/internal/payment/domain"
	"github.com/tair/marketplace-payments/internal/payment/metrics"
	"github.com/tair/marketplace-payments/pkg/logger"
)

const (
	tokenPath = "/oauth/v1/generate?grant_type=client_credentials"
	pushPath  = "/mpesa/stkpush/v1/processrequest"
	queryPath = "/mpesa/stkpushquery/v1/query"

	// queryStillProcessing is returned while the payer has not answered yet.
	queryStillProcessing = "500.001.1001"

	maxResponseBytes = 1 << 20
)

// Config holds the provider endpoint settings shared by every tenant.
type Config struct {
	BaseURL                string
	TokenTimeout           time.Duration
	SubmitTimeout          time.Duration
	CallbackURL            string
	TransactionType        string
	AccountReferencePrefix string
}

// Token is a short-lived provider bearer token.
type Token struct {
	Value     string
	ExpiresIn time.Duration
}

// PushRequest is one push-payment submission before normalization.
type PushRequest struct {
	Amount           decimal.Decimal
	PhoneNumber      string
	AccountReference string
	Description      string
}

// PushAck is the provider acknowledgement with the normalized values sent.
type PushAck struct {
	MerchantRequestID   string
	CheckoutRequestID   string
	ResponseDescription string
	CustomerMessage     string
	Amount              int64
	PhoneNumber         string
}

// PushStatus is the provider's view of a submitted push payment.
type PushStatus struct {
	Pending    bool
	ResultCode int
	ResultDesc string
}

// MpesaClient talks to the provider on behalf of any tenant. Credentials are
// passed per call; the client keeps no tenant state besides breakers.
type MpesaClient struct {
	cfg        Config
	httpClient *http.Client
	breakers   *CircuitBreakerManager
	cache      TokenCache
	metrics    *metrics.Metrics
	now        func() time.Time
}

type Option func(*MpesaClient)

func WithHTTPClient(c *http.Client) Option {
	return func(m *MpesaClient) { m.httpClient = c }
}

func WithTokenCache(c TokenCache) Option {
	return func(m *MpesaClient) { m.cache = c }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *MpesaClient) { m.metrics = mt }
}

func WithBreakers(b *CircuitBreakerManager) Option {
	return func(m *MpesaClient) { m.breakers = b }
}

func WithClock(now func() time.Time) Option {
	return func(m *MpesaClient) { m.now = now }
}

// NewMpesaClient creates a provider client
func NewMpesaClient(cfg Config, opts ...Option) *MpesaClient {
	if cfg.TokenTimeout <= 0 {
		cfg.TokenTimeout = 15 * time.Second
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 15 * time.Second
	}
	if cfg.TransactionType == "" {
		cfg.TransactionType = "CustomerPayBillOnline"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &MpesaClient{
		cfg:        cfg,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		breakers:   NewCircuitBreakerManager(5, 30*time.Second),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CallbackURL is where the provider delivers results.
func (c *MpesaClient) CallbackURL() string {
	return c.cfg.CallbackURL
}

type providerError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// GetAccessToken exchanges consumer key and secret for a bearer token.
func (c *MpesaClient) GetAccessToken(ctx context.Context, creds domain.CredentialSet) (Token, error) {
	cacheKey := TokenCacheKey(creds)
	if c.cache != nil {
		token, ok, err := c.cache.Get(ctx, cacheKey)
		if err != nil {
			logger.Warn(ctx).Err(err).Str("tenant_id", creds.TenantID).Msg("Token cache read failed")
		} else if ok {
			return Token{Value: token}, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.TokenTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return Token{}, fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(creds.ConsumerKey, creds.ConsumerSecret)

	var body struct {
		AccessToken string     `json:"access_token"`
		ExpiresIn   flexString `json:"expires_in"`
	}
	if err := c.do(req, creds.TenantID, "token", &body); err != nil {
		return Token{}, err
	}
	if body.AccessToken == "" {
		return Token{}, domain.Unavailable("token", errors.New("response without access_token"))
	}

	token := Token{Value: body.AccessToken}
	if secs, err := strconv.Atoi(string(body.ExpiresIn)); err == nil {
		token.ExpiresIn = time.Duration(secs) * time.Second
	}

	if c.cache != nil && token.ExpiresIn > tokenSafetyMargin {
		if err := c.cache.Set(ctx, cacheKey, token.Value, token.ExpiresIn-tokenSafetyMargin); err != nil {
			logger.Warn(ctx).Err(err).Str("tenant_id", creds.TenantID).Msg("Token cache write failed")
		}
	}
	return token, nil
}

// SubmitPushPayment validates and sends a push-payment request.
func (c *MpesaClient) SubmitPushPayment(ctx context.Context, creds domain.CredentialSet, token Token, pr PushRequest) (*PushAck, error) {
	phone, err := NormalizePhoneNumber(pr.PhoneNumber)
	if err != nil {
		return nil, err
	}
	amount, err := NormalizeAmount(pr.Amount)
	if err != nil {
		return nil, err
	}

	reference := pr.AccountReference
	if c.cfg.AccountReferencePrefix != "" {
		reference = c.cfg.AccountReferencePrefix + " " + reference
	}

	timestamp := Timestamp(c.now())
	payload := map[string]interface{}{
		"BusinessShortCode": creds.ShortCode,
		"Password":          Password(creds.ShortCode, creds.PassKey, timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   c.cfg.TransactionType,
		"Amount":            amount,
		"PartyA":            phone,
		"PartyB":            creds.ShortCode,
		"PhoneNumber":       phone,
		"CallBackURL":       c.cfg.CallbackURL,
		"AccountReference":  truncate(reference, 12),
		"TransactionDesc":   truncate(pr.Description, 13),
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SubmitTimeout)
	defer cancel()

	req, err := c.jsonRequest(ctx, pushPath, token, payload)
	if err != nil {
		return nil, err
	}

	var body struct {
		MerchantRequestID   string `json:"MerchantRequestID"`
		CheckoutRequestID   string `json:"CheckoutRequestID"`
		ResponseCode        string `json:"ResponseCode"`
		ResponseDescription string `json:"ResponseDescription"`
		CustomerMessage     string `json:"CustomerMessage"`
	}
	if err := c.do(req, creds.TenantID, "submit", &body); err != nil {
		return nil, err
	}

	if body.ResponseCode != "0" {
		return nil, &domain.ProviderRejectedError{Code: body.ResponseCode, Reason: body.ResponseDescription}
	}
	if body.MerchantRequestID == "" || body.CheckoutRequestID == "" {
		return nil, domain.Unavailable("submit", errors.New("acknowledgement without correlation identifiers"))
	}

	logger.Info(ctx).
		Str("tenant_id", creds.TenantID).
		Str("merchant_request_id", body.MerchantRequestID).
		Str("checkout_request_id", body.CheckoutRequestID).
		Str("phone", logger.MaskPhone(phone)).
		Int64("amount", amount).
		Msg("Push payment accepted by provider")

	return &PushAck{
		MerchantRequestID:   body.MerchantRequestID,
		CheckoutRequestID:   body.CheckoutRequestID,
		ResponseDescription: body.ResponseDescription,
		CustomerMessage:     body.CustomerMessage,
		Amount:              amount,
		PhoneNumber:         phone,
	}, nil
}

// QueryPushPayment asks the provider for the outcome of a submitted push.
func (c *MpesaClient) QueryPushPayment(ctx context.Context, creds domain.CredentialSet, token Token, checkoutRequestID string) (*PushStatus, error) {
	timestamp := Timestamp(c.now())
	payload := map[string]interface{}{
		"BusinessShortCode": creds.ShortCode,
		"Password":          Password(creds.ShortCode, creds.PassKey, timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SubmitTimeout)
	defer cancel()

	req, err := c.jsonRequest(ctx, queryPath, token, payload)
	if err != nil {
		return nil, err
	}

	var body struct {
		ResponseCode string     `json:"ResponseCode"`
		ResultCode   flexString `json:"ResultCode"`
		ResultDesc   string     `json:"ResultDesc"`
	}
	err = c.do(req, creds.TenantID, "query", &body)

	var rejected *domain.ProviderRejectedError
	if errors.As(err, &rejected) && rejected.Code == queryStillProcessing {
		return &PushStatus{Pending: true, ResultDesc: rejected.Reason}, nil
	}
	if err != nil {
		return nil, err
	}

	code, convErr := strconv.Atoi(string(body.ResultCode))
	if body.ResultCode == "" || convErr != nil {
		return &PushStatus{Pending: true, ResultDesc: body.ResultDesc}, nil
	}
	return &PushStatus{ResultCode: code, ResultDesc: body.ResultDesc}, nil
}

func (c *MpesaClient) jsonRequest(ctx context.Context, path string, token Token, payload interface{}) (*http.Request, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.Value)
	return req, nil
}

// do sends req through the tenant's breaker and decodes a 2xx body into out.
// Transport failures and 5xx answers become ErrProviderUnavailable; other
// non-2xx answers become ProviderRejectedError.
func (c *MpesaClient) do(req *http.Request, tenantID, operation string, out interface{}) error {
	breaker := c.breakers.GetOrCreate(tenantID)
	if err := breaker.Allow(); err != nil {
		c.metrics.ProviderCall(operation, "circuit_open", 0)
		return domain.Unavailable(operation, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		breaker.Record(true)
		c.metrics.ProviderCall(operation, "unavailable", time.Since(start))
		logger.Warn(req.Context()).Err(err).Str("tenant_id", tenantID).Str("operation", operation).Msg("Provider call failed")
		return domain.Unavailable(operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		breaker.Record(true)
		c.metrics.ProviderCall(operation, "unavailable", time.Since(start))
		return domain.Unavailable(operation, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		breaker.Record(false)
		if err := json.Unmarshal(raw, out); err != nil {
			c.metrics.ProviderCall(operation, "unavailable", time.Since(start))
			return domain.Unavailable(operation, fmt.Errorf("decode response: %w", err))
		}
		c.metrics.ProviderCall(operation, "ok", time.Since(start))
		return nil
	}

	var pe providerError
	_ = json.Unmarshal(raw, &pe)

	if pe.ErrorCode == queryStillProcessing {
		breaker.Record(false)
		c.metrics.ProviderCall(operation, "ok", time.Since(start))
		return &domain.ProviderRejectedError{Code: pe.ErrorCode, Reason: pe.ErrorMessage}
	}

	if resp.StatusCode >= 500 {
		breaker.Record(true)
		c.metrics.ProviderCall(operation, "unavailable", time.Since(start))
		logger.Warn(req.Context()).
			Int("status", resp.StatusCode).
			Str("error_code", pe.ErrorCode).
			Str("tenant_id", tenantID).
			Str("operation", operation).
			Msg("Provider returned server error")
		return domain.Unavailable(operation, fmt.Errorf("status %d %s", resp.StatusCode, pe.ErrorMessage))
	}

	breaker.Record(false)
	c.metrics.ProviderCall(operation, "rejected", time.Since(start))

	reason := pe.ErrorMessage
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return &domain.ProviderRejectedError{Code: pe.ErrorCode, Reason: reason}
}

// truncate keeps at most n characters of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// flexString decodes a JSON string or number into its textual form.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
