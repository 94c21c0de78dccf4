package handler

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/tair/marketplace-payments/internal/payment/domain"
	"github.com/tair/marketplace-payments/internal/payment/usecase/command"
	"github.com/tair/marketplace-payments/internal/payment/usecase/query"
	"github.com/tair/marketplace-payments/pkg/logger"
)

const maxCallbackBytes = 1 << 20

// CallbackToken is the shared secret expected in the callback URL. Empty
// accepts every callback.
type CallbackToken string

// PaymentHandler handles HTTP requests for payments using CQRS pattern
type PaymentHandler struct {
	// Command handlers
	initiateHandler   *command.InitiatePaymentHandler
	reconcileHandler  *command.ReconcileCallbackHandler
	credentialHandler *command.CredentialHandler

	// Query handlers
	statusHandler       *query.GetStatusHandler
	orderIntentsHandler *query.ListOrderIntentsHandler
	credentialQueries   *query.CredentialQueryHandler
	callbackLogsHandler *query.ListCallbackLogsHandler

	middleware    MiddlewareConfig
	limiter       *RateLimiter
	callbackToken CallbackToken
}

// NewPaymentHandler creates a new payment handler using dependency injection
func NewPaymentHandler(
	initiateHandler *command.InitiatePaymentHandler,
	reconcileHandler *command.ReconcileCallbackHandler,
	credentialHandler *command.CredentialHandler,
	statusHandler *query.GetStatusHandler,
	orderIntentsHandler *query.ListOrderIntentsHandler,
	credentialQueries *query.CredentialQueryHandler,
	callbackLogsHandler *query.ListCallbackLogsHandler,
	middleware MiddlewareConfig,
	limiter *RateLimiter,
	callbackToken CallbackToken,
) *PaymentHandler {
	return &PaymentHandler{
		initiateHandler:     initiateHandler,
		reconcileHandler:    reconcileHandler,
		credentialHandler:   credentialHandler,
		statusHandler:       statusHandler,
		orderIntentsHandler: orderIntentsHandler,
		credentialQueries:   credentialQueries,
		callbackLogsHandler: callbackLogsHandler,
		middleware:          middleware,
		limiter:             limiter,
		callbackToken:       callbackToken,
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type orderItemRequest struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type initiateRequest struct {
	OrderID     string             `json:"orderId"`
	PhoneNumber string             `json:"phoneNumber"`
	Amount      decimal.Decimal    `json:"amount"`
	BuyerID     string             `json:"buyerId"`
	SellerID    string             `json:"sellerId"`
	Items       []orderItemRequest `json:"items"`
}

// InitiatePayment handles POST /payment/initiate
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, failure("InvalidInput", "Invalid request body"))
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	intent, err := h.initiateHandler.Handle(r.Context(), command.InitiatePaymentCommand{
		OrderID:     req.OrderID,
		PhoneNumber: req.PhoneNumber,
		Amount:      req.Amount,
		BuyerID:     req.BuyerID,
		SellerID:    req.SellerID,
		Items:       items,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Payment request sent. Enter your M-Pesa PIN to complete the payment",
		Data: map[string]interface{}{
			"requestId":  intent.MerchantRequestID,
			"checkoutId": intent.CheckoutRequestID,
			"intentId":   intent.ID,
			"orderId":    intent.OrderID,
			"amount":     intent.Amount,
			"status":     intent.Status,
		},
	})
}

// Callback handles POST /payment/callback
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, failure("", "Unable to read callback body"))
		return
	}
	cmd := command.ReconcileCallbackCommand{Payload: payload, RemoteAddr: h.middleware.Proxies.ClientIP(r)}

	if h.callbackToken != "" {
		given := r.URL.Query().Get("token")
		if subtle.ConstantTimeCompare([]byte(given), []byte(h.callbackToken)) != 1 {
			respondError(w, r, h.reconcileHandler.Unauthorized(r.Context(), cmd))
			return
		}
	}

	res, err := h.reconcileHandler.Handle(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			respondJSON(w, http.StatusNotFound, Response{Success: false, Message: "Order not found"})
			return
		}
		respondError(w, r, err)
		return
	}

	message := "Callback processed successfully"
	if res.Outcome == domain.CallbackDuplicate {
		message = "Callback already processed"
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Message: message})
}

// GetStatus handles GET /payment/status/{correlationId}
func (h *PaymentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.statusHandler.Handle(r.Context(), query.GetStatusQuery{
		CorrelationID: mux.Vars(r)["correlationId"],
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, Response{Success: true, Data: view})
}

// ListOrderIntents handles GET /payment/orders/{orderId}/intents
func (h *PaymentHandler) ListOrderIntents(w http.ResponseWriter, r *http.Request) {
	view, err := h.orderIntentsHandler.Handle(r.Context(), query.ListOrderIntentsQuery{
		OrderID: mux.Vars(r)["orderId"],
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: view})
}

type credentialRequest struct {
	TenantID       string `json:"tenantId"`
	ShortCode      string `json:"shortCode"`
	ConsumerKey    string `json:"consumerKey"`
	ConsumerSecret string `json:"consumerSecret"`
	PassKey        string `json:"passKey"`
}

// SaveCredential handles POST /payment/credentials
func (h *PaymentHandler) SaveCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, failure("InvalidInput", "Invalid request body"))
		return
	}

	cred, err := h.credentialHandler.Save(r.Context(), command.SaveCredentialCommand{
		Claims:         ClaimsFromContext(r.Context()),
		TenantID:       req.TenantID,
		ShortCode:      req.ShortCode,
		ConsumerKey:    req.ConsumerKey,
		ConsumerSecret: req.ConsumerSecret,
		PassKey:        req.PassKey,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Payment credentials saved",
		Data:    cred,
	})
}

// ListCredentials handles GET /payment/credentials
func (h *PaymentHandler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	views, err := h.credentialQueries.List(r.Context(), query.ListCredentialsQuery{
		Claims:   ClaimsFromContext(r.Context()),
		TenantID: r.URL.Query().Get("tenantId"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]interface{}{"credentials": views, "total": len(views)},
	})
}

// GetCredential handles GET /payment/credentials/{id}
func (h *PaymentHandler) GetCredential(w http.ResponseWriter, r *http.Request) {
	view, err := h.credentialQueries.Get(r.Context(), query.GetCredentialQuery{
		Claims: ClaimsFromContext(r.Context()),
		ID:     mux.Vars(r)["id"],
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, Response{Success: true, Data: view})
}

// UpdateCredential handles PUT /payment/credentials/{id}
func (h *PaymentHandler) UpdateCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, failure("InvalidInput", "Invalid request body"))
		return
	}

	cred, err := h.credentialHandler.Update(r.Context(), command.UpdateCredentialCommand{
		Claims:         ClaimsFromContext(r.Context()),
		ID:             mux.Vars(r)["id"],
		ShortCode:      req.ShortCode,
		ConsumerKey:    req.ConsumerKey,
		ConsumerSecret: req.ConsumerSecret,
		PassKey:        req.PassKey,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Payment credentials updated",
		Data:    cred,
	})
}

// DeactivateCredential handles DELETE /payment/credentials/{id}
func (h *PaymentHandler) DeactivateCredential(w http.ResponseWriter, r *http.Request) {
	err := h.credentialHandler.Deactivate(r.Context(), command.DeactivateCredentialCommand{
		Claims: ClaimsFromContext(r.Context()),
		ID:     mux.Vars(r)["id"],
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Message: "Payment credentials deactivated"})
}

// ListCallbackLogs handles GET /payment/callbacks/{correlationId}
func (h *PaymentHandler) ListCallbackLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.callbackLogsHandler.Handle(r.Context(), query.ListCallbackLogsQuery{
		Claims:        ClaimsFromContext(r.Context()),
		CorrelationID: mux.Vars(r)["correlationId"],
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]interface{}{"callbacks": logs, "total": len(logs)},
	})
}

// GetMiddlewareConfig returns middleware configuration
func (h *PaymentHandler) GetMiddlewareConfig() MiddlewareConfig {
	return h.middleware
}

// RegisterRoutes registers all payment routes
func (h *PaymentHandler) RegisterRoutes(router *mux.Router) {
	middlewareConfig := h.GetMiddlewareConfig()
	authenticated := middlewareConfig.GetAuthMiddleware()
	admin := middlewareConfig.GetAdminMiddleware()

	// Checkout path, called by the storefront and the provider
	router.HandleFunc("/payment/initiate", h.limiter.Middleware(h.InitiatePayment)).Methods("POST")
	router.HandleFunc("/payment/callback", h.Callback).Methods("POST")
	router.HandleFunc("/payment/status/{correlationId}", h.GetStatus).Methods("GET")
	router.HandleFunc("/payment/orders/{orderId}/intents", h.ListOrderIntents).Methods("GET")

	// Tenant credential management
	router.HandleFunc("/payment/credentials", authenticated(h.SaveCredential)).Methods("POST")
	router.HandleFunc("/payment/credentials", authenticated(h.ListCredentials)).Methods("GET")
	router.HandleFunc("/payment/credentials/{id}", authenticated(h.GetCredential)).Methods("GET")
	router.HandleFunc("/payment/credentials/{id}", authenticated(h.UpdateCredential)).Methods("PUT")
	router.HandleFunc("/payment/credentials/{id}", authenticated(h.DeactivateCredential)).Methods("DELETE")

	// Operators
	router.HandleFunc("/payment/callbacks/{correlationId}", admin(h.ListCallbackLogs)).Methods("GET")
}

// RegisterHealthCheck registers health check endpoint
func (h *PaymentHandler) RegisterHealthCheck(router *mux.Router, db *sql.DB) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, Response{
				Success: false,
				Error:   "Database unavailable",
			})
			return
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Payment service is healthy",
		})
	}).Methods("GET")
}

// respondError maps a classified error onto an HTTP status and a message
// safe to show the customer.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status, code := statusForKind(kind, err)

	if status >= http.StatusInternalServerError {
		logger.Error(r.Context()).Err(err).Str("kind", string(kind)).Str("path", r.URL.Path).Msg("Request failed")
	}

	respondJSON(w, status, failure(code, domain.UserMessage(err)))
}

// failure builds an error body; message and error carry the same text.
func failure(code, msg string) Response {
	return Response{Success: false, Message: msg, Code: code, Error: msg}
}

func statusForKind(kind domain.Kind, err error) (int, string) {
	switch kind {
	case domain.KindInvalidInput:
		if errors.Is(err, domain.ErrInvalidPhoneNumber) {
			return http.StatusBadRequest, "InvalidPhoneNumber"
		}
		return http.StatusBadRequest, "InvalidInput"
	case domain.KindConfiguration:
		return http.StatusServiceUnavailable, "PaymentConfigurationError"
	case domain.KindProviderUnavailable:
		return http.StatusServiceUnavailable, "ProviderUnavailable"
	case domain.KindProviderRejected:
		return http.StatusPaymentRequired, "ProviderRejected"
	case domain.KindMalformedCallback:
		return http.StatusBadRequest, "MalformedCallback"
	case domain.KindNotFound:
		return http.StatusNotFound, "NotFound"
	case domain.KindConflict:
		return http.StatusConflict, "Conflict"
	case domain.KindUnauthorized:
		if errors.Is(err, domain.ErrForbidden) {
			return http.StatusForbidden, "Forbidden"
		}
		return http.StatusUnauthorized, "Unauthorized"
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
