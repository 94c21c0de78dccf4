package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterSwaggerDocs registers Swagger documentation routes
// @Summary Swagger documentation
// @Description Swagger API documentation
// @Tags Swagger
// @Success 200 {string} string "Swagger UI"
// @Router /swagger/ [get]
func RegisterSwaggerDocs(router *mux.Router, swaggerHandler http.Handler) {
	router.PathPrefix("/swagger/").Handler(swaggerHandler)
}

// InitiatePayment godoc
// @Summary Start a push payment
// @Description Sends a push payment prompt to the payer's phone and links the order to the new payment intent. The order is created when it does not exist.
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body object{orderId=string,phoneNumber=string,amount=number,buyerId=string,sellerId=string,items=array} true "Payment data"
// @Success 201 {object} object{success=bool,message=string,data=object{requestId=string,checkoutId=string,intentId=string,status=string}}
// @Failure 400 {object} object{success=bool,code=string,error=string}
// @Failure 402 {object} object{success=bool,code=string,error=string}
// @Failure 409 {object} object{success=bool,code=string,error=string}
// @Failure 429 {object} object{success=bool,error=string}
// @Failure 503 {object} object{success=bool,code=string,error=string}
// @Router /payment/initiate [post]
func (h *PaymentHandler) InitiatePaymentDoc() {}

// Callback godoc
// @Summary Provider result webhook
// @Description Receives the asynchronous payment result in either the nested or the flattened envelope.
// @Tags Payments
// @Accept json
// @Produce json
// @Param token query string false "Callback token, when configured"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 400 {object} object{success=bool,code=string,error=string}
// @Failure 401 {object} object{success=bool,code=string,error=string}
// @Failure 404 {object} object{success=bool,message=string}
// @Router /payment/callback [post]
func (h *PaymentHandler) CallbackDoc() {}

// GetStatus godoc
// @Summary Get payment status
// @Description Current state of a payment intent by request or checkout identifier
// @Tags Payments
// @Produce json
// @Param correlationId path string true "Request or checkout identifier"
// @Success 200 {object} object{success=bool,data=object{state=string,orderId=string,amount=int,receipt=string,failureReason=string,resultCode=int,updatedAt=string}}
// @Failure 404 {object} object{success=bool,code=string,error=string}
// @Router /payment/status/{correlationId} [get]
func (h *PaymentHandler) GetStatusDoc() {}

// ListOrderIntents godoc
// @Summary List payment attempts of an order
// @Tags Payments
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} object{success=bool,data=object{orderId=string,orderStatus=string,paymentStatus=string,intents=array}}
// @Failure 404 {object} object{success=bool,code=string,error=string}
// @Router /payment/orders/{orderId}/intents [get]
func (h *PaymentHandler) ListOrderIntentsDoc() {}

// SaveCredential godoc
// @Summary Save tenant payment credentials
// @Description Stores a new active credential set, deactivating the previous one (Tenant owner or admin)
// @Tags Credentials
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{tenantId=string,shortCode=string,consumerKey=string,consumerSecret=string,passKey=string} true "Credential data"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,code=string,error=string}
// @Failure 401 {object} object{success=bool,error=string}
// @Failure 403 {object} object{success=bool,code=string,error=string}
// @Router /payment/credentials [post]
func (h *PaymentHandler) SaveCredentialDoc() {}

// ListCredentials godoc
// @Summary List tenant credentials
// @Description Secrets are returned in plaintext to the owning tenant only
// @Tags Credentials
// @Security BearerAuth
// @Produce json
// @Param tenantId query string false "Tenant ID (admin)"
// @Success 200 {object} object{success=bool,data=object{credentials=array,total=int}}
// @Failure 403 {object} object{success=bool,code=string,error=string}
// @Router /payment/credentials [get]
func (h *PaymentHandler) ListCredentialsDoc() {}

// GetCredential godoc
// @Summary Get tenant credentials
// @Tags Credentials
// @Security BearerAuth
// @Produce json
// @Param id path string true "Credential ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 403 {object} object{success=bool,code=string,error=string}
// @Failure 503 {object} object{success=bool,code=string,error=string}
// @Router /payment/credentials/{id} [get]
func (h *PaymentHandler) GetCredentialDoc() {}

// UpdateCredential godoc
// @Summary Update tenant credentials
// @Description Replaces the non-empty fields of an active credential set
// @Tags Credentials
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Credential ID"
// @Param request body object{shortCode=string,consumerKey=string,consumerSecret=string,passKey=string} true "Credential data"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,code=string,error=string}
// @Failure 403 {object} object{success=bool,code=string,error=string}
// @Router /payment/credentials/{id} [put]
func (h *PaymentHandler) UpdateCredentialDoc() {}

// DeactivateCredential godoc
// @Summary Deactivate tenant credentials
// @Tags Credentials
// @Security BearerAuth
// @Produce json
// @Param id path string true "Credential ID"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 403 {object} object{success=bool,code=string,error=string}
// @Router /payment/credentials/{id} [delete]
func (h *PaymentHandler) DeactivateCredentialDoc() {}

// ListCallbackLogs godoc
// @Summary Callback audit trail
// @Description Every callback received for a correlation identifier (Admin only)
// @Tags Operations
// @Security BearerAuth
// @Produce json
// @Param correlationId path string true "Request or checkout identifier"
// @Success 200 {object} object{success=bool,data=object{callbacks=array,total=int}}
// @Failure 403 {object} object{success=bool,error=string}
// @Router /payment/callbacks/{correlationId} [get]
func (h *PaymentHandler) ListCallbackLogsDoc() {}
