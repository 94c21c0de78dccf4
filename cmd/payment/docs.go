package main

// @title Marketplace Payment Service API
// @version 1.0
// @description Mobile-money push payments for marketplace orders with full observability (logging, tracing, metrics)
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@example.com

// @host localhost:8083
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name Payments
// @tag.description Payment initiation, provider callbacks and status

// @tag.name Credentials
// @tag.description Tenant credential management

// @tag.name Operations
// @tag.description Admin-only diagnostics
