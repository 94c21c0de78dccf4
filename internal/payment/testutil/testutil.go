// Package testutil provides shared fixtures for payment package tests.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tair/marketplace-payments/internal/payment/client"
	"github.com/tair/marketplace-payments/internal/payment/domain"
	"github.com/tair/marketplace-payments/internal/payment/repository"
	"github.com/tair/marketplace-payments/internal/payment/vault"
)

// VaultSecret is the vault secret used by fixtures.
const VaultSecret = "test-vault-secret-0123456789"

// NewTestDB returns a migrated in-memory SQLite database private to t.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the shared in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.AutoMigrate(db))
	return db
}

// NewVault builds a vault over db with the fixture secret.
func NewVault(t *testing.T, db *gorm.DB) *vault.Vault {
	t.Helper()
	c, err := vault.NewCipher(VaultSecret)
	require.NoError(t, err)
	return vault.New(repository.NewGormCredentialRepository(db), c)
}

// SeedCredentials stores an active credential set for tenantID.
func SeedCredentials(t *testing.T, db *gorm.DB, tenantID string) *domain.TenantCredential {
	t.Helper()
	v := NewVault(t, db)
	cred := &domain.TenantCredential{ID: uuid.NewString(), CreatedBy: "test"}
	require.NoError(t, v.Seal(domain.CredentialSet{
		TenantID:       tenantID,
		ShortCode:      "174379",
		ConsumerKey:    "consumer-key-" + tenantID,
		ConsumerSecret: "consumer-secret",
		PassKey:        "pass-key",
	}, cred))
	require.NoError(t, repository.NewGormCredentialRepository(db).ReplaceActive(context.Background(), cred))
	return cred
}

// FakeProvider is an httptest stand-in for the provider API.
type FakeProvider struct {
	Server *httptest.Server

	TokenStatus  int
	SubmitStatus int
	SubmitBody   string
	QueryStatus  int
	QueryBody    string

	TokenCalls  atomic.Int32
	SubmitCalls atomic.Int32
	QueryCalls  atomic.Int32

	mu  sync.Mutex
	seq int
}

// NewFakeProvider starts a provider that accepts every request and issues
// sequential correlation identifiers.
func NewFakeProvider(t *testing.T) *FakeProvider {
	t.Helper()
	p := &FakeProvider{
		TokenStatus:  http.StatusOK,
		SubmitStatus: http.StatusOK,
		QueryStatus:  http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		p.TokenCalls.Add(1)
		w.WriteHeader(p.TokenStatus)
		if p.TokenStatus == http.StatusOK {
			_, _ = w.Write([]byte(`{"access_token":"fake-token","expires_in":"3599"}`))
		}
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		p.SubmitCalls.Add(1)
		w.WriteHeader(p.SubmitStatus)
		if p.SubmitBody != "" {
			_, _ = w.Write([]byte(p.SubmitBody))
			return
		}
		if p.SubmitStatus == http.StatusOK {
			merchant, checkout := p.next()
			_, _ = fmt.Fprintf(w, `{"MerchantRequestID":%q,"CheckoutRequestID":%q,"ResponseCode":"0","ResponseDescription":"Success. Request accepted for processing","CustomerMessage":"Success. Request accepted for processing"}`, merchant, checkout)
		}
	})
	mux.HandleFunc("/mpesa/stkpushquery/v1/query", func(w http.ResponseWriter, r *http.Request) {
		p.QueryCalls.Add(1)
		w.WriteHeader(p.QueryStatus)
		_, _ = w.Write([]byte(p.QueryBody))
	})

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)
	return p
}

// IDs returns the identifiers issued by the n-th accepted submission (1-based).
func (p *FakeProvider) IDs(n int) (merchant, checkout string) {
	return fmt.Sprintf("29115-3462056-%d", n), fmt.Sprintf("ws_CO_19122019102036392%d", n)
}

func (p *FakeProvider) next() (string, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	return p.IDs(p.seq)
}

// Client returns a provider client pointed at p.
func (p *FakeProvider) Client(opts ...client.Option) *client.MpesaClient {
	opts = append([]client.Option{client.WithHTTPClient(p.Server.Client())}, opts...)
	return client.NewMpesaClient(client.Config{
		BaseURL:       p.Server.URL,
		TokenTimeout:  2 * time.Second,
		SubmitTimeout: 2 * time.Second,
		CallbackURL:   "https://shop.example/payment/callback",
	}, opts...)
}

// NestedCallback builds a callback in the {"Body":{"stkCallback":...}} shape.
// Successful results carry the five-item metadata list.
func NestedCallback(merchant, checkout string, code int, desc string) []byte {
	metadata := ""
	if code == 0 {
		metadata = `,"CallbackMetadata":{"Item":[
			{"Name":"Amount","Value":500.00},
			{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"},
			{"Name":"Balance"},
			{"Name":"TransactionDate","Value":20191219102115},
			{"Name":"PhoneNumber","Value":254712345678}]}`
	}
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":%q,"CheckoutRequestID":%q,"ResultCode":%d,"ResultDesc":%q%s}}}`,
		merchant, checkout, code, desc, metadata))
}

// FlatCallback builds the flattened callback shape with the same logical
// content as NestedCallback.
func FlatCallback(merchant, checkout string, code int, desc string) []byte {
	metadata := ""
	if code == 0 {
		metadata = `,"metadataItems":[
			{"Name":"Amount","Value":500.00},
			{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"},
			{"Name":"Balance"},
			{"Name":"TransactionDate","Value":20191219102115},
			{"Name":"PhoneNumber","Value":254712345678}]`
	}
	return []byte(fmt.Sprintf(`{"merchantRequestId":%q,"checkoutRequestId":%q,"resultCode":%d,"resultDesc":%q%s}`,
		merchant, checkout, code, desc, metadata))
}
