package payment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/IBM/sarama/mocks"
	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/marketplace-payments/internal/config"
	"github.com/tair/marketplace-payments/internal/payment/domain"
	"github.com/tair/marketplace-payments/internal/payment/testutil"
	"github.com/tair/marketplace-payments/kafka"
)

func TestInitializeService_EndToEnd(t *testing.T) {
	db := testutil.NewTestDB(t)
	provider := testutil.NewFakeProvider(t)
	testutil.SeedCredentials(t, db, domain.PlatformTenantID)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.Default()
	cfg.Vault.Secret = testutil.VaultSecret
	cfg.Provider.BaseURL = provider.Server.URL
	cfg.Provider.CallbackURL = "https://shop.example/payment/callback"

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndSucceed()
	t.Cleanup(func() { _ = producer.Close() })
	publisher := kafka.NewPublisherWithProducer(producer, cfg.Kafka.Topic)

	svc, err := InitializeService(cfg, db, rdb, publisher, prometheus.NewRegistry())
	require.NoError(t, err)
	require.NotNil(t, svc.Sweeper)
	assert.False(t, svc.Sweeper.Enabled())

	router := mux.NewRouter()
	svc.Handler.RegisterRoutes(router)

	post := func(path string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	for _, order := range []string{"O1", "O2"} {
		rec := post("/payment/initiate", []byte(`{"orderId":"`+order+`","phoneNumber":"0712345678","amount":500}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	assert.Equal(t, int32(1), provider.TokenCalls.Load(), "second initiation reuses the cached token")

	merchant, checkout := provider.IDs(1)
	rec := post("/payment/callback", testutil.NestedCallback(merchant, checkout, 0, "The service request is processed successfully."))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Callback processed successfully", resp.Message)
}

func TestInitializeService_RejectsBadVaultSecret(t *testing.T) {
	cfg := config.Default()
	cfg.Vault.Secret = ""

	_, err := InitializeService(cfg, testutil.NewTestDB(t), nil, nil, prometheus.NewRegistry())
	assert.Error(t, err)
}

func TestCallbackURL(t *testing.T) {
	assert.Equal(t, "https://shop.example/payment/callback", CallbackURL("https://shop.example/payment/callback", ""))
	assert.Equal(t, "https://shop.example/payment/callback?token=s3cret", CallbackURL("https://shop.example/payment/callback", "s3cret"))
	assert.Equal(t, "https://shop.example/cb?env=prod&token=a%2Bb", CallbackURL("https://shop.example/cb?env=prod", "a+b"))
}
