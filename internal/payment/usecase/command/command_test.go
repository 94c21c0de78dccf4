package command_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tair/marketplace-payments/internal/payment/domain"
	"github.com/tair/marketplace-payments/internal/payment/repository"
	"github.com/tair/marketplace-payments/internal/payment/testutil"
	"github.com/tair/marketplace-payments/internal/payment/usecase/command"
	"github.com/tair/marketplace-payments/kafka"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.PaymentResolvedEvent
}

func (p *recordingPublisher) PublishPaymentResolved(ctx context.Context, event kafka.PaymentResolvedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Events() []kafka.PaymentResolvedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafka.PaymentResolvedEvent(nil), p.events...)
}

type fixture struct {
	db        *gorm.DB
	provider  *testutil.FakeProvider
	intents   domain.IntentRepository
	orders    domain.OrderRepository
	logs      domain.CallbackLogRepository
	publisher *recordingPublisher
	initiate  *command.InitiatePaymentHandler
	reconcile *command.ReconcileCallbackHandler
	sweep     *command.SweepPendingHandler
}

func newFixture(t *testing.T, policy command.TenantPolicy) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	provider := testutil.NewFakeProvider(t)
	v := testutil.NewVault(t, db)
	gateway := provider.Client()

	f := &fixture{
		db:        db,
		provider:  provider,
		intents:   repository.NewGormIntentRepository(db),
		orders:    repository.NewGormOrderRepository(db),
		logs:      repository.NewGormCallbackLogRepository(db),
		publisher: &recordingPublisher{},
	}
	f.initiate = command.NewInitiatePaymentHandler(f.orders, f.intents, v, gateway, policy, nil)
	f.reconcile = command.NewReconcileCallbackHandler(f.intents, f.orders, f.logs, f.publisher, nil)
	f.sweep = command.NewSweepPendingHandler(f.intents, v, gateway, f.reconcile, nil)
	return f
}

func (f *fixture) countIntents(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.PaymentIntent{}).Count(&n).Error)
	return n
}

func initiateO1(t *testing.T, f *fixture) *domain.PaymentIntent {
	t.Helper()
	intent, err := f.initiate.Handle(context.Background(), command.InitiatePaymentCommand{
		OrderID:     "O1",
		PhoneNumber: "0712345678",
		Amount:      decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	return intent
}

func TestInitiatePayment_CreatesPendingIntentAndOrder(t *testing.T) {
	f := newFixture(t, command.TenantPolicy{})
	testutil.SeedCredentials(t, f.db, domain.PlatformTenantID)

	intent := initiateO1(t, f)
	merchant, checkout := f.provider.IDs(1)

	assert.Equal(t, domain.IntentPending, intent.Status)
	assert.Equal(t, merchant, intent.MerchantRequestID)
	assert.Equal(t, checkout, intent.CheckoutRequestID)
	assert.Equal(t, "254712345678", intent.PhoneNumber)
	assert.Equal(t, int64(500), intent.Amount)
	assert.Equal(t, domain.PlatformTenantID, intent.TenantID)

	order, err := f.orders.FindByID(context.Background(), "O1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Equal(t, domain.PaymentPending, order.PaymentInfo.Status)
	assert.Equal(t, checkout, order.PaymentInfo.CheckoutRequestID)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(500)))
}

func TestInitiatePayment_NoOrphanIntents(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *testutil.FakeProvider)
		kind  domain.Kind
	}{
		{
			name:  "token unavailable",
			setup: func(p *testutil.FakeProvider) { p.TokenStatus = http.StatusServiceUnavailable },
			kind:  domain.KindProviderUnavailable,
		},
		{
			name:  "token rejected",
			setup: func(p *testutil.FakeProvider) { p.TokenStatus = http.StatusBadRequest },
			kind:  domain.KindProviderRejected,
		},
		{
			name:  "submit unavailable",
			setup: func(p *testutil.FakeProvider) { p.SubmitStatus = http.StatusInternalServerError },
			kind:  domain.KindProviderUnavailable,
		},
		{
			name: "submit rejected",
			setup: func(p *testutil.FakeProvider) {
				p.SubmitStatus = http.StatusBadRequest
				p.SubmitBody = `{"errorCode":"400.002.02","errorMessage":"Bad Request - Invalid PhoneNumber"}`
			},
			kind: domain.KindProviderRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, command.TenantPolicy{})
			testutil.SeedCredentials(t, f.db, domain.PlatformTenantID)
			tt.setup(f.provider)

			_, err := f.initiate.Handle(context.Background(), command.InitiatePaymentCommand{
				OrderID:     "O1",
				PhoneNumber: "0712345678",
				Amount:      decimal.NewFromInt(500),
			})
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
			assert.Zero(t, f.countIntents(t))

			_, err = f.orders.FindByID(context.Background(), "O1")
			assert.ErrorIs(t, err, domain.ErrOrderNotFound)
		})
	}
}

func TestInitiatePayment_ValidatesBeforeProvider(t *testing.T) {
	f := newFixture(t, command.TenantPolicy{})
	testutil.SeedCredentials(t, f.db, domain.PlatformTenantID)
	ctx := context.Background()

	_, err := f.initiate.Handle(ctx, command.InitiatePaymentCommand{OrderID: "O1", PhoneNumber: "071234567", Amount: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, domain.ErrInvalidPhoneNumber)

	_, err = f.initiate.Handle(ctx, command.InitiatePaymentCommand{OrderID: "O1", PhoneNumber: "0712345678", Amount: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.initiate.Handle(ctx, command.InitiatePaymentCommand{PhoneNumber: "0712345678", Amount: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	assert.Zero(t, f.provider.TokenCalls.Load())
	assert.Zero(t, f.countIntents(t))
}

func TestInitiatePayment_MissingCredentialsIsConfigurationError(t *testing.T) {
	f := newFixture(t, command.TenantPolicy{})

	_, err := f.initiate.Handle(context.Background(), command.InitiatePaymentCommand{
		OrderID: "O1", PhoneNumber: "0712345678", Amount: decimal.NewFromInt(500),
	})
	assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
	assert.Zero(t, f.provider.TokenCalls.Load())
}

func TestInitiatePayment_PerSellerCredentials(t *testing.T) {
	f := newFixture(t, command.TenantPolicy{PerSeller: true, PlatformTenantID: domain.PlatformTenantID})
	testutil.SeedCredentials(t, f.db, domain.PlatformTenantID)
	testutil.SeedCredentials(t, f.db, "seller-1")
	ctx := context.Background()

	intent, err := f.initiate.Handle(ctx, command.InitiatePaymentCommand{
		OrderID: "O1", PhoneNumber: "254712345678", Amount: decimal.NewFromInt(100), SellerID: "seller-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "seller-1", intent.TenantID)

	_, err = f.initiate.Handle(ctx, command.InitiatePaymentCommand{
		OrderID: "O2", PhoneNumber: "254712345678", Amount: decimal.NewFromInt(100), SellerID: "seller-2",
	})
	assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)

	intent, err = f.initiate.Handle(ctx, command.InitiatePaymentCommand{
		OrderID: "O3", PhoneNumber: "254712345678", Amount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformTenantID, intent.TenantID)
}

func TestInitiatePayment_RetryRules(t *testing.T) {
	f := newFixture(t, command.TenantPolicy{})
	testutil.SeedCredentials(t, f.db, domain.PlatformTenantID)
	ctx := context.Background()

	first := initiateO1(t, f)

	_, err := f.initiate.Handle(ctx, command.InitiatePaymentCommand{OrderID: "O1", PhoneNumber: "0712345678", Amount: decimal.NewFromInt(500)})
	assert.ErrorIs(t, err, domain.ErrPaymentInProgress)

	_, err = f.reconcile.Handle(ctx, command.ReconcileCallbackCommand{
		Payload: testutil.NestedCallback(first.MerchantRequestID, first.CheckoutRequestID, 1032, "Request cancelled by user"),
	})
	require.NoError(t, err)

	second := initiateO1(t, f)
	assert.NotEqual(t, first.CheckoutRequestID, second.CheckoutRequestID)

	_, err = f.reconcile.Handle(ctx, command.ReconcileCallbackCommand{
		Payload: testutil.NestedCallback(second.MerchantRequestID, second.CheckoutRequestID, 0, "ok"),
	})
	require.NoError(t, err)

	_, err = f.initiate.Handle(ctx, command.InitiatePaymentCommand{OrderID: "O1", PhoneNumber: "0712345678", Amount: decimal.NewFromInt(500)})
	assert.ErrorIs(t, err, domain.ErrOrderAlreadyPaid)
	assert.Equal(t, int64(2), f.countIntents(t))
}

func TestInitiatePayment_ConcurrentAttemptsSubmitOnce(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture)
	}{
		{name: "new order"},
		{
			name: "after cancelled attempt",
			setup: func(t *testing.T, f *fixture) {
				first := initiateO1(t, f)
				_, err := f.reconcile.Handle(context.Background(), command.ReconcileCallbackCommand{
					Payload: testutil.NestedCallback(first.MerchantRequestID, first.CheckoutRequestID, 1032, "Request cancelled by user"),
				})
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, command.TenantPolicy{})
			testutil.SeedCredentials(t, f.db, domain.PlatformTenantID)
			if tt.setup != nil {
				tt.setup(t, f)
			}
			submitsBefore := f.provider.SubmitCalls.Load()
			intentsBefore := f.countIntents(t)

			const attempts = 5
			errs := make([]error, attempts)
			var wg sync.WaitGroup
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = f.initiate.Handle(context.Background(), command.InitiatePaymentCommand{
						OrderID:     "O1",
						PhoneNumber: "0712345678",
						Amount:      decimal.NewFromInt(500),
					})
				}(i)
			}
			wg.Wait()

			accepted := 0
			for _, err := range errs {
				if err == nil {
					accepted++
					continue
				}
				assert.ErrorIs(t, err, domain.ErrPaymentInProgress)
			}
			assert.Equal(t, 1, accepted)
			assert.Equal(t, submitsBefore+1, f.provider.SubmitCalls.Load())
			assert.Equal(t, intentsBefore+1, f.countIntents(t))

			order, err := f.orders.FindByID(context.Background(), "O1")
			require.NoError(t, err)
			assert.Equal(t, domain.PaymentPending, order.PaymentInfo.Status)
			merchant, checkout := f.provider.IDs(int(submitsBefore) + 1)
			assert.Equal(t, checkout, order.PaymentInfo.CheckoutRequestID)
			assert.Equal(t, merchant, order.PaymentInfo.MerchantRequestID)
		})
	}
}

func TestInitiatePayment_FailedRetryRestoresOrder(t *testing.T) {
	f := newFixture(t, command.TenantPolicy{})
	testutil.SeedCredentials(t, f.db, domain.PlatformTenantID)
	ctx := context.Background()

	first := initiateO1(t, f)
	_, err := f.reconcile.Handle(ctx, command.ReconcileCallbackCommand{
		Payload: testutil.NestedCallback(first.MerchantRequestID, first.CheckoutRequestID, 1032, "Request cancelled by user"),
	})
	require.NoError(t, err)

	f.provider.SubmitStatus = http.StatusInternalServerError
	_, err = f.initiate.Handle(ctx, command.InitiatePaymentCommand{OrderID: "O1", PhoneNumber: "0712345678", Amount: decimal.NewFromInt(500)})
	assert.Equal(t, domain.KindProviderUnavailable, domain.KindOf(err))

	order, err := f.orders.FindByID(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCancelled, order.PaymentInfo.Status)
	assert.Equal(t, first.CheckoutRequestID, order.PaymentInfo.CheckoutRequestID)

	f.provider.SubmitStatus = http.StatusOK
	second := initiateO1(t, f)
	assert.NotEqual(t, first.CheckoutRequestID, second.CheckoutRequestID)
}

func TestReconcileCallback_TransitionTable(t *testing.T) {
	tests := []struct {
		code          int
		intentStatus  domain.IntentStatus
		orderStatus   domain.OrderStatus
		paymentStatus domain.PaymentStatus
	}{
		{0, domain.IntentSucceeded, domain.OrderProcessing, domain.PaymentSucceeded},
		{1032, domain.IntentCancelled, domain.OrderCancelled, domain.PaymentCancelled},
		{1037, domain.IntentFailed, domain.OrderPaymentFailed, domain.PaymentFailed},
		{2001, domain.IntentFailed, domain.OrderPaymentFailed, domain.PaymentFailed},
	}

	for _, tt := range tests {
		t.Run(string(tt.intentStatus), func(t *testing.T) {
			f := newFixture(t, command.TenantPolicy{})
			testutil.SeedCredentials(t, f.db, domain.PlatformTenantID)
			intent := initiateO1(t, f)
			ctx := context.Background()

			res, err := f.reconcile.Handle(ctx, command.ReconcileCallbackCommand{
				Payload: testutil.NestedCallback(intent.MerchantRequestID, intent.CheckoutRequestID, tt.code, "result"),
			})
			require.NoError(t, err)
			assert.Equal(t, domain.CallbackMatched, res.Outcome)
			assert.True(t, res.OrderUpdated)

			stored, err := f.intents.FindByID(ctx, intent.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.intentStatus, stored.Status)
			require.NotNil(t, stored.ResultCode)
			assert.Equal(t, tt.code, *stored.ResultCode)

			order, err := f.orders.FindByID(ctx, "O1")
			require.NoError(t, err)
			assert.Equal(t, tt.orderStatus, order.Status)
			assert.Equal(t, tt.paymentStatus, order.PaymentInfo.Status)

			if tt.code == 0 {
				assert.Equal(t, "NLJ7RT61SV", stored.ReceiptNumber)
				assert.Equal(t, "NLJ7RT61SV", order.PaymentInfo.ReceiptNumber)
				assert.Empty(t, stored.FailureReason)
				require.NotNil(t, stored.SettledAt)
			} else {
				assert.Empty(t, stored.ReceiptNumber)
				assert.Equal(t, "result", stored.FailureReason)
			}

			events := f.publisher.Events()
			require.Len(t, events, 1)
			assert.Equal(t, string(tt.intentStatus), events[0].Status)
			assert.Equal(t, string(tt.orderStatus), events[0].OrderStatus)
			assert.Equal(t, command.SourceCallback, events[0].Source)
		})
	}
}

func TestReconcileCallback_DuplicateIsIdempotent(t *testing.T) {
	f := newFixture(t, command.TenantPolicy{})
	testutil.SeedCredentials(t, f.db, domain.PlatformTenantID)
	intent := initiateO1(t, f)
	ctx := context.Background()

	_, err := f.reconcile.Handle(ctx, command.ReconcileCallbackCommand{
		Payload: testutil.NestedCallback(intent.MerchantRequestID, intent.CheckoutRequestID, 0, "ok"),
	})
	require.NoError(t, err)
	before, err := f.orders.FindByID(ctx, "O1")
	require.NoError(t, err)

	// Same logical callback in the other shape, then a contradicting one.
	for _, payload := range [][]byte{
		testutil.FlatCallback(intent.MerchantRequestID, intent.CheckoutRequestID, 0, "ok"),
		testutil.NestedCallback(intent.MerchantRequestID, intent.CheckoutRequestID, 1, "insufficient funds"),
	} {
		res, err := f.reconcile.Handle(ctx, command.ReconcileCallbackCommand{Payload: payload})
		require.NoError(t, err)
		assert.Equal(t, domain.CallbackDuplicate, res.Outcome)
	}

	after, err := f.orders.FindByID(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.PaymentInfo, after.PaymentInfo)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)

	stored, err := f.intents.FindByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentSucceeded, stored.Status)
	assert.Len(t, f.publisher.Events(), 1)

	logs, err := f.logs.FindByCorrelationID(ctx, intent.CheckoutRequestID)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestReconcileCallback_BothShapesGiveSameOrderState(t *testing.T) {
	shapes := map[string]func(string, string, int, string) []byte{
		"nested": testutil.NestedCallback,
		"flat":   testutil.FlatCallback,
	}
	states := map[string]*domain.Order{}

	for name, build := range shapes {
		f := newFixture(t, command.TenantPolicy{})
		testutil.SeedCredentials(t, f.db, domain.PlatformTenantID)
		intent := initiateO1(t, f)

		_, err := f.reconcile.Handle(context.Background(), command.ReconcileCallbackCommand{
			Payload: build(intent.MerchantRequestID, intent.CheckoutRequestID, 0, "ok"),
		})
		require.NoError(t, err, name)

		order, err := f.orders.FindByID(context.Background(), "O1")
		require.NoError(t, err)
		states[name] = order
	}

	assert.Equal(t, states["nested"].Status, states["flat"].Status)
	assert.Equal(t, states["nested"].PaymentInfo, states["flat"].PaymentInfo)
}

func TestReconcileCallback_MatchesByRequestIDOnly(t *testing.T) {
	f := newFixture(t, command.TenantPolicy{})
	testutil.SeedCredentials(t, f.db, domain.PlatformTenantID)
	intent := initiateO1(t, f)

	res, err := f.reconcile.Handle(context.Background(), command.ReconcileCallbackCommand{
		Payload: testutil.NestedCallback(intent.MerchantRequestID, "", 1032, "cancelled"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CallbackMatched, res.Outcome)
	assert.Equal(t, domain.IntentCancelled, res.Intent.Status)
}

func TestReconcileCallback_UnmatchedAndMalformed(t *testing.T) {
	f := newFixture(t, command.TenantPolicy{})
	ctx := context.Background()

	res, err := f.reconcile.Handle(ctx, command.ReconcileCallbackCommand{
		Payload: testutil.NestedCallback("m-unknown", "c-unknown", 0, "ok"),
	})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Equal(t, domain.CallbackUnmatched, res.Outcome)

	res, err = f.reconcile.Handle(ctx, command.ReconcileCallbackCommand{
		Payload:    []byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"c-1","ResultCode":0}}}`),
		RemoteAddr: "196.201.214.200",
	})
	assert.ErrorIs(t, err, domain.ErrMalformedCallback)
	assert.Equal(t, domain.CallbackMalformed, res.Outcome)

	_, err = f.reconcile.Handle(ctx, command.ReconcileCallbackCommand{Payload: []byte("not json")})
	assert.ErrorIs(t, err, domain.ErrMalformedCallback)

	var entries []domain.CallbackLog
	require.NoError(t, f.db.Order("id").Find(&entries).Error)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.CallbackUnmatched, entries[0].Outcome)
	assert.Equal(t, "c-unknown", entries[0].CheckoutRequestID)
	assert.Equal(t, domain.CallbackMalformed, entries[1].Outcome)
	assert.Equal(t, "196.201.214.200", entries[1].RemoteAddr)
	assert.JSONEq(t, `"not json"`, string(entries[2].Payload))
	assert.Empty(t, f.publisher.Events())
}

func TestReconcileCallback_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t, command.TenantPolicy{})
	testutil.SeedCredentials(t, f.db, domain.PlatformTenantID)
	intent := initiateO1(t, f)
	ctx := context.Background()

	payloads := [][]byte{
		testutil.NestedCallback(intent.MerchantRequestID, intent.CheckoutRequestID, 0, "ok"),
		testutil.FlatCallback(intent.MerchantRequestID, intent.CheckoutRequestID, 1, "insufficient funds"),
	}
	outcomes := make([]domain.CallbackOutcome, len(payloads))

	var wg sync.WaitGroup
	for i, p := range payloads {
		wg.Add(1)
		go func(i int, p []byte) {
			defer wg.Done()
			res, err := f.reconcile.Handle(ctx, command.ReconcileCallbackCommand{Payload: p})
			assert.NoError(t, err)
			if res != nil {
				outcomes[i] = res.Outcome
			}
		}(i, p)
	}
	wg.Wait()

	assert.ElementsMatch(t, []domain.CallbackOutcome{domain.CallbackMatched, domain.CallbackDuplicate}, outcomes)
	assert.Len(t, f.publisher.Events(), 1)

	stored, err := f.intents.FindByID(ctx, intent.ID)
	require.NoError(t, err)
	order, err := f.orders.FindByID(ctx, "O1")
	require.NoError(t, err)
	res := domain.Resolution{Status: stored.Status}
	assert.Equal(t, res.OrderStatus(), order.Status)
	assert.Equal(t, res.PaymentStatus(), order.PaymentInfo.Status)
}

func TestReconcileCallback_Unauthorized(t *testing.T) {
	f := newFixture(t, command.TenantPolicy{})

	err := f.reconcile.Unauthorized(context.Background(), command.ReconcileCallbackCommand{
		Payload: testutil.NestedCallback("m-1", "c-1", 0, "ok"),
	})
	assert.ErrorIs(t, err, domain.ErrCallbackToken)

	var entry domain.CallbackLog
	require.NoError(t, f.db.First(&entry).Error)
	assert.Equal(t, domain.CallbackUnauthorized, entry.Outcome)
}
