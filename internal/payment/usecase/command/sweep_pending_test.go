package command_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/marketplace-payments/internal/payment/domain"
	"github.com/tair/marketplace-payments/internal/payment/testutil"
	"github.com/tair/marketplace-payments/internal/payment/usecase/command"
)

func ageIntents(t *testing.T, f *fixture, by time.Duration) {
	t.Helper()
	require.NoError(t, f.db.Model(&domain.PaymentIntent{}).
		Where("status = ?", domain.IntentPending).
		Update("created_at", time.Now().Add(-by)).Error)
}

func TestSweepPending_LeavesProcessingIntentsPending(t *testing.T) {
	f := newFixture(t, command.TenantPolicy{})
	testutil.SeedCredentials(t, f.db, domain.PlatformTenantID)
	intent := initiateO1(t, f)
	ageIntents(t, f, time.Hour)

	f.provider.QueryStatus = http.StatusInternalServerError
	f.provider.QueryBody = `{"requestId":"1","errorCode":"500.001.1001","errorMessage":"The transaction is being processed"}`

	res, err := f.sweep.Handle(context.Background(), command.SweepPendingCommand{OlderThan: 10 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Checked)
	assert.Equal(t, 1, res.StillPending)
	assert.Zero(t, res.Resolved)

	stored, err := f.intents.FindByID(context.Background(), intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentPending, stored.Status)
}

func TestSweepPending_ResolvesFinishedIntents(t *testing.T) {
	f := newFixture(t, command.TenantPolicy{})
	testutil.SeedCredentials(t, f.db, domain.PlatformTenantID)
	intent := initiateO1(t, f)
	ageIntents(t, f, time.Hour)

	f.provider.QueryBody = `{"ResponseCode":"0","ResponseDescription":"The service request has been accepted successsfully","ResultCode":"1032","ResultDesc":"Request cancelled by user"}`

	res, err := f.sweep.Handle(context.Background(), command.SweepPendingCommand{OlderThan: 10 * time.Minute, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Resolved)
	assert.Equal(t, int32(2), f.provider.TokenCalls.Load(), "initiation plus one token for the sweep")

	stored, err := f.intents.FindByID(context.Background(), intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentCancelled, stored.Status)

	order, err := f.orders.FindByID(context.Background(), "O1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, order.Status)

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, command.SourceSweep, events[0].Source)

	// A late callback after the sweep is a duplicate.
	cb, err := f.reconcile.Handle(context.Background(), command.ReconcileCallbackCommand{
		Payload: testutil.NestedCallback(intent.MerchantRequestID, intent.CheckoutRequestID, 0, "ok"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CallbackDuplicate, cb.Outcome)
}

func TestSweepPending_SkipsFreshIntentsAndCountsErrors(t *testing.T) {
	f := newFixture(t, command.TenantPolicy{})
	cred := testutil.SeedCredentials(t, f.db, domain.PlatformTenantID)
	initiateO1(t, f)

	res, err := f.sweep.Handle(context.Background(), command.SweepPendingCommand{OlderThan: 10 * time.Minute})
	require.NoError(t, err)
	assert.Zero(t, res.Checked)

	ageIntents(t, f, time.Hour)
	require.NoError(t, f.db.Model(&domain.TenantCredential{}).Where("id = ?", cred.ID).Update("active", false).Error)

	res, err = f.sweep.Handle(context.Background(), command.SweepPendingCommand{OlderThan: 10 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Checked)
	assert.Equal(t, 1, res.Errors)
	assert.Zero(t, f.provider.QueryCalls.Load())

	_, err = f.sweep.Handle(context.Background(), command.SweepPendingCommand{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
