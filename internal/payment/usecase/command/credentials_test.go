package command_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/marketplace-payments/internal/payment/domain"
	"github.com/tair/marketplace-payments/internal/payment/repository"
	"github.com/tair/marketplace-payments/internal/payment/testutil"
	"github.com/tair/marketplace-payments/internal/payment/usecase/command"
	"github.com/tair/marketplace-payments/pkg/auth"
)

var (
	admin   = &auth.Claims{UserID: "u-admin", Role: auth.RoleAdmin}
	seller1 = &auth.Claims{UserID: "u-1", TenantID: "seller-1", Role: auth.RoleSeller}
)

func TestCredentialHandler_SaveReplacesActive(t *testing.T) {
	db := testutil.NewTestDB(t)
	v := testutil.NewVault(t, db)
	h := command.NewCredentialHandler(repository.NewGormCredentialRepository(db), v)
	ctx := context.Background()

	first, err := h.Save(ctx, command.SaveCredentialCommand{
		Claims: seller1, ShortCode: "600000", ConsumerKey: "k1", ConsumerSecret: "s1", PassKey: "p1",
	})
	require.NoError(t, err)
	assert.Equal(t, "seller-1", first.TenantID)
	assert.Equal(t, "u-1", first.CreatedBy)
	assert.NotContains(t, first.ConsumerKeyCipher, "k1")

	second, err := h.Save(ctx, command.SaveCredentialCommand{
		Claims: seller1, TenantID: "seller-1", ShortCode: "600001", ConsumerKey: "k2", ConsumerSecret: "s2", PassKey: "p2",
	})
	require.NoError(t, err)

	set, err := v.ResolveCredentials(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, set.CredentialID)
	assert.Equal(t, "k2", set.ConsumerKey)
	assert.Equal(t, "600001", set.ShortCode)
}

func TestCredentialHandler_Authorization(t *testing.T) {
	db := testutil.NewTestDB(t)
	h := command.NewCredentialHandler(repository.NewGormCredentialRepository(db), testutil.NewVault(t, db))
	ctx := context.Background()

	valid := command.SaveCredentialCommand{ShortCode: "600000", ConsumerKey: "k", ConsumerSecret: "s", PassKey: "p"}

	cmd := valid
	cmd.Claims, cmd.TenantID = seller1, domain.PlatformTenantID
	_, err := h.Save(ctx, cmd)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	cmd = valid
	_, err = h.Save(ctx, cmd)
	assert.ErrorIs(t, err, domain.ErrForbidden, "anonymous")

	cmd = valid
	cmd.Claims, cmd.TenantID = admin, domain.PlatformTenantID
	platform, err := h.Save(ctx, cmd)
	require.NoError(t, err)

	_, err = h.Update(ctx, command.UpdateCredentialCommand{Claims: seller1, ID: platform.ID, PassKey: "x"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, h.Deactivate(ctx, command.DeactivateCredentialCommand{Claims: seller1, ID: platform.ID}), domain.ErrForbidden)

	cmd = valid
	cmd.Claims, cmd.ShortCode = seller1, "60A000"
	_, err = h.Save(ctx, cmd)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = h.Save(ctx, command.SaveCredentialCommand{Claims: seller1, ShortCode: "600000"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestCredentialHandler_UpdateAndDeactivate(t *testing.T) {
	db := testutil.NewTestDB(t)
	v := testutil.NewVault(t, db)
	h := command.NewCredentialHandler(repository.NewGormCredentialRepository(db), v)
	ctx := context.Background()

	cred := testutil.SeedCredentials(t, db, "seller-1")

	_, err := h.Update(ctx, command.UpdateCredentialCommand{Claims: seller1, ID: cred.ID, PassKey: "rotated"})
	require.NoError(t, err)

	set, err := v.ResolveCredentials(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, "rotated", set.PassKey)
	assert.Equal(t, "consumer-key-seller-1", set.ConsumerKey, "untouched fields are kept")

	require.NoError(t, h.Deactivate(ctx, command.DeactivateCredentialCommand{Claims: admin, ID: cred.ID}))
	_, err = v.ResolveCredentials(ctx, "seller-1")
	assert.ErrorIs(t, err, domain.ErrCredentialsInactive)

	_, err = h.Update(ctx, command.UpdateCredentialCommand{Claims: seller1, ID: cred.ID, PassKey: "again"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	assert.ErrorIs(t, h.Deactivate(ctx, command.DeactivateCredentialCommand{Claims: admin, ID: "missing"}), domain.ErrCredentialNotFound)
}
