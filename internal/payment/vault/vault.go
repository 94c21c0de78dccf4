package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/tair/marketplace-payments/internal/payment/domain"
	"github.com/tair/marketplace-payments/pkg/logger"
)

// Vault resolves and seals tenant credentials. Plaintext never leaves the
// returned CredentialSet.
type Vault struct {
	repo   domain.CredentialRepository
	cipher *Cipher
}

func New(repo domain.CredentialRepository, cipher *Cipher) *Vault {
	return &Vault{repo: repo, cipher: cipher}
}

// ResolveCredentials returns the single active credential set of tenantID.
// ErrCredentialsNotFound means the tenant never had credentials;
// ErrCredentialsInactive means every stored set was deactivated.
func (v *Vault) ResolveCredentials(ctx context.Context, tenantID string) (domain.CredentialSet, error) {
	cred, err := v.repo.FindActiveByTenant(ctx, tenantID)
	if errors.Is(err, domain.ErrCredentialsNotFound) {
		count, countErr := v.repo.CountByTenant(ctx, tenantID)
		if countErr != nil {
			return domain.CredentialSet{}, fmt.Errorf("count credentials: %w", countErr)
		}
		if count > 0 {
			return domain.CredentialSet{}, fmt.Errorf("tenant %s: %w", tenantID, domain.ErrCredentialsInactive)
		}
		return domain.CredentialSet{}, fmt.Errorf("tenant %s: %w", tenantID, domain.ErrCredentialsNotFound)
	}
	if err != nil {
		return domain.CredentialSet{}, fmt.Errorf("load credentials: %w", err)
	}

	set, err := v.Open(cred)
	if err != nil {
		logger.Error(ctx).
			Str("tenant_id", tenantID).
			Str("credential_id", cred.ID).
			Msg("Stored credentials cannot be decrypted")
		return domain.CredentialSet{}, fmt.Errorf("tenant %s: %w", tenantID, domain.ErrCredentialsInactive)
	}
	return set, nil
}

// Open decrypts a stored row.
func (v *Vault) Open(cred *domain.TenantCredential) (domain.CredentialSet, error) {
	key, err := v.cipher.Open(cred.TenantID, cred.ConsumerKeyCipher)
	if err != nil {
		return domain.CredentialSet{}, err
	}
	secret, err := v.cipher.Open(cred.TenantID, cred.ConsumerSecretCipher)
	if err != nil {
		return domain.CredentialSet{}, err
	}
	passKey, err := v.cipher.Open(cred.TenantID, cred.PassKeyCipher)
	if err != nil {
		return domain.CredentialSet{}, err
	}
	return domain.CredentialSet{
		CredentialID:   cred.ID,
		TenantID:       cred.TenantID,
		ShortCode:      cred.ShortCode,
		ConsumerKey:    key,
		ConsumerSecret: secret,
		PassKey:        passKey,
	}, nil
}

// Seal writes the encrypted secret fields of set onto cred.
func (v *Vault) Seal(set domain.CredentialSet, cred *domain.TenantCredential) error {
	var err error
	cred.TenantID = set.TenantID
	cred.ShortCode = set.ShortCode
	if cred.ConsumerKeyCipher, err = v.cipher.Seal(set.TenantID, set.ConsumerKey); err != nil {
		return err
	}
	if cred.ConsumerSecretCipher, err = v.cipher.Seal(set.TenantID, set.ConsumerSecret); err != nil {
		return err
	}
	if cred.PassKeyCipher, err = v.cipher.Seal(set.TenantID, set.PassKey); err != nil {
		return err
	}
	return nil
}
