package domain

import (
	"context"
	"fmt"
	"time"
)

// PlatformTenantID is the tenant that owns the marketplace-wide credentials.
const PlatformTenantID = "platform"

// TenantCredential is a stored credential set. Secret columns hold ciphertext.
type TenantCredential struct {
	ID                   string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	TenantID             string     `json:"tenant_id" gorm:"not null;type:varchar(64);index;uniqueIndex:idx_tenant_credentials_active,where:active = true"`
	ShortCode            string     `json:"short_code" gorm:"not null;type:varchar(16)"`
	ConsumerKeyCipher    string     `json:"-" gorm:"not null;type:text"`
	ConsumerSecretCipher string     `json:"-" gorm:"not null;type:text"`
	PassKeyCipher        string     `json:"-" gorm:"not null;type:text"`
	Active               bool       `json:"active" gorm:"not null"`
	CreatedBy            string     `json:"created_by"`
	DeactivatedAt        *time.Time `json:"deactivated_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TableName specifies the table name
func (TenantCredential) TableName() string {
	return "tenant_credentials"
}

// CredentialSet is a decrypted credential set. Keep it in memory only for the
// duration of one provider exchange.
type CredentialSet struct {
	CredentialID   string
	TenantID       string
	ShortCode      string
	ConsumerKey    string
	ConsumerSecret string
	PassKey        string
}

// String never renders secret values.
func (c CredentialSet) String() string {
	return fmt.Sprintf("CredentialSet{tenant=%s short_code=%s id=%s}", c.TenantID, c.ShortCode, c.CredentialID)
}

func (c CredentialSet) GoString() string { return c.String() }

// CredentialRepository defines the contract for tenant credential data access
type CredentialRepository interface {
	FindByID(ctx context.Context, id string) (*TenantCredential, error)
	FindActiveByTenant(ctx context.Context, tenantID string) (*TenantCredential, error)
	ListByTenant(ctx context.Context, tenantID string) ([]TenantCredential, error)
	CountByTenant(ctx context.Context, tenantID string) (int64, error)
	// ReplaceActive deactivates the tenant's current active row, if any, and
	// inserts cred as the new active one.
	ReplaceActive(ctx context.Context, cred *TenantCredential) error
	Update(ctx context.Context, cred *TenantCredential) error
	Deactivate(ctx context.Context, id string, at time.Time) error
}
