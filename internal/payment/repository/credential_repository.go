package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tair/marketplace-payments/internal/payment/domain"
)

type GormCredentialRepository struct {
	db *gorm.DB
}

func NewGormCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

func (r *GormCredentialRepository) FindByID(ctx context.Context, id string) (*domain.TenantCredential, error) {
	var cred domain.TenantCredential
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&cred).Error; err != nil {
		return nil, notFound(err, domain.ErrCredentialNotFound)
	}
	return &cred, nil
}

func (r *GormCredentialRepository) FindActiveByTenant(ctx context.Context, tenantID string) (*domain.TenantCredential, error) {
	var cred domain.TenantCredential
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		First(&cred).Error
	if err != nil {
		return nil, notFound(err, domain.ErrCredentialsNotFound)
	}
	return &cred, nil
}

func (r *GormCredentialRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.TenantCredential, error) {
	var creds []domain.TenantCredential
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&creds).Error
	return creds, err
}

func (r *GormCredentialRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.TenantCredential{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	return count, err
}

func (r *GormCredentialRepository) ReplaceActive(ctx context.Context, cred *domain.TenantCredential) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&domain.TenantCredential{}).
			Where("tenant_id = ? AND active = ?", cred.TenantID, true).
			Updates(map[string]interface{}{"active": false, "deactivated_at": now}).Error; err != nil {
			return err
		}
		cred.Active = true
		return tx.Create(cred).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrCredentialExists
	}
	return err
}

func (r *GormCredentialRepository) Update(ctx context.Context, cred *domain.TenantCredential) error {
	result := r.db.WithContext(ctx).
		Model(&domain.TenantCredential{}).
		Where("id = ?", cred.ID).
		Updates(map[string]interface{}{
			"short_code":             cred.ShortCode,
			"consumer_key_cipher":    cred.ConsumerKeyCipher,
			"consumer_secret_cipher": cred.ConsumerSecretCipher,
			"pass_key_cipher":        cred.PassKeyCipher,
			"updated_at":             time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrCredentialNotFound
	}
	return nil
}

// Deactivate is idempotent; rows are kept for the audit trail.
func (r *GormCredentialRepository) Deactivate(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.TenantCredential{}).
		Where("id = ? AND active = ?", id, true).
		Updates(map[string]interface{}{"active": false, "deactivated_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
