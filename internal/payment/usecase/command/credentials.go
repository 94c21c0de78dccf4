package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tair/marketplace-payments/internal/payment/domain"
	"github.com/tair/marketplace-payments/pkg/auth"
	"github.com/tair/marketplace-payments/pkg/logger"
)

// SaveCredentialCommand stores a new active credential set for a tenant,
// replacing the current one.
type SaveCredentialCommand struct {
	Claims         *auth.Claims
	TenantID       string
	ShortCode      string
	ConsumerKey    string
	ConsumerSecret string
	PassKey        string
}

// UpdateCredentialCommand changes the non-empty fields of a stored set.
type UpdateCredentialCommand struct {
	Claims         *auth.Claims
	ID             string
	ShortCode      string
	ConsumerKey    string
	ConsumerSecret string
	PassKey        string
}

// DeactivateCredentialCommand retires a credential set. Rows are kept.
type DeactivateCredentialCommand struct {
	Claims *auth.Claims
	ID     string
}

// CredentialHandler handles the credential management commands
type CredentialHandler struct {
	repo  domain.CredentialRepository
	codec CredentialCodec
}

// NewCredentialHandler creates a new credential handler
func NewCredentialHandler(repo domain.CredentialRepository, codec CredentialCodec) *CredentialHandler {
	return &CredentialHandler{repo: repo, codec: codec}
}

// Save executes the save credential command
func (h *CredentialHandler) Save(ctx context.Context, cmd SaveCredentialCommand) (*domain.TenantCredential, error) {
	if cmd.TenantID == "" && cmd.Claims != nil {
		cmd.TenantID = cmd.Claims.TenantID
	}
	if err := authorize(cmd.Claims, cmd.TenantID); err != nil {
		return nil, err
	}

	set := domain.CredentialSet{
		TenantID:       cmd.TenantID,
		ShortCode:      strings.TrimSpace(cmd.ShortCode),
		ConsumerKey:    strings.TrimSpace(cmd.ConsumerKey),
		ConsumerSecret: strings.TrimSpace(cmd.ConsumerSecret),
		PassKey:        strings.TrimSpace(cmd.PassKey),
	}
	if err := validateCredentialSet(set); err != nil {
		return nil, err
	}

	cred := &domain.TenantCredential{
		ID:        uuid.New().String(),
		Active:    true,
		CreatedBy: cmd.Claims.UserID,
	}
	if err := h.codec.Seal(set, cred); err != nil {
		return nil, fmt.Errorf("failed to encrypt credentials: %w", err)
	}
	if err := h.repo.ReplaceActive(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}

	logger.Info(ctx).
		Str("credential_id", cred.ID).
		Str("tenant_id", cred.TenantID).
		Str("user_id", cmd.Claims.UserID).
		Msg("Payment credentials saved")
	return cred, nil
}

// Update executes the update credential command
func (h *CredentialHandler) Update(ctx context.Context, cmd UpdateCredentialCommand) (*domain.TenantCredential, error) {
	cred, err := h.repo.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	if err := authorize(cmd.Claims, cred.TenantID); err != nil {
		return nil, err
	}
	if !cred.Active {
		return nil, fmt.Errorf("%w: credential %s is deactivated", domain.ErrInvalidRequest, cred.ID)
	}

	set, err := h.codec.Open(cred)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}
	overlay(&set.ShortCode, cmd.ShortCode)
	overlay(&set.ConsumerKey, cmd.ConsumerKey)
	overlay(&set.ConsumerSecret, cmd.ConsumerSecret)
	overlay(&set.PassKey, cmd.PassKey)
	if err := validateCredentialSet(set); err != nil {
		return nil, err
	}

	if err := h.codec.Seal(set, cred); err != nil {
		return nil, fmt.Errorf("failed to encrypt credentials: %w", err)
	}
	if err := h.repo.Update(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to update credentials: %w", err)
	}

	logger.Info(ctx).
		Str("credential_id", cred.ID).
		Str("tenant_id", cred.TenantID).
		Str("user_id", cmd.Claims.UserID).
		Msg("Payment credentials updated")
	return cred, nil
}

// Deactivate executes the deactivate credential command
func (h *CredentialHandler) Deactivate(ctx context.Context, cmd DeactivateCredentialCommand) error {
	cred, err := h.repo.FindByID(ctx, cmd.ID)
	if err != nil {
		return err
	}
	if err := authorize(cmd.Claims, cred.TenantID); err != nil {
		return err
	}
	if err := h.repo.Deactivate(ctx, cred.ID, time.Now()); err != nil {
		return fmt.Errorf("failed to deactivate credentials: %w", err)
	}

	logger.Info(ctx).
		Str("credential_id", cred.ID).
		Str("tenant_id", cred.TenantID).
		Str("user_id", cmd.Claims.UserID).
		Msg("Payment credentials deactivated")
	return nil
}

func authorize(claims *auth.Claims, tenantID string) error {
	if claims == nil || !claims.CanManage(tenantID) {
		return domain.ErrForbidden
	}
	return nil
}

func overlay(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func validateCredentialSet(set domain.CredentialSet) error {
	var missing []string
	if set.TenantID == "" {
		missing = append(missing, "tenantId")
	}
	if set.ShortCode == "" {
		missing = append(missing, "shortCode")
	}
	if set.ConsumerKey == "" {
		missing = append(missing, "consumerKey")
	}
	if set.ConsumerSecret == "" {
		missing = append(missing, "consumerSecret")
	}
	if set.PassKey == "" {
		missing = append(missing, "passKey")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidRequest, strings.Join(missing, ", "))
	}
	for _, r := range set.ShortCode {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: shortCode must be numeric", domain.ErrInvalidRequest)
		}
	}
	return nil
}
