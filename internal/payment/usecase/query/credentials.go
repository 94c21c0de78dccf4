package query

import (
	"context"
	"time"

	"github.com/tair/marketplace-payments/internal/payment/domain"
	"github.com/tair/marketplace-payments/pkg/auth"
)

const maskedSecret = "********"

// CredentialOpener decrypts a stored credential row.
type CredentialOpener interface {
	Open(cred *domain.TenantCredential) (domain.CredentialSet, error)
}

// GetCredentialQuery represents the query to get one credential set
type GetCredentialQuery struct {
	Claims *auth.Claims
	ID     string
}

// ListCredentialsQuery represents the query to list a tenant's credential sets
type ListCredentialsQuery struct {
	Claims   *auth.Claims
	TenantID string
}

// CredentialView is a credential row for the management API. Secret values
// are plaintext only when Revealed is set.
type CredentialView struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenantId"`
	ShortCode      string     `json:"shortCode"`
	ConsumerKey    string     `json:"consumerKey"`
	ConsumerSecret string     `json:"consumerSecret"`
	PassKey        string     `json:"passKey"`
	Revealed       bool       `json:"revealed"`
	Active         bool       `json:"active"`
	CreatedBy      string     `json:"createdBy"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DeactivatedAt  *time.Time `json:"deactivatedAt,omitempty"`
}

// CredentialQueryHandler handles the credential queries
type CredentialQueryHandler struct {
	repo   domain.CredentialRepository
	opener CredentialOpener
}

// NewCredentialQueryHandler creates a new credential query handler
func NewCredentialQueryHandler(repo domain.CredentialRepository, opener CredentialOpener) *CredentialQueryHandler {
	return &CredentialQueryHandler{repo: repo, opener: opener}
}

// Get executes the get credential query
func (h *CredentialQueryHandler) Get(ctx context.Context, query GetCredentialQuery) (*CredentialView, error) {
	cred, err := h.repo.FindByID(ctx, query.ID)
	if err != nil {
		return nil, err
	}
	if query.Claims == nil || !query.Claims.CanManage(cred.TenantID) {
		return nil, domain.ErrForbidden
	}
	return h.view(cred, query.Claims), nil
}

// List executes the list credentials query
func (h *CredentialQueryHandler) List(ctx context.Context, query ListCredentialsQuery) ([]CredentialView, error) {
	if query.TenantID == "" && query.Claims != nil {
		query.TenantID = query.Claims.TenantID
	}
	if query.Claims == nil || !query.Claims.CanManage(query.TenantID) {
		return nil, domain.ErrForbidden
	}

	creds, err := h.repo.ListByTenant(ctx, query.TenantID)
	if err != nil {
		return nil, err
	}
	views := make([]CredentialView, 0, len(creds))
	for i := range creds {
		views = append(views, *h.view(&creds[i], query.Claims))
	}
	return views, nil
}

// view reveals secrets to the owning tenant only; admins managing another
// tenant see masked values.
func (h *CredentialQueryHandler) view(cred *domain.TenantCredential, claims *auth.Claims) *CredentialView {
	v := &CredentialView{
		ID:             cred.ID,
		TenantID:       cred.TenantID,
		ShortCode:      cred.ShortCode,
		ConsumerKey:    maskedSecret,
		ConsumerSecret: maskedSecret,
		PassKey:        maskedSecret,
		Active:         cred.Active,
		CreatedBy:      cred.CreatedBy,
		CreatedAt:      cred.CreatedAt,
		UpdatedAt:      cred.UpdatedAt,
		DeactivatedAt:  cred.DeactivatedAt,
	}
	if claims.TenantID != cred.TenantID {
		return v
	}
	set, err := h.opener.Open(cred)
	if err != nil {
		return v
	}
	v.ConsumerKey = set.ConsumerKey
	v.ConsumerSecret = set.ConsumerSecret
	v.PassKey = set.PassKey
	v.Revealed = true
	return v
}
