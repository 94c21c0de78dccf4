package repository

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/marketplace-payments/internal/payment/domain"
)

var tracer = otel.Tracer("payment-repository")

// TracingIntentRepository wraps an IntentRepository with spans
type TracingIntentRepository struct {
	next domain.IntentRepository
}

func NewTracingIntentRepository(next domain.IntentRepository) *TracingIntentRepository {
	return &TracingIntentRepository{next: next}
}

func (r *TracingIntentRepository) FindByID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	ctx, span := tracer.Start(ctx, "repository.FindIntentByID",
		trace.WithAttributes(attribute.String("intent.id", id)),
	)
	defer span.End()

	intent, err := r.next.FindByID(ctx, id)
	endSpan(span, err)
	return intent, err
}

func (r *TracingIntentRepository) FindByCorrelationID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	ctx, span := tracer.Start(ctx, "repository.FindIntentByCorrelationID",
		trace.WithAttributes(attribute.String("intent.correlation_id", id)),
	)
	defer span.End()

	intent, err := r.next.FindByCorrelationID(ctx, id)
	if err == nil {
		span.SetAttributes(
			attribute.String("intent.id", intent.ID),
			attribute.String("intent.status", string(intent.Status)),
		)
	}
	endSpan(span, err)
	return intent, err
}

func (r *TracingIntentRepository) FindByOrderID(ctx context.Context, orderID string) ([]domain.PaymentIntent, error) {
	ctx, span := tracer.Start(ctx, "repository.FindIntentsByOrderID",
		trace.WithAttributes(attribute.String("order.id", orderID)),
	)
	defer span.End()

	intents, err := r.next.FindByOrderID(ctx, orderID)
	span.SetAttributes(attribute.Int("intent.count", len(intents)))
	endSpan(span, err)
	return intents, err
}

func (r *TracingIntentRepository) FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.PaymentIntent, error) {
	ctx, span := tracer.Start(ctx, "repository.FindStalePendingIntents",
		trace.WithAttributes(
			attribute.String("intent.created_before", createdBefore.Format(time.RFC3339)),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	intents, err := r.next.FindStalePending(ctx, createdBefore, limit)
	span.SetAttributes(attribute.Int("intent.count", len(intents)))
	endSpan(span, err)
	return intents, err
}

func (r *TracingIntentRepository) CreateWithOrder(ctx context.Context, intent *domain.PaymentIntent, order *domain.Order, isNew bool) error {
	ctx, span := tracer.Start(ctx, "repository.CreateIntentWithOrder",
		trace.WithAttributes(
			attribute.String("intent.id", intent.ID),
			attribute.String("order.id", order.ID),
			attribute.Bool("order.new", isNew),
			attribute.Int64("intent.amount", intent.Amount),
		),
	)
	defer span.End()

	err := r.next.CreateWithOrder(ctx, intent, order, isNew)
	endSpan(span, err)
	return err
}

func (r *TracingIntentRepository) Resolve(ctx context.Context, intent *domain.PaymentIntent, res domain.Resolution) (domain.ResolveOutcome, error) {
	ctx, span := tracer.Start(ctx, "repository.ResolveIntent",
		trace.WithAttributes(
			attribute.String("intent.id", intent.ID),
			attribute.String("intent.target_status", string(res.Status)),
			attribute.Int("provider.result_code", res.ResultCode),
		),
	)
	defer span.End()

	out, err := r.next.Resolve(ctx, intent, res)
	span.SetAttributes(
		attribute.Bool("intent.applied", out.Applied),
		attribute.Bool("order.updated", out.OrderUpdated),
	)
	endSpan(span, err)
	return out, err
}

// TracingCredentialRepository wraps a CredentialRepository with spans.
// Only identifiers are recorded, never credential material.
type TracingCredentialRepository struct {
	next domain.CredentialRepository
}

func NewTracingCredentialRepository(next domain.CredentialRepository) *TracingCredentialRepository {
	return &TracingCredentialRepository{next: next}
}

func (r *TracingCredentialRepository) FindByID(ctx context.Context, id string) (*domain.TenantCredential, error) {
	ctx, span := tracer.Start(ctx, "repository.FindCredentialByID",
		trace.WithAttributes(attribute.String("credential.id", id)),
	)
	defer span.End()

	cred, err := r.next.FindByID(ctx, id)
	endSpan(span, err)
	return cred, err
}

func (r *TracingCredentialRepository) FindActiveByTenant(ctx context.Context, tenantID string) (*domain.TenantCredential, error) {
	ctx, span := tracer.Start(ctx, "repository.FindActiveCredential",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)
	defer span.End()

	cred, err := r.next.FindActiveByTenant(ctx, tenantID)
	endSpan(span, err)
	return cred, err
}

func (r *TracingCredentialRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.TenantCredential, error) {
	ctx, span := tracer.Start(ctx, "repository.ListCredentials",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)
	defer span.End()

	creds, err := r.next.ListByTenant(ctx, tenantID)
	endSpan(span, err)
	return creds, err
}

func (r *TracingCredentialRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "repository.CountCredentials",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)
	defer span.End()

	n, err := r.next.CountByTenant(ctx, tenantID)
	endSpan(span, err)
	return n, err
}

func (r *TracingCredentialRepository) ReplaceActive(ctx context.Context, cred *domain.TenantCredential) error {
	ctx, span := tracer.Start(ctx, "repository.ReplaceActiveCredential",
		trace.WithAttributes(attribute.String("tenant.id", cred.TenantID)),
	)
	defer span.End()

	err := r.next.ReplaceActive(ctx, cred)
	endSpan(span, err)
	return err
}

func (r *TracingCredentialRepository) Update(ctx context.Context, cred *domain.TenantCredential) error {
	ctx, span := tracer.Start(ctx, "repository.UpdateCredential",
		trace.WithAttributes(attribute.String("credential.id", cred.ID)),
	)
	defer span.End()

	err := r.next.Update(ctx, cred)
	endSpan(span, err)
	return err
}

func (r *TracingCredentialRepository) Deactivate(ctx context.Context, id string, at time.Time) error {
	ctx, span := tracer.Start(ctx, "repository.DeactivateCredential",
		trace.WithAttributes(attribute.String("credential.id", id)),
	)
	defer span.End()

	err := r.next.Deactivate(ctx, id, at)
	endSpan(span, err)
	return err
}

// Not-found answers are expected lookups, not span errors.
func endSpan(span trace.Span, err error) {
	if err == nil || domain.KindOf(err) == domain.KindNotFound || errors.Is(err, domain.ErrCredentialsNotFound) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
