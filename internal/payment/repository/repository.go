package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/marketplace-payments/internal/payment/domain"
)

// AutoMigrate creates or updates every table the payment service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Order{},
		&domain.OrderItem{},
		&domain.PaymentIntent{},
		&domain.TenantCredential{},
		&domain.CallbackLog{},
	)
}

type GormIntentRepository struct {
	db *gorm.DB
}

func NewGormIntentRepository(db *gorm.DB) *GormIntentRepository {
	return &GormIntentRepository{db: db}
}

func (r *GormIntentRepository) FindByID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&intent).Error
	if err != nil {
		return nil, notFound(err, domain.ErrIntentNotFound)
	}
	return &intent, nil
}

func (r *GormIntentRepository) FindByCorrelationID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	if id == "" {
		return nil, domain.ErrIntentNotFound
	}
	var intent domain.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("checkout_request_id = ? OR merchant_request_id = ?", id, id).
		Order("created_at DESC").
		First(&intent).Error
	if err != nil {
		return nil, notFound(err, domain.ErrIntentNotFound)
	}
	return &intent, nil
}

func (r *GormIntentRepository) FindByOrderID(ctx context.Context, orderID string) ([]domain.PaymentIntent, error) {
	var intents []domain.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&intents).Error
	return intents, err
}

func (r *GormIntentRepository) FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.PaymentIntent, error) {
	var intents []domain.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.IntentPending, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&intents).Error
	return intents, err
}

func (r *GormIntentRepository) CreateWithOrder(ctx context.Context, intent *domain.PaymentIntent, order *domain.Order, isNew bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(intent).Error; err != nil {
			return err
		}

		order.LinkIntent(intent)
		upsert := clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status",
				"payment_type",
				"payment_status",
				"payment_intent_id",
				"payment_merchant_request_id",
				"payment_checkout_request_id",
				"payment_receipt_number",
				"updated_at",
			}),
		}
		if err := tx.Omit(clause.Associations).Clauses(upsert).Create(order).Error; err != nil {
			return err
		}

		if isNew && len(order.Items) > 0 {
			for i := range order.Items {
				order.Items[i].OrderID = order.ID
			}
			if err := tx.Create(&order.Items).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormIntentRepository) Resolve(ctx context.Context, intent *domain.PaymentIntent, res domain.Resolution) (domain.ResolveOutcome, error) {
	var out domain.ResolveOutcome

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Single conditional update: whoever flips pending first wins.
		result := tx.Model(&domain.PaymentIntent{}).
			Where("id = ? AND status = ?", intent.ID, domain.IntentPending).
			Updates(map[string]interface{}{
				"status":         res.Status,
				"result_code":    res.ResultCode,
				"result_desc":    res.ResultDesc,
				"failure_reason": res.FailureReason(),
				"receipt_number": res.ReceiptNumber,
				"payer_phone":    res.PayerPhone,
				"settled_at":     res.SettledAt,
				"resolved_at":    res.ResolvedAt,
				"updated_at":     res.ResolvedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		out.Applied = true

		// A retried order points at its newest attempt; older attempts
		// resolve without touching it.
		orderResult := tx.Model(&domain.Order{}).
			Where("id = ? AND payment_checkout_request_id = ?", intent.OrderID, intent.CheckoutRequestID).
			Updates(map[string]interface{}{
				"status":                 res.OrderStatus(),
				"payment_status":         res.PaymentStatus(),
				"payment_receipt_number": res.ReceiptNumber,
				"updated_at":             res.ResolvedAt,
			})
		if orderResult.Error != nil {
			return orderResult.Error
		}
		out.OrderUpdated = orderResult.RowsAffected == 1
		return nil
	})
	if err != nil {
		return domain.ResolveOutcome{}, err
	}

	if out.Applied {
		code := res.ResultCode
		intent.Status = res.Status
		intent.ResultCode = &code
		intent.ResultDesc = res.ResultDesc
		intent.FailureReason = res.FailureReason()
		intent.ReceiptNumber = res.ReceiptNumber
		intent.PayerPhone = res.PayerPhone
		intent.SettledAt = res.SettledAt
		resolvedAt := res.ResolvedAt
		intent.ResolvedAt = &resolvedAt
		intent.UpdatedAt = res.ResolvedAt
	}
	return out, nil
}

type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, notFound(err, domain.ErrOrderNotFound)
	}
	return &order, nil
}

func (r *GormOrderRepository) ClaimForPayment(ctx context.Context, order *domain.Order, isNew bool) error {
	db := r.db.WithContext(ctx)
	now := time.Now()

	var claimed int64
	if isNew {
		row := *order
		row.Items = nil
		row.Status = domain.OrderPending
		row.PaymentInfo = domain.PaymentInfo{Type: domain.PaymentTypeMpesa, Status: domain.PaymentInitiating}
		row.CreatedAt = now
		row.UpdatedAt = now
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if result.Error != nil {
			return result.Error
		}
		claimed = result.RowsAffected
	} else {
		// An order is free unless it is paid, claimed, or has a pending
		// linked intent. Claims older than domain.ClaimTimeout are abandoned.
		result := db.Model(&domain.Order{}).
			Where("id = ?", order.ID).
			Where(
				db.Where("payment_status IS NULL OR payment_status NOT IN ?", []domain.PaymentStatus{
					domain.PaymentPending, domain.PaymentSucceeded, domain.PaymentInitiating,
				}).
					Or("payment_status = ? AND (payment_intent_id IS NULL OR payment_intent_id = '')", domain.PaymentPending).
					Or("payment_status = ? AND updated_at < ?", domain.PaymentInitiating, now.Add(-domain.ClaimTimeout)),
			).
			Updates(map[string]interface{}{
				"payment_status": domain.PaymentInitiating,
				"updated_at":     now,
			})
		if result.Error != nil {
			return result.Error
		}
		claimed = result.RowsAffected
	}
	if claimed == 1 {
		return nil
	}

	current, err := r.FindByID(ctx, order.ID)
	if err == nil && current.IsPaid() {
		return domain.ErrOrderAlreadyPaid
	}
	return domain.ErrPaymentInProgress
}

func (r *GormOrderRepository) ReleaseClaim(ctx context.Context, order *domain.Order, isNew bool) error {
	scope := r.db.WithContext(ctx).Where("id = ? AND payment_status = ?", order.ID, domain.PaymentInitiating)
	if isNew {
		return scope.Delete(&domain.Order{}).Error
	}
	previous := order.PaymentInfo.Status
	if previous == domain.PaymentInitiating {
		// Taken over from an abandoned claim; nothing is in flight.
		previous = ""
	}
	return scope.Model(&domain.Order{}).Updates(map[string]interface{}{
		"payment_status": previous,
		"updated_at":     time.Now(),
	}).Error
}

type GormCallbackLogRepository struct {
	db *gorm.DB
}

func NewGormCallbackLogRepository(db *gorm.DB) *GormCallbackLogRepository {
	return &GormCallbackLogRepository{db: db}
}

func (r *GormCallbackLogRepository) Create(ctx context.Context, entry *domain.CallbackLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *GormCallbackLogRepository) FindByCorrelationID(ctx context.Context, id string) ([]domain.CallbackLog, error) {
	var logs []domain.CallbackLog
	err := r.db.WithContext(ctx).
		Where("checkout_request_id = ? OR merchant_request_id = ?", id, id).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
