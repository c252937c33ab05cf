package repository

import (
	"context"

	"fabro-storefront/internal/model"

	"gorm.io/gorm"
)

type StatusHistoryRepository interface {
	Append(ctx context.Context, tx *gorm.DB, entry *model.OrderStatusHistory) error
	ListByOrder(ctx context.Context, orderID string) ([]model.OrderStatusHistory, error)
}

type statusHistoryRepoImpl struct {
	db *gorm.DB
}

func NewStatusHistoryRepository(db *gorm.DB) StatusHistoryRepository {
	return &statusHistoryRepoImpl{db: db}
}

func (r *statusHistoryRepoImpl) Append(ctx context.Context, tx *gorm.DB, entry *model.OrderStatusHistory) error {
	return conn(r.db, tx).WithContext(ctx).Create(entry).Error
}

// ListByOrder returns transitions oldest first. ulid ids break ties within one timestamp.
func (r *statusHistoryRepoImpl) ListByOrder(ctx context.Context, orderID string) ([]model.OrderStatusHistory, error) {
	var entries []model.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("changed_at").
		Order("id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}
