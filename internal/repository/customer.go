package repository

import (
	"context"
	"time"

	"fabro-storefront/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository interface {
	Upsert(ctx context.Context, tx *gorm.DB, customer *model.Customer) error
	FindByEmail(ctx context.Context, tx *gorm.DB, email string) (*model.Customer, error)
}

type customerRepoImpl struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepoImpl{
		db: db,
	}
}

// Upsert inserts the customer or, when the email already exists, overwrites name and phone.
// customer.ID is only used for a fresh insert; read the row back to learn the stored id.
func (r *customerRepoImpl) Upsert(ctx context.Context, tx *gorm.DB, customer *model.Customer) error {
	now := time.Now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	return conn(r.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "phone", "updated_at"}),
		}).
		Create(customer).Error
}

func (r *customerRepoImpl) FindByEmail(ctx context.Context, tx *gorm.DB, email string) (*model.Customer, error) {
	var customer model.Customer
	err := conn(r.db, tx).WithContext(ctx).
		Where("email = ?", email).
		First(&customer).Error
	if err != nil {
		return nil, err
	}

	return &customer, nil
}
