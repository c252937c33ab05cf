package repository

import (
	"context"
	"time"

	"fabro-storefront/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AdminUserRepository interface {
	Upsert(ctx context.Context, admin *model.AdminUser) error
	FindByEmail(ctx context.Context, email string) (*model.AdminUser, error)
}

type adminUserRepoImpl struct {
	db *gorm.DB
}

func NewAdminUserRepository(db *gorm.DB) AdminUserRepository {
	return &adminUserRepoImpl{db: db}
}

// Upsert keeps the existing id and rotates the password hash on a repeated email.
func (r *adminUserRepoImpl) Upsert(ctx context.Context, admin *model.AdminUser) error {
	now := time.Now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"password_hash", "updated_at"}),
		}).
		Create(admin).Error
}

func (r *adminUserRepoImpl) FindByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	var admin model.AdminUser
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&admin).Error
	if err != nil {
		return nil, err
	}

	return &admin, nil
}
