package service

import (
	"context"
	"strings"

	"fabro-storefront/internal/model"
	"fabro-storefront/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerInput struct {
	Name  string
	Email string
	Phone string
}

type CustomerService interface {
	// Resolve returns the customer for the email, creating it on first sight and
	// overwriting name and phone otherwise. A nil tx runs outside any transaction.
	Resolve(ctx context.Context, tx *gorm.DB, in CustomerInput) (*model.Customer, error)
}

type customerServiceImpl struct {
	customerRepo repository.CustomerRepository
}

func NewCustomerService(customerRepo repository.CustomerRepository) CustomerService {
	return &customerServiceImpl{
		customerRepo: customerRepo,
	}
}

func (s *customerServiceImpl) Resolve(ctx context.Context, tx *gorm.DB, in CustomerInput) (*model.Customer, error) {
	email := strings.TrimSpace(in.Email)
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.Phone)
	if email == "" || name == "" || phone == "" {
		return nil, validationErr("customer name, email and phone are required")
	}

	err := s.customerRepo.Upsert(ctx, tx, &model.Customer{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
		Phone: phone,
	})
	if err != nil {
		return nil, storeErr("upsert customer", err)
	}

	customer, err := s.customerRepo.FindByEmail(ctx, tx, email)
	if err != nil {
		return nil, storeErr("load customer", err)
	}
	return customer, nil
}
