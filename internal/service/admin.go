package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fabro-storefront/internal/auth"
	"fabro-storefront/internal/dto"
	"fabro-storefront/internal/model"
	"fabro-storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AdminService interface {
	// EnsureAdmin creates the admin account or rotates its password.
	EnsureAdmin(ctx context.Context, email, password string) error
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
}

type adminServiceImpl struct {
	adminRepo repository.AdminUserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewAdminService(
	adminRepo repository.AdminUserRepository,
	jwtSecret string,
	tokenTTL time.Duration,
	logger *zap.Logger,
) AdminService {
	return &adminServiceImpl{
		adminRepo: adminRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

func (s *adminServiceImpl) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return validationErr("admin email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	err = s.adminRepo.Upsert(ctx, &model.AdminUser{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return storeErr("upsert admin user", err)
	}

	s.logger.Info("admin account ready", zap.String("email", email))
	return nil
}

func (s *adminServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if req == nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, validationErr("email and password are required")
	}

	admin, err := s.adminRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, storeErr("load admin user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrUnauthorized
	}

	token, expiresAt, err := auth.IssueAdminToken(s.jwtSecret, admin.ID, admin.Email, s.tokenTTL, time.Now())
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{Token: token, ExpiresAt: expiresAt}, nil
}
