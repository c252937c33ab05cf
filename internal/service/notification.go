package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fabro-storefront/internal/client"
	"fabro-storefront/internal/dto"
	"fabro-storefront/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const bestEffortTimeout = 15 * time.Second

type NotificationService interface {
	SendOrderConfirmation(ctx context.Context, orderID string) (*dto.NotificationResult, error)
	WhatsAppLink(ctx context.Context, orderID string) (*dto.WhatsAppLinkResponse, error)
	// ConfirmInBackground sends the confirmation without holding up the caller and only
	// logs failures.
	ConfirmInBackground(ctx context.Context, orderID string)
	// Wait blocks until background sends have finished or ctx is done.
	Wait(ctx context.Context) error
}

type notificationServiceImpl struct {
	emailSender    client.EmailSender
	orderRepo      repository.OrderRepository
	businessNumber string
	storeBaseURL   string
	background     errgroup.Group
	logger         *zap.Logger
}

func NewNotificationService(
	emailSender client.EmailSender,
	orderRepo repository.OrderRepository,
	businessNumber string,
	storeBaseURL string,
	logger *zap.Logger,
) NotificationService {
	return &notificationServiceImpl{
		emailSender:    emailSender,
		orderRepo:      orderRepo,
		businessNumber: businessNumber,
		storeBaseURL:   storeBaseURL,
		logger:         logger,
	}
}

// SendOrderConfirmation emails the customer once per order; later calls report skipped.
func (s *notificationServiceImpl) SendOrderConfirmation(ctx context.Context, orderID string) (*dto.NotificationResult, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, validationErr("orderId is required")
	}

	order, err := s.orderRepo.FindByID(ctx, nil, orderID)
	if err != nil {
		return nil, storeErr("load order", err)
	}
	if order.NotifiedAt != nil {
		return &dto.NotificationResult{Success: true, Skipped: true}, nil
	}
	if order.Customer == nil || order.Customer.Email == "" {
		return nil, validationErr("order %s has no customer email", order.OrderNumber)
	}

	html, err := renderConfirmationEmail(order, trackingURL(s.storeBaseURL, order.OrderNumber))
	if err != nil {
		return nil, err
	}

	messageID, err := s.emailSender.SendEmail(ctx, &client.EmailMessage{
		To:      order.Customer.Email,
		Subject: confirmationSubject(order),
		HTML:    html,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	// the email is already out; a failed stamp only risks a duplicate later
	if _, err := s.orderRepo.MarkNotified(ctx, nil, order.ID, time.Now().UTC()); err != nil {
		s.logger.Error("stamp notified_at",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("order confirmation sent",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("message_id", messageID),
	)

	return &dto.NotificationResult{Success: true, MessageID: messageID}, nil
}

func (s *notificationServiceImpl) WhatsAppLink(ctx context.Context, orderID string) (*dto.WhatsAppLinkResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, nil, orderID)
	if err != nil {
		return nil, storeErr("load order", err)
	}

	text := renderWhatsAppMessage(order)
	return &dto.WhatsAppLinkResponse{
		URL:     whatsAppURL(s.businessNumber, text),
		Message: text,
	}, nil
}

func (s *notificationServiceImpl) ConfirmInBackground(ctx context.Context, orderID string) {
	ctx = context.WithoutCancel(ctx)
	s.background.Go(func() error {
		ctx, cancel := context.WithTimeout(ctx, bestEffortTimeout)
		defer cancel()

		if _, err := s.SendOrderConfirmation(ctx, orderID); err != nil {
			s.logger.Warn("order confirmation not sent",
				zap.String("order_id", orderID),
				zap.Error(err),
			)
		}
		return nil
	})
}

func (s *notificationServiceImpl) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = s.background.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for background notifications: %w", ctx.Err())
	}
}
