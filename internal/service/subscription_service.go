package service

import (
	"context"
	"strings"

	"inkwell/internal/email"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

const SubscribeSuccessMessage = "Thank you for subscribing! Please check your email."

type SubscriptionService struct {
	repo       repository.SubscriberRepository
	sender     email.Sender
	channelURL string
}

func NewSubscriptionService(repo repository.SubscriberRepository, sender email.Sender, channelURL string) *SubscriptionService {
	return &SubscriptionService{repo: repo, sender: sender, channelURL: channelURL}
}

// Subscribe records the address and mails a confirmation. Existing subscribers are mailed again.
// Delivery errors are returned unwrapped so callers can surface the transport message.
func (s *SubscriptionService) Subscribe(ctx context.Context, address string) (*models.Subscriber, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, models.NewValidationError("Email is required")
	}
	if err := validation.ValidateEmail(address); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	sub, _, err := s.repo.GetOrCreate(ctx, address)
	if err != nil {
		return nil, err
	}

	msg, err := email.SubscriptionConfirmation(sub.Email, s.channelURL)
	if err != nil {
		return nil, err
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubscriptionService) CountSubscribers(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
