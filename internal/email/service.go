package email

import (
	"context"
	"fmt"
)

// Service composes order notification emails. Bodies are plain text; there
// is no template system here on purpose.
type Service struct {
	sender      Sender
	fromAddress string
	fromName    string
	storeName   string
}

// NewService creates a new email service.
func NewService(sender Sender, fromAddress, fromName, storeName string) *Service {
	return &Service{
		sender:      sender,
		fromAddress: fromAddress,
		fromName:    fromName,
		storeName:   storeName,
	}
}

// SendOrderConfirmed sends an order confirmation email.
func (s *Service) SendOrderConfirmed(ctx context.Context, to, orderNumber string) error {
	return s.send(ctx, to,
		fmt.Sprintf("Your order %s is confirmed", orderNumber),
		fmt.Sprintf(
			"Thanks for shopping with %s!\n\nYour order %s has been confirmed and is being prepared.\n",
			s.storeName, orderNumber))
}

// SendOrderShipped sends a shipment notification with tracking details.
func (s *Service) SendOrderShipped(ctx context.Context, to, orderNumber, trackingNumber, carrier string) error {
	body := fmt.Sprintf("Good news! Your order %s has shipped.\n", orderNumber)
	if trackingNumber != "" {
		body += fmt.Sprintf("\nCarrier: %s\nTracking number: %s\n", carrier, trackingNumber)
	}
	return s.send(ctx, to, fmt.Sprintf("Your order %s has shipped", orderNumber), body)
}

// SendOrderCancelled sends a cancellation notice.
func (s *Service) SendOrderCancelled(ctx context.Context, to, orderNumber, reason string) error {
	body := fmt.Sprintf("Your order %s has been cancelled.\n", orderNumber)
	if reason != "" {
		body += fmt.Sprintf("\nReason: %s\n", reason)
	}
	body += "\nAny reserved items have been released and payment, if taken, will be refunded.\n"
	return s.send(ctx, to, fmt.Sprintf("Your order %s was cancelled", orderNumber), body)
}

func (s *Service) send(ctx context.Context, to, subject, body string) error {
	_, err := s.sender.Send(ctx, &Email{
		To:       []string{to},
		From:     s.fromAddress,
		FromName: s.fromName,
		Subject:  subject,
		TextBody: body,
	})
	return err
}
