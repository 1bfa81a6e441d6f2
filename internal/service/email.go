package service

import (
	"context"
	"fmt"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
)

// EmailMessage is one outgoing plain text / HTML email.
type EmailMessage struct {
	ToName    string
	ToEmail   string
	Subject   string
	PlainText string
	HTML      string
}

// EmailSender delivers a rendered message.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type emailService struct {
	sender EmailSender
}

func NewEmailService(sender EmailSender) EmailService {
	return &emailService{sender: sender}
}

func (s *emailService) SendBookingRequestNotification(ctx context.Context, owner, renter *domain.User, tool *domain.Tool, booking *domain.Booking) error {
	renterName := booking.RenterUsername
	if renter != nil {
		renterName = renter.Name
	}
	subject := fmt.Sprintf("New booking request: %s", tool.Title)
	body := fmt.Sprintf("Hello %s,\n\n%s would like to rent your %s from %s to %s for $%s.\n\nOpen your rental requests to approve or decline it.\n\nBest regards,\nThe ToolShare Team",
		owner.Name, renterName, tool.Title, booking.StartDate, booking.EndDate, booking.TotalCost.StringFixed(2))
	return s.send(ctx, owner, subject, body)
}

func (s *emailService) SendBookingStatusNotification(ctx context.Context, to *domain.User, actor string, tool *domain.Tool, booking *domain.Booking) error {
	subject := fmt.Sprintf("Booking %d for %s is now %s", booking.ID, tool.Title, booking.Status)
	body := fmt.Sprintf("Hello %s,\n\n%s changed booking %d (%s, %s to %s) to %s.\n\nBest regards,\nThe ToolShare Team",
		to.Name, actor, booking.ID, tool.Title, booking.StartDate, booking.EndDate, booking.Status)
	return s.send(ctx, to, subject, body)
}

func (s *emailService) SendReturnReminder(ctx context.Context, renter *domain.User, tool *domain.Tool, booking *domain.Booking) error {
	subject := fmt.Sprintf("Reminder: please return %s", tool.Title)
	body := fmt.Sprintf("Hello %s,\n\nYour rental of %s ends on %s. Please return it to %s and mark the booking as returned.\n\nBest regards,\nThe ToolShare Team",
		renter.Name, tool.Title, booking.EndDate, booking.OwnerUsername)
	return s.send(ctx, renter, subject, body)
}

func (s *emailService) SendSwapProposalNotification(ctx context.Context, receiver *domain.User, proposer *domain.User, swap *domain.Swap) error {
	proposerName := swap.ProposerUsername
	if proposer != nil {
		proposerName = proposer.Name
	}
	subject := "New tool swap proposal"
	body := fmt.Sprintf("Hello %s,\n\n%s proposed swapping their tool #%d for your tool #%d.\n\nBest regards,\nThe ToolShare Team",
		receiver.Name, proposerName, swap.ProposerToolID, swap.ReceiverToolID)
	return s.send(ctx, receiver, subject, body)
}

func (s *emailService) SendSwapResponseNotification(ctx context.Context, proposer *domain.User, swap *domain.Swap) error {
	subject := fmt.Sprintf("Your swap proposal was %s", swap.Status)
	body := fmt.Sprintf("Hello %s,\n\n%s has %s your proposal to swap tool #%d for tool #%d.\n\nBest regards,\nThe ToolShare Team",
		proposer.Name, swap.ReceiverUsername, swap.Status, swap.ProposerToolID, swap.ReceiverToolID)
	return s.send(ctx, proposer, subject, body)
}

func (s *emailService) send(ctx context.Context, to *domain.User, subject, body string) error {
	if to == nil || to.Email == "" {
		return fmt.Errorf("no recipient address for %q", subject)
	}
	return s.sender.Send(ctx, EmailMessage{
		ToName:    to.Name,
		ToEmail:   to.Email,
		Subject:   subject,
		PlainText: body,
	})
}

type logEmailSender struct{}

// NewLogEmailSender writes emails to the application log instead of delivering them.
func NewLogEmailSender() EmailSender {
	return logEmailSender{}
}

func (logEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	logger.InfoContext(ctx, "Email (log driver)", "to", msg.ToEmail, "subject", msg.Subject)
	logger.DebugContext(ctx, "Email body", "to", msg.ToEmail, "body", msg.PlainText)
	return nil
}
