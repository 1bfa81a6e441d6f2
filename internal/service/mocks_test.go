package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/service"
)

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendBookingRequestNotification(ctx context.Context, owner, renter *domain.User, tool *domain.Tool, booking *domain.Booking) error {
	args := m.Called(ctx, owner, renter, tool, booking)
	return args.Error(0)
}

func (m *MockEmailService) SendBookingStatusNotification(ctx context.Context, to *domain.User, actor string, tool *domain.Tool, booking *domain.Booking) error {
	args := m.Called(ctx, to, actor, tool, booking)
	return args.Error(0)
}

func (m *MockEmailService) SendReturnReminder(ctx context.Context, renter *domain.User, tool *domain.Tool, booking *domain.Booking) error {
	args := m.Called(ctx, renter, tool, booking)
	return args.Error(0)
}

func (m *MockEmailService) SendSwapProposalNotification(ctx context.Context, receiver *domain.User, proposer *domain.User, swap *domain.Swap) error {
	args := m.Called(ctx, receiver, proposer, swap)
	return args.Error(0)
}

func (m *MockEmailService) SendSwapResponseNotification(ctx context.Context, proposer *domain.User, swap *domain.Swap) error {
	args := m.Called(ctx, proposer, swap)
	return args.Error(0)
}

// allowAll accepts every notification and answers with err.
func (m *MockEmailService) allowAll(err error) *MockEmailService {
	m.On("SendBookingRequestNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("SendBookingStatusNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("SendReturnReminder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("SendSwapProposalNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("SendSwapResponseNotification", mock.Anything, mock.Anything, mock.Anything).Return(err).Maybe()
	return m
}

// MockEmailSender
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, msg service.EmailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func userNamed(username string) interface{} {
	return mock.MatchedBy(func(u *domain.User) bool { return u != nil && u.Username == username })
}
