package service

import (
	"context"
	"time"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/metrics"
	"toolshare-backend/internal/repository"
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (token string, expiresAt time.Time, err error)
	Authenticate(ctx context.Context, token string) (*domain.Session, error)
}

type UserService interface {
	Register(ctx context.Context, username, name, email, password string) (*domain.User, error)
	GetProfile(ctx context.Context, username string) (*domain.Profile, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

type ToolService interface {
	AddListing(ctx context.Context, owner string, tool *domain.Tool) (*domain.Tool, error)
	GetTool(ctx context.Context, id int64) (*domain.Tool, error)
	Search(ctx context.Context, filter domain.ToolFilter, page, pageSize int) ([]domain.Tool, int, error)
	Facets(ctx context.Context) (*domain.ToolFacets, error)
	ListByOwner(ctx context.Context, owner string) ([]domain.Tool, error)
	SetAvailability(ctx context.Context, owner string, toolID int64, available bool) (*domain.Tool, error)
}

type AvailabilityService interface {
	IsAvailable(ctx context.Context, toolID int64, startDate, endDate string) (bool, error)
	// Conflicts lists the blocking bookings that overlap the range.
	Conflicts(ctx context.Context, toolID int64, startDate, endDate string) ([]domain.Booking, error)
	// Evaluate runs the availability check against repos, so callers can hold
	// it inside the unit of work that creates the booking.
	Evaluate(ctx context.Context, repos repository.Repos, tool *domain.Tool, r domain.DateRange) (bool, []domain.Booking, error)
}

type BookingService interface {
	Quote(ctx context.Context, toolID int64, startDate, endDate string) (*domain.Quote, error)
	CreateBooking(ctx context.Context, renter string, toolID int64, startDate, endDate string) (*domain.Booking, error)
	Transition(ctx context.Context, bookingID int64, action domain.BookingAction, actor string) (*domain.Booking, error)
	GetBooking(ctx context.Context, actor string, bookingID int64) (*domain.Booking, error)
	ListRentals(ctx context.Context, renter string) ([]domain.Booking, error)
	ListRequests(ctx context.Context, owner string) ([]domain.Booking, error)
	ListToolBookings(ctx context.Context, owner string, toolID int64) ([]domain.Booking, error)
}

type SwapService interface {
	ProposeSwap(ctx context.Context, proposer string, proposerToolID int64, receiver string, receiverToolID int64) (*domain.Swap, error)
	RespondToSwap(ctx context.Context, swapID int64, action domain.SwapAction, actor string) (*domain.Swap, error)
	ListSwaps(ctx context.Context, username string, direction domain.SwapDirection) ([]domain.Swap, error)
	GetSwap(ctx context.Context, actor string, swapID int64) (*domain.Swap, error)
}

type EmailService interface {
	// Booking Notifications
	SendBookingRequestNotification(ctx context.Context, owner, renter *domain.User, tool *domain.Tool, booking *domain.Booking) error
	SendBookingStatusNotification(ctx context.Context, to *domain.User, actor string, tool *domain.Tool, booking *domain.Booking) error
	SendReturnReminder(ctx context.Context, renter *domain.User, tool *domain.Tool, booking *domain.Booking) error

	// Swap Notifications
	SendSwapProposalNotification(ctx context.Context, receiver *domain.User, proposer *domain.User, swap *domain.Swap) error
	SendSwapResponseNotification(ctx context.Context, proposer *domain.User, swap *domain.Swap) error
}

type options struct {
	now      func() time.Time
	recorder metrics.Recorder
}

// Option configures the services built by this package.
type Option func(*options)

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithRecorder(rec metrics.Recorder) Option {
	return func(o *options) {
		if rec != nil {
			o.recorder = rec
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:      func() time.Time { return time.Now().UTC() },
		recorder: metrics.Noop{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// finish observes the operation and logs its exit at the right level.
func (o options) finish(ctx context.Context, method string, start time.Time, err error) {
	o.recorder.Observe(ctx, method, err == nil, time.Since(start))
	logExit(method, err)
}

func logExit(method string, err error) {
	if err != nil {
		logger.ExitMethodWithError(method, err, domain.KindOf(err) != nil)
		return
	}
	logger.ExitMethod(method)
}

func (o options) statusChanged(entity, to string) {
	if tc, ok := o.recorder.(metrics.TransitionCounter); ok {
		tc.StatusChanged(entity, to)
	}
}
