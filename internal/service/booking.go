package service

import (
	"context"
	"strings"
	"time"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository"
)

type bookingService struct {
	store        repository.Store
	availability AvailabilityService
	emailSvc     EmailService
	opts         options
}

func NewBookingService(store repository.Store, availability AvailabilityService, emailSvc EmailService, opts ...Option) BookingService {
	return &bookingService{
		store:        store,
		availability: availability,
		emailSvc:     emailSvc,
		opts:         buildOptions(opts),
	}
}

func (s *bookingService) Quote(ctx context.Context, toolID int64, startDate, endDate string) (quote *domain.Quote, err error) {
	const method = "BookingService.Quote"
	logger.EnterMethod(method, "tool_id", toolID, "start", startDate, "end", endDate)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	r, err := domain.NewDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	err = s.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		tool, err := repos.Tools().GetByID(ctx, toolID)
		if err != nil {
			return err
		}
		quote = &domain.Quote{
			ToolID:       tool.ID,
			StartDate:    r.Start.Format(domain.DateLayout),
			EndDate:      r.End.Format(domain.DateLayout),
			DurationDays: r.Days(),
			DailyRate:    tool.DailyRate,
			TotalCost:    domain.BookingCost(tool.DailyRate, r),
			Deposit:      tool.Deposit,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

func (s *bookingService) CreateBooking(ctx context.Context, renter string, toolID int64, startDate, endDate string) (booking *domain.Booking, err error) {
	const method = "BookingService.CreateBooking"
	logger.EnterMethod(method, "renter", renter, "tool_id", toolID, "start", startDate, "end", endDate)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	if strings.TrimSpace(renter) == "" {
		return nil, domain.NewValidationError("renter_username is required")
	}
	r, err := domain.NewDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	var (
		tool        *domain.Tool
		owner, user *domain.User
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		tool, err = repos.Tools().GetForUpdate(ctx, toolID)
		if err != nil {
			return err
		}
		user, err = repos.Users().GetByUsername(ctx, renter)
		if err != nil {
			return err
		}
		if tool.OwnerUsername == renter {
			return domain.NewSelfBookingError("%s owns tool %d", renter, tool.ID)
		}
		ok, conflicts, err := s.availability.Evaluate(ctx, repos, tool, r)
		if err != nil {
			return err
		}
		if !ok {
			if len(conflicts) > 0 {
				return domain.NewNotAvailableError("tool %d is already booked for %s (booking %d)", tool.ID, r, conflicts[0].ID)
			}
			return domain.NewNotAvailableError("tool %d is not available", tool.ID)
		}

		booking = &domain.Booking{
			ToolID:         tool.ID,
			OwnerUsername:  tool.OwnerUsername,
			RenterUsername: renter,
			StartDate:      r.Start.Format(domain.DateLayout),
			EndDate:        r.End.Format(domain.DateLayout),
			TotalCost:      domain.BookingCost(tool.DailyRate, r),
			Status:         domain.BookingStatusPending,
			CreatedAt:      s.opts.now(),
		}
		if err := repos.Bookings().Create(ctx, booking); err != nil {
			return err
		}
		owner, _ = repos.Users().GetByUsername(ctx, tool.OwnerUsername)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Booking requested", "booking_id", booking.ID, "tool_id", tool.ID, "renter", renter, "total_cost", booking.TotalCost.StringFixed(2))
	s.opts.statusChanged("booking", string(booking.Status))
	if owner != nil {
		notify(ctx, "booking request", func() error {
			return s.emailSvc.SendBookingRequestNotification(ctx, owner, user, tool, booking)
		})
	}
	return booking, nil
}

// Transition applies action to the booking on behalf of actor. Strangers are
// rejected before the state is examined, so they learn nothing about it.
func (s *bookingService) Transition(ctx context.Context, bookingID int64, action domain.BookingAction, actor string) (booking *domain.Booking, err error) {
	const method = "BookingService.Transition"
	logger.EnterMethod(method, "booking_id", bookingID, "action", action, "actor", actor)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	var (
		tool       *domain.Tool
		recipients []*domain.User
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		current, err := repos.Bookings().GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		role := current.RoleOf(actor)
		if role == "" {
			return domain.NewUnauthorizedError("%s is not a party to booking %d", actor, bookingID)
		}
		next, required, ok := domain.NextBookingStatus(current.Status, action)
		if !ok {
			return domain.NewInvalidTransitionError("cannot %s a %s booking", action, current.Status)
		}
		if role != required {
			return domain.NewUnauthorizedError("only the %s may %s booking %d", required, action, bookingID)
		}

		booking, err = repos.Bookings().UpdateFields(ctx, bookingID, domain.BookingPatch{
			Status:          &next,
			ExpectedVersion: current.Version,
		})
		if err != nil {
			return err
		}

		tool, _ = repos.Tools().GetByID(ctx, booking.ToolID)
		other := booking.OwnerUsername
		if role == domain.RoleOwner {
			other = booking.RenterUsername
		}
		// completion goes to both parties
		names := []string{other}
		if next == domain.BookingStatusCompleted {
			names = append(names, actor)
		}
		for _, name := range names {
			if u, err := repos.Users().GetByUsername(ctx, name); err == nil {
				recipients = append(recipients, u)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Booking status changed", "booking_id", booking.ID, "status", booking.Status, "actor", actor)
	s.opts.statusChanged("booking", string(booking.Status))
	if tool != nil {
		for _, recipient := range recipients {
			notify(ctx, "booking status", func() error {
				return s.emailSvc.SendBookingStatusNotification(ctx, recipient, actor, tool, booking)
			})
		}
	}
	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, actor string, bookingID int64) (booking *domain.Booking, err error) {
	const method = "BookingService.GetBooking"
	logger.EnterMethod(method, "booking_id", bookingID, "actor", actor)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	err = s.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		b, err := repos.Bookings().GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.RoleOf(actor) == "" {
			return domain.NewUnauthorizedError("%s is not a party to booking %d", actor, bookingID)
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// ListRentals returns the bookings made by renter.
func (s *bookingService) ListRentals(ctx context.Context, renter string) ([]domain.Booking, error) {
	return s.list(ctx, "BookingService.ListRentals", domain.BookingFilter{RenterUsername: renter})
}

// ListRequests returns the bookings made on tools owned by owner.
func (s *bookingService) ListRequests(ctx context.Context, owner string) ([]domain.Booking, error) {
	return s.list(ctx, "BookingService.ListRequests", domain.BookingFilter{OwnerUsername: owner})
}

func (s *bookingService) ListToolBookings(ctx context.Context, owner string, toolID int64) (bookings []domain.Booking, err error) {
	const method = "BookingService.ListToolBookings"
	logger.EnterMethod(method, "owner", owner, "tool_id", toolID)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	err = s.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		tool, err := repos.Tools().GetByID(ctx, toolID)
		if err != nil {
			return err
		}
		if tool.OwnerUsername != owner {
			return domain.NewUnauthorizedError("%s does not own tool %d", owner, toolID)
		}
		bookings, err = repos.Bookings().FindWhere(ctx, domain.BookingFilter{ToolID: toolID})
		return err
	})
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *bookingService) list(ctx context.Context, method string, filter domain.BookingFilter) (bookings []domain.Booking, err error) {
	logger.EnterMethod(method, "renter", filter.RenterUsername, "owner", filter.OwnerUsername)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	if filter.RenterUsername == "" && filter.OwnerUsername == "" {
		return nil, domain.NewValidationError("username is required")
	}
	err = s.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		bookings, err = repos.Bookings().FindWhere(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// notify sends a best-effort notification; failures are logged only.
func notify(ctx context.Context, what string, send func() error) {
	if err := send(); err != nil {
		logger.WarnContext(ctx, "Notification failed", "notification", what, "error", err)
	}
}
