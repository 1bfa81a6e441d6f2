package service

import (
	"context"
	"time"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository"
)

// AvailabilityMode decides whether the owner's manual flag takes part in the check.
type AvailabilityMode string

const (
	// AvailabilityOverride requires the manual flag and no blocking overlap.
	AvailabilityOverride AvailabilityMode = "override"
	// AvailabilityDerived looks at bookings only.
	AvailabilityDerived AvailabilityMode = "derived"
)

type availabilityService struct {
	store repository.Store
	mode  AvailabilityMode
	opts  options
}

func NewAvailabilityService(store repository.Store, mode AvailabilityMode, opts ...Option) AvailabilityService {
	if mode != AvailabilityDerived {
		mode = AvailabilityOverride
	}
	return &availabilityService{store: store, mode: mode, opts: buildOptions(opts)}
}

func (s *availabilityService) IsAvailable(ctx context.Context, toolID int64, startDate, endDate string) (available bool, err error) {
	const method = "AvailabilityService.IsAvailable"
	logger.EnterMethod(method, "tool_id", toolID, "start", startDate, "end", endDate)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	r, err := domain.NewDateRange(startDate, endDate)
	if err != nil {
		return false, err
	}
	err = s.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		tool, err := repos.Tools().GetByID(ctx, toolID)
		if err != nil {
			return err
		}
		available, _, err = s.Evaluate(ctx, repos, tool, r)
		return err
	})
	return available, err
}

func (s *availabilityService) Conflicts(ctx context.Context, toolID int64, startDate, endDate string) (conflicts []domain.Booking, err error) {
	const method = "AvailabilityService.Conflicts"
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
		conflicts, err = blockingOverlaps(ctx, repos, tool.ID, r)
		return err
	})
	return conflicts, err
}

func (s *availabilityService) Evaluate(ctx context.Context, repos repository.Repos, tool *domain.Tool, r domain.DateRange) (bool, []domain.Booking, error) {
	conflicts, err := blockingOverlaps(ctx, repos, tool.ID, r)
	if err != nil {
		return false, nil, err
	}
	if s.mode == AvailabilityOverride && !tool.Available {
		return false, conflicts, nil
	}
	return len(conflicts) == 0, conflicts, nil
}

// blockingOverlaps returns the Pending and Approved bookings of the tool whose
// inclusive range shares a day with r.
func blockingOverlaps(ctx context.Context, repos repository.Repos, toolID int64, r domain.DateRange) ([]domain.Booking, error) {
	bookings, err := repos.Bookings().FindWhere(ctx, domain.BookingFilter{
		ToolID:   toolID,
		Statuses: []domain.BookingStatus{domain.BookingStatusPending, domain.BookingStatusApproved},
	})
	if err != nil {
		return nil, err
	}
	var overlaps []domain.Booking
	for _, b := range bookings {
		existing, err := b.Range()
		if err != nil {
			logger.Warn("Skipping booking with unreadable dates", "booking_id", b.ID, "error", err)
			continue
		}
		if existing.Overlaps(r) {
			overlaps = append(overlaps, b)
		}
	}
	return overlaps, nil
}
