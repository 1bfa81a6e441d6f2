package jobs

import (
	"context"
	"time"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository"
)

// AvailabilityDrift is a tool whose manual flag disagrees with its bookings.
type AvailabilityDrift struct {
	ToolID  int64
	Owner   string
	Flag    bool
	Derived bool
}

// FindAvailabilityDrift compares every tool's manual flag with whether a
// Pending or Approved booking covers day.
func (jr *JobRunner) FindAvailabilityDrift(ctx context.Context, day time.Time) ([]AvailabilityDrift, error) {
	today := day.UTC().Format(domain.DateLayout)
	var drift []AvailabilityDrift
	err := jr.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		tools, err := repos.Tools().FindWhere(ctx, domain.ToolFilter{})
		if err != nil {
			return err
		}
		active, err := repos.Bookings().FindWhere(ctx, domain.BookingFilter{
			Statuses: []domain.BookingStatus{domain.BookingStatusPending, domain.BookingStatusApproved},
		})
		if err != nil {
			return err
		}
		booked := make(map[int64]bool)
		for _, b := range active {
			if b.StartDate <= today && today <= b.EndDate {
				booked[b.ToolID] = true
			}
		}
		for _, t := range tools {
			derived := !booked[t.ID]
			if derived != t.Available {
				drift = append(drift, AvailabilityDrift{ToolID: t.ID, Owner: t.OwnerUsername, Flag: t.Available, Derived: derived})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drift, nil
}

// ReportAvailabilityDrift logs tools whose flag disagrees with today's bookings.
// The flag itself is never changed.
func (jr *JobRunner) ReportAvailabilityDrift() error {
	return jr.runWithRecovery("ReportAvailabilityDrift", func(ctx context.Context) error {
		drift, err := jr.FindAvailabilityDrift(ctx, jr.now())
		if err != nil {
			return err
		}
		for _, d := range drift {
			logger.InfoContext(ctx, "Availability flag drift", "tool_id", d.ToolID, "owner", d.Owner, "flag", d.Flag, "derived", d.Derived)
		}
		logger.InfoContext(ctx, "Availability drift report", "tools", len(drift))
		return nil
	})
}
