package jobs

import (
	"context"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository"
)

type reminder struct {
	booking domain.Booking
	renter  *domain.User
	tool    *domain.Tool
}

// SendReturnReminders emails renters whose approved booking ends today or earlier.
func (jr *JobRunner) SendReturnReminders() error {
	return jr.runWithRecovery("SendReturnReminders", func(ctx context.Context) error {
		today := jr.now().UTC().Format(domain.DateLayout)

		var due []reminder
		err := jr.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
			bookings, err := repos.Bookings().FindWhere(ctx, domain.BookingFilter{
				Statuses:      []domain.BookingStatus{domain.BookingStatusApproved},
				EndOnOrBefore: today,
			})
			if err != nil {
				return err
			}
			for _, b := range bookings {
				renter, err := repos.Users().GetByUsername(ctx, b.RenterUsername)
				if err != nil {
					logger.WarnContext(ctx, "Skipping reminder, renter missing", "booking_id", b.ID, "error", err)
					continue
				}
				tool, err := repos.Tools().GetByID(ctx, b.ToolID)
				if err != nil {
					logger.WarnContext(ctx, "Skipping reminder, tool missing", "booking_id", b.ID, "error", err)
					continue
				}
				due = append(due, reminder{booking: b, renter: renter, tool: tool})
			}
			return nil
		})
		if err != nil {
			return err
		}

		sent := 0
		for _, r := range due {
			if err := jr.services.Email.SendReturnReminder(ctx, r.renter, r.tool, &r.booking); err != nil {
				logger.WarnContext(ctx, "Failed to send return reminder", "booking_id", r.booking.ID, "renter", r.renter.Username, "error", err)
				continue
			}
			sent++
		}
		logger.InfoContext(ctx, "Return reminders sent", "due", len(due), "sent", sent)
		return nil
	})
}
