package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "Pending"
	BookingStatusApproved  BookingStatus = "Approved"
	BookingStatusDeclined  BookingStatus = "Declined"
	BookingStatusCancelled BookingStatus = "Cancelled"
	BookingStatusReturned  BookingStatus = "Returned"
	BookingStatusCompleted BookingStatus = "Completed"
)

// Blocking reports whether a booking in this status holds the tool's dates.
func (s BookingStatus) Blocking() bool {
	return s == BookingStatusPending || s == BookingStatusApproved
}

func (s BookingStatus) Terminal() bool {
	return s == BookingStatusDeclined || s == BookingStatusCancelled || s == BookingStatusCompleted
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusApproved, BookingStatusDeclined,
		BookingStatusCancelled, BookingStatusReturned, BookingStatusCompleted:
		return true
	}
	return false
}

type BookingAction string

const (
	BookingActionApprove  BookingAction = "Approve"
	BookingActionDecline  BookingAction = "Decline"
	BookingActionCancel   BookingAction = "Cancel"
	BookingActionReturn   BookingAction = "Return"
	BookingActionComplete BookingAction = "Complete"
)

// ParseBookingAction accepts any letter case. "Confirm" is an alias of Complete.
func ParseBookingAction(value string) (BookingAction, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "approve":
		return BookingActionApprove, nil
	case "decline":
		return BookingActionDecline, nil
	case "cancel":
		return BookingActionCancel, nil
	case "return":
		return BookingActionReturn, nil
	case "complete", "confirm":
		return BookingActionComplete, nil
	}
	return "", NewValidationError("unknown booking action %q", value)
}

type Role string

const (
	RoleOwner    Role = "owner"
	RoleRenter   Role = "renter"
	RoleReceiver Role = "receiver"
)

type bookingEdge struct {
	to   BookingStatus
	role Role
}

var bookingTransitions = map[BookingStatus]map[BookingAction]bookingEdge{
	BookingStatusPending: {
		BookingActionApprove: {to: BookingStatusApproved, role: RoleOwner},
		BookingActionDecline: {to: BookingStatusDeclined, role: RoleOwner},
		BookingActionCancel:  {to: BookingStatusCancelled, role: RoleRenter},
	},
	BookingStatusApproved: {
		BookingActionReturn: {to: BookingStatusReturned, role: RoleRenter},
	},
	BookingStatusReturned: {
		BookingActionComplete: {to: BookingStatusCompleted, role: RoleOwner},
	},
}

// NextBookingStatus looks up the edge for action out of from. ok is false when
// the action is not legal in that state.
func NextBookingStatus(from BookingStatus, action BookingAction) (to BookingStatus, role Role, ok bool) {
	edge, ok := bookingTransitions[from][action]
	if !ok {
		return "", "", false
	}
	return edge.to, edge.role, true
}

// AllowedBookingActions lists the actions a party with role may take from status.
func AllowedBookingActions(status BookingStatus, role Role) []BookingAction {
	var actions []BookingAction
	for _, action := range []BookingAction{
		BookingActionApprove, BookingActionDecline, BookingActionCancel,
		BookingActionReturn, BookingActionComplete,
	} {
		if edge, ok := bookingTransitions[status][action]; ok && edge.role == role {
			actions = append(actions, action)
		}
	}
	return actions
}

type Booking struct {
	ID             int64           `json:"id"`
	ToolID         int64           `json:"tool_id"`
	OwnerUsername  string          `json:"owner_username"`
	RenterUsername string          `json:"renter_username"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	Status         BookingStatus   `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int64           `json:"version"`
}

func (b *Booking) Range() (DateRange, error) {
	return NewDateRange(b.StartDate, b.EndDate)
}

// RoleOf returns the role username plays on the booking, or "" for strangers.
func (b *Booking) RoleOf(username string) Role {
	switch username {
	case b.OwnerUsername:
		return RoleOwner
	case b.RenterUsername:
		return RoleRenter
	}
	return ""
}

func (b *Booking) Validate() error {
	if b.ToolID <= 0 {
		return NewValidationError("tool_id is required")
	}
	if strings.TrimSpace(b.RenterUsername) == "" {
		return NewValidationError("renter_username is required")
	}
	if strings.TrimSpace(b.OwnerUsername) == "" {
		return NewValidationError("owner_username is required")
	}
	if !b.Status.Valid() {
		return NewValidationError("status %q is invalid", b.Status)
	}
	_, err := b.Range()
	return err
}

type BookingFilter struct {
	ToolID         int64
	RenterUsername string
	OwnerUsername  string
	Statuses       []BookingStatus
	// EndOnOrBefore keeps bookings whose end date is on or before this day.
	EndOnOrBefore string
}

func (f BookingFilter) Matches(b Booking) bool {
	if f.ToolID != 0 && b.ToolID != f.ToolID {
		return false
	}
	if f.RenterUsername != "" && b.RenterUsername != f.RenterUsername {
		return false
	}
	if f.OwnerUsername != "" && b.OwnerUsername != f.OwnerUsername {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if b.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.EndOnOrBefore != "" && b.EndDate > f.EndOnOrBefore {
		return false
	}
	return true
}

type BookingPatch struct {
	Status          *BookingStatus
	ExpectedVersion int64
}

// Quote is the price breakdown shown before a booking is requested.
type Quote struct {
	ToolID       int64           `json:"tool_id"`
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
	DurationDays int             `json:"duration_days"`
	DailyRate    decimal.Decimal `json:"daily_rate"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Deposit      decimal.Decimal `json:"deposit"`
}

// BookingCost is max(1, days) * daily rate.
func BookingCost(dailyRate decimal.Decimal, r DateRange) decimal.Decimal {
	return dailyRate.Mul(decimal.NewFromInt(int64(r.Days())))
}
