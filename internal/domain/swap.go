package domain

import (
	"strings"
	"time"
)

type SwapStatus string

const (
	SwapStatusPending  SwapStatus = "Pending"
	SwapStatusAccepted SwapStatus = "Accepted"
	SwapStatusDeclined SwapStatus = "Declined"
)

func (s SwapStatus) Valid() bool {
	return s == SwapStatusPending || s == SwapStatusAccepted || s == SwapStatusDeclined
}

type SwapAction string

const (
	SwapActionAccept  SwapAction = "Accept"
	SwapActionDecline SwapAction = "Decline"
)

func ParseSwapAction(value string) (SwapAction, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "accept":
		return SwapActionAccept, nil
	case "decline":
		return SwapActionDecline, nil
	}
	return "", NewValidationError("unknown swap action %q", value)
}

func (a SwapAction) Result() SwapStatus {
	if a == SwapActionAccept {
		return SwapStatusAccepted
	}
	return SwapStatusDeclined
}

type Swap struct {
	ID               int64      `json:"id"`
	ProposerUsername string     `json:"proposer_username"`
	ProposerToolID   int64      `json:"proposer_tool_id"`
	ReceiverUsername string     `json:"receiver_username"`
	ReceiverToolID   int64      `json:"receiver_tool_id"`
	Status           SwapStatus `json:"status"`
	ProposedDate     time.Time  `json:"proposed_date"`
	AcceptedDate     *time.Time `json:"accepted_date,omitempty"`
	Version          int64      `json:"version"`
}

func (s *Swap) Validate() error {
	if strings.TrimSpace(s.ProposerUsername) == "" || strings.TrimSpace(s.ReceiverUsername) == "" {
		return NewValidationError("proposer and receiver are required")
	}
	if s.ProposerUsername == s.ReceiverUsername {
		return NewValidationError("a swap needs two different users")
	}
	if s.ProposerToolID <= 0 || s.ReceiverToolID <= 0 {
		return NewValidationError("both tool ids are required")
	}
	if !s.Status.Valid() {
		return NewValidationError("status %q is invalid", s.Status)
	}
	return nil
}

type SwapDirection string

const (
	SwapDirectionIncoming SwapDirection = "incoming"
	SwapDirectionOutgoing SwapDirection = "outgoing"
	SwapDirectionAll      SwapDirection = "all"
)

type SwapFilter struct {
	ProposerUsername string
	ReceiverUsername string
	// Participant matches swaps where the user is on either side.
	Participant string
	Statuses    []SwapStatus
}

func (f SwapFilter) Matches(s Swap) bool {
	if f.ProposerUsername != "" && s.ProposerUsername != f.ProposerUsername {
		return false
	}
	if f.ReceiverUsername != "" && s.ReceiverUsername != f.ReceiverUsername {
		return false
	}
	if f.Participant != "" && s.ProposerUsername != f.Participant && s.ReceiverUsername != f.Participant {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, st := range f.Statuses {
			if s.Status == st {
				return true
			}
		}
		return false
	}
	return true
}

type SwapPatch struct {
	Status          *SwapStatus
	AcceptedDate    *time.Time
	ExpectedVersion int64
}
