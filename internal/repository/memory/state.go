package memory

import (
	"sort"

	"toolshare-backend/internal/domain"
)

// Snapshot is the full store content, one slice per collection, ordered by key.
type Snapshot struct {
	Users    []domain.User    `json:"users"`
	Tools    []domain.Tool    `json:"tools"`
	Bookings []domain.Booking `json:"bookings"`
	Swaps    []domain.Swap    `json:"swaps"`
}

type state struct {
	users    map[string]domain.User
	tools    map[int64]domain.Tool
	bookings map[int64]domain.Booking
	swaps    map[int64]domain.Swap
}

func newState() state {
	return state{
		users:    make(map[string]domain.User),
		tools:    make(map[int64]domain.Tool),
		bookings: make(map[int64]domain.Booking),
		swaps:    make(map[int64]domain.Swap),
	}
}

func (s state) clone() state {
	cp := newState()
	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.tools {
		cp.tools[k] = v
	}
	for k, v := range s.bookings {
		cp.bookings[k] = v
	}
	for k, v := range s.swaps {
		cp.swaps[k] = cloneSwap(v)
	}
	return cp
}

func cloneSwap(s domain.Swap) domain.Swap {
	if s.AcceptedDate != nil {
		at := *s.AcceptedDate
		s.AcceptedDate = &at
	}
	return s
}

func (s state) snapshot() Snapshot {
	snap := Snapshot{
		Users:    make([]domain.User, 0, len(s.users)),
		Tools:    make([]domain.Tool, 0, len(s.tools)),
		Bookings: make([]domain.Booking, 0, len(s.bookings)),
		Swaps:    make([]domain.Swap, 0, len(s.swaps)),
	}
	for _, u := range s.users {
		snap.Users = append(snap.Users, u)
	}
	for _, t := range s.tools {
		snap.Tools = append(snap.Tools, t)
	}
	for _, b := range s.bookings {
		snap.Bookings = append(snap.Bookings, b)
	}
	for _, sw := range s.swaps {
		snap.Swaps = append(snap.Swaps, cloneSwap(sw))
	}
	sort.Slice(snap.Users, func(i, j int) bool { return snap.Users[i].Username < snap.Users[j].Username })
	sort.Slice(snap.Tools, func(i, j int) bool { return snap.Tools[i].ID < snap.Tools[j].ID })
	sort.Slice(snap.Bookings, func(i, j int) bool { return snap.Bookings[i].ID < snap.Bookings[j].ID })
	sort.Slice(snap.Swaps, func(i, j int) bool { return snap.Swaps[i].ID < snap.Swaps[j].ID })
	return snap
}

func stateFromSnapshot(snap Snapshot) state {
	s := newState()
	for _, u := range snap.Users {
		s.users[u.Username] = u
	}
	for _, t := range snap.Tools {
		s.tools[t.ID] = t
	}
	for _, b := range snap.Bookings {
		s.bookings[b.ID] = b
	}
	for _, sw := range snap.Swaps {
		s.swaps[sw.ID] = cloneSwap(sw)
	}
	return s
}

// nextID implements max(existing)+1, or 1 for an empty collection.
func nextID[V any](m map[int64]V) int64 {
	var highest int64
	for id := range m {
		if id > highest {
			highest = id
		}
	}
	return highest + 1
}
