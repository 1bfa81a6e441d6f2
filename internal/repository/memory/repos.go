package memory

import (
	"context"
	"sort"

	"toolshare-backend/internal/domain"
)

type userRepository struct{ tx *txRepos }

func (r userRepository) Create(ctx context.Context, u *domain.User) error {
	if err := r.tx.beginWrite(); err != nil {
		return err
	}
	if err := u.Validate(); err != nil {
		return err
	}
	if _, exists := r.tx.state.users[u.Username]; exists {
		return domain.NewConflictError("username %q is taken", u.Username)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.tx.now
	}
	r.tx.state.users[u.Username] = *u
	return nil
}

func (r userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, ok := r.tx.state.users[username]
	if !ok {
		return nil, domain.NewNotFoundError("user %q not found", username)
	}
	return &u, nil
}

func (r userRepository) FindWhere(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.tx.state.users {
		if filter.Matches(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

type toolRepository struct{ tx *txRepos }

func (r toolRepository) Create(ctx context.Context, t *domain.Tool) error {
	if err := r.tx.beginWrite(); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if _, ok := r.tx.state.users[t.OwnerUsername]; !ok {
		return domain.NewNotFoundError("owner %q not found", t.OwnerUsername)
	}
	t.ID = nextID(r.tx.state.tools)
	t.Version = 1
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.tx.now
	}
	r.tx.state.tools[t.ID] = *t
	return nil
}

func (r toolRepository) GetByID(ctx context.Context, id int64) (*domain.Tool, error) {
	t, ok := r.tx.state.tools[id]
	if !ok {
		return nil, domain.NewNotFoundError("tool %d not found", id)
	}
	return &t, nil
}

// GetForUpdate needs no extra locking here: the store lock is held for the
// whole transaction.
func (r toolRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Tool, error) {
	return r.GetByID(ctx, id)
}

func (r toolRepository) FindWhere(ctx context.Context, filter domain.ToolFilter) ([]domain.Tool, error) {
	var out []domain.Tool
	for _, t := range r.tx.state.tools {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r toolRepository) UpdateFields(ctx context.Context, id int64, patch domain.ToolPatch) (*domain.Tool, error) {
	if err := r.tx.beginWrite(); err != nil {
		return nil, err
	}
	t, ok := r.tx.state.tools[id]
	if !ok {
		return nil, domain.NewNotFoundError("tool %d not found", id)
	}
	if patch.ExpectedVersion != 0 && patch.ExpectedVersion != t.Version {
		return nil, domain.NewConflictError("tool %d is at version %d, expected %d", id, t.Version, patch.ExpectedVersion)
	}
	if patch.Available != nil {
		t.Available = *patch.Available
	}
	t.Version++
	r.tx.state.tools[id] = t
	return &t, nil
}

type bookingRepository struct{ tx *txRepos }

func (r bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	if err := r.tx.beginWrite(); err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return err
	}
	if _, ok := r.tx.state.tools[b.ToolID]; !ok {
		return domain.NewNotFoundError("tool %d not found", b.ToolID)
	}
	b.ID = nextID(r.tx.state.bookings)
	b.Version = 1
	if b.CreatedAt.IsZero() {
		b.CreatedAt = r.tx.now
	}
	b.UpdatedAt = b.CreatedAt
	r.tx.state.bookings[b.ID] = *b
	return nil
}

func (r bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	b, ok := r.tx.state.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking %d not found", id)
	}
	return &b, nil
}

func (r bookingRepository) FindWhere(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range r.tx.state.bookings {
		if filter.Matches(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r bookingRepository) UpdateFields(ctx context.Context, id int64, patch domain.BookingPatch) (*domain.Booking, error) {
	if err := r.tx.beginWrite(); err != nil {
		return nil, err
	}
	b, ok := r.tx.state.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking %d not found", id)
	}
	if patch.ExpectedVersion != 0 && patch.ExpectedVersion != b.Version {
		return nil, domain.NewConflictError("booking %d is at version %d, expected %d", id, b.Version, patch.ExpectedVersion)
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, domain.NewValidationError("status %q is invalid", *patch.Status)
		}
		b.Status = *patch.Status
	}
	b.Version++
	b.UpdatedAt = r.tx.now
	r.tx.state.bookings[id] = b
	return &b, nil
}

type swapRepository struct{ tx *txRepos }

func (r swapRepository) Create(ctx context.Context, s *domain.Swap) error {
	if err := r.tx.beginWrite(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	s.ID = nextID(r.tx.state.swaps)
	s.Version = 1
	if s.ProposedDate.IsZero() {
		s.ProposedDate = r.tx.now
	}
	r.tx.state.swaps[s.ID] = cloneSwap(*s)
	return nil
}

func (r swapRepository) GetByID(ctx context.Context, id int64) (*domain.Swap, error) {
	s, ok := r.tx.state.swaps[id]
	if !ok {
		return nil, domain.NewNotFoundError("swap %d not found", id)
	}
	s = cloneSwap(s)
	return &s, nil
}

func (r swapRepository) FindWhere(ctx context.Context, filter domain.SwapFilter) ([]domain.Swap, error) {
	var out []domain.Swap
	for _, s := range r.tx.state.swaps {
		if filter.Matches(s) {
			out = append(out, cloneSwap(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r swapRepository) UpdateFields(ctx context.Context, id int64, patch domain.SwapPatch) (*domain.Swap, error) {
	if err := r.tx.beginWrite(); err != nil {
		return nil, err
	}
	s, ok := r.tx.state.swaps[id]
	if !ok {
		return nil, domain.NewNotFoundError("swap %d not found", id)
	}
	if patch.ExpectedVersion != 0 && patch.ExpectedVersion != s.Version {
		return nil, domain.NewConflictError("swap %d is at version %d, expected %d", id, s.Version, patch.ExpectedVersion)
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, domain.NewValidationError("status %q is invalid", *patch.Status)
		}
		s.Status = *patch.Status
	}
	if patch.AcceptedDate != nil {
		at := *patch.AcceptedDate
		s.AcceptedDate = &at
	}
	s.Version++
	r.tx.state.swaps[id] = s
	out := cloneSwap(s)
	return &out, nil
}
