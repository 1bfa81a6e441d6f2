package domain

import (
	"strings"
	"time"
)

type User struct {
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return NewValidationError("username is required")
	}
	if strings.TrimSpace(u.Name) == "" {
		return NewValidationError("name is required")
	}
	if !strings.Contains(u.Email, "@") {
		return NewValidationError("email %q is invalid", u.Email)
	}
	return nil
}

type UserFilter struct {
	Usernames []string
}

func (f UserFilter) Matches(u User) bool {
	if len(f.Usernames) == 0 {
		return true
	}
	for _, name := range f.Usernames {
		if name == u.Username {
			return true
		}
	}
	return false
}

// Profile is a user together with their listings and booking activity.
type Profile struct {
	User            User   `json:"user"`
	Tools           []Tool `json:"tools"`
	RentalCount     int    `json:"rental_count"`
	RequestCount    int    `json:"request_count"`
	PendingRequests int    `json:"pending_requests"`
}
