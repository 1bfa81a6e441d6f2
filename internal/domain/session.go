package domain

import (
	"context"
	"time"
)

// Session is the authenticated caller of one request.
type Session struct {
	Username  string
	Token     string
	RequestID string
	IssuedAt  time.Time
}

type sessionKey struct{}

func NewSessionContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
