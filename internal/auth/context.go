package auth

import "context"

type contextKey struct{}

// Actor identifies the authenticated account for a request. Core operations
// take explicit actor parameters; this context only carries identity from
// the session middleware to the handlers.
type Actor struct {
	AccountID int64
	Role      string
	Email     string
	Username  string
	SessionID int64
}

// Recipient returns the identifier notifications for this actor are
// addressed to: email for parents, username for kids.
func (a Actor) Recipient() string {
	if a.Role == "kid" {
		return a.Username
	}
	return a.Email
}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(contextKey{}).(Actor)
	return a, ok
}

func AccountID(ctx context.Context) int64 {
	a, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return a.AccountID
}

func IsParent(ctx context.Context) bool {
	a, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return a.Role == "parent"
}
