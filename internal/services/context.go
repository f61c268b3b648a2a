package services

import (
	"context"

	"github.com/ortelius/tenancy-backend/model"
)

type contextKey struct{ name string }

var userKey = &contextKey{"user"}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user stored by WithUser.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

func actorID(ctx context.Context) string {
	if u, ok := UserFromContext(ctx); ok {
		return u.Key
	}
	return ""
}
