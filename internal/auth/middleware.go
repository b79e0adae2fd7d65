package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"taskmind-backend/internal/analytics"
	"taskmind-backend/internal/respond"
)

type ctxKey string

const userKey ctxKey = "user"

type Middleware struct {
	secret []byte
	users  UserStore
	log    *zap.Logger
}

func New(secret []byte, users UserStore, log *zap.Logger) Middleware {
	if log == nil {
		log = zap.NewNop()
	}
	return Middleware{secret: secret, users: users, log: log}
}

func (m Middleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if h == "" {
			respond.Unauthorized(w, "No auth header")
			return
		}
		if !strings.HasPrefix(h, "Bearer ") {
			respond.Unauthorized(w, "Invalid token")
			return
		}

		userID, err := ParseToken(m.secret, strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			respond.Unauthorized(w, "Invalid token")
			return
		}

		u, err := m.users.UserByID(r.Context(), userID)
		if errors.Is(err, ErrUserNotFound) {
			respond.Unauthorized(w, "User not found")
			return
		}
		if err != nil {
			m.log.Warn("load user for token", zap.String("user_id", userID), zap.Error(err))
			respond.ServerError(w)
			return
		}

		ctx := WithUser(r.Context(), u)
		next(w, r.WithContext(ctx))
	}
}

// WithUser stores u in ctx and tags the analytics context with its id.
func WithUser(ctx context.Context, u *User) context.Context {
	ctx = context.WithValue(ctx, userKey, u)
	return analytics.WithUserID(ctx, u.ID)
}

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey).(*User)
	return u, ok && u != nil
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return "", false
	}
	return u.ID, true
}
