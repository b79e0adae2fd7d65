package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskmind-backend/internal/respond"
)

// Handlers serves the account endpoints.
type Handlers struct {
	Users    UserStore
	Secret   []byte
	TokenTTL time.Duration
	Log      *zap.Logger
}

type authResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h Handlers) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Timezone string `json:"timezone"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		name := strings.TrimSpace(body.Name)
		email := NormalizeEmail(body.Email)
		if name == "" || email == "" || body.Password == "" {
			respond.BadRequest(w, "name, email & password required")
			return
		}

		hash, err := HashPassword(body.Password)
		if err != nil {
			h.Log.Warn("hash password", zap.Error(err))
			respond.ServerError(w)
			return
		}

		tz := strings.TrimSpace(body.Timezone)
		if tz == "" {
			tz = DefaultTimezone
		}
		u := &User{
			ID:           uuid.NewString(),
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Timezone:     tz,
			CreatedAt:    time.Now().UTC(),
		}
		if err := h.Users.CreateUser(r.Context(), u); err != nil {
			if errors.Is(err, ErrEmailTaken) {
				respond.Error(w, http.StatusConflict, "Email already registered")
				return
			}
			h.Log.Warn("create user", zap.Error(err))
			respond.ServerError(w)
			return
		}

		h.issue(w, http.StatusCreated, u)
	}
}

func (h Handlers) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		u, err := h.Users.UserByEmail(r.Context(), NormalizeEmail(body.Email))
		if errors.Is(err, ErrUserNotFound) || (err == nil && !CheckPassword(u.PasswordHash, body.Password)) {
			respond.Unauthorized(w, "Invalid credentials")
			return
		}
		if err != nil {
			h.Log.Warn("load user by email", zap.Error(err))
			respond.ServerError(w)
			return
		}

		h.issue(w, http.StatusOK, u)
	}
}

func (h Handlers) issue(w http.ResponseWriter, status int, u *User) {
	token, err := GenerateToken(h.Secret, u.ID, h.TokenTTL)
	if err != nil {
		h.Log.Warn("sign token", zap.Error(err))
		respond.ServerError(w)
		return
	}
	respond.JSON(w, status, authResponse{Token: token, User: u})
}

func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			respond.Unauthorized(w, "Unauthorized")
			return
		}
		respond.OK(w, u)
	}
}
