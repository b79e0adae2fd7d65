package auth

import (
	"net/http"

	"go.uber.org/zap"

	"taskmind-backend/internal/analytics"
	"taskmind-backend/internal/respond"
)

func LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Tokens are stateless; the client drops its copy.
		respond.OK(w, map[string]any{"ok": true})
	}
}

// DeleteAccountHandler purges the user's data, then the account itself.
func DeleteAccountHandler(users UserStore, purgers []DataPurger, events *analytics.Logger, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			respond.Unauthorized(w, "Unauthorized")
			return
		}

		for _, p := range purgers {
			if err := p.DeleteForUser(r.Context(), uid); err != nil {
				log.Warn("purge user data", zap.String("user_id", uid), zap.Error(err))
				respond.ServerError(w)
				return
			}
		}

		if err := users.DeleteUser(r.Context(), uid); err != nil {
			log.Warn("delete account", zap.String("user_id", uid), zap.Error(err))
			respond.ServerError(w)
			return
		}

		// Recorded after the wipe so the deletion itself stays on record.
		env := analytics.FromRequest(r)
		env.UserID = uid
		events.Log(r.Context(), env, analytics.EventAccountDeleted, map[string]any{}, "")

		respond.OK(w, map[string]any{"ok": true})
	}
}
