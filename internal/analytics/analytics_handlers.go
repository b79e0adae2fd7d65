package analytics

import (
	"encoding/json"
	"net/http"

	"taskmind-backend/internal/respond"
)

// AppOpenedHandler records app_opened, the basic "user opened the app"
// signal reported by the client.
func AppOpenedHandler(l *Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			respond.Unauthorized(w, "Unauthorized")
			return
		}

		var body struct {
			ColdStart bool   `json:"cold_start"`
			From      string `json:"from"` // push/deeplink/icon/unknown
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		env := FromRequest(r)
		env.UserID = uid

		props := map[string]any{
			"cold_start": body.ColdStart,
			"from":       body.From,
		}

		l.Log(r.Context(), env, EventAppOpened, props, SourceEventKeyFromRequest(r))

		respond.OK(w, map[string]any{"ok": true})
	}
}
