package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type CtxKey string

const (
	ctxUserIDKey CtxKey = "analytics_user_id"
)

// Event names.
const (
	EventTaskCreated     = "task_created"
	EventTaskUpdated     = "task_updated"
	EventTaskCompleted   = "task_completed"
	EventTaskDeleted     = "task_deleted"
	EventAITaskGenerated = "ai_task_generated"
	EventAITaskFailed    = "ai_task_failed"
	EventAccountDeleted  = "account_deleted"
	EventAppOpened       = "app_opened"
)

// Envelope is what we store with every event.
type Envelope struct {
	UserID       string
	SessionID    string
	Platform     string
	AppVersion   string
	DeviceLocale string
	IPCountry    string
}

// FromRequest extracts event envelope fields from request.
// Backend-trustable fields only.
func FromRequest(r *http.Request) Envelope {
	platform := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Platform")))
	switch platform {
	case "ios", "android", "web":
	default:
		platform = "unknown"
	}

	locale := strings.TrimSpace(r.Header.Get("Accept-Language"))
	if locale == "" {
		locale = strings.TrimSpace(r.Header.Get("X-Device-Locale"))
	}

	// no geoip lookup, ip_country stays empty
	return Envelope{
		SessionID:    strings.TrimSpace(r.Header.Get("X-Session-Id")),
		Platform:     platform,
		AppVersion:   strings.TrimSpace(r.Header.Get("X-App-Version")),
		DeviceLocale: locale,
	}
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(ctxUserIDKey).(string)
	return uid, ok && uid != ""
}

// SourceEventKeyFromRequest returns the client-provided idempotency key, if
// any. Duplicate keys are ignored by the sinks.
func SourceEventKeyFromRequest(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("Idempotency-Key")); k != "" {
		return k
	}
	return strings.TrimSpace(r.Header.Get("X-Source-Event-Key"))
}

// Event is one stored analytics row.
type Event struct {
	Name           string
	Time           time.Time
	Envelope       Envelope
	SourceEventKey string
	Properties     json.RawMessage
}

// Sink persists events. Implementations drop duplicates of a non-empty
// SourceEventKey silently.
type Sink interface {
	Insert(ctx context.Context, ev Event) error
}

type Logger struct {
	sink Sink
	log  *zap.Logger
}

// NewLogger returns a Logger writing to sink. A nil sink discards events.
func NewLogger(sink Sink, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{sink: sink, log: log}
}

// Log records one event. It never fails the caller: problems are logged
// and swallowed. Callers pass sanitized props, never raw user text.
func (l *Logger) Log(ctx context.Context, env Envelope, eventName string, props any, sourceEventKey string) {
	if l == nil || l.sink == nil || eventName == "" {
		return
	}

	if env.UserID == "" {
		uid, ok := UserIDFromContext(ctx)
		if !ok {
			return
		}
		env.UserID = uid
	}

	b, err := json.Marshal(props)
	if err != nil {
		l.log.Warn("analytics props not serializable", zap.String("event", eventName), zap.Error(err))
		return
	}

	ev := Event{
		Name:           eventName,
		Time:           time.Now().UTC(),
		Envelope:       env,
		SourceEventKey: sourceEventKey,
		Properties:     b,
	}
	if err := l.sink.Insert(ctx, ev); err != nil {
		l.log.Warn("analytics insert failed", zap.String("event", eventName), zap.Error(err))
	}
}

// FromHTTP is the common case: envelope from r, user from ctx, key from the
// request headers.
func (l *Logger) FromHTTP(r *http.Request, eventName string, props any) {
	l.Log(r.Context(), FromRequest(r), eventName, props, SourceEventKeyFromRequest(r))
}
