package tasks

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskmind-backend/internal/analytics"
	"taskmind-backend/internal/auth"
	"taskmind-backend/internal/respond"
)

// taskInput is the body of POST /tasks.
type taskInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	DueDate     *string   `json:"dueDate"`
	Subtasks    []Subtask `json:"subtasks"`
	AIGenerated bool      `json:"aiGenerated"`
}

// patchInput is the body of PUT /tasks/{id}. DueDate stays raw so that an
// explicit null can clear it.
type patchInput struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Status      *Status         `json:"status"`
	Priority    *Priority       `json:"priority"`
	DueDate     json.RawMessage `json:"dueDate"`
	Subtasks    *[]Subtask      `json:"subtasks"`
	AIGenerated *bool           `json:"aiGenerated"`
}

// parseDueDate accepts RFC 3339 timestamps and plain dates.
func parseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	return nil, ValidationError("Invalid dueDate")
}

func (in patchInput) patch() (Patch, error) {
	p := Patch{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Subtasks:    in.Subtasks,
		AIGenerated: in.AIGenerated,
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}

	if len(in.DueDate) > 0 {
		var raw *string
		if err := json.Unmarshal(in.DueDate, &raw); err != nil {
			return Patch{}, ValidationError("Invalid dueDate")
		}
		if raw == nil {
			p.ClearDueDate = true
		} else {
			due, err := parseDueDate(*raw)
			if err != nil {
				return Patch{}, err
			}
			p.DueDate = due
			p.ClearDueDate = due == nil
		}
	}
	return p, p.Validate()
}

// -------------------------------
// HANDLERS
// -------------------------------

func GetTasksHandler(store Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			respond.Unauthorized(w, "Unauthorized")
			return
		}

		f := Filter{
			Status: r.URL.Query().Get("status"),
			Query:  r.URL.Query().Get("q"),
		}
		if f.Status != "" && f.Status != FilterActive && f.Status != FilterCompleted {
			respond.BadRequest(w, "status must be active or completed")
			return
		}

		result, err := store.List(r.Context(), uid, f)
		if err != nil {
			log.Warn("list tasks", zap.String("user_id", uid), zap.Error(err))
			respond.ServerError(w)
			return
		}
		respond.OK(w, result)
	}
}

func CreateTaskHandler(store Store, events *analytics.Logger, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			respond.Unauthorized(w, "Unauthorized")
			return
		}

		var body taskInput
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respond.BadRequest(w, "invalid json")
			return
		}

		now := time.Now().UTC()
		t := Task{
			ID:          uuid.NewString(),
			UserID:      uid,
			Title:       strings.TrimSpace(body.Title),
			Description: body.Description,
			Status:      body.Status,
			Priority:    body.Priority,
			Subtasks:    body.Subtasks,
			AIGenerated: body.AIGenerated,
			CreatedAt:   now,
			UpdatedAt:   &now,
		}
		if body.DueDate != nil {
			due, err := parseDueDate(*body.DueDate)
			if err != nil {
				respond.BadRequest(w, err.Error())
				return
			}
			t.DueDate = due
		}

		if err := t.Prepare(); err != nil {
			respond.BadRequest(w, err.Error())
			return
		}
		if err := store.Create(r.Context(), &t); err != nil {
			log.Warn("create task", zap.String("user_id", uid), zap.Error(err))
			respond.ServerError(w)
			return
		}

		events.FromHTTP(r, analytics.EventTaskCreated, map[string]any{
			"task_id":        t.ID,
			"priority":       t.Priority,
			"has_due_date":   t.DueDate != nil,
			"subtasks_count": len(t.Subtasks),
			"ai_generated":   t.AIGenerated,
		})

		respond.Created(w, t)
	}
}

func UpdateTaskHandler(store Store, events *analytics.Logger, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			respond.Unauthorized(w, "Unauthorized")
			return
		}
		id := r.PathValue("id")

		var body patchInput
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respond.BadRequest(w, "invalid json")
			return
		}
		p, err := body.patch()
		if err != nil {
			respond.BadRequest(w, err.Error())
			return
		}

		before, err := store.Get(r.Context(), uid, id)
		if errors.Is(err, ErrNotFound) {
			respond.NotFound(w)
			return
		}
		if err != nil {
			log.Warn("load task", zap.String("task_id", id), zap.Error(err))
			respond.ServerError(w)
			return
		}

		t, err := store.Update(r.Context(), uid, id, p)
		if errors.Is(err, ErrNotFound) {
			respond.NotFound(w)
			return
		}
		if err != nil {
			log.Warn("update task", zap.String("task_id", id), zap.Error(err))
			respond.ServerError(w)
			return
		}

		events.FromHTTP(r, analytics.EventTaskUpdated, map[string]any{
			"task_id": t.ID,
			"fields":  p.Fields(),
		})
		if t.Status == StatusDone && before.Status != StatusDone {
			events.FromHTTP(r, analytics.EventTaskCompleted, map[string]any{
				"task_id":      t.ID,
				"ai_generated": t.AIGenerated,
			})
		}

		respond.OK(w, t)
	}
}

func DeleteTaskHandler(store Store, events *analytics.Logger, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			respond.Unauthorized(w, "Unauthorized")
			return
		}
		id := r.PathValue("id")

		err := store.Delete(r.Context(), uid, id)
		if errors.Is(err, ErrNotFound) {
			respond.NotFound(w)
			return
		}
		if err != nil {
			log.Warn("delete task", zap.String("task_id", id), zap.Error(err))
			respond.ServerError(w)
			return
		}

		events.FromHTTP(r, analytics.EventTaskDeleted, map[string]any{"task_id": id})

		respond.OK(w, map[string]any{"message": "Deleted"})
	}
}
