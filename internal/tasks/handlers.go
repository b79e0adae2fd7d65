package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskmind-backend/internal/ai"
	"taskmind-backend/internal/analytics"
	"taskmind-backend/internal/auth"
	"taskmind-backend/internal/respond"
)

// DraftGenerator is satisfied by *ai.Generator.
type DraftGenerator interface {
	GenerateTaskDraft(ctx context.Context, requesterName, goal string) (ai.TaskDraft, error)
}

// TaskHandler serves the AI-assisted task creation.
type TaskHandler struct {
	AI     DraftGenerator
	Store  Store
	Events *analytics.Logger
	Log    *zap.Logger
}

func New(gen DraftGenerator, store Store, events *analytics.Logger, log *zap.Logger) *TaskHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskHandler{
		AI:     gen,
		Store:  store,
		Events: events,
		Log:    log,
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Save   bool   `json:"save"`
}

// GenerateTask drafts a task from a free-form goal. With save set, the
// draft is also stored as a new task for the caller.
func (h *TaskHandler) GenerateTask(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Unauthorized(w, "Unauthorized")
		return
	}

	var body generateRequest
	_ = json.NewDecoder(r.Body).Decode(&body)
	if strings.TrimSpace(body.Prompt) == "" {
		respond.BadRequest(w, "Missing prompt")
		return
	}

	// The upstream call is paid for; a client hanging up does not abort it.
	// The model client's own timeout still bounds it.
	ctx := context.WithoutCancel(r.Context())

	draft, err := h.AI.GenerateTaskDraft(ctx, u.Name, body.Prompt)
	if err != nil {
		h.Events.FromHTTP(r, analytics.EventAITaskFailed, map[string]any{
			"kind": ai.KindOf(err),
		})
		respond.JSON(w, http.StatusInternalServerError, ai.FailurePayload(err))
		return
	}

	h.Events.FromHTTP(r, analytics.EventAITaskGenerated, map[string]any{
		"subtasks_count": len(draft.Subtasks),
		"has_priority":   draft.Has("priority"),
		"saved":          body.Save,
	})

	if !body.Save {
		respond.OK(w, map[string]any{"ai": draft})
		return
	}

	now := time.Now().UTC()
	t := FromDraft(draft, body.Prompt)
	t.ID = uuid.NewString()
	t.UserID = u.ID
	t.CreatedAt = now
	t.UpdatedAt = &now
	if err := t.Prepare(); err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	if err := h.Store.Create(ctx, &t); err != nil {
		h.Log.Warn("save generated task", zap.String("user_id", u.ID), zap.Error(err))
		respond.ServerError(w)
		return
	}

	h.Events.FromHTTP(r, analytics.EventTaskCreated, map[string]any{
		"task_id":        t.ID,
		"priority":       t.Priority,
		"has_due_date":   false,
		"subtasks_count": len(t.Subtasks),
		"ai_generated":   true,
	})

	respond.Created(w, map[string]any{"ai": draft, "task": t})
}
