package tasks

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("task not found")
	ErrInvalid  = errors.New("invalid task")
)

// ValidationError is a client mistake; its text is safe to return as-is.
type ValidationError string

func (e ValidationError) Error() string        { return string(e) }
func (e ValidationError) Is(target error) bool { return target == ErrInvalid }

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Subtask struct {
	Title string `json:"title" bson:"title"`
	Done  bool   `json:"done" bson:"done"`
}

// Task is serialized with the field names the web client reads.
type Task struct {
	ID          string     `json:"_id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	Subtasks    []Subtask  `json:"subtasks"`
	AIGenerated bool       `json:"aiGenerated"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Patch holds the fields of a partial update; nil means "leave as is".
type Patch struct {
	Title        *string
	Description  *string
	Status       *Status
	Priority     *Priority
	DueDate      *time.Time
	ClearDueDate bool
	Subtasks     *[]Subtask
	AIGenerated  *bool
}

// Fields lists the JSON names of the fields the patch touches.
func (p Patch) Fields() []string {
	var out []string
	if p.Title != nil {
		out = append(out, "title")
	}
	if p.Description != nil {
		out = append(out, "description")
	}
	if p.Status != nil {
		out = append(out, "status")
	}
	if p.Priority != nil {
		out = append(out, "priority")
	}
	if p.DueDate != nil || p.ClearDueDate {
		out = append(out, "dueDate")
	}
	if p.Subtasks != nil {
		out = append(out, "subtasks")
	}
	if p.AIGenerated != nil {
		out = append(out, "aiGenerated")
	}
	return out
}

const (
	FilterActive    = "active"
	FilterCompleted = "completed"
)

// Filter narrows List. Status is FilterActive, FilterCompleted or empty;
// Query matches title or description case-insensitively.
type Filter struct {
	Status string
	Query  string
}

// Prepare fills defaults and validates a task about to be created.
func (t *Task) Prepare() error {
	if t.Title == "" {
		return ValidationError("Title is required")
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if !t.Status.Valid() {
		return ValidationError("Invalid status")
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !t.Priority.Valid() {
		return ValidationError("Invalid priority")
	}
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
	}
	return nil
}

func (p Patch) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return ValidationError("Title is required")
	}
	if p.Status != nil && !p.Status.Valid() {
		return ValidationError("Invalid status")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return ValidationError("Invalid priority")
	}
	return nil
}
