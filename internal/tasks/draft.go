package tasks

import (
	"strings"

	"taskmind-backend/internal/ai"
)

// FromDraft turns a generated draft into an unsaved task. The goal text is
// the title of last resort and an unknown priority becomes medium.
func FromDraft(d ai.TaskDraft, goal string) Task {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = strings.TrimSpace(goal)
	}

	priority := Priority(strings.ToLower(strings.TrimSpace(d.Priority)))
	if !priority.Valid() {
		priority = PriorityMedium
	}

	subtasks := make([]Subtask, 0, len(d.Subtasks))
	for _, s := range d.Subtasks {
		if s = strings.TrimSpace(s); s != "" {
			subtasks = append(subtasks, Subtask{Title: s})
		}
	}

	return Task{
		Title:       title,
		Description: d.Description,
		Status:      StatusTodo,
		Priority:    priority,
		Subtasks:    subtasks,
		AIGenerated: true,
	}
}
