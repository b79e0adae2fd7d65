package ai

import (
	"encoding/json"
	"strings"
)

// BuildTaskPrompt renders the single user message sent to the model.
// The requester name is embedded as a JSON string so it reads as data; the
// goal is quoted verbatim and is fully user controlled.
func BuildTaskPrompt(requesterName, goal string) string {
	name, _ := json.Marshal(requesterName)

	var b strings.Builder

	b.WriteString(taskPromptRole)
	b.WriteString("\n\n")

	b.WriteString(`User context: { "name": `)
	b.Write(name)
	b.WriteString(" }.\n\n")

	b.WriteString(`Create a concise task plan for: "`)
	b.WriteString(goal)
	b.WriteString("\"\n\n")

	b.WriteString(taskPromptSchema)
	b.WriteString("\n\n")

	b.WriteString(taskPromptNoFence)

	return b.String()
}
