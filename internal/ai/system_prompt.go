package ai

// Fixed parts of the task-plan instruction. The model is asked for a bare
// JSON object; everything around it is treated as noise by the extractor.
const (
	taskPromptRole = `You are a helpful productivity assistant. Respond with VALID JSON ONLY (no extra text).`

	taskPromptSchema = `Return only a JSON object with keys:
- title (string)
- description (string)
- priority (one of "low","medium","high","urgent")
- estimatedEffortHours (number)
- subtasks (array of short strings)`

	taskPromptNoFence = `Do not include any commentary or markdown code fences. Output only the JSON object.`
)

// DraftFields lists the output keys the instruction demands, in order.
var DraftFields = []string{"title", "description", "priority", "estimatedEffortHours", "subtasks"}
