package ai

import (
	"errors"
	"net/http"

	"taskmind-backend/internal/respond"
)

// FailurePayload renders a pipeline error as the JSON body clients expect.
// Every failure is a server-side 500; the body says which one it was.
func FailurePayload(err error) map[string]any {
	var (
		cfgErr *ConfigError
		nsErr  *ModelNotSupportedError
		upErr  *UpstreamError
		trErr  *TransportError
		outErr *InvalidModelOutputError
	)

	switch {
	case errors.As(err, &cfgErr):
		if cfgErr.Missing == MissingCredential {
			return map[string]any{"message": "GEMINI_API_KEY not set in env"}
		}
		return map[string]any{
			"message": "GEMINI_MODEL not configured. Available models:",
			"models":  cfgErr.Models,
		}
	case errors.As(err, &nsErr):
		return map[string]any{
			"message": "Model " + nsErr.Model + " not found or not supported by generateContent. See available models.",
			"raw":     nsErr.RawBody,
			"models":  nsErr.Models,
		}
	case errors.As(err, &upErr):
		return map[string]any{
			"message": "Gemini API error",
			"detail":  upErr.RawBody,
			"status":  upErr.StatusCode,
		}
	case errors.As(err, &trErr):
		return map[string]any{
			"message": "Gemini API unreachable",
			"detail":  trErr.Error(),
		}
	case errors.As(err, &outErr):
		return map[string]any{
			"message":      "Invalid model output; expected JSON",
			"rawGenerated": outErr.Text,
		}
	default:
		return map[string]any{"message": "Server error"}
	}
}

// ModelsHandler serves the discovery result so operators can pick a model
// identifier.
func ModelsHandler(gen *Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		models, err := gen.ListModels(r.Context())
		if err != nil {
			respond.JSON(w, http.StatusInternalServerError, FailurePayload(err))
			return
		}
		if models.Error == CatalogMissingCredential {
			respond.JSON(w, http.StatusInternalServerError, FailurePayload(&ConfigError{Missing: MissingCredential}))
			return
		}
		respond.OK(w, models)
	}
}
