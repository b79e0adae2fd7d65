package ai

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// OutcomeOK labels a successful generation for observers.
const OutcomeOK = "ok"

// ConfigProvider supplies the credential and model identifier. It is asked
// again on every generation so operators can rotate either without a
// restart.
type ConfigProvider interface {
	ModelConfig() ModelConfig
}

// ConfigFunc adapts a plain function to ConfigProvider.
type ConfigFunc func() ModelConfig

func (f ConfigFunc) ModelConfig() ModelConfig { return f() }

// StaticConfig always returns the same settings.
type StaticConfig ModelConfig

func (s StaticConfig) ModelConfig() ModelConfig { return ModelConfig(s) }

// Invoker is the upstream model API.
type Invoker interface {
	Generate(ctx context.Context, cfg ModelConfig, prompt string) (Result, error)
	ListModels(ctx context.Context, apiKey string) (*ModelCatalog, error)
}

// Observer receives one call per generation with OutcomeOK or the failure
// kind.
type Observer interface {
	ObserveGeneration(outcome string, elapsed time.Duration)
}

type Generator struct {
	client   Invoker
	config   ConfigProvider
	log      *zap.Logger
	observer Observer
}

func NewGenerator(client Invoker, config ConfigProvider, log *zap.Logger, observer Observer) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		client:   client,
		config:   config,
		log:      log,
		observer: observer,
	}
}

// GenerateTaskDraft turns a free-form goal into a structured draft. There
// is no fallback draft: any failure is returned to the caller as one of the
// typed errors in this package.
func (g *Generator) GenerateTaskDraft(ctx context.Context, requesterName, goal string) (TaskDraft, error) {
	start := time.Now()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ai.generate_task_draft")
	defer span.End()

	cfg := g.config.ModelConfig()
	prompt := BuildTaskPrompt(requesterName, goal)

	res, err := g.client.Generate(ctx, cfg, prompt)
	if err != nil {
		return TaskDraft{}, g.failed(span, start, err)
	}

	text := NormalizeResponse(res.Body)
	draft, err := ExtractTaskDraft(text)
	if err != nil {
		return TaskDraft{}, g.failed(span, start, err)
	}

	span.SetAttributes(attribute.Int("ai.draft.fields", len(draft.fields)))
	g.observe(OutcomeOK, time.Since(start))
	return draft, nil
}

// ListModels runs discovery with the current credential.
func (g *Generator) ListModels(ctx context.Context) (*ModelCatalog, error) {
	return g.client.ListModels(ctx, g.config.ModelConfig().APIKey)
}

func (g *Generator) failed(span trace.Span, start time.Time, err error) error {
	kind := KindOf(err)

	span.RecordError(err)
	span.SetStatus(codes.Error, kind)

	fields := []zap.Field{zap.String("kind", kind), zap.Error(err)}
	var (
		cfgErr *ConfigError
		nsErr  *ModelNotSupportedError
		upErr  *UpstreamError
		outErr *InvalidModelOutputError
	)
	switch {
	case errors.As(err, &cfgErr):
		fields = append(fields, zap.String("missing", cfgErr.Missing))
		if cfgErr.Models != nil {
			fields = append(fields, zap.Any("models", cfgErr.Models))
		}
	case errors.As(err, &nsErr):
		fields = append(fields, zap.String("model", nsErr.Model), zap.String("raw", nsErr.RawBody))
	case errors.As(err, &upErr):
		fields = append(fields, zap.Int("status", upErr.StatusCode), zap.String("raw", upErr.RawBody))
	case errors.As(err, &outErr):
		fields = append(fields, zap.String("raw_generated", outErr.Text))
	}
	g.log.Warn("task draft generation failed", fields...)

	g.observe(kind, time.Since(start))
	return err
}

func (g *Generator) observe(outcome string, elapsed time.Duration) {
	if g.observer != nil {
		g.observer.ObserveGeneration(outcome, elapsed)
	}
}

// KindOf returns the failure kind of err, or "unknown".
func KindOf(err error) string {
	var f Failure
	if errors.As(err, &f) {
		return f.Kind()
	}
	return "unknown"
}
