package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultTimeout = 30 * time.Second

	tracerName = "taskmind-backend/ai"

	// CatalogMissingCredential is the catalog error when discovery ran
	// without a credential.
	CatalogMissingCredential = "missing credential"
)

// Sampling and output limits for task drafting. Low temperature keeps the
// JSON shape stable between calls.
const (
	draftTemperature     = 0.2
	draftTopP            = 0.9
	draftTopK            = 40
	draftMaxOutputTokens = 800
	draftCandidateCount  = 1
)

var safetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// ModelConfig is read from the ConfigProvider on every call.
type ModelConfig struct {
	APIKey string
	Model  string
}

// ModelInfo is one entry of the model listing.
type ModelInfo struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName,omitempty"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods,omitempty"`
}

// ModelCatalog is the discovery result surfaced to operators. A listing the
// upstream refused is reported through Error and Status instead of Models.
type ModelCatalog struct {
	Models []ModelInfo `json:"models"`
	Error  string      `json:"error,omitempty"`
	Status int         `json:"status,omitempty"`
}

// Result is a successful generate call.
type Result struct {
	StatusCode int
	Body       []byte
}

func (r Result) Text() string { return string(r.Body) }

// GeminiClient talks to the generativelanguage REST API. It keeps no per
// request state; credential and model arrive with every call.
type GeminiClient struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
}

func NewGeminiClient(baseURL string, timeout time.Duration, tracer trace.Tracer) *GeminiClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewGeminiClientWithHTTP(baseURL, &http.Client{Timeout: timeout}, tracer)
}

func NewGeminiClientWithHTTP(baseURL string, httpClient *http.Client, tracer trace.Tracer) *GeminiClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &GeminiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tracer:  tracer,
	}
}

// ListModels performs the discovery call. Only transport failures are
// returned as errors; an upstream refusal is folded into the catalog.
func (c *GeminiClient) ListModels(ctx context.Context, apiKey string) (*ModelCatalog, error) {
	if strings.TrimSpace(apiKey) == "" {
		return &ModelCatalog{Error: CatalogMissingCredential}, nil
	}

	ctx, span := c.tracer.Start(ctx, "gemini.list_models")
	defer span.End()

	endpoint := fmt.Sprintf("%s/v1/models?key=%s", c.baseURL, url.QueryEscape(apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, c.fail(span, &TransportError{Op: "list models", Err: redact(err)})
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, c.fail(span, &TransportError{Op: "list models", Err: err})
	}
	span.SetAttributes(attribute.Int("http.status_code", status))

	if status < 200 || status > 299 {
		return &ModelCatalog{Error: string(body), Status: status}, nil
	}

	var payload struct {
		Models []ModelInfo `json:"models"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return &ModelCatalog{Error: string(body), Status: status}, nil
	}
	if payload.Models == nil {
		payload.Models = []ModelInfo{}
	}
	return &ModelCatalog{Models: payload.Models}, nil
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig generationConfig  `json:"generationConfig"`
	SafetySettings   []safetySetting   `json:"safetySettings"`
}

type generateContent struct {
	Role  string         `json:"role"`
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	CandidateCount  int     `json:"candidateCount"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

func newGenerateRequest(prompt string) generateRequest {
	safety := make([]safetySetting, 0, len(safetyCategories))
	for _, c := range safetyCategories {
		safety = append(safety, safetySetting{Category: c, Threshold: "BLOCK_MEDIUM_AND_ABOVE"})
	}
	return generateRequest{
		Contents: []generateContent{{
			Role:  "user",
			Parts: []generatePart{{Text: prompt}},
		}},
		GenerationConfig: generationConfig{
			Temperature:     draftTemperature,
			TopP:            draftTopP,
			TopK:            draftTopK,
			MaxOutputTokens: draftMaxOutputTokens,
			CandidateCount:  draftCandidateCount,
		},
		SafetySettings: safety,
	}
}

// Generate issues exactly one generateContent call; it never retries.
// A missing credential fails before any network traffic, a missing model
// or a 404 triggers one discovery call for diagnostics.
func (c *GeminiClient) Generate(ctx context.Context, cfg ModelConfig, prompt string) (Result, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return Result{}, &ConfigError{Missing: MissingCredential}
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		models, err := c.ListModels(ctx, apiKey)
		if err != nil {
			return Result{}, err
		}
		return Result{}, &ConfigError{Missing: MissingModel, Models: models}
	}
	modelID := strings.TrimPrefix(model, "models/")

	ctx, span := c.tracer.Start(ctx, "gemini.generate_content",
		trace.WithAttributes(attribute.String("gemini.model", modelID)))
	defer span.End()

	payload, err := json.Marshal(newGenerateRequest(prompt))
	if err != nil {
		return Result{}, c.fail(span, &TransportError{Op: "encode request", Err: err})
	}

	endpoint := fmt.Sprintf("%s/v1/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(modelID), url.QueryEscape(apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, c.fail(span, &TransportError{Op: "generate content", Err: redact(err)})
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		return Result{}, c.fail(span, &TransportError{Op: "generate content", Err: err})
	}
	span.SetAttributes(attribute.Int("http.status_code", status))

	if status == http.StatusNotFound {
		models, lerr := c.ListModels(ctx, apiKey)
		if lerr != nil {
			return Result{}, c.fail(span, lerr)
		}
		return Result{}, c.fail(span, &ModelNotSupportedError{Model: model, RawBody: string(body), Models: models})
	}
	if status < 200 || status > 299 {
		return Result{}, c.fail(span, &UpstreamError{StatusCode: status, RawBody: string(body)})
	}

	return Result{StatusCode: status, Body: body}, nil
}

func (c *GeminiClient) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, redact(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *GeminiClient) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// redact strips the query string from url errors so the credential never
// reaches logs or API responses.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if u, perr := url.Parse(ue.URL); perr == nil {
			u.RawQuery = ""
			ue.URL = u.String()
		} else {
			ue.URL = ""
		}
	}
	return err
}
