package ai

import (
	"fmt"
)

// Failure kinds, used as metric labels and log fields.
const (
	KindConfiguration     = "configuration"
	KindModelNotSupported = "model_not_supported"
	KindUpstream          = "upstream"
	KindTransport         = "transport"
	KindInvalidOutput     = "invalid_model_output"
)

const (
	MissingCredential = "credential"
	MissingModel      = "model"
)

// Failure is implemented by every error the pipeline returns.
type Failure interface {
	error
	Kind() string
}

// ConfigError reports an absent credential or model identifier. When the
// model is missing, Models carries the discovery result for diagnostics.
type ConfigError struct {
	Missing string
	Models  *ModelCatalog
}

func (e *ConfigError) Error() string { return "missing " + e.Missing }
func (e *ConfigError) Kind() string  { return KindConfiguration }

// ModelNotSupportedError is returned when the generate endpoint answers 404
// for the configured model.
type ModelNotSupportedError struct {
	Model   string
	RawBody string
	Models  *ModelCatalog
}

func (e *ModelNotSupportedError) Error() string {
	return fmt.Sprintf("model %s not found or not supported by generateContent", e.Model)
}
func (e *ModelNotSupportedError) Kind() string { return KindModelNotSupported }

// UpstreamError is any other non-2xx answer from the generate endpoint.
type UpstreamError struct {
	StatusCode int
	RawBody    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}
func (e *UpstreamError) Kind() string { return KindUpstream }

// TransportError wraps a network level failure of either outbound call.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }
func (e *TransportError) Kind() string  { return KindTransport }

// InvalidModelOutputError carries the full normalized text, unchanged, so
// the caller can show what the model actually said.
type InvalidModelOutputError struct {
	Text string
	Err  error
}

func (e *InvalidModelOutputError) Error() string {
	if e.Err != nil {
		return "invalid model output: " + e.Err.Error()
	}
	return "invalid model output"
}
func (e *InvalidModelOutputError) Unwrap() error { return e.Err }
func (e *InvalidModelOutputError) Kind() string  { return KindInvalidOutput }
