// Package workflow provides the HTTP client for the remote generation workflow
// and the request/outcome types exchanged with it.
package workflow

import (
	"errors"
	"strings"
	"time"

	"github.com/maauso/balbo/internal/workflow/id"
)

// Kind classifies why a generation cycle failed.
type Kind string

const (
	// KindValidation indicates the prompt was blank. It is produced before
	// dispatch and never by the client.
	KindValidation Kind = "validation"
	// KindConfiguration indicates the workflow endpoint is not configured.
	KindConfiguration Kind = "configuration"
	// KindTransport indicates the request never got an HTTP response.
	KindTransport Kind = "transport"
	// KindHTTPStatus indicates a non-2xx response.
	KindHTTPStatus Kind = "http_status"
	// KindParse indicates a 2xx response whose body is not JSON.
	KindParse Kind = "parse"
	// KindApplication indicates the workflow itself reported a failure.
	KindApplication Kind = "application"
)

// Sentinel errors, one per failure Kind. A *Failure unwraps to the sentinel
// of its Kind.
var (
	// ErrValidation is returned when the prompt is empty after trimming.
	ErrValidation = errors.New("workflow: prompt is required")
	// ErrConfiguration is returned when no endpoint is configured.
	ErrConfiguration = errors.New("workflow: endpoint is not configured")
	// ErrTransport is returned when the request could not be delivered.
	ErrTransport = errors.New("workflow: transport error")
	// ErrHTTPStatus is returned when the endpoint answers with a non-2xx status.
	ErrHTTPStatus = errors.New("workflow: request failed")
	// ErrParse is returned when the response body is not valid JSON.
	ErrParse = errors.New("workflow: invalid response")
	// ErrApplication is returned when the workflow reports success=false or an error.
	ErrApplication = errors.New("workflow: generation failed")
)

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindConfiguration:
		return ErrConfiguration
	case KindTransport:
		return ErrTransport
	case KindHTTPStatus:
		return ErrHTTPStatus
	case KindParse:
		return ErrParse
	default:
		return ErrApplication
	}
}

// Failure is the failed variant of an Outcome. Reason is human readable and
// is what gets shown to the user.
type Failure struct {
	Kind       Kind
	Reason     string
	StatusCode int   // set for KindHTTPStatus and for 2xx application failures
	Err        error // underlying cause, if any
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return f.Reason
}

// Unwrap exposes the Kind sentinel and the underlying cause to errors.Is/As.
func (f *Failure) Unwrap() []error {
	errs := []error{f.Kind.sentinel()}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

// Success is the successful variant of an Outcome.
// MediaURL may be empty when the workflow returned no URL.
type Success struct {
	MediaURL string
	Message  string
}

// Outcome is the result of one generation request. Exactly one of Success and
// Failure is populated; build it with Succeeded or Failed.
type Outcome struct {
	success *Success
	failure *Failure
}

// Succeeded wraps s as a successful Outcome.
func Succeeded(s Success) Outcome {
	return Outcome{success: &s}
}

// Failed wraps f as a failed Outcome.
func Failed(f *Failure) Outcome {
	if f == nil {
		f = &Failure{Kind: KindApplication, Reason: "workflow failed without a reason"}
	}
	return Outcome{failure: f}
}

// Success returns the success variant and true, or false if the outcome failed.
func (o Outcome) Success() (Success, bool) {
	if o.success == nil {
		return Success{}, false
	}
	return *o.success, true
}

// Failure returns the failure variant and true, or false if the outcome succeeded.
func (o Outcome) Failure() (*Failure, bool) {
	return o.failure, o.failure != nil
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.success != nil
}

// Request is a single validated generation request.
type Request struct {
	// ID identifies the request in logs and in the X-Request-ID header.
	ID string
	// Prompt is the trimmed, non-empty prompt.
	Prompt string
	// NegativePrompt is the trimmed negative prompt; empty when not given.
	NegativePrompt string
	// SubmittedAt is when the user submitted the request.
	SubmittedAt time.Time
}

// NewRequest trims the prompts and builds a Request.
// It returns a KindValidation *Failure if the prompt is blank.
func NewRequest(prompt, negativePrompt string, submittedAt time.Time) (Request, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Request{}, &Failure{
			Kind:   KindValidation,
			Reason: "Please enter a prompt for your video",
		}
	}
	return Request{
		ID:             id.Generate(),
		Prompt:         prompt,
		NegativePrompt: strings.TrimSpace(negativePrompt),
		SubmittedAt:    submittedAt,
	}, nil
}

// timestampLayout mirrors JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// payload is the JSON body sent to the workflow endpoint.
type payload struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Timestamp      string `json:"timestamp"`
}

func newPayload(req Request) payload {
	return payload{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Timestamp:      req.SubmittedAt.UTC().Format(timestampLayout),
	}
}

// mediaURLFields lists the accepted response fields for the media URL, in
// priority order.
var mediaURLFields = []string{"imageUrl", "image_url", "url"}
