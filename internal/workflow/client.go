package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/maauso/balbo/internal/workflow"

// Client sends generation requests to the remote workflow.
type Client interface {
	// Send performs exactly one outbound call and never returns an error:
	// every problem is reported as the Failure variant of the Outcome.
	Send(ctx context.Context, req Request) Outcome
}

// HTTPClient is the HTTP implementation of Client.
type HTTPClient struct {
	endpoint   string
	rest       *resty.Client
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	tracer     trace.Tracer
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client. The client is copied, so later
// options such as WithTimeout never modify the caller's value.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithTimeout sets a request-level timeout. Zero leaves the transport defaults.
func WithTimeout(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		hc.timeout = d
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) ClientOption {
	return func(hc *HTTPClient) {
		if l != nil {
			hc.logger = l
		}
	}
}

// WithTracerProvider sets the provider used for request spans.
// The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(hc *HTTPClient) {
		if tp != nil {
			hc.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewClient creates a new workflow HTTP client for endpoint.
// An empty endpoint is accepted: every Send then fails with KindConfiguration
// without touching the network.
func NewClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: strings.TrimSpace(endpoint),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.tracer == nil {
		c.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}

	if c.httpClient != nil {
		hc := *c.httpClient
		c.rest = resty.NewWithClient(&hc)
	} else {
		c.rest = resty.New()
	}
	c.rest.
		SetRetryCount(0).
		SetLogger(restyLogger{logger: c.logger})
	if c.timeout > 0 {
		c.rest.SetTimeout(c.timeout)
	}

	return c
}

// Configured reports whether an endpoint was provided.
func (c *HTTPClient) Configured() bool {
	return c.endpoint != ""
}

// Send posts req to the workflow endpoint and normalizes the response.
func (c *HTTPClient) Send(ctx context.Context, req Request) Outcome {
	ctx, span := c.tracer.Start(ctx, "workflow.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("request.id", req.ID)),
	)
	defer span.End()

	outcome := c.send(ctx, req)

	if f, ok := outcome.Failure(); ok {
		span.RecordError(f)
		span.SetStatus(codes.Error, f.Reason)
		span.SetAttributes(attribute.String("outcome.kind", string(f.Kind)))
		c.logFailure(req, f)
		return outcome
	}

	span.SetAttributes(attribute.String("outcome.kind", "success"))
	return outcome
}

func (c *HTTPClient) send(ctx context.Context, req Request) Outcome {
	if c.endpoint == "" {
		return Failed(&Failure{
			Kind:   KindConfiguration,
			Reason: "Workflow URL is not configured. Please set WORKFLOW_URL in your environment or .env file",
		})
	}

	body, err := json.Marshal(newPayload(req))
	if err != nil {
		return Failed(&Failure{
			Kind:   KindTransport,
			Reason: fmt.Sprintf("encode request: %v", err),
			Err:    err,
		})
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("X-Request-ID", req.ID).
		SetBody(body).
		Post(c.endpoint)
	if err != nil {
		return Failed(&Failure{
			Kind:   KindTransport,
			Reason: fmt.Sprintf("transport error: %v", err),
			Err:    err,
		})
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))

	if !resp.IsSuccess() {
		return Failed(statusFailure(resp.StatusCode(), resp.Body()))
	}

	return normalize(resp.StatusCode(), resp.Body())
}

// normalize maps a 2xx response body onto an Outcome.
func normalize(status int, raw []byte) Outcome {
	if !gjson.ValidBytes(raw) {
		return Failed(&Failure{
			Kind:       KindParse,
			Reason:     "workflow returned an invalid JSON response",
			StatusCode: status,
		})
	}

	doc := gjson.ParseBytes(raw)
	errMsg := stringField(doc, "error")
	message := stringField(doc, "message")

	switch success := doc.Get("success"); {
	case success.Type == gjson.False:
		return Failed(&Failure{
			Kind:       KindApplication,
			Reason:     firstNonEmpty(errMsg, message, "workflow reported failure"),
			StatusCode: status,
		})
	case errMsg != "" && success.Type != gjson.True:
		return Failed(&Failure{
			Kind:       KindApplication,
			Reason:     errMsg,
			StatusCode: status,
		})
	}

	var mediaURL string
	for _, field := range mediaURLFields {
		if v := stringField(doc, field); v != "" {
			mediaURL = v
			break
		}
	}

	return Succeeded(Success{
		MediaURL: mediaURL,
		Message:  message,
	})
}

// statusFailure builds the failure for a non-2xx response, preferring the
// message or error field of a JSON body.
func statusFailure(status int, raw []byte) *Failure {
	var reason string
	if gjson.ValidBytes(raw) {
		doc := gjson.ParseBytes(raw)
		reason = firstNonEmpty(stringField(doc, "message"), stringField(doc, "error"))
	}
	if reason == "" {
		reason = fmt.Sprintf("workflow request failed with status: %d", status)
	}
	return &Failure{
		Kind:       KindHTTPStatus,
		Reason:     reason,
		StatusCode: status,
	}
}

// stringField returns the trimmed value of a top-level string field, or "".
func stringField(doc gjson.Result, name string) string {
	v := doc.Get(name)
	if v.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(v.Str)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (c *HTTPClient) logFailure(req Request, f *Failure) {
	attrs := []any{
		slog.String("request_id", req.ID),
		slog.String("kind", string(f.Kind)),
		slog.String("reason", f.Reason),
	}
	if f.StatusCode != 0 {
		attrs = append(attrs, slog.Int("status", f.StatusCode))
	}

	switch f.Kind {
	case KindApplication, KindHTTPStatus:
		c.logger.Warn("workflow request failed", attrs...)
	default:
		c.logger.Error("workflow request failed", attrs...)
	}
}

// restyLogger routes resty's internal logging through slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "resty"))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "resty"))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "resty"))
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
