package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fitversal/onboardchat/pkg/utils"
)

const instrumentationName = "github.com/fitversal/onboardchat/internal/services"

const unexpectedProgramStatus = "Program generation failed: Unexpected response status"

var (
	ErrInvalidBody           = errors.New("invalid request body")
	ErrProgramServiceMissing = errors.New("program service URL is not configured")
)

// ProxyRoute describes one forwarded endpoint of the program service.
type ProxyRoute struct {
	Name         string
	UpstreamPath string
	Required     []string
	Defaults     []FieldDefault
	// RequireSuccess rejects 2xx bodies whose "status" is not "success".
	RequireSuccess bool
}

// FieldDefault replaces a missing or falsy field.
type FieldDefault struct {
	Field string
	Value any
}

var (
	ChatRoute = ProxyRoute{
		Name:         "chat_with_agent",
		UpstreamPath: "/test/chat_with_agent",
		Required:     []string{"user_id", "age", "gender", "level", "frequency", "days", "message", "coach_id"},
		Defaults: []FieldDefault{
			{Field: "height_unit", Value: "cm"},
			{Field: "weight_unit", Value: "kg"},
			{Field: "sport", Value: "fitness"},
			{Field: "language", Value: "en"},
			{Field: "reset", Value: false},
		},
	}
	ProgramRoute = ProxyRoute{
		Name:         "generate_program_from_chat_history_chuncks",
		UpstreamPath: "/test/generate_program_from_chat_history_chuncks",
		Required:     []string{"user_id", "age", "gender", "chat_history", "coach_id", "language", "number_of_weeks"},
		Defaults: []FieldDefault{
			{Field: "height_unit", Value: "cm"},
			{Field: "weight_unit", Value: "kg"},
			{Field: "sport", Value: "fitness"},
		},
		RequireSuccess: true,
	}
)

type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "Missing required field: " + e.Field
}

// UpstreamError is a program service response that cannot be passed
// through. Its message is safe to return to callers as error details.
type UpstreamError struct {
	Status  int
	Body    string
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// ProxyService validates proxy bodies and forwards them to the program
// service.
type ProxyService struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	requests   metric.Int64Counter
	latency    metric.Float64Histogram
}

func NewProxyService(baseURL string, httpClient *http.Client) *ProxyService {
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	meter := otel.Meter(instrumentationName)
	requests, err := meter.Int64Counter("proxy.requests", metric.WithDescription("Forwarded program service requests"))
	if err != nil {
		log.Printf("proxy metrics: create counter: %v", err)
	}
	latency, err := meter.Float64Histogram("proxy.duration", metric.WithUnit("s"), metric.WithDescription("Program service round trip"))
	if err != nil {
		log.Printf("proxy metrics: create histogram: %v", err)
	}

	return &ProxyService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tracer:     otel.Tracer(instrumentationName),
		requests:   requests,
		latency:    latency,
	}
}

// Prepare checks required fields and fills defaults. The returned body is
// what gets forwarded.
func (r ProxyRoute) Prepare(body []byte) ([]byte, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}

	// Arrays and scalars carry no fields, so the first required one is
	// reported missing. A null body has nothing to read fields from.
	fields := map[string]json.RawMessage{}
	switch trimmed := bytes.TrimSpace(raw); {
	case bytes.Equal(trimmed, []byte("null")):
		return nil, fmt.Errorf("%w: cannot read fields of null", ErrInvalidBody)
	case len(trimmed) > 0 && trimmed[0] == '{':
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		if fields == nil {
			fields = map[string]json.RawMessage{}
		}
	}

	for _, field := range r.Required {
		if !utils.TruthyRaw(fields[field]) {
			return nil, &MissingFieldError{Field: field}
		}
	}

	for _, def := range r.Defaults {
		if utils.TruthyRaw(fields[def.Field]) {
			continue
		}
		raw, err := json.Marshal(def.Value)
		if err != nil {
			return nil, fmt.Errorf("encode default %s: %w", def.Field, err)
		}
		fields[def.Field] = raw
	}

	return json.Marshal(fields)
}

// Forward validates body for route and returns the program service's
// JSON response unchanged.
func (s *ProxyService) Forward(ctx context.Context, route ProxyRoute, body []byte) ([]byte, error) {
	prepared, err := route.Prepare(body)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "proxy."+route.Name, trace.WithAttributes(
		attribute.String("proxy.route", route.Name),
		attribute.String("proxy.request_id", requestID),
	))
	defer span.End()

	start := time.Now()
	response, err := s.forward(ctx, route, requestID, prepared)
	s.record(ctx, route, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("proxy route=%s request_id=%s failed: %v", route.Name, requestID, err)
		return nil, err
	}
	return response, nil
}

func (s *ProxyService) forward(ctx context.Context, route ProxyRoute, requestID string, body []byte) ([]byte, error) {
	if s.baseURL == "" {
		return nil, ErrProgramServiceMissing
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+route.UpstreamPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", route.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", route.Name, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", route.Name, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		log.Printf("proxy route=%s request_id=%s upstream status=%d body=%s", route.Name, requestID, resp.StatusCode, strings.TrimSpace(string(responseBody)))
		return nil, &UpstreamError{
			Status:  resp.StatusCode,
			Body:    string(responseBody),
			Message: fmt.Sprintf("API responded with status: %d", resp.StatusCode),
		}
	}

	if !json.Valid(responseBody) {
		return nil, fmt.Errorf("decode %s response: invalid JSON", route.Name)
	}

	if route.RequireSuccess {
		var result struct {
			Status any `json:"status"`
		}
		if err := json.Unmarshal(responseBody, &result); err != nil || result.Status != "success" {
			return nil, &UpstreamError{
				Status:  resp.StatusCode,
				Body:    string(responseBody),
				Message: unexpectedProgramStatus,
			}
		}
	}

	return responseBody, nil
}

func (s *ProxyService) record(ctx context.Context, route ProxyRoute, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("proxy.route", route.Name),
		attribute.String("proxy.outcome", outcome),
	)
	if s.requests != nil {
		s.requests.Add(ctx, 1, attrs)
	}
	if s.latency != nil {
		s.latency.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
