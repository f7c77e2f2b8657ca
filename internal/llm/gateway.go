package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/legal-ai/legal-assistant/internal/stream"
	"github.com/legal-ai/legal-assistant/pkg/logger"
	"github.com/legal-ai/legal-assistant/pkg/metrics"
	"github.com/legal-ai/legal-assistant/pkg/tracing"
)

const (
	ProviderGateway = "gateway"

	defaultGatewayUser = "anonymous-user"
	maxErrorBody       = 64 << 10
)

// GatewayConfig configures the hosted orchestration gateway.
type GatewayConfig struct {
	Endpoint string
	APIKey   string
	User     string
	// Timeout bounds the wait for response headers. The body itself is
	// read for as long as the upstream keeps streaming.
	Timeout time.Duration
}

// GatewayClient talks to a Dify-style chat-messages endpoint.
type GatewayClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	user       string
	log        *logger.Logger
}

type gatewayInputs struct {
	Persona  string `json:"persona"`
	Language string `json:"language"`
}

type gatewayRequest struct {
	Inputs         gatewayInputs `json:"inputs"`
	Query          string        `json:"query"`
	User           string        `json:"user"`
	ConversationID string        `json:"conversation_id,omitempty"`
	ResponseMode   string        `json:"response_mode"`
}

type gatewayError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// NewGatewayClient creates a new gateway client.
func NewGatewayClient(cfg GatewayConfig, log *logger.Logger) (*GatewayClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gateway API key is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("gateway endpoint is required")
	}
	if cfg.User == "" {
		cfg.User = defaultGatewayUser
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout

	return &GatewayClient{
		httpClient: &http.Client{Transport: transport},
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		user:       cfg.User,
		log:        log.Named("gateway"),
	}, nil
}

// Name returns the provider name.
func (c *GatewayClient) Name() string {
	return ProviderGateway
}

// Stream posts the turn and returns an assembler over the response body.
func (c *GatewayClient) Stream(ctx context.Context, req *StreamRequest) (*stream.Assembler, error) {
	ctx, span := tracing.Tracer("llm").Start(ctx, "gateway.stream")
	streaming := false
	defer func() {
		if !streaming {
			span.End()
		}
	}()

	user := req.User
	if user == "" {
		user = c.user
	}

	payload, err := json.Marshal(gatewayRequest{
		Inputs: gatewayInputs{
			Persona:  string(req.Persona),
			Language: req.Language.GatewayName(),
		},
		Query:          req.Query,
		User:           user,
		ConversationID: req.ConversationID,
		ResponseMode:   "streaming",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		metrics.GatewayRequestsTotal.WithLabelValues(ProviderGateway, "error").Inc()
		return nil, &stream.UnavailableError{Message: err.Error(), Err: err}
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	metrics.GatewayRequestsTotal.WithLabelValues(ProviderGateway, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg := readGatewayError(resp)
		span.SetStatus(codes.Error, msg)
		c.log.Warn("gateway rejected request",
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
		)
		return nil, &stream.UnavailableError{StatusCode: resp.StatusCode, Message: msg}
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		span.SetStatus(codes.Error, "no body")
		return nil, &stream.UnavailableError{StatusCode: resp.StatusCode, Message: "no response body"}
	}

	streaming = true
	return stream.NewAssembler(&spanBody{ReadCloser: resp.Body, span: span}), nil
}

// spanBody ends the request span once the streamed body is closed.
type spanBody struct {
	io.ReadCloser
	span trace.Span
	once sync.Once
}

func (b *spanBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(func() { b.span.End() })
	return err
}

func readGatewayError(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil {
		var ge gatewayError
		if json.Unmarshal(body, &ge) == nil {
			if ge.Message != "" {
				return ge.Message
			}
			if ge.Error != "" {
				return ge.Error
			}
		}
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return "HTTP " + strconv.Itoa(resp.StatusCode)
}
