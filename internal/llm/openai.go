package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/legal-ai/legal-assistant/internal/model"
	"github.com/legal-ai/legal-assistant/internal/stream"
	"github.com/legal-ai/legal-assistant/pkg/logger"
	"github.com/legal-ai/legal-assistant/pkg/metrics"
	"github.com/legal-ai/legal-assistant/pkg/tracing"
)

const (
	ProviderOpenAI = "openai"

	defaultOpenAIModel = "gpt-4o-mini"
)

// OpenAIClient answers turns directly through the OpenAI chat API and
// re-emits the deltas in the gateway's line protocol.
type OpenAIClient struct {
	client *openai.Client
	model  string
	log    *logger.Logger
}

// NewOpenAIClient creates a new OpenAI client. An empty baseURL uses the
// public API.
func NewOpenAIClient(apiKey, baseURL, modelName string, log *logger.Logger) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if modelName == "" {
		modelName = defaultOpenAIModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  modelName,
		log:    log.Named("openai"),
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return ProviderOpenAI
}

// Stream starts a chat completion stream and pipes it through the frame
// encoder. The pump goroutine exits when the upstream ends or the
// assembler is closed.
func (c *OpenAIClient) Stream(ctx context.Context, req *StreamRequest) (*stream.Assembler, error) {
	ctx, span := tracing.Tracer("llm").Start(ctx, "openai.stream")
	defer span.End()

	s, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: buildMessages(req),
		Stream:   true,
	})
	if err != nil {
		span.RecordError(err)
		metrics.GatewayRequestsTotal.WithLabelValues(ProviderOpenAI, "error").Inc()
		return nil, &stream.UnavailableError{
			StatusCode: statusOf(err),
			Message:    err.Error(),
			Err:        err,
		}
	}
	metrics.GatewayRequestsTotal.WithLabelValues(ProviderOpenAI, "200").Inc()

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.Must(uuid.NewV7()).String()
	}

	pr, pw := io.Pipe()
	go c.pump(s, pw, conversationID)

	return stream.NewAssembler(pr), nil
}

func (c *OpenAIClient) pump(s *openai.ChatCompletionStream, pw *io.PipeWriter, conversationID string) {
	defer s.Close()

	for {
		resp, err := s.Recv()
		if errors.Is(err, io.EOF) {
			line, encErr := stream.EncodeEnd(conversationID)
			if encErr != nil {
				pw.CloseWithError(encErr)
				return
			}
			if _, err := pw.Write(line); err != nil {
				return
			}
			pw.Close()
			return
		}
		if err != nil {
			c.log.Warn("openai stream failed", zap.Error(err))
			pw.CloseWithError(err)
			return
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}

		line, err := stream.EncodeDelta(resp.Choices[0].Delta.Content)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		// A write error means the reader side was closed.
		if _, err := pw.Write(line); err != nil {
			return
		}
	}
}

func buildMessages(req *StreamRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt(req.Persona, req.Language),
	})

	for _, m := range req.History {
		role := openai.ChatMessageRoleAssistant
		if m.IsUser {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Query,
	})
}

// SystemPrompt describes the assistant for a persona and answer language.
func SystemPrompt(persona model.Persona, lang model.Language) string {
	var audience string
	switch persona {
	case model.PersonaLawyer:
		audience = "a practising lawyer. Be precise and cite acts and sections."
	case model.PersonaLawStudent:
		audience = "a law student. Explain the reasoning and name the relevant sections."
	default:
		persona = model.PersonaGeneralPublic
		audience = "a member of the general public. Use plain language and avoid jargon."
	}

	return fmt.Sprintf(
		"You are a legal assistant for the laws of Bangladesh, including the Consumer Rights Protection Act, 2009. "+
			"The user (%s) is %s Answer in %s.",
		persona, audience, lang.GatewayName(),
	)
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
