// Package llm provides the upstream chat providers. Every provider hands
// back a stream.Assembler over the same "data: {json}" line protocol, so
// the rest of the turn does not care which upstream answered.
package llm

import (
	"context"
	"fmt"

	"github.com/legal-ai/legal-assistant/internal/config"
	"github.com/legal-ai/legal-assistant/internal/model"
	"github.com/legal-ai/legal-assistant/internal/stream"
	"github.com/legal-ai/legal-assistant/pkg/logger"
)

// StreamRequest is one chat turn sent upstream.
type StreamRequest struct {
	Query          string
	User           string
	ConversationID string
	Persona        model.Persona
	Language       model.Language
	// History is the conversation so far, oldest first, without the
	// current query. Providers that keep server-side state ignore it.
	History []model.ChatMessage
}

// Streamer is the interface for upstream chat providers.
type Streamer interface {
	// Stream starts a turn. Failures before the body is readable are
	// returned as *stream.UnavailableError.
	Stream(ctx context.Context, req *StreamRequest) (*stream.Assembler, error)

	// Name returns the provider name.
	Name() string
}

// NewStreamer creates the provider selected by cfg.Provider.
func NewStreamer(cfg *config.Config, log *logger.Logger) (Streamer, error) {
	switch cfg.Provider {
	case config.ProviderGateway:
		return NewGatewayClient(GatewayConfig{
			Endpoint: cfg.GatewayURL,
			APIKey:   cfg.GatewayAPIKey,
			User:     cfg.GatewayUser,
			Timeout:  cfg.GatewayTimeout,
		}, log)
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, log)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
