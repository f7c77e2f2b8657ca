// Package app builds the object graph shared by the API server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/legal-ai/legal-assistant/internal/config"
	"github.com/legal-ai/legal-assistant/internal/legal"
	"github.com/legal-ai/legal-assistant/internal/llm"
	natsclient "github.com/legal-ai/legal-assistant/internal/nats"
	"github.com/legal-ai/legal-assistant/internal/search"
	"github.com/legal-ai/legal-assistant/internal/service"
	"github.com/legal-ai/legal-assistant/internal/storage"
	"github.com/legal-ai/legal-assistant/internal/suggest"
	"github.com/legal-ai/legal-assistant/pkg/logger"
)

type kvStore interface {
	suggest.KV
	Close() error
}

// App holds the wired services.
type App struct {
	Store         storage.ConversationStore
	Analytics     *suggest.Store
	Search        *search.Service
	Suggester     *suggest.Suggester
	Conversations *service.ConversationService
	Chat          *service.ChatService
	// NATS is nil when turn events are disabled.
	NATS *natsclient.Client

	kv     kvStore
	logger *logger.Logger
}

// Options select optional parts of the graph.
type Options struct {
	// WithoutChat skips the upstream provider; Chat stays nil.
	WithoutChat bool
	// WithoutNATS skips the turn log even when NATS_URL is set.
	WithoutNATS bool
}

// New opens storage, loads the legal corpus and wires every service.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (a *App, err error) {
	a = &App{logger: log}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	switch cfg.StorageDriver {
	case config.StorageMemory:
		a.Store = storage.NewMemoryStore()
		a.kv = storage.NewMemoryKV()
	default:
		store, err := storage.OpenSQLite(cfg.DatabasePath)
		if err != nil {
			return a, fmt.Errorf("failed to open conversation store: %w", err)
		}
		a.Store = store
		kv, err := storage.OpenBolt(cfg.AnalyticsPath)
		if err != nil {
			return a, fmt.Errorf("failed to open analytics store: %w", err)
		}
		a.kv = kv
	}

	corpus, err := legal.LoadCorpus()
	if err != nil {
		return a, fmt.Errorf("failed to load legal corpus: %w", err)
	}
	glossary, err := legal.LoadGlossary()
	if err != nil {
		return a, fmt.Errorf("failed to load glossary: %w", err)
	}

	a.Analytics = suggest.Open(a.kv, glossary, log)
	a.Search = search.NewService(search.NewIndex(corpus), a.Store, a.Analytics, log)
	a.Suggester = suggest.NewSuggester(glossary, a.Analytics)
	a.Conversations = service.NewConversationService(a.Store, log)

	var events service.EventPublisher
	if cfg.NATSURL != "" && !opts.WithoutNATS {
		a.NATS, err = natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return a, err
		}

		streams := natsclient.NewStreamManager(a.NATS)
		if err := streams.EnsureStream(ctx); err != nil {
			return a, fmt.Errorf("failed to ensure turn stream: %w", err)
		}
		a.Conversations.SetTurnLog(streams)
		events = streams
	}

	if !opts.WithoutChat {
		streamer, err := llm.NewStreamer(cfg, log)
		if err != nil {
			return a, fmt.Errorf("failed to create %s provider: %w", cfg.Provider, err)
		}
		a.Chat = service.NewChatService(a.Conversations, streamer, events, log)
	}

	log.Info("services initialized",
		zap.String("storage", cfg.StorageDriver),
		zap.String("provider", cfg.Provider),
		zap.Bool("turn_log", a.NATS != nil),
		zap.Int("legal_sections", corpus.SectionCount()),
	)
	return a, nil
}

// Close flushes analytics and releases every store.
func (a *App) Close() error {
	var errs []error
	if a.Analytics != nil {
		errs = append(errs, a.Analytics.Flush())
	}
	if a.NATS != nil {
		a.NATS.Close()
	}
	if a.kv != nil {
		errs = append(errs, a.kv.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
