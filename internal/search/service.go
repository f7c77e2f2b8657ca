package search

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/legal-ai/legal-assistant/internal/model"
	"github.com/legal-ai/legal-assistant/pkg/logger"
	"github.com/legal-ai/legal-assistant/pkg/metrics"
	"github.com/legal-ai/legal-assistant/pkg/tracing"
)

// ConversationLister loads the conversations a principal may search.
type ConversationLister interface {
	List(ctx context.Context, userID string) ([]model.Conversation, error)
}

// Recorder receives every executed search.
type Recorder interface {
	Record(query string, resultCount int)
}

// Service runs combined searches.
type Service struct {
	index     *Index
	convs     ConversationLister
	analytics Recorder
	log       *logger.Logger
}

// NewService creates a new search service. analytics may be nil.
func NewService(index *Index, convs ConversationLister, analytics Recorder, log *logger.Logger) *Service {
	return &Service{
		index:     index,
		convs:     convs,
		analytics: analytics,
		log:       log.Named("search"),
	}
}

// Search merges conversation and legal matches, applies filters and
// orders by score. The search is recorded in analytics with the final
// result count. A blank query returns no results and is not recorded.
func (s *Service) Search(ctx context.Context, userID, query string, lang model.Language, filters model.SearchFilters) ([]model.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return []model.SearchResult{}, nil
	}

	ctx, span := tracing.Tracer("search").Start(ctx, "search.query")
	defer span.End()

	results := make([]model.SearchResult, 0)

	if filters.HasKind(model.KindConversation) {
		convs, err := s.convs.List(ctx, userID)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to list conversations: %w", err)
		}
		results = append(results, SearchConversations(convs, query)...)
	}

	if filters.HasKind(model.KindLawSection) {
		results = append(results, s.index.Search(query, lang)...)
	}

	results = applyFilters(results, filters)
	sortByScore(results)

	span.SetAttributes(
		attribute.String("search.language", string(lang)),
		attribute.Int("search.results", len(results)),
	)
	metrics.RecordSearch(string(lang), len(results))

	if s.analytics != nil {
		s.analytics.Record(query, len(results))
	}

	s.log.Debug("search executed",
		zap.String("user_id", userID),
		zap.Int("results", len(results)),
	)

	return results, nil
}

func applyFilters(results []model.SearchResult, filters model.SearchFilters) []model.SearchResult {
	out := results[:0]
	for _, r := range results {
		if !inDateRange(r, filters.DateRange) {
			continue
		}
		if !inCategories(r, filters.Categories) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func inDateRange(r model.SearchResult, dr *model.DateRange) bool {
	if dr == nil || r.Timestamp == nil {
		return true
	}
	if !dr.Start.IsZero() && r.Timestamp.Before(dr.Start) {
		return false
	}
	if !dr.End.IsZero() && r.Timestamp.After(dr.End) {
		return false
	}
	return true
}

func inCategories(r model.SearchResult, categories []model.LegalCategory) bool {
	if len(categories) == 0 {
		return true
	}
	if r.LegalReference == nil {
		return r.Kind == model.KindConversation
	}
	for _, c := range categories {
		if r.LegalReference.Category == c {
			return true
		}
	}
	return false
}
