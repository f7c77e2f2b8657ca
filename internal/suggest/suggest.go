package suggest

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/legal-ai/legal-assistant/internal/legal"
	"github.com/legal-ai/legal-assistant/internal/model"
	"github.com/legal-ai/legal-assistant/pkg/metrics"
)

const (
	DefaultLimit = 10

	maxCompletions   = 3
	maxLegalTerms    = 3
	maxRecentMatches = 2
	maxRelated       = 2

	maxDefaultRecent   = 5
	maxDefaultPopular  = 3
	maxDefaultPatterns = 3

	maxSpellingDistance = 2
	maxSpelling         = 3
)

// Suggester derives suggestions from the glossary, the canned patterns and
// the analytics history.
type Suggester struct {
	glossary *legal.Glossary
	store    *Store
}

// NewSuggester creates a new suggester.
func NewSuggester(glossary *legal.Glossary, store *Store) *Suggester {
	return &Suggester{glossary: glossary, store: store}
}

// Suggest returns up to limit suggestions for a partial query, merged in
// priority order: completions, legal terms, recent matches, related terms.
// Texts are unique; the first occurrence wins. An empty query returns
// recent, popular and canned suggestions instead.
func (s *Suggester) Suggest(query string, lang model.Language, limit int) []model.SearchSuggestion {
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := normalize(query)
	if q == "" {
		return s.defaults(lang, limit)
	}

	var out []model.SearchSuggestion
	s.store.read(func(a *Analytics) {
		out = append(out, take(s.completions(q, lang, a), maxCompletions)...)
		out = append(out, take(s.legalTerms(q, lang), maxLegalTerms)...)
		out = append(out, take(recentMatches(q, a), maxRecentMatches)...)
		out = append(out, take(s.related(q, lang), maxRelated)...)
	})

	return take(dedupe(out), limit)
}

// Complete runs Suggest and, when it finds nothing for a query longer than
// two characters, also returns spelling corrections.
func (s *Suggester) Complete(query string, lang model.Language, limit int) ([]model.SearchSuggestion, []string) {
	suggestions := s.Suggest(query, lang, limit)
	if len(suggestions) > 0 {
		metrics.SuggestionsTotal.WithLabelValues("hit").Inc()
		return suggestions, nil
	}

	if utf8.RuneCountInString(normalize(query)) <= 2 {
		metrics.SuggestionsTotal.WithLabelValues("empty").Inc()
		return suggestions, nil
	}

	spelling := s.Spelling(query, lang)
	if len(spelling) > 0 {
		metrics.SuggestionsTotal.WithLabelValues("spelling").Inc()
	} else {
		metrics.SuggestionsTotal.WithLabelValues("empty").Inc()
	}
	return suggestions, spelling
}

// Spelling returns up to three glossary terms or patterns within edit
// distance two of the query, excluding an exact match.
func (s *Suggester) Spelling(query string, lang model.Language) []string {
	q := normalize(query)
	if q == "" {
		return nil
	}

	var candidates []string
	for _, t := range s.glossary.TermsFor(lang) {
		candidates = append(candidates, normalize(t.Term))
	}
	for _, p := range s.glossary.PatternsFor(lang) {
		candidates = append(candidates, normalize(p))
	}

	var out []string
	seen := make(map[string]bool)
	for _, c := range candidates {
		if c == q || seen[c] {
			continue
		}
		if levenshtein.ComputeDistance(q, c) <= maxSpellingDistance {
			seen[c] = true
			out = append(out, c)
			if len(out) == maxSpelling {
				break
			}
		}
	}
	return out
}

func (s *Suggester) completions(q string, lang model.Language, a *Analytics) []model.SearchSuggestion {
	all := append([]string{}, s.glossary.PatternsFor(lang)...)
	for _, h := range a.RecentQueries {
		all = append(all, h.Query)
	}

	var out []model.SearchSuggestion
	for _, c := range all {
		if c == q || !strings.Contains(normalize(c), q) {
			continue
		}
		out = append(out, model.SearchSuggestion{
			ID:   fmt.Sprintf("completion-%d", len(out)),
			Text: c,
			Kind: model.SuggestionCompletion,
		})
	}
	return out
}

func (s *Suggester) legalTerms(q string, lang model.Language) []model.SearchSuggestion {
	var out []model.SearchSuggestion
	for _, t := range s.glossary.TermsFor(lang) {
		if !strings.Contains(normalize(t.Term), q) && !strings.Contains(normalize(t.Definition), q) {
			continue
		}
		out = append(out, model.SearchSuggestion{
			ID:       fmt.Sprintf("legal-%d", len(out)),
			Text:     t.Term,
			Kind:     model.SuggestionLegalTerm,
			Category: t.Category,
			Metadata: &model.SuggestionMetadata{
				Definition:   t.Definition,
				RelatedTerms: append([]string{}, t.RelatedTerms...),
			},
		})
	}
	return out
}

func recentMatches(q string, a *Analytics) []model.SearchSuggestion {
	var out []model.SearchSuggestion
	for _, h := range a.RecentQueries {
		if h.Query == q || !strings.Contains(h.Query, q) {
			continue
		}
		ts := h.Timestamp
		out = append(out, model.SearchSuggestion{
			ID:       fmt.Sprintf("recent-match-%d", len(out)),
			Text:     h.Query,
			Kind:     model.SuggestionRecent,
			LastUsed: &ts,
		})
	}
	return out
}

func (s *Suggester) related(q string, lang model.Language) []model.SearchSuggestion {
	var out []model.SearchSuggestion
	for _, t := range s.glossary.TermsFor(lang) {
		if !strings.Contains(normalize(t.Term), q) {
			continue
		}
		for i, r := range t.RelatedTerms {
			out = append(out, model.SearchSuggestion{
				ID:   fmt.Sprintf("related-%s-%d", t.Term, i),
				Text: r,
				Kind: model.SuggestionRelated,
				Metadata: &model.SuggestionMetadata{
					Definition:   "Related to " + t.Term,
					RelatedTerms: []string{t.Term},
				},
			})
		}
	}
	return out
}

func (s *Suggester) defaults(lang model.Language, limit int) []model.SearchSuggestion {
	var out []model.SearchSuggestion

	s.store.read(func(a *Analytics) {
		for i, h := range take(a.RecentQueries, maxDefaultRecent) {
			ts := h.Timestamp
			out = append(out, model.SearchSuggestion{
				ID:       fmt.Sprintf("recent-%d", i),
				Text:     h.Query,
				Kind:     model.SuggestionRecent,
				LastUsed: &ts,
			})
		}

		for i, p := range take(SortedPairs(a.PopularQueries), maxDefaultPopular) {
			out = append(out, model.SearchSuggestion{
				ID:        fmt.Sprintf("popular-%d", i),
				Text:      p.Key,
				Kind:      model.SuggestionPopular,
				Frequency: p.Count,
			})
		}
	})

	for i, p := range take(s.glossary.PatternsFor(lang), maxDefaultPatterns) {
		out = append(out, model.SearchSuggestion{
			ID:   fmt.Sprintf("pattern-%d", i),
			Text: p,
			Kind: model.SuggestionCompletion,
		})
	}

	return take(dedupe(out), limit)
}

func dedupe(in []model.SearchSuggestion) []model.SearchSuggestion {
	seen := make(map[string]bool, len(in))
	out := make([]model.SearchSuggestion, 0, len(in))
	for _, sg := range in {
		if seen[sg.Text] {
			continue
		}
		seen[sg.Text] = true
		out = append(out, sg)
	}
	return out
}

func take[T any](in []T, n int) []T {
	if len(in) > n {
		return in[:n]
	}
	return in
}
