// Package suggest keeps search analytics and derives query suggestions
// and spelling corrections from them.
package suggest

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/legal-ai/legal-assistant/internal/legal"
	"github.com/legal-ai/legal-assistant/pkg/logger"
	"github.com/legal-ai/legal-assistant/pkg/metrics"
)

const (
	// StorageKey is the single key analytics live under.
	StorageKey = "legal-ai-search-analytics"
	// MaxRecentQueries bounds the history.
	MaxRecentQueries = 50
)

// KV is a durable string store.
type KV interface {
	// Get returns ok=false for a missing key.
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
}

// Store owns the process-wide analytics. Every mutation is a full
// read-modify-write under the lock, followed by a synchronous save whose
// failure is logged and otherwise ignored.
type Store struct {
	mu    sync.Mutex
	kv    KV
	data  *Analytics
	terms []string
	log   *logger.Logger
	now   func() time.Time
}

// Open loads analytics from kv. A missing key, a read failure or malformed
// JSON all yield empty analytics.
func Open(kv KV, glossary *legal.Glossary, log *logger.Logger) *Store {
	s := &Store{
		kv:    kv,
		terms: glossary.AllTerms(),
		log:   log.Named("analytics"),
		now:   func() time.Time { return time.Now().UTC() },
	}
	s.data = s.load()
	return s
}

func (s *Store) load() *Analytics {
	raw, ok, err := s.kv.Get(StorageKey)
	if err != nil {
		metrics.AnalyticsPersistFailures.WithLabelValues("load").Inc()
		s.log.Error("failed to load search analytics", zap.Error(err))
		return newAnalytics()
	}
	if !ok || len(raw) == 0 {
		return newAnalytics()
	}

	a := newAnalytics()
	if err := json.Unmarshal(raw, a); err != nil {
		metrics.AnalyticsPersistFailures.WithLabelValues("decode").Inc()
		s.log.Warn("discarding malformed search analytics", zap.Error(err))
		return newAnalytics()
	}
	if len(a.RecentQueries) > MaxRecentQueries {
		a.RecentQueries = a.RecentQueries[:MaxRecentQueries]
	}
	return a
}

// Record adds an executed search to the history, bumps its popularity and
// counts every glossary term the query mentions.
func (s *Store) Record(query string, resultCount int) {
	q := normalize(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := SearchHistory{
		Query:          q,
		Timestamp:      s.now(),
		ResultCount:    resultCount,
		ClickedResults: []string{},
	}
	recent := append([]SearchHistory{entry}, s.data.RecentQueries...)
	if len(recent) > MaxRecentQueries {
		recent = recent[:MaxRecentQueries]
	}
	s.data.RecentQueries = recent

	s.data.PopularQueries[q]++

	lower := cases.Lower(language.Und).String(norm.NFC.String(query))
	for _, term := range s.terms {
		if strings.Contains(lower, term) {
			s.data.LegalTermFrequency[term]++
		}
	}

	s.persistLocked()
}

// RecordClick marks resultID as opened from the newest history entry for
// query. It reports whether such an entry exists.
func (s *Store) RecordClick(query, resultID string) bool {
	q := normalize(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.RecentQueries {
		h := &s.data.RecentQueries[i]
		if h.Query != q {
			continue
		}
		for _, id := range h.ClickedResults {
			if id == resultID {
				return true
			}
		}
		h.ClickedResults = append(h.ClickedResults, resultID)
		s.persistLocked()
		return true
	}
	return false
}

// ClearHistory forgets recent and popular queries. Term frequencies stay.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.RecentQueries = []SearchHistory{}
	s.data.PopularQueries = make(map[string]int)
	s.persistLocked()
}

// Snapshot returns a deep copy of the current analytics.
func (s *Store) Snapshot() Analytics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// Flush writes the current state and returns any error.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) read(fn func(a *Analytics)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.data)
}

func (s *Store) persistLocked() {
	if err := s.saveLocked(); err != nil {
		s.log.Error("failed to save search analytics", zap.Error(err))
	}
}

func (s *Store) saveLocked() error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		metrics.AnalyticsPersistFailures.WithLabelValues("encode").Inc()
		return err
	}
	if err := s.kv.Set(StorageKey, raw); err != nil {
		metrics.AnalyticsPersistFailures.WithLabelValues("save").Inc()
		return err
	}
	return nil
}

func normalize(s string) string {
	return cases.Lower(language.Und).String(norm.NFC.String(strings.TrimSpace(s)))
}
