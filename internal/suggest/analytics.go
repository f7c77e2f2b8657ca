package suggest

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// SearchHistory is one executed search.
type SearchHistory struct {
	Query          string    `json:"query"`
	Timestamp      time.Time `json:"timestamp"`
	ResultCount    int       `json:"resultCount"`
	ClickedResults []string  `json:"clickedResults"`
}

// UserPreferences is carried through persistence unchanged.
type UserPreferences struct {
	PreferredCategories  []string `json:"preferredCategories"`
	CommonSearchPatterns []string `json:"commonSearchPatterns"`
}

// Analytics is the persisted search usage state.
type Analytics struct {
	PopularQueries     map[string]int
	RecentQueries      []SearchHistory
	LegalTermFrequency map[string]int
	UserPreferences    UserPreferences
}

func newAnalytics() *Analytics {
	return &Analytics{
		PopularQueries:     make(map[string]int),
		RecentQueries:      []SearchHistory{},
		LegalTermFrequency: make(map[string]int),
		UserPreferences: UserPreferences{
			PreferredCategories:  []string{},
			CommonSearchPatterns: []string{},
		},
	}
}

// Clone returns a deep copy.
func (a *Analytics) Clone() Analytics {
	out := Analytics{
		PopularQueries:     make(map[string]int, len(a.PopularQueries)),
		RecentQueries:      make([]SearchHistory, len(a.RecentQueries)),
		LegalTermFrequency: make(map[string]int, len(a.LegalTermFrequency)),
		UserPreferences: UserPreferences{
			PreferredCategories:  append([]string{}, a.UserPreferences.PreferredCategories...),
			CommonSearchPatterns: append([]string{}, a.UserPreferences.CommonSearchPatterns...),
		},
	}
	for k, v := range a.PopularQueries {
		out.PopularQueries[k] = v
	}
	for k, v := range a.LegalTermFrequency {
		out.LegalTermFrequency[k] = v
	}
	for i, h := range a.RecentQueries {
		h.ClickedResults = append([]string{}, h.ClickedResults...)
		out.RecentQueries[i] = h
	}
	return out
}

// CountPair is a map entry serialized as a two-element JSON array.
type CountPair struct {
	Key   string
	Count int
}

func (p CountPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Key, p.Count})
}

func (p *CountPair) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("count pair has %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Key); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Count)
}

// SortedPairs orders map entries by count descending, then key.
func SortedPairs(m map[string]int) []CountPair {
	pairs := make([]CountPair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, CountPair{Key: k, Count: v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		return pairs[i].Key < pairs[j].Key
	})
	return pairs
}

type persistedAnalytics struct {
	PopularQueries     []CountPair      `json:"popularQueries"`
	RecentQueries      []SearchHistory  `json:"recentQueries"`
	LegalTermFrequency []CountPair      `json:"legalTermFrequency"`
	UserPreferences    *UserPreferences `json:"userPreferences"`
}

func (a Analytics) MarshalJSON() ([]byte, error) {
	recent := a.RecentQueries
	if recent == nil {
		recent = []SearchHistory{}
	}
	prefs := a.UserPreferences
	return json.Marshal(persistedAnalytics{
		PopularQueries:     SortedPairs(a.PopularQueries),
		RecentQueries:      recent,
		LegalTermFrequency: SortedPairs(a.LegalTermFrequency),
		UserPreferences:    &prefs,
	})
}

func (a *Analytics) UnmarshalJSON(b []byte) error {
	var p persistedAnalytics
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}

	fresh := newAnalytics()
	for _, pair := range p.PopularQueries {
		fresh.PopularQueries[pair.Key] = pair.Count
	}
	for _, pair := range p.LegalTermFrequency {
		fresh.LegalTermFrequency[pair.Key] = pair.Count
	}
	for _, h := range p.RecentQueries {
		if h.ClickedResults == nil {
			h.ClickedResults = []string{}
		}
		fresh.RecentQueries = append(fresh.RecentQueries, h)
	}
	if p.UserPreferences != nil {
		fresh.UserPreferences = *p.UserPreferences
	}

	*a = *fresh
	return nil
}
