package model

import (
	"time"
)

// ResultKind is the kind of a search hit.
type ResultKind string

const (
	KindConversation  ResultKind = "conversation"
	KindLegalDocument ResultKind = "legal_document"
	KindLawSection    ResultKind = "law_section"
)

// LegalCategory groups legal references.
type LegalCategory string

const (
	CategoryConsumerRights    LegalCategory = "consumer_rights"
	CategoryCriminalProcedure LegalCategory = "criminal_procedure"
	CategoryGeneralLaw        LegalCategory = "general_law"
)

// LegalReference points a result at a section of an act.
type LegalReference struct {
	ActName     string        `json:"act_name"`
	Section     string        `json:"section"`
	Subsection  string        `json:"subsection,omitempty"`
	Description string        `json:"description"`
	Category    LegalCategory `json:"category"`
}

// SearchResult is one ranked hit. Results are computed per query and never stored.
type SearchResult struct {
	ID             string          `json:"id"`
	Kind           ResultKind      `json:"type"`
	Title          string          `json:"title"`
	Content        string          `json:"content"`
	Snippet        string          `json:"snippet"`
	RelevanceScore int             `json:"relevance_score"`
	Source         string          `json:"source,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
	MessageID      string          `json:"message_id,omitempty"`
	Timestamp      *time.Time      `json:"timestamp,omitempty"`
	LegalReference *LegalReference `json:"legal_reference,omitempty"`
}

// DateRange bounds result timestamps inclusively. A zero bound is open.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SearchFilters narrows a combined search.
type SearchFilters struct {
	Kinds      []ResultKind    `json:"type"`
	Categories []LegalCategory `json:"category,omitempty"`
	DateRange  *DateRange      `json:"date_range,omitempty"`
}

// DefaultSearchFilters enables every result kind.
func DefaultSearchFilters() SearchFilters {
	return SearchFilters{Kinds: []ResultKind{KindConversation, KindLegalDocument, KindLawSection}}
}

// HasKind reports whether k is enabled by the filter.
func (f SearchFilters) HasKind(k ResultKind) bool {
	for _, kind := range f.Kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// SearchResponse is returned by the search endpoint.
type SearchResponse struct {
	Query       string         `json:"query"`
	Results     []SearchResult `json:"results"`
	Total       int            `json:"total"`
	Suggestions []string       `json:"did_you_mean,omitempty"`
}

// SuggestionKind is where a suggestion came from.
type SuggestionKind string

const (
	SuggestionRecent     SuggestionKind = "recent"
	SuggestionPopular    SuggestionKind = "popular"
	SuggestionLegalTerm  SuggestionKind = "legal_term"
	SuggestionCompletion SuggestionKind = "completion"
	SuggestionRelated    SuggestionKind = "related"
)

// SuggestionMetadata carries glossary details for legal-term suggestions.
type SuggestionMetadata struct {
	ActName      string   `json:"act_name,omitempty"`
	Section      string   `json:"section,omitempty"`
	Definition   string   `json:"definition,omitempty"`
	RelatedTerms []string `json:"related_terms,omitempty"`
}

// SearchSuggestion is one entry in the suggestion dropdown.
type SearchSuggestion struct {
	ID        string              `json:"id"`
	Text      string              `json:"text"`
	Kind      SuggestionKind      `json:"type"`
	Category  string              `json:"category,omitempty"`
	Frequency int                 `json:"frequency,omitempty"`
	LastUsed  *time.Time          `json:"last_used,omitempty"`
	Metadata  *SuggestionMetadata `json:"metadata,omitempty"`
}

// SuggestionsResponse is returned by the suggestions endpoint.
type SuggestionsResponse struct {
	Query       string             `json:"query"`
	Suggestions []SearchSuggestion `json:"suggestions"`
	DidYouMean  []string           `json:"did_you_mean,omitempty"`
}

// SearchClickRequest records that a result was opened.
type SearchClickRequest struct {
	Query    string `json:"query"`
	ResultID string `json:"result_id"`
}
