package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/legal-ai/legal-assistant/internal/middleware"
	"github.com/legal-ai/legal-assistant/internal/model"
	"github.com/legal-ai/legal-assistant/internal/search"
	"github.com/legal-ai/legal-assistant/internal/suggest"
	"github.com/legal-ai/legal-assistant/pkg/logger"
)

// SearchHandler handles search, suggestion and analytics endpoints.
type SearchHandler struct {
	search    *search.Service
	suggester *suggest.Suggester
	analytics *suggest.Store
	logger    *logger.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(svc *search.Service, suggester *suggest.Suggester, analytics *suggest.Store, log *logger.Logger) *SearchHandler {
	return &SearchHandler{
		search:    svc,
		suggester: suggester,
		analytics: analytics,
		logger:    log,
	}
}

// Search handles GET /api/v1/search
// Query parameters: q, lang, type and category (comma separated or
// repeated), from and to (RFC 3339 or YYYY-MM-DD).
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	query := q.Get("q")

	if err := middleware.ValidateQuery(query); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filters, err := parseFilters(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lang := model.ParseLanguage(q.Get("lang"))

	results, err := h.search.Search(ctx, middleware.GetUserID(ctx), query, lang, filters)
	if err != nil {
		writeServiceError(w, middleware.RequestLogger(ctx, h.logger), err, "search")
		return
	}

	resp := &model.SearchResponse{
		Query:   query,
		Results: results,
		Total:   len(results),
	}
	if len(results) == 0 && strings.TrimSpace(query) != "" {
		resp.Suggestions = h.suggester.Spelling(query, lang)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Suggestions handles GET /api/v1/suggestions
func (h *SearchHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")

	if err := middleware.ValidateQuery(query); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := suggest.DefaultLimit
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 50 {
			limit = parsed
		}
	}

	suggestions, didYouMean := h.suggester.Complete(query, model.ParseLanguage(q.Get("lang")), limit)
	writeJSON(w, http.StatusOK, &model.SuggestionsResponse{
		Query:       query,
		Suggestions: suggestions,
		DidYouMean:  didYouMean,
	})
}

// Click handles POST /api/v1/search/clicks
func (h *SearchHandler) Click(w http.ResponseWriter, r *http.Request) {
	var req model.SearchClickRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" || req.ResultID == "" {
		writeError(w, http.StatusBadRequest, "query and result_id are required")
		return
	}

	if !h.analytics.RecordClick(req.Query, req.ResultID) {
		writeError(w, http.StatusNotFound, "query not in recent history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Analytics handles GET /api/v1/search/analytics
func (h *SearchHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.analytics.Snapshot())
}

// ClearHistory handles DELETE /api/v1/search/history
func (h *SearchHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.analytics.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

func parseFilters(q map[string][]string) (model.SearchFilters, error) {
	filters := model.DefaultSearchFilters()

	if kinds := listParam(q["type"]); len(kinds) > 0 {
		filters.Kinds = filters.Kinds[:0]
		for _, k := range kinds {
			kind := model.ResultKind(k)
			switch kind {
			case model.KindConversation, model.KindLegalDocument, model.KindLawSection:
				filters.Kinds = append(filters.Kinds, kind)
			default:
				return filters, errBadParam("type", k)
			}
		}
	}

	for _, c := range listParam(q["category"]) {
		cat := model.LegalCategory(c)
		switch cat {
		case model.CategoryConsumerRights, model.CategoryCriminalProcedure, model.CategoryGeneralLaw:
			filters.Categories = append(filters.Categories, cat)
		default:
			return filters, errBadParam("category", c)
		}
	}

	from, err := parseDate(q, "from", false)
	if err != nil {
		return filters, err
	}
	to, err := parseDate(q, "to", true)
	if err != nil {
		return filters, err
	}
	if !from.IsZero() || !to.IsZero() {
		filters.DateRange = &model.DateRange{Start: from, End: to}
	}

	return filters, nil
}

func listParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseDate accepts RFC 3339 or a bare date. A bare "to" date covers the
// whole day.
func parseDate(q map[string][]string, key string, endOfDay bool) (time.Time, error) {
	values := q[key]
	if len(values) == 0 || values[0] == "" {
		return time.Time{}, nil
	}
	v := values[0]
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, errBadParam(key, v)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

type paramError struct {
	name, value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + " " + strconv.Quote(e.value)
}

func errBadParam(name, value string) error {
	return &paramError{name: name, value: value}
}
