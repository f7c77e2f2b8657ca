// Package search ranks saved conversations and the legal corpus against
// a free-text query.
package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/legal-ai/legal-assistant/internal/legal"
	"github.com/legal-ai/legal-assistant/internal/model"
)

// MaxLegalResults caps a legal search.
const MaxLegalResults = 20

type entry struct {
	result model.SearchResult
	ref    model.LegalReference
	// folded copies used for occurrence counting
	title   string
	content string
}

type langIndex struct {
	entries []entry
	// exact is keyed by folded token, stems by its snowball stem.
	exact map[string][]int
	stems map[string][]int
}

// Index is an inverted index over the legal corpus, one per language. It is
// immutable after NewIndex and safe for concurrent use.
type Index struct {
	langs map[model.Language]*langIndex
}

// NewIndex builds the index for English and Bengali.
func NewIndex(corpus *legal.Corpus) *Index {
	ix := &Index{langs: make(map[model.Language]*langIndex)}
	for _, lang := range []model.Language{model.LanguageEnglish, model.LanguageBengali} {
		ix.langs[lang] = buildLangIndex(corpus, lang)
	}
	return ix
}

func buildLangIndex(corpus *legal.Corpus, lang model.Language) *langIndex {
	li := &langIndex{
		exact: make(map[string][]int),
		stems: make(map[string][]int),
	}

	for _, act := range corpus.Acts {
		actTitle := act.DisplayTitle(lang)
		for _, s := range act.Sections {
			sectionTitle, content := s.Text(lang)
			title := fmt.Sprintf("%s - %s %s: %s", actTitle, sectionLabel(lang), s.Ref(), sectionTitle)

			e := entry{
				result: model.SearchResult{
					ID:      s.ID(act.ID),
					Kind:    model.KindLawSection,
					Title:   title,
					Content: content,
					Snippet: snippet(content),
					Source:  actTitle,
				},
				ref: model.LegalReference{
					ActName:     actTitle,
					Section:     s.Section,
					Subsection:  s.Subsection,
					Description: sectionTitle,
					Category:    s.Category,
				},
				title:   fold(title),
				content: fold(content),
			}

			idx := len(li.entries)
			li.entries = append(li.entries, e)

			seenWord := make(map[string]bool)
			seenStem := make(map[string]bool)
			for _, t := range tokenize(content + " " + sectionTitle) {
				if !seenWord[t.word] {
					seenWord[t.word] = true
					li.exact[t.word] = append(li.exact[t.word], idx)
				}
				if !seenStem[t.stem] {
					seenStem[t.stem] = true
					li.stems[t.stem] = append(li.stems[t.stem], idx)
				}
			}
		}
	}

	return li
}

func sectionLabel(lang model.Language) string {
	if lang == model.LanguageBengali {
		return "ধারা"
	}
	return "Section"
}

// Search returns law sections matching any query term, highest score
// first. Each candidate is scored once against all query terms: ten per
// occurrence in the title plus two per occurrence in the content.
//
// A term only reaches sections through its stem when no section contains
// the term as written, so "adulteration" still finds "adulterated".
func (ix *Index) Search(query string, lang model.Language) []model.SearchResult {
	li, ok := ix.langs[lang]
	if !ok {
		li = ix.langs[model.LanguageEnglish]
	}
	if strings.TrimSpace(query) == "" {
		return nil
	}

	terms := tokenize(query)

	var candidates []int
	seen := make(map[int]bool)
	for _, t := range terms {
		postings, ok := li.exact[t.word]
		if !ok {
			postings = li.stems[t.stem]
		}
		for _, i := range postings {
			if !seen[i] {
				seen[i] = true
				candidates = append(candidates, i)
			}
		}
	}

	results := make([]model.SearchResult, 0, len(candidates))
	for _, i := range candidates {
		e := li.entries[i]
		r := e.result
		ref := e.ref
		r.LegalReference = &ref
		r.RelevanceScore = score(terms, e.title, e.content)
		results = append(results, r)
	}

	sortByScore(results)
	if len(results) > MaxLegalResults {
		results = results[:MaxLegalResults]
	}
	return results
}

// score counts each term as written, falling back to its stem only when
// the literal term is absent from both title and content.
func score(terms []term, title, content string) int {
	total := 0
	for _, t := range terms {
		inTitle, inContent := strings.Count(title, t.word), strings.Count(content, t.word)
		if inTitle+inContent == 0 {
			inTitle, inContent = strings.Count(title, t.stemMatch), strings.Count(content, t.stemMatch)
		}
		total += 10*inTitle + 2*inContent
	}
	return total
}

func sortByScore(results []model.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
}
