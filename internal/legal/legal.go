// Package legal loads the bundled legal corpus and glossary.
package legal

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/legal-ai/legal-assistant/internal/model"
)

//go:embed corpus.yaml
var corpusYAML []byte

//go:embed glossary.yaml
var glossaryYAML []byte

// BuildError reports a malformed corpus or glossary entry.
type BuildError struct {
	Source string
	Entry  string
	Reason string
}

func (e *BuildError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("legal %s: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("legal %s: %s: %s", e.Source, e.Entry, e.Reason)
}

// Corpus is the static set of acts.
type Corpus struct {
	Acts []Act `yaml:"acts"`
}

// SectionCount is the number of sections across all acts.
func (c *Corpus) SectionCount() int {
	n := 0
	for _, a := range c.Acts {
		n += len(a.Sections)
	}
	return n
}

// Act is one statute with its excerpted sections.
type Act struct {
	ID       string    `yaml:"id"`
	Title    string    `yaml:"title"`
	TitleBn  string    `yaml:"title_bn"`
	Sections []Section `yaml:"sections"`
}

// Section is one numbered section or subsection.
type Section struct {
	Section    string              `yaml:"section"`
	Subsection string              `yaml:"subsection"`
	Category   model.LegalCategory `yaml:"category"`
	Title      string              `yaml:"title"`
	TitleBn    string              `yaml:"title_bn"`
	Content    string              `yaml:"content"`
	ContentBn  string              `yaml:"content_bn"`
}

// ID is the stable result id, e.g. consumer-rights-act-2009-2-20.
func (s Section) ID(actID string) string {
	if s.Subsection == "" {
		return actID + "-" + s.Section
	}
	return actID + "-" + s.Section + "-" + s.Subsection
}

// Ref renders the section number, e.g. 2(20).
func (s Section) Ref() string {
	if s.Subsection == "" {
		return s.Section
	}
	return s.Section + "(" + s.Subsection + ")"
}

// Text returns the title and content for lang. Bengali falls back to
// English where a translation is missing.
func (s Section) Text(lang model.Language) (title, content string) {
	title, content = s.Title, s.Content
	if lang == model.LanguageBengali {
		if s.TitleBn != "" {
			title = s.TitleBn
		}
		if s.ContentBn != "" {
			content = s.ContentBn
		}
	}
	return title, content
}

// DisplayTitle returns the act title for lang.
func (a Act) DisplayTitle(lang model.Language) string {
	if lang == model.LanguageBengali && a.TitleBn != "" {
		return a.TitleBn
	}
	return a.Title
}

// LoadCorpus parses the embedded corpus.
func LoadCorpus() (*Corpus, error) {
	return ParseCorpus(corpusYAML)
}

// ParseCorpus parses and validates a corpus document.
func ParseCorpus(data []byte) (*Corpus, error) {
	var c Corpus
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, &BuildError{Source: "corpus", Reason: err.Error()}
	}
	if len(c.Acts) == 0 {
		return nil, &BuildError{Source: "corpus", Reason: "no acts"}
	}

	seen := make(map[string]bool)
	for _, act := range c.Acts {
		if act.ID == "" || act.Title == "" {
			return nil, &BuildError{Source: "corpus", Entry: act.ID, Reason: "act id and title are required"}
		}
		for _, s := range act.Sections {
			id := s.ID(act.ID)
			if s.Section == "" || s.Title == "" || strings.TrimSpace(s.Content) == "" {
				return nil, &BuildError{Source: "corpus", Entry: id, Reason: "section number, title and content are required"}
			}
			switch s.Category {
			case model.CategoryConsumerRights, model.CategoryCriminalProcedure, model.CategoryGeneralLaw:
			default:
				return nil, &BuildError{Source: "corpus", Entry: id, Reason: fmt.Sprintf("unknown category %q", s.Category)}
			}
			if seen[id] {
				return nil, &BuildError{Source: "corpus", Entry: id, Reason: "duplicate section"}
			}
			seen[id] = true
		}
	}

	return &c, nil
}

// Term is a glossary entry.
type Term struct {
	Term         string   `yaml:"term"`
	Definition   string   `yaml:"definition"`
	RelatedTerms []string `yaml:"related_terms"`
	Category     string   `yaml:"category"`
}

// Glossary holds the bilingual term list and canned search patterns.
type Glossary struct {
	Terms    map[string][]Term   `yaml:"terms"`
	Patterns map[string][]string `yaml:"patterns"`
}

// LoadGlossary parses the embedded glossary.
func LoadGlossary() (*Glossary, error) {
	return ParseGlossary(glossaryYAML)
}

// ParseGlossary parses and validates a glossary document.
func ParseGlossary(data []byte) (*Glossary, error) {
	var g Glossary
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, &BuildError{Source: "glossary", Reason: err.Error()}
	}
	if len(g.Terms[string(model.LanguageEnglish)]) == 0 {
		return nil, &BuildError{Source: "glossary", Reason: "english terms are required"}
	}

	for lang, terms := range g.Terms {
		for i, t := range terms {
			if strings.TrimSpace(t.Term) == "" {
				return nil, &BuildError{Source: "glossary", Entry: fmt.Sprintf("%s[%d]", lang, i), Reason: "empty term"}
			}
		}
	}
	for lang, patterns := range g.Patterns {
		for i, p := range patterns {
			if strings.TrimSpace(p) == "" {
				return nil, &BuildError{Source: "glossary", Entry: fmt.Sprintf("patterns.%s[%d]", lang, i), Reason: "empty pattern"}
			}
		}
	}

	return &g, nil
}

// TermsFor returns the terms for lang, or the English ones.
func (g *Glossary) TermsFor(lang model.Language) []Term {
	if terms, ok := g.Terms[string(lang)]; ok {
		return terms
	}
	return g.Terms[string(model.LanguageEnglish)]
}

// PatternsFor returns the search patterns for lang, or the English ones.
func (g *Glossary) PatternsFor(lang model.Language) []string {
	if patterns, ok := g.Patterns[string(lang)]; ok {
		return patterns
	}
	return g.Patterns[string(model.LanguageEnglish)]
}

// AllTerms returns every term of both languages, lowercased, English first.
func (g *Glossary) AllTerms() []string {
	var out []string
	for _, lang := range []model.Language{model.LanguageEnglish, model.LanguageBengali} {
		for _, t := range g.Terms[string(lang)] {
			out = append(out, strings.ToLower(t.Term))
		}
	}
	return out
}
