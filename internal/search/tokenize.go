package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const (
	minTokenRunes = 3
	snippetRunes  = 150
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

// term is one query or index token. word is the folded token as written;
// stem keys the fallback index and stemMatch is the substring counted when
// word itself occurs nowhere in an entry.
type term struct {
	word      string
	stem      string
	stemMatch string
}

// fold lowercases and composes s so Bengali vowel signs compare equal
// whatever form they arrived in.
func fold(s string) string {
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}

// tokenize splits text into index terms. Anything that is not a letter,
// mark or digit separates tokens; short tokens and stop words are dropped.
func tokenize(text string) []term {
	fields := strings.FieldsFunc(fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsMark(r) && !unicode.IsDigit(r)
	})

	terms := make([]term, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minTokenRunes {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		terms = append(terms, newTerm(f))
	}
	return terms
}

func newTerm(word string) term {
	if !isASCII(word) {
		return term{word: word, stem: word, stemMatch: word}
	}
	stem := english.Stem(word, false)
	if stem == "" {
		stem = word
	}
	// Porter2 sometimes rewrites the tail (happy -> happi); then only the
	// original word is a reliable substring.
	match := word
	if strings.HasPrefix(word, stem) {
		match = stem
	}
	return term{word: word, stem: stem, stemMatch: match}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// snippet cuts s to snippetRunes runes plus an ellipsis.
func snippet(s string) string {
	if utf8.RuneCountInString(s) <= snippetRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:snippetRunes]) + "..."
}
