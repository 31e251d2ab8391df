package query

import (
	"regexp"
	"strings"
)

var separator = regexp.MustCompile(`,\s*|\s+and\s+`)

// fillerPrefixes are checked in order; longer phrases come first so "i want to"
// wins over "i want".
var fillerPrefixes = []string{
	"i want to go to",
	"i want to",
	"i want",
	"can you find me",
	"find me",
	"a",
	"an",
}

// Decompose splits a free-text request into sub-queries on commas and the word
// "and", stripping one leading filler phrase from each fragment.
func Decompose(input string) []string {
	lowered := strings.ToLower(strings.TrimSpace(input))
	if lowered == "" {
		return nil
	}

	fragments := separator.Split(lowered, -1)
	subQueries := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		fragment = stripFiller(strings.TrimSpace(fragment))
		if fragment != "" {
			subQueries = append(subQueries, fragment)
		}
	}
	return subQueries
}

func stripFiller(fragment string) string {
	for _, prefix := range fillerPrefixes {
		if rest, ok := strings.CutPrefix(fragment, prefix+" "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return fragment
}
