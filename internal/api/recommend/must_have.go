package recommend

import (
	"sort"
	"strings"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const minMustHaveLen = 3

// ExtractMustHaves returns the sub-query words (at least three characters) that
// appear in some candidate's "category name" text, sorted and deduplicated.
func ExtractMustHaves(subQueries []string, candidates []types.Candidate) []string {
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Place.SearchText()
	}

	found := make(map[string]struct{})
	for _, sq := range subQueries {
		for _, word := range strings.Fields(strings.ToLower(sq)) {
			if len([]rune(word)) < minMustHaveLen {
				continue
			}
			if _, ok := found[word]; ok {
				continue
			}
			for _, text := range texts {
				if strings.Contains(text, word) {
					found[word] = struct{}{}
					break
				}
			}
		}
	}

	mustHaves := make([]string, 0, len(found))
	for w := range found {
		mustHaves = append(mustHaves, w)
	}
	sort.Strings(mustHaves)
	return mustHaves
}
