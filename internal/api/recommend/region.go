package recommend

import (
	"strings"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type regionAccumulator struct {
	totalSimilarity float64
	queries         map[string]struct{}
}

func (a *regionAccumulator) score() float64 {
	coverage := float64(len(a.queries))
	return coverage * coverage * a.totalSimilarity
}

// SelectRegion scores every region as coverage² × total similarity, where
// coverage is the number of distinct sub-queries among its candidates, and
// keeps only the candidates of the best region. Ties go to the
// lexicographically smallest region name.
func SelectRegion(candidates []types.Candidate) (string, []types.Candidate) {
	if len(candidates) == 0 {
		return "", nil
	}

	regions := make(map[string]*regionAccumulator)
	for _, c := range candidates {
		region := strings.TrimSpace(c.Place.Region)
		acc, ok := regions[region]
		if !ok {
			acc = &regionAccumulator{queries: make(map[string]struct{})}
			regions[region] = acc
		}
		acc.totalSimilarity += c.SimilarityScore
		acc.queries[c.SourceQuery] = struct{}{}
	}

	var winner string
	var best float64
	first := true
	for region, acc := range regions {
		s := acc.score()
		if first || s > best || (s == best && region < winner) {
			winner, best, first = region, s, false
		}
	}

	filtered := make([]types.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c.Place.Region) == winner {
			filtered = append(filtered, c)
		}
	}
	return winner, filtered
}
