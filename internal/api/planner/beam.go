package planner

import (
	"sort"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const (
	DefaultBeamWidth = 3
	coverageBonus    = 2.0
)

// beamPath is an immutable partial plan. Expanding a path allocates a new node
// pointing at its parent, so sibling paths share their common prefix.
type beamPath struct {
	parent    *beamPath
	slot      int
	candidate int
	category  types.ScheduleCategory
	query     string
	score     float64
}

func (p *beamPath) isRoot() bool { return p.parent == nil }

func (p *beamPath) uses(candidate int) bool {
	for n := p; !n.isRoot(); n = n.parent {
		if n.candidate == candidate {
			return true
		}
	}
	return false
}

func (p *beamPath) covers(query string) bool {
	for n := p; !n.isRoot(); n = n.parent {
		if n.query == query {
			return true
		}
	}
	return false
}

func (p *beamPath) extend(slot, candidate int, c types.Candidate) *beamPath {
	score := p.score + c.FinalScore
	if !p.isRoot() {
		score += TransitionScore(p.category, c.ScheduleCategory)
		if !p.covers(c.SourceQuery) {
			score += coverageBonus
		}
	}
	return &beamPath{
		parent:    p,
		slot:      slot,
		candidate: candidate,
		category:  c.ScheduleCategory,
		query:     c.SourceQuery,
		score:     score,
	}
}

// assignment returns slot -> candidate index, -1 for skipped slots.
func (p *beamPath) assignment(numSlots int) []int {
	out := make([]int, numSlots)
	for i := range out {
		out[i] = -1
	}
	for n := p; !n.isRoot(); n = n.parent {
		out[n.slot] = n.candidate
	}
	return out
}

// beamSearch walks the slots in order keeping the width best partial plans.
// The beam is seeded from the first slot only: when nothing can fill it there
// is no plan and the result is nil. A later slot nobody can fill is skipped and
// the beam carries over unchanged.
func beamSearch(candidates []types.Candidate, eligible [][]bool, width int) []int {
	if width <= 0 {
		width = DefaultBeamWidth
	}
	beam := []*beamPath{{candidate: -1, slot: -1}}

	for slot := range eligible {
		var expansions []*beamPath
		for _, path := range beam {
			for i := range candidates {
				if !eligible[slot][i] || path.uses(i) {
					continue
				}
				expansions = append(expansions, path.extend(slot, i, candidates[i]))
			}
		}
		if len(expansions) == 0 {
			if slot == 0 {
				return nil
			}
			continue
		}
		sort.SliceStable(expansions, func(a, b int) bool {
			return expansions[a].score > expansions[b].score
		})
		if len(expansions) > width {
			expansions = expansions[:width]
		}
		beam = expansions
	}

	return beam[0].assignment(len(eligible))
}
