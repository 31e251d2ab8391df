package planner

import (
	"context"
	"errors"
	"sort"
)

var ErrNoSolution = errors.New("no feasible assignment")

// Problem is a slot assignment problem: pick at most one place per slot and use
// every place at most once, maximising the summed score of the picks.
type Problem struct {
	// Eligible[slot][place] marks the pairs that may be selected.
	Eligible [][]bool
	Scores   []float64
	// Cover lists, per must-have token, the places that satisfy it. At least one
	// of them has to be selected. Empty lists are ignored.
	Cover [][]int
}

// Solution maps each slot to a place index, -1 when the slot stays empty.
type Solution struct {
	Assignment []int
	Objective  float64
	// Optimal is false when the search stopped at the deadline with an incumbent.
	Optimal bool
}

// Solver finds the best assignment within ctx. It returns ErrNoSolution when
// the problem is infeasible or no feasible assignment was found in time.
type Solver interface {
	Solve(ctx context.Context, p Problem) (Solution, error)
}

var _ Solver = BranchAndBoundSolver{}

// BranchAndBoundSolver is an exact depth-first search over slots with an
// optimistic bound and must-have reachability pruning.
type BranchAndBoundSolver struct{}

const ctxCheckInterval = 1024

type bnbState struct {
	ctx       context.Context
	p         Problem
	order     [][]int
	slotBound []float64
	tokenOf   [][]int
	numTokens int

	used       []bool
	coverCount []int
	current    []int
	best       []int
	bestScore  float64
	found      bool
	nodes      int
	timedOut   bool
}

func (BranchAndBoundSolver) Solve(ctx context.Context, p Problem) (Solution, error) {
	numSlots := len(p.Eligible)
	numPlaces := len(p.Scores)

	s := &bnbState{
		ctx:     ctx,
		p:       p,
		order:   make([][]int, numSlots),
		used:    make([]bool, numPlaces),
		current: make([]int, numSlots),
		tokenOf: make([][]int, numPlaces),
	}

	// per-slot candidates, best score first
	for slot := 0; slot < numSlots; slot++ {
		for place := 0; place < numPlaces; place++ {
			if p.Eligible[slot][place] {
				s.order[slot] = append(s.order[slot], place)
			}
		}
		sort.SliceStable(s.order[slot], func(a, b int) bool {
			return p.Scores[s.order[slot][a]] > p.Scores[s.order[slot][b]]
		})
	}

	// suffix sums of the best positive pick per slot
	s.slotBound = make([]float64, numSlots+1)
	for slot := numSlots - 1; slot >= 0; slot-- {
		best := 0.0
		if len(s.order[slot]) > 0 && p.Scores[s.order[slot][0]] > 0 {
			best = p.Scores[s.order[slot][0]]
		}
		s.slotBound[slot] = s.slotBound[slot+1] + best
	}

	for _, places := range p.Cover {
		if len(places) == 0 {
			continue
		}
		token := s.numTokens
		s.numTokens++
		for _, place := range places {
			s.tokenOf[place] = append(s.tokenOf[place], token)
		}
	}
	s.coverCount = make([]int, s.numTokens)

	s.search(0, 0)

	if !s.found {
		return Solution{}, ErrNoSolution
	}
	return Solution{
		Assignment: s.best,
		Objective:  s.bestScore,
		Optimal:    !s.timedOut,
	}, nil
}

func (s *bnbState) search(slot int, score float64) {
	if s.timedOut {
		return
	}
	s.nodes++
	if s.nodes%ctxCheckInterval == 0 && s.ctx.Err() != nil {
		s.timedOut = true
		return
	}

	if slot == len(s.p.Eligible) {
		if s.uncovered() > 0 {
			return
		}
		if !s.found || score > s.bestScore {
			s.found = true
			s.bestScore = score
			s.best = append(s.best[:0], s.current...)
		}
		return
	}

	if s.found && score+s.slotBound[slot] <= s.bestScore {
		return
	}
	if !s.coverable(slot) {
		return
	}

	for _, place := range s.order[slot] {
		if s.used[place] {
			continue
		}
		s.pick(slot, place)
		s.search(slot+1, score+s.p.Scores[place])
		s.unpick(place)
		if s.timedOut {
			return
		}
	}

	s.current[slot] = -1
	s.search(slot+1, score)
}

func (s *bnbState) pick(slot, place int) {
	s.used[place] = true
	s.current[slot] = place
	for _, t := range s.tokenOf[place] {
		s.coverCount[t]++
	}
}

func (s *bnbState) unpick(place int) {
	s.used[place] = false
	for _, t := range s.tokenOf[place] {
		s.coverCount[t]--
	}
}

func (s *bnbState) uncovered() int {
	n := 0
	for _, c := range s.coverCount {
		if c == 0 {
			n++
		}
	}
	return n
}

// coverable reports whether every uncovered token can still be reached by an
// unused place in some slot from slot onwards.
func (s *bnbState) coverable(slot int) bool {
	if s.numTokens == 0 {
		return true
	}
	for token, count := range s.coverCount {
		if count > 0 {
			continue
		}
		if !s.reachable(token, slot) {
			return false
		}
	}
	return true
}

func (s *bnbState) reachable(token, fromSlot int) bool {
	for slot := fromSlot; slot < len(s.p.Eligible); slot++ {
		for _, place := range s.order[slot] {
			if s.used[place] {
				continue
			}
			for _, t := range s.tokenOf[place] {
				if t == token {
					return true
				}
			}
		}
	}
	return false
}
