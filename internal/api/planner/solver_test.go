package planner

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bruteForce enumerates every assignment; only usable for tiny problems.
func bruteForce(p Problem) (float64, bool) {
	numSlots := len(p.Eligible)
	used := make([]bool, len(p.Scores))
	current := make([]int, numSlots)
	best, found := 0.0, false

	var walk func(slot int, score float64)
	walk = func(slot int, score float64) {
		if slot == numSlots {
			for _, places := range p.Cover {
				if len(places) == 0 {
					continue
				}
				covered := false
				for _, place := range places {
					for _, chosen := range current {
						if chosen == place {
							covered = true
						}
					}
				}
				if !covered {
					return
				}
			}
			if !found || score > best {
				best, found = score, true
			}
			return
		}
		current[slot] = -1
		walk(slot+1, score)
		for place := range p.Scores {
			if used[place] || !p.Eligible[slot][place] {
				continue
			}
			used[place] = true
			current[slot] = place
			walk(slot+1, score+p.Scores[place])
			used[place] = false
			current[slot] = -1
		}
	}
	walk(0, 0)
	return best, found
}

func randomProblem(r *rand.Rand, slots, places, tokens int) Problem {
	p := Problem{
		Eligible: make([][]bool, slots),
		Scores:   make([]float64, places),
		Cover:    make([][]int, tokens),
	}
	for s := range p.Eligible {
		p.Eligible[s] = make([]bool, places)
		for i := range p.Eligible[s] {
			p.Eligible[s][i] = r.Float64() < 0.4
		}
	}
	for i := range p.Scores {
		p.Scores[i] = r.Float64()*2 - 0.3
	}
	for t := range p.Cover {
		for i := 0; i < places; i++ {
			if r.Float64() < 0.2 {
				p.Cover[t] = append(p.Cover[t], i)
			}
		}
	}
	return p
}

func assertFeasible(t *testing.T, p Problem, sol Solution) {
	t.Helper()
	require.Len(t, sol.Assignment, len(p.Eligible))
	used := make(map[int]bool)
	total := 0.0
	for slot, place := range sol.Assignment {
		if place < 0 {
			continue
		}
		assert.True(t, p.Eligible[slot][place], "slot %d place %d not eligible", slot, place)
		assert.False(t, used[place], "place %d used twice", place)
		used[place] = true
		total += p.Scores[place]
	}
	for token, places := range p.Cover {
		if len(places) == 0 {
			continue
		}
		covered := false
		for _, place := range places {
			covered = covered || used[place]
		}
		assert.True(t, covered, "token %d not covered", token)
	}
	assert.InDelta(t, total, sol.Objective, 1e-9)
}

func TestBranchAndBoundSolver_MatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	solver := BranchAndBoundSolver{}

	for i := 0; i < 200; i++ {
		p := randomProblem(r, 1+r.Intn(4), 1+r.Intn(6), r.Intn(3))
		want, feasible := bruteForce(p)

		sol, err := solver.Solve(context.Background(), p)
		if !feasible {
			assert.ErrorIs(t, err, ErrNoSolution, "problem %d", i)
			continue
		}
		require.NoError(t, err, "problem %d", i)
		assert.True(t, sol.Optimal)
		assert.InDelta(t, want, sol.Objective, 1e-9, "problem %d", i)
		assertFeasible(t, p, sol)
	}
}

func TestBranchAndBoundSolver_Constraints(t *testing.T) {
	solver := BranchAndBoundSolver{}
	ctx := context.Background()

	t.Run("must-have beats a higher score", func(t *testing.T) {
		p := Problem{
			Eligible: [][]bool{{true, true}},
			Scores:   []float64{0.9, 0.1},
			Cover:    [][]int{{1}},
		}
		sol, err := solver.Solve(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, sol.Assignment)
	})

	t.Run("one place cannot fill two slots", func(t *testing.T) {
		p := Problem{
			Eligible: [][]bool{{true}, {true}},
			Scores:   []float64{1},
		}
		sol, err := solver.Solve(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, 1.0, sol.Objective)
		assertFeasible(t, p, sol)
	})

	t.Run("negative scores are left out", func(t *testing.T) {
		p := Problem{
			Eligible: [][]bool{{true}},
			Scores:   []float64{-0.2},
		}
		sol, err := solver.Solve(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, []int{-1}, sol.Assignment)
	})

	t.Run("unreachable must-have is infeasible", func(t *testing.T) {
		p := Problem{
			Eligible: [][]bool{{true, false}},
			Scores:   []float64{0.5, 0.9},
			Cover:    [][]int{{1}},
		}
		_, err := solver.Solve(ctx, p)
		assert.ErrorIs(t, err, ErrNoSolution)
	})

	t.Run("empty cover lists are ignored", func(t *testing.T) {
		p := Problem{
			Eligible: [][]bool{{true}},
			Scores:   []float64{0.5},
			Cover:    [][]int{{}},
		}
		sol, err := solver.Solve(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, []int{0}, sol.Assignment)
	})
}

func TestBranchAndBoundSolver_RespectsDeadline(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	p := randomProblem(r, 6, 300, 4)
	for s := range p.Eligible {
		for i := range p.Eligible[s] {
			p.Eligible[s][i] = true
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	sol, err := BranchAndBoundSolver{}.Solve(ctx, p)
	assert.Less(t, time.Since(start), 2*time.Second)
	if err != nil {
		assert.ErrorIs(t, err, ErrNoSolution)
		return
	}
	assertFeasible(t, p, sol)
}
