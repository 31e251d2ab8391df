package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/api/poi"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const DefaultSolverTimeout = 10 * time.Second

type Options struct {
	BeamWidth     int
	SolverTimeout time.Duration
	// Weekday pins planning to a lower-case weekday ("friday"). Empty means
	// the weekday of the planner clock.
	Weekday  string
	Schedule []types.ScheduleSlot
	Solver   Solver
	Now      func() time.Time
}

type Planner struct {
	opts   Options
	logger *slog.Logger
}

func NewPlanner(opts Options, logger *slog.Logger) *Planner {
	if opts.BeamWidth <= 0 {
		opts.BeamWidth = DefaultBeamWidth
	}
	if opts.SolverTimeout <= 0 {
		opts.SolverTimeout = DefaultSolverTimeout
	}
	if len(opts.Schedule) == 0 {
		opts.Schedule = types.DefaultSchedule
	}
	if opts.Solver == nil {
		opts.Solver = BranchAndBoundSolver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Planner{opts: opts, logger: logger}
}

// Plan assigns candidates to the daily template. Without must-haves a beam
// search is used; otherwise the constraint solver has to place every must-have
// token somewhere in the day. An unsatisfiable day is an empty itinerary, not
// an error. candidates are expected best first.
func (p *Planner) Plan(ctx context.Context, candidates []types.Candidate, mustHaves []string) (types.DayItinerary, error) {
	strategy := types.StrategyBeam
	if len(mustHaves) > 0 {
		strategy = types.StrategyConstraint
	}
	weekday := p.weekday()

	ctx, span := otel.Tracer("Planner").Start(ctx, "Plan", trace.WithAttributes(
		attribute.Int("candidates.count", len(candidates)),
		attribute.String("strategy", string(strategy)),
		attribute.String("weekday", weekday),
		attribute.StringSlice("must_haves", mustHaves),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return types.DayItinerary{}, err
	}

	categorized := make([]types.Candidate, len(candidates))
	for i, c := range candidates {
		c.ScheduleCategory = Categorize(c.Place)
		categorized[i] = c
	}
	eligible := p.eligibility(categorized, weekday)

	var assignment []int
	switch strategy {
	case types.StrategyConstraint:
		var err error
		assignment, err = p.solve(ctx, categorized, eligible, mustHaves)
		if err != nil {
			if errors.Is(err, ErrNoSolution) {
				p.logger.InfoContext(ctx, "No feasible itinerary for must-haves", slog.Any("must_haves", mustHaves))
				span.SetStatus(codes.Ok, "No feasible itinerary")
				return types.DayItinerary{Strategy: strategy}, nil
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "Solver failed")
			return types.DayItinerary{}, fmt.Errorf("failed to solve itinerary: %w", err)
		}
	default:
		assignment = beamSearch(categorized, eligible, p.opts.BeamWidth)
	}

	day := p.format(categorized, assignment)
	day.Strategy = strategy

	metrics.Get().PlannerStrategyTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("strategy", string(strategy))))
	span.SetAttributes(attribute.Int("steps.count", len(day.Steps)))
	span.SetStatus(codes.Ok, "Day planned")
	return day, nil
}

func (p *Planner) weekday() string {
	if p.opts.Weekday != "" {
		return strings.ToLower(p.opts.Weekday)
	}
	return poi.WeekdayName(p.opts.Now())
}

// eligibility[slot][candidate] holds when the category fits the slot and the
// place is open at the slot time.
func (p *Planner) eligibility(candidates []types.Candidate, weekday string) [][]bool {
	eligible := make([][]bool, len(p.opts.Schedule))
	for s, slot := range p.opts.Schedule {
		eligible[s] = make([]bool, len(candidates))
		for i, c := range candidates {
			eligible[s][i] = slot.Accepts(c.ScheduleCategory) &&
				poi.IsOpenAt(c.Place.OperatingHours, weekday, slot.Time)
		}
	}
	return eligible
}

func (p *Planner) solve(ctx context.Context, candidates []types.Candidate, eligible [][]bool, mustHaves []string) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.SolverTimeout)
	defer cancel()

	problem := Problem{
		Eligible: eligible,
		Scores:   make([]float64, len(candidates)),
		Cover:    make([][]int, len(mustHaves)),
	}
	for i, c := range candidates {
		problem.Scores[i] = c.FinalScore
	}
	for t, token := range mustHaves {
		token = strings.ToLower(token)
		for i, c := range candidates {
			if strings.Contains(c.Place.SearchText(), token) {
				problem.Cover[t] = append(problem.Cover[t], i)
			}
		}
	}

	m := metrics.Get()
	solution, err := p.opts.Solver.Solve(ctx, problem)
	if err != nil {
		m.SolverOutcomesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "no_solution")))
		return nil, err
	}
	outcome := "optimal"
	if !solution.Optimal {
		outcome = "feasible"
		p.logger.WarnContext(ctx, "Solver stopped at deadline, using best assignment found",
			slog.Duration("timeout", p.opts.SolverTimeout),
			slog.Float64("objective", solution.Objective))
	}
	m.SolverOutcomesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	return solution.Assignment, nil
}

// format numbers the filled slots from 1 in template order, labelling each step
// with the slot it was assigned to.
func (p *Planner) format(candidates []types.Candidate, assignment []int) types.DayItinerary {
	var day types.DayItinerary
	seen := make(map[string]struct{})
	for s, idx := range assignment {
		if idx < 0 {
			continue
		}
		c := candidates[idx]
		day.Steps = append(day.Steps, types.ItineraryStep{
			Step:           len(day.Steps) + 1,
			Slot:           p.opts.Schedule[s].Label,
			PlaceID:        c.Place.ID,
			Name:           c.Place.Name,
			Geom:           types.GeoPoint{Lat: c.Place.Latitude, Lon: c.Place.Longitude},
			OperatingHours: c.Place.OperatingHours,
			IndoorOutdoor:  c.Place.IndoorOutdoor,
			Website:        c.Place.Website,
			ExternalURL:    c.Place.ExternalURL,
			Description:    c.Place.Description,
		})
		if _, ok := seen[c.SourceQuery]; !ok && c.SourceQuery != "" {
			seen[c.SourceQuery] = struct{}{}
			day.CoveredQueries = append(day.CoveredQueries, c.SourceQuery)
		}
	}
	return day
}
