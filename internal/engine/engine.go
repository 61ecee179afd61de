package engine

import (
	"sort"

	"go.uber.org/zap"
)

// Options configure one generation run. Zero values fall back to the
// documented defaults.
type Options struct {
	Strategy        Strategy
	Weights         Weights
	SearchBudget    int // maximum retraction attempts during backtracking
	OptimizerBudget int // maximum swap evaluations during improvement
}

// Generator runs the full pipeline: prioritise, search, optimise, audit.
// It holds no mutable state, so one Generator may serve concurrent runs as
// long as each run gets its own catalog.
type Generator struct {
	logger *zap.Logger
}

// NewGenerator constructs a Generator. A nil logger is replaced with a nop.
func NewGenerator(logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{logger: logger}
}

// Generate produces a best-effort timetable for the catalog. It fails only
// on catalog validation (*InputError); infeasible courses and exhausted
// budgets are reported inside the Result, never as errors.
func (g *Generator) Generate(cat *Catalog, opts Options) (*Result, error) {
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyBalanced
	}
	if opts.SearchBudget <= 0 {
		opts.SearchBudget = DefaultSearchBudget
	}
	if opts.OptimizerBudget <= 0 {
		opts.OptimizerBudget = DefaultOptimizerBudget
	}

	model := NewModel(opts.Weights)
	ordered := Order(cat, opts.Strategy)

	tracker, stats, unresolvedSet := search(cat, model, ordered, opts.SearchBudget)

	assignments := tracker.Assignments()
	sortAssignments(assignments)

	unresolved := make([]string, 0, len(unresolvedSet))
	for id := range unresolvedSet {
		unresolved = append(unresolved, id)
	}
	sort.Strings(unresolved)

	result := &Result{
		Assignments: assignments,
		Unresolved:  unresolved,
		Score:       model.TotalScore(cat, assignments),
		Stats:       stats,
	}

	result = Improve(cat, model, result, opts.OptimizerBudget)

	result.Violations = auditHardConstraints(cat, result.Assignments)
	result.HardSatisfied = len(result.Violations) == 0

	g.logger.Debug("generation run finished",
		zap.String("strategy", string(opts.Strategy)),
		zap.Int("assignments", len(result.Assignments)),
		zap.Int("unresolved", len(result.Unresolved)),
		zap.Float64("score", result.Score),
		zap.Bool("hard_satisfied", result.HardSatisfied),
	)
	return result, nil
}
