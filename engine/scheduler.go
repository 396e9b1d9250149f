package engine

import (
	"log/slog"

	"github.com/retroforge/peep68k/asm"
)

// Result reports a whole optimization run.
type Result struct {
	Passes    int
	Rewrites  int
	Hits      map[string]int
	Converged bool
}

// Scheduler drives matcher and rewriter to a fixpoint or the pass cap.
type Scheduler struct {
	matcher  *Matcher
	rewriter *Rewriter
	maxPass  int
	logger   *slog.Logger
}

// NewScheduler builds a scheduler. maxPasses bounds pathological pattern
// interaction; values below 1 fall back to 1.
func NewScheduler(m *Matcher, maxPasses int, logger *slog.Logger) *Scheduler {
	if maxPasses < 1 {
		maxPasses = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		matcher:  m,
		rewriter: &Rewriter{},
		maxPass:  maxPasses,
		logger:   logger,
	}
}

// Run repeats left-to-right scans over the stream until a pass changes
// nothing or the pass cap is hit. After a rewrite the cursor stays at the
// start of the replacement, so a rewrite can expose a new adjacent match
// within the same pass. Identical input and pattern set always produce
// identical output: patterns are tried in fixed ID order and nothing here
// iterates a map.
func (sch *Scheduler) Run(s *asm.Stream) (Result, error) {
	res := Result{Hits: make(map[string]int)}

	for pass := 1; pass <= sch.maxPass; pass++ {
		pr := PassResult{Hits: res.Hits}

		// Every accepted rewrite strictly changes the stream, but two
		// patterns could still feed each other at one position forever
		// within a single pass. The budget turns that into the same
		// cap-reached outcome as inter-pass oscillation.
		budget := 4*s.Len() + 64

		pos := 0
		for pos < s.Len() {
			m, ok := sch.matcher.MatchAt(s, pos)
			if !ok {
				pos++
				continue
			}
			if budget == 0 {
				res.Passes = pass
				res.Rewrites += pr.Rewrites
				sch.logger.Warn("rewrite budget exhausted mid-pass, committing current state",
					"pass", pass, "rewrites", res.Rewrites)
				return res, nil
			}
			budget--
			if err := sch.rewriter.Apply(s, m, &pr); err != nil {
				res.Passes = pass
				res.Rewrites += pr.Rewrites
				return res, err
			}
		}

		res.Passes = pass
		res.Rewrites += pr.Rewrites
		if !pr.Changed {
			res.Converged = true
			return res, nil
		}
	}

	sch.logger.Warn("pass cap reached before fixpoint, committing current state",
		"passes", res.Passes, "rewrites", res.Rewrites)
	return res, nil
}
