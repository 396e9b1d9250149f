// Package pattern holds the peephole rewrite catalog. Every pattern is a
// pure function of its window: the predicate and the rewriter may look at the
// lines they are handed and nothing else, which is what keeps each rule
// independently testable and the whole catalog safe to share read-only.
package pattern

import (
	"sort"

	"github.com/retroforge/peep68k/asm"
)

// Category groups patterns for configuration purposes.
type Category string

const (
	// CategoryMoveElim covers redundant move and load elimination.
	CategoryMoveElim Category = "movelim"
	// CategoryMulShift covers multiply-by-constant strength reduction.
	CategoryMulShift Category = "mulshift"
	// CategoryDeadStore covers stores overwritten before any use.
	CategoryDeadStore Category = "deadstore"
	// CategoryCmpBranch covers compare-and-branch simplification.
	CategoryCmpBranch Category = "cmpbranch"
)

// Categories lists every category a bundled pattern belongs to.
func Categories() []Category {
	return []Category{
		CategoryMoveElim,
		CategoryMulShift,
		CategoryDeadStore,
		CategoryCmpBranch,
	}
}

// Bindings carries the operands a predicate captured, keyed by role.
type Bindings map[string]string

// Pattern is one rewrite rule. Lower IDs take priority; the matcher never
// backtracks to a higher ID once a lower one fires at a position.
type Pattern struct {
	ID       int
	Name     string
	Category Category

	// MinWindow and MaxWindow bound the number of consecutive lines the
	// predicate inspects. The matcher tries smaller windows first.
	MinWindow int
	MaxWindow int

	// LabelAware patterns accept label definitions inside their window and
	// take responsibility for keeping them reachable. All others only ever
	// see a label on the first line, which the rewrite engine relocates.
	LabelAware bool

	Match   func(win []*asm.Line) (Bindings, bool)
	Rewrite func(win []*asm.Line, b Bindings) []*asm.Line
}

// Catalog is the ordered pattern table, immutable after construction.
type Catalog struct {
	patterns []*Pattern
	byName   map[string]*Pattern
}

// NewCatalog builds a catalog from the given rules, ordered by ID.
func NewCatalog(patterns ...*Pattern) *Catalog {
	c := &Catalog{
		patterns: append([]*Pattern(nil), patterns...),
		byName:   make(map[string]*Pattern, len(patterns)),
	}
	sort.Slice(c.patterns, func(i, j int) bool {
		return c.patterns[i].ID < c.patterns[j].ID
	})
	for _, p := range c.patterns {
		c.byName[p.Name] = p
	}
	return c
}

// All returns every pattern in priority order.
func (c *Catalog) All() []*Pattern {
	return append([]*Pattern(nil), c.patterns...)
}

// Enabled returns the patterns whose category is enabled, in priority order.
// A nil set enables everything.
func (c *Catalog) Enabled(categories map[Category]bool) []*Pattern {
	if categories == nil {
		return c.All()
	}
	var out []*Pattern
	for _, p := range c.patterns {
		if categories[p.Category] {
			out = append(out, p)
		}
	}
	return out
}

// ByName looks a pattern up for tests and diagnostics.
func (c *Catalog) ByName(name string) *Pattern {
	return c.byName[name]
}

var defaultCatalog = NewCatalog(
	redundantRegisterCopy(),
	copyBackElimination(),
	moveqFold(),
	mulsZero(),
	mulsOne(),
	mulsTwo(),
	mulsPow2(),
	muluZero(),
	deadStore(),
	tstAfterMove(),
	cmpZeroToTst(),
	branchOverBranch(),
)

// Default returns the bundled catalog. It is constructed once at startup and
// must be treated as read-only.
func Default() *Catalog {
	return defaultCatalog
}
