package convert

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jptrs93/protogen/internal/ir"
)

// Strategy selects how wire indices are assigned to fields and enum
// constants.
type Strategy int

const (
	// StrategyPositional numbers members by declaration order. No stability
	// across reorderings.
	StrategyPositional Strategy = iota
	// StrategyExplicit uses each member's declared index, falling back to its
	// position.
	StrategyExplicit
	// StrategyEvolution reuses indices from the prior generation and never
	// hands out an index that was used before.
	StrategyEvolution
)

func (s Strategy) String() string {
	switch s {
	case StrategyPositional:
		return "positional"
	case StrategyExplicit:
		return "explicit"
	case StrategyEvolution:
		return "evolution"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "positional", "serial":
		return StrategyPositional, nil
	case "explicit", "annotation":
		return StrategyExplicit, nil
	case "evolution", "old-generation", "old_generation":
		return StrategyEvolution, nil
	default:
		return 0, fmt.Errorf("unknown index strategy %q", s)
	}
}

var ErrPriorRequired = errors.New("evolution strategy requires a prior generation")

// IndexError reports a member that resolved to a non-positive index.
type IndexError struct {
	Class  string
	Member string
	Index  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s :: %s: index %d is not positive", e.Class, e.Member, e.Index)
}

// DuplicateIndexError reports indices claimed by more than one member.
type DuplicateIndexError struct {
	Class   string
	Indices []int
}

func (e *DuplicateIndexError) Error() string {
	return fmt.Sprintf("%s :: duplicate index %v", e.Class, e.Indices)
}

type assigner struct {
	strategy Strategy
	prior    *ir.ProtoDef
}

// index resolves the wire index of one member. position is 1-based, explicit
// is zero when the member declares none, and assigned holds the members of
// the same class resolved so far.
func (a assigner) index(class, member string, position, explicit int, assigned []ir.FieldDef) (int, error) {
	var index int
	switch a.strategy {
	case StrategyPositional:
		index = position
	case StrategyExplicit:
		index = position
		if explicit != 0 {
			index = explicit
		}
	case StrategyEvolution:
		if a.prior == nil {
			return 0, ErrPriorRequired
		}
		index = evolve(a.prior.ClassOf(class), member, position, assigned)
	default:
		return 0, fmt.Errorf("unknown index strategy %d", int(a.strategy))
	}
	if index <= 0 {
		return 0, &IndexError{Class: class, Member: member, Index: index}
	}
	return index, nil
}

func evolve(prior *ir.ClassDef, member string, position int, assigned []ir.FieldDef) int {
	if prior == nil {
		return position
	}
	if f, ok := prior.Field(member); ok && f.Index > 0 {
		return f.Index
	}
	next := prior.MaxIndex() + 1
	if !slices.ContainsFunc(assigned, func(f ir.FieldDef) bool { return f.Index == next }) {
		return next
	}
	return maxIndex(assigned) + 1
}

func maxIndex(fields []ir.FieldDef) int {
	max := 0
	for _, f := range fields {
		if f.Index > max {
			max = f.Index
		}
	}
	return max
}

// reinsertHistory appends every member of the prior class that is missing from
// fields as a reserved entry, so its index is never handed out again. Index 0
// is the enum default slot and is never carried over.
func reinsertHistory(prior *ir.ClassDef, kind ir.FieldKind, fields []ir.FieldDef) []ir.FieldDef {
	if prior == nil {
		return fields
	}
	for _, old := range prior.Fields {
		if old.Kind != kind || old.Index <= 0 {
			continue
		}
		if old.Name != "" && slices.ContainsFunc(fields, func(f ir.FieldDef) bool { return f.Name == old.Name }) {
			continue
		}
		old.Skip = true
		fields = append(fields, old)
	}
	return fields
}

func checkIndices(class string, fields []ir.FieldDef) error {
	counts := map[int]int{}
	for _, f := range fields {
		counts[f.Index]++
	}
	var dups []int
	for index, n := range counts {
		if n > 1 {
			dups = append(dups, index)
		}
	}
	if len(dups) > 0 {
		slices.Sort(dups)
		return &DuplicateIndexError{Class: class, Indices: dups}
	}
	return nil
}

func sortByIndex(fields []ir.FieldDef) {
	slices.SortStableFunc(fields, func(a, b ir.FieldDef) int {
		return a.Index - b.Index
	})
}
