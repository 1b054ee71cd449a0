// Package normalizer deduplicates parsed rows and fills measurement gaps.
// Duplicate keys are resolved by a per-run policy before anything reaches
// the database, so the uniqueness constraints only ever catch genuine
// cross-run conflicts.
package normalizer

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/import/parser"
)

// Policy selects how duplicate keys within one import batch are resolved.
type Policy string

const (
	// PolicySkip drops every row sharing a duplicated key.
	PolicySkip Policy = "skip"
	// PolicyFirst keeps the earliest-seen occurrence of each key.
	PolicyFirst Policy = "first"
	// PolicyLast keeps the latest-seen occurrence of each key.
	PolicyLast Policy = "last"
	// PolicySum adds the value column across all rows sharing the key.
	// Only valid where the value is numeric.
	PolicySum Policy = "sum"
)

// ErrSumNotNumeric is returned when PolicySum hits a duplicate whose
// dedup target has no numeric value to add.
var ErrSumNotNumeric = errors.New("normalizer: sum policy applied to non-numeric target")

// ParsePolicy validates a --mode flag value.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicySkip, PolicyFirst, PolicyLast, PolicySum:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown duplicate policy %q (want skip, first, last or sum)", s)
}

// Conflict reports one duplicated key and the source lines involved.
type Conflict struct {
	Key   string
	Lines []int
}

// DedupeRoster resolves duplicate consumer ids in the roster. The roster
// id is not numeric, so PolicySum is an error as soon as a duplicate
// actually occurs; without duplicates there is nothing to sum and every
// policy is a no-op.
func DedupeRoster(entries []parser.RosterEntry, p Policy) ([]parser.RosterEntry, []Conflict, error) {
	lines := make(map[string][]int, len(entries))
	order := make([]string, 0, len(entries))
	byKey := make(map[string][]parser.RosterEntry, len(entries))

	for _, e := range entries {
		if _, seen := byKey[e.ID]; !seen {
			order = append(order, e.ID)
		}
		byKey[e.ID] = append(byKey[e.ID], e)
		lines[e.ID] = append(lines[e.ID], e.Line)
	}

	var conflicts []Conflict
	out := make([]parser.RosterEntry, 0, len(order))
	for _, id := range order {
		group := byKey[id]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		conflicts = append(conflicts, Conflict{Key: id, Lines: lines[id]})
		switch p {
		case PolicySkip:
			// drop all occurrences
		case PolicyFirst:
			out = append(out, group[0])
		case PolicyLast:
			out = append(out, group[len(group)-1])
		case PolicySum:
			return nil, conflicts, fmt.Errorf("roster id %q duplicated on lines %v: %w", id, lines[id], ErrSumNotNumeric)
		}
	}
	return out, conflicts, nil
}

// DedupeReadings resolves duplicate timestamps within one consumption
// file and returns the surviving rows sorted by time.
func DedupeReadings(readings []parser.Reading, p Policy) ([]parser.Reading, []Conflict, error) {
	type group struct {
		rows []parser.Reading
	}
	byKey := make(map[int64]*group, len(readings))
	order := make([]int64, 0, len(readings))

	for _, r := range readings {
		k := r.MeasuredAt.Unix()
		g, seen := byKey[k]
		if !seen {
			g = &group{}
			byKey[k] = g
			order = append(order, k)
		}
		g.rows = append(g.rows, r)
	}

	var conflicts []Conflict
	out := make([]parser.Reading, 0, len(order))
	for _, k := range order {
		g := byKey[k]
		if len(g.rows) == 1 {
			out = append(out, g.rows[0])
			continue
		}

		c := Conflict{Key: g.rows[0].MeasuredAt.Format(parser.ReadingTimeLayout)}
		for _, r := range g.rows {
			c.Lines = append(c.Lines, r.Line)
		}
		conflicts = append(conflicts, c)

		switch p {
		case PolicySkip:
			// drop all occurrences
		case PolicyFirst:
			out = append(out, g.rows[0])
		case PolicyLast:
			out = append(out, g.rows[len(g.rows)-1])
		case PolicySum:
			sum := g.rows[0]
			for _, r := range g.rows[1:] {
				sum.Amount = sum.Amount.Add(r.Amount)
			}
			out = append(out, sum)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].MeasuredAt.Before(out[j].MeasuredAt) })
	return out, conflicts, nil
}

// FillGaps forward-fills missing measurement slots between the first and
// last reading. A synthesized row carries the previous amount and line 0.
// Input must be deduplicated and sorted; step is the expected measurement
// interval (30 minutes for the source meters).
func FillGaps(readings []parser.Reading, step time.Duration) []parser.Reading {
	if len(readings) < 2 || step <= 0 {
		return readings
	}

	out := make([]parser.Reading, 0, len(readings))
	out = append(out, readings[0])
	for i := 1; i < len(readings); i++ {
		prev := out[len(out)-1]
		for next := prev.MeasuredAt.Add(step); next.Before(readings[i].MeasuredAt); next = next.Add(step) {
			out = append(out, parser.Reading{MeasuredAt: next, Amount: prev.Amount})
		}
		out = append(out, readings[i])
	}
	return out
}
