package cypher

import "sort"

// The partitioner groups a flat clause sequence into segments. A nil entry in
// the sequence is a segment break: each segment renders as an independent
// statement. Two attachment rules reconcile WITH being a pipeline boundary
// with Cypher requiring ORDER BY, SKIP and LIMIT to textually trail the WITH
// they modify:
//
//  1. An ORDER BY, SKIP or LIMIT clause arriving on a fresh (empty) segment
//     attaches to the previous segment when that segment ends in WITH or
//     ORDER BY.
//  2. A WITH clause arriving on a fresh segment attaches to the previous
//     segment when that segment ends in ORDER BY, SKIP or LIMIT; the previous
//     segment is then stably reordered so ORDER BY clauses sort last.
//
// Consecutive breaks collapse: a break on an empty segment is a no-op.
func partition(clauses []*Clause) [][]*Clause {
	parts := [][]*Clause{{}}

	last := func() []*Clause { return parts[len(parts)-1] }
	prev := func() []*Clause {
		if len(parts) < 2 {
			return nil
		}
		return parts[len(parts)-2]
	}

	for _, c := range clauses {
		switch {
		case c == nil:
			if len(last()) > 0 {
				parts = append(parts, []*Clause{})
			}

		case isOrderOrPaging(c.kind) && freshAfter(last(), prev(), KindWith, KindOrder):
			parts[len(parts)-2] = append(prev(), c)

		case c.kind == KindWith && freshAfter(last(), prev(), KindOrder, KindSkip, KindLimit):
			merged := append(prev(), c)
			sort.SliceStable(merged, func(i, j int) bool {
				return orderRank(merged[i]) < orderRank(merged[j])
			})
			parts[len(parts)-2] = merged

		default:
			parts[len(parts)-1] = append(last(), c)
		}
	}
	return parts
}

// freshAfter reports whether the current segment is empty and the previous
// segment ends in one of the given kinds.
func freshAfter(current, previous []*Clause, kinds ...Kind) bool {
	if len(current) != 0 || len(previous) == 0 {
		return false
	}
	tail := previous[len(previous)-1].kind
	for _, k := range kinds {
		if tail == k {
			return true
		}
	}
	return false
}

func isOrderOrPaging(k Kind) bool {
	return k == KindOrder || k == KindSkip || k == KindLimit
}

// orderRank sorts ORDER BY clauses after everything else in rule 2's
// reordering.
func orderRank(c *Clause) int {
	if c.kind == KindOrder {
		return 1
	}
	return 0
}
