package pipeline

import (
	"sort"

	"github.com/ajitpratap0/gridload/pkg/errors"
	"github.com/ajitpratap0/gridload/pkg/source"
)

// SplitRows divides [0, nrows) into at most parts contiguous, disjoint ranges
// whose sizes differ by at most one. Empty ranges are never returned.
func SplitRows(nrows, parts int) []source.Range {
	if nrows <= 0 {
		return nil
	}
	if parts <= 0 {
		parts = 1
	}
	if parts > nrows {
		parts = nrows
	}

	ranges := make([]source.Range, parts)
	size, rem := nrows/parts, nrows%parts
	start := 0
	for i := range ranges {
		n := size
		if i < rem {
			n++
		}
		ranges[i] = source.Range{Start: start, End: start + n}
		start += n
	}
	return ranges
}

// CheckDisjoint verifies that ranges lie inside [0, nrows) and do not overlap.
// Partitioned column writers rely on this; they do not check it themselves.
func CheckDisjoint(ranges []source.Range, nrows int) error {
	sorted := make([]source.Range, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i, r := range sorted {
		if r.Start < 0 || r.End > nrows || r.Start > r.End {
			return errors.Newf(errors.ErrorTypeValidation, "range %s outside [0, %d)", r, nrows)
		}
		if i > 0 && r.Start < sorted[i-1].End {
			return errors.Newf(errors.ErrorTypeValidation, "ranges %s and %s overlap", sorted[i-1], r)
		}
	}
	return nil
}
