// Package rangequery builds the parameterized SQL for the catalog's
// range-bounded queries over partitions and datasets. A RangeParams
// value has four independent optional bounds (start, end, count,
// offset); the 16 combinations of presence/absence must each produce a
// query sorted ascending by created_at.
//
// The partition-scoped form is the source of truth: it always carries a
// mandatory "dataset_id = $1" predicate, so its optional bounds start at
// placeholder $2. The dataset-scoped form has no such predicate, so its
// placeholders start at $1 — it is derived from the partition form by
// stripping the dataset_id predicate and decrementing every remaining
// placeholder by one, per the documented shift rule.
package rangequery

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nilslice/datadictd/internal/catalog"
)

// MaxPlaceholder is the highest positional placeholder this builder ever
// legally emits (dataset_id, start, end, count, offset). A higher index
// indicates a bug in clause assembly.
const MaxPlaceholder = 5

// Partitions builds "SELECT <cols> FROM partitions WHERE dataset_id = $1
// [AND ...] ORDER BY created_at ASC [LIMIT ...] [OFFSET ...]" for the
// given dataset, applying whichever of p's four bounds are set.
func Partitions(selectCols, table string, datasetID int32, p catalog.RangeParams) (string, []any, error) {
	var b strings.Builder
	args := []any{datasetID}
	placeholder := 1

	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE dataset_id = $%d", selectCols, table, placeholder)
	placeholder++

	if p.Start != nil {
		fmt.Fprintf(&b, " AND created_at >= $%d", placeholder)
		args = append(args, *p.Start)
		placeholder++
	}
	if p.End != nil {
		fmt.Fprintf(&b, " AND created_at <= $%d", placeholder)
		args = append(args, *p.End)
		placeholder++
	}

	b.WriteString(" ORDER BY created_at ASC")

	if p.Count != nil {
		fmt.Fprintf(&b, " LIMIT $%d", placeholder)
		args = append(args, *p.Count)
		placeholder++
	}
	if p.Offset != nil {
		fmt.Fprintf(&b, " OFFSET $%d", placeholder)
		args = append(args, *p.Offset)
		placeholder++
	}

	if placeholder-1 > MaxPlaceholder {
		return "", nil, fmt.Errorf("rangequery: placeholder $%d exceeds max $%d", placeholder-1, MaxPlaceholder)
	}

	return b.String(), args, nil
}

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// Datasets builds the dataset-scoped equivalent of Partitions by
// stripping its mandatory dataset_id predicate and shifting every
// remaining placeholder down by one.
func Datasets(selectCols, table string, p catalog.RangeParams) (string, []any, error) {
	partitionSQL, partitionArgs, err := Partitions(selectCols, table, 0, p)
	if err != nil {
		return "", nil, err
	}

	const mandatoryPredicate = " WHERE dataset_id = $1"
	stripped := strings.Replace(partitionSQL, mandatoryPredicate+" AND", " WHERE", 1)
	if stripped == partitionSQL {
		// No additional bounds were present; the WHERE clause was the
		// whole predicate, so drop it outright.
		stripped = strings.Replace(partitionSQL, mandatoryPredicate, "", 1)
	}

	shifted, err := shiftPlaceholders(stripped, -1)
	if err != nil {
		return "", nil, err
	}

	// Drop the dataset_id arg (always args[0] from Partitions).
	return shifted, partitionArgs[1:], nil
}

// shiftPlaceholders shifts every $N (N>1) placeholder in sql by delta.
// A $1 (or $0) still present is an error, since callers strip the
// dataset_id predicate before shifting. It also trips loudly if a
// placeholder would land outside [1, MaxPlaceholder].
func shiftPlaceholders(sql string, delta int) (string, error) {
	var shiftErr error
	out := placeholderRe.ReplaceAllStringFunc(sql, func(match string) string {
		n, err := strconv.Atoi(match[1:])
		if err != nil {
			shiftErr = fmt.Errorf("rangequery: malformed placeholder %q", match)
			return match
		}
		if n <= 1 {
			shiftErr = fmt.Errorf("rangequery: unexpected placeholder $%d in partition form before shift", n)
			return match
		}
		shifted := n + delta
		if shifted < 1 || shifted > MaxPlaceholder {
			shiftErr = fmt.Errorf("rangequery: shifted placeholder $%d out of bounds (max $%d)", shifted, MaxPlaceholder)
			return match
		}
		return "$" + strconv.Itoa(shifted)
	})
	if shiftErr != nil {
		return "", shiftErr
	}
	return out, nil
}
