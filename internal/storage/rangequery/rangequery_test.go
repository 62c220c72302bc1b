package rangequery

import (
	"strings"
	"testing"
	"time"

	"github.com/nilslice/datadictd/internal/catalog"
)

func allCombinations() []catalog.RangeParams {
	t0 := time.Unix(1000, 0)
	t1 := time.Unix(2000, 0)
	var c5, c10 int32 = 5, 10
	starts := []*time.Time{nil, &t0}
	ends := []*time.Time{nil, &t1}
	counts := []*int32{nil, &c5}
	offsets := []*int32{nil, &c10}

	var out []catalog.RangeParams
	for _, s := range starts {
		for _, e := range ends {
			for _, c := range counts {
				for _, o := range offsets {
					out = append(out, catalog.RangeParams{Start: s, End: e, Count: c, Offset: o})
				}
			}
		}
	}
	return out
}

func TestPartitions_AllSixteenCombinationsBuild(t *testing.T) {
	combos := allCombinations()
	if len(combos) != 16 {
		t.Fatalf("expected 16 combinations, got %d", len(combos))
	}
	for i, p := range combos {
		sql, args, err := Partitions("*", "partitions", 42, p)
		if err != nil {
			t.Fatalf("combo %d: unexpected error: %v", i, err)
		}
		if !strings.Contains(sql, "dataset_id = $1") {
			t.Errorf("combo %d: missing mandatory dataset_id predicate: %s", i, sql)
		}
		if !strings.Contains(sql, "ORDER BY created_at ASC") {
			t.Errorf("combo %d: missing ORDER BY: %s", i, sql)
		}
		if args[0] != int32(42) {
			t.Errorf("combo %d: expected dataset_id arg first, got %v", i, args[0])
		}
		wantArgs := 1
		if p.Start != nil {
			wantArgs++
		}
		if p.End != nil {
			wantArgs++
		}
		if p.Count != nil {
			wantArgs++
		}
		if p.Offset != nil {
			wantArgs++
		}
		if len(args) != wantArgs {
			t.Errorf("combo %d: expected %d args, got %d (%v)", i, wantArgs, len(args), args)
		}
	}
}

func TestDatasets_DerivedFromPartitionForm(t *testing.T) {
	for i, p := range allCombinations() {
		sql, args, err := Datasets("*", "datasets", p)
		if err != nil {
			t.Fatalf("combo %d: unexpected error: %v", i, err)
		}
		if strings.Contains(sql, "dataset_id") {
			t.Errorf("combo %d: dataset-form query must not reference dataset_id: %s", i, sql)
		}
		if !strings.Contains(sql, "ORDER BY created_at ASC") {
			t.Errorf("combo %d: missing ORDER BY: %s", i, sql)
		}
		if strings.Contains(sql, "$6") {
			t.Errorf("combo %d: placeholder overflowed past $5: %s", i, sql)
		}
		wantArgs := 0
		if p.Start != nil {
			wantArgs++
		}
		if p.End != nil {
			wantArgs++
		}
		if p.Count != nil {
			wantArgs++
		}
		if p.Offset != nil {
			wantArgs++
		}
		if len(args) != wantArgs {
			t.Errorf("combo %d: expected %d args, got %d", i, wantArgs, len(args))
		}
	}
}

func TestDatasets_NoBounds(t *testing.T) {
	sql, args, err := Datasets("*", "datasets", catalog.RangeParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(sql, "WHERE") {
		t.Errorf("expected no WHERE clause with no bounds, got: %s", sql)
	}
	if len(args) != 0 {
		t.Errorf("expected no args, got %v", args)
	}
}

func TestDatasets_AllFourBoundsStayWithinFivePlaceholders(t *testing.T) {
	t0 := time.Unix(1, 0)
	t1 := time.Unix(2, 0)
	var c, o int32 = 1, 2
	sql, args, err := Datasets("*", "datasets", catalog.RangeParams{Start: &t0, End: &t1, Count: &c, Offset: &o})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sql, "$4") {
		t.Errorf("expected offset placeholder at $4 in dataset form, got: %s", sql)
	}
	if len(args) != 4 {
		t.Errorf("expected 4 args, got %d", len(args))
	}
}

func TestShiftPlaceholders_Overflow(t *testing.T) {
	_, err := shiftPlaceholders("$7", -1)
	if err == nil {
		t.Error("expected overflow guard to trip on an out-of-range placeholder")
	}
}
