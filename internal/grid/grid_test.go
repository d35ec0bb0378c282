package grid

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

var inserterOpts = Options{MinColumns: 3, HorizontalPadding: 16, ItemIntrinsicWidth: 80, ItemPadding: 8}

func TestComputeLayout_NaturalColumns(t *testing.T) {
	got := ComputeLayout(600, inserterOpts)
	if got.Columns != 5 {
		t.Fatalf("expected 5 columns, got %d", got.Columns)
	}
	if !approx(got.MaxItemWidth, 113.6) {
		t.Fatalf("expected max item width 113.6, got %v", got.MaxItemWidth)
	}
	if got.HasItemWidth || got.ItemWidth != 0 {
		t.Fatalf("expected intrinsic item width, got %+v", got)
	}
}

func TestComputeLayout_ForcesMinimumColumns(t *testing.T) {
	got := ComputeLayout(300, inserterOpts)
	if got.Columns != 3 {
		t.Fatalf("expected 3 columns, got %d", got.Columns)
	}
	if !approx(got.MaxItemWidth, 268.0/3) {
		t.Fatalf("expected max item width 268/3, got %v", got.MaxItemWidth)
	}
	if !got.HasItemWidth {
		t.Fatalf("expected item width to be set in the minimum-columns branch")
	}
	if !approx(got.ItemWidth, 236.0/3) {
		t.Fatalf("expected item width 236/3, got %v", got.ItemWidth)
	}
	if got.ItemWidth > got.MaxItemWidth {
		t.Fatalf("item width %v exceeds max %v", got.ItemWidth, got.MaxItemWidth)
	}
}

func TestComputeLayout_NeverBelowMinimum(t *testing.T) {
	paddings := []float64{0, 4, 16, 200}
	items := []float64{0, 1, 40, 80, 500}
	for _, minCols := range []int{0, 1, 3, 7} {
		want := minCols
		if want <= 0 {
			want = DefaultMinColumns
		}
		for w := -50.0; w <= 2000; w += 37 {
			for _, p := range paddings {
				for _, it := range items {
					opts := Options{MinColumns: minCols, HorizontalPadding: p, ItemIntrinsicWidth: it, ItemPadding: 8}
					got := ComputeLayout(w, opts)
					if got.Columns < want {
						t.Fatalf("ComputeLayout(%v, %+v) columns=%d < %d", w, opts, got.Columns, want)
					}
					if again := ComputeLayout(w, opts); again != got {
						t.Fatalf("ComputeLayout(%v, %+v) not deterministic: %+v vs %+v", w, opts, got, again)
					}
					if got.MaxItemWidth < 0 || got.ItemWidth < 0 {
						t.Fatalf("negative widths for (%v, %+v): %+v", w, opts, got)
					}
				}
			}
		}
	}
}

func TestCompute_UsesDefaultItemPadding(t *testing.T) {
	if got, want := Compute(600, 3, 16, 80), ComputeLayout(600, inserterOpts); got != want {
		t.Fatalf("Compute=%+v; want %+v", got, want)
	}
}

func TestLayout_ItemCells(t *testing.T) {
	if got := ComputeLayout(600, inserterOpts).ItemCells(); got != 113 {
		t.Fatalf("expected 113 cells, got %d", got)
	}
	if got := ComputeLayout(300, inserterOpts).ItemCells(); got != 78 {
		t.Fatalf("expected 78 cells, got %d", got)
	}
	if got := ComputeLayout(0, inserterOpts).ItemCells(); got != 1 {
		t.Fatalf("expected at least one cell, got %d", got)
	}
}

func TestTracker_ReportsColumnChanges(t *testing.T) {
	tr := NewTracker(inserterOpts)
	if _, ok := tr.Layout(); ok {
		t.Fatalf("expected no layout before first update")
	}

	l, changed := tr.Update(600)
	if !changed || l.Columns != 5 {
		t.Fatalf("first update: changed=%v layout=%+v", changed, l)
	}
	if key := tr.ListKey("inserter"); key != "inserter-5" {
		t.Fatalf("unexpected list key %q", key)
	}

	if _, changed := tr.Update(600); changed {
		t.Fatalf("same width must not report a change")
	}

	l, changed = tr.Update(300)
	if !changed || l.Columns != 3 {
		t.Fatalf("resize: changed=%v layout=%+v", changed, l)
	}
	if key := tr.ListKey("inserter"); key != "inserter-3" {
		t.Fatalf("unexpected list key %q", key)
	}
}
