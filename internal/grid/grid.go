package grid

import (
	"fmt"
	"math"
)

const (
	DefaultMinColumns = 3
	// DefaultItemPadding is the horizontal padding applied on each side of every item.
	DefaultItemPadding = 8
)

// Options describes the fixed geometry of a grid host.
//
// Units are whatever the host measures in (terminal cells in the TUI).
type Options struct {
	// MinColumns is the fewest columns a layout may return. <=0 means DefaultMinColumns.
	MinColumns int `json:"minColumns"`
	// HorizontalPadding is applied once on each side of the container.
	HorizontalPadding float64 `json:"horizontalPadding"`
	// ItemIntrinsicWidth is the designed width of one item, excluding padding.
	ItemIntrinsicWidth float64 `json:"itemIntrinsicWidth"`
	// ItemPadding is applied once on each side of every item.
	ItemPadding float64 `json:"itemPadding"`
}

// Layout is the computed grid geometry for one container width.
type Layout struct {
	Columns int `json:"columns"`
	// ItemWidth is only meaningful when HasItemWidth is true: the natural column count
	// was below the minimum, so items are narrowed to fit MinColumns.
	ItemWidth    float64 `json:"itemWidth,omitempty"`
	HasItemWidth bool    `json:"hasItemWidth"`
	MaxItemWidth float64 `json:"maxItemWidth"`
}

func (o Options) minColumns() int {
	if o.MinColumns <= 0 {
		return DefaultMinColumns
	}
	return o.MinColumns
}

// ComputeLayout returns the column count and item widths for containerWidth.
// It is pure: identical inputs always give identical outputs, and Columns is never
// below the configured minimum.
func ComputeLayout(containerWidth float64, opts Options) Layout {
	minCols := opts.minColumns()

	usable := containerWidth - 2*opts.HorizontalPadding
	if usable < 0 || math.IsNaN(usable) {
		usable = 0
	}
	itemTotal := opts.ItemIntrinsicWidth + 2*opts.ItemPadding

	natural := 0
	if itemTotal > 0 {
		n := math.Floor(usable / itemTotal)
		if n > float64(math.MaxInt32) {
			n = float64(math.MaxInt32)
		}
		natural = int(n)
	}

	if natural < minCols {
		return Layout{
			Columns:      minCols,
			ItemWidth:    minItemWidth(containerWidth, opts.HorizontalPadding, minCols),
			HasItemWidth: true,
			MaxItemWidth: usable / float64(minCols),
		}
	}
	return Layout{
		Columns:      natural,
		MaxItemWidth: usable / float64(natural),
	}
}

// minItemWidth partitions the container into minCols items, reserving the container
// padding on both sides plus the same amount again as gutter.
func minItemWidth(containerWidth, padding float64, minCols int) float64 {
	w := (containerWidth - 4*padding) / float64(minCols)
	if w < 0 || math.IsNaN(w) {
		return 0
	}
	return w
}

// Compute is ComputeLayout with the default item padding.
func Compute(containerWidth float64, minColumns int, padding, itemWidth float64) Layout {
	return ComputeLayout(containerWidth, Options{
		MinColumns:         minColumns,
		HorizontalPadding:  padding,
		ItemIntrinsicWidth: itemWidth,
		ItemPadding:        DefaultItemPadding,
	})
}

// ItemCells converts the layout into a whole-cell item width for terminal rendering.
func (l Layout) ItemCells() int {
	w := l.MaxItemWidth
	if l.HasItemWidth && l.ItemWidth < w {
		w = l.ItemWidth
	}
	if w < 1 {
		return 1
	}
	return int(math.Floor(w))
}

// Tracker caches the last layout computed for a host so resize handling can tell
// whether the grid has to be rebuilt.
type Tracker struct {
	Options Options

	last    Layout
	width   float64
	hasLast bool
}

func NewTracker(opts Options) *Tracker {
	return &Tracker{Options: opts}
}

// Update recomputes the layout for width. The bool reports whether the result differs
// from the previous one (always true for the first measurement).
func (t *Tracker) Update(width float64) (Layout, bool) {
	if t.hasLast && width == t.width {
		return t.last, false
	}
	next := ComputeLayout(width, t.Options)
	changed := !t.hasLast || next != t.last
	t.last = next
	t.width = width
	t.hasLast = true
	return next, changed
}

// Layout returns the last computed layout; ok is false before the first Update.
func (t *Tracker) Layout() (Layout, bool) {
	return t.last, t.hasLast
}

// ListKey keys a grid list by its column count so a column change remounts the list.
func (t *Tracker) ListKey(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, t.last.Columns)
}
