// Package svg renders the small standalone charts served next to the
// analytics reports.
package svg

// Style carries the shared look of every chart.
type Style struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
}

// LineOpts customises the trend line renderer.
type LineOpts struct {
	Style
	StrokeColor string
	FillColor   string
	ShowDots    bool
}

// Series is one named bar series.
type Series struct {
	Label  string
	Color  string
	Values []float64
}

// Defaults for the analytics charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 32.0
	DefaultTicks   = 5
)
