package svg

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"
)

var errViewport = errors.New("svg: viewport too small")

// frame is the plotting area shared by all charts. Its value range always
// includes zero.
type frame struct {
	width, height int
	pad           float64
	plotW, plotH  float64
	lo, hi        float64
	ticks         int
	axis, grid    string
}

func newFrame(width, height int, style Style, values ...[]float64) (*frame, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	f := &frame{
		width:  width,
		height: height,
		pad:    style.Padding,
		ticks:  style.TickCount,
		axis:   fallback(style.AxisColor, "#475569"),
		grid:   fallback(style.GridColor, "#cbd5e1"),
	}
	if f.pad <= 0 {
		f.pad = DefaultPadding
	}
	if f.ticks <= 0 {
		f.ticks = DefaultTicks
	}
	f.plotW = float64(width) - 2*f.pad
	f.plotH = float64(height) - 2*f.pad
	if f.plotW <= 0 || f.plotH <= 0 {
		return nil, errViewport
	}
	for _, series := range values {
		for _, v := range series {
			f.lo = math.Min(f.lo, v)
			f.hi = math.Max(f.hi, v)
		}
	}
	if math.Abs(f.hi-f.lo) < 1e-9 {
		f.hi = f.lo + 1
	}
	return f, nil
}

func (f *frame) bottom() float64 { return f.pad + f.plotH }

// y maps a value to its vertical pixel position.
func (f *frame) y(v float64) float64 {
	return f.bottom() - (v-f.lo)*f.plotH/(f.hi-f.lo)
}

func (f *frame) open(b *strings.Builder, style Style, kind string) {
	titleID := makeID(style.Title, kind+"-title")
	descID := makeID(style.Title, kind+"-desc")
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s %s">`, f.width, f.height, titleID, descID)
	fmt.Fprintf(b, `<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(fallback(style.Title, "Chart")))
	fmt.Fprintf(b, `<desc id="%s">%s</desc>`, descID, template.HTMLEscapeString(fallback(style.Description, "Sales data")))
	for i := 0; i <= f.ticks; i++ {
		value := f.lo + (f.hi-f.lo)*float64(i)/float64(f.ticks)
		y := f.y(value)
		fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="2,4" aria-hidden="true"></line>`, f.pad, y, f.pad+f.plotW, y, f.grid)
		fmt.Fprintf(b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`, f.pad-6, y+4, f.axis, template.HTMLEscapeString(formatTick(value)))
	}
	fmt.Fprintf(b, `<g stroke="%s" aria-label="Axes">`, f.axis)
	fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, f.pad, f.pad, f.pad, f.bottom())
	fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, f.pad, f.y(0), f.pad+f.plotW, f.y(0))
	b.WriteString("</g>")
}

func (f *frame) label(b *strings.Builder, x float64, text string) {
	fmt.Fprintf(b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`, x, f.bottom()+14, f.axis, template.HTMLEscapeString(text))
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case math.Abs(v-math.Round(v)) < 1e-9:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
