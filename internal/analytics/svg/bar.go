package svg

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"
)

var defaultColors = []string{"#0ea5e9", "#f97316", "#10b981", "#a855f7"}

// GroupedBars renders one group of bars per label, one bar per series. It is
// used to compare the per-hour quartiles of the shift cohorts.
func GroupedBars(width, height int, labels []string, series []Series, style Style) ([]byte, error) {
	if len(labels) == 0 {
		return nil, errors.New("svg: labels required")
	}
	if len(series) == 0 {
		return nil, errors.New("svg: at least one series required")
	}
	values := make([][]float64, 0, len(series))
	for _, s := range series {
		if len(s.Values) != len(labels) {
			return nil, fmt.Errorf("svg: series %q length must match labels", s.Label)
		}
		values = append(values, s.Values)
	}
	f, err := newFrame(width, height, style, values...)
	if err != nil {
		return nil, err
	}

	groupW := f.plotW / float64(len(labels))
	barW := groupW * 0.8 / float64(len(series))

	var b strings.Builder
	f.open(&b, style, "bar")
	for i, label := range labels {
		left := f.pad + float64(i)*groupW + groupW*0.1
		for j, s := range series {
			top, bottom := f.y(s.Values[i]), f.y(0)
			if top > bottom {
				top, bottom = bottom, top
			}
			fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" aria-label="%s %s"></rect>`,
				left+float64(j)*barW, top, barW, math.Max(bottom-top, 0), seriesColor(s, j),
				template.HTMLEscapeString(s.Label), template.HTMLEscapeString(label))
		}
		f.label(&b, f.pad+float64(i)*groupW+groupW/2, label)
	}

	legendX := f.pad
	legendY := math.Max(f.pad-12, 12)
	for j, s := range series {
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="10" height="10" fill="%s"></rect>`, legendX, legendY-8, seriesColor(s, j))
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="start">%s</text>`, legendX+14, legendY, f.axis, template.HTMLEscapeString(s.Label))
		legendX += 90
	}
	b.WriteString("</svg>")
	return []byte(b.String()), nil
}

func seriesColor(s Series, i int) string {
	return fallback(s.Color, defaultColors[i%len(defaultColors)])
}
