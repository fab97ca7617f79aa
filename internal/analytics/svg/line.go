package svg

import (
	"errors"
	"fmt"
	"strings"
)

// TrendLine renders a line chart of one value per label, such as daily sales.
func TrendLine(width, height int, values []float64, labels []string, opts LineOpts) ([]byte, error) {
	if len(values) == 0 {
		return nil, errors.New("svg: values required")
	}
	if len(values) != len(labels) {
		return nil, errors.New("svg: labels length must match values")
	}
	f, err := newFrame(width, height, opts.Style, values)
	if err != nil {
		return nil, err
	}
	stroke := fallback(opts.StrokeColor, "#2563eb")
	fill := fallback(opts.FillColor, "rgba(37,99,235,0.12)")

	xs := make([]float64, len(values))
	for i := range values {
		xs[i] = f.pad + f.plotW/2
		if len(values) > 1 {
			xs[i] = f.pad + float64(i)*f.plotW/float64(len(values)-1)
		}
	}
	var path strings.Builder
	for i, v := range values {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&path, "%s%.2f %.2f ", cmd, xs[i], f.y(v))
	}
	d := strings.TrimSpace(path.String())

	var b strings.Builder
	f.open(&b, opts.Style, "line")
	fmt.Fprintf(&b, `<path d="%s L%.2f %.2f L%.2f %.2f Z" fill="%s" stroke="none" aria-hidden="true"></path>`, d, xs[len(xs)-1], f.y(0), xs[0], f.y(0), fill)
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round" stroke-linecap="round"></path>`, d, stroke)
	for i, v := range values {
		if opts.ShowDots {
			fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="3" fill="%s"></circle>`, xs[i], f.y(v), stroke)
		}
		f.label(&b, xs[i], labels[i])
	}
	b.WriteString("</svg>")
	return []byte(b.String()), nil
}
