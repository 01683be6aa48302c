package surface

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"
)

// svgo takes integer coordinates, so the document is written in a viewBox
// this many times larger than the surface.
const svgScale = 10

// EncodeSVG writes the display list as an SVG document.
func EncodeSVG(s *Surface) ([]byte, error) {
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", w, h)
	}

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Startview(w, h, 0, 0, w*svgScale, h*svgScale)
	canvas.Rect(0, 0, w*svgScale, h*svgScale, "fill:"+s.background)

	var grads []LinearGradient
	for _, op := range s.ops {
		if g, ok := op.(LinearGradient); ok {
			grads = append(grads, g)
		}
	}
	if len(grads) > 0 {
		canvas.Def()
		for _, g := range grads {
			stops := make([]svg.Offcolor, len(g.Stops))
			for i, st := range g.Stops {
				stops[i] = svg.Offcolor{Offset: pct(st.Offset), Color: st.Color, Opacity: 1}
			}
			canvas.LinearGradient(g.ID, pct(g.X1), pct(g.Y1), pct(g.X2), pct(g.Y2), stops)
		}
		canvas.DefEnd()
	}

	for _, op := range s.ops {
		switch o := op.(type) {
		case Circle:
			canvas.Circle(px(o.X), px(o.Y), px(o.R), styleAttr(o.Style))
		case Line:
			canvas.Line(px(o.X1), px(o.Y1), px(o.X2), px(o.Y2),
				styleAttr(Style{Stroke: o.Stroke, StrokeWidth: o.StrokeWidth, StrokeOpacity: o.StrokeOpacity}))
		case Rect:
			st := styleAttr(o.Style)
			if o.Gradient != "" {
				st = styleAttr(Style{Fill: "url(#" + o.Gradient + ")", Stroke: o.Stroke, StrokeWidth: o.StrokeWidth})
			}
			canvas.Rect(px(o.X), px(o.Y), px(o.W), px(o.H), st)
		case Text:
			writeText(canvas, o)
		}
	}

	canvas.End()
	return buf.Bytes(), nil
}

func writeText(canvas *svg.SVG, t Text) {
	fill := t.Fill
	if fill == "" {
		fill = "#000000"
	}
	parts := []string{
		"font-family:sans-serif",
		"font-size:" + num(t.Size*svgScale) + "px",
		"fill:" + fill,
	}
	if t.Bold {
		parts = append(parts, "font-weight:bold")
	}
	switch t.Anchor {
	case AnchorMiddle:
		parts = append(parts, "text-anchor:middle")
	case AnchorEnd:
		parts = append(parts, "text-anchor:end")
	}
	if t.Baseline == BaselineMiddle {
		parts = append(parts, "dominant-baseline:middle")
	}
	style := strings.Join(parts, ";")

	x, y := px(t.X), px(t.Y)
	if t.Rotate != 0 {
		canvas.Text(x, y, t.Content, fmt.Sprintf(`transform="rotate(%s %d %d)"`, num(t.Rotate), x, y), style)
		return
	}
	canvas.Text(x, y, t.Content, style)
}

func styleAttr(st Style) string {
	var parts []string
	if st.Fill != "" {
		parts = append(parts, "fill:"+st.Fill)
		if o := opacity(st.FillOpacity); o < 1 {
			parts = append(parts, "fill-opacity:"+num(o))
		}
	} else {
		parts = append(parts, "fill:none")
	}
	if st.Stroke != "" {
		width := st.StrokeWidth
		if width <= 0 {
			width = 1
		}
		parts = append(parts, "stroke:"+st.Stroke, "stroke-width:"+num(width*svgScale))
		if o := opacity(st.StrokeOpacity); o < 1 {
			parts = append(parts, "stroke-opacity:"+num(o))
		}
	}
	return strings.Join(parts, ";")
}

func px(v float64) int {
	return int(math.Round(v * svgScale))
}

func pct(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 100))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
