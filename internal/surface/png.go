package surface

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontsOnce   sync.Once
	regularFont *truetype.Font
	boldFont    *truetype.Font
	fontsErr    error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		regularFont, fontsErr = truetype.Parse(goregular.TTF)
		if fontsErr != nil {
			fontsErr = fmt.Errorf("failed to parse font: %w", fontsErr)
			return
		}
		boldFont, fontsErr = truetype.Parse(gobold.TTF)
		if fontsErr != nil {
			fontsErr = fmt.Errorf("failed to parse bold font: %w", fontsErr)
		}
	})
	return fontsErr
}

// PNGEncoder rasterises surfaces with gg. Drawing contexts and output
// buffers are pooled per image size.
type PNGEncoder struct {
	mu         sync.Mutex
	pools      map[image.Point]*sync.Pool
	bufferPool sync.Pool
}

// NewPNGEncoder creates an encoder.
func NewPNGEncoder() *PNGEncoder {
	return &PNGEncoder{
		pools: make(map[image.Point]*sync.Pool),
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 64*1024))
			},
		},
	}
}

var defaultPNG = NewPNGEncoder()

// EncodePNG rasterises s with a shared encoder.
func EncodePNG(s *Surface) ([]byte, error) {
	return defaultPNG.Encode(s)
}

func (e *PNGEncoder) contextPool(w, h int) *sync.Pool {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := image.Pt(w, h)
	p, ok := e.pools[key]
	if !ok {
		p = &sync.Pool{
			New: func() interface{} {
				return gg.NewContext(w, h)
			},
		}
		e.pools[key] = p
	}
	return p
}

// Encode draws the display list and returns PNG bytes.
func (e *PNGEncoder) Encode(s *Surface) ([]byte, error) {
	if err := loadFonts(); err != nil {
		return nil, err
	}
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", w, h)
	}

	pool := e.contextPool(w, h)
	dc := pool.Get().(*gg.Context)
	defer pool.Put(dc)

	dc.Identity()
	dc.ClearPath()
	dc.SetColor(parseColor(s.background, 1))
	dc.Clear()

	r := rasterizer{dc: dc, surface: s, faces: make(map[faceKey]font.Face), colors: make(map[string]colorful.Color)}
	for _, op := range s.ops {
		r.draw(op)
	}

	buf := e.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer e.bufferPool.Put(buf)

	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

type faceKey struct {
	size float64
	bold bool
}

type rasterizer struct {
	dc      *gg.Context
	surface *Surface
	faces   map[faceKey]font.Face
	colors  map[string]colorful.Color
}

func (r *rasterizer) draw(op Op) {
	dc := r.dc
	switch o := op.(type) {
	case Circle:
		dc.DrawCircle(o.X, o.Y, o.R)
		r.paint(o.Style)
	case Line:
		dc.DrawLine(o.X1, o.Y1, o.X2, o.Y2)
		r.paint(Style{Stroke: o.Stroke, StrokeWidth: o.StrokeWidth, StrokeOpacity: o.StrokeOpacity})
	case Rect:
		dc.DrawRectangle(o.X, o.Y, o.W, o.H)
		if o.Gradient != "" {
			if g, ok := r.surface.gradient(o.Gradient); ok {
				grad := gg.NewLinearGradient(
					o.X+g.X1*o.W, o.Y+g.Y1*o.H,
					o.X+g.X2*o.W, o.Y+g.Y2*o.H,
				)
				for _, stop := range g.Stops {
					grad.AddColorStop(stop.Offset, r.color(stop.Color, 1))
				}
				dc.SetFillStyle(grad)
				if o.Stroke != "" {
					dc.FillPreserve()
					r.stroke(o.Style)
				} else {
					dc.Fill()
				}
				return
			}
		}
		r.paint(o.Style)
	case Text:
		r.text(o)
	case LinearGradient:
		// referenced by Rect
	}
}

// paint fills and/or strokes the current path.
func (r *rasterizer) paint(st Style) {
	dc := r.dc
	switch {
	case st.Fill != "" && st.Stroke != "":
		dc.SetColor(r.color(st.Fill, opacity(st.FillOpacity)))
		dc.FillPreserve()
		r.stroke(st)
	case st.Fill != "":
		dc.SetColor(r.color(st.Fill, opacity(st.FillOpacity)))
		dc.Fill()
	case st.Stroke != "":
		r.stroke(st)
	default:
		dc.ClearPath()
	}
}

func (r *rasterizer) stroke(st Style) {
	width := st.StrokeWidth
	if width <= 0 {
		width = 1
	}
	r.dc.SetLineWidth(width)
	r.dc.SetColor(r.color(st.Stroke, opacity(st.StrokeOpacity)))
	r.dc.Stroke()
}

func (r *rasterizer) text(t Text) {
	dc := r.dc
	key := faceKey{size: t.Size, bold: t.Bold}
	face, ok := r.faces[key]
	if !ok {
		f := regularFont
		if t.Bold {
			f = boldFont
		}
		face = truetype.NewFace(f, &truetype.Options{Size: t.Size, DPI: 72, Hinting: font.HintingFull})
		r.faces[key] = face
	}
	dc.SetFontFace(face)

	fill := t.Fill
	if fill == "" {
		fill = "#000000"
	}
	dc.SetColor(r.color(fill, 1))

	ax := 0.0
	switch t.Anchor {
	case AnchorMiddle:
		ax = 0.5
	case AnchorEnd:
		ax = 1
	}
	ay := 0.0
	if t.Baseline == BaselineMiddle {
		ay = 0.5
	}

	if t.Rotate != 0 {
		dc.Push()
		dc.RotateAbout(gg.Radians(t.Rotate), t.X, t.Y)
		dc.DrawStringAnchored(t.Content, t.X, t.Y, ax, ay)
		dc.Pop()
		return
	}
	dc.DrawStringAnchored(t.Content, t.X, t.Y, ax, ay)
}

func (r *rasterizer) color(hex string, alpha float64) color.Color {
	c, ok := r.colors[hex]
	if !ok {
		c = parseHex(hex)
		r.colors[hex] = c
	}
	return withAlpha(c, alpha)
}

func parseColor(hex string, alpha float64) color.Color {
	return withAlpha(parseHex(hex), alpha)
}

func parseHex(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}
	}
	return c
}

func withAlpha(c colorful.Color, alpha float64) color.Color {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(alpha*255 + 0.5)}
}
