// Package surface is a retained-mode drawing target. Renderers append
// primitives to a Surface; EncodePNG and EncodeSVG turn the same display list
// into raster or vector output.
package surface

// Anchor is the horizontal text alignment relative to the text origin.
type Anchor int

const (
	AnchorStart Anchor = iota
	AnchorMiddle
	AnchorEnd
)

// Baseline is the vertical text alignment relative to the text origin.
type Baseline int

const (
	BaselineAlphabetic Baseline = iota
	BaselineMiddle
)

// Style is the paint applied to a shape. Zero opacities mean opaque; an empty
// colour means "none".
type Style struct {
	Fill          string
	FillOpacity   float64
	Stroke        string
	StrokeWidth   float64
	StrokeOpacity float64
}

// Op is one display-list entry.
type Op interface {
	op()
}

// Circle is a filled and/or stroked circle.
type Circle struct {
	X, Y, R float64
	Style
}

// Line is a stroked segment.
type Line struct {
	X1, Y1, X2, Y2 float64
	Style
}

// Rect is an axis-aligned rectangle. Gradient, when set, names a
// LinearGradient op that fills it instead of Style.Fill.
type Rect struct {
	X, Y, W, H float64
	Gradient   string
	Style
}

// Text is a single line of text, optionally rotated (degrees) about its origin.
type Text struct {
	X, Y     float64
	Content  string
	Size     float64
	Bold     bool
	Anchor   Anchor
	Baseline Baseline
	Rotate   float64
	Fill     string
}

// GradientStop is one colour stop; Offset is in [0, 1].
type GradientStop struct {
	Offset float64
	Color  string
}

// LinearGradient defines a gradient referenced by Rect.Gradient. X1..Y2 are
// fractions of the filled shape's bounding box.
type LinearGradient struct {
	ID             string
	X1, Y1, X2, Y2 float64
	Stops          []GradientStop
}

func (Circle) op()         {}
func (Line) op()           {}
func (Rect) op()           {}
func (Text) op()           {}
func (LinearGradient) op() {}

// Surface is a drawing target owned by one renderer at a time.
type Surface struct {
	width, height int
	background    string
	ops           []Op
	empty         bool

	onMove  func(x, y float64)
	onLeave func()
}

// New returns a blank surface of the given pixel size.
func New(width, height int) *Surface {
	return &Surface{width: width, height: height, background: "#ffffff"}
}

// Size returns the pixel size.
func (s *Surface) Size() (int, int) {
	return s.width, s.height
}

// Resize changes the pixel size and clears the surface.
func (s *Surface) Resize(width, height int) {
	s.width, s.height = width, height
	s.Clear()
}

// Clear removes all primitives, the empty marker and pointer listeners.
func (s *Surface) Clear() {
	s.ops = s.ops[:0]
	s.empty = false
	s.onMove = nil
	s.onLeave = nil
}

// Add appends primitives to the display list.
func (s *Surface) Add(ops ...Op) {
	s.ops = append(s.ops, ops...)
}

// Ops returns a copy of the display list.
func (s *Surface) Ops() []Op {
	out := make([]Op, len(s.ops))
	copy(out, s.ops)
	return out
}

// Len returns the number of primitives.
func (s *Surface) Len() int {
	return len(s.ops)
}

// SetEmpty clears the surface and draws a centred placeholder message.
func (s *Surface) SetEmpty(message string) {
	s.Clear()
	s.empty = true
	s.Add(Text{
		X:        float64(s.width) / 2,
		Y:        float64(s.height) / 2,
		Content:  message,
		Size:     16,
		Anchor:   AnchorMiddle,
		Baseline: BaselineMiddle,
		Fill:     "#666666",
	})
}

// Empty reports whether the surface shows the placeholder state.
func (s *Surface) Empty() bool {
	return s.empty
}

// Texts returns the text primitives in draw order.
func (s *Surface) Texts() []Text {
	var out []Text
	for _, op := range s.ops {
		if t, ok := op.(Text); ok {
			out = append(out, t)
		}
	}
	return out
}

// Circles returns the circle primitives in draw order.
func (s *Surface) Circles() []Circle {
	var out []Circle
	for _, op := range s.ops {
		if c, ok := op.(Circle); ok {
			out = append(out, c)
		}
	}
	return out
}

// Rects returns the rectangle primitives in draw order.
func (s *Surface) Rects() []Rect {
	var out []Rect
	for _, op := range s.ops {
		if r, ok := op.(Rect); ok {
			out = append(out, r)
		}
	}
	return out
}

// OnPointer installs pointer listeners, replacing any previous ones.
func (s *Surface) OnPointer(move func(x, y float64), leave func()) {
	s.onMove = move
	s.onLeave = leave
}

// PointerMove delivers a pointer position in surface pixels.
func (s *Surface) PointerMove(x, y float64) {
	if s.onMove != nil {
		s.onMove(x, y)
	}
}

// PointerLeave delivers a pointer-leave event.
func (s *Surface) PointerLeave() {
	if s.onLeave != nil {
		s.onLeave()
	}
}

func (s *Surface) gradient(id string) (LinearGradient, bool) {
	for _, op := range s.ops {
		if g, ok := op.(LinearGradient); ok && g.ID == id {
			return g, true
		}
	}
	return LinearGradient{}, false
}

func opacity(v float64) float64 {
	if v <= 0 || v > 1 {
		return 1
	}
	return v
}
