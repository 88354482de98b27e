// Package bubble simulates the field of draggable tag bubbles shown on the
// home screen: a soft-body toy where bubbles drift toward the centre, push
// each other apart, and bounce off the walls.
//
// The field has no render loop of its own. The host calls Step once per
// animation frame and reads Frames back. Step has no delta-time term; it
// assumes a steady ~60 Hz caller, and running it faster or slower changes how
// the simulation feels.
package bubble

import (
	"math/rand/v2"
	"slices"

	"github.com/jwebster45206/turtle-soup/pkg/tags"
	"gonum.org/v1/gonum/spatial/r2"
)

// Tuning constants. They define the perceived springiness of the field.
const (
	CenterStiffness    = 0.005 // centering spring, applied to velocity
	CollisionDamping   = 0.3   // scales the contact impulse
	VelocityDamping    = 0.92  // uniform per-tick drag
	MaxSpeed           = 2.5   // per-tick speed cap
	ContactPadding     = 4.0   // gap kept between touching bubbles
	PositionCorrection = 0.08  // share of the overlap removed per contact
	Restitution        = 0.5
	ImpulseShare       = 0.5 // equal split between the two bodies
	RestingDamping     = 0.6 // bleeds energy from persistent contacts
	RadiusSmoothing    = 0.1
	RadiusEpsilon      = 0.1
	MinDistance        = 0.1 // stands in for zero distance between coincident centres

	SelectScale = 1.3
	MaxSelected = 4
	MinRadius   = 4.0

	BaseRadius   = 32.0
	WeightRadius = 35.0
	RadiusJitter = 8.0
	SpawnSpread  = 50.0
	SpawnSpeed   = 0.5
)

// Body is one simulated bubble.
type Body struct {
	ID           int
	Pos          r2.Vec
	Vel          r2.Vec
	Radius       float64
	TargetRadius float64
	Mass         float64
	Label        string
	Hovered      bool
}

// Frame is the render handoff for one body. Left and Top are the top-left
// corner of the bubble's bounding box in field coordinates.
type Frame struct {
	ID       int
	Label    string
	Left     float64
	Top      float64
	Radius   float64
	Selected bool
	Hovered  bool
}

// Field owns the bodies of one generation and the live selection.
type Field struct {
	bodies   []*Body
	selected []string
	rng      *rand.Rand
}

// NewField creates an empty field. A nil rng gets a randomly seeded source.
func NewField(rng *rand.Rand) *Field {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Field{rng: rng}
}

// Populate replaces every body with a fresh random sample of the catalog,
// clustered around the centre of a width x height field. The selection is
// cleared.
func (f *Field) Populate(catalog []tags.Tag, sampleSize int, width, height float64) {
	picked := tags.Sample(f.rng, catalog, sampleSize)
	center := r2.Vec{X: width / 2, Y: height / 2}

	f.bodies = make([]*Body, 0, len(picked))
	f.selected = nil

	for i, tag := range picked {
		r := BaseRadius + tag.Weight*WeightRadius + f.rng.Float64()*RadiusJitter
		f.bodies = append(f.bodies, &Body{
			ID: i,
			Pos: r2.Vec{
				X: center.X + (f.rng.Float64()-0.5)*SpawnSpread,
				Y: center.Y + (f.rng.Float64()-0.5)*SpawnSpread,
			},
			Vel: r2.Vec{
				X: (f.rng.Float64() - 0.5) * SpawnSpeed,
				Y: (f.rng.Float64() - 0.5) * SpawnSpeed,
			},
			Radius:       r,
			TargetRadius: r,
			Mass:         r * 2,
			Label:        tag.Text,
		})
	}
}

// Len reports the number of bodies.
func (f *Field) Len() int {
	return len(f.bodies)
}

// Body returns a copy of the body with the given id.
func (f *Field) Body(id int) (Body, bool) {
	b := f.body(id)
	if b == nil {
		return Body{}, false
	}
	return *b, true
}

func (f *Field) body(id int) *Body {
	if id < 0 || id >= len(f.bodies) {
		return nil
	}
	return f.bodies[id]
}

// Selection returns the selected labels in the order they were picked.
func (f *Field) Selection() []string {
	return slices.Clone(f.selected)
}

// IsSelected reports whether a label is in the selection.
func (f *Field) IsSelected(label string) bool {
	return slices.Contains(f.selected, label)
}

// Toggle flips the selection state of a body and grows or shrinks its target
// radius to match. Selecting past MaxSelected is ignored. The updated
// selection is returned.
func (f *Field) Toggle(id int) []string {
	b := f.body(id)
	if b == nil {
		return f.Selection()
	}

	if i := slices.Index(f.selected, b.Label); i >= 0 {
		f.selected = slices.Delete(f.selected, i, i+1)
		b.TargetRadius /= SelectScale
		return f.Selection()
	}

	if len(f.selected) >= MaxSelected {
		return f.Selection()
	}
	f.selected = append(f.selected, b.Label)
	b.TargetRadius *= SelectScale
	return f.Selection()
}

// SetHover freezes or releases a body. A hovered body stops immediately and
// no longer moves itself, but still blocks its neighbours.
func (f *Field) SetHover(id int, hovered bool) {
	b := f.body(id)
	if b == nil {
		return
	}
	b.Hovered = hovered
	if hovered {
		b.Vel = r2.Vec{}
	}
}

// ClearHover releases every hovered body.
func (f *Field) ClearHover() {
	for _, b := range f.bodies {
		b.Hovered = false
	}
}

// HitTest returns the topmost body whose circle contains the point.
func (f *Field) HitTest(x, y float64) (int, bool) {
	p := r2.Vec{X: x, Y: y}
	for i := len(f.bodies) - 1; i >= 0; i-- {
		b := f.bodies[i]
		if r2.Norm(r2.Sub(p, b.Pos)) <= b.Radius {
			return b.ID, true
		}
	}
	return -1, false
}

// Frames reports where every body should be drawn.
func (f *Field) Frames() []Frame {
	frames := make([]Frame, 0, len(f.bodies))
	for _, b := range f.bodies {
		frames = append(frames, Frame{
			ID:       b.ID,
			Label:    b.Label,
			Left:     b.Pos.X - b.Radius,
			Top:      b.Pos.Y - b.Radius,
			Radius:   b.Radius,
			Selected: f.IsSelected(b.Label),
			Hovered:  b.Hovered,
		})
	}
	return frames
}
