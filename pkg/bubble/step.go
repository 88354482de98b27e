package bubble

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Step advances the field by one tick inside a width x height box.
//
// Bodies are processed one at a time in order: centering, radius easing,
// contact against every other body, then that body's own integration. A pair
// is therefore resolved twice per tick, once from each side, and later bodies
// see the positions earlier bodies have already moved to.
//
// Walls are enforced only in a body's own integration. A later body's contact
// push can still move an earlier, already clamped body past a wall by up to
// one positional correction; that body is clamped again on its next tick.
func (f *Field) Step(width, height float64) {
	center := r2.Vec{X: width / 2, Y: height / 2}

	for _, b := range f.bodies {
		if b.Hovered {
			b.Vel = r2.Vec{}
		} else {
			b.Vel = r2.Add(b.Vel, r2.Scale(CenterStiffness, r2.Sub(center, b.Pos)))
		}

		if math.Abs(b.TargetRadius-b.Radius) > RadiusEpsilon {
			b.Radius += (b.TargetRadius - b.Radius) * RadiusSmoothing
		}
		b.Radius = math.Max(b.Radius, MinRadius)
		b.Mass = b.Radius * 2

		for _, other := range f.bodies {
			if other == b {
				continue
			}
			resolveContact(b, other)
		}

		if b.Hovered {
			continue
		}
		if speed := r2.Norm(b.Vel); speed > MaxSpeed {
			b.Vel = r2.Scale(MaxSpeed/speed, b.Vel)
		}
		b.Vel = r2.Scale(VelocityDamping, b.Vel)
		b.Pos = r2.Add(b.Pos, b.Vel)
		bounce(b, width, height)
	}
}

// resolveContact separates b and other if their padded circles overlap.
// Hovered bodies are never moved or accelerated.
func resolveContact(b, other *Body) {
	d := r2.Sub(other.Pos, b.Pos)
	dist := r2.Norm(d)
	minDist := b.Radius + other.Radius + ContactPadding
	if dist >= minDist {
		return
	}
	if dist == 0 {
		dist = MinDistance
	}

	overlap := minDist - dist
	n := r2.Vec{X: d.X / dist, Y: d.Y / dist}
	push := r2.Scale(overlap*PositionCorrection, n)
	if !b.Hovered {
		b.Pos = r2.Sub(b.Pos, push)
	}
	if !other.Hovered {
		other.Pos = r2.Add(other.Pos, push)
	}

	vn := r2.Dot(r2.Sub(b.Vel, other.Vel), n)
	if vn < 0 {
		j := -(1 + Restitution) * vn
		impulse := r2.Scale(j*ImpulseShare*CollisionDamping, n)
		if !b.Hovered {
			b.Vel = r2.Add(b.Vel, impulse)
		}
		if !other.Hovered {
			other.Vel = r2.Sub(other.Vel, impulse)
		}
		return
	}

	if !b.Hovered {
		b.Vel = r2.Scale(RestingDamping, b.Vel)
	}
	if !other.Hovered {
		other.Vel = r2.Scale(RestingDamping, other.Vel)
	}
}

// bounce clamps a body inside the box and reflects the velocity component
// that carried it out.
func bounce(b *Body, width, height float64) {
	if b.Pos.X-b.Radius < 0 {
		b.Pos.X = b.Radius
		b.Vel.X = -b.Vel.X
	}
	if b.Pos.X+b.Radius > width {
		b.Pos.X = width - b.Radius
		b.Vel.X = -b.Vel.X
	}
	if b.Pos.Y-b.Radius < 0 {
		b.Pos.Y = b.Radius
		b.Vel.Y = -b.Vel.Y
	}
	if b.Pos.Y+b.Radius > height {
		b.Pos.Y = height - b.Radius
		b.Vel.Y = -b.Vel.Y
	}
}
