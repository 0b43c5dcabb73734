package domain

import "math"

// Point is a top-left position on the surface, in surface units.
type Point struct {
	X float64
	Y float64
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the displacement from q to p.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Magnitude returns the euclidean length of p treated as a vector.
func (p Point) Magnitude() float64 {
	return math.Hypot(p.X, p.Y)
}

// Bounds is the measured width and height of the surface.
type Bounds struct {
	Width  float64
	Height float64
}

// IsZero reports whether no measurement has been taken yet.
func (b Bounds) IsZero() bool {
	return b.Width <= 0 && b.Height <= 0
}

// MaxPosition returns the largest valid top-left corner for a bubble of size.
// Each axis is floored at zero, so a bubble larger than the surface pins to 0.
func (b Bounds) MaxPosition(size float64) Point {
	return Point{
		X: math.Max(0, b.Width-size),
		Y: math.Max(0, b.Height-size),
	}
}

// ClampPosition constrains p into [0, MaxPosition(size)] on both axes.
func (b Bounds) ClampPosition(p Point, size float64) Point {
	limit := b.MaxPosition(size)
	return Point{
		X: Clamp(p.X, 0, limit.X),
		Y: Clamp(p.Y, 0, limit.Y),
	}
}

// Contains reports whether p is a valid top-left corner for a bubble of size.
func (b Bounds) Contains(p Point, size float64) bool {
	return b.ClampPosition(p, size) == p
}

// Center returns the top-left corner that centers a bubble of size.
func (b Bounds) Center(size float64) Point {
	limit := b.MaxPosition(size)
	return Point{X: math.Floor(limit.X / 2), Y: math.Floor(limit.Y / 2)}
}

// Clamp constrains v into [lo, hi]. NaN collapses to lo.
func Clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
