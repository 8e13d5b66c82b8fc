// Package geom provides the 2-D scenario coordinate types.
package geom

import "fmt"

// Vector is a difference between two points in scenario coordinates.
// It is immutable; arithmetic returns new values.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns the sum of two vectors.
func (v Vector) Add(o Vector) Vector {
	return Vector{v.X + o.X, v.Y + o.Y}
}

// Sub returns the difference of two vectors.
func (v Vector) Sub(o Vector) Vector {
	return Vector{v.X - o.X, v.Y - o.Y}
}

// Neg returns the negation of the vector.
func (v Vector) Neg() Vector {
	return Vector{-v.X, -v.Y}
}

func (v Vector) String() string {
	return fmt.Sprintf("(%g, %g)", v.X, v.Y)
}

// Position is a point in scenario coordinates, a displacement from the origin.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Translate returns the position shifted by a vector.
func (p Position) Translate(v Vector) Position {
	return Position{p.X + v.X, p.Y + v.Y}
}

// Delta returns the vector from o to p.
func (p Position) Delta(o Position) Vector {
	return Vector{p.X - o.X, p.Y - o.Y}
}

func (p Position) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Size is the width and height of a part frame, in scenario units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("(%g, %g)", s.Width, s.Height)
}
