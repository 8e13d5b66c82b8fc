// Package ident provides session identifiers for scenario objects.
//
// Session ids are unique for one loaded scenario and are never reused.
// The generator is an explicit service injected into the scenario root so
// independent scenarios (and tests) never collide.
package ident

// SessionID identifies a part or link for the lifetime of one loaded scenario.
type SessionID uint64

// Generator hands out monotonically increasing session ids. The zero value is
// ready to use. Not safe for concurrent use; the engine is single-writer.
type Generator struct {
	last SessionID
}

// NewGenerator creates a fresh generator starting at 1.
func NewGenerator() *Generator {
	return &Generator{}
}

// Next returns a session id that has never been returned by this generator.
func (g *Generator) Next() SessionID {
	g.last++
	return g.last
}

// Last returns the most recently issued id, 0 if none yet.
func (g *Generator) Last() SessionID {
	return g.last
}
