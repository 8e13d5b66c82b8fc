package ident

import "testing"

func TestGeneratorMonotonic(t *testing.T) {
	g := NewGenerator()
	seen := map[SessionID]bool{}
	var prev SessionID
	for i := 0; i < 1000; i++ {
		id := g.Next()
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		if seen[id] {
			t.Fatalf("id %d reused", id)
		}
		seen[id] = true
		prev = id
	}
	if g.Last() != prev {
		t.Errorf("Last = %d, want %d", g.Last(), prev)
	}
}

func TestGeneratorsIndependent(t *testing.T) {
	a, b := NewGenerator(), NewGenerator()
	if a.Next() != 1 || b.Next() != 1 {
		t.Error("fresh generators should both start at 1")
	}
}
