package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/geom"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/parts"
)

func buildSample(t *testing.T) *Scenario {
	t.Helper()
	s := New("sample")
	sim, err := s.Root().CreateChild(parts.KindActor, "sim", geom.Position{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	q, err := sim.CreateChild(parts.KindFunction, "queue", geom.Position{X: 1, Y: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	v, err := sim.CreateChild(parts.KindVariable, "rate", geom.Position{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	v.Frame().SetComment("arrivals per hour")
	if _, err := q.Frame().CreateLink(v.Frame(), "rate", nil); err != nil {
		t.Fatalf("link: %v", err)
	}
	return s
}

func TestPartByPath(t *testing.T) {
	s := buildSample(t)

	q, err := s.PartByPath("/sim/queue")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	assert.Equal(t, q.Name(), "queue")

	root, err := s.PartByPath("/")
	if err != nil || root != s.Root() {
		t.Fatalf("root path = %v, %v, want the root actor", root, err)
	}

	if _, err := s.PartByPath("/sim/ghost"); err == nil {
		t.Fatal("expected an error for a missing segment")
	}
}

func TestPartByID(t *testing.T) {
	s := buildSample(t)
	q, _ := s.PartByPath("/sim/queue")

	got, err := s.PartByID(q.ID())
	if err != nil || got != q {
		t.Fatalf("by id = %v, %v, want the queue part", got, err)
	}
	if _, err := s.PartByID(0); err == nil {
		t.Fatal("expected an error for an unknown id")
	}
}

func TestSearchMatchesNameAndComment(t *testing.T) {
	s := buildSample(t)

	hits, err := s.Search("que", nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].Part.Name() != "queue" || hits[0].Field != "name" {
		t.Fatalf("hits = %+v, want one name hit on queue", hits)
	}

	hits, err = s.Search("per hour", nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].Part.Name() != "rate" || hits[0].Field != "comment" {
		t.Fatalf("hits = %+v, want one comment hit on rate", hits)
	}

	if _, err := s.Search("(", nil); err == nil {
		t.Fatal("expected an error for a bad pattern")
	}
}

func TestSearchCancellation(t *testing.T) {
	s := buildSample(t)

	state := &SearchState{}
	state.Cancel()
	hits, err := s.Search(".", state)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	// the flag is honoured before the first top-level child is visited
	assert.Equal(t, len(hits), 0)
}

func TestStats(t *testing.T) {
	s := buildSample(t)

	st := s.Stats()
	assert.Equal(t, st.Parts, 4)
	assert.Equal(t, st.Links, 1)
	assert.Equal(t, st.ByKind[parts.KindActor], 2)
	assert.Equal(t, st.ByKind[parts.KindFunction], 1)

	sum := st.Summary()
	if sum == "" || sum[:8] != "4 parts," {
		t.Errorf("summary = %q, want it to lead with the part count", sum)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := buildSample(t)
	path := filepath.Join(t.TempDir(), "sample.ori")

	if err := s.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if s.ID() == "" || s.SavedAt().IsZero() {
		t.Fatal("save should stamp identity and time")
	}
	firstID := s.ID()
	if err := s.Save(path); err != nil {
		t.Fatalf("second save: %v", err)
	}
	assert.Equal(t, s.ID(), firstID)

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assert.Equal(t, loaded.ID(), firstID)
	assert.Equal(t, loaded.Name(), "sample")
	assert.Equal(t, loaded.Stats(), s.Stats())

	q, err := loaded.PartByPath("/sim/queue")
	if err != nil {
		t.Fatalf("resolve after load: %v", err)
	}
	out := q.Frame().OutgoingLinks()
	if len(out) != 1 || out[0].Name() != "rate" {
		t.Fatalf("links after load = %v, want the saved one", out)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ori")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a document without a root")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.ori")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestUndoStack(t *testing.T) {
	s := buildSample(t)
	sim, _ := s.PartByPath("/sim")
	q, _ := s.PartByPath("/sim/queue")

	var stack UndoStack
	if stack.CanUndo() || stack.CanRedo() {
		t.Fatal("fresh stack should be empty")
	}

	info, err := sim.RemoveChild(q, true)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	stack.Push(Command{
		Label: "remove queue",
		Undo: func() error {
			_, err := q.RestoreSelf(info)
			return err
		},
		Redo: func() error {
			_, err := sim.RemoveChild(q, true)
			return err
		},
	})

	label, err := stack.Undo()
	if err != nil || label != "remove queue" {
		t.Fatalf("undo = %q, %v", label, err)
	}
	if got, _ := s.PartByPath("/sim/queue"); got != q {
		t.Fatal("undo should put the part back")
	}
	if !stack.CanRedo() {
		t.Fatal("undone command should be redoable")
	}

	if _, err := stack.Redo(); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if _, err := s.PartByPath("/sim/queue"); err == nil {
		t.Fatal("redo should remove the part again")
	}

	if _, err := stack.Redo(); err == nil {
		t.Fatal("empty redo side should error")
	}
}

func TestUndoStackPushClearsRedo(t *testing.T) {
	nop := func() error { return nil }
	var stack UndoStack
	stack.Push(Command{Label: "a", Undo: nop, Redo: nop})
	if _, err := stack.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	stack.Push(Command{Label: "b", Undo: nop, Redo: nop})
	if stack.CanRedo() {
		t.Fatal("push must clear the redo side")
	}
}
