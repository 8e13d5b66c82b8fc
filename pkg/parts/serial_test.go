package parts

import (
	"testing"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/geom"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "scenario")
	a := mustChild(t, root, KindActor, "a")
	f, _ := a.CreateChild(KindFunction, "f", geom.Position{X: 3, Y: 4})
	fb := f.Body().(*FunctionBody)
	fb.Script = "(println (link.count))"
	v := mustChild(t, root, KindVariable, "v")
	v.Body().(*VariableBody).Value = "forty-two"
	tbl := mustChild(t, root, KindTable, "t")
	tbl.Body().(*TableBody).TableName = "t_rows"

	mustSetLevel(t, f, 1)
	l := mustLink(t, f, v, "v")
	l.AddWaypoint(geom.Position{X: 1, Y: 2}, -1)
	l.SetDeclutter(true)

	def := root.SaveDef(ContextSave)
	loaded, err := BuildFromDef(NewEnv(), def)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Name() != "scenario" || loaded.ChildCount() != 3 {
		t.Fatalf("loaded root = %q with %d children, want scenario with 3",
			loaded.Name(), loaded.ChildCount())
	}
	a2, err := loaded.ChildByName("a")
	if err != nil {
		t.Fatalf("loaded actor: %v", err)
	}
	f2, err := a2.ChildByName("f")
	if err != nil {
		t.Fatalf("loaded function: %v", err)
	}
	if f2.Frame().IfxLevel() != 1 || !a2.HasIfxPort(f2.Frame()) {
		t.Error("interface level and port should survive the round trip")
	}
	if got := f2.Body().(*FunctionBody).Script; got != "(println (link.count))" {
		t.Errorf("script = %q, want the saved one", got)
	}
	if got := f2.Frame().Position(); got.X != 3 || got.Y != 4 {
		t.Errorf("position = %v, want (3, 4)", got)
	}

	out := f2.Frame().OutgoingLinks()
	if len(out) != 1 || out[0].Name() != "v" {
		t.Fatalf("loaded links = %v, want one named v", out)
	}
	if !out[0].Declutter() {
		t.Error("link flags should survive the round trip")
	}
	if wps := out[0].Waypoints(); len(wps) != 1 || wps[0].Y != 2 {
		t.Errorf("link waypoints = %v, want the saved one", wps)
	}
	v2, _ := loaded.ChildByName("v")
	if out[0].Target() != v2.Frame() {
		t.Error("link target should resolve to the loaded variable")
	}
	if got := v2.Body().(*VariableBody).Value; got != "forty-two" {
		t.Errorf("variable value = %v, want forty-two", got)
	}
	t2, _ := loaded.ChildByName("t")
	if got := t2.Body().(*TableBody).TableName; got != "t_rows" {
		t.Errorf("table name = %v, want t_rows", got)
	}
}

func TestSaveLoadPortSides(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	a := mustChild(t, root, KindActor, "a")
	p1 := mustChild(t, a, KindFunction, "p1")
	p2 := mustChild(t, a, KindFunction, "p2")
	mustSetLevel(t, p1, 1)
	mustSetLevel(t, p2, 1)

	// p1 balanced left, p2 right; move p1 over so both sit on the right
	if _, err := a.SwitchPortSide(p1.Frame()); err != nil {
		t.Fatalf("switch: %v", err)
	}

	def := root.SaveDef(ContextSave)
	loaded, err := BuildFromDef(NewEnv(), def)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	a2, _ := loaded.ChildByName("a")
	if got := a2.IfxPorts(true); len(got) != 0 {
		t.Errorf("left bin = %d ports, want 0", len(got))
	}
	right := a2.IfxPorts(false)
	if len(right) != 2 || right[0].Name() != "p2" || right[1].Name() != "p1" {
		t.Fatalf("right bin order wrong: %v", right)
	}
}

func TestCopyPartsKeepsInternalLinksOnly(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	a := mustChild(t, root, KindActor, "a")
	b := mustChild(t, root, KindActor, "b")
	f1 := mustChild(t, a, KindFunction, "f1")
	f2 := mustChild(t, a, KindFunction, "f2")
	f3 := mustChild(t, a, KindFunction, "f3")
	mustLink(t, f1, f2, "kept")
	mustLink(t, f1, f3, "dropped")

	copies, err := b.CopyParts([]*Part{f1, f2}, ContextCopy, nil)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if len(copies) != 2 {
		t.Fatalf("copies = %d, want 2", len(copies))
	}
	c1, c2 := copies[0], copies[1]
	if c1.Parent() != b || c1.ID() == f1.ID() {
		t.Error("copy should be a fresh part under the target actor")
	}

	out := c1.Frame().OutgoingLinks()
	if len(out) != 1 || out[0].Name() != "kept" || out[0].Target() != c2.Frame() {
		t.Fatalf("copied links = %v, want only the internal one, retargeted", out)
	}
	// originals are untouched
	if len(f1.Frame().OutgoingLinks()) != 2 {
		t.Error("source parts must not change during a copy")
	}
}

func TestCopyPartsWithOffset(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	f, _ := root.CreateChild(KindFunction, "f", geom.Position{X: 1, Y: 1})
	g, _ := root.CreateChild(KindFunction, "g", geom.Position{X: 2, Y: 2})
	l := mustLink(t, f, g, "g")
	l.AddWaypoint(geom.Position{X: 5, Y: 5}, -1)

	offset := geom.Vector{X: 100, Y: 0}
	copies, err := root.CopyParts([]*Part{f, g}, ContextCopy, &offset)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if got := copies[0].Frame().Position(); got.X != 101 {
		t.Errorf("copy position X = %v, want 101", got.X)
	}
	out := copies[0].Frame().OutgoingLinks()
	if len(out) != 1 {
		t.Fatalf("copied links = %d, want 1", len(out))
	}
	if wps := out[0].Waypoints(); len(wps) != 1 || wps[0].X != 105 {
		t.Errorf("copied waypoints = %v, want shifted by the offset", wps)
	}
}

func TestCopyPastePreservesNestedWaypoints(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	a := mustChild(t, root, KindActor, "a")
	f1 := mustChild(t, a, KindFunction, "f1")
	f2 := mustChild(t, a, KindFunction, "f2")
	l := mustLink(t, f1, f2, "pal")
	l.AddWaypoint(geom.Position{X: 2, Y: 2}, -1)

	b := mustChild(t, root, KindActor, "b")
	offset := geom.Vector{X: 100, Y: 0}
	copies, err := b.CopyParts([]*Part{a}, ContextCopy, &offset)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}

	// only the top-level copy moved; the nested frames kept their
	// parent-relative coordinates, so the link keeps its waypoints as is
	c1, err := copies[0].ChildByName("f1")
	if err != nil {
		t.Fatalf("copied child: %v", err)
	}
	out := c1.Frame().OutgoingLinks()
	if len(out) != 1 {
		t.Fatalf("copied links = %d, want 1", len(out))
	}
	wps := out[0].Waypoints()
	if len(wps) != 1 || wps[0].X != 2 || wps[0].Y != 2 {
		t.Fatalf("nested waypoints = %v, want the original (2, 2)", wps)
	}
}

func TestCopyCapsIfxLevels(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	a := mustChild(t, root, KindActor, "a")
	inner := mustChild(t, a, KindActor, "inner")
	p := mustChild(t, inner, KindFunction, "p")
	mustSetLevel(t, p, 2)

	b := mustChild(t, root, KindActor, "b")
	copies, err := b.CopyParts([]*Part{inner}, ContextCopy, nil)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	p2, err := copies[0].ChildByName("p")
	if err != nil {
		t.Fatalf("copied child: %v", err)
	}
	// the subtree may not expose frames above the paste target
	if got := p2.Frame().IfxLevel(); got != 1 {
		t.Errorf("copied level = %d, want capped at 1", got)
	}
}

func TestExportRemapsParentLink(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	a := mustChild(t, root, KindActor, "a")
	f := mustChild(t, a, KindFunction, "f")
	mustLink(t, f, a, "up")

	target := NewRootActor(NewEnv(), "export")
	// keep the id spaces apart so a stale ref cannot accidentally resolve
	copies, err := target.CopyParts([]*Part{f}, ContextExport, nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	out := copies[0].Frame().OutgoingLinks()
	if len(out) != 1 || out[0].Target() != target.Frame() {
		t.Fatalf("exported link = %v, want remapped onto the new root", out)
	}
}
