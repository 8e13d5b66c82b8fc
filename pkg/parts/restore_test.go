package parts

import (
	"testing"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/geom"
)

func TestRemoveRestorePartWithLinks(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	f1 := mustChild(t, root, KindFunction, "f1")
	f2 := mustChild(t, root, KindFunction, "f2")
	f3 := mustChild(t, root, KindFunction, "f3")
	out := mustLink(t, f1, f2, "out")
	out.AddWaypoint(geom.Position{X: 5, Y: 5}, -1)
	in := mustLink(t, f3, f1, "in")

	info, err := root.RemoveChild(f1, true)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(f3.Frame().OutgoingLinks()) != 0 {
		t.Error("incoming link should be removed from its source")
	}
	if len(f2.Frame().IncomingLinks()) != 0 {
		t.Error("outgoing link should be detached from its target")
	}
	if out.Source() != nil || out.Target() != nil {
		t.Error("removed link endpoints should be nil")
	}

	dropped, err := f1.RestoreSelf(info)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !dropped.Empty() {
		t.Fatalf("pure restore dropped links: %+v", dropped)
	}
	if got := f1.Frame().OutgoingLinks(); len(got) != 1 || got[0] != out {
		t.Fatal("outgoing link should be the same object, reattached")
	}
	if wps := out.Waypoints(); len(wps) != 1 || wps[0].X != 5 {
		t.Errorf("waypoints after restore = %v, want the original", wps)
	}
	if got := f3.Frame().OutgoingLinks(); len(got) != 1 || got[0] != in {
		t.Fatal("incoming link should be restored via its source")
	}
}

func TestRemoveRestoreExactPortPlacement(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	a := mustChild(t, root, KindActor, "a")
	p1 := mustChild(t, a, KindFunction, "p1")
	p2 := mustChild(t, a, KindFunction, "p2")
	p3 := mustChild(t, a, KindFunction, "p3")
	mustSetLevel(t, p1, 1)
	mustSetLevel(t, p2, 1)
	mustSetLevel(t, p3, 1)

	// left bin is [p1, p3]; removing p1 must bring it back at index 0
	info, err := a.RemoveChild(p1, true)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := a.IfxPorts(true); len(got) != 1 || got[0] != p3.Frame() {
		t.Fatalf("left bin after remove = %v, want [p3]", got)
	}

	if _, err := p1.RestoreSelf(info); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if p1.Frame().IfxLevel() != 1 {
		t.Errorf("restored level = %d, want 1", p1.Frame().IfxLevel())
	}
	left := a.IfxPorts(true)
	if len(left) != 2 || left[0] != p1.Frame() || left[1] != p3.Frame() {
		t.Fatalf("left bin after restore = %v, want [p1, p3]", left)
	}
}

func TestActorRemovalTearsDownBoundary(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	a := mustChild(t, root, KindActor, "a")
	f := mustChild(t, a, KindFunction, "f")
	g := mustChild(t, root, KindFunction, "g")
	mustSetLevel(t, f, 1)
	l := mustLink(t, f, g, "crossing")

	info, err := root.RemoveChild(a, true)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	// the boundary teardown confines f to the removed actor and breaks the
	// link that crossed out of it
	if f.Frame().IfxLevel() != 0 {
		t.Errorf("exposed frame level after removal = %d, want 0", f.Frame().IfxLevel())
	}
	if len(g.Frame().IncomingLinks()) != 0 {
		t.Error("crossing link should be broken")
	}
	if len(info.ActorPorts) != 1 {
		t.Fatalf("boundary teardown records = %d, want 1", len(info.ActorPorts))
	}

	if _, err := a.RestoreSelf(info); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if f.Frame().IfxLevel() != 1 {
		t.Errorf("level after restore = %d, want 1", f.Frame().IfxLevel())
	}
	if !a.HasIfxPort(f.Frame()) {
		t.Error("port should be back on the restored actor")
	}
	out := f.Frame().OutgoingLinks()
	if len(out) != 1 || out[0] != l || out[0].Target() != g.Frame() {
		t.Fatal("crossing link should be restored")
	}
}

func TestRestoreChildrenTwoPhase(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	f1 := mustChild(t, root, KindFunction, "f1")
	f2 := mustChild(t, root, KindFunction, "f2")
	mustLink(t, f1, f2, "pair")

	infos, err := root.RemoveChildren([]*Part{f1, f2}, true)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	dropped, err := root.RestoreChildren([]*Part{f1, f2}, infos, nil)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !dropped.Empty() {
		t.Fatalf("batch restore dropped links: %+v", dropped)
	}
	out := f1.Frame().OutgoingLinks()
	if len(out) != 1 || out[0].Target() != f2.Frame() {
		t.Fatal("link between batch members should be restored")
	}
}

func TestRestoreChildrenWithPasteOffset(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	f1, _ := root.CreateChild(KindFunction, "f1", geom.Position{X: 1, Y: 1})
	f2, _ := root.CreateChild(KindFunction, "f2", geom.Position{X: 4, Y: 1})
	f3 := mustChild(t, root, KindFunction, "f3")
	inner := mustLink(t, f1, f2, "inner")
	inner.AddWaypoint(geom.Position{X: 2, Y: 2}, -1)
	outer := mustLink(t, f1, f3, "outer")
	outer.AddWaypoint(geom.Position{X: 9, Y: 9}, -1)

	infos, err := root.RemoveChildren([]*Part{f1, f2}, true)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	offset := geom.Vector{X: 10, Y: 0}
	dropped, err := root.RestoreChildren([]*Part{f1, f2}, infos, &offset)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !dropped.Empty() {
		t.Fatalf("restore dropped links: %+v", dropped)
	}
	if got := f1.Frame().Position(); got.X != 11 {
		t.Errorf("restored position X = %v, want shifted to 11", got.X)
	}

	// the link within the moved set keeps its waypoints, shifted
	var within, outside *Link
	for _, l := range f1.Frame().OutgoingLinks() {
		switch l.Name() {
		case "inner":
			within = l
		case "outer":
			outside = l
		}
	}
	if within == nil || outside == nil {
		t.Fatal("both links should be restored")
	}
	if wps := within.Waypoints(); len(wps) != 1 || wps[0].X != 12 {
		t.Errorf("inner waypoints = %v, want shifted by the offset", wps)
	}
	// the link reaching outside the moved set loses its waypoints
	if wps := outside.Waypoints(); len(wps) != 0 {
		t.Errorf("outer waypoints = %v, want none", wps)
	}
}

func TestReparentMaintainLinks(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	a := mustChild(t, root, KindActor, "a")
	b := mustChild(t, root, KindActor, "b")
	f1 := mustChild(t, a, KindFunction, "f1")
	f2 := mustChild(t, a, KindFunction, "f2")
	mustLink(t, f1, f2, "pal")

	infos, err := a.RemoveChildren([]*Part{f1}, true)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	// prediction: from b the link would cross two boundaries at level 0
	if invalid := b.CheckLinksRestoration([]*Part{f1}, infos); len(invalid) != 1 {
		t.Fatalf("predicted invalid links = %d, want 1", len(invalid))
	}

	rep, dropped, err := b.ReparentChildren([]*Part{f1}, infos, true, nil)
	if err != nil {
		t.Fatalf("reparent: %v", err)
	}
	if !dropped.Empty() {
		t.Fatalf("maintainable link was dropped: %+v", dropped)
	}
	if f1.Parent() != b {
		t.Fatal("part should live under the new parent")
	}
	if f1.Frame().IfxLevel() != 1 || f2.Frame().IfxLevel() != 1 {
		t.Errorf("levels = %d, %d, want both raised to 1",
			f1.Frame().IfxLevel(), f2.Frame().IfxLevel())
	}
	if len(rep.IfxLevels) != 2 {
		t.Errorf("recorded level raises = %d, want 2", len(rep.IfxLevels))
	}
	out := f1.Frame().OutgoingLinks()
	if len(out) != 1 || out[0].Name() != "pal" || out[0].Target() != f2.Frame() {
		t.Fatal("link should be maintained across the reparent")
	}

	// undo: unreparent from b, then restore into a with the original tokens
	if _, err := b.UnreparentChildren([]*Part{f1}, rep); err != nil {
		t.Fatalf("unreparent: %v", err)
	}
	if f2.Frame().IfxLevel() != 0 {
		t.Errorf("remote level after unreparent = %d, want lowered back to 0", f2.Frame().IfxLevel())
	}

	dropped, err = a.RestoreChildren([]*Part{f1}, infos, nil)
	if err != nil {
		t.Fatalf("restore into original parent: %v", err)
	}
	if !dropped.Empty() {
		t.Fatalf("original restore dropped links: %+v", dropped)
	}
	if f1.Parent() != a || f1.Frame().IfxLevel() != 0 {
		t.Fatal("part should be back under its original parent at level 0")
	}
	out = f1.Frame().OutgoingLinks()
	if len(out) != 1 || out[0].Name() != "pal" || out[0].Target() != f2.Frame() {
		t.Fatal("original link should be back")
	}
}

func TestStaleTokenPanics(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	a := mustChild(t, root, KindActor, "a")
	p1 := mustChild(t, a, KindFunction, "p1")
	p2 := mustChild(t, a, KindFunction, "p2")
	p3 := mustChild(t, a, KindFunction, "p3")
	mustSetLevel(t, p1, 1)
	mustSetLevel(t, p2, 1)
	mustSetLevel(t, p3, 1)

	token, err := a.MovePortIndex(p1.Frame(), 1)
	if err != nil || token == nil {
		t.Fatalf("move: %v", err)
	}
	// a second move invalidates the first token
	if _, err := a.MovePortIndex(p1.Frame(), -1); err != nil {
		t.Fatalf("second move: %v", err)
	}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("replaying a stale token should panic")
		}
		if _, ok := r.(StructuralInvariantViolation); !ok {
			t.Fatalf("panic value = %T, want StructuralInvariantViolation", r)
		}
	}()
	a.RestorePortIndex(p1.Frame(), token)
}
