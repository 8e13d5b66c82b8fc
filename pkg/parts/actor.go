package parts

// Container operations. They are methods on Part but only valid on actors;
// calling them on any other kind is a caller bug and panics via actorBody.

import (
	"github.com/golang/glog"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/geom"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/ident"
)

// PortChange describes one port event on an actor boundary.
type PortChange struct {
	Frame *Frame
	Left  bool
	Index int
}

// CreateChild creates a new part of the given kind inside this actor. The
// kind must be registered and user-creatable. An empty name defaults to the
// kind name.
func (p *Part) CreateChild(kind Kind, name string, pos geom.Position) (*Part, error) {
	p.actorBody()
	spec, ok := p.env.Registry.Lookup(kind)
	if !ok {
		return nil, &NotFoundError{What: "part kind", Name: string(kind)}
	}
	if !spec.Caps.UserCreatable {
		return nil, &PolicyError{
			Op:     "create part",
			Reason: "kind " + string(kind) + " is not user-creatable",
		}
	}
	child := newPart(p.env, spec, p, name, pos)
	p.acceptChild(child)
	glog.V(1).Infof("created %s part %d (%q) in actor %d", kind, child.id, child.Name(), p.id)
	return child, nil
}

func (p *Part) acceptChild(child *Part) {
	ab := p.actorBody()
	ab.idIndex[child.id] = len(ab.children)
	ab.children = append(ab.children, child)
	child.parent = p
	p.Signals.ChildAdded.Emit(child)
}

func (p *Part) detachChild(child *Part) {
	ab := p.actorBody()
	i, ok := ab.idIndex[child.id]
	assertThat(ok && ab.children[i] == child, "part %d is not a child of actor %d", child.id, p.id)
	ab.children = append(ab.children[:i], ab.children[i+1:]...)
	delete(ab.idIndex, child.id)
	for j := i; j < len(ab.children); j++ {
		ab.idIndex[ab.children[j].id] = j
	}
	p.Signals.ChildRemoved.Emit(child.id)
}

// Children returns a copy of the ordered child list.
func (p *Part) Children() []*Part {
	ab := p.actorBody()
	return append([]*Part(nil), ab.children...)
}

// ChildCount returns the number of direct children.
func (p *Part) ChildCount() int {
	return len(p.actorBody().children)
}

// ChildByID returns the direct child with the given session id.
func (p *Part) ChildByID(id ident.SessionID) (*Part, error) {
	ab := p.actorBody()
	if i, ok := ab.idIndex[id]; ok {
		return ab.children[i], nil
	}
	return nil, &NotFoundError{What: "child part", ID: id}
}

// ChildByName returns the first direct child with the given name. Part names
// need not be unique.
func (p *Part) ChildByName(name string) (*Part, error) {
	for _, c := range p.actorBody().children {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, &NotFoundError{What: "child part", Name: name}
}

// DescendantParts returns every part below this actor, depth first.
func (p *Part) DescendantParts() []*Part {
	var out []*Part
	for _, c := range p.actorBody().children {
		out = append(out, c)
		if c.IsActor() {
			out = append(out, c.DescendantParts()...)
		}
	}
	return out
}

// RemoveChild removes a direct child and all its links from the scenario.
// With restorable true the returned token fully reverses the removal: the
// child's links, its interface level and ports, and (for actors) the levels
// of every descendant frame exposed on the child's boundary are all captured.
func (p *Part) RemoveChild(child *Part, restorable bool) (*RestorePartInfo, error) {
	ab := p.actorBody()
	if i, ok := ab.idIndex[child.id]; !ok || ab.children[i] != child {
		return nil, &NotFoundError{What: "child part", ID: child.id}
	}

	var info *RestorePartInfo
	if restorable {
		info = &RestorePartInfo{Parent: p, Position: child.frame.pos}
	}
	outgoing := child.frame.RemoveOutgoingLinks(restorable, nil)
	incoming := child.frame.RemoveIncomingLinks(restorable, nil)
	ifx, broken, err := child.frame.SetIfxLevel(0, true, restorable)
	assertThat(err == nil, "lowering level of unlinked part failed: %v", err)
	assertThat(len(broken) == 0, "unlinked part %d still had %d links", child.id, len(broken))
	if restorable {
		info.Outgoing, info.Incoming, info.IfxRestore = outgoing, incoming, ifx
	}

	p.detachChild(child)
	child.removeByParent(info)
	glog.V(1).Infof("removed part %d (%q) from actor %d (restorable=%v)",
		child.id, child.Name(), p.id, restorable)
	return info, nil
}

// RestoreChild re-attaches a removed part inside this actor, which need not
// be the actor it was removed from. With a paste offset the part lands at
// its recorded position shifted by the offset and restored link waypoints
// shift with it. With singleOp true the child's links are restored
// immediately; batch restores pass false and restore links themselves once
// every part of the batch is back in place.
func (p *Part) RestoreChild(child *Part, info *RestorePartInfo,
	pasteOffset *geom.Vector, singleOp bool) (*UnrestorableLinks, error) {

	p.actorBody()
	assertThat(info != nil, "restoring part %d without a token", child.id)
	if child.state != StateSuspended {
		return nil, &PolicyError{Op: "restore part", Reason: "part is " + child.state.String()}
	}

	p.acceptChild(child)
	child.restoreByParent(info, p)
	if pasteOffset != nil {
		child.frame.SetPosition(info.Position.Translate(*pasteOffset))
	}
	if info.IfxRestore != nil {
		child.frame.RestoreIfxLevel(info.IfxRestore, false)
	}

	dropped := &UnrestorableLinks{}
	if singleOp {
		child.restoreLinks(info, dropped, pasteOffset, nil)
	}
	return dropped, nil
}

// RemoveChildren removes the given children one by one, in order. On error
// the tokens of the removals that did complete are returned with the error.
func (p *Part) RemoveChildren(children []*Part, restorable bool) ([]*RestorePartInfo, error) {
	var infos []*RestorePartInfo
	for _, c := range children {
		info, err := p.RemoveChild(c, restorable)
		if err != nil {
			return infos, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// RestoreChildren restores a batch of removed parts in two phases: first
// every part is re-attached, then every part's links are restored, so links
// between parts of the batch find both endpoints in place. When a paste
// offset is given, links between parts of the batch keep their waypoints
// shifted by the offset while links reaching outside the batch lose theirs.
func (p *Part) RestoreChildren(children []*Part, infos []*RestorePartInfo,
	pasteOffset *geom.Vector) (*UnrestorableLinks, error) {

	assertThat(len(children) == len(infos), "children and tokens out of step (%d vs %d)",
		len(children), len(infos))
	dropped := &UnrestorableLinks{}
	for i, c := range children {
		if _, err := p.RestoreChild(c, infos[i], pasteOffset, false); err != nil {
			return dropped, err
		}
	}
	var moved []*Part
	if pasteOffset != nil {
		moved = children
	}
	for i, c := range children {
		c.restoreLinks(infos[i], dropped, pasteOffset, moved)
	}
	return dropped, nil
}

// ReparentChildren moves parts removed elsewhere into this actor. With
// maintainLinks true, each dropped link is re-created after raising its
// endpoints' interface levels just enough to make it legal from the new
// location; the raises are recorded in the returned token so
// UnreparentChildren can lower them again. Links that cannot be made legal
// stay in the returned dropped set.
func (p *Part) ReparentChildren(children []*Part, infos []*RestorePartInfo,
	maintainLinks bool, pasteOffset *geom.Vector) (*RestoreReparentInfo, *UnrestorableLinks, error) {

	positions := make([]geom.Position, len(infos))
	for i, info := range infos {
		positions[i] = info.Position
	}
	dropped, err := p.RestoreChildren(children, infos, pasteOffset)
	if err != nil {
		return nil, dropped, err
	}

	result := &RestoreReparentInfo{PasteOffset: pasteOffset, Positions: positions}
	if maintainLinks {
		var kept UnrestorableLinks
		for _, lr := range dropped.Outgoing {
			raised, err := lr.Link.RestoreValid(lr.Info)
			result.IfxLevels = append(result.IfxLevels, raised...)
			if err != nil {
				glog.Warningf("link %q not maintainable across reparent: %v", lr.Info.Name, err)
				kept.Outgoing = append(kept.Outgoing, lr)
			}
		}
		for _, lr := range dropped.Incoming {
			raised, err := lr.Link.RestoreValid(lr.Info)
			result.IfxLevels = append(result.IfxLevels, raised...)
			if err != nil {
				glog.Warningf("link %q not maintainable across reparent: %v", lr.Info.Name, err)
				kept.Incoming = append(kept.Incoming, lr)
			}
		}
		*dropped = kept
	}
	return result, dropped, nil
}

// UnreparentChildren reverses a reparent into this actor: the interface
// levels raised to maintain links are lowered back (breaking those links),
// the parts are removed restorably, and the removal tokens are rewritten to
// the pre-reparent positions so restoring them puts everything back where
// it started.
func (p *Part) UnreparentChildren(children []*Part, info *RestoreReparentInfo) ([]*RestorePartInfo, error) {
	for _, fr := range info.IfxLevels {
		assertThat(fr.Ifx.LevelIncreased(), "unreparent token records a level decrease")
		assertThat(len(fr.Ifx.BrokenOut) == 0 && len(fr.Ifx.BrokenIn) == 0,
			"unreparent token records broken links")
		_, _, err := fr.Frame.SetIfxLevel(fr.Ifx.FromLevel, true, false)
		assertThat(err == nil, "lowering maintained level failed: %v", err)
	}
	infos, err := p.RemoveChildren(children, true)
	if err != nil {
		return infos, err
	}
	for i, removed := range infos {
		if i < len(info.Positions) {
			removed.Position = info.Positions[i]
		}
	}
	return infos, nil
}

// CheckLinksRestoration predicts which of the links captured in the tokens
// would not survive restoring the parts into this actor, without mutating
// anything. The tips simulate the new location: removed parts are treated
// as direct children of this actor and frames exposed on a removed actor's
// boundary as living in a branch rooted here.
func (p *Part) CheckLinksRestoration(children []*Part, infos []*RestorePartInfo) LinksRestore {
	p.actorBody()
	var invalid LinksRestore
	for i := range children {
		assertThat(!children[i].InScenario(), "part %d to check is still in scenario", children[i].id)
		info := infos[i]
		for _, lr := range info.Outgoing {
			tip := LinkTip{Frame: lr.Info.Source, Level: lr.Info.Source.ifxLevel, ParentOverride: p}
			if CheckLinkable(tip, TipOf(lr.Info.Target)) != nil {
				invalid = append(invalid, lr)
			}
		}
		for _, lr := range info.Incoming {
			tip := LinkTip{Frame: lr.Info.Target, Level: lr.Info.Target.ifxLevel, ParentOverride: p}
			if CheckLinkable(TipOf(lr.Info.Source), tip) != nil {
				invalid = append(invalid, lr)
			}
		}
		for _, ap := range info.ActorPorts {
			if ap.Ifx == nil {
				continue
			}
			for _, lr := range ap.Ifx.BrokenOut {
				tip := LinkTip{Frame: lr.Info.Source, Level: lr.Info.Source.ifxLevel, RootOverride: p}
				if CheckLinkable(tip, TipOf(lr.Info.Target)) != nil {
					invalid = append(invalid, lr)
				}
			}
			for _, lr := range ap.Ifx.BrokenIn {
				tip := LinkTip{Frame: lr.Info.Target, Level: lr.Info.Target.ifxLevel, RootOverride: p}
				if CheckLinkable(TipOf(lr.Info.Source), tip) != nil {
					invalid = append(invalid, lr)
				}
			}
		}
	}
	return invalid
}

// Port bins. A frame with interface level n owns one port on each of its n
// closest ancestor actors. Each actor keeps its ports in two ordered bins,
// left and right; new ports go to the less populated bin.

// IfxPorts returns a copy of one port bin.
func (p *Part) IfxPorts(left bool) []*Frame {
	ab := p.actorBody()
	if left {
		return append([]*Frame(nil), ab.portsLeft...)
	}
	return append([]*Frame(nil), ab.portsRight...)
}

// HasIfxPort reports whether the frame has a port on this actor's boundary.
func (p *Part) HasIfxPort(f *Frame) bool {
	bin, _, _ := p.portBin(f)
	return bin != nil
}

func (p *Part) portBin(f *Frame) (*[]*Frame, int, bool) {
	ab := p.actorBody()
	for i, pf := range ab.portsLeft {
		if pf == f {
			return &ab.portsLeft, i, true
		}
	}
	for i, pf := range ab.portsRight {
		if pf == f {
			return &ab.portsRight, i, false
		}
	}
	return nil, -1, false
}

func (p *Part) addIfxPortSolo(f *Frame) {
	ab := p.actorBody()
	if len(ab.portsLeft) <= len(ab.portsRight) {
		ab.portsLeft = append(ab.portsLeft, f)
		p.Signals.PortAdded.Emit(PortChange{Frame: f, Left: true, Index: len(ab.portsLeft) - 1})
	} else {
		ab.portsRight = append(ab.portsRight, f)
		p.Signals.PortAdded.Emit(PortChange{Frame: f, Left: false, Index: len(ab.portsRight) - 1})
	}
}

func (p *Part) insertIfxPort(f *Frame, index int, left bool) {
	ab := p.actorBody()
	bin := &ab.portsRight
	if left {
		bin = &ab.portsLeft
	}
	if index > len(*bin) {
		index = len(*bin)
	}
	*bin = append((*bin)[:index], append([]*Frame{f}, (*bin)[index:]...)...)
	p.Signals.PortAdded.Emit(PortChange{Frame: f, Left: left, Index: index})
}

// addIfxPorts adds one port for the frame on each ancestor actor covering
// levels bottom through top, starting the walk at this actor as level 1.
func (p *Part) addIfxPorts(f *Frame, bottom, top int) {
	actor := p
	for i := 1; i < bottom; i++ {
		actor = actor.parent
		assertThat(actor != nil, "port level %d of %q reaches beyond the root", bottom, f.name)
	}
	for level := bottom; level <= top; level++ {
		assertThat(actor != nil, "port level %d of %q reaches beyond the root", level, f.name)
		actor.addIfxPortSolo(f)
		actor = actor.parent
	}
}

// removeIfxPorts removes the frame's port from each ancestor actor covering
// levels bottom through top. With record true the placements (actor, bin,
// index) are returned so restoreIfxPorts can put each port back exactly.
func (p *Part) removeIfxPorts(f *Frame, bottom, top int, record bool) []PortPlacement {
	actor := p
	for i := 1; i < bottom; i++ {
		actor = actor.parent
	}
	var placements []PortPlacement
	for level := bottom; level <= top; level++ {
		assertThat(actor != nil, "no ancestor at port level %d of %q", level, f.name)
		bin, i, left := actor.portBin(f)
		assertThat(bin != nil, "frame %q has no port on actor %d", f.name, actor.id)
		*bin = append((*bin)[:i], (*bin)[i+1:]...)
		if record {
			placements = append(placements, PortPlacement{Actor: actor, Index: i, Left: left})
		}
		actor.Signals.PortRemoved.Emit(PortChange{Frame: f, Left: left, Index: i})
		actor = actor.parent
	}
	return placements
}

// restoreIfxPorts re-adds the frame's ports for levels fromLevel through
// toLevel, walking the ancestor chain from this actor as level 1. Ports with
// a recorded placement go back to their exact bin and index; the rest go to
// the less populated bin. The frame's level must already be restored.
func (p *Part) restoreIfxPorts(f *Frame, placements []PortPlacement, fromLevel, toLevel int) {
	maxLevel := f.ifxLevel
	if maxLevel < 1 {
		return
	}
	if toLevel > maxLevel {
		toLevel = maxLevel
	}
	actor := p
	for level := 1; level <= toLevel && actor != nil; level++ {
		if level >= fromLevel {
			placed := false
			for _, pl := range placements {
				if pl.Actor == actor {
					actor.insertIfxPort(f, pl.Index, pl.Left)
					placed = true
					break
				}
			}
			if !placed {
				actor.addIfxPortSolo(f)
			}
		}
		actor = actor.parent
	}
}

// SwitchPortSide moves the frame's port on this actor to the other bin,
// appending at the end. The returned token puts it back at its exact spot.
func (p *Part) SwitchPortSide(f *Frame) (*RestorePortInfo, error) {
	ab := p.actorBody()
	bin, i, left := p.portBin(f)
	if bin == nil {
		return nil, &NotFoundError{What: "interface port", Name: f.name}
	}
	*bin = append((*bin)[:i], (*bin)[i+1:]...)
	other := &ab.portsLeft
	if left {
		other = &ab.portsRight
	}
	*other = append(*other, f)
	p.Signals.PortMoved.Emit(PortChange{Frame: f, Left: !left, Index: len(*other) - 1})
	return &RestorePortInfo{Index: i, Left: left}, nil
}

// RestorePortSide reverses a side switch.
func (p *Part) RestorePortSide(f *Frame, info *RestorePortInfo) {
	ab := p.actorBody()
	bin, i, left := p.portBin(f)
	assertThat(bin != nil, "frame %q has no port on actor %d", f.name, p.id)
	assertThat(left != info.Left, "port of %q already on the recorded side", f.name)
	*bin = append((*bin)[:i], (*bin)[i+1:]...)

	back := &ab.portsRight
	if info.Left {
		back = &ab.portsLeft
	}
	index := info.Index
	if index > len(*back) {
		index = len(*back)
	}
	*back = append((*back)[:index], append([]*Frame{f}, (*back)[index:]...)...)
	p.Signals.PortMoved.Emit(PortChange{Frame: f, Left: info.Left, Index: index})
}

// MovePortIndex moves the frame's port within its bin by the given number of
// steps, clamped to the bin ends. Returns nil when the port does not move.
func (p *Part) MovePortIndex(f *Frame, steps int) (*RestorePortIndexInfo, error) {
	bin, i, left := p.portBin(f)
	if bin == nil {
		return nil, &NotFoundError{What: "interface port", Name: f.name}
	}
	to := i + steps
	if to < 0 {
		to = 0
	}
	if to > len(*bin)-1 {
		to = len(*bin) - 1
	}
	if to == i {
		return nil, nil
	}
	*bin = append((*bin)[:i], (*bin)[i+1:]...)
	*bin = append((*bin)[:to], append([]*Frame{f}, (*bin)[to:]...)...)
	p.Signals.PortMoved.Emit(PortChange{Frame: f, Left: left, Index: to})
	return &RestorePortIndexInfo{FromIndex: i, ToIndex: to, Left: left}, nil
}

// RestorePortIndex reverses a port move within a bin.
func (p *Part) RestorePortIndex(f *Frame, info *RestorePortIndexInfo) {
	ab := p.actorBody()
	bin := &ab.portsRight
	if info.Left {
		bin = &ab.portsLeft
	}
	assertThat(info.ToIndex < len(*bin) && (*bin)[info.ToIndex] == f,
		"port of %q not at recorded index %d", f.name, info.ToIndex)
	*bin = append((*bin)[:info.ToIndex], (*bin)[info.ToIndex+1:]...)
	*bin = append((*bin)[:info.FromIndex], append([]*Frame{f}, (*bin)[info.FromIndex:]...)...)
	p.Signals.PortMoved.Emit(PortChange{Frame: f, Left: info.Left, Index: info.FromIndex})
}
