package parts

import (
	"strings"

	"github.com/golang/glog"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/event"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/geom"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/ident"
)

// State is the lifecycle state of a part.
type State int

const (
	// StateActive means the part is attached and reachable from the root.
	StateActive State = iota
	// StateSuspended means the part was removed restorably and may come back
	// via its restore token.
	StateSuspended
	// StateDeleted means the part was removed permanently. Terminal.
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateSuspended:
		return "suspended"
	case StateDeleted:
		return "deleted"
	}
	return "unknown"
}

// PartSignals is the notification surface common to all parts. The child and
// port signals only ever fire on actors.
type PartSignals struct {
	InScenarioChanged event.Signal[bool]
	ParentPathChanged event.VoidSignal
	ChildAdded        event.Signal[*Part]
	ChildRemoved      event.Signal[ident.SessionID]
	PortAdded         event.Signal[PortChange]
	PortRemoved       event.Signal[PortChange]
	PortMoved         event.Signal[PortChange]
}

// Part is one scenario part: a stable session id, a parent reference, an
// owned frame, a lifecycle state and a kind-specific body. Container
// behavior (children, ports) lives in the actor body; see actor.go.
type Part struct {
	id     ident.SessionID
	kind   Kind
	caps   Capabilities
	env    *Env
	parent *Part
	frame  *Frame
	state  State
	body   Body

	Signals PartSignals
}

func newPart(env *Env, spec KindSpec, parent *Part, name string, pos geom.Position) *Part {
	p := &Part{
		id:     env.IDs.Next(),
		kind:   spec.Kind,
		caps:   spec.Caps,
		env:    env,
		parent: parent,
		state:  StateActive,
		body:   spec.NewBody(),
	}
	if name == "" {
		name = string(spec.Kind)
	}
	p.frame = newFrame(p, name, pos, spec.Caps.DefaultSize)
	return p
}

// NewRootActor creates the root actor of a scenario tree. The root has no
// parent and can never be removed.
func NewRootActor(env *Env, name string) *Part {
	spec, ok := env.Registry.Lookup(KindActor)
	assertThat(ok, "actor kind not registered")
	if name == "" {
		name = "root"
	}
	return newPart(env, spec, nil, name, geom.Position{})
}

// ID returns the part's session id, unique for the lifetime of the loaded
// scenario and never reused.
func (p *Part) ID() ident.SessionID { return p.id }

// Kind returns the part's kind name.
func (p *Part) Kind() Kind { return p.kind }

// Caps returns the part kind's capability flags.
func (p *Part) Caps() Capabilities { return p.caps }

// Body returns the kind-specific payload.
func (p *Part) Body() Body { return p.body }

// Frame returns the part's frame.
func (p *Part) Frame() *Frame { return p.frame }

// Parent returns the parent actor, nil for the root.
func (p *Part) Parent() *Part { return p.parent }

// Env returns the scenario environment this part was created in.
func (p *Part) Env() *Env { return p.env }

// IsRoot reports whether the part is the root of the tree.
func (p *Part) IsRoot() bool { return p.parent == nil }

// IsActor reports whether the part is a container.
func (p *Part) IsActor() bool { return p.kind == KindActor }

// State returns the lifecycle state.
func (p *Part) State() State { return p.state }

// InScenario reports whether the part is active (reachable from the root).
func (p *Part) InScenario() bool { return p.state == StateActive }

// Name returns the part's name, which lives on its frame.
func (p *Part) Name() string { return p.frame.Name() }

// SetName renames the part via its frame.
func (p *Part) SetName(name string) { p.frame.SetName(name) }

// actorBody returns the container body, panicking if the part is no actor.
// Callers reach it only through operations that are actor-only by contract.
func (p *Part) actorBody() *ActorBody {
	ab, ok := p.body.(*ActorBody)
	assertThat(ok, "part %d (%s) is not an actor", p.id, p.kind)
	return ab
}

// Ancestors returns the chain of parents from closest to root.
func (p *Part) Ancestors() []*Part {
	var chain []*Part
	for a := p.parent; a != nil; a = a.parent {
		chain = append(chain, a)
	}
	return chain
}

// PartsPath returns the list of parts from the root down to this part. By
// default callers exclude the root and include the part itself; a root part
// yields a non-empty path only with withRoot and withPart both true.
func (p *Part) PartsPath(withRoot, withPart bool) []*Part {
	if p.parent == nil {
		if withRoot && withPart {
			return []*Part{p}
		}
		return nil
	}
	var path []*Part
	start := p
	if !withPart {
		start = p.parent
	}
	for q := start; q != nil; q = q.parent {
		if q.IsRoot() && !withRoot {
			break
		}
		path = append(path, q)
	}
	// collected bottom-up, reverse to root-first
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Path returns the part's path as a '/'-separated string. The root actor is
// represented by the leading separator.
func (p *Part) Path() string {
	names := make([]string, 0, 8)
	for _, q := range p.PartsPath(false, true) {
		names = append(names, q.Name())
	}
	return "/" + strings.Join(names, "/")
}

// RemoveSelf removes this part from its parent. With restorable true the
// returned token restores the part exactly; otherwise the removal is
// permanent. See Actor's RemoveChild for the full transaction.
func (p *Part) RemoveSelf(restorable bool) (*RestorePartInfo, error) {
	if p.parent == nil {
		return nil, &PolicyError{Op: "remove", Reason: "the root actor cannot be removed"}
	}
	return p.parent.RemoveChild(p, restorable)
}

// RestoreSelf re-attaches this part under the parent recorded in the token.
func (p *Part) RestoreSelf(info *RestorePartInfo) (*UnrestorableLinks, error) {
	return info.Parent.RestoreChild(p, info, nil, true)
}

// removeByParent completes a removal transaction. Must only be called by the
// parent actor, after it has detached the part from its child list.
func (p *Part) removeByParent(info *RestorePartInfo) {
	restorable := info != nil
	if ab, ok := p.body.(*ActorBody); ok {
		// Lower the level of every frame exposed on this actor's own
		// boundary so no port on this actor survives its removal. This
		// breaks any of those frames' links that cross the boundary.
		ports := make([]*Frame, 0, len(ab.portsLeft)+len(ab.portsRight))
		ports = append(ports, ab.portsLeft...)
		ports = append(ports, ab.portsRight...)
		for _, f := range ports {
			ifx := f.setIfxBoundary(p, restorable)
			if restorable {
				info.ActorPorts = append(info.ActorPorts, FrameIfxRestore{Frame: f, Ifx: ifx})
			}
		}
		assertThat(len(ab.portsLeft) == 0 && len(ab.portsRight) == 0,
			"actor %d still has ports after boundary teardown", p.id)
	}

	p.onRemovingFromScenario(restorable)
	p.parent = nil
}

// restoreByParent completes a restore transaction. Must only be called by
// the parent actor, after it has re-inserted the part in its child list.
func (p *Part) restoreByParent(info *RestorePartInfo, parent *Part) {
	p.frame.pos = info.Position
	p.parent = parent
	p.onRestoredToScenario()

	if _, ok := p.body.(*ActorBody); ok {
		// Re-raise, in reverse teardown order, the frames that were exposed
		// on this actor's boundary. Their broken links are restored later,
		// by restoreLinks, once all parts of the operation are in place.
		for i := len(info.ActorPorts) - 1; i >= 0; i-- {
			ap := info.ActorPorts[i]
			ap.Frame.RestoreIfxLevel(ap.Ifx, false)
		}
	}
}

// restoreLinks restores the linking captured in the token. With a waypoint
// offset or a no-waypoints set the restoration is impure: links are
// re-created rather than restored and may be dropped into droppedLinks.
func (p *Part) restoreLinks(info *RestorePartInfo, dropped *UnrestorableLinks,
	waypointOffset *geom.Vector, noWaypoints []*Part) {

	glog.V(2).Infof("restoring links for part %d (%s)", p.id, p.Name())
	d := p.frame.RestoreOutgoingLinks(info.Outgoing, waypointOffset, noWaypoints)
	dropped.Outgoing = append(dropped.Outgoing, d...)
	d = p.frame.RestoreIncomingLinks(info.Incoming, waypointOffset, noWaypoints)
	dropped.Incoming = append(dropped.Incoming, d...)

	if _, ok := p.body.(*ActorBody); ok {
		for _, ap := range info.ActorPorts {
			if ap.Ifx == nil {
				continue
			}
			d := ap.Frame.RestoreOutgoingLinks(ap.Ifx.BrokenOut, waypointOffset, noWaypoints)
			dropped.Outgoing = append(dropped.Outgoing, d...)
			d = ap.Frame.RestoreIncomingLinks(ap.Ifx.BrokenIn, waypointOffset, noWaypoints)
			dropped.Incoming = append(dropped.Incoming, d...)
		}
	}
}

// onRemovingFromScenario transitions the lifecycle state of this part and,
// for actors, of every descendant. Descendants keep their parent references.
func (p *Part) onRemovingFromScenario(restorable bool) {
	assertThat(p.state == StateActive, "part %d removed twice", p.id)
	if restorable {
		p.state = StateSuspended
	} else {
		p.state = StateDeleted
	}
	p.Signals.InScenarioChanged.Emit(false)

	if ab, ok := p.body.(*ActorBody); ok {
		for _, child := range ab.children {
			child.onRemovingFromScenario(restorable)
		}
	}
}

// onRestoredToScenario reactivates this part and every descendant.
func (p *Part) onRestoredToScenario() {
	assertThat(p.state == StateSuspended, "part %d not suspended", p.id)
	p.state = StateActive
	p.Signals.InScenarioChanged.Emit(true)
	event.EmitVoid(&p.Signals.ParentPathChanged)

	if ab, ok := p.body.(*ActorBody); ok {
		for _, child := range ab.children {
			child.onRestoredToScenario()
		}
	}
}

// onParentPathChanged is called by the parent when the parent's own path
// changed; actors forward it down the tree.
func (p *Part) onParentPathChanged() {
	event.EmitVoid(&p.Signals.ParentPathChanged)
	if ab, ok := p.body.(*ActorBody); ok {
		for _, child := range ab.children {
			child.onParentPathChanged()
		}
	}
}

// CanAddOutgoingLink reports whether the part may source one more link.
// Nodes accept a single outgoing link; all other kinds follow their
// capability flag.
func (p *Part) CanAddOutgoingLink() bool {
	if p.kind == KindNode {
		return len(p.frame.outgoing) == 0
	}
	return p.caps.CanBeLinkSource
}

// AsLinkTarget resolves this part as seen by a script following a link.
// A node resolves to the first non-node part along its outgoing chain, nil
// if the chain is broken. Other kinds resolve to themselves.
func (p *Part) AsLinkTarget() *Part {
	if p.kind != KindNode {
		return p
	}
	end := p.endpointPart()
	if end == nil {
		return nil
	}
	return end.AsLinkTarget()
}

// endpointPart follows a chain of node parts to the first non-node part.
func (p *Part) endpointPart() *Part {
	node := p
	for node != nil {
		links := node.frame.OutgoingLinks()
		if len(links) == 0 {
			return nil
		}
		next := links[0].target.owner
		if next.kind != KindNode {
			return next
		}
		node = next
	}
	return nil
}

// onOutgoingLinkRemoved lets relay kinds tell their incoming link sources
// that following those links now resolves differently.
func (p *Part) onOutgoingLinkRemoved(link *Link) {
	if p.kind != KindNode {
		return
	}
	p.notifyLinkTargetChanged()
}

// onLinkTargetChanged propagates target-change notifications through relay
// chains.
func (p *Part) onLinkTargetChanged(link *Link) {
	if p.kind != KindNode {
		return
	}
	p.notifyLinkTargetChanged()
}

func (p *Part) notifyLinkTargetChanged() {
	for _, in := range p.frame.IncomingLinks() {
		in.source.owner.onLinkTargetChanged(in)
	}
}
