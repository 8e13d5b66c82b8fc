package parts

import (
	"fmt"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/event"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/geom"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/ident"
)

// LinkSignals is the notification surface of one link.
type LinkSignals struct {
	NameChanged      event.Signal[string]
	BoldChanged      event.Signal[bool]
	VisibleChanged   event.Signal[bool]
	DeclutterChanged event.Signal[bool]
	WaypointAdded    event.Signal[int]
	WaypointRemoved  event.Signal[int]
	TargetChanged    event.VoidSignal
}

// Link is a directed, named edge from a source frame to a target frame. It
// is owned exactly once, by the source frame's outgoing map; the target
// frame holds a non-owning back reference.
type Link struct {
	id        ident.SessionID
	name      string
	tempName  string
	source    *Frame
	target    *Frame
	bold      bool
	visible   bool
	declutter bool
	waypoints []geom.Position

	Signals LinkSignals
}

// newLink constructs a link and attaches the incoming reference on target.
// Legality must have been checked by the caller.
func newLink(env *Env, source, target *Frame, name string) *Link {
	l := &Link{
		id:      env.IDs.Next(),
		name:    name,
		source:  source,
		target:  target,
		visible: true,
	}
	target.attachIncomingLink(l)
	return l
}

// cloneUnattached returns a fresh link with the same name and display flags
// but no endpoints and no waypoints. Used by impure restores which re-create
// links rather than reattach them.
func (l *Link) cloneUnattached(env *Env) *Link {
	return &Link{
		id:        env.IDs.Next(),
		name:      l.name,
		bold:      l.bold,
		visible:   l.visible,
		declutter: l.declutter,
	}
}

// ID returns the link's session id.
func (l *Link) ID() ident.SessionID { return l.id }

// Name returns the link's name, unique among its source's outgoing links.
func (l *Link) Name() string { return l.name }

// SetName renames the link. The name must be unique among the source
// frame's outgoing links.
func (l *Link) SetName(name string) error {
	if name == l.name {
		return nil
	}
	if l.source != nil && (l.source.isLinkNameTaken(name) || l.source.isLinkTempNameTaken(name)) {
		return &LinkNameConflictError{Name: name}
	}
	l.name = name
	l.Signals.NameChanged.Emit(name)
	return nil
}

// TempName returns the in-edit temporary name, empty when none.
func (l *Link) TempName() string { return l.tempName }

// SetTempName records a temporary name used during editing.
func (l *Link) SetTempName(name string) { l.tempName = name }

// Source returns the source frame, nil while the link is removed.
func (l *Link) Source() *Frame { return l.source }

// Target returns the target frame, nil while the link is removed.
func (l *Link) Target() *Frame { return l.target }

// TargetPart resolves the target part as a script sees it, following node
// chains.
func (l *Link) TargetPart() *Part {
	if l.target == nil {
		return nil
	}
	return l.target.owner.AsLinkTarget()
}

// Bold returns the bold display flag.
func (l *Link) Bold() bool { return l.bold }

// SetBold sets the bold display flag.
func (l *Link) SetBold(v bool) {
	l.bold = v
	l.Signals.BoldChanged.Emit(v)
}

// Visible returns the visibility display flag.
func (l *Link) Visible() bool { return l.visible }

// SetVisible sets the visibility display flag.
func (l *Link) SetVisible(v bool) {
	l.visible = v
	l.Signals.VisibleChanged.Emit(v)
}

// Declutter returns the declutter display flag.
func (l *Link) Declutter() bool { return l.declutter }

// SetDeclutter sets the declutter display flag.
func (l *Link) SetDeclutter(v bool) {
	l.declutter = v
	l.Signals.DeclutterChanged.Emit(v)
}

// IsElevated reports whether source and target live in different actors.
func (l *Link) IsElevated() bool {
	return l.source.owner.parent != l.target.owner.parent
}

// CCA returns the closest common ancestor of the two endpoints: the actor
// in which the link is visible.
func (l *Link) CCA() *Part {
	return closestCommonAncestor(l.source.owner, l.target.owner)
}

// RemoveSelf removes this link via its source frame.
func (l *Link) RemoveSelf(restorable bool) *RestoreLinkInfo {
	return l.source.RemoveOutgoingLink(l, restorable)
}

// RestoreSelf restores the link via the source frame recorded in the token.
func (l *Link) RestoreSelf(info *RestoreLinkInfo) error {
	return info.Source.RestoreOutgoingLink(l, info)
}

// removeBySource detaches the link from both endpoints. Must only be called
// by the source frame.
func (l *Link) removeBySource(restorable bool) *RestoreLinkInfo {
	l.target.detachIncomingLink(l)
	source, target := l.source, l.target
	l.source, l.target = nil, nil
	if !restorable {
		return nil
	}
	return &RestoreLinkInfo{
		Source:    source,
		Target:    target,
		Name:      l.name,
		Bold:      l.bold,
		Visible:   l.visible,
		Declutter: l.declutter,
		Waypoints: append([]geom.Position(nil), l.waypoints...),
	}
}

// restoreBySource reattaches the link to the endpoints recorded in the
// token. Must only be called by the source frame; legality is re-validated
// and an error means the restore is impure and now illegal.
func (l *Link) restoreBySource(info *RestoreLinkInfo) error {
	assertThat(info.Source != nil && info.Target != nil, "link restore token missing endpoints")
	if err := CheckLinkable(TipOf(info.Source), TipOf(info.Target)); err != nil {
		return err
	}
	l.source = info.Source
	l.target = info.Target
	l.target.attachIncomingLink(l)
	return nil
}

// RestoreValid restores the link after raising either endpoint's interface
// level just enough for the link to be legal again. Waypoints are dropped.
// Used by reparenting with maintain_links. The returned records allow the
// raised levels to be lowered again on unreparent.
func (l *Link) RestoreValid(info *RestoreLinkInfo) ([]FrameIfxRestore, error) {
	srcTip, tgtTip := TipOf(info.Source), TipOf(info.Target)
	minSrc, minTgt := MinIfxLevels(srcTip, tgtTip)

	var raised []FrameIfxRestore
	if srcTip.Level < minSrc {
		ifx, broken, err := info.Source.SetIfxLevel(minSrc, false, true)
		if err != nil {
			return raised, err
		}
		assertThat(len(broken) == 0, "raising a level broke links")
		raised = append(raised, FrameIfxRestore{Frame: info.Source, Ifx: ifx})
	}
	if tgtTip.Level < minTgt {
		ifx, broken, err := info.Target.SetIfxLevel(minTgt, false, true)
		if err != nil {
			return raised, err
		}
		assertThat(len(broken) == 0, "raising a level broke links")
		raised = append(raised, FrameIfxRestore{Frame: info.Target, Ifx: ifx})
	}

	fresh := l.cloneUnattached(info.Source.owner.env)
	noWaypoints := *info
	noWaypoints.Waypoints = nil
	if err := info.Source.RestoreOutgoingLink(fresh, &noWaypoints); err != nil {
		return raised, err
	}
	return raised, nil
}

// Retarget moves the link's target anchor to a new frame and returns a
// token to put it back.
func (l *Link) Retarget(newTarget *Frame) *RestoreLinkInfo {
	info := &RestoreLinkInfo{Source: l.source, Target: l.target, Name: l.name}
	l.target.detachIncomingLink(l)
	l.target = newTarget
	l.target.attachIncomingLink(l)
	l.source.owner.onLinkTargetChanged(l)
	event.EmitVoid(&l.Signals.TargetChanged)
	return info
}

// RestoreRetarget puts the target anchor back where Retarget found it.
func (l *Link) RestoreRetarget(info *RestoreLinkInfo) {
	l.target.detachIncomingLink(l)
	l.target = info.Target
	l.target.attachIncomingLink(l)
	event.EmitVoid(&l.Signals.TargetChanged)
}

// ReplaceByInverted replaces this link in its source frame by one with the
// same properties but the opposite direction.
func (l *Link) ReplaceByInverted(restorable bool) (*RestoreLinkInfo, error) {
	return l.source.replaceOutgoingLinkByInverted(l, restorable)
}

// CheckValid reports whether the link is currently legal.
func (l *Link) CheckValid() bool {
	return CheckLinkable(TipOf(l.source), TipOf(l.target)) == nil
}

// Waypoints returns a copy of the link's waypoint positions.
func (l *Link) Waypoints() []geom.Position {
	return append([]geom.Position(nil), l.waypoints...)
}

// AddWaypoint inserts a waypoint. A negative index appends.
func (l *Link) AddWaypoint(pos geom.Position, index int) {
	if index < 0 || index >= len(l.waypoints) {
		index = len(l.waypoints)
		l.waypoints = append(l.waypoints, pos)
	} else {
		l.waypoints = append(l.waypoints[:index], append([]geom.Position{pos}, l.waypoints[index:]...)...)
	}
	l.Signals.WaypointAdded.Emit(index)
}

// RemoveWaypoint deletes the waypoint at index and returns its position so
// it can be restored at the same index.
func (l *Link) RemoveWaypoint(index int) (geom.Position, error) {
	if index < 0 || index >= len(l.waypoints) {
		return geom.Position{}, &NotFoundError{What: "waypoint", ID: ident.SessionID(index)}
	}
	pos := l.waypoints[index]
	l.waypoints = append(l.waypoints[:index], l.waypoints[index+1:]...)
	l.Signals.WaypointRemoved.Emit(index)
	return pos, nil
}

// RemoveAllWaypoints drops every waypoint, returning them in order.
func (l *Link) RemoveAllWaypoints() []geom.Position {
	dropped := l.waypoints
	l.waypoints = nil
	for i := len(dropped) - 1; i >= 0; i-- {
		l.Signals.WaypointRemoved.Emit(i)
	}
	return dropped
}

// MoveWaypoints shifts every waypoint by the given offset.
func (l *Link) MoveWaypoints(offset geom.Vector) {
	for i := range l.waypoints {
		l.waypoints[i] = l.waypoints[i].Translate(offset)
	}
}

// LinkChains returns every unique chain of links reachable by following
// this link through hub parts. A chain of length one is a direct link.
func (l *Link) LinkChains(history []ident.SessionID) [][]*Link {
	outChains := l.target.owner.linkChainsFrom(history)
	if len(outChains) == 0 {
		return [][]*Link{{l}}
	}
	chains := make([][]*Link, 0, len(outChains))
	for _, out := range outChains {
		chains = append(chains, append([]*Link{l}, out...))
	}
	return chains
}

func (l *Link) String() string {
	src, tgt := "?", "?"
	if l.source != nil {
		src = l.source.Name()
	}
	if l.target != nil {
		tgt = l.target.Name()
	}
	return fmt.Sprintf("link %q (%s -> %s)", l.name, src, tgt)
}

// LinkSet groups the invalid outgoing and incoming links of a frame.
type LinkSet struct {
	Outgoing []*Link
	Incoming []*Link
}

// Empty reports whether the set holds no links.
func (s *LinkSet) Empty() bool {
	return len(s.Outgoing) == 0 && len(s.Incoming) == 0
}

// LinkTip describes one endpoint of a prospective link, with optional
// overrides of the frame's interface level, parent or root. The overrides
// answer "would this link be valid if the level changed / the part were
// reparented / an ancestor moved" without mutating anything.
type LinkTip struct {
	Frame          *Frame
	Level          int
	RootOverride   *Part
	ParentOverride *Part
}

// TipOf describes a frame endpoint at its actual interface level.
func TipOf(f *Frame) LinkTip {
	return LinkTip{Frame: f, Level: f.ifxLevel}
}

// TipAtLevel describes a frame endpoint at an assumed interface level.
func TipAtLevel(f *Frame, level int) LinkTip {
	return LinkTip{Frame: f, Level: level}
}

// actorPath is the endpoint's root-inclusive parts path with the parent and
// root overrides applied.
func (t LinkTip) actorPath() []*Part {
	var path []*Part
	if t.ParentOverride == nil {
		path = t.Frame.owner.PartsPath(true, true)
	} else {
		path = append(t.ParentOverride.PartsPath(true, true), t.Frame.owner)
	}
	if t.RootOverride != nil {
		return append(t.RootOverride.PartsPath(true, true), path...)
	}
	return path
}

// needInScenario reports whether the endpoint's part must be active for the
// link to be checkable; overridden tips simulate detached parts.
func (t LinkTip) needInScenario() bool {
	return t.ParentOverride == nil && t.RootOverride == nil
}

// CheckLinkable validates that a link between the two tips would be legal:
// both endpoints present and in-scenario (unless simulated), and each tip's
// interface level at least the minimum imposed by the tree distance to
// their closest common ancestor.
func CheckLinkable(source, target LinkTip) error {
	if source.Frame == nil || target.Frame == nil {
		return &ValidationError{Reason: "link endpoint missing"}
	}
	if source.Frame == target.Frame {
		return &ValidationError{Reason: "link endpoints must differ"}
	}
	if source.needInScenario() && !source.Frame.owner.InScenario() {
		return &ValidationError{Reason: fmt.Sprintf("link source %q not in scenario", source.Frame.Name())}
	}
	if target.needInScenario() && !target.Frame.owner.InScenario() {
		return &ValidationError{Reason: fmt.Sprintf("link target %q not in scenario", target.Frame.Name())}
	}

	minSrc, minTgt := MinIfxLevels(source, target)
	if source.Level < minSrc {
		return &ValidationError{
			Reason: fmt.Sprintf("interface level of %q too low for link (%d < %d)",
				source.Frame.Name(), source.Level, minSrc),
			MinLevel: minSrc,
		}
	}
	if target.Level < minTgt {
		return &ValidationError{
			Reason: fmt.Sprintf("interface level of %q too low for link (%d < %d)",
				target.Frame.Name(), target.Level, minTgt),
			MinLevel: minTgt,
		}
	}
	return nil
}

// MinIfxLevels returns the minimum interface levels the source and target
// tips need for a link between them to be legal. The minimum is the number
// of boundaries between each endpoint and the closest common ancestor.
func MinIfxLevels(source, target LinkTip) (int, int) {
	srcPath := source.actorPath()
	tgtPath := target.actorPath()

	common := 0
	for common < len(srcPath) && common < len(tgtPath) {
		if srcPath[common] != tgtPath[common] {
			return len(srcPath) - 1 - common, len(tgtPath) - 1 - common
		}
		common++
	}

	// one path is a prefix of the other: the link joins a part and one of
	// its ancestors
	lenDiff := len(srcPath) - len(tgtPath)
	if lenDiff < 0 {
		return 0, -lenDiff - 1
	}
	return lenDiff - 1, 0
}

// closestCommonAncestor returns the deepest actor on both parts' paths.
// For siblings it is their shared parent; if one part is an ancestor of the
// other, it is that ancestor itself.
func closestCommonAncestor(a, b *Part) *Part {
	pathA := a.PartsPath(true, true)
	pathB := b.PartsPath(true, true)
	if len(pathA) == 0 || len(pathB) == 0 || pathA[0] != pathB[0] {
		return nil
	}
	n := len(pathA)
	if len(pathB) < n {
		n = len(pathB)
	}
	for i := 0; i < n; i++ {
		if pathA[i] != pathB[i] {
			return pathA[i].parent
		}
	}
	if len(pathA) > len(pathB) {
		return pathB[len(pathB)-1]
	}
	return pathA[len(pathA)-1]
}

// elevatedActors returns, for each endpoint, the ancestor actor on whose
// boundary the link emerges, nil when the endpoint sits directly in the
// link's closest common ancestor.
func elevatedActors(source, target *Frame) (*Part, *Part) {
	pathSrc := source.owner.PartsPath(true, true)
	pathTgt := target.owner.PartsPath(true, true)
	if pathSrc[0] != pathTgt[0] {
		return nil, nil
	}
	n := len(pathSrc)
	if len(pathTgt) < n {
		n = len(pathTgt)
	}
	for i := 0; i < n; i++ {
		if pathSrc[i] != pathTgt[i] {
			var src, tgt *Part
			if pathSrc[i] != source.owner {
				src = pathSrc[i]
			}
			if pathTgt[i] != target.owner {
				tgt = pathTgt[i]
			}
			return src, tgt
		}
	}
	// one endpoint is an ancestor of the other: the deeper endpoint's
	// elevated actor is the child of the shallower one along its path
	if len(pathSrc) > len(pathTgt) {
		cand := pathSrc[len(pathTgt)]
		if cand != source.owner {
			return cand, nil
		}
		return nil, nil
	}
	cand := pathTgt[len(pathSrc)]
	if cand != target.owner {
		return nil, cand
	}
	return nil, nil
}
