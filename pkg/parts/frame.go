package parts

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/golang/glog"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/event"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/geom"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/ident"
)

// LinkGone identifies a removed link by id and display name, since the live
// object may already be detached when observers hear about it.
type LinkGone struct {
	ID   ident.SessionID
	Name string
}

// FrameSignals is the notification surface of one frame.
type FrameSignals struct {
	NameChanged         event.Signal[string]
	IfxLevelChanged     event.Signal[int]
	PositionChanged     event.Signal[geom.Position]
	SizeChanged         event.Signal[geom.Size]
	OutgoingLinkAdded   event.Signal[*Link]
	OutgoingLinkRemoved event.Signal[LinkGone]
	IncomingLinkAdded   event.Signal[*Link]
	IncomingLinkRemoved event.Signal[LinkGone]
	LinkChainChanged    event.VoidSignal
}

// Frame carries a part's name, interface level, position and size, and owns
// the part's outgoing links. Incoming links are back references owned by
// their source frames.
type Frame struct {
	owner    *Part
	name     string
	ifxLevel int
	pos      geom.Position
	size     geom.Size
	comment  string
	visible  bool
	bold     bool
	outgoing map[ident.SessionID]*Link
	incoming []*Link
	pending  []pendingLink

	Signals FrameSignals
}

func newFrame(owner *Part, name string, pos geom.Position, size geom.Size) *Frame {
	return &Frame{
		owner:    owner,
		name:     name,
		pos:      pos,
		size:     size,
		visible:  true,
		outgoing: map[ident.SessionID]*Link{},
	}
}

// Owner returns the part this frame belongs to.
func (f *Frame) Owner() *Part { return f.owner }

// Name returns the part's name.
func (f *Frame) Name() string { return f.name }

// SetName renames the part. Actors forward the change to descendants, whose
// paths all change with it.
func (f *Frame) SetName(name string) {
	if f.name == name {
		return
	}
	f.name = name
	f.Signals.NameChanged.Emit(name)
	if ab, ok := f.owner.body.(*ActorBody); ok {
		for _, child := range ab.children {
			child.onParentPathChanged()
		}
	}
}

// Position returns the frame position in scenario coordinates.
func (f *Frame) Position() geom.Position { return f.pos }

// SetPosition moves the frame.
func (f *Frame) SetPosition(pos geom.Position) {
	f.pos = pos
	f.Signals.PositionChanged.Emit(pos)
}

// Size returns the frame size.
func (f *Frame) Size() geom.Size { return f.size }

// SetSize resizes the frame.
func (f *Frame) SetSize(size geom.Size) {
	f.size = size
	f.Signals.SizeChanged.Emit(size)
}

// Comment returns the frame comment.
func (f *Frame) Comment() string { return f.comment }

// SetComment sets the frame comment.
func (f *Frame) SetComment(c string) { f.comment = c }

// Visible returns whether the frame is shown.
func (f *Frame) Visible() bool { return f.visible }

// SetVisible sets frame visibility.
func (f *Frame) SetVisible(v bool) { f.visible = v }

// Bold returns whether the frame is drawn bold.
func (f *Frame) Bold() bool { return f.bold }

// SetBold sets the bold style.
func (f *Frame) SetBold(v bool) { f.bold = v }

// IfxLevel returns the interface level: how many ancestor boundaries up
// this frame is exposed for linking. 0 means visible only inside the
// direct parent.
func (f *Frame) IfxLevel() int { return f.ifxLevel }

// MaxIfxLevel returns the largest legal interface level, the ancestor count
// between the part and the tree root.
func (f *Frame) MaxIfxLevel() int {
	return len(f.owner.PartsPath(true, false))
}

// MinIfxLevel returns the smallest interface level that keeps every
// currently elevated outgoing link legal.
func (f *Frame) MinIfxLevel() int {
	minLevel := 0
	for _, l := range f.OutgoingLinks() {
		if !l.IsElevated() {
			continue
		}
		needSrc, _ := MinIfxLevels(TipAtLevel(f, 0), TipOf(l.target))
		if needSrc > minLevel {
			minLevel = needSrc
		}
	}
	return minLevel
}

// OutgoingLinks returns the outgoing links in creation order.
func (f *Frame) OutgoingLinks() []*Link {
	links := make([]*Link, 0, len(f.outgoing))
	for _, l := range f.outgoing {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].id < links[j].id })
	return links
}

// IncomingLinks returns a copy of the incoming link list.
func (f *Frame) IncomingLinks() []*Link {
	return append([]*Link(nil), f.incoming...)
}

// OutgoingLinkByID returns the outgoing link with the given id.
func (f *Frame) OutgoingLinkByID(id ident.SessionID) (*Link, error) {
	if l, ok := f.outgoing[id]; ok {
		return l, nil
	}
	return nil, &NotFoundError{What: "outgoing link", ID: id}
}

// OutgoingLinkByName returns the outgoing link with the given name.
func (f *Frame) OutgoingLinkByName(name string) (*Link, error) {
	for _, l := range f.outgoing {
		if l.name == name {
			return l, nil
		}
	}
	return nil, &NotFoundError{What: "outgoing link", Name: name}
}

func (f *Frame) isLinkNameTaken(name string) bool {
	for _, l := range f.outgoing {
		if l.name == name {
			return true
		}
	}
	return false
}

func (f *Frame) isLinkTempNameTaken(name string) bool {
	for _, l := range f.outgoing {
		if l.tempName != "" && l.tempName == name {
			return true
		}
	}
	return false
}

// UniqueLinkName derives a link name from the target frame's name: the name
// is sanitized to identifier characters, prefixed when it starts with an
// underscore (editor autocomplete hides private-looking names), and
// disambiguated with a numeric suffix starting at 2.
func (f *Frame) UniqueLinkName(target *Frame) string {
	base := sanitizeName(target.name)
	name := base
	if len(base) > 0 && base[0] == '_' {
		name = "p" + base
	}
	suffix := 1
	for f.isLinkNameTaken(name) || f.isLinkTempNameTaken(name) {
		suffix++
		name = base + strconv.Itoa(suffix)
	}
	return name
}

// sanitizeName maps a part name to a valid identifier: invalid characters
// become underscores and a leading digit gets an underscore prefix.
func sanitizeName(name string) string {
	if name == "" {
		return "link"
	}
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
			out = append(out, c)
		case c >= '0' && c <= '9':
			if i == 0 {
				out = append(out, '_')
			}
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// CreateLink creates a new link from this frame to the target frame. The
// name defaults to a unique name derived from the target's name. The
// source part's capabilities must allow one more outgoing link, the target
// must not already be linked from here, and the link must be legal at the
// endpoints' current interface levels.
func (f *Frame) CreateLink(target *Frame, name string, waypoints []geom.Position) (*Link, error) {
	if !f.owner.CanAddOutgoingLink() {
		return nil, &PolicyError{
			Op:     "create link",
			Reason: fmt.Sprintf("part %q (%s) cannot source another link", f.name, f.owner.kind),
		}
	}
	for _, l := range f.outgoing {
		if l.target == target {
			return nil, &DuplicateLinkError{Source: f.name, Target: target.name}
		}
	}
	if name != "" && (f.isLinkNameTaken(name) || f.isLinkTempNameTaken(name)) {
		return nil, &LinkNameConflictError{Name: name}
	}
	if err := CheckLinkable(TipOf(f), TipOf(target)); err != nil {
		return nil, err
	}
	if name == "" {
		name = f.UniqueLinkName(target)
	}

	l := newLink(f.owner.env, f, target, name)
	f.outgoing[l.id] = l
	f.Signals.OutgoingLinkAdded.Emit(l)
	f.PropagateLinkChainChange(map[ident.SessionID]bool{})

	for _, wp := range waypoints {
		l.AddWaypoint(wp, -1)
	}
	glog.V(2).Infof("created link %q from %q to %q", name, f.name, target.name)
	return l, nil
}

// RemoveOutgoingLink removes one outgoing link, detaching it from both
// endpoints. Returns nil if the link does not belong to this frame, or if
// restorable is false.
func (f *Frame) RemoveOutgoingLink(l *Link, restorable bool) *RestoreLinkInfo {
	if f.outgoing[l.id] != l {
		return nil
	}
	gone := LinkGone{ID: l.id, Name: l.name}
	info := l.removeBySource(restorable)
	delete(f.outgoing, l.id)
	f.owner.onOutgoingLinkRemoved(l)
	f.Signals.OutgoingLinkRemoved.Emit(gone)
	f.PropagateLinkChainChange(map[ident.SessionID]bool{})
	return info
}

// RemoveOutgoingLinks removes outgoing links. With links nil, all outgoing
// links are removed; otherwise only the given ones. Returns the ordered
// restoration records when restorable.
func (f *Frame) RemoveOutgoingLinks(restorable bool, links []*Link) LinksRestore {
	if links == nil {
		links = f.OutgoingLinks()
	}
	var restores LinksRestore
	for _, l := range links {
		if l.source != f {
			continue
		}
		info := f.RemoveOutgoingLink(l, restorable)
		if restorable {
			restores = append(restores, LinkRestore{Link: l, Info: info})
		}
	}
	return restores
}

// RemoveIncomingLinks removes incoming links via their source frames. With
// links nil, all incoming links are removed.
func (f *Frame) RemoveIncomingLinks(restorable bool, links []*Link) LinksRestore {
	if links == nil {
		links = f.IncomingLinks()
	}
	var restores LinksRestore
	for _, l := range links {
		if l.target != f {
			continue
		}
		info := l.source.RemoveOutgoingLink(l, restorable)
		if restorable {
			restores = append(restores, LinkRestore{Link: l, Info: info})
		}
	}
	return restores
}

// RestoreOutgoingLink reattaches a removed link using its token. Legality
// is re-validated; an error means the surrounding restore is impure and the
// link is now illegal.
func (f *Frame) RestoreOutgoingLink(l *Link, info *RestoreLinkInfo) error {
	return f.restoreOutgoing(l, info, nil)
}

func (f *Frame) restoreOutgoing(l *Link, info *RestoreLinkInfo, waypointOffset *geom.Vector) error {
	assertThat(info.Source == f, "link restore token belongs to another frame")
	if err := CheckLinkable(TipOf(info.Source), TipOf(info.Target)); err != nil {
		return err
	}
	if waypointOffset != nil {
		// impure restore: a fresh link takes over, with shifted waypoints
		fresh := l.cloneUnattached(f.owner.env)
		fresh.waypoints = make([]geom.Position, len(info.Waypoints))
		for i, wp := range info.Waypoints {
			fresh.waypoints[i] = wp.Translate(*waypointOffset)
		}
		l = fresh
	} else {
		l.name = info.Name
		l.bold, l.visible, l.declutter = info.Bold, info.Visible, info.Declutter
		l.waypoints = append([]geom.Position(nil), info.Waypoints...)
	}
	f.outgoing[l.id] = l
	if err := l.restoreBySource(info); err != nil {
		delete(f.outgoing, l.id)
		return err
	}
	f.Signals.OutgoingLinkAdded.Emit(l)
	f.PropagateLinkChainChange(map[ident.SessionID]bool{})
	return nil
}

// RestoreOutgoingLinks restores previously removed outgoing links. When a
// waypoint offset or a moved-parts set is given the restoration is impure:
// links between moved parts are re-created with waypoints shifted by the
// offset, links reaching outside the moved set are re-created without
// waypoints, and links that are now illegal are dropped and returned.
func (f *Frame) RestoreOutgoingLinks(infos LinksRestore, waypointOffset *geom.Vector, movedParts []*Part) LinksRestore {
	dropWaypoints := map[*Link]bool{}
	if len(movedParts) > 0 {
		for _, lr := range infos {
			_, remote := ifxParts(lr.Info.Source, lr.Info.Target)
			if !containsPart(movedParts, remote) {
				dropWaypoints[lr.Link] = true
			}
		}
	}
	return f.restoreLinkSet(infos, waypointOffset, dropWaypoints)
}

// RestoreIncomingLinks restores previously removed incoming links; see
// RestoreOutgoingLinks for the impure-restore rules.
func (f *Frame) RestoreIncomingLinks(infos LinksRestore, waypointOffset *geom.Vector, movedParts []*Part) LinksRestore {
	dropWaypoints := map[*Link]bool{}
	if len(movedParts) > 0 {
		for _, lr := range infos {
			remote, _ := ifxParts(lr.Info.Source, lr.Info.Target)
			if !containsPart(movedParts, remote) {
				dropWaypoints[lr.Link] = true
			}
		}
	}
	return f.restoreLinkSet(infos, waypointOffset, dropWaypoints)
}

func (f *Frame) restoreLinkSet(infos LinksRestore, waypointOffset *geom.Vector,
	dropWaypoints map[*Link]bool) LinksRestore {

	var dropped LinksRestore
	for _, lr := range infos {
		link, info := lr.Link, lr.Info
		if dropWaypoints[link] {
			link = link.cloneUnattached(f.owner.env)
			bare := *info
			bare.Waypoints = nil
			info = &bare
		}
		if err := info.Source.restoreOutgoing(link, info, waypointOffset); err != nil {
			dropped = append(dropped, lr)
			glog.Warningf("dropping link %q: %v", lr.Link.name, err)
		}
	}
	return dropped
}

// ifxParts returns, for each endpoint, the part whose port carries the link
// on the boundary it crosses: the elevated ancestor actor, or the endpoint
// part itself when it sits directly in the link's common ancestor.
func ifxParts(source, target *Frame) (*Part, *Part) {
	srcActor, tgtActor := elevatedActors(source, target)
	srcPart, tgtPart := source.owner, target.owner
	if srcActor != nil {
		srcPart = srcActor
	}
	if tgtActor != nil {
		tgtPart = tgtActor
	}
	return srcPart, tgtPart
}

func containsPart(set []*Part, p *Part) bool {
	for _, q := range set {
		if q == p {
			return true
		}
	}
	return false
}

// replaceOutgoingLinkByInverted swaps an outgoing link for one in the
// opposite direction with the same name and display flags.
func (f *Frame) replaceOutgoingLinkByInverted(l *Link, restorable bool) (*RestoreLinkInfo, error) {
	if f.outgoing[l.id] != l {
		return nil, &NotFoundError{What: "outgoing link", ID: l.id}
	}
	if len(l.waypoints) > 0 {
		return nil, &PolicyError{Op: "invert link", Reason: "links with waypoints cannot be inverted"}
	}
	target := l.target
	name := l.name
	bold, visible, declutter := l.bold, l.visible, l.declutter

	info := f.RemoveOutgoingLink(l, restorable)
	inverted, err := target.CreateLink(f, name, nil)
	if err != nil {
		return info, err
	}
	inverted.bold, inverted.visible, inverted.declutter = bold, visible, declutter
	glog.Warningf("replaced link %q (%s -> %s) by inverted link %d",
		name, f.name, target.name, inverted.id)
	return info, nil
}

// InvalidLinks returns the outgoing and incoming links that would be
// illegal if this frame's interface level were the given one.
func (f *Frame) InvalidLinks(level int) LinkSet {
	var invalid LinkSet
	selfTip := TipAtLevel(f, level)
	for _, l := range f.OutgoingLinks() {
		if CheckLinkable(selfTip, TipOf(l.target)) != nil {
			invalid.Outgoing = append(invalid.Outgoing, l)
		}
	}
	for _, l := range f.incoming {
		if CheckLinkable(TipOf(l.source), selfTip) != nil {
			invalid.Incoming = append(invalid.Incoming, l)
		}
	}
	return invalid
}

// SetIfxLevel changes the interface level, clamped to [0, MaxIfxLevel].
//
// Increasing the level asks every ancestor from old+1 to new to add a port
// for this frame. Decreasing recomputes which links would become illegal:
// if any and breakBad is false the level is left unchanged and a
// ValidationError carrying the minimum legal level is returned; with
// breakBad true the offending links are removed (captured in the token
// when restorable) and the ports from new+1 to old are removed.
//
// Returns the restoration token (restorable only), the links that were
// broken, and an error. Setting the current level is a no-op.
func (f *Frame) SetIfxLevel(newLevel int, breakBad, restorable bool) (*RestoreIfxLevelInfo, []*Link, error) {
	maxLevel := f.MaxIfxLevel()
	if newLevel > maxLevel {
		glog.Warningf("part %q interface level clamped to max=%d (requested %d)", f.name, maxLevel, newLevel)
		newLevel = maxLevel
	}
	if newLevel < 0 {
		newLevel = 0
	}
	if f.ifxLevel == newLevel {
		return nil, nil, nil
	}

	oldLevel := f.ifxLevel
	var result *RestoreIfxLevelInfo
	if restorable {
		result = &RestoreIfxLevelInfo{FromLevel: oldLevel, ToLevel: newLevel}
	}
	var broken []*Link

	if newLevel < oldLevel {
		invalid := f.InvalidLinks(newLevel)
		if !invalid.Empty() {
			if !breakBad {
				return nil, nil, &ValidationError{
					Reason: fmt.Sprintf("interface level of %q must be at least %d, %d links would become invalid",
						f.name, f.MinIfxLevel(), len(invalid.Outgoing)+len(invalid.Incoming)),
					MinLevel: f.MinIfxLevel(),
				}
			}
			broken = append(broken, invalid.Outgoing...)
			broken = append(broken, invalid.Incoming...)
			restoreOut := f.RemoveOutgoingLinks(restorable, invalid.Outgoing)
			restoreIn := f.RemoveIncomingLinks(restorable, invalid.Incoming)
			if restorable {
				result.BrokenOut = restoreOut
				result.BrokenIn = restoreIn
			}
		}
		if restorable {
			result.Ports = f.owner.parent.removeIfxPorts(f, newLevel+1, oldLevel, true)
		} else {
			f.owner.parent.removeIfxPorts(f, newLevel+1, oldLevel, false)
		}
	} else {
		f.owner.parent.addIfxPorts(f, oldLevel+1, newLevel)
	}

	f.ifxLevel = newLevel
	f.Signals.IfxLevelChanged.Emit(newLevel)
	return result, broken, nil
}

// setIfxBoundary lowers the level so the given ancestor becomes this
// frame's boundary actor, breaking links that reach beyond it.
func (f *Frame) setIfxBoundary(actor *Part, restorable bool) *RestoreIfxLevelInfo {
	level := 0
	found := false
	for _, parent := range f.owner.Ancestors() {
		if parent == actor {
			found = true
			break
		}
		level++
	}
	assertThat(found, "part %q has no ancestor %q", f.name, actor.Name())
	info, _, err := f.SetIfxLevel(level, true, restorable)
	assertThat(err == nil, "boundary lowering failed: %v", err)
	return info
}

// RestoreIfxLevel reverts the level change recorded in the token. For a
// recorded decrease the removed ports are put back at their original bin
// and index and, when withLinks, the broken links are restored too; pass
// withLinks false when links are restored separately, as batch part
// restoration does.
func (f *Frame) RestoreIfxLevel(info *RestoreIfxLevelInfo, withLinks bool) {
	// the restoration may be in support of a reparent, where the original
	// level can exceed what the new location allows
	maxLevel := f.MaxIfxLevel()
	level := info.FromLevel
	if level > maxLevel {
		level = maxLevel
	}
	f.ifxLevel = level

	parent := f.owner.parent
	assertThat(parent != nil, "cannot restore level of a detached part")

	if info.LevelDecreased() {
		parent.restoreIfxPorts(f, info.Ports, info.ToLevel+1, level)
		if withLinks {
			if len(info.BrokenOut) > 0 {
				f.RestoreOutgoingLinks(info.BrokenOut, nil, nil)
			}
			if len(info.BrokenIn) > 0 {
				f.RestoreIncomingLinks(info.BrokenIn, nil, nil)
			}
		}
	} else {
		// level was increased, so restoring removes the ports added above
		// the original level
		parent.removeIfxPorts(f, info.FromLevel+1, info.ToLevel, false)
	}
	f.Signals.IfxLevelChanged.Emit(f.ifxLevel)
}

// PropagateLinkChainChange emits LinkChainChanged on this frame, then
// recurses into the source frames of all incoming links, so every part
// whose link chains traverse this frame hears about the change. The
// visited set guards against link cycles.
func (f *Frame) PropagateLinkChainChange(visited map[ident.SessionID]bool) {
	event.EmitVoid(&f.Signals.LinkChainChanged)
	if visited[f.owner.id] {
		return
	}
	visited[f.owner.id] = true
	for _, l := range f.incoming {
		l.source.PropagateLinkChainChange(visited)
	}
}

func (f *Frame) attachIncomingLink(l *Link) {
	for _, in := range f.incoming {
		assertThat(in != l, "link %d attached twice", l.id)
	}
	f.incoming = append(f.incoming, l)
	f.Signals.IncomingLinkAdded.Emit(l)
}

func (f *Frame) detachIncomingLink(l *Link) {
	for i, in := range f.incoming {
		if in == l {
			f.incoming = append(f.incoming[:i], f.incoming[i+1:]...)
			f.Signals.IncomingLinkRemoved.Emit(LinkGone{ID: l.id, Name: l.name})
			return
		}
	}
}

func (f *Frame) String() string {
	return fmt.Sprintf("frame of %q (id %d)", f.name, f.owner.id)
}
