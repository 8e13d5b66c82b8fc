package parts

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/geom"
)

// Saved scenario definitions. A Def tree captures a part subtree as plain
// data: link endpoints become reference keys (the session ids at save time)
// and are resolved back to live frames once every part of the load or paste
// exists. The same Def form serves saving to file, copy/paste and exporting
// a subtree as a new scenario.

// Context distinguishes why a definition is taken or applied. Copy drops
// links that leave the copied set; export additionally remaps links to the
// original parent onto the new root.
type Context int

const (
	ContextSave Context = iota
	ContextCopy
	ContextExport
)

// Def is the saved form of one part.
type Def struct {
	Kind   Kind     `json:"kind"`
	RefKey uint64   `json:"ref_key"`
	Frame  FrameDef `json:"frame"`

	Script string `json:"script,omitempty"`
	Value  any    `json:"value,omitempty"`
	Table  string `json:"table,omitempty"`

	Children   []*Def   `json:"children,omitempty"`
	PortsLeft  []uint64 `json:"ports_left,omitempty"`
	PortsRight []uint64 `json:"ports_right,omitempty"`
}

// FrameDef is the saved form of a part's frame.
type FrameDef struct {
	Name     string        `json:"name"`
	IfxLevel int           `json:"ifx_level,omitempty"`
	Position geom.Position `json:"position"`
	Size     geom.Size     `json:"size"`
	Comment  string        `json:"comment,omitempty"`
	Visible  bool          `json:"visible"`
	Bold     bool          `json:"bold,omitempty"`
	Links    []LinkDef     `json:"links,omitempty"`
}

// LinkDef is the saved form of one outgoing link. TargetRef names the target
// part by its reference key.
type LinkDef struct {
	Name      string          `json:"name"`
	TargetRef uint64          `json:"target_ref"`
	Bold      bool            `json:"bold,omitempty"`
	Visible   bool            `json:"visible"`
	Declutter bool            `json:"declutter,omitempty"`
	Waypoints []geom.Position `json:"waypoints,omitempty"`
}

// pendingLink is a saved link waiting for its target reference to resolve.
type pendingLink struct {
	name      string
	targetRef uint64
	bold      bool
	visible   bool
	declutter bool
	waypoints []geom.Position
}

// SaveDef captures this part and, for actors, its whole subtree as a Def.
func (p *Part) SaveDef(ctx Context) *Def {
	def := &Def{
		Kind:   p.kind,
		RefKey: uint64(p.id),
		Frame: FrameDef{
			Name:     p.frame.name,
			IfxLevel: p.frame.ifxLevel,
			Position: p.frame.pos,
			Size:     p.frame.size,
			Comment:  p.frame.comment,
			Visible:  p.frame.visible,
			Bold:     p.frame.bold,
		},
	}
	for _, l := range p.frame.OutgoingLinks() {
		def.Frame.Links = append(def.Frame.Links, LinkDef{
			Name:      l.name,
			TargetRef: uint64(l.target.owner.id),
			Bold:      l.bold,
			Visible:   l.visible,
			Declutter: l.declutter,
			Waypoints: l.Waypoints(),
		})
	}

	switch body := p.body.(type) {
	case *ActorBody:
		for _, child := range body.children {
			def.Children = append(def.Children, child.SaveDef(ctx))
		}
		for _, f := range body.portsLeft {
			def.PortsLeft = append(def.PortsLeft, uint64(f.owner.id))
		}
		for _, f := range body.portsRight {
			def.PortsRight = append(def.PortsRight, uint64(f.owner.id))
		}
	case *FunctionBody:
		def.Script = body.Script
	case *VariableBody:
		def.Value = body.Value
	case *TableBody:
		def.Table = body.TableName
	}
	return def
}

// CreateChildFromDef creates a child part of this actor from a definition,
// recursively for actor definitions. Created parts register themselves in
// refsMap under their saved reference key; links stay pending on their
// source frames until ResolveLinkPaths runs with the completed map.
//
// The paste offset shifts only this part's position; child positions are
// relative to their parent and move with it. With maxIfxLevel >= 0 the
// part's interface level is capped, and each nesting level below may reach
// one higher, so a pasted subtree never exposes frames above the paste
// target.
func (p *Part) CreateChildFromDef(def *Def, ctx Context, refsMap map[uint64]*Part,
	pasteOffset *geom.Vector, maxIfxLevel int) (*Part, error) {

	p.actorBody()
	spec, ok := p.env.Registry.Lookup(def.Kind)
	if !ok {
		return nil, &NotFoundError{What: "part kind", Name: string(def.Kind)}
	}

	pos := def.Frame.Position
	if pasteOffset != nil {
		pos = pos.Translate(*pasteOffset)
	}
	child := newPart(p.env, spec, p, def.Frame.Name, pos)
	child.frame.size = def.Frame.Size
	child.frame.comment = def.Frame.Comment
	child.frame.visible = def.Frame.Visible
	child.frame.bold = def.Frame.Bold
	p.acceptChild(child)

	level := def.Frame.IfxLevel
	if maxIfxLevel >= 0 && level > maxIfxLevel {
		level = maxIfxLevel
	}
	if level > 0 {
		_, _, err := child.frame.SetIfxLevel(level, false, false)
		assertThat(err == nil, "raising level of fresh part failed: %v", err)
	}

	for _, ld := range def.Frame.Links {
		child.frame.pending = append(child.frame.pending, pendingLink{
			name:      ld.Name,
			targetRef: ld.TargetRef,
			bold:      ld.Bold,
			visible:   ld.Visible,
			declutter: ld.Declutter,
			waypoints: append([]geom.Position(nil), ld.Waypoints...),
		})
	}

	switch body := child.body.(type) {
	case *ActorBody:
		childMax := -1
		if maxIfxLevel >= 0 {
			childMax = maxIfxLevel + 1
		}
		for _, cd := range def.Children {
			if _, err := child.CreateChildFromDef(cd, ctx, refsMap, nil, childMax); err != nil {
				return child, err
			}
		}
		child.fixPortSides(def, refsMap)
	case *FunctionBody:
		body.Script = def.Script
	case *VariableBody:
		body.Value = def.Value
	case *TableBody:
		body.TableName = def.Table
	}

	refsMap[def.RefKey] = child
	glog.V(2).Infof("created %s part %d (%q) from definition", def.Kind, child.id, child.Name())
	return child, nil
}

// fixPortSides rearranges this actor's port bins to the saved sides and
// order. Ports were created bin-balanced as children raised their levels;
// the definition records where the user actually placed them. Ports whose
// frame is not mentioned in the definition keep their balanced spot.
func (p *Part) fixPortSides(def *Def, refsMap map[uint64]*Part) {
	ab := p.actorBody()
	current := map[*Frame]bool{}
	for _, f := range ab.portsLeft {
		current[f] = true
	}
	for _, f := range ab.portsRight {
		current[f] = true
	}

	pick := func(refs []uint64) []*Frame {
		var picked []*Frame
		for _, ref := range refs {
			part, ok := refsMap[ref]
			if !ok || !current[part.frame] {
				continue
			}
			picked = append(picked, part.frame)
			delete(current, part.frame)
		}
		return picked
	}
	newLeft := pick(def.PortsLeft)
	newRight := pick(def.PortsRight)

	// unmentioned ports keep their balanced bin, appended after the saved ones
	for _, f := range ab.portsLeft {
		if current[f] {
			newLeft = append(newLeft, f)
		}
	}
	for _, f := range ab.portsRight {
		if current[f] {
			newRight = append(newRight, f)
		}
	}
	ab.portsLeft, ab.portsRight = newLeft, newRight
}

// ResolveLinkPaths turns the pending links below this part into live links,
// now that refsMap covers every part of the load or paste. With dropDangling
// true, links whose target is outside the map or that fail validation are
// logged and skipped; a load of a complete scenario passes false and fails
// instead. A position offset shifts the waypoints of links between moved
// parts; links reaching outside the moved set lose their waypoints.
func (p *Part) ResolveLinkPaths(refsMap map[uint64]*Part, dropDangling bool,
	posOffset *geom.Vector, movedParts []*Part) error {

	if err := p.frame.resolvePendingLinks(refsMap, dropDangling, posOffset, movedParts); err != nil {
		return err
	}
	if ab, ok := p.body.(*ActorBody); ok {
		for _, child := range ab.children {
			if err := child.ResolveLinkPaths(refsMap, dropDangling, posOffset, movedParts); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *Frame) resolvePendingLinks(refsMap map[uint64]*Part, dropDangling bool,
	posOffset *geom.Vector, movedParts []*Part) error {

	pending := f.pending
	f.pending = nil
	for _, pl := range pending {
		target, ok := refsMap[pl.targetRef]
		if !ok {
			if dropDangling {
				glog.Warningf("dropping link %q from %q: target ref %d not in scenario",
					pl.name, f.name, pl.targetRef)
				continue
			}
			return fmt.Errorf("link %q from %q: unresolvable target ref %d", pl.name, f.name, pl.targetRef)
		}

		// waypoints follow the link's source ifx part: shifted when that
		// part was moved, otherwise kept as recorded
		waypoints := pl.waypoints
		if posOffset != nil && len(waypoints) > 0 {
			srcIfx, _ := ifxParts(f, target.frame)
			if containsPart(movedParts, srcIfx) {
				shifted := make([]geom.Position, len(waypoints))
				for i, wp := range waypoints {
					shifted[i] = wp.Translate(*posOffset)
				}
				waypoints = shifted
			}
		}

		l, err := f.CreateLink(target.frame, pl.name, waypoints)
		if err != nil {
			if dropDangling {
				glog.Warningf("dropping link %q from %q: %v", pl.name, f.name, err)
				continue
			}
			return fmt.Errorf("link %q from %q: %w", pl.name, f.name, err)
		}
		l.bold, l.visible, l.declutter = pl.bold, pl.visible, pl.declutter
	}
	return nil
}

// CopyParts deep-copies the given parts into this actor. Links among the
// copies are re-created; links reaching outside the copied set are dropped,
// except that under ContextExport links to the copied parts' original
// parent are remapped onto this actor.
func (p *Part) CopyParts(toCopy []*Part, ctx Context, pasteOffset *geom.Vector) ([]*Part, error) {
	assertThat(ctx == ContextCopy || ctx == ContextExport, "copy context required")
	refsMap := map[uint64]*Part{}
	var created []*Part
	for _, orig := range toCopy {
		def := orig.SaveDef(ctx)
		child, err := p.CreateChildFromDef(def, ctx, refsMap, pasteOffset, 0)
		if err != nil {
			return created, err
		}
		created = append(created, child)

		if ctx == ContextExport && orig.parent != nil {
			refsMap[uint64(orig.parent.id)] = p
		}
	}
	if err := p.ResolveLinkPaths(refsMap, true, pasteOffset, created); err != nil {
		return created, err
	}
	glog.V(1).Infof("copied %d part(s) into actor %d", len(created), p.id)
	return created, nil
}

// BuildFromDef reconstructs a scenario tree from a saved root definition.
func BuildFromDef(env *Env, def *Def) (*Part, error) {
	if def.Kind != KindActor {
		return nil, &PolicyError{Op: "load scenario", Reason: "root definition is not an actor"}
	}
	root := NewRootActor(env, def.Frame.Name)
	root.frame.pos = def.Frame.Position
	root.frame.size = def.Frame.Size
	root.frame.comment = def.Frame.Comment

	refsMap := map[uint64]*Part{def.RefKey: root}
	for _, cd := range def.Children {
		if _, err := root.CreateChildFromDef(cd, ContextSave, refsMap, nil, -1); err != nil {
			return nil, err
		}
	}
	root.fixPortSides(def, refsMap)
	if err := root.ResolveLinkPaths(refsMap, false, nil, nil); err != nil {
		return nil, err
	}
	return root, nil
}
