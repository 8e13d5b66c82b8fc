package parts

import "github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/geom"

// Ledger value types. Every mutating operation invoked with restorable=true
// returns one of these tokens; the token is opaque to the caller and must be
// handed back, unmodified, to the matching inverse operation, in exact
// reverse chronological order relative to other tokens (LIFO).

// RestoreLinkInfo captures everything needed to re-create one removed link:
// both endpoints, the name, the display flags and the waypoints.
type RestoreLinkInfo struct {
	Source    *Frame
	Target    *Frame
	Name      string
	Bold      bool
	Visible   bool
	Declutter bool
	Waypoints []geom.Position
}

// LinkRestore pairs a removed link with its restoration record.
type LinkRestore struct {
	Link *Link
	Info *RestoreLinkInfo
}

// LinksRestore is an ordered set of link restoration records. Order is the
// removal order; restoration iterates in the same order.
type LinksRestore []LinkRestore

// UnrestorableLinks aggregates the links dropped during an impure restore
// (one into a different container than the link topology was captured in).
type UnrestorableLinks struct {
	Outgoing LinksRestore
	Incoming LinksRestore
}

// Empty reports whether no link was dropped.
func (u *UnrestorableLinks) Empty() bool {
	return len(u.Outgoing) == 0 && len(u.Incoming) == 0
}

// PortPlacement records where a frame's port sat on one ancestor actor, so a
// level restoration puts the port back in the same bin at the same index.
type PortPlacement struct {
	Actor *Part
	Index int
	Left  bool
}

// RestoreIfxLevelInfo captures one interface level change: the level span,
// the port placements removed along the ancestor chain (for decreases), and
// the links that had to be broken because they would have become illegal.
type RestoreIfxLevelInfo struct {
	FromLevel int
	ToLevel   int
	Ports     []PortPlacement
	BrokenOut LinksRestore
	BrokenIn  LinksRestore
}

// LevelIncreased reports whether the recorded change raised the level.
func (r *RestoreIfxLevelInfo) LevelIncreased() bool {
	return r.ToLevel > r.FromLevel
}

// LevelDecreased reports whether the recorded change lowered the level.
func (r *RestoreIfxLevelInfo) LevelDecreased() bool {
	return r.ToLevel < r.FromLevel
}

// RestorePortInfo records a port's bin and index before a side switch.
type RestorePortInfo struct {
	Index int
	Left  bool
}

// RestorePortIndexInfo records a port move within its bin.
type RestorePortIndexInfo struct {
	FromIndex int
	ToIndex   int
	Left      bool
}

// FrameIfxRestore pairs a frame with the restoration record for its
// interface level. Used both for actor boundary ports torn down during actor
// removal and for levels raised while maintaining links across a reparent.
type FrameIfxRestore struct {
	Frame *Frame
	Ifx   *RestoreIfxLevelInfo
}

// RestorePartInfo is the compound token for one child removal. Sub-step
// tokens nest so a single restore call fully reverses the removal.
type RestorePartInfo struct {
	Parent     *Part
	Position   geom.Position
	Outgoing   LinksRestore
	Incoming   LinksRestore
	IfxRestore *RestoreIfxLevelInfo

	// For actor parts only: the level restorations of every descendant frame
	// that was exposed on the removed actor's own boundary, in teardown order.
	ActorPorts []FrameIfxRestore
}

// RestoreReparentInfo is the token returned by a reparent, sufficient for
// unreparenting the same set of parts.
type RestoreReparentInfo struct {
	IfxLevels   []FrameIfxRestore
	PasteOffset *geom.Vector
	Positions   []geom.Position
}
