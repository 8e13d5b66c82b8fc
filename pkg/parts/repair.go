package parts

import (
	"sort"
	"strings"

	"github.com/golang/glog"
)

// Node linking repair. Scenarios imported from the prototype tooling may
// contain nodes with more than one outgoing link, which breaks node chain
// resolution. When the extra links point at dangling nodes (nodes with no
// outgoing link of their own) the import direction was simply recorded
// backwards and the link can be inverted.

// NodeLinkingCheck is the result of a node linking audit.
type NodeLinkingCheck struct {
	// Fixable links can be inverted to bring their source node down to one
	// outgoing link.
	Fixable []*Link
	// Alternates could have been inverted instead of a fixable link; they
	// indicate an ambiguous fix worth reviewing.
	Alternates []*Link
	// Unfixable nodes have too many outgoing links and no invertible
	// candidate among them.
	Unfixable []*Part
}

// Clean reports whether the audit found nothing to fix.
func (c *NodeLinkingCheck) Clean() bool {
	return len(c.Fixable) == 0 && len(c.Alternates) == 0 && len(c.Unfixable) == 0
}

// CheckNodeLinking audits every node in this actor and, recursively, in all
// child actors for violations of the one-outgoing-link rule.
func (p *Part) CheckNodeLinking() NodeLinkingCheck {
	var check NodeLinkingCheck
	for _, child := range p.actorBody().children {
		switch child.kind {
		case KindNode:
			out := child.frame.OutgoingLinks()
			if len(out) <= 1 {
				continue
			}
			fix, alt := invertibleLinks(out)
			if len(fix) > 0 || len(alt) > 0 {
				check.Fixable = append(check.Fixable, fix...)
				check.Alternates = append(check.Alternates, alt...)
			} else {
				check.Unfixable = append(check.Unfixable, child)
			}
		case KindActor:
			sub := child.CheckNodeLinking()
			check.Fixable = append(check.Fixable, sub.Fixable...)
			check.Alternates = append(check.Alternates, sub.Alternates...)
			check.Unfixable = append(check.Unfixable, sub.Unfixable...)
		}
	}
	return check
}

// invertibleLinks splits a node's surplus outgoing links into those to
// invert and the leftover alternates. A link is an inversion candidate when
// its target is a node without outgoing links; at most n-1 of n links are
// inverted so one outgoing link remains. Candidates are taken in link name
// order so repeated runs fix the same links.
func invertibleLinks(out []*Link) ([]*Link, []*Link) {
	maxFixes := len(out) - 1
	assertThat(maxFixes >= 1, "invertibleLinks called for a conforming node")

	sorted := append([]*Link(nil), out...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })

	var fix, alt []*Link
	for _, l := range sorted {
		target := l.target
		if target.owner.kind == KindNode && len(target.outgoing) == 0 {
			if len(fix) < maxFixes {
				fix = append(fix, l)
			} else {
				alt = append(alt, l)
			}
		}
	}
	return fix, alt
}

// FixInvalidLinking inverts every fixable surplus node link below this
// actor and logs what could not be fixed automatically. Returns the audit
// taken after fixing, which lists the remaining violations.
func (p *Part) FixInvalidLinking() NodeLinkingCheck {
	check := p.CheckNodeLinking()
	if check.Clean() {
		return check
	}

	if len(check.Fixable) > 0 {
		glog.Warning("some nodes have more than one outgoing link; inverting them")
		for _, l := range check.Fixable {
			if _, err := l.ReplaceByInverted(false); err != nil {
				glog.Errorf("could not invert link %q: %v", l.name, err)
			}
		}
	}

	if len(check.Alternates) > 0 {
		names := make([]string, len(check.Alternates))
		for i, l := range check.Alternates {
			names[i] = l.String()
		}
		glog.Warningf("%d link(s) could have been inverted instead of the chosen ones: %s",
			len(names), strings.Join(names, ", "))
		glog.Warning("check whether any of these links should have been inverted instead")
	}

	if len(check.Unfixable) > 0 {
		names := make([]string, len(check.Unfixable))
		for i, n := range check.Unfixable {
			names[i] = n.Path()
		}
		glog.Errorf("%d node(s) have more than one outgoing link and no obvious fix: %s",
			len(names), strings.Join(names, ", "))
		glog.Error("invert outgoing links of these nodes so each has exactly one")
	}

	after := p.CheckNodeLinking()
	glog.Infof("node linking repair done, %d violation(s) remain", len(after.Unfixable))
	return after
}
