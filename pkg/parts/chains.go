package parts

import (
	"strings"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/ident"
)

// Link chains. A script that follows a link into a hub part can keep going
// along any of the hub's outgoing links, so a part's reachable targets are
// chains of links, not just its direct links. Chains are unique: traversal
// never re-enters a part already on the current chain.

// LinkChains returns every unique link chain reachable from this part. A
// chain of length one is a direct link; for a direct link into a hub the
// single-link chain is listed alongside the longer chains through the hub.
func (p *Part) LinkChains() [][]*Link {
	return p.linkChainsFrom(nil)
}

func (p *Part) linkChainsFrom(history []ident.SessionID) [][]*Link {
	if p.kind == KindHub {
		return p.hubLinkChains(history)
	}
	// ordinary parts only start a traversal, they never extend one
	if len(history) > 0 {
		return nil
	}
	history = append(history, p.id)
	var chains [][]*Link
	for _, l := range p.frame.OutgoingLinks() {
		linkChains := l.LinkChains(history)
		if len(linkChains) > 1 || (len(linkChains) == 1 && len(linkChains[0]) > 1) {
			chains = append(chains, []*Link{l})
		}
		chains = append(chains, linkChains...)
	}
	return chains
}

func (p *Part) hubLinkChains(history []ident.SessionID) [][]*Link {
	history = append(history[:len(history):len(history)], p.id)
	var chains [][]*Link
	for _, l := range p.frame.OutgoingLinks() {
		revisit := false
		for _, id := range history {
			if l.target.owner.id == id {
				revisit = true
				break
			}
		}
		if revisit {
			continue
		}
		chains = append(chains, l.LinkChains(history)...)
	}
	return chains
}

// ChainName formats a chain as its link names joined with dots, e.g.
// "hub.other_hub.target".
func ChainName(chain []*Link) string {
	names := make([]string, len(chain))
	for i, l := range chain {
		names[i] = l.name
	}
	return strings.Join(names, ".")
}

// FormattedLinkChains returns the dotted name and final link of every chain
// reachable from this part, the way a script-edit completion list shows
// them.
func (p *Part) FormattedLinkChains() []NamedChain {
	chains := p.LinkChains()
	out := make([]NamedChain, 0, len(chains))
	for _, chain := range chains {
		out = append(out, NamedChain{
			Name: ChainName(chain),
			Last: chain[len(chain)-1],
		})
	}
	return out
}

// NamedChain pairs a chain's dotted name with its final link, whose target
// is the part the whole chain resolves to.
type NamedChain struct {
	Name string
	Last *Link
}
