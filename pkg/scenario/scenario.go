// Package scenario wraps a root actor with document-level services: identity,
// file persistence, tree search with cooperative cancellation, and summary
// statistics over the part tree.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/ident"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/parts"
)

// Scenario owns a root actor and the shared state that document-level
// operations need. The zero value is not usable; construct with New or Load.
type Scenario struct {
	env     *parts.Env
	root    *parts.Part
	id      string
	savedAt time.Time
}

// New creates an empty scenario with a fresh root actor of the given name.
func New(name string) *Scenario {
	env := parts.NewEnv()
	return &Scenario{
		env:  env,
		root: parts.NewRootActor(env, name),
	}
}

// Root returns the scenario's root actor.
func (s *Scenario) Root() *parts.Part { return s.root }

// Env returns the environment shared by every part in the scenario.
func (s *Scenario) Env() *parts.Env { return s.env }

// Name returns the root actor's name, which doubles as the document name.
func (s *Scenario) Name() string { return s.root.Name() }

// ID returns the document identity, or the empty string before the first save.
func (s *Scenario) ID() string { return s.id }

// SavedAt returns the time of the last save, zero before the first one.
func (s *Scenario) SavedAt() time.Time { return s.savedAt }

// PartByID finds a part anywhere in the tree by its session id.
func (s *Scenario) PartByID(id ident.SessionID) (*parts.Part, error) {
	if s.root.ID() == id {
		return s.root, nil
	}
	for _, p := range s.root.DescendantParts() {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, &parts.NotFoundError{What: "part", ID: id}
}

// PartByPath resolves a name path such as "/sim/queue" from the root. The
// empty path and "/" name the root itself.
func (s *Scenario) PartByPath(path string) (*parts.Part, error) {
	p := s.root
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		child, err := p.ChildByName(seg)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", path, err)
		}
		p = child
	}
	return p, nil
}

// SearchState carries a cancellation flag shared between a running search
// and the caller. Safe for concurrent use.
type SearchState struct {
	cancelled atomic.Bool
}

// Cancel asks a search using this state to stop at its next checkpoint.
func (s *SearchState) Cancel() { s.cancelled.Store(true) }

// Cancelled reports whether Cancel has been called.
func (s *SearchState) Cancelled() bool { return s.cancelled.Load() }

// Match is a single search hit: the part and the field the pattern matched.
type Match struct {
	Part  *parts.Part
	Field string
}

// Search matches the pattern, case-insensitively, against part names and
// frame comments across the whole tree. The cancellation flag is checked
// between top-level children, so a long search can be abandoned; state may
// be nil when cancellation is not needed. Results found before a
// cancellation are returned.
func (s *Scenario) Search(pattern string, state *SearchState) ([]Match, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("search pattern: %w", err)
	}

	var found []Match
	for _, child := range s.root.Children() {
		if state != nil && state.Cancelled() {
			glog.V(1).Infof("search for %q cancelled after %d matches", pattern, len(found))
			return found, nil
		}
		found = searchSubtree(child, re, found)
	}
	return found, nil
}

func searchSubtree(p *parts.Part, re *regexp.Regexp, found []Match) []Match {
	if re.MatchString(p.Name()) {
		found = append(found, Match{Part: p, Field: "name"})
	} else if re.MatchString(p.Frame().Comment()) {
		found = append(found, Match{Part: p, Field: "comment"})
	}
	for _, child := range p.Children() {
		found = searchSubtree(child, re, found)
	}
	return found
}

// FixInvalidLinking audits node link fan-out over the whole tree and inverts
// the links that can be repaired. See parts.NodeLinkingCheck.
func (s *Scenario) FixInvalidLinking() parts.NodeLinkingCheck {
	return s.root.FixInvalidLinking()
}

// Stats summarizes a scenario's contents.
type Stats struct {
	Parts  int                `json:"parts"`
	Links  int                `json:"links"`
	ByKind map[parts.Kind]int `json:"by_kind"`
}

// Stats counts parts and links across the tree, including the root.
func (s *Scenario) Stats() Stats {
	st := Stats{ByKind: map[parts.Kind]int{}}
	all := append([]*parts.Part{s.root}, s.root.DescendantParts()...)
	for _, p := range all {
		st.Parts++
		st.ByKind[p.Kind()]++
		st.Links += len(p.Frame().OutgoingLinks())
	}
	return st
}

// Summary renders the stats as a single line, kinds in sorted order.
func (st Stats) Summary() string {
	kinds := maps.Keys(st.ByKind)
	slices.Sort(kinds)
	var b strings.Builder
	fmt.Fprintf(&b, "%d parts, %d links", st.Parts, st.Links)
	for _, k := range kinds {
		fmt.Fprintf(&b, ", %d %s", st.ByKind[k], k)
	}
	return b.String()
}

// envelope is the on-disk document wrapper around the part tree.
type envelope struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	SavedAt time.Time  `json:"saved_at"`
	Root    *parts.Def `json:"root"`
}

// Save writes the scenario to path as JSON. The document id is minted on the
// first save and kept stable afterwards.
func (s *Scenario) Save(path string) error {
	if s.id == "" {
		s.id = ulid.Make().String()
	}
	s.savedAt = time.Now().UTC()

	doc := envelope{
		ID:      s.id,
		Name:    s.root.Name(),
		SavedAt: s.savedAt,
		Root:    s.root.SaveDef(parts.ContextSave),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write scenario: %w", err)
	}
	glog.V(1).Infof("saved scenario %q (%s) to %s", s.root.Name(), s.id, path)
	return nil
}

// Load reads a scenario document from path and rebuilds its part tree.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var doc envelope
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("decode scenario: no root in %s", path)
	}

	env := parts.NewEnv()
	root, err := parts.BuildFromDef(env, doc.Root)
	if err != nil {
		return nil, fmt.Errorf("build scenario: %w", err)
	}
	glog.V(1).Infof("loaded scenario %q (%s) from %s", root.Name(), doc.ID, path)
	return &Scenario{
		env:     env,
		root:    root,
		id:      doc.ID,
		savedAt: doc.SavedAt,
	}, nil
}
