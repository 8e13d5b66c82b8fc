package parts

import (
	"sort"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/geom"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/ident"
)

// Kind identifies a part type. The kind name doubles as the default name for
// new parts of that kind and as the type tag in saved scenario definitions.
type Kind string

const (
	KindActor    Kind = "actor"
	KindFunction Kind = "function"
	KindNode     Kind = "node"
	KindHub      Kind = "hub"
	KindVariable Kind = "variable"
	KindTable    Kind = "table"
)

// Capabilities are the per-kind behavior flags shared by all parts of a kind.
type Capabilities struct {
	UserCreatable   bool
	CanBeLinkSource bool
	ShowFrame       bool
	ResizableFrame  bool
	DefaultSize     geom.Size
}

// Body is the per-kind payload of a part. Implementations are small structs
// holding only kind-specific state; structural state lives on Part and Frame.
type Body interface {
	body()
}

// ActorBody holds the container state of an actor part: the ordered child
// list, the derived id index, and the two port bins exposing descendant
// frames on this actor's boundary.
type ActorBody struct {
	children   []*Part
	idIndex    map[ident.SessionID]int
	portsLeft  []*Frame
	portsRight []*Frame
}

func (*ActorBody) body() {}

// FunctionBody holds a function part's script.
type FunctionBody struct {
	Script string
}

func (*FunctionBody) body() {}

// NodeBody marks a node part: a relay with at most one outgoing link.
type NodeBody struct{}

func (*NodeBody) body() {}

// HubBody marks a hub part: a fan-out relay for link chains.
type HubBody struct{}

func (*HubBody) body() {}

// VariableBody holds a variable part's value.
type VariableBody struct {
	Value any
}

func (*VariableBody) body() {}

// TableBody names the dataset table backing a table part. The row store
// itself is an external collaborator keyed by this name.
type TableBody struct {
	TableName string
}

func (*TableBody) body() {}

// KindSpec describes one registered part kind.
type KindSpec struct {
	Kind    Kind
	Caps    Capabilities
	NewBody func() Body
}

// Registry maps kind names to their specs. It is an explicit service owned by
// the scenario environment, never a package global, so independent scenarios
// do not interfere.
type Registry struct {
	specs map[Kind]KindSpec
}

// NewRegistry returns a registry pre-populated with the built-in part kinds.
func NewRegistry() *Registry {
	r := &Registry{specs: map[Kind]KindSpec{}}
	r.Register(KindSpec{
		Kind: KindActor,
		Caps: Capabilities{
			UserCreatable:  true,
			ShowFrame:      true,
			ResizableFrame: true,
			DefaultSize:    geom.Size{Width: 10, Height: 6},
		},
		NewBody: func() Body { return newActorBody() },
	})
	r.Register(KindSpec{
		Kind: KindFunction,
		Caps: Capabilities{
			UserCreatable:   true,
			CanBeLinkSource: true,
			ShowFrame:       true,
			ResizableFrame:  true,
			DefaultSize:     geom.Size{Width: 8, Height: 5},
		},
		NewBody: func() Body { return &FunctionBody{} },
	})
	r.Register(KindSpec{
		Kind: KindNode,
		Caps: Capabilities{
			UserCreatable:   true,
			CanBeLinkSource: true,
			DefaultSize:     geom.Size{Width: 0.5, Height: 0.5},
		},
		NewBody: func() Body { return &NodeBody{} },
	})
	r.Register(KindSpec{
		Kind: KindHub,
		Caps: Capabilities{
			UserCreatable:   true,
			CanBeLinkSource: true,
			DefaultSize:     geom.Size{Width: 1.5, Height: 1.5},
		},
		NewBody: func() Body { return &HubBody{} },
	})
	r.Register(KindSpec{
		Kind: KindVariable,
		Caps: Capabilities{
			UserCreatable:  true,
			ShowFrame:      true,
			ResizableFrame: true,
			DefaultSize:    geom.Size{Width: 6, Height: 4},
		},
		NewBody: func() Body { return &VariableBody{} },
	})
	r.Register(KindSpec{
		Kind: KindTable,
		Caps: Capabilities{
			UserCreatable:  true,
			ShowFrame:      true,
			ResizableFrame: true,
			DefaultSize:    geom.Size{Width: 10, Height: 6},
		},
		NewBody: func() Body { return &TableBody{} },
	})
	return r
}

// Register adds a kind spec, replacing any existing spec for the same kind.
func (r *Registry) Register(spec KindSpec) {
	r.specs[spec.Kind] = spec
}

// Lookup returns the spec for a kind name, and whether it is registered.
func (r *Registry) Lookup(kind Kind) (KindSpec, bool) {
	spec, ok := r.specs[kind]
	return spec, ok
}

// Kinds returns the registered kind names, sorted. When creatableOnly is
// true, only user-creatable kinds are listed.
func (r *Registry) Kinds(creatableOnly bool) []Kind {
	var kinds []Kind
	for k, spec := range r.specs {
		if creatableOnly && !spec.Caps.UserCreatable {
			continue
		}
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func newActorBody() *ActorBody {
	return &ActorBody{idIndex: map[ident.SessionID]int{}}
}

// Env bundles the process-scoped services a scenario tree depends on. It is
// passed to the root constructor and inherited by every part created below.
type Env struct {
	IDs      *ident.Generator
	Registry *Registry
}

// NewEnv creates an environment with a fresh id generator and the built-in
// kind registry.
func NewEnv() *Env {
	return &Env{IDs: ident.NewGenerator(), Registry: NewRegistry()}
}
