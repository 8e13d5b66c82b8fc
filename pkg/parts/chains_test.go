package parts

import (
	"sort"
	"testing"
)

func chainNames(chains [][]*Link) []string {
	names := make([]string, len(chains))
	for i, c := range chains {
		names[i] = ChainName(c)
	}
	sort.Strings(names)
	return names
}

func TestLinkChainsDirectOnly(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	f := mustChild(t, root, KindFunction, "f")
	g := mustChild(t, root, KindFunction, "g")
	mustLink(t, f, g, "g")

	chains := f.LinkChains()
	if len(chains) != 1 || ChainName(chains[0]) != "g" {
		t.Fatalf("chains = %v, want just the direct link", chainNames(chains))
	}
}

func TestLinkChainsThroughHub(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	f := mustChild(t, root, KindFunction, "f")
	hub := mustChild(t, root, KindHub, "hub")
	g1 := mustChild(t, root, KindFunction, "g1")
	g2 := mustChild(t, root, KindFunction, "g2")
	mustLink(t, f, hub, "hub")
	mustLink(t, hub, g1, "g1")
	mustLink(t, hub, g2, "g2")

	// the direct link into the hub is listed alongside the chains through it
	got := chainNames(f.LinkChains())
	want := []string{"hub", "hub.g1", "hub.g2"}
	if len(got) != len(want) {
		t.Fatalf("chains = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chain[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLinkChainsHubCycle(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	f := mustChild(t, root, KindFunction, "f")
	h1 := mustChild(t, root, KindHub, "h1")
	h2 := mustChild(t, root, KindHub, "h2")
	g := mustChild(t, root, KindFunction, "g")
	mustLink(t, f, h1, "h1")
	mustLink(t, h1, h2, "h2")
	mustLink(t, h2, h1, "back")
	mustLink(t, h2, g, "g")

	got := chainNames(f.LinkChains())
	want := []string{"h1", "h1.h2.g"}
	if len(got) != len(want) {
		t.Fatalf("chains = %v, want %v (cycle must not recurse)", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chain[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFormattedLinkChains(t *testing.T) {
	env := NewEnv()
	root := NewRootActor(env, "root")
	f := mustChild(t, root, KindFunction, "f")
	hub := mustChild(t, root, KindHub, "hub")
	g := mustChild(t, root, KindFunction, "g")
	mustLink(t, f, hub, "hub")
	last := mustLink(t, hub, g, "g")

	var chained *NamedChain
	for _, nc := range f.FormattedLinkChains() {
		if nc.Name == "hub.g" {
			c := nc
			chained = &c
		}
	}
	if chained == nil {
		t.Fatal("expected a hub.g chain")
	}
	if chained.Last != last {
		t.Error("chain should end with the final link into the leaf")
	}
}
