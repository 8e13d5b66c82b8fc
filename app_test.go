package main

import (
	"errors"
	"path/filepath"
	"testing"
)

// TestE2EEditSession exercises the full pipeline the frontend drives: create
// parts and links, change an interface level, undo and redo, save and load.
// This is the same path the Wails bindings take, but without the Wails
// runtime (no startup context, so no events are emitted).
func TestE2EEditSession(t *testing.T) {
	app := NewApp()

	root := app.Tree()
	sim, err := app.CreatePart(root.ID, "actor", "sim", 0, 0)
	if err != nil {
		t.Fatalf("create actor: %v", err)
	}
	fn, err := app.CreatePart(sim.ID, "function", "step", 10, 10)
	if err != nil {
		t.Fatalf("create function: %v", err)
	}
	v, err := app.CreatePart(sim.ID, "variable", "rate", 20, 10)
	if err != nil {
		t.Fatalf("create variable: %v", err)
	}

	link, err := app.CreateLink(fn.ID, v.ID, "")
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	if link.Name != "rate" {
		t.Errorf("derived link name = %q, want rate", link.Name)
	}

	if err := app.SetScript(fn.ID, "(+ link.rate 1)"); err != nil {
		t.Fatalf("set script: %v", err)
	}
	check, err := app.CheckScript(fn.ID)
	if err != nil {
		t.Fatalf("check script: %v", err)
	}
	if len(check.Errors) != 0 || len(check.Missing) != 0 || len(check.Unused) != 0 {
		t.Fatalf("check = %+v, want clean", check)
	}

	if err := app.SetIfxLevel(fn.ID, 1); err != nil {
		t.Fatalf("set level: %v", err)
	}

	if !app.CanUndo() {
		t.Fatal("edits should be undoable")
	}
	if _, err := app.Undo(); err != nil { // level change
		t.Fatalf("undo: %v", err)
	}
	if _, err := app.Undo(); err != nil { // link
		t.Fatalf("undo: %v", err)
	}
	if _, err := app.Redo(); err != nil { // link again
		t.Fatalf("redo: %v", err)
	}

	tree := app.Tree()
	if len(tree.Children) != 1 || len(tree.Children[0].Children) != 2 {
		t.Fatalf("tree = %+v, want sim with two children", tree)
	}
	var stepLinks int
	for _, c := range tree.Children[0].Children {
		if c.Name == "step" {
			stepLinks = len(c.Links)
			if c.IfxLevel != 0 {
				t.Errorf("level after undo = %d, want 0", c.IfxLevel)
			}
		}
	}
	if stepLinks != 1 {
		t.Fatalf("step links after redo = %d, want 1", stepLinks)
	}

	path := filepath.Join(t.TempDir(), "session.ori")
	if err := app.SaveScenario(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := app.LoadScenario(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if app.CanUndo() || app.CanRedo() {
		t.Error("loading should clear the undo stack")
	}
	if got := app.Stats(); got == "" {
		t.Error("stats should not be empty")
	}
}

func TestRemovePartUndo(t *testing.T) {
	app := NewApp()
	root := app.Tree()
	fn, err := app.CreatePart(root.ID, "function", "f", 0, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := app.RemovePart(fn.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(app.Tree().Children) != 0 {
		t.Fatal("part should be gone")
	}
	if _, err := app.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if len(app.Tree().Children) != 1 {
		t.Fatal("undo should restore the part")
	}
}

func TestCreatePartRejectsBadKind(t *testing.T) {
	app := NewApp()
	if _, err := app.CreatePart(app.Tree().ID, "widget", "w", 0, 0); err == nil {
		t.Fatal("expected an error for an unknown kind")
	}
}

func TestTablePartBindings(t *testing.T) {
	app := NewApp()
	tbl, err := app.CreatePart(app.Tree().ID, "table", "fleet", 0, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := app.EnsureTable(tbl.ID, "name TEXT, speed REAL"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := app.InsertTableRow(tbl.ID, []any{"alpha", 12.5}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	rows, err := app.TableRows(tbl.ID, 0)
	if err != nil || len(rows) != 1 {
		t.Fatalf("rows = %v, %v, want one", rows, err)
	}
	col, err := app.SearchTable(tbl.ID, "alpha")
	if err != nil || col != "name" {
		t.Fatalf("search = %q, %v, want the name column", col, err)
	}

	fn, _ := app.CreatePart(app.Tree().ID, "function", "f", 1, 0)
	if err := app.EnsureTable(fn.ID, "x INTEGER"); err == nil {
		t.Fatal("expected an error for a part without a table")
	}
}

func TestTableBindingsWithoutDataset(t *testing.T) {
	app := NewApp()
	tbl, err := app.CreatePart(app.Tree().ID, "table", "fleet", 0, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	app.db = nil

	if err := app.EnsureTable(tbl.ID, "x INTEGER"); !errors.Is(err, errDatasetUnavailable) {
		t.Fatalf("ensure err = %v, want dataset unavailable", err)
	}
	if err := app.InsertTableRow(tbl.ID, []any{1}); !errors.Is(err, errDatasetUnavailable) {
		t.Fatalf("insert err = %v, want dataset unavailable", err)
	}
	if _, err := app.TableRows(tbl.ID, 0); !errors.Is(err, errDatasetUnavailable) {
		t.Fatalf("rows err = %v, want dataset unavailable", err)
	}
	if _, err := app.SearchTable(tbl.ID, "x"); !errors.Is(err, errDatasetUnavailable) {
		t.Fatalf("search err = %v, want dataset unavailable", err)
	}
}

func TestRemoveLinkUndo(t *testing.T) {
	app := NewApp()
	root := app.Tree()
	f, err := app.CreatePart(root.ID, "function", "f", 0, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	g, err := app.CreatePart(root.ID, "function", "g", 1, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	l, err := app.CreateLink(f.ID, g.ID, "g")
	if err != nil {
		t.Fatalf("link: %v", err)
	}

	if err := app.RemoveLink(f.ID, l.ID); err != nil {
		t.Fatalf("remove link: %v", err)
	}
	if _, err := app.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	for _, c := range app.Tree().Children {
		if c.Name == "f" && len(c.Links) != 1 {
			t.Fatalf("links after undo = %d, want 1", len(c.Links))
		}
	}
}
