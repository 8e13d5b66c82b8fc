package main

import (
	"context"
	"errors"
	"log"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/dataset"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/geom"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/ident"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/parts"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/scenario"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/script"
)

// changedEvent is emitted to the frontend after every structural edit,
// undo, or redo.
const changedEvent = "scenario:changed"

// errDatasetUnavailable is returned by the table bindings when the embedded
// database failed to open at construction.
var errDatasetUnavailable = errors.New("dataset unavailable")

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx     context.Context
	scn     *scenario.Scenario
	checker *script.Engine
	undo    *scenario.UndoStack
	db      *dataset.DB
}

// LinkData is the JSON-serializable link format sent to the frontend.
type LinkData struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	TargetID  uint64 `json:"targetId"`
	Bold      bool   `json:"bold"`
	Visible   bool   `json:"visible"`
	Declutter bool   `json:"declutter"`
}

// PartData is the JSON-serializable part format sent to the frontend.
// Children are populated recursively for actors.
type PartData struct {
	ID       uint64     `json:"id"`
	Name     string     `json:"name"`
	Kind     string     `json:"kind"`
	Path     string     `json:"path"`
	IfxLevel int        `json:"ifxLevel"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	Links    []LinkData `json:"links"`
	Children []PartData `json:"children"`
}

// ScriptCheckData is the result of checking one function part's script.
type ScriptCheckData struct {
	Errors  []script.CheckError `json:"errors"`
	Missing []string            `json:"missing"`
	Unused  []string            `json:"unused"`
}

// NewApp creates a new App with an empty scenario and an in-memory dataset.
func NewApp() *App {
	db, err := dataset.Open("")
	if err != nil {
		log.Printf("dataset unavailable: %v", err)
	}
	return &App{
		scn:     scenario.New("scenario"),
		checker: script.NewEngine(),
		undo:    &scenario.UndoStack{},
		db:      db,
	}
}

// startup is called by Wails on app startup. The context is saved so the
// bindings can emit runtime events.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

func (a *App) emitChanged() {
	if a.ctx != nil {
		runtime.EventsEmit(a.ctx, changedEvent)
	}
}

func partData(p *parts.Part) PartData {
	d := PartData{
		ID:       uint64(p.ID()),
		Name:     p.Name(),
		Kind:     string(p.Kind()),
		Path:     p.Path(),
		IfxLevel: p.Frame().IfxLevel(),
		X:        p.Frame().Position().X,
		Y:        p.Frame().Position().Y,
		Links:    []LinkData{},
		Children: []PartData{},
	}
	for _, l := range p.Frame().OutgoingLinks() {
		d.Links = append(d.Links, LinkData{
			ID:        uint64(l.ID()),
			Name:      l.Name(),
			TargetID:  uint64(l.TargetPart().ID()),
			Bold:      l.Bold(),
			Visible:   l.Visible(),
			Declutter: l.Declutter(),
		})
	}
	for _, c := range p.Children() {
		d.Children = append(d.Children, partData(c))
	}
	return d
}

// Tree returns the whole part tree for rendering.
func (a *App) Tree() PartData {
	return partData(a.scn.Root())
}

// NewScenario replaces the current document with an empty one.
func (a *App) NewScenario(name string) PartData {
	a.scn = scenario.New(name)
	a.undo.Clear()
	a.emitChanged()
	return a.Tree()
}

// LoadScenario reads a scenario file and replaces the current document.
func (a *App) LoadScenario(path string) (PartData, error) {
	s, err := scenario.Load(path)
	if err != nil {
		log.Printf("LoadScenario error: %v", err)
		return PartData{}, err
	}
	a.scn = s
	a.undo.Clear()
	a.emitChanged()
	return a.Tree(), nil
}

// SaveScenario writes the current document to path.
func (a *App) SaveScenario(path string) error {
	if err := a.scn.Save(path); err != nil {
		log.Printf("SaveScenario error: %v", err)
		return err
	}
	return nil
}

// CreatePart adds a child part under the given actor and records the edit
// on the undo stack.
func (a *App) CreatePart(parentID uint64, kind, name string, x, y float64) (PartData, error) {
	parent, err := a.scn.PartByID(ident.SessionID(parentID))
	if err != nil {
		return PartData{}, err
	}
	child, err := parent.CreateChild(parts.Kind(kind), name, geom.Position{X: x, Y: y})
	if err != nil {
		return PartData{}, err
	}

	var info *parts.RestorePartInfo
	a.undo.Push(scenario.Command{
		Label: "create " + child.Name(),
		Undo: func() error {
			i, err := child.RemoveSelf(true)
			info = i
			return err
		},
		Redo: func() error {
			_, err := child.RestoreSelf(info)
			return err
		},
	})
	a.emitChanged()
	return partData(child), nil
}

// RemovePart removes a part restorably and records the edit on the undo stack.
func (a *App) RemovePart(id uint64) error {
	p, err := a.scn.PartByID(ident.SessionID(id))
	if err != nil {
		return err
	}
	label := "remove " + p.Name()
	info, err := p.RemoveSelf(true)
	if err != nil {
		return err
	}

	a.undo.Push(scenario.Command{
		Label: label,
		Undo: func() error {
			_, err := p.RestoreSelf(info)
			return err
		},
		Redo: func() error {
			i, err := p.RemoveSelf(true)
			info = i
			return err
		},
	})
	a.emitChanged()
	return nil
}

// CreateLink links two parts and records the edit on the undo stack. An
// empty name derives one from the target.
func (a *App) CreateLink(sourceID, targetID uint64, name string) (LinkData, error) {
	src, err := a.scn.PartByID(ident.SessionID(sourceID))
	if err != nil {
		return LinkData{}, err
	}
	tgt, err := a.scn.PartByID(ident.SessionID(targetID))
	if err != nil {
		return LinkData{}, err
	}
	if name == "" {
		name = src.Frame().UniqueLinkName(tgt.Frame())
	}
	l, err := src.Frame().CreateLink(tgt.Frame(), name, nil)
	if err != nil {
		return LinkData{}, err
	}

	var info *parts.RestoreLinkInfo
	a.undo.Push(scenario.Command{
		Label: "link " + l.Name(),
		Undo: func() error {
			info = l.RemoveSelf(true)
			return nil
		},
		Redo: func() error {
			return l.RestoreSelf(info)
		},
	})
	a.emitChanged()
	return LinkData{
		ID:       uint64(l.ID()),
		Name:     l.Name(),
		TargetID: uint64(l.TargetPart().ID()),
		Visible:  l.Visible(),
	}, nil
}

// RemoveLink removes one outgoing link and records the edit on the undo stack.
func (a *App) RemoveLink(sourceID, linkID uint64) error {
	src, err := a.scn.PartByID(ident.SessionID(sourceID))
	if err != nil {
		return err
	}
	l, err := src.Frame().OutgoingLinkByID(ident.SessionID(linkID))
	if err != nil {
		return err
	}
	info := l.RemoveSelf(true)

	a.undo.Push(scenario.Command{
		Label: "unlink " + l.Name(),
		Undo: func() error {
			return l.RestoreSelf(info)
		},
		Redo: func() error {
			info = l.RemoveSelf(true)
			return nil
		},
	})
	a.emitChanged()
	return nil
}

// SetIfxLevel changes a part's interface level, breaking links that become
// illegal, and records the edit on the undo stack.
func (a *App) SetIfxLevel(id uint64, level int) error {
	p, err := a.scn.PartByID(ident.SessionID(id))
	if err != nil {
		return err
	}
	info, _, err := p.Frame().SetIfxLevel(level, true, true)
	if err != nil {
		return err
	}
	if info == nil {
		// no-op change, nothing to record
		return nil
	}

	a.undo.Push(scenario.Command{
		Label: "interface level " + p.Name(),
		Undo: func() error {
			p.Frame().RestoreIfxLevel(info, true)
			return nil
		},
		Redo: func() error {
			i, _, err := p.Frame().SetIfxLevel(level, true, true)
			info = i
			return err
		},
	})
	a.emitChanged()
	return nil
}

// MovePart repositions a part's frame. Position changes are not ledgered.
func (a *App) MovePart(id uint64, x, y float64) error {
	p, err := a.scn.PartByID(ident.SessionID(id))
	if err != nil {
		return err
	}
	p.Frame().SetPosition(geom.Position{X: x, Y: y})
	a.emitChanged()
	return nil
}

// Undo reverts the most recent edit and returns its label.
func (a *App) Undo() (string, error) {
	label, err := a.undo.Undo()
	if err != nil {
		return "", err
	}
	a.emitChanged()
	return label, nil
}

// Redo re-applies the most recently undone edit and returns its label.
func (a *App) Redo() (string, error) {
	label, err := a.undo.Redo()
	if err != nil {
		return "", err
	}
	a.emitChanged()
	return label, nil
}

// CanUndo reports whether the undo stack has anything to revert.
func (a *App) CanUndo() bool { return a.undo.CanUndo() }

// CanRedo reports whether the undo stack has anything to re-apply.
func (a *App) CanRedo() bool { return a.undo.CanRedo() }

// CheckScript compiles a function part's script and audits its link
// references. This is the binding behind the editor's check button.
func (a *App) CheckScript(id uint64) (ScriptCheckData, error) {
	p, err := a.scn.PartByID(ident.SessionID(id))
	if err != nil {
		return ScriptCheckData{}, err
	}
	errs, audit, err := a.checker.CheckPart(p)
	if err != nil {
		log.Printf("CheckScript fatal error: %v", err)
		return ScriptCheckData{}, err
	}
	res := ScriptCheckData{
		Errors:  errs,
		Missing: audit.Missing,
		Unused:  audit.Unused,
	}
	if res.Errors == nil {
		res.Errors = []script.CheckError{}
	}
	return res, nil
}

// SetScript replaces a function part's script text.
func (a *App) SetScript(id uint64, source string) error {
	p, err := a.scn.PartByID(ident.SessionID(id))
	if err != nil {
		return err
	}
	body, ok := p.Body().(*parts.FunctionBody)
	if !ok {
		return &parts.PolicyError{Op: "set script", Reason: "part has no script"}
	}
	body.Script = source
	return nil
}

// tableName resolves the dataset table behind a table part. A part whose
// body carries no explicit table name uses its own name, and the binding is
// recorded so renames do not orphan the rows.
func (a *App) tableName(id uint64) (string, error) {
	if a.db == nil {
		return "", errDatasetUnavailable
	}
	p, err := a.scn.PartByID(ident.SessionID(id))
	if err != nil {
		return "", err
	}
	body, ok := p.Body().(*parts.TableBody)
	if !ok {
		return "", &parts.PolicyError{Op: "table access", Reason: "part has no table"}
	}
	if body.TableName == "" {
		body.TableName = p.Name()
	}
	return body.TableName, nil
}

// EnsureTable creates the backing table for a table part if it is missing.
// columns is a comma-separated list of column definitions.
func (a *App) EnsureTable(id uint64, columns string) error {
	name, err := a.tableName(id)
	if err != nil {
		return err
	}
	return a.db.CreateTable(name, columns)
}

// InsertTableRow appends one row to a table part's backing table.
func (a *App) InsertTableRow(id uint64, values []any) error {
	name, err := a.tableName(id)
	if err != nil {
		return err
	}
	return a.db.InsertRow(name, values...)
}

// TableRows fetches up to limit rows from a table part's backing table;
// limit 0 means all of them.
func (a *App) TableRows(id uint64, limit int) ([]dataset.Record, error) {
	name, err := a.tableName(id)
	if err != nil {
		return nil, err
	}
	return a.db.Rows(name, "*", "", limit)
}

// SearchTable reports the first column of a table part whose data contains
// the pattern, or "" when nothing matches.
func (a *App) SearchTable(id uint64, pattern string) (string, error) {
	name, err := a.tableName(id)
	if err != nil {
		return "", err
	}
	return a.db.TableDataMatches(name, pattern, 0, 100)
}

// Stats returns a one-line summary of the current scenario.
func (a *App) Stats() string {
	return a.scn.Stats().Summary()
}
