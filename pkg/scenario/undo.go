package scenario

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// Command pairs an applied edit with its exact inverse. Undo and Redo must
// be replayed in stack order only; the part layer panics on out-of-order
// replay of its restore tokens.
type Command struct {
	Label string
	Undo  func() error
	Redo  func() error
}

// UndoStack holds applied commands and the ones undone since the last edit.
// Pushing a new command clears the redo side. Safe for concurrent use.
type UndoStack struct {
	mu     sync.Mutex
	done   []Command
	undone []Command
}

// Push records an applied command and discards any redoable history.
func (s *UndoStack) Push(c Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = append(s.done, c)
	s.undone = nil
	glog.V(2).Infof("undo stack: pushed %q (depth %d)", c.Label, len(s.done))
}

// Undo reverts the most recent command and returns its label.
func (s *UndoStack) Undo() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.done) == 0 {
		return "", fmt.Errorf("nothing to undo")
	}
	c := s.done[len(s.done)-1]
	s.done = s.done[:len(s.done)-1]
	if err := c.Undo(); err != nil {
		return c.Label, fmt.Errorf("undo %s: %w", c.Label, err)
	}
	s.undone = append(s.undone, c)
	return c.Label, nil
}

// Redo re-applies the most recently undone command and returns its label.
func (s *UndoStack) Redo() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.undone) == 0 {
		return "", fmt.Errorf("nothing to redo")
	}
	c := s.undone[len(s.undone)-1]
	s.undone = s.undone[:len(s.undone)-1]
	if err := c.Redo(); err != nil {
		return c.Label, fmt.Errorf("redo %s: %w", c.Label, err)
	}
	s.done = append(s.done, c)
	return c.Label, nil
}

// CanUndo reports whether there is anything to undo.
func (s *UndoStack) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.done) > 0
}

// CanRedo reports whether there is anything to redo.
func (s *UndoStack) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undone) > 0
}

// Clear drops all history, for example after a load.
func (s *UndoStack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done, s.undone = nil, nil
}
