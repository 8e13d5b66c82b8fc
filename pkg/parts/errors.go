package parts

import (
	"fmt"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/ident"
)

// ValidationError reports an attempted link creation, restoration or
// interface level change that would make one or more links illegal.
// MinLevel carries the smallest level at which the operation would succeed,
// so callers can surface a corrective hint.
type ValidationError struct {
	Reason   string
	MinLevel int
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// PolicyError reports an operation forbidden by a part kind's capability
// flags, such as linking from a kind that cannot be a link source or
// creating a kind that is not user-creatable.
type PolicyError struct {
	Op     string
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// NotFoundError reports a lookup with an unknown child, link or session id.
type NotFoundError struct {
	What string
	ID   ident.SessionID
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("no %s named %q", e.What, e.Name)
	}
	return fmt.Sprintf("no %s with id %d", e.What, e.ID)
}

// DuplicateLinkError reports an attempt to create a second outgoing link
// from a frame to a target it already links to.
type DuplicateLinkError struct {
	Source string
	Target string
}

func (e *DuplicateLinkError) Error() string {
	return fmt.Sprintf("link from %q to %q already exists", e.Source, e.Target)
}

// LinkNameConflictError reports a rename to a name already taken among the
// source frame's outgoing links.
type LinkNameConflictError struct {
	Name string
}

func (e *LinkNameConflictError) Error() string {
	return fmt.Sprintf("link name %q already taken", e.Name)
}

// StructuralInvariantViolation indicates a bookkeeping bug, such as restore
// tokens replayed out of order. It is raised via panic, is never expected in
// production, and is not caller-recoverable.
type StructuralInvariantViolation struct {
	Msg string
}

func (e StructuralInvariantViolation) Error() string {
	return "structural invariant violated: " + e.Msg
}

// assertThat panics with a StructuralInvariantViolation when cond is false.
func assertThat(cond bool, format string, args ...any) {
	if !cond {
		panic(StructuralInvariantViolation{Msg: fmt.Sprintf(format, args...)})
	}
}
