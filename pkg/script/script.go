// Package script provides script checking for function parts. It wraps
// zygomys in a sandboxed environment to compile part scripts and audits the
// link references a script makes against the links its part actually has.
package script

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/parts"
)

// CheckError represents a non-fatal problem found while compiling a script,
// such as a parse error, with source position when one can be extracted.
type CheckError struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

func (e CheckError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Audit compares the link names a script references against the names
// reachable from its part.
type Audit struct {
	// Missing names are referenced by the script but not available on the
	// part, neither as a direct link nor as a chain through hubs.
	Missing []string `json:"missing"`
	// Unused names are direct outgoing links the script never references.
	Unused []string `json:"unused"`
}

// Clean reports whether the audit found nothing to flag.
func (a Audit) Clean() bool {
	return len(a.Missing) == 0 && len(a.Unused) == 0
}

// Engine compiles part scripts. It is safe for concurrent use; each check
// runs in a fresh sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// Check compiles a script in a fresh sandbox and reports compile problems.
//
// Return semantics:
//   - On success: nil check errors + nil error
//   - On parse failure: check errors + nil error
//   - On fatal failure (timeout, panic): nil + error
func (e *Engine) Check(source string) ([]CheckError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan checkResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- checkResult{err: fmt.Errorf("panic during check: %v", r)}
			}
		}()
		ch <- checkResult{errors: compile(source)}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

// CheckPart compiles a function part's script and audits its link
// references against the part's links and link chains.
func (e *Engine) CheckPart(p *parts.Part) ([]CheckError, Audit, error) {
	body, ok := p.Body().(*parts.FunctionBody)
	if !ok {
		return nil, Audit{}, fmt.Errorf("part %q (%s) has no script", p.Name(), p.Kind())
	}
	errs, err := e.Check(body.Script)
	if err != nil {
		return nil, Audit{}, err
	}
	return errs, AuditLinkNames(body.Script, reachableNames(p)), nil
}

// compile loads the source into a fresh sandbox without running it. An
// empty script is valid.
func compile(source string) []CheckError {
	if strings.TrimSpace(source) == "" {
		return nil
	}
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	if err := env.LoadString(source); err != nil {
		return parseZygoError(err)
	}
	return nil
}

// linkRefPattern matches scripted link navigation such as link.foo or
// link.hub.target.
var linkRefPattern = regexp.MustCompile(`\blink\.([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)`)

// AuditLinkNames extracts every link.<name> reference from the source and
// compares it against the available names.
func AuditLinkNames(source string, available []string) Audit {
	availSet := map[string]bool{}
	for _, n := range available {
		availSet[n] = true
	}

	referenced := map[string]bool{}
	for _, m := range linkRefPattern.FindAllStringSubmatch(source, -1) {
		referenced[m[1]] = true
	}

	var audit Audit
	for name := range referenced {
		if !availSet[name] {
			audit.Missing = append(audit.Missing, name)
		}
	}
	for _, name := range available {
		// only direct links are flagged as unused; chain names are
		// alternates of the direct link into their hub
		if strings.Contains(name, ".") {
			continue
		}
		if !referencedCovers(referenced, name) {
			audit.Unused = append(audit.Unused, name)
		}
	}
	sort.Strings(audit.Missing)
	sort.Strings(audit.Unused)
	return audit
}

// referencedCovers reports whether a direct link name is used, either on
// its own or as the first hop of a referenced chain.
func referencedCovers(referenced map[string]bool, name string) bool {
	if referenced[name] {
		return true
	}
	for ref := range referenced {
		if strings.HasPrefix(ref, name+".") {
			return true
		}
	}
	return false
}

// reachableNames lists the link names a script on this part can navigate:
// direct outgoing links plus dotted chains through hubs.
func reachableNames(p *parts.Part) []string {
	var names []string
	for _, l := range p.Frame().OutgoingLinks() {
		names = append(names, l.Name())
	}
	for _, nc := range p.FormattedLinkChains() {
		if strings.Contains(nc.Name, ".") {
			names = append(names, nc.Name)
		}
	}
	return names
}

// linePattern matches zygomys error messages that include "on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygoError converts a zygomys error into one or more CheckError
// values, extracting line numbers when the message carries them.
func parseZygoError(err error) []CheckError {
	msg := err.Error()

	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []CheckError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []CheckError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	return []CheckError{{Message: strings.TrimSpace(msg)}}
}
