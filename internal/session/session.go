// Package session owns the always-compilable source buffer behind the REPL:
// the committed source, the pending block being typed, the indentation depth
// and the output cursor. There is exactly one mutator of a Session at any
// time; the loop is single-threaded by design.
package session

// Prelude is prepended to every materialization of the buffer. typetraits
// backs the `== type` rendering of inspection prints.
const Prelude = "import typetraits\n"

// Session bundles the buffer, indentation tracker and output differ for one
// live REPL. Multiple independent sessions may exist in tests.
type Session struct {
	Buffer *Buffer
	Indent *Tracker
	Output *Differ

	// AutoIndent controls whether nesting depth is materialized as literal
	// whitespace in the buffer and prompts, or only tracked logically.
	AutoIndent bool
}

// New creates a session backed by the source file at path.
func New(path string, autoIndent bool) *Session {
	return &Session{
		Buffer:     NewBuffer(path, Prelude),
		Indent:     NewTracker(autoIndent),
		Output:     &Differ{},
		AutoIndent: autoIndent,
	}
}
