// Package diagnose interprets raw compiler output for the REPL. The parsing
// here is deliberately textual: the only contract with the external compiler
// is the wording of its diagnostics, so every recognized pattern lives in
// this package and anything unrecognized falls back to a generic compile
// error.
package diagnose

import "strings"

// Kind partitions compiler output into the three presentation forms the loop
// knows how to handle.
type Kind uint8

const (
	// KindCompileError is a syntax or semantic failure; the statement is
	// rolled back and a one-line message shown.
	KindCompileError Kind = iota
	// KindRuntimeException is a failure while executing the compiled buffer;
	// the statement is rolled back and a trace excerpt shown.
	KindRuntimeException
	// KindDiscardWarning means a value was computed but not consumed; the
	// loop recovers by rewriting the statement into an inspection print.
	KindDiscardWarning
)

func (k Kind) String() string {
	switch k {
	case KindCompileError:
		return "COMPILE ERROR"
	case KindRuntimeException:
		return "RUNTIME EXCEPTION"
	case KindDiscardWarning:
		return "DISCARD WARNING"
	}
	return "UNKNOWN"
}

// Diagnostic is an ephemeral classified view over one invocation's output.
type Diagnostic struct {
	Kind    Kind
	Message string
	// TypeName is the discarded value's type, only for KindDiscardWarning.
	TypeName string
}

const runtimeFailureMarker = "Error: unhandled exception"

var discardPatterns = []string{
	"and has to be used or discarded",
	"and has to be discarded",
}

// Classify maps raw output for statement into a Diagnostic. noRewrite
// suppresses the discard classification, either because the statement was a
// multi-line block or because one rewrite retry has already happened; the
// retry limit is 1 and this flag is what enforces it.
func Classify(output, statement string, noRewrite bool) Diagnostic {
	if strings.Contains(output, runtimeFailureMarker) {
		return Diagnostic{
			Kind:    KindRuntimeException,
			Message: runtimeExcerpt(output, isImportStatement(statement)),
		}
	}

	first, _, _ := strings.Cut(output, "\n")
	base := first
	if i := strings.Index(first, ")"); i >= 0 {
		// Everything after the first ')' drops the file(line, col) prefix.
		base = strings.TrimSpace(first[i+1:])
	}

	if !noRewrite && strings.TrimSpace(statement) != "" && !isImportStatement(statement) {
		if typeName, ok := discardType(base); ok {
			return Diagnostic{Kind: KindDiscardWarning, Message: base, TypeName: typeName}
		}
	}

	if isImportStatement(statement) {
		// Import failures keep the whole first line; the path in the prefix
		// is the useful part of the message.
		return Diagnostic{Kind: KindCompileError, Message: first}
	}
	return Diagnostic{Kind: KindCompileError, Message: base}
}

// discardType reports whether base is a discard diagnostic and extracts the
// quoted type name: the second-to-last field when splitting on the quote.
func discardType(base string) (string, bool) {
	matched := false
	for _, pat := range discardPatterns {
		if strings.Contains(base, pat) {
			matched = true
			break
		}
	}
	if !matched || !strings.Contains(base, "is of type '") {
		return "", false
	}
	parts := strings.Split(base, "'")
	if len(parts) < 3 {
		return "", false
	}
	return parts[len(parts)-2], true
}

// runtimeExcerpt extracts the relevant tail of an exception trace: three
// lines of context for import statements, otherwise only the final line.
func runtimeExcerpt(output string, importLike bool) string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	if importLike {
		start := len(lines) - 3
		if start < 0 {
			start = 0
		}
		return strings.Join(lines[start:], "\n")
	}
	return lines[len(lines)-1]
}

func isImportStatement(statement string) bool {
	return strings.HasPrefix(strings.TrimSpace(statement), "import")
}
