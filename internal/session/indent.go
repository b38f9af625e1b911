package session

import "strings"

// indentTriggers are the tokens that, when trailing a line, open an indented
// block. This is a surface heuristic, not a parse; false positives such as a
// trailing comma in a one-line call are accepted and recovered from by the
// normal compile-and-rollback path.
var indentTriggers = []string{
	",", "=", ":",
	"var", "let", "const", "type", "import",
	"object", "enum", "block", "try", "finally", "except",
}

// Tracker follows the session's nesting depth from surface syntax.
type Tracker struct {
	level int
	// lastOpened guards against double-indenting when consecutive lines end
	// in triggers while the user is hand-indenting (auto-render off).
	lastOpened bool
	autoRender bool
}

func NewTracker(autoRender bool) *Tracker {
	return &Tracker{autoRender: autoRender}
}

// Level returns the current nesting depth; 0 means top-level statement mode.
func (t *Tracker) Level() int { return t.level }

// Classify reports whether line opens a block. Empty lines never do.
func (t *Tracker) Classify(line string) bool {
	trimmed := strings.TrimRight(line, " \t")
	if trimmed == "" {
		return false
	}
	for _, trig := range indentTriggers {
		switch trig {
		case ",", "=", ":":
			if strings.HasSuffix(trimmed, trig) {
				return true
			}
		default:
			fields := strings.Fields(trimmed)
			if fields[len(fields)-1] == trig {
				return true
			}
		}
	}
	return false
}

// Observe classifies line and applies the level transition, returning whether
// a block was opened.
func (t *Tracker) Observe(line string) bool {
	opens := t.Classify(line)
	if opens {
		if t.lastOpened && t.level > 0 && !t.autoRender {
			// Already inside a hand-indented block; the trigger belongs to
			// the same construct.
			opens = false
		} else {
			t.level++
		}
	}
	t.lastOpened = opens
	return opens
}

// CloseOne closes exactly one level on an empty line. At level 0 it is a
// no-op. It reports whether the session returned to top level.
func (t *Tracker) CloseOne() bool {
	if t.level == 0 {
		return false
	}
	t.level--
	t.lastOpened = false
	return t.level == 0
}

// Reset forces the tracker back to top level, abandoning any open block.
func (t *Tracker) Reset() {
	t.level = 0
	t.lastOpened = false
}
