package diagnose

import "strings"

// Rewrite turns a statement whose value was reported unused into an
// inspection print. The original expression is embedded verbatim so side
// effects and semantics are unchanged; with showTypes it is evaluated a
// second time only for its type.
func Rewrite(statement string, showTypes bool) string {
	expr := strings.TrimSpace(statement)
	if showTypes {
		return "echo $(" + expr + ") & \" == type \" & $(typeof(" + expr + "))"
	}
	return "echo $(" + expr + ")"
}
