package repl

import "strings"

// Inline commands are exact matches on the trimmed line and are only
// recognized at top level; inside a block they are ordinary source text.

func isQuit(line string) bool {
	switch strings.TrimSpace(line) {
	case "exit", "exit()", "quit", "quit()":
		return true
	}
	return false
}

func isHelp(line string) bool {
	switch strings.TrimSpace(line) {
	case "help", "help()":
		return true
	}
	return false
}

const helpText = `nimsh - interactive Nim shell

Statements are compiled and run incrementally; a line ending in a
block-opening token starts an indented block, and an empty line closes
one level. A bare expression prints its value and type.

Commands:
  help, help()    show this text
  exit, exit()    quit the session
  quit, quit()    quit the session

Ctrl-C aborts the current block, Ctrl-D quits.
`
