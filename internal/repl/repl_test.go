package repl

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"nimsh/internal/config"
	"nimsh/internal/nimc"
	"nimsh/internal/session"
)

// scriptedRunner replays canned compiler verdicts in order.
type scriptedRunner struct {
	t       *testing.T
	results []nimc.Result
	calls   int
}

func (r *scriptedRunner) Run(ctx context.Context) (nimc.Result, error) {
	if r.calls >= len(r.results) {
		r.t.Fatalf("unexpected compile invocation #%d", r.calls+1)
	}
	res := r.results[r.calls]
	r.calls++
	return res, nil
}

func discardOutput(expr, typeName string) string {
	return "/tmp/nimsh_1.nim(9, 1) Error: expression '" + expr + "' is of type '" + typeName + "' and has to be used or discarded\n"
}

func newTestShell(t *testing.T, results []nimc.Result, showTypes bool) (*shell, *scriptedRunner, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true
	sess := session.New(filepath.Join(t.TempDir(), "buf.nim"), true)
	run := &scriptedRunner{t: t, results: results}
	cfg := config.Default()
	cfg.Style.ShowTypes = showTypes
	var out, errOut bytes.Buffer
	return newShell(sess, run, cfg, &out, &errOut), run, &out, &errOut
}

func feed(t *testing.T, sh *shell, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if err := sh.submit(context.Background(), line); err != nil {
			t.Fatalf("submit(%q): %v", line, err)
		}
	}
}

// The full interactive scenario: each statement's output appears exactly
// once, bare expressions are echoed with their type, and blocks compile when
// the indentation closes.
func TestShellScenario(t *testing.T) {
	results := []nimc.Result{
		{Output: "", Succeeded: true},                   // let a = "A"
		{Output: discardOutput("a", "string")},          // a
		{Output: "A == type string\n", Succeeded: true}, // echo rewrite of a
		{Output: "A == type string\n", Succeeded: true}, // type B block
		{Output: discardOutput("B", "B")},               // B
		{Output: "A == type string\nB == type B\n", Succeeded: true},
		{Output: discardOutput("B.c", "string")}, // B.c
		{Output: "A == type string\nB == type B\nstring == type string\n", Succeeded: true},
		{Output: "A == type string\nB == type B\nstring == type string\n", Succeeded: true}, // var g = ...
		{Output: discardOutput("g", "B")},                                                   // g
		{Output: "A == type string\nB == type B\nstring == type string\n(c: \"C\") == type B\n", Succeeded: true},
	}
	sh, run, out, errOut := newTestShell(t, results, true)

	feed(t, sh,
		`let a = "A"`,
		`a`,
		`type B = object`,
		`c: string`,
		``,
		`B`,
		`B.c`,
		`var g = B(c: "C")`,
		`g`,
	)

	want := "A == type string\nB == type B\nstring == type string\n(c: \"C\") == type B\n"
	if out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
	if errOut.Len() != 0 {
		t.Fatalf("unexpected error output: %q", errOut.String())
	}
	if run.calls != len(results) {
		t.Fatalf("compiler invoked %d times, want %d", run.calls, len(results))
	}

	committed := sh.sess.Buffer.Committed()
	if !strings.Contains(committed, `echo $(a) & " == type " & $(typeof(a))`) {
		t.Fatalf("committed source lacks the rewritten inspection statement:\n%s", committed)
	}
	if strings.Contains(committed, "\na\n") {
		t.Fatalf("committed source still holds the bare expression:\n%s", committed)
	}
	if !strings.Contains(committed, "type B = object\n  c: string\n") {
		t.Fatalf("committed source lacks the indented block:\n%s", committed)
	}
}

func TestShellInspectionRolledBackWithoutTypes(t *testing.T) {
	results := []nimc.Result{
		{Output: "", Succeeded: true},          // let a = "A"
		{Output: discardOutput("a", "string")}, // a
		{Output: "A\n", Succeeded: true},       // echo rewrite, no type report
	}
	sh, _, out, _ := newTestShell(t, results, false)

	feed(t, sh, `let a = "A"`, `a`)

	if out.String() != "A\n" {
		t.Fatalf("output = %q, want %q", out.String(), "A\n")
	}
	// The print existed only for inspection; history keeps the let alone.
	if got, want := sh.sess.Buffer.Committed(), "let a = \"A\"\n"; got != want {
		t.Fatalf("committed = %q, want %q", got, want)
	}
}

func TestShellCompileErrorRollsBack(t *testing.T) {
	results := []nimc.Result{
		{Output: "", Succeeded: true}, // let a = "A"
		{Output: "/tmp/nimsh_1.nim(3, 6) Error: undeclared identifier: 'x'\n"},
	}
	sh, _, _, errOut := newTestShell(t, results, true)

	feed(t, sh, `let a = "A"`, `echo x`)

	if want := "Error: undeclared identifier: 'x'\n"; errOut.String() != want {
		t.Fatalf("error output = %q, want %q", errOut.String(), want)
	}
	if got, want := sh.sess.Buffer.Committed(), "let a = \"A\"\n"; got != want {
		t.Fatalf("committed = %q, want %q", got, want)
	}
	if sh.sess.Indent.Level() != 0 {
		t.Fatalf("indent level = %d, want 0", sh.sess.Indent.Level())
	}
}

func TestShellDiscardRetryLimit(t *testing.T) {
	// The rewritten statement fails again: one retry only, then rollback and
	// a plain compile error, never another rewrite.
	results := []nimc.Result{
		{Output: discardOutput("a", "string")},
		{Output: discardOutput("a", "string")},
	}
	sh, run, _, errOut := newTestShell(t, results, true)

	feed(t, sh, `a`)

	if run.calls != 2 {
		t.Fatalf("compiler invoked %d times, want 2", run.calls)
	}
	if errOut.Len() == 0 {
		t.Fatalf("expected a presented compile error")
	}
	if got := sh.sess.Buffer.Committed(); got != "" {
		t.Fatalf("committed = %q, want empty", got)
	}
}

func TestShellRuntimeExceptionRollsBack(t *testing.T) {
	trace := strings.Join([]string{
		"Traceback (most recent call last)",
		"/tmp/nimsh_1.nim(3) nimsh_1",
		"Error: unhandled exception: boom [ValueError]",
		"",
	}, "\n")
	results := []nimc.Result{{Output: trace}}
	sh, _, _, errOut := newTestShell(t, results, true)

	feed(t, sh, `raise newException(ValueError, "boom")`)

	if want := "Error: unhandled exception: boom [ValueError]\n"; errOut.String() != want {
		t.Fatalf("error output = %q, want %q", errOut.String(), want)
	}
	if got := sh.sess.Buffer.Committed(); got != "" {
		t.Fatalf("committed = %q, want empty", got)
	}
}

func TestShellBlockAbort(t *testing.T) {
	// An interrupt mid-block clears the pending lines and the indent level
	// without touching committed source.
	sh, _, _, _ := newTestShell(t, nil, true)

	feed(t, sh, `for i in 0..2:`)
	if sh.sess.Indent.Level() != 1 {
		t.Fatalf("indent level = %d, want 1", sh.sess.Indent.Level())
	}
	if err := sh.sess.Buffer.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	sh.sess.Indent.Reset()
	if sh.sess.Buffer.HasPending() {
		t.Fatalf("pending block survived the abort")
	}
	if got := sh.sess.Buffer.Committed(); got != "" {
		t.Fatalf("committed = %q, want empty", got)
	}
}

func TestShellEmptyLineAtTopLevel(t *testing.T) {
	sh, run, out, _ := newTestShell(t, nil, true)
	feed(t, sh, ``)
	if run.calls != 0 {
		t.Fatalf("empty line at top level must not compile")
	}
	if out.Len() != 0 {
		t.Fatalf("empty line at top level must print nothing")
	}
}

func TestShellPreloadCommits(t *testing.T) {
	results := []nimc.Result{{Output: "A\n", Succeeded: true}}
	sh, run, out, errOut := newTestShell(t, results, true)

	path := filepath.Join(t.TempDir(), "pre.nim")
	text := "let a = \"A\"\necho a\n"
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatalf("write preload file: %v", err)
	}
	if err := sh.preload(context.Background(), path); err != nil {
		t.Fatalf("preload: %v", err)
	}

	if out.String() != "A\n" {
		t.Fatalf("output = %q, want %q", out.String(), "A\n")
	}
	if errOut.Len() != 0 {
		t.Fatalf("unexpected error output: %q", errOut.String())
	}
	if run.calls != 1 {
		t.Fatalf("compiler invoked %d times, want 1", run.calls)
	}
	if got := sh.sess.Buffer.Committed(); got != text {
		t.Fatalf("committed = %q, want %q", got, text)
	}
}

func TestShellPreloadFailure(t *testing.T) {
	results := []nimc.Result{
		{Output: "/tmp/nimsh_1.nim(1, 6) Error: undeclared identifier: 'x'\n"},
	}
	sh, _, _, errOut := newTestShell(t, results, true)

	path := filepath.Join(t.TempDir(), "pre.nim")
	if err := os.WriteFile(path, []byte("echo x\n"), 0o600); err != nil {
		t.Fatalf("write preload file: %v", err)
	}
	err := sh.preload(context.Background(), path)
	if !errors.Is(err, ErrPreload) {
		t.Fatalf("preload error = %v, want ErrPreload", err)
	}
	if errOut.Len() == 0 {
		t.Fatalf("preload failure was not presented")
	}
	if got := sh.sess.Buffer.Committed(); got != "" {
		t.Fatalf("committed = %q, want empty", got)
	}
}

func TestShellPreloadMissingFile(t *testing.T) {
	sh, run, _, _ := newTestShell(t, nil, true)
	err := sh.preload(context.Background(), filepath.Join(t.TempDir(), "missing.nim"))
	if err == nil {
		t.Fatalf("expected error for unreadable preload file")
	}
	if errors.Is(err, ErrPreload) {
		t.Fatalf("read failure must not be reported as a compile failure: %v", err)
	}
	if run.calls != 0 {
		t.Fatalf("compiler invoked %d times, want 0", run.calls)
	}
}

func TestResolveHistoryTemp(t *testing.T) {
	path, temp, err := resolveHistory(false)
	if err != nil {
		t.Fatalf("resolveHistory: %v", err)
	}
	if !temp {
		t.Fatalf("non-persistent history must be marked temporary")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("temp history file missing: %v", err)
	}
	cleanup([]string{path})
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("teardown left temp history file behind")
	}
}

func TestCleanupRemovesAll(t *testing.T) {
	dir := t.TempDir()
	buffer := filepath.Join(dir, "nimsh_1.nim")
	artifact := filepath.Join(dir, "nimsh_1")
	for _, p := range []string{buffer, artifact} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	// A path that never materialized must not break teardown.
	cleanup([]string{buffer, artifact, filepath.Join(dir, "never_created")})
	for _, p := range []string{buffer, artifact} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("teardown left %s behind", p)
		}
	}
}

func TestShellPrompt(t *testing.T) {
	sh, _, _, _ := newTestShell(t, nil, true)
	if got, want := sh.prompt(), "nim> "; got != want {
		t.Fatalf("prompt = %q, want %q", got, want)
	}
	feed(t, sh, `for i in 0..2:`)
	got := sh.prompt()
	if !strings.HasPrefix(got, "....") {
		t.Fatalf("continuation prompt = %q, want dot padding", got)
	}
	if !strings.HasSuffix(got, "  ") {
		t.Fatalf("continuation prompt = %q, want rendered indentation", got)
	}
}
