// Package repl drives the interactive session: one foreground loop
// alternating between a blocking line read and a blocking compiler
// invocation. Per-statement failures are always recovered locally; only a
// preload failure aborts the process.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"nimsh/internal/config"
	"nimsh/internal/diagnose"
	"nimsh/internal/nimc"
	"nimsh/internal/session"
)

// ErrPreload marks a preload file that failed to compile; the process exits
// with status 1 after the diagnostic has been presented.
var ErrPreload = errors.New("preload file failed to compile")

// Options configures one session. Flags have already been folded into Config
// by the caller.
type Options struct {
	NimPath    string
	ExtraFlags []string
	Preload    string
	ShowHeader bool
	AutoIndent bool
	Config     config.Config
}

// compileRunner is the slice of nimc.Runner the loop depends on; tests
// substitute a scripted implementation.
type compileRunner interface {
	Run(ctx context.Context) (nimc.Result, error)
}

type shell struct {
	sess   *session.Session
	run    compileRunner
	cfg    config.Config
	out    io.Writer
	errOut io.Writer

	errColor *color.Color
}

func newShell(sess *session.Session, run compileRunner, cfg config.Config, out, errOut io.Writer) *shell {
	return &shell{
		sess:     sess,
		run:      run,
		cfg:      cfg,
		out:      out,
		errOut:   errOut,
		errColor: color.New(color.FgRed),
	}
}

// Run owns the whole session lifetime: temp resources, header, optional
// preload, then the read-eval loop until quit or EOF.
func Run(ctx context.Context, opts Options) error {
	bufFile, err := os.CreateTemp("", "nimsh_*.nim")
	if err != nil {
		return fmt.Errorf("failed to create buffer file: %w", err)
	}
	bufferPath := bufFile.Name()
	if err := bufFile.Close(); err != nil {
		return fmt.Errorf("failed to close buffer file: %w", err)
	}

	// Everything created here is removed unconditionally, error path
	// included.
	temp := []string{bufferPath, nimc.ArtifactPath(bufferPath, runtime.GOOS == "windows")}
	defer func() {
		cleanup(temp)
	}()

	historyPath, historyTemp, err := resolveHistory(opts.Config.History.Persistent)
	if err != nil {
		return err
	}
	if historyTemp {
		temp = append(temp, historyPath)
	}

	colorEnabled := opts.Config.Style.ShowColor && term.IsTerminal(int(os.Stdout.Fd()))
	color.NoColor = !colorEnabled

	if opts.ShowHeader {
		nimVersion, err := nimc.Probe(ctx, opts.NimPath)
		if err != nil {
			nimVersion = ""
		}
		printHeader(os.Stdout, nimVersion, colorEnabled)
	}

	sess := session.New(bufferPath, opts.AutoIndent)
	runner := nimc.NewRunner(opts.NimPath, opts.ExtraFlags, bufferPath)
	sh := newShell(sess, runner, opts.Config, os.Stdout, os.Stderr)

	// Establish the startup invariant: the prelude alone compiles. From here
	// on the buffer only grows by verified statements.
	if err := sess.Buffer.Materialize(); err != nil {
		return err
	}
	verify, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	if !verify.Succeeded {
		sh.present(diagnose.Classify(verify.Output, "", true))
		return errors.New("initial buffer failed to compile")
	}
	sess.Output.Advance(len(strings.Split(verify.Output, "\n")))

	if opts.Preload != "" {
		if err := sh.preload(ctx, opts.Preload); err != nil {
			return err
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          sh.prompt(),
		HistoryFile:     historyPath,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize line editor: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			// Abort only the open block, never the session.
			if sess.Indent.Level() > 0 {
				if rbErr := sess.Buffer.Rollback(); rbErr != nil {
					return rbErr
				}
				sess.Indent.Reset()
				rl.SetPrompt(sh.prompt())
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("failed to read line: %w", err)
		}

		if sess.Indent.Level() == 0 {
			if isQuit(line) {
				return nil
			}
			if isHelp(line) {
				fmt.Fprint(sh.out, helpText)
				continue
			}
		}

		if err := sh.submit(ctx, line); err != nil {
			return err
		}
		rl.SetPrompt(sh.prompt())
	}
}

// submit feeds one input line through indentation tracking and, when a
// statement or block completes, the compile pipeline.
func (s *shell) submit(ctx context.Context, line string) error {
	if strings.TrimSpace(line) == "" {
		if s.sess.Indent.Level() == 0 {
			return nil
		}
		if s.sess.Indent.CloseOne() {
			return s.eval(ctx)
		}
		return nil
	}

	depth := s.sess.Indent.Level()
	s.sess.Buffer.AppendPending(line, depth, s.sess.AutoIndent)
	s.sess.Indent.Observe(line)
	if s.sess.Indent.Level() > 0 {
		return nil
	}
	return s.eval(ctx)
}

// eval compiles the pending statement against the whole buffer and commits,
// rewrites or rolls back depending on the verdict. The discard rewrite is
// retried at most once; the retry's failure is classified with rewriting
// suppressed so recovery provably terminates.
func (s *shell) eval(ctx context.Context) error {
	buf := s.sess.Buffer
	candidate := buf.Candidate()
	isBlock := strings.Contains(candidate, "\n")

	if err := buf.Materialize(); err != nil {
		return err
	}
	res, err := s.run.Run(ctx)
	if err != nil {
		return err
	}
	if res.Succeeded {
		return s.accept(res.Output, false)
	}

	d := diagnose.Classify(res.Output, candidate, isBlock)
	if d.Kind == diagnose.KindDiscardWarning {
		rewritten := diagnose.Rewrite(candidate, s.cfg.Style.ShowTypes)
		buf.ReplacePending(rewritten)
		if err := buf.Materialize(); err != nil {
			return err
		}
		retry, err := s.run.Run(ctx)
		if err != nil {
			return err
		}
		if retry.Succeeded {
			// With type display off the print exists only for inspection
			// and must not stay in the session history.
			return s.accept(retry.Output, !s.cfg.Style.ShowTypes)
		}
		if err := buf.Rollback(); err != nil {
			return err
		}
		s.present(diagnose.Classify(retry.Output, rewritten, true))
		s.sess.Indent.Reset()
		return nil
	}

	if err := buf.Rollback(); err != nil {
		return err
	}
	s.present(d)
	s.sess.Indent.Reset()
	return nil
}

// accept prints the newly produced output suffix and commits the statement.
// An ephemeral statement is printed but then removed again, and the output
// cursor is left alone so its output is not counted as history.
func (s *shell) accept(output string, ephemeral bool) error {
	lines := strings.Split(output, "\n")
	for _, l := range s.sess.Output.ExtractNew(lines) {
		fmt.Fprintln(s.out, l)
	}
	if err := s.sess.Buffer.Commit(); err != nil {
		return err
	}
	if ephemeral {
		return s.sess.Buffer.RollbackLastCommit()
	}
	s.sess.Output.Advance(len(lines))
	return nil
}

func (s *shell) present(d diagnose.Diagnostic) {
	s.errColor.Fprintln(s.errOut, d.Message)
}

// preload commits the full text of path as the first statement of the
// session. A read failure or compile failure is fatal.
func (s *shell) preload(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read preload file %q: %w", path, err)
	}
	text := strings.TrimRight(string(data), "\n")
	for _, line := range strings.Split(text, "\n") {
		s.sess.Buffer.AppendPending(line, 0, false)
	}
	if err := s.sess.Buffer.Materialize(); err != nil {
		return err
	}
	res, err := s.run.Run(ctx)
	if err != nil {
		return err
	}
	if !res.Succeeded {
		s.present(diagnose.Classify(res.Output, text, true))
		return ErrPreload
	}
	return s.accept(res.Output, false)
}

// prompt renders the primary prompt at top level and a dot continuation
// prompt of the same display width inside a block, with the nesting depth
// materialized when auto-indent is on.
func (s *shell) prompt() string {
	base := s.cfg.Style.Prompt
	lvl := s.sess.Indent.Level()
	if lvl == 0 {
		return base
	}
	width := runewidth.StringWidth(base)
	if width < 2 {
		width = 2
	}
	cont := strings.Repeat(".", width-1) + " "
	if s.sess.AutoIndent {
		cont += strings.Repeat("  ", lvl)
	}
	return cont
}

// cleanup removes the process-owned temp files. Files already gone are fine;
// removal must not fail teardown.
func cleanup(paths []string) {
	for _, p := range paths {
		os.Remove(p)
	}
}

// resolveHistory picks the persistent history file under the config dir, or
// a temp file the teardown removes.
func resolveHistory(persistent bool) (path string, temp bool, err error) {
	if persistent {
		p, err := config.HistoryPath()
		if err != nil {
			return "", false, err
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return "", false, fmt.Errorf("failed to create history dir: %w", err)
		}
		return p, false, nil
	}
	f, err := os.CreateTemp("", "nimsh_history_*")
	if err != nil {
		return "", false, fmt.Errorf("failed to create history file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", false, fmt.Errorf("failed to close history file: %w", err)
	}
	return f.Name(), true, nil
}
