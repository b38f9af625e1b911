package session

import (
	"fmt"
	"os"
	"strings"
)

// Buffer owns the accumulated session source and its on-disk form. The
// committed part is known to compile; pending lines belong to the statement
// or block currently being entered and are folded in only after a verified
// successful compile.
type Buffer struct {
	path      string
	prelude   string
	committed string
	pending   []string
	// lastMark is the committed length before the most recent commit.
	// Rollback of a committed statement truncates to this offset instead of
	// doing arithmetic on newline counts.
	lastMark int
}

// NewBuffer returns a buffer backed by the file at path. Nothing is written
// until Materialize is called.
func NewBuffer(path, prelude string) *Buffer {
	return &Buffer{path: path, prelude: prelude}
}

// Path returns the backing file path handed to the compiler.
func (b *Buffer) Path() string { return b.path }

// Committed returns the source known to compile.
func (b *Buffer) Committed() string { return b.committed }

// HasPending reports whether any lines await a compile verdict.
func (b *Buffer) HasPending() bool { return len(b.pending) > 0 }

// Candidate returns the pending lines joined as the statement under trial.
func (b *Buffer) Candidate() string {
	return strings.Join(b.pending, "\n")
}

// AppendPending adds a line at the given nesting depth. When render is true
// the depth is materialized as leading whitespace; otherwise the line is
// stored as typed.
func (b *Buffer) AppendPending(line string, depth int, render bool) {
	if render && depth > 0 {
		line = strings.Repeat("  ", depth) + line
	}
	b.pending = append(b.pending, line)
}

// ReplacePending swaps the entire pending statement for stmt. Used when a
// single-line statement is rewritten before a retry.
func (b *Buffer) ReplacePending(stmt string) {
	b.pending = []string{stmt}
}

// Materialize writes prelude + committed + pending to the backing file and
// flushes before returning.
func (b *Buffer) Materialize() error {
	var sb strings.Builder
	sb.WriteString(b.prelude)
	sb.WriteString(b.committed)
	for _, line := range b.pending {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	f, err := os.Create(b.path)
	if err != nil {
		return fmt.Errorf("failed to create buffer file %q: %w", b.path, err)
	}
	if _, err := f.WriteString(sb.String()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write buffer file %q: %w", b.path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush buffer file %q: %w", b.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close buffer file %q: %w", b.path, err)
	}
	return nil
}

// Commit folds the pending statement into the committed source. The caller
// must only invoke it after a verified successful compile.
func (b *Buffer) Commit() error {
	b.lastMark = len(b.committed)
	for _, line := range b.pending {
		b.committed += line + "\n"
	}
	b.pending = nil
	return b.Materialize()
}

// Rollback discards the pending statement and restores the backing file to
// the committed source. It is a no-op when nothing is pending.
func (b *Buffer) Rollback() error {
	if len(b.pending) == 0 {
		return nil
	}
	b.pending = nil
	return b.Materialize()
}

// RollbackLastCommit removes the most recently committed statement. Used for
// inspection prints that must not stay in the session history.
func (b *Buffer) RollbackLastCommit() error {
	if b.lastMark > len(b.committed) {
		return fmt.Errorf("commit mark %d beyond committed length %d", b.lastMark, len(b.committed))
	}
	b.committed = b.committed[:b.lastMark]
	return b.Materialize()
}
