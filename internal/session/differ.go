package session

// Differ remembers how much compiler output has already been shown so each
// recompile of the whole buffer only surfaces the new suffix.
type Differ struct {
	cursor int
}

// ExtractNew returns the output lines produced past the cursor, dropping a
// single trailing empty line left by the program's final newline.
func (d *Differ) ExtractNew(lines []string) []string {
	if d.cursor >= len(lines) {
		return nil
	}
	out := lines[d.cursor:]
	if n := len(out); n > 0 && out[n-1] == "" {
		out = out[:n-1]
	}
	return out
}

// Advance moves the cursor past the output of a committed statement. It must
// not be called for a rolled-back statement, whose output is not part of the
// persisted buffer's history.
func (d *Differ) Advance(total int) {
	d.cursor = total - 1
	if d.cursor < 0 {
		d.cursor = 0
	}
}
