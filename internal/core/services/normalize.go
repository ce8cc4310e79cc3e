package services

import "strings"

// terminalOutput accumulates process output the way a terminal would render
// it. A carriage return commits nothing: it resets the in-progress line and
// redraws over the previously committed one, so progress bars collapse to
// their final state. A newline commits the in-progress line. This won't
// reproduce full-screen programs like top, but it matches what scrollback
// shows for ordinary command output.
type terminalOutput struct {
	lines   []string
	current []rune
}

func (t *terminalOutput) WriteRune(r rune) {
	switch r {
	case '\r':
		if len(t.lines) > 0 {
			t.lines[len(t.lines)-1] = string(t.current)
		}
		t.current = t.current[:0]
	case '\n':
		t.lines = append(t.lines, string(t.current))
		t.current = t.current[:0]
	default:
		t.current = append(t.current, r)
	}
}

// String returns the committed lines joined by newlines. An unterminated
// trailing line is not included.
func (t *terminalOutput) String() string {
	return strings.Join(t.lines, "\n")
}
