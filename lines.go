package serial

import "strings"

// LineSplitter accumulates chunks and emits complete delimiter-terminated lines.
// It is not safe for concurrent use.
type LineSplitter struct {
	Delimiter string // default "\r\n"
	line      string
}

// Feed appends chunk to the pending buffer and calls onLine for every
// complete line, without its delimiter.
func (l *LineSplitter) Feed(chunk []byte, onLine func(string)) {
	delim := l.Delimiter
	if delim == "" {
		delim = "\r\n"
	}
	l.line += string(chunk)
	for {
		idx := strings.Index(l.line, delim)
		if idx < 0 {
			break
		}
		onLine(l.line[:idx])
		l.line = l.line[idx+len(delim):]
	}
}

// Pending returns the bytes received after the last delimiter.
func (l *LineSplitter) Pending() string {
	return l.line
}

// Reset drops any pending partial line.
func (l *LineSplitter) Reset() {
	l.line = ""
}
