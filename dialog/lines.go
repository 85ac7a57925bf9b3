package dialog

import (
	"bufio"
	"io"

	"github.com/charmbracelet/x/term"
)

// LineReader hands out its source one line per Read. Scanners that take
// turns on a LineReader never buffer past the line they were given, so the
// shell and the prompts can share one input.
type LineReader struct {
	src     io.Reader
	r       *bufio.Reader
	pending []byte
	err     error
}

// NewLineReader wraps src. A src that is already a LineReader is returned
// as is.
func NewLineReader(src io.Reader) *LineReader {
	if l, ok := src.(*LineReader); ok {
		return l
	}
	return &LineReader{src: src, r: bufio.NewReader(src)}
}

func (l *LineReader) Read(p []byte) (int, error) {
	if len(l.pending) == 0 {
		if l.err != nil {
			return 0, l.err
		}
		line, err := l.r.ReadBytes('\n')
		l.pending, l.err = line, err
		if len(line) == 0 {
			return 0, err
		}
	}
	n := copy(p, l.pending)
	l.pending = l.pending[n:]
	return n, nil
}

// Source returns the wrapped reader.
func (l *LineReader) Source() io.Reader {
	return l.src
}

// Terminal reports the file descriptor of the source when it is a terminal.
func (l *LineReader) Terminal() (uintptr, bool) {
	f, ok := l.src.(interface{ Fd() uintptr })
	if !ok || !term.IsTerminal(f.Fd()) {
		return 0, false
	}
	return f.Fd(), true
}

// ttyLines lets huh read a masked password from the terminal fd while
// plain answers still come line by line.
type ttyLines struct {
	*LineReader
	fd uintptr
}

func (t ttyLines) Fd() uintptr { return t.fd }
