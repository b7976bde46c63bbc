package service

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync"
)

type Stream int

const (
	Stdout Stream = iota + 1
	Stderr
)

func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// Line is a single line of process output. Text always ends with "\n".
type Line struct {
	Stream Stream
	Text   string
}

// Sink consumes the output of a running process.
type Sink func(ctx context.Context, line Line)

// ScanLines is a bufio.SplitFunc recognizing "\n", "\r\n" and a lone "\r"
// as line terminators. ffmpeg rewrites its status line using "\r", so those
// updates are delivered as separate lines. The terminator is not returned.
func ScanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		// need one more byte to tell "\r" from "\r\n"
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Buffer collects output lines and is safe for concurrent use.
type Buffer struct {
	mx    sync.Mutex
	lines []Line
}

func (b *Buffer) Append(line Line) {
	b.mx.Lock()
	b.lines = append(b.lines, line)
	b.mx.Unlock()
}

// Sink returns a Sink appending to b.
func (b *Buffer) Sink() Sink {
	return func(_ context.Context, line Line) {
		b.Append(line)
	}
}

// Lines returns a copy of the collected lines, optionally limited to the given streams.
func (b *Buffer) Lines(streams ...Stream) []Line {
	b.mx.Lock()
	defer b.mx.Unlock()
	ret := make([]Line, 0, len(b.lines))
	for _, l := range b.lines {
		if len(streams) == 0 || slices.Contains(streams, l.Stream) {
			ret = append(ret, l)
		}
	}
	return ret
}

// Tail returns the text of the last n lines.
func (b *Buffer) Tail(n int) string {
	if n <= 0 {
		return ""
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	return join(b.lines[max(len(b.lines)-n, 0):])
}

func (b *Buffer) String() string {
	b.mx.Lock()
	defer b.mx.Unlock()
	return join(b.lines)
}

func join(lines []Line) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.Text)
	}
	return sb.String()
}
