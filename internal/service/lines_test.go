package service_test

import (
	"bufio"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/CZERTAINLY/Timelapse/internal/service"
	"github.com/stretchr/testify/require"
)

func TestScanLines(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		given    string
		then     []string
	}{
		{"empty", "", nil},
		{"lf", "a\nb\n", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"cr", "a\rb\rc", []string{"a", "b", "c"}},
		{"mixed", "a\r\n\nb\rc\n", []string{"a", "", "b", "c"}},
		{"trailing cr", "a\r", []string{"a"}},
		{"no terminator", "abc", []string{"abc"}},
		{"empty lines", "\n\n", []string{"", ""}},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			// one byte reads make "\r\n" cross the buffer boundary
			for _, r := range []func(string) *bufio.Scanner{
				func(s string) *bufio.Scanner { return bufio.NewScanner(strings.NewReader(s)) },
				func(s string) *bufio.Scanner { return bufio.NewScanner(iotest.OneByteReader(strings.NewReader(s))) },
			} {
				scanner := r(tt.given)
				scanner.Split(service.ScanLines)
				var got []string
				for scanner.Scan() {
					got = append(got, scanner.Text())
				}
				require.NoError(t, scanner.Err())
				require.Equal(t, tt.then, got)
			}
		})
	}
}

func TestBuffer(t *testing.T) {
	t.Parallel()
	var buf service.Buffer
	sink := buf.Sink()
	sink(t.Context(), service.Line{Stream: service.Stdout, Text: "one\n"})
	sink(t.Context(), service.Line{Stream: service.Stderr, Text: "two\n"})
	sink(t.Context(), service.Line{Stream: service.Stdout, Text: "three\n"})

	require.Equal(t, "one\ntwo\nthree\n", buf.String())
	require.Equal(t, "two\nthree\n", buf.Tail(2))
	require.Equal(t, "one\ntwo\nthree\n", buf.Tail(10))
	require.Empty(t, buf.Tail(0))
	require.Len(t, buf.Lines(), 3)
	require.Len(t, buf.Lines(service.Stdout), 2)
	require.Equal(t, []service.Line{{Stream: service.Stderr, Text: "two\n"}}, buf.Lines(service.Stderr))
	require.Equal(t, "stderr", service.Stderr.String())
}
