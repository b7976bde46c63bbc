package seq

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsedFilename is a classification of a single file name. Pattern is
// a printf template with the first run of digits replaced by a zero padded
// placeholder of the same width, Number is the value of that run.
type ParsedFilename struct {
	Pattern string
	Number  int
	Width   int
	Valid   bool
}

// Parse scans name left to right and freezes the first run of ASCII digits
// as the numeric part. Digits found after that run are kept literally in the
// pattern. A name without digits is not valid.
// Literal '%' is escaped as "%%" so the pattern can be fed to printf and to
// the ffmpeg image2 demuxer.
func Parse(name string) ParsedFilename {
	var (
		pattern strings.Builder
		run     strings.Builder
		ret     ParsedFilename
		frozen  bool
	)

	freeze := func() {
		if frozen || run.Len() == 0 {
			return
		}
		frozen = true
		n, err := strconv.Atoi(run.String())
		if err != nil {
			// out of int range: no usable number
			pattern.WriteString(run.String())
			run.Reset()
			return
		}
		ret.Number = n
		ret.Width = run.Len()
		ret.Valid = true
		fmt.Fprintf(&pattern, "%%0%dd", run.Len())
		run.Reset()
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		if isDigit(c) && !frozen {
			run.WriteByte(c)
			continue
		}
		freeze()
		if c == '%' {
			pattern.WriteString("%%")
			continue
		}
		pattern.WriteByte(c)
	}
	freeze()

	if ret.Valid {
		ret.Pattern = pattern.String()
	}
	return ret
}

// Format renders pattern with n, the inverse of Parse.
func Format(pattern string, n int) string {
	return fmt.Sprintf(pattern, n)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
