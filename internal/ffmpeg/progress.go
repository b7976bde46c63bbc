package ffmpeg

import (
	"regexp"
	"strconv"
)

var reFrame = regexp.MustCompile(`^\s*frame=\s*(\d+)\s`)

// ParseProgress extracts the frame counter from an ffmpeg status line like
//
//	frame=  120 fps= 30 q=2.0 size=    1024kB time=00:00:04.00 bitrate=2097.2kbits/s speed=1.0x
func ParseProgress(line string) (frame int, ok bool) {
	m := reFrame.FindStringSubmatch(line)
	if len(m) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
