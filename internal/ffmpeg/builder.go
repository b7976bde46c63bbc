package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CZERTAINLY/Timelapse/internal/model"
)

// Input is the image sequence fed to the encoder.
type Input struct {
	Pattern     string
	StartNumber int
	// Count limits the number of images read, 0 reads until the first missing file
	Count int
}

// Build constructs the complete argument slice, program name included.
// Relative paths are resolved against the image directory the process runs in.
func Build(binary string, video model.Video, in Input) []string {
	args := make([]string, 0, 24)

	// --- Preamble ---
	args = append(args, binary, "-y")

	// --- Input ---
	args = append(args,
		"-r", strconv.Itoa(video.FrameRate),
		"-start_number", strconv.Itoa(in.StartNumber),
		"-i", in.Pattern,
	)
	if in.Count > 0 {
		args = append(args, "-frames:v", strconv.Itoa(ExpectedFrames(video, in.Count)))
	}

	// --- Video ---
	args = append(args, "-s", fmt.Sprintf("%dx%d", video.Width, video.Height))
	if video.Interpolate {
		args = append(args, "-vf", fmt.Sprintf(
			"framerate=fps=%d:interp_start=0:interp_end=255:scene=100",
			video.InterpolatedFrameRate,
		))
	}
	args = append(args,
		"-vcodec", video.Codec,
		"-q:v", strconv.Itoa(video.Quality),
	)

	// --- Output ---
	args = append(args, video.Output)
	return args
}

// ExpectedFrames estimates the number of frames produced from count images.
// With interpolation every image lasts 1/FrameRate seconds of a video running
// at InterpolatedFrameRate.
func ExpectedFrames(video model.Video, count int) int {
	if !video.Interpolate || video.FrameRate <= 0 || video.InterpolatedFrameRate <= 0 {
		return count
	}
	return count * video.InterpolatedFrameRate / video.FrameRate
}

// CommandLine renders argv for display. Tokens containing spaces or empty
// ones are quoted. The result is not meant to be passed to a shell.
func CommandLine(argv []string) string {
	var sb strings.Builder
	for i, arg := range argv {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if arg == "" || strings.ContainsAny(arg, " \t") {
			sb.WriteByte('"')
			sb.WriteString(arg)
			sb.WriteByte('"')
			continue
		}
		sb.WriteString(arg)
	}
	return sb.String()
}
