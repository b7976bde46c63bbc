package ffmpeg_test

import (
	"testing"

	"github.com/CZERTAINLY/Timelapse/internal/ffmpeg"
	"github.com/CZERTAINLY/Timelapse/internal/model"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	t.Parallel()
	video := model.DefaultConfig(t.Context()).Video

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		args := ffmpeg.Build("ffmpeg", video, ffmpeg.Input{Pattern: "img%03d.jpg", StartNumber: 1, Count: 10})
		require.Equal(t, []string{
			"ffmpeg", "-y",
			"-r", "1",
			"-start_number", "1",
			"-i", "img%03d.jpg",
			"-frames:v", "300",
			"-s", "1920x1080",
			"-vf", "framerate=fps=30:interp_start=0:interp_end=255:scene=100",
			"-vcodec", "mpeg4",
			"-q:v", "1",
			"output.mp4",
		}, args)
	})

	t.Run("no interpolation, no count", func(t *testing.T) {
		t.Parallel()
		v := video
		v.Interpolate = false
		v.FrameRate = 25
		v.Width, v.Height = 640, 480
		v.Output = "my movie.mp4"
		args := ffmpeg.Build("/opt/ffmpeg", v, ffmpeg.Input{Pattern: "DSC_%04d.JPG", StartNumber: 42})
		require.Equal(t, []string{
			"/opt/ffmpeg", "-y",
			"-r", "25",
			"-start_number", "42",
			"-i", "DSC_%04d.JPG",
			"-s", "640x480",
			"-vcodec", "mpeg4",
			"-q:v", "1",
			"my movie.mp4",
		}, args)
		require.Equal(t,
			`/opt/ffmpeg -y -r 25 -start_number 42 -i DSC_%04d.JPG -s 640x480 -vcodec mpeg4 -q:v 1 "my movie.mp4"`,
			ffmpeg.CommandLine(args))
	})
}

func TestExpectedFrames(t *testing.T) {
	t.Parallel()
	video := model.Video{FrameRate: 2, Interpolate: true, InterpolatedFrameRate: 30}
	require.Equal(t, 150, ffmpeg.ExpectedFrames(video, 10))
	video.Interpolate = false
	require.Equal(t, 10, ffmpeg.ExpectedFrames(video, 10))
}

func TestCommandLine(t *testing.T) {
	t.Parallel()
	require.Equal(t, `a "" "b c" d`, ffmpeg.CommandLine([]string{"a", "", "b c", "d"}))
	require.Empty(t, ffmpeg.CommandLine(nil))
}

func TestParseProgress(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		given string
		frame int
		ok    bool
	}{
		{"frame=  120 fps= 30 q=2.0 size=    1024kB time=00:00:04.00 bitrate=2097.2kbits/s speed=1.0x\n", 120, true},
		{"frame=1 fps=0.0 q=0.0 size=0kB\n", 1, true},
		{"Input #0, image2, from 'img%03d.jpg':\n", 0, false},
		{"  Stream #0:0: Video: mjpeg\n", 0, false},
	}
	for _, tt := range testCases {
		frame, ok := ffmpeg.ParseProgress(tt.given)
		require.Equal(t, tt.ok, ok, tt.given)
		require.Equal(t, tt.frame, frame, tt.given)
	}
}
