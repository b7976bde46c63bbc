package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/CZERTAINLY/Timelapse/internal/model"
	"github.com/CZERTAINLY/Timelapse/internal/seq"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadConfig(t *testing.T) {
	yml := `
version: 0
verbose: true
input:
  dir: /srv/frames
  extensions: [".tif"]
  tie_break: lexical
  start_number: 12
video:
  output: movie.mp4
  frame_rate: 24
  interpolate: false
  width: 1280
  height: 720
encoder:
  binary: /usr/local/bin/ffmpeg
  timeout: 1h
  env:
    av_log_force_nocolor: "1"
    home: $HOME
`
	cfg, err := model.LoadConfig(strings.NewReader(yml))
	require.NoError(t, err)
	require.NotNil(t, cfg.Verbose)
	require.True(t, *cfg.Verbose)

	require.NotNil(t, cfg.Input.Dir)
	require.Equal(t, "/srv/frames", *cfg.Input.Dir)
	require.Equal(t, []string{".tif"}, cfg.Input.Extensions)
	require.Equal(t, string(seq.TieBreakLexical), cfg.Input.TieBreak)
	require.Nil(t, cfg.Input.Pattern)
	require.NotNil(t, cfg.Input.StartNumber)
	require.Equal(t, 12, *cfg.Input.StartNumber)
	require.Nil(t, cfg.Input.Count)

	require.Equal(t, "movie.mp4", cfg.Video.Output)
	require.Equal(t, 24, cfg.Video.FrameRate)
	require.False(t, cfg.Video.Interpolate)
	require.Equal(t, 30, cfg.Video.InterpolatedFrameRate)
	require.Equal(t, 1280, cfg.Video.Width)
	require.Equal(t, 720, cfg.Video.Height)
	require.Equal(t, "mpeg4", cfg.Video.Codec)

	require.Equal(t, "/usr/local/bin/ffmpeg", cfg.Encoder.Binary)
	d, err := cfg.Encoder.TimeoutDuration()
	require.NoError(t, err)
	require.Equal(t, time.Hour, d)
	require.Equal(t, map[string]string{"av_log_force_nocolor": "1", "home": "$HOME"}, cfg.Encoder.Env)
}

func TestDefaultConfig(t *testing.T) {
	cfg := model.DefaultConfig(t.Context())
	require.Equal(t, 0, cfg.Version)
	require.Nil(t, cfg.Verbose)
	require.Nil(t, cfg.Input.Dir)
	require.Equal(t, []string{".jpg", ".JPG", ".jpeg", ".png", ".PNG"}, cfg.Input.Extensions)
	require.Equal(t, string(seq.TieBreakListing), cfg.Input.TieBreak)
	require.Equal(t, model.Video{
		Output:                "output.mp4",
		FrameRate:             1,
		Interpolate:           true,
		InterpolatedFrameRate: 30,
		Width:                 1920,
		Height:                1080,
		Codec:                 "mpeg4",
		Quality:               1,
	}, cfg.Video)
	require.Equal(t, "ffmpeg", cfg.Encoder.Binary)
	d, err := cfg.Encoder.TimeoutDuration()
	require.NoError(t, err)
	require.Zero(t, d)
	d, err = cfg.Encoder.WaitDelayDuration()
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, d)
}

func TestDefaultConfig_YAMLRoundTrip(t *testing.T) {
	cfg := model.DefaultConfig(t.Context())
	b, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	loaded, err := model.LoadConfig(strings.NewReader(string(b)))
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestLoadConfig_Fail(t *testing.T) {
	var testCases = []struct {
		scenario string
		given    string
	}{
		{"unknown field", "version: 0\nvideo:\n  fps: 25\n"},
		{"bad version", "version: 1\n"},
		{"bad tie break", "version: 0\ninput:\n  tie_break: random\n"},
		{"zero frame rate", "version: 0\nvideo:\n  frame_rate: 0\n"},
		{"pattern without placeholder", "version: 0\ninput:\n  pattern: img.jpg\n"},
		{"bad duration", "version: 0\nencoder:\n  timeout: soon\n"},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			_, err := model.LoadConfig(strings.NewReader(tt.given))
			require.Error(t, err)
			require.NotEmpty(t, model.CueErrDetails(err))
		})
	}
}

func TestParseResolution(t *testing.T) {
	t.Parallel()
	w, h, err := model.ParseResolution("1920x1080")
	require.NoError(t, err)
	require.Equal(t, 1920, w)
	require.Equal(t, 1080, h)

	for _, bad := range []string{"", "Custom", "1920", "0x1080", "1920 x 1080", "x1080"} {
		_, _, err := model.ParseResolution(bad)
		require.ErrorIs(t, err, model.ErrInvalidResolution, bad)
	}
}
