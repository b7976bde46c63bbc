package service_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/CZERTAINLY/Timelapse/internal/model"
	"github.com/CZERTAINLY/Timelapse/internal/seq"
	"github.com/CZERTAINLY/Timelapse/internal/service"
	"github.com/stretchr/testify/require"
)

func imageDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		err := os.WriteFile(filepath.Join(dir, name), []byte("jpeg"), 0644)
		require.NoError(t, err)
	}
	return dir
}

func sequence(format string, from, to int) []string {
	var ret []string
	for i := from; i <= to; i++ {
		ret = append(ret, fmt.Sprintf(format, i))
	}
	return ret
}

func ptr[T any](v T) *T {
	return &v
}

func TestNewJob(t *testing.T) {
	t.Parallel()
	dir := imageDir(t, append(sequence("img%03d.jpg", 3, 9), "img011.jpg", "readme.txt")...)

	var testCases = []struct {
		scenario string
		input    func(*model.Input)
		pattern  string
		start    int
		count    int
	}{
		{"inferred", func(*model.Input) {}, "img%03d.jpg", 3, 7},
		{"count override", func(in *model.Input) { in.Count = ptr(2) }, "img%03d.jpg", 3, 2},
		{"start override", func(in *model.Input) { in.StartNumber = ptr(5) }, "img%03d.jpg", 5, 0},
		{"same start", func(in *model.Input) { in.StartNumber = ptr(3) }, "img%03d.jpg", 3, 7},
		{"pattern override", func(in *model.Input) { in.Pattern = ptr("other%02d.png") }, "other%02d.png", 0, 0},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			cfg := model.DefaultConfig(t.Context())
			tt.input(&cfg.Input)

			job, err := service.NewJob(t.Context(), cfg, dir)
			require.NoError(t, err)
			require.Equal(t, seq.StatusFound, job.Summary.Status)
			require.Equal(t, tt.pattern, job.Input.Pattern)
			require.Equal(t, tt.start, job.Input.StartNumber)
			require.Equal(t, tt.count, job.Input.Count)

			require.Equal(t, "ffmpeg", job.Command.Path)
			require.Equal(t, dir, job.Command.Dir)
			require.Equal(t, "ffmpeg", job.Argv()[0])
			require.Contains(t, job.Command.Args, tt.pattern)
			require.Equal(t, "output.mp4", job.Command.Args[len(job.Command.Args)-1])
		})
	}
}

func TestNewJob_NoImages(t *testing.T) {
	t.Parallel()
	cfg := model.DefaultConfig(t.Context())

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		job, err := service.NewJob(t.Context(), cfg, imageDir(t, "readme.txt"))
		require.ErrorIs(t, err, service.ErrNoImages)
		require.Equal(t, seq.StatusNoImages, job.Summary.Status)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		job, err := service.NewJob(t.Context(), cfg, filepath.Join(t.TempDir(), "missing"))
		require.ErrorIs(t, err, service.ErrNoImages)
		require.Equal(t, seq.StatusNotFound, job.Summary.Status)
	})

	t.Run("explicit pattern", func(t *testing.T) {
		t.Parallel()
		cfg := cfg
		cfg.Input.Pattern = ptr("img%04d.jpg")
		job, err := service.NewJob(t.Context(), cfg, imageDir(t))
		require.NoError(t, err)
		require.Equal(t, "img%04d.jpg", job.Input.Pattern)
	})
}

// not parallel: executing a freshly written script while other tests fork
// may fail with "text file busy"
func TestJob_Run(t *testing.T) {
	lookSh(t)

	dir := imageDir(t, sequence("f%02d.png", 1, 4)...)
	encoder := filepath.Join(t.TempDir(), "fake-ffmpeg")
	script := "#!/bin/sh\nprintf '%s\\n' \"$@\"\necho 'frame=    4 fps=0.0' 1>&2\n"
	require.NoError(t, os.WriteFile(encoder, []byte(script), 0755))

	cfg := model.DefaultConfig(t.Context())
	cfg.Encoder.Binary = encoder
	cfg.Video.Interpolate = false

	job, err := service.NewJob(t.Context(), cfg, dir)
	require.NoError(t, err)
	require.Equal(t, 4, job.Input.Count)

	var buf service.Buffer
	res, err := job.Run(t.Context(), service.NewRunner(), buf.Sink())
	require.NoError(t, err)
	require.Equal(t, 0, res.ExitCode())
	require.Equal(t, job.Command.Args, trimmed(buf.Lines(service.Stdout)))
	require.Equal(t, []string{"frame=    4 fps=0.0"}, trimmed(buf.Lines(service.Stderr)))

	t.Run("failure", func(t *testing.T) {
		failing := filepath.Join(t.TempDir(), "failing-ffmpeg")
		require.NoError(t, os.WriteFile(failing, []byte("#!/bin/sh\necho broken 1>&2\nexit 1\n"), 0755))
		job.Command.Path = failing

		var buf service.Buffer
		res, err := job.Run(t.Context(), service.NewRunner(), buf.Sink())
		require.Error(t, err)
		require.Equal(t, 1, res.ExitCode())
		require.Equal(t, "broken\n", buf.String())
	})
}

func trimmed(lines []service.Line) []string {
	ret := make([]string, len(lines))
	for i, l := range lines {
		ret[i] = l.Text[:len(l.Text)-1]
	}
	return ret
}
