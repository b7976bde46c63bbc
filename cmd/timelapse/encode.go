package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/CZERTAINLY/Timelapse/internal/ffmpeg"
	"github.com/CZERTAINLY/Timelapse/internal/log"
	"github.com/CZERTAINLY/Timelapse/internal/model"
	"github.com/CZERTAINLY/Timelapse/internal/service"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// encodeFlags binds encode flags and TIMELAPSE_* env variables to config keys
var encodeFlags = viper.New()

var encodeCmd = &cobra.Command{
	Use:   "encode [dir]",
	Short: "Encode the image sequence of a directory into a video",
	Args:  cobra.MaximumNArgs(1),
	RunE:  doEncode,
}

func initEncodeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("pattern", "", "printf style image pattern, overrides the detected one")
	flags.Int("start-number", 0, "number of the first image, overrides the detected one")
	flags.Int("count", 0, "number of images to encode, overrides the detected one")
	flags.StringP("output", "o", "", "output file, relative to the image directory")
	flags.IntP("frame-rate", "r", 0, "images per second")
	flags.StringP("resolution", "s", "", "output resolution WIDTHxHEIGHT")
	flags.Bool("interpolate", true, "interpolate frames between images")
	flags.Int("interpolated-frame-rate", 0, "frame rate of the interpolated video")
	flags.String("encoder", "", "encoder binary")
	flags.String("timeout", "", "encoder timeout, 0s means no timeout")
	flags.Bool("dry-run", false, "print the encoder command and exit")
	flags.Bool("progress", false, "show a progress bar instead of the encoder output")

	encodeFlags.SetEnvPrefix("TIMELAPSE")
	encodeFlags.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	encodeFlags.AutomaticEnv()

	err := bindFlags(encodeFlags, flags, map[string]string{
		"input.pattern":                 "pattern",
		"input.start_number":            "start-number",
		"input.count":                   "count",
		"video.output":                  "output",
		"video.frame_rate":              "frame-rate",
		"video.resolution":              "resolution",
		"video.interpolate":             "interpolate",
		"video.interpolated_frame_rate": "interpolated-frame-rate",
		"encoder.binary":                "encoder",
		"encoder.timeout":               "timeout",
		"dry_run":                       "dry-run",
		"progress":                      "progress",
	})
	if err != nil {
		panic(err)
	}
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag --%s is not defined", name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// applyOverrides copies flags and env variables which were set over cfg.
func applyOverrides(v *viper.Viper, cfg *model.Config) error {
	if v.IsSet("input.pattern") {
		cfg.Input.Pattern = ptr(v.GetString("input.pattern"))
	}
	if v.IsSet("input.start_number") {
		cfg.Input.StartNumber = ptr(v.GetInt("input.start_number"))
	}
	if v.IsSet("input.count") {
		cfg.Input.Count = ptr(v.GetInt("input.count"))
	}
	if v.IsSet("video.output") {
		cfg.Video.Output = v.GetString("video.output")
	}
	if v.IsSet("video.frame_rate") {
		cfg.Video.FrameRate = v.GetInt("video.frame_rate")
	}
	if v.IsSet("video.resolution") {
		w, h, err := model.ParseResolution(v.GetString("video.resolution"))
		if err != nil {
			return err
		}
		cfg.Video.Width, cfg.Video.Height = w, h
	}
	if v.IsSet("video.interpolate") {
		cfg.Video.Interpolate = v.GetBool("video.interpolate")
	}
	if v.IsSet("video.interpolated_frame_rate") {
		cfg.Video.InterpolatedFrameRate = v.GetInt("video.interpolated_frame_rate")
	}
	if v.IsSet("encoder.binary") {
		cfg.Encoder.Binary = v.GetString("encoder.binary")
	}
	if v.IsSet("encoder.timeout") {
		cfg.Encoder.Timeout = v.GetString("encoder.timeout")
	}

	if cfg.Video.FrameRate <= 0 {
		return fmt.Errorf("frame rate must be positive, got %d", cfg.Video.FrameRate)
	}
	if cfg.Input.Count != nil && *cfg.Input.Count <= 0 {
		return fmt.Errorf("count must be positive, got %d", *cfg.Input.Count)
	}
	if cfg.Input.Pattern != nil && !strings.Contains(*cfg.Input.Pattern, "%") {
		return fmt.Errorf("pattern %q has no number placeholder", *cfg.Input.Pattern)
	}
	return nil
}

func doEncode(cmd *cobra.Command, args []string) error {
	ctx := log.ContextAttrs(cmd.Context(),
		slog.String("cmd", "encode"),
		slog.Int("pid", os.Getpid()),
	)

	cfg := config
	if err := applyOverrides(encodeFlags, &cfg); err != nil {
		return err
	}

	dir := imageDir(args)
	job, err := service.NewJob(ctx, cfg, dir)
	if err != nil {
		return err
	}
	if !job.Summary.Found() {
		slog.WarnContext(ctx, "encoding without a detected sequence", "pattern", job.Input.Pattern)
	}

	if encodeFlags.GetBool("dry_run") {
		fmt.Println(ffmpeg.CommandLine(job.Argv()))
		return nil
	}
	slog.DebugContext(ctx, "encoder command", "argv", job.Argv())

	var sink service.Sink = printSink(os.Stdout)
	var bar *progressbar.ProgressBar
	if encodeFlags.GetBool("progress") {
		bar = newBar(ffmpeg.ExpectedFrames(cfg.Video, job.Input.Count))
		sink = barSink(bar)
	}

	res, err := job.Run(ctx, service.NewRunner(), sink)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	ctx = log.ContextAttrs(ctx, slog.String("run", res.ID.String()))
	if err != nil {
		slog.ErrorContext(ctx, "encoder failed", "exit_code", res.ExitCode())
		return err
	}
	slog.InfoContext(ctx, "video created",
		"output", cfg.Video.Output,
		"images", job.Input.Count,
		"duration", res.Stopped.Sub(res.Started).String(),
	)
	return nil
}

// printSink copies encoder output as is. Lines of both streams go to w.
func printSink(w io.Writer) service.Sink {
	return func(_ context.Context, line service.Line) {
		_, _ = io.WriteString(w, line.Text)
	}
}

func newBar(frames int) *progressbar.ProgressBar {
	// -1 renders a spinner when the number of frames is unknown
	total := frames
	if total <= 0 {
		total = -1
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("encoding"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// barSink moves bar according to ffmpeg status lines, the rest is logged on
// debug level.
func barSink(bar *progressbar.ProgressBar) service.Sink {
	return func(ctx context.Context, line service.Line) {
		if frame, ok := ffmpeg.ParseProgress(line.Text); ok {
			_ = bar.Set(frame)
			return
		}
		slog.DebugContext(ctx, strings.TrimSuffix(line.Text, "\n"), "stream", line.Stream.String())
	}
}

func ptr[T any](v T) *T {
	return &v
}
