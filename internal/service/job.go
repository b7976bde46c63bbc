package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/CZERTAINLY/Timelapse/internal/ffmpeg"
	"github.com/CZERTAINLY/Timelapse/internal/model"
	"github.com/CZERTAINLY/Timelapse/internal/seq"
)

var ErrNoImages = errors.New("no usable image sequence")

// Job is a single encode of an image directory: the inferred sequence,
// the user overrides applied on top of it and the resulting command.
type Job struct {
	Summary seq.Summary
	Input   ffmpeg.Input
	Command Command
}

// NewJob scans dir and prepares the encoder command. Pattern, start number
// and count configured in cfg.Input take precedence over the inferred ones.
// Returns ErrNoImages if there is nothing to encode.
func NewJob(ctx context.Context, cfg model.Config, dir string) (Job, error) {
	if cfg.Version != 0 {
		return Job{}, fmt.Errorf("config version %d is not supported, expected 0", cfg.Version)
	}
	timeout, err := cfg.Encoder.TimeoutDuration()
	if err != nil {
		return Job{}, err
	}
	waitDelay, err := cfg.Encoder.WaitDelayDuration()
	if err != nil {
		return Job{}, err
	}

	scanner := seq.NewScanner(seq.Config{
		Extensions: cfg.Input.Extensions,
		TieBreak:   seq.TieBreak(cfg.Input.TieBreak),
	})
	summary := scanner.Scan(ctx, dir)
	slog.InfoContext(ctx, summary.Diagnostic, "dir", dir, "status", summary.Status)

	in, err := input(summary, cfg.Input)
	if err != nil {
		return Job{Summary: summary}, err
	}

	argv := ffmpeg.Build(cfg.Encoder.Binary, cfg.Video, in)
	return Job{
		Summary: summary,
		Input:   in,
		Command: Command{
			Path:      argv[0],
			Args:      argv[1:],
			Dir:       dir,
			Env:       commandEnv(cfg.Encoder.Env),
			Timeout:   timeout,
			WaitDelay: waitDelay,
		},
	}, nil
}

func input(summary seq.Summary, cfg model.Input) (ffmpeg.Input, error) {
	if cfg.Pattern == nil && !summary.Found() {
		return ffmpeg.Input{}, fmt.Errorf("%w: %s", ErrNoImages, summary.Diagnostic)
	}

	in := ffmpeg.Input{
		Pattern:     summary.Pattern,
		StartNumber: summary.FirstNumber,
		Count:       summary.UsableCount,
	}
	if cfg.Pattern != nil && *cfg.Pattern != summary.Pattern {
		// the inferred numbers describe another sequence
		in = ffmpeg.Input{Pattern: *cfg.Pattern}
	}
	if cfg.StartNumber != nil {
		if *cfg.StartNumber != in.StartNumber {
			in.Count = 0
		}
		in.StartNumber = *cfg.StartNumber
	}
	if cfg.Count != nil {
		in.Count = *cfg.Count
	}
	return in, nil
}

// Argv returns the full command line of the job, program included.
func (j Job) Argv() []string {
	return append([]string{j.Command.Path}, j.Command.Args...)
}

// Run starts the job on runner, streams its output to sink and waits for
// completion. A process which did not exit with zero is an error.
func (j Job) Run(ctx context.Context, runner *Runner, sink Sink) (Result, error) {
	if err := runner.Start(ctx, j.Command, sink, nil); err != nil {
		return Result{}, err
	}
	res := <-runner.WaitChan()
	if res.Err != nil {
		return res, fmt.Errorf("encoding %s: %w", j.Input.Pattern, res.Err)
	}
	return res, nil
}
