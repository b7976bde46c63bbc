package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/CZERTAINLY/Timelapse/internal/log"
	"github.com/CZERTAINLY/Timelapse/internal/parallel"
	"github.com/CZERTAINLY/Timelapse/internal/seq"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

var (
	flagStrict bool // value of scan --strict flag
	flagJobs   int  // value of scan --jobs flag
)

var scanCmd = &cobra.Command{
	Use:   "scan [dir...]",
	Short: "Detect the image sequence in directories and print the summaries",
	Long: `Detect the image sequence in directories and print the summaries.
Each summary is printed as a separate YAML document, in the order of arguments.`,
	RunE: doScan,
}

func initScanFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagStrict, "strict", false, "exit with an error when no usable sequence is found")
	cmd.Flags().IntVarP(&flagJobs, "jobs", "j", runtime.NumCPU(), "number of directories scanned in parallel")
}

func doScan(cmd *cobra.Command, args []string) error {
	ctx := log.ContextAttrs(cmd.Context(), slog.String("cmd", "scan"))
	dirs := args
	if len(dirs) == 0 {
		dirs = []string{imageDir(nil)}
	}

	scanner := seq.NewScanner(seq.Config{
		Extensions: config.Input.Extensions,
		TieBreak:   seq.TieBreak(config.Input.TieBreak),
	})
	summaries, err := parallel.Map(ctx, flagJobs, dirs, func(ctx context.Context, dir string) (seq.Summary, error) {
		return scanner.Scan(ctx, dir), nil
	})
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	var missing int
	for _, summary := range summaries {
		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("encoding summary: %w", err)
		}
		if !summary.Found() {
			missing++
			slog.WarnContext(ctx, summary.Diagnostic, "dir", summary.Dir, "status", summary.Status.String())
		}
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if flagStrict && missing > 0 {
		return fmt.Errorf("%d of %d directories have no usable sequence", missing, len(summaries))
	}
	return nil
}

// imageDir returns the directory from the command line, config file or the
// current directory, in that order.
func imageDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if config.Input.Dir != nil && *config.Input.Dir != "" {
		return *config.Input.Dir
	}
	return "."
}
