package seq

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"syscall"

	"github.com/CZERTAINLY/Timelapse/internal/walk"
)

// DefaultExtensions are the image file name suffixes recognized when
// no other set is configured. Matching is case sensitive.
var DefaultExtensions = []string{".jpg", ".JPG", ".jpeg", ".png", ".PNG"}

// TieBreak selects the dominant pattern when more groups have the same size.
type TieBreak string

const (
	// TieBreakListing picks the pattern seen first in directory listing order.
	TieBreakListing TieBreak = "listing"
	// TieBreakLexical picks the lexicographically smallest pattern.
	TieBreakLexical TieBreak = "lexical"
)

type Status int

const (
	StatusNoImages Status = iota
	StatusFound
	StatusNotFound
	StatusNotDirectory
	StatusUnreadable
)

func (s Status) String() string {
	switch s {
	case StatusNoImages:
		return "no images"
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not found"
	case StatusNotDirectory:
		return "not a directory"
	case StatusUnreadable:
		return "unreadable"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Summary describes the dominant image sequence of a directory.
type Summary struct {
	Dir         string `yaml:"dir"`
	Pattern     string `yaml:"pattern"`
	FirstNumber int    `yaml:"first_number"`
	UsableCount int    `yaml:"usable_count"`
	Total       int    `yaml:"total"`
	Status      Status `yaml:"status"`
	Diagnostic  string `yaml:"diagnostic"`
	Err         error  `yaml:"-"`
}

// Found reports whether a usable sequence was detected.
func (s Summary) Found() bool {
	return s.Status == StatusFound
}

type Config struct {
	Extensions []string
	TieBreak   TieBreak
}

// Scanner infers an image sequence from a directory listing. It holds no
// mutable state and is safe for concurrent use.
type Scanner struct {
	extensions []string
	tieBreak   TieBreak
}

func NewScanner(cfg Config) Scanner {
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	tb := cfg.TieBreak
	if tb == "" {
		tb = TieBreakListing
	}
	return Scanner{
		extensions: slices.Clone(exts),
		tieBreak:   tb,
	}
}

// Scan lists dir and summarizes the dominant sequence. Filesystem errors
// never escape, they are converted to a Summary status and diagnostic.
func (s Scanner) Scan(ctx context.Context, dir string) Summary {
	var names []string
	for entry, err := range walk.Dir(ctx, dir) {
		if err != nil {
			sum := failed(dir, err)
			slog.DebugContext(ctx, "directory scan failed", "dir", dir, "status", sum.Status, "error", err)
			return sum
		}
		names = append(names, entry.Name())
	}

	sum := s.Summarize(names)
	sum.Dir = dir
	slog.DebugContext(ctx, "directory scanned",
		"dir", dir,
		"entries", len(names),
		"pattern", sum.Pattern,
		"first_number", sum.FirstNumber,
		"usable_count", sum.UsableCount,
		"total", sum.Total,
	)
	return sum
}

type group struct {
	pattern string
	numbers []int
}

// Summarize computes the Summary of names given in listing order.
func (s Scanner) Summarize(names []string) Summary {
	var (
		groups []*group
		index  = make(map[string]*group)
	)
	for _, name := range names {
		if !s.isImage(name) {
			continue
		}
		p := Parse(name)
		if !p.Valid {
			continue
		}
		g, ok := index[p.Pattern]
		if !ok {
			g = &group{pattern: p.Pattern}
			index[p.Pattern] = g
			groups = append(groups, g)
		}
		g.numbers = append(g.numbers, p.Number)
	}

	dominant := s.dominant(groups)
	if dominant == nil {
		return Summary{
			Status:     StatusNoImages,
			Diagnostic: "No images found in directory.",
		}
	}

	numbers := slices.Clone(dominant.numbers)
	slices.Sort(numbers)
	usable := LongestConsecutiveRun(numbers)

	diag := fmt.Sprintf("%d images found in directory, starting at %d.", usable, numbers[0])
	if ignored := len(numbers) - usable; ignored > 0 {
		diag += fmt.Sprintf(" %d images after the first gap are ignored.", ignored)
	}

	return Summary{
		Pattern:     dominant.pattern,
		FirstNumber: numbers[0],
		UsableCount: usable,
		Total:       len(numbers),
		Status:      StatusFound,
		Diagnostic:  diag,
	}
}

func (s Scanner) isImage(name string) bool {
	for _, ext := range s.extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func (s Scanner) dominant(groups []*group) *group {
	var best *group
	for _, g := range groups {
		switch {
		case best == nil:
			best = g
		case len(g.numbers) > len(best.numbers):
			best = g
		case len(g.numbers) == len(best.numbers) && s.tieBreak == TieBreakLexical && g.pattern < best.pattern:
			best = g
		}
	}
	return best
}

// LongestConsecutiveRun returns the number of consecutive integers present
// in sorted, starting from its first element. Duplicates count once and the
// first gap ends the run.
func LongestConsecutiveRun(sorted []int) int {
	if len(sorted) == 0 {
		return 0
	}
	run := 1
	last := sorted[0]
	for _, n := range sorted[1:] {
		switch n {
		case last:
			continue
		case last + 1:
			run++
			last = n
		default:
			return run
		}
	}
	return run
}

func failed(dir string, err error) Summary {
	sum := Summary{Dir: dir, Err: err}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		sum.Status = StatusNotFound
		sum.Diagnostic = "Directory not found: " + dir
	case errors.Is(err, syscall.ENOTDIR):
		sum.Status = StatusNotDirectory
		sum.Diagnostic = "Not a directory: " + dir
	default:
		sum.Status = StatusUnreadable
		sum.Diagnostic = "Directory could not be read: " + err.Error()
	}
	return sum
}
