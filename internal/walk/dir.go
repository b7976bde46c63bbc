package walk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"syscall"
)

// ErrNotDir is returned when the path given to Dir is not a directory.
var ErrNotDir = fmt.Errorf("not a directory: %w", syscall.ENOTDIR)

const batch = 256

// Entry is a single non-directory entry of a listed directory.
type Entry interface {
	Name() string
	Path() string
	Type() fs.FileMode
}

// Dir lists the entries of the directory path, without recursion, in the
// order the platform returns them. This order is not sorted.
// Subdirectories are skipped. If the directory can't be opened or
// is not a directory, a single error is yielded. Errors while reading the
// entries are yielded and end the listing.
func Dir(ctx context.Context, path string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		f, err := open(path)
		if err != nil {
			yield(nil, err)
			return
		}
		defer func() {
			_ = f.Close()
		}()

		for {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}
			dirents, err := f.ReadDir(batch)
			for _, d := range dirents {
				if d.IsDir() {
					continue
				}
				entry := dirEntry{
					path: filepath.Join(path, d.Name()),
					d:    d,
				}
				if !yield(entry, nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

func open(path string) (*os.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: path, Err: ErrNotDir}
	}
	return os.Open(path)
}

type dirEntry struct {
	path string
	d    fs.DirEntry
}

func (e dirEntry) Name() string {
	return e.d.Name()
}

// returns the path joined with the listed directory
func (e dirEntry) Path() string {
	return e.path
}

func (e dirEntry) Type() fs.FileMode {
	return e.d.Type()
}
