package dupstat

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charlievieth/fastwalk"
	"github.com/charmbracelet/log"
)

// Filter decides which entries the walker yields.
type Filter struct {
	include  map[string]struct{}
	exclude  map[string]struct{}
	patterns []*regexp.Regexp
	minSize  uint64
	depth    int
}

// NewFilter compiles the walk filters from opt.
func NewFilter(opt Options) (Filter, error) {
	f := Filter{
		include: make(map[string]struct{}, len(opt.Extensions)),
		exclude: make(map[string]struct{}, len(opt.Extensions)),
		minSize: opt.MinSize,
		depth:   opt.Depth,
	}

	for _, e := range opt.Extensions { //nolint:varnamelen // e is standard for element in range
		e = strings.Trim(e, "'\"") // Strip quotes first

		if strings.HasPrefix(e, "!") {
			f.exclude[strings.TrimPrefix(e, "!")] = struct{}{}
		} else if e != "" {
			f.include[e] = struct{}{}
		}
	}

	for _, p := range opt.Excludes {
		re, err := regexp.Compile(p)
		if err != nil {
			return Filter{}, fmt.Errorf("compiling exclusion pattern %q: %w", p, err)
		}

		f.patterns = append(f.patterns, re)
	}

	return f, nil
}

// calculateDepth returns the depth of a path relative to the root.
func calculateDepth(path, root string) int {
	relPath := strings.TrimPrefix(path, root)

	relPath = strings.TrimPrefix(relPath, string(filepath.Separator))
	if relPath == "" {
		return 0
	}

	return strings.Count(relPath, string(filepath.Separator)) + 1
}

// excludedBy returns the first exclusion regex matching path, if any.
func (f Filter) excludedBy(path string) *regexp.Regexp {
	fPath := filepath.ToSlash(path)

	for _, re := range f.patterns {
		if re.MatchString(fPath) {
			return re
		}
	}

	return nil
}

// includes reports whether the extension filters admit path.
func (f Filter) includes(path string) bool {
	for ext := range f.exclude {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}

	for ext := range f.include {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	return false
}

// CheckRoot verifies that root exists and is a directory.
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("accessing path %q: %w", root, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path %q: %w", root, ErrNotDirectory)
	}

	return nil
}

// Walker enumerates regular files below a root.
type Walker struct {
	root   string
	filter Filter
	log    *log.Logger
}

// NewWalker returns a walker over root. The root is checked before use.
func NewWalker(root string, filter Filter, logger *log.Logger) (*Walker, error) {
	root = filepath.Clean(root)

	if err := CheckRoot(root); err != nil {
		return nil, err
	}

	return &Walker{root: root, filter: filter, log: orDiscard(logger)}, nil
}

// Walk calls emit for every regular file and report for every entry that
// could not be read. Symlinks and special files are skipped without a report.
// Both callbacks may be invoked concurrently. The walk stops early with the
// context error when ctx is done.
//
//nolint:varnamelen // d is standard for DirEntry
func (w *Walker) Walk(ctx context.Context, emit func(FileRecord), report func(ScanError)) error {
	conf := &fastwalk.Config{
		Follow: false, // Don't follow symlinks
	}

	return fastwalk.Walk(conf, w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == w.root && d == nil {
				return err
			}

			// fastwalk reports a failed ReadDir with a second call for the
			// directory; its subtree is already unreachable.
			w.log.Warn("skipping unreadable entry", "path", path, "err", err)
			report(ScanError{Path: path, Op: OpWalk, Err: err})

			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if w.filter.depth > 0 && calculateDepth(path, w.root) > w.filter.depth {
			if d.IsDir() {
				w.log.Debug("skipping directory beyond depth", "depth", w.filter.depth, "path", path)

				return filepath.SkipDir
			}

			return nil
		}

		if path != w.root {
			if re := w.filter.excludedBy(path); re != nil {
				w.log.Debug("excluding", "path", filepath.ToSlash(path), "regex", re.String())

				if d.IsDir() {
					return filepath.SkipDir
				}

				return nil
			}
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			w.log.Warn("skipping file", "path", path, "err", err)
			report(ScanError{Path: path, Op: OpStat, Err: err})

			return nil
		}

		size := uint64(info.Size()) //nolint:gosec // Regular file sizes are non-negative
		if size < w.filter.minSize || !w.filter.includes(path) {
			return nil
		}

		emit(FileRecord{Path: path, Size: size})

		return nil
	})
}

func orDiscard(logger *log.Logger) *log.Logger {
	if logger != nil {
		return logger
	}

	return log.New(io.Discard)
}
