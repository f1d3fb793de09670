package dupstat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// partition is a set of members with byte-identical content.
type partition struct {
	members []string
	size    uint64
	matched bool
}

// Verifier compares group members byte for byte.
type Verifier struct {
	blockSize int
	open      func(name string) (io.ReadCloser, error)
}

// NewVerifier returns a verifier reading blockSize bytes at a time.
func NewVerifier(blockSize int) Verifier {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	return Verifier{blockSize: blockSize, open: openFile}
}

func openFile(name string) (io.ReadCloser, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	return file, nil
}

// Split partitions a signature group into groups of identical content.
// Partitions with a single member are dropped. Members that cannot be read
// are reported and left out.
func (v Verifier) Split(ctx context.Context, group DuplicateGroup, report func(ScanError)) ([]DuplicateGroup, error) {
	var parts []*partition

	for _, path := range group.Members {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		placed := false

		for _, part := range parts {
			done, err := v.join(ctx, part, path, report)
			if err != nil {
				return nil, err
			}

			if done {
				placed = true

				break
			}
		}

		if !placed {
			if err := probe(path); err != nil {
				report(ScanError{Path: path, Op: OpVerify, Err: err})

				continue
			}

			parts = append(parts, &partition{members: []string{path}, size: group.Size})
		}
	}

	var groups []DuplicateGroup

	for _, part := range parts {
		if len(part.members) < 2 {
			continue
		}

		groups = append(groups, DuplicateGroup{
			Signature: group.Signature,
			Members:   part.members,
			Size:      part.size,
		})
	}

	return groups, nil
}

// join compares path against the representative of part and appends it on a
// match. It reports true once path is settled, either joined or dropped
// because it could not be read. A representative that fails is dropped and
// the next member takes its place.
func (v Verifier) join(ctx context.Context, part *partition, path string, report func(ScanError)) (bool, error) {
	for len(part.members) > 0 {
		n, equal, err := v.compare(ctx, part.members[0], path)
		if err != nil {
			var pathErr *comparePathError
			if !errors.As(err, &pathErr) {
				return false, err
			}

			report(ScanError{Path: pathErr.path, Op: OpVerify, Err: pathErr.err})

			if pathErr.path == path {
				return true, nil
			}

			part.members = part.members[1:]

			continue
		}

		if !equal {
			return false, nil
		}

		part.members = append(part.members, path)
		if !part.matched {
			part.size = n
			part.matched = true
		}

		return true, nil
	}

	return false, nil
}

// comparePathError attributes a comparison failure to one file.
type comparePathError struct {
	path string
	err  error
}

func (e *comparePathError) Error() string {
	return fmt.Sprintf("%s: %v", e.path, e.err)
}

func (e *comparePathError) Unwrap() error {
	return e.err
}

// compare reports whether a and b hold the same bytes, and how many bytes
// were compared when they do.
func (v Verifier) compare(ctx context.Context, a, b string) (uint64, bool, error) {
	open := v.open
	if open == nil {
		open = openFile
	}

	fa, err := open(a)
	if err != nil {
		return 0, false, &comparePathError{path: a, err: err}
	}
	defer fa.Close()

	fb, err := open(b)
	if err != nil {
		return 0, false, &comparePathError{path: b, err: err}
	}
	defer fb.Close()

	bufA := make([]byte, v.blockSize)
	bufB := make([]byte, v.blockSize)

	var total uint64

	for {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}

		na, errA := io.ReadFull(fa, bufA)
		if errA != nil && !errors.Is(errA, io.EOF) && !errors.Is(errA, io.ErrUnexpectedEOF) {
			return 0, false, &comparePathError{path: a, err: errA}
		}

		nb, errB := io.ReadFull(fb, bufB)
		if errB != nil && !errors.Is(errB, io.EOF) && !errors.Is(errB, io.ErrUnexpectedEOF) {
			return 0, false, &comparePathError{path: b, err: errB}
		}

		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return 0, false, nil
		}

		total += uint64(na) //nolint:gosec // Read counts are non-negative

		if errA != nil || errB != nil {
			// Both short reads of equal length: both at end of file.
			return total, true, nil
		}
	}
}
