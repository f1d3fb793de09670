package dupstat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeFile creates path (and its parents) with content.
func writeFile(t *testing.T, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating parent of %s: %v", path, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}

	return path
}

// skipIfRoot skips tests that rely on permission bits being enforced.
func skipIfRoot(t *testing.T) {
	t.Helper()

	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
}

// failingFingerprinter delegates to next but fails for paths ending in suffix,
// as if the file became unreadable after the walk saw it.
type failingFingerprinter struct {
	next   Fingerprinter
	suffix string
}

var errRevoked = errors.New("permission revoked")

func (f failingFingerprinter) Fingerprint(ctx context.Context, path string) (Signature, error) {
	if strings.HasSuffix(path, f.suffix) {
		return Signature{}, errRevoked
	}

	return f.next.Fingerprint(ctx, path)
}

// constantFingerprinter gives every file the same signature.
type constantFingerprinter struct{}

func (constantFingerprinter) Fingerprint(context.Context, string) (Signature, error) {
	return Signature{0xde, 0xad}, nil
}

func mustFingerprinter(t *testing.T, algorithm string, blockSize int) *StreamFingerprinter {
	t.Helper()

	fp, err := NewFingerprinter(algorithm, blockSize)
	if err != nil {
		t.Fatalf("NewFingerprinter(%q): %v", algorithm, err)
	}

	return fp
}
