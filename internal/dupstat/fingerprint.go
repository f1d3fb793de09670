package dupstat

import (
	"context"
	"crypto/md5" //nolint:gosec // Content fingerprint, not a security boundary
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"lukechampine.com/blake3"
)

// Supported fingerprint algorithms.
const (
	AlgorithmMD5    = "md5"
	AlgorithmBLAKE3 = "blake3"
)

// Algorithms lists the accepted Algorithm values.
//
//nolint:gochecknoglobals // Config constant
var Algorithms = []string{AlgorithmMD5, AlgorithmBLAKE3}

// Fingerprinter computes a content signature for a file.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, path string) (Signature, error)
}

// StreamFingerprinter hashes a file in fixed-size blocks.
type StreamFingerprinter struct {
	newHash   func() hash.Hash
	blockSize int
}

// NewFingerprinter returns a streaming fingerprinter for the named algorithm.
// An empty name selects md5; a non-positive block size selects DefaultBlockSize.
func NewFingerprinter(algorithm string, blockSize int) (*StreamFingerprinter, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	if blockSize > MaxBlockSize {
		return nil, fmt.Errorf("block size %d exceeds the maximum of %d", blockSize, MaxBlockSize)
	}

	var newHash func() hash.Hash

	switch strings.ToLower(algorithm) {
	case "", AlgorithmMD5:
		newHash = md5.New
	case AlgorithmBLAKE3:
		newHash = func() hash.Hash { return blake3.New(SignatureSize, nil) }
	default:
		return nil, fmt.Errorf("unsupported fingerprint algorithm %q: must be one of %v", algorithm, Algorithms)
	}

	return &StreamFingerprinter{newHash: newHash, blockSize: blockSize}, nil
}

// Fingerprint streams the file at path through the digest. The file is never
// held in memory beyond one block, and ctx is checked between blocks.
func (f *StreamFingerprinter) Fingerprint(ctx context.Context, path string) (Signature, error) {
	var sig Signature

	file, err := os.Open(path)
	if err != nil {
		return sig, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	h := f.newHash()
	buf := make([]byte, f.blockSize)

	for {
		if err := ctx.Err(); err != nil {
			return sig, err
		}

		n, err := file.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return sig, fmt.Errorf("reading file: %w", err)
		}
	}

	copy(sig[:], h.Sum(nil))

	return sig, nil
}

// QuickFingerprint hashes at most the first blockSize bytes of a file with xxhash.
func QuickFingerprint(path string, blockSize int) (uint64, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	h := xxhash.New()
	if _, err := io.CopyN(h, file, int64(blockSize)); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("reading file: %w", err)
	}

	return h.Sum64(), nil
}

// probe checks that a file can still be opened without reading it.
func probe(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}

	return file.Close()
}
