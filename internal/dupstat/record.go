package dupstat

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// SignatureSize is the width of a content signature in bytes (128 bits).
const SignatureSize = 16

// ErrNotDirectory is returned when the scan root exists but is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Signature is a fixed-width content fingerprint.
type Signature [SignatureSize]byte

// String returns the lowercase hex form of the signature.
func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

// MarshalText encodes the signature as hex, which also makes it a valid JSON map key.
func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a hex signature.
func (s *Signature) UnmarshalText(text []byte) error {
	if hex.DecodedLen(len(text)) != SignatureSize {
		return fmt.Errorf("invalid signature length %d", len(text))
	}

	if _, err := hex.Decode(s[:], text); err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}

	return nil
}

// FileRecord is a regular file observed by the walker.
type FileRecord struct {
	// Path is the file path, joined onto the scan root.
	Path string `json:"path"`
	// Size is the size in bytes at walk time.
	Size uint64 `json:"size"`
}

// DuplicateGroup is a set of two or more files sharing one signature.
type DuplicateGroup struct {
	// Signature is the shared content fingerprint.
	Signature Signature `json:"signature"`
	// Members holds the member paths, sorted.
	Members []string `json:"members"`
	// Size is the size of the first member encountered.
	Size uint64 `json:"size"`
}

// Wasted returns the bytes occupied by every copy beyond the first.
func (g DuplicateGroup) Wasted() uint64 {
	if len(g.Members) < 2 {
		return 0
	}

	return g.Size * uint64(len(g.Members)-1)
}

// Operations a ScanError can originate from.
const (
	OpWalk        = "walk"
	OpStat        = "stat"
	OpFingerprint = "fingerprint"
	OpVerify      = "verify"
)

// ScanError is a recoverable, per-entry failure. The scan continues past it.
type ScanError struct {
	// Path is the file or directory that failed.
	Path string `json:"path"`
	// Op is the stage that failed.
	Op string `json:"op"`
	// Err is the underlying cause.
	Err error `json:"-"`
}

func (e ScanError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e ScanError) Unwrap() error {
	return e.Err
}

// MarshalJSON includes the cause as a string.
func (e ScanError) MarshalJSON() ([]byte, error) {
	cause := ""
	if e.Err != nil {
		cause = e.Err.Error()
	}

	return json.Marshal(struct {
		Path  string `json:"path"`
		Op    string `json:"op"`
		Cause string `json:"cause"`
	}{e.Path, e.Op, cause})
}

// Result is everything a scan produces.
type Result struct {
	// Root is the cleaned scan root.
	Root string `json:"root"`
	// Groups holds the finalized duplicate groups.
	Groups []DuplicateGroup `json:"groups"`
	// Stats holds the scan-wide totals.
	Stats Stats `json:"stats"`
	// Errors lists every recoverable failure.
	Errors []ScanError `json:"errors"`
	// Partial is set when the scan was cancelled before completing.
	Partial bool `json:"partial"`
}
