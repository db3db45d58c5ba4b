// Package integrity computes content digests of documents and packages the
// before and after digests of a signing operation into an audit record.
//
// Digests are hex encoded and deterministic: re-hashing a stored file with the
// same algorithm reproduces the hash kept in its record.
package integrity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Algorithm names a supported digest.
type Algorithm string

const (
	SHA256     Algorithm = "sha256"
	SHA3_256   Algorithm = "sha3-256"
	BLAKE2b256 Algorithm = "blake2b-256"
)

// ErrUnknownAlgorithm is returned for an algorithm name that is not supported.
var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

// ParseAlgorithm returns the Algorithm for name. An empty name selects SHA256.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case "":
		return SHA256, nil
	case SHA256, SHA3_256, BLAKE2b256:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

func (a Algorithm) new() (hash.Hash, error) {
	switch a {
	case SHA256, "":
		return sha256.New(), nil
	case SHA3_256:
		return sha3.New256(), nil
	case BLAKE2b256:
		return blake2b.New256(nil)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
}

// IntegrityComputationError indicates that a digest could not be computed.
// It is fatal to the signing operation that requested it.
type IntegrityComputationError struct {
	Msg string
	Err error
}

func (e *IntegrityComputationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("integrity computation failed: %s: %v", e.Msg, e.Err)
	}
	return "integrity computation failed: " + e.Msg
}

func (e *IntegrityComputationError) Unwrap() error {
	return e.Err
}

// Record is the audit entry for a single signing operation. Records are
// created once and never modified.
type Record struct {
	DocumentID   string    `json:"documentId"`
	OriginalHash string    `json:"originalHash"`
	FinalHash    string    `json:"finalHash"`
	SignerID     string    `json:"signerId"`
	Algorithm    Algorithm `json:"algorithm"`
	Timestamp    time.Time `json:"signedAt"`
}

// Recorder produces integrity records.
type Recorder struct {
	algorithm Algorithm
	now       func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithAlgorithm selects the digest algorithm.
func WithAlgorithm(a Algorithm) Option {
	return func(r *Recorder) { r.algorithm = a }
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder returns a Recorder using SHA256 and the wall clock unless
// configured otherwise.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		algorithm: SHA256,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Algorithm returns the digest algorithm used by the recorder.
func (r *Recorder) Algorithm() Algorithm {
	return r.algorithm
}

// Hash returns the hex encoded digest of data.
func (r *Recorder) Hash(data []byte) (string, error) {
	h, err := r.algorithm.new()
	if err != nil {
		return "", &IntegrityComputationError{Msg: "digest setup", Err: err}
	}
	if _, err := h.Write(data); err != nil {
		return "", &IntegrityComputationError{Msg: "digest write", Err: err}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashReader returns the hex encoded digest of everything read from rd.
func (r *Recorder) HashReader(rd io.Reader) (string, error) {
	h, err := r.algorithm.new()
	if err != nil {
		return "", &IntegrityComputationError{Msg: "digest setup", Err: err}
	}
	if _, err := io.Copy(h, rd); err != nil {
		return "", &IntegrityComputationError{Msg: "read input", Err: err}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// RecordSigning hashes the unmodified and the modified document and returns
// the resulting record. Either both hashes succeed or an
// *IntegrityComputationError is returned and no record exists.
func (r *Recorder) RecordSigning(original, final []byte, documentID, signerID string) (Record, error) {
	originalHash, err := r.Hash(original)
	if err != nil {
		return Record{}, fmt.Errorf("original document: %w", err)
	}
	finalHash, err := r.Hash(final)
	if err != nil {
		return Record{}, fmt.Errorf("final document: %w", err)
	}

	return Record{
		DocumentID:   documentID,
		OriginalHash: originalHash,
		FinalHash:    finalHash,
		SignerID:     signerID,
		Algorithm:    r.algorithm,
		Timestamp:    r.now().UTC(),
	}, nil
}

// Verify re-hashes rd and reports whether it matches the expected hex digest.
func (r *Recorder) Verify(rd io.Reader, expected string) (bool, error) {
	got, err := r.HashReader(rd)
	if err != nil {
		return false, err
	}
	want := strings.ToLower(strings.TrimSpace(expected))
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1, nil
}

// Hash returns the hex encoded SHA256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
