package archive

import "fmt"

// Kind classifies an [Error]. Kind itself satisfies the error interface so
// that callers can test for a specific failure class with
// errors.Is(err, archive.CrcMismatch) without needing a parallel set of
// sentinel error variables.
type Kind int

// The error taxonomy. Every failure the codec returns carries exactly one
// of these kinds.
const (
	// InvalidArgument: null/empty inputs, paths outside the allowed set.
	InvalidArgument Kind = iota
	// IO: any lower-level read/write/seek/open failure.
	IO
	// UnexpectedEOF: source underran mid-member or mid-header.
	UnexpectedEOF
	// OutOfMemory: buffer allocation failed at every retry size.
	OutOfMemory
	// BadMagic: archive header's magic bytes are not "ARCH".
	BadMagic
	// UnsupportedVersion: archive header's version is not one this codec understands.
	UnsupportedVersion
	// Corrupted: decoder rejected stored bytes, or a structural violation was found.
	Corrupted
	// CrcMismatch: a stored CRC did not match the computed CRC.
	CrcMismatch
	// NameTooLong: a member name exceeds 65535 bytes.
	NameTooLong
	// Compression: encoder/decoder failure not otherwise classified.
	Compression
	// Internal: an invariant was violated.
	Internal
)

var kindNames = map[Kind]string{
	InvalidArgument:    "invalid argument",
	IO:                 "io",
	UnexpectedEOF:      "unexpected eof",
	OutOfMemory:        "out of memory",
	BadMagic:           "bad magic",
	UnsupportedVersion: "unsupported version",
	Corrupted:          "corrupted",
	CrcMismatch:        "crc mismatch",
	NameTooLong:        "name too long",
	Compression:        "compression",
	Internal:           "internal",
}

// Error satisfies the error interface for Kind, so Kind alone can be used as
// an errors.Is target.
func (k Kind) Error() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "unknown error kind"
}

// Error is the one error type the archive codec returns. Op names the
// operation that failed (e.g. "AddFile", "ReadFileHeader"); Err, if
// non-nil, is the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("archive: %s: %s: %v", e.Op, e.Kind, e.Err)
	}

	return fmt.Sprintf("archive: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the Kind this error carries, so
// errors.Is(err, archive.CrcMismatch) works without a type assertion.
func (e *Error) Is(target error) bool {
	kind, ok := target.(Kind)
	return ok && e.Kind == kind
}

func newErr(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
