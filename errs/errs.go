// Package errs defines the error taxonomy shared across the data-availability
// pipeline: admission, pipeline, proofs, merkle, P2P, storage, and sampler
// layers each contribute a Kind. RPC handlers collapse every Kind to the
// single JSON-RPC error code 1, carrying the Kind and message in the payload.
package errs

import "fmt"

// Kind tags the layer and specific failure mode of an Error.
type Kind int

const (
	Unknown Kind = iota

	// Admission layer.
	EmptyInput
	MalformedMetadata
	RuntimeRejected
	WrongCall
	HashMismatch
	SizeMismatch
	CommitmentMismatch

	// Pipeline layer.
	InvalidSize
	CapacityExceeded
	SrsTooSmall
	DomainMisconfigured

	// Proofs layer.
	BadProof
	BadCommitment
	OutOfBoundsCell

	// Merkle layer.
	InvalidRoot
	InvalidProof
	OverflowedNumberOfLeaves
	InvalidNumberOfLeaves
	InvalidLeafIndex

	// P2P layer.
	Timeout
	QueueFull
	SizeLimit
	ProtocolMismatch

	// Storage layer.
	Corrupted
	NotFound
	WriteFailed

	// Sampler layer.
	SampleMismatch
	OwnerUnreachable

	// Extension decoding.
	UnsupportedExtensionVersion

	// Generic admission backpressure (submission rejected, not rate-gated
	// in the rejecting sense but too busy to accept right now).
	Busy
)

var kindNames = map[Kind]string{
	Unknown:                     "Unknown",
	EmptyInput:                  "EmptyInput",
	MalformedMetadata:           "MalformedMetadata",
	RuntimeRejected:             "RuntimeRejected",
	WrongCall:                   "WrongCall",
	HashMismatch:                "HashMismatch",
	SizeMismatch:                "SizeMismatch",
	CommitmentMismatch:          "CommitmentMismatch",
	InvalidSize:                 "InvalidSize",
	CapacityExceeded:            "CapacityExceeded",
	SrsTooSmall:                 "SrsTooSmall",
	DomainMisconfigured:         "DomainMisconfigured",
	BadProof:                    "BadProof",
	BadCommitment:               "BadCommitment",
	OutOfBoundsCell:             "OutOfBoundsCell",
	InvalidRoot:                 "InvalidRoot",
	InvalidProof:                "InvalidProof",
	OverflowedNumberOfLeaves:    "OverflowedNumberOfLeaves",
	InvalidNumberOfLeaves:       "InvalidNumberOfLeaves",
	InvalidLeafIndex:            "InvalidLeafIndex",
	Timeout:                     "Timeout",
	QueueFull:                   "QueueFull",
	SizeLimit:                   "SizeLimit",
	ProtocolMismatch:            "ProtocolMismatch",
	Corrupted:                   "Corrupted",
	NotFound:                    "NotFound",
	WriteFailed:                 "WriteFailed",
	SampleMismatch:              "SampleMismatch",
	OwnerUnreachable:            "OwnerUnreachable",
	UnsupportedExtensionVersion: "UnsupportedExtensionVersion",
	Busy:                        "Busy",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Error is the structured error type carried across layer boundaries. RPC
// handlers map every Error to JSON-RPC code 1, embedding Kind and Msg in the
// error payload so callers can distinguish failure modes without parsing
// free-form text.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error of the given Kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given Kind wrapping an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == kind
}
