// Package ntfserr defines the error taxonomy shared across the engine:
// configuration failures abort startup, I/O failures are fatal during
// harvest but recoverable during tap handling, malformed structures and
// policy rejections are always recoverable (skip and count).
package ntfserr

import "errors"

// Category distinguishes how a caller should react to an error.
type Category int

const (
	// Configuration indicates the device could not be opened or no NTFS
	// partition was found. Fatal: abort startup.
	Configuration Category = iota
	// IO indicates a read or seek failed against the device or a local
	// file. Fatal during harvest, recoverable during tap handling.
	IO
	// Malformed indicates an attribute or record violates a length
	// invariant. Always recoverable: skip the offending unit and count it.
	Malformed
	// Policy indicates a well-formed result was rejected by a size, age,
	// or range guard. Always a silent skip.
	Policy
)

// Error wraps an underlying cause with a Category so callers can branch
// with errors.Is / a type switch without string-matching messages.
type Error struct {
	Category Category
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func New(cat Category, op string, err error) error {
	return &Error{Category: cat, Op: op, Err: err}
}

// Is reports whether err carries the given category.
func Is(err error, cat Category) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == cat
	}
	return false
}

var (
	// ErrNoNTFSPartition is returned when the MBR contains no type-0x07 entry.
	ErrNoNTFSPartition = errors.New("no NTFS partition found")
	// ErrNotNTFS is returned when a boot sector lacks the "NTFS" signature.
	ErrNotNTFS = errors.New("not an NTFS boot sector")
)
