// Copyright (c) 2024 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrAddressNotFound indicates that an operation in the address manager
	// failed due to an address lookup failure.
	ErrAddressNotFound = ErrorKind("ErrAddressNotFound")

	// ErrMalformedAddress indicates a host or port that does not describe a
	// dialable peer.
	ErrMalformedAddress = ErrorKind("ErrMalformedAddress")

	// ErrTooManyAddresses indicates an address message carried more entries
	// than a single message is allowed to.
	ErrTooManyAddresses = ErrorKind("ErrTooManyAddresses")

	// ErrSelfAddress indicates an address that refers to the local node.
	ErrSelfAddress = ErrorKind("ErrSelfAddress")

	// ErrProtectedPeer indicates an operation that is not permitted on a
	// protected peer.
	ErrProtectedPeer = ErrorKind("ErrProtectedPeer")

	// ErrDatabaseCorrupt indicates the peer database exists but could not be
	// decoded or failed validation.  It is distinct from the database simply
	// not existing, which is not an error.
	ErrDatabaseCorrupt = ErrorKind("ErrDatabaseCorrupt")

	// ErrDatabaseWrite indicates the peer database could not be written.
	ErrDatabaseWrite = ErrorKind("ErrDatabaseWrite")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies an address manager error.  It has full support for
// errors.Is and errors.As, so the caller can ascertain the specific reason for
// the error by checking the underlying error.
type Error struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// makeError creates an Error given a set of arguments.
func makeError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}
