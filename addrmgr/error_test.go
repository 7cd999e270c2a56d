// Copyright (c) 2024 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"errors"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name        string
		errorKind   ErrorKind
		description string
		wantErr     error
	}{{
		name:        "ErrAddressNotFound",
		errorKind:   ErrAddressNotFound,
		description: "address not found",
		wantErr:     ErrAddressNotFound,
	}, {
		name:        "ErrMalformedAddress",
		errorKind:   ErrMalformedAddress,
		description: "malformed address",
		wantErr:     ErrMalformedAddress,
	}, {
		name:        "ErrTooManyAddresses",
		errorKind:   ErrTooManyAddresses,
		description: "too many addresses",
		wantErr:     ErrTooManyAddresses,
	}, {
		name:        "ErrSelfAddress",
		errorKind:   ErrSelfAddress,
		description: "self address",
		wantErr:     ErrSelfAddress,
	}, {
		name:        "ErrProtectedPeer",
		errorKind:   ErrProtectedPeer,
		description: "protected peer",
		wantErr:     ErrProtectedPeer,
	}, {
		name:        "ErrDatabaseCorrupt",
		errorKind:   ErrDatabaseCorrupt,
		description: "database corrupt",
		wantErr:     ErrDatabaseCorrupt,
	}, {
		name:        "ErrDatabaseWrite",
		errorKind:   ErrDatabaseWrite,
		description: "database write",
		wantErr:     ErrDatabaseWrite,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Test makeError
			err := makeError(test.errorKind, test.description)
			if err.Description != test.description {
				t.Errorf("unexpected error description: want %q, got %q", test.description, err.Description)
			}
			// Test unwrapping
			if !errors.Is(err, test.wantErr) {
				t.Errorf("failed to find the expected error: want %v, got %v", test.wantErr, err.Err)
			}

			// Test ErrorKind.Error
			if got := test.errorKind.Error(); got != string(test.errorKind) {
				t.Errorf("unexpected errorKind: want %v, got %v", string(test.errorKind), got)
			}

			// Test Error.Error
			if got := err.Error(); got != test.description {
				t.Errorf("unexpected error: want %v, got %v", test.description, got)
			}
		})
	}
}

// TestErrorKindsDistinct ensures a corrupt database can not be mistaken for a
// failed write.
func TestErrorKindsDistinct(t *testing.T) {
	err := makeError(ErrDatabaseCorrupt, "corrupt")
	if errors.Is(err, ErrDatabaseWrite) {
		t.Fatal("corrupt database error matches write error")
	}
	var e Error
	if !errors.As(err, &e) {
		t.Fatal("unable to extract Error")
	}
}
