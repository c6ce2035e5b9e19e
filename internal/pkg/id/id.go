package id

import "github.com/oklog/ulid/v2"

// New returns a fresh ULID. Sorting by ID therefore sorts by creation time,
// which keeps attempt listings in insertion order without an extra sort key.
func New() string {
	return ulid.Make().String()
}
