package repositories

import "errors"

// ErrNotFound is returned by repositories and cart stores when the requested
// record does not exist. Services translate it into their own taxonomy.
var ErrNotFound = errors.New("record not found")
