package local

import "errors"

// errNotFound is internal: absence is reported through the found return,
// never as an error, matching the tier's soft-failure contract.
var errNotFound = errors.New("local: record not found")
