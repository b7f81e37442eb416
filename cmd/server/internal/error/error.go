// Package srverr holds errors shared across the server's internal packages.
package srverr

import "errors"

var ErrTypeAssertMismatch = errors.New("context value had an unexpected type")
