// Package raytracerr defines the renderer's structural error kinds,
// grounded on spec.md 7's error taxonomy: malformed scene input and
// capacity overflow are the two error kinds that abort before
// rendering starts (main prints the error and exits with status 1); everything
// else (numerical degeneracy, zero-pdf samples) is silent by design and
// carries no error type at all.
package raytracerr

import "fmt"

// FormatError reports a malformed mesh/scene file: wrong magic bytes,
// truncated records, an unsupported variant (e.g. ASCII STL, which
// spec.md 6 requires rejecting rather than parsing).
type FormatError struct {
	File   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

// CapacityError reports a mesh or kd-tree exceeding the 2^30 element
// limit spec.md 6/7 place on triangle and node counts.
type CapacityError struct {
	Kind  string // "triangle" or "kd-tree node"
	Count int64
	Limit int64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s count %d exceeds limit %d", e.Kind, e.Count, e.Limit)
}

// MaxCount is the 2^30-1 ceiling spec.md 3/6 place on triangle indices
// and kd-tree node/child indices (30 usable bits in the packed node
// words and triangle-index fields).
const MaxCount = 1<<30 - 1
