// Package archive persists schemas and reads them back lazily.
package archive

import (
	"fmt"

	"github.com/tordrt/schemagraph/internal/schema"
)

// DefaultGroup is the connection group used when none is configured
const DefaultGroup = "default"

// IndexKey returns the cache key holding the archived table index of a group
func IndexKey(group string) string {
	return fmt.Sprintf("schema:%s", group)
}

// TableKey returns the cache key holding one archived table of a group
func TableKey(group, table string) string {
	return fmt.Sprintf("schema:%s:%s", group, table)
}

// readTracker keeps the container returned by the latest Read. Errors an
// earlier container recorded are moved to pending when it is replaced, so
// only one container stays reachable from the handler.
type readTracker struct {
	latest  *schema.Lazy
	pending []error
}

func (r *readTracker) track(l *schema.Lazy) {
	if r.latest != nil {
		r.pending = append(r.pending, r.latest.Errors()...)
	}
	r.latest = l
}

func (r *readTracker) drain() []error {
	errs := r.pending
	r.pending = nil
	if r.latest != nil {
		errs = append(errs, r.latest.Errors()...)
	}
	return errs
}
