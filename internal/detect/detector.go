// Package detect tracks which event identifiers have already been evaluated
// for new-event notification and yields the delta of each poll.
package detect

import "github.com/seismowatch/quake-alert-service/internal/domain"

// Detector holds the seen set for one viewer session. The set grows
// monotonically and never evicts: an event that drops out of the feed for a
// poll (upstream latency, pruning) must not be re-reported as new when it
// reappears. An ID that disappears permanently simply stays in the set for
// the session's lifetime.
//
// Not safe for concurrent use; the pipeline calls it from its single poll
// loop, which is the only mutator.
type Detector struct {
	seen map[string]struct{}
}

// New creates a Detector with an empty seen set.
func New() *Detector {
	return &Detector{seen: make(map[string]struct{})}
}

// Diff returns the events from the current poll whose identifier has not
// been seen before, and unions the current poll's full identifier set into
// the seen set. It must run once per poll even when the delta is empty so
// the set stays current.
//
// Each ID is marked seen as the delta is built, so a batch carrying the same
// identifier twice (synthetic IDs collapse duplicated malformed rows onto
// one ID) contributes a single delta entry.
func (d *Detector) Diff(events []domain.Earthquake) []domain.Earthquake {
	var delta []domain.Earthquake
	for _, ev := range events {
		if _, ok := d.seen[ev.ID]; ok {
			continue
		}
		d.seen[ev.ID] = struct{}{}
		delta = append(delta, ev)
	}
	return delta
}

// SeenCount reports the size of the seen set.
func (d *Detector) SeenCount() int {
	return len(d.seen)
}
