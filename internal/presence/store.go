// Package presence registers and heartbeats a viewer session in a shared
// store so an operator can see live-viewer counts.
package presence

import (
	"context"
	"time"

	"github.com/seismowatch/quake-alert-service/internal/domain"
)

// LivenessThreshold is how recent a session's heartbeat must be for any
// reader to consider it active. Staleness is judged by readers on every
// snapshot; the store never expires or deletes sessions.
const LivenessThreshold = 5 * time.Minute

// Store is the shared session store.
type Store interface {
	// UpsertSession writes the full session record.
	UpsertSession(ctx context.Context, s domain.Session) error
	// TouchSession refreshes only the heartbeat timestamp.
	TouchSession(ctx context.Context, id string, at time.Time) error
	// ListSessions returns every session record, stale ones included.
	ListSessions(ctx context.Context) ([]domain.Session, error)
}

// CountActive counts sessions whose heartbeat is newer than now minus the
// liveness threshold. It is computed independently on every snapshot rather
// than relying on store-side expiry.
func CountActive(sessions []domain.Session, now time.Time) int {
	cutoff := now.Add(-LivenessThreshold)
	count := 0
	for _, s := range sessions {
		if s.LastSeen.After(cutoff) {
			count++
		}
	}
	return count
}
