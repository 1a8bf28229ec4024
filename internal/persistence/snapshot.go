package persistence

import (
	"slices"
	"strconv"

	"github.com/talgya/colony/internal/engine"
)

// RestoredEvents is how many of the newest events a restore brings back.
const RestoredEvents = 200

// EventsAfter returns the events with a tick greater than since.
func EventsAfter(events []engine.Event, since uint64) []engine.Event {
	i := slices.IndexFunc(events, func(e engine.Event) bool { return e.Tick > since })
	if i < 0 {
		return nil
	}
	return events[i:]
}

// Chronological reverses a newest-first event list in place.
func Chronological(events []engine.Event) []engine.Event {
	slices.Reverse(events)
	return events
}

// SnapshotMeta returns the world_meta entries recorded with a snapshot.
func SnapshotMeta(snap engine.Snapshot) map[string]string {
	return map[string]string{
		MetaLastTick: strconv.FormatUint(snap.Tick, 10),
		MetaSeed:     strconv.FormatInt(snap.Seed, 10),
		MetaSession:  snap.SessionID.String(),
	}
}
