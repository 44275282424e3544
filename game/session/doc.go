// Package session manages simulation sessions for the car simulation server.
//
// A session owns one simulation engine built from a scenario. Sessions are
// addressed by short case-insensitive IDs (4 hex characters when generated)
// and live in memory behind a read-write mutex.
//
// Persistence:
//
// With a SessionPersistence configured, sessions are written to
// <sessions-dir>/<id>.json whenever they change. The file stores the scenario
// (including cars added after creation) and the number of rounds executed.
// Loading rebuilds the engine from the scenario and replays that many rounds,
// which reproduces the exact state because a run is deterministic.
//
//	persistence, _ := session.NewFilePersistence("sessions")
//	manager := session.NewManagerWithPersistence(persistence)
//	manager.LoadPersistedSessions()
//
//	sess, err := manager.Create("", "collision", scenario)
//
// Housekeeping:
//
// CleanupExpiredSessions drops sessions idle for longer than a given age and
// PruneDeleted drops sessions whose file was removed from disk.
package session
