package syncer

import "time"

// ConnState is the connection state of the sync engine.
type ConnState int

const (
	// Disconnected means no remote archive session exists. The local
	// store remains fully functional.
	Disconnected ConnState = iota

	// Connecting means the authentication handshake is in flight.
	Connecting

	// Connected means the archive answered the handshake and sync
	// cycles may run.
	Connected
)

// String returns the state name.
func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Status is a point-in-time snapshot of the engine's externally
// observable state. The Syncing flag is meaningful only while Connected.
type Status struct {
	State    ConnState
	Syncing  bool
	LastSync time.Time
	LastErr  error
}

// CycleStats summarizes one full sync cycle.
type CycleStats struct {
	// PulledReports is the number of report blobs fetched; PullFailed
	// counts blobs that could not be fetched or parsed (skipped).
	PulledReports int
	PullFailed    int

	// ReportsAdopted / ModulesAdopted count merge-phase adoptions.
	ReportsAdopted int
	ModulesAdopted int

	// PushedBlobs is the number of blobs written back; PushFailed
	// counts blobs that could not be written (skipped).
	PushedBlobs int
	PushFailed  int
}
