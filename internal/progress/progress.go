// Package progress defines the observability seam a scan reports through.
// It is deliberately free of any rendering dependency — spinners, tables,
// and colors are a concern of the command-line layer, not the core.
package progress

import "time"

// Phase names one of GitScanner's pipeline stages.
type Phase string

const (
	PhaseOpen              Phase = "open"
	PhaseHeadCheck         Phase = "head-check"
	PhaseLoadPackSizes     Phase = "load-pack-sizes"
	PhaseBuildHeadSnapshot Phase = "build-head-snapshot"
	PhaseCollectCommits    Phase = "collect-commits"
	PhasePlan              Phase = "plan"
	PhaseShortCircuit      Phase = "short-circuit"
	PhaseLoadSeenBlobs     Phase = "load-seen-blobs"
	PhaseScan              Phase = "scan"
	PhaseApply             Phase = "apply"
	PhasePersistHead       Phase = "persist-head"
	PhaseLoadTree          Phase = "load-tree"
)

// Reporter is the observability seam a GitScanner drives during a scan.
// The zero-cost implementation is Noop; a thin consumer (the CLI) supplies
// a richer one.
type Reporter interface {
	// StartPhase is called when a phase begins. The returned Handle must
	// be closed via Done when the phase completes.
	StartPhase(phase Phase) Handle
	// CommitScanned is called once per commit processed during PhaseScan.
	CommitScanned(index, total int)
	// Message reports a one-off informational event (e.g. "schema
	// rebuilt", "N packs loaded, 1 skipped").
	Message(msg string)
}

// Handle tracks one in-flight phase.
type Handle interface {
	// Done marks the phase complete, reporting how long it took.
	Done()
}

// Noop is a Reporter that discards every event. It is the default when no
// observer is wired in, and what tests use to exercise the scan pipeline
// without a terminal attached.
type Noop struct{}

// StartPhase returns a handle whose Done is a no-op.
func (Noop) StartPhase(Phase) Handle { return noopHandle{} }

// CommitScanned discards the event.
func (Noop) CommitScanned(int, int) {}

// Message discards the event.
func (Noop) Message(string) {}

type noopHandle struct{}

func (noopHandle) Done() {}

// timedHandle is a small helper reporters can embed to get elapsed-time
// tracking without reimplementing a clock.
type timedHandle struct {
	started time.Time
	onDone  func(time.Duration)
}

// NewTimedHandle returns a Handle that calls onDone with the elapsed time
// since it was created, once Done is called. Reporters that want to
// report phase duration (rather than discard it, like Noop) can build on
// this instead of tracking time.Now() themselves.
func NewTimedHandle(onDone func(time.Duration)) Handle {
	return &timedHandle{started: time.Now(), onDone: onDone}
}

func (h *timedHandle) Done() {
	h.onDone(time.Since(h.started))
}
