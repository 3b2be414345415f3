package main

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"

	"github.com/rybkr/sizehist/internal/progress"
)

// phaseLabels maps each pipeline phase to the text shown while it runs.
var phaseLabels = map[progress.Phase]string{
	progress.PhaseOpen:              "Opening repository",
	progress.PhaseHeadCheck:         "Checking HEAD cursor",
	progress.PhaseLoadPackSizes:     "Indexing pack sizes",
	progress.PhaseBuildHeadSnapshot: "Snapshotting HEAD tree",
	progress.PhaseCollectCommits:    "Walking commit history",
	progress.PhasePlan:              "Planning unscanned commits",
	progress.PhaseShortCircuit:      "Updating HEAD cursor",
	progress.PhaseLoadSeenBlobs:     "Loading seen blobs",
	progress.PhaseScan:              "Scanning commits",
	progress.PhaseApply:             "Applying scan to index",
	progress.PhasePersistHead:       "Persisting HEAD cursor",
	progress.PhaseLoadTree:          "Loading size tree",
}

// spinnerReporter drives a single pterm spinner across a whole scan,
// relabeling its text as each phase starts. quiet suppresses all rendering,
// which both -quiet and -output json request.
type spinnerReporter struct {
	quiet   bool
	spinner *pterm.SpinnerPrinter
}

func newSpinnerReporter(quiet bool) *spinnerReporter {
	r := &spinnerReporter{quiet: quiet}
	if !quiet {
		s, _ := pterm.DefaultSpinner.Start("Starting scan")
		r.spinner = s
	}
	return r
}

// StartPhase relabels the spinner text and returns a timed handle whose
// elapsed time is discarded; neither the spinner nor the log shows a
// per-phase duration.
func (r *spinnerReporter) StartPhase(phase progress.Phase) progress.Handle {
	if r.spinner != nil {
		if label, ok := phaseLabels[phase]; ok {
			r.spinner.UpdateText(label)
		}
	}
	return progress.NewTimedHandle(func(time.Duration) {})
}

// CommitScanned updates the spinner text with a running count.
func (r *spinnerReporter) CommitScanned(index, total int) {
	if r.spinner != nil {
		r.spinner.UpdateText(fmt.Sprintf("Scanning commits (%d/%d)", index, total))
	}
}

// Message replaces the spinner text with msg until the next update.
func (r *spinnerReporter) Message(msg string) {
	if r.spinner != nil {
		r.spinner.UpdateText(msg)
	}
}

// stop finalizes the spinner: a success mark if err is nil, a failure mark
// otherwise. A no-op when the reporter is quiet.
func (r *spinnerReporter) stop(err error) {
	if r.spinner == nil {
		return
	}
	if err != nil {
		r.spinner.Fail("scan failed")
		return
	}
	r.spinner.Success("scan complete")
}
