package harvest

// Outcome is the terminal state of one entry within a run.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeSucceeded
	OutcomeFailedTimeout
	OutcomeFailedError
)

// String returns the outcome's display name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailedTimeout:
		return "failed-timeout"
	case OutcomeFailedError:
		return "failed-error"
	}
	return "unknown"
}

// Failed reports whether the outcome is one of the failure states.
func (o Outcome) Failed() bool {
	return o == OutcomeFailedTimeout || o == OutcomeFailedError
}

// RunStatistics counts what happened during a single run. Counters only
// grow during a run and are never persisted.
type RunStatistics struct {
	Discovered int // unique names in the catalog listing
	Duplicates int // repeated names dropped from the listing
	Attempted  int // extraction calls made
	Succeeded  int
	Failed     int
	TimedOut   int // subset of Failed
	Skipped    int // already present in the result store
	Retried    int // attempted in an earlier run without success

	TriggersFound int
	ActionsFound  int

	PersistErrors int
}

// Record updates the counters for one entry outcome. triggers and actions
// are only counted for successful outcomes.
func (s *RunStatistics) Record(o Outcome, triggers, actions int) {
	switch o {
	case OutcomeSkipped:
		s.Skipped++
		return
	case OutcomeSucceeded:
		s.Succeeded++
		s.TriggersFound += triggers
		s.ActionsFound += actions
	case OutcomeFailedTimeout:
		s.Failed++
		s.TimedOut++
	case OutcomeFailedError:
		s.Failed++
	}
	s.Attempted++
}
