package model

import "strings"

// CommitStatus is a raw status entry as reported by the forge for one commit.
type CommitStatus struct {
	Context     string // CI context identifier (e.g., "ci/prow/hco-e2e-aws").
	State       string // success, failure, pending, error (forge-defined, may be anything).
	Description string // Human-readable description; carries the manual override marker.
	TargetURL   string // Link to the job run.
}

// CheckState is the normalized state of a CheckRun.
type CheckState string

const (
	CheckStateSuccess CheckState = "success"
	CheckStateFailure CheckState = "failure"
	CheckStatePending CheckState = "pending"
	CheckStateError   CheckState = "error"
	CheckStateAborted CheckState = "aborted"
)

// CheckRun is one parsed status record. It is immutable after ParseCheckRun.
type CheckRun struct {
	Context    string
	State      CheckState
	Overridden bool
	TargetURL  string
}

// ParseCheckRun converts a raw status into a CheckRun. The returned bool is false
// for malformed entries (missing context or state), which callers skip.
// Overridden is set when the description contains overrideMarker.
func ParseCheckRun(status CommitStatus, overrideMarker string) (CheckRun, bool) {
	context := strings.TrimSpace(status.Context)
	state := strings.ToLower(strings.TrimSpace(status.State))
	if context == "" || state == "" {
		return CheckRun{}, false
	}

	return CheckRun{
		Context:    context,
		State:      CheckState(state),
		Overridden: overrideMarker != "" && strings.Contains(status.Description, overrideMarker),
		TargetURL:  status.TargetURL,
	}, true
}
