package model

// LaneResult is the outcome of a single lane, derived once from its CheckRun.
type LaneResult string

const (
	LaneResultSuccess    LaneResult = "success"
	LaneResultOverridden LaneResult = "overridden"
	LaneResultFailure    LaneResult = "failure"
	LaneResultPending    LaneResult = "pending"
	LaneResultError      LaneResult = "error"
	LaneResultAborted    LaneResult = "aborted"
	LaneResultInvalid    LaneResult = "invalid"
)

// ResultFor maps a check state and its override flag to a LaneResult.
// The mapping is total: unrecognized states yield LaneResultInvalid.
func ResultFor(state CheckState, overridden bool) LaneResult {
	switch state {
	case CheckStateSuccess:
		if overridden {
			return LaneResultOverridden
		}
		return LaneResultSuccess
	case CheckStateFailure:
		return LaneResultFailure
	case CheckStatePending:
		return LaneResultPending
	case CheckStateError:
		return LaneResultError
	case CheckStateAborted:
		return LaneResultAborted
	default:
		return LaneResultInvalid
	}
}

// Overridable reports whether a lane with this result may be nominated for override.
// Aborted and Invalid lanes are never nominated.
func (r LaneResult) Overridable() bool {
	switch r {
	case LaneResultFailure, LaneResultError, LaneResultPending:
		return true
	default:
		return false
	}
}

// Lane is one provider execution of a test group.
type Lane struct {
	Name      string // Full raw context, unique within a change request.
	TestGroup string
	Provider  string
	Result    LaneResult
	TargetURL string
}

// NewLane builds a Lane from a CheckRun, computing its result once.
func NewLane(testGroup, provider string, run CheckRun) Lane {
	return Lane{
		Name:      run.Context,
		TestGroup: testGroup,
		Provider:  provider,
		Result:    ResultFor(run.State, run.Overridden),
		TargetURL: run.TargetURL,
	}
}
