package model

import "time"

// ChangeRequestRef identifies an open pull request as listed by the forge.
type ChangeRequestRef struct {
	Number    int
	Title     string
	HeadSHA   string // Ref whose statuses are evaluated.
	URL       string
	UpdatedAt time.Time
}

// ChangeRequest accumulates the classified lanes of one pull request.
// It is owned by a single pipeline pass and discarded afterwards.
type ChangeRequest struct {
	Number int
	Title  string

	groups     map[string]*TestGroup
	groupOrder []string
	laneNames  map[string]struct{}
}

// NewChangeRequest creates an empty ChangeRequest for the given ref.
func NewChangeRequest(ref ChangeRequestRef) *ChangeRequest {
	return &ChangeRequest{
		Number:    ref.Number,
		Title:     ref.Title,
		groups:    make(map[string]*TestGroup),
		laneNames: make(map[string]struct{}),
	}
}

// AddLane records run as a lane of the named test group, creating the group on
// first use. It returns false without changing anything when a lane with the
// same name was already added to this change request.
func (cr *ChangeRequest) AddLane(testGroup, provider string, run CheckRun) bool {
	if _, seen := cr.laneNames[run.Context]; seen {
		return false
	}
	cr.laneNames[run.Context] = struct{}{}

	group, ok := cr.groups[testGroup]
	if !ok {
		group = &TestGroup{Name: testGroup}
		cr.groups[testGroup] = group
		cr.groupOrder = append(cr.groupOrder, testGroup)
	}
	group.Lanes = append(group.Lanes, NewLane(testGroup, provider, run))
	return true
}

// Groups returns the test groups in the order they were first seen.
func (cr *ChangeRequest) Groups() []*TestGroup {
	groups := make([]*TestGroup, 0, len(cr.groupOrder))
	for _, name := range cr.groupOrder {
		groups = append(groups, cr.groups[name])
	}
	return groups
}

// Group returns the named test group, or nil.
func (cr *ChangeRequest) Group(name string) *TestGroup {
	return cr.groups[name]
}

// LaneCount returns the number of distinct lanes recorded.
func (cr *ChangeRequest) LaneCount() int {
	return len(cr.laneNames)
}

// Candidate is a lane nominated for override together with the lanes that justify it.
type Candidate struct {
	Lane        Lane
	JustifiedBy []Lane
}

// Outcome is the result of processing one change request during a run.
type Outcome struct {
	Number     int
	Title      string
	Lanes      int
	Candidates []Candidate
	Comment    string // Empty when no override was nominated.
	Posted     bool
	Err        error
}

// RunReport summarizes one pass over all open change requests.
type RunReport struct {
	ID         int64 // Assigned by the run store; zero when not persisted.
	Repo       string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	Outcomes   []Outcome
}

// CandidateCount returns the total number of nominated lanes across all outcomes.
func (r *RunReport) CandidateCount() int {
	var n int
	for _, o := range r.Outcomes {
		n += len(o.Candidates)
	}
	return n
}

// FailedCount returns the number of change requests whose processing failed.
func (r *RunReport) FailedCount() int {
	var n int
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
