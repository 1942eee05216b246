package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/overridebot/internal/domain/model"
	"github.com/ericfisherdev/overridebot/internal/domain/port/driven"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Repo   string `json:"repo"`
	Time   string `json:"time"`
}

// RunSummaryResponse is the JSON representation of a run in the run list.
type RunSummaryResponse struct {
	ID             int64  `json:"id"`
	Repo           string `json:"repo"`
	StartedAt      string `json:"started_at"`
	FinishedAt     string `json:"finished_at"`
	DryRun         bool   `json:"dry_run"`
	ChangeRequests int    `json:"change_requests"`
	Candidates     int    `json:"candidates"`
	Failures       int    `json:"failures"`
}

// RunResponse is the JSON representation of a single run.
type RunResponse struct {
	ID         int64             `json:"id"`
	Repo       string            `json:"repo"`
	StartedAt  string            `json:"started_at"`
	FinishedAt string            `json:"finished_at"`
	DryRun     bool              `json:"dry_run"`
	Outcomes   []OutcomeResponse `json:"outcomes"`
	Error      string            `json:"error,omitempty"` // Set when the run as a whole failed.
}

// OutcomeResponse is the processing result of one pull request.
type OutcomeResponse struct {
	Number      int                 `json:"number"`
	Title       string              `json:"title"`
	Lanes       int                 `json:"lanes"`
	Candidates  []CandidateResponse `json:"override_candidates"`
	Comment     string              `json:"comment,omitempty"`
	CommentHTML string              `json:"comment_html,omitempty"`
	Posted      bool                `json:"posted"`
	Error       string              `json:"error,omitempty"`
}

// CandidateResponse is a lane nominated for override.
type CandidateResponse struct {
	Lane        string   `json:"lane"`
	TestGroup   string   `json:"test_group"`
	Provider    string   `json:"provider"`
	Result      string   `json:"result"`
	JustifiedBy []string `json:"justified_by"`
}

// toRunSummaryResponse converts a stored run summary to its JSON representation.
func toRunSummaryResponse(s driven.RunSummary) RunSummaryResponse {
	return RunSummaryResponse{
		ID:             s.ID,
		Repo:           s.Repo,
		StartedAt:      s.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:     s.FinishedAt.UTC().Format(time.RFC3339),
		DryRun:         s.DryRun,
		ChangeRequests: s.ChangeRequests,
		Candidates:     s.Candidates,
		Failures:       s.Failures,
	}
}

// toRunResponse converts a RunReport to its JSON representation, rendering each
// comment to sanitized HTML.
func toRunResponse(r model.RunReport) RunResponse {
	outcomes := make([]OutcomeResponse, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		outcomes = append(outcomes, toOutcomeResponse(o))
	}

	return RunResponse{
		ID:         r.ID,
		Repo:       r.Repo,
		StartedAt:  r.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt: r.FinishedAt.UTC().Format(time.RFC3339),
		DryRun:     r.DryRun,
		Outcomes:   outcomes,
	}
}

func toOutcomeResponse(o model.Outcome) OutcomeResponse {
	candidates := make([]CandidateResponse, 0, len(o.Candidates))
	for _, c := range o.Candidates {
		justified := make([]string, 0, len(c.JustifiedBy))
		for _, l := range c.JustifiedBy {
			justified = append(justified, l.Name)
		}
		candidates = append(candidates, CandidateResponse{
			Lane:        c.Lane.Name,
			TestGroup:   c.Lane.TestGroup,
			Provider:    c.Lane.Provider,
			Result:      string(c.Lane.Result),
			JustifiedBy: justified,
		})
	}

	resp := OutcomeResponse{
		Number:      o.Number,
		Title:       o.Title,
		Lanes:       o.Lanes,
		Candidates:  candidates,
		Comment:     o.Comment,
		CommentHTML: RenderComment(o.Comment),
		Posted:      o.Posted,
	}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	return resp
}
