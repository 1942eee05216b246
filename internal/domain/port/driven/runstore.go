package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/overridebot/internal/domain/model"
)

// RunStore defines the driven port for the run audit trail. It is write-mostly:
// nothing in the override pipeline reads it back.
type RunStore interface {
	// SaveRun persists a finished run with its outcomes and returns the run ID.
	SaveRun(ctx context.Context, report model.RunReport) (int64, error)
	// ListRuns returns up to limit runs, newest first, without candidate detail.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	// GetRun returns a stored run with its outcomes, or nil if not found.
	GetRun(ctx context.Context, id int64) (*model.RunReport, error)
}

// RunSummary is the list view of a stored run.
type RunSummary struct {
	ID             int64
	Repo           string
	StartedAt      time.Time
	FinishedAt     time.Time
	DryRun         bool
	ChangeRequests int
	Candidates     int
	Failures       int
}
