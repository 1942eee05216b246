package driven

import (
	"context"

	"github.com/ericfisherdev/overridebot/internal/domain/model"
)

// ForgeClient defines the driven port for the code forge hosting the watched repository.
// Implementations own pagination, retries and authentication.
type ForgeClient interface {
	// ListOpenChangeRequests returns every open pull request of the repository.
	ListOpenChangeRequests(ctx context.Context) ([]model.ChangeRequestRef, error)
	// ListStatuses returns the complete, fully paginated status list for a ref,
	// newest entries first.
	ListStatuses(ctx context.Context, ref string) ([]model.CommitStatus, error)
	// PostComment adds a top-level comment to the pull request.
	PostComment(ctx context.Context, number int, body string) error
}
