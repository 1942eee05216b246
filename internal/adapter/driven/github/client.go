// Package github implements the ForgeClient port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/overridebot/internal/domain/model"
	"github.com/ericfisherdev/overridebot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ForgeClient = (*Client)(nil)

// Client implements the driven.ForgeClient port for a single repository.
type Client struct {
	gh    *gh.Client
	owner string
	repo  string
}

// NewClient creates a new GitHub API client for repoFullName ("owner/repo")
// with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token, repoFullName string) (*Client, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{
		gh:    client,
		owner: owner,
		repo:  repo,
	}, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, repoFullName string) (*Client, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{
		gh:    client,
		owner: owner,
		repo:  repo,
	}, nil
}

// RepoFullName returns the "owner/repo" this client operates on.
func (c *Client) RepoFullName() string {
	return c.owner + "/" + c.repo
}

// ListOpenChangeRequests retrieves all open pull requests of the repository.
// It handles pagination automatically and maps go-github types to domain model types.
func (c *Client) ListOpenChangeRequests(ctx context.Context) ([]model.ChangeRequestRef, error) {
	opts := &gh.PullRequestListOptions{
		State:     "open",
		Sort:      "created",
		Direction: "asc",
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}

	refs := []model.ChangeRequestRef{}

	for {
		prs, resp, err := c.gh.PullRequests.List(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing pull requests for %s (page %d): %w", c.RepoFullName(), opts.Page, err)
		}

		logRateLimit(resp, c.RepoFullName()+"/pulls", opts.Page, len(prs))

		for _, pr := range prs {
			refs = append(refs, mapPullRequest(pr))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return refs, nil
}

// ListStatuses retrieves every commit status for ref. GitHub returns statuses in
// reverse chronological order, so the latest status of each context comes first.
// It handles pagination automatically and maps go-github types to domain model types.
func (c *Client) ListStatuses(ctx context.Context, ref string) ([]model.CommitStatus, error) {
	opts := &gh.ListOptions{PerPage: 100}

	statuses := []model.CommitStatus{}

	for {
		page, resp, err := c.gh.Repositories.ListStatuses(ctx, c.owner, c.repo, ref, opts)
		if err != nil {
			return nil, fmt.Errorf("listing statuses for %s@%s (page %d): %w", c.RepoFullName(), ref, opts.Page, err)
		}

		logRateLimit(resp, c.RepoFullName()+"/statuses", opts.Page, len(page))

		for _, s := range page {
			statuses = append(statuses, mapRepoStatus(s))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return statuses, nil
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapPullRequest converts a go-github PullRequest to a domain ChangeRequestRef.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapPullRequest(pr *gh.PullRequest) model.ChangeRequestRef {
	return model.ChangeRequestRef{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		HeadSHA:   pr.GetHead().GetSHA(),
		URL:       pr.GetHTMLURL(),
		UpdatedAt: pr.GetUpdatedAt().Time,
	}
}

// mapRepoStatus converts a go-github RepoStatus to a domain CommitStatus.
// Missing fields map to empty strings; the domain layer treats those entries as malformed.
func mapRepoStatus(s *gh.RepoStatus) model.CommitStatus {
	return model.CommitStatus{
		Context:     s.GetContext(),
		State:       s.GetState(),
		Description: s.GetDescription(),
		TargetURL:   s.GetTargetURL(),
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
