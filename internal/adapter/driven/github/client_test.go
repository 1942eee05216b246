package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ghAdapter "github.com/ericfisherdev/overridebot/internal/adapter/driven/github"
	"github.com/ericfisherdev/overridebot/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) (*ghAdapter.Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := ghAdapter.NewClientWithHTTPClient(
		server.Client(),
		server.URL+"/",
		"kubevirt/hco",
	)
	require.NoError(t, err)

	return client, server
}

// prJSON is a helper struct for building GitHub API pull request responses.
type prJSON struct {
	Number    int     `json:"number"`
	Title     string  `json:"title"`
	State     string  `json:"state"`
	HTMLURL   string  `json:"html_url"`
	Head      refJSON `json:"head"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

type refJSON struct {
	Ref string `json:"ref"`
	SHA string `json:"sha,omitempty"`
}

// statusJSON is a helper struct for building GitHub API commit status responses.
type statusJSON struct {
	Context     string  `json:"context,omitempty"`
	State       string  `json:"state,omitempty"`
	Description *string `json:"description,omitempty"`
	TargetURL   string  `json:"target_url,omitempty"`
}

func strPtr(s string) *string { return &s }

func TestListOpenChangeRequests_SinglePage(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/kubevirt/hco/pulls", r.URL.Path)
		assert.Equal(t, "open", r.URL.Query().Get("state"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]prJSON{
			{
				Number:    42,
				Title:     "Bump kubevirt",
				State:     "open",
				HTMLURL:   "https://github.com/kubevirt/hco/pull/42",
				Head:      refJSON{Ref: "bump", SHA: "abc123"},
				UpdatedAt: "2026-10-19T09:00:00Z",
			},
			{
				Number: 43,
				Title:  "Fix docs",
				State:  "open",
				Head:   refJSON{Ref: "docs", SHA: "def456"},
			},
		})
	})

	client, _ := newTestClient(t, handler)
	result, err := client.ListOpenChangeRequests(context.Background())

	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, model.ChangeRequestRef{
		Number:    42,
		Title:     "Bump kubevirt",
		HeadSHA:   "abc123",
		URL:       "https://github.com/kubevirt/hco/pull/42",
		UpdatedAt: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}, result[0])
	assert.True(t, result[1].UpdatedAt.IsZero())
	assert.Equal(t, 43, result[1].Number)
	assert.Equal(t, "def456", result[1].HeadSHA)
}

func TestListOpenChangeRequests_Pagination(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")

		w.Header().Set("Content-Type", "application/json")

		if page == "" || page == "1" {
			// Page 1: include Link header pointing to page 2
			w.Header().Set("Link", fmt.Sprintf(`<%s?page=2>; rel="next"`, "http://"+r.Host+r.URL.Path))
			json.NewEncoder(w).Encode([]prJSON{{Number: 1, Title: "PR One", Head: refJSON{SHA: "sha1"}}})
		} else {
			// Page 2: no Link header (last page)
			json.NewEncoder(w).Encode([]prJSON{{Number: 2, Title: "PR Two", Head: refJSON{SHA: "sha2"}}})
		}
	})

	client, _ := newTestClient(t, handler)
	result, err := client.ListOpenChangeRequests(context.Background())

	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, 1, result[0].Number)
	assert.Equal(t, 2, result[1].Number)
}

func TestListOpenChangeRequests_Empty(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]prJSON{})
	})

	client, _ := newTestClient(t, handler)
	result, err := client.ListOpenChangeRequests(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, result, "should return empty slice, not nil")
	assert.Empty(t, result)
}

func TestListOpenChangeRequests_ServerError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "boom"})
	})

	client, _ := newTestClient(t, handler)
	_, err := client.ListOpenChangeRequests(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing pull requests for kubevirt/hco")
}

func TestListStatuses_MapsAndPaginates(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/kubevirt/hco/commits/abc123/statuses", r.URL.Path)
		page := r.URL.Query().Get("page")

		w.Header().Set("Content-Type", "application/json")

		if page == "" || page == "1" {
			w.Header().Set("Link", fmt.Sprintf(`<%s?page=2>; rel="next"`, "http://"+r.Host+r.URL.Path))
			json.NewEncoder(w).Encode([]statusJSON{
				{Context: "ci/prow/e2e-aws", State: "success", Description: strPtr("Job succeeded."), TargetURL: "https://prow/1"},
				{Context: "ci/prow/e2e-gcp", State: "failure"},
			})
		} else {
			json.NewEncoder(w).Encode([]statusJSON{
				{Context: "ci/prow/e2e-azure", State: "success", Description: strPtr("Overridden by admin")},
				{State: "pending"},
			})
		}
	})

	client, _ := newTestClient(t, handler)
	result, err := client.ListStatuses(context.Background(), "abc123")

	require.NoError(t, err)
	require.Len(t, result, 4)
	assert.Equal(t, model.CommitStatus{
		Context:     "ci/prow/e2e-aws",
		State:       "success",
		Description: "Job succeeded.",
		TargetURL:   "https://prow/1",
	}, result[0])
	assert.Equal(t, "", result[1].Description, "null description maps to empty string")
	assert.Equal(t, "Overridden by admin", result[2].Description)
	assert.Equal(t, "", result[3].Context, "missing context is passed through for the domain to skip")
}

func TestListStatuses_Error(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
	})

	client, _ := newTestClient(t, handler)
	_, err := client.ListStatuses(context.Background(), "missing")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "kubevirt/hco@missing")
}

func TestPostComment(t *testing.T) {
	var gotBody string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/kubevirt/hco/issues/42/comments", r.URL.Path)

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(raw, &payload))
		gotBody = payload["body"]

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": 1, "body": gotBody})
	})

	client, _ := newTestClient(t, handler)
	err := client.PostComment(context.Background(), 42, "/override ci/prow/e2e-gcp")

	require.NoError(t, err)
	assert.Equal(t, "/override ci/prow/e2e-gcp", gotBody)
}

func TestPostComment_Forbidden(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"message": "Resource not accessible"})
	})

	client, _ := newTestClient(t, handler)
	err := client.PostComment(context.Background(), 42, "body")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating issue comment on kubevirt/hco#42")
}

func TestNewClient_InvalidRepoName(t *testing.T) {
	tests := []struct {
		name string
		repo string
	}{
		{name: "no slash", repo: "invalid"},
		{name: "empty owner", repo: "/repo"},
		{name: "empty repo", repo: "owner/"},
		{name: "empty string", repo: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ghAdapter.NewClient("token", tc.repo)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid repo name")
		})
	}
}

func TestRepoFullName(t *testing.T) {
	client, err := ghAdapter.NewClient("token", "kubevirt/hco")
	require.NoError(t, err)
	assert.Equal(t, "kubevirt/hco", client.RepoFullName())
}
