package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/overridebot/internal/domain/model"
)

// buildChangeRequest classifies raw statuses the same way OverrideService does.
func buildChangeRequest(t *testing.T, statuses []model.CommitStatus) *model.ChangeRequest {
	t.Helper()

	c := NewClassifier(DefaultNamespaces, DefaultExcludedMarkers, nil)
	cr := model.NewChangeRequest(model.ChangeRequestRef{Number: 1, Title: "test"})
	for _, s := range statuses {
		run, ok := model.ParseCheckRun(s, DefaultOverrideMarker)
		if !ok {
			continue
		}
		group, provider, ok := c.Classify(run.Context)
		if !ok {
			continue
		}
		cr.AddLane(group, provider, run)
	}
	return cr
}

func laneNames(lanes []model.Lane) []string {
	names := make([]string, 0, len(lanes))
	for _, l := range lanes {
		names = append(names, l.Name)
	}
	return names
}

func TestNominate_OneSuccessOneFailure(t *testing.T) {
	cr := buildChangeRequest(t, []model.CommitStatus{
		{Context: "prow/group1-aws", State: "success"},
		{Context: "prow/group1-gcp", State: "failure"},
	})

	group := cr.Group("group1")
	require.NotNil(t, group)
	assert.True(t, group.SucceededAny())

	candidates := Nominate(cr)
	require.Len(t, candidates, 1)
	assert.Equal(t, "prow/group1-gcp", candidates[0].Lane.Name)
	assert.Equal(t, []string{"prow/group1-aws"}, laneNames(candidates[0].JustifiedBy))
}

func TestNominate_NoSuccessNoCandidates(t *testing.T) {
	cr := buildChangeRequest(t, []model.CommitStatus{
		{Context: "prow/group1-aws", State: "failure"},
		{Context: "prow/group1-gcp", State: "pending"},
	})

	assert.False(t, cr.Group("group1").SucceededAny())
	assert.Empty(t, Nominate(cr))
}

func TestNominate_DuplicateContextKeepsFirst(t *testing.T) {
	cr := buildChangeRequest(t, []model.CommitStatus{
		{Context: "prow/g-aws", State: "success"},
		{Context: "prow/g-aws", State: "failure"},
	})

	group := cr.Group("g")
	require.NotNil(t, group)
	require.Len(t, group.Lanes, 1)
	assert.Equal(t, model.LaneResultSuccess, group.Lanes[0].Result)
	assert.Empty(t, Nominate(cr))
}

func TestNominate_OverriddenSuccessDoesNotJustify(t *testing.T) {
	cr := buildChangeRequest(t, []model.CommitStatus{
		{Context: "prow/g-aws", State: "success", Description: "Overridden by admin"},
		{Context: "prow/g-gcp", State: "error"},
	})

	group := cr.Group("g")
	require.NotNil(t, group)
	assert.Equal(t, model.LaneResultOverridden, group.Lanes[0].Result)
	assert.False(t, group.SucceededAny())
	assert.Empty(t, Nominate(cr))
}

func TestNominate_ExcludesNonActionableResults(t *testing.T) {
	cr := buildChangeRequest(t, []model.CommitStatus{
		{Context: "prow/g-aws", State: "success"},
		{Context: "prow/g-gcp", State: "aborted"},
		{Context: "prow/g-azure", State: "cancelled"},
		{Context: "prow/g-ibm", State: "success", Description: "Overridden"},
		{Context: "prow/g-metal", State: "pending"},
		{Context: "prow/g-vsphere", State: "error"},
		{Context: "prow/g-ovirt", State: "failure"},
	})

	candidates := Nominate(cr)
	require.Len(t, candidates, 3)
	assert.Equal(t, "prow/g-metal", candidates[0].Lane.Name)
	assert.Equal(t, "prow/g-vsphere", candidates[1].Lane.Name)
	assert.Equal(t, "prow/g-ovirt", candidates[2].Lane.Name)

	for _, c := range candidates {
		assert.True(t, c.Lane.Result.Overridable(), c.Lane.Name)
		for _, j := range c.JustifiedBy {
			assert.Equal(t, model.LaneResultSuccess, j.Result)
		}
	}
}

func TestNominate_OrderAndMultipleJustifications(t *testing.T) {
	cr := buildChangeRequest(t, []model.CommitStatus{
		{Context: "ci/prow/g2-aws", State: "failure"},
		{Context: "ci/prow/g1-aws", State: "success"},
		{Context: "ci/prow/g2-gcp", State: "success"},
		{Context: "ci/prow/g1-gcp", State: "pending"},
		{Context: "ci/prow/g2-azure", State: "success"},
		{Context: "ci/prow/g2-ibm", State: "error"},
	})

	candidates := Nominate(cr)
	require.Len(t, candidates, 3)

	// g2 was seen first, so its lanes come first.
	assert.Equal(t, "ci/prow/g2-aws", candidates[0].Lane.Name)
	assert.Equal(t, []string{"ci/prow/g2-gcp", "ci/prow/g2-azure"}, laneNames(candidates[0].JustifiedBy))
	assert.Equal(t, "ci/prow/g2-ibm", candidates[1].Lane.Name)
	assert.Equal(t, "ci/prow/g1-gcp", candidates[2].Lane.Name)
	assert.Equal(t, []string{"ci/prow/g1-aws"}, laneNames(candidates[2].JustifiedBy))
}

func TestNominate_Idempotent(t *testing.T) {
	cr := buildChangeRequest(t, []model.CommitStatus{
		{Context: "prow/g1-aws", State: "success"},
		{Context: "prow/g1-gcp", State: "failure"},
		{Context: "prow/g2-aws", State: "pending"},
		{Context: "prow/g2-gcp", State: "success"},
	})

	first := Nominate(cr)
	second := Nominate(cr)
	assert.Equal(t, first, second)

	// Mutating the returned justification must not leak into later calls.
	first[0].JustifiedBy[0].Name = "mutated"
	assert.Equal(t, second, Nominate(cr))
}

func TestNominate_OnlyGroupsWithSuccess(t *testing.T) {
	cr := buildChangeRequest(t, []model.CommitStatus{
		{Context: "prow/a-aws", State: "failure"},
		{Context: "prow/a-gcp", State: "failure"},
		{Context: "prow/b-aws", State: "success"},
		{Context: "prow/b-gcp", State: "failure"},
	})

	for _, c := range Nominate(cr) {
		group := cr.Group(c.Lane.TestGroup)
		require.NotNil(t, group)
		assert.True(t, group.SucceededAny(), c.Lane.Name)
	}
}
