package application

import "github.com/ericfisherdev/overridebot/internal/domain/model"

// Nominate selects the lanes of cr that can be overridden: every failed,
// errored or pending lane of a test group in which at least one sibling lane
// succeeded cleanly. Candidates are returned in group order, then lane order.
func Nominate(cr *model.ChangeRequest) []model.Candidate {
	var candidates []model.Candidate

	for _, group := range cr.Groups() {
		succeeded := group.SucceededLanes()
		if len(succeeded) == 0 {
			continue
		}

		for _, lane := range group.Lanes {
			if !lane.Result.Overridable() {
				continue
			}
			justifiedBy := make([]model.Lane, len(succeeded))
			copy(justifiedBy, succeeded)
			candidates = append(candidates, model.Candidate{
				Lane:        lane,
				JustifiedBy: justifiedBy,
			})
		}
	}

	return candidates
}
