package model

// TestGroup is a logical test executed redundantly across providers.
type TestGroup struct {
	Name  string
	Lanes []Lane // Insertion order.
}

// SucceededLanes returns the lanes that succeeded cleanly, in lane order.
// Lanes that only reached success through a manual override are not included.
func (g *TestGroup) SucceededLanes() []Lane {
	var succeeded []Lane
	for _, lane := range g.Lanes {
		if lane.Result == LaneResultSuccess {
			succeeded = append(succeeded, lane)
		}
	}
	return succeeded
}

// SucceededAny reports whether at least one lane succeeded cleanly.
func (g *TestGroup) SucceededAny() bool {
	for _, lane := range g.Lanes {
		if lane.Result == LaneResultSuccess {
			return true
		}
	}
	return false
}
