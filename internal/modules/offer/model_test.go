// README: Offer transition table tests.
package offer

import (
	"testing"

	"rideline/internal/types"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// accept / decline from requested-class
		{StatusRequested, StatusAccepted, true},
		{StatusScheduledRequested, StatusAccepted, true},
		{StatusRequested, StatusRequestedPendingDriver, true},
		{StatusScheduledRequested, StatusRequestedPendingDriver, true},
		// dispatcher re-targets a released ride
		{StatusRequestedPendingDriver, StatusRequested, true},
		// ride progress
		{StatusAccepted, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		// cancels from every non-terminal state
		{StatusRequested, StatusCancelled, true},
		{StatusRequestedPendingDriver, StatusCancelled, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusInProgress, StatusCancelled, true},
		// invalid: terminal and legacy states have no outgoing transitions
		{StatusCompleted, StatusRequested, false},
		{StatusCancelled, StatusRequested, false},
		{StatusDeclined, StatusAccepted, false},
		// invalid: skipping states
		{StatusRequestedPendingDriver, StatusAccepted, false},
		{StatusRequested, StatusInProgress, false},
		{StatusAccepted, StatusCompleted, false},
		{StatusAccepted, StatusAccepted, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.from, tc.to)
		if got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	o := &Offer{ID: "r1", Status: StatusRequested, DeclinedDriverIDs: []types.ID{"d0"}}
	cp := o.Clone()
	cp.DeclinedDriverIDs[0] = "dx"
	cp.DeclinedDriverIDs = append(cp.DeclinedDriverIDs, "d9")
	if o.DeclinedDriverIDs[0] != "d0" || len(o.DeclinedDriverIDs) != 1 {
		t.Fatalf("clone aliased declined ids: %v", o.DeclinedDriverIDs)
	}
}
