// README: Concurrency tests for offer transitions (run with -race).
package offer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"rideline/internal/types"
)

func TestConcurrentAcceptSameRide(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &Offer{ID: "r1", Status: StatusRequested, DriverID: "d1"})

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.Accept(ctx, AcceptCommand{RideID: "r1", DriverID: "d1"})
		}()
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrAlreadyAccepted) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}
}

func TestConcurrentAcceptVsDecline(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &Offer{ID: "r1", Status: StatusRequested, DriverID: "d1"})

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- svc.Accept(ctx, AcceptCommand{RideID: "r1", DriverID: "d1"})
	}()
	go func() {
		defer wg.Done()
		errs <- svc.Decline(ctx, DeclineCommand{RideID: "r1", DriverID: "d1"})
	}()
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrNotRequested) && !errors.Is(err, ErrAlreadyAccepted) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}

	o := mustGet(t, svc, "r1")
	switch o.Status {
	case StatusAccepted:
		if len(o.DeclinedDriverIDs) != 0 {
			t.Fatalf("accepted ride carries declines: %v", o.DeclinedDriverIDs)
		}
	case StatusRequestedPendingDriver:
		if o.DriverID != "" {
			t.Fatalf("declined ride kept driver %s", o.DriverID)
		}
	default:
		t.Fatalf("unexpected final status: %s", o.Status)
	}
}

func TestConcurrentDeclinesAcrossRides(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ids := []types.ID{"r1", "r2", "r3", "r4"}
	for _, id := range ids {
		store.Put(&Offer{ID: id, Status: StatusRequested, DriverID: "d1"})
	}
	svc := NewService(store)

	var wg sync.WaitGroup
	for _, id := range ids {
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func(rid types.ID) {
				defer wg.Done()
				_ = svc.Decline(ctx, DeclineCommand{RideID: rid, DriverID: "d1"})
			}(id)
		}
	}
	wg.Wait()

	for _, id := range ids {
		o := mustGet(t, svc, id)
		if len(o.DeclinedDriverIDs) != 1 {
			t.Fatalf("%s: declined ids = %v", id, o.DeclinedDriverIDs)
		}
	}
}
