// Package cache provides unit tests for the local snapshot cache.
package cache

import (
	"context"
	"testing"

	"github.com/mka6199/wagebook/internal/localstore"
	"github.com/mka6199/wagebook/internal/models"
)

func TestWorkersRoundTrip(t *testing.T) {
	c := New(localstore.NewMemoryStore())
	ctx := context.Background()

	rows := []models.Worker{
		{ID: "w1", Name: "Ali", MonthlySalaryAED: 2000, Status: models.WorkerStatusActive},
		{ID: "w2", Name: "Omar", MonthlySalaryAED: 3500, Status: models.WorkerStatusFormer},
	}
	if err := c.SaveWorkers(ctx, rows); err != nil {
		t.Fatalf("SaveWorkers failed: %v", err)
	}

	got := c.LoadWorkers(ctx)
	if len(got) != 2 {
		t.Fatalf("got %d workers, want 2", len(got))
	}
	if got[0].Name != "Ali" || got[1].MonthlySalaryAED != 3500 {
		t.Errorf("snapshot mismatch: %+v", got)
	}
}

func TestPaymentsRoundTrip(t *testing.T) {
	c := New(localstore.NewMemoryStore())
	ctx := context.Background()

	rows := []models.Payment{
		{ID: "p1", WorkerID: "w1", WorkerName: "Ali", Amount: 2000, Month: "2026-09"},
	}
	if err := c.SavePayments(ctx, rows); err != nil {
		t.Fatalf("SavePayments failed: %v", err)
	}

	got := c.LoadPayments(ctx)
	if len(got) != 1 || got[0].WorkerName != "Ali" {
		t.Errorf("snapshot mismatch: %+v", got)
	}
}

func TestLoadMissingIsEmpty(t *testing.T) {
	c := New(localstore.NewMemoryStore())

	if got := c.LoadWorkers(context.Background()); len(got) != 0 {
		t.Errorf("expected empty snapshot, got %d rows", len(got))
	}
}

// TestLoadCorruptFailsOpen verifies that an undecodable snapshot reads as
// empty instead of propagating an error.
func TestLoadCorruptFailsOpen(t *testing.T) {
	store := localstore.NewMemoryStore()
	ctx := context.Background()
	if err := store.Set(ctx, localstore.KeyWorkersCache, "<<garbage>>"); err != nil {
		t.Fatal(err)
	}

	c := New(store)
	if got := c.LoadWorkers(ctx); len(got) != 0 {
		t.Errorf("corrupt snapshot should read as empty, got %d rows", len(got))
	}
}

func TestSaveOverwrites(t *testing.T) {
	c := New(localstore.NewMemoryStore())
	ctx := context.Background()

	if err := c.SaveWorkers(ctx, []models.Worker{{ID: "w1"}, {ID: "w2"}}); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveWorkers(ctx, []models.Worker{{ID: "w3"}}); err != nil {
		t.Fatal(err)
	}

	got := c.LoadWorkers(ctx)
	if len(got) != 1 || got[0].ID != "w3" {
		t.Errorf("save must overwrite the snapshot, got %+v", got)
	}
}
