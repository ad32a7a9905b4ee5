package snapshot_test

import (
	"context"
	"testing"

	"github.com/oddsforge/sportsbook/internal/snapshot"
)

type walletLikeState struct {
	Total   string `json:"total"`
	Version int    `json:"version"`
}

func TestInMemoryStore_SaveThenLoad(t *testing.T) {
	store := snapshot.NewInMemoryStore()
	ctx := context.Background()

	in := walletLikeState{Total: "42.00", Version: 3}
	if err := store.Save(ctx, "wallet", "user-1", in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var out walletLikeState
	ok, err := store.Load(ctx, "wallet", "user-1", &out)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("Load reported not-found for a saved snapshot")
	}
	if out != in {
		t.Errorf("Load returned %+v, want %+v", out, in)
	}
}

func TestInMemoryStore_LoadMissing_ReturnsFalse(t *testing.T) {
	store := snapshot.NewInMemoryStore()
	var out walletLikeState
	ok, err := store.Load(context.Background(), "wallet", "does-not-exist", &out)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Error("Load should report not-found for an unsaved key")
	}
}

func TestInMemoryStore_KeysAreScopedByEntityType(t *testing.T) {
	store := snapshot.NewInMemoryStore()
	ctx := context.Background()

	store.Save(ctx, "wallet", "1", walletLikeState{Total: "10.00"})
	store.Save(ctx, "odds", "1", walletLikeState{Total: "should not collide"})

	var out walletLikeState
	ok, _ := store.Load(ctx, "wallet", "1", &out)
	if !ok || out.Total != "10.00" {
		t.Errorf("wallet:1 = %+v, ok=%v, want Total=10.00", out, ok)
	}
}

func TestInMemoryStore_SaveOverwritesPreviousVersion(t *testing.T) {
	store := snapshot.NewInMemoryStore()
	ctx := context.Background()

	store.Save(ctx, "wallet", "1", walletLikeState{Total: "10.00", Version: 1})
	store.Save(ctx, "wallet", "1", walletLikeState{Total: "20.00", Version: 2})

	var out walletLikeState
	store.Load(ctx, "wallet", "1", &out)
	if out.Version != 2 || out.Total != "20.00" {
		t.Errorf("Load after second Save = %+v, want Version=2 Total=20.00", out)
	}
}
