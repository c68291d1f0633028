package duel

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRedisStoreVersioning(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	if got, err := store.Load(ctx, "room"); err != nil || got != nil {
		t.Fatalf("empty Load = %v, %v", got, err)
	}
	tbl := &Table{ID: "t1", Room: "room", White: alice, Moves: []string{"e2e4"}}
	if err := store.Save(ctx, tbl); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if tbl.Version != 1 {
		t.Fatalf("version = %d, want 1", tbl.Version)
	}
	if ttl := mr.TTL(tableKey("room")); ttl != time.Hour {
		t.Fatalf("ttl = %v", ttl)
	}

	stale := &Table{ID: "t1", Room: "room"}
	if err := store.Save(ctx, stale); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale save: %v", err)
	}

	got, err := store.Load(ctx, "room")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.White != alice || got.Version != 1 || len(got.Moves) != 1 {
		t.Fatalf("unexpected table: %+v", got)
	}
	if err := store.Delete(ctx, "room"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := store.Load(ctx, "room"); got != nil {
		t.Fatalf("table survived delete")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	tbl := &Table{ID: "t1", Room: "room"}
	if err := store.Save(ctx, tbl); err != nil {
		t.Fatalf("Save: %v", err)
	}
	tbl.Moves = append(tbl.Moves, "e2e4")
	if got, _ := store.Load(ctx, "room"); got == nil || len(got.Moves) != 0 {
		t.Fatalf("store must keep its own copy: %+v", got)
	}
	if err := store.Save(ctx, &Table{Room: "room"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale save: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if got, _ := store.Load(ctx, "room"); got != nil {
		t.Fatalf("expired table returned")
	}
	if err := store.Save(ctx, &Table{Room: "room"}); err != nil {
		t.Fatalf("save over expired entry: %v", err)
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("redis://:secret@localhost:6380/2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if _, err := parseRedisURL("http://localhost"); err == nil {
		t.Fatalf("expected scheme error")
	}
}
