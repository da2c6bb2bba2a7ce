package leaselock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRow struct {
	key string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.key
	return nil
}

// fakeDB grants a key to one holder at a time.
type fakeDB struct {
	mu       sync.Mutex
	holders  map[string]string
	released []string
}

func newFakeDB() *fakeDB {
	return &fakeDB{holders: map[string]string{}}
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	db.mu.Lock()
	defer db.mu.Unlock()
	key, token := args[0].(string), args[1].(string)
	holder, held := db.holders[key]
	if held && holder != token {
		return fakeRow{err: pgx.ErrNoRows}
	}
	db.holders[key] = token
	return fakeRow{key: key}
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	key, token := args[0].(string), args[1].(string)
	if db.holders[key] == token {
		delete(db.holders, key)
		db.released = append(db.released, key)
	}
	return pgconn.NewCommandTag("DELETE 1"), nil
}

func TestCaseKey(t *testing.T) {
	tests := map[string]string{
		"FIR_1":   "case:FIR_1",
		" FIR_2 ": "case:FIR_2",
		"":        "case:*",
	}
	for in, want := range tests {
		if got := CaseKey(in); got != want {
			t.Fatalf("CaseKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	got := Options{}.withDefaults()
	if got.TTL != 5*time.Minute || got.RenewEvery != 150*time.Second || got.WaitInterval != 250*time.Millisecond {
		t.Fatalf("unexpected defaults %+v", got)
	}
	got = Options{TTL: time.Second, RenewEvery: 2 * time.Second, WaitJitter: -1}.withDefaults()
	if got.RenewEvery != time.Second || got.WaitJitter != 0 {
		t.Fatalf("renewal must stay inside the TTL, got %+v", got)
	}
}

func TestAcquireBusy(t *testing.T) {
	c := New(newFakeDB())
	ctx := context.Background()

	lease, err := c.Acquire(ctx, CaseKey("FIR_1"), Options{TTL: time.Minute})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer lease.Release(ctx)

	if _, err := c.Acquire(ctx, CaseKey("FIR_1"), Options{TTL: time.Minute}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	other, err := c.Acquire(ctx, CaseKey("FIR_2"), Options{TTL: time.Minute})
	if err != nil {
		t.Fatalf("other keys must stay free, got %v", err)
	}
	_ = other.Release(ctx)
}

func TestAcquireRejectsEmptyKey(t *testing.T) {
	if _, err := New(newFakeDB()).Acquire(context.Background(), "", Options{}); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestWithLeaseReleases(t *testing.T) {
	db := newFakeDB()
	c := New(db)

	ran := false
	err := c.WithLease(context.Background(), CaseKey("FIR_1"), Options{TTL: time.Minute}, func(ctx context.Context) error {
		ran = true
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("WithLease() error = %v", err)
	}
	if !ran {
		t.Fatalf("fn was not called")
	}
	if len(db.released) != 1 || db.released[0] != "case:FIR_1" {
		t.Fatalf("expected lease release, got %v", db.released)
	}
}

func TestWithLeaseWaits(t *testing.T) {
	db := newFakeDB()
	c := New(db)
	ctx := context.Background()

	held, err := c.Acquire(ctx, CaseKey("FIR_1"), Options{TTL: time.Minute})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = held.Release(ctx)
	}()

	opts := Options{TTL: time.Minute, Wait: true, WaitInterval: 10 * time.Millisecond}
	err = c.WithLease(ctx, CaseKey("FIR_1"), opts, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("WithLease() error = %v", err)
	}
}
