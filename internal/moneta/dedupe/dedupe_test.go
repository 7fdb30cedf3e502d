package dedupe_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moneta-bot/moneta/internal/moneta/dedupe"
	"github.com/moneta-bot/moneta/internal/moneta/kvstore"
)

func newDeduper(t *testing.T) *dedupe.Deduper {
	t.Helper()
	s, err := kvstore.OpenSQLite(filepath.Join(t.TempDir(), "dedupe-test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return dedupe.New(s, nil)
}

func TestDo_CachesResult(t *testing.T) {
	d := newDeduper(t)
	ctx := context.Background()

	var calls int32
	producer := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("42.00"), nil
	}

	for i := 0; i < 3; i++ {
		got, err := d.Do(ctx, "balance:acct-1", time.Minute, producer)
		if err != nil {
			t.Fatalf("Do #%d: %v", i, err)
		}
		if string(got) != "42.00" {
			t.Errorf("Do #%d = %q, want %q", i, got, "42.00")
		}
	}

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("producer ran %d times, want 1", n)
	}
}

func TestDo_CoalescesConcurrentCalls(t *testing.T) {
	d := newDeduper(t)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	slowProducer := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("shared"), nil
	}

	const callers = 5
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := d.Do(ctx, "k", time.Minute, slowProducer)
			results[i], errs[i] = string(v), err
		}(i)
	}

	// Give all callers time to reach the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("slow producer ran %d times, want 1", n)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != "shared" {
			t.Errorf("caller %d got %q, want %q", i, results[i], "shared")
		}
	}
}

func TestDo_FailureNotCached(t *testing.T) {
	d := newDeduper(t)
	ctx := context.Background()

	var calls int32
	boom := errors.New("upstream down")
	producer := func(context.Context) ([]byte, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, boom
		}
		return []byte("recovered"), nil
	}

	if _, err := d.Do(ctx, "flaky", time.Minute, producer); !errors.Is(err, boom) {
		t.Fatalf("first Do: err = %v, want %v", err, boom)
	}

	got, err := d.Do(ctx, "flaky", time.Minute, producer)
	if err != nil {
		t.Fatalf("second Do: %v", err)
	}
	if string(got) != "recovered" {
		t.Errorf("second Do = %q, want %q", got, "recovered")
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("producer ran %d times, want 2", n)
	}
}

func TestDo_TTLExpiryRecomputes(t *testing.T) {
	d := newDeduper(t)
	ctx := context.Background()

	var calls int32
	producer := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("v"), nil
	}

	if _, err := d.Do(ctx, "short", 20*time.Millisecond, producer); err != nil {
		t.Fatalf("Do: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := d.Do(ctx, "short", 20*time.Millisecond, producer); err != nil {
		t.Fatalf("Do after expiry: %v", err)
	}

	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("producer ran %d times, want 2", n)
	}
}

func TestInvalidate(t *testing.T) {
	d := newDeduper(t)
	ctx := context.Background()

	var calls int32
	producer := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("v"), nil
	}

	if _, err := d.Do(ctx, "k", time.Hour, producer); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if err := d.Invalidate(ctx, "k"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := d.Do(ctx, "k", time.Hour, producer); err != nil {
		t.Fatalf("Do after invalidate: %v", err)
	}

	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("producer ran %d times, want 2", n)
	}
}
