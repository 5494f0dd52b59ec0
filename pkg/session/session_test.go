package session

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"grindhub/pkg/config"
)

func TestMain(m *testing.M) {
	// The expirable cache runs a janitor goroutine that has no stop hook.
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("github.com/hashicorp/golang-lru/v2/expirable.NewLRU[...].func1"))
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

// stores returns each Store implementation wired to clk.
func stores(t *testing.T, idle time.Duration, clk *clock) map[string]Store {
	t.Helper()
	mem := NewMemoryStore(16, idle)
	mem.now = clk.now

	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"), idle)
	require.NoError(t, err)
	sq.now = clk.now

	t.Cleanup(func() {
		_ = mem.Close()
		_ = sq.Close()
	})
	return map[string]Store{"memory": mem, "sqlite": sq}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t, 30*time.Minute, newClock()) {
		t.Run(name, func(t *testing.T) {
			s, err := store.Load(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "u1", s.UserID)
			assert.Empty(t, s.RunningContext, "new sessions start empty")

			s.RunningContext = "user asked about math"
			require.NoError(t, store.Save(ctx, s))

			got, err := store.Load(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "user asked about math", got.RunningContext)

			require.NoError(t, store.Delete(ctx, "u1"))
			got, err = store.Load(ctx, "u1")
			require.NoError(t, err)
			assert.Empty(t, got.RunningContext)

			assert.NoError(t, store.Delete(ctx, "missing"))
		})
	}
}

// TestStoreIdleExpiry forgets the running context after the idle timeout.
func TestStoreIdleExpiry(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	for name, store := range stores(t, 30*time.Minute, clk) {
		t.Run(name, func(t *testing.T) {
			s := New("u-" + name)
			s.RunningContext = "greeting happened"
			require.NoError(t, store.Save(ctx, s))

			clk.advance(29 * time.Minute)
			got, err := store.Load(ctx, s.UserID)
			require.NoError(t, err)
			assert.Equal(t, "greeting happened", got.RunningContext)

			clk.advance(2 * time.Minute)
			got, err = store.Load(ctx, s.UserID)
			require.NoError(t, err)
			assert.Empty(t, got.RunningContext)
		})
	}
}

func TestStoreSweep(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	for name, store := range stores(t, time.Hour, clk) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, &Session{UserID: "old", RunningContext: "a"}))
			clk.advance(10 * time.Minute)
			require.NoError(t, store.Save(ctx, &Session{UserID: "new", RunningContext: "b"}))

			n, err := store.Sweep(ctx, clk.now().Add(-5*time.Minute))
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			got, err := store.Load(ctx, "new")
			require.NoError(t, err)
			assert.Equal(t, "b", got.RunningContext)
			got, err = store.Load(ctx, "old")
			require.NoError(t, err)
			assert.Empty(t, got.RunningContext)
		})
	}
}

func TestSweeperLifecycle(t *testing.T) {
	clk := newClock()
	store := NewMemoryStore(4, 30*time.Minute)
	store.now = clk.now
	defer store.Close()

	require.NoError(t, store.Save(context.Background(), &Session{UserID: "u1", RunningContext: "x"}))
	clk.advance(time.Hour)

	sw := NewSweeper(store, 30*time.Minute, "@every 1h")
	sw.now = clk.now
	require.NoError(t, sw.Start())
	require.NoError(t, sw.Start(), "second start is a no-op")

	n, err := sw.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, store.Len())

	sw.Stop()
	sw.Stop()
}

func TestSweeperRejectsBadSchedule(t *testing.T) {
	sw := NewSweeper(NewMemoryStore(1, time.Minute), time.Minute, "every so often")
	assert.Error(t, sw.Start())
}

func TestLockerSerializesPerUser(t *testing.T) {
	l := NewLocker()
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("u1")
			defer unlock()
			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
	assert.Zero(t, l.Len(), "locks are released once idle")
}

func TestLockerIndependentUsers(t *testing.T) {
	l := NewLocker()
	unlockA := l.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := l.Lock("b")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	unlockA()
}

func TestOpen(t *testing.T) {
	s, err := Open(config.SessionConfig{Store: config.StoreMemory, IdleTimeout: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(config.SessionConfig{Store: config.StoreSQLite})
	assert.Error(t, err)

	s, err = Open(config.SessionConfig{Store: config.StoreSQLite, DBPath: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(config.SessionConfig{Store: "redis"})
	assert.Error(t, err)
}
