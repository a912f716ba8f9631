package csrf

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type failingStore struct{}

func (failingStore) Put(context.Context, string, Record) error { return nil }
func (failingStore) Take(context.Context, string) (Record, bool, error) {
	return Record{}, false, errors.New("connection refused")
}
func (failingStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, errors.New("connection refused")
}

func newTestManager(t *testing.T) (*Manager, *MemoryStore, *fakeClock) {
	t.Helper()
	store := NewMemoryStore()
	clock := newFakeClock()
	return NewManager(store, nil, WithClock(clock.Now)), store, clock
}

func TestIssue_TokenShape(t *testing.T) {
	m, store, _ := newTestManager(t)
	ctx := context.Background()

	a, err := m.Issue(ctx)
	require.NoError(t, err)
	b, err := m.Issue(ctx)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Regexp(t, "^[0-9a-f]+$", a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, store.Len())
}

func TestValidate_SingleUse(t *testing.T) {
	m, store, _ := newTestManager(t)
	ctx := context.Background()

	token, err := m.Issue(ctx)
	require.NoError(t, err)

	assert.True(t, m.Validate(ctx, token))
	assert.False(t, m.Validate(ctx, token))
	assert.False(t, m.Validate(ctx, token))
	assert.Equal(t, 0, store.Len())
}

func TestValidate_UnknownAndEmpty(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	assert.False(t, m.Validate(ctx, ""))
	assert.False(t, m.Validate(ctx, "deadbeef"))
}

func TestValidate_Expiry(t *testing.T) {
	m, store, clock := newTestManager(t)
	ctx := context.Background()

	token, err := m.Issue(ctx)
	require.NoError(t, err)

	clock.Advance(15*time.Minute + time.Millisecond)
	assert.False(t, m.Validate(ctx, token))
	assert.Equal(t, 0, store.Len(), "expired record is deleted on validation")
}

func TestValidate_JustBeforeExpiry(t *testing.T) {
	m, _, clock := newTestManager(t)
	ctx := context.Background()

	token, err := m.Issue(ctx)
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)
	assert.True(t, m.Validate(ctx, token))
}

func TestValidate_UsedRecordRejected(t *testing.T) {
	m, store, clock := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "used-token", Record{ExpiresAt: clock.Now().Add(time.Hour), Used: true}))

	assert.False(t, m.Validate(ctx, "used-token"))
	assert.Equal(t, 0, store.Len())
}

func TestValidate_ConcurrentExactlyOnce(t *testing.T) {
	for _, n := range []int{1, 2, 16, 128} {
		m, _, _ := newTestManager(t)
		ctx := context.Background()

		token, err := m.Issue(ctx)
		require.NoError(t, err)

		var (
			wg    sync.WaitGroup
			wins  atomic.Int32
			start = make(chan struct{})
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if m.Validate(ctx, token) {
					wins.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load(), "n=%d", n)
	}
}

func TestValidate_StoreErrorFailsClosed(t *testing.T) {
	m := NewManager(failingStore{}, nil)
	assert.False(t, m.Validate(context.Background(), "anything"))
}

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	m, store, clock := newTestManager(t)
	ctx := context.Background()

	old, err := m.Issue(ctx)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	fresh, err := m.Issue(ctx)
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	n, err := m.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, 1, store.Len())
	assert.False(t, m.Validate(ctx, old))
	assert.True(t, m.Validate(ctx, fresh))
}

func TestSweep_StoreError(t *testing.T) {
	m := NewManager(failingStore{}, nil)
	_, err := m.Sweep(context.Background())
	assert.Error(t, err)
}

func TestRunSweeper_StopsOnCancel(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, nil, WithTTL(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	_, err := m.Issue(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		m.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
