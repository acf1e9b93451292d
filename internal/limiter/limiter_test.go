package limiter

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAllow_SixthWithinWindowRejected(t *testing.T) {
	t.Parallel()

	l := New(5, time.Minute)

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("client-1", t0.Add(time.Duration(i)*time.Second)), "request %d", i+1)
	}

	require.False(t, l.Allow("client-1", t0.Add(10*time.Second)))
}

func TestAllow_RejectedAttemptNotRecorded(t *testing.T) {
	t.Parallel()

	l := New(1, time.Minute)

	require.True(t, l.Allow("c", t0))
	// Отклонённые попытки не продлевают окно.
	require.False(t, l.Allow("c", t0.Add(30*time.Second)))
	require.False(t, l.Allow("c", t0.Add(50*time.Second)))

	require.True(t, l.Allow("c", t0.Add(61*time.Second)))
}

func TestAllow_WindowBoundaryInclusive(t *testing.T) {
	t.Parallel()

	l := New(1, time.Minute)

	require.True(t, l.Allow("c", t0))
	// Ровно now-window ещё в окне.
	require.False(t, l.Allow("c", t0.Add(time.Minute)))
	require.True(t, l.Allow("c", t0.Add(time.Minute+time.Nanosecond)))
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	l := New(2, time.Minute)

	require.True(t, l.Allow("a", t0))
	require.True(t, l.Allow("a", t0))
	require.False(t, l.Allow("a", t0))

	require.True(t, l.Allow("b", t0))
	require.Equal(t, 2, l.Clients())
}

func TestRetryAfter(t *testing.T) {
	t.Parallel()

	l := New(2, time.Minute)
	require.Zero(t, l.RetryAfter("nobody", t0))

	require.True(t, l.Allow("c", t0))
	require.Zero(t, l.RetryAfter("c", t0))
	require.True(t, l.Allow("c", t0.Add(10*time.Second)))

	d := l.RetryAfter("c", t0.Add(20*time.Second))
	require.Equal(t, 40*time.Second+time.Nanosecond, d)
	require.True(t, l.Allow("c", t0.Add(20*time.Second).Add(d)))
}

// Параллельные запросы одного клиента не должны пропустить больше лимита.
func TestAllow_ConcurrentSameClient(t *testing.T) {
	t.Parallel()

	const limit = 5
	l := New(limit, time.Minute)

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("same", t0) {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, limit, accepted.Load())
}
