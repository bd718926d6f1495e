package queue

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

// fakeClock records scheduled callbacks and fires them on demand.
type fakeClock struct {
	mu     sync.Mutex
	timers []fakeTimer
}

type fakeTimer struct {
	delay time.Duration
	fire  func()
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers = append(c.timers, fakeTimer{delay: d, fire: f})
}

func (c *fakeClock) delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.timers))
	for i, t := range c.timers {
		out[i] = t.delay
	}
	return out
}

// fireNext fires the oldest unfired timer, if any.
func (c *fakeClock) fireNext() bool {
	c.mu.Lock()
	if len(c.timers) == 0 {
		c.mu.Unlock()
		return false
	}
	t := c.timers[0]
	c.timers = c.timers[1:]
	c.mu.Unlock()
	t.fire()
	return true
}

func TestQueue_RunsTasksInOrder(t *testing.T) {
	q := New(context.Background())

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := 0; i < 3; i++ {
		i := i
		q.Enqueue("ordered", func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			if len(order) == 3 {
				close(done)
			}
			mu.Unlock()
			return nil
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestQueue_SingleConsumer(t *testing.T) {
	q := New(context.Background())

	var inFlight, maxInFlight int32
	var wg sync.WaitGroup
	wg.Add(10)

	for i := 0; i < 10; i++ {
		q.Enqueue("concurrent", func(ctx context.Context) error {
			defer wg.Done()
			n := atomic.AddInt32(&inFlight, 1)
			for {
				max := atomic.LoadInt32(&maxInFlight)
				if n <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return nil
		})
	}

	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestQueue_FatalErrorsNeverRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"http 404", errors.New("request failed: 404")},
		{"not found text", errors.New("resource Not Found")},
		{"bad request", errors.New("status 400 from upstream")},
		{"bad credentials", errors.New("API key not valid")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{}
			q := NewWithClock(context.Background(), clock)

			var calls int32
			q.Enqueue("fatal", func(ctx context.Context) error {
				atomic.AddInt32(&calls, 1)
				return tt.err
			})

			require.Eventually(t, func() bool {
				return atomic.LoadInt32(&calls) == 1 && q.Pending() == 0
			}, 2*time.Second, 10*time.Millisecond)

			assert.Empty(t, clock.delays(), "fatal failure must not schedule a retry")
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		})
	}
}

func TestQueue_TransientErrorBackoffSchedule(t *testing.T) {
	clock := &fakeClock{}
	q := NewWithClock(context.Background(), clock)

	var calls int32
	q.Enqueue("flaky", func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("smtp connection reset")
	})

	// Initial attempt plus five retries, each rescheduled with doubled delay
	for attempt := 1; attempt <= 5; attempt++ {
		require.Eventually(t, func() bool {
			return int(atomic.LoadInt32(&calls)) == attempt && len(clock.delays()) == 1
		}, 2*time.Second, 10*time.Millisecond)
		require.True(t, clock.fireNext())
	}

	// Sixth failure exhausts the budget: no further timer appears
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 6 && q.Pending() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, clock.delays())
}

func TestQueue_BackoffDelaysDouble(t *testing.T) {
	clock := &fakeClock{}
	q := NewWithClock(context.Background(), clock)

	var observed []time.Duration
	q.Enqueue("always-failing", func(ctx context.Context) error {
		return errors.New("temporary failure")
	})

	for i := 0; i < 5; i++ {
		require.Eventually(t, func() bool {
			return len(clock.delays()) == 1
		}, 2*time.Second, 10*time.Millisecond)
		observed = append(observed, clock.delays()[0])
		require.True(t, clock.fireNext())
	}

	assert.Equal(t, []time.Duration{
		1 * time.Minute,
		2 * time.Minute,
		4 * time.Minute,
		8 * time.Minute,
		16 * time.Minute,
	}, observed)
}

func TestQueue_SuccessAfterRetry(t *testing.T) {
	clock := &fakeClock{}
	q := NewWithClock(context.Background(), clock)

	var calls int32
	q.Enqueue("recovers", func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	})

	for i := 0; i < 2; i++ {
		require.Eventually(t, func() bool {
			return len(clock.delays()) == 1
		}, 2*time.Second, 10*time.Millisecond)
		require.True(t, clock.fireNext())
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 3 && q.Pending() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, clock.delays())
}

func TestQueue_PanicBecomesFailedAttempt(t *testing.T) {
	clock := &fakeClock{}
	q := NewWithClock(context.Background(), clock)

	var after int32
	q.Enqueue("panics", func(ctx context.Context) error {
		panic("boom")
	})
	q.Enqueue("survivor", func(ctx context.Context) error {
		atomic.AddInt32(&after, 1)
		return nil
	})

	// The panicking task is rescheduled as a plain transient failure and the
	// drain loop keeps going
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&after) == 1 && len(clock.delays()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueue_IsFatalClassification(t *testing.T) {
	assert.True(t, isFatal(errors.New("404 page missing")))
	assert.True(t, isFatal(errors.New("user not found")))
	assert.True(t, isFatal(errors.New("400 bad request")))
	assert.True(t, isFatal(errors.New("invalid API KEY")))
	assert.False(t, isFatal(errors.New("429 too many requests")))
	assert.False(t, isFatal(errors.New("connection refused")))
	assert.False(t, isFatal(errors.New("i/o timeout")))
}
