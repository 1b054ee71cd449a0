package aggregation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	now := time.Date(2016, 7, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	newCache := func(ttl time.Duration) (*Cache[int], *int) {
		c := NewCache[int](ttl)
		c.now = clock
		return c, new(int)
	}

	t.Run("FillsOnMiss", func(t *testing.T) {
		c, calls := newCache(time.Hour)
		fill := func() (int, error) { *calls++; return 42, nil }

		got, err := c.Get("k", fill)
		require.NoError(t, err)
		assert.Equal(t, 42, got)

		got, err = c.Get("k", fill)
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 1, *calls, "second Get must be served from cache")
	})

	t.Run("RefillsAfterTTL", func(t *testing.T) {
		c, calls := newCache(time.Hour)
		fill := func() (int, error) { *calls++; return *calls, nil }

		_, err := c.Get("k", fill)
		require.NoError(t, err)

		now = now.Add(time.Hour + time.Second)
		got, err := c.Get("k", fill)
		require.NoError(t, err)
		assert.Equal(t, 2, got)
		assert.Equal(t, 2, *calls)
	})

	t.Run("ErrorsAreNotCached", func(t *testing.T) {
		c, calls := newCache(time.Hour)
		boom := errors.New("boom")

		_, err := c.Get("k", func() (int, error) { *calls++; return 0, boom })
		require.ErrorIs(t, err, boom)

		got, err := c.Get("k", func() (int, error) { *calls++; return 7, nil })
		require.NoError(t, err)
		assert.Equal(t, 7, got)
		assert.Equal(t, 2, *calls)
	})

	t.Run("SlowFillDoesNotBlockOtherKeys", func(t *testing.T) {
		c, _ := newCache(time.Hour)
		_, err := c.Get("fast", func() (int, error) { return 1, nil })
		require.NoError(t, err)

		started := make(chan struct{})
		release := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = c.Get("slow", func() (int, error) {
				close(started)
				<-release
				return 2, nil
			})
		}()
		<-started

		// The slow fill is in flight; the fresh key must still be served.
		got, err := c.Get("fast", func() (int, error) { return 0, errors.New("must not refill") })
		require.NoError(t, err)
		assert.Equal(t, 1, got)

		close(release)
		<-done
	})

	t.Run("InvalidateDropsEntry", func(t *testing.T) {
		c, calls := newCache(time.Hour)
		fill := func() (int, error) { *calls++; return *calls, nil }

		_, err := c.Get("k", fill)
		require.NoError(t, err)
		c.Invalidate("k")

		got, err := c.Get("k", fill)
		require.NoError(t, err)
		assert.Equal(t, 2, got)
	})

	t.Run("PurgeDropsEverything", func(t *testing.T) {
		c, calls := newCache(time.Hour)
		fill := func() (int, error) { *calls++; return *calls, nil }

		_, err := c.Get("a", fill)
		require.NoError(t, err)
		_, err = c.Get("b", fill)
		require.NoError(t, err)
		c.Purge()

		_, err = c.Get("a", fill)
		require.NoError(t, err)
		assert.Equal(t, 3, *calls)
	})
}
