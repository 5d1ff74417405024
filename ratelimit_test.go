package via

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter(t *testing.T) {
	testcases := []struct {
		desc      string
		cfg       RateLimitConfig
		wantRate  float64
		wantBurst int
	}{
		{"defaults", RateLimitConfig{}, defaultActionRate, defaultActionBurst},
		{"custom", RateLimitConfig{Rate: 5, Burst: 10}, 5, 10},
		{"rate only", RateLimitConfig{Rate: 2}, 2, defaultActionBurst},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			l := newLimiter(tc.cfg, defaultActionRate, defaultActionBurst)
			require.NotNil(t, l)
			assert.InDelta(t, tc.wantRate, float64(l.Limit()), 0.001)
			assert.Equal(t, tc.wantBurst, l.Burst())
		})
	}
}

func TestNewLimiter_DisabledWithNegativeRate(t *testing.T) {
	assert.Nil(t, newLimiter(RateLimitConfig{Rate: -1}, defaultActionRate, defaultActionBurst))
}

func TestTokenBucket_AllowsBurstThenRejects(t *testing.T) {
	l := newLimiter(RateLimitConfig{Rate: 1, Burst: 3}, 1, 3)
	require.NotNil(t, l)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(), "request %d should be allowed within burst", i)
	}
	assert.False(t, l.Allow(), "request beyond burst should be rejected")
}

func TestContextAction_WithRateLimit(t *testing.T) {
	c := newContext("test-rl", "/", New())

	trigger := c.Action(func() {}, WithRateLimit(1, 2))

	entry, err := c.getAction(trigger.ID())
	require.NoError(t, err)
	require.NotNil(t, entry.limiter)
	assert.InDelta(t, 1.0, float64(entry.limiter.Limit()), 0.001)
	assert.Equal(t, 2, entry.limiter.Burst())
}

func TestContextAction_DefaultNoPerActionLimiter(t *testing.T) {
	c := newContext("test-no-rl", "/", New())

	trigger := c.Action(func() {})

	entry, err := c.getAction(trigger.ID())
	require.NoError(t, err)
	assert.Nil(t, entry.limiter)
}

func TestContextLimiter(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		c := newContext("ctx", "/", New())
		require.NotNil(t, c.actionLimiter)
		assert.InDelta(t, defaultActionRate, float64(c.actionLimiter.Limit()), 0.001)
		assert.Equal(t, defaultActionBurst, c.actionLimiter.Burst())
	})

	t.Run("disabled via config", func(t *testing.T) {
		v := New()
		v.Config(Options{ActionRateLimit: RateLimitConfig{Rate: -1}})
		assert.Nil(t, newContext("ctx", "/", v).actionLimiter)
	})

	t.Run("custom config", func(t *testing.T) {
		v := New()
		v.Config(Options{ActionRateLimit: RateLimitConfig{Rate: 50, Burst: 100}})
		c := newContext("ctx", "/", v)
		require.NotNil(t, c.actionLimiter)
		assert.InDelta(t, 50.0, float64(c.actionLimiter.Limit()), 0.001)
		assert.Equal(t, 100, c.actionLimiter.Burst())
	})
}
