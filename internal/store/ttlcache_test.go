package store

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stonybrain/cityprotect-api/internal/incident"
)

func TestReportCache_GetSet(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewReportCache(clock, 60*time.Second, 200)

	c.Set("a", incident.Report{Total: 3})

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, got.Total)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestReportCache_EntryExpiresAfterTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewReportCache(clock, 60*time.Second, 200)

	c.Set("a", incident.Report{Total: 1})

	clock.Advance(59 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok, "entry inside TTL should be served")

	clock.Advance(2 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry past TTL must read as absent")
}

func TestReportCache_DistinctKeysDoNotCollide(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewReportCache(clock, 60*time.Second, 200)

	c.Set("h=72|lite=false|limit=10|geo=false", incident.Report{Total: 10})
	c.Set("h=72|lite=false|limit=20|geo=false", incident.Report{Total: 20})

	a, ok := c.Get("h=72|lite=false|limit=10|geo=false")
	require.True(t, ok)
	b, ok := c.Get("h=72|lite=false|limit=20|geo=false")
	require.True(t, ok)
	assert.Equal(t, 10, a.Total)
	assert.Equal(t, 20, b.Total)
}

func TestReportCache_SweepRemovesExpiredOnOverflow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewReportCache(clock, 60*time.Second, 2)

	c.Set("a", incident.Report{})
	c.Set("b", incident.Report{})

	// Let both expire, then push the store over its bound.
	clock.Advance(61 * time.Second)
	c.Set("c", incident.Report{})

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("c")
	assert.True(t, ok)
}

func TestReportCache_OverwriteRefreshesEntry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewReportCache(clock, 60*time.Second, 200)

	c.Set("a", incident.Report{Total: 1})
	clock.Advance(59 * time.Second)
	c.Set("a", incident.Report{Total: 2})
	clock.Advance(59 * time.Second)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, got.Total)
}
