package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_Advance(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	var ticks int
	timer := f.Every(10*time.Second, func() { ticks++ })

	f.Advance(9 * time.Second)
	assert.Equal(t, 0, ticks)

	f.Advance(25 * time.Second)
	assert.Equal(t, 3, ticks)
	assert.Equal(t, start.Add(34*time.Second), f.Now())

	timer.Stop()
	f.Advance(time.Minute)
	assert.Equal(t, 3, ticks)
	assert.Equal(t, 0, f.Active())
}

func TestFake_StopInsideCallback(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	var ticks int
	var timer Timer
	timer = f.Every(time.Second, func() {
		ticks++
		timer.Stop()
	})

	f.Advance(5 * time.Second)
	assert.Equal(t, 1, ticks)
}

func TestFake_OrderAcrossTimers(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	var order []string
	f.Every(3*time.Second, func() { order = append(order, "slow") })
	f.Every(2*time.Second, func() { order = append(order, "fast") })

	f.Advance(6 * time.Second)
	assert.Equal(t, []string{"fast", "slow", "fast", "fast", "slow"}, order)
}

func TestReal_Every(t *testing.T) {
	var ticks atomic.Int32
	timer := Real{}.Every(5*time.Millisecond, func() { ticks.Add(1) })

	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, time.Millisecond)

	timer.Stop()
	timer.Stop()
	stopped := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, ticks.Load(), stopped+1)
}
