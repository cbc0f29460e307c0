package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nuevoMonitorDePrueba(t *testing.T) (*InactivityMonitor, *fakeClock, *int, *int) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)}
	var warns, disconnects int
	m := NewInactivityMonitor(55*time.Minute, 60*time.Minute,
		func(time.Duration) { warns++ },
		func(time.Duration) { disconnects++ })
	m.now = clock.Now
	m.lastActivity = clock.t
	return m, clock, &warns, &disconnects
}

func TestInactivityWarningFiresOncePerIdlePeriod(t *testing.T) {
	m, clock, warns, disconnects := nuevoMonitorDePrueba(t)

	clock.Advance(54 * time.Minute)
	m.check(clock.t)
	assert.Zero(t, *warns)

	clock.Advance(2 * time.Minute) // idle 56m
	m.check(clock.t)
	m.check(clock.t.Add(time.Minute))
	assert.Equal(t, 1, *warns)
	assert.Zero(t, *disconnects)
	assert.False(t, m.Disconnected())
}

func TestInactivityTouchRearmsWarning(t *testing.T) {
	m, clock, warns, _ := nuevoMonitorDePrueba(t)

	clock.Advance(56 * time.Minute)
	m.check(clock.t)
	require.Equal(t, 1, *warns)

	m.Touch()
	clock.Advance(56 * time.Minute)
	m.check(clock.t)
	assert.Equal(t, 2, *warns)
}

func TestInactivityHardThresholdLatches(t *testing.T) {
	m, clock, _, disconnects := nuevoMonitorDePrueba(t)

	clock.Advance(61 * time.Minute)
	m.check(clock.t)
	require.Equal(t, 1, *disconnects)
	assert.True(t, m.Disconnected())

	// further checks and touches do not clear the latch
	m.check(clock.t.Add(time.Minute))
	assert.Equal(t, 1, *disconnects)
	m.Touch()
	assert.True(t, m.Disconnected())

	// only the explicit reset does
	m.Reset()
	assert.False(t, m.Disconnected())
	m.check(clock.t)
	assert.Equal(t, 1, *disconnects)
}
