package client

import (
	"sync"
	"time"
)

// InactivityMonitor watches real user input, not network traffic: a stale
// tab with a healthy socket still counts as inactive. Once the hard
// threshold trips, only an explicit Reset clears the latch.
type InactivityMonitor struct {
	warning time.Duration
	max     time.Duration
	every   time.Duration
	now     func() time.Time

	onWarn       func(idle time.Duration)
	onDisconnect func(idle time.Duration)

	mu           sync.Mutex
	lastActivity time.Time
	warned       bool
	disconnected bool

	done chan struct{}
	once sync.Once
}

func NewInactivityMonitor(warning, max time.Duration, onWarn, onDisconnect func(time.Duration)) *InactivityMonitor {
	m := &InactivityMonitor{
		warning:      warning,
		max:          max,
		every:        time.Minute,
		now:          time.Now,
		onWarn:       onWarn,
		onDisconnect: onDisconnect,
		done:         make(chan struct{}),
	}
	m.lastActivity = m.now()
	return m
}

// Start launches the periodic check.
func (m *InactivityMonitor) Start() {
	go m.run()
}

func (m *InactivityMonitor) run() {
	ticker := time.NewTicker(m.every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check(m.now())
		case <-m.done:
			return
		}
	}
}

// Stop cancels the periodic check.
func (m *InactivityMonitor) Stop() {
	m.once.Do(func() { close(m.done) })
}

// Touch records real user activity. It also clears a pending warning, but
// never the disconnect latch.
func (m *InactivityMonitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disconnected {
		return
	}
	m.lastActivity = m.now()
	m.warned = false
}

// Reset is the explicit user reconnect: clears both latches and restarts the
// activity clock.
func (m *InactivityMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = m.now()
	m.warned = false
	m.disconnected = false
}

// Disconnected reports whether the hard threshold tripped.
func (m *InactivityMonitor) Disconnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnected
}

// check evaluates both thresholds. The warning fires once per idle period,
// not once per tick.
func (m *InactivityMonitor) check(now time.Time) {
	m.mu.Lock()
	if m.disconnected {
		m.mu.Unlock()
		return
	}
	idle := now.Sub(m.lastActivity)

	var warn, disconnect bool
	switch {
	case idle >= m.max:
		m.disconnected = true
		disconnect = true
	case idle >= m.warning && !m.warned:
		m.warned = true
		warn = true
	}
	m.mu.Unlock()

	if warn && m.onWarn != nil {
		m.onWarn(idle)
	}
	if disconnect && m.onDisconnect != nil {
		m.onDisconnect(idle)
	}
}
