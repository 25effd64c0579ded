// Package netstate tracks whether the client believes it can reach the
// server and notifies subscribers on transitions.
package netstate

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Pinger checks server reachability. *api.Client implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor holds the current connectivity state.
//
// Thread-safety: All methods are safe for concurrent use. Subscribers are
// called synchronously, in subscription order, without the lock held.
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   map[int]func(bool)
	nextID int
	logger *slog.Logger
}

// NewMonitor creates a monitor with the given initial state.
func NewMonitor(online bool, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Monitor{
		online: online,
		subs:   make(map[int]func(bool)),
		logger: logger,
	}
}

// Online reports the current state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records the state. Subscribers hear only about transitions.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("connectivity changed", "online", online)
	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers fn for transitions and returns a function that
// removes it.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Monitor) snapshotLocked() []func(bool) {
	out := make([]func(bool), 0, len(m.subs))
	for id := range m.nextID {
		if fn, ok := m.subs[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

// Check pings once and records the result.
func (m *Monitor) Check(ctx context.Context, p Pinger) bool {
	err := p.Ping(ctx)
	if err != nil && ctx.Err() != nil {
		// Shutting down; the failure says nothing about the network.
		return m.Online()
	}
	if err != nil {
		m.logger.Debug("health check failed", "error", err)
	}
	m.SetOnline(err == nil)
	return err == nil
}

// Probe checks reachability every interval until ctx is done.
func (m *Monitor) Probe(ctx context.Context, interval time.Duration, p Pinger) {
	m.Check(ctx, p)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx, p)
		}
	}
}
