// Package netwatch reports device connectivity to the tiers that branch
// on it.
//
// Every read and write path asks the cheap cached question first
// (Online); only code about to commit a write pays for a forced probe
// (Probe). The probing monitor refreshes the cached answer periodically
// and notifies subscribers on transitions, standing in for the mobile
// platform's connectivity event stream.
package netwatch

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Monitor answers the online/offline question.
type Monitor interface {
	// Online returns the last known connectivity state without I/O.
	Online() bool

	// Probe forces a fresh connectivity check and updates the cached
	// state. Blocking, bounded by the probe timeout.
	Probe(ctx context.Context) bool

	// Subscribe registers a channel that receives the new state on
	// every transition. The channel must be buffered or drained; a slow
	// subscriber drops notifications rather than blocking the monitor.
	Subscribe(ch chan<- bool)
}

// Config configures the probing monitor.
type Config struct {
	// Endpoint is the host:port dialed to test reachability.
	Endpoint string `yaml:"endpoint" toml:"endpoint"`

	// Interval is how often the background probe runs.
	// Zero disables background probing; only Probe refreshes the state.
	Interval time.Duration `yaml:"interval" toml:"interval"`

	// Timeout bounds a single probe dial.
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// DefaultConfig probes one of the stable public DNS anycast addresses
// every 30 seconds with a 3 second dial timeout.
func DefaultConfig() Config {
	return Config{
		Endpoint: "1.1.1.1:53",
		Interval: 30 * time.Second,
		Timeout:  3 * time.Second,
	}
}

// probeMonitor is a Monitor that dials a fixed endpoint.
type probeMonitor struct {
	cfg    Config
	log    zerolog.Logger
	online atomic.Bool

	mu   sync.Mutex
	subs []chan<- bool

	stop chan struct{}
	once sync.Once
}

var _ Monitor = (*probeMonitor)(nil)

// New creates a probing monitor. It assumes online until the first probe
// says otherwise; the pessimistic alternative would force every cold start
// into the offline path.
func New(cfg Config) *probeMonitor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	m := &probeMonitor{
		cfg:  cfg,
		log:  logger(),
		stop: make(chan struct{}),
	}
	m.online.Store(true)

	if cfg.Interval > 0 {
		go m.loop()
	}
	return m
}

func (m *probeMonitor) loop() {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.Probe(context.Background())
		}
	}
}

func (m *probeMonitor) Online() bool {
	return m.online.Load()
}

func (m *probeMonitor) Probe(ctx context.Context) bool {
	d := net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", m.cfg.Endpoint)
	online := err == nil
	if conn != nil {
		_ = conn.Close()
	}

	if prev := m.online.Swap(online); prev != online {
		m.log.Info().Bool("online", online).Msg("connectivity changed")
		m.notify(online)
	}
	return online
}

func (m *probeMonitor) Subscribe(ch chan<- bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, ch)
}

func (m *probeMonitor) notify(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- online:
		default:
			// Slow subscriber; drop rather than block the monitor.
		}
	}
}

// Close stops the background probe loop. Idempotent.
func (m *probeMonitor) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

// Static is a Monitor pinned to one state. Tests script connectivity with
// it, and deployments without a probe endpoint can pin themselves online.
type Static struct {
	mu     sync.Mutex
	online bool
	subs   []chan<- bool
}

var _ Monitor = (*Static)(nil)

// NewStatic returns a monitor pinned to the given state.
func NewStatic(online bool) *Static {
	return &Static{online: online}
}

func (s *Static) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *Static) Probe(context.Context) bool {
	return s.Online()
}

func (s *Static) Subscribe(ch chan<- bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, ch)
}

// SetOnline flips the state, notifying subscribers on transitions.
func (s *Static) SetOnline(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.online == online {
		return
	}
	s.online = online
	for _, ch := range s.subs {
		select {
		case ch <- online:
		default:
		}
	}
}
