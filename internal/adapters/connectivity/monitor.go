// Package connectivity provides monitors for the offline/online
// signal the sync orchestrator reacts to.
package connectivity

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ldeneuve/felicare/internal/ports"
)

const (
	defaultProbeInterval = 15 * time.Second
	defaultProbeTimeout  = 3 * time.Second
)

// Probe checks reachability of the remote store with a HEAD request
// and publishes state transitions on Changes.
type Probe struct {
	url        string
	httpClient *http.Client
	interval   time.Duration

	mu      sync.Mutex
	online  bool
	known   bool
	changes chan bool
}

var _ ports.ConnectivityMonitor = (*Probe)(nil)

func NewProbe(probeURL string, httpClient *http.Client, interval time.Duration) *Probe {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultProbeTimeout}
	}
	if interval <= 0 {
		interval = defaultProbeInterval
	}

	return &Probe{
		url:        strings.TrimSpace(probeURL),
		httpClient: httpClient,
		interval:   interval,
		changes:    make(chan bool, 8),
	}
}

func (p *Probe) Online(ctx context.Context) bool {
	online := p.check(ctx)
	p.record(online)
	return online
}

func (p *Probe) Changes() <-chan bool {
	return p.changes
}

// Watch polls until the context is cancelled. State transitions are
// published on Changes; steady states are not.
func (p *Probe) Watch(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.record(p.check(ctx))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.record(p.check(ctx))
		}
	}
}

func (p *Probe) check(ctx context.Context) bool {
	if p.url == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < http.StatusInternalServerError
}

func (p *Probe) record(online bool) {
	p.mu.Lock()
	changed := !p.known || p.online != online
	p.online = online
	p.known = true
	p.mu.Unlock()

	if !changed {
		return
	}

	select {
	case p.changes <- online:
	default:
	}
}

// Static always reports a fixed state; used when the remote store is
// not configured and by tests.
type Static struct {
	online  bool
	changes chan bool
}

var _ ports.ConnectivityMonitor = (*Static)(nil)

func NewStatic(online bool) *Static {
	return &Static{online: online, changes: make(chan bool)}
}

func (s *Static) Online(context.Context) bool {
	return s.online
}

func (s *Static) Changes() <-chan bool {
	return s.changes
}
