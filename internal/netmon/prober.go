package netmon

import (
	"context"
	"net"
	"sync"
	"time"
)

// DialProber detects connectivity by dialing a well-known address. It is
// the stand-in for a platform network-status API when the core runs as a
// standalone daemon.
type DialProber struct {
	target   string
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	subs    map[int]func(bool)
	nextSub int
	last    bool
	started bool
	stopCh  chan struct{}
}

// NewDialProber creates a prober that dials target every interval.
func NewDialProber(target string, interval time.Duration) *DialProber {
	return &DialProber{
		target:   target,
		interval: interval,
		timeout:  3 * time.Second,
		subs:     make(map[int]func(bool)),
		last:     true,
	}
}

// Online dials the target once.
func (p *DialProber) Online(ctx context.Context) (bool, error) {
	d := net.Dialer{Timeout: p.timeout}
	conn, err := d.DialContext(ctx, "tcp", p.target)
	if err != nil {
		return false, nil
	}
	conn.Close()
	return true, nil
}

// Watch starts the polling loop on first use and registers the callback.
func (p *DialProber) Watch(callback func(online bool)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = callback

	if !p.started {
		p.started = true
		p.stopCh = make(chan struct{})
		go p.loop()
	}
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

// Close stops the polling loop.
func (p *DialProber) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		close(p.stopCh)
		p.started = false
	}
}

func (p *DialProber) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			online, _ := p.Online(context.Background())

			p.mu.Lock()
			changed := online != p.last
			p.last = online
			var callbacks []func(bool)
			if changed {
				for _, cb := range p.subs {
					callbacks = append(callbacks, cb)
				}
			}
			p.mu.Unlock()

			for _, cb := range callbacks {
				cb(online)
			}
		}
	}
}
