// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"sync"
	"time"

	"spectra/internal/display"
	applog "spectra/internal/log"
)

// RowMessage is the JSON wire form of one spectral row. Invalid rows (gaps
// left by an overrun) carry no bins; JSON has no encoding for -Inf.
type RowMessage struct {
	Index uint64    `json:"index"`
	Valid bool      `json:"valid"`
	Bins  []float64 `json:"bins,omitempty"`
}

// RowPublisher periodically drains a display consumer and forwards every new
// row through a Transport. It runs in its own goroutine managed by Start and
// Stop.
type RowPublisher struct {
	consumer  *display.Consumer
	transport Transport
	interval  time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	lastIndex uint64
	seenAny   bool
}

// NewRowPublisher creates a publisher that polls consumer at interval and
// forwards rows to t. If the interval is invalid (<= 0), it defaults to
// 16ms (~60Hz).
func NewRowPublisher(interval time.Duration, consumer *display.Consumer, t Transport) (*RowPublisher, error) {
	if consumer == nil {
		return nil, fmt.Errorf("RowPublisher: consumer cannot be nil")
	}
	if t == nil {
		return nil, fmt.Errorf("RowPublisher: transport cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("RowPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	return &RowPublisher{
		consumer:  consumer,
		transport: t,
		interval:  interval,
	}, nil
}

// Start begins the periodic publishing loop. Safe to call only once per
// Start/Stop cycle; subsequent calls while running are no-ops.
func (p *RowPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("RowPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("RowPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publishNew()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
func (p *RowPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("RowPublisher: Publisher goroutine finished.")
	return nil
}

// Close implements io.Closer.
func (p *RowPublisher) Close() error {
	return p.Stop()
}

// publishNew refreshes the consumer and sends every retained row newer than
// the last one already sent, oldest first.
func (p *RowPublisher) publishNew() {
	p.consumer.Refresh()
	for i := 0; i < p.consumer.Len(); i++ {
		row := p.consumer.At(i)
		if p.seenAny && row.Index <= p.lastIndex {
			continue
		}
		msg := RowMessage{Index: row.Index, Valid: row.Valid}
		if row.Valid {
			msg.Bins = make([]float64, len(row.Bins))
			copy(msg.Bins, row.Bins)
		}
		if err := p.transport.Send(msg); err != nil {
			applog.Errorf("RowPublisher: Error sending row %d: %v", row.Index, err)
		}
		p.lastIndex = row.Index
		p.seenAny = true
	}
}

var _ interface{ Close() error } = (*RowPublisher)(nil)
