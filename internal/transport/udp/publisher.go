// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"spectra/internal/display"
	applog "spectra/internal/log"
)

// UDPPublisher periodically fetches new spectral rows from a display
// consumer, packs each into a defined binary format, and sends it over UDP
// using a UDPSender. It runs in a separate goroutine managed by Start and
// Stop methods.
type UDPPublisher struct {
	sender   *UDPSender        // The underlying UDP sender instance.
	consumer *display.Consumer // The consumer to fetch spectral rows from.
	interval time.Duration     // The interval at which new rows are drained.

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects access to ticker and doneChan during Start/Stop.

	sequenceNum uint32 // Monotonically increasing sequence number for packets.
	lastIndex   uint64 // Newest row index already sent.
	seenAny     bool

	// Pre-allocated buffers to reduce allocations in the hot path (buildAndSendPacket).
	f32Buffer    []float32     // Buffer holding float32 bins for binary packing.
	packetBuffer *bytes.Buffer // Reusable buffer for constructing the binary packet.
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
// It requires a valid UDPSender and consumer.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender, consumer *display.Consumer) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if consumer == nil {
		return nil, fmt.Errorf("UDPPublisher: consumer cannot be nil")
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond // Default to ~60Hz if invalid
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	applog.Infof("UDPPublisher: Initializing (Interval: %s, Bins: %d)", interval, consumer.BinCount())

	return &UDPPublisher{
		sender:       sender,
		consumer:     consumer,
		interval:     interval,
		f32Buffer:    make([]float32, consumer.BinCount()),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start begins the periodic publishing process.
// It launches a goroutine that ticks at the configured interval, draining
// new rows on each tick until Stop is called.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Capture local variables for the goroutine to avoid data races on p.ticker/p.doneChan
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publishNew()
			case <-doneChan:
				applog.Infof("UDPPublisher: Publisher goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop gracefully signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times; subsequent calls are no-ops.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		applog.Debugf("UDPPublisher: Stop called but not running.")
		return nil
	}

	p.stopOnce.Do(func() {
		applog.Infof("UDPPublisher: Initiating stop sequence...")
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: Publisher goroutine finished.")
	return nil
}

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Row Index         | uint64         | 8            | Producer row counter    |
| Valid Flag        | uint8          | 1            | 0 = gap row, no bins    |
| Bin Count         | uint16         | 2            | Number of floats (N)    |
| Bins              | []float32      | N * 4        | Per-bin dB magnitudes   |
+-----------------------------------------------------------------------------+

Gap rows (valid flag 0) carry a bin count of zero and no bin payload.
*/

// publishNew drains every row newer than the last one sent and emits one
// packet per row, oldest first.
func (p *UDPPublisher) publishNew() {
	p.consumer.Refresh()
	for i := 0; i < p.consumer.Len(); i++ {
		row := p.consumer.At(i)
		if p.seenAny && row.Index <= p.lastIndex {
			continue
		}
		p.buildAndSendPacket(row.Index, row.Valid, row.Bins)
		p.lastIndex = row.Index
		p.seenAny = true
	}
}

// buildAndSendPacket packs one row into the binary layout above and sends it.
func (p *UDPPublisher) buildAndSendPacket(index uint64, valid bool, bins []float64) {
	binCount := uint16(0)
	if valid {
		if len(p.f32Buffer) != len(bins) {
			p.f32Buffer = make([]float32, len(bins))
		}
		for i, v := range bins {
			p.f32Buffer[i] = float32(v)
		}
		binCount = uint16(len(p.f32Buffer))
	}

	p.sequenceNum++
	timestamp := time.Now().UnixNano()
	validFlag := uint8(0)
	if valid {
		validFlag = 1
	}

	p.packetBuffer.Reset()

	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, index)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, validFlag)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, binCount)
	}
	if err == nil && binCount > 0 {
		err = binary.Write(p.packetBuffer, binary.BigEndian, p.f32Buffer)
	}

	if err != nil {
		applog.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return
	}

	packetBytes := p.packetBuffer.Bytes()
	if err := p.sender.Send(packetBytes); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(packetBytes))
	}
}

// Close implements the io.Closer interface. It gracefully stops the publisher goroutine.
func (p *UDPPublisher) Close() error {
	applog.Debugf("UDPPublisher: Close called, stopping publisher...")
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
