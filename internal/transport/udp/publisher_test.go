// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"spectra/internal/display"
	"spectra/internal/dsp"
	"spectra/pkg/history"
)

func newRowRing(capacity, binCount int) *history.RingHistory[dsp.SpectralRow] {
	ring := history.New[dsp.SpectralRow](capacity)
	ring.InitSlots(func(r *dsp.SpectralRow) {
		r.Bins = make([]float64, binCount)
	})
	return ring
}

type packet struct {
	Sequence  uint32
	Timestamp int64
	Index     uint64
	Valid     uint8
	BinCount  uint16
	Bins      []float32
}

func decodePacket(t *testing.T, data []byte) packet {
	t.Helper()
	r := bytes.NewReader(data)
	var p packet
	for _, field := range []any{&p.Sequence, &p.Timestamp, &p.Index, &p.Valid, &p.BinCount} {
		if err := binary.Read(r, binary.BigEndian, field); err != nil {
			t.Fatalf("truncated packet: %v", err)
		}
	}
	p.Bins = make([]float32, p.BinCount)
	if p.BinCount > 0 {
		if err := binary.Read(r, binary.BigEndian, p.Bins); err != nil {
			t.Fatalf("truncated payload: %v", err)
		}
	}
	return p
}

func TestUDPPublisherPacketRoundTrip(t *testing.T) {
	const binCount = 3

	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	sender, err := NewUDPSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer sender.Close()

	ring := newRowRing(8, binCount)
	consumer := display.NewConsumer(ring, binCount, 8, 64, &history.OverrunCounter{}, nil)

	pub, err := NewUDPPublisher(10*time.Millisecond, sender, consumer)
	if err != nil {
		t.Fatal(err)
	}

	ring.WriteWith(func(r *dsp.SpectralRow) {
		r.Bins[0], r.Bins[1], r.Bins[2] = -10, -20, -30
		r.Index = 0
		r.Valid = true
	})
	pub.publishNew()

	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1500)
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatal(err)
	}

	p := decodePacket(t, buf[:n])
	if p.Sequence != 1 {
		t.Errorf("sequence = %d, want 1", p.Sequence)
	}
	if p.Index != 0 || p.Valid != 1 || p.BinCount != binCount {
		t.Errorf("header = %+v, want valid row 0 with %d bins", p, binCount)
	}
	for i, want := range []float32{-10, -20, -30} {
		if p.Bins[i] != want {
			t.Errorf("bin %d = %g, want %g", i, p.Bins[i], want)
		}
	}
}

func TestUDPPublisherGapPacketHasNoPayload(t *testing.T) {
	const binCount = 2

	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	sender, err := NewUDPSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer sender.Close()

	ring := newRowRing(4, binCount)
	consumer := display.NewConsumer(ring, binCount, 16, 64, &history.OverrunCounter{}, nil)
	pub, err := NewUDPPublisher(10*time.Millisecond, sender, consumer)
	if err != nil {
		t.Fatal(err)
	}

	// Overrun the ring so the oldest rows go out as gaps.
	for r0 := 0; r0 < 6; r0++ {
		ring.WriteWith(func(r *dsp.SpectralRow) {
			r.Index = ring.WriteCount()
			r.Valid = true
		})
	}
	pub.publishNew()

	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1500)
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatal(err)
	}

	p := decodePacket(t, buf[:n])
	if p.Valid != 0 || p.BinCount != 0 {
		t.Errorf("first packet = %+v, want an empty gap packet", p)
	}
	if p.Index != 0 {
		t.Errorf("gap index = %d, want 0", p.Index)
	}
}

func TestUDPSenderRejectsUseAfterClose(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	sender, err := NewUDPSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	if err := sender.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sender.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sender.Send([]byte{1}); err == nil {
		t.Fatal("expected error sending through a closed sender")
	}
}
