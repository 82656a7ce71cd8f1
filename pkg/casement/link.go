// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package casement

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	// ErrProtocolTimeout is returned when Link.Timeout is set and the peer
	// does not answer in time. With a zero Timeout waits never end.
	ErrProtocolTimeout = errors.New("casement: protocol timeout")
	// ErrLinkClosed is returned once the underlying stream fails or the link
	// is closed locally.
	ErrLinkClosed = errors.New("casement: link closed")
)

// Link exchanges single bytes with the peer node. A background reader
// drains the stream into a queue so that Poll never blocks; every other
// receive blocks until a byte arrives.
//
// A Link has one consumer. It is not safe to call its methods from more
// than one goroutine at a time.
type Link struct {
	// Timeout bounds each blocking wait. Zero (the default) waits forever,
	// which is how the firmware on both ends behaves.
	Timeout time.Duration

	// Stats receives exchange counters. May be nil.
	Stats *Statistics

	rw      io.ReadWriter
	rx      chan byte
	readErr error
	done    chan struct{}
	once    sync.Once
}

// NewLink wraps rw and starts the background reader.
func NewLink(rw io.ReadWriter) *Link {
	l := &Link{
		rw:   rw,
		rx:   make(chan byte, 256),
		done: make(chan struct{}),
	}
	go l.readLoop()
	return l
}

func (l *Link) readLoop() {
	defer close(l.rx)
	buf := make([]byte, 64)
	for {
		n, err := l.rw.Read(buf)
		for i := 0; i < n; i++ {
			select {
			case l.rx <- buf[i]:
			case <-l.done:
				return
			}
		}
		if err != nil {
			l.readErr = err
			return
		}
		// Streams with a read timeout return 0, nil; this is where a
		// closed link stops.
		select {
		case <-l.done:
			return
		default:
		}
	}
}

// Close stops delivering bytes and unblocks pending waits. It does not
// close the underlying stream; the reader exits after its current Read
// returns, so streams should time out their reads or be closed too.
func (l *Link) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

func (l *Link) closedErr() error {
	if l.readErr == nil || errors.Is(l.readErr, io.EOF) {
		return ErrLinkClosed
	}
	if errors.Is(l.readErr, ErrLinkClosed) {
		return l.readErr
	}
	return fmt.Errorf("%w: %v", ErrLinkClosed, l.readErr)
}

// Poll returns a pending byte without blocking. ok is false when nothing
// has arrived.
func (l *Link) Poll() (b byte, ok bool, err error) {
	select {
	case <-l.done:
		return 0, false, ErrLinkClosed
	default:
	}
	select {
	case b, open := <-l.rx:
		if !open {
			return 0, false, l.closedErr()
		}
		l.Stats.received(b)
		return b, true, nil
	default:
		return 0, false, nil
	}
}

// deadline returns the timer channel for one blocking wait, or nil.
func (l *Link) deadline() (<-chan time.Time, func()) {
	if l.Timeout <= 0 {
		return nil, func() {}
	}
	t := time.NewTimer(l.Timeout)
	return t.C, func() { t.Stop() }
}

func (l *Link) next(timeout <-chan time.Time) (byte, error) {
	select {
	case b, open := <-l.rx:
		if !open {
			return 0, l.closedErr()
		}
		l.Stats.received(b)
		return b, nil
	case <-timeout:
		l.Stats.timeout()
		return 0, ErrProtocolTimeout
	case <-l.done:
		return 0, ErrLinkClosed
	}
}

// Receive blocks until the peer sends a byte.
func (l *Link) Receive() (byte, error) {
	timeout, stop := l.deadline()
	defer stop()
	return l.next(timeout)
}

// Send writes one byte without waiting for the acknowledgment.
func (l *Link) Send(b byte) error {
	if _, err := l.rw.Write([]byte{b}); err != nil {
		return fmt.Errorf("write 0x%02X: %w", b, err)
	}
	l.Stats.sent(b)
	return nil
}

// Ack acknowledges the byte just received.
func (l *Link) Ack() error {
	if err := l.Send(AckByte); err != nil {
		return err
	}
	l.Stats.ackSent()
	return nil
}

// AwaitAck blocks until the peer's acknowledgment arrives. Any other byte
// received meanwhile is discarded.
func (l *Link) AwaitAck() error {
	timeout, stop := l.deadline()
	defer stop()
	for {
		b, err := l.next(timeout)
		if err != nil {
			return err
		}
		if b == AckByte {
			l.Stats.ackReceived()
			return nil
		}
		l.Stats.discarded()
	}
}

// SendAcked sends b and waits for its acknowledgment.
func (l *Link) SendAcked(b byte) error {
	if err := l.Send(b); err != nil {
		return err
	}
	return l.AwaitAck()
}

// ReceiveAcked waits for a byte and acknowledges it.
func (l *Link) ReceiveAcked() (byte, error) {
	b, err := l.Receive()
	if err != nil {
		return 0, err
	}
	return b, l.Ack()
}
