// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package casement

// Requester drives the HMI side of the link: it sends key bytes and reads
// back the replies the control node streams for them.
type Requester struct {
	link *Link
}

// NewRequester creates a requester over an established link.
func NewRequester(link *Link) *Requester {
	return &Requester{link: link}
}

// Link returns the underlying link.
func (r *Requester) Link() *Link {
	return r.link
}

// SendKey sends a raw keypad byte and waits for the acknowledgment. The
// control node acknowledges every byte, including ones it does not
// recognise.
func (r *Requester) SendKey(b byte) error {
	return r.link.SendAcked(b)
}

// Send sends a command byte and waits for the acknowledgment. Commands that
// produce a reply must be followed by ReadSnapshot or ReadFaults.
func (r *Requester) Send(c Command) error {
	return r.link.SendAcked(c.Byte())
}

// ReadSnapshot receives the five snapshot bytes, acknowledging each one.
func (r *Requester) ReadSnapshot() (SensorSnapshot, error) {
	var buf [SnapshotSize]byte
	for i := range buf {
		b, err := r.link.ReceiveAcked()
		if err != nil {
			return SensorSnapshot{}, err
		}
		buf[i] = b
	}
	return DecodeSnapshot(buf[:])
}

// RequestSnapshot sends DisplayValues and reads the reply.
func (r *Requester) RequestSnapshot() (SensorSnapshot, error) {
	if err := r.Send(DisplayValues); err != nil {
		return SensorSnapshot{}, err
	}
	return r.ReadSnapshot()
}

// ReadFaults receives fault bytes until the end-of-stream byte, calling fn
// for each one after it has been acknowledged. The end byte is
// acknowledged too. fn may block; the control node waits for each ack.
func (r *Requester) ReadFaults(fn func(code FaultCode)) error {
	for {
		b, err := r.link.ReceiveAcked()
		if err != nil {
			return err
		}
		if b == EndOfFaultsByte {
			return nil
		}
		if fn != nil {
			fn(FaultCode(b))
		}
	}
}

// RequestFaults sends DetectFaults and collects the streamed codes.
func (r *Requester) RequestFaults() ([]FaultCode, error) {
	if err := r.Send(DetectFaults); err != nil {
		return nil, err
	}
	var codes []FaultCode
	err := r.ReadFaults(func(code FaultCode) {
		codes = append(codes, code)
	})
	return codes, err
}
