// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package control is the control node: the command responder that answers
// the HMI and the loop that drives windows, responder and monitoring.
package control

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/Thermoquad/casement/internal/faultlog"
	"github.com/Thermoquad/casement/internal/monitor"
	"github.com/Thermoquad/casement/internal/window"
	"github.com/Thermoquad/casement/pkg/casement"
)

// DefaultReadoutGap is the pause after each fault byte of a read-out.
const DefaultReadoutGap = 10 * time.Millisecond

// ReadoutObserver is told which codes a read-out streamed.
type ReadoutObserver interface {
	Readout(codes []casement.FaultCode)
}

// Responder answers command bytes from the HMI. Every received byte is
// acknowledged before it is interpreted; unknown bytes are then dropped.
type Responder struct {
	link    *casement.Link
	session *monitor.Session
	log     *faultlog.Log
	clock   window.Clock

	// Gap is the pause after each fault byte of a read-out.
	Gap time.Duration
	// Observer, if set, receives every completed read-out.
	Observer ReadoutObserver
}

// NewResponder creates a responder.
func NewResponder(link *casement.Link, session *monitor.Session, log *faultlog.Log, clock window.Clock) *Responder {
	if clock == nil {
		clock = window.SystemClock{}
	}
	return &Responder{
		link:    link,
		session: session,
		log:     log,
		clock:   clock,
		Gap:     DefaultReadoutGap,
	}
}

// Link returns the link the responder answers on.
func (r *Responder) Link() *casement.Link { return r.link }

// Poll handles at most one pending command byte. It returns without
// waiting when nothing has arrived. Replies block until the HMI
// acknowledges each byte.
func (r *Responder) Poll(ctx context.Context) (handled bool, err error) {
	b, ok, err := r.link.Poll()
	if err != nil || !ok {
		return false, err
	}
	if err := r.link.Ack(); err != nil {
		return true, err
	}
	if glog.V(2) {
		glog.Infof("RX %s", casement.FormatByte(casement.FromHMI, b))
	}

	cmd, known := casement.ParseCommand(b)
	if !known {
		r.link.Stats.RecordUnknown()
		return true, nil
	}
	r.link.Stats.RecordCommand(cmd)

	switch cmd {
	case casement.StartMonitoring:
		r.session.Start()
	case casement.DisplayValues:
		return true, r.sendSnapshot()
	case casement.DetectFaults:
		if err := r.sendFaults(ctx); err != nil {
			return true, err
		}
		r.session.ClearFlags()
	case casement.StopMonitoring:
		r.session.Stop()
	}
	return true, nil
}

func (r *Responder) sendSnapshot() error {
	snap := r.session.Snapshot()
	packet := casement.EncodeSnapshot(snap)
	for _, b := range packet {
		if err := r.link.SendAcked(b); err != nil {
			return err
		}
	}
	r.link.Stats.RecordSnapshot()
	if glog.V(1) {
		glog.Infof("served snapshot %+v", snap)
	}
	return nil
}

// sendFaults streams the log followed by the end byte. A store error ends
// the stream early; the HMI only sees it end.
func (r *Responder) sendFaults(ctx context.Context) error {
	var (
		codes []casement.FaultCode
		err   error
	)
	for code := range r.log.ReadAll() {
		if err = r.link.SendAcked(byte(code)); err != nil {
			break
		}
		codes = append(codes, code)
		if err = r.clock.Sleep(ctx, r.Gap); err != nil {
			break
		}
	}
	if err != nil {
		return err
	}
	if readErr := r.log.Err(); readErr != nil {
		glog.Warningf("read-out ended early: %v", readErr)
	}
	if err := r.link.SendAcked(casement.EndOfFaultsByte); err != nil {
		return err
	}
	r.link.Stats.RecordFaults(len(codes))
	glog.Infof("served read-out of %d faults", len(codes))
	if r.Observer != nil {
		r.Observer.Readout(codes)
	}
	return nil
}
