// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package control

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/Thermoquad/casement/internal/monitor"
	"github.com/Thermoquad/casement/internal/window"
)

// Loop delays
const (
	DefaultMonitoringIdle = 100 * time.Millisecond
	DefaultIdle           = 50 * time.Millisecond
)

// WindowPoller services the window buttons.
type WindowPoller interface {
	Poll(ctx context.Context) error
}

// Loop is the control node's single thread of control. Every step
// services the windows, then the responder, then monitoring if active,
// and finally idles.
type Loop struct {
	Windows   WindowPoller
	Responder *Responder
	Session   *monitor.Session
	Clock     window.Clock

	MonitoringIdle time.Duration
	Idle           time.Duration
}

// Step runs one iteration.
func (l *Loop) Step(ctx context.Context) error {
	if err := l.Windows.Poll(ctx); err != nil {
		return err
	}
	if _, err := l.Responder.Poll(ctx); err != nil {
		return err
	}
	if l.Session.Active() {
		if err := l.Session.Tick(ctx); err != nil {
			return err
		}
		return l.clock().Sleep(ctx, l.MonitoringIdle)
	}
	return l.clock().Sleep(ctx, l.Idle)
}

// Run steps until ctx is done or the link fails. Cancelling ctx also
// closes the link so that a pending acknowledgment wait returns.
func (l *Loop) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		l.Responder.Link().Close()
	})
	defer stop()

	glog.Info("control loop started")
	for {
		err := l.Step(ctx)
		if ctx.Err() != nil {
			glog.Info("control loop stopped")
			return nil
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			glog.Errorf("control loop: %v", err)
			return err
		}
	}
}

func (l *Loop) clock() window.Clock {
	if l.Clock == nil {
		return window.SystemClock{}
	}
	return l.Clock
}
