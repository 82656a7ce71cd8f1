// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/casement/internal/faultlog"
	"github.com/Thermoquad/casement/internal/hw"
	"github.com/Thermoquad/casement/pkg/casement"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

type fakeWindows struct {
	inits  int
	polls  int
	win1   casement.WindowState
	win2   casement.WindowState
	onPoll func()
}

func (w *fakeWindows) Init() { w.inits++ }

func (w *fakeWindows) Poll(ctx context.Context) error {
	w.polls++
	if w.onPoll != nil {
		w.onPoll()
	}
	return ctx.Err()
}

func (w *fakeWindows) States() (casement.WindowState, casement.WindowState) {
	return w.win1, w.win2
}

type recorder struct {
	sessions  []bool
	snapshots []casement.SensorSnapshot
	faults    []casement.FaultCode
}

func (r *recorder) Session(id string, active bool)     { r.sessions = append(r.sessions, active) }
func (r *recorder) Snapshot(s casement.SensorSnapshot) { r.snapshots = append(r.snapshots, s) }
func (r *recorder) Fault(code casement.FaultCode)      { r.faults = append(r.faults, code) }

type failingStore struct {
	*faultlog.MemoryStore
	err error
}

func (s *failingStore) WriteSlot(addr uint16, b byte) error {
	if s.err != nil {
		return s.err
	}
	return s.MemoryStore.WriteSlot(addr, b)
}

type fixture struct {
	log     *faultlog.Log
	store   *failingStore
	therm   *hw.SimThermometer
	ranger  *hw.SimRangefinder
	windows *fakeWindows
	clock   *fakeClock
	obs     *recorder
	session *Session
}

func newFixture(t *testing.T, slots int) *fixture {
	t.Helper()
	f := &fixture{
		store:   &failingStore{MemoryStore: faultlog.NewMemoryStore(slots)},
		therm:   hw.NewSimThermometer(25),
		ranger:  hw.NewSimRangefinder(100),
		windows: &fakeWindows{},
		clock:   &fakeClock{now: time.Unix(0, 0)},
		obs:     &recorder{},
	}
	var err error
	f.log, err = faultlog.Open(f.store, nil)
	require.NoError(t, err)
	f.session = New(Config{
		Log:         f.log,
		Thermometer: f.therm,
		Rangefinder: f.ranger,
		Windows:     f.windows,
		Clock:       f.clock,
		Settle:      DefaultSettle,
		Observer:    f.obs,
	})
	return f
}

func (f *fixture) entries(t *testing.T) []casement.FaultCode {
	t.Helper()
	codes, err := f.log.Entries()
	require.NoError(t, err)
	return codes
}

func (f *fixture) tick(t *testing.T) {
	t.Helper()
	require.NoError(t, f.session.Tick(context.Background()))
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, 16)
	require.Equal(t, Idle, f.session.State())
	require.Empty(t, f.session.ID())

	f.session.Start()
	require.True(t, f.session.Active())
	require.Equal(t, 1, f.ranger.Inits())
	require.Equal(t, 1, f.windows.inits)
	id := f.session.ID()
	require.NotEmpty(t, id)

	f.session.Start()
	require.Equal(t, 2, f.ranger.Inits(), "start re-initialises every time")
	require.Equal(t, 2, f.windows.inits)
	require.Equal(t, id, f.session.ID())

	f.session.Stop()
	require.Equal(t, Idle, f.session.State())
	f.session.Stop()
	require.Equal(t, []bool{true, false}, f.obs.sessions)
}

func TestRestartAfterStop(t *testing.T) {
	f := newFixture(t, 16)
	f.session.Stop()
	require.Equal(t, Idle, f.session.State())
	require.Empty(t, f.obs.sessions, "stop while idle is ignored")

	f.session.Start()
	first := f.session.ID()
	f.session.Stop()
	f.session.Start()
	require.Equal(t, Active, f.session.State())
	require.NotEqual(t, first, f.session.ID())
	require.Equal(t, 2, f.ranger.Inits(), "entering active re-initialises")
	require.Equal(t, []bool{true, false, true}, f.obs.sessions)
}

func TestTickIdleDoesNothing(t *testing.T) {
	f := newFixture(t, 16)
	f.ranger.Set(5)
	f.tick(t)
	require.Empty(t, f.entries(t))
	require.Zero(t, f.windows.polls)
}

func TestDistanceLoggedOncePerSession(t *testing.T) {
	f := newFixture(t, 16)
	f.ranger.Set(5)
	f.therm.Set(50)
	f.session.Start()

	f.tick(t)
	require.Equal(t, []casement.FaultCode{casement.FaultDistanceTooClose}, f.entries(t))

	for i := 0; i < 5; i++ {
		f.tick(t)
	}
	require.Equal(t, []casement.FaultCode{casement.FaultDistanceTooClose}, f.entries(t))
	require.Equal(t, []time.Duration{DefaultSettle}, f.clock.sleeps)
	require.Equal(t, 6, f.windows.polls, "sampling services the windows")
}

func TestBothThresholdsSameTick(t *testing.T) {
	f := newFixture(t, 16)
	f.ranger.Set(5)
	f.therm.Set(95)
	f.session.Start()

	f.tick(t)
	want := []casement.FaultCode{casement.FaultDistanceTooClose, casement.FaultOverheat}
	require.Equal(t, want, f.entries(t))
	require.Equal(t, want, f.obs.faults)
	d, temp := f.session.Flags()
	require.True(t, d)
	require.True(t, temp)
}

func TestThresholdBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		distance uint16
		temp     uint8
		want     []casement.FaultCode
	}{
		{"at limits", 10, 90, nil},
		{"distance just below", 9, 90, []casement.FaultCode{casement.FaultDistanceTooClose}},
		{"temperature just above", 10, 91, []casement.FaultCode{casement.FaultOverheat}},
		{"zero distance", 0, 0, []casement.FaultCode{casement.FaultDistanceTooClose}},
		{"max values", 65535, 255, []casement.FaultCode{casement.FaultOverheat}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 16)
			f.ranger.Set(tt.distance)
			f.therm.Set(tt.temp)
			f.session.Start()
			f.tick(t)
			f.tick(t)
			got := f.entries(t)
			if len(tt.want) == 0 {
				require.Empty(t, got)
				return
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestClearFlagsAllowsNewEntries(t *testing.T) {
	f := newFixture(t, 16)
	f.ranger.Set(5)
	f.session.Start()
	f.tick(t)

	f.session.ClearFlags()
	f.tick(t)
	f.tick(t)
	require.Equal(t, []casement.FaultCode{
		casement.FaultDistanceTooClose,
		casement.FaultDistanceTooClose,
	}, f.entries(t))
}

func TestStoreFailureRetriedNextTick(t *testing.T) {
	f := newFixture(t, 16)
	f.ranger.Set(5)
	f.store.err = errors.New("eeprom nack")
	f.session.Start()

	f.tick(t)
	f.tick(t)
	d, _ := f.session.Flags()
	require.False(t, d)
	require.Zero(t, f.log.WriteCursor())
	require.Len(t, f.clock.sleeps, 2, "settle follows failed writes too")

	f.store.err = nil
	f.tick(t)
	d, _ = f.session.Flags()
	require.True(t, d)
	require.Equal(t, 1, f.log.WriteCursor())
}

func TestFullLogSkipsSettle(t *testing.T) {
	f := newFixture(t, 1)
	f.ranger.Set(5)
	f.therm.Set(95)
	f.session.Start()

	f.tick(t)
	require.Equal(t, []time.Duration{DefaultSettle}, f.clock.sleeps)
	_, temp := f.session.Flags()
	require.False(t, temp)

	f.tick(t)
	require.Len(t, f.clock.sleeps, 1)
}

func TestSampleReadsAfterWindowPoll(t *testing.T) {
	f := newFixture(t, 16)
	f.ranger.Set(100)
	f.therm.Set(25)
	f.windows.onPoll = func() {
		// A window move finishes with the readings already changed.
		f.ranger.Set(4)
		f.therm.Set(95)
	}
	f.session.Start()

	snap, err := f.session.Sample(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint16(4), snap.Distance)
	require.Equal(t, uint8(95), snap.Temperature)

	require.NoError(t, f.session.Evaluate(context.Background(), snap))
	require.Equal(t, []casement.FaultCode{
		casement.FaultDistanceTooClose,
		casement.FaultOverheat,
	}, f.entries(t))
}

func TestSnapshotRefreshesTemperature(t *testing.T) {
	f := newFixture(t, 16)
	f.windows.win1 = casement.WindowOpen

	snap := f.session.Snapshot()
	require.Equal(t, uint16(0), snap.Distance, "no sample yet")
	require.Equal(t, uint8(25), snap.Temperature)
	require.Equal(t, casement.WindowOpen, snap.Window1)

	f.ranger.Set(300)
	f.session.Start()
	f.tick(t)
	f.ranger.Set(7)
	f.therm.Set(40)

	snap = f.session.Snapshot()
	require.Equal(t, casement.SensorSnapshot{
		Temperature: 40,
		Distance:    300,
		Window1:     casement.WindowOpen,
		Window2:     casement.WindowClosed,
	}, snap)
}

func TestTickCancelled(t *testing.T) {
	f := newFixture(t, 16)
	f.ranger.Set(5)
	f.session.Start()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, f.session.Tick(ctx), context.Canceled)
}
