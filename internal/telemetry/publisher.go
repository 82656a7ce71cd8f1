// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package telemetry publishes control node activity over MQTT. Messages
// are CBOR maps under <prefix>/<node>/{session,snapshot,fault,readout}.
package telemetry

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/fxamacker/cbor/v2"
	"github.com/golang/glog"

	"github.com/Thermoquad/casement/pkg/casement"
)

// Topic suffixes
const (
	TopicSession  = "session"
	TopicSnapshot = "snapshot"
	TopicFault    = "fault"
	TopicReadout  = "readout"
)

// Client is the part of paho.Client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// SessionEvent is published when monitoring starts or stops. It is
// retained so late subscribers see the current state.
type SessionEvent struct {
	Session string `cbor:"session"`
	Active  bool   `cbor:"active"`
	Time    int64  `cbor:"time_ms"`
}

// SnapshotEvent is one sensor sample.
type SnapshotEvent struct {
	Session     string `cbor:"session"`
	Temperature uint8  `cbor:"temperature_c"`
	Distance    uint16 `cbor:"distance_cm"`
	Window1     uint8  `cbor:"window1"`
	Window2     uint8  `cbor:"window2"`
	Time        int64  `cbor:"time_ms"`
}

// FaultEvent is one fault written to the log.
type FaultEvent struct {
	Session string `cbor:"session"`
	Code    uint8  `cbor:"code"`
	DTC     string `cbor:"dtc"`
	Time    int64  `cbor:"time_ms"`
}

// ReadoutEvent lists the codes streamed to the HMI by one read-out.
type ReadoutEvent struct {
	Codes []uint8 `cbor:"codes"`
	Time  int64   `cbor:"time_ms"`
}

// Publisher sends events without blocking the caller. Delivery failures
// are logged and otherwise ignored.
type Publisher struct {
	client Client
	base   string
	now    func() time.Time

	mu      sync.Mutex
	session string
}

// New creates a publisher under prefix/node.
func New(client Client, prefix, node string) *Publisher {
	return &Publisher{
		client: client,
		base:   strings.Trim(prefix, "/") + "/" + node + "/",
		now:    time.Now,
	}
}

// Topic returns the full topic for a suffix.
func (p *Publisher) Topic(suffix string) string {
	return p.base + suffix
}

// Session publishes a session state change.
func (p *Publisher) Session(id string, active bool) {
	p.mu.Lock()
	p.session = id
	p.mu.Unlock()
	p.publish(TopicSession, true, SessionEvent{Session: id, Active: active, Time: p.stamp()})
}

// Snapshot publishes a sample.
func (p *Publisher) Snapshot(s casement.SensorSnapshot) {
	p.publish(TopicSnapshot, false, SnapshotEvent{
		Session:     p.currentSession(),
		Temperature: s.Temperature,
		Distance:    s.Distance,
		Window1:     uint8(s.Window1),
		Window2:     uint8(s.Window2),
		Time:        p.stamp(),
	})
}

// Fault publishes a logged fault.
func (p *Publisher) Fault(code casement.FaultCode) {
	p.publish(TopicFault, false, FaultEvent{
		Session: p.currentSession(),
		Code:    uint8(code),
		DTC:     code.DTC(),
		Time:    p.stamp(),
	})
}

// Readout publishes the codes of a completed read-out.
func (p *Publisher) Readout(codes []casement.FaultCode) {
	ev := ReadoutEvent{Codes: make([]uint8, len(codes)), Time: p.stamp()}
	for i, c := range codes {
		ev.Codes[i] = uint8(c)
	}
	p.publish(TopicReadout, false, ev)
}

func (p *Publisher) currentSession() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

func (p *Publisher) stamp() int64 {
	return p.now().UnixMilli()
}

func (p *Publisher) publish(suffix string, retain bool, v interface{}) {
	payload, err := cbor.Marshal(v)
	if err != nil {
		glog.Warningf("telemetry: encode %s: %v", suffix, err)
		return
	}
	topic := p.Topic(suffix)
	if glog.V(2) {
		glog.Infof("PUB %q (%d bytes)", topic, len(payload))
	}
	token := p.client.Publish(topic, 0, retain, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			glog.Warningf("telemetry: publish %s: %v", topic, token.Error())
		}
	}()
}

// Dial connects to the broker at brokerURL. An empty clientID is derived
// from the machine id. The returned close function disconnects.
func Dial(brokerURL, prefix, clientID string) (*Publisher, func(), error) {
	opts, node, err := clientOptions(brokerURL, clientID)
	if err != nil {
		return nil, nil, err
	}
	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, nil, fmt.Errorf("telemetry: connect %s: timed out", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("telemetry: connect %s: %w", brokerURL, err)
	}
	glog.Infof("telemetry: connected to %s as %s", brokerURL, node)
	return New(client, prefix, node), func() { client.Disconnect(250) }, nil
}

func clientOptions(brokerURL, clientID string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, "", fmt.Errorf("telemetry: %w", err)
	}
	scheme := u.Scheme
	if scheme == "" || scheme == "mqtt" {
		scheme = "tcp"
	}

	if clientID == "" {
		clientID, err = NodeID()
		if err != nil {
			return nil, "", err
		}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(scheme + "://" + u.Host).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			glog.Warningf("telemetry: connection lost: %v", err)
		})
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	return opts, clientID, nil
}

// NodeID returns a stable identifier for this machine, hashed so the raw
// machine id is never published.
func NodeID() (string, error) {
	id, err := machineid.ProtectedID("casement")
	if err != nil {
		return "", fmt.Errorf("telemetry: machine id: %w", err)
	}
	return "casement-" + id[:12], nil
}
