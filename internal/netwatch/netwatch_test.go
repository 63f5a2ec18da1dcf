package netwatch

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestStatic_Online(t *testing.T) {
	m := NewStatic(true)
	if !m.Online() {
		t.Error("static monitor created online reports offline")
	}
	m.SetOnline(false)
	if m.Online() {
		t.Error("static monitor reports online after SetOnline(false)")
	}
	if m.Probe(context.Background()) {
		t.Error("Probe disagrees with pinned state")
	}
}

func TestStatic_SubscribeNotifiesOnTransition(t *testing.T) {
	m := NewStatic(true)
	ch := make(chan bool, 1)
	m.Subscribe(ch)

	m.SetOnline(true) // no transition, no notification
	select {
	case <-ch:
		t.Fatal("notified without a state transition")
	default:
	}

	m.SetOnline(false)
	select {
	case got := <-ch:
		if got {
			t.Error("notification carried online=true for an offline transition")
		}
	case <-time.After(time.Second):
		t.Fatal("no notification for state transition")
	}
}

func TestProbeMonitor_ProbeAgainstLocalListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	m := New(Config{Endpoint: ln.Addr().String(), Timeout: time.Second})
	defer m.Close()

	if !m.Probe(context.Background()) {
		t.Error("probe against live listener failed")
	}
	if !m.Online() {
		t.Error("cached state not online after successful probe")
	}
}

func TestProbeMonitor_ProbeFailureGoesOffline(t *testing.T) {
	// A port from the TEST-NET-1 range nothing listens on locally.
	m := New(Config{Endpoint: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
	defer m.Close()

	ch := make(chan bool, 1)
	m.Subscribe(ch)

	if m.Probe(context.Background()) {
		t.Skip("unexpected listener on 127.0.0.1:1")
	}
	if m.Online() {
		t.Error("cached state still online after failed probe")
	}
	select {
	case got := <-ch:
		if got {
			t.Error("transition notification carried online=true")
		}
	case <-time.After(time.Second):
		t.Fatal("no offline notification")
	}
}
