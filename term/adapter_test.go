package term

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pkt.systems/gitguide/schema"
)

func newTestAdapter(b *testBackend, emu Emulator, fetches *atomic.Int32, consumer func(schema.BridgeEvent)) *Adapter {
	cfg := AdapterConfig{
		BaseURL:     b.baseURL(),
		WorkspaceID: "ws-1",
		FetchToken: func(ctx context.Context) (string, error) {
			if fetches != nil {
				fetches.Add(1)
			}
			return "tok", nil
		},
		KeepaliveInterval: time.Hour,
		SettleDelay:       -1,
	}
	return NewAdapter(cfg, emu, consumer)
}

func TestAdapterDefersInitUntilSized(t *testing.T) {
	backend := newTestBackend(t)
	emu := NewScreenEmulator()
	var fetches atomic.Int32
	adapter := newTestAdapter(backend, emu, &fetches, nil)
	defer adapter.Close()

	// No viewport yet: observations must not initialize anything.
	adapter.ObserveLayout(context.Background())
	adapter.ObserveLayout(context.Background())
	backend.expectNoAccept(t, 150*time.Millisecond)
	if n := fetches.Load(); n != 0 {
		t.Fatalf("token fetched before the emulator was sized (%d fetches)", n)
	}

	emu.SetSize(80, 24)
	adapter.ObserveLayout(context.Background())
	backend.waitAccept(t, 2*time.Second)
	waitFor(t, 2*time.Second, func() bool {
		return adapter.Status() == schema.StatusConnected
	}, "adapter connected once sized")
}

func TestAdapterInitializesAndFetchesOnce(t *testing.T) {
	backend := newTestBackend(t)
	emu := NewScreenEmulator()
	emu.SetSize(80, 24)
	var fetches atomic.Int32
	adapter := newTestAdapter(backend, emu, &fetches, nil)
	defer adapter.Close()

	adapter.ObserveLayout(context.Background())
	backend.waitAccept(t, 2*time.Second)
	waitFor(t, 2*time.Second, func() bool {
		return adapter.Status() == schema.StatusConnected
	}, "adapter connected")

	// Repeat observations after initialization must not refetch or redial.
	adapter.ObserveLayout(context.Background())
	adapter.ObserveLayout(context.Background())
	backend.expectNoAccept(t, 200*time.Millisecond)
	if n := fetches.Load(); n != 1 {
		t.Fatalf("expected exactly one token fetch, got %d", n)
	}
}

func TestAdapterTokenFailurePaintsError(t *testing.T) {
	backend := newTestBackend(t)
	emu := NewScreenEmulator()
	emu.SetSize(80, 24)
	events := make(chan schema.BridgeEvent, 16)
	adapter := NewAdapter(AdapterConfig{
		BaseURL:     backend.baseURL(),
		WorkspaceID: "ws-1",
		FetchToken: func(ctx context.Context) (string, error) {
			return "", errors.New("token service down")
		},
		SettleDelay: -1,
	}, emu, func(ev schema.BridgeEvent) { events <- ev })
	defer adapter.Close()

	adapter.ObserveLayout(context.Background())

	select {
	case ev := <-events:
		if ev.Kind != schema.EventError || !strings.Contains(ev.Message, "token service down") {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for error event")
	}
	if !strings.Contains(string(emu.Contents()), "token service down") {
		t.Fatalf("expected the failure painted into the terminal, got %q", emu.Contents())
	}
	backend.expectNoAccept(t, 150*time.Millisecond)
	if adapter.Status() != schema.StatusDisconnected {
		t.Fatalf("expected disconnected after token failure, got %q", adapter.Status())
	}
}

func TestAdapterForwardsInputWithoutLocalEcho(t *testing.T) {
	backend := newTestBackend(t)
	emu := NewScreenEmulator()
	emu.SetSize(80, 24)
	adapter := newTestAdapter(backend, emu, nil, nil)
	defer adapter.Close()

	adapter.SetActive(context.Background(), true)
	bc := backend.waitAccept(t, 2*time.Second)
	waitFor(t, 2*time.Second, func() bool {
		return adapter.Status() == schema.StatusConnected
	}, "adapter connected")

	emu.SendInput([]byte("ls\r"))
	select {
	case got := <-bc.inputs:
		if string(got) != "ls\r" {
			t.Fatalf("expected input forwarded verbatim, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for forwarded input")
	}
	// The screen shows only remote output, never the local keystrokes.
	if len(emu.Contents()) != 0 {
		t.Fatalf("expected no local echo, screen holds %q", emu.Contents())
	}

	bc.sendOutput("ls\r\nREADME.md\r\n")
	waitFor(t, 2*time.Second, func() bool {
		return strings.Contains(string(emu.Contents()), "README.md")
	}, "remote echo rendered")
}

func TestAdapterResizeGatedOnActivation(t *testing.T) {
	backend := newTestBackend(t)
	emu := NewScreenEmulator()
	emu.SetSize(80, 24)
	adapter := newTestAdapter(backend, emu, nil, nil)
	defer adapter.Close()

	adapter.SetActive(context.Background(), true)
	bc := backend.waitAccept(t, 2*time.Second)
	waitFor(t, 2*time.Second, func() bool {
		return adapter.Status() == schema.StatusConnected
	}, "adapter connected")

	// Visible: the fit result goes straight out.
	emu.SetSize(100, 30)
	select {
	case size := <-bc.sizes:
		if size.Cols != 100 || size.Rows != 30 {
			t.Fatalf("unexpected resize payload: %+v", size)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for active-tab resize")
	}

	// Hidden: resizes are suppressed entirely.
	adapter.SetActive(context.Background(), false)
	emu.SetSize(120, 40)
	select {
	case size := <-bc.sizes:
		t.Fatalf("resize forwarded while inactive: %+v", size)
	case <-time.After(150 * time.Millisecond):
	}

	// Reactivation refits exactly once with the current dimensions.
	adapter.SetActive(context.Background(), true)
	select {
	case size := <-bc.sizes:
		if size.Cols != 120 || size.Rows != 40 {
			t.Fatalf("expected refit with current dimensions, got %+v", size)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for reactivation refit")
	}
	select {
	case size := <-bc.sizes:
		t.Fatalf("expected exactly one refit frame, got extra %+v", size)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestAdapterCloseIdempotent(t *testing.T) {
	backend := newTestBackend(t)
	emu := NewScreenEmulator()
	emu.SetSize(80, 24)
	adapter := newTestAdapter(backend, emu, nil, nil)

	adapter.SetActive(context.Background(), true)
	bc := backend.waitAccept(t, 2*time.Second)
	waitFor(t, 2*time.Second, func() bool {
		return adapter.Status() == schema.StatusConnected
	}, "adapter connected")

	if err := adapter.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := adapter.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	select {
	case <-bc.gone:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the backend connection torn down on close")
	}
	// Listeners are removed: typing after close reaches nothing.
	emu.SendInput([]byte("stray"))
	select {
	case got := <-bc.inputs:
		t.Fatalf("input forwarded after close: %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}
