package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/genricoloni/adskip/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	testService = "org.mpris.MediaPlayer2.spotify"
	testPath    = "/org/mpris/MediaPlayer2"
)

func propertiesSignal(changed map[string]dbus.Variant) *dbus.Signal {
	return &dbus.Signal{
		Name:   propertiesChangedSignal,
		Sender: ":1.100",
		Path:   testPath,
		Body:   []interface{}{domain.PlayerInterface, changed, []string{}},
	}
}

func trackSignal(trackID string) *dbus.Signal {
	return propertiesSignal(map[string]dbus.Variant{
		"Metadata": dbus.MakeVariant(map[string]dbus.Variant{
			"mpris:trackid": dbus.MakeVariant(trackID),
		}),
	})
}

func ownerSignal(name, oldOwner, newOwner string) *dbus.Signal {
	return &dbus.Signal{
		Name:   nameOwnerChangedSignal,
		Sender: busName,
		Path:   busPath,
		Body:   []interface{}{name, oldOwner, newOwner},
	}
}

func TestSubscribeProperties_DeliversTrackID(t *testing.T) {
	fake := newFakeDBusClient()
	mon := newMprisMonitor(zap.NewNop(), fake, testService, testPath)

	events, err := mon.SubscribeProperties(testContext(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// MPRIS-compliant players send the track id as an object path
	fake.emit(propertiesSignal(map[string]dbus.Variant{
		"Metadata": dbus.MakeVariant(map[string]dbus.Variant{
			"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath("/com/spotify/ad/0123")),
			"xesam:title":   dbus.MakeVariant("Advertisement"),
		}),
		"PlaybackStatus": dbus.MakeVariant("Playing"),
	}))

	select {
	case ev := <-events:
		id, ok := ev.TrackID()
		if !ok {
			t.Fatal("expected a track id")
		}
		if id != "/com/spotify/ad/0123" {
			t.Errorf("track id: expected /com/spotify/ad/0123, got %s", id)
		}
		if ev.Interface != domain.PlayerInterface {
			t.Errorf("interface: expected %s, got %s", domain.PlayerInterface, ev.Interface)
		}
		if ev.Changed["PlaybackStatus"] != "Playing" {
			t.Errorf("PlaybackStatus: expected Playing, got %v", ev.Changed["PlaybackStatus"])
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout: Event was not emitted")
	}
}

// TestSubscriptions_AreIndependent verifies each stream only sees its own signal type.
func TestSubscriptions_AreIndependent(t *testing.T) {
	fake := newFakeDBusClient()
	mon := newMprisMonitor(zap.NewNop(), fake, testService, testPath)

	props, err := mon.SubscribeProperties(testContext(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	owners, err := mon.SubscribeOwnership(testContext(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fake.emit(ownerSignal(testService, ":1.50", ""))

	select {
	case ev := <-owners:
		if ev.Kind != domain.OwnerLost {
			t.Errorf("expected lost, got %v", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout: ownership event was not emitted")
	}

	select {
	case ev := <-props:
		t.Errorf("property stream should not see NameOwnerChanged, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestSubscribeProperties_QueuesWhileConsumerBusy verifies ordering is kept
// when the consumer does not read for a while.
func TestSubscribeProperties_QueuesWhileConsumerBusy(t *testing.T) {
	fake := newFakeDBusClient()
	mon := newMprisMonitor(zap.NewNop(), fake, testService, testPath)

	events, err := mon.SubscribeProperties(testContext(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := []string{"/x/track/1", "/x/ad/2", "/x/track/3", "/x/track/4", "/x/track/5"}
	for _, id := range ids {
		fake.emit(trackSignal(id))
	}

	for i, want := range ids {
		select {
		case ev := <-events:
			got, _ := ev.TrackID()
			if string(got) != want {
				t.Errorf("event %d: expected %s, got %s", i, want, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timeout waiting for event %d", i)
		}
	}
}

func TestStreams_CloseWhenConnectionDrops(t *testing.T) {
	fake := newFakeDBusClient()
	mon := newMprisMonitor(zap.NewNop(), fake, testService, testPath)

	props, _ := mon.SubscribeProperties(testContext(t))
	owners, _ := mon.SubscribeOwnership(testContext(t))

	fake.emit(trackSignal("/x/track/1"))
	fake.drop()

	// Queued events are still delivered before the end of stream
	select {
	case ev, ok := <-props:
		if !ok {
			t.Fatal("stream closed before queued event was delivered")
		}
		if id, _ := ev.TrackID(); id != "/x/track/1" {
			t.Errorf("expected /x/track/1, got %s", id)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for queued event")
	}

	for name, ch := range map[string]func() bool{
		"properties": func() bool { _, ok := <-props; return ok },
		"ownership":  func() bool { _, ok := <-owners; return ok },
	} {
		done := make(chan bool, 1)
		go func() { done <- ch() }()
		select {
		case ok := <-done:
			if ok {
				t.Errorf("%s stream: expected closed channel", name)
			}
		case <-time.After(time.Second):
			t.Errorf("%s stream: not closed after connection drop", name)
		}
	}
}

func TestStreams_CloseOnContextCancel(t *testing.T) {
	fake := newFakeDBusClient()
	mon := newMprisMonitor(zap.NewNop(), fake, testService, testPath)

	ctx, cancel := context.WithCancel(context.Background())
	owners, err := mon.SubscribeOwnership(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()

	select {
	case _, ok := <-owners:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("stream not closed after cancel")
	}

	mon.wg.Wait()
	if n := fake.channelCount(); n != 0 {
		t.Errorf("expected signal channel to be detached, %d still registered", n)
	}
}

func TestParseProperties_EdgeCases(t *testing.T) {
	tests := []struct {
		name   string
		signal *dbus.Signal
	}{
		{
			name:   "Nil Signal",
			signal: nil,
		},
		{
			name: "Wrong Signal Name",
			signal: &dbus.Signal{
				Name: "org.freedesktop.DBus.SomeOtherSignal",
				Path: testPath,
				Body: []interface{}{},
			},
		},
		{
			name: "Wrong Object Path",
			signal: &dbus.Signal{
				Name: propertiesChangedSignal,
				Path: "/org/other",
				Body: []interface{}{domain.PlayerInterface, map[string]dbus.Variant{}, []string{}},
			},
		},
		{
			name: "Short Body",
			signal: &dbus.Signal{
				Name: propertiesChangedSignal,
				Path: testPath,
				Body: []interface{}{domain.PlayerInterface}, // Missing props
			},
		},
		{
			name: "Interface Not A String",
			signal: &dbus.Signal{
				Name: propertiesChangedSignal,
				Path: testPath,
				Body: []interface{}{42, map[string]dbus.Variant{}, []string{}},
			},
		},
		{
			name: "Changed Props Wrong Type",
			signal: &dbus.Signal{
				Name: propertiesChangedSignal,
				Path: testPath,
				Body: []interface{}{domain.PlayerInterface, map[string]string{"Metadata": "x"}, []string{}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mon := newMprisMonitor(zap.NewNop(), &noopDBusClient{}, testService, testPath)
			if ev, ok := mon.parseProperties(tt.signal); ok {
				t.Errorf("Should NOT produce event for invalid input, got %+v", ev)
			}
		})
	}
}

func TestParseProperties_WithoutTrackID(t *testing.T) {
	tests := []struct {
		name    string
		changed map[string]dbus.Variant
	}{
		{
			name:    "No Metadata",
			changed: map[string]dbus.Variant{"PlaybackStatus": dbus.MakeVariant("Paused")},
		},
		{
			name: "Metadata Without Track ID",
			changed: map[string]dbus.Variant{
				"Metadata": dbus.MakeVariant(map[string]dbus.Variant{"xesam:title": dbus.MakeVariant("Song")}),
			},
		},
		{
			name:    "Metadata Is Int not Map",
			changed: map[string]dbus.Variant{"Metadata": dbus.MakeVariant(12345)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mon := newMprisMonitor(zap.NewNop(), &noopDBusClient{}, testService, testPath)
			ev, ok := mon.parseProperties(propertiesSignal(tt.changed))
			if !ok {
				t.Fatal("well-formed signal should be forwarded")
			}
			if id, ok := ev.TrackID(); ok {
				t.Errorf("expected no track id, got %s", id)
			}
		})
	}
}

func TestParseOwnership(t *testing.T) {
	tests := []struct {
		name      string
		signal    *dbus.Signal
		expectOK  bool
		wantKind  domain.OwnershipKind
		wantOwner string
	}{
		{
			name:      "Player Appears",
			signal:    ownerSignal(testService, "", ":1.50"),
			expectOK:  true,
			wantKind:  domain.OwnerGained,
			wantOwner: ":1.50",
		},
		{
			name:     "Player Disappears",
			signal:   ownerSignal(testService, ":1.50", ""),
			expectOK: true,
			wantKind: domain.OwnerLost,
		},
		{
			name:      "Ownership Transfer",
			signal:    ownerSignal(testService, ":1.50", ":1.51"),
			expectOK:  true,
			wantKind:  domain.OwnerGained,
			wantOwner: ":1.51",
		},
		{
			name:   "Other Service Ignored",
			signal: ownerSignal("org.mpris.MediaPlayer2.vlc", ":1.99", ""),
		},
		{
			name: "Short Body",
			signal: &dbus.Signal{
				Name: nameOwnerChangedSignal,
				Body: []interface{}{testService, ""},
			},
		},
		{
			name: "Wrong Signal Name",
			signal: &dbus.Signal{
				Name: propertiesChangedSignal,
				Body: []interface{}{testService, "", ":1.50"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mon := newMprisMonitor(zap.NewNop(), &noopDBusClient{}, testService, testPath)
			ev, ok := mon.parseOwnership(tt.signal)
			if ok != tt.expectOK {
				t.Fatalf("ok: expected %v, got %v", tt.expectOK, ok)
			}
			if !ok {
				return
			}
			if ev.Kind != tt.wantKind {
				t.Errorf("kind: expected %v, got %v", tt.wantKind, ev.Kind)
			}
			if ev.Owner != tt.wantOwner {
				t.Errorf("owner: expected %q, got %q", tt.wantOwner, ev.Owner)
			}
		})
	}
}

func TestClose_DetachesEverything(t *testing.T) {
	fake := newFakeDBusClient()
	mon := newMprisMonitor(zap.NewNop(), fake, testService, testPath)

	props, _ := mon.SubscribeProperties(testContext(t))
	owners, _ := mon.SubscribeOwnership(testContext(t))

	if err := mon.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := <-props; ok {
		t.Error("properties stream should be closed")
	}
	if _, ok := <-owners; ok {
		t.Error("ownership stream should be closed")
	}
	if fake.removedMatches != 2 {
		t.Errorf("expected 2 match rules removed, got %d", fake.removedMatches)
	}
	if !fake.closed {
		t.Error("connection should be closed")
	}

	// Second close is a no-op and new subscriptions are refused
	if err := mon.Close(); err != nil {
		t.Errorf("second Close: unexpected error: %v", err)
	}
	if _, err := mon.SubscribeOwnership(testContext(t)); err == nil {
		t.Error("subscribe after Close should fail")
	}
}

func TestUnwrap(t *testing.T) {
	got := unwrap(dbus.MakeVariant(map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath("/a/b")),
		"xesam:artist":  dbus.MakeVariant([]string{"Queen"}),
	}))

	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", got)
	}
	if m["mpris:trackid"] != "/a/b" {
		t.Errorf("object path should become string, got %#v", m["mpris:trackid"])
	}
	if artists, ok := m["xesam:artist"].([]string); !ok || artists[0] != "Queen" {
		t.Errorf("unexpected artist value %#v", m["xesam:artist"])
	}
}

// fakeDBusClient records signal channels so tests can inject signals and
// simulate the connection going away.
type fakeDBusClient struct {
	mu             sync.Mutex
	channels       []chan<- *dbus.Signal
	removedMatches int
	closed         bool
}

func newFakeDBusClient() *fakeDBusClient { return &fakeDBusClient{} }

func (f *fakeDBusClient) AddMatchSignal(...dbus.MatchOption) error { return nil }
func (f *fakeDBusClient) GetNameOwner(string) (string, error)      { return "", errors.New("no owner") }
func (f *fakeDBusClient) CallMethod(context.Context, string, string, string) error {
	return nil
}

func (f *fakeDBusClient) RemoveMatchSignal(...dbus.MatchOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedMatches++
	return nil
}

func (f *fakeDBusClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeDBusClient) Signal(ch chan<- *dbus.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, ch)
}

func (f *fakeDBusClient) RemoveSignal(ch chan<- *dbus.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.channels {
		if c == ch {
			f.channels = append(f.channels[:i], f.channels[i+1:]...)
			return
		}
	}
}

func (f *fakeDBusClient) emit(sig *dbus.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.channels {
		ch <- sig
	}
}

// drop closes every registered channel, like godbus does when the connection dies
func (f *fakeDBusClient) drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.channels {
		close(ch)
	}
	f.channels = nil
}

func (f *fakeDBusClient) channelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels)
}

// noopDBusClient is a stub to prevent panics during unit tests where
// we don't want to use full mocks.
type noopDBusClient struct{}

func (n *noopDBusClient) Close() error                                { return nil }
func (n *noopDBusClient) AddMatchSignal(...dbus.MatchOption) error    { return nil }
func (n *noopDBusClient) RemoveMatchSignal(...dbus.MatchOption) error { return nil }
func (n *noopDBusClient) Signal(chan<- *dbus.Signal)                  {}
func (n *noopDBusClient) RemoveSignal(chan<- *dbus.Signal)            {}
func (n *noopDBusClient) GetNameOwner(string) (string, error)         { return "", errors.New("noop") }
func (n *noopDBusClient) CallMethod(context.Context, string, string, string) error {
	return errors.New("noop")
}
