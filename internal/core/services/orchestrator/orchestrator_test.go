package orchestrator

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/lcalzada-xor/wired/internal/core/ports"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	iftypeByIndex map[int]uint32
}

func (t *fakeTransport) Send(ctx context.Context, ifIndex int, cmd uint8, attrs ports.Attrs, on ports.ResultFunc) (uint32, error) {
	if on == nil {
		return 1, nil
	}
	if cmd == ports.CmdGetInterface {
		iftype := t.iftypeByIndex[ifIndex]
		on(ports.CommandResult{Command: cmd, Attrs: ports.Attrs{ports.AttrIftype: iftype}})
		return 1, nil
	}
	on(ports.CommandResult{Command: cmd})
	return 1, nil
}
func (t *fakeTransport) Cancel(uint32)                                      {}
func (t *fakeTransport) RegisterMulticast(string, ports.FrameHandler) error { return nil }
func (t *fakeTransport) RegisterFrame(int, uint16, []byte) error            { return nil }
func (t *fakeTransport) Close() error                                      { return nil }

type fakeLink struct{}

func (fakeLink) SetUp(context.Context, int, bool) error            { return nil }
func (fakeLink) SetOperState(context.Context, int, bool) error     { return nil }
func (fakeLink) AddAddress(context.Context, int, net.IPNet) error { return nil }
func (fakeLink) DelAddress(context.Context, int, net.IPNet) error { return nil }

type fakeWatcher struct {
	initial []ports.InterfaceEvent
}

func (w *fakeWatcher) List(context.Context) ([]ports.InterfaceEvent, error) { return w.initial, nil }
func (w *fakeWatcher) Subscribe(func(ports.InterfaceEvent)) error           { return nil }
func (w *fakeWatcher) Close() error                                        { return nil }

type fakeStore struct {
	profiles map[string]domain.NetworkProfile
}

func (s *fakeStore) Load(_ context.Context, ssid string) (domain.NetworkProfile, error) {
	p, ok := s.profiles[ssid]
	if !ok {
		return domain.NetworkProfile{}, context.DeadlineExceeded
	}
	return p, nil
}
func (s *fakeStore) Save(context.Context, domain.NetworkProfile) error { return nil }
func (s *fakeStore) Delete(context.Context, string) error              { return nil }
func (s *fakeStore) List(context.Context) ([]domain.NetworkProfile, error) {
	out := make([]domain.NetworkProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return out, nil
}

type fakeSink struct{ events []domain.Event }

func (s *fakeSink) Emit(ev domain.Event) { s.events = append(s.events, ev) }

type fakeEAPOL struct{}

func (fakeEAPOL) Send([6]byte, []byte) error                 { return nil }
func (fakeEAPOL) SetReceiver(func(src [6]byte, payload []byte)) {}
func (fakeEAPOL) Close() error                                { return nil }

type fakeClock struct{}

func (fakeClock) Now() time.Time                            { return time.Unix(0, 0) }
func (fakeClock) AfterFunc(time.Duration, func()) ports.Timer { return fakeTimer{} }

type fakeTimer struct{}

func (fakeTimer) Stop() bool { return true }

func TestFiltersManaged(t *testing.T) {
	f := Filters{AllowPatterns: []string{"wlan*"}, BlockPatterns: []string{"wlan1"}}
	require.True(t, f.managed("wlan0"))
	require.False(t, f.managed("wlan1"))
	require.False(t, f.managed("eth0"))

	none := Filters{}
	require.True(t, none.managed("anything"))
}

// TestRunSpawnsAPFromProfile covers §4.8: a discovered AP-type netdev with a
// matching stored profile gets an apfsm.FSM and is tracked in the interface
// table.
func TestRunSpawnsAPFromProfile(t *testing.T) {
	transport := &fakeTransport{iftypeByIndex: map[int]uint32{5: ports.IftypeAP}}
	watcher := &fakeWatcher{initial: []ports.InterfaceEvent{
		{IfIndex: 5, Name: "ap0", MAC: [6]byte{1, 2, 3, 4, 5, 6}, Up: true},
	}}
	store := &fakeStore{profiles: map[string]domain.NetworkProfile{
		"ap0": {SSID: "ap0", IsAP: true, Passphrase: "hunter2hunter2"},
	}}
	sink := &fakeSink{}

	o := New(transport, fakeLink{}, watcher, fakeClock{}, store, sink,
		func(int, [6]byte) (ports.EAPOLChannel, error) { return fakeEAPOL{}, nil },
		Filters{}, slog.Default())

	require.NoError(t, o.Run(context.Background()))

	o.mu.Lock()
	mi, ok := o.ifcs[5]
	o.mu.Unlock()
	require.True(t, ok)
	require.NotNil(t, mi.ap)
	require.Nil(t, mi.sta)
}

// TestRunSkipsBlockedInterface covers §4.8's name-filter rule.
func TestRunSkipsBlockedInterface(t *testing.T) {
	transport := &fakeTransport{iftypeByIndex: map[int]uint32{7: ports.IftypeStation}}
	watcher := &fakeWatcher{initial: []ports.InterfaceEvent{
		{IfIndex: 7, Name: "mon0", Up: true},
	}}
	store := &fakeStore{profiles: map[string]domain.NetworkProfile{}}
	sink := &fakeSink{}

	o := New(transport, fakeLink{}, watcher, fakeClock{}, store, sink,
		func(int, [6]byte) (ports.EAPOLChannel, error) { return fakeEAPOL{}, nil },
		Filters{BlockPatterns: []string{"mon*"}}, slog.Default())

	require.NoError(t, o.Run(context.Background()))

	o.mu.Lock()
	_, ok := o.ifcs[7]
	o.mu.Unlock()
	require.False(t, ok)
}
