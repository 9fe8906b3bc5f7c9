package stafsm

import (
	"context"
	"encoding/binary"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/lcalzada-xor/wired/internal/adapters/wire/crypto"
	"github.com/lcalzada-xor/wired/internal/adapters/wire/ie"
	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/lcalzada-xor/wired/internal/core/ports"
	"github.com/lcalzada-xor/wired/internal/core/services/fourway"
	"github.com/lcalzada-xor/wired/internal/core/services/handshake"
	"github.com/stretchr/testify/require"
)

// fakeTransport answers nl80211 commands synchronously from a handler keyed
// by command number, mirroring the netlink adapter's synchronous Send
// (internal/adapters/netlink/transport.go GenetlinkTransport.Send).
type fakeTransport struct {
	handlers map[uint8]func(attrs ports.Attrs) ports.CommandResult
	nextID   uint32
	sent     []uint8
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[uint8]func(ports.Attrs) ports.CommandResult)}
}

func (t *fakeTransport) Send(ctx context.Context, ifIndex int, cmd uint8, attrs ports.Attrs, on ports.ResultFunc) (uint32, error) {
	t.nextID++
	t.sent = append(t.sent, cmd)
	h, ok := t.handlers[cmd]
	if !ok {
		if on != nil {
			on(ports.CommandResult{Command: cmd})
		}
		return t.nextID, nil
	}
	res := h(attrs)
	if on != nil {
		on(res)
	}
	return t.nextID, nil
}

func (t *fakeTransport) Cancel(uint32)                                      {}
func (t *fakeTransport) RegisterMulticast(string, ports.FrameHandler) error { return nil }
func (t *fakeTransport) RegisterFrame(int, uint16, []byte) error            { return nil }
func (t *fakeTransport) Close() error                                      { return nil }

type fakeLink struct{}

func (fakeLink) SetUp(context.Context, int, bool) error           { return nil }
func (fakeLink) SetOperState(context.Context, int, bool) error    { return nil }
func (fakeLink) AddAddress(context.Context, int, net.IPNet) error { return nil }
func (fakeLink) DelAddress(context.Context, int, net.IPNet) error { return nil }

// fakeEAPOL loops frames the FSM sends straight into peer, a stand-in for
// the other end of the link (normally a fourway.Authenticator under test).
type fakeEAPOL struct {
	recv func(src [6]byte, payload []byte)
	peer func(payload []byte) error
	sent [][]byte
}

func (e *fakeEAPOL) Send(dst [6]byte, payload []byte) error {
	e.sent = append(e.sent, payload)
	if e.peer != nil {
		return e.peer(payload)
	}
	return nil
}
func (e *fakeEAPOL) SetReceiver(fn func(src [6]byte, payload []byte)) { e.recv = fn }
func (e *fakeEAPOL) Close() error                                     { return nil }

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }

type fakeClock struct{}

func (fakeClock) Now() time.Time { return time.Time{} }
func (fakeClock) AfterFunc(time.Duration, func()) ports.Timer { return noopTimer{} }

func statusAttrs(status uint16, ies []byte) ports.Attrs {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, status)
	attrs := ports.Attrs{ports.AttrStatusCode: b}
	if ies != nil {
		attrs[ports.AttrIE] = ies
	}
	return attrs
}

func newTestFSM(t *testing.T) (*FSM, *fakeTransport, *fakeEAPOL) {
	t.Helper()
	transport := newFakeTransport()
	eapol := &fakeEAPOL{}
	f := New(3, [6]byte{0xAA, 1, 2, 3, 4, 5}, transport, fakeLink{}, eapol, fakeClock{}, slog.Default())
	return f, transport, eapol
}

func testRSNE() []byte {
	return ie.BuildRSNE(domain.RSNInfo{
		Version:         1,
		GroupCipher:     domain.CipherCCMP,
		PairwiseCiphers: []domain.Cipher{domain.CipherCCMP},
		AKMSuites:       []domain.AKM{domain.AKMPSK},
	})
}

// TestConnectHappyPathInstallsKeysAndGoesOperational drives a full Connect
// through CONNECT -> 4-Way Handshake -> key installation -> operational,
// wiring a real fourway.Authenticator against the FSM's Supplicant over the
// fake EAPoL channel (§4.6 steps 1-5).
func TestConnectHappyPathInstallsKeysAndGoesOperational(t *testing.T) {
	f, transport, eapol := newTestFSM(t)

	bssid := [6]byte{9, 9, 9, 9, 9, 9}
	rsne := testRSNE()
	target := domain.BSSDescriptor{
		BSSID:        bssid,
		SSID:         "testnet",
		Frequency:    2437,
		AdvertisedIE: domain.RawIE{Tag: ie.TagRSN, Bytes: rsne},
		RSNE: &domain.RSNInfo{
			GroupCipher:     domain.CipherCCMP,
			PairwiseCiphers: []domain.Cipher{domain.CipherCCMP},
			AKMSuites:       []domain.AKM{domain.AKMPSK},
		},
	}

	pmk := crypto.DerivePMKFromPassphrase("correcthorsebatterystaple", "testnet")
	hSTA := &domain.Handshake{}
	handshake.SetPMK(hSTA, pmk)

	hAP := &domain.Handshake{}
	handshake.SetPMK(hAP, pmk)
	handshake.SetAuthenticatorAddress(hAP, bssid)
	handshake.SetSupplicantAddress(hAP, f.ownMAC)
	handshake.SetOwnIE(hAP, domain.RawIE{Tag: ie.TagRSN, Bytes: rsne})

	var authenticator *fourway.Authenticator
	authenticator = fourway.NewAuthenticator(hAP, domain.AKMPSK, domain.CipherCCMP, domain.RawIE{Tag: ie.TagRSN, Bytes: rsne}, fakeClock{},
		func(pdu []byte) { eapol.recv(bssid, pdu) },
		func() {},
		func(domain.HandshakeFailReason) {},
	)
	authenticator.SetGroupKeys(1, make([]byte, 16), 0)
	eapol.peer = authenticator.HandleFrame

	transport.handlers[ports.CmdConnect] = func(attrs ports.Attrs) ports.CommandResult {
		return statusAttrs(0, rsne)
	}

	var connectErr *domain.ConnError
	connectCalled := false
	var events []domain.EventKind

	err := f.Connect(context.Background(), target, hSTA, domain.AKMPSK, domain.CipherCCMP,
		func(e *domain.ConnError) { connectCalled = true; connectErr = e },
		func(ev domain.Event) { events = append(events, ev.Kind) },
	)
	require.NoError(t, err)

	// At this point the kernel's CONNECT event already ran synchronously
	// (fakeTransport.Send invokes its callback inline), so the Supplicant
	// exists and is waiting on Msg1; kick off the AP side to drive the
	// exchange to completion.
	require.NoError(t, authenticator.Start())

	require.True(t, connectCalled)
	require.Nil(t, connectErr)
	require.Equal(t, domain.StateOperational, f.conn.State)
	require.True(t, f.conn.Connected)
	require.Contains(t, events, domain.EventFourWayHandshake)
	require.Contains(t, events, domain.EventOperational)

	sawNewKey, sawSetKey, sawSetStation := false, false, false
	for _, cmd := range transport.sent {
		switch cmd {
		case ports.CmdNewKey:
			sawNewKey = true
		case ports.CmdSetKey:
			sawSetKey = true
		case ports.CmdSetStation:
			sawSetStation = true
		}
	}
	require.True(t, sawNewKey, "expected a NEW_KEY command")
	require.True(t, sawSetKey, "expected a SET_KEY command")
	require.True(t, sawSetStation, "expected a SET_STATION command")
}

// TestConnectRejectsMissingResponseRSNE covers §4.6 step 2/3: when RSN was
// requested but the CONNECT event's IEs carry no RSNE, the attempt fails with
// InvalidIe and the FSM returns to Idle without starting a handshake.
func TestConnectRejectsMissingResponseRSNE(t *testing.T) {
	f, transport, _ := newTestFSM(t)

	bssid := [6]byte{9, 9, 9, 9, 9, 9}
	rsne := testRSNE()
	target := domain.BSSDescriptor{
		BSSID:        bssid,
		SSID:         "testnet",
		AdvertisedIE: domain.RawIE{Tag: ie.TagRSN, Bytes: rsne},
		RSNE:         &domain.RSNInfo{PairwiseCiphers: []domain.Cipher{domain.CipherCCMP}, AKMSuites: []domain.AKM{domain.AKMPSK}},
	}

	transport.handlers[ports.CmdConnect] = func(attrs ports.Attrs) ports.CommandResult {
		return statusAttrs(0, nil) // no IEs at all: missing RSNE
	}

	hSTA := &domain.Handshake{}
	var gotErr *domain.ConnError
	err := f.Connect(context.Background(), target, hSTA, domain.AKMPSK, domain.CipherCCMP,
		func(e *domain.ConnError) { gotErr = e },
		func(domain.Event) {},
	)
	require.NoError(t, err)

	require.NotNil(t, gotErr)
	require.Equal(t, domain.ErrInvalidIe, gotErr.Kind)
	require.Equal(t, domain.StateIdle, f.conn.State)
}

// TestDisconnectIsIdempotent covers §8 property 8: a second Disconnect call
// on an already-Idle FSM sends no further DEAUTHENTICATE.
func TestDisconnectIsIdempotent(t *testing.T) {
	f, transport, _ := newTestFSM(t)
	f.conn.State = domain.StateOperational
	f.conn.PeerBSSID = [6]byte{1, 2, 3, 4, 5, 6}

	f.Disconnect(context.Background())
	require.Equal(t, domain.StateIdle, f.conn.State)
	deauths := countCmd(transport.sent, ports.CmdDeauthenticate)
	require.Equal(t, 1, deauths)

	f.Disconnect(context.Background())
	require.Equal(t, 1, countCmd(transport.sent, ports.CmdDeauthenticate), "a second Disconnect must not send another DEAUTHENTICATE")
}

func countCmd(sent []uint8, want uint8) int {
	n := 0
	for _, c := range sent {
		if c == want {
			n++
		}
	}
	return n
}
