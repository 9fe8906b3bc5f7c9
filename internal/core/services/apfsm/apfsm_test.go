package apfsm

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/lcalzada-xor/wired/internal/adapters/wire/crypto"
	"github.com/lcalzada-xor/wired/internal/adapters/wire/frame"
	"github.com/lcalzada-xor/wired/internal/adapters/wire/ie"
	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/lcalzada-xor/wired/internal/core/ports"
	"github.com/lcalzada-xor/wired/internal/core/services/fourway"
	"github.com/lcalzada-xor/wired/internal/core/services/handshake"
	"github.com/stretchr/testify/require"
)

// fakeTransport mirrors stafsm's test double: handlers keyed by command
// number answer synchronously, matching the real netlink adapter's
// synchronous Send.
type fakeTransport struct {
	handlers map[uint8]func(attrs ports.Attrs) ports.CommandResult
	nextID   uint32
	sent     []uint8
	frames   [][]byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[uint8]func(ports.Attrs) ports.CommandResult)}
}

func (t *fakeTransport) Send(ctx context.Context, ifIndex int, cmd uint8, attrs ports.Attrs, on ports.ResultFunc) (uint32, error) {
	t.nextID++
	t.sent = append(t.sent, cmd)
	if cmd == ports.CmdFrame {
		if raw, ok := attrs[ports.AttrFrame].([]byte); ok {
			t.frames = append(t.frames, raw)
		}
	}
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

type fakeEAPOL struct {
	peer func(payload []byte) error
}

func (e *fakeEAPOL) Send(dst [6]byte, payload []byte) error {
	if e.peer != nil {
		return e.peer(payload)
	}
	return nil
}
func (e *fakeEAPOL) SetReceiver(fn func(src [6]byte, payload []byte)) {}
func (e *fakeEAPOL) Close() error                                     { return nil }

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time                            { return c.now }
func (fakeClock) AfterFunc(time.Duration, func()) ports.Timer { return noopTimer{} }

func testConfig() Config {
	return Config{
		SSID:       "testnet",
		Capability: 0x0011,
		Rates:      []ie.Rate{{Value: 2, Basic: true}, {Value: 11, Basic: true}},
		RSN: domain.RSNInfo{
			GroupCipher:     domain.CipherCCMP,
			PairwiseCiphers: []domain.Cipher{domain.CipherCCMP},
			AKMSuites:       []domain.AKM{domain.AKMPSK},
		},
		AKM:    domain.AKMPSK,
		Cipher: domain.CipherCCMP,
		PMK:    crypto.DerivePMKFromPassphrase("correcthorsebatterystaple", "testnet"),
	}
}

func newTestFSM(t *testing.T, cfg Config) (*FSM, *fakeTransport, *fakeEAPOL, *[]domain.Event) {
	t.Helper()
	transport := newFakeTransport()
	eapol := &fakeEAPOL{}
	events := &[]domain.Event{}
	ownMAC := [6]byte{0xAA, 1, 2, 3, 4, 5}
	f := New(3, ownMAC, cfg, transport, fakeLink{}, eapol, fakeClock{}, slog.Default(), func(ev domain.Event) {
		*events = append(*events, ev)
	})
	return f, transport, eapol, events
}

func authFrame(sa, bssid [6]byte) []byte {
	hdr := frame.BuildHeader(frame.SubtypeAuth, bssid, sa, bssid)
	return append(hdr, frame.BuildAuthentication(0, 1, 0, nil)...)
}

func assocReqFrame(sa, bssid [6]byte, ssid string, rates []ie.Rate, rsne []byte) []byte {
	hdr := frame.BuildHeader(frame.SubtypeAssocReq, bssid, sa, bssid)
	ies := ie.BuildSSID(ssid)
	ies = append(ies, ie.BuildSupportedRates(rates)...)
	ies = append(ies, rsne...)
	return append(hdr, frame.BuildAssociationRequest(0x0011, 10, nil, ies)...)
}

// TestAuthenticationRejectsUnlistedMAC covers §8 S6: an allow-listed AP
// rejects an Authentication frame from an unlisted MAC with status
// UNSPECIFIED and creates no Station record.
func TestAuthenticationRejectsUnlistedMAC(t *testing.T) {
	cfg := testConfig()
	allowed := [6]byte{2, 0, 0, 0, 0, 1}
	cfg.AllowedMACs = [][6]byte{allowed}
	f, transport, _, _ := newTestFSM(t, cfg)

	stranger := [6]byte{2, 0, 0, 0, 0, 2}
	f.onFrame(authFrame(stranger, f.ownMAC))

	require.Empty(t, f.stations)
	require.Len(t, transport.frames, 1)
	_, _, status, _, err := frame.ParseAuthentication(transport.frames[0][24:])
	require.NoError(t, err)
	require.Equal(t, frame.StatusUnspecified, status)
}

// TestAuthenticationAllowsListedMAC is the positive counterpart: a listed
// MAC is authenticated and gets a Station record.
func TestAuthenticationAllowsListedMAC(t *testing.T) {
	cfg := testConfig()
	sta := [6]byte{2, 0, 0, 0, 0, 1}
	cfg.AllowedMACs = [][6]byte{sta}
	f, _, _, _ := newTestFSM(t, cfg)

	f.onFrame(authFrame(sta, f.ownMAC))

	require.Contains(t, f.stations, sta)
	require.Equal(t, domain.StationAuthenticated, f.stations[sta].State)
}

// TestAssociationHappyPathReachesRsna drives Authentication -> Association
// -> authenticator-side 4-Way Handshake to completion, wiring a real
// fourway.Supplicant as the station side (§4.7 Key setup).
func TestAssociationHappyPathReachesRsna(t *testing.T) {
	cfg := testConfig()
	f, transport, eapol, events := newTestFSM(t, cfg)
	_ = events

	sta := [6]byte{2, 0, 0, 0, 0, 9}
	f.onFrame(authFrame(sta, f.ownMAC))
	require.Equal(t, domain.StationAuthenticated, f.stations[sta].State)

	staRSNE := ie.BuildRSNE(domain.RSNInfo{
		GroupCipher:     domain.CipherCCMP,
		PairwiseCiphers: []domain.Cipher{domain.CipherCCMP},
		AKMSuites:       []domain.AKM{domain.AKMPSK},
	})

	hSTA := &domain.Handshake{}
	handshake.SetPMK(hSTA, cfg.PMK)
	handshake.SetAuthenticatorAddress(hSTA, f.ownMAC)
	handshake.SetSupplicantAddress(hSTA, sta)
	handshake.SetOwnIE(hSTA, domain.RawIE{Tag: ie.TagRSN, Bytes: staRSNE})
	handshake.SetAPIE(hSTA, domain.RawIE{Tag: ie.TagRSN, Bytes: f.ownRSNE})
	var supplicant *fourway.Supplicant
	supplicant = fourway.NewSupplicant(hSTA, cfg.AKM, cfg.Cipher, fakeClock{},
		func(pdu []byte) { f.onEAPOLFrame(sta, pdu) },
		func() {},
		func(domain.HandshakeFailReason) {},
	)
	eapol.peer = supplicant.HandleFrame

	f.onFrame(assocReqFrame(sta, f.ownMAC, cfg.SSID, cfg.Rates, staRSNE))

	st := f.stations[sta]
	require.NotNil(t, st)
	require.Equal(t, uint16(domain.MinAID), st.AID)
	require.Equal(t, domain.StationRsna, st.State)

	sawNewKey, sawSetStation := false, false
	for _, cmd := range transport.sent {
		if cmd == ports.CmdNewKey {
			sawNewKey = true
		}
		if cmd == ports.CmdSetStation {
			sawSetStation = true
		}
	}
	require.True(t, sawNewKey)
	require.True(t, sawSetStation)
}

// TestPBCSessionOverlapExits covers §8 property 6 / S3: two distinct PBC
// probe requests within PBCMonitorTime force an exit from PBC mode.
func TestPBCSessionOverlapExits(t *testing.T) {
	cfg := testConfig()
	f, _, _, events := newTestFSM(t, cfg)
	clock := fakeClock{now: time.Unix(1000, 0)}
	f.clock = clock

	f.PushButton(context.Background())
	require.True(t, f.pbc.active)

	wsc := ie.BuildWSCProbeRequest([16]byte{1}, ie.DevicePasswordIDPushButton)
	mac1 := [6]byte{0x02, 0x11, 0x22, 0x33, 0x44, 0x55}
	mac2 := [6]byte{0x02, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE}

	hdr1 := frame.BuildHeader(frame.SubtypeProbeReq, f.ownMAC, mac1, f.ownMAC)
	h1, body1, err := frame.ParseHeader(append(hdr1, wsc...))
	require.NoError(t, err)
	f.handleProbeRequest(h1, body1)
	require.True(t, f.pbc.active)

	hdr2 := frame.BuildHeader(frame.SubtypeProbeReq, f.ownMAC, mac2, f.ownMAC)
	h2, body2, err := frame.ParseHeader(append(hdr2, wsc...))
	require.NoError(t, err)
	f.handleProbeRequest(h2, body2)

	require.False(t, f.pbc.active)
	foundExit := false
	for _, ev := range *events {
		if ev.Kind == domain.EventPbcModeExit {
			foundExit = true
		}
	}
	require.True(t, foundExit)
}
