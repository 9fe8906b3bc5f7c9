// Package apfsm drives the soft-AP per-client association state machine
// (§4.7): Open authentication, (re)association IE validation, authenticator-
// side key setup, and WSC Push-Button registration. One FSM instance is
// owned per AP-role Interface by the orchestrator (§4.8); per-client state
// lives in a domain.Station record keyed by MAC.
package apfsm

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/lcalzada-xor/wired/internal/adapters/wire/frame"
	"github.com/lcalzada-xor/wired/internal/adapters/wire/ie"
	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/lcalzada-xor/wired/internal/core/ports"
	"github.com/lcalzada-xor/wired/internal/core/services/fourway"
)

// Config carries everything about the network this AP advertises that the
// FSM cannot derive from the wire itself (§4.7, §4.9 NetworkProfile).
type Config struct {
	SSID       string
	Capability uint16
	Rates      []ie.Rate

	RSN    domain.RSNInfo
	AKM    domain.AKM
	Cipher domain.Cipher
	PMK    [32]byte // pre-shared key material, derived from the profile's passphrase

	// AllowedMACs implements the optional authorized-MAC allow-list (§4.7,
	// §8 S6); nil or empty means unrestricted.
	AllowedMACs [][6]byte
}

func (c Config) allowed(mac [6]byte) bool {
	if len(c.AllowedMACs) == 0 {
		return true
	}
	for _, m := range c.AllowedMACs {
		if m == mac {
			return true
		}
	}
	return false
}

// FSM owns one AP-role interface's association state (§4.7).
type FSM struct {
	ifIndex   int
	ownMAC    [6]byte
	cfg       Config
	ownRSNE   []byte // full RSNE TLV this AP advertises

	transport ports.Transport
	link      ports.LinkController
	eapol     ports.EAPOLChannel
	clock     ports.Clock
	log       *slog.Logger

	stations       map[[6]byte]*domain.Station
	authenticators map[[6]byte]*fourway.Authenticator
	lastAID        uint16

	gtk      []byte
	gtkIndex uint8
	gtkRSC   uint64
	haveGTK  bool

	pbc pbcState

	onEvent domain.EventCallback
}

// New constructs an FSM for one AP-role interface. transport and link are
// process-wide shared adapters (§5); eapol is this interface's control-port
// channel, demultiplexed by source MAC across stations.
func New(ifIndex int, ownMAC [6]byte, cfg Config, transport ports.Transport, link ports.LinkController, eapol ports.EAPOLChannel, clock ports.Clock, log *slog.Logger, onEvent domain.EventCallback) *FSM {
	f := &FSM{
		ifIndex:        ifIndex,
		ownMAC:         ownMAC,
		cfg:            cfg,
		ownRSNE:        ie.BuildRSNE(cfg.RSN),
		transport:      transport,
		link:           link,
		eapol:          eapol,
		clock:          clock,
		log:            log,
		stations:       make(map[[6]byte]*domain.Station),
		authenticators: make(map[[6]byte]*fourway.Authenticator),
		onEvent:        onEvent,
	}
	eapol.SetReceiver(f.onEAPOLFrame)
	return f
}

// Start issues START_AP with the initial beacon/probe-response IE tail and
// registers this FSM for the management-frame subtypes it must handle.
func (f *FSM) Start(ctx context.Context) error {
	attrs := ports.Attrs{
		ports.AttrIfindex: uint32(f.ifIndex),
		ports.AttrSSID:    []byte(f.cfg.SSID),
		ports.AttrIE:      f.beaconIEs(),
	}
	_, err := f.transport.Send(ctx, f.ifIndex, ports.CmdStartAP, attrs, func(res ports.CommandResult) {
		if res.Err != nil {
			f.emit(domain.EventAPStartFailed, nil)
			return
		}
		for _, subtype := range []uint8{frame.SubtypeAuth, frame.SubtypeAssocReq, frame.SubtypeReassocReq, frame.SubtypeDisassoc, frame.SubtypeDeauth, frame.SubtypeProbeReq} {
			_ = f.transport.RegisterFrame(f.ifIndex, uint16(subtype)<<4, nil)
		}
		_ = f.transport.RegisterMulticast("mlme", f.onManagementFrame)
		f.emit(domain.EventAPStarted, nil)
	})
	return err
}

// Stop issues STOP_AP and tears down every station (§4.7 Disassociation).
func (f *FSM) Stop(ctx context.Context) {
	f.emit(domain.EventAPStopping, nil)
	for mac := range f.stations {
		f.removeStation(ctx, mac, frame.ReasonUnspecified)
	}
	_, _ = f.transport.Send(ctx, f.ifIndex, ports.CmdStopAP, ports.Attrs{ports.AttrIfindex: uint32(f.ifIndex)}, nil)
}

// beaconIEs rebuilds the Beacon/Probe-Response IE tail (§4.7 "Beacon
// updates"): own rates, RSNE, and — while PBC mode is active — the WSC IE
// advertising the selected registrar.
func (f *FSM) beaconIEs() []byte {
	out := ie.BuildSSID(f.cfg.SSID)
	out = append(out, ie.BuildSupportedRates(f.cfg.Rates)...)
	out = append(out, f.ownRSNE...)
	if f.pbc.active {
		out = append(out, ie.BuildWSCBeacon(true, ie.DevicePasswordIDPushButton)...)
	}
	return out
}

// rebuildBeacon reinstalls the IE tail via SET_BEACON; called whenever PBC
// mode enters or exits (§4.7 Beacon updates).
func (f *FSM) rebuildBeacon(ctx context.Context) {
	attrs := ports.Attrs{
		ports.AttrIfindex: uint32(f.ifIndex),
		ports.AttrIE:      f.beaconIEs(),
	}
	_, _ = f.transport.Send(ctx, f.ifIndex, ports.CmdSetBeacon, attrs, nil)
}

// onManagementFrame is the multicast-group entry point (real kernel delivery
// path); onFrame below is also exercised directly by tests.
func (f *FSM) onManagementFrame(ifIndex int, attrs ports.Attrs) {
	if ifIndex != f.ifIndex {
		return
	}
	raw, _ := attrs[ports.AttrFrame].([]byte)
	f.onFrame(raw)
}

// onFrame dispatches one received management MPDU to its subtype handler
// (§4.7).
func (f *FSM) onFrame(raw []byte) {
	hdr, body, err := frame.ParseHeader(raw)
	if err != nil {
		return // malformed frame: never brings down the FSM (§7)
	}
	if hdr.DA != f.ownMAC && hdr.DA != broadcastMAC {
		return
	}
	switch hdr.Subtype {
	case frame.SubtypeAuth:
		f.handleAuthentication(hdr, body)
	case frame.SubtypeAssocReq:
		f.handleAssociationRequest(hdr, body, false)
	case frame.SubtypeReassocReq:
		f.handleAssociationRequest(hdr, body, true)
	case frame.SubtypeProbeReq:
		f.handleProbeRequest(hdr, body)
	case frame.SubtypeDisassoc:
		f.removeStation(context.Background(), hdr.SA, frame.ReasonUnspecified)
	case frame.SubtypeDeauth:
		f.removeStation(context.Background(), hdr.SA, frame.ReasonUnspecified)
	}
}

var broadcastMAC = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func (f *FSM) onEAPOLFrame(src [6]byte, payload []byte) {
	if a, ok := f.authenticators[src]; ok {
		_ = a.HandleFrame(payload)
	}
}

// sendFrame transmits a management frame body wrapped in a MAC header.
func (f *FSM) sendFrame(ctx context.Context, subtype uint8, dst [6]byte, body []byte) {
	f.sendFrameAcked(ctx, subtype, dst, body, nil)
}

// sendFrameAcked transmits a management frame and invokes onAck once the
// kernel's reply to the FRAME command reports no error. It does not wait for
// the kernel's TX-status notification, so onAck runs whether or not the peer
// acknowledged the frame.
func (f *FSM) sendFrameAcked(ctx context.Context, subtype uint8, dst [6]byte, body []byte, onAck func()) {
	pdu := append(frame.BuildHeader(subtype, dst, f.ownMAC, f.ownMAC), body...)
	attrs := ports.Attrs{
		ports.AttrIfindex: uint32(f.ifIndex),
		ports.AttrFrame:   pdu,
	}
	_, _ = f.transport.Send(ctx, f.ifIndex, ports.CmdFrame, attrs, func(res ports.CommandResult) {
		if res.Err == nil && onAck != nil {
			onAck()
		}
	})
}

// sendAndWait issues cmd and blocks on its result (mirrors stafsm's helper
// of the same name and rationale: §5's single-threaded loop still drains the
// channel on the same goroutine that processes the reply).
func (f *FSM) sendAndWait(ctx context.Context, cmd uint8, attrs ports.Attrs) (ports.CommandResult, error) {
	resCh := make(chan ports.CommandResult, 1)
	_, err := f.transport.Send(ctx, f.ifIndex, cmd, attrs, func(r ports.CommandResult) { resCh <- r })
	if err != nil {
		return ports.CommandResult{}, err
	}
	res := <-resCh
	return res, res.Err
}

// ensureGroupKey generates and installs the AP's single GTK the first time
// it is needed, then retrieves its Tx-RSC from the kernel because some
// drivers reject a user-supplied one (§4.7 Key setup).
func (f *FSM) ensureGroupKey(ctx context.Context) error {
	if f.haveGTK {
		return nil
	}
	gtk := make([]byte, 16)
	if _, err := rand.Read(gtk); err != nil {
		return fmt.Errorf("apfsm: generate GTK: %w", err)
	}
	const groupKeyIndex uint8 = 1

	res, err := f.sendAndWait(ctx, ports.CmdNewKey, ports.Attrs{
		ports.AttrIfindex:   uint32(f.ifIndex),
		ports.AttrKeyIdx:    groupKeyIndex,
		ports.AttrKeyData:   gtk,
		ports.AttrKeyCipher: ciphersuiteOUI(f.cfg.Cipher),
	})
	if err != nil {
		return fmt.Errorf("apfsm: install GTK: %w", err)
	}
	_ = res

	rscRes, err := f.sendAndWait(ctx, ports.CmdGetKey, ports.Attrs{
		ports.AttrIfindex: uint32(f.ifIndex),
		ports.AttrKeyIdx:  groupKeyIndex,
	})
	if err != nil {
		return fmt.Errorf("apfsm: query GTK Tx-RSC: %w", err)
	}
	rsc, _ := rscRes.Attrs[ports.AttrKeySeq].([]byte)

	f.gtk, f.gtkIndex, f.gtkRSC, f.haveGTK = gtk, groupKeyIndex, decodeRSC(rsc), true
	return nil
}

func decodeRSC(b []byte) uint64 {
	if len(b) < 6 {
		return 0
	}
	var padded [8]byte
	copy(padded[:6], b[:6])
	return binary.LittleEndian.Uint64(padded[:])
}

// removeStation tears down a Station's handshake/keys and notifies the
// kernel (§4.7 Disassociation/Deauthentication).
func (f *FSM) removeStation(ctx context.Context, mac [6]byte, reason uint16) {
	st, ok := f.stations[mac]
	if !ok {
		return
	}
	st.SecureErase()
	delete(f.stations, mac)
	delete(f.authenticators, mac)
	f.pbc.forget(mac)

	_, _ = f.transport.Send(ctx, f.ifIndex, ports.CmdDelStation, ports.Attrs{
		ports.AttrIfindex: uint32(f.ifIndex),
		ports.AttrMAC:     mac[:],
	}, nil)
	f.emit(domain.EventStationRemoved, &mac)
}

func (f *FSM) emit(kind domain.EventKind, mac *[6]byte) {
	if f.onEvent == nil {
		return
	}
	ev := domain.Event{Kind: kind, IfIndex: f.ifIndex}
	if mac != nil {
		ev.StationMAC = macString(*mac)
	}
	f.onEvent(ev)
}

func macString(mac [6]byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

func ciphersuiteOUI(c domain.Cipher) uint32 {
	return uint32(0x00)<<24 | uint32(0x0F)<<16 | uint32(0xAC)<<8 | uint32(suiteTypeFor(c))
}

func suiteTypeFor(c domain.Cipher) byte {
	switch c {
	case domain.CipherWEP40:
		return 1
	case domain.CipherTKIP:
		return 2
	case domain.CipherCCMP:
		return 4
	case domain.CipherWEP104:
		return 5
	case domain.CipherBIPCMAC128:
		return 6
	case domain.CipherGCMP128:
		return 8
	case domain.CipherGCMP256:
		return 9
	case domain.CipherCCMP256:
		return 10
	default:
		return 0
	}
}
