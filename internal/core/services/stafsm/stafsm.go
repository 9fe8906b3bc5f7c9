// Package stafsm drives the client-role connect state machine (§4.6): Open
// auth → association → key installation, plus the Fast-BSS-Transition
// authenticate/reassociate sub-path. One FSM instance is owned per STA-role
// Interface by the orchestrator (§4.8).
package stafsm

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/lcalzada-xor/wired/internal/adapters/wire/frame"
	"github.com/lcalzada-xor/wired/internal/adapters/wire/ie"
	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/lcalzada-xor/wired/internal/core/ports"
	"github.com/lcalzada-xor/wired/internal/core/services/fourway"
	"github.com/lcalzada-xor/wired/internal/core/services/handshake"
)

// FSM owns one STA-role interface's connect state (§4.6).
type FSM struct {
	ifIndex   int
	ownMAC    [6]byte
	transport ports.Transport
	link      ports.LinkController
	eapol     ports.EAPOLChannel
	clock     ports.Clock
	log       *slog.Logger

	conn *domain.Connection

	akm    domain.AKM
	cipher domain.Cipher

	supplicant *fourway.Supplicant
	groupkey   *fourway.GroupKeySupplicant

	// ft holds the in-flight FT transition's bookkeeping (§4.6
	// Fast-BSS-Transition path); nil outside an active transition.
	ft *ftState
}

// New constructs an FSM for one STA-role interface. transport and link are
// process-wide shared adapters (§5); eapol is this interface's control-port
// channel.
func New(ifIndex int, ownMAC [6]byte, transport ports.Transport, link ports.LinkController, eapol ports.EAPOLChannel, clock ports.Clock, log *slog.Logger) *FSM {
	f := &FSM{
		ifIndex:   ifIndex,
		ownMAC:    ownMAC,
		transport: transport,
		link:      link,
		eapol:     eapol,
		clock:     clock,
		log:       log,
		conn:      domain.NewConnection(),
	}
	eapol.SetReceiver(f.onEAPOLFrame)
	return f
}

// Connect begins an association attempt against target using hs (already
// populated with PMK and own IEs per §4.4) and the given AKM/cipher (§4.6
// step 1-5).
func (f *FSM) Connect(ctx context.Context, target domain.BSSDescriptor, hs *domain.Handshake, akm domain.AKM, cipher domain.Cipher, onConnect domain.ConnectCallback, onEvent domain.EventCallback) error {
	if f.conn.State != domain.StateIdle {
		return domain.NewConnError(domain.ErrInProgress, "connection already in progress")
	}

	f.conn = domain.NewConnection()
	f.conn.PeerBSSID = target.BSSID
	f.conn.SSID = target.SSID
	f.conn.AdvertisedRSNE = target.AdvertisedIE
	f.conn.MDE = target.MDERaw
	f.conn.Handshake = hs
	f.conn.OnConnect = onConnect
	f.conn.OnEvent = onEvent
	f.conn.State = domain.StateConnecting
	f.akm = akm
	f.cipher = cipher

	wantRSN := target.RSNE != nil
	attrs := f.buildConnectAttrs(target, hs, wantRSN)

	f.emit(domain.EventConnecting)
	cmdID, err := f.transport.Send(ctx, f.ifIndex, ports.CmdConnect, attrs, f.onConnectResult)
	if err != nil {
		f.conn.State = domain.StateIdle
		return domain.NewConnError(domain.ErrAborted, err.Error())
	}
	f.conn.PendingCommands[cmdID] = struct{}{}
	return nil
}

func (f *FSM) buildConnectAttrs(target domain.BSSDescriptor, hs *domain.Handshake, wantRSN bool) ports.Attrs {
	attrs := ports.Attrs{
		ports.AttrIfindex:  uint32(f.ifIndex),
		ports.AttrSSID:     []byte(target.SSID),
		ports.AttrBSSID:    target.BSSID[:],
		ports.AttrWiphyFreq: uint32(target.Frequency),
		ports.AttrAuthType: uint32(0), // NL80211_AUTHTYPE_OPEN_SYSTEM
	}

	var ieSection []byte
	if wantRSN {
		attrs[ports.AttrWPAVersions] = uint32(2)
		attrs[ports.AttrCipherSuitesPairwise] = ciphersuiteOUI(f.cipher)
		attrs[ports.AttrCipherSuiteGroup] = ciphersuiteOUI(target.RSNE.GroupCipher)
		attrs[ports.AttrAkmSuites] = akmOUI(f.akm)
		if target.RSNE.Capabilities.MFPRequired || target.RSNE.Capabilities.MFPCapable {
			attrs[ports.AttrUseMFP] = uint32(1)
		}
		ieSection = append(ieSection, hs.OwnRSNE.Bytes...)
		if hs.IsFT {
			ieSection = append(ieSection, hs.MDE.Bytes...)
		}
	}
	if len(ieSection) > 0 {
		attrs[ports.AttrIE] = ieSection
	}
	return attrs
}

// onConnectResult handles the kernel's CONNECT event (§4.6 step 2-3).
func (f *FSM) onConnectResult(res ports.CommandResult) {
	if f.conn.State != domain.StateConnecting {
		return // stale event for an attempt already resolved
	}
	if res.Err != nil {
		f.failConnect(domain.NewConnError(domain.ErrAuthenticationFailed, res.Err.Error()))
		return
	}

	status := attrU16(res.Attrs, ports.AttrStatusCode)
	if _, timedOut := res.Attrs[ports.AttrTimedOut]; timedOut || status != 0 {
		f.conn.State = domain.StateIdle
		f.conn.Complete(domain.NewAssociationFailed(status))
		return
	}

	respIEs, _ := res.Attrs[ports.AttrIE].([]byte)
	wantRSN := f.conn.AdvertisedRSNE.Bytes != nil
	if err := f.validateResponseIEs(respIEs, wantRSN); err != nil {
		f.failConnect(domain.NewConnError(domain.ErrInvalidIe, err.Error()))
		return
	}

	if !wantRSN {
		f.bringLinkUp(context.Background())
		return
	}

	f.conn.State = domain.StateFourWay
	f.emit(domain.EventFourWayHandshake)
	f.startSupplicant()
}

// validateResponseIEs enforces §4.6 step 2: response RSNE must be present
// when RSN was requested, the echoed MDE must bit-compare-equal to the one
// sent, and an FTE is only acceptable for an FT initial mobility-domain
// association.
func (f *FSM) validateResponseIEs(ies []byte, wantRSN bool) error {
	if !wantRSN {
		return nil
	}
	rsneValue, err := ie.FindUnique(ies, ie.TagRSN)
	if err != nil {
		return fmt.Errorf("stafsm: response RSNE: %w", err)
	}
	if rsneValue == nil {
		return fmt.Errorf("stafsm: RSN requested but response carries no RSNE")
	}
	f.conn.ChosenRSNE = domain.RawIE{Tag: ie.TagRSN, Bytes: rsneValue}

	mdeValue, err := ie.FindUnique(ies, ie.TagMDE)
	if err != nil {
		return fmt.Errorf("stafsm: response MDE: %w", err)
	}
	if mdeValue != nil && f.conn.MDE.Bytes != nil && string(mdeValue) != string(ieValue(ie.TagMDE, f.conn.MDE.Bytes)) {
		return fmt.Errorf("stafsm: response MDE does not byte-match the sent MDE")
	}
	if mdeValue != nil {
		f.conn.MDE = domain.RawIE{Tag: ie.TagMDE, Bytes: mdeValue}
	}

	fteValue, err := ie.FindUnique(ies, ie.TagFTE)
	if err != nil {
		return fmt.Errorf("stafsm: response FTE: %w", err)
	}
	if fteValue != nil && !f.conn.InFT {
		return fmt.Errorf("stafsm: unexpected FTE in a non-FT initial association")
	}
	return nil
}

func (f *FSM) startSupplicant() {
	hs := f.conn.Handshake
	handshake.SetOwnIE(hs, hs.OwnRSNE)
	handshake.SetAPIE(hs, f.conn.ChosenRSNE)
	handshake.SetAuthenticatorAddress(hs, f.conn.PeerBSSID)
	handshake.SetSupplicantAddress(hs, f.ownMAC)

	f.supplicant = fourway.NewSupplicant(hs, f.akm, f.cipher, f.clock,
		func(pdu []byte) { _ = f.eapol.Send(f.conn.PeerBSSID, pdu) },
		f.onHandshakeSuccess,
		f.onHandshakeFailure,
	)
	f.supplicant.Start()
}

func (f *FSM) onEAPOLFrame(src [6]byte, payload []byte) {
	if src != f.conn.PeerBSSID {
		return
	}
	switch f.conn.State {
	case domain.StateFourWay:
		if f.supplicant != nil {
			_ = f.supplicant.HandleFrame(payload)
		}
	case domain.StateOperational:
		if f.groupkey != nil {
			_ = f.groupkey.HandleFrame(payload)
		}
	}
}

func (f *FSM) onHandshakeFailure(reason domain.HandshakeFailReason) {
	f.deauthenticate(frame.ReasonUnspecified)
	f.conn.State = domain.StateIdle
	f.conn.Complete(domain.NewConnError(domain.ErrHandshakeFailed, reason.String()))
}

// onHandshakeSuccess installs PTK/GTK/IGTK in the §5 mandated order, then
// brings the link up (§4.6 step 4-5).
func (f *FSM) onHandshakeSuccess() {
	hs := f.conn.Handshake
	ctx := context.Background()

	if err := f.installKeys(ctx, hs); err != nil {
		f.deauthenticate(frame.ReasonUnspecified)
		f.conn.State = domain.StateIdle
		f.conn.Complete(domain.NewConnError(domain.ErrKeySettingFailed, err.Error()))
		return
	}

	f.groupkey = fourway.NewGroupKeySupplicant(hs, f.akm,
		func(pdu []byte) { _ = f.eapol.Send(f.conn.PeerBSSID, pdu) },
		func() {}, func(domain.HandshakeFailReason) {},
	)

	f.bringLinkUp(ctx)
}

// installKeys issues pairwise NEW_KEY, pairwise SET_KEY(default), group
// NEW_KEY, group-management NEW_KEY, and SET_STATION(AUTHORIZED) in that
// exact order (§5 ordering guarantee); any failure aborts the remaining
// batch.
func (f *FSM) installKeys(ctx context.Context, hs *domain.Handshake) error {
	steps := []func() error{
		func() error { return f.newKey(ctx, 0, hs.TK, f.cipher, nil) },
		func() error { return f.setDefaultKey(ctx, 0) },
	}
	if hs.HaveGTK {
		steps = append(steps, func() error { return f.newKey(ctx, hs.GTKIndex, hs.GTK, f.cipher, hs.AA[:]) })
	}
	if hs.HaveIGTK {
		steps = append(steps, func() error {
			return f.newKey(ctx, uint8(hs.IGTKIndex), hs.IGTK, domain.CipherBIPCMAC128, hs.AA[:])
		})
	}
	steps = append(steps, func() error { return f.setStationAuthorized(ctx, hs.AA) })

	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (f *FSM) newKey(ctx context.Context, keyIdx uint8, key []byte, cipher domain.Cipher, mac []byte) error {
	attrs := ports.Attrs{
		ports.AttrIfindex: uint32(f.ifIndex),
		ports.AttrKeyIdx:  uint8(keyIdx),
		ports.AttrKeyData: key,
		ports.AttrKeyCipher: ciphersuiteOUI(cipher),
	}
	if mac != nil {
		attrs[ports.AttrMAC] = mac
	}
	return f.sendAndWait(ctx, ports.CmdNewKey, attrs)
}

func (f *FSM) setDefaultKey(ctx context.Context, keyIdx uint8) error {
	attrs := ports.Attrs{
		ports.AttrIfindex:    uint32(f.ifIndex),
		ports.AttrKeyIdx:     uint8(keyIdx),
		ports.AttrKeyDefault: []byte{}, // NLA flag: presence means true
	}
	return f.sendAndWait(ctx, ports.CmdSetKey, attrs)
}

func (f *FSM) setStationAuthorized(ctx context.Context, mac [6]byte) error {
	// struct nl80211_sta_flag_update{ mask, set __u32 }: set only AUTHORIZED.
	flags := make([]byte, 8)
	binary.LittleEndian.PutUint32(flags[0:4], uint32(ports.StaFlagAuthorized))
	binary.LittleEndian.PutUint32(flags[4:8], uint32(ports.StaFlagAuthorized))

	attrs := ports.Attrs{
		ports.AttrIfindex:   uint32(f.ifIndex),
		ports.AttrMAC:       mac[:],
		ports.AttrStaFlags2: flags,
	}
	return f.sendAndWait(ctx, ports.CmdSetStation, attrs)
}

// sendAndWait issues cmd and blocks the calling goroutine on its result via
// a one-slot buffered channel; §5's single-threaded cooperative event loop still
// processes the reply on the same loop that drains the channel.
func (f *FSM) sendAndWait(ctx context.Context, cmd uint8, attrs ports.Attrs) error {
	resCh := make(chan ports.CommandResult, 1)
	cmdID, err := f.transport.Send(ctx, f.ifIndex, cmd, attrs, func(r ports.CommandResult) { resCh <- r })
	if err != nil {
		return err
	}
	f.conn.PendingCommands[cmdID] = struct{}{}
	res := <-resCh
	delete(f.conn.PendingCommands, cmdID)
	return res.Err
}

func (f *FSM) bringLinkUp(ctx context.Context) {
	if err := f.link.SetOperState(ctx, f.ifIndex, true); err != nil {
		f.conn.State = domain.StateIdle
		f.conn.Complete(domain.NewConnError(domain.ErrKeySettingFailed, err.Error()))
		return
	}
	if err := f.link.SetOperState(ctx, f.ifIndex, false); err != nil {
		f.conn.State = domain.StateIdle
		f.conn.Complete(domain.NewConnError(domain.ErrKeySettingFailed, err.Error()))
		return
	}

	f.conn.State = domain.StateOperational
	f.conn.Connected = true
	f.emit(domain.EventOperational)
	f.conn.Complete(nil)
}

// Disconnect always sends DEAUTHENTICATE with reason LEAVING and ignores
// any subsequent event for this attempt (§4.6, §8 property 8: idempotent).
func (f *FSM) Disconnect(ctx context.Context) {
	if f.conn.State == domain.StateIdle || f.conn.State == domain.StateDisconnecting {
		return
	}
	f.conn.State = domain.StateDisconnecting
	f.deauthenticate(frame.ReasonLeaving)
	f.conn.Reset()
	f.emit(domain.EventDisconnected)
}

// deauthenticate fires DEAUTHENTICATE with the given reason (§4.6 Disconnect).
func (f *FSM) deauthenticate(reason uint16) {
	attrs := ports.Attrs{
		ports.AttrIfindex:    uint32(f.ifIndex),
		ports.AttrMAC:        f.conn.PeerBSSID[:],
		ports.AttrReasonCode: reason,
	}
	_, _ = f.transport.Send(context.Background(), f.ifIndex, ports.CmdDeauthenticate, attrs, nil)
}

func (f *FSM) failConnect(err *domain.ConnError) {
	f.conn.State = domain.StateIdle
	f.conn.Complete(err)
}

func (f *FSM) emit(kind domain.EventKind) {
	if f.conn.OnEvent != nil {
		f.conn.OnEvent(domain.Event{Kind: kind, IfIndex: f.ifIndex, BSSID: macString(f.conn.PeerBSSID)})
	}
}

// attrU16 decodes a little-endian uint16 out of a raw-bytes attribute value
// (the transport decodes every reply attribute as []byte; the FSM imposes
// the type each nl80211 attribute actually carries).
func attrU16(attrs ports.Attrs, key uint16) uint16 {
	b, _ := attrs[key].([]byte)
	if len(b) < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func macString(mac [6]byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

func ciphersuiteOUI(c domain.Cipher) uint32 {
	return oui00FacSuite(suiteTypeFor(c))
}

func akmOUI(a domain.AKM) uint32 {
	return oui00FacSuite(akmSuiteTypeFor(a))
}

// oui00FacSuite packs the 00:0F:AC OUI and a one-byte suite type into the
// big-endian uint32 nl80211 expects for *_SUITES attributes.
func oui00FacSuite(suiteType byte) uint32 {
	return uint32(0x00)<<24 | uint32(0x0F)<<16 | uint32(0xAC)<<8 | uint32(suiteType)
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

// Status reports the current connection state, peer BSSID, and SSID for the
// control surface (§4.10 GetStationStatus).
func (f *FSM) Status() (domain.ConnState, [6]byte, string) {
	return f.conn.State, f.conn.PeerBSSID, f.conn.SSID
}

func akmSuiteTypeFor(a domain.AKM) byte {
	switch a {
	case domain.AKM8021X:
		return 1
	case domain.AKMPSK:
		return 2
	case domain.AKMFT8021X:
		return 3
	case domain.AKMFTPSK:
		return 4
	case domain.AKM8021XSHA256:
		return 5
	case domain.AKMPSKSHA256:
		return 6
	default:
		return 0
	}
}
