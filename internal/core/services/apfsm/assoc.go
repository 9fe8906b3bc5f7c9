package apfsm

import (
	"context"
	"encoding/binary"

	"github.com/lcalzada-xor/wired/internal/adapters/wire/frame"
	"github.com/lcalzada-xor/wired/internal/adapters/wire/ie"
	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/lcalzada-xor/wired/internal/core/ports"
	"github.com/lcalzada-xor/wired/internal/core/services/fourway"
	"github.com/lcalzada-xor/wired/internal/core/services/handshake"
	"github.com/lcalzada-xor/wired/internal/telemetry"
)

// handleAssociationRequest implements §4.7 (Re)association: SSID and
// common-basic-rate checks, then either the WSC Push-Button branch or the
// RSNE branch, AID assignment, and the response frame.
func (f *FSM) handleAssociationRequest(hdr *frame.Header, body []byte, isReassoc bool) {
	ctx := context.Background()
	st, ok := f.stations[hdr.SA]
	if !ok || st.State == domain.StationNone {
		f.sendFrame(ctx, responseSubtype(isReassoc), hdr.SA, frame.BuildAssociationResponse(0, frame.StatusUnspecified, 0, nil))
		return
	}

	capability, listenInterval, _, ies, err := frame.ParseAssociationRequest(body, isReassoc)
	if err != nil {
		f.reject(ctx, hdr.SA, isReassoc, frame.StatusInvalidIe)
		return
	}

	ssid, _, err := ie.ParseSSID(ies)
	if err != nil || ssid != f.cfg.SSID {
		f.reject(ctx, hdr.SA, isReassoc, frame.StatusInvalidIe)
		return
	}

	rates, err := ie.ParseSupportedRates(ies)
	if err != nil {
		f.reject(ctx, hdr.SA, isReassoc, frame.StatusInvalidIe)
		return
	}
	if !ie.HasCommonBasicRate(f.cfg.Rates, rates) {
		f.reject(ctx, hdr.SA, isReassoc, frame.StatusUnspecified)
		return
	}

	wscAccepted, rsneValue := f.classifyAssociation(hdr.SA, ies)
	var assocRSNE domain.RawIE
	if !wscAccepted {
		if rsneValue == nil {
			f.reject(ctx, hdr.SA, isReassoc, frame.StatusInvalidIe)
			return
		}
		info, err := ie.ParseRSNE(rsneValue)
		if err != nil {
			f.reject(ctx, hdr.SA, isReassoc, frame.StatusInvalidIe)
			return
		}
		if ie.PopCount(info.PairwiseCiphers) != 1 || !subsetOf(info.PairwiseCiphers, f.cfg.RSN.PairwiseCiphers) {
			f.reject(ctx, hdr.SA, isReassoc, frame.StatusInvalidPairwiseCipher)
			return
		}
		if len(info.AKMSuites) != 1 || info.AKMSuites[0] != domain.AKMPSK {
			f.reject(ctx, hdr.SA, isReassoc, frame.StatusInvalidAKMP)
			return
		}
		if info.Capabilities.MFPRequired && info.Capabilities.SPPAMSDURequired {
			f.reject(ctx, hdr.SA, isReassoc, frame.StatusInvalidIe)
			return
		}
		assocRSNE = domain.RawIE{Tag: ie.TagRSN, Bytes: rsneValue}
	}

	if f.lastAID+1 > domain.MaxAID {
		f.reject(ctx, hdr.SA, isReassoc, frame.StatusUnspecified)
		return
	}
	f.lastAID++
	aid := f.lastAID
	telemetry.SetAIDUtilization(f.ifIndex, f.lastAID, domain.MaxAID)

	st.Capability = capability
	st.ListenInterval = listenInterval
	st.AssocIEs = append([]byte(nil), ies...)
	if assocRSNE.Bytes != nil {
		assocRSNE.Bytes, _ = ie.FindUnique(st.AssocIEs, ie.TagRSN)
	}
	st.AssocRSNE = assocRSNE
	st.AID = aid

	respIEs := ie.BuildSupportedRates(f.cfg.Rates)
	if wscAccepted {
		st.WSCEnrollee = true
		respIEs = append(respIEs, ie.BuildWSCAssociationResponse()...)
	} else {
		respIEs = append(respIEs, f.ownRSNE...)
	}

	body2 := frame.BuildAssociationResponse(f.cfg.Capability, frame.StatusSuccess, aid, respIEs)
	f.sendFrameAcked(ctx, responseSubtype(isReassoc), hdr.SA, body2, func() {
		f.onAssociationAcked(st, wscAccepted)
	})
}

func responseSubtype(isReassoc bool) uint8 {
	if isReassoc {
		return frame.SubtypeReassocResp
	}
	return frame.SubtypeAssocResp
}

func (f *FSM) reject(ctx context.Context, sa [6]byte, isReassoc bool, status uint16) {
	f.sendFrame(ctx, responseSubtype(isReassoc), sa, frame.BuildAssociationResponse(f.cfg.Capability, status, 0, nil))
}

// classifyAssociation decides whether sa's request takes the WSC
// Push-Button branch or the RSNE branch (§4.7): the WSC branch applies only
// when PBC mode is active and sa is the sole recorded probe, and the request
// actually carries a valid WSC IE.
func (f *FSM) classifyAssociation(sa [6]byte, ies []byte) (wsc bool, rsneValue []byte) {
	rsneValue, _ = ie.FindUnique(ies, ie.TagRSN)
	if f.pbc.soleProbe(sa) == nil {
		return false, rsneValue
	}
	wscValue, err := ie.FindUnique(ies, ie.TagVendorSpecific)
	if err != nil || wscValue == nil {
		return false, rsneValue
	}
	info, err := ie.ParseWSCTLV(wscValue)
	if err != nil || info == nil {
		return false, rsneValue
	}
	return true, rsneValue
}

func subsetOf(have, allowed []domain.Cipher) bool {
	set := make(map[domain.Cipher]bool, len(allowed))
	for _, c := range allowed {
		set[c] = true
	}
	for _, c := range have {
		if !set[c] {
			return false
		}
	}
	return true
}

// onAssociationAcked runs once the kernel's reply to the FRAME command that
// carried the Association/Reassociation Response reports no error: register
// the station with the kernel and continue to key setup or WSC registration
// (§4.7). The frame's TX-status notification is not awaited.
func (f *FSM) onAssociationAcked(st *domain.Station, wscAccepted bool) {
	ctx := context.Background()
	st.State = domain.StationAssociated

	attrs := ports.Attrs{
		ports.AttrIfindex: uint32(f.ifIndex),
		ports.AttrMAC:     st.MAC[:],
		ports.AttrStaAID:  st.AID,
	}
	if _, err := f.sendAndWait(ctx, ports.CmdNewStation, attrs); err != nil {
		f.removeStation(ctx, st.MAC, frame.ReasonUnspecified)
		return
	}
	if _, err := f.sendAndWait(ctx, ports.CmdSetStation, attrs); err != nil {
		f.removeStation(ctx, st.MAC, frame.ReasonUnspecified)
		return
	}

	if wscAccepted {
		f.completeWSCRegistration(ctx, st)
		return
	}
	f.startStationHandshake(ctx, st)
}

// startStationHandshake runs the authenticator-side 4-Way Handshake for st
// (§4.7 Key setup), generating the shared GTK first if this is the first
// RSNA-capable station on this AP.
func (f *FSM) startStationHandshake(ctx context.Context, st *domain.Station) {
	if err := f.ensureGroupKey(ctx); err != nil {
		f.log.Error("apfsm: group key setup failed", "err", err)
		f.removeStation(ctx, st.MAC, frame.ReasonUnspecified)
		return
	}

	h := &domain.Handshake{}
	handshake.SetPMK(h, f.cfg.PMK)
	handshake.SetAuthenticatorAddress(h, f.ownMAC)
	handshake.SetSupplicantAddress(h, st.MAC)
	handshake.SetOwnIE(h, domain.RawIE{Tag: ie.TagRSN, Bytes: f.ownRSNE})
	handshake.SetAPIE(h, st.AssocRSNE)
	st.Handshake = h

	mac := st.MAC
	auth := fourway.NewAuthenticator(h, f.cfg.AKM, f.cfg.Cipher, st.AssocRSNE, f.clock,
		func(pdu []byte) { _ = f.eapol.Send(mac, pdu) },
		func() { f.onStationHandshakeSuccess(mac) },
		func(reason domain.HandshakeFailReason) { f.onStationHandshakeFailure(mac, reason) },
	)
	auth.SetGroupKeys(f.gtkIndex, f.gtk, f.gtkRSC)
	f.authenticators[st.MAC] = auth
	if err := auth.Start(); err != nil {
		f.removeStation(ctx, st.MAC, frame.ReasonUnspecified)
	}
}

// onStationHandshakeSuccess installs the pairwise key and authorizes the
// station (§4.7 Key setup: "mark the Station Rsna and emit STATION_ADDED").
func (f *FSM) onStationHandshakeSuccess(mac [6]byte) {
	st, ok := f.stations[mac]
	if !ok {
		return
	}
	ctx := context.Background()
	h := st.Handshake

	steps := []func() error{
		func() error { return f.newPairwiseKey(ctx, mac, h.TK) },
		func() error { return f.setDefaultKey(ctx) },
		func() error { return f.setStationAuthorized(ctx, mac) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			f.onStationHandshakeFailure(mac, domain.HandshakeMicMismatch)
			return
		}
	}

	st.State = domain.StationRsna
	f.emit(domain.EventStationAdded, &mac)
}

func (f *FSM) onStationHandshakeFailure(mac [6]byte, reason domain.HandshakeFailReason) {
	f.log.Warn("apfsm: station handshake failed", "mac", macString(mac), "reason", reason.String())
	f.removeStation(context.Background(), mac, frame.ReasonUnspecified)
}

func (f *FSM) newPairwiseKey(ctx context.Context, mac [6]byte, tk []byte) error {
	attrs := ports.Attrs{
		ports.AttrIfindex:   uint32(f.ifIndex),
		ports.AttrKeyIdx:    uint8(0),
		ports.AttrKeyData:   tk,
		ports.AttrKeyCipher: ciphersuiteOUI(f.cfg.Cipher),
		ports.AttrMAC:       mac[:],
	}
	_, err := f.sendAndWait(ctx, ports.CmdNewKey, attrs)
	return err
}

func (f *FSM) setDefaultKey(ctx context.Context) error {
	attrs := ports.Attrs{
		ports.AttrIfindex:    uint32(f.ifIndex),
		ports.AttrKeyIdx:     uint8(0),
		ports.AttrKeyDefault: []byte{},
	}
	_, err := f.sendAndWait(ctx, ports.CmdSetKey, attrs)
	return err
}

func (f *FSM) setStationAuthorized(ctx context.Context, mac [6]byte) error {
	flags := make([]byte, 8)
	binary.LittleEndian.PutUint32(flags[0:4], uint32(ports.StaFlagAuthorized))
	binary.LittleEndian.PutUint32(flags[4:8], uint32(ports.StaFlagAuthorized))
	attrs := ports.Attrs{
		ports.AttrIfindex:   uint32(f.ifIndex),
		ports.AttrMAC:       mac[:],
		ports.AttrStaFlags2: flags,
	}
	_, err := f.sendAndWait(ctx, ports.CmdSetStation, attrs)
	return err
}

// completeWSCRegistration stands in for the EAP-WSC credential exchange
// (§4.7 WSC Push-Button mode): the distilled spec does not define the
// EAP-WSC message wire format, so credential delivery is treated as an
// atomic step bracketed by RegistrationStart/RegistrationSuccess, after
// which the enrollee's PBC record is purged per §4.7's explicit rule.
func (f *FSM) completeWSCRegistration(ctx context.Context, st *domain.Station) {
	f.emit(domain.EventRegistrationStart, &st.MAC)
	f.pbc.forget(st.MAC)
	st.State = domain.StationRsna
	f.emit(domain.EventRegistrationSuccess, &st.MAC)
	f.emit(domain.EventStationAdded, &st.MAC)
}
