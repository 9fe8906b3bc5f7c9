package stafsm

import (
	"context"
	"fmt"

	"github.com/lcalzada-xor/wired/internal/adapters/wire/crypto"
	"github.com/lcalzada-xor/wired/internal/adapters/wire/frame"
	"github.com/lcalzada-xor/wired/internal/adapters/wire/ie"
	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/lcalzada-xor/wired/internal/core/ports"
	"github.com/lcalzada-xor/wired/internal/core/services/handshake"
)

// ftState carries the per-attempt bookkeeping the FT sub-path needs between
// the AUTHENTICATE and REASSOCIATE round trips (§4.6 "Fast-BSS-Transition
// path"); the FSM's conn already tracks PeerBSSID/MDE/State for the attempt.
type ftState struct {
	target       domain.BSSDescriptor
	r1khID       []byte
	savedSNonce  [32]byte
	onDone       domain.ConnectCallback
}

// TransitionFT moves an already-Operational link to another BSS sharing the
// current Mobility Domain without running a fresh 4-Way Handshake (§4.6).
// targetR1KHID is the R1KH-ID advertised for target, normally learned from a
// neighbor report; onDone is invoked exactly once with the outcome.
func (f *FSM) TransitionFT(ctx context.Context, target domain.BSSDescriptor, targetR1KHID []byte, onDone domain.ConnectCallback) error {
	hs := f.conn.Handshake
	if f.conn.State != domain.StateOperational || hs == nil || !hs.IsFT {
		return domain.NewConnError(domain.ErrInProgress, "no FT-capable operational link to transition from")
	}
	if target.MDE == nil {
		return domain.NewConnError(domain.ErrInvalidArgs, "target BSS advertises no MDE")
	}
	curMDE, err := ie.ParseMDE(ieValue(ie.TagMDE, f.conn.MDE.Bytes))
	if err != nil {
		return domain.NewConnError(domain.ErrInvalidArgs, "current link has no parsable MDE")
	}
	if curMDE.MDID != target.MDE.MDID {
		return domain.NewConnError(domain.ErrInvalidArgs, "target MDID does not match the current mobility domain")
	}

	r0khID := f.currentR0KHID()
	if err := handshake.DeriveFTKeyHierarchy(hs, target.MDE.MDID, r0khID, targetR1KHID); err != nil {
		return domain.NewConnError(domain.ErrKeySettingFailed, err.Error())
	}

	f.ft = &ftState{target: target, r1khID: append([]byte(nil), targetR1KHID...), savedSNonce: hs.SNonce, onDone: onDone}
	if err := handshake.NewSNonce(hs); err != nil {
		return domain.NewConnError(domain.ErrKeySettingFailed, err.Error())
	}

	rsneBytes, err := ftRSNE(hs.OwnRSNE.Bytes, hs.PMKR0Name)
	if err != nil {
		return domain.NewConnError(domain.ErrInvalidIe, err.Error())
	}
	mdeBytes := target.MDERaw.Bytes
	if mdeBytes == nil {
		mdeBytes = ie.BuildMDE(*target.MDE)
	}
	fte := domain.FTE{SNonce: hs.SNonce, R0KHID: r0khID}
	fteBytes := ie.BuildFTE(fte)

	ieSection := append(append(append([]byte(nil), rsneBytes...), mdeBytes...), fteBytes...)
	attrs := ports.Attrs{
		ports.AttrIfindex:  uint32(f.ifIndex),
		ports.AttrBSSID:    target.BSSID[:],
		ports.AttrSSID:     []byte(target.SSID),
		ports.AttrAuthType: ports.AuthTypeFT,
		ports.AttrIE:       ieSection,
	}

	f.conn.PrevBSSID = f.conn.PeerBSSID
	f.conn.InFT = true
	f.conn.State = domain.StateFTAuthenticating
	cmdID, err := f.transport.Send(ctx, f.ifIndex, ports.CmdAuthenticate, attrs, f.onFTAuthResult)
	if err != nil {
		f.conn.State = domain.StateOperational
		f.ft = nil
		return domain.NewConnError(domain.ErrAborted, err.Error())
	}
	f.conn.PendingCommands[cmdID] = struct{}{}
	return nil
}

// currentR0KHID recovers the R0KH-ID this link authenticated with, from the
// FTE exchanged at the initial mobility-domain association; real deployments
// without one on file fall back to the current AP's BSSID, the common
// default R0KH-ID for a single-R0KH network.
func (f *FSM) currentR0KHID() []byte {
	if f.conn.Handshake.FTE.Bytes != nil {
		if parsed, err := ie.ParseFTE(ieValue(ie.TagFTE, f.conn.Handshake.FTE.Bytes)); err == nil && len(parsed.R0KHID) > 0 {
			return parsed.R0KHID
		}
	}
	aa := f.conn.PeerBSSID
	return aa[:]
}

// onFTAuthResult handles the AUTHENTICATE event of an FT transition (§4.6
// step 2): parse RSNE/MDE/FTE, validate the PMK-R1-Name derivation inputs,
// derive the PTK, and send REASSOCIATE carrying the full FT IE trio.
func (f *FSM) onFTAuthResult(res ports.CommandResult) {
	if f.conn.State != domain.StateFTAuthenticating || f.ft == nil {
		return
	}
	ctx := context.Background()
	status := attrU16(res.Attrs, ports.AttrStatusCode)
	if res.Err != nil || status != 0 {
		f.failFT(fmt.Errorf("ft authenticate failed: status=%d err=%v", status, res.Err))
		return
	}

	ies, _ := res.Attrs[ports.AttrIE].([]byte)
	rsneValue, mdeValue, fteValue, err := parseFTIEs(ies)
	if err != nil {
		f.failFT(err)
		return
	}
	if string(mdeValue) != string(ieValue(ie.TagMDE, f.ft.target.MDERaw.Bytes)) {
		f.failFT(fmt.Errorf("ft authenticate: response MDE does not match the target's"))
		return
	}
	rsneInfo, err := ie.ParseRSNE(rsneValue)
	if err != nil {
		f.failFT(fmt.Errorf("ft authenticate: response RSNE: %w", err))
		return
	}
	if len(rsneInfo.PMKIDs) != 1 || rsneInfo.PMKIDs[0] != f.conn.Handshake.PMKR1Name {
		f.failFT(fmt.Errorf("ft authenticate: response RSNE PMKID does not equal PMK-R1-Name"))
		return
	}
	fte, err := ie.ParseFTE(fteValue)
	if err != nil {
		f.failFT(fmt.Errorf("ft authenticate: response FTE: %w", err))
		return
	}

	hs := f.conn.Handshake
	handshake.SetANonce(hs, fte.ANonce)
	if err := handshake.DerivePTK(hs, f.akm, f.cipher); err != nil {
		f.failFT(err)
		return
	}

	reqRSNE, err := ftRSNE(hs.OwnRSNE.Bytes, hs.PMKR1Name)
	if err != nil {
		f.failFT(err)
		return
	}
	mdeBytes := f.ft.target.MDERaw.Bytes
	if mdeBytes == nil {
		mdeBytes = ie.BuildMDE(*f.ft.target.MDE)
	}
	reqFTE := domain.FTE{ANonce: fte.ANonce, SNonce: hs.SNonce, R0KHID: f.currentR0KHID(), R1KHID: f.ft.r1khID, MICControl: 1}
	micInput := ftMICInput(hs.SPA, f.ft.target.BSSID, mdeBytes, ie.BuildFTE(reqFTE), reqRSNE)
	reqFTE.MIC = crypto.ComputeMIC(f.akm, hs.KCK[:], micInput)
	reqFTEBytes := ie.BuildFTE(reqFTE)

	ieSection := append(append(append([]byte(nil), reqRSNE...), mdeBytes...), reqFTEBytes...)
	attrs := ports.Attrs{
		ports.AttrIfindex:   uint32(f.ifIndex),
		ports.AttrBSSID:     f.ft.target.BSSID[:],
		ports.AttrPrevBSSID: f.conn.PrevBSSID[:],
		ports.AttrIE:        ieSection,
	}
	f.conn.State = domain.StateFTReassociating
	cmdID, err := f.transport.Send(ctx, f.ifIndex, ports.CmdAssociate, attrs, f.onFTReassocResult)
	if err != nil {
		f.failFT(err)
		return
	}
	f.conn.PendingCommands[cmdID] = struct{}{}
}

// onFTReassocResult handles the matching ASSOCIATE event (§4.6 step 3):
// on success, install the PTK directly (no 4-Way Handshake) and re-key the
// driver for the new BSSID.
func (f *FSM) onFTReassocResult(res ports.CommandResult) {
	if f.conn.State != domain.StateFTReassociating || f.ft == nil {
		return
	}
	ctx := context.Background()
	status := attrU16(res.Attrs, ports.AttrStatusCode)
	if res.Err != nil || status != 0 {
		f.failFT(fmt.Errorf("ft reassociate failed: status=%d err=%v", status, res.Err))
		return
	}

	hs := f.conn.Handshake
	if err := handshake.InstallPTK(hs); err != nil {
		f.failFT(err)
		return
	}

	if ies, ok := res.Attrs[ports.AttrIE].([]byte); ok {
		if fteValue, err := ie.FindUnique(ies, ie.TagFTE); err == nil && fteValue != nil {
			if fte, err := ie.ParseFTE(fteValue); err == nil {
				if fte.HasGTK {
					_ = handshake.InstallGTK(hs, fte.GTKKeyID, fte.GTKRSC, fte.GTK)
				}
				if fte.HasIGTK {
					_ = handshake.InstallIGTK(hs, fte.IGTKKeyID, fte.IGTKIPN, fte.IGTK)
				}
			}
		}
	}

	f.conn.PeerBSSID = f.ft.target.BSSID
	f.conn.MDE = f.ft.target.MDERaw

	if err := f.installKeys(ctx, hs); err != nil {
		f.failFT(err)
		return
	}

	done := f.ft.onDone
	f.ft = nil
	f.conn.State = domain.StateOperational
	f.emit(domain.EventOperational)
	if done != nil {
		done(nil)
	}
}

func (f *FSM) failFT(cause error) {
	f.deauthenticate(frame.ReasonUnspecified)
	f.conn.State = domain.StateOperational
	done := f.ft.onDone
	f.ft = nil
	if done != nil {
		done(domain.NewConnError(domain.ErrHandshakeFailed, cause.Error()))
	}
}

// parseFTIEs pulls RSNE/MDE/FTE raw values out of an FT Authenticate
// Response's IE blob, requiring all three to be present (§4.6, §8 property 4).
func parseFTIEs(ies []byte) (rsne, mde, fte []byte, err error) {
	rsne, err = ie.FindUnique(ies, ie.TagRSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ft authenticate: response RSNE: %w", err)
	}
	mde, err = ie.FindUnique(ies, ie.TagMDE)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ft authenticate: response MDE: %w", err)
	}
	fte, err = ie.FindUnique(ies, ie.TagFTE)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ft authenticate: response FTE: %w", err)
	}
	if rsne == nil || mde == nil || fte == nil {
		return nil, nil, nil, fmt.Errorf("ft authenticate: response missing RSNE/MDE/FTE")
	}
	return rsne, mde, fte, nil
}

// ftRSNE rewrites own's RSNE to carry pmkid as the sole PMKID (§4.6: the FT
// Authenticate Request carries PMK-R0-Name; the Reassociate Request carries
// PMK-R1-Name).
func ftRSNE(own []byte, pmkid [16]byte) ([]byte, error) {
	info, err := ie.ParseRSNE(ieValue(ie.TagRSN, own))
	if err != nil {
		return nil, fmt.Errorf("ft: own RSNE: %w", err)
	}
	info.PMKIDs = [][16]byte{pmkid}
	return ie.BuildRSNE(*info), nil
}

// ftMICInput concatenates the five elements the Reassociate Request's FTE
// MIC is computed over: SPA, target AP address, MDE, FTE (with MIC zeroed),
// RSNE (§4.6 "FTE MIC computed over five specified elements").
func ftMICInput(spa, aa [6]byte, mde, fteZeroMIC, rsne []byte) []byte {
	out := make([]byte, 0, 12+len(mde)+len(fteZeroMIC)+len(rsne))
	out = append(out, spa[:]...)
	out = append(out, aa[:]...)
	out = append(out, mde...)
	out = append(out, fteZeroMIC...)
	out = append(out, rsne...)
	return out
}

// ieValue normalizes b to a bare element value, accepting either a full
// tag+length+value TLV or an already-stripped value: RawIE fields built or
// taken whole from a descriptor carry the former, while those filled from
// ie.FindUnique carry the latter (mirrors ie.stripElementHeader's tolerance
// for RSNE).
func ieValue(tag uint8, b []byte) []byte {
	if len(b) >= 2 && b[0] == tag && int(b[1]) == len(b)-2 {
		return b[2:]
	}
	return b
}
