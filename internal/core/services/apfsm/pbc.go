package apfsm

import (
	"context"

	"github.com/lcalzada-xor/wired/internal/adapters/wire/frame"
	"github.com/lcalzada-xor/wired/internal/adapters/wire/ie"
	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/lcalzada-xor/wired/internal/core/ports"
)

// pbcState tracks the AP's WSC Push-Button registration window (§4.7 WSC
// Push-Button mode, §8 property 6).
type pbcState struct {
	active    bool
	probes    []domain.PBCProbe
	walkTimer ports.Timer
}

func (p *pbcState) forget(mac [6]byte) {
	out := p.probes[:0]
	for _, probe := range p.probes {
		if probe.MAC != mac {
			out = append(out, probe)
		}
	}
	p.probes = out
}

// soleProbe returns the single recorded probe matching mac, or nil if PBC
// mode is inactive, mac never probed, or more than one enrollee is on file
// (§4.7 "this client matches the sole recorded PBC probe").
func (p *pbcState) soleProbe(mac [6]byte) *domain.PBCProbe {
	if !p.active || len(p.probes) != 1 {
		return nil
	}
	if p.probes[0].MAC != mac {
		return nil
	}
	probe := p.probes[0]
	return &probe
}

// PushButton activates PBC mode for PBCWalkTime (§4.7). A second call while
// already active restarts the window.
func (f *FSM) PushButton(ctx context.Context) {
	if f.pbc.walkTimer != nil {
		f.pbc.walkTimer.Stop()
	}
	f.pbc.active = true
	f.pbc.probes = nil
	f.pbc.walkTimer = f.clock.AfterFunc(domain.PBCWalkTime, func() { f.exitPBC(context.Background()) })
	f.rebuildBeacon(ctx)
}

func (f *FSM) exitPBC(ctx context.Context) {
	if !f.pbc.active {
		return
	}
	if f.pbc.walkTimer != nil {
		f.pbc.walkTimer.Stop()
		f.pbc.walkTimer = nil
	}
	f.pbc.active = false
	f.pbc.probes = nil
	f.emit(domain.EventPbcModeExit, nil)
	f.rebuildBeacon(ctx)
}

// handleProbeRequest records a WSC Push-Button probe and checks for session
// overlap (§4.7, §8 property 6: two distinct enrollees within
// PBCMonitorTime force an exit before any response is sent for the
// overlapping request).
func (f *FSM) handleProbeRequest(hdr *frame.Header, body []byte) {
	if !f.pbc.active {
		return
	}
	wscValue, err := ie.FindUnique(body, ie.TagVendorSpecific)
	if err != nil || wscValue == nil {
		return
	}
	info, err := ie.ParseWSCTLV(wscValue)
	if err != nil || info == nil || !info.HasDevicePasswordID || info.DevicePasswordID != ie.DevicePasswordIDPushButton {
		return
	}

	now := f.clock.Now()
	fresh := f.pbc.probes[:0]
	for _, p := range f.pbc.probes {
		if now.Sub(p.Timestamp) <= domain.PBCMonitorTime {
			fresh = append(fresh, p)
		}
	}
	f.pbc.probes = fresh

	for i := range f.pbc.probes {
		if f.pbc.probes[i].MAC == hdr.SA {
			f.pbc.probes[i].Timestamp = now
			return
		}
	}
	f.pbc.probes = append(f.pbc.probes, domain.PBCProbe{MAC: hdr.SA, UUIDE: info.UUIDE, Timestamp: now})
	if len(f.pbc.probes) >= 2 {
		f.exitPBC(context.Background())
	}
}
