package apfsm

import (
	"context"

	"github.com/lcalzada-xor/wired/internal/adapters/wire/frame"
	"github.com/lcalzada-xor/wired/internal/core/domain"
)

// authAlgoOpenSystem is the 802.11 Open System authentication algorithm
// number (802.11-2016 Table 9-44); this AP rejects every other algorithm.
const authAlgoOpenSystem uint16 = 0

// handleAuthentication implements §4.7 Authentication: Open-System only,
// sequence 1 only, optional allow-list check.
func (f *FSM) handleAuthentication(hdr *frame.Header, body []byte) {
	algo, seq, _, _, err := frame.ParseAuthentication(body)
	if err != nil || seq != 1 {
		return // malformed or not the opening frame of the exchange; ignore
	}

	ctx := context.Background()
	if algo != authAlgoOpenSystem {
		f.sendFrame(ctx, frame.SubtypeAuth, hdr.SA, frame.BuildAuthentication(algo, 2, frame.StatusUnspecified, nil))
		return
	}
	if !f.cfg.allowed(hdr.SA) {
		f.sendFrame(ctx, frame.SubtypeAuth, hdr.SA, frame.BuildAuthentication(authAlgoOpenSystem, 2, frame.StatusUnspecified, nil))
		return
	}

	st, ok := f.stations[hdr.SA]
	if !ok {
		st = domain.NewStation(hdr.SA)
		f.stations[hdr.SA] = st
	}
	st.State = domain.StationAuthenticated

	f.sendFrame(ctx, frame.SubtypeAuth, hdr.SA, frame.BuildAuthentication(authAlgoOpenSystem, 2, frame.StatusSuccess, nil))
}
