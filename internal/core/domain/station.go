package domain

import "time"

// StationState is the AP-side per-client state (§4.7).
type StationState int

const (
	StationNone StationState = iota
	StationAuthenticated
	StationAssociated
	StationRsna
)

func (s StationState) String() string {
	switch s {
	case StationNone:
		return "None"
	case StationAuthenticated:
		return "Authenticated"
	case StationAssociated:
		return "Associated"
	case StationRsna:
		return "Rsna"
	default:
		return "Unknown"
	}
}

// MinAID and MaxAID bound the association-id space (802.11-2016 §11.3.2,
// §8 property 7).
const (
	MinAID = 1
	MaxAID = 2007
)

// Station is a per associated client record on the AP role (§3).
type Station struct {
	MAC  [6]byte
	AID  uint16
	State StationState

	Capability    uint16
	ListenInterval uint16
	Rates         []byte

	// AssocIEs is the single owned byte vector the association-request IEs
	// are captured into (§9 pointer-aliasing note, option (a)); AssocRSNE
	// indexes into it rather than holding a separate copy.
	AssocIEs  []byte
	AssocRSNE RawIE

	Handshake *Handshake

	WSCEnrollee bool
	WSCUUID     [16]byte

	LastActivity time.Time
}

// NewStation allocates a Station in the None state for the given MAC.
func NewStation(mac [6]byte) *Station {
	return &Station{MAC: mac, State: StationNone, LastActivity: time.Now()}
}

// SecureErase zeroizes the station's handshake key material (§4.7 Disassociation
// step, §9 zeroization).
func (s *Station) SecureErase() {
	if s.Handshake != nil {
		s.Handshake.SecureErase()
	}
}

// PBCProbe records one WSC push-button probe-request sighting, used for
// session-overlap detection (§3).
type PBCProbe struct {
	MAC       [6]byte
	UUIDE     [16]byte
	Timestamp time.Time
}

const (
	PBCWalkTime    = 120 * time.Second
	PBCMonitorTime = 120 * time.Second
)
