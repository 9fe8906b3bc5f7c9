package domain

import "time"

// ConnState is the STA connect FSM state (§4.6).
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateFourWay
	StateOperational
	StateDisconnecting
	StateFTAuthenticating
	StateFTReassociating
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateFourWay:
		return "FourWay"
	case StateOperational:
		return "Operational"
	case StateDisconnecting:
		return "Disconnecting"
	case StateFTAuthenticating:
		return "FT-Authenticating"
	case StateFTReassociating:
		return "FT-Reassociating"
	default:
		return "Unknown"
	}
}

// ConnectCallback is invoked exactly once per Connect attempt with either a
// nil error (success) or a typed *ConnError (§7, §8 property 1).
type ConnectCallback func(err *ConnError)

// EventCallback streams Event values for the lifetime of a Connection.
type EventCallback func(Event)

// Connection is a per active association attempt or active link (§3).
type Connection struct {
	State ConnState

	PeerBSSID [6]byte
	SSID      string

	PairwiseCipher Cipher
	GroupCipher    Cipher
	AKMSuite       AKM

	AdvertisedRSNE RawIE
	ChosenRSNE     RawIE
	MDE            RawIE
	FTE            RawIE

	Handshake *Handshake

	MFP       bool
	InFT      bool
	PrevBSSID [6]byte

	Connected bool

	OnConnect ConnectCallback
	OnEvent   EventCallback

	// Bookkeeping for outstanding netlink commands issued by this connection,
	// cancelled as a batch on teardown (§5).
	PendingCommands map[uint32]struct{}

	// completionFired guards exactly-once callback delivery (§8 property 1):
	// once true, no further kernel event for this attempt may invoke OnConnect.
	completionFired bool

	CreatedAt time.Time
}

// NewConnection allocates a Connection in the Idle state.
func NewConnection() *Connection {
	return &Connection{
		State:           StateIdle,
		PendingCommands: make(map[uint32]struct{}),
		CreatedAt:       time.Now(),
	}
}

// Complete fires OnConnect exactly once; subsequent calls are no-ops so that
// late kernel events for an already-resolved attempt are silently ignored.
func (c *Connection) Complete(err *ConnError) {
	if c.completionFired {
		return
	}
	c.completionFired = true
	if c.OnConnect != nil {
		c.OnConnect(err)
	}
}

// Reset tears down a Connection for reuse after a failure or disconnect,
// zeroizing its Handshake first (§9 zeroization).
func (c *Connection) Reset() {
	if c.Handshake != nil {
		c.Handshake.SecureErase()
	}
	c.State = StateIdle
	c.Connected = false
	c.Handshake = nil
	c.completionFired = false
	c.PendingCommands = make(map[uint32]struct{})
}
