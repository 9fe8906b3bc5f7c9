package ports

// EAPOLChannel carries 802.1X/EAPoL-Key PDUs to and from one peer MAC over
// the control port (§6 "EAPoL / control-port frames"): a PF_PACKET socket
// bound to ETH_P_PAE, or the kernel's nl80211 control-port-over-netlink path
// when the driver advertises that capability. The 4-Way Handshake engines
// (internal/core/services/fourway) are wire-agnostic; the FSMs wire one of
// these into each Supplicant/Authenticator's SendFunc.
type EAPOLChannel interface {
	// Send transmits payload (an EAPoL-Key PDU) to dst over the control port.
	Send(dst [6]byte, payload []byte) error

	// SetReceiver installs the callback invoked for every EAPoL frame
	// received from src. Only one receiver is active at a time.
	SetReceiver(fn func(src [6]byte, payload []byte))

	Close() error
}
