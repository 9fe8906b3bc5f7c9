// Package fourway implements both roles of the 4-Way Handshake and the
// Group-Key handshake that follows it (§4.5): Supplicant drives the STA
// connect path, Authenticator drives the AP association path and FT rekey.
// Both are driven purely by HandleFrame calls and a ports.Clock for
// retransmission; neither performs I/O itself.
package fourway

import (
	"time"

	"github.com/lcalzada-xor/wired/internal/core/domain"
)

// RetransmitTimeout and RetryLimit implement §4.5's "each wait state has a
// retransmit timer (default 1s) and a retry cap (3 attempts)".
const (
	RetransmitTimeout = 1 * time.Second
	RetryLimit        = 3
)

// SendFunc hands a serialized EAPoL-Key frame to the caller for delivery
// over the control port or PF_PACKET socket.
type SendFunc func(frame []byte)

// FailFunc reports a terminal handshake failure (§7 HandshakeFailed(reason)).
type FailFunc func(reason domain.HandshakeFailReason)

// SuccessFunc reports that the PTK (and, for the authenticator, GTK/IGTK)
// have been derived and installed into the Handshake; the caller is
// responsible for pushing them to the kernel via NEW_KEY/SET_KEY/SET_STATION
// in the order §5 requires.
type SuccessFunc func()
