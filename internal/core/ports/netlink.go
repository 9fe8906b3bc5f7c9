// Package ports defines the boundary interfaces the core FSMs and engines are
// built against; concrete implementations live under internal/adapters.
package ports

import "context"

// Attrs is a generic-netlink attribute set, keyed by nl80211 attribute number.
// Values are either []byte, uint8/16/32/64, string, or a nested Attrs for
// NLA_NESTED attributes.
type Attrs map[uint16]interface{}

// CommandResult is delivered to a Transport.Send completion callback.
type CommandResult struct {
	// Command is the nl80211 command number of the kernel's reply (normally
	// an ack or the matching response command).
	Command uint8
	Attrs   Attrs
	Err     error
}

// ResultFunc is a Transport.Send completion callback. Implementations must
// not block (§4.3): do real work by posting to the caller's own queue.
type ResultFunc func(CommandResult)

// FrameHandler receives a forwarded management frame (NL80211_CMD_FRAME) or
// multicast event. Attrs carries the decoded attribute set of the event.
type FrameHandler func(ifIndex int, attrs Attrs)

// Transport carries nl80211 commands to the kernel and dispatches multicast
// events back (§4.3). It is single-threaded cooperative with respect to its
// callbacks: every outstanding command is uniquely identified and may be
// cancelled exactly once.
type Transport interface {
	// Send dispatches cmd with the given attrs and returns a command id that
	// uniquely identifies this outstanding request.
	Send(ctx context.Context, ifIndex int, cmd uint8, attrs Attrs, on ResultFunc) (cmdID uint32, err error)

	// Cancel guarantees the Send callback for cmdID is not invoked after
	// Cancel returns, whether or not the kernel has already replied.
	Cancel(cmdID uint32)

	// RegisterMulticast subscribes handler to the named nl80211 multicast
	// group ("mlme", "config", or a vendor/unicast notification group).
	RegisterMulticast(group string, handler FrameHandler) error

	// RegisterFrame asks the kernel to forward management frames on wdev
	// whose first bytes match matchPrefix (NL80211_CMD_REGISTER_FRAME).
	RegisterFrame(ifIndex int, frameType uint16, matchPrefix []byte) error

	// Close releases the underlying generic-netlink socket.
	Close() error
}
