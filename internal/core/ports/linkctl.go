package ports

import (
	"context"
	"net"
)

// LinkController performs route-netlink link/address operations (§4.3b, §6).
// The STA FSM uses it to bring the link dormant-then-up on successful
// connect. The AP FSM does not assign addresses; AddAddress and DelAddress
// have no caller in the core.
type LinkController interface {
	SetUp(ctx context.Context, ifIndex int, up bool) error
	SetOperState(ctx context.Context, ifIndex int, dormant bool) error
	AddAddress(ctx context.Context, ifIndex int, addr net.IPNet) error
	DelAddress(ctx context.Context, ifIndex int, addr net.IPNet) error
}
