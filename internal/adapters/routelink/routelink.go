// Package routelink implements ports.LinkController over route-netlink via
// github.com/jsimonetti/rtnetlink (§4.3b, §6.2). It is a thin translation
// layer: one rtnetlink.Conn per daemon instance, shared across interfaces.
package routelink

import (
	"context"
	"fmt"
	"net"

	"github.com/jsimonetti/rtnetlink"
	"golang.org/x/sys/unix"
)

// Controller implements ports.LinkController.
type Controller struct {
	conn *rtnetlink.Conn
}

// Dial opens a route-netlink socket.
func Dial() (*Controller, error) {
	conn, err := rtnetlink.Dial(nil)
	if err != nil {
		return nil, fmt.Errorf("routelink: dial: %w", err)
	}
	return &Controller{conn: conn}, nil
}

// Close releases the underlying socket.
func (c *Controller) Close() error {
	return c.conn.Close()
}

// SetUp implements ports.LinkController.
func (c *Controller) SetUp(_ context.Context, ifIndex int, up bool) error {
	var flags uint32
	if up {
		flags = unix.IFF_UP
	}
	msg := rtnetlink.LinkMessage{
		Family: unix.AF_UNSPEC,
		Index:  uint32(ifIndex),
		Flags:  flags,
		Change: unix.IFF_UP,
	}
	if err := c.conn.Link.Set(msg); err != nil {
		return fmt.Errorf("routelink: set link %d up=%v: %w", ifIndex, up, err)
	}
	return nil
}

// SetOperState implements ports.LinkController, toggling the link between
// IF_OPER_DORMANT (while the 4-way handshake is in flight) and IF_OPER_UP
// (once the PTK is installed, §5).
func (c *Controller) SetOperState(_ context.Context, ifIndex int, dormant bool) error {
	state := rtnetlink.OperStateUp
	if dormant {
		state = rtnetlink.OperStateDormant
	}
	msg := rtnetlink.LinkMessage{
		Family: unix.AF_UNSPEC,
		Index:  uint32(ifIndex),
		Attributes: &rtnetlink.LinkAttributes{
			OperationalState: state,
		},
	}
	if err := c.conn.Link.Set(msg); err != nil {
		return fmt.Errorf("routelink: set operstate link %d dormant=%v: %w", ifIndex, dormant, err)
	}
	return nil
}

// AddAddress implements ports.LinkController.
func (c *Controller) AddAddress(_ context.Context, ifIndex int, addr net.IPNet) error {
	prefixLen, _ := addr.Mask.Size()
	family := uint8(unix.AF_INET)
	if addr.IP.To4() == nil {
		family = unix.AF_INET6
	}
	msg := &rtnetlink.AddressMessage{
		Family:       family,
		PrefixLength: uint8(prefixLen),
		Scope:        unix.RT_SCOPE_UNIVERSE,
		Index:        uint32(ifIndex),
		Attributes: &rtnetlink.AddressAttributes{
			Address: addr.IP,
			Local:   addr.IP,
		},
	}
	if err := c.conn.Address.New(msg); err != nil {
		return fmt.Errorf("routelink: add address %s to link %d: %w", addr.String(), ifIndex, err)
	}
	return nil
}

// DelAddress implements ports.LinkController.
func (c *Controller) DelAddress(_ context.Context, ifIndex int, addr net.IPNet) error {
	prefixLen, _ := addr.Mask.Size()
	family := uint8(unix.AF_INET)
	if addr.IP.To4() == nil {
		family = unix.AF_INET6
	}
	msg := &rtnetlink.AddressMessage{
		Family:       family,
		PrefixLength: uint8(prefixLen),
		Index:        uint32(ifIndex),
		Attributes: &rtnetlink.AddressAttributes{
			Address: addr.IP,
			Local:   addr.IP,
		},
	}
	if err := c.conn.Address.Delete(msg); err != nil {
		return fmt.Errorf("routelink: delete address %s from link %d: %w", addr.String(), ifIndex, err)
	}
	return nil
}
