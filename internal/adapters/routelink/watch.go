package routelink

import (
	"context"
	"fmt"

	"github.com/jsimonetti/rtnetlink"
	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"

	"github.com/lcalzada-xor/wired/internal/core/ports"
)

// Watcher implements ports.InterfaceWatcher over the RTNLGRP_LINK multicast
// group (§4.8 "subscribes to kernel interface add/remove notifications").
// It owns its own socket, separate from Controller's, since the two have
// independent read loops (§4.3b single-threaded-per-socket model).
type Watcher struct {
	conn *rtnetlink.Conn
}

// DialWatcher opens a route-netlink socket joined to the link group.
func DialWatcher() (*Watcher, error) {
	conn, err := rtnetlink.Dial(&netlink.Config{Groups: unix.RTNLGRP_LINK})
	if err != nil {
		return nil, fmt.Errorf("routelink: dial watcher: %w", err)
	}
	return &Watcher{conn: conn}, nil
}

// Close releases the underlying socket.
func (w *Watcher) Close() error { return w.conn.Close() }

// List implements ports.InterfaceWatcher with a one-shot RTM_GETLINK dump.
func (w *Watcher) List(context.Context) ([]ports.InterfaceEvent, error) {
	links, err := w.conn.Link.List()
	if err != nil {
		return nil, fmt.Errorf("routelink: list links: %w", err)
	}
	out := make([]ports.InterfaceEvent, 0, len(links))
	for _, l := range links {
		out = append(out, toInterfaceEvent(l, false))
	}
	return out, nil
}

// Subscribe starts a background receive loop translating RTM_NEWLINK/
// RTM_DELLINK multicast notifications into InterfaceEvents. It returns once
// the loop goroutine is started; the loop exits when the socket closes.
func (w *Watcher) Subscribe(handler func(ports.InterfaceEvent)) error {
	go func() {
		for {
			msgs, err := w.conn.Conn.Receive()
			if err != nil {
				return
			}
			for _, m := range msgs {
				var lm rtnetlink.LinkMessage
				if err := lm.UnmarshalBinary(m.Data); err != nil {
					continue
				}
				handler(toInterfaceEvent(lm, m.Header.Type == unix.RTM_DELLINK))
			}
		}
	}()
	return nil
}

func toInterfaceEvent(l rtnetlink.LinkMessage, removed bool) ports.InterfaceEvent {
	ev := ports.InterfaceEvent{
		IfIndex: int(l.Index),
		Removed: removed,
		Up:      l.Flags&unix.IFF_UP != 0,
	}
	if l.Attributes != nil {
		ev.Name = l.Attributes.Name
		copy(ev.MAC[:], l.Attributes.Address)
	}
	return ev
}
