// Package netlink wires ports.Transport onto the kernel's nl80211 generic-
// netlink family using github.com/mdlayher/genetlink and
// github.com/mdlayher/netlink (§4.3, §6.1). One GenetlinkTransport owns the
// single genetlink socket opened by Dial; outstanding commands are tracked
// by a locally assigned command id, and Send runs each command to completion
// and invokes its callback before returning that id.
package netlink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/lcalzada-xor/wired/internal/core/ports"
	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"
)

const familyName = "nl80211"

// GenetlinkTransport implements ports.Transport over a real nl80211 generic-
// netlink socket.
type GenetlinkTransport struct {
	log    *slog.Logger
	conn   *genetlink.Conn
	family genetlink.Family

	mu       sync.Mutex
	pending  map[uint32]ports.ResultFunc
	nextCmd  uint32
	groups   map[string]ports.FrameHandler
	closed   bool
	cancelFn context.CancelFunc
}

// Dial opens the nl80211 generic-netlink family and starts the background
// receive loop.
func Dial(log *slog.Logger) (*GenetlinkTransport, error) {
	conn, err := genetlink.Dial(nil)
	if err != nil {
		return nil, fmt.Errorf("netlink: dial genetlink: %w", err)
	}
	family, err := conn.GetFamily(familyName)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("netlink: resolve nl80211 family: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &GenetlinkTransport{
		log:      log,
		conn:     conn,
		family:   family,
		pending:  make(map[uint32]ports.ResultFunc),
		groups:   make(map[string]ports.FrameHandler),
		cancelFn: cancel,
	}
	go t.receiveLoop(ctx)
	return t, nil
}

// Send implements ports.Transport.
func (t *GenetlinkTransport) Send(ctx context.Context, ifIndex int, cmd uint8, attrs ports.Attrs, on ports.ResultFunc) (uint32, error) {
	ae := netlink.NewAttributeEncoder()
	ae.Uint32(nl80211AttrIfindex, uint32(ifIndex))
	if err := encodeAttrs(ae, attrs); err != nil {
		return 0, fmt.Errorf("netlink: encode attrs: %w", err)
	}
	payload, err := ae.Encode()
	if err != nil {
		return 0, fmt.Errorf("netlink: encode attrs: %w", err)
	}

	msg := genetlink.Message{
		Header: genetlink.Header{
			Command: cmd,
			Version: t.family.Version,
		},
		Data: payload,
	}

	cmdID := atomic.AddUint32(&t.nextCmd, 1)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, fmt.Errorf("netlink: transport closed")
	}
	if on != nil {
		t.pending[cmdID] = on
	}
	t.mu.Unlock()

	replies, err := t.conn.Execute(msg, t.family.ID, netlink.Request|netlink.Acknowledge)
	if err != nil {
		t.mu.Lock()
		delete(t.pending, cmdID)
		t.mu.Unlock()
		return 0, fmt.Errorf("netlink: execute: %w", err)
	}

	t.mu.Lock()
	cb, ok := t.pending[cmdID]
	delete(t.pending, cmdID)
	t.mu.Unlock()
	if ok && cb != nil {
		result := decodeResult(replies, err)
		cb(result)
	}

	return cmdID, nil
}

// Cancel implements ports.Transport. Once Cancel returns, the Send callback
// for cmdID is guaranteed not to fire.
func (t *GenetlinkTransport) Cancel(cmdID uint32) {
	t.mu.Lock()
	delete(t.pending, cmdID)
	t.mu.Unlock()
}

// RegisterMulticast implements ports.Transport.
func (t *GenetlinkTransport) RegisterMulticast(group string, handler ports.FrameHandler) error {
	var groupID uint32
	found := false
	for _, g := range t.family.Groups {
		if g.Name == group {
			groupID = g.ID
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("netlink: no such multicast group %q", group)
	}
	if err := t.conn.JoinGroup(groupID); err != nil {
		return fmt.Errorf("netlink: join group %q: %w", group, err)
	}
	t.mu.Lock()
	t.groups[group] = handler
	t.mu.Unlock()
	return nil
}

// RegisterFrame implements ports.Transport (NL80211_CMD_REGISTER_FRAME).
func (t *GenetlinkTransport) RegisterFrame(ifIndex int, frameType uint16, matchPrefix []byte) error {
	attrs := ports.Attrs{
		nl80211AttrFrameType:  frameType,
		nl80211AttrFrameMatch: matchPrefix,
	}
	_, err := t.Send(context.Background(), ifIndex, nl80211CmdRegisterFrame, attrs, nil)
	return err
}

// Close implements ports.Transport.
func (t *GenetlinkTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	t.cancelFn()
	return t.conn.Close()
}

func (t *GenetlinkTransport) receiveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		msgs, _, err := t.conn.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.log.Warn("netlink receive error", "error", err)
			continue
		}
		for _, m := range msgs {
			t.dispatchEvent(m)
		}
	}
}

func (t *GenetlinkTransport) dispatchEvent(m genetlink.Message) {
	ad, err := netlink.NewAttributeDecoder(m.Data)
	if err != nil {
		t.log.Warn("netlink: malformed event attributes", "error", err)
		return
	}
	attrs := ports.Attrs{}
	ifIndex := 0
	for ad.Next() {
		if ad.Type() == nl80211AttrIfindex {
			ifIndex = int(ad.Uint32())
			continue
		}
		attrs[ad.Type()] = ad.Bytes()
	}

	t.mu.Lock()
	handlers := make([]ports.FrameHandler, 0, len(t.groups))
	for _, h := range t.groups {
		handlers = append(handlers, h)
	}
	t.mu.Unlock()
	for _, h := range handlers {
		h(ifIndex, attrs)
	}
}

func encodeAttrs(ae *netlink.AttributeEncoder, attrs ports.Attrs) error {
	for typ, v := range attrs {
		switch val := v.(type) {
		case []byte:
			ae.Bytes(typ, val)
		case uint8:
			ae.Uint8(typ, val)
		case uint16:
			ae.Uint16(typ, val)
		case uint32:
			ae.Uint32(typ, val)
		case uint64:
			ae.Uint64(typ, val)
		case string:
			ae.String(typ, val)
		case ports.Attrs:
			ae.Nested(typ, func(nested *netlink.AttributeEncoder) error {
				return encodeAttrs(nested, val)
			})
		default:
			return fmt.Errorf("netlink: unsupported attribute type %T for attr %d", v, typ)
		}
	}
	return nil
}

func decodeResult(msgs []genetlink.Message, sendErr error) ports.CommandResult {
	if sendErr != nil {
		return ports.CommandResult{Err: sendErr}
	}
	if len(msgs) == 0 {
		return ports.CommandResult{}
	}
	m := msgs[0]
	attrs := ports.Attrs{}
	ad, err := netlink.NewAttributeDecoder(m.Data)
	if err == nil {
		for ad.Next() {
			attrs[ad.Type()] = ad.Bytes()
		}
	}
	return ports.CommandResult{Command: m.Header.Command, Attrs: attrs}
}
