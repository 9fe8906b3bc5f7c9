// Package eapolio carries EAPoL-Key PDUs over a PF_PACKET socket bound to
// ETH_P_PAE (§6 "EAPoL / control-port frames"). It is grounded on the
// teacher stack's AF_PACKET raw injector (internal/adapters/sniffer
// raw_socket_linux.go), generalized from a fire-and-forget deauth injector
// into a bidirectional send/receive channel for one link-layer ethertype.
package eapolio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// ethPPAE is ETH_P_PAE, the 802.1X EAPoL ethertype (802.11-2016 §12.7).
const ethPPAE = 0x888E

// Channel implements ports.EAPOLChannel over one AF_PACKET socket bound to
// a single interface and ethertype.
type Channel struct {
	fd      int
	ifIndex int
	ownMAC  [6]byte

	mu       sync.Mutex
	receiver func(src [6]byte, payload []byte)
	closed   bool
	done     chan struct{}
}

// Open binds a raw socket to ifIndex for ETH_P_PAE frames only.
func Open(ifIndex int, ownMAC [6]byte) (*Channel, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, htons(ethPPAE))
	if err != nil {
		return nil, fmt.Errorf("eapolio: socket: %w", err)
	}
	sa := &unix.SockaddrLinklayer{
		Protocol: htons(ethPPAE),
		Ifindex:  ifIndex,
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("eapolio: bind: %w", err)
	}
	c := &Channel{fd: fd, ifIndex: ifIndex, ownMAC: ownMAC, done: make(chan struct{})}
	go c.receiveLoop()
	return c, nil
}

// htons converts a host-order uint16 to the network-byte-order int the
// AF_PACKET protocol field expects (mirrors the teacher's raw_socket_linux.go
// comment about ETH_P_ALL's byte order, done correctly here).
func htons(v uint16) int {
	return int(v<<8 | v>>8)
}

// Send wraps payload in an Ethernet header (dst, own MAC, ETH_P_PAE) and
// transmits it over the link layer.
func (c *Channel) Send(dst [6]byte, payload []byte) error {
	frame := make([]byte, 14+len(payload))
	copy(frame[0:6], dst[:])
	copy(frame[6:12], c.ownMAC[:])
	binary.BigEndian.PutUint16(frame[12:14], ethPPAE)
	copy(frame[14:], payload)

	sa := &unix.SockaddrLinklayer{Ifindex: c.ifIndex}
	return unix.Sendto(c.fd, frame, 0, sa)
}

func (c *Channel) SetReceiver(fn func(src [6]byte, payload []byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receiver = fn
}

func (c *Channel) receiveLoop() {
	buf := make([]byte, 2048)
	for {
		n, _, err := unix.Recvfrom(c.fd, buf, 0)
		if err != nil {
			select {
			case <-c.done:
				return
			default:
				continue
			}
		}
		if n < 14 {
			continue
		}
		if binary.BigEndian.Uint16(buf[12:14]) != ethPPAE {
			continue
		}
		var src [6]byte
		copy(src[:], buf[6:12])

		c.mu.Lock()
		fn := c.receiver
		c.mu.Unlock()
		if fn != nil {
			payload := append([]byte(nil), buf[14:n]...)
			fn(src, payload)
		}
	}
}

func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	close(c.done)
	return unix.Close(c.fd)
}
