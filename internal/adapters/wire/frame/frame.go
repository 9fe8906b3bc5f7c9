// Package frame builds and parses 802.11 management MPDUs (§4.2): protocol
// version 0, type = management, the given subtype, duration=0, address1=DA,
// address2=SA, address3=BSSID, sequence number zeroed (the driver fills it
// in). Header decoding is grounded on the teacher stack's use of
// github.com/google/gopacket/layers.Dot11 to read Address1-3 out of captured
// frames; building is direct byte packing since the kernel overwrites the
// sequence-control field regardless of what we send.
package frame

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Management subtypes handled (802.11-2016 Table 9-1).
const (
	SubtypeAssocReq    uint8 = 0x0
	SubtypeAssocResp   uint8 = 0x1
	SubtypeReassocReq  uint8 = 0x2
	SubtypeReassocResp uint8 = 0x3
	SubtypeProbeReq    uint8 = 0x4
	SubtypeProbeResp   uint8 = 0x5
	SubtypeBeacon      uint8 = 0x8
	SubtypeDisassoc    uint8 = 0xA
	SubtypeAuth        uint8 = 0xB
	SubtypeDeauth      uint8 = 0xC
	SubtypeAction      uint8 = 0xD
)

const headerLen = 24

// Header is the decoded MAC header of a management MPDU.
type Header struct {
	Subtype uint8
	DA      [6]byte
	SA      [6]byte
	BSSID   [6]byte
}

// BuildHeader returns the 24-byte MAC header for a management frame of the
// given subtype; the frame-control duration and sequence-control fields are
// left zero as the driver fills them in (§4.2).
func BuildHeader(subtype uint8, da, sa, bssid [6]byte) []byte {
	h := make([]byte, headerLen)
	// Frame Control: Protocol Version 0, Type 0 (Management), Subtype in bits 4-7.
	h[0] = subtype << 4
	h[1] = 0
	// DurationID left zero.
	copy(h[4:10], da[:])
	copy(h[10:16], sa[:])
	copy(h[16:22], bssid[:])
	// SequenceControl left zero.
	return h
}

// ParseHeader decodes the MAC header, relying on gopacket's Dot11 layer for
// the address fields exactly as the sniffer side does.
func ParseHeader(data []byte) (*Header, []byte, error) {
	if len(data) < headerLen {
		return nil, nil, fmt.Errorf("frame: too short for a management header: %d bytes", len(data))
	}
	packet := gopacket.NewPacket(data, layers.LayerTypeDot11, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	dot11Layer := packet.Layer(layers.LayerTypeDot11)
	if dot11Layer == nil {
		return nil, nil, fmt.Errorf("frame: not a valid 802.11 frame")
	}
	dot11, ok := dot11Layer.(*layers.Dot11)
	if !ok {
		return nil, nil, fmt.Errorf("frame: failed to cast Dot11 layer")
	}
	if dot11.Type.MainType() != layers.Dot11TypeMgmt {
		return nil, nil, fmt.Errorf("frame: not a management frame (type %v)", dot11.Type)
	}

	h := &Header{Subtype: subtypeOf(data[0])}
	copyMAC(&h.DA, dot11.Address1)
	copyMAC(&h.SA, dot11.Address2)
	copyMAC(&h.BSSID, dot11.Address3)

	return h, data[headerLen:], nil
}

func subtypeOf(fc0 byte) uint8 {
	return fc0 >> 4
}

func copyMAC(dst *[6]byte, src net.HardwareAddr) {
	if len(src) == 6 {
		copy(dst[:], src)
	}
}

// --- Fixed-field + IE builders for the subtypes the core uses directly. ---

// BuildAuthentication builds an Authentication frame body (fixed fields +
// any IEs, e.g. the FT RSNE/MDE/FTE trio carried by an FT Authenticate
// Request, §4.6).
func BuildAuthentication(algorithm, seqNum, status uint16, ies []byte) []byte {
	body := make([]byte, 6, 6+len(ies))
	binary.LittleEndian.PutUint16(body[0:2], algorithm)
	binary.LittleEndian.PutUint16(body[2:4], seqNum)
	binary.LittleEndian.PutUint16(body[4:6], status)
	return append(body, ies...)
}

// ParseAuthentication parses an Authentication frame body.
func ParseAuthentication(body []byte) (algorithm, seqNum, status uint16, ies []byte, err error) {
	if len(body) < 6 {
		return 0, 0, 0, nil, fmt.Errorf("frame: authentication body too short")
	}
	algorithm = binary.LittleEndian.Uint16(body[0:2])
	seqNum = binary.LittleEndian.Uint16(body[2:4])
	status = binary.LittleEndian.Uint16(body[4:6])
	return algorithm, seqNum, status, body[6:], nil
}

// BuildAssociationRequest builds an Association/Reassociation Request body.
// If prevAP is non-nil, a Reassociation Request (with "Current AP address"
// field) is produced instead of an Association Request.
func BuildAssociationRequest(capability, listenInterval uint16, prevAP *[6]byte, ies []byte) []byte {
	var body []byte
	if prevAP != nil {
		body = make([]byte, 10, 10+len(ies))
		binary.LittleEndian.PutUint16(body[0:2], capability)
		binary.LittleEndian.PutUint16(body[2:4], listenInterval)
		copy(body[4:10], prevAP[:])
	} else {
		body = make([]byte, 4, 4+len(ies))
		binary.LittleEndian.PutUint16(body[0:2], capability)
		binary.LittleEndian.PutUint16(body[2:4], listenInterval)
	}
	return append(body, ies...)
}

// BuildAssociationResponse builds an Association/Reassociation Response body.
func BuildAssociationResponse(capability, status, aid uint16, ies []byte) []byte {
	body := make([]byte, 6, 6+len(ies))
	binary.LittleEndian.PutUint16(body[0:2], capability)
	binary.LittleEndian.PutUint16(body[2:4], status)
	binary.LittleEndian.PutUint16(body[4:6], aid)
	return append(body, ies...)
}

// ParseAssociationResponse parses an Association/Reassociation Response body.
func ParseAssociationResponse(body []byte) (capability, status, aid uint16, ies []byte, err error) {
	if len(body) < 6 {
		return 0, 0, 0, nil, fmt.Errorf("frame: association response body too short")
	}
	capability = binary.LittleEndian.Uint16(body[0:2])
	status = binary.LittleEndian.Uint16(body[2:4])
	aid = binary.LittleEndian.Uint16(body[4:6])
	return capability, status, aid, body[6:], nil
}

// ParseAssociationRequest parses an Association/Reassociation Request body.
// isReassoc selects whether the 6-byte "current AP address" field is present.
func ParseAssociationRequest(body []byte, isReassoc bool) (capability, listenInterval uint16, prevAP [6]byte, ies []byte, err error) {
	minLen := 4
	if isReassoc {
		minLen = 10
	}
	if len(body) < minLen {
		return 0, 0, prevAP, nil, fmt.Errorf("frame: association request body too short")
	}
	capability = binary.LittleEndian.Uint16(body[0:2])
	listenInterval = binary.LittleEndian.Uint16(body[2:4])
	off := 4
	if isReassoc {
		copy(prevAP[:], body[4:10])
		off = 10
	}
	return capability, listenInterval, prevAP, body[off:], nil
}

// BuildDeauthentication/BuildDisassociation both carry only a reason code.
func BuildDeauthentication(reason uint16) []byte {
	body := make([]byte, 2)
	binary.LittleEndian.PutUint16(body, reason)
	return body
}

func BuildDisassociation(reason uint16) []byte {
	return BuildDeauthentication(reason)
}

// Deauthentication/Disassociation reason codes used by this daemon
// (802.11-2016 Table 9-49, relevant subset).
const (
	ReasonUnspecified   uint16 = 1
	ReasonLeaving       uint16 = 3
	ReasonInactivity    uint16 = 4
)

// Status codes used by the AP FSM's (re)association handling (§4.7).
const (
	StatusSuccess               uint16 = 0
	StatusUnspecified           uint16 = 1
	StatusInvalidIe             uint16 = 40
	StatusInvalidPairwiseCipher uint16 = 42
	StatusInvalidAKMP           uint16 = 43
)
