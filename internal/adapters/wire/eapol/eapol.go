// Package eapol builds and parses IEEE 802.1X EAPoL-Key PDUs for both the
// supplicant and authenticator roles of the 4-Way Handshake (§4.5, §6.3).
// Frame layout is grounded on the teacher stack's passive EAPoL-Key parser;
// this package generalizes that one-directional decode into the symmetric
// build+parse pair an active handshake engine needs, carried either over a
// PF_PACKET socket or the kernel's nl80211 control-port (§6.3).
package eapol

import (
	"encoding/binary"
	"fmt"
)

// 802.1X header fields (EAPoL protocol version 2, i.e. 802.1X-2004; type Key = 3).
const (
	Version802_1X uint8 = 2
	TypeKey       uint8 = 3

	headerLen  = 4  // version, type, length
	keyFixed   = 95 // descriptor..key-data-length, exclusive of key-data
	minPDULen  = keyFixed
)

// Key-descriptor types (802.11-2016 Table 9-49 / RFC carryover).
const (
	DescriptorRSN uint8 = 2
	DescriptorWPA uint8 = 254
)

// Key Information field bit masks (802.11-2016 §12.7.2, Figure 12-34).
const (
	KeyInfoDescriptorVersionMask uint16 = 0x0007
	KeyInfoKeyType               uint16 = 1 << 3 // 1=pairwise, 0=group/SMK
	KeyInfoKeyIndexMask          uint16 = 0x0030
	KeyInfoInstall               uint16 = 1 << 6
	KeyInfoKeyAck                uint16 = 1 << 7
	KeyInfoKeyMIC                uint16 = 1 << 8
	KeyInfoSecure                uint16 = 1 << 9
	KeyInfoError                 uint16 = 1 << 10
	KeyInfoRequest               uint16 = 1 << 11
	KeyInfoEncryptedKeyData      uint16 = 1 << 12
)

// KeyDescriptorVersion values (§12.7.2).
const (
	DescVersionHMACMD5RC4      uint8 = 1
	DescVersionHMACSHA1AES     uint8 = 2
	DescVersionAESCMAC         uint8 = 3 // AKM-suite selector, not a PRF-version really; used for SHA256/AES-128-CMAC MIC
)

// Frame is the decoded (or about-to-be-built) EAPoL-Key payload.
type Frame struct {
	DescriptorType uint8
	KeyInfo        uint16
	KeyLength      uint16
	ReplayCounter  uint64
	Nonce          [32]byte
	KeyIV          [16]byte
	KeyRSC         uint64 // low 48 bits significant
	KeyID          uint64 // reserved, sent as zero
	MIC            [16]byte
	KeyData        []byte
}

func (f *Frame) IsPairwise() bool { return f.KeyInfo&KeyInfoKeyType != 0 }
func (f *Frame) HasMIC() bool     { return f.KeyInfo&KeyInfoKeyMIC != 0 }
func (f *Frame) HasAck() bool     { return f.KeyInfo&KeyInfoKeyAck != 0 }
func (f *Frame) IsSecure() bool   { return f.KeyInfo&KeyInfoSecure != 0 }

// Build serializes the 802.1X header and Key frame body. The MIC field is
// written as given by f.MIC; callers that need to sign the frame should call
// Build once with a zeroed MIC, compute the MIC over the result via
// crypto.ComputeMIC, set f.MIC, and call Build again (§4.5).
func Build(f *Frame) []byte {
	bodyLen := keyFixed + len(f.KeyData)
	out := make([]byte, headerLen+bodyLen)

	out[0] = Version802_1X
	out[1] = TypeKey
	binary.BigEndian.PutUint16(out[2:4], uint16(bodyLen))

	body := out[headerLen:]
	body[0] = f.DescriptorType
	binary.BigEndian.PutUint16(body[1:3], f.KeyInfo)
	binary.BigEndian.PutUint16(body[3:5], f.KeyLength)
	binary.BigEndian.PutUint64(body[5:13], f.ReplayCounter)
	copy(body[13:45], f.Nonce[:])
	copy(body[45:61], f.KeyIV[:])
	var rsc [8]byte
	binary.BigEndian.PutUint64(rsc[:], f.KeyRSC)
	copy(body[61:69], rsc[:])
	var kid [8]byte
	binary.BigEndian.PutUint64(kid[:], f.KeyID)
	copy(body[69:77], kid[:])
	copy(body[77:93], f.MIC[:])
	binary.BigEndian.PutUint16(body[93:95], uint16(len(f.KeyData)))
	copy(body[95:], f.KeyData)

	return out
}

// Parse decodes an 802.1X PDU and rejects anything that is not an EAPoL-Key
// frame of a plausible length (§4.5).
func Parse(data []byte) (*Frame, error) {
	if len(data) < headerLen+minPDULen {
		return nil, fmt.Errorf("eapol: PDU too short: %d bytes", len(data))
	}
	if data[1] != TypeKey {
		return nil, fmt.Errorf("eapol: not an EAPoL-Key PDU (type %d)", data[1])
	}
	bodyLen := int(binary.BigEndian.Uint16(data[2:4]))
	body := data[headerLen:]
	if bodyLen < minPDULen || headerLen+bodyLen > len(data) {
		return nil, fmt.Errorf("eapol: declared length %d inconsistent with %d byte PDU", bodyLen, len(data))
	}

	f := &Frame{}
	f.DescriptorType = body[0]
	f.KeyInfo = binary.BigEndian.Uint16(body[1:3])
	f.KeyLength = binary.BigEndian.Uint16(body[3:5])
	f.ReplayCounter = binary.BigEndian.Uint64(body[5:13])
	copy(f.Nonce[:], body[13:45])
	copy(f.KeyIV[:], body[45:61])
	f.KeyRSC = binary.BigEndian.Uint64(body[61:69])
	f.KeyID = binary.BigEndian.Uint64(body[69:77])
	copy(f.MIC[:], body[77:93])
	keyDataLen := int(binary.BigEndian.Uint16(body[93:95]))
	if keyFixed+keyDataLen > bodyLen {
		return nil, fmt.Errorf("eapol: key-data length %d overruns body", keyDataLen)
	}
	f.KeyData = append([]byte(nil), body[keyFixed:keyFixed+keyDataLen]...)

	return f, nil
}

// MICRegion returns the byte range Build(f) occupies for MIC computation
// purposes: callers zero f.MIC, call Build, and HMAC the entire returned
// buffer (802.11-2016 §12.7.2 requires the MIC field itself to read as zero
// during its own computation, which Build already guarantees when f.MIC is
// the zero value).
func MICRegion(serialized []byte) []byte {
	return serialized
}
