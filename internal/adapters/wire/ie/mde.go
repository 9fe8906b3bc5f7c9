package ie

import (
	"encoding/binary"

	"github.com/lcalzada-xor/wired/internal/core/domain"
)

// ParseMDE decodes the 3-byte value of tag 54: a little-endian 2-byte MDID
// followed by one FT-capability flags byte (§4.1).
func ParseMDE(value []byte) (*domain.MDE, error) {
	if len(value) != 3 {
		return nil, &InvalidIe{Tag: TagMDE, Reason: "MDE must be exactly 3 bytes"}
	}
	m := &domain.MDE{
		MDID:         binary.LittleEndian.Uint16(value[0:2]),
		RawCapPolicy: value[2],
	}
	m.OverDS = value[2]&0x01 != 0
	m.ResourceReq = value[2]&0x02 != 0
	return m, nil
}

// BuildMDE produces byte-exact MDE output (§4.1 build_mde, §8 property 4:
// this output must be re-echoed bit-for-bit in subsequent FT frames).
func BuildMDE(m domain.MDE) []byte {
	value := make([]byte, 3)
	binary.LittleEndian.PutUint16(value[0:2], m.MDID)
	cap := m.RawCapPolicy
	if m.OverDS {
		cap |= 0x01
	} else {
		cap &^= 0x01
	}
	if m.ResourceReq {
		cap |= 0x02
	} else {
		cap &^= 0x02
	}
	value[2] = cap
	return buildTLV(nil, TagMDE, value)
}
