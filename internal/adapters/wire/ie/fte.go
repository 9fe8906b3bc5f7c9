package ie

import (
	"encoding/binary"

	"github.com/lcalzada-xor/wired/internal/core/domain"
)

// FTE optional-parameter subelement IDs (802.11-2016 §9.4.2.48 Table 9-190).
const (
	subelemGTK    = 1
	subelemIGTK   = 2
	subelemR1KHID = 3
	subelemR0KHID = 4
)

const fteFixedLen = 2 + 16 + 32 + 32 // MIC Control + MIC + ANonce + SNonce

// ParseFTE decodes tag 55 (§4.1 parse_fte).
func ParseFTE(value []byte) (*domain.FTE, error) {
	if len(value) < fteFixedLen {
		return nil, &InvalidIe{Tag: TagFTE, Reason: "truncated fixed fields"}
	}
	f := &domain.FTE{}
	off := 0
	f.MICControl = binary.LittleEndian.Uint16(value[off : off+2])
	off += 2
	copy(f.MIC[:], value[off:off+16])
	off += 16
	copy(f.ANonce[:], value[off:off+32])
	off += 32
	copy(f.SNonce[:], value[off:off+32])
	off += 32

	for off < len(value) {
		if off+2 > len(value) {
			return nil, &InvalidIe{Tag: TagFTE, Reason: "truncated subelement header"}
		}
		id := value[off]
		length := int(value[off+1])
		start := off + 2
		end := start + length
		if end > len(value) {
			return nil, &InvalidIe{Tag: TagFTE, Reason: "subelement overruns element"}
		}
		sub := value[start:end]
		switch id {
		case subelemR0KHID:
			if length < 1 || length > 48 {
				return nil, &InvalidIe{Tag: TagFTE, Reason: "R0KH-ID out of range"}
			}
			f.R0KHID = append([]byte(nil), sub...)
		case subelemR1KHID:
			if length != 6 {
				return nil, &InvalidIe{Tag: TagFTE, Reason: "R1KH-ID must be 6 bytes"}
			}
			f.R1KHID = append([]byte(nil), sub...)
		case subelemGTK:
			if length < 11 {
				return nil, &InvalidIe{Tag: TagFTE, Reason: "GTK subelement too short"}
			}
			f.HasGTK = true
			f.GTKKeyID = sub[0] & 0x3
			f.GTKRSC = binary.LittleEndian.Uint64(padTo8(sub[2:8]))
			f.GTK = append([]byte(nil), sub[8:]...)
		case subelemIGTK:
			if length < 10 {
				return nil, &InvalidIe{Tag: TagFTE, Reason: "IGTK subelement too short"}
			}
			f.HasIGTK = true
			f.IGTKKeyID = binary.LittleEndian.Uint16(sub[0:2])
			f.IGTKIPN = binary.LittleEndian.Uint64(padTo8(sub[2:8]))
			f.IGTK = append([]byte(nil), sub[8:]...)
		}
		off = end
	}
	return f, nil
}

func padTo8(b []byte) []byte {
	var out [8]byte
	copy(out[:], b)
	return out[:]
}

// BuildFTE produces byte output for an FTE, including the GTK/IGTK
// sub-elements when present (§4.1 build_fte).
func BuildFTE(f domain.FTE) []byte {
	value := make([]byte, 0, fteFixedLen+64)
	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], f.MICControl)
	value = append(value, u16[:]...)
	value = append(value, f.MIC[:]...)
	value = append(value, f.ANonce[:]...)
	value = append(value, f.SNonce[:]...)

	if len(f.R0KHID) > 0 {
		value = append(value, subelemR0KHID, uint8(len(f.R0KHID)))
		value = append(value, f.R0KHID...)
	}
	if len(f.R1KHID) > 0 {
		value = append(value, subelemR1KHID, uint8(len(f.R1KHID)))
		value = append(value, f.R1KHID...)
	}
	if f.HasGTK {
		sub := make([]byte, 0, 8+len(f.GTK))
		sub = append(sub, f.GTKKeyID&0x3, 0)
		var rsc [8]byte
		binary.LittleEndian.PutUint64(rsc[:], f.GTKRSC)
		sub = append(sub, rsc[:6]...)
		sub = append(sub, f.GTK...)
		value = append(value, subelemGTK, uint8(len(sub)))
		value = append(value, sub...)
	}
	if f.HasIGTK {
		sub := make([]byte, 0, 8+len(f.IGTK))
		var kid [2]byte
		binary.LittleEndian.PutUint16(kid[:], f.IGTKKeyID)
		sub = append(sub, kid[:]...)
		var ipn [8]byte
		binary.LittleEndian.PutUint64(ipn[:], f.IGTKIPN)
		sub = append(sub, ipn[:6]...)
		sub = append(sub, f.IGTK...)
		value = append(value, subelemIGTK, uint8(len(sub)))
		value = append(value, sub...)
	}

	return buildTLV(nil, TagFTE, value)
}
