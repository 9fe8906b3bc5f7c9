package ie

import "encoding/binary"

// WFA vendor-specific OUI/type used to carry WSC data inside tag 221.
var wfaOUI = [3]byte{0x00, 0x50, 0xF2}

const wscOUIType = 0x04

// WSC attribute types (WFA Wi-Fi Simple Configuration, relevant subset).
const (
	wscAttrDevicePasswordID uint16 = 0x1012
	wscAttrSelectedRegistrar uint16 = 0x1041
	wscAttrUUIDE             uint16 = 0x1047
	wscAttrVersion           uint16 = 0x104A
	wscAttrRFBands           uint16 = 0x103C
	wscAttrAssociationState  uint16 = 0x1002
	wscAttrConfigMethods     uint16 = 0x1008
	wscAttrManufacturer      uint16 = 0x1021
	wscAttrModelName         uint16 = 0x1023
)

// DevicePasswordID values relevant to push-button configuration.
const (
	DevicePasswordIDDefault    uint16 = 0x0000
	DevicePasswordIDPushButton uint16 = 0x0004
)

// WSCInfo is the decoded subset of a WSC TLV payload (§4.1 parse_wsc_tlv).
type WSCInfo struct {
	DevicePasswordID    uint16
	HasDevicePasswordID bool
	SelectedRegistrar   bool
	UUIDE               [16]byte
	HasUUIDE            bool
	Manufacturer        string
	ModelName           string
}

// ParseWSCTLV decodes a WSC vendor-specific IE value (the bytes following the
// tag/length header, still including the OUI+type prefix).
func ParseWSCTLV(value []byte) (*WSCInfo, error) {
	if len(value) < 4 {
		return nil, &InvalidIe{Tag: TagVendorSpecific, Reason: "too short for OUI/type"}
	}
	if value[0] != wfaOUI[0] || value[1] != wfaOUI[1] || value[2] != wfaOUI[2] || value[3] != wscOUIType {
		return nil, nil // not a WSC IE; caller should skip silently
	}
	info := &WSCInfo{}
	data := value[4:]
	off := 0
	for off < len(data) {
		if off+4 > len(data) {
			return nil, &InvalidIe{Tag: TagVendorSpecific, Reason: "truncated WSC attribute header"}
		}
		attrType := binary.BigEndian.Uint16(data[off : off+2])
		attrLen := int(binary.BigEndian.Uint16(data[off+2 : off+4]))
		off += 4
		if off+attrLen > len(data) {
			return nil, &InvalidIe{Tag: TagVendorSpecific, Reason: "WSC attribute overruns element"}
		}
		val := data[off : off+attrLen]
		switch attrType {
		case wscAttrDevicePasswordID:
			if len(val) >= 2 {
				info.DevicePasswordID = binary.BigEndian.Uint16(val)
				info.HasDevicePasswordID = true
			}
		case wscAttrSelectedRegistrar:
			info.SelectedRegistrar = len(val) >= 1 && val[0] != 0
		case wscAttrUUIDE:
			if len(val) == 16 {
				copy(info.UUIDE[:], val)
				info.HasUUIDE = true
			}
		case wscAttrManufacturer:
			info.Manufacturer = string(val)
		case wscAttrModelName:
			info.ModelName = string(val)
		}
		off += attrLen
	}
	return info, nil
}

func wscAttr(dst []byte, attrType uint16, val []byte) []byte {
	var hdr [4]byte
	binary.BigEndian.PutUint16(hdr[0:2], attrType)
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(val)))
	dst = append(dst, hdr[:]...)
	return append(dst, val...)
}

func wscEnvelope(attrs []byte) []byte {
	value := make([]byte, 0, 4+len(attrs))
	value = append(value, wfaOUI[:]...)
	value = append(value, wscOUIType)
	value = append(value, attrs...)
	return buildTLV(nil, TagVendorSpecific, value)
}

// BuildWSCProbeRequest builds the WSC IE an enrollee attaches to a Probe
// Request to announce a push-button session (§4.1, §4.7 WSC Push-Button mode).
func BuildWSCProbeRequest(uuidE [16]byte, devicePasswordID uint16) []byte {
	var attrs []byte
	var ver [1]byte
	ver[0] = 0x20
	attrs = wscAttr(attrs, wscAttrVersion, ver[:])
	attrs = wscAttr(attrs, wscAttrUUIDE, uuidE[:])
	var pwd [2]byte
	binary.BigEndian.PutUint16(pwd[:], devicePasswordID)
	attrs = wscAttr(attrs, wscAttrDevicePasswordID, pwd[:])
	return wscEnvelope(attrs)
}

// BuildWSCAssociationResponse builds the WSC IE an AP echoes into a
// successful push-button Association Response.
func BuildWSCAssociationResponse() []byte {
	var attrs []byte
	var ver [1]byte
	ver[0] = 0x20
	attrs = wscAttr(attrs, wscAttrVersion, ver[:])
	var state [1]byte
	state[0] = 0x02 // configured
	attrs = wscAttr(attrs, wscAttrAssociationState, state[:])
	return wscEnvelope(attrs)
}

// BuildWSCBeacon builds the WSC IE tail the AP advertises in Beacon/Probe
// Response frames; selectedRegistrar toggles while active PBC mode is on
// (§4.7 Beacon updates).
func BuildWSCBeacon(selectedRegistrar bool, devicePasswordID uint16) []byte {
	var attrs []byte
	var ver [1]byte
	ver[0] = 0x20
	attrs = wscAttr(attrs, wscAttrVersion, ver[:])
	var sel [1]byte
	if selectedRegistrar {
		sel[0] = 0x01
	}
	attrs = wscAttr(attrs, wscAttrSelectedRegistrar, sel[:])
	var pwd [2]byte
	binary.BigEndian.PutUint16(pwd[:], devicePasswordID)
	attrs = wscAttr(attrs, wscAttrDevicePasswordID, pwd[:])
	return wscEnvelope(attrs)
}
