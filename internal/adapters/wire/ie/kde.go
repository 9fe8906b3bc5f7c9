package ie

// Key Data Encapsulation (KDE) sub-type bytes carried inside the vendor-
// specific (tag 221) wrapper under the 00:0F:AC OUI (802.11-2016 Table 12-8).
const (
	kdeTypeGTK  = 1
	kdeTypeIGTK = 9
)

// GTKKDE is the decoded GTK KDE payload delivered in Msg3's key-data.
type GTKKDE struct {
	KeyID uint8
	Tx    bool
	GTK   []byte
}

// IGTKKDE is the decoded IGTK KDE payload.
type IGTKKDE struct {
	KeyID uint16
	IPN   uint64
	IGTK  []byte
}

// ParseGTKKDE scans a (decrypted) key-data blob for the first GTK KDE.
func ParseGTKKDE(keyData []byte) (*GTKKDE, error) {
	values, err := AllOf(keyData, TagVendorSpecific)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if len(v) < 6 || v[0] != oui00Fac[0] || v[1] != oui00Fac[1] || v[2] != oui00Fac[2] || v[3] != kdeTypeGTK {
			continue
		}
		data := v[4:]
		if len(data) < 2 {
			return nil, &InvalidIe{Tag: TagVendorSpecific, Reason: "GTK KDE too short"}
		}
		return &GTKKDE{
			KeyID: data[0] & 0x3,
			Tx:    data[0]&0x4 != 0,
			GTK:   append([]byte(nil), data[2:]...),
		}, nil
	}
	return nil, nil
}

// ParseIGTKKDE scans a (decrypted) key-data blob for the first IGTK KDE.
func ParseIGTKKDE(keyData []byte) (*IGTKKDE, error) {
	values, err := AllOf(keyData, TagVendorSpecific)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if len(v) < 4 || v[0] != oui00Fac[0] || v[1] != oui00Fac[1] || v[2] != oui00Fac[2] || v[3] != kdeTypeIGTK {
			continue
		}
		data := v[4:]
		if len(data) < 8 {
			return nil, &InvalidIe{Tag: TagVendorSpecific, Reason: "IGTK KDE too short"}
		}
		keyID := uint16(data[0]) | uint16(data[1])<<8
		var ipn uint64
		for i := 0; i < 6; i++ {
			ipn |= uint64(data[2+i]) << (8 * i)
		}
		return &IGTKKDE{KeyID: keyID, IPN: ipn, IGTK: append([]byte(nil), data[8:]...)}, nil
	}
	return nil, nil
}

// BuildGTKKDE wraps a GTK as a vendor-specific KDE, as the authenticator does
// for Msg3's plaintext key-data before AES key-wrap (§4.5 Authenticator).
func BuildGTKKDE(keyID uint8, tx bool, gtk []byte) []byte {
	flags := keyID & 0x3
	if tx {
		flags |= 0x4
	}
	data := append([]byte{flags, 0}, gtk...)
	value := append(append([]byte{}, oui00Fac[:]...), kdeTypeGTK)
	value = append(value, data...)
	return buildTLV(nil, TagVendorSpecific, value)
}

// BuildIGTKKDE wraps an IGTK as a vendor-specific KDE.
func BuildIGTKKDE(keyID uint16, ipn uint64, igtk []byte) []byte {
	data := make([]byte, 0, 8+len(igtk))
	data = append(data, byte(keyID), byte(keyID>>8))
	for i := 0; i < 6; i++ {
		data = append(data, byte(ipn>>(8*i)))
	}
	data = append(data, igtk...)
	value := append(append([]byte{}, oui00Fac[:]...), kdeTypeIGTK)
	value = append(value, data...)
	return buildTLV(nil, TagVendorSpecific, value)
}
