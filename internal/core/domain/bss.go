package domain

// Cipher and AKM suite identifiers (802.11-2016 Table 9-149/9-151, OUI 00-0F-AC).
type Cipher uint8

const (
	CipherNone Cipher = iota
	CipherWEP40
	CipherTKIP
	CipherCCMP
	CipherWEP104
	CipherBIPCMAC128
	CipherGCMP128
	CipherGCMP256
	CipherCCMP256
)

type AKM uint8

const (
	AKM8021X AKM = iota
	AKMPSK
	AKMFT8021X
	AKMFTPSK
	AKMPSKSHA256
	AKM8021XSHA256
)

// RSNInfo is the decoded form of an RSN Information Element (§4.1).
type RSNInfo struct {
	Version          uint16
	GroupCipher      Cipher
	PairwiseCiphers  []Cipher
	AKMSuites        []AKM
	Capabilities     RSNCapabilities
	PMKIDs           [][16]byte
	GroupMgmtCipher  Cipher
	HasGroupMgmtInfo bool
}

type RSNCapabilities struct {
	PreAuth          bool
	NoPairwise       bool
	PTKSAReplayCount uint8
	GTKSAReplayCount uint8
	MFPRequired      bool
	MFPCapable       bool
	PeerKeyEnabled   bool
	SPPAMSDUCapable  bool
	SPPAMSDURequired bool
}

// MDE is the decoded Mobility Domain Element (802.11r, §4.1).
type MDE struct {
	MDID           uint16
	OverDS         bool
	ResourceReq    bool
	RawCapPolicy   uint8
}

// FTE is the decoded Fast-BSS-Transition element (802.11r, §4.1).
type FTE struct {
	MICControl   uint16 // element-count packed in low bits
	MIC          [16]byte
	ANonce       [32]byte
	SNonce       [32]byte
	R0KHID       []byte // 1..48 bytes, optional
	R1KHID       []byte // 6 bytes, optional
	HasGTK       bool
	GTKKeyID     uint8
	GTKRSC       uint64
	GTK          []byte
	HasIGTK      bool
	IGTKKeyID    uint16
	IGTKIPN      uint64
	IGTK         []byte
}

// RawIE preserves the original TLV framing of an element for byte-exact re-echo
// (FT requires bit-exact echo of the target's MDE, §3).
type RawIE struct {
	Tag   uint8
	Bytes []byte // exactly as received/sent: tag + length + value, or the bare value where filled from ie.FindUnique
}

// BSSDescriptor describes a target BSS for a connect attempt (§4.6).
type BSSDescriptor struct {
	BSSID        [6]byte
	SSID         string
	Frequency    int
	Capability   uint16
	AdvertisedIE RawIE // RSNE advertised in the beacon/probe-response, raw
	RSNE         *RSNInfo
	MDE          *MDE // present only for FT-capable BSSes
	MDERaw       RawIE
}
