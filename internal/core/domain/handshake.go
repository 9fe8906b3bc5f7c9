package domain

// Handshake is the key ladder for one (supplicant, authenticator) pair (§3).
// It is pure data; derivation and installation operations live in
// internal/core/services/handshake, which treats this struct as their receiver.
//
// Ownership: exclusively owned by its Connection or Station record. Freeing a
// Handshake must go through SecureErase (§4.4, §9) before the struct is
// released or reused.
type Handshake struct {
	// Addresses and identity material.
	AA  [6]byte // authenticator address (AP)
	SPA [6]byte // supplicant address (STA)
	SSID string

	// Own/peer IE blobs, preserved verbatim for byte-exact comparisons.
	OwnRSNE RawIE
	APRSNE  RawIE
	MDE     RawIE
	FTE     RawIE

	// Key hierarchy.
	PMK     [32]byte
	PMKSet  bool
	PMKR0   [32]byte
	PMKR0Name [16]byte
	PMKR1   [32]byte
	PMKR1Name [16]byte
	IsFT    bool

	ANonce [32]byte
	SNonce [32]byte
	HaveANonce bool
	HaveSNonce bool

	KCK [16]byte
	KEK [16]byte
	TK  []byte // pairwise temporal key, length depends on cipher

	ReplaySupplicant uint64 // highest replay counter this side has sent (authenticator role)
	ReplayAuthenticator uint64 // highest replay counter accepted from the peer (supplicant role)
	HaveReplay bool

	GTKIndex uint8
	GTK      []byte
	GTKRSC   uint64
	HaveGTK  bool

	IGTKIndex uint16
	IGTK      []byte
	IGTKIPN   uint64
	HaveIGTK  bool

	PTKComplete bool // once true, the handshake is frozen (§4.4)
}

// SecureErase overwrites all key material and nonce buffers with zeros. Must
// be called on every teardown path, including early-return error paths (§9).
func (h *Handshake) SecureErase() {
	zero(h.PMK[:])
	zero(h.PMKR0[:])
	zero(h.PMKR1[:])
	zero(h.ANonce[:])
	zero(h.SNonce[:])
	zero(h.KCK[:])
	zero(h.KEK[:])
	zero(h.TK)
	zero(h.GTK)
	zero(h.IGTK)
	h.PMKSet = false
	h.PTKComplete = false
	h.HaveGTK = false
	h.HaveIGTK = false
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
