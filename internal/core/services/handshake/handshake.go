// Package handshake implements the operations on a domain.Handshake's key
// ladder (§4.4): nonce generation, PMK/PTK/GTK/IGTK derivation and
// installation, and the byte-exact IE echo check the FT path depends on.
// Every exported function here is a pure state transition on the Handshake
// it is given; callers own persistence and zeroization (domain.Handshake.SecureErase).
package handshake

import (
	"crypto/rand"
	"fmt"

	"github.com/lcalzada-xor/wired/internal/adapters/wire/crypto"
	"github.com/lcalzada-xor/wired/internal/adapters/wire/ie"
	"github.com/lcalzada-xor/wired/internal/core/domain"
)

// SetPMK installs a pre-derived PMK, e.g. one cached from a prior connection
// or handed down by an 802.1X supplicant.
func SetPMK(h *domain.Handshake, pmk [32]byte) {
	h.PMK = pmk
	h.PMKSet = true
}

// SetPMKFromPassphrase derives and installs the PMK from a passphrase/SSID
// pair (§4.4 derive_pmk, the PSK AKM path).
func SetPMKFromPassphrase(h *domain.Handshake, passphrase, ssid string) {
	h.PMK = crypto.DerivePMKFromPassphrase(passphrase, ssid)
	h.PMKSet = true
	h.SSID = ssid
}

// SetAuthenticatorAddress records the AP's address (AA).
func SetAuthenticatorAddress(h *domain.Handshake, aa [6]byte) {
	h.AA = aa
}

// SetSupplicantAddress records the STA's address (SPA).
func SetSupplicantAddress(h *domain.Handshake, spa [6]byte) {
	h.SPA = spa
}

// SetOwnIE records this side's RSNE exactly as sent, for byte-exact replay
// into later frames (§3).
func SetOwnIE(h *domain.Handshake, raw domain.RawIE) {
	h.OwnRSNE = raw
}

// SetAPIE records the peer's RSNE exactly as received.
func SetAPIE(h *domain.Handshake, raw domain.RawIE) {
	h.APRSNE = raw
}

// SetMDE/SetFTE record the Mobility Domain / Fast-BSS-Transition elements
// carried by an FT connection attempt, preserved verbatim for echo-matching
// against the target AP's reply (§3, §8 property 6).
func SetMDE(h *domain.Handshake, raw domain.RawIE) {
	h.MDE = raw
	h.IsFT = true
}

func SetFTE(h *domain.Handshake, raw domain.RawIE) {
	h.FTE = raw
}

// NewSNonce draws a fresh 32-byte SNonce from the system CSPRNG (§4.4, §9:
// nonces are never reused across handshake attempts).
func NewSNonce(h *domain.Handshake) error {
	if _, err := rand.Read(h.SNonce[:]); err != nil {
		return fmt.Errorf("handshake: read random SNonce: %w", err)
	}
	h.HaveSNonce = true
	return nil
}

// NewANonce draws a fresh 32-byte ANonce (authenticator role).
func NewANonce(h *domain.Handshake) error {
	if _, err := rand.Read(h.ANonce[:]); err != nil {
		return fmt.Errorf("handshake: read random ANonce: %w", err)
	}
	h.HaveANonce = true
	return nil
}

// SetANonce/SetSNonce record a nonce received from the peer (Msg1 for the
// supplicant role, Msg2 for the authenticator role).
func SetANonce(h *domain.Handshake, anonce [32]byte) {
	h.ANonce = anonce
	h.HaveANonce = true
}

func SetSNonce(h *domain.Handshake, snonce [32]byte) {
	h.SNonce = snonce
	h.HaveSNonce = true
}

// DerivePTK computes KCK/KEK/TK from the current PMK, addresses, nonces and
// AKM/cipher and installs them on h. It is an error to call this before both
// nonces and the PMK are set, or after the PTK has already been installed
// (§9: a handshake's PTK may be derived exactly once per attempt).
func DerivePTK(h *domain.Handshake, akm domain.AKM, cipher domain.Cipher) error {
	if !h.PMKSet {
		return fmt.Errorf("handshake: PMK not set")
	}
	if !h.HaveANonce || !h.HaveSNonce {
		return fmt.Errorf("handshake: both nonces must be set before PTK derivation")
	}
	if h.PTKComplete {
		return fmt.Errorf("handshake: PTK already installed, refusing re-derivation")
	}

	pmk := h.PMK[:]
	if h.IsFT {
		pmk = h.PMKR1[:]
	}

	ptk, err := crypto.DerivePTK(akm, pmk, h.AA, h.SPA, h.ANonce, h.SNonce, cipher)
	if err != nil {
		return fmt.Errorf("handshake: derive PTK: %w", err)
	}
	h.KCK = ptk.KCK
	h.KEK = ptk.KEK
	h.TK = ptk.TK
	return nil
}

// DeriveFTKeyHierarchy computes PMK-R0/PMK-R1 from a freshly authenticated
// MSK (via SetPMK on the XXKey) ahead of an FT initial mobility-domain
// association (§4.4, 802.11r).
func DeriveFTKeyHierarchy(h *domain.Handshake, mdid uint16, r0khID, r1khID []byte) error {
	if !h.PMKSet {
		return fmt.Errorf("handshake: base key (XXKey) not set")
	}
	var r1kh [6]byte
	copy(r1kh[:], r1khID)

	pmkR0, pmkR0Name := crypto.DerivePMKR0(h.PMK[:], h.SSID, mdid, r0khID, h.SPA)
	pmkR1, pmkR1Name := crypto.DerivePMKR1(pmkR0, r1kh, h.SPA)

	h.PMKR0 = pmkR0
	h.PMKR0Name = pmkR0Name
	h.PMKR1 = pmkR1
	h.PMKR1Name = pmkR1Name
	h.IsFT = true
	return nil
}

// InstallPTK freezes the handshake (§4.4: once the PTK is confirmed good and
// installed to the driver, no further derivation or nonce change is valid
// for this attempt).
func InstallPTK(h *domain.Handshake) error {
	if h.TK == nil {
		return fmt.Errorf("handshake: cannot install PTK before derivation")
	}
	h.PTKComplete = true
	return nil
}

// InstallGTK records an already-decrypted group temporal key (§4.4
// install_gtk(index,key,rsc); the EAPoL engine owns the AES key-unwrap step
// since the wrap covers the whole Msg3 key-data field, not one KDE at a time).
func InstallGTK(h *domain.Handshake, keyIndex uint8, rsc uint64, gtk []byte) error {
	h.GTKIndex = keyIndex
	h.GTK = append([]byte(nil), gtk...)
	h.GTKRSC = rsc
	h.HaveGTK = true
	return nil
}

// InstallIGTK records an already-decrypted management-frame integrity key
// (§4.4 install_igtk(index,key,ipn)).
func InstallIGTK(h *domain.Handshake, keyIndex uint16, ipn uint64, igtk []byte) error {
	h.IGTKIndex = keyIndex
	h.IGTK = append([]byte(nil), igtk...)
	h.IGTKIPN = ipn
	h.HaveIGTK = true
	return nil
}

// UnwrapKeyData decrypts Msg3's key-data field under the derived KEK, ahead
// of extracting the GTK/IGTK KDEs from the plaintext.
func UnwrapKeyData(h *domain.Handshake, wrapped []byte) ([]byte, error) {
	if h.KEK == ([16]byte{}) {
		return nil, fmt.Errorf("handshake: KEK not derived, cannot unwrap key-data")
	}
	plaintext, err := crypto.UnwrapKey(h.KEK[:], wrapped)
	if err != nil {
		return nil, fmt.Errorf("handshake: unwrap key-data: %w", err)
	}
	return plaintext, nil
}

// CheckReplayCounter validates a replay counter received from the peer
// against the highest one accepted so far (§8 property 2: replay counters
// are strictly monotonically increasing per attempt).
func CheckReplayCounter(h *domain.Handshake, counter uint64) error {
	if h.HaveReplay && counter <= h.ReplayAuthenticator {
		return fmt.Errorf("handshake: replay counter %d is not greater than last accepted %d", counter, h.ReplayAuthenticator)
	}
	h.ReplayAuthenticator = counter
	h.HaveReplay = true
	return nil
}

// NextSupplicantReplayCounter returns the next replay counter this side (as
// authenticator) should attach to an outgoing EAPoL-Key frame.
func NextSupplicantReplayCounter(h *domain.Handshake) uint64 {
	h.ReplaySupplicant++
	return h.ReplaySupplicant
}

// APIEMatches reports whether the AP's RSNE advertised at scan time matches
// the RSNE echoed in its (Re)association Response, tolerating only a
// trailing PMKID list (§8 property: RSNE consistency prevents downgrade,
// §4.1 APIEMatches).
func APIEMatches(advertised, echoed domain.RawIE) bool {
	return ie.APIEMatches(advertised.Bytes, echoed.Bytes, true)
}
