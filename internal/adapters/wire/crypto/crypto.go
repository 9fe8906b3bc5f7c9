// Package crypto implements the key-derivation and key-unwrap primitives the
// handshake state machine needs (§4.4): PMK derivation from a passphrase,
// PTK derivation (both the legacy SHA1 PRF and the SHA256 KDF used by the
// SHA256/FT AKMs), the FT PMK-R0/PMK-R1 key hierarchy, EAPoL-Key MIC
// computation, and AES key-unwrap (NIST SP 800-38F) for the GTK/IGTK carried
// in Message 3's encrypted key-data field.
package crypto

import (
	"crypto/aes"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/lcalzada-xor/wired/internal/core/domain"
	"golang.org/x/crypto/pbkdf2"
)

// DerivePMKFromPassphrase derives a 256-bit PMK from an ASCII passphrase and
// SSID via PBKDF2-HMAC-SHA1 with 4096 iterations (802.11-2016 §J.4).
func DerivePMKFromPassphrase(passphrase, ssid string) [32]byte {
	var pmk [32]byte
	copy(pmk[:], pbkdf2.Key([]byte(passphrase), []byte(ssid), 4096, 32, sha1.New))
	return pmk
}

// usesSHA256 reports whether the AKM's key derivation function is the
// SHA256-based KDF rather than the legacy SHA1 PRF (802.11-2016 §12.7.1.2).
func usesSHA256(akm domain.AKM) bool {
	switch akm {
	case domain.AKMPSKSHA256, domain.AKM8021XSHA256, domain.AKMFT8021X, domain.AKMFTPSK:
		return true
	default:
		return false
	}
}

// prfSHA1 is the legacy PRF-X construction (802.11-2016 §12.7.1.2, Annex J.5).
func prfSHA1(key []byte, label string, data []byte, nBytes int) []byte {
	out := make([]byte, 0, nBytes+sha1.Size)
	for i := 0; len(out) < nBytes; i++ {
		h := hmac.New(sha1.New, key)
		h.Write([]byte(label))
		h.Write([]byte{0})
		h.Write(data)
		h.Write([]byte{byte(i)})
		out = append(out, h.Sum(nil)...)
	}
	return out[:nBytes]
}

// kdfSHA256 is the Counter || Label || Context || Length KDF used by the
// SHA256-based AKMs and by the FT key hierarchy (802.11-2016 §12.7.1.7.2).
func kdfSHA256(key []byte, label string, context []byte, nBytes int) []byte {
	out := make([]byte, 0, nBytes+sha256.Size)
	bitLen := uint16(nBytes * 8)
	for i := uint16(1); len(out) < nBytes; i++ {
		h := hmac.New(sha256.New, key)
		var counter [2]byte
		binary.LittleEndian.PutUint16(counter[:], i)
		h.Write(counter[:])
		h.Write([]byte(label))
		h.Write(context)
		var lenBuf [2]byte
		binary.LittleEndian.PutUint16(lenBuf[:], bitLen)
		h.Write(lenBuf[:])
		out = append(out, h.Sum(nil)...)
	}
	return out[:nBytes]
}

func minMax(a, b []byte) (lo, hi []byte) {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return a, b
			}
			return b, a
		}
	}
	return a, b
}

// ciphersuiteKeyLen returns the temporal key length in bytes for a pairwise
// cipher (802.11-2016 Table 12-4).
func ciphersuiteKeyLen(cipher domain.Cipher) (int, error) {
	switch cipher {
	case domain.CipherTKIP:
		return 32, nil
	case domain.CipherCCMP:
		return 16, nil
	case domain.CipherGCMP128:
		return 16, nil
	case domain.CipherCCMP256, domain.CipherGCMP256:
		return 32, nil
	default:
		return 0, fmt.Errorf("crypto: no temporal key length defined for cipher %d", cipher)
	}
}

// PTK holds the three PTK sub-keys and is zeroed by the caller on teardown
// (§9 secure erase).
type PTK struct {
	KCK [16]byte
	KEK [16]byte
	TK  []byte
}

// DerivePTK derives the PTK from the PMK, both MAC addresses, and both
// nonces, selecting the PRF or KDF per the AKM (§4.4 derive_ptk).
func DerivePTK(akm domain.AKM, pmk []byte, aa, spa [6]byte, anonce, snonce [32]byte, cipher domain.Cipher) (*PTK, error) {
	tkLen, err := ciphersuiteKeyLen(cipher)
	if err != nil {
		return nil, err
	}
	totalLen := 16 + 16 + tkLen

	loAddr, hiAddr := minMax(aa[:], spa[:])
	loNonce, hiNonce := minMax(anonce[:], snonce[:])

	data := make([]byte, 0, 12+64)
	data = append(data, loAddr...)
	data = append(data, hiAddr...)
	data = append(data, loNonce...)
	data = append(data, hiNonce...)

	var raw []byte
	if usesSHA256(akm) {
		raw = kdfSHA256(pmk, "Pairwise key expansion", data, totalLen)
	} else {
		raw = prfSHA1(pmk, "Pairwise key expansion", data, totalLen)
	}

	ptk := &PTK{}
	copy(ptk.KCK[:], raw[0:16])
	copy(ptk.KEK[:], raw[16:32])
	ptk.TK = append([]byte(nil), raw[32:32+tkLen]...)
	return ptk, nil
}

// FTKeyName computes the 128-bit PMKR0Name/PMKR1Name identifier from a key
// and its context, per 802.11-2016 §12.7.1.7.3/4. Names are the first 16
// bytes of the HMAC-SHA256 KDF (kdfSHA256) keyed with an empty key,
// regardless of the calling AKM, since FT always runs the SHA256 key
// hierarchy.
func FTKeyName(label string, context []byte) [16]byte {
	var name [16]byte
	copy(name[:], kdfSHA256(nil, label, context, 16))
	return name
}

// DerivePMKR0 derives PMK-R0 and its name from the base MSK/PMK material and
// the mobility-domain identity (§4.4, 802.11r key hierarchy).
func DerivePMKR0(xxkey []byte, ssid string, mdid uint16, r0khID []byte, spa [6]byte) ([32]byte, [16]byte) {
	var mdidBuf [2]byte
	binary.LittleEndian.PutUint16(mdidBuf[:], mdid)

	context := make([]byte, 0, len(ssid)+2+1+len(r0khID)+1+6)
	context = append(context, []byte(ssid)...)
	context = append(context, mdidBuf[:]...)
	context = append(context, byte(len(r0khID)))
	context = append(context, r0khID...)
	context = append(context, spa[:]...)

	raw := kdfSHA256(xxkey, "FT-R0", context, 32)
	var pmkR0 [32]byte
	copy(pmkR0[:], raw[:32])

	nameCtx := make([]byte, 0, len(ssid)+2+1+len(r0khID)+1+6)
	nameCtx = append(nameCtx, []byte(ssid)...)
	nameCtx = append(nameCtx, mdidBuf[:]...)
	nameCtx = append(nameCtx, byte(len(r0khID)))
	nameCtx = append(nameCtx, r0khID...)
	nameCtx = append(nameCtx, spa[:]...)
	name := FTKeyName("FT-R0N", append(pmkR0[:], nameCtx...))
	return pmkR0, name
}

// DerivePMKR1 derives PMK-R1 from PMK-R0 and the target R1KH/S1KH identities
// (§4.4, 802.11r key hierarchy). Its name is computed over the R1KH-ID and
// S1KH-ID only; neither PMK-R0 nor PMKR0Name enters the name.
func DerivePMKR1(pmkR0 [32]byte, r1khID [6]byte, spa [6]byte) ([32]byte, [16]byte) {
	context := make([]byte, 0, 12)
	context = append(context, r1khID[:]...)
	context = append(context, spa[:]...)
	raw := kdfSHA256(pmkR0[:], "FT-R1", context, 32)
	var pmkR1 [32]byte
	copy(pmkR1[:], raw)

	name := FTKeyName("FT-R1N", context)
	return pmkR1, name
}

// ComputeMIC computes the EAPoL-Key MIC over frame (with the MIC field
// zeroed by the caller before hashing) using the AKM-appropriate HMAC
// (802.11-2016 §12.7.2, Table 12-8).
func ComputeMIC(akm domain.AKM, kck []byte, frame []byte) [16]byte {
	var mic [16]byte
	var h interface{ Sum([]byte) []byte }
	if usesSHA256(akm) {
		hm := hmac.New(sha256.New, kck)
		hm.Write(frame)
		h = hm
	} else {
		hm := hmac.New(sha1.New, kck)
		hm.Write(frame)
		h = hm
	}
	copy(mic[:], h.Sum(nil)[:16])
	return mic
}

// VerifyMIC recomputes and constant-time-compares the MIC.
func VerifyMIC(akm domain.AKM, kck []byte, frame []byte, want [16]byte) bool {
	got := ComputeMIC(akm, kck, frame)
	return hmac.Equal(got[:], want[:])
}

var errKeyWrapIntegrity = errors.New("crypto: AES key-unwrap integrity check failed")

// defaultIV is the AES key-wrap default integrity-check register (RFC 3394 §2.2.3.1).
var defaultIV = [8]byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

// UnwrapKey unwraps a GTK/IGTK from Message 3's encrypted key-data field
// using AES key-wrap (NIST SP 800-38F, RFC 3394) under the KEK.
func UnwrapKey(kek, wrapped []byte) ([]byte, error) {
	if len(wrapped)%8 != 0 || len(wrapped) < 16 {
		return nil, fmt.Errorf("crypto: wrapped key length %d is not a valid multiple of 8", len(wrapped))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("crypto: aes cipher: %w", err)
	}

	n := len(wrapped)/8 - 1
	var a [8]byte
	copy(a[:], wrapped[:8])
	r := make([][8]byte, n)
	for i := 0; i < n; i++ {
		copy(r[i][:], wrapped[8*(i+1):8*(i+2)])
	}

	buf := make([]byte, 16)
	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			t := uint64(n*j + i)
			var tBuf [8]byte
			binary.BigEndian.PutUint64(tBuf[:], t)
			var aXorT [8]byte
			for k := range a {
				aXorT[k] = a[k] ^ tBuf[k]
			}
			copy(buf[0:8], aXorT[:])
			copy(buf[8:16], r[i-1][:])
			block.Decrypt(buf, buf)
			copy(a[:], buf[0:8])
			copy(r[i-1][:], buf[8:16])
		}
	}

	for i := range a {
		if a[i] != defaultIV[i] {
			return nil, errKeyWrapIntegrity
		}
	}

	out := make([]byte, 0, n*8)
	for i := 0; i < n; i++ {
		out = append(out, r[i][:]...)
	}
	return out, nil
}

// WrapKey wraps plaintext key material under the KEK (used by the AP side
// when building Message 3's key-data field).
func WrapKey(kek, plaintext []byte) ([]byte, error) {
	if len(plaintext)%8 != 0 || len(plaintext) == 0 {
		return nil, fmt.Errorf("crypto: plaintext length %d is not a positive multiple of 8", len(plaintext))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("crypto: aes cipher: %w", err)
	}

	n := len(plaintext) / 8
	a := defaultIV
	r := make([][8]byte, n)
	for i := 0; i < n; i++ {
		copy(r[i][:], plaintext[8*i:8*(i+1)])
	}

	buf := make([]byte, 16)
	for j := 0; j <= 5; j++ {
		for i := 1; i <= n; i++ {
			copy(buf[0:8], a[:])
			copy(buf[8:16], r[i-1][:])
			block.Encrypt(buf, buf)
			copy(a[:], buf[0:8])
			t := uint64(n*j + i)
			var tBuf [8]byte
			binary.BigEndian.PutUint64(tBuf[:], t)
			for k := range a {
				a[k] ^= tBuf[k]
			}
			copy(r[i-1][:], buf[8:16])
		}
	}

	out := make([]byte, 0, 8+n*8)
	out = append(out, a[:]...)
	for i := 0; i < n; i++ {
		out = append(out, r[i][:]...)
	}
	return out, nil
}
