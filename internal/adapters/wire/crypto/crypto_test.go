package crypto

import (
	"testing"

	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestDerivePMKFromPassphraseIsDeterministic(t *testing.T) {
	a := DerivePMKFromPassphrase("correcthorsebatterystaple", "wired-test")
	b := DerivePMKFromPassphrase("correcthorsebatterystaple", "wired-test")
	require.Equal(t, a, b)

	c := DerivePMKFromPassphrase("correcthorsebatterystaple", "other-ssid")
	require.NotEqual(t, a, c)
}

func TestDerivePTKIsSymmetricAcrossRoles(t *testing.T) {
	pmk := DerivePMKFromPassphrase("correcthorsebatterystaple", "wired-test")
	aa := [6]byte{1, 2, 3, 4, 5, 6}
	spa := [6]byte{6, 5, 4, 3, 2, 1}
	var anonce, snonce [32]byte
	anonce[0] = 0xAA
	snonce[0] = 0xBB

	ptkAuthenticator, err := DerivePTK(domain.AKMPSK, pmk[:], aa, spa, anonce, snonce, domain.CipherCCMP)
	require.NoError(t, err)
	ptkSupplicant, err := DerivePTK(domain.AKMPSK, pmk[:], aa, spa, anonce, snonce, domain.CipherCCMP)
	require.NoError(t, err)

	require.Equal(t, ptkAuthenticator.KCK, ptkSupplicant.KCK)
	require.Equal(t, ptkAuthenticator.KEK, ptkSupplicant.KEK)
	require.Equal(t, ptkAuthenticator.TK, ptkSupplicant.TK)
	require.Len(t, ptkAuthenticator.TK, 16)
}

func TestDerivePTKDiffersByAKMHash(t *testing.T) {
	pmk := DerivePMKFromPassphrase("correcthorsebatterystaple", "wired-test")
	aa := [6]byte{1, 2, 3, 4, 5, 6}
	spa := [6]byte{6, 5, 4, 3, 2, 1}
	var anonce, snonce [32]byte

	legacy, err := DerivePTK(domain.AKMPSK, pmk[:], aa, spa, anonce, snonce, domain.CipherCCMP)
	require.NoError(t, err)
	sha256AKM, err := DerivePTK(domain.AKMPSKSHA256, pmk[:], aa, spa, anonce, snonce, domain.CipherCCMP)
	require.NoError(t, err)

	require.NotEqual(t, legacy.KCK, sha256AKM.KCK)
}

func TestMICRoundTrip(t *testing.T) {
	kck := make([]byte, 16)
	kck[0] = 0x11
	frame := []byte("eapol-key-frame-with-mic-field-zeroed")

	mic := ComputeMIC(domain.AKMPSK, kck, frame)
	require.True(t, VerifyMIC(domain.AKMPSK, kck, frame, mic))

	mic[0] ^= 0xFF
	require.False(t, VerifyMIC(domain.AKMPSK, kck, frame, mic))
}

func TestKeyWrapRoundTrip(t *testing.T) {
	kek := make([]byte, 16)
	for i := range kek {
		kek[i] = byte(i)
	}
	gtk := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}

	wrapped, err := WrapKey(kek, gtk)
	require.NoError(t, err)
	require.Len(t, wrapped, len(gtk)+8)

	unwrapped, err := UnwrapKey(kek, wrapped)
	require.NoError(t, err)
	require.Equal(t, gtk, unwrapped)
}

func TestUnwrapKeyRejectsTamperedCiphertext(t *testing.T) {
	kek := make([]byte, 16)
	gtk := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	wrapped, err := WrapKey(kek, gtk)
	require.NoError(t, err)

	wrapped[0] ^= 0xFF
	_, err = UnwrapKey(kek, wrapped)
	require.Error(t, err)
}

func TestPMKR0R1HierarchyIsStableAndRoleDependent(t *testing.T) {
	xxkey := make([]byte, 32)
	xxkey[0] = 0x42
	spa := [6]byte{1, 1, 1, 1, 1, 1}

	r0a, nameA := DerivePMKR0(xxkey, "wired-test", 0x1234, []byte("r0kh-1"), spa)
	r0b, nameB := DerivePMKR0(xxkey, "wired-test", 0x1234, []byte("r0kh-1"), spa)
	require.Equal(t, r0a, r0b)
	require.Equal(t, nameA, nameB)

	r0Other, _ := DerivePMKR0(xxkey, "wired-test", 0x1234, []byte("r0kh-2"), spa)
	require.NotEqual(t, r0a, r0Other)

	r1khID := [6]byte{2, 2, 2, 2, 2, 2}
	r1a, r1NameA := DerivePMKR1(r0a, r1khID, spa)
	r1b, r1NameB := DerivePMKR1(r0a, r1khID, spa)
	require.Equal(t, r1a, r1b)
	require.Equal(t, r1NameA, r1NameB)
	require.NotEqual(t, r0a[:], r1a[:])
}
