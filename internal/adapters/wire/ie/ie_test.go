package ie

import (
	"testing"

	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestRSNERoundTrip(t *testing.T) {
	in := domain.RSNInfo{
		Version:         1,
		GroupCipher:     domain.CipherCCMP,
		PairwiseCiphers: []domain.Cipher{domain.CipherCCMP},
		AKMSuites:       []domain.AKM{domain.AKMPSK},
		Capabilities:    domain.RSNCapabilities{MFPCapable: true},
	}
	raw := BuildRSNE(in)
	require.Equal(t, TagRSN, raw[0])

	out, err := ParseRSNE(raw[2:])
	require.NoError(t, err)
	require.Equal(t, in.Version, out.Version)
	require.Equal(t, in.GroupCipher, out.GroupCipher)
	require.Equal(t, in.PairwiseCiphers, out.PairwiseCiphers)
	require.Equal(t, in.AKMSuites, out.AKMSuites)
	require.True(t, out.Capabilities.MFPCapable)
}

func TestRSNETruncatedIsInvalid(t *testing.T) {
	_, err := ParseRSNE([]byte{0x01})
	require.Error(t, err)
	var ie *InvalidIe
	require.ErrorAs(t, err, &ie)
}

func TestAPIEMatchesTolerantOfPMKID(t *testing.T) {
	base := domain.RSNInfo{
		Version:         1,
		GroupCipher:     domain.CipherCCMP,
		PairwiseCiphers: []domain.Cipher{domain.CipherCCMP},
		AKMSuites:       []domain.AKM{domain.AKMPSK},
	}
	withPMKID := base
	withPMKID.PMKIDs = [][16]byte{{1, 2, 3}}

	a := BuildRSNE(base)
	b := BuildRSNE(withPMKID)

	require.False(t, APIEMatches(a, b, false))
	require.True(t, APIEMatches(a, b, true))
}

func TestAPIEMatchesRejectsCipherMismatch(t *testing.T) {
	a := BuildRSNE(domain.RSNInfo{GroupCipher: domain.CipherCCMP, PairwiseCiphers: []domain.Cipher{domain.CipherCCMP}, AKMSuites: []domain.AKM{domain.AKMPSK}})
	b := BuildRSNE(domain.RSNInfo{GroupCipher: domain.CipherCCMP, PairwiseCiphers: []domain.Cipher{domain.CipherTKIP}, AKMSuites: []domain.AKM{domain.AKMPSK}})

	require.False(t, APIEMatches(a, b, true))
}

func TestMDERoundTripIsByteExact(t *testing.T) {
	m := domain.MDE{MDID: 0x1234, OverDS: true}
	raw := BuildMDE(m)
	require.Equal(t, []byte{0x36, 0x03, 0x34, 0x12, 0x01}, raw)

	out, err := ParseMDE(raw[2:])
	require.NoError(t, err)
	require.Equal(t, m.MDID, out.MDID)
	require.True(t, out.OverDS)
}

func TestFTERoundTrip(t *testing.T) {
	f := domain.FTE{}
	f.SNonce[0] = 0xAB
	f.R0KHID = []byte("r0kh")
	raw := BuildFTE(f)

	out, err := ParseFTE(raw[2:])
	require.NoError(t, err)
	require.Equal(t, f.SNonce, out.SNonce)
	require.Equal(t, f.R0KHID, out.R0KHID)
	require.Equal(t, [32]byte{}, out.ANonce)
}

func TestIteratorRejectsOverlongElement(t *testing.T) {
	data := []byte{0x00, 0x05, 'a', 'b'} // declares length 5, only 2 bytes follow
	it := NewIterator(data)
	_, _, ok, err := it.Next()
	require.False(t, ok)
	require.Error(t, err)
}

func TestFindUniqueRejectsDuplicateTag(t *testing.T) {
	data := append(buildTLV(nil, TagRSN, []byte{1, 2}), buildTLV(nil, TagRSN, []byte{3, 4})...)
	_, err := FindUnique(data, TagRSN)
	require.Error(t, err)
}

func TestWSCProbeRequestRoundTrip(t *testing.T) {
	var uuid [16]byte
	uuid[0] = 0x42
	raw := BuildWSCProbeRequest(uuid, DevicePasswordIDPushButton)

	info, err := ParseWSCTLV(raw[2:])
	require.NoError(t, err)
	require.NotNil(t, info)
	require.Equal(t, uuid, info.UUIDE)
	require.Equal(t, DevicePasswordIDPushButton, info.DevicePasswordID)
}

func TestHasCommonBasicRate(t *testing.T) {
	ours := []Rate{{Value: 2, Basic: true}, {Value: 11, Basic: false}}
	theirs := []Rate{{Value: 2, Basic: true}}
	require.True(t, HasCommonBasicRate(ours, theirs))

	theirs2 := []Rate{{Value: 4, Basic: true}}
	require.False(t, HasCommonBasicRate(ours, theirs2))
}
