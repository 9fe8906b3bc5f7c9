package eapol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildParseRoundTrip(t *testing.T) {
	f := &Frame{
		DescriptorType: DescriptorRSN,
		KeyInfo:        KeyInfoKeyType | KeyInfoKeyAck,
		KeyLength:      16,
		ReplayCounter:  42,
		KeyData:        []byte{1, 2, 3, 4},
	}
	f.Nonce[0] = 0xAA

	raw := Build(f)
	out, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, f.DescriptorType, out.DescriptorType)
	require.Equal(t, f.KeyInfo, out.KeyInfo)
	require.Equal(t, f.ReplayCounter, out.ReplayCounter)
	require.Equal(t, f.Nonce, out.Nonce)
	require.Equal(t, f.KeyData, out.KeyData)
	require.True(t, out.IsPairwise())
	require.True(t, out.HasAck())
	require.False(t, out.HasMIC())
}

func TestParseRejectsTruncatedPDU(t *testing.T) {
	_, err := Parse([]byte{2, 3, 0, 10})
	require.Error(t, err)
}

func TestParseRejectsNonKeyType(t *testing.T) {
	f := &Frame{DescriptorType: DescriptorRSN}
	raw := Build(f)
	raw[1] = 0 // EAP-Packet
	_, err := Parse(raw)
	require.Error(t, err)
}
