package fourway

import (
	"testing"
	"time"

	"github.com/lcalzada-xor/wired/internal/adapters/wire/crypto"
	"github.com/lcalzada-xor/wired/internal/adapters/wire/ie"
	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/lcalzada-xor/wired/internal/core/ports"
	"github.com/lcalzada-xor/wired/internal/core/services/handshake"
	"github.com/stretchr/testify/require"
)

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }

// fakeClockAdapter satisfies ports.Clock without ever actually firing;
// the handshake exchanges below complete synchronously within the retry
// budget, so no test ever needs AfterFunc's callback to run.
type fakeClockAdapter struct{}

func (fakeClockAdapter) Now() time.Time { return time.Time{} }
func (fakeClockAdapter) AfterFunc(time.Duration, func()) ports.Timer {
	return noopTimer{}
}

func newPair(t *testing.T) (*domain.Handshake, *domain.Handshake) {
	t.Helper()
	aa := [6]byte{1, 2, 3, 4, 5, 6}
	spa := [6]byte{6, 5, 4, 3, 2, 1}
	pmk := crypto.DerivePMKFromPassphrase("correcthorsebatterystaple", "wired-test")

	rsne := ie.BuildRSNE(domain.RSNInfo{
		Version:         1,
		GroupCipher:     domain.CipherCCMP,
		PairwiseCiphers: []domain.Cipher{domain.CipherCCMP},
		AKMSuites:       []domain.AKM{domain.AKMPSK},
	})

	hAuth := &domain.Handshake{}
	handshake.SetPMK(hAuth, pmk)
	handshake.SetAuthenticatorAddress(hAuth, aa)
	handshake.SetSupplicantAddress(hAuth, spa)
	handshake.SetOwnIE(hAuth, domain.RawIE{Tag: ie.TagRSN, Bytes: rsne})

	hSupp := &domain.Handshake{}
	handshake.SetPMK(hSupp, pmk)
	handshake.SetAuthenticatorAddress(hSupp, aa)
	handshake.SetSupplicantAddress(hSupp, spa)
	handshake.SetOwnIE(hSupp, domain.RawIE{Tag: ie.TagRSN, Bytes: rsne})
	handshake.SetAPIE(hSupp, domain.RawIE{Tag: ie.TagRSN, Bytes: rsne})

	return hAuth, hSupp
}

func TestFourWayHandshakeHappyPath(t *testing.T) {
	hAuth, hSupp := newPair(t)

	var authenticator *Authenticator
	var supplicant *Supplicant

	authOK, authFailed := false, domain.HandshakeFailReason(-1)
	suppOK, suppFailed := false, domain.HandshakeFailReason(-1)

	supplicant = NewSupplicant(hSupp, domain.AKMPSK, domain.CipherCCMP, fakeClockAdapter{}, func(frame []byte) {
		require.NoError(t, authenticator.HandleFrame(frame))
	}, func() { suppOK = true }, func(r domain.HandshakeFailReason) { suppFailed = r })

	assocRSNE := hSupp.OwnRSNE
	authenticator = NewAuthenticator(hAuth, domain.AKMPSK, domain.CipherCCMP, assocRSNE, fakeClockAdapter{}, func(frame []byte) {
		require.NoError(t, supplicant.HandleFrame(frame))
	}, func() { authOK = true }, func(r domain.HandshakeFailReason) { authFailed = r })

	authenticator.SetGroupKeys(1, make([]byte, 16), 0)

	supplicant.Start()
	require.NoError(t, authenticator.Start())

	require.True(t, authOK, "authenticator did not complete: failed=%v", authFailed)
	require.True(t, suppOK, "supplicant did not complete: failed=%v", suppFailed)
	require.True(t, hAuth.PTKComplete)
	require.True(t, hSupp.PTKComplete)
	require.Equal(t, hAuth.TK, hSupp.TK)
	require.True(t, hSupp.HaveGTK)
}
