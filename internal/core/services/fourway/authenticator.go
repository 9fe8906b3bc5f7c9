package fourway

import (
	"fmt"

	"github.com/lcalzada-xor/wired/internal/adapters/wire/crypto"
	eapolwire "github.com/lcalzada-xor/wired/internal/adapters/wire/eapol"
	"github.com/lcalzada-xor/wired/internal/adapters/wire/ie"
	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/lcalzada-xor/wired/internal/core/ports"
	"github.com/lcalzada-xor/wired/internal/core/services/handshake"
)

type authenticatorState int

const (
	authInit authenticatorState = iota
	authWaitMsg2
	authWaitMsg4
	authDone
)

// Authenticator drives the AP-side 4-Way Handshake for one station, and the
// FT rekey authenticator path (§4.5 Authenticator).
type Authenticator struct {
	h      *domain.Handshake
	akm    domain.AKM
	cipher domain.Cipher

	// AssocRSNE is the RSNE the station presented in its (Re)association
	// Request, used to confirm Msg2's RSNE was not downgraded (§4.5).
	AssocRSNE domain.RawIE

	clock ports.Clock
	send  SendFunc
	fail  FailFunc
	ok    SuccessFunc

	state   authenticatorState
	timer   ports.Timer
	retries int
	replay  uint64

	gtk       []byte
	gtkIndex  uint8
	gtkRSC    uint64
	hasGTK    bool
	igtk      []byte
	igtkIndex uint16
	igtkIPN   uint64
	hasIGTK   bool

	lastReplay  uint64
	cachedMsg3  []byte
}

// NewAuthenticator constructs an Authenticator for one station's handshake.
// h must already have its PMK, addresses, and the AP's own RSNE set.
func NewAuthenticator(h *domain.Handshake, akm domain.AKM, cipher domain.Cipher, assocRSNE domain.RawIE, clock ports.Clock, send SendFunc, ok SuccessFunc, fail FailFunc) *Authenticator {
	return &Authenticator{h: h, akm: akm, cipher: cipher, AssocRSNE: assocRSNE, clock: clock, send: send, ok: ok, fail: fail, state: authInit}
}

// SetGroupKeys installs the GTK (and, if MFP is negotiated, IGTK) this
// authenticator will push to the station in Msg3.
func (a *Authenticator) SetGroupKeys(gtkIndex uint8, gtk []byte, gtkRSC uint64) {
	a.gtk, a.gtkIndex, a.gtkRSC, a.hasGTK = gtk, gtkIndex, gtkRSC, true
}

func (a *Authenticator) SetIGTK(igtkIndex uint16, igtk []byte, ipn uint64) {
	a.igtk, a.igtkIndex, a.igtkIPN, a.hasIGTK = igtk, igtkIndex, ipn, true
}

// Start picks ANonce and sends Msg1 (§4.5 Authenticator).
func (a *Authenticator) Start() error {
	if err := handshake.NewANonce(a.h); err != nil {
		return err
	}
	a.replay = 1
	a.h.ReplaySupplicant = a.replay
	msg1 := a.buildMsg1()
	a.state = authWaitMsg2
	a.armTimer()
	a.send(msg1)
	return nil
}

func (a *Authenticator) armTimer() {
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = a.clock.AfterFunc(RetransmitTimeout, a.onTimeout)
}

func (a *Authenticator) onTimeout() {
	if a.state == authDone {
		return
	}
	a.retries++
	if a.retries > RetryLimit {
		a.fail(domain.HandshakeTimeout)
		return
	}
	switch a.state {
	case authWaitMsg2:
		a.send(a.buildMsg1())
	case authWaitMsg4:
		a.send(a.cachedMsg3)
	}
	a.armTimer()
}

func (a *Authenticator) buildMsg1() []byte {
	out := &eapolwire.Frame{
		DescriptorType: eapolwire.DescriptorRSN,
		KeyInfo:        eapolwire.KeyInfoKeyType | eapolwire.KeyInfoKeyAck | descVersion(a.akm),
		ReplayCounter:  a.replay,
		Nonce:          a.h.ANonce,
	}
	return eapolwire.Build(out) // Msg1 carries no MIC (KeyInfoKeyMIC unset)
}

// HandleFrame processes one received EAPoL-Key PDU.
func (a *Authenticator) HandleFrame(raw []byte) error {
	f, err := eapolwire.Parse(raw)
	if err != nil {
		return err
	}
	switch a.state {
	case authWaitMsg2:
		return a.handleMsg2(f)
	case authWaitMsg4:
		return a.handleMsg4(f)
	default:
		return nil
	}
}

func (a *Authenticator) handleMsg2(f *eapolwire.Frame) error {
	if !f.IsPairwise() || !f.HasMIC() || f.HasAck() {
		return nil
	}
	if f.ReplayCounter != a.replay {
		return nil // not a reply to our current Msg1; ignore
	}

	handshake.SetSNonce(a.h, f.Nonce)
	if err := handshake.DerivePTK(a.h, a.akm, a.cipher); err != nil {
		a.fail(domain.HandshakeMicMismatch)
		return err
	}

	mic := f.MIC
	verifyFrame := *f
	verifyFrame.MIC = [16]byte{}
	if !crypto.VerifyMIC(a.akm, a.h.KCK[:], eapolwire.Build(&verifyFrame), mic) {
		a.fail(domain.HandshakeMicMismatch)
		return nil
	}

	if len(f.KeyData) > 0 {
		if rsneValue, err := ie.FindUnique(f.KeyData, ie.TagRSN); err == nil && rsneValue != nil {
			if !handshake.APIEMatches(a.AssocRSNE, domain.RawIE{Tag: ie.TagRSN, Bytes: rsneValue}) {
				a.fail(domain.HandshakeIeMismatch)
				return fmt.Errorf("fourway: Msg2 RSNE does not match the association-request RSNE")
			}
		}
	}

	a.replay++
	msg3, err := a.buildMsg3()
	if err != nil {
		a.fail(domain.HandshakeMicMismatch)
		return err
	}
	a.h.ReplaySupplicant = a.replay
	a.cachedMsg3 = msg3
	a.lastReplay = a.replay
	a.state = authWaitMsg4
	a.retries = 0
	a.armTimer()
	a.send(msg3)
	return nil
}

func (a *Authenticator) buildMsg3() ([]byte, error) {
	var keyData []byte
	keyData = append(keyData, a.h.OwnRSNE.Bytes...)
	if a.hasGTK {
		keyData = append(keyData, ie.BuildGTKKDE(a.gtkIndex, true, a.gtk)...)
	}
	if a.hasIGTK {
		keyData = append(keyData, ie.BuildIGTKKDE(a.igtkIndex, a.igtkIPN, a.igtk)...)
	}
	wrapped, err := crypto.WrapKey(a.h.KEK[:], padToEight(keyData))
	if err != nil {
		return nil, fmt.Errorf("fourway: wrap Msg3 key-data: %w", err)
	}

	out := &eapolwire.Frame{
		DescriptorType: eapolwire.DescriptorRSN,
		KeyInfo:        eapolwire.KeyInfoKeyType | eapolwire.KeyInfoKeyAck | eapolwire.KeyInfoKeyMIC | eapolwire.KeyInfoInstall | eapolwire.KeyInfoSecure | eapolwire.KeyInfoEncryptedKeyData | descVersion(a.akm),
		ReplayCounter:  a.replay,
		Nonce:          a.h.ANonce,
		KeyData:        wrapped,
	}
	return sign(a.akm, a.h.KCK[:], out), nil
}

func padToEight(b []byte) []byte {
	if len(b)%8 == 0 {
		return b
	}
	out := make([]byte, ((len(b)/8)+1)*8)
	copy(out, b)
	return out
}

func (a *Authenticator) handleMsg4(f *eapolwire.Frame) error {
	if !f.IsPairwise() || !f.HasMIC() {
		return nil
	}
	if f.ReplayCounter == a.lastReplay && a.state == authDone {
		return nil // already-completed retransmit, nothing to do
	}
	if f.ReplayCounter != a.replay {
		return nil
	}

	mic := f.MIC
	verifyFrame := *f
	verifyFrame.MIC = [16]byte{}
	if !crypto.VerifyMIC(a.akm, a.h.KCK[:], eapolwire.Build(&verifyFrame), mic) {
		a.fail(domain.HandshakeMicMismatch)
		return nil
	}

	if a.hasGTK {
		if err := handshake.InstallGTK(a.h, a.gtkIndex, a.gtkRSC, a.gtk); err != nil {
			a.fail(domain.HandshakeMicMismatch)
			return err
		}
	}
	if a.hasIGTK {
		if err := handshake.InstallIGTK(a.h, a.igtkIndex, a.igtkIPN, a.igtk); err != nil {
			a.fail(domain.HandshakeMicMismatch)
			return err
		}
	}
	if err := handshake.InstallPTK(a.h); err != nil {
		a.fail(domain.HandshakeMicMismatch)
		return err
	}

	a.state = authDone
	if a.timer != nil {
		a.timer.Stop()
	}
	a.ok()
	return nil
}
