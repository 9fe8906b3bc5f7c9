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

type supplicantState int

const (
	supplicantWaitMsg1 supplicantState = iota
	supplicantWaitMsg3
	supplicantDone
)

// Supplicant drives the STA-side 4-Way Handshake (§4.5 Supplicant).
type Supplicant struct {
	h      *domain.Handshake
	akm    domain.AKM
	cipher domain.Cipher

	clock ports.Clock
	send  SendFunc
	fail  FailFunc
	ok    SuccessFunc

	state   supplicantState
	timer   ports.Timer
	retries int

	// msg3Handled guards against re-deriving/re-installing keys on a
	// retransmitted Msg3 (§8 property 3, §4.5 retransmit policy).
	msg3Handled bool
	lastReplay  uint64
	cachedMsg4  []byte

	// msg1Replay is the replay counter to echo back in Msg2 (802.11-2016
	// §12.7.6.2: the supplicant's Msg2 must carry the authenticator's own
	// counter from Msg1, not an independently-advanced one).
	msg1Replay uint64
}

// NewSupplicant constructs a Supplicant for one connection attempt. h must
// already have its PMK, addresses, and own RSNE set (§4.4).
func NewSupplicant(h *domain.Handshake, akm domain.AKM, cipher domain.Cipher, clock ports.Clock, send SendFunc, ok SuccessFunc, fail FailFunc) *Supplicant {
	return &Supplicant{h: h, akm: akm, cipher: cipher, clock: clock, send: send, ok: ok, fail: fail, state: supplicantWaitMsg1}
}

// Start arms the Msg1 wait timer (§4.5 Timeouts).
func (s *Supplicant) Start() {
	s.armTimer()
}

func (s *Supplicant) armTimer() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(RetransmitTimeout, s.onTimeout)
}

func (s *Supplicant) onTimeout() {
	if s.state == supplicantDone {
		return
	}
	s.retries++
	if s.retries > RetryLimit {
		s.fail(domain.HandshakeTimeout)
		return
	}
	s.armTimer()
}

// HandleFrame processes one received EAPoL-Key PDU.
func (s *Supplicant) HandleFrame(raw []byte) error {
	f, err := eapolwire.Parse(raw)
	if err != nil {
		return err
	}

	switch s.state {
	case supplicantWaitMsg1:
		return s.handleMsg1(f)
	case supplicantWaitMsg3:
		return s.handleMsg3(f)
	default:
		return nil
	}
}

func (s *Supplicant) handleMsg1(f *eapolwire.Frame) error {
	if f.IsPairwise() && !f.HasMIC() && f.HasAck() {
		s.msg1Replay = f.ReplayCounter
		handshake.SetANonce(s.h, f.Nonce)
		if err := handshake.NewSNonce(s.h); err != nil {
			s.fail(domain.HandshakeTimeout)
			return err
		}
		if err := handshake.DerivePTK(s.h, s.akm, s.cipher); err != nil {
			s.fail(domain.HandshakeMicMismatch)
			return err
		}

		msg2 := s.buildMsg2()
		s.state = supplicantWaitMsg3
		s.retries = 0
		s.armTimer()
		s.send(msg2)
	}
	return nil
}

func (s *Supplicant) buildMsg2() []byte {
	out := &eapolwire.Frame{
		DescriptorType: eapolwire.DescriptorRSN,
		KeyInfo:        eapolwire.KeyInfoKeyType | eapolwire.KeyInfoKeyMIC | descVersion(s.akm),
		ReplayCounter:  s.msg1Replay,
		Nonce:          s.h.SNonce,
		KeyData:        append([]byte(nil), s.h.OwnRSNE.Bytes...),
	}
	signed := sign(s.akm, s.h.KCK[:], out)
	return signed
}

func (s *Supplicant) handleMsg3(f *eapolwire.Frame) error {
	if !f.IsPairwise() || !f.HasMIC() || !f.HasAck() {
		return nil
	}

	if s.msg3Handled && f.ReplayCounter == s.lastReplay {
		// Retransmit of an already-accepted Msg3: resend the cached Msg4
		// verbatim, do not re-derive or reinstall anything (§4.5, §8 property 3).
		s.send(s.cachedMsg4)
		return nil
	}

	if err := handshake.CheckReplayCounter(s.h, f.ReplayCounter); err != nil {
		s.fail(domain.HandshakeReplayViolation)
		return err
	}

	mic := f.MIC
	verifyFrame := *f
	verifyFrame.MIC = [16]byte{}
	recomputed := eapolwire.Build(&verifyFrame)
	if !crypto.VerifyMIC(s.akm, s.h.KCK[:], recomputed, mic) {
		s.fail(domain.HandshakeMicMismatch)
		return nil
	}

	plaintext, err := handshake.UnwrapKeyData(s.h, f.KeyData)
	if err != nil {
		s.fail(domain.HandshakeMicMismatch)
		return err
	}

	if rsneValue, findErr := ie.FindUnique(plaintext, ie.TagRSN); findErr == nil && rsneValue != nil {
		if !handshake.APIEMatches(s.h.APRSNE, domain.RawIE{Tag: ie.TagRSN, Bytes: rsneValue}) {
			s.fail(domain.HandshakeIeMismatch)
			return fmt.Errorf("fourway: Msg3 RSNE does not match the beacon-advertised RSNE")
		}
	}

	if err := s.installGroupKeys(plaintext); err != nil {
		s.fail(domain.HandshakeMicMismatch)
		return err
	}

	msg4 := s.buildMsg4(f.ReplayCounter)
	s.send(msg4)

	if err := handshake.InstallPTK(s.h); err != nil {
		s.fail(domain.HandshakeMicMismatch)
		return err
	}

	s.msg3Handled = true
	s.lastReplay = f.ReplayCounter
	s.cachedMsg4 = msg4
	s.state = supplicantDone
	if s.timer != nil {
		s.timer.Stop()
	}
	s.ok()
	return nil
}

func (s *Supplicant) buildMsg4(replay uint64) []byte {
	out := &eapolwire.Frame{
		DescriptorType: eapolwire.DescriptorRSN,
		KeyInfo:        eapolwire.KeyInfoKeyType | eapolwire.KeyInfoKeyMIC | eapolwire.KeyInfoSecure | descVersion(s.akm),
		ReplayCounter:  replay,
	}
	return sign(s.akm, s.h.KCK[:], out)
}

// installGroupKeys extracts and installs the GTK/IGTK KDEs from Msg3's
// decrypted key-data (§4.5 Supplicant "decrypt and install GTK/IGTK").
func (s *Supplicant) installGroupKeys(plaintext []byte) error {
	gtk, err := ie.ParseGTKKDE(plaintext)
	if err != nil {
		return err
	}
	if gtk != nil {
		if err := handshake.InstallGTK(s.h, gtk.KeyID, 0, gtk.GTK); err != nil {
			return err
		}
	}
	igtk, err := ie.ParseIGTKKDE(plaintext)
	if err != nil {
		return err
	}
	if igtk != nil {
		if err := handshake.InstallIGTK(s.h, igtk.KeyID, igtk.IPN, igtk.IGTK); err != nil {
			return err
		}
	}
	return nil
}

func descVersion(akm domain.AKM) uint16 {
	switch akm {
	case domain.AKMPSKSHA256, domain.AKM8021XSHA256, domain.AKMFTPSK, domain.AKMFT8021X:
		return uint16(eapolwire.DescVersionAESCMAC)
	default:
		return uint16(eapolwire.DescVersionHMACSHA1AES)
	}
}

func sign(akm domain.AKM, kck []byte, f *eapolwire.Frame) []byte {
	f.MIC = [16]byte{}
	unsigned := eapolwire.Build(f)
	mic := crypto.ComputeMIC(akm, kck, unsigned)
	f.MIC = mic
	return eapolwire.Build(f)
}
