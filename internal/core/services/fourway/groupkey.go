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

// GroupKeyAuthenticator drives a Group-Key handshake rekey, reusing the KCK/
// KEK from an already-installed PTK (§4.5: "A Group-Key handshake follows
// the same framing: Msg1/Msg2 with new GTK").
type GroupKeyAuthenticator struct {
	h      *domain.Handshake
	akm    domain.AKM
	clock  ports.Clock
	send   SendFunc
	ok     SuccessFunc
	fail   FailFunc

	replay   uint64
	gtk      []byte
	gtkIndex uint8
	timer    ports.Timer
	retries  int
	done     bool
}

func NewGroupKeyAuthenticator(h *domain.Handshake, akm domain.AKM, clock ports.Clock, send SendFunc, ok SuccessFunc, fail FailFunc) *GroupKeyAuthenticator {
	return &GroupKeyAuthenticator{h: h, akm: akm, clock: clock, send: send, ok: ok, fail: fail}
}

// Rekey sends Group-Msg1 carrying a freshly generated GTK.
func (g *GroupKeyAuthenticator) Rekey(gtkIndex uint8, gtk []byte, gtkRSC uint64) error {
	if !g.h.PTKComplete {
		return fmt.Errorf("fourway: cannot rekey before the initial PTK is installed")
	}
	g.gtk, g.gtkIndex = gtk, gtkIndex
	g.replay = g.h.ReplaySupplicant + 1
	g.h.ReplaySupplicant = g.replay

	msg1, err := g.buildMsg1(gtkRSC)
	if err != nil {
		return err
	}
	g.send(msg1)
	g.armTimer()
	return nil
}

func (g *GroupKeyAuthenticator) armTimer() {
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = g.clock.AfterFunc(RetransmitTimeout, g.onTimeout)
}

func (g *GroupKeyAuthenticator) onTimeout() {
	if g.done {
		return
	}
	g.retries++
	if g.retries > RetryLimit {
		g.fail(domain.HandshakeTimeout)
		return
	}
	g.armTimer()
}

func (g *GroupKeyAuthenticator) buildMsg1(gtkRSC uint64) ([]byte, error) {
	wrapped, err := crypto.WrapKey(g.h.KEK[:], padToEight(ie.BuildGTKKDE(g.gtkIndex, true, g.gtk)))
	if err != nil {
		return nil, fmt.Errorf("fourway: wrap group-key-data: %w", err)
	}
	out := &eapolwire.Frame{
		DescriptorType: eapolwire.DescriptorRSN,
		KeyInfo:        eapolwire.KeyInfoKeyAck | eapolwire.KeyInfoKeyMIC | eapolwire.KeyInfoSecure | eapolwire.KeyInfoEncryptedKeyData | descVersion(g.akm),
		ReplayCounter:  g.replay,
		KeyRSC:         gtkRSC,
		KeyData:        wrapped,
	}
	return sign(g.akm, g.h.KCK[:], out), nil
}

// HandleFrame processes Group-Msg2, the station's acknowledgment.
func (g *GroupKeyAuthenticator) HandleFrame(raw []byte) error {
	if g.done {
		return nil
	}
	f, err := eapolwire.Parse(raw)
	if err != nil {
		return err
	}
	if f.IsPairwise() || !f.HasMIC() || f.ReplayCounter != g.replay {
		return nil
	}
	mic := f.MIC
	verifyFrame := *f
	verifyFrame.MIC = [16]byte{}
	if !crypto.VerifyMIC(g.akm, g.h.KCK[:], eapolwire.Build(&verifyFrame), mic) {
		g.fail(domain.HandshakeMicMismatch)
		return nil
	}
	if err := handshake.InstallGTK(g.h, g.gtkIndex, 0, g.gtk); err != nil {
		g.fail(domain.HandshakeMicMismatch)
		return err
	}
	g.done = true
	if g.timer != nil {
		g.timer.Stop()
	}
	g.ok()
	return nil
}

// GroupKeySupplicant answers a Group-Key Msg1 from the authenticator with
// Msg2, installing the new GTK without touching the PTK (§4.5).
type GroupKeySupplicant struct {
	h    *domain.Handshake
	akm  domain.AKM
	send SendFunc
	ok   SuccessFunc
	fail FailFunc
}

func NewGroupKeySupplicant(h *domain.Handshake, akm domain.AKM, send SendFunc, ok SuccessFunc, fail FailFunc) *GroupKeySupplicant {
	return &GroupKeySupplicant{h: h, akm: akm, send: send, ok: ok, fail: fail}
}

func (g *GroupKeySupplicant) HandleFrame(raw []byte) error {
	f, err := eapolwire.Parse(raw)
	if err != nil {
		return err
	}
	if f.IsPairwise() || !f.HasMIC() || !f.HasAck() {
		return nil
	}
	if err := handshake.CheckReplayCounter(g.h, f.ReplayCounter); err != nil {
		g.fail(domain.HandshakeReplayViolation)
		return err
	}

	mic := f.MIC
	verifyFrame := *f
	verifyFrame.MIC = [16]byte{}
	if !crypto.VerifyMIC(g.akm, g.h.KCK[:], eapolwire.Build(&verifyFrame), mic) {
		g.fail(domain.HandshakeMicMismatch)
		return nil
	}

	plaintext, err := handshake.UnwrapKeyData(g.h, f.KeyData)
	if err != nil {
		g.fail(domain.HandshakeMicMismatch)
		return err
	}
	gtk, err := ie.ParseGTKKDE(plaintext)
	if err != nil {
		g.fail(domain.HandshakeMicMismatch)
		return err
	}
	if gtk != nil {
		if err := handshake.InstallGTK(g.h, gtk.KeyID, f.KeyRSC, gtk.GTK); err != nil {
			g.fail(domain.HandshakeMicMismatch)
			return err
		}
	}

	out := &eapolwire.Frame{
		DescriptorType: eapolwire.DescriptorRSN,
		KeyInfo:        eapolwire.KeyInfoKeyMIC | eapolwire.KeyInfoSecure | descVersion(g.akm),
		ReplayCounter:  f.ReplayCounter,
	}
	g.send(sign(g.akm, g.h.KCK[:], out))
	g.ok()
	return nil
}
