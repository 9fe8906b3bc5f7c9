// Package grpc exposes the Orchestrator over a gRPC control surface (§4.10):
// Connect/Disconnect/GetOrderedNetworks/StartAP/StopAP/PushButton/
// GetStationStatus. It never contains FSM logic — every method is a thin
// translation between RPC DTOs and Orchestrator/domain calls.
package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/lcalzada-xor/wired/internal/adapters/wire/crypto"
	"github.com/lcalzada-xor/wired/internal/adapters/wire/ie"
	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/lcalzada-xor/wired/internal/core/services/orchestrator"
)

// orchestratorAPI is the subset of *orchestrator.Orchestrator's exported
// surface this server calls.
type orchestratorAPI interface {
	Connect(ctx context.Context, ifIndex int, target domain.BSSDescriptor, hs *domain.Handshake, akm domain.AKM, cipher domain.Cipher, onConnect domain.ConnectCallback, onEvent domain.EventCallback) error
	Disconnect(ctx context.Context, ifIndex int) error
	PushButton(ctx context.Context, ifIndex int) error
	StopAP(ctx context.Context, ifIndex int) error
	StartAP(ctx context.Context, ifIndex int, profile domain.NetworkProfile) error
	GetOrderedNetworks(ctx context.Context) ([]domain.NetworkProfile, error)
	GetStationStatus(ifIndex int) (orchestrator.StationStatus, error)
}

// Server implements WiredControlServer against an orchestratorAPI.
type Server struct {
	orch orchestratorAPI
}

// NewServer constructs a *grpc.Server with the control surface registered.
func NewServer(orch orchestratorAPI) *grpc.Server {
	s := grpc.NewServer()
	s.RegisterService(&WiredControl_ServiceDesc, &Server{orch: orch})
	return s
}

func (s *Server) Connect(ctx context.Context, req *ConnectRequest) (*ConnectResponse, error) {
	bssid, err := parseMAC(req.Bssid)
	if err != nil {
		return nil, fmt.Errorf("invalid bssid: %w", err)
	}
	akm, err := parseAKM(req.Akm)
	if err != nil {
		return nil, err
	}
	cipher, err := parseCipher(req.Cipher)
	if err != nil {
		return nil, err
	}

	target := domain.BSSDescriptor{
		BSSID:      bssid,
		SSID:       req.Ssid,
		Frequency:  int(req.Frequency),
		Capability: uint16(req.Capability),
	}
	hs := &domain.Handshake{SSID: req.Ssid}
	if req.Passphrase != "" {
		pmk := crypto.DerivePMKFromPassphrase(req.Passphrase, req.Ssid)
		hs.PMK = pmk
		hs.PMKSet = true
		rsn := domain.RSNInfo{
			GroupCipher:     cipher,
			PairwiseCiphers: []domain.Cipher{cipher},
			AKMSuites:       []domain.AKM{akm},
		}
		target.RSNE = &rsn
		hs.OwnRSNE = domain.RawIE{Tag: ie.TagRSN, Bytes: ie.BuildRSNE(rsn)}
	}

	type result struct{ err *domain.ConnError }
	done := make(chan result, 1)
	onConnect := func(cerr *domain.ConnError) { done <- result{cerr} }

	if err := s.orch.Connect(ctx, int(req.IfIndex), target, hs, akm, cipher, onConnect, nil); err != nil {
		return nil, err
	}

	select {
	case r := <-done:
		resp := &ConnectResponse{}
		if r.err != nil {
			resp.Error = r.err.Error()
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(30 * time.Second):
		return nil, fmt.Errorf("connect: timed out waiting for completion")
	}
}

func (s *Server) Disconnect(ctx context.Context, req *DisconnectRequest) (*DisconnectResponse, error) {
	if err := s.orch.Disconnect(ctx, int(req.IfIndex)); err != nil {
		return nil, err
	}
	return &DisconnectResponse{}, nil
}

func (s *Server) GetOrderedNetworks(ctx context.Context, _ *GetOrderedNetworksRequest) (*GetOrderedNetworksResponse, error) {
	profiles, err := s.orch.GetOrderedNetworks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*NetworkProfileSummary, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, &NetworkProfileSummary{Ssid: p.SSID, Security: p.Security, IsAp: p.IsAP})
	}
	return &GetOrderedNetworksResponse{Networks: out}, nil
}

func (s *Server) StartAP(ctx context.Context, req *StartAPRequest) (*StartAPResponse, error) {
	profile := domain.NetworkProfile{
		SSID:       req.Ssid,
		Security:   "psk",
		Passphrase: req.Passphrase,
		IsAP:       true,
		APChannel:  int(req.Channel),
	}
	if err := s.orch.StartAP(ctx, int(req.IfIndex), profile); err != nil {
		return nil, err
	}
	return &StartAPResponse{}, nil
}

func (s *Server) StopAP(ctx context.Context, req *StopAPRequest) (*StopAPResponse, error) {
	if err := s.orch.StopAP(ctx, int(req.IfIndex)); err != nil {
		return nil, err
	}
	return &StopAPResponse{}, nil
}

func (s *Server) PushButton(ctx context.Context, req *PushButtonRequest) (*PushButtonResponse, error) {
	if err := s.orch.PushButton(ctx, int(req.IfIndex)); err != nil {
		return nil, err
	}
	return &PushButtonResponse{}, nil
}

func (s *Server) GetStationStatus(_ context.Context, req *GetStationStatusRequest) (*GetStationStatusResponse, error) {
	st, err := s.orch.GetStationStatus(int(req.IfIndex))
	if err != nil {
		return nil, err
	}
	return &GetStationStatusResponse{
		State: st.State.String(),
		Bssid: formatMAC(st.BSSID),
		Ssid:  st.SSID,
	}, nil
}

func parseMAC(s string) ([6]byte, error) {
	var out [6]byte
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return out, fmt.Errorf("malformed MAC %q", s)
	}
	copy(out[:], hw)
	return out, nil
}

func formatMAC(mac [6]byte) string {
	return net.HardwareAddr(mac[:]).String()
}

func parseAKM(s string) (domain.AKM, error) {
	switch s {
	case "", "psk":
		return domain.AKMPSK, nil
	case "8021x":
		return domain.AKM8021X, nil
	case "ft-psk":
		return domain.AKMFTPSK, nil
	case "ft-8021x":
		return domain.AKMFT8021X, nil
	case "psk-sha256":
		return domain.AKMPSKSHA256, nil
	case "8021x-sha256":
		return domain.AKM8021XSHA256, nil
	default:
		return 0, fmt.Errorf("unknown akm %q", s)
	}
}

func parseCipher(s string) (domain.Cipher, error) {
	switch s {
	case "", "ccmp":
		return domain.CipherCCMP, nil
	case "ccmp256":
		return domain.CipherCCMP256, nil
	case "gcmp128":
		return domain.CipherGCMP128, nil
	case "gcmp256":
		return domain.CipherGCMP256, nil
	case "tkip":
		return domain.CipherTKIP, nil
	default:
		return 0, fmt.Errorf("unknown cipher %q", s)
	}
}
