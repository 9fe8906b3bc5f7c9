package grpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/lcalzada-xor/wired/internal/core/services/orchestrator"
)

type fakeOrchestrator struct {
	connectErr   *domain.ConnError
	connectCalls int
	started      []domain.NetworkProfile
	stations     map[int]orchestrator.StationStatus
	networks     []domain.NetworkProfile
}

func (f *fakeOrchestrator) Connect(_ context.Context, _ int, _ domain.BSSDescriptor, _ *domain.Handshake, _ domain.AKM, _ domain.Cipher, onConnect domain.ConnectCallback, _ domain.EventCallback) error {
	f.connectCalls++
	onConnect(f.connectErr)
	return nil
}
func (f *fakeOrchestrator) Disconnect(context.Context, int) error { return nil }
func (f *fakeOrchestrator) PushButton(context.Context, int) error { return nil }
func (f *fakeOrchestrator) StopAP(context.Context, int) error     { return nil }
func (f *fakeOrchestrator) StartAP(_ context.Context, _ int, p domain.NetworkProfile) error {
	f.started = append(f.started, p)
	return nil
}
func (f *fakeOrchestrator) GetOrderedNetworks(context.Context) ([]domain.NetworkProfile, error) {
	return f.networks, nil
}
func (f *fakeOrchestrator) GetStationStatus(ifIndex int) (orchestrator.StationStatus, error) {
	return f.stations[ifIndex], nil
}

func TestConnectReturnsSuccessOnNilError(t *testing.T) {
	orch := &fakeOrchestrator{}
	s := &Server{orch: orch}

	resp, err := s.Connect(context.Background(), &ConnectRequest{
		IfIndex: 3, Bssid: "aa:bb:cc:dd:ee:ff", Ssid: "home", Akm: "psk", Cipher: "ccmp", Passphrase: "hunter2hunter2",
	})
	require.NoError(t, err)
	require.Empty(t, resp.Error)
	require.Equal(t, 1, orch.connectCalls)
}

func TestConnectSurfacesHandshakeFailure(t *testing.T) {
	orch := &fakeOrchestrator{connectErr: domain.NewConnError(domain.ErrHandshakeFailed, "timeout")}
	s := &Server{orch: orch}

	resp, err := s.Connect(context.Background(), &ConnectRequest{
		IfIndex: 3, Bssid: "aa:bb:cc:dd:ee:ff", Ssid: "home", Akm: "psk", Cipher: "ccmp",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Error)
}

func TestConnectRejectsMalformedBSSID(t *testing.T) {
	s := &Server{orch: &fakeOrchestrator{}}
	_, err := s.Connect(context.Background(), &ConnectRequest{IfIndex: 1, Bssid: "not-a-mac"})
	require.Error(t, err)
}

func TestStartAPBuildsAPProfile(t *testing.T) {
	orch := &fakeOrchestrator{}
	s := &Server{orch: orch}

	_, err := s.StartAP(context.Background(), &StartAPRequest{IfIndex: 5, Ssid: "guest", Passphrase: "p@ssw0rd!", Channel: 6})
	require.NoError(t, err)
	require.Len(t, orch.started, 1)
	require.True(t, orch.started[0].IsAP)
	require.Equal(t, "guest", orch.started[0].SSID)
}

func TestGetStationStatusFormatsBSSID(t *testing.T) {
	orch := &fakeOrchestrator{stations: map[int]orchestrator.StationStatus{
		2: {State: domain.StateOperational, BSSID: [6]byte{1, 2, 3, 4, 5, 6}, SSID: "home"},
	}}
	s := &Server{orch: orch}

	resp, err := s.GetStationStatus(context.Background(), &GetStationStatusRequest{IfIndex: 2})
	require.NoError(t, err)
	require.Equal(t, "Operational", resp.State)
	require.Equal(t, "01:02:03:04:05:06", resp.Bssid)
}
