// Package orchestrator owns the interface table keyed by kernel ifindex
// (§4.8): it watches kernel interface add/remove notifications, spawns a
// STA-FSM or AP-FSM per netdev depending on its nl80211 interface type, and
// demultiplexes control-surface calls and kernel events to the right FSM.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/lcalzada-xor/wired/internal/adapters/wire/crypto"
	"github.com/lcalzada-xor/wired/internal/adapters/wire/ie"
	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/lcalzada-xor/wired/internal/core/ports"
	"github.com/lcalzada-xor/wired/internal/core/services/apfsm"
	"github.com/lcalzada-xor/wired/internal/core/services/stafsm"
	"github.com/lcalzada-xor/wired/internal/telemetry"
)

// EAPOLFactory opens the control-port channel for one newly discovered
// interface; production code binds a PF_PACKET/ETH_P_PAE socket per ifindex,
// tests substitute an in-memory fake.
type EAPOLFactory func(ifIndex int, mac [6]byte) (ports.EAPOLChannel, error)

// Filters restricts which netdevs the orchestrator manages by name (§4.8).
// A name is managed when it matches no BlockPatterns and, if AllowPatterns
// is non-empty, matches at least one of them. Patterns use shell-glob syntax
// (path/filepath.Match), mirroring how the teacher's config layer already
// expresses interface/profile name filters.
type Filters struct {
	AllowPatterns []string
	BlockPatterns []string
}

func (f Filters) managed(name string) bool {
	for _, pat := range f.BlockPatterns {
		if ok, _ := filepath.Match(pat, name); ok {
			return false
		}
	}
	if len(f.AllowPatterns) == 0 {
		return true
	}
	for _, pat := range f.AllowPatterns {
		if ok, _ := filepath.Match(pat, name); ok {
			return true
		}
	}
	return false
}

// managedInterface bundles an Interface record with the role-specific FSM
// and EAPOL channel the orchestrator created for it.
type managedInterface struct {
	iface *domain.Interface
	eapol ports.EAPOLChannel
	sta   *stafsm.FSM
	ap    *apfsm.FSM
}

// Orchestrator is the single owner of every Interface/FSM pair in the
// process (§4.8).
type Orchestrator struct {
	transport ports.Transport
	link      ports.LinkController
	watcher   ports.InterfaceWatcher
	clock     ports.Clock
	store     ports.ConfigStore
	sink      ports.EventSink
	eapolNew  EAPOLFactory
	filters   Filters
	log       *slog.Logger

	mu   sync.Mutex
	ifcs map[int]*managedInterface
}

// New constructs an Orchestrator. Call Run to start watching for interfaces.
func New(transport ports.Transport, link ports.LinkController, watcher ports.InterfaceWatcher, clock ports.Clock, store ports.ConfigStore, sink ports.EventSink, eapolNew EAPOLFactory, filters Filters, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		transport: transport,
		link:      link,
		watcher:   watcher,
		clock:     clock,
		store:     store,
		sink:      sink,
		eapolNew:  eapolNew,
		filters:   filters,
		log:       log,
		ifcs:      make(map[int]*managedInterface),
	}
}

// Run enumerates existing netdevs and subscribes to subsequent add/remove
// notifications (§4.8). It returns once the initial enumeration completes;
// the watcher's notification loop continues on its own goroutine.
func (o *Orchestrator) Run(ctx context.Context) error {
	existing, err := o.watcher.List(ctx)
	if err != nil {
		return fmt.Errorf("orchestrator: list interfaces: %w", err)
	}
	for _, ev := range existing {
		o.handleInterfaceEvent(ctx, ev)
	}
	return o.watcher.Subscribe(func(ev ports.InterfaceEvent) {
		o.handleInterfaceEvent(context.Background(), ev)
	})
}

func (o *Orchestrator) handleInterfaceEvent(ctx context.Context, ev ports.InterfaceEvent) {
	if ev.Removed {
		o.removeInterface(ev.IfIndex)
		return
	}
	if !o.filters.managed(ev.Name) {
		return
	}
	o.mu.Lock()
	_, exists := o.ifcs[ev.IfIndex]
	o.mu.Unlock()
	if exists {
		return
	}
	if err := o.addInterface(ctx, ev); err != nil {
		o.log.Error("orchestrator: add interface failed", "ifindex", ev.IfIndex, "name", ev.Name, "err", err)
	}
}

// addInterface queries the netdev's nl80211 interface type and spawns the
// matching FSM (§4.8 "spawns STA-FSM or AP-FSM instances per netdev type").
func (o *Orchestrator) addInterface(ctx context.Context, ev ports.InterfaceEvent) error {
	role, err := o.interfaceRole(ctx, ev.IfIndex)
	if err != nil {
		return err
	}
	if role == domain.RoleNone {
		return nil // monitor/unmanaged iftype: nothing for either FSM to do
	}

	eapol, err := o.eapolNew(ev.IfIndex, ev.MAC)
	if err != nil {
		return fmt.Errorf("open eapol channel: %w", err)
	}

	iface := &domain.Interface{Index: ev.IfIndex, Name: ev.Name, MAC: ev.MAC, Up: ev.Up, Role: role}
	mi := &managedInterface{iface: iface, eapol: eapol}

	switch role {
	case domain.RoleSTA:
		mi.sta = stafsm.New(ev.IfIndex, ev.MAC, o.transport, o.link, eapol, o.clock, o.log)
		iface.FSM = mi.sta
	case domain.RoleAP:
		profile, perr := o.store.Load(ctx, ev.Name)
		if perr != nil {
			eapol.Close()
			return fmt.Errorf("load AP profile for %s: %w", ev.Name, perr)
		}
		cfg, cerr := apConfigFromProfile(profile)
		if cerr != nil {
			eapol.Close()
			return cerr
		}
		mi.ap = apfsm.New(ev.IfIndex, ev.MAC, cfg, o.transport, o.link, eapol, o.clock, o.log, o.sink.Emit)
		iface.FSM = mi.ap
		if err := mi.ap.Start(ctx); err != nil {
			eapol.Close()
			return fmt.Errorf("start AP: %w", err)
		}
	}

	o.mu.Lock()
	o.ifcs[ev.IfIndex] = mi
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) removeInterface(ifIndex int) {
	o.mu.Lock()
	mi, ok := o.ifcs[ifIndex]
	if ok {
		delete(o.ifcs, ifIndex)
	}
	o.mu.Unlock()
	if !ok {
		return
	}
	if mi.ap != nil {
		mi.ap.Stop(context.Background())
	}
	if mi.sta != nil {
		mi.sta.Disconnect(context.Background())
	}
	mi.eapol.Close()
}

// interfaceRole issues a GET_INTERFACE query and maps the reported
// NL80211_IFTYPE to a Role; an unrecognized type yields RoleNone so the
// netdev is tracked but left unmanaged.
func (o *Orchestrator) interfaceRole(ctx context.Context, ifIndex int) (domain.Role, error) {
	resCh := make(chan ports.CommandResult, 1)
	_, err := o.transport.Send(ctx, ifIndex, ports.CmdGetInterface, ports.Attrs{
		ports.AttrIfindex: uint32(ifIndex),
	}, func(r ports.CommandResult) { resCh <- r })
	if err != nil {
		return domain.RoleNone, err
	}
	res := <-resCh
	if res.Err != nil {
		return domain.RoleNone, res.Err
	}
	var iftype uint32
	switch v := res.Attrs[ports.AttrIftype].(type) {
	case uint32:
		iftype = v
	case []byte:
		if len(v) >= 4 {
			iftype = uint32(v[0]) | uint32(v[1])<<8 | uint32(v[2])<<16 | uint32(v[3])<<24
		}
	}
	switch iftype {
	case ports.IftypeStation:
		return domain.RoleSTA, nil
	case ports.IftypeAP:
		return domain.RoleAP, nil
	default:
		return domain.RoleNone, nil
	}
}

// apConfigFromProfile maps a persisted NetworkProfile onto apfsm.Config
// (§4.9). Profiles that name anything other than "psk" security are
// rejected: Open-System-only AP association per §4.7 only has meaning paired
// with RSN/PSK or WSC enrollment, never an unauthenticated WPA-less AP.
func apConfigFromProfile(p domain.NetworkProfile) (apfsm.Config, error) {
	if !p.IsAP {
		return apfsm.Config{}, fmt.Errorf("profile %q is not an AP profile", p.SSID)
	}
	rsn := domain.RSNInfo{
		GroupCipher:     domain.CipherCCMP,
		PairwiseCiphers: []domain.Cipher{domain.CipherCCMP},
		AKMSuites:       []domain.AKM{domain.AKMPSK},
	}
	return apfsm.Config{
		SSID:       p.SSID,
		Capability: 0x0011,
		Rates:      []ie.Rate{{Value: 2, Basic: true}, {Value: 11, Basic: true}, {Value: 54, Basic: false}},
		RSN:        rsn,
		AKM:        domain.AKMPSK,
		Cipher:     domain.CipherCCMP,
		PMK:        crypto.DerivePMKFromPassphrase(p.Passphrase, p.SSID),
	}, nil
}

// Connect begins a STA-role connection attempt on ifIndex (§4.10 Connect).
// The caller's onConnect is instrumented with handshake success/failure
// counters (§4.11) since stafsm never emits a dedicated failure Event.
func (o *Orchestrator) Connect(ctx context.Context, ifIndex int, target domain.BSSDescriptor, hs *domain.Handshake, akm domain.AKM, cipher domain.Cipher, onConnect domain.ConnectCallback, onEvent domain.EventCallback) error {
	mi, err := o.lookupSTA(ifIndex)
	if err != nil {
		return err
	}
	return mi.sta.Connect(ctx, target, hs, akm, cipher, telemetry.WrapConnectCallback("sta", onConnect), onEvent)
}

// Disconnect tears down ifIndex's active connection (§4.10 Disconnect).
func (o *Orchestrator) Disconnect(ctx context.Context, ifIndex int) error {
	mi, err := o.lookupSTA(ifIndex)
	if err != nil {
		return err
	}
	mi.sta.Disconnect(ctx)
	return nil
}

// PushButton activates WSC Push-Button registration on an AP-role interface
// (§4.10 PushButton).
func (o *Orchestrator) PushButton(ctx context.Context, ifIndex int) error {
	mi, err := o.lookupAP(ifIndex)
	if err != nil {
		return err
	}
	mi.ap.PushButton(ctx)
	return nil
}

// StopAP tears down an AP-role interface (§4.10 StopAP).
func (o *Orchestrator) StopAP(ctx context.Context, ifIndex int) error {
	mi, err := o.lookupAP(ifIndex)
	if err != nil {
		return err
	}
	mi.ap.Stop(ctx)
	return nil
}

// StartAP activates the AP role on an already-discovered netdev using the
// given profile (§4.10 StartAP). Unlike the automatic profile lookup in
// addInterface, the profile is supplied directly by the caller rather than
// loaded from the store; it is persisted afterward under its SSID. Discovery
// loads AP profiles by interface name, so after a restart the profile is
// picked up again only when its SSID equals the interface name.
func (o *Orchestrator) StartAP(ctx context.Context, ifIndex int, profile domain.NetworkProfile) error {
	o.mu.Lock()
	mi, ok := o.ifcs[ifIndex]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("orchestrator: interface %d is not managed", ifIndex)
	}
	if mi.ap != nil {
		return fmt.Errorf("orchestrator: AP already running on interface %d", ifIndex)
	}

	cfg, err := apConfigFromProfile(profile)
	if err != nil {
		return err
	}
	mi.ap = apfsm.New(ifIndex, mi.iface.MAC, cfg, o.transport, o.link, mi.eapol, o.clock, o.log, o.sink.Emit)
	mi.iface.FSM = mi.ap
	if err := mi.ap.Start(ctx); err != nil {
		mi.ap = nil
		mi.iface.FSM = nil
		return fmt.Errorf("start AP: %w", err)
	}

	if err := o.store.Save(ctx, profile); err != nil {
		o.log.Warn("orchestrator: persist AP profile failed", "ifindex", ifIndex, "err", err)
	}
	return nil
}

// GetOrderedNetworks returns every configured network profile, ordered by
// SSID (§4.10 GetOrderedNetworks). The distilled spec names this RPC without
// defining live-scan ranking semantics and no scan-trigger nl80211 command
// is part of the wire contract (§6), so this reports the daemon's configured
// profiles rather than an active scan result.
func (o *Orchestrator) GetOrderedNetworks(ctx context.Context) ([]domain.NetworkProfile, error) {
	profiles, err := o.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].SSID < profiles[j].SSID })
	return profiles, nil
}

// StationStatus is the snapshot GetStationStatus reports for a STA-role
// interface (§4.10 GetStationStatus).
type StationStatus struct {
	State domain.ConnState
	BSSID [6]byte
	SSID  string
}

// GetStationStatus reports the current connection state of a STA-role
// interface (§4.10 GetStationStatus).
func (o *Orchestrator) GetStationStatus(ifIndex int) (StationStatus, error) {
	mi, err := o.lookupSTA(ifIndex)
	if err != nil {
		return StationStatus{}, err
	}
	state, bssid, ssid := mi.sta.Status()
	return StationStatus{State: state, BSSID: bssid, SSID: ssid}, nil
}

func (o *Orchestrator) lookupSTA(ifIndex int) (*managedInterface, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	mi, ok := o.ifcs[ifIndex]
	if !ok || mi.sta == nil {
		return nil, fmt.Errorf("orchestrator: no STA-role interface %d", ifIndex)
	}
	return mi, nil
}

func (o *Orchestrator) lookupAP(ifIndex int) (*managedInterface, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	mi, ok := o.ifcs[ifIndex]
	if !ok || mi.ap == nil {
		return nil, fmt.Errorf("orchestrator: no AP-role interface %d", ifIndex)
	}
	return mi, nil
}
