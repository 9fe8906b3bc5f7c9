package ports

import (
	"context"

	"github.com/lcalzada-xor/wired/internal/core/domain"
)

// ConfigStore persists network profiles and PEM material as opaque blobs
// (§4.9, §6 "Persisted state"). The core calls only this contract; it never
// parses INI or PEM text itself.
type ConfigStore interface {
	Load(ctx context.Context, ssid string) (domain.NetworkProfile, error)
	Save(ctx context.Context, profile domain.NetworkProfile) error
	Delete(ctx context.Context, ssid string) error
	List(ctx context.Context) ([]domain.NetworkProfile, error)
}

// EventSink receives Event values emitted by the FSMs (§6) for relay to the
// control surface (§4.10).
type EventSink interface {
	Emit(domain.Event)
}
