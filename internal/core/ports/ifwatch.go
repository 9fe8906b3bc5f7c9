package ports

import "context"

// InterfaceEvent is delivered by an InterfaceWatcher on kernel NEWLINK/DELLINK
// notifications (§4.8 "subscribes to kernel interface add/remove
// notifications").
type InterfaceEvent struct {
	IfIndex int
	Name    string
	MAC     [6]byte
	Up      bool
	Removed bool
}

// InterfaceWatcher enumerates existing netdevs and reports subsequent
// add/remove notifications to the orchestrator (§4.8).
type InterfaceWatcher interface {
	List(ctx context.Context) ([]InterfaceEvent, error)
	Subscribe(handler func(InterfaceEvent)) error
	Close() error
}
