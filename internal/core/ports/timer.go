package ports

import "time"

// Timer is a single cancellable, one-shot alarm (§5 "Timers are cancellable
// with the same guarantee"). AfterFunc must not invoke fn after Stop returns.
type Timer interface {
	Stop() bool
}

// Clock creates Timers; production code uses the real clock, tests use a
// fake one to drive retransmit/timeout logic deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}
