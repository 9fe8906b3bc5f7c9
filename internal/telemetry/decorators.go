package telemetry

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/lcalzada-xor/wired/internal/core/ports"
)

var tracer = otel.Tracer("github.com/lcalzada-xor/wired")

// TracingTransport wraps a ports.Transport so every netlink round-trip opens
// an OTel span (§4.11 "OTel spans wrap every netlink round-trip"). It adds no
// behavior of its own; Send's completion callback still runs on whatever
// goroutine the wrapped Transport invokes it on.
type TracingTransport struct {
	ports.Transport
}

// NewTracingTransport returns t wrapped for span instrumentation.
func NewTracingTransport(t ports.Transport) *TracingTransport {
	return &TracingTransport{Transport: t}
}

func (t *TracingTransport) Send(ctx context.Context, ifIndex int, cmd uint8, attrs ports.Attrs, on ports.ResultFunc) (uint32, error) {
	ctx, span := tracer.Start(ctx, "netlink.send", trace.WithAttributes(
		attribute.Int("nl80211.ifindex", ifIndex),
		attribute.Int("nl80211.command", int(cmd)),
	))
	wrapped := func(r ports.CommandResult) {
		if r.Err != nil {
			span.RecordError(r.Err)
			span.SetStatus(codes.Error, r.Err.Error())
		}
		span.End()
		if on != nil {
			on(r)
		}
	}
	id, err := t.Transport.Send(ctx, ifIndex, cmd, attrs, wrapped)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
	}
	return id, err
}

// InstrumentedSink wraps a ports.EventSink to turn FSM transitions (§4.11
// "FSM transition" spans) into Prometheus active-station and PBC-overlap
// metrics. Every event kind still reaches the wrapped sink unchanged.
type InstrumentedSink struct {
	next ports.EventSink
}

// NewInstrumentedSink returns sink wrapped for metrics and span emission.
func NewInstrumentedSink(sink ports.EventSink) *InstrumentedSink {
	return &InstrumentedSink{next: sink}
}

func (s *InstrumentedSink) Emit(ev domain.Event) {
	_, span := tracer.Start(context.Background(), "fsm.transition", trace.WithAttributes(
		attribute.String("wired.event_kind", ev.Kind.String()),
		attribute.Int("nl80211.ifindex", ev.IfIndex),
	))
	defer span.End()

	ifIndex := strconv.Itoa(ev.IfIndex)
	switch ev.Kind {
	case domain.EventStationAdded:
		StationsActive.WithLabelValues(ifIndex).Inc()
	case domain.EventStationRemoved:
		StationsActive.WithLabelValues(ifIndex).Dec()
	case domain.EventPbcModeExit:
		PBCOverlapsTotal.WithLabelValues(ifIndex).Inc()
	}

	if s.next != nil {
		s.next.Emit(ev)
	}
}

// WrapConnectCallback instruments a STA-role domain.ConnectCallback with
// handshake success/failure counters (§4.11). Handshake failure is only
// observable through this callback's *ConnError — stafsm never emits a
// dedicated failure Event — so this is the one place that can count it.
func WrapConnectCallback(role string, next domain.ConnectCallback) domain.ConnectCallback {
	return func(err *domain.ConnError) {
		if err == nil {
			HandshakesSucceeded.WithLabelValues(role).Inc()
		} else {
			HandshakesFailed.WithLabelValues(role, err.Kind.String()).Inc()
		}
		if next != nil {
			next(err)
		}
	}
}

// SetAIDUtilization records the current fraction of the AID space assigned
// on an AP interface (§4.11 "AID utilization"). assigned and max are the
// apfsm.FSM's lastAID counter and domain.MaxAID respectively.
func SetAIDUtilization(ifIndex int, assigned, max uint16) {
	if max == 0 {
		return
	}
	AIDUtilization.WithLabelValues(strconv.Itoa(ifIndex)).Set(float64(assigned) / float64(max))
}
