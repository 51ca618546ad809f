// Package dbusrt defines the narrow seam between generated adaptor/proxy
// code and whatever owns the actual D-Bus connection. The generators never
// assume a specific transport; they only need something that can hand back
// a fragments.Decoder for a call reply, accept a fragments.Encoder for an
// outgoing call or signal, and let a proxy subscribe to a signal by name.
package dbusrt

import (
	"context"

	"github.com/danderson/dbus/fragments"
)

// Emitter is implemented by the connection an adaptor is registered on. A
// generated EmitXxx method hands it an already-marshalled signal body.
type Emitter interface {
	Emit(ctx context.Context, interfaceName, member string, enc *fragments.Encoder) error
}

// Caller is implemented by the connection a proxy issues calls through.
// Call blocks until the reply arrives (or ctx is done) and returns a
// Decoder positioned at the start of the reply body; for a NoReply method
// a generated proxy calls Notify instead of Call.
type Caller interface {
	Call(ctx context.Context, destination, path, interfaceName, member string, enc *fragments.Encoder) (*fragments.Decoder, error)

	// Notify sends a method call flagged NO_REPLY_EXPECTED and returns as
	// soon as the message is queued for delivery: no pending-call entry is
	// created, and there is nothing to wait for. Used for methods carrying
	// the org.freedesktop.DBus.Method.NoReply annotation.
	Notify(ctx context.Context, destination, path, interfaceName, member string, enc *fragments.Encoder) error
}

// SignalSubscriber lets a generated proxy register a handler for a signal.
// The handler receives a Decoder positioned at the start of the signal's
// argument list; returning a non-nil error from handler logs but does not
// tear down the subscription. Cancel stops delivery.
type SignalSubscriber interface {
	Subscribe(ctx context.Context, path, interfaceName, member string, handler func(dec *fragments.Decoder) error) (cancel func(), err error)
}
