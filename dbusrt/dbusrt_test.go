package dbusrt_test

import (
	"context"
	"errors"
	"testing"

	"github.com/danderson/dbus/fragments"

	"chromiumos/dbusbindings/dbusrt"
)

type fakeConn struct {
	emitted    []string
	calls      []string
	notified   []string
	subscribed []string
}

func (f *fakeConn) Emit(_ context.Context, interfaceName, member string, _ *fragments.Encoder) error {
	f.emitted = append(f.emitted, interfaceName+"."+member)
	return nil
}

func (f *fakeConn) Call(_ context.Context, destination, path, interfaceName, member string, _ *fragments.Encoder) (*fragments.Decoder, error) {
	f.calls = append(f.calls, destination+path+interfaceName+member)
	return &fragments.Decoder{}, nil
}

func (f *fakeConn) Notify(_ context.Context, destination, path, interfaceName, member string, _ *fragments.Encoder) error {
	f.notified = append(f.notified, destination+path+interfaceName+member)
	return nil
}

func (f *fakeConn) Subscribe(_ context.Context, path, interfaceName, member string, handler func(dec *fragments.Decoder) error) (func(), error) {
	f.subscribed = append(f.subscribed, path+interfaceName+member)
	cancelled := false
	return func() { cancelled = true; _ = cancelled }, handler(&fragments.Decoder{})
}

var (
	_ dbusrt.Emitter          = (*fakeConn)(nil)
	_ dbusrt.Caller           = (*fakeConn)(nil)
	_ dbusrt.SignalSubscriber = (*fakeConn)(nil)
)

func TestEmitterRecordsMember(t *testing.T) {
	f := &fakeConn{}
	if err := f.Emit(context.Background(), "com.example.Echo", "Pinged", &fragments.Encoder{}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if len(f.emitted) != 1 || f.emitted[0] != "com.example.Echo.Pinged" {
		t.Errorf("emitted = %v", f.emitted)
	}
}

func TestCallerNotifySkipsReply(t *testing.T) {
	f := &fakeConn{}
	err := f.Notify(context.Background(), "com.example.Echo", "/com/example/Echo", "com.example.Echo", "Ping", &fragments.Encoder{})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if len(f.calls) != 0 {
		t.Errorf("Notify should not record a Call, got %v", f.calls)
	}
	if len(f.notified) != 1 {
		t.Errorf("notified = %v", f.notified)
	}
}

func TestSignalSubscriberInvokesHandler(t *testing.T) {
	f := &fakeConn{}
	var invoked bool
	handler := func(dec *fragments.Decoder) error {
		invoked = true
		return errors.New("handler error is logged, not fatal to the subscription")
	}
	cancel, err := f.Subscribe(context.Background(), "/com/example/Echo", "com.example.Echo", "Pinged", handler)
	if err == nil {
		t.Fatalf("expected the handler's error back from Subscribe in this fake")
	}
	if !invoked {
		t.Error("handler was not invoked")
	}
	cancel()
}
