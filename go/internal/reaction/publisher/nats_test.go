package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/mcdev12/reflex/go/internal/reaction/events"
)

type message struct {
	subject string
	data    []byte
}

type fakeConn struct {
	published []message
	err       error
	closed    bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, message{subject: subject, data: data})
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

func TestNotifyPublishesEnvelope(t *testing.T) {
	conn := &fakeConn{}
	p := NewNATSPublisher(conn, "reflex.events")

	ev, err := events.New(uuid.New(), events.EventTypeEarlyClick, 2, events.TooSoonLabel(40),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), events.EarlyClickPayload{Penalty: 40, EarlyCount: 1, Score: -40})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := p.Notify(context.Background(), ev); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(conn.published) != 1 {
		t.Fatalf("expected one message got %d", len(conn.published))
	}
	if got := conn.published[0].subject; got != "reflex.events.EarlyClick" {
		t.Fatalf("unexpected subject %q", got)
	}

	var decoded events.Event
	if err := json.Unmarshal(conn.published[0].data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(ev, decoded); diff != "" {
		t.Fatalf("envelope mismatch (-want +got):\n%s", diff)
	}
}

func TestNotifyWrapsPublishError(t *testing.T) {
	boom := errors.New("connection closed")
	p := NewNATSPublisher(&fakeConn{err: boom}, "reflex")

	ev, err := events.New(uuid.New(), events.EventTypeGameQuit, 1, "", time.Now(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Notify(context.Background(), ev); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped publish error got %v", err)
	}
}

func TestClose(t *testing.T) {
	conn := &fakeConn{}
	NewNATSPublisher(conn, "reflex").Close()
	if !conn.closed {
		t.Fatalf("expected connection to be closed")
	}
}
