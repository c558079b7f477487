package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/reflex/go/internal/reaction/config"
	"github.com/mcdev12/reflex/go/internal/reaction/engine"
	"github.com/mcdev12/reflex/go/internal/reaction/events"
)

type testServer struct {
	server  *httptest.Server
	service *Service
	clock   *clockwork.FakeClock
}

func newTestServer(t *testing.T, sink engine.Notifier) *testServer {
	t.Helper()

	settings := config.Default()
	settings.TotalRounds = 2
	settings.CueDelayMin = time.Second
	settings.CueDelayMax = time.Second

	clk := clockwork.NewFakeClock()
	cfg := DefaultConfig()
	cfg.Settings = settings
	cfg.Sink = sink
	cfg.EngineOptions = []engine.Option{engine.WithClock(clk)}

	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	r := chi.NewRouter()
	svc.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		svc.Stop()
		srv.Close()
	})

	return &testServer{server: srv, service: svc, clock: clk}
}

func (ts *testServer) dial(t *testing.T) (*websocket.Conn, string) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/ws/game"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	ev := readEvent(t, conn, events.EventTypeSessionOpened)
	payload, err := events.ParsePayload(ev)
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	opened := payload.(events.SessionOpenedPayload)
	if opened.TotalRounds != 2 {
		t.Fatalf("expected 2 rounds got %d", opened.TotalRounds)
	}
	return conn, opened.SessionID
}

func (ts *testServer) getJSON(t *testing.T, path string, v any) int {
	t.Helper()
	resp, err := http.Get(ts.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func send(t *testing.T, conn *websocket.Conn, cmd CommandType) {
	t.Helper()
	if err := conn.WriteJSON(ClientCommand{Type: cmd}); err != nil {
		t.Fatalf("write %s: %v", cmd, err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn, want events.EventType) events.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev events.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event (want %s): %v", want, err)
	}
	if ev.Type != want {
		t.Fatalf("expected event %s got %s (%+v)", want, ev.Type, ev)
	}
	return ev
}

func TestGatewayEarlyClickRoundTrip(t *testing.T) {
	ts := newTestServer(t, nil)
	conn, sessionID := ts.dial(t)

	send(t, conn, CommandStart)
	started := readEvent(t, conn, events.EventTypeGameStarted)
	waiting := readEvent(t, conn, events.EventTypeRoundWaiting)
	if waiting.Label != events.LabelGetReady || waiting.Round != 1 || waiting.GameID != started.GameID {
		t.Fatalf("unexpected waiting event %+v", waiting)
	}

	send(t, conn, CommandActivate)
	early := readEvent(t, conn, events.EventTypeEarlyClick)
	if early.Label != "Too soon! -40 pts" || early.Round != 2 {
		t.Fatalf("unexpected early click event %+v", early)
	}

	var snap engine.Snapshot
	if status := ts.getJSON(t, "/api/sessions/"+sessionID+"/state", &snap); status != http.StatusOK {
		t.Fatalf("expected 200 got %d", status)
	}
	if snap.Phase != engine.PhaseCooldown || snap.Score != -40 || snap.EarlyCount != 1 || snap.GameID != started.GameID {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestGatewayValidClick(t *testing.T) {
	ts := newTestServer(t, nil)
	conn, _ := ts.dial(t)

	send(t, conn, CommandStart)
	readEvent(t, conn, events.EventTypeGameStarted)
	readEvent(t, conn, events.EventTypeRoundWaiting)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ts.clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("waiting for cue timer: %v", err)
	}
	ts.clock.Advance(time.Second)
	readEvent(t, conn, events.EventTypeCueShown)

	ts.clock.Advance(200 * time.Millisecond)
	send(t, conn, CommandActivate)
	ev := readEvent(t, conn, events.EventTypeReactionRecorded)
	if ev.Label != "Time: 200 ms (+400 pts)" {
		t.Fatalf("unexpected label %q", ev.Label)
	}
}

func TestGatewayQuitAndRestart(t *testing.T) {
	ts := newTestServer(t, nil)
	conn, _ := ts.dial(t)

	send(t, conn, CommandStart)
	first := readEvent(t, conn, events.EventTypeGameStarted)
	readEvent(t, conn, events.EventTypeRoundWaiting)

	send(t, conn, CommandQuit)
	readEvent(t, conn, events.EventTypeGameQuit)

	send(t, conn, CommandRestart)
	second := readEvent(t, conn, events.EventTypeGameStarted)
	readEvent(t, conn, events.EventTypeRoundWaiting)
	if first.GameID == second.GameID {
		t.Fatalf("expected restart to create a new game")
	}
}

func TestGatewayRejectsBadCommands(t *testing.T) {
	ts := newTestServer(t, nil)
	conn, _ := ts.dial(t)

	send(t, conn, CommandType("jump"))
	ev := readEvent(t, conn, events.EventTypeError)
	payload, err := events.ParsePayload(ev)
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if msg := payload.(events.ErrorPayload).Message; !strings.Contains(msg, "jump") {
		t.Fatalf("expected error to name the command got %q", msg)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	readEvent(t, conn, events.EventTypeError)

	// the connection survives bad input
	send(t, conn, CommandStart)
	readEvent(t, conn, events.EventTypeGameStarted)
}

func TestGatewaySessionRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	if status := ts.getJSON(t, "/api/sessions/not-a-uuid/state", nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", status)
	}
	if status := ts.getJSON(t, "/api/sessions/"+uuid.NewString()+"/state", nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", status)
	}

	var settings config.Settings
	if status := ts.getJSON(t, "/api/settings", &settings); status != http.StatusOK {
		t.Fatalf("expected 200 got %d", status)
	}
	if settings.TotalRounds != 2 {
		t.Fatalf("expected 2 rounds got %d", settings.TotalRounds)
	}

	conn, _ := ts.dial(t)
	var stats SessionStats
	ts.getJSON(t, "/ws/stats", &stats)
	if stats.TotalSessions != 1 || stats.Phases["idle"] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		ts.getJSON(t, "/ws/stats", &stats)
		if stats.TotalSessions == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session was not unregistered after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGatewayForwardsToSink(t *testing.T) {
	got := make(chan events.Event, 16)
	sink := engine.NotifierFunc(func(_ context.Context, ev events.Event) error {
		got <- ev
		return nil
	})
	ts := newTestServer(t, sink)
	conn, _ := ts.dial(t)

	send(t, conn, CommandStart)
	readEvent(t, conn, events.EventTypeGameStarted)

	select {
	case ev := <-got:
		if ev.Type != events.EventTypeGameStarted {
			t.Fatalf("expected GameStarted in sink got %s", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("sink received nothing")
	}
}
