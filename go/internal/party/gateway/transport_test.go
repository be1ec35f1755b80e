package gateway

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/quizparty/go/internal/apperr"
	"github.com/mcdev12/quizparty/go/internal/party/events"
	"github.com/mcdev12/quizparty/go/internal/party/state"
)

type wireFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, proj state.Projector) (*httptest.Server, *ConnectionManager) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(t0)
	feed := NewFeed(proj, events.NewMemoryBus(clock, time.Hour), clock, DefaultConfig())
	cm := NewConnectionManager(feed, DefaultConnectionConfig())

	mux := http.NewServeMux()
	NewSSEHandler(feed).RegisterRoutes(mux)
	NewWebSocketHandler(cm).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		cm.CloseAll()
		srv.Close()
	})
	return srv, cm
}

func TestSSEStreamsSnapshot(t *testing.T) {
	srv, _ := newTestServer(t, &fakeProjector{})
	partyID := uuid.New()

	resp, err := http.Get(srv.URL + "/api/parties/" + partyID.String() + "/stream?playerToken=tok")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	data, err := reader.ReadString('\n')
	if err != nil || !strings.HasPrefix(data, "data: ") {
		t.Fatalf("first line = %q err = %v", data, err)
	}
	var snap state.Snapshot
	if err := json.Unmarshal([]byte(strings.TrimPrefix(data, "data: ")), &snap); err != nil {
		t.Fatalf("data line %q: %v", data, err)
	}
	if !snap.OK || snap.Party.ID != partyID {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSSEEndsOnTerminalError(t *testing.T) {
	srv, _ := newTestServer(t, &fakeProjector{errs: []error{apperr.NotFound("party not found")}})

	resp, err := http.Get(srv.URL + "/api/parties/" + uuid.NewString() + "/stream")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	want := "event: error\ndata: {\"ok\":false,\"error\":\"party not found\"}\n\n"
	if string(body) != want {
		t.Fatalf("body = %q", body)
	}
}

func TestSSERejectsBadPartyID(t *testing.T) {
	srv, _ := newTestServer(t, &fakeProjector{})

	resp, err := http.Get(srv.URL + "/api/parties/not-a-uuid/stream")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func dialParty(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/party?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wireFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f wireFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	return f
}

func TestWebSocketStreamsSnapshot(t *testing.T) {
	srv, cm := newTestServer(t, &fakeProjector{})
	partyID := uuid.New()

	conn := dialParty(t, srv, "party_id="+partyID.String()+"&player_token=tok")
	f := readFrame(t, conn)
	if f.Event != EventState {
		t.Fatalf("frame = %+v", f)
	}
	var snap state.Snapshot
	if err := json.Unmarshal(f.Data, &snap); err != nil || snap.Party.ID != partyID {
		t.Fatalf("snapshot = %+v err = %v", snap, err)
	}

	stats := cm.GetConnectionStats()
	if stats.TotalConnections != 1 || stats.PartyConnections[partyID.String()] != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	resp, err := http.Get(srv.URL + "/ws/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body ConnectionStats
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.ActiveParties != 1 {
		t.Fatalf("stats body = %+v", body)
	}
}

func TestWebSocketClosesAfterRemoval(t *testing.T) {
	srv, _ := newTestServer(t, &fakeProjector{errs: []error{apperr.Removed()}})

	conn := dialParty(t, srv, "party_id="+uuid.NewString()+"&player_token=kicked")
	f := readFrame(t, conn)
	if f.Event != EventError || !strings.Contains(string(f.Data), `"removed"`) {
		t.Fatalf("frame = %+v", f)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected a normal close, got %v", err)
	}
}

func TestWebSocketRequiresPartyID(t *testing.T) {
	srv, _ := newTestServer(t, &fakeProjector{})

	resp, err := http.Get(srv.URL + "/ws/party")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
