package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trialdash/trialdash/pkg/types"
	"github.com/trialdash/trialdash/server/internal/store"
	wsHub "github.com/trialdash/trialdash/server/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

func dataset(area string, subjects int) *types.Dataset {
	return &types.Dataset{
		Resources: []types.Resource{
			{Name: "R", Area: area, Capacity: map[string]float64{"Q1-2025": 10}},
		},
		Trials: []types.Trial{{Name: "T", Area: area, Subjects: subjects}},
	}
}

func newStore(ds *types.Dataset) *store.Store {
	st := store.New()
	if ds != nil {
		st.Replace(ds, "test")
	}
	return st
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
// Returns the ws:// URL, the hub, and a cancel function.
func startHub(t *testing.T, st *store.Store, interval time.Duration) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(st, interval)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one message from conn with a short deadline and decodes it.
func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func bottlenecks(t *testing.T, m map[string]interface{}) []interface{} {
	t.Helper()
	data, ok := m["data"].(map[string]interface{})
	if !ok {
		t.Fatal("data: missing or wrong type")
	}
	list, ok := data["bottlenecks"].([]interface{})
	if !ok {
		t.Fatal("bottlenecks: missing or wrong type")
	}
	return list
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateDashboard(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore(dataset("Onc", 650)), time.Hour)

	m := readMessage(t, dial(t, wsURL))
	if m["event"] != wsHub.EventDashboard {
		t.Errorf("event: got %v, want %s", m["event"], wsHub.EventDashboard)
	}
	data := m["data"].(map[string]interface{})
	if data["generated_at"] == nil || data["generated_at"] == "" {
		t.Error("generated_at: missing")
	}
	summary := data["summary"].(map[string]interface{})
	if summary["total_trials"].(float64) != 1 {
		t.Errorf("total_trials: got %v, want 1", summary["total_trials"])
	}
	if list := bottlenecks(t, m); len(list) != 1 {
		t.Errorf("bottlenecks: got %d, want 1", len(list))
	}
}

func TestHub_EmptyStore_EmptyBottlenecks(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore(nil), time.Hour)
	m := readMessage(t, dial(t, wsURL))
	if list := bottlenecks(t, m); len(list) != 0 {
		t.Errorf("bottlenecks: got %d, want 0", len(list))
	}
}

func TestHub_CountClients(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore(nil), time.Hour)

	for i := 0; i < 3; i++ {
		conn := dial(t, wsURL)
		readMessage(t, conn) // consume initial message
	}

	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}
}

func TestHub_CountClients_DecreasesOnDisconnect(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore(nil), time.Hour)

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	if n := hub.Count(); n != 1 {
		t.Errorf("Count before disconnect: got %d, want 1", n)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after disconnect: got %d, want 0", n)
	}
}

func TestHub_ReceivesBroadcastOnTick(t *testing.T) {
	st := newStore(nil)
	wsURL, _, _ := startHub(t, st, testInterval)

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume immediate dashboard (empty store)

	st.Replace(dataset("Cardio", 1300), "tick")

	// A later tick carries the new dataset.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		list := bottlenecks(t, readMessage(t, conn))
		if len(list) == 0 {
			continue
		}
		rec := list[0].(map[string]interface{})
		if rec["therapeutic_area"] != "Cardio" {
			t.Errorf("therapeutic_area: got %v, want Cardio", rec["therapeutic_area"])
		}
		return
	}
	t.Fatal("no broadcast carried the new dataset")
}

func TestHub_BroadcastPushesImmediately(t *testing.T) {
	st := newStore(nil)
	wsURL, hub, _ := startHub(t, st, time.Hour)

	conns := []*websocket.Conn{dial(t, wsURL), dial(t, wsURL)}
	for _, c := range conns {
		readMessage(t, c)
	}
	time.Sleep(10 * time.Millisecond)

	st.Replace(dataset("Onc", 650), "upload")
	hub.Broadcast()

	for i, c := range conns {
		if list := bottlenecks(t, readMessage(t, c)); len(list) != 1 {
			t.Errorf("client %d: got %d bottlenecks, want 1", i, len(list))
		}
	}
}

func TestHub_MessagesCarrySeqAndDatasetID(t *testing.T) {
	st := newStore(nil)
	wsURL, hub, _ := startHub(t, st, time.Hour)

	conn := dial(t, wsURL)
	first := readMessage(t, conn)
	if _, ok := first["dataset_id"]; ok {
		t.Errorf("dataset_id before any load: got %v, want absent", first["dataset_id"])
	}
	time.Sleep(10 * time.Millisecond)

	snap := st.Replace(dataset("Onc", 650), "upload")
	hub.Broadcast()

	next := readMessage(t, conn)
	if next["dataset_id"] != snap.ID {
		t.Errorf("dataset_id: got %v, want %s", next["dataset_id"], snap.ID)
	}
	if next["seq"].(float64) != first["seq"].(float64)+1 {
		t.Errorf("seq: got %v after %v, want consecutive", next["seq"], first["seq"])
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, newStore(nil), time.Hour)

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	cancel() // signal shutdown

	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(newStore(nil), testInterval)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	// Plain HTTP GET without upgrade headers.
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
