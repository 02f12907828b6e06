package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openscribe/scribe/internal/store"
)

func dialTestWebSocket(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketBroadcast(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "scribe.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	srv := NewServer(Config{}, st)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialTestWebSocket(t, ts)

	// Registration races the broadcast; give the hub a beat to settle.
	time.Sleep(50 * time.Millisecond)

	srv.Hub().BroadcastDocument("updated", "proj-1", "doc-1", "rev-abc")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}

	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode broadcast: %v", err)
	}
	if msg.Type != "document" || msg.Operation != "updated" {
		t.Errorf("message = %+v", msg)
	}
	if msg.DocumentID != "doc-1" || msg.Revision != "rev-abc" {
		t.Errorf("message ids = %+v", msg)
	}
	if msg.Timestamp == "" {
		t.Error("expected timestamp to be populated")
	}
}

func TestEntryMutationBroadcast(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "scribe.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	srv := NewServer(Config{}, st)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	handler := srv.Handler()
	projID := createProject(t, handler)
	doc := createDocument(t, handler, projID)

	conn := dialTestWebSocket(t, ts)
	time.Sleep(50 * time.Millisecond)

	addBody := `{"entry": {"type": "corpus.Token",
	  "state": {"_span": {"begin": 10, "end": 15}, "_tid": 3, "pos": "NN"}}}`
	rec, _ := doRequest(t, handler, http.MethodPost, "/documents/"+doc.ID+"/entries", addBody, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("add entry: status %d, body %s", rec.Code, rec.Body.String())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}

	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode broadcast: %v", err)
	}
	if msg.Type != "entry" || msg.Operation != "added" {
		t.Errorf("message = %+v", msg)
	}
	if msg.DocumentID != doc.ID || msg.Revision == "" {
		t.Errorf("message ids = %+v", msg)
	}
}

func TestBroadcastOnNilHub(t *testing.T) {
	var h *Hub
	// Nil hub broadcasts are no-ops so handlers need no hub checks.
	h.BroadcastDocument("updated", "p", "d", "r")
	h.BroadcastEntry("added", "d", "r", nil)
}
