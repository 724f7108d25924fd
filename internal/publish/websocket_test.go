package publish

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rollstate/internal/motion"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_Publish(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dialHub(t, srv)
	waitForClients(t, hub, 1)

	want := Transition{Millis: 30, From: motion.LabelOnFace, To: motion.LabelRolling}
	require.NoError(t, hub.Publish(want))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Transition
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, want, got)
}

func TestHub_LateClientGetsLastTransition(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	last := Transition{Millis: 50, From: motion.LabelRolling, To: motion.LabelOnFace}
	require.NoError(t, hub.Publish(Transition{Millis: 10, From: motion.LabelUnknown, To: motion.LabelRolling}))
	require.NoError(t, hub.Publish(last))

	conn := dialHub(t, srv)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Transition
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, last, got)
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
	require.NoError(t, hub.Close())
}

type failingPublisher struct{ err error }

func (p failingPublisher) Publish(Transition) error { return p.err }
func (p failingPublisher) Close() error             { return p.err }

func TestMulti(t *testing.T) {
	boom := errors.New("boom")
	client := &fakeClient{}
	m := Multi{newMQTTPublisher(client, "t", time.Second), failingPublisher{err: boom}, NopPublisher{}}

	err := m.Publish(Transition{To: motion.LabelHandling})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, client.sent, 1)

	assert.ErrorIs(t, m.Close(), boom)
	assert.True(t, client.disconnected)

	assert.NoError(t, Multi{}.Publish(Transition{}))
}

func TestHub_ServeStatus(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	rec := httptest.NewRecorder()
	hub.ServeStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"clients":0,"last":null}`, rec.Body.String())

	require.NoError(t, hub.Publish(Transition{Millis: 30, From: motion.LabelOnFace, To: motion.LabelRolling}))
	rec = httptest.NewRecorder()
	hub.ServeStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.JSONEq(t, `{"clients":0,"last":{"millis":30,"from":"OnFace","to":"Rolling"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	hub.ServeStatus(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
