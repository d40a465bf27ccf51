package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alerts-service/internal/logging"
	"alerts-service/internal/models"
	"alerts-service/internal/registry"
)

type fakeAuth struct{}

func (fakeAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if token == "good" {
		return &models.User{ID: 7, Name: "pat"}, nil
	}
	return nil, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := registry.New(logging.NewNop(), 10)
	gw := NewGateway(fakeAuth{}, reg, logging.NewNop(), 5*time.Second)

	r := gin.New()
	r.GET("/ws", gw.Handle)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, reg
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, rawURL string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(rawURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	var frame map[string]interface{}
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestRejectsUpgradeWithoutCredential(t *testing.T) {
	srv, reg := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, reg.Count())

	_, _, err = websocket.DefaultDialer.Dial(wsURL(srv), nil)
	assert.Error(t, err)
	assert.Equal(t, 0, reg.Count())
}

func TestRejectsInvalidToken(t *testing.T) {
	srv, reg := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, reg.Count())
}

func TestSuccessfulHandshakeSendsConnected(t *testing.T) {
	srv, reg := newTestServer(t)

	conn := dial(t, wsURL(srv)+"?token=good", nil)

	frame := readFrame(t, conn)
	assert.Equal(t, "connected", frame["type"])
	ts, ok := frame["timestamp"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)

	require.Eventually(t, func() bool { return reg.IsConnected(7) }, time.Second, 10*time.Millisecond)
}

func TestSessionCookieFallback(t *testing.T) {
	srv, reg := newTestServer(t)

	header := http.Header{}
	header.Set("Cookie", "theme=dark; session=good")
	conn := dial(t, wsURL(srv), header)

	frame := readFrame(t, conn)
	assert.Equal(t, "connected", frame["type"])
	require.Eventually(t, func() bool { return reg.IsConnected(7) }, time.Second, 10*time.Millisecond)
}

func TestPingGetsPong(t *testing.T) {
	srv, _ := newTestServer(t)

	conn := dial(t, wsURL(srv)+"?token=good", nil)
	readFrame(t, conn) // connected

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	frame := readFrame(t, conn)
	assert.Equal(t, "pong", frame["type"])
	ts, ok := frame["timestamp"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)
}

func TestUnknownFrameIsDroppedConnectionStaysOpen(t *testing.T) {
	srv, _ := newTestServer(t)

	conn := dial(t, wsURL(srv)+"?token=good", nil)
	readFrame(t, conn) // connected

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "mystery"}))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	// the connection survives both: ping still answered
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	frame := readFrame(t, conn)
	assert.Equal(t, "pong", frame["type"])
}

func TestCloseRemovesFromRegistry(t *testing.T) {
	srv, reg := newTestServer(t)

	conn := dial(t, wsURL(srv)+"?token=good", nil)
	readFrame(t, conn) // connected
	require.Eventually(t, func() bool { return reg.IsConnected(7) }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return !reg.IsConnected(7) }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, reg.Count())
}

func TestMultipleSessionsPerUser(t *testing.T) {
	srv, reg := newTestServer(t)

	c1 := dial(t, wsURL(srv)+"?token=good", nil)
	c2 := dial(t, wsURL(srv)+"?token=good", nil)
	readFrame(t, c1)
	readFrame(t, c2)

	require.Eventually(t, func() bool { return len(reg.Get(7)) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, reg.Count())

	require.NoError(t, c1.Close())
	require.Eventually(t, func() bool { return len(reg.Get(7)) == 1 }, time.Second, 10*time.Millisecond)
	assert.True(t, reg.IsConnected(7))
}
