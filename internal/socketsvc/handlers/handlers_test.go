package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/gatortots-services/internal/auth"
	"github.com/avvvet/gatortots-services/internal/comm"
	"github.com/avvvet/gatortots-services/internal/socketsvc/broker"
	"github.com/avvvet/gatortots-services/internal/socketsvc/handlers"
	"github.com/avvvet/gatortots-services/internal/socketsvc/routes"
	"github.com/avvvet/gatortots-services/internal/socketsvc/ws"
	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu   sync.Mutex
	msgs []comm.WSMessage
}

func (c *fakeConn) Publish(subj string, data []byte) error {
	var m comm.WSMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if subj != comm.SocketSubject {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *fakeConn) find(typ string) (comm.WSMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.msgs {
		if m.Type == typ {
			return m, true
		}
	}
	return comm.WSMessage{}, false
}

func (c *fakeConn) count(typ string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.msgs {
		if m.Type == typ {
			n++
		}
	}
	return n
}

type testServer struct {
	url    string
	conn   *fakeConn
	broker *broker.Broker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ja := auth.New("test-secret")
	s := ws.NewWs()
	conn := &fakeConn{}
	b := broker.NewBroker(conn, s)
	s.Broker = b

	r := chi.NewRouter()
	routes.SetRoutes(r, handlers.NewHandler(s, "0", nil), ja)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testServer{url: srv.URL, conn: conn, broker: b}
}

func (ts *testServer) dial(t *testing.T, userID int64) *websocket.Conn {
	t.Helper()
	token, err := auth.Token(auth.New("test-secret"), auth.User{ID: userID, Username: "u"}, time.Hour)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(ts.url, "http") + "/v1/ws?jwt=" + token
	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func readMessage(t *testing.T, c *websocket.Conn) comm.WSMessage {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m comm.WSMessage
	require.NoError(t, c.ReadJSON(&m))
	return m
}

func TestUpgradeRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.url, "http") + "/v1/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	health, err := http.Get(ts.url + "/v1/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestRelayAndRoomDelivery(t *testing.T) {
	ts := newTestServer(t)
	c := ts.dial(t, 42)

	require.NoError(t, c.WriteJSON(comm.WSMessage{
		Type:   comm.TypeJoinRoom,
		UserId: 999, // ignored, the token decides
		Data:   json.RawMessage(`{"roomId":5}`),
	}))

	var join comm.WSMessage
	require.Eventually(t, func() bool {
		var ok bool
		join, ok = ts.conn.find(comm.TypeJoinRoom)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(42), join.UserId)
	assert.NotEmpty(t, join.SocketId)
	assert.Zero(t, join.RoomId)

	// the game service admits the socket, then talks to the room
	ts.broker.Deliver(&comm.WSMessage{Type: comm.TypeRoomJoined, RoomId: 5, SocketId: join.SocketId, UserId: 42})
	assert.Equal(t, comm.TypeRoomJoined, readMessage(t, c).Type)

	ts.broker.Deliver(&comm.WSMessage{Type: comm.TypeSupposedRank, RoomId: 5, Data: json.RawMessage(`{"supposedRank":5}`)})
	got := readMessage(t, c)
	assert.Equal(t, comm.TypeSupposedRank, got.Type)
	assert.JSONEq(t, `{"supposedRank":5}`, string(got.Data))

	ts.broker.Deliver(&comm.WSMessage{Type: comm.TypeHand, UserId: 42, Data: json.RawMessage(`{"cards":[1]}`)})
	assert.Equal(t, comm.TypeHand, readMessage(t, c).Type)

	// later events carry the room
	require.NoError(t, c.WriteJSON(comm.WSMessage{Type: comm.TypeChatSend, Data: json.RawMessage(`{"content":"hi"}`)}))
	require.Eventually(t, func() bool {
		m, ok := ts.conn.find(comm.TypeChatSend)
		return ok && m.RoomId == 5
	}, 2*time.Second, 10*time.Millisecond)

	ts.broker.Deliver(&comm.WSMessage{Type: comm.TypeRoomLeft, RoomId: 5})
	assert.Equal(t, comm.TypeRoomLeft, readMessage(t, c).Type)

	require.NoError(t, c.Close())
	require.Eventually(t, func() bool {
		m, ok := ts.conn.find(comm.TypeDisconnect)
		return ok && m.UserId == 42
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUnknownEventIsRejected(t *testing.T) {
	ts := newTestServer(t)
	c := ts.dial(t, 7)

	require.NoError(t, c.WriteJSON(comm.WSMessage{Type: "game:cheat"}))
	got := readMessage(t, c)
	assert.Equal(t, comm.TypeError, got.Type)

	var ev comm.ErrorEvent
	require.NoError(t, json.Unmarshal(got.Data, &ev))
	assert.Equal(t, "UNKNOWN_TYPE", ev.Code)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("not json")))
	got = readMessage(t, c)
	require.NoError(t, json.Unmarshal(got.Data, &ev))
	assert.Equal(t, "BAD_REQUEST", ev.Code)
}

func TestDisconnectOnlyAfterLastSocket(t *testing.T) {
	ts := newTestServer(t)
	a := ts.dial(t, 9)
	b := ts.dial(t, 9)

	// both sockets are registered once their messages are relayed
	require.NoError(t, a.WriteJSON(comm.WSMessage{Type: comm.TypeStart}))
	require.NoError(t, b.WriteJSON(comm.WSMessage{Type: comm.TypeStart}))
	require.Eventually(t, func() bool {
		return ts.conn.count(comm.TypeStart) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Close())
	time.Sleep(100 * time.Millisecond)
	_, ok := ts.conn.find(comm.TypeDisconnect)
	assert.False(t, ok)

	require.NoError(t, b.Close())
	require.Eventually(t, func() bool {
		_, ok := ts.conn.find(comm.TypeDisconnect)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}
