package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/avvvet/gatortots-services/internal/comm"
	"github.com/avvvet/gatortots-services/internal/socketsvc/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu   sync.Mutex
	msgs []comm.WSMessage
}

func (c *capture) Publish(subj string, data []byte) error {
	var m comm.WSMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return nil
}

func newWs() (*Ws, *capture) {
	s := NewWs()
	pub := &capture{}
	s.Broker = broker.NewBroker(pub, s)
	return s, pub
}

func TestSocketMessageStampsSender(t *testing.T) {
	s, pub := newWs()
	s.StoreConnection("a", nil, 7)
	s.JoinRoom("a", 3)

	msg := &comm.WSMessage{Type: comm.TypeStart, UserId: 99, RoomId: 12}
	require.NoError(t, s.SocketMessage("a", msg))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "a", pub.msgs[0].SocketId)
	assert.EqualValues(t, 7, pub.msgs[0].UserId)
	assert.EqualValues(t, 3, pub.msgs[0].RoomId)
}

func TestSocketMessageRejects(t *testing.T) {
	s, pub := newWs()
	s.StoreConnection("a", nil, 7)

	assert.Error(t, s.SocketMessage("a", &comm.WSMessage{Type: comm.TypeUpdate}))
	assert.Error(t, s.SocketMessage("a", &comm.WSMessage{Type: comm.TypeDisconnect}))
	assert.ErrorIs(t, s.SocketMessage("ghost", &comm.WSMessage{Type: comm.TypeStart}), errUnknownSocket)
	assert.Empty(t, pub.msgs)
}

func TestRoomRegistry(t *testing.T) {
	s, _ := newWs()
	s.StoreConnection("a", nil, 1)
	s.StoreConnection("b", nil, 2)
	s.StoreConnection("c", nil, 2)

	s.JoinRoom("a", 5)
	s.JoinRoom("b", 5)
	s.JoinRoom("c", 6)
	s.JoinRoom("ghost", 5)

	assert.ElementsMatch(t, []string{"a", "b"}, s.RoomSockets(5))
	assert.ElementsMatch(t, []string{"b", "c"}, s.UserSockets(2))

	s.LeaveRoom("b", 6)
	assert.ElementsMatch(t, []string{"a", "b"}, s.RoomSockets(5))

	s.LeaveRoom("b", 5)
	assert.Equal(t, []string{"a"}, s.RoomSockets(5))
	_, ok := s.GetRoom("b")
	assert.False(t, ok)
}

func TestHandleDisconnect(t *testing.T) {
	s, pub := newWs()
	s.StoreConnection("a", nil, 4)
	s.StoreConnection("b", nil, 4)
	s.JoinRoom("a", 8)

	s.HandleDisconnect("a")
	assert.Empty(t, pub.msgs)
	assert.Empty(t, s.RoomSockets(8))

	s.HandleDisconnect("b")
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, comm.TypeDisconnect, pub.msgs[0].Type)
	assert.EqualValues(t, 4, pub.msgs[0].UserId)
	assert.Empty(t, s.UserSockets(4))

	s.HandleDisconnect("b")
	assert.Len(t, pub.msgs, 1)
}

func TestSendUnknownSocket(t *testing.T) {
	s, _ := newWs()
	assert.ErrorIs(t, s.Send("nope", &comm.WSMessage{}), errUnknownSocket)
	assert.ErrorIs(t, s.Ping("nope"), errUnknownSocket)
}
