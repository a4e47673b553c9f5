package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/avvvet/gatortots-services/internal/comm"
	"github.com/avvvet/gatortots-services/internal/socketsvc/broker"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var errUnknownSocket = errors.New("unknown socket")

// client is one websocket. gorilla allows a single concurrent writer, so
// writes go through mu.
type client struct {
	conn   *websocket.Conn
	userId int64
	mu     sync.Mutex
}

type Ws struct {
	connMap sync.Map // to keep track of socket connection with socketId
	roomMap sync.Map // to keep track of roomId with socketId

	userMu  sync.Mutex
	userMap map[int64]map[string]struct{} // sockets of each user

	Broker *broker.Broker
}

func NewWs() *Ws {
	return &Ws{userMap: map[int64]map[string]struct{}{}}
}

// client events relayed to the game service
var relayed = map[string]bool{
	comm.TypeJoinRoom:  true,
	comm.TypeLeaveRoom: true,
	comm.TypeStart:     true,
	comm.TypePlay:      true,
	comm.TypeChallenge: true,
	comm.TypeChatSend:  true,
}

// SocketMessage stamps a client event with the socket, its user and its
// room, and relays it to the game service.
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) error {
	if !relayed[message.Type] {
		log.Warnf("unknown event received: %s", message.Type)
		return errors.New("unknown event " + message.Type)
	}

	c, ok := s.client(socketId)
	if !ok {
		return errUnknownSocket
	}

	message.SocketId = socketId
	message.UserId = c.userId
	message.RoomId = 0
	if roomId, ok := s.GetRoom(socketId); ok {
		message.RoomId = roomId
	}
	return s.publish(message)
}

func (s *Ws) publish(message *comm.WSMessage) error {
	bytes, err := json.Marshal(message)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return err
	}
	if err := s.Broker.Publish(comm.SocketSubject, bytes); err != nil {
		return err
	}
	log.Debugf("relayed %s from socket %s user %d", message.Type, message.SocketId, message.UserId)
	return nil
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn, userId int64) {
	s.connMap.Store(socketId, &client{conn: conn, userId: userId})

	s.userMu.Lock()
	defer s.userMu.Unlock()
	if s.userMap[userId] == nil {
		s.userMap[userId] = map[string]struct{}{}
	}
	s.userMap[userId][socketId] = struct{}{}
}

// HandleDisconnect forgets a socket. When it was the user's last socket the
// game service is told the player is gone.
func (s *Ws) HandleDisconnect(socketId string) {
	c, ok := s.client(socketId)
	if !ok {
		return
	}
	s.connMap.Delete(socketId)
	s.roomMap.Delete(socketId)

	s.userMu.Lock()
	sockets := s.userMap[c.userId]
	delete(sockets, socketId)
	last := len(sockets) == 0
	if last {
		delete(s.userMap, c.userId)
	}
	s.userMu.Unlock()

	if !last {
		return
	}
	if err := s.publish(&comm.WSMessage{Type: comm.TypeDisconnect, SocketId: socketId, UserId: c.userId}); err != nil {
		log.Errorf("relay disconnect of user %d: %v", c.userId, err)
	}
}

// Send writes a message to one socket.
func (s *Ws) Send(socketId string, m *comm.WSMessage) error {
	c, ok := s.client(socketId)
	if !ok {
		return errUnknownSocket
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(m)
}

func (s *Ws) client(socketId string) (*client, bool) {
	v, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return v.(*client), true
}

func (s *Ws) JoinRoom(socketId string, roomId int64) {
	if _, ok := s.client(socketId); !ok {
		return
	}
	s.roomMap.Store(socketId, roomId)
}

// LeaveRoom drops the socket from the room it watches, if that is roomId.
func (s *Ws) LeaveRoom(socketId string, roomId int64) {
	s.roomMap.CompareAndDelete(socketId, roomId)
}

func (s *Ws) GetRoom(socketId string) (int64, bool) {
	room, ok := s.roomMap.Load(socketId)
	if !ok {
		return 0, false
	}
	return room.(int64), true
}

func (s *Ws) RoomSockets(roomId int64) []string {
	var sockets []string
	s.roomMap.Range(func(key, value any) bool {
		if value.(int64) == roomId {
			sockets = append(sockets, key.(string))
		}
		return true
	})
	return sockets
}

func (s *Ws) UserSockets(userId int64) []string {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	sockets := make([]string, 0, len(s.userMap[userId]))
	for id := range s.userMap[userId] {
		sockets = append(sockets, id)
	}
	return sockets
}

// Ping sends a websocket ping control frame.
func (s *Ws) Ping(socketId string) error {
	c, ok := s.client(socketId)
	if !ok {
		return errUnknownSocket
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}
