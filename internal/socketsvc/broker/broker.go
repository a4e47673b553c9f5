package broker

import (
	"encoding/json"

	"github.com/avvvet/gatortots-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Sockets is the socket registry the broker delivers through.
type Sockets interface {
	Send(socketId string, m *comm.WSMessage) error
	RoomSockets(roomId int64) []string
	UserSockets(userId int64) []string
	GetRoom(socketId string) (int64, bool)
	JoinRoom(socketId string, roomId int64)
	LeaveRoom(socketId string, roomId int64)
}

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subj string, data []byte) error
}

type Broker struct {
	Conn    Publisher
	Sockets Sockets
}

func NewBroker(conn Publisher, sockets Sockets) *Broker {
	return &Broker{
		Conn:    conn,
		Sockets: sockets,
	}
}

// consume message from game service
func (b *Broker) Subscribe(nc *nats.Conn, topic string) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// publish message to game service
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}
	return nil
}

// handleMessages receive message from game service
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(msgNats.Data, message); err != nil {
		log.Errorf("Error %s", err)
		return
	}
	b.Deliver(message)
}

// Deliver routes a server event: to one socket, to every socket of a user,
// or to every socket watching a room.
func (b *Broker) Deliver(m *comm.WSMessage) {
	switch m.Type {
	case comm.TypeRoomJoined:
		b.Sockets.JoinRoom(m.SocketId, m.RoomId)
		b.sendMessage(m.SocketId, m)
		return
	case comm.TypeRoomLeft:
		for _, id := range b.audience(m) {
			b.sendMessage(id, m)
			b.Sockets.LeaveRoom(id, m.RoomId)
		}
		return
	}

	for _, id := range b.audience(m) {
		b.sendMessage(id, m)
	}
}

func (b *Broker) audience(m *comm.WSMessage) []string {
	switch {
	case m.SocketId != "":
		return []string{m.SocketId}
	case m.UserId != 0 && m.RoomId != 0:
		// a user's sockets in one room
		var ids []string
		for _, id := range b.Sockets.UserSockets(m.UserId) {
			if room, ok := b.Sockets.GetRoom(id); ok && room == m.RoomId {
				ids = append(ids, id)
			}
		}
		return ids
	case m.UserId != 0:
		return b.Sockets.UserSockets(m.UserId)
	case m.RoomId != 0:
		return b.Sockets.RoomSockets(m.RoomId)
	default:
		log.Warnf("dropping %s without audience", m.Type)
		return nil
	}
}

// send socket message to the web client
func (b *Broker) sendMessage(socketId string, m *comm.WSMessage) {
	if err := b.Sockets.Send(socketId, m); err != nil {
		log.Debugf("send %s to socket %s: %v", m.Type, socketId, err)
	}
}
