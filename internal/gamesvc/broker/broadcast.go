package broker

import (
	"encoding/json"

	"github.com/avvvet/gatortots-services/internal/comm"
	log "github.com/sirupsen/logrus"
)

// The Broker is the room.Broadcaster of the game service: every event goes
// to the socket service on comm.GameSubject.

func (b *Broker) ToRoom(roomID int64, event string, data any) {
	b.send(comm.WSMessage{Type: event, RoomId: roomID}, data)
}

func (b *Broker) ToUser(userID int64, event string, data any) {
	b.send(comm.WSMessage{Type: event, UserId: userID}, data)
}

func (b *Broker) ToSocket(socketID string, event string, data any) {
	if socketID == "" {
		return
	}
	b.send(comm.WSMessage{Type: event, SocketId: socketID}, data)
}

func (b *Broker) Attach(m comm.RoomMembership) {
	b.send(comm.WSMessage{Type: comm.TypeRoomJoined, RoomId: m.RoomId, SocketId: m.SocketId, UserId: m.UserId}, m)
}

func (b *Broker) Detach(m comm.RoomMembership) {
	b.send(comm.WSMessage{Type: comm.TypeRoomLeft, RoomId: m.RoomId, SocketId: m.SocketId, UserId: m.UserId}, m)
}

func (b *Broker) send(msg comm.WSMessage, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Errorf("marshal %s payload: %s", msg.Type, err)
		return
	}
	msg.Data = raw

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("marshal %s message: %s", msg.Type, err)
		return
	}
	b.Publish(comm.GameSubject, payload)
}
