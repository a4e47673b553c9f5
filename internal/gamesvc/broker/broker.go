package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/gatortots-services/internal/comm"
	"github.com/avvvet/gatortots-services/internal/gamesvc/models"
	"github.com/avvvet/gatortots-services/internal/gamesvc/room"
	"github.com/avvvet/gatortots-services/internal/gamesvc/service"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

var (
	errBadRequest  = errors.New("malformed request")
	errUnknownType = errors.New("unknown message type")
)

// Rooms is the part of room.Manager the broker drives.
type Rooms interface {
	Join(ctx context.Context, roomID, userID int64, socketID, password string) error
	Leave(ctx context.Context, userID int64) error
	Disconnect(ctx context.Context, userID int64) error
	Start(ctx context.Context, userID int64) error
	Play(ctx context.Context, userID int64, cards []int, claimedRank int) error
	Challenge(ctx context.Context, userID int64) error
	RoomOf(userID int64) (int64, bool)
}

type Chat interface {
	Send(ctx context.Context, roomID, userID int64, content string) (*models.Message, error)
}

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subj string, data []byte) error
}

type Broker struct {
	Conn    Publisher
	Rooms   Rooms
	Chat    Chat
	Timeout time.Duration
}

func NewBroker(conn Publisher) *Broker {
	return &Broker{
		Conn:    conn,
		Timeout: 10 * time.Second,
	}
}

// handles message coming from socket
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := comm.WSMessage{}
	if err := json.Unmarshal(msgNat.Data, &msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}
	b.Handle(msg)
}

// Handle runs one client event and reports rule violations to the sending
// socket.
func (b *Broker) Handle(msg comm.WSMessage) {
	if msg.UserId == 0 {
		log.Warnf("dropping %s from socket %s without user", msg.Type, msg.SocketId)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
	defer cancel()

	err := b.dispatch(ctx, msg)
	if err == nil {
		return
	}

	code := errorCode(err)
	entry := log.WithFields(log.Fields{
		"type":   msg.Type,
		"user":   msg.UserId,
		"socket": msg.SocketId,
		"code":   code,
	})
	if code == "INTERNAL" {
		entry.Errorf("handle message: %s", err)
		b.ToSocket(msg.SocketId, comm.TypeError, comm.ErrorEvent{Code: code, Error: "internal error"})
		return
	}
	entry.Debugf("rejected: %s", err)
	if msg.Type != comm.TypeDisconnect {
		b.ToSocket(msg.SocketId, comm.TypeError, comm.ErrorEvent{Code: code, Error: err.Error()})
	}
}

func (b *Broker) dispatch(ctx context.Context, msg comm.WSMessage) error {
	switch msg.Type {
	case comm.TypeJoinRoom:
		req, err := decodeJoin(msg.Data)
		if err != nil {
			return err
		}
		if req.RoomId == 0 {
			req.RoomId = msg.RoomId
		}
		return b.Rooms.Join(ctx, req.RoomId, msg.UserId, msg.SocketId, req.Password)
	case comm.TypeLeaveRoom:
		err := b.Rooms.Leave(ctx, msg.UserId)
		if errors.Is(err, room.ErrNotInRoom) && msg.RoomId != 0 {
			// a spectator stops watching
			b.Detach(comm.RoomMembership{RoomId: msg.RoomId, SocketId: msg.SocketId})
			return nil
		}
		return err
	case comm.TypeDisconnect:
		return b.Rooms.Disconnect(ctx, msg.UserId)
	case comm.TypeStart:
		return b.Rooms.Start(ctx, msg.UserId)
	case comm.TypePlay:
		var req comm.PlayRequest
		if err := decode(msg.Data, &req); err != nil {
			return err
		}
		return b.Rooms.Play(ctx, msg.UserId, req.Cards, req.ClaimedRank)
	case comm.TypeChallenge:
		return b.Rooms.Challenge(ctx, msg.UserId)
	case comm.TypeChatSend:
		var req comm.ChatRequest
		if err := decode(msg.Data, &req); err != nil {
			return err
		}
		return b.chat(ctx, msg, req.Content)
	default:
		return fmt.Errorf("%w: %q", errUnknownType, msg.Type)
	}
}

// chat posts to the room the socket watches, or else the room the user
// sits in.
func (b *Broker) chat(ctx context.Context, msg comm.WSMessage, content string) error {
	roomID := msg.RoomId
	if roomID == 0 {
		id, ok := b.Rooms.RoomOf(msg.UserId)
		if !ok {
			return room.ErrNotInRoom
		}
		roomID = id
	}

	m, err := b.Chat.Send(ctx, roomID, msg.UserId, content)
	if err != nil {
		return err
	}
	b.ToRoom(roomID, comm.TypeChatMessage, comm.ChatMessage{
		MessageID:      m.ID,
		Username:       m.Username,
		MessageContent: m.Content,
		MessageTime:    m.Time,
	})
	return nil
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errBadRequest
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s", errBadRequest, err)
	}
	return nil
}

// decodeJoin reads a join request, or the bare room id older clients send.
func decodeJoin(data json.RawMessage) (comm.JoinRoomRequest, error) {
	var req comm.JoinRoomRequest
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] != '{' {
		var id json.Number
		if err := decode(trimmed, &id); err != nil {
			return req, err
		}
		n, err := id.Int64()
		if err != nil {
			return req, fmt.Errorf("%w: room id %q", errBadRequest, id)
		}
		req.RoomId = n
		return req, nil
	}
	err := decode(data, &req)
	return req, err
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errBadRequest):
		return "BAD_REQUEST"
	case errors.Is(err, errUnknownType):
		return "UNKNOWN_TYPE"
	case errors.Is(err, service.ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	default:
		return room.Code(err)
	}
}

// consume message from socket service
func (b *Broker) SubscribSocketService(nc *nats.Conn, topic string) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(topic, b.handleMessage)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// game service publish message for socket service to consume
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}
	return nil
}
