// Package roomclient joins a game room over the socket service and forwards
// server events to a View. It holds no game state of its own.
package roomclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/avvvet/gatortots-services/internal/comm"
	"github.com/avvvet/gatortots-services/internal/gamesvc/engine"
	log "github.com/sirupsen/logrus"
)

var ErrNoRoom = errors.New("no room id")

// Transport carries envelopes to and from the socket service.
type Transport interface {
	Send(msg comm.WSMessage) error
	Receive() (comm.WSMessage, error)
	Close() error
}

// View renders what the server pushes.
type View interface {
	GameInfo(info comm.GameInfo)
	Players(players []comm.PlayerInfo)
	// Winner ends the game, play controls should be disabled.
	Winner(name string)
	SupposedRank(label string)
	Hand(cards []int)
	Challenge(outcome comm.ChallengeOutcome)
	Chat(msg comm.ChatMessage)
	Error(e comm.ErrorEvent)
	Left(roomID int64)
}

type Client struct {
	transport Transport
	view      View
	roomID    int64
}

func New(t Transport, v View) *Client {
	return &Client{transport: t, view: v}
}

// Join asks to sit in, or watch, a room.
func (c *Client) Join(roomID int64, password string) error {
	if roomID <= 0 {
		return ErrNoRoom
	}
	c.roomID = roomID
	return c.send(comm.TypeJoinRoom, comm.JoinRoomRequest{RoomId: roomID, Password: password})
}

func (c *Client) Leave() error {
	return c.send(comm.TypeLeaveRoom, nil)
}

func (c *Client) Start() error {
	return c.send(comm.TypeStart, nil)
}

// Play lays cards face down claiming they are all of rank claimedRank.
func (c *Client) Play(cards []int, claimedRank int) error {
	return c.send(comm.TypePlay, comm.PlayRequest{Cards: cards, ClaimedRank: claimedRank})
}

// CallBS challenges the last claim.
func (c *Client) CallBS() error {
	return c.send(comm.TypeChallenge, nil)
}

func (c *Client) Say(content string) error {
	return c.send(comm.TypeChatSend, comm.ChatRequest{Content: content})
}

// Run dispatches server events to the view until the transport fails or ctx
// is done. Closing the transport ends a blocked Receive.
func (c *Client) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { c.transport.Close() })
	defer stop()

	for {
		msg, err := c.transport.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := c.Dispatch(msg); err != nil {
			log.Warnf("roomclient: %v", err)
		}
	}
}

// Dispatch hands one server event to the view. Unknown events are ignored.
func (c *Client) Dispatch(msg comm.WSMessage) error {
	switch msg.Type {
	case comm.TypeUpdate:
		var u comm.GameUpdate
		if err := decode(msg, &u); err != nil {
			return err
		}
		c.view.GameInfo(u.GameInfo)
		c.view.Players(u.Players)
	case comm.TypeWinner:
		var w comm.Winner
		if err := decode(msg, &w); err != nil {
			return err
		}
		c.view.Winner(w.Winner)
	case comm.TypeSupposedRank:
		var s comm.SupposedRank
		if err := decode(msg, &s); err != nil {
			return err
		}
		c.view.SupposedRank(RankLabel(s.SupposedRank))
	case comm.TypeHand:
		var h comm.Hand
		if err := decode(msg, &h); err != nil {
			return err
		}
		c.view.Hand(h.Cards)
	case comm.TypeChallenged:
		var o comm.ChallengeOutcome
		if err := decode(msg, &o); err != nil {
			return err
		}
		c.view.Challenge(o)
	case comm.TypeChatMessage:
		var m comm.ChatMessage
		if err := decode(msg, &m); err != nil {
			return err
		}
		c.view.Chat(m)
	case comm.TypeError:
		var e comm.ErrorEvent
		if err := decode(msg, &e); err != nil {
			return err
		}
		c.view.Error(e)
	case comm.TypeRoomLeft:
		c.view.Left(c.roomID)
	default:
		log.Debugf("roomclient: ignoring %s", msg.Type)
	}
	return nil
}

func (c *Client) send(event string, payload any) error {
	msg := comm.WSMessage{Type: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s: %w", event, err)
		}
		msg.Data = data
	}
	if err := c.transport.Send(msg); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

func decode(msg comm.WSMessage, v any) error {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", msg.Type, err)
	}
	return nil
}

// RankLabel labels a 1..52 card value by its rank, "A" through "K".
func RankLabel(v int) string {
	r := engine.RankFromCardValue(v)
	if !r.Valid() {
		return "?"
	}
	return r.Label()
}

// RoomIDFromPath prefers an explicit game id and falls back to the last
// segment of a page path such as /games/42.
func RoomIDFromPath(gameID, path string) (int64, error) {
	raw := strings.TrimSpace(gameID)
	if raw == "" {
		path = strings.TrimRight(path, "/")
		raw = path[strings.LastIndex(path, "/")+1:]
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w in %q", ErrNoRoom, raw)
	}
	return id, nil
}
