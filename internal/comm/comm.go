package comm

import (
	"encoding/json"
	"time"
)

// NATS subjects between the socket and game services.
const (
	SocketSubject = "socket.service"
	GameSubject   = "game.service"
)

// Client to server events.
const (
	TypeJoinRoom   = "joinRoom"
	TypeLeaveRoom  = "leaveRoom"
	TypeStart      = "game:start"
	TypePlay       = "game:play"
	TypeChallenge  = "game:challenge"
	TypeChatSend   = "chat:send"
	TypeDisconnect = "disconnect"
)

// Server to client events.
const (
	TypeUpdate       = "game:update"
	TypeWinner       = "game:winner"
	TypeSupposedRank = "game:supposedRank"
	TypeHand         = "game:hand"
	TypeChallenged   = "game:challenge"
	TypeError        = "game:error"
	TypeChatMessage  = "chat:message"
	TypeRoomJoined   = "room:joined"
	TypeRoomLeft     = "room:left"
)

// WSMessage is the envelope on the websocket and on NATS. Exactly one of
// RoomId, UserId and SocketId addresses server events; client events carry
// the sender's SocketId and UserId.
type WSMessage struct {
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	SocketId string          `json:"socketid,omitempty"`
	UserId   int64           `json:"userid,omitempty"`
	RoomId   int64           `json:"roomid,omitempty"`
}

type JoinRoomRequest struct {
	RoomId   int64  `json:"roomId"`
	Password string `json:"password,omitempty"`
}

type PlayRequest struct {
	Cards       []int `json:"cards"`
	ClaimedRank int   `json:"claimed_rank"`
}

type ChatRequest struct {
	Content string `json:"content"`
}

type GameInfo struct {
	GameRoomID          int64      `json:"game_room_id"`
	GameRoomName        string     `json:"game_room_name"`
	MinPlayers          int        `json:"min_players"`
	MaxPlayers          int        `json:"max_players"`
	GameStarted         bool       `json:"game_started"`
	GameStartTime       *time.Time `json:"game_start_time"`
	HostUserID          int64      `json:"host_user_id"`
	CurrentPlayersTurn  int64      `json:"current_players_turn"`
	CurrentSupposedRank int        `json:"current_supposed_rank"`
	LastPlayedUserID    int64      `json:"last_played_user_id"`
	LastPlayedCount     int        `json:"last_played_count"`
	PileSize            int        `json:"pile_size"`
	Phase               string     `json:"phase"`
	AwaitingChallenge   bool       `json:"awaiting_challenge"`
	WinnerUserID        int64      `json:"winner_user_id"`
}

type PlayerInfo struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Seat      int    `json:"seat"`
	CardCount int    `json:"card_count"`
}

type GameUpdate struct {
	GameInfo GameInfo     `json:"gameInfo"`
	Players  []PlayerInfo `json:"players"`
}

type Winner struct {
	Winner string `json:"winner"`
}

// SupposedRank carries a card value 1..52; clients label it by (v-1)/4.
type SupposedRank struct {
	SupposedRank int `json:"supposedRank"`
}

type Hand struct {
	Cards []int `json:"cards"`
}

type ChallengeOutcome struct {
	Challenger  int64 `json:"challenger"`
	Claimant    int64 `json:"claimant"`
	Revealed    []int `json:"revealed"`
	ClaimedRank int   `json:"claimed_rank"`
	Truthful    bool  `json:"truthful"`
	Taker       int64 `json:"taker"`
}

type ErrorEvent struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type ChatMessage struct {
	MessageID      int64     `json:"message_id"`
	Username       string    `json:"username"`
	MessageContent string    `json:"message_content"`
	MessageTime    time.Time `json:"message_time"`
}

// RoomMembership tells the socket service to add or drop sockets of a room.
type RoomMembership struct {
	RoomId   int64  `json:"roomid"`
	SocketId string `json:"socketid,omitempty"`
	UserId   int64  `json:"userid,omitempty"`
	Seated   bool   `json:"seated"`
}
