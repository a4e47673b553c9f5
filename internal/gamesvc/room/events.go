package room

import (
	"github.com/avvvet/gatortots-services/internal/comm"
	"github.com/avvvet/gatortots-services/internal/gamesvc/engine"
)

// Broadcaster delivers server events. Room events reach every socket
// attached to the room.
type Broadcaster interface {
	ToRoom(roomID int64, event string, data any)
	ToUser(userID int64, event string, data any)
	ToSocket(socketID string, event string, data any)
	Attach(m comm.RoomMembership)
	Detach(m comm.RoomMembership)
}

// gameUpdate is the public view of the room. The ids of the last played
// cards stay hidden, only their count is shown.
func (r *Room) gameUpdate() comm.GameUpdate {
	st := r.game.Snapshot()

	info := comm.GameInfo{
		GameRoomID:          r.id,
		GameRoomName:        r.meta.Name,
		MinPlayers:          st.MinPlayers,
		MaxPlayers:          st.MaxPlayers,
		GameStarted:         st.Phase != engine.PhaseWaiting,
		HostUserID:          r.hostID(),
		CurrentPlayersTurn:  st.TurnUserID,
		CurrentSupposedRank: int(st.SupposedRank),
		LastPlayedUserID:    st.LastPlayedUserID,
		LastPlayedCount:     len(st.LastPlayedCards),
		PileSize:            len(st.Pile),
		Phase:               string(st.Phase),
		AwaitingChallenge:   st.Step == engine.StepAwaitingChallenge,
		WinnerUserID:        st.WinnerUserID,
	}
	if r.started.Valid {
		t := r.started.Time
		info.GameStartTime = &t
	}

	players := make([]comm.PlayerInfo, len(st.Seats))
	for i, u := range st.Seats {
		players[i] = comm.PlayerInfo{
			UserID:    u,
			Username:  r.names[u],
			Seat:      i,
			CardCount: st.HandSize(u),
		}
	}
	return comm.GameUpdate{GameInfo: info, Players: players}
}

func (r *Room) supposedRank() comm.SupposedRank {
	return comm.SupposedRank{SupposedRank: r.game.SupposedRank().CardValue()}
}

func (r *Room) hand(userID int64) comm.Hand {
	cards := r.game.Hand(userID)
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = int(c)
	}
	return comm.Hand{Cards: out}
}

func (r *Room) broadcastState() {
	r.bc.ToRoom(r.id, comm.TypeUpdate, r.gameUpdate())
	r.bc.ToRoom(r.id, comm.TypeSupposedRank, r.supposedRank())
	if r.game.Phase() != engine.PhaseInProgress {
		return
	}
	for _, u := range r.game.Seats() {
		r.bc.ToUser(u, comm.TypeHand, r.hand(u))
	}
}

// sendState brings one socket up to date. userID is zero for spectators.
func (r *Room) sendState(socketID string, userID int64) {
	r.bc.ToSocket(socketID, comm.TypeUpdate, r.gameUpdate())
	r.bc.ToSocket(socketID, comm.TypeSupposedRank, r.supposedRank())
	if userID != 0 && r.game.Phase() == engine.PhaseInProgress {
		r.bc.ToSocket(socketID, comm.TypeHand, r.hand(userID))
	}
}
