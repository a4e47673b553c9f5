package roomclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/gatortots-services/internal/comm"
	"github.com/avvvet/gatortots-services/internal/gamesvc/engine"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu     sync.Mutex
	sent   []comm.WSMessage
	in     chan comm.WSMessage
	closed chan struct{}
	once   sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan comm.WSMessage, 16), closed: make(chan struct{})}
}

func (f *fakeTransport) Send(msg comm.WSMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) Receive() (comm.WSMessage, error) {
	select {
	case msg := <-f.in:
		return msg, nil
	case <-f.closed:
		return comm.WSMessage{}, io.EOF
	}
}

func (f *fakeTransport) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

type recordingView struct {
	mu      sync.Mutex
	info    []comm.GameInfo
	players [][]comm.PlayerInfo
	winner  string
	rank    string
	hand    []int
	chal    []comm.ChallengeOutcome
	chat    []comm.ChatMessage
	errs    []comm.ErrorEvent
	left    int64
}

func (v *recordingView) GameInfo(info comm.GameInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.info = append(v.info, info)
}

func (v *recordingView) Players(p []comm.PlayerInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.players = append(v.players, p)
}

func (v *recordingView) Winner(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.winner = name
}

func (v *recordingView) SupposedRank(label string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rank = label
}

func (v *recordingView) Hand(cards []int) { v.hand = cards }
func (v *recordingView) Challenge(o comm.ChallengeOutcome) { v.chal = append(v.chal, o) }
func (v *recordingView) Chat(m comm.ChatMessage) { v.chat = append(v.chat, m) }
func (v *recordingView) Error(e comm.ErrorEvent) { v.errs = append(v.errs, e) }
func (v *recordingView) Left(roomID int64) { v.left = roomID }

func (v *recordingView) winnerName() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.winner
}

func event(t *testing.T, typ string, payload any) comm.WSMessage {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return comm.WSMessage{Type: typ, Data: data}
}

func TestJoinSendsRoomId(t *testing.T) {
	tr := newFakeTransport()
	c := New(tr, &recordingView{})

	require.NoError(t, c.Join(42, "pw"))
	require.Len(t, tr.sent, 1)
	assert.Equal(t, comm.TypeJoinRoom, tr.sent[0].Type)
	assert.JSONEq(t, `{"roomId":42,"password":"pw"}`, string(tr.sent[0].Data))

	assert.ErrorIs(t, c.Join(0, ""), ErrNoRoom)
}

func TestActionsSendEvents(t *testing.T) {
	tr := newFakeTransport()
	c := New(tr, &recordingView{})

	require.NoError(t, c.Start())
	require.NoError(t, c.Play([]int{1, 2}, 1))
	require.NoError(t, c.CallBS())
	require.NoError(t, c.Say("gg"))
	require.NoError(t, c.Leave())

	types := make([]string, 0, len(tr.sent))
	for _, m := range tr.sent {
		types = append(types, m.Type)
	}
	assert.Equal(t, []string{comm.TypeStart, comm.TypePlay, comm.TypeChallenge, comm.TypeChatSend, comm.TypeLeaveRoom}, types)
	assert.JSONEq(t, `{"cards":[1,2],"claimed_rank":1}`, string(tr.sent[1].Data))
	assert.Empty(t, tr.sent[0].Data)
}

func TestDispatchUpdatesView(t *testing.T) {
	v := &recordingView{}
	c := New(newFakeTransport(), v)
	require.NoError(t, c.Join(3, ""))

	require.NoError(t, c.Dispatch(event(t, comm.TypeUpdate, comm.GameUpdate{
		GameInfo: comm.GameInfo{MinPlayers: 2, MaxPlayers: 5},
		Players:  []comm.PlayerInfo{{UserID: 1, Username: "tot"}, {UserID: 2, Username: "gator", Seat: 1}},
	})))
	require.Len(t, v.info, 1)
	assert.Equal(t, 5, v.info[0].MaxPlayers)
	require.Len(t, v.players, 1)
	assert.Equal(t, "gator", v.players[0][1].Username)

	require.NoError(t, c.Dispatch(event(t, comm.TypeSupposedRank, comm.SupposedRank{SupposedRank: 41})))
	assert.Equal(t, "J", v.rank)

	require.NoError(t, c.Dispatch(event(t, comm.TypeHand, comm.Hand{Cards: []int{5, 9}})))
	assert.Equal(t, []int{5, 9}, v.hand)

	require.NoError(t, c.Dispatch(event(t, comm.TypeChallenged, comm.ChallengeOutcome{Taker: 2, Truthful: true})))
	require.Len(t, v.chal, 1)

	require.NoError(t, c.Dispatch(event(t, comm.TypeChatMessage, comm.ChatMessage{Username: "tot", MessageContent: "hi"})))
	require.Len(t, v.chat, 1)

	require.NoError(t, c.Dispatch(event(t, comm.TypeError, comm.ErrorEvent{Code: "OUT_OF_TURN"})))
	require.Len(t, v.errs, 1)

	require.NoError(t, c.Dispatch(event(t, comm.TypeWinner, comm.Winner{Winner: "gator"})))
	assert.Equal(t, "gator", v.winner)

	require.NoError(t, c.Dispatch(comm.WSMessage{Type: comm.TypeRoomLeft}))
	assert.EqualValues(t, 3, v.left)

	require.NoError(t, c.Dispatch(comm.WSMessage{Type: "something:else"}))
	assert.Error(t, c.Dispatch(comm.WSMessage{Type: comm.TypeWinner, Data: []byte(`{`)}))
}

func TestRankLabelMatchesEngine(t *testing.T) {
	for v := 1; v <= engine.DeckSize; v++ {
		assert.Equal(t, engine.RankFromCardValue(v).Label(), RankLabel(v), "value %d", v)
	}
	assert.Equal(t, "A", RankLabel(1))
	assert.Equal(t, "A", RankLabel(4))
	assert.Equal(t, "2", RankLabel(5))
	assert.Equal(t, "K", RankLabel(52))
	assert.Equal(t, "?", RankLabel(0))
	assert.Equal(t, "?", RankLabel(53))

	for r := engine.Rank(1); r <= engine.RankCount; r++ {
		assert.Equal(t, r.Label(), RankLabel(r.CardValue()))
	}
}

func TestRoomIDFromPath(t *testing.T) {
	id, err := RoomIDFromPath("", "/games/42")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	id, err = RoomIDFromPath("7", "/games/42")
	require.NoError(t, err)
	assert.EqualValues(t, 7, id)

	id, err = RoomIDFromPath("", "/games/13/")
	require.NoError(t, err)
	assert.EqualValues(t, 13, id)

	_, err = RoomIDFromPath("", "/games/lobby")
	assert.ErrorIs(t, err, ErrNoRoom)

	_, err = RoomIDFromPath("", "")
	assert.ErrorIs(t, err, ErrNoRoom)
}

func TestRunStopsOnCancel(t *testing.T) {
	tr := newFakeTransport()
	v := &recordingView{}
	c := New(tr, v)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	tr.in <- event(t, comm.TypeWinner, comm.Winner{Winner: "tot"})
	require.Eventually(t, func() bool { return v.winnerName() == "tot" }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRunReturnsTransportError(t *testing.T) {
	tr := newFakeTransport()
	c := New(tr, &recordingView{})
	tr.Close()

	err := c.Run(context.Background())
	assert.True(t, errors.Is(err, io.EOF))
}

func TestWSTransport(t *testing.T) {
	upgrader := websocket.Upgrader{}
	gotToken := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken <- r.URL.Query().Get("jwt")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var msg comm.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		data, _ := json.Marshal(comm.SupposedRank{SupposedRank: 5})
		conn.WriteJSON(comm.WSMessage{Type: comm.TypeSupposedRank, Data: data})
		conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/ws", "tok")
	require.NoError(t, err)
	assert.Equal(t, "tok", <-gotToken)

	v := &recordingView{}
	c := New(tr, v)
	require.NoError(t, c.Join(9, ""))

	msg, err := tr.Receive()
	require.NoError(t, err)
	require.NoError(t, c.Dispatch(msg))
	assert.Equal(t, "2", v.rank)
	require.NoError(t, tr.Close())
}
