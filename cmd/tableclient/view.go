package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/avvvet/gatortots-services/internal/comm"
	"github.com/avvvet/gatortots-services/internal/roomclient"
)

// terminal prints server events as plain lines.
type terminal struct {
	out io.Writer
}

func (t *terminal) GameInfo(info comm.GameInfo) {
	fmt.Fprintf(t.out, "room %s: %d-%d players, phase %s, pile %d\n",
		info.GameRoomName, info.MinPlayers, info.MaxPlayers, info.Phase, info.PileSize)
}

func (t *terminal) Players(players []comm.PlayerInfo) {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, fmt.Sprintf("%s(%d)", p.Username, p.CardCount))
	}
	fmt.Fprintf(t.out, "players: %s\n", strings.Join(names, " "))
}

func (t *terminal) Winner(name string) {
	fmt.Fprintf(t.out, "%s has won the game!\n", name)
}

func (t *terminal) SupposedRank(label string) {
	fmt.Fprintf(t.out, "Supposed Card: %s\n", label)
}

func (t *terminal) Hand(cards []int) {
	labels := make([]string, 0, len(cards))
	for _, id := range cards {
		labels = append(labels, fmt.Sprintf("%d:%s", id, roomclient.RankLabel(id)))
	}
	fmt.Fprintf(t.out, "hand: %s\n", strings.Join(labels, " "))
}

func (t *terminal) Challenge(o comm.ChallengeOutcome) {
	verdict := "bluffed"
	if o.Truthful {
		verdict = "told the truth"
	}
	fmt.Fprintf(t.out, "user %d called BS on user %d, who %s. user %d takes the pile\n",
		o.Challenger, o.Claimant, verdict, o.Taker)
}

func (t *terminal) Chat(m comm.ChatMessage) {
	fmt.Fprintf(t.out, "[%s] %s: %s\n", m.MessageTime.Format("15:04"), m.Username, m.MessageContent)
}

func (t *terminal) Error(e comm.ErrorEvent) {
	fmt.Fprintf(t.out, "error %s: %s\n", e.Code, e.Error)
}

func (t *terminal) Left(roomID int64) {
	fmt.Fprintf(t.out, "left room %d\n", roomID)
}
