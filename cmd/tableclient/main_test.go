package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/avvvet/gatortots-services/internal/comm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCards(t *testing.T) {
	cards, err := parseCards("1, 2,49")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 49}, cards)

	_, err = parseCards("1,x")
	assert.Error(t, err)
}

func TestTerminalView(t *testing.T) {
	var buf bytes.Buffer
	v := &terminal{out: &buf}

	v.SupposedRank("Q")
	v.Hand([]int{1, 52})
	v.Winner("gator")
	v.Chat(comm.ChatMessage{Username: "tot", MessageContent: "gg", MessageTime: time.Date(2025, 1, 1, 9, 5, 0, 0, time.UTC)})

	out := buf.String()
	assert.Contains(t, out, "Supposed Card: Q")
	assert.Contains(t, out, "hand: 1:A 52:K")
	assert.Contains(t, out, "gator has won the game!")
	assert.Contains(t, out, "[09:05] tot: gg")
}
