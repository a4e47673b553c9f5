package engine

import (
	"math/rand"
	"sort"
	"strconv"
)

const (
	DeckSize  = 52
	RankCount = 13
	SuitCount = 4
)

// Card is a card id in 1..52. Ids are grouped by rank, four suits per rank,
// so ids 1..4 are aces and 49..52 are kings.
type Card int

// Rank is a card rank in 1..13, 1 being "A".
type Rank int

var rankLabels = [RankCount]string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

func (c Card) Valid() bool {
	return c >= 1 && c <= DeckSize
}

func (c Card) Rank() Rank {
	return RankFromCardValue(int(c))
}

// RankFromCardValue maps a 1..52 value onto its rank, the same grouping the
// browser uses for game:supposedRank. Out of range values yield an invalid rank.
func RankFromCardValue(v int) Rank {
	if v < 1 || v > DeckSize {
		return 0
	}
	return Rank((v-1)/SuitCount + 1)
}

func (r Rank) Valid() bool {
	return r >= 1 && r <= RankCount
}

// Next returns the rank following r, wrapping K back to A.
func (r Rank) Next() Rank {
	return Rank(int(r)%RankCount + 1)
}

func (r Rank) Label() string {
	if !r.Valid() {
		return "?" + strconv.Itoa(int(r))
	}
	return rankLabels[r-1]
}

// CardValue returns the lowest card id of the rank.
func (r Rank) CardValue() int {
	return (int(r)-1)*SuitCount + 1
}

// NewDeck returns the 52 card ids in ascending order.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for id := 1; id <= DeckSize; id++ {
		deck = append(deck, Card(id))
	}
	return deck
}

// Shuffle returns a shuffled copy of the given deck.
func Shuffle(deck []Card, rng *rand.Rand) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// SortCards orders cards by id, which is also rank order.
func SortCards(cards []Card) {
	sort.Slice(cards, func(i, j int) bool { return cards[i] < cards[j] })
}

// removeCards removes toRemove from hand. It reports false, leaving hand
// untouched, when any card is not held.
func removeCards(hand []Card, toRemove []Card) ([]Card, bool) {
	held := make(map[Card]bool, len(hand))
	for _, c := range hand {
		held[c] = true
	}
	for _, c := range toRemove {
		if !held[c] {
			return hand, false
		}
	}

	drop := make(map[Card]bool, len(toRemove))
	for _, c := range toRemove {
		drop[c] = true
	}
	updated := make([]Card, 0, len(hand)-len(toRemove))
	for _, c := range hand {
		if drop[c] {
			continue
		}
		updated = append(updated, c)
	}
	return updated, true
}

func cloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}
