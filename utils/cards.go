package utils

import (
	"math/rand"
	"strings"
)

// Card represents a playing card
type Card struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

// NewCard creates a new card
func NewCard(rank, suit string) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the string representation of a card
func (c Card) String() string {
	return c.Rank + c.Suit
}

// CardRanks defines the blackjack values for card ranks; aces count 11 until adjusted
var CardRanks = map[string]int{
	"2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8, "9": 9, "10": 10,
	"J": 10, "Q": 10, "K": 10, "A": 11,
}

var cardOrder = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// Value returns the blackjack value of the card
func (c Card) Value() int {
	return CardRanks[c.Rank]
}

// IsAce checks if the card is an Ace
func (c Card) IsAce() bool {
	return c.Rank == "A"
}

// Deck represents a shoe of playing cards
type Deck struct {
	Cards      []Card `json:"cards"`
	NumDecks   int    `json:"num_decks"`
	DealtCards int    `json:"dealt_cards"`
	rng        *rand.Rand
}

// NewDeck creates a shuffled shoe of numDecks decks
func NewDeck(numDecks int, rng *rand.Rand) *Deck {
	deck := &Deck{
		Cards:    make([]Card, 0, numDecks*52),
		NumDecks: numDecks,
		rng:      rng,
	}
	for d := 0; d < numDecks; d++ {
		for _, suit := range CardSuits {
			for _, rank := range cardOrder {
				deck.Cards = append(deck.Cards, NewCard(rank, suit))
			}
		}
	}
	deck.Shuffle()
	return deck
}

// NewStackedDeck returns a deck that deals cards in the given order.
func NewStackedDeck(rng *rand.Rand, cards ...Card) *Deck {
	return &Deck{Cards: cards, NumDecks: 1, rng: rng}
}

// Shuffle shuffles the deck
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.Cards), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
	d.DealtCards = 0
}

// Deal deals one card from the deck
func (d *Deck) Deal() Card {
	if d.DealtCards >= len(d.Cards) {
		// Reshuffle if no cards left
		d.Shuffle()
	}
	card := d.Cards[d.DealtCards]
	d.DealtCards++
	return card
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return len(d.Cards) - d.DealtCards
}

// Hand represents a blackjack hand
type Hand struct {
	Cards []Card `json:"cards"`
}

// AddCard adds a card to the hand
func (h *Hand) AddCard(card Card) {
	h.Cards = append(h.Cards, card)
}

// Value calculates the hand value with Ace handling
func (h *Hand) Value() int {
	total := 0
	aces := 0
	for _, card := range h.Cards {
		if card.IsAce() {
			aces++
		}
		total += card.Value()
	}
	for aces > 0 && total > 21 {
		total -= 10
		aces--
	}
	return total
}

// IsSoft reports whether an Ace is still counted as 11
func (h *Hand) IsSoft() bool {
	total := 0
	aces := 0
	for _, card := range h.Cards {
		if card.IsAce() {
			aces++
		}
		total += card.Value()
	}
	for aces > 0 && total > 21 {
		total -= 10
		aces--
	}
	return aces > 0
}

// IsBlackjack checks if the hand is a natural blackjack (21 with 2 cards)
func (h *Hand) IsBlackjack() bool {
	return len(h.Cards) == 2 && h.Value() == 21
}

// IsBusted checks if the hand is over 21
func (h *Hand) IsBusted() bool {
	return h.Value() > 21
}

// String returns string representation of the hand
func (h *Hand) String() string {
	parts := make([]string, len(h.Cards))
	for i, card := range h.Cards {
		parts[i] = card.String()
	}
	return strings.Join(parts, " ")
}
