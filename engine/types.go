package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"hrc-casino/ledger"
)

// GameType names a game family.
type GameType string

const (
	Roulette  GameType = "roulette"
	HorseRace GameType = "horse_race"
	Mines     GameType = "mines"
	Tower     GameType = "tower"
	Blackjack GameType = "blackjack"
	Crash     GameType = "crash"
	Duel      GameType = "duel"
)

// Key addresses a live session: one per game and scope, where scope is a
// channel for shared rounds and a user for solo games and challenges.
type Key struct {
	Game  GameType
	Scope string
	ID    string
}

// ChannelKey addresses a session shared by everyone in a channel.
func ChannelKey(game GameType, channelID string) Key {
	return Key{Game: game, Scope: "channel", ID: channelID}
}

// UserKey addresses a session owned by one user.
func UserKey(game GameType, userID int64) Key {
	return Key{Game: game, Scope: "user", ID: strconv.FormatInt(userID, 10)}
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Game, k.Scope, k.ID)
}

// ParseKey reverses Key.String.
func ParseKey(raw string) (Key, error) {
	parts := strings.SplitN(raw, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return Key{}, fmt.Errorf("invalid session key %q", raw)
	}
	return Key{Game: GameType(parts[0]), Scope: parts[1], ID: parts[2]}, nil
}

// Status is a session lifecycle state. Each game family uses its own subset.
type Status string

const (
	StatusOpen       Status = "open"
	StatusLocked     Status = "locked"
	StatusResolving  Status = "resolving"
	StatusSettled    Status = "settled"
	StatusCancelled  Status = "cancelled"
	StatusInProgress Status = "in_progress"
	StatusBusted     Status = "busted"
	StatusCashedOut  Status = "cashed_out"
	StatusLobby      Status = "lobby"
	StatusPlaying    Status = "playing"
	StatusDealerTurn Status = "dealer_turn"
	StatusWaiting    Status = "waiting"
	StatusRunning    Status = "running"
	StatusCrashed    Status = "crashed"
	StatusChallenged Status = "challenged"
)

// Bet is a stake with a game-specific selection.
type Bet struct {
	Amount      int64
	Selection   string
	AutoCashout float64
}

// Action names a player move.
type Action struct {
	Name  string
	Index int
	Value string
}

const (
	ActionReveal  = "reveal"
	ActionClimb   = "climb"
	ActionHit     = "hit"
	ActionStand   = "stand"
	ActionStart   = "start"
	ActionAccept  = "accept"
	ActionDecline = "decline"
	ActionPick    = "pick"
)

// StartRequest opens a session. Options carries per-game settings such as
// the mine count or tower difficulty.
type StartRequest struct {
	Bet      Bet
	Opponent int64
	Options  map[string]string
}

// Option returns a start option or def when absent.
func (r StartRequest) Option(name, def string) string {
	if v, ok := r.Options[name]; ok && v != "" {
		return v
	}
	return def
}

// PlayerView is one participant as shown to clients.
type PlayerView struct {
	UserID    int64
	Stake     int64
	Selection string
	State     string
	Detail    string
}

// Settlement is the final ledger effect for one participant bet.
type Settlement struct {
	UserID int64
	Staked int64
	Paid   int64
	Kind   ledger.Kind
	Note   string
}

// Net is paid minus staked.
func (s Settlement) Net() int64 { return s.Paid - s.Staked }

// Snapshot is an immutable view of a session for presentation.
type Snapshot struct {
	SessionID   string
	Key         Key
	Status      Status
	Terminal    bool
	Deadline    time.Time
	Multiplier  float64
	Outcome     string
	Board       []string
	Players     []PlayerView
	Settlements []Settlement
}

// AbandonPolicy decides what happens to a solo session nobody finishes.
type AbandonPolicy string

const (
	PolicyForfeit AbandonPolicy = "forfeit"
	PolicyRefund  AbandonPolicy = "refund"
	PolicyCashOut AbandonPolicy = "cashout"
)

// ParseAbandonPolicy validates a policy name.
func ParseAbandonPolicy(raw string) (AbandonPolicy, error) {
	switch p := AbandonPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case PolicyForfeit, PolicyRefund, PolicyCashOut:
		return p, nil
	}
	return "", fmt.Errorf("unknown abandon policy %q", raw)
}
