package cogs

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"hrc-casino/engine"
	"hrc-casino/ledger"

	"github.com/bwmarrin/discordgo"
)

func TestCustomIDRoundTrip(t *testing.T) {
	key := engine.UserKey(engine.Mines, 42)
	action, got, arg, err := parseCustomID(customID(engine.ActionReveal, key, "7"))
	if err != nil {
		t.Fatal(err)
	}
	if action != engine.ActionReveal || got != key || arg != "7" {
		t.Errorf("got %s %v %s", action, got, arg)
	}
	for _, bad := range []string{"", "reveal|mines/user/1", "reveal|nokey|1"} {
		if _, _, _, err := parseCustomID(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func buttons(rows []discordgo.MessageComponent) []discordgo.Button {
	var out []discordgo.Button
	for _, r := range rows {
		for _, c := range r.(discordgo.ActionsRow).Components {
			out = append(out, c.(discordgo.Button))
		}
	}
	return out
}

func minesSnapshot(revealed int) engine.Snapshot {
	board := make([]string, 20)
	for i := range board {
		board[i] = "?"
		if i < revealed {
			board[i] = "💎"
		}
	}
	return engine.Snapshot{
		SessionID:  "s1",
		Key:        engine.UserKey(engine.Mines, 1),
		Status:     engine.StatusInProgress,
		Multiplier: 1,
		Board:      board,
	}
}

func TestMinesButtons(t *testing.T) {
	_, rows := RenderSnapshot(minesSnapshot(0))
	if len(rows) != 5 {
		t.Fatalf("expected 4 tile rows and a cash-out row, got %d", len(rows))
	}
	bs := buttons(rows)
	if len(bs) != 21 {
		t.Fatalf("expected 21 buttons, got %d", len(bs))
	}
	if !bs[20].Disabled {
		t.Error("cash out must be disabled before the first reveal")
	}

	_, rows = RenderSnapshot(minesSnapshot(2))
	bs = buttons(rows)
	if !bs[0].Disabled || !bs[1].Disabled || bs[2].Disabled {
		t.Error("revealed tiles should be disabled, hidden ones clickable")
	}
	if bs[20].Disabled {
		t.Error("cash out should be enabled after a reveal")
	}
	if _, key, arg, _ := parseCustomID(bs[13].CustomID); arg != "13" || key.Game != engine.Mines {
		t.Errorf("tile 13 id %q", bs[13].CustomID)
	}
}

func TestTerminalSnapshotHasNoButtons(t *testing.T) {
	snap := minesSnapshot(3)
	snap.Terminal = true
	snap.Status = engine.StatusBusted
	snap.Settlements = []engine.Settlement{{UserID: 1, Staked: 100}}
	embed, rows := RenderSnapshot(snap)
	if len(rows) != 0 {
		t.Errorf("expected no components, got %d", len(rows))
	}
	var results string
	for _, f := range embed.Fields {
		if f.Name == "Results" {
			results = f.Value
		}
	}
	if !strings.Contains(results, "<@1> -100") {
		t.Errorf("results %q", results)
	}
}

func TestTowerButtons(t *testing.T) {
	snap := engine.Snapshot{
		Key:    engine.UserKey(engine.Tower, 1),
		Status: engine.StatusInProgress,
		Board:  []string{"⬛⬛⬛", "⬛⬛⬛", "⬛🟩⬛"},
	}
	bs := buttons(components(snap))
	if len(bs) != 4 {
		t.Fatalf("expected 3 cells and cash out, got %d", len(bs))
	}
	if bs[3].Disabled {
		t.Error("cash out should be enabled after a climb")
	}

	snap.Board = []string{"⬛⬛⬛", "⬛⬛⬛"}
	if bs = buttons(components(snap)); !bs[3].Disabled {
		t.Error("cash out should be disabled at level zero")
	}
}

func TestDuelButtons(t *testing.T) {
	snap := engine.Snapshot{
		Key:     engine.UserKey(engine.Duel, 1),
		Status:  engine.StatusChallenged,
		Players: []engine.PlayerView{{UserID: 1, Selection: "rps"}, {UserID: 2, Selection: "rps"}},
	}
	bs := buttons(components(snap))
	if len(bs) != 4 {
		t.Fatalf("expected three picks and decline, got %d", len(bs))
	}
	if _, _, arg, _ := parseCustomID(bs[1].CustomID); arg != "paper" {
		t.Errorf("second pick %q", arg)
	}

	snap.Players[0].Selection = "dice"
	if bs = buttons(components(snap)); len(bs) != 2 {
		t.Errorf("expected accept and decline, got %d", len(bs))
	}
}

func TestBlackjackButtonsFollowStatus(t *testing.T) {
	key := engine.ChannelKey(engine.Blackjack, "c1")
	tests := []struct {
		status engine.Status
		want   []string
	}{
		{engine.StatusLobby, []string{engine.ActionStart}},
		{engine.StatusPlaying, []string{engine.ActionHit, engine.ActionStand}},
		{engine.StatusDealerTurn, nil},
	}
	for _, tt := range tests {
		bs := buttons(components(engine.Snapshot{Key: key, Status: tt.status}))
		if len(bs) != len(tt.want) {
			t.Errorf("%s: expected %d buttons, got %d", tt.status, len(tt.want), len(bs))
			continue
		}
		for i, b := range bs {
			if action, _, _, _ := parseCustomID(b.CustomID); action != tt.want[i] {
				t.Errorf("%s: button %d is %s", tt.status, i, action)
			}
		}
	}
}

func TestSnapshotColor(t *testing.T) {
	won := engine.Snapshot{Terminal: true, Status: engine.StatusSettled, Settlements: []engine.Settlement{{Staked: 100, Paid: 300}}}
	lost := engine.Snapshot{Terminal: true, Status: engine.StatusSettled, Settlements: []engine.Settlement{{Staked: 100}}}
	cancelled := engine.Snapshot{Terminal: true, Status: engine.StatusCancelled}
	if snapshotColor(won) == snapshotColor(lost) {
		t.Error("wins and losses should render differently")
	}
	if snapshotColor(cancelled) == snapshotColor(lost) {
		t.Error("cancelled rounds should not look like losses")
	}
}

func TestUserMessage(t *testing.T) {
	if got := userMessage(fmt.Errorf("%w: stake must be positive", engine.ErrInvalidAction)); got != "stake must be positive" {
		t.Errorf("invalid action message %q", got)
	}
	if got := userMessage(fmt.Errorf("reserve: %w", ledger.ErrInsufficientFunds)); !strings.Contains(got, "enough") {
		t.Errorf("insufficient funds message %q", got)
	}
	if isUserError(fmt.Errorf("%w: boom", ledger.ErrLedgerWrite)) {
		t.Error("ledger write failures should be logged, not shown")
	}
	if !isUserError(engine.ErrRoundClosed) {
		t.Error("closed rounds are a user error")
	}
	if isUserError(errors.New("network down")) {
		t.Error("unknown errors are not user errors")
	}
}

func TestFormatCash(t *testing.T) {
	tests := map[int64]string{0: "$0.00", 5: "$0.05", 123456: "$1,234.56", -250: "-$2.50"}
	for minor, want := range tests {
		if got := formatCash(minor); got != want {
			t.Errorf("formatCash(%d) = %s, want %s", minor, got, want)
		}
	}
}
