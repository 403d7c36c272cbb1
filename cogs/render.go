package cogs

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"hrc-casino/engine"
	"hrc-casino/games/mines"
	"hrc-casino/utils"

	"github.com/bwmarrin/discordgo"
)

const idSep = "|"

// Button actions that are not engine.Action names.
const (
	buttonCashOut = "cashout"
)

func customID(action string, key engine.Key, arg string) string {
	return strings.Join([]string{action, key.String(), arg}, idSep)
}

func parseCustomID(raw string) (action string, key engine.Key, arg string, err error) {
	parts := strings.Split(raw, idSep)
	if len(parts) != 3 {
		return "", engine.Key{}, "", fmt.Errorf("malformed component id %q", raw)
	}
	key, err = engine.ParseKey(parts[1])
	if err != nil {
		return "", engine.Key{}, "", err
	}
	return parts[0], key, parts[2], nil
}

var titles = map[engine.GameType]string{
	engine.Roulette:  "🎡 Roulette",
	engine.HorseRace: "🏇 Horse Race",
	engine.Mines:     "💣 Mines",
	engine.Tower:     "🗼 Tower",
	engine.Blackjack: "🃏 Blackjack",
	engine.Crash:     "🚀 Crash",
	engine.Duel:      "⚔️ Duel",
}

// RenderSnapshot turns a session snapshot into a message embed and its buttons.
func RenderSnapshot(snap engine.Snapshot) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	embed := CreateBrandedEmbed(titles[snap.Key.Game], describe(snap), snapshotColor(snap))

	if board := renderBoard(snap); board != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Board", Value: board})
	}
	if players := renderPlayers(snap); players != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Players", Value: players})
	}
	if len(snap.Settlements) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Results", Value: renderSettlements(snap.Settlements)})
	}

	if snap.Terminal {
		return embed, []discordgo.MessageComponent{}
	}
	return embed, components(snap)
}

func describe(snap engine.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Status:** %s", strings.ReplaceAll(string(snap.Status), "_", " "))
	switch snap.Key.Game {
	case engine.Mines, engine.Tower, engine.Crash:
		fmt.Fprintf(&b, "\n**Multiplier:** %s", utils.FormatMultiplier(snap.Multiplier))
	}
	if snap.Outcome != "" {
		fmt.Fprintf(&b, "\n**Outcome:** %s", snap.Outcome)
	}
	if !snap.Terminal && !snap.Deadline.IsZero() {
		fmt.Fprintf(&b, "\n**Closes:** <t:%d:R>", snap.Deadline.Unix())
	}
	return b.String()
}

func snapshotColor(snap engine.Snapshot) int {
	if !snap.Terminal {
		return utils.BotColor
	}
	switch snap.Status {
	case engine.StatusCancelled:
		return utils.ColorPush
	case engine.StatusBusted:
		return utils.ColorLoss
	}
	var net int64
	for _, s := range snap.Settlements {
		net += s.Net()
	}
	switch {
	case net > 0:
		return utils.ColorWin
	case net < 0:
		return utils.ColorLoss
	}
	return utils.ColorPush
}

func renderBoard(snap engine.Snapshot) string {
	if len(snap.Board) == 0 {
		return ""
	}
	if snap.Key.Game != engine.Mines {
		return strings.Join(snap.Board, "\n")
	}
	var b strings.Builder
	for i, cell := range snap.Board {
		if cell == "?" {
			cell = "⬜"
		}
		b.WriteString(cell)
		if (i+1)%mines.Cols == 0 {
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderPlayers(snap engine.Snapshot) string {
	lines := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		line := fmt.Sprintf("%s · %s", mention(p.UserID), chips(p.Stake))
		if p.Selection != "" {
			line += fmt.Sprintf(" on **%s**", p.Selection)
		}
		if p.State != "" {
			line += " · " + strings.ReplaceAll(p.State, "_", " ")
		}
		if p.Detail != "" {
			line += " · " + p.Detail
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func renderSettlements(settlements []engine.Settlement) string {
	lines := make([]string, 0, len(settlements))
	for _, s := range settlements {
		sign := "+"
		if s.Net() < 0 {
			sign = "-"
		}
		net := s.Net()
		if net < 0 {
			net = -net
		}
		line := fmt.Sprintf("%s %s%s", mention(s.UserID), sign, chips(net))
		if s.Note != "" {
			line += fmt.Sprintf(" (%s)", s.Note)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func components(snap engine.Snapshot) []discordgo.MessageComponent {
	switch snap.Key.Game {
	case engine.Mines:
		return minesButtons(snap)
	case engine.Tower:
		return towerButtons(snap)
	case engine.Blackjack:
		return blackjackButtons(snap)
	case engine.Crash:
		if snap.Status == engine.StatusRunning {
			return []discordgo.MessageComponent{CreateActionRow(
				CreateButton(customID(buttonCashOut, snap.Key, ""), "Cash Out", discordgo.SuccessButton, false, nil),
			)}
		}
	case engine.Duel:
		return duelButtons(snap)
	}
	return []discordgo.MessageComponent{}
}

func minesButtons(snap engine.Snapshot) []discordgo.MessageComponent {
	rows := make([]discordgo.MessageComponent, 0, mines.Rows+1)
	revealed := 0
	for r := 0; r < mines.Rows; r++ {
		buttons := make([]discordgo.MessageComponent, 0, mines.Cols)
		for c := 0; c < mines.Cols; c++ {
			idx := r*mines.Cols + c
			cell := "?"
			if idx < len(snap.Board) {
				cell = snap.Board[idx]
			}
			hidden := cell == "?"
			if !hidden {
				revealed++
			}
			buttons = append(buttons, CreateButton(
				customID(engine.ActionReveal, snap.Key, fmt.Sprint(idx)), cell, discordgo.SecondaryButton, !hidden, nil))
		}
		rows = append(rows, CreateActionRow(buttons...))
	}
	rows = append(rows, CreateActionRow(
		CreateButton(customID(buttonCashOut, snap.Key, ""), "Cash Out", discordgo.SuccessButton, revealed == 0, nil),
	))
	return rows
}

func towerButtons(snap engine.Snapshot) []discordgo.MessageComponent {
	if len(snap.Board) == 0 {
		return []discordgo.MessageComponent{}
	}
	cells := utf8.RuneCountInString(snap.Board[0])
	climbed := 0
	for _, row := range snap.Board {
		climbed += strings.Count(row, "🟩")
	}
	buttons := make([]discordgo.MessageComponent, 0, cells)
	for c := 0; c < cells; c++ {
		buttons = append(buttons, CreateButton(
			customID(engine.ActionClimb, snap.Key, fmt.Sprint(c)), fmt.Sprintf("Cell %d", c+1), discordgo.PrimaryButton, false, nil))
	}
	return []discordgo.MessageComponent{
		CreateActionRow(buttons...),
		CreateActionRow(CreateButton(customID(buttonCashOut, snap.Key, ""), "Cash Out", discordgo.SuccessButton, climbed == 0, nil)),
	}
}

func blackjackButtons(snap engine.Snapshot) []discordgo.MessageComponent {
	switch snap.Status {
	case engine.StatusLobby:
		return []discordgo.MessageComponent{CreateActionRow(
			CreateButton(customID(engine.ActionStart, snap.Key, ""), "Deal", discordgo.PrimaryButton, false, nil),
		)}
	case engine.StatusPlaying:
		return []discordgo.MessageComponent{CreateActionRow(
			CreateButton(customID(engine.ActionHit, snap.Key, ""), "Hit", discordgo.PrimaryButton, false, nil),
			CreateButton(customID(engine.ActionStand, snap.Key, ""), "Stand", discordgo.SecondaryButton, false, nil),
		)}
	}
	return []discordgo.MessageComponent{}
}

func duelButtons(snap engine.Snapshot) []discordgo.MessageComponent {
	if snap.Status != engine.StatusChallenged {
		return []discordgo.MessageComponent{}
	}
	decline := CreateButton(customID(engine.ActionDecline, snap.Key, ""), "Decline", discordgo.DangerButton, false, nil)
	if len(snap.Players) > 0 && snap.Players[0].Selection == "rps" {
		return []discordgo.MessageComponent{CreateActionRow(
			CreateButton(customID(engine.ActionAccept, snap.Key, "rock"), "Rock", discordgo.PrimaryButton, false, &discordgo.ComponentEmoji{Name: "🪨"}),
			CreateButton(customID(engine.ActionAccept, snap.Key, "paper"), "Paper", discordgo.PrimaryButton, false, &discordgo.ComponentEmoji{Name: "📄"}),
			CreateButton(customID(engine.ActionAccept, snap.Key, "scissors"), "Scissors", discordgo.PrimaryButton, false, &discordgo.ComponentEmoji{Name: "✂️"}),
			decline,
		)}
	}
	return []discordgo.MessageComponent{CreateActionRow(
		CreateButton(customID(engine.ActionAccept, snap.Key, ""), "Accept", discordgo.SuccessButton, false, nil),
		decline,
	)}
}
