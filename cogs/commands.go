package cogs

import (
	"hrc-casino/games/crash"
	"hrc-casino/games/horse_racing"
	"hrc-casino/games/mines"

	"github.com/bwmarrin/discordgo"
)

func amountOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "amount",
		Description: "Chips to stake (e.g. 500, 10k, half, all, 25%)",
		Required:    true,
	}
}

func choices(values ...string) []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(values))
	for _, v := range values {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: v, Value: v})
	}
	return out
}

func horseChoices() []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(horse_racing.Horses))
	for _, h := range horse_racing.Horses {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: h.Icon + " " + h.Name, Value: h.Name})
	}
	return out
}

// Commands lists every slash command the casino answers.
func Commands() []*discordgo.ApplicationCommand {
	minMines, minTarget, minChips := float64(mines.MinMines), crash.MinTarget, 1.0

	return []*discordgo.ApplicationCommand{
		{
			Name:        "casino",
			Description: "Your chips and cash",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "balance", Description: "Show your balances and stats"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "history", Description: "Show your latest transactions"},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "buy", Description: "Exchange cash for chips",
					Options: []*discordgo.ApplicationCommandOption{{
						Type: discordgo.ApplicationCommandOptionInteger, Name: "chips", Description: "Chips to buy", Required: true, MinValue: &minChips,
					}},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "sell", Description: "Exchange chips for cash",
					Options: []*discordgo.ApplicationCommandOption{{
						Type: discordgo.ApplicationCommandOptionInteger, Name: "chips", Description: "Chips to sell", Required: true, MinValue: &minChips,
					}},
				},
			},
		},
		{
			Name:        "roulette",
			Description: "Bet on the channel's roulette wheel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionString, Name: "bet", Required: true,
					Description: "0-36, red, black, odd, even, low, high, dozen1-3 or col1-3",
				},
				amountOption(),
			},
		},
		{
			Name:        "race",
			Description: "Back a horse in the channel's race",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "horse", Description: "Your horse", Required: true, Choices: horseChoices()},
				amountOption(),
			},
		},
		{
			Name:        "mines",
			Description: "Uncover gems and avoid the mines",
			Options: []*discordgo.ApplicationCommandOption{
				amountOption(),
				{
					Type: discordgo.ApplicationCommandOptionInteger, Name: "mines", Description: "Number of mines (default 3)",
					MinValue: &minMines, MaxValue: float64(mines.MaxMines),
				},
			},
		},
		{
			Name:        "tower",
			Description: "Climb the tower one safe cell at a time",
			Options: []*discordgo.ApplicationCommandOption{
				amountOption(),
				{
					Type: discordgo.ApplicationCommandOptionString, Name: "difficulty", Description: "Tower difficulty (default medium)",
					Choices: choices("easy", "medium", "hard", "expert"),
				},
			},
		},
		{
			Name:        "blackjack",
			Description: "Take a seat at the channel's blackjack table",
			Options:     []*discordgo.ApplicationCommandOption{amountOption()},
		},
		{
			Name:        "crash",
			Description: "Ride the multiplier and cash out before it crashes",
			Options: []*discordgo.ApplicationCommandOption{
				amountOption(),
				{
					Type: discordgo.ApplicationCommandOptionNumber, Name: "target", Description: "Automatic cash-out multiplier",
					MinValue: &minTarget,
				},
			},
		},
		{
			Name:        "pvp",
			Description: "Challenge another player",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "opponent", Description: "Who to challenge", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "game", Description: "Duel game", Required: true, Choices: choices("dice", "coinflip", "rps")},
				amountOption(),
				{Type: discordgo.ApplicationCommandOptionString, Name: "pick", Description: "Your rock-paper-scissors pick", Choices: choices("rock", "paper", "scissors")},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "event", Description: "Waive the house fee (server managers only)"},
			},
		},
		{
			Name:        "slots",
			Description: "Spin the slot machine",
			Options:     []*discordgo.ApplicationCommandOption{amountOption()},
		},
		{
			Name:        "dice",
			Description: "Roll two dice against the house",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionString, Name: "bet", Description: "What the roll must show", Required: true,
					Choices: choices("seven", "over_7", "under_7", "even", "odd", "doubles"),
				},
				amountOption(),
			},
		},
	}
}
