package cogs

import (
	"fmt"
	"strconv"
	"time"

	"hrc-casino/utils"

	"github.com/bwmarrin/discordgo"
)

// CreateBrandedEmbed creates a basic embed with bot branding.
func CreateBrandedEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "High Roller Club",
		},
	}
}

// InsufficientChipsEmbed tells a player their balance cannot cover a stake.
func InsufficientChipsEmbed(required, balance int64, what string) *discordgo.MessageEmbed {
	embed := CreateBrandedEmbed(
		"Not Enough Chips",
		fmt.Sprintf("You don't have enough chips for %s.\n**Your balance:** %s %s\n**Required:** %s %s",
			what,
			utils.FormatChips(balance), utils.ChipsEmoji,
			utils.FormatChips(required), utils.ChipsEmoji),
		utils.ColorError,
	)
	embed.Fields = []*discordgo.MessageEmbedField{{
		Name:  "How to Get More Chips",
		Value: "Use `/casino buy` to exchange cash for chips.",
	}}
	return embed
}

// ErrorEmbed is a short red notice.
func ErrorEmbed(message string) *discordgo.MessageEmbed {
	return CreateBrandedEmbed("❌ Error", message, utils.ColorError)
}

// CreateActionRow creates an action row with buttons.
func CreateActionRow(buttons ...discordgo.MessageComponent) discordgo.MessageComponent {
	return discordgo.ActionsRow{Components: buttons}
}

// CreateButton creates a button component.
func CreateButton(customID, label string, style discordgo.ButtonStyle, disabled bool, emoji *discordgo.ComponentEmoji) discordgo.MessageComponent {
	button := discordgo.Button{
		CustomID: customID,
		Label:    label,
		Style:    style,
		Disabled: disabled,
	}
	if emoji != nil {
		button.Emoji = emoji
	}
	return button
}

// SendInteractionResponse answers a slash command with an embed and components.
func SendInteractionResponse(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// UpdateComponentInteraction replaces the message a button belongs to.
func UpdateComponentInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
}

// ParseUserID converts a Discord snowflake to int64.
func ParseUserID(id string) (int64, error) { return strconv.ParseInt(id, 10, 64) }

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func mention(userID int64) string {
	return fmt.Sprintf("<@%d>", userID)
}

func chips(amount int64) string {
	return utils.FormatChips(amount) + " " + utils.ChipsEmoji
}
