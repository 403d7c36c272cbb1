// Package cogs is the Discord front end: slash commands and buttons are
// translated into engine and ledger calls, and session snapshots are
// rendered back into messages.
package cogs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"hrc-casino/engine"
	"hrc-casino/games/dice"
	"hrc-casino/games/slots"
	"hrc-casino/ledger"
	"hrc-casino/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const interactionTimeout = 5 * time.Second

type messageRef struct {
	channelID string
	messageID string
}

// Casino answers interactions and keeps session messages current.
type Casino struct {
	session *discordgo.Session
	engine  *engine.Engine
	ledger  *ledger.Ledger
	log     *zap.Logger

	mu       sync.Mutex
	messages map[string]messageRef
}

// New creates the casino cog. It must be subscribed to the engine to
// receive timer-driven updates.
func New(s *discordgo.Session, e *engine.Engine, l *ledger.Ledger, log *zap.Logger) *Casino {
	return &Casino{
		session:  s,
		engine:   e,
		ledger:   l,
		log:      log,
		messages: make(map[string]messageRef),
	}
}

// RegisterCommands overwrites the application's global commands.
func (c *Casino) RegisterCommands(s *discordgo.Session) error {
	cmds, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, "", Commands())
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	c.log.Info("registered slash commands", zap.Int("count", len(cmds)))
	return nil
}

// HandleInteraction routes commands and button presses.
func (c *Casino) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	user := interactionUser(i)
	if user == nil {
		return
	}
	userID, err := ParseUserID(user.ID)
	if err != nil {
		c.log.Warn("unparseable user id", zap.String("user_id", user.ID))
		return
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		c.handleCommand(ctx, s, i, userID)
	case discordgo.InteractionMessageComponent:
		c.handleComponent(ctx, s, i, userID)
	}
}

func (c *Casino) handleCommand(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, userID int64) {
	data := i.ApplicationCommandData()
	opts := optionMap(data.Options)

	if _, err := c.ledger.Open(ctx, userID); err != nil {
		c.respondError(s, i, userID, err)
		return
	}

	var err error
	switch data.Name {
	case "casino":
		err = c.handleAccount(ctx, s, i, userID, data.Options)
	case "roulette":
		err = c.placeShared(ctx, s, i, userID, engine.Roulette, opts, engine.Bet{Selection: stringOpt(opts, "bet")})
	case "race":
		err = c.placeShared(ctx, s, i, userID, engine.HorseRace, opts, engine.Bet{Selection: stringOpt(opts, "horse")})
	case "blackjack":
		err = c.placeShared(ctx, s, i, userID, engine.Blackjack, opts, engine.Bet{})
	case "crash":
		err = c.placeShared(ctx, s, i, userID, engine.Crash, opts, engine.Bet{AutoCashout: floatOpt(opts, "target")})
	case "mines":
		err = c.startSolo(ctx, s, i, userID, engine.Mines, opts, map[string]string{"mines": intOptString(opts, "mines")})
	case "tower":
		err = c.startSolo(ctx, s, i, userID, engine.Tower, opts, map[string]string{"difficulty": stringOpt(opts, "difficulty")})
	case "pvp":
		err = c.challenge(ctx, s, i, userID, opts)
	case "slots":
		err = c.playInstant(ctx, s, i, userID, slots.Game{}, opts, "")
	case "dice":
		err = c.playInstant(ctx, s, i, userID, dice.Game{}, opts, stringOpt(opts, "bet"))
	default:
		return
	}
	if err != nil {
		c.respondError(s, i, userID, err)
	}
}

// stake parses the amount option against the user's balance.
func (c *Casino) stake(ctx context.Context, userID int64, opts options) (int64, error) {
	balance, err := c.ledger.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	amount, err := utils.ParseBet(stringOpt(opts, "amount"), balance)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", engine.ErrInvalidAction, err)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: stake must be positive", engine.ErrInvalidAction)
	}
	return amount, nil
}

// placeShared joins the channel's session for game, opening one when none
// is live.
func (c *Casino) placeShared(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, userID int64, game engine.GameType, opts options, bet engine.Bet) error {
	amount, err := c.stake(ctx, userID, opts)
	if err != nil {
		return err
	}
	bet.Amount = amount
	key := engine.ChannelKey(game, i.ChannelID)

	snap, err := c.engine.JoinSession(ctx, key, userID, bet)
	if errors.Is(err, engine.ErrSessionNotFound) {
		snap, err = c.engine.StartSession(ctx, key, userID, engine.StartRequest{Bet: bet})
		if errors.Is(err, engine.ErrSessionExists) {
			snap, err = c.engine.JoinSession(ctx, key, userID, bet)
		} else if err == nil {
			return c.postSession(s, i, snap)
		}
	}
	if err != nil {
		return err
	}

	c.refresh(snap)
	msg := fmt.Sprintf("%s placed %s", mention(userID), chips(amount))
	if bet.Selection != "" {
		msg += fmt.Sprintf(" on **%s**", bet.Selection)
	}
	return SendInteractionResponse(s, i, CreateBrandedEmbed(titles[game], msg, utils.ColorInfo), nil, true)
}

func (c *Casino) startSolo(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, userID int64, game engine.GameType, opts options, startOpts map[string]string) error {
	amount, err := c.stake(ctx, userID, opts)
	if err != nil {
		return err
	}
	snap, err := c.engine.StartSession(ctx, engine.UserKey(game, userID), userID, engine.StartRequest{
		Bet:     engine.Bet{Amount: amount},
		Options: startOpts,
	})
	if err != nil {
		return err
	}
	return c.postSession(s, i, snap)
}

func (c *Casino) challenge(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, userID int64, opts options) error {
	amount, err := c.stake(ctx, userID, opts)
	if err != nil {
		return err
	}
	opponent := opts["opponent"]
	if opponent == nil {
		return fmt.Errorf("%w: pick an opponent", engine.ErrInvalidAction)
	}
	opponentUser := opponent.UserValue(nil)
	if r := i.ApplicationCommandData().Resolved; r != nil && r.Users[opponentUser.ID] != nil {
		opponentUser = r.Users[opponentUser.ID]
	}
	if opponentUser.Bot {
		return fmt.Errorf("%w: bots don't duel", engine.ErrInvalidAction)
	}
	opponentID, err := ParseUserID(opponentUser.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrInvalidAction, err)
	}

	event := false
	if o := opts["event"]; o != nil && o.BoolValue() {
		if i.Member == nil || i.Member.Permissions&discordgo.PermissionManageServer == 0 {
			return fmt.Errorf("%w: only server managers can host event duels", engine.ErrInvalidAction)
		}
		event = true
	}

	snap, err := c.engine.StartSession(ctx, engine.UserKey(engine.Duel, userID), userID, engine.StartRequest{
		Bet:      engine.Bet{Amount: amount, Selection: stringOpt(opts, "pick")},
		Opponent: opponentID,
		Options: map[string]string{
			"game":  stringOpt(opts, "game"),
			"event": strconv.FormatBool(event),
		},
	})
	if err != nil {
		return err
	}
	return c.postSession(s, i, snap)
}

func (c *Casino) playInstant(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, userID int64, game engine.InstantGame, opts options, selection string) error {
	amount, err := c.stake(ctx, userID, opts)
	if err != nil {
		return err
	}
	res, err := c.engine.PlayInstant(ctx, game, userID, engine.Bet{Amount: amount, Selection: selection})
	if err != nil {
		return err
	}
	color := utils.ColorLoss
	if res.Settlement.Net() > 0 {
		color = utils.ColorWin
	} else if res.Settlement.Net() == 0 {
		color = utils.ColorPush
	}
	desc := fmt.Sprintf("%s\n\n**Multiplier:** %s\n**Paid:** %s\n**Balance:** %s",
		res.Outcome, utils.FormatMultiplier(res.Multiplier), chips(res.Settlement.Paid), chips(res.Balance))
	title := "🎰 Slots"
	if game.Name() == "dice" {
		title = "🎲 Dice"
	}
	return SendInteractionResponse(s, i, CreateBrandedEmbed(title, desc, color), nil, false)
}

func (c *Casino) handleComponent(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, userID int64) {
	action, key, arg, err := parseCustomID(i.MessageComponentData().CustomID)
	if err != nil {
		c.log.Debug("ignoring component", zap.Error(err))
		return
	}

	var snap engine.Snapshot
	switch action {
	case buttonCashOut:
		snap, err = c.engine.CashOut(ctx, key, userID)
	default:
		move := engine.Action{Name: action, Value: arg}
		if arg != "" {
			if n, convErr := strconv.Atoi(arg); convErr == nil {
				move.Index = n
			}
		}
		snap, err = c.engine.Act(ctx, key, userID, move)
	}
	if err != nil {
		c.respondError(s, i, userID, err)
		return
	}

	if i.Message != nil {
		c.track(snap, messageRef{channelID: i.ChannelID, messageID: i.Message.ID})
	}
	embed, components := RenderSnapshot(snap)
	if err := UpdateComponentInteraction(s, i, embed, components); err != nil {
		c.log.Warn("update component message failed", zap.String("session_id", snap.SessionID), zap.Error(err))
	}
}

// postSession answers with the session message and remembers where it lives.
func (c *Casino) postSession(s *discordgo.Session, i *discordgo.InteractionCreate, snap engine.Snapshot) error {
	embed, components := RenderSnapshot(snap)
	if err := SendInteractionResponse(s, i, embed, components, false); err != nil {
		return err
	}
	msg, err := s.InteractionResponse(i.Interaction)
	if err != nil {
		c.log.Warn("fetch session message failed", zap.String("session_id", snap.SessionID), zap.Error(err))
		return nil
	}
	c.track(snap, messageRef{channelID: msg.ChannelID, messageID: msg.ID})
	return nil
}

func (c *Casino) track(snap engine.Snapshot, ref messageRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap.Terminal {
		delete(c.messages, snap.SessionID)
		return
	}
	c.messages[snap.SessionID] = ref
}

// SessionUpdated implements engine.Listener by editing the session's message.
func (c *Casino) SessionUpdated(snap engine.Snapshot) {
	c.refresh(snap)
}

func (c *Casino) refresh(snap engine.Snapshot) {
	c.mu.Lock()
	ref, ok := c.messages[snap.SessionID]
	if ok && snap.Terminal {
		delete(c.messages, snap.SessionID)
	}
	c.mu.Unlock()
	if !ok || c.session == nil {
		return
	}

	embed, components := RenderSnapshot(snap)
	_, err := c.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    ref.channelID,
		ID:         ref.messageID,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &components,
	})
	if err != nil {
		c.log.Warn("edit session message failed", zap.String("session_id", snap.SessionID), zap.Error(err))
	}
}

func (c *Casino) handleAccount(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, userID int64, raw []*discordgo.ApplicationCommandInteractionDataOption) error {
	if len(raw) == 0 {
		return engine.ErrInvalidAction
	}
	sub := raw[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "balance":
		acct, err := c.ledger.Account(ctx, userID)
		if err != nil {
			return err
		}
		return SendInteractionResponse(s, i, accountEmbed(acct), nil, true)
	case "history":
		txns, err := c.ledger.History(ctx, userID, 10)
		if err != nil {
			return err
		}
		return SendInteractionResponse(s, i, historyEmbed(txns), nil, true)
	case "buy", "sell":
		n := int64(0)
		if o := opts["chips"]; o != nil {
			n = o.IntValue()
		}
		res, err := c.ledger.Exchange(ctx, ledger.ExchangeRequest{
			Key:       i.ID,
			UserID:    userID,
			Chips:     n,
			Direction: ledger.Direction(sub.Name),
		})
		if err != nil {
			return err
		}
		verb := "Bought"
		if sub.Name == "sell" {
			verb = "Sold"
		}
		desc := fmt.Sprintf("%s %s for %s\n**Chips:** %s\n**Cash:** %s",
			verb, chips(n), formatCash(res.CashMinor), chips(res.Chips.Balance), formatCash(res.Cash.Balance))
		return SendInteractionResponse(s, i, CreateBrandedEmbed("💱 Exchange", desc, utils.ColorInfo), nil, true)
	}
	return engine.ErrInvalidAction
}

func accountEmbed(a ledger.Account) *discordgo.MessageEmbed {
	embed := CreateBrandedEmbed("💰 Balance", "", utils.BotColor)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Chips", Value: chips(a.ChipBalance), Inline: true},
		{Name: "Cash", Value: formatCash(a.CashBalance), Inline: true},
		{Name: "Games Played", Value: utils.FormatNumber(a.GamesPlayed), Inline: true},
		{Name: "Lifetime Won", Value: chips(a.LifetimeWon), Inline: true},
		{Name: "Lifetime Lost", Value: chips(a.LifetimeLost), Inline: true},
	}
	return embed
}

func historyEmbed(txns []ledger.Transaction) *discordgo.MessageEmbed {
	if len(txns) == 0 {
		return CreateBrandedEmbed("📜 History", "No transactions yet.", utils.ColorInfo)
	}
	lines := make([]string, 0, len(txns))
	for _, t := range txns {
		amount := chips(t.Delta)
		if t.Asset == ledger.AssetCash {
			amount = formatCash(t.Delta)
		}
		lines = append(lines, fmt.Sprintf("<t:%d:R> **%s** %s", t.CreatedAt.Unix(), strings.ReplaceAll(string(t.Kind), "_", " "), amount))
	}
	return CreateBrandedEmbed("📜 History", strings.Join(lines, "\n"), utils.ColorInfo)
}

func formatCash(minor int64) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s$%s.%02d", sign, utils.FormatNumber(minor/100), minor%100)
}

// userMessage maps engine and ledger errors to something a player can act on.
func userMessage(err error) string {
	switch {
	case errors.Is(err, engine.ErrSessionExists):
		return "You already have a game running. Finish it first."
	case errors.Is(err, engine.ErrSessionNotFound):
		return "That game has already ended."
	case errors.Is(err, engine.ErrRoundClosed):
		return "Bets are closed for this round."
	case errors.Is(err, engine.ErrAlreadyActed):
		return "That game is already settled."
	case errors.Is(err, engine.ErrNotParticipant):
		return "This isn't your game."
	case errors.Is(err, engine.ErrConcurrentSettlement):
		return "Still settling, try again in a moment."
	case errors.Is(err, engine.ErrInvalidAction), errors.Is(err, ledger.ErrInvalidAmount):
		return strings.TrimPrefix(err.Error(), engine.ErrInvalidAction.Error()+": ")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "You don't have enough for that."
	}
	return "Something went wrong. Your chips are safe; please try again."
}

func (c *Casino) respondError(s *discordgo.Session, i *discordgo.InteractionCreate, userID int64, err error) {
	embed := ErrorEmbed(userMessage(err))
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		balance, balErr := c.ledger.Balance(context.Background(), userID)
		if balErr == nil && i.Type == discordgo.InteractionApplicationCommand {
			embed = InsufficientChipsEmbed(requestedAmount(i), balance, "this bet")
		}
	case !isUserError(err):
		c.log.Error("interaction failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	if err := SendInteractionResponse(s, i, embed, nil, true); err != nil {
		c.log.Warn("send error response failed", zap.Error(err))
	}
}

func isUserError(err error) bool {
	return userMessage(err) != userMessage(errors.New(""))
}

func requestedAmount(i *discordgo.InteractionCreate) int64 {
	raw := stringOpt(optionMap(i.ApplicationCommandData().Options), "amount")
	n, err := utils.ParseBet(raw, 0)
	if err != nil {
		return 0
	}
	return n
}

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	m := make(options, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func stringOpt(opts options, name string) string {
	if o := opts[name]; o != nil {
		return o.StringValue()
	}
	return ""
}

func intOptString(opts options, name string) string {
	if o := opts[name]; o != nil {
		return strconv.FormatInt(o.IntValue(), 10)
	}
	return ""
}

func floatOpt(opts options, name string) float64 {
	if o := opts[name]; o != nil {
		return o.FloatValue()
	}
	return 0
}
