package utils

// General Configuration
const (
	BotColor            = 0x5865F2
	ChipsEmoji          = "<:chips:1396988413151940629>"
)

// Embed colors
const (
	ColorWin   = 0x2ECC71
	ColorLoss  = 0xE74C3C
	ColorPush  = 0xF1C40F
	ColorInfo  = 0x3498DB
	ColorError = 0xE74C3C
)

// Card System
var CardSuits = []string{"♠️", "♥️", "♦️", "♣️"}
