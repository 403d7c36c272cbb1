package payout

import "hrc-casino/utils"

// BlackjackResult classifies a settled seat.
type BlackjackResult string

const (
	BlackjackBust    BlackjackResult = "bust"
	BlackjackNatural BlackjackResult = "blackjack"
	BlackjackWin     BlackjackResult = "win"
	BlackjackPush    BlackjackResult = "push"
	BlackjackLose    BlackjackResult = "lose"
)

// DealerStandValue is where the dealer stops drawing.
const DealerStandValue = 17

// SettleBlackjack compares a finished player hand to the dealer's and returns
// the result with its total-return multiplier.
func SettleBlackjack(player, dealer *utils.Hand) (BlackjackResult, float64) {
	pv := player.Value()
	if pv > 21 {
		return BlackjackBust, 0
	}
	if player.IsBlackjack() {
		if dealer.IsBlackjack() {
			return BlackjackPush, 1
		}
		return BlackjackNatural, 2.5
	}
	if dealer.IsBlackjack() {
		return BlackjackLose, 0
	}
	dv := dealer.Value()
	switch {
	case dv > 21 || pv > dv:
		return BlackjackWin, 2
	case pv == dv:
		return BlackjackPush, 1
	default:
		return BlackjackLose, 0
	}
}

// DealerShouldDraw reports whether the dealer takes another card.
func DealerShouldDraw(dealer *utils.Hand) bool {
	return dealer.Value() < DealerStandValue
}
