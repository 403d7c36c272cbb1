package engine

import (
	"context"

	"go.uber.org/zap"
)

// Abandon settles a solo bet nobody finished. Forfeit records a loss,
// refund returns the stake, cash out pays amount when the session had
// progressed far enough to allow it and refunds otherwise. It returns the
// terminal status to finish with. Must be called with the session lock held.
func (b *Base) Abandon(ctx context.Context, policy AbandonPolicy, userID, stake, amount int64, canCashOut bool) (Status, Settlement, error) {
	b.env.Log.Info("abandoning session",
		zap.String("session_id", b.id),
		zap.Int64("user_id", userID),
		zap.String("policy", string(policy)),
		zap.Bool("can_cash_out", canCashOut),
	)
	switch policy {
	case PolicyForfeit:
		st, err := b.Pay(ctx, userID, 0, stake, 0)
		st.Note = "forfeited"
		return StatusCancelled, st, err
	case PolicyCashOut:
		if canCashOut {
			st, err := b.Pay(ctx, userID, amount, stake, 0)
			return StatusCashedOut, st, err
		}
	}
	st, err := b.Refund(ctx, userID, stake, 0)
	return StatusCancelled, st, err
}
