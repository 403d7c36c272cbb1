package engine

import (
	"context"
	"fmt"
	"math/rand"

	"hrc-casino/ledger"
	"hrc-casino/payout"
	"hrc-casino/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InstantGame resolves a single-shot bet with no session state.
type InstantGame interface {
	Name() string
	Validate(selection string) error
	Play(rng *rand.Rand, selection string) (multiplier float64, outcome string)
}

// InstantResult is the outcome of one instant play.
type InstantResult struct {
	Game       string
	Outcome    string
	Multiplier float64
	Settlement Settlement
	Balance    int64
}

// PlayInstant reserves the stake, draws the outcome and credits the payout
// under one correlation id.
func (e *Engine) PlayInstant(ctx context.Context, game InstantGame, userID int64, bet Bet) (InstantResult, error) {
	if err := game.Validate(bet.Selection); err != nil {
		return InstantResult{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	corr := uuid.NewString()
	if _, err := e.wallet.Reserve(ctx, ledger.Request{
		Key:           fmt.Sprintf("bet:%s:%d", corr, userID),
		UserID:        userID,
		Amount:        bet.Amount,
		CorrelationID: corr,
	}); err != nil {
		return InstantResult{}, err
	}

	mult, outcome := game.Play(rand.New(rand.NewSource(e.seed())), bet.Selection)
	paid := payout.Apply(bet.Amount, mult)
	res, err := e.wallet.Credit(ctx, ledger.Request{
		Key:           fmt.Sprintf("payout:%s:%d", corr, userID),
		UserID:        userID,
		Amount:        paid,
		Stake:         bet.Amount,
		CorrelationID: corr,
	})
	if err != nil {
		e.log.Error("instant payout failed, refunding stake",
			zap.String("game", game.Name()), zap.String("correlation_id", corr), zap.Int64("user_id", userID), zap.Error(err))
		if _, refundErr := e.wallet.Refund(ctx, ledger.Request{
			Key:           fmt.Sprintf("refund:%s:%d", corr, userID),
			UserID:        userID,
			Amount:        bet.Amount,
			CorrelationID: corr,
		}); refundErr != nil {
			e.log.Error("compensating refund failed", zap.String("correlation_id", corr), zap.Error(refundErr))
		}
		return InstantResult{}, err
	}

	outcomeLabel := "loss"
	if paid > 0 {
		outcomeLabel = "win"
	}
	utils.RecordSessionEnd(game.Name(), outcomeLabel)
	return InstantResult{
		Game:       game.Name(),
		Outcome:    outcome,
		Multiplier: mult,
		Settlement: Settlement{UserID: userID, Staked: bet.Amount, Paid: paid, Kind: ledger.KindPayout},
		Balance:    res.Balance,
	}, nil
}
