package bancocred

import (
	"context"

	"github.com/webedmilson/bancoCred/internal/apierror"
	"github.com/webedmilson/bancoCred/model"
)

const replayAttempts = 3

// ReplayAccount recomputes an account's balances from its full history and
// compares them to the stored ones. The stored account is read before and
// after the history; if its version moved in between the read is retried.
func (b *BancoCred) ReplayAccount(ctx context.Context, accountID string) (*model.Replay, error) {
	ctx, span := tracer.Start(ctx, "Replaying account")
	defer span.End()

	for attempt := 0; attempt < replayAttempts; attempt++ {
		before, err := b.datasource.GetAccountByID(ctx, accountID)
		if err != nil {
			return nil, err
		}
		history, err := b.datasource.GetTransactionsByAccountID(ctx, accountID)
		if err != nil {
			return nil, logAndRecordError(span, "replay failed: ", err)
		}
		after, err := b.datasource.GetAccountByID(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if before.Version != after.Version {
			continue
		}
		return replay(after, history), nil
	}
	return nil, apierror.NewAPIError(apierror.ErrConflict, "account kept changing during replay, try again", nil)
}

func replay(account *model.Account, history []model.Transaction) *model.Replay {
	var computed model.Balances
	for i := range history {
		computed = computed.Add(history[i].Effects(account.AccountID))
	}
	stored := account.Balances()
	return &model.Replay{
		AccountID:  account.AccountID,
		Computed:   computed,
		Stored:     stored,
		Entries:    len(history),
		Consistent: computed.Equal(stored),
	}
}

// ReplayOwnAccount replays an account after checking the actor owns it.
func (b *BancoCred) ReplayOwnAccount(ctx context.Context, actingUserID, accountID string) (*model.Replay, error) {
	if _, err := b.GetAccount(ctx, actingUserID, accountID); err != nil {
		return nil, err
	}
	return b.ReplayAccount(ctx, accountID)
}
