package bancocred

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/webedmilson/bancoCred/database"
	"github.com/webedmilson/bancoCred/internal/apierror"
	"github.com/webedmilson/bancoCred/model"
)

// accountNumberAttempts bounds how many random numbers are drawn before
// giving up on a collision.
const accountNumberAttempts = 5

func newAccountNumber() string {
	return fmt.Sprintf("%06d", 100000+rand.IntN(900000))
}

func newAccount(userID string, accountType model.AccountType) *model.Account {
	return &model.Account{
		UserID: userID,
		Agency: model.DefaultAgency,
		Number: newAccountNumber(),
		Type:   accountType,
	}
}

// withAccountNumber calls create with a fresh account until it does not
// collide with an existing number.
func withAccountNumber(account *model.Account, create func(*model.Account) error) error {
	for attempt := 0; attempt < accountNumberAttempts; attempt++ {
		err := create(account)
		if !errors.Is(err, database.ErrAccountNumberTaken) {
			return err
		}
		account.Number = newAccountNumber()
	}
	return apierror.NewAPIError(apierror.ErrConflict, "could not allocate an account number, try again", nil)
}

// OpenAccount opens an additional, empty account for an existing user.
func (b *BancoCred) OpenAccount(ctx context.Context, userID string, accountType model.AccountType) (*model.Account, error) {
	ctx, span := tracer.Start(ctx, "Opening account")
	defer span.End()

	if accountType == "" {
		accountType = model.AccountTypeCurrent
	}
	if !accountType.Valid() {
		return nil, invalidArgument("account type must be %s or %s", model.AccountTypeCurrent, model.AccountTypeSavings)
	}
	if _, err := b.datasource.GetUserByID(ctx, userID); err != nil {
		return nil, logAndRecordError(span, "open account failed: ", err)
	}

	account := newAccount(userID, accountType)
	err := withAccountNumber(account, func(a *model.Account) error {
		return b.datasource.CreateAccount(ctx, a)
	})
	if err != nil {
		return nil, logAndRecordError(span, "open account failed: ", err)
	}

	b.postTransactionActions(ctx, EventAccountOpened, account, []string{account.AccountID})
	return account, nil
}

// GetAccount returns an account owned by the actor.
func (b *BancoCred) GetAccount(ctx context.Context, actingUserID, accountID string) (*model.Account, error) {
	account, err := b.datasource.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != actingUserID {
		return nil, apierror.NewAPIError(apierror.ErrForbidden, "you do not own this account", nil)
	}
	return account, nil
}

// ListAccounts returns the user's accounts, oldest first.
func (b *BancoCred) ListAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	return b.datasource.GetAccountsByUserID(ctx, userID)
}
