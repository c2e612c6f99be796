/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bancocred

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/webedmilson/bancoCred/internal/apierror"
	"github.com/webedmilson/bancoCred/model"
)

// RegisterUser creates a user together with its first CURRENT account.
func (b *BancoCred) RegisterUser(ctx context.Context, input model.NewUser) (*model.UserWithAccounts, error) {
	ctx, span := tracer.Start(ctx, "Registering user")
	defer span.End()

	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, logAndRecordError(span, "password hashing failed: ", apierror.NewAPIError(apierror.ErrInternalServer, "could not register user", err))
	}

	user := input.ToUser()
	user.PasswordHash = string(hash)
	account := newAccount("", model.AccountTypeCurrent)

	err = withAccountNumber(account, func(a *model.Account) error {
		return b.datasource.CreateUserWithAccount(ctx, user, a)
	})
	if err != nil {
		return nil, logAndRecordError(span, "register user failed: ", err)
	}

	result := &model.UserWithAccounts{User: *user, Accounts: []model.Account{*account}}
	b.postTransactionActions(ctx, EventUserCreated, result, []string{account.AccountID})
	return result, nil
}

// GetUser returns the user and its accounts.
func (b *BancoCred) GetUser(ctx context.Context, userID string) (*model.UserWithAccounts, error) {
	user, err := b.datasource.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	accounts, err := b.datasource.GetAccountsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.UserWithAccounts{User: *user, Accounts: accounts}, nil
}

// checkPassword reports whether password matches the stored hash.
func checkPassword(user *model.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}
