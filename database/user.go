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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/webedmilson/bancoCred/model"
)

const userColumns = "user_id, name, email, cpf, password_hash, COALESCE(phone, ''), COALESCE(birth_date, ''), COALESCE(zip_code, ''), COALESCE(street, ''), COALESCE(number, ''), COALESCE(complement, ''), COALESCE(neighborhood, ''), COALESCE(city, ''), COALESCE(state, ''), created_at, updated_at"

// CreateUserWithAccount inserts user and its first account in one database
// transaction. Either both rows exist afterwards or neither does.
func (d Datasource) CreateUserWithAccount(ctx context.Context, user *model.User, account *model.Account) error {
	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelDefault})
	if err != nil {
		return storeError(err, "failed to begin transaction")
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	now := time.Now().UTC()
	user.UserID = model.GenerateUUIDWithSuffix("usr")
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bancocred.users (user_id, name, email, cpf, password_hash, phone, birth_date, zip_code, street, number, complement, neighborhood, city, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, user.UserID, user.Name, user.Email, user.CPF, user.PasswordHash, user.Phone, user.BirthDate,
		user.ZipCode, user.Street, user.Number, user.Complement, user.Neighborhood, user.City, user.State,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return storeError(err, "failed to create user")
	}

	account.UserID = user.UserID
	if err := insertAccount(ctx, tx, account); err != nil {
		return storeError(err, "failed to create account")
	}

	if err := tx.Commit(); err != nil {
		return storeError(err, "failed to commit transaction")
	}
	return nil
}

// GetUserByID retrieves a user by its ID.
func (d Datasource) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := d.Conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM bancocred.users WHERE user_id = $1`, id).Scan(
		&user.UserID, &user.Name, &user.Email, &user.CPF, &user.PasswordHash, &user.Phone, &user.BirthDate,
		&user.ZipCode, &user.Street, &user.Number, &user.Complement, &user.Neighborhood, &user.City, &user.State,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("user with ID '%s'", id))
	}
	return &user, nil
}
