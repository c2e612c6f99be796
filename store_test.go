package bancocred

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/webedmilson/bancoCred/config"
	"github.com/webedmilson/bancoCred/database"
	"github.com/webedmilson/bancoCred/internal/apierror"
	"github.com/webedmilson/bancoCred/internal/events"
	"github.com/webedmilson/bancoCred/model"
)

// memStore is an in-memory IDataSource. Units hold a per-account mutex from
// LockAccounts until Commit or Rollback, like FOR UPDATE row locks.
type memStore struct {
	mu       sync.Mutex
	users    map[string]model.User
	accounts map[string]model.Account
	order    []string
	txns     []model.Transaction
	rows     map[string]*sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]model.User{},
		accounts: map[string]model.Account{},
		rows:     map[string]*sync.Mutex{},
	}
}

func (s *memStore) row(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rows[id]
	if !ok {
		m = &sync.Mutex{}
		s.rows[id] = m
	}
	return m
}

func (s *memStore) insertAccountLocked(account *model.Account) error {
	for _, existing := range s.accounts {
		if existing.Number == account.Number {
			return database.ErrAccountNumberTaken
		}
	}
	now := time.Now().UTC()
	account.AccountID = model.GenerateUUIDWithSuffix("acc")
	account.CreatedAt = now
	account.UpdatedAt = now
	account.Version = 0
	s.accounts[account.AccountID] = *account
	s.order = append(s.order, account.AccountID)
	return nil
}

func (s *memStore) CreateUserWithAccount(_ context.Context, user *model.User, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return apierror.NewAPIError(apierror.ErrConflict, "a user with this email already exists", nil)
		}
		if existing.CPF == user.CPF {
			return apierror.NewAPIError(apierror.ErrConflict, "a user with this CPF already exists", nil)
		}
	}
	user.UserID = model.GenerateUUIDWithSuffix("usr")
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	account.UserID = user.UserID
	if err := s.insertAccountLocked(account); err != nil {
		return err
	}
	s.users[user.UserID] = *user
	return nil
}

func (s *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "user not found", nil)
	}
	return &u, nil
}

func (s *memStore) CreateAccount(_ context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertAccountLocked(account)
}

func (s *memStore) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "account not found", nil)
	}
	return &a, nil
}

func (s *memStore) GetAccountsByUserID(_ context.Context, userID string) ([]model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Account{}
	for _, id := range s.order {
		if a := s.accounts[id]; a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) primaryID(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if s.accounts[id].UserID == userID {
			return id, true
		}
	}
	return "", false
}

func (s *memStore) GetPrimaryAccount(ctx context.Context, userID string) (*model.Account, error) {
	id, ok := s.primaryID(userID)
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "account not found", nil)
	}
	return s.GetAccountByID(ctx, id)
}

func (s *memStore) GetTransaction(_ context.Context, id string) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txns {
		if t.TransactionID == id {
			return &t, nil
		}
	}
	return nil, apierror.NewAPIError(apierror.ErrNotFound, "transaction not found", nil)
}

func (s *memStore) GetTransactionsByUserID(_ context.Context, userID string, limit, offset int) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned := func(id string) bool { return id != "" && s.accounts[id].UserID == userID }
	out := []model.Transaction{}
	for i := len(s.txns) - 1; i >= 0; i-- {
		t := s.txns[i]
		if owned(t.SourceAccountID) || owned(t.TargetAccountID) {
			out = append(out, t)
		}
	}
	if offset >= len(out) {
		return []model.Transaction{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) GetTransactionsByAccountID(_ context.Context, accountID string) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Transaction{}
	for _, t := range s.txns {
		if t.SourceAccountID == accountID || t.TargetAccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) BeginUnit(_ context.Context) (database.UnitOfWork, error) {
	return &memUnit{store: s, staged: map[string]model.Account{}}, nil
}

func (s *memStore) account(t *testing.T, id string) model.Account {
	t.Helper()
	a, err := s.GetAccountByID(context.Background(), id)
	require.NoError(t, err)
	return *a
}

func (s *memStore) transactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txns)
}

// setBalance overwrites stored balances outside the ledger.
func (s *memStore) setBalance(id string, b model.Balances) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[id]
	a.Balance, a.BalanceUSD, a.BalanceEUR = b.BRL, b.USD, b.EUR
	s.accounts[id] = a
}

type memUnit struct {
	store  *memStore
	held   []*sync.Mutex
	staged map[string]model.Account
	txns   []model.Transaction
	done   bool
}

func (u *memUnit) lock(id string) {
	m := u.store.row(id)
	m.Lock()
	u.held = append(u.held, m)
}

func (u *memUnit) LockAccounts(ctx context.Context, ids []string) (map[string]*model.Account, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	out := make(map[string]*model.Account, len(sorted))
	for _, id := range sorted {
		if _, ok := out[id]; ok {
			continue
		}
		u.lock(id)
		a, err := u.store.GetAccountByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = a
	}
	return out, nil
}

func (u *memUnit) LockPrimaryAccount(ctx context.Context, userID string) (*model.Account, error) {
	id, ok := u.store.primaryID(userID)
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "account not found", nil)
	}
	u.lock(id)
	return u.store.GetAccountByID(ctx, id)
}

func (u *memUnit) SaveAccount(_ context.Context, account *model.Account) error {
	u.store.mu.Lock()
	current := u.store.accounts[account.AccountID]
	u.store.mu.Unlock()
	if current.Version != account.Version {
		return apierror.NewAPIError(apierror.ErrConflict, "account was modified concurrently", nil)
	}
	if account.Balance.IsNegative() || account.BalanceUSD.IsNegative() || account.BalanceEUR.IsNegative() {
		return apierror.NewAPIError(apierror.ErrStoreFailure, "negative balance", nil)
	}
	account.Version++
	account.UpdatedAt = time.Now().UTC()
	u.staged[account.AccountID] = *account
	return nil
}

func (u *memUnit) InsertTransaction(_ context.Context, txn *model.Transaction) error {
	u.txns = append(u.txns, *txn)
	return nil
}

func (u *memUnit) release() {
	for i := len(u.held) - 1; i >= 0; i-- {
		u.held[i].Unlock()
	}
	u.held = nil
	u.done = true
}

func (u *memUnit) Commit() error {
	u.store.mu.Lock()
	for id, a := range u.staged {
		u.store.accounts[id] = a
	}
	u.store.txns = append(u.store.txns, u.txns...)
	u.store.mu.Unlock()
	u.release()
	return nil
}

func (u *memUnit) Rollback() error {
	if !u.done {
		u.release()
	}
	return nil
}

// fixedRates quotes from a static table.
type fixedRates map[model.Currency]decimal.Decimal

func (f fixedRates) GetRate(_ context.Context, currency model.Currency) (model.Quote, error) {
	v, ok := f[currency]
	if !ok {
		return model.Quote{}, apierror.NewAPIError(apierror.ErrServiceUnavailable, "exchange rate unavailable for "+currency.String(), nil)
	}
	return model.Quote{Currency: currency, Value: v, Source: "fixed", FetchedAt: time.Now()}, nil
}

func testConfig() *config.Configuration {
	cnf := &config.Configuration{
		Redis: config.RedisConfig{Dns: "localhost:6379"},
		Transaction: config.TransactionConfig{
			LockDurationSec:    5,
			LockWaitTimeoutSec: 5,
		},
	}
	config.MockConfig(cnf)
	return cnf
}

func newTestBancoCred(t *testing.T, store database.IDataSource) *BancoCred {
	t.Helper()
	return &BancoCred{
		datasource: store,
		oracle:     fixedRates{model.USD: decimal.RequireFromString("5.0"), model.EUR: decimal.RequireFromString("6.0")},
		publisher:  events.NoopPublisher{},
		config:     testConfig(),
	}
}

// seedUser registers a user directly in the store and gives its account the
// requested BRL balance.
func seedUser(t *testing.T, store *memStore, brl string) (userID, accountID string) {
	t.Helper()
	user := &model.User{Name: "Test", Email: model.GenerateUUIDWithSuffix("u") + "@example.com", CPF: model.GenerateUUIDWithSuffix("c")}
	account := newAccount("", model.AccountTypeCurrent)
	require.NoError(t, withAccountNumber(account, func(a *model.Account) error {
		return store.CreateUserWithAccount(context.Background(), user, a)
	}))
	if brl != "" {
		store.setBalance(account.AccountID, model.Balances{BRL: decimal.RequireFromString(brl)})
	}
	return user.UserID, account.AccountID
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
