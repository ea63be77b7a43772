// Package memory keeps accounts and transfer records in process memory. It
// offers the same unit-of-work guarantees as the Postgres backend for a single
// process and is used for local runs and tests.
package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wallet-transfers/internal/domain"
	"wallet-transfers/internal/errors"
)

type Option func(*Store)

// WithIDGenerator overrides how record ids are allocated.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(s *Store) { s.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

type Store struct {
	mu       sync.RWMutex // guards accounts and records
	accounts map[int64]*domain.Account
	records  []*domain.Transaction
	byID     map[uuid.UUID]*domain.Transaction

	locksMu sync.Mutex // guards locks
	locks   map[int64]*sync.Mutex

	newID  func() uuid.UUID
	now    func() time.Time
	logger *slog.Logger
}

func NewStore(logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		accounts: make(map[int64]*domain.Account),
		byID:     make(map[uuid.UUID]*domain.Transaction),
		locks:    make(map[int64]*sync.Mutex),
		newID:    uuid.New,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ domain.Storage = (*Store)(nil)
	_ domain.Ledger  = (*Store)(nil)
)

func (s *Store) Account() domain.AccountRepository {
	return &accountRepository{store: s}
}

func (s *Store) Transaction() domain.TransactionRepository {
	return &transactionRepository{store: s}
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) accountLock(id int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if _, exists := s.locks[id]; !exists {
		s.locks[id] = &sync.Mutex{}
	}
	return s.locks[id]
}

// lockPair takes both account locks, lower id first, and returns a func that
// releases them.
func (s *Store) lockPair(a, b int64) (unlock func()) {
	if b < a {
		a, b = b, a
	}
	first, second := s.accountLock(a), s.accountLock(b)
	first.Lock()
	second.Lock()
	return func() {
		second.Unlock()
		first.Unlock()
	}
}

// snapshot returns a copy of the account so callers never alias stored state.
func (s *Store) snapshot(id int64) (*domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, false
	}
	cp := *account
	return &cp, true
}

func (s *Store) Execute(ctx context.Context, in domain.TransferInput) (*domain.Transaction, error) {
	if in.SenderID == in.ReceiverID {
		return nil, errors.ErrSameAccountTransfer
	}

	unlock := s.lockPair(in.SenderID, in.ReceiverID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sender, ok := s.snapshot(in.SenderID)
	if !ok {
		return nil, errors.ErrSenderNotFound
	}
	receiver, ok := s.snapshot(in.ReceiverID)
	if !ok {
		return nil, errors.ErrReceiverNotFound
	}

	fee, total := domain.Commission(in.Amount, in.CommissionRate)
	if sender.Balance.LessThan(total) {
		return nil, errors.NewInsufficientBalanceError(total, sender.Balance)
	}

	record := &domain.Transaction{
		ID:            s.newID(),
		SenderID:      sender.ID,
		ReceiverID:    receiver.ID,
		Amount:        in.Amount,
		CommissionFee: fee,
		TotalDeducted: total,
		Status:        domain.StatusCompleted,
		CreatedAt:     s.now(),
		Sender:        sender.Identity(),
		Receiver:      receiver.Identity(),
	}

	uow := s.begin()
	defer uow.end()

	if err := uow.setBalance(sender.ID, sender.Balance.Sub(total)); err != nil {
		uow.rollback()
		return nil, err
	}
	if err := uow.setBalance(receiver.ID, receiver.Balance.Add(in.Amount)); err != nil {
		uow.rollback()
		return nil, err
	}
	if err := uow.appendRecord(record); err != nil {
		uow.rollback()
		return nil, err
	}

	s.logger.Info("Transfer committed",
		"transaction_id", record.ID,
		"sender_id", record.SenderID,
		"receiver_id", record.ReceiverID,
		"amount", record.Amount)

	cp := *record
	return &cp, nil
}

// unitOfWork applies writes under the store lock and keeps enough to undo them.
type unitOfWork struct {
	s        *Store
	previous map[int64]decimal.Decimal
	appended bool
}

func (s *Store) begin() *unitOfWork {
	s.mu.Lock()
	return &unitOfWork{s: s, previous: make(map[int64]decimal.Decimal, 2)}
}

func (u *unitOfWork) end() {
	u.s.mu.Unlock()
}

func (u *unitOfWork) setBalance(id int64, balance decimal.Decimal) error {
	account, ok := u.s.accounts[id]
	if !ok {
		return errors.ErrAccountNotFound
	}
	if balance.IsNegative() {
		return errors.NewAppError(errors.InternalError, "balance would become negative")
	}
	if _, seen := u.previous[id]; !seen {
		u.previous[id] = account.Balance
	}
	account.Balance = balance
	account.UpdatedAt = u.s.now()
	return nil
}

func (u *unitOfWork) appendRecord(record *domain.Transaction) error {
	if _, exists := u.s.byID[record.ID]; exists {
		return errors.NewAppError(errors.InternalError, "failed to create transaction").
			WithDetails("duplicate transaction id " + record.ID.String())
	}
	u.s.records = append(u.s.records, record)
	u.s.byID[record.ID] = record
	u.appended = true
	return nil
}

func (u *unitOfWork) rollback() {
	for id, balance := range u.previous {
		u.s.accounts[id].Balance = balance
	}
	if u.appended {
		last := u.s.records[len(u.s.records)-1]
		u.s.records = u.s.records[:len(u.s.records)-1]
		delete(u.s.byID, last.ID)
	}
	u.s.logger.Warn("Transfer rolled back")
}

type accountRepository struct {
	store *Store
}

func (r *accountRepository) CreateAccount(_ context.Context, account *domain.Account) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.ID]; exists {
		s.logger.Warn("Duplicate account creation attempt", "account_id", account.ID)
		return errors.ErrDuplicateAccount
	}

	now := s.now()
	account.CreatedAt = now
	account.UpdatedAt = now
	cp := *account
	s.accounts[account.ID] = &cp

	s.logger.Info("Account created successfully", "account_id", account.ID)
	return nil
}

func (r *accountRepository) GetAccount(_ context.Context, id int64) (*domain.Account, error) {
	account, ok := r.store.snapshot(id)
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	return account, nil
}

// GetAccountForUpdate is a plain read here: locking is owned by Execute.
func (r *accountRepository) GetAccountForUpdate(ctx context.Context, id int64) (*domain.Account, error) {
	return r.GetAccount(ctx, id)
}

// UpdateAccountBalance takes the account lock, so it serializes with transfers.
func (r *accountRepository) UpdateAccountBalance(_ context.Context, id int64, newBalance decimal.Decimal) error {
	s := r.store
	lock := s.accountLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return errors.ErrAccountNotFound
	}
	account.Balance = newBalance
	account.UpdatedAt = s.now()
	return nil
}

func (r *accountRepository) ListRecipients(_ context.Context, excludeID int64) ([]*domain.Identity, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	recipients := make([]*domain.Identity, 0, len(s.accounts))
	for id, account := range s.accounts {
		if id == excludeID {
			continue
		}
		recipients = append(recipients, account.Identity())
	}

	sort.Slice(recipients, func(i, j int) bool {
		if recipients[i].Name != recipients[j].Name {
			return recipients[i].Name < recipients[j].Name
		}
		return recipients[i].ID < recipients[j].ID
	})
	return recipients, nil
}

type transactionRepository struct {
	store *Store
}

func (r *transactionRepository) CreateTransaction(_ context.Context, tx *domain.Transaction) error {
	s := r.store
	uow := s.begin()
	defer uow.end()

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	cp := *tx
	return uow.appendRecord(&cp)
}

func (r *transactionRepository) GetTransactionByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (r *transactionRepository) ListByAccount(_ context.Context, accountID int64, page domain.Page) ([]*domain.Transaction, int, error) {
	page = page.Normalize()

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Transaction
	// Records are appended in commit order, so walking backwards is newest first.
	for i := len(s.records) - 1; i >= 0; i-- {
		tx := s.records[i]
		if tx.SenderID == accountID || tx.ReceiverID == accountID {
			matched = append(matched, tx)
		}
	}

	total := len(matched)
	start := page.Offset()
	if start >= total {
		return []*domain.Transaction{}, total, nil
	}
	end := start + page.PerPage
	if end > total {
		end = total
	}

	out := make([]*domain.Transaction, 0, end-start)
	for _, tx := range matched[start:end] {
		cp := *tx
		out = append(out, &cp)
	}
	return out, total, nil
}
