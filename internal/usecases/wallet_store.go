package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"dao-ledger.backend/internal/domain/entities"
	domainerrors "dao-ledger.backend/internal/domain/errors"
	"dao-ledger.backend/internal/domain/repositories"
	"dao-ledger.backend/pkg/crypto"
	"dao-ledger.backend/pkg/logger"
	"dao-ledger.backend/pkg/metrics"
)

// WalletStoreKey is the KV key holding the serialized wallet list
const WalletStoreKey = "dao_individual_wallets"

const (
	restoredDAOName  = "Restored DAO"
	restoredCurrency = "DAOToken"
	backupVersion    = 1
)

// BalanceRecoverer reads a wallet's balance back from ledger history
type BalanceRecoverer interface {
	RecoverBalance(ctx context.Context, scopeID, address string) float64
}

// Listener receives the full secret-free wallet list after every change
type Listener func([]entities.WalletSummary)

type SubscriptionID uint64

// WalletDefaults fill in fields callers leave empty
type WalletDefaults struct {
	Unit              string
	ContributionValue float64
}

var nowFunc = time.Now

// WalletStore owns the device's DAO wallets. It is safe for concurrent use;
// every mutation rewrites the persisted list while holding the lock.
type WalletStore struct {
	kv        repositories.KVStore
	keyring   *crypto.Keyring
	recoverer BalanceRecoverer
	defaults  WalletDefaults

	mu      sync.RWMutex
	wallets map[string]*entities.Wallet

	listenersMu sync.RWMutex
	listeners   map[SubscriptionID]Listener
	nextSub     atomic.Uint64
}

func NewWalletStore(kv repositories.KVStore, keyring *crypto.Keyring, recoverer BalanceRecoverer, defaults WalletDefaults) *WalletStore {
	if defaults.Unit == "" {
		defaults.Unit = DefaultUnit
	}
	if defaults.ContributionValue <= 0 {
		defaults.ContributionValue = DefaultWalletContributionValue
	}
	return &WalletStore{
		kv:        kv,
		keyring:   keyring,
		recoverer: recoverer,
		defaults:  defaults,
		wallets:   make(map[string]*entities.Wallet),
		listeners: make(map[SubscriptionID]Listener),
	}
}

// Load reads the persisted list. A missing or empty store means no
// wallets; data that does not decode is reported and nothing is loaded.
func (s *WalletStore) Load(ctx context.Context) error {
	raw, err := s.kv.Get(ctx, WalletStoreKey)
	if errors.Is(err, domainerrors.ErrNotFound) {
		s.replace(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read wallet store: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		s.replace(nil)
		return nil
	}

	var list []*entities.Wallet
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrStoreCorrupt, err)
	}
	s.replace(list)
	logger.Info(ctx, "Wallet store loaded", zap.Int("wallets", len(list)))
	return nil
}

func (s *WalletStore) replace(list []*entities.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets = make(map[string]*entities.Wallet, len(list))
	for _, w := range list {
		if w == nil || w.DaoID == "" {
			continue
		}
		s.wallets[w.DaoID] = w
	}
	metrics.WalletsGauge.Set(float64(len(s.wallets)))
}

// GenerateMnemonic returns a fresh recovery phrase
func (s *WalletStore) GenerateMnemonic() (string, error) {
	return s.keyring.Generate()
}

func (s *WalletStore) ValidateMnemonic(phrase string) bool {
	return s.keyring.Validate(phrase)
}

// Create generates a new phrase and stores a wallet for the scope
func (s *WalletStore) Create(ctx context.Context, in entities.CreateWalletInput) (*entities.Wallet, error) {
	phrase, err := s.keyring.Generate()
	if err != nil {
		return nil, err
	}
	return s.Restore(ctx, entities.RestoreWalletInput{
		DaoID:             in.DaoID,
		DaoName:           in.DaoName,
		Currency:          in.Currency,
		ContributionValue: in.ContributionValue,
		Mnemonic:          phrase,
	})
}

// Restore derives a wallet from an existing phrase. Its balance is read
// back from the ledger, so a restored wallet may start nonzero.
func (s *WalletStore) Restore(ctx context.Context, in entities.RestoreWalletInput) (*entities.Wallet, error) {
	if strings.TrimSpace(in.DaoID) == "" {
		return nil, fmt.Errorf("%w: daoId is required", domainerrors.ErrInvalidInput)
	}
	keys, err := s.keyring.Derive(in.Mnemonic)
	if err != nil {
		if errors.Is(err, crypto.ErrInvalidMnemonic) {
			return nil, domainerrors.ErrInvalidMnemonic
		}
		return nil, err
	}

	w := &entities.Wallet{
		DaoID:             in.DaoID,
		DaoName:           in.DaoName,
		Mnemonic:          crypto.NormalizeMnemonic(in.Mnemonic),
		Address:           keys.Address,
		PrivateKey:        keys.PrivateKey,
		Currency:          in.Currency,
		ContributionValue: in.ContributionValue,
		CreatedAt:         nowFunc().UTC().Truncate(time.Millisecond),
	}
	if w.DaoName == "" {
		w.DaoName = in.DaoID
	}
	if w.Currency == "" {
		w.Currency = s.defaults.Unit
	}
	if w.ContributionValue <= 0 {
		w.ContributionValue = s.defaults.ContributionValue
	}
	if s.recoverer != nil {
		w.Balance = s.recoverer.RecoverBalance(ctx, w.DaoID, w.Address)
	}

	if err := s.put(ctx, w); err != nil {
		return nil, err
	}
	logger.Info(ctx, "DAO wallet stored",
		zap.String("dao_id", w.DaoID),
		zap.String("address", w.Address),
		zap.Float64("balance", w.Balance),
	)
	return copyWallet(w), nil
}

// Get returns a copy of the scope's wallet
func (s *WalletStore) Get(scopeID string) (*entities.Wallet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[scopeID]
	if !ok {
		return nil, false
	}
	return copyWallet(w), true
}

// FindByAddress returns the wallet holding address in scope
func (s *WalletStore) FindByAddress(scopeID, address string) (*entities.Wallet, bool) {
	w, ok := s.Get(scopeID)
	if !ok || !strings.EqualFold(w.Address, address) {
		return nil, false
	}
	return w, true
}

// List returns secret-free summaries ordered by creation time
func (s *WalletStore) List() []entities.WalletSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summariesLocked()
}

func (s *WalletStore) summariesLocked() []entities.WalletSummary {
	out := make([]entities.WalletSummary, 0, len(s.wallets))
	for _, w := range s.wallets {
		out = append(out, w.Summary())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].DaoID < out[j].DaoID
	})
	return out
}

// FirstAddress is the address of the oldest wallet, if any
func (s *WalletStore) FirstAddress() (string, bool) {
	list := s.List()
	if len(list) == 0 {
		return "", false
	}
	return list[0].Address, true
}

// AddressFor prefers the scope's own wallet and falls back to the oldest one
func (s *WalletStore) AddressFor(scopeID string) (string, bool) {
	if w, ok := s.Get(scopeID); ok {
		return w.Address, true
	}
	return s.FirstAddress()
}

func (s *WalletStore) Delete(ctx context.Context, scopeID string) (bool, error) {
	s.mu.Lock()
	prev, ok := s.wallets[scopeID]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.wallets, scopeID)
	if err := s.persistLocked(ctx); err != nil {
		s.wallets[scopeID] = prev
		s.mu.Unlock()
		return false, err
	}
	s.mu.Unlock()

	s.Notify()
	return true, nil
}

// CreditBalance adds delta to the cached balance and returns the new value
func (s *WalletStore) CreditBalance(ctx context.Context, scopeID string, delta float64) (float64, error) {
	var next float64
	err := s.mutate(ctx, scopeID, func(w *entities.Wallet) bool {
		w.Balance += delta
		next = w.Balance
		return true
	})
	return next, err
}

// SetBalance overwrites the cached balance
func (s *WalletStore) SetBalance(ctx context.Context, scopeID string, value float64) error {
	return s.mutate(ctx, scopeID, func(w *entities.Wallet) bool {
		w.Balance = value
		return true
	})
}

func (s *WalletStore) UpdateCurrency(ctx context.Context, scopeID, currency string) error {
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return fmt.Errorf("%w: currency is required", domainerrors.ErrInvalidInput)
	}
	return s.mutate(ctx, scopeID, func(w *entities.Wallet) bool {
		if w.Currency == currency {
			return false
		}
		w.Currency = currency
		return true
	})
}

// RefreshBalance re-reads the scope's balance from the ledger and reports
// whether the cached value changed
func (s *WalletStore) RefreshBalance(ctx context.Context, scopeID string) (float64, bool, error) {
	w, ok := s.Get(scopeID)
	if !ok {
		return 0, false, fmt.Errorf("%w: %s", domainerrors.ErrWalletNotFound, scopeID)
	}
	if s.recoverer == nil {
		return w.Balance, false, nil
	}
	fresh := s.recoverer.RecoverBalance(ctx, scopeID, w.Address)
	if fresh == w.Balance {
		return fresh, false, nil
	}
	if err := s.SetBalance(ctx, scopeID, fresh); err != nil {
		return w.Balance, false, err
	}
	return fresh, true, nil
}

// RefreshAll refreshes every wallet and returns how many changed
func (s *WalletStore) RefreshAll(ctx context.Context) (int, error) {
	changed := 0
	var errs []error
	for _, sum := range s.List() {
		if ctx.Err() != nil {
			return changed, ctx.Err()
		}
		_, updated, err := s.RefreshBalance(ctx, sum.DaoID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if updated {
			changed++
		}
	}
	return changed, errors.Join(errs...)
}

// TotalBalance sums the cached balances of all wallets
func (s *WalletStore) TotalBalance() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for _, w := range s.wallets {
		total += w.Balance
	}
	return total
}

// Export returns a backup of the scope's wallet including its phrase
func (s *WalletStore) Export(scopeID string) ([]byte, error) {
	w, ok := s.Get(scopeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainerrors.ErrWalletNotFound, scopeID)
	}
	return json.MarshalIndent(entities.WalletBackup{
		Version:           backupVersion,
		DaoID:             w.DaoID,
		DaoName:           w.DaoName,
		Mnemonic:          w.Mnemonic,
		Address:           w.Address,
		Currency:          w.Currency,
		ContributionValue: w.ContributionValue,
		ExportedAt:        nowFunc().UTC().Truncate(time.Millisecond),
	}, "", "  ")
}

// RestoreFromBackup restores a wallet from Export output
func (s *WalletStore) RestoreFromBackup(ctx context.Context, data []byte) (*entities.Wallet, error) {
	var b entities.WalletBackup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: backup is not valid JSON", domainerrors.ErrInvalidInput)
	}
	if b.DaoID == "" || b.Mnemonic == "" {
		return nil, fmt.Errorf("%w: backup is missing daoId or mnemonic", domainerrors.ErrInvalidInput)
	}
	if b.DaoName == "" {
		b.DaoName = restoredDAOName
	}
	if b.Currency == "" {
		b.Currency = restoredCurrency
	}
	if b.ContributionValue <= 0 {
		b.ContributionValue = 1
	}
	w, err := s.Restore(ctx, entities.RestoreWalletInput{
		DaoID:             b.DaoID,
		DaoName:           b.DaoName,
		Currency:          b.Currency,
		ContributionValue: b.ContributionValue,
		Mnemonic:          b.Mnemonic,
	})
	if err != nil {
		return nil, err
	}
	if b.Address != "" && !strings.EqualFold(b.Address, w.Address) {
		logger.Warn(ctx, "Restored address differs from backup",
			zap.String("dao_id", b.DaoID),
			zap.String("backup_address", b.Address),
			zap.String("derived_address", w.Address),
		)
	}
	return w, nil
}

// ClearAll removes every wallet
func (s *WalletStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	prev := s.wallets
	s.wallets = make(map[string]*entities.Wallet)
	if err := s.kv.Delete(ctx, WalletStoreKey); err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
		s.wallets = prev
		s.mu.Unlock()
		return fmt.Errorf("failed to clear wallet store: %w", err)
	}
	metrics.WalletsGauge.Set(0)
	s.mu.Unlock()

	s.Notify()
	return nil
}

// Subscribe registers a change listener
func (s *WalletStore) Subscribe(l Listener) SubscriptionID {
	id := SubscriptionID(s.nextSub.Add(1))
	s.listenersMu.Lock()
	s.listeners[id] = l
	s.listenersMu.Unlock()
	return id
}

func (s *WalletStore) Unsubscribe(id SubscriptionID) {
	s.listenersMu.Lock()
	delete(s.listeners, id)
	s.listenersMu.Unlock()
}

// Notify calls every listener with the current summaries. A panicking
// listener is logged and does not stop the others.
func (s *WalletStore) Notify() {
	summaries := s.List()

	s.listenersMu.RLock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.listenersMu.RUnlock()

	for _, l := range ls {
		callListener(l, summaries)
	}
}

func callListener(l Listener, summaries []entities.WalletSummary) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ListenerPanics.Inc()
			logger.Error(context.Background(), "Wallet listener panicked", zap.Any("panic", r))
		}
	}()
	cp := make([]entities.WalletSummary, len(summaries))
	copy(cp, summaries)
	l(cp)
}

func (s *WalletStore) put(ctx context.Context, w *entities.Wallet) error {
	s.mu.Lock()
	prev, had := s.wallets[w.DaoID]
	s.wallets[w.DaoID] = w
	if err := s.persistLocked(ctx); err != nil {
		if had {
			s.wallets[w.DaoID] = prev
		} else {
			delete(s.wallets, w.DaoID)
		}
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.Notify()
	return nil
}

func (s *WalletStore) mutate(ctx context.Context, scopeID string, fn func(w *entities.Wallet) bool) error {
	s.mu.Lock()
	cur, ok := s.wallets[scopeID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", domainerrors.ErrWalletNotFound, scopeID)
	}
	next := copyWallet(cur)
	if !fn(next) {
		s.mu.Unlock()
		return nil
	}
	s.wallets[scopeID] = next
	if err := s.persistLocked(ctx); err != nil {
		s.wallets[scopeID] = cur
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.Notify()
	return nil
}

func (s *WalletStore) persistLocked(ctx context.Context) error {
	list := make([]*entities.Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		list = append(list, w)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].DaoID < list[j].DaoID
	})
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode wallet store: %w", err)
	}
	if err := s.kv.Set(ctx, WalletStoreKey, raw); err != nil {
		return fmt.Errorf("failed to persist wallet store: %w", err)
	}
	metrics.WalletsGauge.Set(float64(len(list)))
	return nil
}

func copyWallet(w *entities.Wallet) *entities.Wallet {
	cp := *w
	return &cp
}
