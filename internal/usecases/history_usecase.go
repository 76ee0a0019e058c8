package usecases

import (
	"context"
	"fmt"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"dao-ledger.backend/internal/domain/entities"
	domainerrors "dao-ledger.backend/internal/domain/errors"
	"dao-ledger.backend/internal/domain/repositories"
	"dao-ledger.backend/pkg/logger"
)

type historyLedger interface {
	FindLedgerRoom(ctx context.Context, scopeID string) (*entities.Room, error)
	Records(ctx context.Context, roomID string) ([]entities.LedgerEntry, error)
	LatestBalance(ctx context.Context, roomID, address string) float64
}

type addressBook interface {
	Get(scopeID string) (*entities.Wallet, bool)
	AddressFor(scopeID string) (string, bool)
}

// HistoryUsecase answers read-only questions about ledger history
type HistoryUsecase struct {
	rooms   repositories.SpaceHierarchy
	ledger  historyLedger
	wallets addressBook
}

func NewHistoryUsecase(rooms repositories.SpaceHierarchy, ledger historyLedger, wallets addressBook) *HistoryUsecase {
	return &HistoryUsecase{rooms: rooms, ledger: ledger, wallets: wallets}
}

// History lists every record touching address in the scope's ledger,
// newest first. An empty address means the scope's local wallet.
func (u *HistoryUsecase) History(ctx context.Context, scopeID, address string) ([]entities.HistoryEntry, error) {
	if address == "" {
		w, ok := u.wallets.Get(scopeID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domainerrors.ErrWalletNotFound, scopeID)
		}
		address = w.Address
	}

	ledger, err := u.ledger.FindLedgerRoom(ctx, scopeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrLedgerUnavailable, err)
	}
	if ledger == nil {
		return []entities.HistoryEntry{}, nil
	}

	entries, err := u.ledger.Records(ctx, ledger.ID)
	if err != nil {
		return nil, err
	}
	out := make([]entities.HistoryEntry, 0)
	for _, e := range entries {
		rec := e.Record
		if !rec.Touches(address) {
			continue
		}
		h := entities.HistoryEntry{EventID: e.EventID, Record: rec}
		switch {
		case rec.Kind() == entities.RecordKindMint:
			h.Direction = entities.DirectionIssued
		case sameAddress(rec.From, address):
			h.Direction = entities.DirectionSent
		default:
			h.Direction = entities.DirectionReceived
		}
		if bal, ok := rec.BalanceFor(address); ok {
			h.Balance = null.Float64From(bal)
		}
		out = append(out, h)
	}
	return out, nil
}

// ProtocolBalances reports, for every DAO known to the host, the ledger
// balance of the local address for that DAO. Zero balances are omitted and
// the rest are sorted largest first.
func (u *HistoryUsecase) ProtocolBalances(ctx context.Context) ([]entities.ProtocolBalance, error) {
	daos, err := u.rooms.RoomsByKind(ctx, entities.RoomKindDAO)
	if err != nil {
		return nil, err
	}
	out := make([]entities.ProtocolBalance, 0, len(daos))
	for _, dao := range daos {
		addr, ok := u.wallets.AddressFor(dao.ID)
		if !ok {
			break
		}
		ledger, err := u.ledger.FindLedgerRoom(ctx, dao.ID)
		if err != nil {
			logger.Warn(ctx, "Ledger lookup failed", zap.String("dao_id", dao.ID), zap.Error(err))
			continue
		}
		if ledger == nil {
			continue
		}
		bal := u.ledger.LatestBalance(ctx, ledger.ID, addr)
		if bal == 0 {
			continue
		}
		out = append(out, entities.ProtocolBalance{
			DaoID:   dao.ID,
			DaoName: dao.Name,
			Address: addr,
			Balance: bal,
		})
	}
	sortProtocolBalances(out)
	return out, nil
}
